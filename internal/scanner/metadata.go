package scanner

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// collectMetadata reads head-level facts. Every field degrades on its own:
// a missing node or an unresolvable URL leaves that field nil or empty.
func collectMetadata(page *Page) PageMetadata {
	doc := page.Doc

	bodyText := strings.TrimSpace(doc.Find("body").First().Text())
	wordCount := 0
	if bodyText != "" {
		wordCount = len(strings.Fields(bodyText))
	}

	return PageMetadata{
		Title:             pageTitle(doc),
		Description:       metaContent(doc, `meta[name="description"]`),
		CanonicalURL:      attrValue(doc, `link[rel="canonical"]`, "href"),
		Language:          attrValue(doc, "html", "lang"),
		Keywords:          metaContent(doc, `meta[name="keywords"]`),
		Author:            metaContent(doc, `meta[name="author"]`),
		RobotsMetaContent: metaContent(doc, `meta[name="robots"]`),
		Favicon:           favicon(page),
		AppleTouchIcon:    appleTouchIcon(page),
		WordCount:         wordCount,
		CharCount:         utf8.RuneCountInString(bodyText),
		PageURL:           page.URL.String(),
		OpenGraph: OpenGraph{
			Title:       metaContent(doc, `meta[property="og:title"]`),
			Description: metaContent(doc, `meta[property="og:description"]`),
			Image:       metaContent(doc, `meta[property="og:image"]`),
			URL:         metaContent(doc, `meta[property="og:url"]`),
			Type:        metaContent(doc, `meta[property="og:type"]`),
			Locale:      metaContent(doc, `meta[property="og:locale"]`),
			SiteName:    metaContent(doc, `meta[property="og:site_name"]`),
		},
		TwitterCard: TwitterCard{
			Card:        twitterContent(doc, "card"),
			Title:       twitterContent(doc, "title"),
			Description: twitterContent(doc, "description"),
			Image:       twitterContent(doc, "image"),
		},
		JSONLDBlocks:  jsonLDBlocks(doc),
		HreflangLinks: hreflangLinks(page),
		SitemapURLs:   []string{},
	}
}

func pageTitle(doc *goquery.Document) *string {
	title := doc.Find("head title").First()
	if title.Length() == 0 {
		title = doc.Find("title").First()
	}
	return optional(strings.TrimSpace(title.Text()))
}

func attrValue(doc *goquery.Document, selector, attr string) *string {
	value, _ := doc.Find(selector).First().Attr(attr)
	return optional(strings.TrimSpace(value))
}

func metaContent(doc *goquery.Document, selector string) *string {
	return attrValue(doc, selector, "content")
}

func twitterContent(doc *goquery.Document, name string) *string {
	if v := metaContent(doc, `meta[name="twitter:`+name+`"]`); v != nil {
		return v
	}
	return metaContent(doc, `meta[property="twitter:`+name+`"]`)
}

func favicon(page *Page) *string {
	href, _ := page.Doc.Find(`link[rel="icon"], link[rel="shortcut icon"]`).First().Attr("href")
	href = strings.TrimSpace(href)
	if href == "" {
		href = "/favicon.ico"
	}
	return resolveAgainst(page.BaseURI, href)
}

func appleTouchIcon(page *Page) *string {
	href, _ := page.Doc.Find(`link[rel="apple-touch-icon"]`).First().Attr("href")
	href = strings.TrimSpace(href)
	if href == "" {
		return nil
	}
	return resolveAgainst(page.BaseURI, href)
}

func jsonLDBlocks(doc *goquery.Document) []string {
	blocks := make([]string, 0)
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	return blocks
}

func hreflangLinks(page *Page) []HreflangLink {
	links := make([]HreflangLink, 0)
	page.Doc.Find(`link[rel="alternate"][hreflang]`).Each(func(_ int, s *goquery.Selection) {
		lang := strings.TrimSpace(s.AttrOr("hreflang", ""))
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if lang == "" || href == "" {
			return
		}
		resolved := resolveAgainst(page.URL, href)
		if resolved == nil {
			return
		}
		links = append(links, HreflangLink{Lang: lang, URL: *resolved})
	})
	return links
}

func resolveAgainst(base *url.URL, ref string) *string {
	u, err := base.Parse(ref)
	if err != nil {
		return nil
	}
	return optional(u.String())
}

// CanonicalMatches reports whether canonical, resolved against pageURL,
// points at the same origin and path as pageURL. Query and fragment are
// ignored. ok is false when either URL cannot be parsed.
func CanonicalMatches(pageURL, canonical string) (match bool, ok bool) {
	current, err := url.Parse(pageURL)
	if err != nil {
		return false, false
	}
	resolved, err := current.Parse(strings.TrimSpace(canonical))
	if err != nil {
		return false, false
	}
	return originAndPath(current) == originAndPath(resolved), true
}

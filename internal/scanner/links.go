package scanner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// collectLinks returns every navigable anchor. Empty, "#" and javascript:
// hrefs are skipped.
func collectLinks(page *Page) []LinkInfo {
	links := make([]LinkInfo, 0)
	pageOrigin := origin(page.URL)

	page.Doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		raw, _ := a.Attr("href")
		href := strings.TrimSpace(raw)
		if href == "" || href == "#" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return
		}

		text := strings.TrimSpace(a.Text())
		if text == "" {
			text = strings.TrimSpace(a.AttrOr("aria-label", ""))
		}

		var title *string
		if t, ok := a.Attr("title"); ok {
			title = &t
		}

		isExternal := false
		if resolved, err := page.URL.Parse(href); err == nil {
			normalizeURL(resolved)
			href = resolved.String()
			isExternal = origin(resolved) != pageOrigin
		}

		links = append(links, LinkInfo{
			Href:        href,
			VisibleText: text,
			Title:       title,
			IsExternal:  isExternal,
			HasNofollow: hasRelToken(a.AttrOr("rel", ""), "nofollow"),
		})
	})
	return links
}

// hasRelToken matches a whole whitespace-separated rel token.
func hasRelToken(rel, token string) bool {
	for _, t := range strings.Fields(rel) {
		if strings.EqualFold(t, token) {
			return true
		}
	}
	return false
}

package scanner

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ImageState is the runtime state of one <img> element, as reported by a
// live browser. States are listed in document order.
type ImageState struct {
	// Src is the raw src attribute; it lines the state up with its node.
	Src           string `json:"src"`
	Complete      bool   `json:"complete"`
	NaturalWidth  int    `json:"naturalWidth"`
	NaturalHeight int    `json:"naturalHeight"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	CurrentSrc    string `json:"currentSrc"`
	Display       string `json:"display"`
	Visibility    string `json:"visibility"`
	Opacity       string `json:"opacity"`
}

// Page is a read-only view of a loaded document. Providers build it either
// from fetched HTML or from a live browser tab.
type Page struct {
	URL     *url.URL
	BaseURI *url.URL
	Doc     *goquery.Document
	Images  []ImageState
}

// NewPage parses the HTML read from r as the document located at rawURL.
func NewPage(rawURL string, r io.Reader) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page URL: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("page URL must be absolute: %s", rawURL)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return NewPageFromDocument(u, doc), nil
}

// NewPageFromDocument wraps an already parsed document. The base URI honours
// a <base href> element when it resolves.
func NewPageFromDocument(u *url.URL, doc *goquery.Document) *Page {
	base := u
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if resolved, err := u.Parse(strings.TrimSpace(href)); err == nil {
			base = resolved
		}
	}

	return &Page{URL: u, BaseURI: base, Doc: doc}
}

// Origin returns the scheme://host[:port] of the page.
func (p *Page) Origin() string {
	return origin(p.URL)
}

// imageState returns the runtime state of the i-th <img>, or nil when no
// state was captured or it does not belong to this node.
func (p *Page) imageState(i int, img *goquery.Selection) *ImageState {
	if i >= len(p.Images) {
		return nil
	}
	src, _ := img.Attr("src")
	if p.Images[i].Src != src {
		return nil
	}
	return &p.Images[i]
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
	"ftp":   "21",
}

// origin serialises u the way browsers do: lowercase scheme and host,
// default ports dropped.
func origin(u *url.URL) string {
	return strings.ToLower(u.Scheme) + "://" + hostPort(u)
}

// hostPort is u's lowercase host with the scheme's default port dropped.
func hostPort(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port := u.Port(); port != "" && defaultPorts[strings.ToLower(u.Scheme)] != port {
		host = host + ":" + port
	}
	return host
}

// normalizeURL applies origin's host rules to u in place.
func normalizeURL(u *url.URL) {
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Host != "" {
		u.Host = hostPort(u)
	}
}

// originAndPath is the part of a URL compared by the canonical check.
func originAndPath(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" && u.Host != "" {
		path = "/"
	}
	return origin(u) + path
}

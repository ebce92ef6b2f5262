package scanner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const headingSelector = "h1, h2, h3, h4, h5, h6"

// collectHeadings returns non-empty headings in document order.
func collectHeadings(page *Page) []HeadingInfo {
	headings := make([]HeadingInfo, 0)
	page.Doc.Find(headingSelector).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		headings = append(headings, HeadingInfo{
			Level: int(goquery.NodeName(s)[1] - '0'),
			Text:  text,
		})
	})
	return headings
}

package scanner

import (
	"encoding/base64"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// lazySrcAttrs are checked, in order, before srcset and src.
var lazySrcAttrs = []string{"data-src", "data-lazy-src", "data-original", "data-actualsrc"}

var svgPrimitives = []string{
	"<path", "<circle", "<rect", "<polygon", "<polyline",
	"<ellipse", "<line", "<image", "<text", "<use",
}

// tinyImageSize is the largest edge, in pixels, of a tracking-pixel sized image.
const tinyImageSize = 10

// collectImages returns visible images deduplicated by resolved src.
func collectImages(page *Page) []ImageInfo {
	images := make([]ImageInfo, 0)
	seen := make(map[string]struct{})

	page.Doc.Find("img").Each(func(i int, img *goquery.Selection) {
		state := page.imageState(i, img)
		if isHidden(img, state) {
			return
		}

		src := resolveImageSrc(page, img, state)
		if src == "" {
			return
		}
		if isDataURI(src) {
			if !strings.HasPrefix(strings.ToLower(src), "data:image/") || isBlankInlineSVG(src) {
				return
			}
		}

		width, height := imageDimensions(img, state)
		if !hasLazyAttr(img) && width > 0 && height > 0 && width <= tinyImageSize && height <= tinyImageSize {
			return
		}

		if _, dup := seen[src]; dup {
			return
		}
		seen[src] = struct{}{}

		alt, hasAlt := img.Attr("alt")
		images = append(images, ImageInfo{
			Src:             src,
			Alt:             optional(alt),
			HasAltAttribute: hasAlt,
			Width:           width,
			Height:          height,
			IsBroken:        state != nil && state.Complete && state.NaturalWidth == 0,
		})
	})

	return images
}

// resolveImageSrc picks the real image URL: lazy-load attributes, then the
// first srcset candidate, then src. A placeholder result falls back to the
// browser's currentSrc.
func resolveImageSrc(page *Page, img *goquery.Selection, state *ImageState) string {
	candidate := ""
	for _, attr := range lazySrcAttrs {
		if v := strings.TrimSpace(img.AttrOr(attr, "")); v != "" {
			candidate = v
			break
		}
	}
	if candidate == "" {
		for _, attr := range []string{"srcset", "data-srcset"} {
			if v := firstSrcsetURL(img.AttrOr(attr, "")); v != "" {
				candidate = v
				break
			}
		}
	}
	if candidate == "" {
		candidate = strings.TrimSpace(img.AttrOr("src", ""))
	}

	resolved := ""
	if isDataURI(candidate) {
		resolved = candidate
	} else if candidate != "" {
		if u, err := page.BaseURI.Parse(candidate); err == nil {
			resolved = u.String()
		}
	}

	if isPlaceholder(page, resolved) && state != nil && state.CurrentSrc != "" {
		return state.CurrentSrc
	}
	return resolved
}

func isPlaceholder(page *Page, src string) bool {
	return src == "" || src == page.BaseURI.String() || isDataURI(src)
}

func firstSrcsetURL(srcset string) string {
	srcset = strings.TrimSpace(srcset)
	if srcset == "" {
		return ""
	}
	fields := strings.Fields(srcset)
	return strings.TrimSuffix(fields[0], ",")
}

func isDataURI(s string) bool {
	return len(s) >= 5 && strings.EqualFold(s[:5], "data:")
}

// isBlankInlineSVG reports an inline SVG data URI that draws nothing.
func isBlankInlineSVG(src string) bool {
	lower := strings.ToLower(src)
	if !strings.HasPrefix(lower, "data:image/svg+xml") {
		return false
	}
	header, payload, found := strings.Cut(src, ",")
	if !found {
		return true
	}

	var body string
	if strings.Contains(strings.ToLower(header), ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(payload)
		}
		if err != nil {
			return false
		}
		body = string(decoded)
	} else if unescaped, err := url.PathUnescape(payload); err == nil {
		body = unescaped
	} else {
		body = payload
	}

	body = strings.ToLower(body)
	for _, primitive := range svgPrimitives {
		if strings.Contains(body, primitive) {
			return false
		}
	}
	return true
}

func hasLazyAttr(img *goquery.Selection) bool {
	for _, attr := range lazySrcAttrs {
		if _, ok := img.Attr(attr); ok {
			return true
		}
	}
	if _, ok := img.Attr("data-srcset"); ok {
		return true
	}
	return strings.EqualFold(img.AttrOr("loading", ""), "lazy")
}

// imageDimensions prefers natural size, then rendered size, then the
// width/height attributes. Zero means unknown.
func imageDimensions(img *goquery.Selection, state *ImageState) (int, int) {
	if state != nil {
		if state.NaturalWidth > 0 && state.NaturalHeight > 0 {
			return state.NaturalWidth, state.NaturalHeight
		}
		if state.Width > 0 && state.Height > 0 {
			return state.Width, state.Height
		}
	}
	return dimensionAttr(img, "width"), dimensionAttr(img, "height")
}

func dimensionAttr(img *goquery.Selection, attr string) int {
	value := strings.TrimSuffix(strings.TrimSpace(img.AttrOr(attr, "")), "px")
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

package scanner

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// inlineStyle parses a style attribute into lowercase property/value pairs.
// Later declarations win, as in the cascade.
func inlineStyle(s *goquery.Selection) map[string]string {
	props := make(map[string]string)
	style, ok := s.Attr("style")
	if !ok {
		return props
	}
	for _, decl := range strings.Split(style, ";") {
		name, value, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.ToLower(strings.TrimSpace(value))
		value = strings.TrimSpace(strings.TrimSuffix(value, "!important"))
		if name != "" {
			props[name] = value
		}
	}
	return props
}

func zeroOpacity(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	if strings.HasSuffix(value, "%") {
		value = strings.TrimSuffix(value, "%")
	}
	f, err := strconv.ParseFloat(value, 64)
	return err == nil && f == 0
}

// isHidden reports whether an element is hidden from users: aria-hidden,
// the hidden attribute, or display/visibility/opacity taken from the
// computed style when a live state exists, otherwise from the inline style.
func isHidden(s *goquery.Selection, state *ImageState) bool {
	if strings.EqualFold(strings.TrimSpace(s.AttrOr("aria-hidden", "")), "true") {
		return true
	}
	if _, ok := s.Attr("hidden"); ok {
		return true
	}

	var display, visibility, opacity string
	if state != nil {
		display, visibility, opacity = state.Display, state.Visibility, state.Opacity
	} else {
		props := inlineStyle(s)
		display, visibility, opacity = props["display"], props["visibility"], props["opacity"]
	}

	return display == "none" || visibility == "hidden" || zeroOpacity(opacity)
}

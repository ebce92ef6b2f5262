package tabs

import "regexp"

// restrictedURLPatterns match pages that must never be scanned: browser
// internals, local files and extension stores.
var restrictedURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^chrome://`),
	regexp.MustCompile(`^chrome-extension://`),
	regexp.MustCompile(`^edge://`),
	regexp.MustCompile(`^about:`),
	regexp.MustCompile(`^view-source:`),
	regexp.MustCompile(`^file://`),
	regexp.MustCompile(`^https?://chrome\.google\.com/webstore`),
	regexp.MustCompile(`^https?://chromewebstore\.google\.com`),
	regexp.MustCompile(`^https?://microsoftedge\.microsoft\.com/addons`),
}

// IsRestrictedURL reports whether url must not be audited. An empty URL is
// restricted.
func IsRestrictedURL(url string) bool {
	if url == "" {
		return true
	}
	for _, pattern := range restrictedURLPatterns {
		if pattern.MatchString(url) {
			return true
		}
	}
	return false
}

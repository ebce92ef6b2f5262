package scanner

// OpenGraph holds the og:* properties of a page.
type OpenGraph struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
	URL         *string `json:"url"`
	Type        *string `json:"type"`
	Locale      *string `json:"locale"`
	SiteName    *string `json:"siteName"`
}

// TwitterCard holds the twitter:* meta tags of a page.
type TwitterCard struct {
	Card        *string `json:"card"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
}

// HreflangLink is one <link rel="alternate" hreflang="..."> entry.
type HreflangLink struct {
	Lang string `json:"lang"`
	URL  string `json:"url"`
}

// RobotsFile describes the site's robots.txt as seen at scan time.
type RobotsFile struct {
	URL     string `json:"url"`
	Exists  bool   `json:"exists"`
	RawText string `json:"rawText"`
}

// PageMetadata is the head/meta derived part of a snapshot. A nil pointer
// means the value was absent or could not be extracted.
type PageMetadata struct {
	Title             *string        `json:"title"`
	Description       *string        `json:"description"`
	CanonicalURL      *string        `json:"canonicalUrl"`
	Language          *string        `json:"language"`
	Keywords          *string        `json:"keywords"`
	Author            *string        `json:"author"`
	RobotsMetaContent *string        `json:"robotsMetaContent"`
	Favicon           *string        `json:"favicon"`
	AppleTouchIcon    *string        `json:"appleTouchIcon"`
	WordCount         int            `json:"wordCount"`
	CharCount         int            `json:"charCount"`
	PageURL           string         `json:"pageUrl"`
	OpenGraph         OpenGraph      `json:"openGraph"`
	TwitterCard       TwitterCard    `json:"twitterCard"`
	JSONLDBlocks      []string       `json:"jsonLdBlocks"`
	HreflangLinks     []HreflangLink `json:"hreflangLinks"`
	RobotsFile        RobotsFile     `json:"robotsFile"`
	SitemapURLs       []string       `json:"sitemapUrls"`
	SitemapRawText    string         `json:"sitemapRawText"`
}

// HeadingInfo is one h1..h6 element, kept in document order.
type HeadingInfo struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// ImageInfo is one deduplicated, visible image of the page.
type ImageInfo struct {
	Src             string  `json:"src"`
	Alt             *string `json:"alt"`
	HasAltAttribute bool    `json:"hasAltAttribute"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	IsBroken        bool    `json:"isBroken"`
}

// LinkInfo is one navigable anchor of the page.
type LinkInfo struct {
	Href        string  `json:"href"`
	VisibleText string  `json:"visibleText"`
	Title       *string `json:"title"`
	IsExternal  bool    `json:"isExternal"`
	HasNofollow bool    `json:"hasNofollow"`
}

// Snapshot is everything a single scan extracts from a page.
type Snapshot struct {
	Metadata PageMetadata  `json:"metadata"`
	Headings []HeadingInfo `json:"headings"`
	Images   []ImageInfo   `json:"images"`
	Links    []LinkInfo    `json:"links"`
}

// Discovery is the outcome of the robots.txt / sitemap.xml lookups.
type Discovery struct {
	Robots         RobotsFile
	SitemapURLs    []string
	SitemapRawText string
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

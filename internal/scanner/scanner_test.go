package scanner

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPage(t *testing.T, rawURL, html string) *Page {
	t.Helper()
	page, err := NewPage(rawURL, strings.NewReader(html))
	require.NoError(t, err)
	return page
}

type stubDiscoverer struct {
	origin string
	result Discovery
}

func (d *stubDiscoverer) Discover(_ context.Context, origin string) Discovery {
	d.origin = origin
	return d.result
}

const fullPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <title>  A reasonably descriptive page title for tests  </title>
  <meta name="description" content=" Describes the page ">
  <meta name="keywords" content="seo, audit">
  <meta name="author" content="Jane">
  <meta name="robots" content="index,follow">
  <link rel="canonical" href="/articles/one">
  <link rel="icon" href="/static/icon.png">
  <link rel="apple-touch-icon" href="/static/apple.png">
  <link rel="alternate" hreflang="de" href="/de/articles/one">
  <link rel="alternate" hreflang="fr">
  <meta property="og:title" content="OG title">
  <meta property="og:image" content="https://cdn.example.com/og.png">
  <meta property="og:site_name" content="Example">
  <meta property="twitter:card" content="summary">
  <meta name="twitter:title" content="Tw title">
  <script type="application/ld+json">{"@type":"Article"}</script>
  <script type="application/ld+json">   </script>
</head>
<body>
  <h1>Main</h1>
  <p>one two   three</p>
</body>
</html>`

func TestScanMetadata(t *testing.T) {
	page := mustPage(t, "https://example.com/articles/one?ref=x", fullPage)
	snap := New(nil).Scan(context.Background(), page)
	meta := snap.Metadata

	require.NotNil(t, meta.Title)
	assert.Equal(t, "A reasonably descriptive page title for tests", *meta.Title)
	require.NotNil(t, meta.Description)
	assert.Equal(t, "Describes the page", *meta.Description)
	assert.Equal(t, "/articles/one", *meta.CanonicalURL)
	assert.Equal(t, "en", *meta.Language)
	assert.Equal(t, "seo, audit", *meta.Keywords)
	assert.Equal(t, "Jane", *meta.Author)
	assert.Equal(t, "index,follow", *meta.RobotsMetaContent)
	assert.Equal(t, "https://example.com/static/icon.png", *meta.Favicon)
	assert.Equal(t, "https://example.com/static/apple.png", *meta.AppleTouchIcon)
	assert.Equal(t, "https://example.com/articles/one?ref=x", meta.PageURL)

	assert.Equal(t, "OG title", *meta.OpenGraph.Title)
	assert.Nil(t, meta.OpenGraph.Description)
	assert.Equal(t, "Example", *meta.OpenGraph.SiteName)
	assert.Equal(t, "summary", *meta.TwitterCard.Card)
	assert.Equal(t, "Tw title", *meta.TwitterCard.Title)

	assert.Equal(t, []string{`{"@type":"Article"}`}, meta.JSONLDBlocks)
	assert.Equal(t, []HreflangLink{{Lang: "de", URL: "https://example.com/de/articles/one"}}, meta.HreflangLinks)

	assert.Equal(t, 4, meta.WordCount)
	assert.Equal(t, len("Main\n  one two   three"), meta.CharCount)

	assert.Equal(t, "https://example.com/robots.txt", meta.RobotsFile.URL)
	assert.False(t, meta.RobotsFile.Exists)
	assert.NotNil(t, meta.SitemapURLs)
}

func TestScanMetadataDegradesToNil(t *testing.T) {
	page := mustPage(t, "https://example.com/", `<html><body></body></html>`)
	meta := New(nil).Scan(context.Background(), page).Metadata

	assert.Nil(t, meta.Title)
	assert.Nil(t, meta.Description)
	assert.Nil(t, meta.CanonicalURL)
	assert.Nil(t, meta.Language)
	assert.Nil(t, meta.AppleTouchIcon)
	require.NotNil(t, meta.Favicon)
	assert.Equal(t, "https://example.com/favicon.ico", *meta.Favicon)
	assert.Equal(t, 0, meta.WordCount)
	assert.Empty(t, meta.JSONLDBlocks)
}

func TestScanUsesDiscoverer(t *testing.T) {
	d := &stubDiscoverer{result: Discovery{
		Robots:         RobotsFile{URL: "https://example.com:8443/robots.txt", Exists: true, RawText: "User-agent: *"},
		SitemapURLs:    []string{"https://example.com:8443/sitemap.xml"},
		SitemapRawText: "<urlset/>",
	}}
	page := mustPage(t, "https://Example.com:8443/x", `<html></html>`)
	meta := New(d).Scan(context.Background(), page).Metadata

	assert.Equal(t, "https://example.com:8443", d.origin)
	assert.True(t, meta.RobotsFile.Exists)
	assert.Equal(t, []string{"https://example.com:8443/sitemap.xml"}, meta.SitemapURLs)
	assert.Equal(t, "<urlset/>", meta.SitemapRawText)
}

func TestScanSkipsDiscoveryForNonHTTP(t *testing.T) {
	d := &stubDiscoverer{}
	page := mustPage(t, "file:///tmp/index.html", `<html></html>`)
	New(d).Scan(context.Background(), page)
	assert.Empty(t, d.origin)
}

func TestCanonicalMatches(t *testing.T) {
	tests := []struct {
		name      string
		page      string
		canonical string
		match     bool
	}{
		{"different path", "https://a.com/x?q=1", "https://a.com/y", false},
		{"fragment ignored", "https://a.com/x?q=1", "https://a.com/x#frag", true},
		{"relative", "https://a.com/x", "/x", true},
		{"default port", "https://a.com/x", "https://a.com:443/x", true},
		{"different origin", "https://a.com/x", "https://www.a.com/x", false},
		{"empty path is slash", "https://a.com", "https://a.com/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, ok := CanonicalMatches(tt.page, tt.canonical)
			require.True(t, ok)
			assert.Equal(t, tt.match, match)
		})
	}
}

func TestCollectHeadings(t *testing.T) {
	page := mustPage(t, "https://example.com/", `<body>
		<h2>Second</h2><div><h1> First </h1></div><h3>   </h3><h6>Deep</h6></body>`)
	headings := New(nil).Scan(context.Background(), page).Headings

	assert.Equal(t, []HeadingInfo{
		{Level: 2, Text: "Second"},
		{Level: 1, Text: "First"},
		{Level: 6, Text: "Deep"},
	}, headings)
}

func TestCollectLinks(t *testing.T) {
	page := mustPage(t, "https://example.com/blog/", `<body>
		<a href="">empty</a>
		<a href="#">hash</a>
		<a href="JavaScript:void(0)">js</a>
		<a href="post-1" title="Post">Post one</a>
		<a href="https://other.com/" rel="external  NoFollow">Other</a>
		<a href="https://example.com:443/about" rel="nofollowed"></a>
		<a href="/icon" aria-label=" Icon link "><img src="x.png"></a>
		<a href="mailto:hi@example.com">Mail</a>
	</body>`)
	links := New(nil).Scan(context.Background(), page).Links
	require.Len(t, links, 5)

	assert.Equal(t, "https://example.com/blog/post-1", links[0].Href)
	assert.Equal(t, "Post one", links[0].VisibleText)
	require.NotNil(t, links[0].Title)
	assert.Equal(t, "Post", *links[0].Title)
	assert.False(t, links[0].IsExternal)

	assert.True(t, links[1].IsExternal)
	assert.True(t, links[1].HasNofollow)
	assert.Nil(t, links[1].Title)

	assert.Equal(t, "https://example.com/about", links[2].Href)
	assert.False(t, links[2].IsExternal)
	assert.False(t, links[2].HasNofollow, "rel token must match exactly")
	assert.Equal(t, "", links[2].VisibleText)

	assert.Equal(t, "Icon link", links[3].VisibleText)
	assert.True(t, links[4].IsExternal)
}

func TestCollectLinksNormalisesHost(t *testing.T) {
	page := mustPage(t, "http://example.com:8080/", `<body>
		<a href="https://EXAMPLE.com:443/p?q=1">a</a>
		<a href="HTTP://Example.COM:80/">b</a>
		<a href="http://example.com:8080/x">c</a>
		<a href="mailto:Hi@Example.com">d</a>
	</body>`)
	links := New(nil).Scan(context.Background(), page).Links
	require.Len(t, links, 4)

	assert.Equal(t, "https://example.com/p?q=1", links[0].Href)
	assert.Equal(t, "http://example.com/", links[1].Href)
	assert.Equal(t, "http://example.com:8080/x", links[2].Href)
	assert.False(t, links[2].IsExternal)
	assert.Equal(t, "mailto:Hi@Example.com", links[3].Href)
}

func TestCollectImagesResolutionOrder(t *testing.T) {
	page := mustPage(t, "https://example.com/gallery/", `<body>
		<img src="placeholder.gif" data-src="lazy.jpg" srcset="set.jpg 1x" alt="lazy">
		<img src="plain.jpg" srcset="first.jpg 480w, second.jpg 800w">
		<img src="only.jpg" alt="">
		<img data-srcset="dset.jpg 2x">
	</body>`)
	images := New(nil).Scan(context.Background(), page).Images
	require.Len(t, images, 4)

	assert.Equal(t, "https://example.com/gallery/lazy.jpg", images[0].Src)
	assert.Equal(t, "lazy", *images[0].Alt)
	assert.Equal(t, "https://example.com/gallery/first.jpg", images[1].Src)
	assert.False(t, images[1].HasAltAttribute)
	assert.Equal(t, "https://example.com/gallery/only.jpg", images[2].Src)
	assert.True(t, images[2].HasAltAttribute)
	assert.Nil(t, images[2].Alt)
	assert.Equal(t, "https://example.com/gallery/dset.jpg", images[3].Src)
}

func TestCollectImagesHonoursBaseHref(t *testing.T) {
	page := mustPage(t, "https://example.com/a/b", `<head><base href="https://cdn.example.com/assets/"></head>
		<body><img src="logo.png"></body>`)
	images := New(nil).Scan(context.Background(), page).Images
	require.Len(t, images, 1)
	assert.Equal(t, "https://cdn.example.com/assets/logo.png", images[0].Src)
}

func TestCollectImagesDeduplicates(t *testing.T) {
	page := mustPage(t, "https://example.com/", `<body>
		<img src="/logo.png"><img src="https://example.com/logo.png" alt="again">
	</body>`)
	images := New(nil).Scan(context.Background(), page).Images
	require.Len(t, images, 1)
	assert.False(t, images[0].HasAltAttribute)
}

func TestCollectImagesRejects(t *testing.T) {
	blankSVG := "data:image/svg+xml;charset=utf-8,%3Csvg xmlns='http://www.w3.org/2000/svg' width='1' height='1'%3E%3C/svg%3E"
	drawnSVG := "data:image/svg+xml,%3Csvg%3E%3Ccircle r='4'/%3E%3C/svg%3E"
	page := mustPage(t, "https://example.com/", `<body>
		<img src="data:text/html,hello">
		<img src="`+blankSVG+`">
		<img src="`+drawnSVG+`">
		<img src="pixel.gif" width="1" height="1">
		<img data-src="lazy-pixel.gif" width="1" height="1">
		<img src="aria.png" aria-hidden="true">
		<img src="hidden.png" hidden>
		<img src="none.png" style="display: none">
		<img src="invisible.png" style="visibility:hidden !important">
		<img src="transparent.png" style="opacity: 0.0">
		<img src="visible.png" style="opacity: 0.5">
		<img>
	</body>`)
	images := New(nil).Scan(context.Background(), page).Images

	var srcs []string
	for _, img := range images {
		srcs = append(srcs, img.Src)
	}
	assert.Equal(t, []string{
		drawnSVG,
		"https://example.com/lazy-pixel.gif",
		"https://example.com/visible.png",
	}, srcs)
}

func TestCollectImagesRuntimeState(t *testing.T) {
	page := mustPage(t, "https://example.com/", `<body>
		<img src="">
		<img src="data:image/gif;base64,R0lGODlhAQABAAAAACw=" alt="swap">
		<img src="broken.png">
		<img src="styled.png">
		<img src="natural.png" width="5" height="5">
	</body>`)
	page.Images = []ImageState{
		{Src: "", CurrentSrc: "https://cdn.example.com/responsive.webp", Complete: true, NaturalWidth: 640, NaturalHeight: 480},
		{Src: "data:image/gif;base64,R0lGODlhAQABAAAAACw=", CurrentSrc: "https://cdn.example.com/real.jpg", Complete: true, NaturalWidth: 300, NaturalHeight: 200},
		{Src: "broken.png", Complete: true, Width: 100, Height: 100},
		{Src: "styled.png", Display: "none"},
		{Src: "natural.png", Complete: true, NaturalWidth: 400, NaturalHeight: 300},
	}

	images := New(nil).Scan(context.Background(), page).Images
	require.Len(t, images, 4)

	assert.Equal(t, "https://cdn.example.com/responsive.webp", images[0].Src)
	assert.Equal(t, 640, images[0].Width)
	assert.Equal(t, "https://cdn.example.com/real.jpg", images[1].Src)
	assert.Equal(t, "https://example.com/broken.png", images[2].Src)
	assert.True(t, images[2].IsBroken)
	assert.Equal(t, "https://example.com/natural.png", images[3].Src)
	assert.Equal(t, 400, images[3].Width)
	assert.False(t, images[3].IsBroken)
}

func TestImageStateMismatchIgnored(t *testing.T) {
	page := mustPage(t, "https://example.com/", `<body><img src="a.png"></body>`)
	page.Images = []ImageState{{Src: "other.png", Display: "none"}}

	images := New(nil).Scan(context.Background(), page).Images
	require.Len(t, images, 1)
	assert.Equal(t, "https://example.com/a.png", images[0].Src)
}

func TestNewPageRejectsRelativeURL(t *testing.T) {
	_, err := NewPage("/relative", strings.NewReader("<html></html>"))
	assert.Error(t, err)
}

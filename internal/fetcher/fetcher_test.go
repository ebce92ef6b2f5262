package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/old":
			http.Redirect(w, r, "/page", http.StatusMovedPermanently)
		case "/page":
			userAgent = r.UserAgent()
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(`<html><head><title>Hello</title></head><body><h1>Hi</h1></body></html>`))
		case "/data.json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewHTTPProvider(&Config{Timeout: 5 * time.Second, UserAgent: "MetaBear-Test"})

	page, err := p.Load(context.Background(), 1, srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/page", page.URL.String())
	assert.Equal(t, "Hello", page.Doc.Find("title").Text())
	assert.Empty(t, page.Images)
	assert.Equal(t, "MetaBear-Test", userAgent)

	_, err = p.Load(context.Background(), 1, srv.URL+"/missing")
	assert.ErrorContains(t, err, "HTTP 404")

	_, err = p.Load(context.Background(), 1, srv.URL+"/data.json")
	assert.ErrorContains(t, err, "unsupported content type")
}

func TestLoadRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPProvider(nil).Load(ctx, 1, srv.URL)
	assert.ErrorContains(t, err, "failed to fetch URL")
}

func TestLoadInvalidURL(t *testing.T) {
	_, err := NewHTTPProvider(nil).Load(context.Background(), 1, "://bad")
	assert.ErrorContains(t, err, "failed to create request")
}

package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Adda-Baaj/khobor-desk/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// resty keeps idle keep-alive connections around
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

func TestParseMeta(t *testing.T) {
	t.Parallel()

	meta, err := parseMeta([]byte(`<html><head>
		<title> Fallback title </title>
		<meta name="twitter:image" content="/tw.png">
		<meta property="og:image" content=" /static/og.png ">
	</head></html>`))
	require.NoError(t, err)
	assert.Equal(t, "Fallback title", meta.Title)
	assert.Equal(t, "/static/og.png", meta.ImageURL)

	meta, err = parseMeta([]byte(`<meta name="twitter:image" content="https://cdn.example.org/tw.png">`))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.org/tw.png", meta.ImageURL)
}

func TestSourceHomepage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://bbc.co.uk/", sourceHomepage("bbc.co.uk"))
	assert.Equal(t, "http://example.org/news", sourceHomepage("http://example.org/news"))
	assert.Empty(t, sourceHomepage("  "))
}

func TestResolveURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://example.org/img/a.png", resolveURL("/img/a.png", "https://example.org/news/"))
	assert.Equal(t, "https://cdn.example.org/a.png", resolveURL("https://cdn.example.org/a.png", "https://example.org/"))
	assert.Empty(t, resolveURL("", "https://example.org/"))
}

func TestEnrichFillsMissingImagesOncePerSource(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`<html><head><meta property="og:image" content="/logo.png"></head></html>`))
	}))
	defer srv.Close()

	src := &domain.Source{Name: "Local", URI: srv.URL}
	articles := []domain.Article{
		{ID: 1, Source: src},
		{ID: 2, Source: src},
		{ID: 3, Source: src, ImageURL: "https://img.example.org/keep.jpg"},
		{ID: 4},
	}

	s := NewScraper(nil, nil, 0)
	out := s.Enrich(context.Background(), articles)

	require.Len(t, out, 4)
	assert.Equal(t, srv.URL+"/logo.png", out[0].ImageURL)
	assert.Equal(t, srv.URL+"/logo.png", out[1].ImageURL)
	assert.Equal(t, "https://img.example.org/keep.jpg", out[2].ImageURL)
	assert.Empty(t, out[3].ImageURL)
	assert.EqualValues(t, 1, hits.Load())
	assert.Empty(t, articles[0].ImageURL, "input must not be mutated")
}

func TestEnrichKeepsArticlesOnFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer srv.Close()

	articles := []domain.Article{{ID: 1, Title: "t", Source: &domain.Source{URI: srv.URL}}}
	out := NewScraper(nil, nil, 0).Enrich(context.Background(), articles)
	assert.Equal(t, articles, out)
}

func TestEnrichStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	articles := []domain.Article{{ID: 1, Source: &domain.Source{URI: "example.invalid"}}}
	done := make(chan []domain.Article, 1)
	go func() { done <- NewScraper(nil, nil, time.Hour).Enrich(ctx, articles) }()

	select {
	case out := <-done:
		assert.Equal(t, articles, out)
	case <-time.After(2 * time.Second):
		t.Fatal("enrich did not return after cancellation")
	}
}

package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Adda-Baaj/khobor-desk/internal/domain"
	"github.com/Adda-Baaj/khobor-desk/internal/logger"
	"github.com/Adda-Baaj/khobor-desk/pkg/httpclient"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
	maxSourceWorkers = 10
)

// Scraper fills in preview images for articles the news provider returned without one,
// using the og:image of the article's source homepage.
type Scraper struct {
	client httpclient.Client
	log    logger.Logger
	delay  time.Duration
}

// NewScraper creates a new Scraper with the given HTTP client, logger and per-request delay.
func NewScraper(client httpclient.Client, log logger.Logger, delay time.Duration) *Scraper {
	if client == nil {
		client = httpclient.NewRestyClient(10 * time.Second)
	}
	return &Scraper{client: client, log: logger.Ensure(log), delay: max(delay, 0)}
}

// Enrich returns a copy of articles where missing image URLs are filled from source
// metadata. Each source is fetched at most once per call. Failures leave articles as they were.
func (s *Scraper) Enrich(ctx context.Context, articles []domain.Article) []domain.Article {
	out := make([]domain.Article, len(articles))
	copy(out, articles) // default to originals so partial results are returned on cancel

	sources := pendingSources(articles)
	if len(sources) == 0 {
		return out
	}

	images := s.resolveSources(ctx, sources)
	for i := range out {
		if out[i].ImageURL != "" {
			continue
		}
		if img := images[sourceHomepage(out[i].SourceURI())]; img != "" {
			out[i].ImageURL = img
		}
	}
	return out
}

// pendingSources lists the distinct source homepages of articles without an image.
func pendingSources(articles []domain.Article) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, a := range articles {
		if a.ImageURL != "" {
			continue
		}
		home := sourceHomepage(a.SourceURI())
		if home == "" {
			continue
		}
		if _, ok := seen[home]; ok {
			continue
		}
		seen[home] = struct{}{}
		out = append(out, home)
	}
	return out
}

// resolveSources scrapes every source with a bounded worker pool and returns homepage -> image.
func (s *Scraper) resolveSources(ctx context.Context, sources []string) map[string]string {
	workerCount := min(len(sources), maxSourceWorkers)

	var limiter <-chan time.Time
	if s.delay > 0 {
		ticker := time.NewTicker(s.delay)
		limiter = ticker.C
		defer ticker.Stop()
	}

	results := make(map[string]string, len(sources))
	var mu sync.Mutex
	jobCh := make(chan string)
	var wg sync.WaitGroup

	for workerID := range workerCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.sourceWorker(ctx, limiter, jobCh, workerID, func(home, img string) {
				mu.Lock()
				results[home] = img
				mu.Unlock()
			})
		}()
	}

feed:
	for _, home := range sources {
		select {
		case <-ctx.Done():
			break feed
		case jobCh <- home:
		}
	}
	close(jobCh)

	wg.Wait()
	return results
}

// sourceWorker processes homepages from the job channel, respecting the rate limiter.
func (s *Scraper) sourceWorker(
	ctx context.Context,
	limiter <-chan time.Time,
	jobCh <-chan string,
	workerID int,
	record func(home, img string),
) {
	for home := range jobCh {
		if ctx.Err() != nil {
			continue
		}

		if limiter != nil {
			select {
			case <-ctx.Done():
				continue
			case <-limiter:
			}
		}

		img, err := s.fetchImage(ctx, home, workerID)
		if err != nil {
			s.log.WarnObj("source preview scrape failed", "preview_error", map[string]any{
				"worker_id": workerID,
				"source":    home,
				"error":     err.Error(),
			})
			continue
		}
		if img != "" {
			record(home, img)
		}
	}
}

// fetchImage downloads the homepage and extracts its preview image URL.
func (s *Scraper) fetchImage(ctx context.Context, home string, workerID int) (string, error) {
	s.log.DebugObj("scraping source preview", "preview_start", map[string]any{
		"worker_id": workerID,
		"source":    home,
	})

	resp, err := s.client.Get(ctx, home, map[string]string{"Accept": "text/html"})
	if err != nil {
		return "", fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return "", fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		s.log.InfoObj("html body truncated", "truncation", map[string]any{
			"worker_id": workerID,
			"source":    home,
			"original":  len(body),
			"kept":      maxHTMLBodyBytes,
		})
		body = body[:maxHTMLBodyBytes]
	}

	meta, err := parseMeta(body)
	if err != nil {
		return "", err
	}
	return resolveURL(meta.ImageURL, home), nil
}

// parseMeta extracts page metadata from the HTML body.
func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return pageMeta{
		Title: firstNonEmpty(
			extract(`meta[property="og:title"]`),
			strings.TrimSpace(doc.Find("title").First().Text()),
		),
		ImageURL: firstNonEmpty(
			extract(`meta[property="og:image"]`),
			extract(`meta[property="og:image:url"]`),
			extract(`meta[name="twitter:image"]`),
		),
	}, nil
}

// pageMeta holds metadata extracted from an HTML page.
type pageMeta struct {
	Title    string
	ImageURL string
}

// sourceHomepage turns a source uri such as "bbc.co.uk" into an absolute URL.
func sourceHomepage(uri string) string {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return ""
	}
	if !strings.Contains(uri, "://") {
		uri = "https://" + uri
	}
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// firstNonEmpty returns the first non-empty string from the given values.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// resolveURL resolves a possibly relative URL against a base URL.
func resolveURL(raw, base string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.IsAbs() {
		return parsed.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return raw
	}

	return baseURL.ResolveReference(parsed).String()
}

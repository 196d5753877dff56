package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Adda-Baaj/khobor-desk/internal/domain"
	"github.com/Adda-Baaj/khobor-desk/internal/logger"
	"github.com/Adda-Baaj/khobor-desk/pkg/httpclient"
)

const (
	apiPrefix = "/api"

	defaultTimeout   = 30 * time.Second
	defaultAITimeout = 120 * time.Second
)

// Options configures a backend Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	AITimeout time.Duration
	// HTTP serves fast read endpoints and retries. Fetch serves the news fetch, which
	// spends provider quota and is never retried. AI serves processing and generation
	// calls, which take tens of seconds. Nil values get resty clients built from the timeouts.
	HTTP  httpclient.Client
	Fetch httpclient.Client
	AI    httpclient.Client
	Log  logger.Logger
}

// Client talks to the AI news backend.
type Client struct {
	base  *url.URL
	http  httpclient.Client
	fetch httpclient.Client
	ai    httpclient.Client
	log   logger.Logger
}

// NewClient validates the base URL and builds a Client.
func NewClient(opts Options) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if raw == "" {
		return nil, errors.New("backend base url is empty")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend base url %q must be http or https", raw)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.AITimeout <= 0 {
		opts.AITimeout = defaultAITimeout
	}
	if opts.HTTP == nil {
		opts.HTTP = httpclient.NewRestyClient(opts.Timeout, httpclient.WithRetry(2, 250*time.Millisecond))
	}
	if opts.Fetch == nil {
		opts.Fetch = httpclient.NewRestyClient(opts.Timeout)
	}
	if opts.AI == nil {
		opts.AI = httpclient.NewRestyClient(opts.AITimeout)
	}

	return &Client{
		base:  base,
		http:  opts.HTTP,
		fetch: opts.Fetch,
		ai:    opts.AI,
		log:   logger.Ensure(opts.Log),
	}, nil
}

// FetchNews asks the backend to pull articles for a keyword from the news provider.
func (c *Client) FetchNews(ctx context.Context, q NewsQuery) (NewsFetchResult, error) {
	q = q.normalize()
	if q.Keyword == "" {
		return NewsFetchResult{}, ErrEmptyKeyword
	}

	var out wireNewsFetchResponse
	body := wireNewsFetchRequest{Keyword: q.Keyword, ArticlesCount: q.ArticlesCount, ArticlesPage: q.ArticlesPage}
	if err := c.call(ctx, c.fetch, http.MethodPost, c.endpoint("news", "fetch"), nil, body, &out); err != nil {
		return NewsFetchResult{}, err
	}

	res := NewsFetchResult{
		Articles:     toDomainList(out.Articles),
		TotalFetched: out.TotalFetched,
		Keyword:      out.Keyword,
	}
	if res.Keyword == "" {
		res.Keyword = q.Keyword
	}
	return res, nil
}

// GetArticle loads one article.
func (c *Client) GetArticle(ctx context.Context, id int64) (domain.Article, error) {
	var out wireArticle
	if err := c.call(ctx, c.http, http.MethodGet, c.endpoint("articles", idSeg(id)), nil, nil, &out); err != nil {
		return domain.Article{}, err
	}
	return out.toDomain(), nil
}

// GetRelatedArticles returns articles semantically close to id, most similar first.
func (c *Client) GetRelatedArticles(ctx context.Context, id int64, topK int) ([]domain.Article, error) {
	topK = clampTopK(topK, DefaultRelatedTopK, MaxRelatedTopK)
	query := url.Values{"top_k": {strconv.Itoa(topK)}}

	var out []wireArticle
	if err := c.call(ctx, c.ai, http.MethodGet, c.endpoint("articles", idSeg(id), "related"), query, nil, &out); err != nil {
		return nil, err
	}
	return toDomainList(out), nil
}

// ProcessArticleAI runs summarization, tagging and caption generation and returns
// the updated article.
func (c *Client) ProcessArticleAI(ctx context.Context, id int64) (domain.Article, error) {
	var out wireArticle
	if err := c.call(ctx, c.ai, http.MethodPost, c.endpoint("articles", idSeg(id), "process-ai"), nil, nil, &out); err != nil {
		return domain.Article{}, err
	}
	return out.toDomain(), nil
}

// GetSocialPost generates a caption and image for sharing.
func (c *Client) GetSocialPost(ctx context.Context, id int64) (domain.SocialPost, error) {
	var out wireSocialPost
	if err := c.call(ctx, c.ai, http.MethodGet, c.endpoint("articles", idSeg(id), "social-post"), nil, nil, &out); err != nil {
		return domain.SocialPost{}, err
	}
	return domain.SocialPost{
		Caption:     out.Caption,
		ImageURL:    strings.TrimSpace(deref(out.ImageURL)),
		ImagePrompt: deref(out.ImagePrompt),
	}, nil
}

// ListArticles pages through articles already stored by the backend.
func (c *Client) ListArticles(ctx context.Context, q ListQuery) (ArticlePage, error) {
	q = q.normalize()
	query := url.Values{
		"page":      {strconv.Itoa(q.Page)},
		"page_size": {strconv.Itoa(q.PageSize)},
	}
	if q.Search != "" {
		query.Set("search", q.Search)
	}
	if q.SourceID > 0 {
		query.Set("source_id", strconv.FormatInt(q.SourceID, 10))
	}

	var out wireArticleList
	if err := c.call(ctx, c.http, http.MethodGet, c.endpoint("articles"), query, nil, &out); err != nil {
		return ArticlePage{}, err
	}
	return ArticlePage{
		Articles:   toDomainList(out.Articles),
		Total:      out.Total,
		Page:       out.Page,
		PageSize:   out.PageSize,
		TotalPages: out.TotalPages,
	}, nil
}

// SemanticSearch finds processed articles similar to free text.
func (c *Client) SemanticSearch(ctx context.Context, query string, topK int) ([]SemanticMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyKeyword
	}
	body := wireSemanticRequest{Query: query, TopK: clampTopK(topK, DefaultSemanticTopK, MaxSemanticTopK)}

	var out wireSemanticResponse
	if err := c.call(ctx, c.ai, http.MethodPost, c.endpoint("articles", "semantic-search"), nil, body, &out); err != nil {
		return nil, err
	}
	matches := make([]SemanticMatch, 0, len(out.Results))
	for _, r := range out.Results {
		matches = append(matches, SemanticMatch{Article: r.Article.toDomain(), SimilarityScore: r.SimilarityScore})
	}
	return matches, nil
}

// Health checks the backend liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/health"
	return c.call(ctx, c.http, http.MethodGet, u.String(), nil, nil, nil)
}

// endpoint joins path segments under the /api prefix.
func (c *Client) endpoint(segments ...string) string {
	u := *c.base
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.Path = strings.TrimRight(u.Path, "/") + apiPrefix + "/" + strings.Join(escaped, "/")
	return u.String()
}

func idSeg(id int64) string { return strconv.FormatInt(id, 10) }

// call performs the request, maps non-2xx responses to *APIError and decodes JSON into out.
func (c *Client) call(ctx context.Context, hc httpclient.Client, method, endpoint string, query url.Values, body, out any) error {
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	headers := map[string]string{"Accept": "application/json"}
	if body != nil {
		headers["Content-Type"] = "application/json"
	}

	start := time.Now()
	resp, err := hc.Do(ctx, method, endpoint, headers, body)
	if err != nil {
		c.log.WarnObj("backend request failed", "backend_transport_error", map[string]any{
			"method": method,
			"url":    endpoint,
			"error":  err.Error(),
		})
		return fmt.Errorf("backend request: %w", err)
	}

	status := resp.StatusCode()
	c.log.DebugObj("backend request completed", "backend_request", map[string]any{
		"method":      method,
		"url":         endpoint,
		"status":      status,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if status < 200 || status > 299 {
		apiErr := newAPIError(status, resp.Body())
		c.log.WarnObj("backend returned error", "backend_status_error", map[string]any{
			"method": method,
			"url":    endpoint,
			"status": status,
			"detail": apiErr.Detail,
		})
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s %s response: %w (body: %s)", method, endpoint, err, responseSnippet(resp.Body()))
	}
	return nil
}

package newsapi

import (
	"strings"
	"time"

	"github.com/Adda-Baaj/khobor-desk/internal/domain"
)

const (
	DefaultArticlesCount = 100
	MaxArticlesCount     = 100
	DefaultRelatedTopK   = 5
	MaxRelatedTopK       = 20
	DefaultSemanticTopK  = 10
	MaxSemanticTopK      = 50
	DefaultPageSize      = 20
	MaxPageSize          = 100
)

// NewsQuery is the input of FetchNews.
type NewsQuery struct {
	Keyword       string
	ArticlesCount int
	ArticlesPage  int
}

// normalize trims the keyword and clamps paging values to what the backend accepts.
func (q NewsQuery) normalize() NewsQuery {
	q.Keyword = strings.TrimSpace(q.Keyword)
	if q.ArticlesCount <= 0 {
		q.ArticlesCount = DefaultArticlesCount
	}
	q.ArticlesCount = min(q.ArticlesCount, MaxArticlesCount)
	q.ArticlesPage = max(q.ArticlesPage, 1)
	return q
}

// NewsFetchResult is the FetchNews response.
type NewsFetchResult struct {
	Articles     []domain.Article
	TotalFetched int
	Keyword      string
}

// ListQuery filters ListArticles.
type ListQuery struct {
	Page     int
	PageSize int
	Search   string
	SourceID int64
}

func (q ListQuery) normalize() ListQuery {
	q.Page = max(q.Page, 1)
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	q.PageSize = min(q.PageSize, MaxPageSize)
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// ArticlePage is one page of stored articles.
type ArticlePage struct {
	Articles   []domain.Article
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// SemanticMatch pairs an article with its similarity score.
type SemanticMatch struct {
	Article         domain.Article
	SimilarityScore float64
}

func clampTopK(k, def, maxK int) int {
	if k <= 0 {
		return def
	}
	return min(k, maxK)
}

// Wire types mirror the backend JSON. Datetimes are decoded as strings because the
// backend emits naive ISO timestamps that encoding/json cannot parse into time.Time.

type wireSource struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	URI       *string `json:"uri"`
	CreatedAt *string `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

type wireArticle struct {
	ID            int64       `json:"id"`
	Title         string      `json:"title"`
	Content       *string     `json:"content"`
	ImageURL      *string     `json:"image_url"`
	PublishedDate *string     `json:"published_date"`
	SourceID      *int64      `json:"source_id"`
	Source        *wireSource `json:"source"`
	AISummary     *string     `json:"ai_summary"`
	AITags        []string    `json:"ai_tags"`
	AICaption     *string     `json:"ai_caption"`
	AIImagePrompt *string     `json:"ai_image_prompt"`
	CreatedAt     *string     `json:"created_at"`
	UpdatedAt     *string     `json:"updated_at"`
}

type wireNewsFetchRequest struct {
	Keyword       string `json:"keyword"`
	ArticlesCount int    `json:"articles_count"`
	ArticlesPage  int    `json:"articles_page"`
}

type wireNewsFetchResponse struct {
	Articles     []wireArticle `json:"articles"`
	TotalFetched int           `json:"total_fetched"`
	Keyword      string        `json:"keyword"`
}

type wireArticleList struct {
	Articles   []wireArticle `json:"articles"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

type wireSemanticRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type wireSemanticResponse struct {
	Results []struct {
		Article         wireArticle `json:"article"`
		SimilarityScore float64     `json:"similarity_score"`
	} `json:"results"`
	Query        string `json:"query"`
	TotalResults int    `json:"total_results"`
}

type wireSocialPost struct {
	Caption     string  `json:"caption"`
	ImageURL    *string `json:"image_url"`
	ImagePrompt *string `json:"image_prompt"`
}

type wireError struct {
	Detail any `json:"detail"`
}

func (w wireArticle) toDomain() domain.Article {
	a := domain.Article{
		ID:            w.ID,
		Title:         strings.TrimSpace(w.Title),
		Content:       deref(w.Content),
		ImageURL:      strings.TrimSpace(deref(w.ImageURL)),
		PublishedDate: parseTime(w.PublishedDate),
		SourceID:      w.SourceID,
		AISummary:     deref(w.AISummary),
		AITags:        cleanTags(w.AITags),
		AICaption:     deref(w.AICaption),
		AIImagePrompt: deref(w.AIImagePrompt),
		CreatedAt:     parseTime(w.CreatedAt),
		UpdatedAt:     parseTime(w.UpdatedAt),
	}
	if a.PublishedDate == nil {
		a.PublishedRaw = strings.TrimSpace(deref(w.PublishedDate))
	}
	if w.Source != nil {
		a.Source = &domain.Source{
			ID:        w.Source.ID,
			Name:      strings.TrimSpace(w.Source.Name),
			URI:       strings.TrimSpace(deref(w.Source.URI)),
			CreatedAt: parseTime(w.Source.CreatedAt),
			UpdatedAt: parseTime(w.Source.UpdatedAt),
		}
	}
	return a
}

func toDomainList(in []wireArticle) []domain.Article {
	out := make([]domain.Article, 0, len(in))
	for _, w := range in {
		out = append(out, w.toDomain())
	}
	return out
}

func cleanTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTime accepts RFC3339 and the zone-less ISO forms the backend produces.
// Zone-less values are taken as UTC. Unparsable values yield nil.
func parseTime(raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

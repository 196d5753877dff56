// Package web serves the server-rendered news desk: search, article detail,
// AI processing, social posts, the stored-article library and semantic search.
package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/Adda-Baaj/khobor-desk/internal/domain"
	"github.com/Adda-Baaj/khobor-desk/internal/logger"
	"github.com/Adda-Baaj/khobor-desk/internal/state"
	"github.com/Adda-Baaj/khobor-desk/pkg/newsapi"
	"github.com/Adda-Baaj/khobor-desk/pkg/publishers"
)

const (
	searchArticlesCount = 100
	relatedTopK         = 5
	relatedLimit        = 6
)

// Backend is the subset of the news API the pages call.
type Backend interface {
	FetchNews(ctx context.Context, q newsapi.NewsQuery) (newsapi.NewsFetchResult, error)
	GetArticle(ctx context.Context, id int64) (domain.Article, error)
	GetRelatedArticles(ctx context.Context, id int64, topK int) ([]domain.Article, error)
	ProcessArticleAI(ctx context.Context, id int64) (domain.Article, error)
	GetSocialPost(ctx context.Context, id int64) (domain.SocialPost, error)
	ListArticles(ctx context.Context, q newsapi.ListQuery) (newsapi.ArticlePage, error)
	SemanticSearch(ctx context.Context, query string, topK int) ([]newsapi.SemanticMatch, error)
	Health(ctx context.Context) error
}

// Enricher fills missing preview images on search results.
type Enricher interface {
	Enrich(ctx context.Context, articles []domain.Article) []domain.Article
}

// Sharer publishes social posts to the configured destinations.
type Sharer interface {
	Enabled() bool
	Dispatch(ctx context.Context, evt publishers.ShareEvent) ([]publishers.Result, error)
}

// Options configures a Server. Backend and Store are required.
type Options struct {
	Backend       Backend
	Store         *state.Store
	Enricher      Enricher
	Sharer        Sharer
	Log           logger.Logger
	SecureCookies bool
	SessionTTL    time.Duration
}

// Server renders pages and handles form posts.
type Server struct {
	backend   Backend
	store     *state.Store
	enricher  Enricher
	sharer    Sharer
	log       logger.Logger
	pages     map[string]*template.Template
	cookieAge time.Duration
	secure    bool
}

// New parses the embedded templates and returns a Server.
func New(opts Options) (*Server, error) {
	if opts.Backend == nil {
		return nil, errors.New("web: backend is required")
	}
	if opts.Store == nil {
		return nil, errors.New("web: state store is required")
	}

	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Server{
		backend:   opts.Backend,
		store:     opts.Store,
		enricher:  opts.Enricher,
		sharer:    opts.Sharer,
		log:       logger.Ensure(opts.Log),
		pages:     pages,
		cookieAge: opts.SessionTTL,
		secure:    opts.SecureCookies,
	}, nil
}

// Handler returns the routed handler wrapped in session, logging and recovery middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /articles/{id}", s.handleArticle)
	mux.HandleFunc("POST /articles/{id}/process", s.handleProcess)
	mux.HandleFunc("POST /articles/{id}/social", s.handleSocialGenerate)
	mux.HandleFunc("GET /articles/{id}/social", s.handleSocialModal)
	mux.HandleFunc("POST /articles/{id}/social/close", s.handleSocialClose)
	mux.HandleFunc("POST /articles/{id}/social/share", s.handleSocialShare)
	mux.HandleFunc("GET /library", s.handleLibrary)
	mux.HandleFunc("GET /semantic", s.handleSemantic)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound)
	})

	return s.recoverer(s.accessLog(s.sessions(mux)))
}

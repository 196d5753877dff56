package web

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Adda-Baaj/khobor-desk/pkg/newsapi"
)

type libraryPage struct {
	Meta
	Search   string
	Result   newsapi.ArticlePage
	Error    string
	ReturnTo string
	PrevPath string
	NextPath string
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	search := strings.TrimSpace(q.Get("search"))

	data := &libraryPage{Meta: Meta{Title: "Library"}, Search: search, ReturnTo: r.URL.RequestURI()}
	res, err := s.backend.ListArticles(r.Context(), newsapi.ListQuery{Page: page, Search: search})
	if err != nil {
		s.log.WarnObj("list articles failed", "library_error", map[string]any{"error": err.Error()})
		data.Error = newsapi.Message(err, msgLibraryFailed)
		s.render(w, r, http.StatusOK, "library", &data.Meta, data)
		return
	}

	data.Result = res
	if res.Page > 1 {
		data.PrevPath = libraryPath(res.Page-1, search)
	}
	if res.Page < res.TotalPages {
		data.NextPath = libraryPath(res.Page+1, search)
	}
	s.render(w, r, http.StatusOK, "library", &data.Meta, data)
}

func libraryPath(page int, search string) string {
	v := url.Values{"page": {strconv.Itoa(page)}}
	if search != "" {
		v.Set("search", search)
	}
	return "/library?" + v.Encode()
}

type semanticPage struct {
	Meta
	Query    string
	Matches  []newsapi.SemanticMatch
	Searched bool
	Error    string
	ReturnTo string
}

func (s *Server) handleSemantic(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	data := &semanticPage{Meta: Meta{Title: "Semantic Search"}, Query: query, ReturnTo: r.URL.RequestURI()}

	if query != "" {
		data.Searched = true
		matches, err := s.backend.SemanticSearch(r.Context(), query, 0)
		if err != nil {
			s.log.WarnObj("semantic search failed", "semantic_error", map[string]any{
				"query": query,
				"error": err.Error(),
			})
			data.Error = newsapi.Message(err, msgSemanticFailed)
		}
		data.Matches = matches
	}
	s.render(w, r, http.StatusOK, "semantic", &data.Meta, data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.backend.Health(r.Context()); err != nil {
		s.log.WarnObj("backend health check failed", "health_error", map[string]any{"error": err.Error()})
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("backend unavailable\n"))
		return
	}
	_, _ = w.Write([]byte("ok\n"))
}

package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Adda-Baaj/khobor-desk/internal/domain"
	"github.com/Adda-Baaj/khobor-desk/internal/state"
	"github.com/Adda-Baaj/khobor-desk/pkg/newsapi"
)

const (
	lastResultsPath = "/?view=last"

	msgFetchFailed     = "Failed to fetch news articles"
	msgLoadFailed      = "Failed to load article"
	msgProcessed       = "Article processed with AI successfully! Summary, tags, and caption generated."
	msgProcessFailed   = "Failed to process article with AI."
	msgDatabaseMissing = "Database is required for AI processing. Please ensure database is connected."
	msgSocialFailed    = "Failed to generate social post."
	msgLibraryFailed   = "Failed to load articles"
	msgSemanticFailed  = "Semantic search failed"
)

type homePage struct {
	Meta
	Keyword   string
	Articles  []domain.Article
	Performed bool
	Error     string
	ReturnTo  string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	session := sessionID(r)
	data := &homePage{ReturnTo: lastResultsPath}

	q := r.URL.Query()
	switch keyword := strings.TrimSpace(q.Get("keyword")); {
	case keyword != "":
		data.Keyword = keyword
		data.Performed = true
		res, err := s.backend.FetchNews(r.Context(), newsapi.NewsQuery{
			Keyword:       keyword,
			ArticlesCount: searchArticlesCount,
			ArticlesPage:  1,
		})
		if err != nil {
			s.log.WarnObj("fetch news failed", "search_error", map[string]any{
				"keyword": keyword,
				"error":   err.Error(),
			})
			data.Error = newsapi.Message(err, msgFetchFailed)
		} else {
			data.Articles = res.Articles
			if s.enricher != nil {
				data.Articles = s.enricher.Enrich(r.Context(), data.Articles)
			}
		}
		err = s.store.SaveSearch(session, state.SearchState{
			Keyword:   data.Keyword,
			Articles:  data.Articles,
			Performed: true,
			Error:     data.Error,
		})
		if err != nil {
			s.log.WarnObj("save search failed", "state_error", map[string]any{"error": err.Error()})
		}
	case q.Get("view") == "last":
		st, ok, err := s.store.LoadSearch(session)
		if err != nil {
			s.log.WarnObj("load search failed", "state_error", map[string]any{"error": err.Error()})
		}
		if ok {
			data.Keyword, data.Articles, data.Performed, data.Error = st.Keyword, st.Articles, st.Performed, st.Error
		}
	}

	s.render(w, r, http.StatusOK, "home", &data.Meta, data)
}

type articlePage struct {
	Meta
	Article  domain.Article
	Related  []domain.Article
	Error    string
	ReturnTo string
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(r)
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return
	}

	data := &articlePage{ReturnTo: articlePath(id)}
	article, err := s.backend.GetArticle(r.Context(), id)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, newsapi.ErrNotFound) {
			status = http.StatusNotFound
		}
		data.Error = newsapi.Message(err, msgLoadFailed)
		data.Title = "Article"
		s.render(w, r, status, "article", &data.Meta, data)
		return
	}

	data.Article = article
	data.Title = article.Title
	data.Description = article.Description()
	if article.Processed() {
		related, err := s.backend.GetRelatedArticles(r.Context(), id, relatedTopK)
		if err != nil {
			s.log.WarnObj("related articles failed", "related_error", map[string]any{
				"article_id": id,
				"error":      err.Error(),
			})
		}
		data.Related = domain.ExcludeID(related, id, relatedLimit)
	}

	s.render(w, r, http.StatusOK, "article", &data.Meta, data)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(r)
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	target := localPath(r.FormValue("return_to"), lastResultsPath)

	updated, err := s.backend.ProcessArticleAI(r.Context(), id)
	if err != nil {
		s.log.WarnObj("ai processing failed", "process_error", map[string]any{
			"article_id": id,
			"error":      err.Error(),
		})
		msg := newsapi.Message(err, msgProcessFailed)
		if strings.Contains(msg, "Database not available") {
			s.flash(r, state.FlashError, msgDatabaseMissing)
		} else {
			s.flash(r, state.FlashError, "Error: "+msg)
		}
		redirect(w, r, target)
		return
	}

	if _, err := s.store.ReplaceArticle(sessionID(r), updated); err != nil {
		s.log.WarnObj("replace article failed", "state_error", map[string]any{
			"article_id": id,
			"error":      err.Error(),
		})
	}
	s.flash(r, state.FlashSuccess, msgProcessed)
	redirect(w, r, target)
}

// articleID parses the {id} path value.
func articleID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func articlePath(id int64) string { return "/articles/" + strconv.FormatInt(id, 10) }

func withReturn(path, returnTo string) string {
	if returnTo == "" {
		return path
	}
	return path + "?return_to=" + url.QueryEscape(returnTo)
}

package web

import (
	"net/http"
	"strings"

	"github.com/Adda-Baaj/khobor-desk/internal/domain"
	"github.com/Adda-Baaj/khobor-desk/internal/state"
	"github.com/Adda-Baaj/khobor-desk/pkg/newsapi"
	"github.com/Adda-Baaj/khobor-desk/pkg/publishers"
)

const (
	msgShared      = "Social post shared"
	msgShareFailed = "Failed to share social post"
)

type socialPage struct {
	Meta
	Draft     state.SocialDraft
	ReturnTo  string
	CanShare  bool
	ClosePath string
}

// handleSocialGenerate asks the backend for a social post and stores it as the
// session's open modal. A failed generation still opens the modal with the
// fallback caption.
func (s *Server) handleSocialGenerate(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(r)
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	session := sessionID(r)
	returnTo := localPath(r.FormValue("return_to"), "")
	article := s.articleFor(r, id)

	draft := state.SocialDraft{
		ArticleID: id,
		Title:     article.Title,
		Caption:   article.FallbackCaption(),
	}

	post, err := s.backend.GetSocialPost(r.Context(), id)
	if err != nil {
		s.log.WarnObj("social post failed", "social_error", map[string]any{
			"article_id": id,
			"error":      err.Error(),
		})
		msg := newsapi.Message(err, msgSocialFailed)
		if !strings.Contains(msg, "not found") && !strings.Contains(msg, "AI") {
			s.flash(r, state.FlashError, "Error generating social post: "+msg)
		}
	} else {
		if c := strings.TrimSpace(post.Caption); c != "" {
			draft.Caption = post.Caption
		}
		draft.ImageURL = post.ImageURL
		draft.ImagePrompt = post.ImagePrompt
		if post.ImageURL == "" {
			s.log.InfoObj("social post has no image", "social_no_image", map[string]any{"article_id": id})
		}
	}

	if err := s.store.SaveSocialPost(session, draft); err != nil {
		s.log.WarnObj("save social post failed", "state_error", map[string]any{"error": err.Error()})
		s.renderError(w, r, http.StatusInternalServerError)
		return
	}
	redirect(w, r, withReturn(articlePath(id)+"/social", returnTo))
}

// articleFor finds the article in the session's results, falling back to the backend.
// The zero Article is returned when neither has it.
func (s *Server) articleFor(r *http.Request, id int64) domain.Article {
	if st, ok, err := s.store.LoadSearch(sessionID(r)); err == nil && ok {
		for _, a := range st.Articles {
			if a.ID == id {
				return a
			}
		}
	}
	a, err := s.backend.GetArticle(r.Context(), id)
	if err != nil {
		s.log.DebugObj("article lookup failed", "social_article_lookup", map[string]any{
			"article_id": id,
			"error":      err.Error(),
		})
		return domain.Article{ID: id}
	}
	return a
}

func (s *Server) handleSocialModal(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(r)
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	draft, found, err := s.store.LoadSocialPost(sessionID(r), id)
	if err != nil {
		s.log.WarnObj("load social post failed", "state_error", map[string]any{"error": err.Error()})
	}
	if !found {
		redirect(w, r, articlePath(id))
		return
	}

	data := &socialPage{
		Meta:      Meta{Title: "Social Media Post"},
		Draft:     draft,
		ReturnTo:  localPath(r.URL.Query().Get("return_to"), ""),
		CanShare:  s.sharer != nil && s.sharer.Enabled(),
		ClosePath: articlePath(id) + "/social/close",
	}
	s.render(w, r, http.StatusOK, "social", &data.Meta, data)
}

func (s *Server) handleSocialClose(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(r)
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	if err := s.store.DeleteSocialPost(sessionID(r), id); err != nil {
		s.log.WarnObj("delete social post failed", "state_error", map[string]any{"error": err.Error()})
	}
	redirect(w, r, localPath(r.FormValue("return_to"), articlePath(id)))
}

func (s *Server) handleSocialShare(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(r)
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	session := sessionID(r)
	returnTo := localPath(r.FormValue("return_to"), "")

	draft, found, err := s.store.LoadSocialPost(session, id)
	if err != nil || !found {
		redirect(w, r, articlePath(id))
		return
	}
	if s.sharer == nil || !s.sharer.Enabled() {
		s.flash(r, state.FlashError, "Sharing is not configured")
		redirect(w, r, withReturn(articlePath(id)+"/social", returnTo))
		return
	}

	results, err := s.sharer.Dispatch(r.Context(), publishers.ShareEvent{
		ArticleID: id,
		Title:     draft.Title,
		Caption:   draft.Caption,
		ImageURL:  draft.ImageURL,
		SessionID: session,
	})
	if err != nil {
		s.log.WarnObj("share dispatch failed", "share_error", map[string]any{
			"article_id": id,
			"error":      err.Error(),
		})
		if len(results) == 0 {
			s.flash(r, state.FlashError, msgShareFailed)
			redirect(w, r, withReturn(articlePath(id)+"/social", returnTo))
			return
		}
	}
	delivered := 0
	for _, res := range results {
		if res.Err != nil {
			s.flash(r, state.FlashError, "Sharing to "+res.PublisherID+" failed")
			continue
		}
		delivered++
	}
	if delivered > 0 {
		s.flash(r, state.FlashSuccess, msgShared)
	}
	redirect(w, r, withReturn(articlePath(id)+"/social", returnTo))
}

package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/Adda-Baaj/khobor-desk/internal/domain"
	"github.com/Adda-Baaj/khobor-desk/internal/state"
)

const (
	siteName        = "Khobor Desk"
	siteDescription = "AI-powered news desk with semantic search"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "article", "social", "library", "semantic", "error"}

var funcs = template.FuncMap{
	"cardDate":   func(a domain.Article) string { return a.PublishedOn(domain.CardDateLayout) },
	"detailDate": func(a domain.Article) string { return a.PublishedOn(domain.DetailDateLayout) },
	"cardTags":   func(a domain.Article) []string { return a.TopTags(domain.DefaultTagView) },
	"card":       func(a domain.Article, returnTo string) cardView { return cardView{Article: a, ReturnTo: returnTo} },
	"add":        func(a, b int) int { return a + b },
}

// parsePages builds one template set per page, each sharing the layout and partials.
func parsePages() (map[string]*template.Template, error) {
	base, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if t, err = t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("page %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// Meta is the layout data every page carries.
type Meta struct {
	Title       string
	Description string
	Flashes     []state.Flash
}

type cardView struct {
	Article  domain.Article
	ReturnTo string
}

type errorPage struct {
	Meta
	Status  int
	Message string
}

func pageTitle(title string) string {
	if title == "" {
		return siteName
	}
	return title + " - " + siteName
}

// render executes page into a buffer so template failures still yield the error page.
// meta receives the session's pending flashes.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, meta *Meta, data any) {
	if meta.Description == "" {
		meta.Description = siteDescription
	}
	meta.Title = pageTitle(meta.Title)
	if session := sessionID(r); session != "" {
		flashes, err := s.store.PopFlashes(session)
		if err != nil {
			s.log.WarnObj("pop flashes failed", "state_error", map[string]any{"error": err.Error()})
		}
		meta.Flashes = flashes
	}

	var buf bytes.Buffer
	if err := s.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.log.ErrorObj("template render failed", "render_error", map[string]any{
			"page":  page,
			"error": err.Error(),
		})
		if page != "error" {
			s.renderError(w, r, http.StatusInternalServerError)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int) {
	msg := "Something went wrong. Please try again."
	if status == http.StatusNotFound {
		msg = "This page could not be found."
	}
	data := &errorPage{Meta: Meta{Title: "Error"}, Status: status, Message: msg}
	s.render(w, r, status, "error", &data.Meta, data)
}

// flash records a one-shot message; failures are logged and otherwise ignored.
func (s *Server) flash(r *http.Request, kind state.FlashKind, msg string) {
	if err := s.store.PushFlash(sessionID(r), state.Flash{Kind: kind, Message: msg}); err != nil {
		s.log.WarnObj("push flash failed", "state_error", map[string]any{"error": err.Error()})
	}
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// localPath returns raw when it is a same-site absolute path, else fallback.
func localPath(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return raw
}

package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Domain contains the article model as the backend returns it, plus view helpers.

const (
	unknownSource  = "Unknown Source"
	noDate         = "Date not available"
	previewRunes   = 200
	DefaultTagView = 5

	CardDateLayout   = "Jan 02, 2006"
	DetailDateLayout = "January 02, 2006"
)

type Source struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	URI       string     `json:"uri,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type Article struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Content       string     `json:"content,omitempty"`
	ImageURL      string     `json:"image_url,omitempty"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	PublishedRaw  string     `json:"published_raw,omitempty"`
	SourceID      *int64     `json:"source_id,omitempty"`
	Source        *Source    `json:"source,omitempty"`
	AISummary     string     `json:"ai_summary,omitempty"`
	AITags        []string   `json:"ai_tags,omitempty"`
	AICaption     string     `json:"ai_caption,omitempty"`
	AIImagePrompt string     `json:"ai_image_prompt,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// SocialPost is a shareable caption with an optional generated image.
type SocialPost struct {
	Caption     string `json:"caption"`
	ImageURL    string `json:"image_url,omitempty"`
	ImagePrompt string `json:"image_prompt,omitempty"`
}

// SourceName returns the source display name.
func (a Article) SourceName() string {
	if a.Source != nil {
		if name := strings.TrimSpace(a.Source.Name); name != "" {
			return name
		}
	}
	return unknownSource
}

// SourceURI returns the source uri or "".
func (a Article) SourceURI() string {
	if a.Source == nil {
		return ""
	}
	return strings.TrimSpace(a.Source.URI)
}

// PublishedOn formats the publication date with layout. A date the backend sent
// but that could not be parsed is shown verbatim.
func (a Article) PublishedOn(layout string) string {
	if a.PublishedDate != nil && !a.PublishedDate.IsZero() {
		return a.PublishedDate.Format(layout)
	}
	if raw := strings.TrimSpace(a.PublishedRaw); raw != "" {
		return raw
	}
	return noDate
}

// Processed reports whether AI processing has produced a summary.
func (a Article) Processed() bool {
	return strings.TrimSpace(a.AISummary) != ""
}

// Preview is the card body text: the AI summary when present, otherwise the
// first 200 runes of content followed by an ellipsis.
func (a Article) Preview() string {
	if a.Processed() {
		return a.AISummary
	}
	if a.Content == "" {
		return ""
	}
	return Truncate(a.Content, previewRunes) + "..."
}

// Description is the page meta description.
func (a Article) Description() string {
	if a.Processed() {
		return a.AISummary
	}
	return Truncate(a.Content, 160)
}

// TopTags returns at most n tags.
func (a Article) TopTags(n int) []string {
	if n < 0 || len(a.AITags) <= n {
		return a.AITags
	}
	return a.AITags[:n]
}

// FallbackCaption is the caption shown when no generated caption is available.
func (a Article) FallbackCaption() string {
	if c := strings.TrimSpace(a.AICaption); c != "" {
		return a.AICaption
	}
	return a.Title
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// ReplaceByID returns a copy of list where the entry with updated.ID is replaced.
// A preview image already on the stored entry is kept when updated has none.
// The second result reports whether a replacement happened.
func ReplaceByID(list []Article, updated Article) ([]Article, bool) {
	out := make([]Article, len(list))
	copy(out, list)
	replaced := false
	for i := range out {
		if out[i].ID == updated.ID {
			out[i] = mergeStored(out[i], updated)
			replaced = true
		}
	}
	return out, replaced
}

// mergeStored carries client-side fields of stored over to updated.
func mergeStored(stored, updated Article) Article {
	if strings.TrimSpace(updated.ImageURL) == "" {
		updated.ImageURL = stored.ImageURL
	}
	return updated
}

// ExcludeID drops the article with the given id and caps the result at limit (limit <= 0 means no cap).
func ExcludeID(list []Article, id int64, limit int) []Article {
	out := make([]Article, 0, len(list))
	for _, a := range list {
		if a.ID == id {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

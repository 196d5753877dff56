package publishers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Adda-Baaj/khobor-desk/internal/logger"
)

// Logger is the logging surface publishers use.
type Logger = logger.Logger

func ensureLogger(log Logger) Logger { return logger.Ensure(log) }

// ShareEvent is a generated social post a visitor chose to share.
type ShareEvent struct {
	ArticleID int64     `json:"article_id"`
	Title     string    `json:"title"`
	Caption   string    `json:"caption"`
	ImageURL  string    `json:"image_url,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	SharedAt  time.Time `json:"shared_at"`
}

// articleAttr is the message attribute value queue providers route on.
func (e ShareEvent) articleAttr() string { return strconv.FormatInt(e.ArticleID, 10) }

// Publisher delivers share events to one sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt ShareEvent) error
}

// Result is the outcome of one publisher in a Dispatch.
type Result struct {
	PublisherID string
	Err         error
}

// Dispatcher fans a share event out to every configured publisher.
type Dispatcher struct {
	pubs []Publisher
	log  Logger
}

// NewDispatcher wraps already-built publishers.
func NewDispatcher(pubs []Publisher, log Logger) *Dispatcher {
	return &Dispatcher{pubs: pubs, log: ensureLogger(log)}
}

// Enabled reports whether any publisher is configured.
func (d *Dispatcher) Enabled() bool { return d != nil && len(d.pubs) > 0 }

// Dispatch publishes evt to every publisher in order and returns one Result per
// publisher. The error joins every failure.
func (d *Dispatcher) Dispatch(ctx context.Context, evt ShareEvent) ([]Result, error) {
	if !d.Enabled() {
		return nil, errors.New("no publishers configured")
	}
	if evt.SharedAt.IsZero() {
		evt.SharedAt = time.Now().UTC()
	}

	results := make([]Result, 0, len(d.pubs))
	var errs []error
	for _, p := range d.pubs {
		err := p.Publish(ctx, evt)
		results = append(results, Result{PublisherID: p.ID(), Err: err})
		if err != nil {
			errs = append(errs, fmt.Errorf("publisher %s: %w", p.ID(), err))
			d.log.WarnObj("share publish failed", "share_publish_error", map[string]any{
				"publisher_id": p.ID(),
				"type":         p.Type(),
				"article_id":   evt.ArticleID,
				"error":        err.Error(),
			})
			continue
		}
		d.log.InfoObj("share published", "share_published", map[string]any{
			"publisher_id": p.ID(),
			"type":         p.Type(),
			"article_id":   evt.ArticleID,
		})
	}
	return results, errors.Join(errs...)
}

package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Adda-Baaj/khobor-desk/internal/domain"
)

const (
	bucketSearches = "searches"
	bucketSocial   = "social"
	bucketFlashes  = "flashes"

	maxFlashes = 10
)

var buckets = []string{bucketSearches, bucketSocial, bucketFlashes}

// ErrNoSession is returned when a session id is blank.
var ErrNoSession = errors.New("session id is empty")

// FlashKind classifies a one-shot message.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
	FlashInfo    FlashKind = "info"
)

// Flash is a message shown once on the next rendered page.
type Flash struct {
	Kind    FlashKind `json:"kind"`
	Message string    `json:"message"`
}

// SearchState is the result list a visitor sees on the home page.
type SearchState struct {
	Keyword   string           `json:"keyword"`
	Articles  []domain.Article `json:"articles"`
	Performed bool             `json:"performed"`
	Error     string           `json:"error,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// SocialDraft is the content of an open social post modal.
type SocialDraft struct {
	ArticleID   int64     `json:"article_id"`
	Title       string    `json:"title"`
	Caption     string    `json:"caption"`
	ImageURL    string    `json:"image_url,omitempty"`
	ImagePrompt string    `json:"image_prompt,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// kv is the storage primitive the Store is built on.
// Update runs fn atomically on the current value (nil when absent); a nil result deletes the key.
type kv interface {
	Get(bucket, key string) ([]byte, error)
	Put(bucket, key string, val []byte) error
	Delete(bucket, key string) error
	Update(bucket, key string, fn func(old []byte) ([]byte, error)) error
	Sweep(bucket string, drop func(key string, val []byte) bool) (int, error)
	Close() error
}

// envelope wraps every stored value so Prune can age records without knowing their type.
type envelope struct {
	UpdatedAt time.Time       `json:"updated_at"`
	Data      json.RawMessage `json:"data"`
}

// Store keeps per-session presentation state.
type Store struct {
	kv  kv
	now func() time.Time
}

func newStore(backend kv) *Store {
	return &Store{kv: backend, now: time.Now}
}

// SaveSearch replaces the session's search state.
func (s *Store) SaveSearch(session string, st SearchState) error {
	if err := checkSession(session); err != nil {
		return err
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = s.now()
	}
	raw, err := s.wrap(st)
	if err != nil {
		return err
	}
	return s.kv.Put(bucketSearches, session, raw)
}

// LoadSearch returns the session's search state and whether one exists.
func (s *Store) LoadSearch(session string) (SearchState, bool, error) {
	var st SearchState
	ok, err := s.load(bucketSearches, session, &st)
	return st, ok, err
}

// ReplaceArticle swaps the stored copy of updated (matched by id) into the session's
// result list, keeping order and every other entry. It reports whether a stored entry
// was replaced; an absent article or session is not an error.
func (s *Store) ReplaceArticle(session string, updated domain.Article) (bool, error) {
	if err := checkSession(session); err != nil {
		return false, err
	}

	replaced := false
	err := s.kv.Update(bucketSearches, session, func(old []byte) ([]byte, error) {
		if old == nil {
			return nil, nil
		}
		var st SearchState
		if err := unwrap(old, &st); err != nil {
			return nil, err
		}
		st.Articles, replaced = domain.ReplaceByID(st.Articles, updated)
		if !replaced {
			return old, nil
		}
		st.UpdatedAt = s.now()
		return s.wrap(st)
	})
	if err != nil {
		return false, fmt.Errorf("replace article %d: %w", updated.ID, err)
	}
	return replaced, nil
}

// SaveSocialPost stores the modal draft for an article.
func (s *Store) SaveSocialPost(session string, d SocialDraft) error {
	if err := checkSession(session); err != nil {
		return err
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	raw, err := s.wrap(d)
	if err != nil {
		return err
	}
	return s.kv.Put(bucketSocial, socialKey(session, d.ArticleID), raw)
}

// LoadSocialPost returns the draft for an article, if any.
func (s *Store) LoadSocialPost(session string, articleID int64) (SocialDraft, bool, error) {
	var d SocialDraft
	if err := checkSession(session); err != nil {
		return d, false, err
	}
	ok, err := s.load(bucketSocial, socialKey(session, articleID), &d)
	return d, ok, err
}

// DeleteSocialPost drops the draft; closing the modal resets it.
func (s *Store) DeleteSocialPost(session string, articleID int64) error {
	if err := checkSession(session); err != nil {
		return err
	}
	return s.kv.Delete(bucketSocial, socialKey(session, articleID))
}

// PushFlash queues a message for the next page. Only the newest messages are kept.
func (s *Store) PushFlash(session string, f Flash) error {
	if err := checkSession(session); err != nil {
		return err
	}
	if strings.TrimSpace(f.Message) == "" {
		return nil
	}
	return s.kv.Update(bucketFlashes, session, func(old []byte) ([]byte, error) {
		var list []Flash
		if old != nil {
			if err := unwrap(old, &list); err != nil {
				return nil, err
			}
		}
		list = append(list, f)
		if len(list) > maxFlashes {
			list = list[len(list)-maxFlashes:]
		}
		return s.wrap(list)
	})
}

// PopFlashes returns and clears queued messages.
func (s *Store) PopFlashes(session string) ([]Flash, error) {
	if err := checkSession(session); err != nil {
		return nil, err
	}
	var list []Flash
	err := s.kv.Update(bucketFlashes, session, func(old []byte) ([]byte, error) {
		if old == nil {
			return nil, nil
		}
		if err := unwrap(old, &list); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return list, err
}

// Prune deletes records not updated since cutoff and returns how many were removed.
func (s *Store) Prune(cutoff time.Time) (int, error) {
	total := 0
	for _, b := range buckets {
		n, err := s.kv.Sweep(b, func(_ string, val []byte) bool {
			var env envelope
			if err := json.Unmarshal(val, &env); err != nil {
				return true
			}
			return env.UpdatedAt.Before(cutoff)
		})
		total += n
		if err != nil {
			return total, fmt.Errorf("prune %s: %w", b, err)
		}
	}
	return total, nil
}

// Close releases the underlying storage.
func (s *Store) Close() error { return s.kv.Close() }

func (s *Store) load(bucket, key string, out any) (bool, error) {
	if err := checkSession(key); err != nil {
		return false, err
	}
	raw, err := s.kv.Get(bucket, key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", bucket, err)
	}
	if raw == nil {
		return false, nil
	}
	if err := unwrap(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) wrap(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return json.Marshal(envelope{UpdatedAt: s.now(), Data: data})
}

func unwrap(raw []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode state envelope: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	return nil
}

func checkSession(session string) error {
	if strings.TrimSpace(session) == "" {
		return ErrNoSession
	}
	return nil
}

func socialKey(session string, articleID int64) string {
	return session + "/" + strconv.FormatInt(articleID, 10)
}

package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/khobor-desk/internal/domain"
)

// stores runs fn against every backend.
func stores(t *testing.T, fn func(t *testing.T, s *Store)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		s := NewMemory()
		defer s.Close()
		fn(t, s)
	})
	t.Run("bolt", func(t *testing.T) {
		t.Parallel()
		s, err := OpenBolt(filepath.Join(t.TempDir(), "nested", "state.db"))
		require.NoError(t, err)
		defer s.Close()
		fn(t, s)
	})
}

func sampleSearch() SearchState {
	return SearchState{
		Keyword:   "india",
		Performed: true,
		Articles: []domain.Article{
			{ID: 1, Title: "one"},
			{ID: 2, Title: "two"},
			{ID: 3, Title: "three"},
		},
	}
}

func TestSearchRoundTrip(t *testing.T) {
	stores(t, func(t *testing.T, s *Store) {
		_, ok, err := s.LoadSearch("sess")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.SaveSearch("sess", sampleSearch()))

		got, ok, err := s.LoadSearch("sess")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "india", got.Keyword)
		assert.Len(t, got.Articles, 3)
		assert.False(t, got.UpdatedAt.IsZero())

		_, ok, err = s.LoadSearch("other")
		require.NoError(t, err)
		assert.False(t, ok, "sessions are isolated")
	})
}

func TestReplaceArticleKeepsListOrder(t *testing.T) {
	stores(t, func(t *testing.T, s *Store) {
		require.NoError(t, s.SaveSearch("sess", sampleSearch()))

		updated := domain.Article{ID: 2, Title: "two", AISummary: "summary", AITags: []string{"x"}}
		replaced, err := s.ReplaceArticle("sess", updated)
		require.NoError(t, err)
		assert.True(t, replaced)

		got, _, err := s.LoadSearch("sess")
		require.NoError(t, err)
		require.Len(t, got.Articles, 3)
		assert.Equal(t, int64(1), got.Articles[0].ID)
		assert.Equal(t, "summary", got.Articles[1].AISummary)
		assert.Equal(t, int64(3), got.Articles[2].ID)
		assert.Equal(t, "india", got.Keyword)

		replaced, err = s.ReplaceArticle("sess", domain.Article{ID: 99})
		require.NoError(t, err)
		assert.False(t, replaced)

		replaced, err = s.ReplaceArticle("nobody", updated)
		require.NoError(t, err)
		assert.False(t, replaced)
		_, ok, err := s.LoadSearch("nobody")
		require.NoError(t, err)
		assert.False(t, ok, "replace must not create state")
	})
}

func TestSocialDrafts(t *testing.T) {
	stores(t, func(t *testing.T, s *Store) {
		draft := SocialDraft{ArticleID: 7, Title: "t", Caption: "cap"}
		require.NoError(t, s.SaveSocialPost("sess", draft))

		got, ok, err := s.LoadSocialPost("sess", 7)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "cap", got.Caption)

		_, ok, err = s.LoadSocialPost("sess", 8)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.DeleteSocialPost("sess", 7))
		_, ok, err = s.LoadSocialPost("sess", 7)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestFlashesPopOnce(t *testing.T) {
	stores(t, func(t *testing.T, s *Store) {
		require.NoError(t, s.PushFlash("sess", Flash{Kind: FlashSuccess, Message: "done"}))
		require.NoError(t, s.PushFlash("sess", Flash{Kind: FlashError, Message: "  "}))
		require.NoError(t, s.PushFlash("sess", Flash{Kind: FlashError, Message: "oops"}))

		got, err := s.PopFlashes("sess")
		require.NoError(t, err)
		assert.Equal(t, []Flash{{Kind: FlashSuccess, Message: "done"}, {Kind: FlashError, Message: "oops"}}, got)

		got, err = s.PopFlashes("sess")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestFlashesAreCapped(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	for i := range maxFlashes + 5 {
		require.NoError(t, s.PushFlash("sess", Flash{Kind: FlashInfo, Message: string(rune('a' + i))}))
	}
	got, err := s.PopFlashes("sess")
	require.NoError(t, err)
	assert.Len(t, got, maxFlashes)
	assert.Equal(t, "f", got[0].Message)
}

func TestPrune(t *testing.T) {
	stores(t, func(t *testing.T, s *Store) {
		base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
		s.now = func() time.Time { return base }
		require.NoError(t, s.SaveSearch("old", sampleSearch()))
		require.NoError(t, s.PushFlash("old", Flash{Kind: FlashInfo, Message: "hi"}))

		s.now = func() time.Time { return base.Add(48 * time.Hour) }
		require.NoError(t, s.SaveSearch("fresh", sampleSearch()))

		n, err := s.Prune(base.Add(24 * time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, ok, err := s.LoadSearch("old")
		require.NoError(t, err)
		assert.False(t, ok)
		_, ok, err = s.LoadSearch("fresh")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestEmptySession(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	assert.ErrorIs(t, s.SaveSearch(" ", SearchState{}), ErrNoSession)
	_, _, err := s.LoadSearch("")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = s.PopFlashes("")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.db")
	s, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveSearch("sess", sampleSearch()))
	require.NoError(t, s.Close())

	s, err = OpenBolt(path)
	require.NoError(t, err)
	defer s.Close()
	got, ok, err := s.LoadSearch("sess")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, got.Articles, 3)
}

package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSendsHeaders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		assert.Contains(t, r.Header.Get("User-Agent"), "khobor-desk")
		_, _ = w.Write([]byte("pong"))
	}))
	defer srv.Close()

	c := NewRestyClient(time.Second)
	resp, err := c.Get(context.Background(), srv.URL, map[string]string{"X-Test": "yes"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "pong", string(resp.Body()))
}

func TestDoEncodesJSONBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		raw, _ := io.ReadAll(r.Body)
		var got map[string]any
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "india", got["keyword"])
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewRestyClient(time.Second)
	resp, err := c.Do(context.Background(), "post", srv.URL, nil, map[string]any{"keyword": "india"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode())
}

func TestRetryOnServerError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewRestyClient(time.Second, WithRetry(3, time.Millisecond))
	resp, err := c.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.EqualValues(t, 3, calls.Load())
}

func TestTransportErrorIsWrapped(t *testing.T) {
	t.Parallel()

	c := NewRestyClient(200 * time.Millisecond)
	_, err := c.Get(context.Background(), "http://127.0.0.1:1/unreachable", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GET http://127.0.0.1:1/unreachable")
}

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsdesk/internal/model"
	"newsdesk/internal/session"
)

func newTestStore(t *testing.T) *session.BadgerStore {
	t.Helper()
	store, err := session.NewInMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestClient(t *testing.T, baseURL string, store session.Store) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL}, store)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	store := newTestStore(t)

	_, err := New(Config{BaseURL: "not a url"}, store)
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "ftp://example.com"}, store)
	assert.Error(t, err)
}

func TestLogin_StoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "admin", creds["username"])
		assert.Equal(t, "secret", creds["password"])

		json.NewEncoder(w).Encode(map[string]string{"access_token": "abc123"})
	}))
	defer srv.Close()

	store := newTestStore(t)
	c := newTestClient(t, srv.URL, store)

	err := c.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)

	token, err := store.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
}

func TestLogin_RejectedStatusKeepsOldToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A JSON body on a 401 must not be mistaken for success.
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"access_token": "stolen"})
	}))
	defer srv.Close()

	store := newTestStore(t)
	require.NoError(t, store.SetToken(context.Background(), "old-token"))

	c := newTestClient(t, srv.URL, store)
	err := c.Login(context.Background(), "admin", "wrong")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)

	token, err := store.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "old-token", token, "failed login must not disturb the stored token")
}

func TestLogin_MalformedBodyKeepsOldToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	store := newTestStore(t)
	require.NoError(t, store.SetToken(context.Background(), "old-token"))

	c := newTestClient(t, srv.URL, store)
	err := c.Login(context.Background(), "admin", "secret")

	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)

	token, err := store.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "old-token", token)
}

func TestLogout_ClearsToken(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SetToken(context.Background(), "abc123"))

	c := newTestClient(t, "http://localhost:1", store)
	require.NoError(t, c.Logout(context.Background()))

	_, err := store.Token(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestArticles_DecodesList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/articles", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"), "list must not send auth")

		json.NewEncoder(w).Encode([]map[string]string{
			{"id": "a1", "title": "First", "url": "https://example.com/1", "status": "published"},
			{"id": "a2", "title": "Second", "url": "https://example.com/2", "status": "published"},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, newTestStore(t))
	articles, err := c.Articles(context.Background())

	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "a1", articles[0].ID)
	assert.Equal(t, "First", articles[0].Title)
	assert.Equal(t, model.StatusPublished, articles[0].Status)
}

func TestArticles_FailureIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{broken"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, newTestStore(t))
	articles, err := c.Articles(context.Background())

	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
	assert.Nil(t, articles)
}

func TestCreate_WithoutTokenNeverHitsNetwork(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, newTestStore(t))
	err := c.Create(context.Background(), model.ArticleDraft{
		Title:  "Hello",
		URL:    "https://example.com",
		Status: model.StatusUnpublished,
	})

	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, int64(0), requests.Load(), "unauthenticated create must not issue a request")
}

func TestUpdate_WithoutTokenNeverHitsNetwork(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, newTestStore(t))
	err := c.Update(context.Background(), "a1", model.ArticleDraft{
		Title:  "Hello",
		URL:    "https://example.com",
		Status: model.StatusUnpublished,
	})

	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, int64(0), requests.Load())
}

func TestCreate_SendsBearerAndNullSchedule(t *testing.T) {
	when := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/articles", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	store := newTestStore(t)
	require.NoError(t, store.SetToken(context.Background(), "abc123"))

	c := newTestClient(t, srv.URL, store)
	err := c.Create(context.Background(), model.ArticleDraft{
		Title:     "Hello",
		URL:       "https://example.com",
		Status:    model.StatusUnpublished,
		PublishAt: &when, // must be dropped for an unpublished draft
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer abc123", gotAuth)
	assert.Equal(t, "Hello", gotBody["title"])
	assert.Equal(t, "https://example.com", gotBody["url"])
	assert.Equal(t, "unpublished", gotBody["status"])

	v, ok := gotBody["publish_at"]
	assert.True(t, ok, "publish_at key must be present")
	assert.Nil(t, v, "publish_at must be null for an unpublished draft")
}

func TestUpdate_NonexistentIDReportsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/articles/missing", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	store := newTestStore(t)
	require.NoError(t, store.SetToken(context.Background(), "abc123"))

	c := newTestClient(t, srv.URL, store)
	err := c.Update(context.Background(), "missing", model.ArticleDraft{
		Title:  "Hello",
		URL:    "https://example.com",
		Status: model.StatusPublished,
	})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestSetStatus_TargetsStatusEndpoint(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
	}))
	defer srv.Close()

	store := newTestStore(t)
	require.NoError(t, store.SetToken(context.Background(), "abc123"))

	c := newTestClient(t, srv.URL, store)
	err := c.SetStatus(context.Background(), "a1", model.StatusPublished)

	require.NoError(t, err)
	assert.Equal(t, "/articles/a1/status", gotPath)
	assert.Equal(t, "published", gotBody["status"])
}

func TestTransportError_NoRetryByDefault(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	// Close immediately so every request fails at the transport level.
	srv.Close()

	c := newTestClient(t, srv.URL, newTestStore(t))
	_, err := c.Articles(context.Background())

	var transportErr *TransportError
	assert.ErrorAs(t, err, &transportErr)
	assert.Equal(t, int64(0), requests.Load())
}

func TestTransportError_RetriesConfiguredCount(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if requests.Load() < 3 {
			// Hijack and drop the connection to force a transport error.
			conn, _, err := w.(http.Hijacker).Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		json.NewEncoder(w).Encode([]map[string]string{})
	}))
	defer srv.Close()

	store := newTestStore(t)
	c, err := New(Config{BaseURL: srv.URL, Retries: 2}, store)
	require.NoError(t, err)

	articles, err := c.Articles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, articles)
	assert.Equal(t, int64(3), requests.Load())
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudsync/cloudsync/internal/model"
	"github.com/cloudsync/cloudsync/internal/session"
)

func newTestStore(t *testing.T, sess *model.Session) *session.Store {
	t.Helper()
	s, err := session.NewStore(keyring.NewArrayKeyring(nil))
	require.NoError(t, err)
	if sess != nil {
		require.NoError(t, s.Save(*sess))
	}
	return s
}

func newTestClient(t *testing.T, serverURL string, sess *model.Session) (*Client, *session.Store) {
	t.Helper()
	store := newTestStore(t, sess)
	client := NewClient(model.ServerConfig{
		BaseURL:             serverURL,
		StorageInternalHost: "http://minio:9000",
		StoragePublicHost:   "http://localhost:9000",
	}, store)
	return client, store
}

func storedSession() *model.Session {
	return &model.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		UserID:       "u1",
		Email:        "user@example.com",
	}
}

func TestGetAttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL, storedSession())

	var result map[string]bool
	require.NoError(t, client.Get(context.Background(), "/api/v1/files", &result))
	assert.Equal(t, "Bearer access-1", gotAuth)
	assert.True(t, result["ok"])
}

func TestAnonymousRequestHasNoAuthHeader(t *testing.T) {
	var hadAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL, nil)

	require.NoError(t, client.Post(context.Background(), "/api/v1/auth/login", map[string]string{"email": "a@b.c"}, nil))
	assert.False(t, hadAuth)
}

func TestExpiredTokenRefreshedAndRetriedOnce(t *testing.T) {
	var refreshCalls, resourceCalls atomic.Int32
	var retryAuth string

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh-1", body["refreshToken"])
		json.NewEncoder(w).Encode(map[string]any{
			"accessToken":  "access-2",
			"refreshToken": "refresh-2",
			"userId":       "u1",
		})
	})
	mux.HandleFunc("/api/v1/files", func(w http.ResponseWriter, r *http.Request) {
		if resourceCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		retryAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok": true}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, store := newTestClient(t, srv.URL, storedSession())

	var result map[string]bool
	require.NoError(t, client.Get(context.Background(), "/api/v1/files", &result))

	assert.True(t, result["ok"])
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, int32(2), resourceCalls.Load())
	assert.Equal(t, "Bearer access-2", retryAuth)
	assert.Equal(t, "access-2", store.AccessToken())
	assert.Equal(t, "refresh-2", store.RefreshToken())
}

func TestSecondUnauthorizedPropagatesWithoutAnotherRefresh(t *testing.T) {
	var refreshCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"accessToken":  "access-2",
			"refreshToken": "refresh-2",
		})
	})
	mux.HandleFunc("/api/v1/files", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "still no"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL, storedSession())

	err := client.Get(context.Background(), "/api/v1/files", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), refreshCalls.Load(), "retry failure must not trigger a second refresh")

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "still no", apiErr.Message)
}

func TestRefreshFailureClearsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "refresh token revoked"}`))
	})
	mux.HandleFunc("/api/v1/files", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, store := newTestClient(t, srv.URL, storedSession())

	err := client.Get(context.Background(), "/api/v1/files", nil)
	require.Error(t, err)
	assert.True(t, IsSessionExpired(err))

	_, ok := store.Current()
	assert.False(t, ok, "failed refresh must clear the stored session")
	assert.Empty(t, store.AccessToken())
}

func TestUnauthorizedLoginIsNotRefreshed(t *testing.T) {
	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
	})
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "bad credentials"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL, storedSession())

	err := client.Post(context.Background(), "/api/v1/auth/login", map[string]string{}, nil)
	require.Error(t, err)
	assert.False(t, IsSessionExpired(err))
	assert.Equal(t, int32(0), refreshCalls.Load())
}

func TestUnauthorizedWithoutRefreshTokenIsPlainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL, nil)

	err := client.Get(context.Background(), "/api/v1/files", nil)
	require.Error(t, err)
	assert.False(t, IsSessionExpired(err))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
}

func TestErrorMessageParsing(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "message field", status: 400, body: `{"message": "bad request body"}`, wantMsg: "bad request body"},
		{name: "error field", status: 409, body: `{"error": "name already taken"}`, wantMsg: "name already taken"},
		{name: "empty body falls back to status text", status: 500, body: "", wantMsg: "Internal Server Error"},
		{name: "non-JSON body falls back to status text", status: 502, body: "<html>oops</html>", wantMsg: "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, _ := newTestClient(t, srv.URL, storedSession())

			err := client.Get(context.Background(), "/api/v1/whatever", nil)
			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestResponseURLsRewrittenToPublicHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"url": "http://minio:9000/bucket/file?sig=abc", "expiresInSec": 900}`))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL, storedSession())

	presigned, err := client.GetDownloadURL(context.Background(), "f1", 0)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/bucket/file?sig=abc", presigned.URL)
}

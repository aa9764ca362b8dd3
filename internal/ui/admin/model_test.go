package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/99designs/keyring"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudsync/cloudsync/internal/api"
	"github.com/cloudsync/cloudsync/internal/keys"
	"github.com/cloudsync/cloudsync/internal/model"
	"github.com/cloudsync/cloudsync/internal/session"
	"github.com/cloudsync/cloudsync/internal/ui"
)

func newTestModel(t *testing.T, handler http.Handler) Model {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sessions, err := session.NewStore(keyring.NewArrayKeyring(nil))
	require.NoError(t, err)
	require.NoError(t, sessions.Save(model.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		UserID:       "u1",
		Roles:        []string{"ADMIN"},
	}))
	client := api.NewClient(model.ServerConfig{BaseURL: srv.URL}, sessions)
	return New(client, keys.Default(), 80, 24)
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func userPage() string {
	return `{"users": [
		{"id": "u2", "email": "kim@example.com", "name": "Kim", "plan": "free",
		 "blocked": false, "storageQuota": 1073741824}
	], "total": 1}`
}

func TestLoadListsUsers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/admin/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("pageSize"))
		w.Write([]byte(userPage()))
	})

	m := newTestModel(t, mux)
	loaded, _ := m.load()().(UsersLoadedMsg)
	require.NoError(t, loaded.Err)

	next, _ := m.Update(loaded)
	require.Len(t, next.list.Items(), 1)
	assert.Contains(t, next.View(), "kim@example.com")
}

func TestBlockTogglesByCurrentState(t *testing.T) {
	var blockedBody map[string]string
	var unblocked bool
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/admin/users", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(userPage()))
	})
	mux.HandleFunc("/api/v1/admin/users/u2/block", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&blockedBody))
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/api/v1/admin/users/u2/unblock", func(w http.ResponseWriter, r *http.Request) {
		unblocked = true
		w.Write([]byte(`{}`))
	})

	m := newTestModel(t, mux)
	loaded, _ := m.load()().(UsersLoadedMsg)
	m, _ = m.Update(loaded)

	_, cmd := m.Update(keyRune('b'))
	require.NotNil(t, cmd)
	done, ok := cmd().(actionDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	assert.NotEmpty(t, blockedBody["reason"])
	assert.False(t, unblocked)

	blockedUser := model.AdminUser{ID: "u2", Email: "kim@example.com", Blocked: true}
	msg := m.toggleBlock(blockedUser)()
	done, ok = msg.(actionDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	assert.True(t, unblocked)
}

func TestQuotaAdjustmentNeverGoesNegative(t *testing.T) {
	var gotQuota int64 = -1
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/admin/users/u2/quota", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]int64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotQuota = body["newQuota"]
		w.Write([]byte(`{}`))
	})

	m := newTestModel(t, mux)
	user := model.AdminUser{ID: "u2", StorageQuota: 100}

	msg := m.adjustQuota(user, -quotaStep)()
	done, ok := msg.(actionDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	assert.Equal(t, int64(0), gotQuota)
}

func TestStatsCombineSystemAndStorage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/admin/statistics/system", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalUsers": 12, "activeUsers": 3, "totalFiles": 400, "totalStorage": 1073741824}`))
	})
	mux.HandleFunc("/api/v1/admin/statistics/storage", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"node-a": {"used": 1}, "node-b": {"used": 2}}`))
	})

	m := newTestModel(t, mux)

	msg := m.fetchStats()()
	stats, ok := msg.(statsMsg)
	require.True(t, ok)
	require.NoError(t, stats.err)

	next, _ := m.Update(stats)
	assert.Contains(t, next.statusMsg, "12 users (3 active)")
	assert.Contains(t, next.statusMsg, "storage nodes: 2")
}

func TestExpiredSessionOnLoadRoutesToLogin(t *testing.T) {
	m := New(nil, keys.Default(), 80, 24)

	_, cmd := m.Update(UsersLoadedMsg{Err: &api.SessionExpiredError{Err: errors.New("gone")}})
	require.NotNil(t, cmd)
	assert.IsType(t, ui.SessionExpiredMsg{}, cmd())
}

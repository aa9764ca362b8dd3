package sync

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/99designs/keyring"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudsync/cloudsync/internal/api"
	"github.com/cloudsync/cloudsync/internal/model"
	"github.com/cloudsync/cloudsync/internal/session"
)

func newTestPoller(t *testing.T, handler http.Handler) *Poller {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store, err := session.NewStore(keyring.NewArrayKeyring(nil))
	require.NoError(t, err)
	require.NoError(t, store.Save(model.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		UserID:       "u1",
	}))

	client := api.NewClient(model.ServerConfig{BaseURL: srv.URL}, store)
	return New(client, model.PollConfig{QuotaIntervalSec: 3600, UnreadIntervalSec: 3600})
}

func collect(t *testing.T, p *Poller, first tea.Cmd, n int) []tea.Msg {
	t.Helper()
	msgs := make([]tea.Msg, 0, n)
	cmd := first
	for len(msgs) < n {
		done := make(chan tea.Msg, 1)
		go func(c tea.Cmd) { done <- c() }(cmd)
		select {
		case msg := <-done:
			msgs = append(msgs, msg)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d poll results", len(msgs), n)
		}
		cmd = p.WaitForNextResult()
	}
	return msgs
}

func TestPollerFetchesQuotaAndUnread(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users/me/quota", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hasSpace": true, "storageUsed": 100, "storageQuota": 1000}`))
	})
	mux.HandleFunc("/api/v1/notifications/unread-count", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count": 4}`))
	})

	p := newTestPoller(t, mux)
	first := p.Start()
	defer p.Stop()

	msgs := collect(t, p, first, 2)

	var gotQuota, gotUnread bool
	for _, msg := range msgs {
		switch m := msg.(type) {
		case QuotaMsg:
			gotQuota = true
			require.NoError(t, m.Err)
			assert.Equal(t, int64(100), m.Quota.StorageUsed)
			assert.Equal(t, int64(1000), m.Quota.StorageQuota)
		case UnreadCountMsg:
			gotUnread = true
			require.NoError(t, m.Err)
			assert.Equal(t, 4, m.Count)
		default:
			t.Fatalf("unexpected message %T", msg)
		}
	}
	assert.True(t, gotQuota)
	assert.True(t, gotUnread)
}

func TestPollerReportsSessionExpiry(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	p := newTestPoller(t, mux)
	first := p.Start()
	defer p.Stop()

	msgs := collect(t, p, first, 2)

	expired := 0
	for _, msg := range msgs {
		if _, ok := msg.(SessionExpiredMsg); ok {
			expired++
		}
	}
	assert.Greater(t, expired, 0, "expired session must surface as SessionExpiredMsg")
}

func TestRefreshUnreadTriggersImmediateFetch(t *testing.T) {
	var unreadCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users/me/quota", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/api/v1/notifications/unread-count", func(w http.ResponseWriter, r *http.Request) {
		unreadCalls.Add(1)
		w.Write([]byte(`{"count": 1}`))
	})

	p := newTestPoller(t, mux)
	first := p.Start()
	defer p.Stop()

	// Drain the two initial fetches, then ask for an immediate recount.
	collect(t, p, first, 2)
	p.RefreshUnread()

	require.Eventually(t, func() bool {
		return unreadCalls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRefreshAllTriggersEveryTask(t *testing.T) {
	var quotaCalls, unreadCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users/me/quota", func(w http.ResponseWriter, r *http.Request) {
		quotaCalls.Add(1)
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/api/v1/notifications/unread-count", func(w http.ResponseWriter, r *http.Request) {
		unreadCalls.Add(1)
		w.Write([]byte(`{"count": 0}`))
	})

	p := newTestPoller(t, mux)
	first := p.Start()
	defer p.Stop()

	collect(t, p, first, 2)
	p.RefreshAll()

	require.Eventually(t, func() bool {
		return quotaCalls.Load() >= 2 && unreadCalls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStopReleasesPendingWaiter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	p := newTestPoller(t, mux)
	first := p.Start()
	collect(t, p, first, 2)

	done := make(chan tea.Msg, 1)
	go func() { done <- p.WaitForNextResult()() }()
	p.Stop()

	select {
	case msg := <-done:
		assert.Nil(t, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter still blocked after Stop")
	}
}

func TestStartWhileRunningIsNoOp(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	p := newTestPoller(t, mux)
	first := p.Start()
	defer p.Stop()

	assert.Nil(t, p.Start())
	collect(t, p, first, 2)
}

func TestStopThenStartRestartsPolling(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{}`))
	})

	p := newTestPoller(t, mux)
	collect(t, p, p.Start(), 2)
	p.Stop()

	first := calls.Load()
	collect(t, p, p.Start(), 2)
	defer p.Stop()

	assert.GreaterOrEqual(t, calls.Load(), first+2)
}

package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cloudsync/cloudsync/internal/api"
	"github.com/cloudsync/cloudsync/internal/model"
)

// QuotaMsg is a tea.Msg carrying a fresh storage quota reading.
type QuotaMsg struct {
	Quota model.Quota
	Err   error
}

// UnreadCountMsg is a tea.Msg carrying the authoritative unread
// notification count.
type UnreadCountMsg struct {
	Count int
	Err   error
}

// SessionExpiredMsg is a tea.Msg sent when a poll failed because the
// session could not be refreshed; the UI must route back to login.
type SessionExpiredMsg struct{}

// fetchTimeout is the maximum time allowed for a single poll request.
const fetchTimeout = 30 * time.Second

// task is one periodic poll. Each task owns its trigger channel so a
// manual trigger for one task can never be consumed and dropped by
// another task's goroutine.
type task struct {
	name     string
	interval time.Duration
	fetch    func(ctx context.Context) tea.Msg
	trigger  chan struct{}
}

// Poller runs the timer-driven background fetches (storage quota, unread
// notification count) that keep the sidebar and topbar current between
// pushed events. Each task runs on its own goroutine; results reach the
// Bubble Tea runtime through a buffered channel drained by a tea.Cmd.
type Poller struct {
	client *api.Client
	tasks  []task

	mu       gosync.Mutex
	resultCh chan tea.Msg
	stopCh   chan struct{}
	running  bool
}

// New creates a Poller for the given API client and poll intervals.
func New(client *api.Client, cfg model.PollConfig) *Poller {
	p := &Poller{
		client:   client,
		resultCh: make(chan tea.Msg, 16),
		stopCh:   make(chan struct{}),
	}

	quotaInterval := time.Duration(cfg.QuotaIntervalSec) * time.Second
	if quotaInterval <= 0 {
		quotaInterval = 30 * time.Second
	}
	unreadInterval := time.Duration(cfg.UnreadIntervalSec) * time.Second
	if unreadInterval <= 0 {
		unreadInterval = 60 * time.Second
	}

	p.tasks = []task{
		{name: "quota", interval: quotaInterval, fetch: p.fetchQuota, trigger: make(chan struct{}, 1)},
		{name: "unread", interval: unreadInterval, fetch: p.fetchUnread, trigger: make(chan struct{}, 1)},
	}
	return p
}

// Start launches the polling goroutines and returns the command that
// waits for their first result. Calling Start on a running poller is a
// no-op.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stop := p.stopCh
	p.mu.Unlock()

	for _, t := range p.tasks {
		go p.poll(t, stop)
	}

	return p.waitForResult()
}

// Stop halts all polling goroutines and their timers and releases any
// command still waiting on a result. Required on view teardown and
// logout so no timer leaks and no state update fires after the owning
// view is gone.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	close(p.resultCh)
	p.resultCh = make(chan tea.Msg, 16)
	p.running = false
}

// RefreshAll triggers an immediate run of every task.
func (p *Poller) RefreshAll() {
	for _, t := range p.tasks {
		select {
		case t.trigger <- struct{}{}:
		default:
			// A trigger is already pending
		}
	}
}

// RefreshUnread triggers an immediate unread-count fetch, used when a
// pushed control event asks for an authoritative recount.
func (p *Poller) RefreshUnread() {
	for _, t := range p.tasks {
		if t.name != "unread" {
			continue
		}
		select {
		case t.trigger <- struct{}{}:
		default:
		}
	}
}

// poll runs the loop for a single task until stop is closed.
func (p *Poller) poll(t task, stop <-chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	p.runOnce(t)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.runOnce(t)
		case <-t.trigger:
			p.runOnce(t)
		}
	}
}

// runOnce performs a single fetch and sends its result without blocking.
func (p *Poller) runOnce(t task) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	p.send(t.fetch(ctx))
}

func (p *Poller) fetchQuota(ctx context.Context) tea.Msg {
	quota, err := p.client.CheckQuota(ctx, 0)
	if api.IsSessionExpired(err) {
		return SessionExpiredMsg{}
	}
	return QuotaMsg{Quota: quota, Err: err}
}

func (p *Poller) fetchUnread(ctx context.Context) tea.Msg {
	count, err := p.client.GetUnreadCount(ctx)
	if api.IsSessionExpired(err) {
		return SessionExpiredMsg{}
	}
	return UnreadCountMsg{Count: count, Err: err}
}

// send sends a message on the result channel without blocking. Results
// produced after Stop are dropped.
func (p *Poller) send(msg tea.Msg) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// waitForResult returns a tea.Cmd that waits for the next poll result.
// The command resolves to nil once the poller is stopped.
func (p *Poller) waitForResult() tea.Cmd {
	p.mu.Lock()
	ch := p.resultCh
	p.mu.Unlock()

	return func() tea.Msg {
		result, ok := <-ch
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poll
// result. Call after processing a result to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}

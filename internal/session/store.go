package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"

	"github.com/cloudsync/cloudsync/internal/model"
)

// Keyring item keys. The three keys form an atomic set: no completed
// operation leaves only one or two of them present.
const (
	keyAccessToken  = "accessToken"
	keyRefreshToken = "refreshToken"
	keyUser         = "user"
)

// ErrNoSession is returned when an operation requires stored credentials
// and none are present.
var ErrNoSession = errors.New("no stored session")

// RefreshFunc performs the actual token refresh against the backend,
// exchanging a refresh token for a new session. Supplied by the API layer
// so the store stays transport-agnostic.
type RefreshFunc func(ctx context.Context, refreshToken string) (model.Session, error)

// refreshCall is a single in-flight refresh shared by all concurrent
// callers of Refresh.
type refreshCall struct {
	done chan struct{}
	sess model.Session
	err  error
}

// Store is the process-wide owner of the current session. It keeps an
// authoritative in-memory copy guarded by a mutex and writes through to
// the system keyring. Refreshes are single-flight: concurrent 401 handlers
// share one refresh instead of each invalidating the other's token.
type Store struct {
	ring keyring.Keyring

	mu      sync.Mutex
	current *model.Session
	// userRecord is the persisted user object. It may carry fields beyond
	// the Session profile (written by other parts of the client); refresh
	// merges the new profile in without dropping them.
	userRecord map[string]any

	flightMu sync.Mutex
	inflight *refreshCall
}

// NewStore creates a Store backed by the given keyring and restores any
// previously persisted session. A partial persisted set (tokens without a
// user record, or vice versa) is treated as corrupt and cleared.
func NewStore(ring keyring.Keyring) (*Store, error) {
	s := &Store{ring: ring}

	access, errA := getItem(ring, keyAccessToken)
	refresh, errR := getItem(ring, keyRefreshToken)
	userJSON, errU := getItem(ring, keyUser)

	if errA != nil || errR != nil || errU != nil || access == "" || refresh == "" {
		// Nothing stored, or a partial set left by an interrupted write.
		if errA == nil || errR == nil || errU == nil {
			_ = s.Clear()
		}
		return s, nil
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(userJSON), &record); err != nil {
		_ = s.Clear()
		return s, nil
	}

	sess := sessionFromRecord(record)
	sess.AccessToken = access
	sess.RefreshToken = refresh

	s.current = &sess
	s.userRecord = record
	return s, nil
}

// Current returns a copy of the stored session, and whether one exists.
func (s *Store) Current() (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return model.Session{}, false
	}
	return *s.current, true
}

// AccessToken returns the stored access token, or "" when unauthenticated.
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.AccessToken
}

// RefreshToken returns the stored refresh token, or "" when unauthenticated.
func (s *Store) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.RefreshToken
}

// Save replaces the stored session with sess, writing all three keyring
// items. Used on login and register, where the server response is the
// complete user record.
func (s *Store) Save(sess model.Session) error {
	record := recordFromSession(sess)
	return s.commit(sess, record)
}

// Clear removes the session from memory and all three items from the
// keyring. Removal errors for individual items are ignored so a missing
// item can never block clearing the rest of the set.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.current = nil
	s.userRecord = nil
	s.mu.Unlock()

	for _, key := range []string{keyAccessToken, keyRefreshToken, keyUser} {
		if err := s.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
			// Keep going; the remaining keys must still be removed.
			continue
		}
	}
	return nil
}

// Refresh exchanges the stored refresh token for new credentials via do.
// Concurrent callers share a single in-flight exchange and all observe its
// outcome. On success the new tokens are committed and the refreshed
// profile is merged into the persisted user record; on failure the store
// is cleared entirely and the caller must re-authenticate.
func (s *Store) Refresh(ctx context.Context, do RefreshFunc) (model.Session, error) {
	s.flightMu.Lock()
	if c := s.inflight; c != nil {
		s.flightMu.Unlock()
		select {
		case <-c.done:
			return c.sess, c.err
		case <-ctx.Done():
			return model.Session{}, ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	s.inflight = call
	s.flightMu.Unlock()

	call.sess, call.err = s.refresh(ctx, do)
	close(call.done)

	s.flightMu.Lock()
	s.inflight = nil
	s.flightMu.Unlock()

	return call.sess, call.err
}

// refresh performs the exchange and commits or clears the store.
func (s *Store) refresh(ctx context.Context, do RefreshFunc) (model.Session, error) {
	refreshToken := s.RefreshToken()
	if refreshToken == "" {
		return model.Session{}, ErrNoSession
	}

	sess, err := do(ctx, refreshToken)
	if err != nil {
		_ = s.Clear()
		return model.Session{}, err
	}

	s.mu.Lock()
	record := mergeProfile(s.userRecord, sess)
	s.mu.Unlock()

	if err := s.commit(sess, record); err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

// commit writes the session and user record through to the keyring and
// then installs them as the in-memory state. Both tokens and the user
// record are always written together.
func (s *Store) commit(sess model.Session, record map[string]any) error {
	userJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding user record: %w", err)
	}

	items := []keyring.Item{
		{Key: keyAccessToken, Data: []byte(sess.AccessToken)},
		{Key: keyRefreshToken, Data: []byte(sess.RefreshToken)},
		{Key: keyUser, Data: userJSON},
	}
	for _, item := range items {
		if err := s.ring.Set(item); err != nil {
			return fmt.Errorf("storing credential %q: %w", item.Key, err)
		}
	}

	s.mu.Lock()
	copied := sess
	s.current = &copied
	s.userRecord = record
	s.mu.Unlock()
	return nil
}

// getItem reads a single keyring item as a string.
func getItem(ring keyring.Keyring, key string) (string, error) {
	item, err := ring.Get(key)
	if err != nil {
		return "", err
	}
	return string(item.Data), nil
}

// recordFromSession builds a fresh user record from a full session payload.
func recordFromSession(sess model.Session) map[string]any {
	roles := make([]any, len(sess.Roles))
	for i, r := range sess.Roles {
		roles[i] = r
	}
	return map[string]any{
		"userId":    sess.UserID,
		"email":     sess.Email,
		"name":      sess.Name,
		"roles":     roles,
		"tokenType": sess.TokenType,
	}
}

// mergeProfile overlays the refreshed profile fields onto the existing
// user record, preserving any other fields the record carries.
func mergeProfile(existing map[string]any, sess model.Session) map[string]any {
	merged := make(map[string]any, len(existing)+5)
	for k, v := range existing {
		merged[k] = v
	}
	fresh := recordFromSession(sess)
	for k, v := range fresh {
		merged[k] = v
	}
	return merged
}

// sessionFromRecord extracts the Session profile fields from a persisted
// user record.
func sessionFromRecord(record map[string]any) model.Session {
	sess := model.Session{}
	if v, ok := record["userId"].(string); ok {
		sess.UserID = v
	}
	if v, ok := record["email"].(string); ok {
		sess.Email = v
	}
	if v, ok := record["name"].(string); ok {
		sess.Name = v
	}
	if v, ok := record["tokenType"].(string); ok {
		sess.TokenType = v
	}
	if roles, ok := record["roles"].([]any); ok {
		for _, r := range roles {
			if role, ok := r.(string); ok {
				sess.Roles = append(sess.Roles, role)
			}
		}
	}
	return sess
}

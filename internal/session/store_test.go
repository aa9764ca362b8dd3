package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudsync/cloudsync/internal/model"
)

func testSession() model.Session {
	return model.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		UserID:       "u1",
		Email:        "user@example.com",
		Name:         "Test User",
		Roles:        []string{"user"},
	}
}

func TestNewStoreEmptyKeyring(t *testing.T) {
	s, err := NewStore(keyring.NewArrayKeyring(nil))
	require.NoError(t, err)

	_, ok := s.Current()
	assert.False(t, ok)
	assert.Empty(t, s.AccessToken())
	assert.Empty(t, s.RefreshToken())
}

func TestSaveAndRestore(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)

	s, err := NewStore(ring)
	require.NoError(t, err)
	require.NoError(t, s.Save(testSession()))

	// A new store over the same keyring restores the full session.
	restored, err := NewStore(ring)
	require.NoError(t, err)

	sess, ok := restored.Current()
	require.True(t, ok)
	assert.Equal(t, "access-1", sess.AccessToken)
	assert.Equal(t, "refresh-1", sess.RefreshToken)
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, "user@example.com", sess.Email)
	assert.Equal(t, []string{"user"}, sess.Roles)
}

func TestNewStoreClearsPartialSet(t *testing.T) {
	ring := keyring.NewArrayKeyring([]keyring.Item{
		{Key: "accessToken", Data: []byte("orphan")},
	})

	s, err := NewStore(ring)
	require.NoError(t, err)

	_, ok := s.Current()
	assert.False(t, ok)

	_, err = ring.Get("accessToken")
	assert.ErrorIs(t, err, keyring.ErrKeyNotFound)
}

func TestClearRemovesEverything(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	s, err := NewStore(ring)
	require.NoError(t, err)
	require.NoError(t, s.Save(testSession()))

	require.NoError(t, s.Clear())

	_, ok := s.Current()
	assert.False(t, ok)
	for _, key := range []string{"accessToken", "refreshToken", "user"} {
		_, err := ring.Get(key)
		assert.ErrorIs(t, err, keyring.ErrKeyNotFound, key)
	}
}

func TestRefreshCommitsNewTokens(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	s, err := NewStore(ring)
	require.NoError(t, err)
	require.NoError(t, s.Save(testSession()))

	refreshed := testSession()
	refreshed.AccessToken = "access-2"
	refreshed.RefreshToken = "refresh-2"

	sess, err := s.Refresh(context.Background(), func(ctx context.Context, refreshToken string) (model.Session, error) {
		assert.Equal(t, "refresh-1", refreshToken)
		return refreshed, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "access-2", sess.AccessToken)
	assert.Equal(t, "access-2", s.AccessToken())
	assert.Equal(t, "refresh-2", s.RefreshToken())

	item, err := ring.Get("accessToken")
	require.NoError(t, err)
	assert.Equal(t, "access-2", string(item.Data))
}

func TestRefreshFailureClearsStore(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	s, err := NewStore(ring)
	require.NoError(t, err)
	require.NoError(t, s.Save(testSession()))

	refreshErr := errors.New("refresh token revoked")
	_, err = s.Refresh(context.Background(), func(ctx context.Context, refreshToken string) (model.Session, error) {
		return model.Session{}, refreshErr
	})
	require.ErrorIs(t, err, refreshErr)

	_, ok := s.Current()
	assert.False(t, ok)
	for _, key := range []string{"accessToken", "refreshToken", "user"} {
		_, err := ring.Get(key)
		assert.ErrorIs(t, err, keyring.ErrKeyNotFound, key)
	}
}

func TestRefreshWithoutSession(t *testing.T) {
	s, err := NewStore(keyring.NewArrayKeyring(nil))
	require.NoError(t, err)

	_, err = s.Refresh(context.Background(), func(ctx context.Context, refreshToken string) (model.Session, error) {
		t.Fatal("refresh func must not be called without a stored session")
		return model.Session{}, nil
	})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRefreshIsSingleFlight(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	s, err := NewStore(ring)
	require.NoError(t, err)
	require.NoError(t, s.Save(testSession()))

	var calls atomic.Int32
	entered := make(chan struct{})
	gate := make(chan struct{})

	do := func(ctx context.Context, refreshToken string) (model.Session, error) {
		calls.Add(1)
		close(entered)
		<-gate
		refreshed := testSession()
		refreshed.AccessToken = "access-2"
		return refreshed, nil
	}

	const followers = 8
	var wg sync.WaitGroup
	results := make([]model.Session, followers+1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		sess, err := s.Refresh(context.Background(), do)
		require.NoError(t, err)
		results[followers] = sess
	}()

	// The leader is parked inside do; every follower joins its call.
	<-entered
	for i := 0; i < followers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := s.Refresh(context.Background(), func(ctx context.Context, refreshToken string) (model.Session, error) {
				calls.Add(1)
				refreshed := testSession()
				refreshed.AccessToken = "access-2"
				return refreshed, nil
			})
			require.NoError(t, err)
			results[i] = sess
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, sess := range results {
		assert.Equal(t, "access-2", sess.AccessToken)
	}
}

func TestRefreshWaiterHonorsContextCancel(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	s, err := NewStore(ring)
	require.NoError(t, err)
	require.NoError(t, s.Save(testSession()))

	entered := make(chan struct{})
	gate := make(chan struct{})

	go func() {
		_, _ = s.Refresh(context.Background(), func(ctx context.Context, refreshToken string) (model.Session, error) {
			close(entered)
			<-gate
			return testSession(), nil
		})
	}()
	<-entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Refresh(ctx, func(ctx context.Context, refreshToken string) (model.Session, error) {
		t.Fatal("second caller must join the in-flight refresh")
		return model.Session{}, nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	close(gate)
}

func TestMergeProfilePreservesExtraFields(t *testing.T) {
	existing := map[string]any{
		"userId":       "u1",
		"customField":  "kept",
		"anotherExtra": float64(7),
	}

	refreshed := testSession()
	refreshed.Name = "Renamed User"

	merged := mergeProfile(existing, refreshed)

	assert.Equal(t, "kept", merged["customField"])
	assert.Equal(t, float64(7), merged["anotherExtra"])
	assert.Equal(t, "Renamed User", merged["name"])
	assert.Equal(t, "u1", merged["userId"])
}

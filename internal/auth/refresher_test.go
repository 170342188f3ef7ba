package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefresher_RotatesTokens(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveAccessRefresh("A1", "R1", "u1", "admin"))

	r := NewRefresher(store, func(ctx context.Context, refreshToken string) (*Tokens, error) {
		assert.Equal(t, "R1", refreshToken)
		return &Tokens{AccessToken: "A2", RefreshToken: "R2", UserID: "u1"}, nil
	})

	require.NoError(t, r.Refresh(context.Background()))
	assert.Equal(t, "A2", store.AccessToken())
	assert.Equal(t, "R2", store.RefreshToken())
	assert.Equal(t, "admin", store.Role())
}

func TestRefresher_NoRefreshToken(t *testing.T) {
	store := newTestStore(t)
	called := false
	r := NewRefresher(store, func(ctx context.Context, refreshToken string) (*Tokens, error) {
		called = true
		return nil, nil
	})

	err := r.Refresh(context.Background())
	require.ErrorIs(t, err, ErrNoRefreshToken)
	assert.False(t, called)
}

func TestRefresher_FailureClearsSession(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveAccessRefresh("A1", "R1", "u1", "admin"))

	cause := errors.New("refresh token revoked")
	r := NewRefresher(store, func(ctx context.Context, refreshToken string) (*Tokens, error) {
		return nil, cause
	})

	err := r.Refresh(context.Background())
	require.ErrorIs(t, err, ErrRefreshFailed)
	require.ErrorIs(t, err, cause)
	assert.False(t, store.IsAuthenticated())
}

func TestRefresher_ConcurrentCallersShareOneCall(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveAccessRefresh("A1", "R1", "u1", "admin"))

	var calls atomic.Int32
	release := make(chan struct{})
	r := NewRefresher(store, func(ctx context.Context, refreshToken string) (*Tokens, error) {
		calls.Add(1)
		<-release
		return &Tokens{AccessToken: "A2", RefreshToken: "R2", UserID: "u1"}, nil
	})

	const callers = 5
	var entered atomic.Int32
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entered.Add(1)
			errs <- r.Refresh(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return entered.Load() == callers && calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "R2", store.RefreshToken())
}

func TestRefresher_DiscardsResultForClearedSession(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveAccessRefresh("A1", "R1", "u1", "admin"))

	r := NewRefresher(store, func(ctx context.Context, refreshToken string) (*Tokens, error) {
		// logout while the call is in flight
		store.Clear()
		return &Tokens{AccessToken: "A2", RefreshToken: "R2", UserID: "u1"}, nil
	})

	err := r.Refresh(context.Background())
	require.ErrorIs(t, err, ErrSessionChanged)
	assert.False(t, store.IsAuthenticated())
}

func TestRefresher_FailureDoesNotClearNewSession(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveAccessRefresh("A1", "R1", "u1", "admin"))

	r := NewRefresher(store, func(ctx context.Context, refreshToken string) (*Tokens, error) {
		// a new login replaced the session while the call was in flight
		assert.NoError(t, store.SaveAccessRefresh("B1", "S1", "u2", ""))
		return nil, errors.New("expired")
	})

	err := r.Refresh(context.Background())
	require.ErrorIs(t, err, ErrRefreshFailed)
	assert.Equal(t, "B1", store.AccessToken())
}

func TestRefresher_CancelledWaiterReturnsEarly(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveAccessRefresh("A1", "R1", "u1", "admin"))

	release := make(chan struct{})
	done := make(chan struct{})
	r := NewRefresher(store, func(ctx context.Context, refreshToken string) (*Tokens, error) {
		defer close(done)
		<-release
		return &Tokens{AccessToken: "A2", RefreshToken: "R2", UserID: "u1"}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- r.Refresh(ctx) }()

	cancel()
	select {
	case err := <-result:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled waiter did not return")
	}

	// the shared call still completes
	close(release)
	<-done
	assert.Eventually(t, func() bool { return store.AccessToken() == "A2" }, time.Second, time.Millisecond)
}

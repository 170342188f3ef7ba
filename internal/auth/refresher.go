package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/mytwin/twin-admin/internal/session"
	"github.com/mytwin/twin-admin/internal/telemetry"
)

// Tokens is the result of a successful refresh call.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	UserID       string
}

// RefreshFunc exchanges a refresh token for a new pair over the network.
type RefreshFunc func(ctx context.Context, refreshToken string) (*Tokens, error)

const refreshKey = "refresh"

// Refresher runs at most one refresh call at a time. Callers arriving while
// a call is in flight wait for it and share its outcome; rotating the refresh
// token twice would invalidate whichever result lost the race.
type Refresher struct {
	store   *session.Store
	refresh RefreshFunc
	group   singleflight.Group
}

// NewRefresher creates a Refresher persisting results into store.
func NewRefresher(store *session.Store, refresh RefreshFunc) *Refresher {
	return &Refresher{store: store, refresh: refresh}
}

// Refresh exchanges the stored refresh token for a new pair and persists it.
//
// On failure the session that was refreshed is cleared. If the session was
// cleared or replaced while the call was in flight, the result is discarded
// and ErrSessionChanged is returned. A cancelled ctx only abandons the wait;
// the shared call runs to completion for the other waiters.
func (r *Refresher) Refresh(ctx context.Context) error {
	ch := r.group.DoChan(refreshKey, func() (any, error) {
		return nil, r.doRefresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Shared {
			telemetry.GetMetrics().RefreshCoalescedTotal.Add(ctx, 1)
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Refresher) doRefresh(ctx context.Context) error {
	m := telemetry.GetMetrics()

	generation := r.store.Generation()
	refreshToken := r.store.RefreshToken()
	if refreshToken == "" {
		r.store.ClearGeneration(generation)
		return ErrNoRefreshToken
	}

	started := time.Now()
	m.RefreshTotal.Add(ctx, 1)

	tokens, err := r.refresh(ctx, refreshToken)

	m.RefreshDuration.Record(ctx, float64(time.Since(started).Milliseconds()))

	if err != nil {
		m.RefreshFailuresTotal.Add(ctx, 1)
		log.Error().Err(err).Msg("token refresh failed")

		// the refresh token may already be revoked, so the session is unusable
		if r.store.ClearGeneration(generation) {
			log.Info().Msg("session cleared after refresh failure")
		}
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	if err := r.store.RotateTokens(generation, tokens.AccessToken, tokens.RefreshToken, tokens.UserID); err != nil {
		if errors.Is(err, session.ErrSessionChanged) {
			log.Info().Msg("discarding refresh result for a session that no longer exists")
			return ErrSessionChanged
		}
		return fmt.Errorf("failed to store refreshed tokens: %w", err)
	}

	log.Debug().Str("userId", tokens.UserID).Msg("access token refreshed")

	return nil
}

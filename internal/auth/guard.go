package auth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mytwin/twin-admin/internal/session"
	"github.com/mytwin/twin-admin/internal/telemetry"
)

// Denial reasons reported by Guard.
const (
	ReasonNoSession     = "not logged in"
	ReasonInvalidToken  = "session is invalid or expired"
	ReasonNotAdmin      = "access denied: admin role required"
	ReasonUnexpectedErr = "session check failed"
)

// Decision is the outcome of a guard evaluation.
type Decision struct {
	Allowed bool
	Reason  string
}

// Guard decides whether a protected command may run. It fails closed: any
// error, including a panic, denies access, clears the session and redirects
// to login.
type Guard struct {
	store *session.Store
	auth  Authenticator
	nav   Navigator
}

// NewGuard creates a guard for the scheme implemented by auth.
func NewGuard(store *session.Store, auth Authenticator, nav Navigator) *Guard {
	return &Guard{store: store, auth: auth, nav: nav}
}

// Check validates the session with the backend and authorizes by role.
func (g *Guard) Check(ctx context.Context) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("guard check panicked")
			d = g.deny(ReasonUnexpectedErr)
		}
		g.record(ctx, d)
	}()

	scheme := g.auth.Scheme()

	token := g.store.LegacyToken()
	if scheme == session.SchemeAccessRefresh {
		token = g.store.AccessToken()
	}

	if token == "" {
		g.nav.RedirectToLogin(ReasonNoSession)
		return Decision{Allowed: false, Reason: ReasonNoSession}
	}

	if _, err := g.auth.Validate(ctx, token); err != nil {
		log.Debug().Err(err).Msg("token validation failed")

		if scheme != session.SchemeAccessRefresh {
			return g.deny(ReasonInvalidToken)
		}

		if err := g.auth.Refresh(ctx); err != nil {
			log.Debug().Err(err).Msg("refresh during guard check failed")
			return g.deny(ReasonInvalidToken)
		}
	}

	if role := g.resolveRole(ctx, scheme); role != RoleAdmin {
		log.Info().Str("role", role).Msg("non-admin session rejected")
		return g.deny(ReasonNotAdmin)
	}

	return Decision{Allowed: true}
}

// resolveRole asks the backend when the access-refresh role was never cached,
// which happens when the lookup after login failed.
func (g *Guard) resolveRole(ctx context.Context, scheme session.Scheme) string {
	role := g.store.ResolveRole()
	if role != "" || scheme != session.SchemeAccessRefresh {
		return role
	}

	me, err := g.auth.Me(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("role lookup failed")
		return ""
	}
	if err := g.store.SaveRole(me.Role); err != nil {
		log.Warn().Err(err).Msg("failed to cache role")
	}
	return me.Role
}

func (g *Guard) deny(reason string) Decision {
	g.store.Clear()
	g.nav.RedirectToLogin(reason)
	return Decision{Allowed: false, Reason: reason}
}

func (g *Guard) record(ctx context.Context, d Decision) {
	telemetry.GetMetrics().GuardDecisionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("allowed", d.Allowed),
		attribute.String("reason", d.Reason),
	))
}

// Error turns a denial into an error for callers that return errors.
func (d Decision) Error() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrAccessDenied, d.Reason)
}

package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mytwin/twin-admin/internal/graphql"
	"github.com/mytwin/twin-admin/internal/session"
	"github.com/mytwin/twin-admin/internal/telemetry"
)

// CodeUnauthenticated is the extensions.code servers use for a missing,
// invalid or expired credential.
const CodeUnauthenticated = "UNAUTHENTICATED"

// Navigator sends the user back to the login entry point.
type Navigator interface {
	RedirectToLogin(reason string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(reason string)

func (f NavigatorFunc) RedirectToLogin(reason string) {
	f(reason)
}

// TokenSource supplies the credential attached to outbound operations.
type TokenSource interface {
	CurrentToken() string
}

// AuthLink attaches the current token as a bearer Authorization header. The
// token is read when the operation is dispatched, so a replayed operation
// picks up a freshly refreshed token. Operations without a token are sent
// unauthenticated.
func AuthLink(tokens TokenSource) graphql.Middleware {
	return func(next graphql.Handler) graphql.Handler {
		return func(ctx context.Context, op *graphql.Operation) (*graphql.Response, error) {
			if token := tokens.CurrentToken(); token != "" {
				op = op.Clone()
				op.Header.Set("Authorization", "Bearer "+token)
			}
			return next(ctx, op)
		}
	}
}

// IsAuthError reports whether a GraphQL error signals a bad credential.
func IsAuthError(e graphql.Error) bool {
	if e.Code() == CodeUnauthenticated {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "authentication") || strings.Contains(msg, "unauthorized")
}

// firstAuthError returns the first authentication error of errs.
func firstAuthError(errs []graphql.Error) (graphql.Error, bool) {
	for _, e := range errs {
		if IsAuthError(e) {
			return e, true
		}
	}
	return graphql.Error{}, false
}

// Refreshable is the part of an Authenticator the error link needs.
type Refreshable interface {
	Refresh(ctx context.Context) error
}

// ErrorLink recovers operations failing with an authentication error when
// the session uses refresh tokens. It must sit before AuthLink in the chain.
//
// Only the first authentication error of a response is acted upon. Concurrent
// failures share one refresh through the Refresher. After a successful
// refresh the operation is replayed once and the replay's outcome is what
// the caller sees. If the refresh fails the session is already cleared, the
// navigator is told to go to login and the caller gets the original response.
func ErrorLink(store *session.Store, refresher Refreshable, nav Navigator) graphql.Middleware {
	m := telemetry.GetMetrics()

	return func(next graphql.Handler) graphql.Handler {
		return func(ctx context.Context, op *graphql.Operation) (*graphql.Response, error) {
			sent := store.CurrentToken()

			resp, err := next(ctx, op)
			if err != nil {
				log.Warn().Err(err).Str("operation", op.Name).Msg("network error")
				return resp, err
			}

			authErr, ok := firstAuthError(resp.Errors)
			if !ok {
				return resp, nil
			}

			m.AuthErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op.Name)))

			// legacy sessions have no recovery path
			if store.Scheme() != session.SchemeAccessRefresh {
				return resp, nil
			}

			log.Debug().
				Str("operation", op.Name).
				Str("error", authErr.Message).
				Msg("authentication error, refreshing token")

			// another operation already rotated the token this one was sent with
			if current := store.CurrentToken(); current != "" && current != sent {
				return replay(ctx, next, op, current)
			}

			if err := refresher.Refresh(ctx); err != nil {
				if ctx.Err() != nil || errors.Is(err, ErrSessionChanged) {
					return resp, nil
				}
				log.Warn().Err(err).Str("operation", op.Name).Msg("session expired")
				nav.RedirectToLogin("session expired")
				return resp, nil
			}

			return replay(ctx, next, op, store.CurrentToken())
		}
	}
}

// replay sends op once more with token.
func replay(ctx context.Context, next graphql.Handler, op *graphql.Operation, token string) (*graphql.Response, error) {
	telemetry.GetMetrics().ReplaysTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op.Name)))

	retry := op.Clone()
	retry.Header.Set("Authorization", "Bearer "+token)

	return next(ctx, retry)
}

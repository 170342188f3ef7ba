package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/mytwin/twin-admin/internal/graphql"
	"github.com/mytwin/twin-admin/internal/graphql/graphqltest"
	"github.com/mytwin/twin-admin/internal/session"
)

func newTestStore(t *testing.T) *session.Store {
	t.Helper()
	store, err := session.NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

// authHandler is the chain used by the auth clients themselves.
func authHandler(srv *graphqltest.Server, store *session.Store) graphql.Handler {
	transport := graphql.NewTransport(srv.Endpoint(), srv.Client())
	return graphql.Chain(transport.Handle, AuthLink(store))
}

func newTestTokenClient(t *testing.T, srv *graphqltest.Server, store *session.Store) *TokenClient {
	t.Helper()
	c := NewTokenClient(graphql.NewClient(authHandler(srv, store)), store, time.Hour)
	t.Cleanup(c.Close)
	return c
}

func legacyToken(t *testing.T, role string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "bob", "exp": time.Now().Add(time.Hour).Unix()}
	if role != "" {
		claims["role"] = role
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

// recordingNavigator collects redirect reasons.
type recordingNavigator struct {
	mu      sync.Mutex
	reasons []string
}

func (n *recordingNavigator) RedirectToLogin(reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, reason)
}

func (n *recordingNavigator) Reasons() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.reasons...)
}

func refreshResolver(from, access, refresh string) graphqltest.Resolver {
	return func(req graphqltest.Request) (any, []graphql.Error) {
		if req.Variables["refreshToken"] != from {
			return nil, []graphql.Error{{Message: "Invalid refresh token", Extensions: map[string]any{"code": "UNAUTHENTICATED"}}}
		}
		return map[string]any{"refreshToken": map[string]any{
			"userId":       "u1",
			"accessToken":  access,
			"refreshToken": refresh,
		}}, nil
	}
}

func validateResolver(valid ...string) graphqltest.Resolver {
	return func(req graphqltest.Request) (any, []graphql.Error) {
		for _, v := range valid {
			if req.Variables["token"] == v {
				return map[string]any{"validateToken": map[string]any{"userId": "bob"}}, nil
			}
		}
		return nil, graphqltest.Unauthenticated()
	}
}

func meResolver(role string) graphqltest.Resolver {
	return func(req graphqltest.Request) (any, []graphql.Error) {
		return map[string]any{"me": map[string]any{"uuid": "u1", "role": role}}, nil
	}
}

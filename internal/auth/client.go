// Package auth talks to the authentication endpoints of the backend and
// keeps the local session usable: it refreshes tokens, repairs operations
// failing with an authentication error and gates protected commands.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mytwin/twin-admin/internal/graphql"
	"github.com/mytwin/twin-admin/internal/session"
)

// RoleAdmin is the only role allowed into the console.
const RoleAdmin = "admin"

var (
	// ErrNoRefreshToken is returned when a refresh is requested without a stored refresh token.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrRefreshFailed wraps the cause of a rejected or failed refresh call.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrRefreshUnsupported is returned by schemes without refresh tokens.
	ErrRefreshUnsupported = errors.New("token refresh not supported by this environment")

	// ErrSessionChanged is returned when the session was cleared or replaced
	// while a refresh was in flight.
	ErrSessionChanged = errors.New("session changed during refresh")

	// ErrInvalidCredentials is returned when login yields no session.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is returned when validation yields no principal.
	ErrInvalidToken = errors.New("invalid token")

	// ErrAccessDenied is returned for sessions the guard rejects.
	ErrAccessDenied = errors.New("access denied")
)

// LoginResult describes a successful login.
type LoginResult struct {
	UserID       string
	Role         string
	DefaultLang  string
	IsNewAccount bool
}

// Principal is the identity behind a token.
type Principal struct {
	UserID string
	Role   string
}

// Authenticator performs the authentication calls of one token scheme and
// keeps the session store in sync with their outcome.
type Authenticator interface {
	Scheme() session.Scheme
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Validate(ctx context.Context, token string) (*Principal, error)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*Principal, error)
}

// LegacyClient authenticates against backends issuing a single JWT that
// embeds the role claim.
type LegacyClient struct {
	gql   *graphql.Client
	store *session.Store
}

// NewLegacyClient creates a legacy scheme client. gql must not include the
// error recovery link.
func NewLegacyClient(gql *graphql.Client, store *session.Store) *LegacyClient {
	return &LegacyClient{gql: gql, store: store}
}

func (c *LegacyClient) Scheme() session.Scheme {
	return session.SchemeLegacy
}

// Login stores the returned JWT and reports the role decoded from it.
func (c *LegacyClient) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var out legacyLoginResponse
	op := graphql.NewOperation(OpLegacyLogin, legacyLoginMutation, map[string]any{
		"username": username,
		"password": password,
	})
	if err := c.gql.Do(ctx, op, &out); err != nil {
		return nil, err
	}

	if out.Login == nil || out.Login.JWT == "" {
		return nil, ErrInvalidCredentials
	}

	if err := c.store.SaveLegacy(out.Login.JWT, out.Login.UserID); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	log.Info().Str("userId", out.Login.UserID).Msg("logged in")

	return &LoginResult{
		UserID:       out.Login.UserID,
		Role:         c.store.ResolveRole(),
		DefaultLang:  out.Login.UserPreferences.DefaultLang,
		IsNewAccount: out.Login.IsNewAccount,
	}, nil
}

func (c *LegacyClient) Validate(ctx context.Context, token string) (*Principal, error) {
	return validate(ctx, c.gql, token)
}

func (c *LegacyClient) Refresh(ctx context.Context) error {
	return ErrRefreshUnsupported
}

// Logout only forgets the token; legacy tokens cannot be revoked.
func (c *LegacyClient) Logout(ctx context.Context) error {
	c.store.Clear()
	return nil
}

// Me answers from the stored token's claims without a network call.
func (c *LegacyClient) Me(ctx context.Context) (*Principal, error) {
	if c.store.LegacyToken() == "" {
		return nil, session.ErrNoToken
	}
	return &Principal{UserID: c.store.LegacyUserID(), Role: c.store.ResolveRole()}, nil
}

// TokenClient authenticates against backends issuing short-lived access
// tokens with rotating refresh tokens.
type TokenClient struct {
	gql       *graphql.Client
	store     *session.Store
	refresher *Refresher
	scheduler *Scheduler
}

// NewTokenClient creates an access-refresh scheme client. gql must not
// include the error recovery link, since refresh calls themselves go
// through it. A non-positive interval uses DefaultRefreshInterval.
func NewTokenClient(gql *graphql.Client, store *session.Store, interval time.Duration) *TokenClient {
	c := &TokenClient{gql: gql, store: store}
	c.refresher = NewRefresher(store, c.refreshCall)
	c.scheduler = NewScheduler(interval, c.refresher.Refresh)
	return c
}

func (c *TokenClient) Scheme() session.Scheme {
	return session.SchemeAccessRefresh
}

// Scheduler exposes the proactive refresh timer.
func (c *TokenClient) Scheduler() *Scheduler {
	return c.scheduler
}

// Login stores the token pair, arms the refresh timer and then asks the
// backend for the role. A failing role lookup does not fail the login; the
// role stays unknown until the next guard evaluation.
func (c *TokenClient) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var out loginResponse
	op := graphql.NewOperation(OpLogin, loginMutation, map[string]any{
		"username": username,
		"password": password,
	})
	if err := c.gql.Do(ctx, op, &out); err != nil {
		return nil, err
	}

	if out.Login == nil || out.Login.AccessToken == "" {
		return nil, ErrInvalidCredentials
	}

	if err := c.store.SaveAccessRefresh(out.Login.AccessToken, out.Login.RefreshToken, out.Login.UserID, ""); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	c.scheduler.Arm()

	log.Info().Str("userId", out.Login.UserID).Msg("logged in")

	result := &LoginResult{
		UserID:       out.Login.UserID,
		DefaultLang:  out.Login.UserPreferences.DefaultLang,
		IsNewAccount: out.Login.IsNewAccount,
	}

	me, err := c.Me(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to resolve role after login")
		return result, nil
	}

	if err := c.store.SaveRole(me.Role); err != nil {
		log.Warn().Err(err).Msg("failed to cache role")
	}
	result.Role = me.Role

	return result, nil
}

func (c *TokenClient) Validate(ctx context.Context, token string) (*Principal, error) {
	return validate(ctx, c.gql, token)
}

// Refresh rotates the token pair through the shared single-flight refresher
// and re-arms the timer on success.
func (c *TokenClient) Refresh(ctx context.Context) error {
	if err := c.refresher.Refresh(ctx); err != nil {
		return err
	}
	c.scheduler.Arm()
	return nil
}

// Logout stops the timer, asks the backend to revoke the refresh token and
// clears the session. Revocation is best effort; the session is cleared
// regardless.
func (c *TokenClient) Logout(ctx context.Context) error {
	c.scheduler.Stop()

	if refreshToken := c.store.RefreshToken(); refreshToken != "" {
		op := graphql.NewOperation(OpLogout, logoutMutation, map[string]any{"refreshToken": refreshToken})
		if err := c.gql.Do(ctx, op, nil); err != nil {
			log.Warn().Err(err).Msg("logout mutation failed")
		}
	}

	c.store.Clear()
	return nil
}

// Me returns the principal of the current access token.
func (c *TokenClient) Me(ctx context.Context) (*Principal, error) {
	var out meResponse
	if err := c.gql.Do(ctx, graphql.NewOperation(OpMe, meQuery, nil), &out); err != nil {
		return nil, err
	}
	if out.Me == nil {
		return nil, ErrInvalidToken
	}
	return &Principal{UserID: out.Me.UUID, Role: out.Me.Role}, nil
}

// RestoreSession refreshes a stored session at startup. It reports false,
// with the session cleared, when there is nothing to restore or the refresh
// is rejected.
func (c *TokenClient) RestoreSession(ctx context.Context) bool {
	if c.store.RefreshToken() == "" {
		return false
	}

	if err := c.Refresh(ctx); err != nil {
		log.Info().Err(err).Msg("stored session could not be restored")
		if !errors.Is(err, ErrSessionChanged) {
			c.store.Clear()
		}
		return false
	}
	return true
}

// Close stops the refresh timer.
func (c *TokenClient) Close() {
	c.scheduler.Stop()
}

func (c *TokenClient) refreshCall(ctx context.Context, refreshToken string) (*Tokens, error) {
	var out refreshTokenResponse
	op := graphql.NewOperation(OpRefreshToken, refreshTokenMutation, map[string]any{"refreshToken": refreshToken})
	if err := c.gql.Do(ctx, op, &out); err != nil {
		return nil, err
	}
	if out.RefreshToken == nil || out.RefreshToken.AccessToken == "" {
		return nil, ErrInvalidToken
	}
	return &Tokens{
		AccessToken:  out.RefreshToken.AccessToken,
		RefreshToken: out.RefreshToken.RefreshToken,
		UserID:       out.RefreshToken.UserID,
	}, nil
}

func validate(ctx context.Context, gql *graphql.Client, token string) (*Principal, error) {
	var out validateTokenResponse
	op := graphql.NewOperation(OpValidateToken, validateTokenMutation, map[string]any{"token": token})
	if err := gql.Do(ctx, op, &out); err != nil {
		return nil, err
	}
	if out.ValidateToken == nil || out.ValidateToken.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &Principal{UserID: out.ValidateToken.UserID}, nil
}

var (
	_ Authenticator = (*LegacyClient)(nil)
	_ Authenticator = (*TokenClient)(nil)
)

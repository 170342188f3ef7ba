// Package client wires the session core to the backend of the selected
// environment and rebuilds that wiring whenever the environment changes.
package client

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mytwin/twin-admin/internal/auth"
	"github.com/mytwin/twin-admin/internal/console"
	"github.com/mytwin/twin-admin/internal/environment"
	"github.com/mytwin/twin-admin/internal/graphql"
	twinhttp "github.com/mytwin/twin-admin/internal/http"
	"github.com/mytwin/twin-admin/internal/logger"
	"github.com/mytwin/twin-admin/internal/session"
	"github.com/mytwin/twin-admin/internal/telemetry"
)

// ErrAdminRequired is returned by Login for accounts whose role is known and
// is not admin. The session is cleared before it is returned.
var ErrAdminRequired = errors.New("access denied: admin role required")

// Console is the process-wide context object. It owns the session store and
// environment selector and hands out the clients for the active environment.
type Console struct {
	cfg        Config
	logger     zerolog.Logger
	store      *session.Store
	selector   *environment.Selector
	httpClient *http.Client
	nav        auth.Navigator

	mu            sync.Mutex
	env           environment.Config
	authenticator auth.Authenticator
	service       *console.Service
	guard         *auth.Guard
	unsubscribe   func()
}

// New creates the console for the persisted environment. nav is told when
// the user has to log in again.
func New(cfg Config, nav auth.Navigator) (*Console, error) {
	store, err := session.NewStore(cfg.StateDir)
	if err != nil {
		return nil, err
	}

	selector, err := environment.NewSelector(store.Dir(), cfg.Environments)
	if err != nil {
		return nil, err
	}

	c := &Console{
		cfg:      cfg,
		logger:   log.Logger,
		store:    store,
		selector: selector,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: twinhttp.NewTransport(http.DefaultTransport, cfg.UserAgent),
		},
		nav: nav,
	}

	c.build(selector.Get())
	c.unsubscribe = selector.Subscribe(c.environmentChanged)

	return c, nil
}

// build assembles the operation chains for env. Must be called with mu held
// or before c is shared.
//
// The authentication clients get a chain without the error link so a failed
// refresh can never trigger another refresh.
func (c *Console) build(env environment.Environment) {
	cfg := c.selector.ConfigFor(env)

	transport := graphql.NewTransport(cfg.GraphQLURL, c.httpClient)
	base := graphql.Chain(transport.Handle, logger.Operations(c.logger), telemetry.TraceOperations())
	authed := graphql.Chain(base, auth.AuthLink(c.store))
	authClient := graphql.NewClient(authed)

	full := authed
	if cfg.UsesRefreshToken {
		tokens := auth.NewTokenClient(authClient, c.store, c.cfg.RefreshInterval)
		full = graphql.Chain(base, auth.ErrorLink(c.store, tokens, c.nav), auth.AuthLink(c.store))
		c.authenticator = tokens
	} else {
		c.authenticator = auth.NewLegacyClient(authClient, c.store)
	}

	c.env = cfg
	c.service = console.NewService(graphql.NewClient(full))
	c.guard = auth.NewGuard(c.store, c.authenticator, c.nav)

	log.Debug().
		Str("environment", string(env)).
		Str("endpoint", cfg.GraphQLURL).
		Bool("refreshTokens", cfg.UsesRefreshToken).
		Msg("console configured")
}

// environmentChanged drops the session of the previous environment, whose
// tokens mean nothing to the new backend, and rebuilds the chains.
func (c *Console) environmentChanged(env environment.Environment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLocked()
	c.store.Clear()
	c.build(env)
}

func (c *Console) closeLocked() {
	if tokens, ok := c.authenticator.(*auth.TokenClient); ok {
		tokens.Close()
	}
}

// SwitchEnvironment selects env, clearing the current session.
func (c *Console) SwitchEnvironment(env environment.Environment) error {
	return c.selector.Set(env)
}

// Environment returns the configuration of the active environment.
func (c *Console) Environment() environment.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.env
}

// Environments lists every known environment.
func (c *Console) Environments() []environment.Config {
	return c.selector.All()
}

// Store returns the session store.
func (c *Console) Store() *session.Store {
	return c.store
}

// Authenticator returns the client of the active environment's token scheme.
func (c *Console) Authenticator() auth.Authenticator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticator
}

// Service returns the console operations for the active environment.
func (c *Console) Service() *console.Service {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.service
}

// Login authenticates and enforces the admin role. A role that could not be
// determined is let through; the guard settles it on the next protected
// command.
func (c *Console) Login(ctx context.Context, username, password string) (*auth.LoginResult, error) {
	a := c.Authenticator()

	result, err := a.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if result.Role != "" && result.Role != auth.RoleAdmin {
		log.Info().Str("userId", result.UserID).Str("role", result.Role).Msg("non-admin login rejected")
		if err := a.Logout(ctx); err != nil {
			log.Warn().Err(err).Msg("logout after rejected login failed")
		}
		return nil, ErrAdminRequired
	}

	return result, nil
}

// Logout ends the session of the active environment.
func (c *Console) Logout(ctx context.Context) error {
	return c.Authenticator().Logout(ctx)
}

// Refresh rotates the token pair now.
func (c *Console) Refresh(ctx context.Context) error {
	return c.Authenticator().Refresh(ctx)
}

// RestoreSession makes a stored session usable at startup. Access-refresh
// sessions are refreshed, since the stored access token has likely expired.
func (c *Console) RestoreSession(ctx context.Context) bool {
	if tokens, ok := c.Authenticator().(*auth.TokenClient); ok {
		return tokens.RestoreSession(ctx)
	}
	return c.store.IsAuthenticated()
}

// Authorize runs the guard for a protected command.
func (c *Console) Authorize(ctx context.Context) error {
	c.mu.Lock()
	guard := c.guard
	c.mu.Unlock()

	return guard.Check(ctx).Error()
}

// Close stops background refreshes and the environment subscription.
func (c *Console) Close() {
	c.unsubscribe()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/mytwin/twin-admin/internal/auth"
	"github.com/mytwin/twin-admin/internal/client"
	"github.com/mytwin/twin-admin/internal/session"
)

// LoginCmd authenticates against the selected environment.
type LoginCmd struct {
	Username string `short:"u" help:"Username (prompted when omitted)"`
	Password string `help:"Password (prompted when omitted)" env:"TWIN_ADMIN_PASSWORD"`
}

func (c *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	console, err := globals.Console()
	if err != nil {
		return err
	}

	if c.Username == "" || c.Password == "" {
		if !isInteractive() {
			return errors.New("username and password are required when not running in a terminal")
		}
		if err := promptCredentials(&c.Username, &c.Password); err != nil {
			return err
		}
	}

	result, err := console.Login(ctx, c.Username, c.Password)
	if err != nil {
		if errors.Is(err, client.ErrAdminRequired) {
			return errors.New("Access denied. Admin role required.")
		}
		return fmt.Errorf("login failed: %w", err)
	}

	env := console.Environment()
	w := globals.stdout()
	fmt.Fprintf(w, "Logged in to %s as %s\n", env.Label, c.Username)
	fmt.Fprintf(w, "User ID: %s\n", result.UserID)
	if result.Role != "" {
		fmt.Fprintf(w, "Role:    %s\n", result.Role)
	}

	return nil
}

// LogoutCmd ends the current session.
type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	console, err := globals.Console()
	if err != nil {
		return err
	}

	if !console.Store().IsAuthenticated() {
		fmt.Fprintln(globals.stdout(), "Not logged in.")
		return nil
	}

	if err := console.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	fmt.Fprintln(globals.stdout(), "Logged out.")
	return nil
}

// StatusCmd shows the local session.
type StatusCmd struct {
	Verify bool `help:"Validate the session with the backend, refreshing it if needed"`
}

func (c *StatusCmd) Run(ctx context.Context, globals *Globals) error {
	console, err := globals.Console()
	if err != nil {
		return err
	}

	if c.Verify {
		console.RestoreSession(ctx)
		if err := console.Authorize(ctx); err != nil {
			return err
		}
	}

	store := console.Store()
	env := console.Environment()
	w := globals.stdout()

	fmt.Fprintf(w, "Environment: %s (%s)\n", env.Label, env.Name)
	fmt.Fprintf(w, "Endpoint:    %s\n", env.GraphQLURL)

	if !store.IsAuthenticated() {
		fmt.Fprintln(w, "Session:     not logged in")
		return nil
	}

	role := store.ResolveRole()
	if role == "" {
		role = "unknown"
	}

	fmt.Fprintf(w, "Session:     %s\n", schemeLabel(store.Scheme()))
	fmt.Fprintf(w, "User ID:     %s\n", store.UserID())
	fmt.Fprintf(w, "Role:        %s\n", role)
	fmt.Fprintf(w, "Token:       %s\n", store.Fingerprint())
	if c.Verify {
		fmt.Fprintln(w, "Verified:    yes")
	}

	return nil
}

func schemeLabel(s session.Scheme) string {
	switch s {
	case session.SchemeLegacy:
		return "single token"
	case session.SchemeAccessRefresh:
		return "access and refresh tokens"
	default:
		return "none"
	}
}

// RefreshCmd rotates the token pair now.
type RefreshCmd struct{}

func (c *RefreshCmd) Run(ctx context.Context, globals *Globals) error {
	console, err := globals.Console()
	if err != nil {
		return err
	}

	if err := console.Refresh(ctx); err != nil {
		if errors.Is(err, auth.ErrRefreshUnsupported) {
			return fmt.Errorf("%s does not issue refresh tokens", console.Environment().Label)
		}
		return fmt.Errorf("refresh failed: %w", err)
	}

	fmt.Fprintf(globals.stdout(), "Session refreshed. Token: %s\n", console.Store().Fingerprint())
	return nil
}

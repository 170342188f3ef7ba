package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mytwin/twin-admin/internal/auth"
	"github.com/mytwin/twin-admin/internal/console"
	"github.com/mytwin/twin-admin/internal/graphql"
	"github.com/mytwin/twin-admin/internal/graphql/graphqltest"
)

type fixture struct {
	globals *Globals
	out     *bytes.Buffer
	dev     *graphqltest.Server
	prod    *graphqltest.Server
}

// newFixture builds globals whose config file points both environments at
// fake backends.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	dev := graphqltest.NewServer(t)
	prod := graphqltest.NewServer(t)

	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	config := fmt.Sprintf(`refreshInterval: 1h
environments:
  dev:
    graphqlUrl: %s
  prod:
    graphqlUrl: %s
`, dev.Endpoint(), prod.Endpoint())
	require.NoError(t, os.WriteFile(configFile, []byte(config), 0o600))

	out := &bytes.Buffer{}
	g := &Globals{
		Version:    "test",
		StateDir:   filepath.Join(dir, "state"),
		ConfigFile: configFile,
		Timeout:    5 * time.Second,
		Out:        out,
	}
	t.Cleanup(g.Close)

	return &fixture{globals: g, out: out, dev: dev, prod: prod}
}

// loginAdmin logs in to dev with a legacy admin token.
func (f *fixture) loginAdmin(t *testing.T) {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "bob", "role": "admin"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	f.dev.Handle(auth.OpLegacyLogin, func(req graphqltest.Request) (any, []graphql.Error) {
		if req.Variables["password"] != "secret" {
			return nil, []graphql.Error{{Message: "invalid credentials"}}
		}
		return map[string]any{"login": map[string]any{"userId": "bob", "jwt": token}}, nil
	})
	f.dev.Handle(auth.OpValidateToken, func(req graphqltest.Request) (any, []graphql.Error) {
		if req.Variables["token"] != token {
			return nil, graphqltest.Unauthenticated()
		}
		return map[string]any{"validateToken": map[string]any{"userId": "bob"}}, nil
	})

	cmd := &LoginCmd{Username: "bob", Password: "secret"}
	require.NoError(t, cmd.Run(context.Background(), f.globals))
	f.out.Reset()
}

func TestLoginCmd(t *testing.T) {
	f := newFixture(t)
	f.loginAdmin(t)

	cmd := &LoginCmd{Username: "bob", Password: "secret"}
	require.NoError(t, cmd.Run(context.Background(), f.globals))

	assert.Contains(t, f.out.String(), "Logged in to Development as bob")
	assert.Contains(t, f.out.String(), "Role:    admin")
}

func TestLoginCmd_WrongPassword(t *testing.T) {
	f := newFixture(t)
	f.loginAdmin(t)
	require.NoError(t, (&LogoutCmd{}).Run(context.Background(), f.globals))

	cmd := &LoginCmd{Username: "bob", Password: "nope"}
	err := cmd.Run(context.Background(), f.globals)
	require.ErrorContains(t, err, "login failed")

	c, err := f.globals.Console()
	require.NoError(t, err)
	assert.False(t, c.Store().IsAuthenticated())
}

func TestLoginCmd_NonAdmin(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, (&EnvSetCmd{Name: "prod"}).Run(context.Background(), f.globals))

	f.prod.Handle(auth.OpLogin, func(req graphqltest.Request) (any, []graphql.Error) {
		return map[string]any{"login": map[string]any{"userId": "u1", "accessToken": "A1", "refreshToken": "R1"}}, nil
	})
	f.prod.Handle(auth.OpMe, func(req graphqltest.Request) (any, []graphql.Error) {
		return map[string]any{"me": map[string]any{"uuid": "u1", "role": "user"}}, nil
	})
	f.prod.Handle(auth.OpLogout, func(req graphqltest.Request) (any, []graphql.Error) {
		return map[string]any{"logout": true}, nil
	})

	cmd := &LoginCmd{Username: "carol", Password: "secret"}
	err := cmd.Run(context.Background(), f.globals)
	require.EqualError(t, err, "Access denied. Admin role required.")
}

func TestStatusCmd(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, (&StatusCmd{}).Run(context.Background(), f.globals))
	assert.Contains(t, f.out.String(), "Environment: Development (dev)")
	assert.Contains(t, f.out.String(), "Session:     not logged in")

	f.loginAdmin(t)

	require.NoError(t, (&StatusCmd{Verify: true}).Run(context.Background(), f.globals))
	out := f.out.String()
	assert.Contains(t, out, "Session:     single token")
	assert.Contains(t, out, "User ID:     bob")
	assert.Contains(t, out, "Role:        admin")
	assert.Contains(t, out, "Verified:    yes")
}

func TestRefreshCmd_Legacy(t *testing.T) {
	f := newFixture(t)
	f.loginAdmin(t)

	err := (&RefreshCmd{}).Run(context.Background(), f.globals)
	require.ErrorContains(t, err, "does not issue refresh tokens")
}

func TestEnvCmds(t *testing.T) {
	f := newFixture(t)
	f.loginAdmin(t)

	require.NoError(t, (&EnvGetCmd{}).Run(context.Background(), f.globals))
	assert.Equal(t, "dev\n", f.out.String())
	f.out.Reset()

	require.NoError(t, (&EnvSetCmd{Name: "prod"}).Run(context.Background(), f.globals))
	assert.Contains(t, f.out.String(), "Switched to Production ("+f.prod.Endpoint()+")")
	assert.Contains(t, f.out.String(), "The previous session was cleared")
	f.out.Reset()

	require.NoError(t, (&EnvSetCmd{Name: "prod"}).Run(context.Background(), f.globals))
	assert.Equal(t, "Already using prod.\n", f.out.String())
	f.out.Reset()

	require.Error(t, (&EnvSetCmd{Name: "staging"}).Run(context.Background(), f.globals))

	list := &EnvListCmd{OutputFlag: OutputFlag{Output: formatJSON}}
	require.NoError(t, list.Run(context.Background(), f.globals))

	var envs []map[string]any
	require.NoError(t, json.Unmarshal(f.out.Bytes(), &envs))
	require.Len(t, envs, 2)
}

func TestUsersListCmd(t *testing.T) {
	f := newFixture(t)
	f.loginAdmin(t)

	id := uuid.NewString()
	f.dev.Handle(console.OpGetUsers, func(req graphqltest.Request) (any, []graphql.Error) {
		return map[string]any{"users": []map[string]any{{
			"uuid":        id,
			"username":    "alice",
			"role":        "admin",
			"preferences": map[string]any{"defaultLang": "fr", "appView": map[string]any{"uuid": uuid.NewString(), "name": "Cardiology"}},
		}}}, nil
	})

	cmd := &UsersListCmd{OutputFlag: OutputFlag{Output: formatTable}}
	require.NoError(t, cmd.Run(context.Background(), f.globals))

	out := f.out.String()
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "Cardiology")
}

func TestUsersListCmd_NotLoggedIn(t *testing.T) {
	f := newFixture(t)

	cmd := &UsersListCmd{OutputFlag: OutputFlag{Output: formatTable}}
	err := cmd.Run(context.Background(), f.globals)
	require.ErrorIs(t, err, auth.ErrAccessDenied)
	assert.Zero(t, f.dev.Count(console.OpGetUsers))
}

func TestUsersDeleteCmd(t *testing.T) {
	f := newFixture(t)
	f.loginAdmin(t)

	f.dev.Handle(console.OpDeleteUser, func(req graphqltest.Request) (any, []graphql.Error) {
		return map[string]any{"deleteUser": true}, nil
	})

	id := uuid.NewString()
	require.NoError(t, (&UsersDeleteCmd{ID: id, Yes: true}).Run(context.Background(), f.globals))
	assert.Equal(t, "User "+id+" deleted.\n", f.out.String())

	reqs := f.dev.Requests(console.OpDeleteUser)
	require.Len(t, reqs, 1)
	assert.Equal(t, id, reqs[0].Variables["uuid"])
}

func TestUsersDeleteCmd_RequiresConfirmation(t *testing.T) {
	if isInteractive() {
		t.Skip("stdin is a terminal")
	}
	f := newFixture(t)
	f.loginAdmin(t)

	err := (&UsersDeleteCmd{ID: uuid.NewString()}).Run(context.Background(), f.globals)
	require.ErrorContains(t, err, "--yes")
	assert.Zero(t, f.dev.Count(console.OpDeleteUser))
}

func TestAppViewsCreateCmd_FromFile(t *testing.T) {
	f := newFixture(t)
	f.loginAdmin(t)

	file := filepath.Join(t.TempDir(), "cardiology.yaml")
	require.NoError(t, os.WriteFile(file, []byte("name: Cardiology\napplications: [skinive, i-virtual]\nprofile: [identity]\n"), 0o600))

	id := uuid.NewString()
	f.dev.Handle(console.OpCreateAppView, func(req graphqltest.Request) (any, []graphql.Error) {
		in := req.Variables["input"].(map[string]any)
		return map[string]any{"createAppView": map[string]any{
			"uuid":         id,
			"name":         in["name"],
			"applications": in["applications"],
			"profile":      in["profile"],
		}}, nil
	})

	cmd := &AppViewsCreateCmd{AppViewFields: AppViewFields{File: file, Name: "Cardio team"}}
	require.NoError(t, cmd.Run(context.Background(), f.globals))
	assert.Equal(t, "AppView Cardio team created ("+id+").\n", f.out.String())

	reqs := f.dev.Requests(console.OpCreateAppView)
	require.Len(t, reqs, 1)
	in := reqs[0].Variables["input"].(map[string]any)
	assert.Equal(t, "Cardio team", in["name"])
	assert.Equal(t, []any{
		map[string]any{"id": "skinive", "order": float64(1)},
		map[string]any{"id": "i-virtual", "order": float64(2)},
	}, in["applications"])
}

func TestAppViewsCreateCmd_Invalid(t *testing.T) {
	f := newFixture(t)
	f.loginAdmin(t)

	cmd := &AppViewsCreateCmd{AppViewFields: AppViewFields{Name: "ab", Applications: []string{"skinive"}, Profile: []string{"identity"}}}
	err := cmd.Run(context.Background(), f.globals)
	require.ErrorIs(t, err, console.ErrInvalidInput)
	assert.Zero(t, f.dev.Count(console.OpCreateAppView))
}

func TestAppViewsAssignCmd(t *testing.T) {
	f := newFixture(t)
	f.loginAdmin(t)

	f.dev.Handle(console.OpAssignAppViewToUsers, func(req graphqltest.Request) (any, []graphql.Error) {
		return map[string]any{"assignAppViewToUsers": true}, nil
	})

	cmd := &AppViewsAssignCmd{ID: uuid.NewString(), Users: []string{uuid.NewString(), uuid.NewString()}}
	require.NoError(t, cmd.Run(context.Background(), f.globals))
	assert.Equal(t, "AppView assigned to 2 user(s).\n", f.out.String())
}

func TestAppViewsCatalogCmd(t *testing.T) {
	f := newFixture(t)

	cmd := &AppViewsCatalogCmd{OutputFlag: OutputFlag{Output: formatYAML}}
	require.NoError(t, cmd.Run(context.Background(), f.globals))
	assert.Contains(t, f.out.String(), "applications:")
	assert.Contains(t, f.out.String(), "- identity")
}

func TestVersionCmd(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, (&VersionCmd{}).Run(context.Background(), f.globals))
	assert.Equal(t, "twin-admin-cli test\n", f.out.String())
}

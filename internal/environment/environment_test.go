package environment

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector_Get(t *testing.T) {
	t.Run("defaults to dev", func(t *testing.T) {
		sel, err := NewSelector(t.TempDir(), nil)
		require.NoError(t, err)
		assert.Equal(t, Dev, sel.Get())
	})

	t.Run("defaults to dev when stored value is malformed", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, selectionFile), []byte(`{"selected_environment":"staging"}`), 0600))

		sel, err := NewSelector(dir, nil)
		require.NoError(t, err)
		assert.Equal(t, Dev, sel.Get())
	})

	t.Run("defaults to dev when file is garbage", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, selectionFile), []byte("prod"), 0600))

		sel, err := NewSelector(dir, nil)
		require.NoError(t, err)
		assert.Equal(t, Dev, sel.Get())
	})
}

func TestSelector_SetPersists(t *testing.T) {
	dir := t.TempDir()
	sel, err := NewSelector(dir, nil)
	require.NoError(t, err)

	require.NoError(t, sel.Set(Prod))
	assert.Equal(t, Prod, sel.Get())

	reloaded, err := NewSelector(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, Prod, reloaded.Get())
}

func TestSelector_SetRejectsUnknown(t *testing.T) {
	sel, err := NewSelector(t.TempDir(), nil)
	require.NoError(t, err)

	err = sel.Set("staging")
	require.ErrorIs(t, err, ErrUnknownEnvironment)
	assert.Equal(t, Dev, sel.Get())
}

func TestSelector_Subscribe(t *testing.T) {
	sel, err := NewSelector(t.TempDir(), nil)
	require.NoError(t, err)

	var mu sync.Mutex
	var first, second []Environment

	cancel := sel.Subscribe(func(env Environment) {
		mu.Lock()
		defer mu.Unlock()
		first = append(first, env)
	})
	sel.Subscribe(func(env Environment) {
		mu.Lock()
		defer mu.Unlock()
		second = append(second, env)
	})

	require.NoError(t, sel.Set(Prod))
	require.NoError(t, sel.Set(Dev))
	cancel()
	require.NoError(t, sel.Set(Prod))

	assert.Equal(t, []Environment{Prod, Dev}, first)
	assert.Equal(t, []Environment{Prod, Dev, Prod}, second)
}

func TestSelector_ConfigFor(t *testing.T) {
	sel, err := NewSelector(t.TempDir(), nil)
	require.NoError(t, err)

	dev := sel.ConfigFor(Dev)
	assert.Equal(t, "https://api.my-twin.io/graphql", dev.GraphQLURL)
	assert.False(t, dev.UsesRefreshToken)
	assert.Equal(t, "Development", dev.Label)

	prod := sel.ConfigFor(Prod)
	assert.Equal(t, "https://mytwin-backend.osc-fr1.scalingo.io/graphql", prod.GraphQLURL)
	assert.True(t, prod.UsesRefreshToken)

	assert.Len(t, sel.All(), 2)
	assert.Equal(t, dev, sel.Config())
}

func TestSelector_Overrides(t *testing.T) {
	t.Run("replaces endpoint but keeps scheme", func(t *testing.T) {
		sel, err := NewSelector(t.TempDir(), map[Environment]Config{
			Prod: {GraphQLURL: "http://localhost:4000/graphql"},
		})
		require.NoError(t, err)

		prod := sel.ConfigFor(Prod)
		assert.Equal(t, "http://localhost:4000/graphql", prod.GraphQLURL)
		assert.True(t, prod.UsesRefreshToken)
		assert.Equal(t, "Production", prod.Label)
	})

	t.Run("rejects unknown environment", func(t *testing.T) {
		_, err := NewSelector(t.TempDir(), map[Environment]Config{
			"staging": {GraphQLURL: "http://localhost"},
		})
		require.ErrorIs(t, err, ErrUnknownEnvironment)
	})
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Environment
		wantErr bool
	}{
		{in: "dev", want: Dev},
		{in: "prod", want: Prod},
		{in: "PROD", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownEnvironment)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mytwin/twin-admin/internal/graphql"
)

func TestSetup_Level(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, Setup(false).GetLevel())
	assert.Equal(t, zerolog.DebugLevel, Setup(true).GetLevel())
}

func TestOperations_LogsGraphQLErrors(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	h := graphql.Chain(func(ctx context.Context, op *graphql.Operation) (*graphql.Response, error) {
		return &graphql.Response{Errors: []graphql.Error{{
			Message:    "Unauthorized",
			Path:       []any{"users"},
			Extensions: map[string]any{"code": "UNAUTHENTICATED"},
		}}}, nil
	}, Operations(log))

	op := graphql.NewOperation("GetUsers", "query GetUsers { users { uuid } }", map[string]any{"password": "hunter22"})
	op.Header.Set("Authorization", "Bearer secret-token")

	_, err := h(context.Background(), op)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"operation":"GetUsers"`)
	assert.Contains(t, out, `"code":"UNAUTHENTICATED"`)
	assert.Contains(t, out, `"message":"Unauthorized"`)
	assert.NotContains(t, out, "hunter22")
	assert.NotContains(t, out, "secret-token")
}

func TestOperations_LogsTransportErrors(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	boom := errors.New("connection refused")
	h := graphql.Chain(func(ctx context.Context, op *graphql.Operation) (*graphql.Response, error) {
		return nil, boom
	}, Operations(log))

	_, err := h(context.Background(), graphql.NewOperation("Login", "", nil))
	require.ErrorIs(t, err, boom)

	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "connection refused")
}

package graphql_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mytwin/twin-admin/internal/graphql"
	"github.com/mytwin/twin-admin/internal/graphql/graphqltest"
)

func TestClient_Do(t *testing.T) {
	srv := graphqltest.NewServer(t)
	srv.Handle("Me", func(req graphqltest.Request) (any, []graphql.Error) {
		return map[string]any{"me": map[string]any{"uuid": "u1", "role": "admin"}}, nil
	})

	client := graphql.NewClient(graphql.NewTransport(srv.Endpoint(), nil).Handle)

	var out struct {
		Me struct {
			UUID string `json:"uuid"`
			Role string `json:"role"`
		} `json:"me"`
	}
	err := client.Do(context.Background(), graphql.NewOperation("Me", "query Me { me { uuid role } }", nil), &out)
	require.NoError(t, err)
	assert.Equal(t, "u1", out.Me.UUID)
	assert.Equal(t, "admin", out.Me.Role)

	reqs := srv.Requests("Me")
	require.Len(t, reqs, 1)
	assert.Equal(t, "application/json", reqs[0].Header.Get("Content-Type"))
}

func TestClient_DoSendsHeadersAndVariables(t *testing.T) {
	srv := graphqltest.NewServer(t)
	srv.Handle("DeleteUser", func(req graphqltest.Request) (any, []graphql.Error) {
		return map[string]any{"deleteUser": true}, nil
	})

	client := graphql.NewClient(graphql.NewTransport(srv.Endpoint(), nil).Handle)

	op := graphql.NewOperation("DeleteUser", "mutation DeleteUser($uuid: String!) { deleteUser(uuid: $uuid) }",
		map[string]any{"uuid": "abc"})
	op.Header.Set("Authorization", "Bearer T")

	require.NoError(t, client.Do(context.Background(), op, nil))

	reqs := srv.Requests("DeleteUser")
	require.Len(t, reqs, 1)
	assert.Equal(t, "T", reqs[0].Bearer())
	assert.Equal(t, "abc", reqs[0].Variables["uuid"])
}

func TestClient_DoReturnsResponseError(t *testing.T) {
	srv := graphqltest.NewServer(t)
	srv.Handle("Users", func(req graphqltest.Request) (any, []graphql.Error) {
		return nil, graphqltest.Unauthenticated()
	})

	client := graphql.NewClient(graphql.NewTransport(srv.Endpoint(), nil).Handle)

	err := client.Do(context.Background(), graphql.NewOperation("Users", "query Users { users { uuid } }", nil), nil)
	require.Error(t, err)

	var respErr *graphql.ResponseError
	require.ErrorAs(t, err, &respErr)
	require.Len(t, respErr.Errors, 1)
	assert.Equal(t, "UNAUTHENTICATED", respErr.Errors[0].Code())
	assert.Contains(t, err.Error(), "Users")
}

func TestClient_DoNullData(t *testing.T) {
	srv := graphqltest.NewServer(t)
	srv.Handle("Me", func(req graphqltest.Request) (any, []graphql.Error) {
		return nil, nil
	})

	client := graphql.NewClient(graphql.NewTransport(srv.Endpoint(), nil).Handle)

	err := client.Do(context.Background(), graphql.NewOperation("Me", "query Me { me { uuid } }", nil), nil)
	require.ErrorIs(t, err, graphql.ErrNoData)
}

func TestTransport_StatusErrors(t *testing.T) {
	t.Run("non graphql body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := graphql.NewTransport(srv.URL, nil).Handle(context.Background(), graphql.NewOperation("Me", "{ me { uuid } }", nil))

		var statusErr *graphql.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	})

	t.Run("graphql errors on 401 are returned as a response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"errors":[{"message":"Authentication required","extensions":{"code":"UNAUTHENTICATED"}}]}`))
		}))
		defer srv.Close()

		resp, err := graphql.NewTransport(srv.URL, nil).Handle(context.Background(), graphql.NewOperation("Me", "{ me { uuid } }", nil))
		require.NoError(t, err)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "UNAUTHENTICATED", resp.Errors[0].Code())
		assert.False(t, resp.HasData())
	})
}

func TestChain_Order(t *testing.T) {
	var calls []string
	mw := func(name string) graphql.Middleware {
		return func(next graphql.Handler) graphql.Handler {
			return func(ctx context.Context, op *graphql.Operation) (*graphql.Response, error) {
				calls = append(calls, name)
				return next(ctx, op)
			}
		}
	}

	final := func(ctx context.Context, op *graphql.Operation) (*graphql.Response, error) {
		calls = append(calls, "transport")
		return &graphql.Response{Data: []byte(`{}`)}, nil
	}

	h := graphql.Chain(final, mw("error"), mw("auth"))
	_, err := h(context.Background(), graphql.NewOperation("Op", "{}", nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"error", "auth", "transport"}, calls)
}

func TestOperation_Clone(t *testing.T) {
	op := graphql.NewOperation("Op", "{}", nil)
	op.Header.Set("Authorization", "Bearer A1")

	c := op.Clone()
	c.Header.Set("Authorization", "Bearer A2")

	assert.Equal(t, "Bearer A1", op.Header.Get("Authorization"))
	assert.Equal(t, "Bearer A2", c.Header.Get("Authorization"))
}

func TestTransport_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := graphql.NewTransport(url, nil).Handle(context.Background(), graphql.NewOperation("Me", "{}", nil))
	require.Error(t, err)

	var statusErr *graphql.StatusError
	assert.False(t, errors.As(err, &statusErr))
}

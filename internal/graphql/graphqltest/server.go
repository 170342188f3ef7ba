// Package graphqltest provides an in-process GraphQL endpoint for tests.
package graphqltest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mytwin/twin-admin/internal/graphql"
)

// Request is a recorded inbound operation.
type Request struct {
	OperationName string
	Query         string
	Variables     map[string]any
	Header        http.Header
}

// Bearer returns the token of the Authorization header, or "".
func (r Request) Bearer() string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

// Resolver answers one operation. Returning a nil data with errors produces
// `"data": null`.
type Resolver func(req Request) (data any, errs []graphql.Error)

// Server is a GraphQL endpoint dispatching on operationName.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	resolvers map[string]Resolver
	requests  []Request
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	s := &Server{resolvers: make(map[string]Resolver)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Endpoint returns the URL of the GraphQL endpoint.
func (s *Server) Endpoint() string {
	return s.Server.URL + "/graphql"
}

// Handle registers the resolver for an operation name.
func (s *Server) Handle(operation string, r Resolver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolvers[operation] = r
}

// Requests returns the recorded requests for operation, in arrival order.
func (s *Server) Requests(operation string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Request
	for _, r := range s.requests {
		if r.OperationName == operation {
			out = append(out, r)
		}
	}
	return out
}

// Count returns how many times operation was received.
func (s *Server) Count(operation string) int {
	return len(s.Requests(operation))
}

// Unauthenticated is the error a backend sends for a bad or expired token.
func Unauthenticated() []graphql.Error {
	return []graphql.Error{{
		Message:    "Unauthorized",
		Extensions: map[string]any{"code": "UNAUTHENTICATED"},
	}}
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query         string         `json:"query"`
		Variables     map[string]any `json:"variables"`
		OperationName string         `json:"operationName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := Request{
		OperationName: body.OperationName,
		Query:         body.Query,
		Variables:     body.Variables,
		Header:        r.Header.Clone(),
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	resolver, ok := s.resolvers[body.OperationName]
	s.mu.Unlock()

	var data any
	var errs []graphql.Error
	if ok {
		data, errs = resolver(req)
	} else {
		errs = []graphql.Error{{Message: "unknown operation " + body.OperationName}}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Data   any             `json:"data"`
		Errors []graphql.Error `json:"errors,omitempty"`
	}{Data: data, Errors: errs})
}

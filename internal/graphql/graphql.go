// Package graphql is a small GraphQL-over-HTTP client built around a
// middleware chain, so authentication and error recovery can wrap every
// operation without the callers knowing.
package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoData is returned when a response carries neither data nor errors.
var ErrNoData = errors.New("graphql response has no data")

// Operation is a single query or mutation plus the headers it is sent with.
type Operation struct {
	Name      string
	Query     string
	Variables map[string]any
	Header    http.Header
}

// NewOperation creates an operation with an empty header set.
func NewOperation(name, query string, variables map[string]any) *Operation {
	return &Operation{
		Name:      name,
		Query:     query,
		Variables: variables,
		Header:    make(http.Header),
	}
}

// Clone returns a copy whose headers can be changed independently.
func (o *Operation) Clone() *Operation {
	c := *o
	c.Header = o.Header.Clone()
	if c.Header == nil {
		c.Header = make(http.Header)
	}
	return &c
}

// Location points into the query document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Error is one entry of a response's errors list.
type Error struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Code returns extensions.code, or "" when the server did not set one.
func (e Error) Code() string {
	code, _ := e.Extensions["code"].(string)
	return code
}

func (e Error) Error() string {
	return e.Message
}

// Response is the decoded response body.
type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []Error         `json:"errors,omitempty"`
}

// HasData reports whether data is present and not null.
func (r *Response) HasData() bool {
	return len(r.Data) > 0 && string(r.Data) != "null"
}

// ResponseError is returned by Client.Do when the server reported errors.
type ResponseError struct {
	Operation string
	Errors    []Error
}

func (e *ResponseError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Message)
	}
	return fmt.Sprintf("%s: %s", e.Operation, strings.Join(msgs, "; "))
}

// Handler executes an operation. Errors reported inside a response are not
// handler errors: they come back in Response.Errors.
type Handler func(ctx context.Context, op *Operation) (*Response, error)

// Middleware wraps a Handler.
type Middleware func(next Handler) Handler

// Chain builds a handler where the first middleware sees the operation first.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Client runs operations through a handler chain and decodes results.
type Client struct {
	handler Handler
}

// NewClient creates a client from a fully assembled chain.
func NewClient(h Handler) *Client {
	return &Client{handler: h}
}

// Execute returns the raw response of op.
func (c *Client) Execute(ctx context.Context, op *Operation) (*Response, error) {
	if op.Header == nil {
		op.Header = make(http.Header)
	}
	return c.handler(ctx, op)
}

// Do executes op and decodes data into out, which may be nil. Reported
// GraphQL errors are returned as *ResponseError.
func (c *Client) Do(ctx context.Context, op *Operation, out any) error {
	resp, err := c.Execute(ctx, op)
	if err != nil {
		return err
	}

	if len(resp.Errors) > 0 {
		return &ResponseError{Operation: op.Name, Errors: resp.Errors}
	}

	if !resp.HasData() {
		return fmt.Errorf("%s: %w", op.Name, ErrNoData)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op.Name, err)
	}
	return nil
}

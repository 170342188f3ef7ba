package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
)

type contextKey string

const requestIDContextKey contextKey = "request_id"

// RequestIDHeader carries a per-request correlation id to the backend.
const RequestIDHeader = "X-Request-Id"

// WithRequestID pins the id sent for requests made with ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// RequestIDFromContext returns the id stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// headerTransport stamps identifying headers on every outbound request.
type headerTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())

	if req.Header.Get(RequestIDHeader) == "" {
		id := RequestIDFromContext(req.Context())
		if id == "" {
			id = uuid.NewString()
		}
		req.Header.Set(RequestIDHeader, id)
	}

	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	return t.base.RoundTrip(req)
}

// NewTransport returns the round tripper used for backend calls: request id
// and user agent headers, with transparent gzip response decoding.
// A nil base uses http.DefaultTransport.
func NewTransport(base http.RoundTripper, userAgent string) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return gzhttp.Transport(&headerTransport{base: base, userAgent: userAgent})
}

package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 10 << 20

// StatusError is returned when the endpoint answers with a non-2xx status
// and a body that is not a GraphQL response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("graphql endpoint returned status %d: %s", e.StatusCode, e.Body)
}

type request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Transport posts operations to a GraphQL endpoint. It is the innermost
// handler of every chain.
type Transport struct {
	endpoint   string
	httpClient *http.Client
}

// NewTransport creates a transport for endpoint. A nil httpClient uses
// http.DefaultClient.
func NewTransport(endpoint string, httpClient *http.Client) *Transport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Transport{endpoint: endpoint, httpClient: httpClient}
}

// Endpoint returns the URL operations are posted to.
func (t *Transport) Endpoint() string {
	return t.endpoint
}

// Handle implements Handler.
func (t *Transport) Handle(ctx context.Context, op *Operation) (*Response, error) {
	body, err := json.Marshal(request{
		Query:         op.Query,
		Variables:     op.Variables,
		OperationName: op.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", op.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range op.Header {
		req.Header[k] = append([]string(nil), v...)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", op.Name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", op.Name, err)
	}

	var out Response
	decodeErr := json.Unmarshal(data, &out)

	// Servers commonly send auth failures as 4xx with a GraphQL body; keep
	// those errors visible to the chain.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && len(out.Errors) > 0 {
			return &out, nil
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(data), 256)}
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", op.Name, decodeErr)
	}
	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Package jsonrpc provides a generic JSON-RPC 2.0 client implementation over
// HTTP, suitable for Ethereum-compatible blockchain nodes. Transport failures
// are classified into sentinel errors so callers can apply different backoff
// policies per failure class.
package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
)

var (
	// ErrProviderReturnedError indicates that the remote JSON-RPC server
	// returned an error response.
	ErrProviderReturnedError = errors.New("provider error")

	// ErrRateLimited indicates the endpoint rejected the request with
	// HTTP 429 semantics.
	ErrRateLimited = errors.New("rate limited by provider")

	// ErrTimeout indicates the request did not complete within the HTTP
	// client's deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrNullResult indicates the server answered successfully but the
	// result was JSON null (e.g., a block not yet present on the node).
	ErrNullResult = errors.New("null result")
)

// response represents a standard JSON-RPC 2.0 response.
type response struct {
	JsonRPC string `json:"jsonrpc"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Result json.RawMessage `json:"result"`
}

// Err returns an error if the response includes a JSON-RPC error object,
// wrapping ErrProviderReturnedError with the code and message.
func (r response) Err() error {
	if r.Error == nil {
		return nil
	}

	return fmt.Errorf("%w: [%d] - %s", ErrProviderReturnedError, r.Error.Code, r.Error.Message)
}

// Client is the interface for a generic JSON-RPC client, abstracting the
// underlying implementation for mocking in tests.
type Client interface {
	// Fetch sends a JSON-RPC request with the given method name and
	// parameters. It returns the raw JSON result, or an error classified
	// as ErrRateLimited, ErrTimeout, ErrNullResult, or
	// ErrProviderReturnedError where applicable.
	Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// client is the default implementation of Client.
type client struct {
	providerEndpoint string       // URL of the remote JSON-RPC server
	httpClient       *http.Client // HTTP client used to perform requests
}

var _ Client = (*client)(nil)

// Fetch sends a JSON-RPC request to the remote server. The request id is a
// generated UUID string.
func (c *client) Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      uuid.NewString(),
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.providerEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s %s", ErrTimeout, method, c.providerEndpoint)
		}
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, c.providerEndpoint)
	}

	var data response
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, err
	}

	if err := data.Err(); err != nil {
		return nil, err
	}

	if len(data.Result) == 0 || bytes.Equal(data.Result, []byte("null")) {
		return nil, ErrNullResult
	}

	return data.Result, nil
}

// NewClient returns a Client that sends JSON-RPC requests to
// providerEndpoint using the given HTTP client.
func NewClient(httpClient *http.Client, providerEndpoint string) *client {
	return &client{
		providerEndpoint: providerEndpoint,
		httpClient:       httpClient,
	}
}

package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"solana-staking-ledger/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second
)

// HTTPClient implements ClusterClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint   string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
	requestID  atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
// Transport failures, 429 and non-200 statuses are retried; RPC errors are not.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
	}()

	raw, err := retry.DoWithData(
		func() (json.RawMessage, error) {
			return c.post(ctx, body)
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)+1),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(c.maxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var rpcErr *RPCError
			return !errors.As(err, &rpcErr) && !errors.Is(err, errDecodeResult)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Str("method", method).
				Uint("attempt", n+1).
				Err(err).
				Msg("solana rpc call failed, retrying")
		}),
	)
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return rpcErr
		}
		return fmt.Errorf("%s: %w", method, err)
	}

	if result != nil && raw != nil {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

var errDecodeResult = errors.New("decode response")

// post sends one request and returns the raw result.
func (c *HTTPClient) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// Handle rate limiting
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("%w: %v", errDecodeResult, err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// GetSlot retrieves the current slot.
func (c *HTTPClient) GetSlot(ctx context.Context) (int64, error) {
	var result int64
	if err := c.call(ctx, "getSlot", nil, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// GetBlockTime retrieves the estimated production time of a block.
func (c *HTTPClient) GetBlockTime(ctx context.Context, slot int64) (*int64, error) {
	params := []interface{}{slot}
	var result *int64
	if err := c.call(ctx, "getBlockTime", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetHealth returns nil when the node answers "ok".
func (c *HTTPClient) GetHealth(ctx context.Context) error {
	var result string
	if err := c.call(ctx, "getHealth", nil, &result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("node unhealthy: %s", result)
	}
	return nil
}

// Verify interface compliance at compile time.
var _ ClusterClient = (*HTTPClient)(nil)

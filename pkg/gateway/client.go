package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the JSON-over-HTTP implementation of Gateway.
type Client struct {
	httpClient *http.Client
	config     ClientConfig
}

// ClientConfig holds configuration for the HTTP gateway client.
type ClientConfig struct {
	// Name is the gateway identifier.
	Name string

	// BaseURL is the backend root, e.g. "https://core.example.bank/api/v1".
	BaseURL string

	// Timeout bounds each backend call. The resilience wrapper usually
	// applies a tighter per-call deadline on top.
	Timeout time.Duration

	// HTTPClient overrides the underlying client. Nil uses a default one
	// built from Timeout.
	HTTPClient *http.Client
}

// DefaultClientConfig returns sensible defaults for the HTTP client.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		Name:    "backend",
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// NewClient creates an HTTP gateway client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("gateway: base URL required")
	}
	if config.Name == "" {
		config.Name = "backend"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		httpClient: httpClient,
		config:     config,
	}, nil
}

// Name returns the gateway identifier.
func (c *Client) Name() string {
	return c.config.Name
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// OpenAgency implements Gateway.OpenAgency.
func (c *Client) OpenAgency(ctx context.Context, req OpenAgencyRequest) (*AgencySession, error) {
	var resp AgencySession
	if err := c.post(ctx, "/sessions/agency/open", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CloseAgency implements Gateway.CloseAgency.
func (c *Client) CloseAgency(ctx context.Context, req CloseAgencyRequest) error {
	return c.post(ctx, "/sessions/agency/close", req, nil)
}

// OpenTillWindow implements Gateway.OpenTillWindow.
func (c *Client) OpenTillWindow(ctx context.Context, req OpenTillWindowRequest) (*TillWindowSession, error) {
	var resp TillWindowSession
	if err := c.post(ctx, "/sessions/till-window/open", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CloseTillWindow implements Gateway.CloseTillWindow.
func (c *Client) CloseTillWindow(ctx context.Context, req CloseTillWindowRequest) error {
	return c.post(ctx, "/sessions/till-window/close", req, nil)
}

// OpenCashDrawer implements Gateway.OpenCashDrawer.
func (c *Client) OpenCashDrawer(ctx context.Context, req OpenCashDrawerRequest) (*CashDrawerSession, error) {
	var resp CashDrawerSession
	if err := c.post(ctx, "/sessions/cash-drawer/open", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CloseCashDrawer implements Gateway.CloseCashDrawer.
func (c *Client) CloseCashDrawer(ctx context.Context, req CloseCashDrawerRequest) error {
	return c.post(ctx, "/sessions/cash-drawer/close", req, nil)
}

// SubmitWithdrawal implements Gateway.SubmitWithdrawal.
func (c *Client) SubmitWithdrawal(ctx context.Context, req WithdrawalRequest) (*OperationResult, error) {
	var resp OperationResult
	if err := c.post(ctx, "/operations/withdrawals", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitDeposit implements Gateway.SubmitDeposit.
func (c *Client) SubmitDeposit(ctx context.Context, req DepositRequest) (*OperationResult, error) {
	var resp OperationResult
	if err := c.post(ctx, "/operations/deposits", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConfirmOperation implements Gateway.ConfirmOperation.
func (c *Client) ConfirmOperation(ctx context.Context, req ConfirmOperationRequest) (*OperationResult, error) {
	var resp OperationResult
	if err := c.post(ctx, "/operations/confirmations", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// errorPayload is the backend's structured rejection body.
type errorPayload struct {
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"errors,omitempty"`
}

// post sends a JSON request and decodes the JSON response into out (when out
// is non-nil). 4xx answers become RejectionError, 5xx and transport failures
// become ErrUnavailable, deadline overruns become ErrTimeout.
func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("gateway: failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(c.config.BaseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("gateway: failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer httpResp.Body.Close()

	switch {
	case httpResp.StatusCode >= 500:
		return fmt.Errorf("%w: backend answered %d", ErrUnavailable, httpResp.StatusCode)

	case httpResp.StatusCode >= 400:
		payload := errorPayload{Message: http.StatusText(httpResp.StatusCode)}
		// Decode errors are ignored: an unreadable body falls back to the
		// generic status text.
		_ = json.NewDecoder(io.LimitReader(httpResp.Body, 1<<20)).Decode(&payload)
		return &RejectionError{
			StatusCode:  httpResp.StatusCode,
			Message:     payload.Message,
			FieldErrors: payload.FieldErrors,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}
	return nil
}

// Package client provides a Go client for the counter HTTP API
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amirphl/counter-clean-arch/app/dto"
	"github.com/amirphl/counter-clean-arch/models"
)

// APIError is a non-2xx answer from the counter API
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("counter api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("counter api: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is the API's COUNTER_NOT_FOUND answer
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// CounterAPI is the subset of the HTTP API used by OptimisticCounter and the CLI.
// An empty id addresses the default counter.
type CounterAPI interface {
	Get(ctx context.Context, id string) (models.Counter, error)
	Increment(ctx context.Context, id string, amount *int64) (models.Counter, error)
	Decrement(ctx context.Context, id string, amount *int64) (models.Counter, error)
	Reset(ctx context.Context, id string) (models.Counter, error)
}

// CounterClient calls the counter HTTP API
type CounterClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewCounterClient(baseURL string, timeout time.Duration) *CounterClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CounterClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type counterEnvelope struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Data    *dto.CounterEnvelope `json:"data"`
	Error   *dto.ErrorDetail     `json:"error"`
}

func (c *CounterClient) Get(ctx context.Context, id string) (models.Counter, error) {
	return c.do(ctx, http.MethodGet, counterPath(id, ""), nil)
}

func (c *CounterClient) Increment(ctx context.Context, id string, amount *int64) (models.Counter, error) {
	return c.do(ctx, http.MethodPost, counterPath(id, "increment"), amountBody(amount))
}

func (c *CounterClient) Decrement(ctx context.Context, id string, amount *int64) (models.Counter, error) {
	return c.do(ctx, http.MethodPost, counterPath(id, "decrement"), amountBody(amount))
}

func (c *CounterClient) Reset(ctx context.Context, id string) (models.Counter, error) {
	return c.do(ctx, http.MethodPost, counterPath(id, "reset"), nil)
}

func counterPath(id, op string) string {
	p := "/api/v1/counter"
	if id != "" {
		p = "/api/v1/counters/" + url.PathEscape(id)
	}
	if op != "" {
		p += "/" + op
	}
	return p
}

func amountBody(amount *int64) any {
	if amount == nil {
		return nil
	}
	return dto.CounterAmountBody{Amount: amount}
}

func (c *CounterClient) do(ctx context.Context, method, path string, payload any) (models.Counter, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return models.Counter{}, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return models.Counter{}, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return models.Counter{}, err
	}
	defer resp.Body.Close()

	var env counterEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return models.Counter{}, &APIError{StatusCode: resp.StatusCode}
		}
		return models.Counter{}, fmt.Errorf("counter api: decode response for %s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK || !env.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: env.Message}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
		}
		return models.Counter{}, apiErr
	}
	if env.Data == nil {
		return models.Counter{}, fmt.Errorf("counter api: empty data for %s", path)
	}
	return env.Data.Counter.ToCounter()
}

// Package api provides a client for the water-level telemetry API.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"nivel_exporter/internal/types"
)

// ErrEmptyResponse is returned when the API answers successfully but carries no readings.
var ErrEmptyResponse = errors.New("empty response")

// APIClient handles HTTP requests to the telemetry API.
type APIClient struct {
	baseURL    string
	order      types.Order
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewAPIClient creates a new telemetry API client.
// order declares how the array endpoint arranges its samples.
func NewAPIClient(baseURL string, order types.Order, timeout time.Duration, logger *slog.Logger) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		order:   order,
		logger:  logger,
		now:     time.Now,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// doRequest performs an HTTP request and returns the body of a 200 response.
func (c *APIClient) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("API request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Request failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Non-200 status", "method", method, "path", path, "status", resp.StatusCode)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(data))
	}

	c.logger.Debug("API response", "method", method, "path", path, "bytes", len(data))

	return data, nil
}

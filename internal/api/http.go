package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	headerAPIKey        = "x-api-key"
	headerAccept        = "Accept"
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerRequestID     = "X-Request-ID"
	headerUserAgent     = "User-Agent"
	contentTypeJSON     = "application/json"
	clientUserAgent     = "classroom-go/1.0.0"
)

// Operation names used for logging and metrics.
const (
	opSignIn       = "signin"
	opProfile      = "profile"
	opClassMembers = "class_members"
)

// response is a fully read HTTP response.
type response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r *response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// doRequest performs one HTTP request and returns the status and body.
// Non-2xx statuses are not errors here; each operation maps them itself.
func (c *Client) doRequest(ctx context.Context, op, method, path, token string, body interface{}) (*response, error) {
	start := time.Now()
	requestID := uuid.NewString()

	resp, err := c.send(ctx, method, path, token, requestID, body)

	took := time.Since(start)
	var opErr error = err
	if err == nil && !resp.OK() {
		opErr = fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	c.metrics.ObserveAPI(op, opErr, took)

	attrs := []any{
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", requestID),
		slog.Duration("duration", took),
	}
	switch {
	case err != nil:
		c.logger.Warn("request failed", append(attrs, slog.String("error", err.Error()))...)
	case !resp.OK():
		c.logger.Warn("request rejected", append(attrs, slog.Int("status", resp.StatusCode))...)
	default:
		c.logger.Debug("request", append(attrs, slog.Int("status", resp.StatusCode))...)
	}

	return resp, err
}

func (c *Client) send(ctx context.Context, method, path, token, requestID string, body interface{}) (*response, error) {
	reqURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerAccept, contentTypeJSON)
	req.Header.Set(headerAPIKey, c.apiKey)
	req.Header.Set(headerUserAgent, clientUserAgent)
	req.Header.Set(headerRequestID, requestID)
	if token != "" {
		req.Header.Set(headerAuthorization, "Bearer "+token)
	}
	if body != nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// get performs a GET request.
func (c *Client) get(ctx context.Context, op, path, token string) (*response, error) {
	return c.doRequest(ctx, op, http.MethodGet, path, token, nil)
}

// post performs a POST request.
func (c *Client) post(ctx context.Context, op, path, token string, body interface{}) (*response, error) {
	return c.doRequest(ctx, op, http.MethodPost, path, token, body)
}

// Package api is the client for the guild REST API. Responses are read as
// text first and then decoded into explicit schemas, so a body that does not
// parse surfaces as a DecodeError carrying the raw text.
package api

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

	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
)

const maxResponseBytes = 8 << 20

var errTimeout = errors.New("API request timed out")

// Client talks to the guild API under a single base URL.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	logger     *logging.ChanneledLogger
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg Config, logger *logging.ChanneledLogger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("API base URL is not configured")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid API base URL scheme %q", base.Scheme)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		timeout:    cfg.Timeout,
		logger:     logger,
	}, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// resolve joins an escaped relative path onto the base URL.
func (c *Client) resolve(path string, query url.Values) (string, error) {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid API path %q: %w", path, err)
	}
	u := c.baseURL.ResolveReference(ref)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// do sends one request and returns the body of a 2xx answer.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	target, err := c.resolve(path, query)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	c.logger.API().Debug("Calling guild API", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.logger.API().Warn("Guild API request timed out", "method", method, "path", path, "duration", time.Since(start))
			return nil, fmt.Errorf("%s %s: %w", method, path, errTimeout)
		}
		c.logger.API().Error("Guild API request failed", "method", method, "path", path, "error", err.Error())
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", path, err)
	}

	duration := time.Since(start)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.API().Warn("Guild API returned error status", "method", method, "path", path, "status", resp.StatusCode, "duration", duration)
		return nil, &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: truncate(string(raw), 1024)}
	}

	c.logger.API().Info("Guild API call completed", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(raw), "duration", duration)
	return raw, nil
}

// IsTimeout reports whether err came from the per-request deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, errTimeout)
}

func decode[T any](path string, raw []byte) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &DecodeError{Path: path, Raw: string(raw), Err: err}
	}
	return out, nil
}

// decodeList accepts a bare array or an envelope with results or items.
func decodeList[T any](path string, raw []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, &DecodeError{Path: path, Raw: string(raw), Err: errors.New("empty body")}
	}
	if trimmed[0] == '[' {
		return decode[[]T](path, trimmed)
	}

	var envelope struct {
		Results json.RawMessage `json:"results"`
		Items   json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, &DecodeError{Path: path, Raw: string(raw), Err: err}
	}
	switch {
	case len(envelope.Results) > 0 && string(envelope.Results) != "null":
		return decode[[]T](path, envelope.Results)
	case len(envelope.Items) > 0 && string(envelope.Items) != "null":
		return decode[[]T](path, envelope.Items)
	default:
		return nil, &DecodeError{Path: path, Raw: string(raw), Err: errors.New("expected an array or a results/items envelope")}
	}
}

func getOne[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	raw, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](path, raw)
}

func getList[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	raw, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[T](path, raw)
}

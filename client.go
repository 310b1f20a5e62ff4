package steprun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Client is the HTTP adapter every API service goes through. Before each
// request it reads the bearer token from the configured TokenSource and
// attaches it as an Authorization header when present. Failure responses
// are normalized into *ErrHTTP carrying the server's message field, and
// the configured Notifier fires once per rejected request regardless of
// which store triggered it.
//
// There is no retry, no timeout beyond the injected http.Client's, and
// no request deduplication.
type Client struct {
	baseURL string
	hc      *http.Client
	tokens  TokenSource
	notify  Notifier
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying http.Client. Default: http.DefaultClient.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.hc = hc }
}

// WithTokenSource sets where the bearer token is read from before each
// request. Default: no token, requests go out unauthenticated.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *Client) { c.tokens = ts }
}

// WithNotifier sets the sink for user-facing error notifications (the
// toast analogue). Default: notifications are dropped.
func WithNotifier(n Notifier) ClientOption {
	return func(c *Client) { c.notify = n }
}

// WithLogger sets a structured logger for request debug logs.
// If not set, no logs are emitted.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client for the service at baseURL
// (e.g. "https://api.steprun.dev").
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      http.DefaultClient,
		notify:  nopNotifier{},
		logger:  nopLogger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// fallbackMessage is used when an error response carries no message field.
const fallbackMessage = "Request failed"

// errBody is the shape error responses are expected to carry.
type errBody struct {
	Message string `json:"message"`
	// FastAPI-style backends put the message under "detail".
	Detail string `json:"detail"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, path, "", nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	rd, err := jsonBody(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, "application/json", rd, out)
}

// postForm sends an application/x-www-form-urlencoded body. The login
// endpoint is the only caller.
func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	rd := strings.NewReader(form.Encode())
	return c.do(ctx, http.MethodPost, path, "application/x-www-form-urlencoded", rd, out)
}

func (c *Client) patch(ctx context.Context, path string, body, out any) error {
	rd, err := jsonBody(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPatch, path, "application/json", rd, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, "", nil, nil)
}

func jsonBody(body any) (io.Reader, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return bytes.NewReader(data), nil
}

// do sends one request and decodes a 2xx response body into out (out may
// be nil for endpoints that return nothing).
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Request-ID", NewID())
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		c.logger.Debug("steprun: no response", "method", method, "path", path, "err", err)
		return ErrNoResponse
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := c.errorMessage(resp)
		c.logger.Debug("steprun: request rejected", "method", method, "path", path, "status", resp.StatusCode, "message", msg)
		c.notify.Notify(msg)
		return &ErrHTTP{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ErrNoResponse
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the server-supplied message from a failure
// response, falling back to a generic string.
func (c *Client) errorMessage(resp *http.Response) string {
	data, err := io.ReadAll(resp.Body)
	if err != nil || len(data) == 0 {
		return fallbackMessage
	}
	var eb errBody
	if err := json.Unmarshal(data, &eb); err != nil {
		return fallbackMessage
	}
	if eb.Message != "" {
		return eb.Message
	}
	if eb.Detail != "" {
		return eb.Detail
	}
	return fallbackMessage
}

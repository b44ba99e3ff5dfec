package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kbukum/tuplestream/resilience"
)

// maxErrorBody caps how much of a failed stream response is read for the error.
const maxErrorBody = 1 << 20

// Client sends requests to one backend, applying auth, TLS, retry, rate
// limiting and a circuit breaker as configured.
type Client struct {
	cfg     Config
	plain   *http.Client
	streams *http.Client
	cb      *resilience.CircuitBreaker
	rl      *resilience.RateLimiter
}

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}

	c := &Client{
		cfg:   cfg,
		plain: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		// no client timeout: a stream lives as long as its context
		streams: &http.Client{Transport: transport},
	}
	if cfg.CircuitBreaker != nil {
		cb := *cfg.CircuitBreaker
		if cb.IsFailure == nil {
			cb.IsFailure = isBackendFailure
		}
		c.cb = resilience.NewCircuitBreaker(cb)
	}
	if cfg.RateLimiter != nil {
		c.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}
	return c, nil
}

// Do sends req and reads the whole response. Failed statuses are returned as
// *Error together with the response.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	once := func() (*Response, error) {
		var resp *Response
		err := c.guard(ctx, func() (err error) {
			resp, err = c.roundTrip(ctx, req)
			return err
		})
		return resp, err
	}
	if c.cfg.Retry == nil {
		return once()
	}
	return resilience.Retry(ctx, *c.cfg.Retry, once)
}

// DoStream sends req and hands back the unread body. The rate limiter and
// circuit breaker cover opening the stream; it is never retried. The caller
// must Close the result.
func (c *Client) DoStream(ctx context.Context, req Request) (*StreamResponse, error) {
	var out *StreamResponse
	err := c.guard(ctx, func() error {
		resp, err := c.send(ctx, c.streams, req)
		if err != nil {
			return err
		}
		if resp.StatusCode >= http.StatusBadRequest {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			_ = resp.Body.Close()
			return ClassifyStatusCode(resp.StatusCode, body)
		}
		out = &StreamResponse{StatusCode: resp.StatusCode, Headers: firstValues(resp.Header), Body: resp.Body}
		return nil
	})
	return out, err
}

// IsAvailable reports whether the circuit breaker lets requests through.
func (c *Client) IsAvailable() bool {
	return c.cb == nil || c.cb.State() != resilience.StateOpen
}

// Close drops idle connections.
func (c *Client) Close() error {
	c.plain.CloseIdleConnections()
	return nil
}

func (c *Client) guard(ctx context.Context, fn func() error) error {
	if c.rl != nil {
		if err := c.rl.Wait(ctx); err != nil {
			return err
		}
	}
	if c.cb == nil {
		return fn()
	}
	return c.cb.Execute(fn)
}

func (c *Client) roundTrip(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.send(ctx, c.plain, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewConnectionError(fmt.Errorf("read response body: %w", err))
	}
	out := &Response{StatusCode: resp.StatusCode, Headers: firstValues(resp.Header), Body: body}
	if err := ClassifyStatusCode(resp.StatusCode, body); err != nil {
		return out, err
	}
	return out, nil
}

func (c *Client) send(ctx context.Context, hc *http.Client, req Request) (*http.Response, error) {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewTimeoutError(err)
		}
		return nil, NewConnectionError(err)
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("encode body: %v", err))
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.resolve(req.Path), body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("create request: %v", err))
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}
	for _, headers := range []map[string]string{c.cfg.Headers, req.Headers} {
		for k, v := range headers {
			httpReq.Header.Set(k, v)
		}
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	auth := c.cfg.Auth
	if req.Auth != nil {
		auth = req.Auth
	}
	auth.apply(httpReq)
	return httpReq, nil
}

// resolve joins path onto the base URL unless path is already absolute.
func (c *Client) resolve(path string) string {
	if c.cfg.BaseURL == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// isBackendFailure keeps rejected requests from opening the circuit.
func isBackendFailure(err error) bool {
	e, ok := AsError(err)
	return !ok || e.Retryable
}

func encodeBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case url.Values:
		return strings.NewReader(v.Encode()), "application/x-www-form-urlencoded", nil
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}

func firstValues(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

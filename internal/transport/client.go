// Package transport is the HTTP plumbing shared by the provider clients.
//
// Every call returns a normalized Response so challenge and conflict
// detection can inspect status, headers and body the same way for every
// provider. Non-2xx responses come back as *StatusError.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/systmms/relsetup/internal/logging"
)

// DefaultTimeout bounds a single round-trip.
const DefaultTimeout = 30 * time.Second

// UserAgent is sent with every request.
const UserAgent = "relsetup"

// Request describes one API call.
type Request struct {
	Method string
	Path   string // appended to the client's base URL; may be absolute
	Query  url.Values
	Header http.Header
	Body   interface{} // JSON-encoded when non-nil
}

// Response is the normalized result of a call.
type Response struct {
	Status int
	Body   []byte
	Header http.Header
}

// JSON decodes the body into v.
func (r *Response) JSON(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Provider string
	Method   string
	URL      string
	Response *Response
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(string(e.Response.Body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s %s: status %d", e.Provider, e.Method, e.URL, e.Response.Status)
	}
	return fmt.Sprintf("%s: %s %s: status %d: %s", e.Provider, e.Method, e.URL, e.Response.Status, msg)
}

// ResponseOf extracts the response carried by a *StatusError.
func ResponseOf(err error) (*Response, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Response, true
	}
	return nil, false
}

// HasStatus reports whether err is a *StatusError with the given status.
func HasStatus(err error, status int) bool {
	resp, ok := ResponseOf(err)
	return ok && resp.Status == status
}

// Observer is notified after every completed round-trip.
type Observer func(provider string, status int)

// Client performs JSON requests against one base URL.
type Client struct {
	provider   string
	base       string
	header     http.Header
	query      url.Values
	httpClient *http.Client
	log        *logging.Logger
	observe    Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHeader sets a header on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Set(key, value) }
}

// WithQuery adds a query parameter to every request.
func WithQuery(key, value string) Option {
	return func(c *Client) { c.query.Set(key, value) }
}

// WithLogger traces requests at debug level.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithObserver registers a round-trip observer (metrics).
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observe = o }
}

// New creates a client for provider rooted at base.
func New(provider, base string, opts ...Option) *Client {
	c := &Client{
		provider:   provider,
		base:       strings.TrimRight(base, "/"),
		header:     make(http.Header),
		query:      make(url.Values),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        logging.Nop(),
	}
	c.header.Set("User-Agent", UserAgent)
	c.header.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Base returns the base URL.
func (c *Client) Base() string {
	return c.base
}

// Do executes req and returns the normalized response.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	target, err := c.resolve(req)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		buf, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", c.provider, err)
		}
		body = bytes.NewReader(buf)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", c.provider, err)
	}
	for k, vs := range c.header {
		httpReq.Header[k] = append([]string(nil), vs...)
	}
	for k, vs := range req.Header {
		httpReq.Header[k] = append([]string(nil), vs...)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("%s request %s %s", c.provider, method, maskURL(target))
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.provider, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", c.provider, err)
	}
	resp := &Response{Status: httpResp.StatusCode, Body: data, Header: httpResp.Header}

	c.log.Debug("%s response %d %s", c.provider, resp.Status, maskURL(target))
	if c.observe != nil {
		c.observe(c.provider, resp.Status)
	}

	if resp.Status < 200 || resp.Status > 299 {
		return resp, &StatusError{Provider: c.provider, Method: method, URL: maskURL(target), Response: resp}
	}
	return resp, nil
}

func (c *Client) resolve(req Request) (string, error) {
	raw := req.Path
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		if raw != "" && !strings.HasPrefix(raw, "/") {
			raw = "/" + raw
		}
		raw = c.base + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid %s url %q: %w", c.provider, raw, err)
	}

	q := u.Query()
	for k, vs := range c.query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	for k, vs := range req.Query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

var tokenParam = regexp.MustCompile(`((?:token|circle-token|access_token)=)([^&]{0,4})[^&]*`)

// maskURL hides credentials carried in query strings.
func maskURL(s string) string {
	return tokenParam.ReplaceAllString(s, "${1}${2}xxxx")
}

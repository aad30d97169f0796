// Package apiclient talks to the member app REST API. Client is the raw transport
// and owns the authentication endpoints; API wraps any Requester with the domain
// endpoints.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
)

// Request describes one API call. Path is relative to the client's base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any // JSON encoded when non-nil
	Header http.Header

	// Retried marks a request that has already been replayed after a token
	// refresh. A retried request is never replayed again.
	Retried bool
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.Wrap(err, "Response.Decode")
	}
	return nil
}

// Requester performs API calls. Client implements it directly; the session wraps
// it with bearer tokens and refresh-on-401.
type Requester interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Paths are the endpoint paths the client relies on.
type Paths struct {
	Auth        string
	Refresh     string
	CurrentUser string
	Events      string
	Locations   string
}

func DefaultPaths() Paths {
	return Paths{
		Auth:        "/auth",
		Refresh:     "/refresh_token",
		CurrentUser: "/users/me",
		Events:      "/events",
		Locations:   "/users",
	}
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	paths      Paths
	log        zerolog.Logger
}

var _ Requester = (*Client)(nil)

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func WithPaths(paths Paths) ClientOption {
	return func(c *Client) {
		c.paths = paths
	}
}

func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

func New(baseURL string, options ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("[apiclient.New] invalid base URL %q", baseURL)
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		paths:      DefaultPaths(),
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

func (c *Client) Paths() Paths {
	return c.paths
}

// IsAuthPath reports whether path is the login or refresh endpoint. Responses
// from these endpoints are never intercepted for token refresh.
func (c *Client) IsAuthPath(path string) bool {
	return path == c.paths.Auth || path == c.paths.Refresh
}

// Do sends req. Transport failures return *NetworkError, non-2xx responses return
// *HTTPStatusError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, errors.Wrapf(err, "[Client.Do] marshal %s %s", req.Method, req.Path)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Do] NewRequest")
	}
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	requestID := uuid.New().String()
	httpReq.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Debug().Err(err).Str("method", req.Method).Str("path", req.Path).Str("request_id", requestID).Msg("request failed")
		return nil, &NetworkError{Method: req.Method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{Method: req.Method, Path: req.Path, Err: err}
	}

	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Bool("retried", req.Retried).
		Dur("elapsed", time.Since(start)).
		Str("request_id", requestID).
		Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{Method: req.Method, Path: req.Path, Status: resp.StatusCode, Body: data}
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

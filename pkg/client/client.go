// Package client is an HTTP client for the mytaskpanel JSON API.
package client

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ericfisherdev/mytaskpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TaskSource = (*Client)(nil)

// Client talks to a remote mytaskpanel server. It implements
// driven.TaskSource, so a local process can list and update tasks through
// another instance's API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a Client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

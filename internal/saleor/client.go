// Package saleor is a small GraphQL client for the Saleor API, used to seed
// dashboard sessions with API tokens and to cross-check playground queries.
package saleor

import (
	"context"
	"encoding/json"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"
	"k8s.io/klog/v2"

	"github.com/saleor-qa/dashboard-e2e/internal/version"
)

// Config configures a Client.
type Config struct {
	Endpoint   string
	UserAgent  string
	Timeout    time.Duration
	RetryCount int
	Debug      bool
}

// Client executes GraphQL operations against one Saleor endpoint.
type Client struct {
	http     *resty.Client
	endpoint string

	mu    sync.RWMutex
	token string
}

// Request is a GraphQL request body.
type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
	OperationName string                 `json:"operationName,omitempty"`
}

type response struct {
	Data   json.RawMessage    `json:"data"`
	Errors []GraphQLErrorItem `json:"errors"`
}

// NewClient creates a client for cfg.Endpoint.
func NewClient(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = version.UserAgent()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	if jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}); err == nil {
		httpClient.SetCookieJar(jar)
	}
	if cfg.Debug {
		httpClient.SetDebug(true)
	}

	c := &Client{http: httpClient, endpoint: cfg.Endpoint}

	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if token := c.Token(); token != "" {
			req.SetAuthToken(token)
		}
		return nil
	})
	httpClient.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		if resp.IsSuccess() {
			return nil
		}
		return &HTTPError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	})

	return c
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Execute runs query and decodes the data field into out (may be nil).
func (c *Client) Execute(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	var resp response
	start := time.Now()
	_, err := c.http.R().
		SetContext(ctx).
		SetBody(Request{Query: query, Variables: variables}).
		SetResult(&resp).
		Post(c.endpoint)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		return errors.Wrapf(err, "request to %s failed", c.endpoint)
	}
	klog.V(4).Infof("[saleor] query took %v", time.Since(start))

	if len(resp.Errors) > 0 {
		return &GraphQLError{Errors: resp.Errors}
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return errors.Wrap(err, "failed to decode response data")
	}
	return nil
}

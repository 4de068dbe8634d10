// Package artifactory talks to the repository server's storage API.
package artifactory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/taigrr/artifact-reaper/internal/retry"
	"github.com/taigrr/artifact-reaper/internal/types"
	"github.com/taigrr/artifact-reaper/internal/uri"
)

// Config holds client configuration.
type Config struct {
	BaseURL  string
	User     string
	Password string
	Timeout  time.Duration
	Retry    retry.Policy
}

// Client fetches listings and deletes items. It implements walker.Fetcher.
type Client struct {
	baseURL    string
	user       string
	password   string
	httpClient *http.Client
	policy     retry.Policy
	logger     *zap.Logger
}

// New creates a client. logger may be nil.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:  cfg.BaseURL,
		user:     cfg.User,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		policy: cfg.Retry,
		logger: logger,
	}
}

// HasCredentials reports whether a user name and password are configured.
func (c *Client) HasCredentials() bool {
	return c.user != "" && c.password != ""
}

func (c *Client) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}
	return req, nil
}

// Fetch returns the storage API answer for a catalog key. Server-side
// failures reported in an "errors" array come back on the node.
func (c *Client) Fetch(ctx context.Context, key string) (*types.DirectoryNode, error) {
	url := uri.StorageURL(c.baseURL, key)

	return retry.Do(ctx, c.policy, func(ctx context.Context) (*types.DirectoryNode, error) {
		req, err := c.newRequest(ctx, http.MethodGet, url)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, retry.Transient(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			return nil, retry.Transient(fmt.Errorf("server error: %d", resp.StatusCode))
		}

		var node types.DirectoryNode
		if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
			if resp.StatusCode >= 300 {
				return nil, fmt.Errorf("server returned %d", resp.StatusCode)
			}
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		if resp.StatusCode >= 300 && len(node.Errors) == 0 {
			node.Errors = []types.Status{{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}}
		}
		return &node, nil
	}, func(attempt int, err error) {
		c.logger.Debug("retrying fetch", zap.String("key", key), zap.Int("attempt", attempt), zap.Error(err))
	})
}

// Delete removes an item and returns the HTTP status.
func (c *Client) Delete(ctx context.Context, key string) (int, error) {
	return c.do(ctx, http.MethodDelete, key)
}

// Probe issues a GET for an item, exercising the same path and
// credentials a delete would use.
func (c *Client) Probe(ctx context.Context, key string) (int, error) {
	return c.do(ctx, http.MethodGet, key)
}

func (c *Client) do(ctx context.Context, method, key string) (int, error) {
	req, err := c.newRequest(ctx, method, uri.ItemURL(c.baseURL, key))
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, key, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

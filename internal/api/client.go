// Package api implements the HTTP client for the detection service.
package api

import (
	"fmt"
	"sync"
	"time"

	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	apierrors "github.com/diogo/detectchat/internal/errors"
	"github.com/diogo/detectchat/internal/models"
)

// DetectClient posts prompts to <base URL>/detect
type DetectClient struct {
	httpClient tls_client.HttpClient
	// resolveBaseURL is called on every request so environment changes are picked up
	resolveBaseURL func() (string, error)
	timeout        time.Duration
	mu             sync.RWMutex
	closed         bool
}

// ClientOption is a function that configures the client
type ClientOption func(*DetectClient)

// WithHTTPClient replaces the underlying TLS client, mainly for tests
func WithHTTPClient(httpClient tls_client.HttpClient) ClientOption {
	return func(c *DetectClient) {
		c.httpClient = httpClient
	}
}

// WithBaseURLResolver sets a function that yields the base URL at call time
func WithBaseURLResolver(resolve func() (string, error)) ClientOption {
	return func(c *DetectClient) {
		c.resolveBaseURL = resolve
	}
}

// WithTimeout bounds each Detect call. Zero means no timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *DetectClient) {
		c.timeout = timeout
	}
}

// NewClient creates a new DetectClient
func NewClient(opts ...ClientOption) (*DetectClient, error) {
	client := &DetectClient{
		resolveBaseURL: func() (string, error) { return "", apierrors.ErrNoBackendURL },
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		// The per-call deadline comes from the context; the transport itself never times out
		options := []tls_client.HttpClientOption{
			tls_client.WithTimeoutSeconds(0),
			tls_client.WithClientProfile(profiles.Chrome_120),
			tls_client.WithNotFollowRedirects(),
		}

		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.httpClient = httpClient
	}

	return client, nil
}

// Endpoint returns the full detect URL for the current configuration
func (c *DetectClient) Endpoint() (string, error) {
	base, err := c.resolveBaseURL()
	if err != nil {
		return "", err
	}
	if base == "" {
		return "", apierrors.ErrNoBackendURL
	}
	return base + models.DetectPath, nil
}

// Timeout returns the per-call timeout; zero means none
func (c *DetectClient) Timeout() time.Duration {
	return c.timeout
}

// Close releases idle connections. Detect fails after Close.
func (c *DetectClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.httpClient.CloseIdleConnections()
}

// IsClosed returns whether the client is closed
func (c *DetectClient) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

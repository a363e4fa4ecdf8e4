package api

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	"github.com/diogo/chatdrawer/internal/models"
	"github.com/diogo/chatdrawer/internal/stream"
)

// DefaultTimeout bounds the wait for response headers. Reading the streamed
// body is not bounded.
const DefaultTimeout = 300 * time.Second

// Transport performs one outbound call per user turn
type Transport interface {
	// Send posts the full conversation history and returns the streamed body.
	// The caller owns Response.Body and must close it.
	Send(ctx context.Context, history []models.HistoryMessage) (*Response, error)
}

// Response is an open streamed reply from the endpoint
type Response struct {
	Body       io.ReadCloser
	Protocol   stream.Protocol
	StatusCode int
}

// Client is the HTTP transport for the chat endpoint
type Client struct {
	httpClient tls_client.HttpClient
	endpoint   string
	model      string
	headers    map[string]string
	timeout    time.Duration
	protocol   stream.Protocol
	mu         sync.RWMutex
	closed     bool
}

// Ensure Client implements Transport
var _ Transport = (*Client)(nil)

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithEndpoint sets the URL requests are posted to
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithModel sets the model identifier sent with every request
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithHeaders adds extra request headers; they override the defaults
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithTimeout sets how long Send waits for response headers
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient tls_client.HttpClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithProtocol forces the response framing instead of detecting it
func WithProtocol(protocol stream.Protocol) ClientOption {
	return func(c *Client) {
		c.protocol = protocol
	}
}

// NewClient creates a new Client
func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{
		endpoint: models.DefaultEndpoint,
		model:    models.DefaultModel,
		headers:  make(map[string]string),
		timeout:  DefaultTimeout,
		protocol: stream.ProtocolAuto,
	}

	for _, opt := range opts {
		opt(client)
	}

	if err := validateEndpoint(client.endpoint); err != nil {
		return nil, err
	}
	if _, err := stream.ParseProtocol(string(client.protocol)); err != nil {
		return nil, err
	}

	if client.httpClient == nil {
		// Send enforces the header timeout itself; a client timeout would
		// also cut off long streams.
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

func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid endpoint %q: scheme must be http or https", endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}
	return nil
}

// Close releases idle connections; later calls to Send fail
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.httpClient.CloseIdleConnections()
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Endpoint returns the URL requests are posted to
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Protocol returns the configured response framing
func (c *Client) Protocol() stream.Protocol {
	return c.protocol
}

// GetModel returns the model identifier
func (c *Client) GetModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// SetModel sets the model identifier
func (c *Client) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
}

// GetHTTPClient returns the underlying HTTP client
func (c *Client) GetHTTPClient() tls_client.HttpClient {
	return c.httpClient
}

package tenant

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/bcnelson/widget-authorizer/internal/config"
)

// maxResponseBytes bounds the admin response body that is read.
const maxResponseBytes = 1 << 20

// Response is the raw reply of the admin REST API.
type Response struct {
	StatusCode int
	Body       []byte
}

// AdminClient looks up tenant ids through the admin REST API. A returned error
// means the service could not be reached; any HTTP reply is a Response.
type AdminClient interface {
	GetTenantID(ctx context.Context, username string) (*Response, error)
}

// ClientFactory builds an AdminClient for the given credentials.
type ClientFactory func(cfg AdminAuthConfig) AdminClient

// HTTPClient calls GET <base>/tenantId?username=<username> with basic auth.
type HTTPClient struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewHTTPClientFactory returns a factory building HTTP clients with the transport
// settings in opts.
func NewHTTPClientFactory(opts config.AdminClientConfig) ClientFactory {
	return func(cfg AdminAuthConfig) AdminClient {
		return NewHTTPClient(cfg, opts)
	}
}

// NewHTTPClient creates an admin client for cfg.
func NewHTTPClient(cfg AdminAuthConfig, opts config.AdminClientConfig) *HTTPClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // development only
	}
	return &HTTPClient{
		baseURL:  cfg.ServiceBaseURL,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout:   opts.HTTPTimeout,
			Transport: transport,
		},
	}
}

// GetTenantID implements AdminClient.
func (c *HTTPClient) GetTenantID(ctx context.Context, username string) (*Response, error) {
	endpoint, err := url.JoinPath(c.baseURL, "tenantId")
	if err != nil {
		return nil, fmt.Errorf("building admin url: %w", err)
	}
	endpoint += "?" + url.Values{"username": {username}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building admin request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading admin response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

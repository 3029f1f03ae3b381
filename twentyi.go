// Package twentyi is a client for the 20i reseller hosting REST API.
//
// A [Client] resolves its credentials into a session token once, in [New],
// and sends it as a bearer token on every [Client.Get] and [Client.Post]:
//
//	c, err := twentyi.New(ctx, auth.ResellerOnly{ResellerToken: key})
//	domains, err := c.Get(ctx, "/domain")
//	_, err = c.Post(ctx, "/domain/example.com/claimName", nil)
//
// Responses are returned as decoded JSON values. Server reported errors are
// returned as [*client.APIError].
package twentyi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/harryyoud/twentyi/auth"
	"github.com/harryyoud/twentyi/client"
)

const (
	// DefaultBaseURL is the 20i REST API.
	DefaultBaseURL = "https://api.20i.com"
	// DefaultAuthURL is the 20i authentication service.
	DefaultAuthURL = auth.DefaultURL

	userAgent = "twentyi-go/1.0"
)

var (
	// ErrInvalidConfig is returned by [New] for unusable credentials or options.
	ErrInvalidConfig = auth.ErrInvalidConfig
	// ErrAuthentication is returned by [New] when no token could be obtained.
	ErrAuthentication = auth.ErrAuthentication
	// ErrEmptyEndpoint is returned by calls without an endpoint.
	ErrEmptyEndpoint = client.ErrEmptyEndpoint
	// ErrDecode is returned when a response body is not JSON.
	ErrDecode = client.ErrDecode
	// ErrAPI is returned when a response carries a structured error.
	ErrAPI = client.ErrAPI
	// ErrUnexpectedStatusCode is returned for other non-2xx responses.
	ErrUnexpectedStatusCode = client.ErrUnexpectedStatusCode
)

// Client calls the 20i REST API with a fixed token and base URL.
// It is safe for concurrent use.
type Client struct {
	api     *client.Client
	baseURL string
	token   auth.Token
}

// New resolves creds into a session token and returns a Client using it.
// Subuser credentials cause calls to the authentication service.
func New(ctx context.Context, creds auth.Credentials, optFns ...Option) (*Client, error) {
	opts := options{
		authURL: DefaultAuthURL,
		baseURL: DefaultBaseURL,
		logger:  slog.Default(),
	}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}

	token, err := auth.Resolve(ctx, creds,
		auth.WithURL(opts.authURL),
		auth.WithLogger(opts.logger),
		auth.WithClientOptions(opts.clientOpts...),
	)
	if err != nil {
		return nil, fmt.Errorf("resolving token: %w", err)
	}

	clientOpts := []client.Option{
		client.WithLogger(opts.logger),
		client.WithUserAgent(userAgent),
		client.WithRequestID(),
	}
	clientOpts = append(clientOpts, opts.clientOpts...)
	clientOpts = append(clientOpts, client.WithBearer(string(token)))

	api, err := client.Build(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: building api client: %w", ErrInvalidConfig, err)
	}

	return &Client{
		api:     api,
		baseURL: opts.baseURL,
		token:   token,
	}, nil
}

// Token returns the base64 encoded session token.
func (c *Client) Token() string {
	return string(c.token)
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get fetches endpoint and returns the decoded response.
func (c *Client) Get(ctx context.Context, endpoint string, opts ...CallOption) (any, error) {
	return c.call(ctx, http.MethodGet, endpoint, nil, opts)
}

// Post sends body, JSON encoded when not nil, to endpoint and returns the
// decoded response.
func (c *Client) Post(ctx context.Context, endpoint string, body any, opts ...CallOption) (any, error) {
	return c.call(ctx, http.MethodPost, endpoint, body, opts)
}

func (c *Client) call(ctx context.Context, method, endpoint string, body any, optFns []CallOption) (any, error) {
	if endpoint == "" {
		return nil, ErrEmptyEndpoint
	}

	var settings callOpts
	for _, opt := range optFns {
		if err := opt(&settings); err != nil {
			return nil, fmt.Errorf("applying call option: %w", err)
		}
	}

	if settings.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.timeout)
		defer cancel()
	}

	u, err := client.JoinURL(c.baseURL, endpoint)
	if err != nil {
		return nil, err
	}

	reqOpts := []client.RequestOption{
		client.WithQuery(settings.query),
		client.WithHeaders(settings.headers),
	}
	if body != nil {
		reqOpts = append(reqOpts, client.WithPayload(body))
	}

	req, err := c.api.Request(ctx, u, method, reqOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}

	var v any
	doOpts := []client.DoOption{client.WithDestination(&v)}
	if settings.useJSONNum {
		doOpts = append(doOpts, client.WithJSONNumb())
	}

	if err := c.api.Do(req, doOpts...); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}

	return v, nil
}

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/harryyoud/twentyi/client"
)

// DefaultURL is the 20i authentication service.
const DefaultURL = "https://auth-api.20i.com:3000"

const (
	authenticatePath = "/login/authenticate"
	stackUserPath    = "/user/stack-user"
	serviceUserPath  = "/user/service-user"
)

// Option is a functional option for [Resolve].
type Option func(*options) error
type options struct {
	authURL    string
	clientOpts []client.Option
	logger     *slog.Logger
}

// WithURL overrides [DefaultURL].
func WithURL(rawURL string) Option {
	return func(o *options) error {
		if err := CheckBaseURL(rawURL); err != nil {
			return err
		}
		o.authURL = rawURL
		return nil
	}
}

// WithClientOptions configures the HTTP client used to talk to the
// authentication service.
func WithClientOptions(opts ...client.Option) Option {
	return func(o *options) error {
		o.clientOpts = append(o.clientOpts, opts...)
		return nil
	}
}

// WithLogger injects a custom [slog.Logger].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return fmt.Errorf("%w: logger must not be nil", ErrInvalidConfig)
		}
		o.logger = logger
		return nil
	}
}

// Resolve turns creds into a session token.
//
// Reseller credentials are encoded directly. Subuser credentials are
// exchanged for an access token with the authentication service, which is
// called with the reseller token as bearer.
func Resolve(ctx context.Context, creds Credentials, optFns ...Option) (Token, error) {
	opts := options{
		authURL: DefaultURL,
		logger:  slog.Default(),
	}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return "", fmt.Errorf("applying auth option: %w", err)
		}
	}

	c, err := normalize(creds)
	if err != nil {
		return "", err
	}

	opts.logger.Info("resolving token", "credentials", c)

	switch c := c.(type) {
	case ResellerOnly:
		return Encode(c.ResellerToken), nil

	case ResellerWithPassword:
		s, err := newSession(opts, c.ResellerToken)
		if err != nil {
			return "", err
		}

		return s.authenticate(ctx, grant{
			GrantType: "password",
			Username:  c.Username,
			Password:  c.Password,
		})

	case ResellerWithUsername:
		s, err := newSession(opts, c.ResellerToken)
		if err != nil {
			return "", err
		}

		users, err := s.subusers(ctx)
		if err != nil {
			return "", err
		}

		user, ok := FindSubuser(users, c.Username)
		if !ok {
			return "", fmt.Errorf("%w: username %q not found in user list", ErrAuthentication, c.Username)
		}
		opts.logger.Debug("subuser matched", "username", user.Name, "scope", user.Scope())

		return s.authenticate(ctx, grant{
			GrantType: "client_credentials",
			Scope:     user.Scope(),
		})
	}

	return "", fmt.Errorf("%w: unsupported credentials %T", ErrInvalidConfig, creds)
}

// CheckBaseURL reports whether rawURL is an absolute http(s) URL.
func CheckBaseURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: parsing url %q: %w", ErrInvalidConfig, rawURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url %q must be absolute http(s)", ErrInvalidConfig, rawURL)
	}

	return nil
}

// session talks to the authentication service on behalf of a reseller.
type session struct {
	c       *client.Client
	authURL string
}

func newSession(opts options, resellerToken string) (*session, error) {
	if err := CheckBaseURL(opts.authURL); err != nil {
		return nil, err
	}

	clientOpts := append([]client.Option{client.WithLogger(opts.logger)}, opts.clientOpts...)
	clientOpts = append(clientOpts, client.WithBearer(resellerToken))

	c, err := client.Build(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: building auth client: %w", ErrInvalidConfig, err)
	}

	return &session{c: c, authURL: opts.authURL}, nil
}

// do calls path on the authentication service, wrapping every failure in
// ErrAuthentication.
func (s *session) do(ctx context.Context, method, path string, body any) (any, error) {
	u, err := client.JoinURL(s.authURL, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	var reqOpts []client.RequestOption
	if body != nil {
		reqOpts = append(reqOpts, client.WithPayload(body))
	}

	req, err := s.c.Request(ctx, u, method, reqOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	var v any
	if err := s.c.Do(req, client.WithDestination(&v), client.WithJSONNumb()); err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrAuthentication, method, path, err)
	}

	return v, nil
}

type grant struct {
	GrantType string `json:"grant_type"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
	Scope     string `json:"scope,omitempty"`
}

// authenticate exchanges g for an access token.
func (s *session) authenticate(ctx context.Context, g grant) (Token, error) {
	v, err := s.do(ctx, http.MethodPost, authenticatePath, g)
	if err != nil {
		return "", err
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return "", fmt.Errorf("%w: got unexpected response from login endpoint", ErrAuthentication)
	}

	accessToken, ok := obj["access_token"].(string)
	if !ok || accessToken == "" {
		return "", fmt.Errorf("%w: login response has no access_token", ErrAuthentication)
	}

	return Encode(accessToken), nil
}

// Subuser is an entry from the authentication service's user listings.
type Subuser struct {
	Name string
	Type string
	ID   string
}

// Scope identifies the subuser in a client credentials grant.
func (u Subuser) Scope() string {
	return u.Type + ":" + u.ID
}

// subusers lists stack users followed by service users.
func (s *session) subusers(ctx context.Context) ([]Subuser, error) {
	var users []Subuser
	for _, path := range []string{stackUserPath, serviceUserPath} {
		v, err := s.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}

		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s: expected a list, got %T", ErrAuthentication, path, v)
		}

		for _, entry := range list {
			if u, ok := parseSubuser(entry); ok {
				users = append(users, u)
			}
		}
	}

	return users, nil
}

// parseSubuser reads an entry of a user listing. Entries lacking a name,
// type or id are skipped.
func parseSubuser(entry any) (Subuser, bool) {
	obj, ok := entry.(map[string]any)
	if !ok {
		return Subuser{}, false
	}

	name, ok := obj["name"].(string)
	if !ok {
		return Subuser{}, false
	}

	typ, ok := literal(obj["type"])
	if !ok {
		return Subuser{}, false
	}

	id, ok := literal(obj["id"])
	if !ok {
		return Subuser{}, false
	}

	return Subuser{Name: name, Type: typ, ID: id}, true
}

func literal(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, v != ""
	case json.Number:
		return v.String(), true
	}

	return "", false
}

// FindSubuser returns the first user named name.
func FindSubuser(users []Subuser, name string) (Subuser, bool) {
	for _, u := range users {
		if u.Name == name {
			return u, true
		}
	}

	return Subuser{}, false
}

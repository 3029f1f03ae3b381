package twentyi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/harryyoud/twentyi/auth"
	"github.com/harryyoud/twentyi/client"
)

// Option is a functional option for [New].
type Option func(*options) error
type options struct {
	authURL    string
	baseURL    string
	clientOpts []client.Option
	logger     *slog.Logger
}

// WithAuthURL overrides [DefaultAuthURL].
func WithAuthURL(rawURL string) Option {
	return func(o *options) error {
		if err := auth.CheckBaseURL(rawURL); err != nil {
			return err
		}
		o.authURL = rawURL
		return nil
	}
}

// WithBaseURL overrides [DefaultBaseURL].
func WithBaseURL(rawURL string) Option {
	return func(o *options) error {
		if err := auth.CheckBaseURL(rawURL); err != nil {
			return err
		}
		o.baseURL = rawURL
		return nil
	}
}

// WithClientOptions configures the HTTP clients used for both the
// authentication service and the API.
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

// CallOption is a functional option for [Client.Get] and [Client.Post].
type CallOption func(*callOpts) error

type callOpts struct {
	timeout    time.Duration
	query      url.Values
	headers    http.Header
	useJSONNum bool
}

// WithTimeout bounds the whole call, including reading the response.
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOpts) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		o.timeout = d
		return nil
	}
}

// WithQuery adds query parameters to the request URL.
func WithQuery(query url.Values) CallOption {
	return func(o *callOpts) error {
		if o.query == nil {
			o.query = make(url.Values, len(query))
		}
		for k, v := range query {
			o.query[k] = append(o.query[k], v...)
		}
		return nil
	}
}

// WithHeader adds a request header. The Authorization header is always
// set from the session token and cannot be overridden.
func WithHeader(key, value string) CallOption {
	return func(o *callOpts) error {
		if key == "" {
			return errors.New("header key must not be empty")
		}
		if o.headers == nil {
			o.headers = make(http.Header)
		}
		o.headers.Add(key, value)
		return nil
	}
}

// WithJSONNumber decodes numbers as [encoding/json.Number] rather than
// float64, preserving large ids.
func WithJSONNumber() CallOption {
	return func(o *callOpts) error {
		o.useJSONNum = true
		return nil
	}
}

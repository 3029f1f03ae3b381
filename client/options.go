package client

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	client            *http.Client
	rt                http.RoundTripper
	timeout           *time.Duration
	userAgent         string
	noFollowRedirects bool
	logger            *slog.Logger
	tracerProvider    trace.TracerProvider
	bearer            *string
	requestID         bool
}

// WithClient uses a copy of hc as the underlying [http.Client].
// hc itself is never modified.
func WithClient(hc *http.Client) Option {
	return func(c *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		c.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithTimeout sets the overall request timeout on the underlying [http.Client].
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(c *options) error {
		c.userAgent = header
		return nil
	}
}

// WithNoFollowRedirects prevents the [Client] from following HTTP redirects.
func WithNoFollowRedirects() Option {
	return func(c *options) error {
		c.noFollowRedirects = true
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithTracerProvider sets the provider used to trace requests.
// The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *options) error {
		if tp == nil {
			return errors.New("tracer provider must not be nil")
		}
		c.tracerProvider = tp
		return nil
	}
}

// WithBearer sends "Authorization: Bearer <token>" on every request.
// The token is used verbatim.
func WithBearer(token string) Option {
	return func(c *options) error {
		if token == "" {
			return errors.New("bearer token must not be empty")
		}
		c.bearer = &token
		return nil
	}
}

// WithRequestID tags every outgoing request lacking one with a
// random X-Request-ID header.
func WithRequestID() Option {
	return func(c *options) error {
		c.requestID = true
		return nil
	}
}

// DoOption is a functional option for [Client.Do].
type DoOption func(options *doOpts) error

type doOpts struct {
	dest       *any
	useJSONNum bool
}

// WithDestination stores the decoded response value in dest.
func WithDestination(dest *any) DoOption {
	return func(opts *doOpts) error {
		if dest == nil {
			return errors.New("destination must not be nil")
		}
		opts.dest = dest

		return nil
	}
}

// WithJSONNumb tells the JSON decoder to use [json.Decoder.UseNumber],
// preserving number precision as [json.Number] instead of float64.
func WithJSONNumb() DoOption {
	return func(opts *doOpts) error {
		opts.useJSONNum = true

		return nil
	}
}

// RequestOption is a functional option for [Request].
type RequestOption func(options *requestOpts) error

type requestOpts struct {
	body        any
	contentType *string
	headers     http.Header
	query       url.Values
}

// WithPayload sets the JSON-encoded request body. A nil body sends none.
func WithPayload(body any) RequestOption {
	return func(opts *requestOpts) error {
		opts.body = body

		return nil
	}
}

// WithContentType overrides the default "application/json" Content-Type header.
func WithContentType(contentType string) RequestOption {
	return func(opts *requestOpts) error {
		if contentType == "" {
			return errors.New("cannot use empty content type")
		}

		opts.contentType = &contentType

		return nil
	}
}

// WithHeaders adds custom headers to the outgoing request.
func WithHeaders(headers http.Header) RequestOption {
	return func(opts *requestOpts) error {
		if opts.headers == nil {
			opts.headers = make(http.Header, len(headers))
		}
		for k, v := range headers {
			for _, element := range v {
				opts.headers.Add(k, element)
			}
		}

		return nil
	}
}

// WithQuery appends query parameters to the request URL, after any
// already present.
func WithQuery(query url.Values) RequestOption {
	return func(opts *requestOpts) error {
		if opts.query == nil {
			opts.query = make(url.Values, len(query))
		}
		for k, v := range query {
			opts.query[k] = append(opts.query[k], v...)
		}

		return nil
	}
}

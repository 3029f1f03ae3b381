package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/harryyoud/twentyi/client"

// Client wraps the std-lib *http.Client
// It sets a default *http.Client and *http.Transport, which
// can be customized via optional funcs.
type Client struct {
	c         *http.Client
	logger    *slog.Logger
	tracer    trace.Tracer
	requestID bool
}

func Build(optFns ...Option) (*Client, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	// Work on a copy so neither http.DefaultClient nor a caller's
	// client is mutated.
	hc := &http.Client{}
	if opts.client != nil {
		cpy := *opts.client
		hc = &cpy
	}

	client := &Client{
		c:         hc,
		logger:    slog.Default(),
		requestID: opts.requestID,
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	tp := opts.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	client.tracer = tp.Tracer(tracerName)

	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	if opts.bearer != nil {
		transport = bearer(*opts.bearer, transport)
	}
	client.c.Transport = transport

	return client, nil
}

// Do fires the request and decodes the response envelope. The decoded
// value is stored in the destination given with [WithDestination], if any.
//
// A body that is not JSON yields a [*DecodeError], a structured "error"
// member an [*APIError], and any other non-2xx status an
// [*UnexpectedStatusError].
func (c *Client) Do(req *http.Request, opts ...DoOption) error {
	var settings doOpts
	for _, opt := range opts {
		err := opt(&settings)
		if err != nil {
			return err
		}
	}

	ctx, span := c.tracer.Start(req.Context(), "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("server.address", req.URL.Host),
			attribute.String("url.path", req.URL.Path),
		),
	)
	defer span.End()

	req = req.Clone(ctx)
	if c.requestID && req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	v, code, err := c.exec(req, settings.useJSONNum)

	c.logger.Debug("request complete",
		"method", req.Method,
		"path", req.URL.Path,
		"status", code,
		"request_id", req.Header.Get(RequestIDHeader),
		"took", time.Since(start).String(),
	)

	if code != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", code))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if settings.dest != nil {
		*settings.dest = v
	}

	return nil
}

// exec runs the request and decodes the body, returning the status code
// whenever a response was received.
func (c *Client) exec(req *http.Request, useJSONNum bool) (any, int, error) {
	resp, err := c.c.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("exec http do: %w", err)
	}

	defer func() {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			c.logger.Error("failed to discard unused body", "error", err)
		}
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading body: %w", err)
	}

	v, err := decodeEnvelope(resp.StatusCode, body, useJSONNum)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	return v, resp.StatusCode, nil
}

// Request instantiates an *http.Request with the provided information.
// It's just a convenience method that wraps the public Request func.
func (c *Client) Request(ctx context.Context, reqURL *url.URL, method string, opts ...RequestOption) (*http.Request, error) {
	return Request(ctx, reqURL, method, opts...)
}

// Request instantiates an *http.Request with the provided information.
// A body is only sent when given via WithPayload, with a Content-Type of
// `application/json` unless overridden with WithContentType.
func Request(ctx context.Context, reqURL *url.URL, method string, opts ...RequestOption) (*http.Request, error) {
	var settings requestOpts
	for _, opt := range opts {
		err := opt(&settings)
		if err != nil {
			return nil, err
		}
	}

	target := *reqURL
	if len(settings.query) > 0 {
		q := target.Query()
		for k, v := range settings.query {
			for _, element := range v {
				q.Add(k, element)
			}
		}
		target.RawQuery = q.Encode()
	}

	var body io.Reader = http.NoBody
	if settings.body != nil {
		var payload bytes.Buffer
		if err := json.NewEncoder(&payload).Encode(settings.body); err != nil {
			return nil, fmt.Errorf("encoding request payload: %w", err)
		}
		body = &payload
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if settings.body != nil {
		contentType := "application/json"
		if settings.contentType != nil {
			contentType = *settings.contentType
		}
		req.Header.Set("Content-Type", contentType)
	}

	for k, v := range settings.headers {
		for _, element := range v {
			req.Header.Add(k, element)
		}
	}

	return req, nil
}

// JoinURL joins endpoint onto base with exactly one separating slash,
// whatever slashes either side carries.
func JoinURL(base, endpoint string) (*url.URL, error) {
	if endpoint == "" {
		return nil, ErrEmptyEndpoint
	}

	u, err := url.Parse(strings.TrimRight(base, "/") + "/" + strings.TrimLeft(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}

	return u, nil
}

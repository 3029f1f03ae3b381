// Package client provides the HTTP plumbing behind the twentyi API client,
// built on [net/http].
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithTimeout(10 * time.Second),
//		client.WithBearer(token),
//	)
//
// # Making Requests
//
// Join an endpoint onto a base URL, construct a [Request] and execute it
// with [Client.Do]:
//
//	u, err := client.JoinURL("https://api.20i.com", "/domain")
//	req, err := client.Request(ctx, u, http.MethodGet)
//
//	var domains any
//	err = c.Do(req, client.WithDestination(&domains))
//
// # Response Envelopes
//
// Every response body is parsed as JSON. A body that does not parse fails
// with [ErrDecode] whatever the status code. A parsed object with a non-null
// "error" member fails with an [*APIError] carrying the nested message.
// Any other non-2xx status fails with [ErrUnexpectedStatusCode].
// Otherwise the parsed value is returned as decoded: maps, slices,
// strings, float64 (or [json.Number] with [WithJSONNumb]), bools and nil.
//
// # Tracing
//
// Each call to [Client.Do] is recorded as an OpenTelemetry client span and
// the active trace context is propagated on the outgoing request. The global
// tracer provider is used unless [WithTracerProvider] is given.
package client

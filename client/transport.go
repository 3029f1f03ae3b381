package client

import (
	"net/http"

	"golang.org/x/oauth2"
)

// RequestIDHeader carries the per-request identifier set by [WithRequestID].
const RequestIDHeader = "X-Request-ID"

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}

// bearer wraps base so every request carries the given bearer token.
// The token never expires, so the oauth2 transport only sets the header.
func bearer(token string, base http.RoundTripper) http.RoundTripper {
	return &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: token,
			TokenType:   "Bearer",
		}),
		Base: base,
	}
}

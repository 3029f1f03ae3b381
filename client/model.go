package client

import (
	"errors"
	"fmt"
	"net/http"
)

// maxErrBodySize caps the amount of response body kept on an error
// returned for an undecodable or unexpected response.
const maxErrBodySize = 4 << 10 // 4KB

// maxBodySize caps the amount of response body read for decoding.
const maxBodySize = 32 << 20 // 32MB

var (
	// ErrEmptyEndpoint is returned when a call is made without an endpoint.
	ErrEmptyEndpoint = errors.New("endpoint must not be empty")
	// ErrDecode is the sentinel error wrapped by [DecodeError].
	ErrDecode = errors.New("response is not valid JSON")
	// ErrAPI is the sentinel error wrapped by [APIError].
	ErrAPI = errors.New("api error")
	// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrAuthFailure is joined with [ErrUnexpectedStatusCode] when the server
	// responds with 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
)

// UnexpectedStatusError is returned when the response status is not 2xx
// and the body carries no structured error.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when the response body cannot be parsed as JSON,
// whatever the status code.
type DecodeError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v (status %d): %v", ErrDecode, e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}

// APIError is an application level failure reported by the server in the
// "error" field of the response envelope.
type APIError struct {
	StatusCode int
	// Message is the nested error message, or the raw error value
	// rendered as text when no message is present.
	Message string
	// Raw is the decoded "error" value.
	Raw any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%v (status %d): %s", ErrAPI, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return ErrAPI
}

func statusErr(code int, body []byte) error {
	err := ErrUnexpectedStatusCode
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		err = errors.Join(ErrUnexpectedStatusCode, ErrAuthFailure)
	}

	return &UnexpectedStatusError{
		StatusCode: code,
		Body:       excerpt(body),
		Err:        err,
	}
}

func excerpt(body []byte) string {
	if len(body) > maxErrBodySize {
		body = body[:maxErrBodySize]
	}

	return string(body)
}

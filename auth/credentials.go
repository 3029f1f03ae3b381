package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrInvalidConfig is returned when credentials or settings have an
	// unsupported shape.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrAuthentication is returned when the authentication service cannot
	// produce a token for the given credentials.
	ErrAuthentication = errors.New("authentication failed")
)

// Credentials is one of [ResellerOnly], [ResellerWithUsername] or
// [ResellerWithPassword]. No other implementation exists.
type Credentials interface {
	mode() string
}

// ResellerOnly grants full reseller access using the reseller token alone.
type ResellerOnly struct {
	ResellerToken string `json:"reseller_token" validate:"required"`
}

// ResellerWithUsername limits access to the subuser with the given name,
// looked up with the reseller token.
type ResellerWithUsername struct {
	ResellerToken string `json:"reseller_token" validate:"required"`
	Username      string `json:"username" validate:"required"`
}

// ResellerWithPassword limits access to a subuser by logging in with its
// username and password.
type ResellerWithPassword struct {
	ResellerToken string `json:"reseller_token" validate:"required"`
	Username      string `json:"username" validate:"required"`
	Password      string `json:"password" validate:"required"`
}

func (ResellerOnly) mode() string         { return "reseller" }
func (ResellerWithUsername) mode() string { return "subuser" }
func (ResellerWithPassword) mode() string { return "subuser-password" }

// LogValue keeps the token out of logs.
func (c ResellerOnly) LogValue() slog.Value {
	return slog.GroupValue(slog.String("mode", c.mode()))
}

// LogValue keeps the token out of logs.
func (c ResellerWithUsername) LogValue() slog.Value {
	return slog.GroupValue(slog.String("mode", c.mode()), slog.String("username", c.Username))
}

// LogValue keeps the token and password out of logs.
func (c ResellerWithPassword) LogValue() slog.Value {
	return slog.GroupValue(slog.String("mode", c.mode()), slog.String("username", c.Username))
}

// normalize dereferences pointer variants and rejects anything that is not
// one of the three credential shapes, or whose required fields are empty.
func normalize(creds Credentials) (Credentials, error) {
	var c Credentials
	switch v := creds.(type) {
	case ResellerOnly, ResellerWithUsername, ResellerWithPassword:
		c = v
	case *ResellerOnly:
		if v != nil {
			c = *v
		}
	case *ResellerWithUsername:
		if v != nil {
			c = *v
		}
	case *ResellerWithPassword:
		if v != nil {
			c = *v
		}
	}

	if c == nil {
		return nil, fmt.Errorf("%w: please supply authentication", ErrInvalidConfig)
	}

	if err := Validate(c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return c, nil
}

// Token is a session token, base64 encoded for use as a bearer token.
type Token string

// Encode base64 encodes a raw token.
func Encode(raw string) Token {
	return Token(base64.StdEncoding.EncodeToString([]byte(raw)))
}

// LogValue keeps the token out of logs.
func (t Token) LogValue() slog.Value {
	return slog.StringValue("[redacted]")
}

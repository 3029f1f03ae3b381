// Package auth resolves 20i credentials into a session token.
//
// Credentials come in three shapes:
//
//	auth.ResellerOnly{ResellerToken: key}
//	auth.ResellerWithUsername{ResellerToken: key, Username: "jane"}
//	auth.ResellerWithPassword{ResellerToken: key, Username: "jane", Password: pw}
//
// The first is used as is. The other two are exchanged with the
// authentication service for an access token scoped to the subuser:
//
//	tok, err := auth.Resolve(ctx, creds, auth.WithURL(auth.DefaultURL))
//
// Failures are reported as [ErrInvalidConfig] for unusable credentials or
// settings, and [ErrAuthentication] when the service cannot produce a token.
package auth

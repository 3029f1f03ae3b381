package auth_test

import (
	"bytes"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/harryyoud/twentyi/auth"
	"github.com/harryyoud/twentyi/client"
	"github.com/harryyoud/twentyi/twentyitest"
)

const resellerKey = "c6d7b42a36fcd2625"

func b64(s string) auth.Token {
	return auth.Token(base64.StdEncoding.EncodeToString([]byte(s)))
}

func TestResolve_ResellerOnly(t *testing.T) {
	srv := twentyitest.NewServer(resellerKey)
	defer srv.Close()

	tok, err := auth.Resolve(t.Context(), auth.ResellerOnly{ResellerToken: resellerKey}, auth.WithURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tok != b64(resellerKey) {
		t.Errorf("expected %q, got %q", b64(resellerKey), tok)
	}
	if n := len(srv.Requests()); n != 0 {
		t.Errorf("expected no network calls, got %d", n)
	}
}

func TestResolve_ResellerWithPassword(t *testing.T) {
	srv := twentyitest.NewServer(resellerKey)
	defer srv.Close()

	srv.AddLogin("jane@example.com", "hunter2", "password-access-token")

	creds := &auth.ResellerWithPassword{
		ResellerToken: resellerKey,
		Username:      "jane@example.com",
		Password:      "hunter2",
	}

	tok, err := auth.Resolve(t.Context(), creds, auth.WithURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tok != b64("password-access-token") {
		t.Errorf("expected %q, got %q", b64("password-access-token"), tok)
	}

	reqs := srv.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}

	got := reqs[0]
	if got.Method != http.MethodPost || got.Path != "/login/authenticate" {
		t.Errorf("unexpected request %s %s", got.Method, got.Path)
	}
	if got.Authorization != "Bearer "+resellerKey {
		t.Errorf("expected reseller bearer, got %q", got.Authorization)
	}

	expBody := map[string]any{
		"grant_type": "password",
		"username":   "jane@example.com",
		"password":   "hunter2",
	}
	if diff := cmp.Diff(expBody, got.Body); diff != "" {
		t.Errorf("unexpected grant (-want +got):\n%s", diff)
	}
}

func TestResolve_ResellerWithUsername(t *testing.T) {
	testCases := map[string]struct {
		username string
		expScope string
	}{
		"stackUser": {
			username: "jane",
			expScope: "stack-user:42",
		},
		"serviceUser": {
			username: "ops",
			expScope: "service-user:abc",
		},
		"firstMatchWins": {
			username: "dup",
			expScope: "stack-user:1",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			srv := twentyitest.NewServer(resellerKey)
			defer srv.Close()

			srv.AddStackUser("jane", "stack-user", 42)
			srv.AddStackUser("dup", "stack-user", 1)
			srv.AddServiceUser("ops", "service-user", "abc")
			srv.AddServiceUser("dup", "service-user", 2)
			srv.AddScopeToken(tc.expScope, "scoped-"+tc.username)

			creds := auth.ResellerWithUsername{ResellerToken: resellerKey, Username: tc.username}

			tok, err := auth.Resolve(t.Context(), creds, auth.WithURL(srv.URL))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tok != b64("scoped-"+tc.username) {
				t.Errorf("expected %q, got %q", b64("scoped-"+tc.username), tok)
			}

			var paths []string
			for _, r := range srv.Requests() {
				paths = append(paths, r.Method+" "+r.Path)
				if r.Authorization != "Bearer "+resellerKey {
					t.Errorf("%s %s: expected reseller bearer, got %q", r.Method, r.Path, r.Authorization)
				}
			}

			expPaths := []string{
				"GET /user/stack-user",
				"GET /user/service-user",
				"POST /login/authenticate",
			}
			if diff := cmp.Diff(expPaths, paths); diff != "" {
				t.Errorf("unexpected requests (-want +got):\n%s", diff)
			}

			last := srv.Requests()[2].Body
			expBody := map[string]any{"grant_type": "client_credentials", "scope": tc.expScope}
			if diff := cmp.Diff(expBody, last); diff != "" {
				t.Errorf("unexpected grant (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_SkipsIncompleteEntries(t *testing.T) {
	srv := twentyitest.NewServer(resellerKey)
	defer srv.Close()

	srv.HandleRaw(http.MethodGet, "/user/stack-user", http.StatusOK,
		`[{"name":"jane"},"junk",{"name":"jane","type":"stack-user"},{"name":"jane","type":"stack-user","id":12345678901234567}]`)
	srv.AddScopeToken("stack-user:12345678901234567", "big-id-token")

	tok, err := auth.Resolve(t.Context(),
		auth.ResellerWithUsername{ResellerToken: resellerKey, Username: "jane"},
		auth.WithURL(srv.URL),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tok != b64("big-id-token") {
		t.Errorf("expected %q, got %q", b64("big-id-token"), tok)
	}
}

func TestResolve_InvalidCredentials(t *testing.T) {
	testCases := map[string]struct {
		creds     auth.Credentials
		expFields []string
	}{
		"nil": {
			creds: nil,
		},
		"nilPointer": {
			creds: (*auth.ResellerOnly)(nil),
		},
		"emptyReseller": {
			creds:     auth.ResellerOnly{},
			expFields: []string{"reseller_token"},
		},
		"usernameWithoutReseller": {
			creds:     auth.ResellerWithUsername{Username: "jane"},
			expFields: []string{"reseller_token"},
		},
		"passwordWithoutReseller": {
			creds:     &auth.ResellerWithPassword{Username: "jane", Password: "hunter2"},
			expFields: []string{"reseller_token"},
		},
		"emptyPasswordCredentials": {
			creds:     auth.ResellerWithPassword{},
			expFields: []string{"reseller_token", "username", "password"},
		},
		"emptyUsername": {
			creds:     auth.ResellerWithUsername{ResellerToken: resellerKey},
			expFields: []string{"username"},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			srv := twentyitest.NewServer(resellerKey)
			defer srv.Close()

			_, err := auth.Resolve(t.Context(), tc.creds, auth.WithURL(srv.URL))
			if !errors.Is(err, auth.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got: %v", err)
			}
			if n := len(srv.Requests()); n != 0 {
				t.Errorf("expected no network calls, got %d", n)
			}

			if tc.expFields == nil {
				return
			}

			var fe auth.FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("expected FieldErrors, got %T", err)
			}

			var fields []string
			for _, f := range fe {
				fields = append(fields, f.Field)
			}
			if diff := cmp.Diff(tc.expFields, fields); diff != "" {
				t.Errorf("unexpected fields (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_AuthenticationFailures(t *testing.T) {
	testCases := map[string]struct {
		setup    func(srv *twentyitest.Server)
		creds    auth.Credentials
		alsoErr  error
		contains string
	}{
		"unknownUsername": {
			setup: func(srv *twentyitest.Server) {
				srv.AddStackUser("jane", "stack-user", 42)
				srv.AddServiceUser("ops", "service-user", 7)
			},
			creds:    auth.ResellerWithUsername{ResellerToken: resellerKey, Username: "nobody"},
			contains: "not found in user list",
		},
		"missingAccessToken": {
			setup: func(srv *twentyitest.Server) {
				srv.HandleJSON(http.MethodPost, "/login/authenticate", http.StatusOK, map[string]string{"token_type": "bearer"})
			},
			creds:    auth.ResellerWithPassword{ResellerToken: resellerKey, Username: "jane", Password: "pw"},
			contains: "access_token",
		},
		"nonStringAccessToken": {
			setup: func(srv *twentyitest.Server) {
				srv.HandleRaw(http.MethodPost, "/login/authenticate", http.StatusOK, `{"access_token":12}`)
			},
			creds: auth.ResellerWithPassword{ResellerToken: resellerKey, Username: "jane", Password: "pw"},
		},
		"loginResponseNotObject": {
			setup: func(srv *twentyitest.Server) {
				srv.HandleRaw(http.MethodPost, "/login/authenticate", http.StatusOK, `["access_token"]`)
			},
			creds: auth.ResellerWithPassword{ResellerToken: resellerKey, Username: "jane", Password: "pw"},
		},
		"wrongPassword": {
			setup: func(srv *twentyitest.Server) {
				srv.AddLogin("jane", "right", "tok")
			},
			creds:   auth.ResellerWithPassword{ResellerToken: resellerKey, Username: "jane", Password: "wrong"},
			alsoErr: client.ErrAPI,
		},
		"wrongResellerToken": {
			creds:   auth.ResellerWithUsername{ResellerToken: "not-the-key", Username: "jane"},
			alsoErr: client.ErrAPI,
		},
		"listingNotArray": {
			setup: func(srv *twentyitest.Server) {
				srv.HandleJSON(http.MethodGet, "/user/service-user", http.StatusOK, map[string]any{"users": []any{}})
			},
			creds:    auth.ResellerWithUsername{ResellerToken: resellerKey, Username: "jane"},
			contains: "expected a list",
		},
		"listingNotJSON": {
			setup: func(srv *twentyitest.Server) {
				srv.HandleRaw(http.MethodGet, "/user/stack-user", http.StatusOK, `<html>maintenance</html>`)
			},
			creds:   auth.ResellerWithUsername{ResellerToken: resellerKey, Username: "jane"},
			alsoErr: client.ErrDecode,
		},
		"loginServerError": {
			setup: func(srv *twentyitest.Server) {
				srv.HandleJSON(http.MethodPost, "/login/authenticate", http.StatusBadGateway, map[string]string{})
			},
			creds:   auth.ResellerWithPassword{ResellerToken: resellerKey, Username: "jane", Password: "pw"},
			alsoErr: client.ErrUnexpectedStatusCode,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			srv := twentyitest.NewServer(resellerKey)
			defer srv.Close()

			if tc.setup != nil {
				tc.setup(srv)
			}

			_, err := auth.Resolve(t.Context(), tc.creds, auth.WithURL(srv.URL))
			if !errors.Is(err, auth.ErrAuthentication) {
				t.Fatalf("expected ErrAuthentication, got: %v", err)
			}
			if tc.alsoErr != nil && !errors.Is(err, tc.alsoErr) {
				t.Errorf("expected error to also match %v, got: %v", tc.alsoErr, err)
			}
			if tc.contains != "" && !strings.Contains(err.Error(), tc.contains) {
				t.Errorf("expected error containing %q, got: %v", tc.contains, err)
			}
		})
	}
}

func TestResolve_Options(t *testing.T) {
	testCases := map[string]auth.Option{
		"relativeURL":  auth.WithURL("/login"),
		"ftpURL":       auth.WithURL("ftp://auth.example.com"),
		"malformedURL": auth.WithURL("http://[::1"),
		"nilLogger":    auth.WithLogger(nil),
	}

	for name, opt := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := auth.Resolve(t.Context(), auth.ResellerOnly{ResellerToken: resellerKey}, opt)
			if !errors.Is(err, auth.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got: %v", err)
			}
		})
	}
}

func TestResolve_ClientOptions(t *testing.T) {
	srv := twentyitest.NewServer(resellerKey)
	defer srv.Close()

	srv.AddLogin("jane", "pw", "tok")

	_, err := auth.Resolve(t.Context(),
		auth.ResellerWithPassword{ResellerToken: resellerKey, Username: "jane", Password: "pw"},
		auth.WithURL(srv.URL),
		auth.WithClientOptions(client.WithUserAgent("auth-test/1.0")),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ua := srv.Requests()[0].Header.Get("User-Agent"); ua != "auth-test/1.0" {
		t.Errorf("expected user agent to be applied, got %q", ua)
	}
}

func TestResolve_SecretsNotLogged(t *testing.T) {
	srv := twentyitest.NewServer(resellerKey)
	defer srv.Close()

	srv.AddLogin("jane", "hunter2", "tok")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tok, err := auth.Resolve(t.Context(),
		auth.ResellerWithPassword{ResellerToken: resellerKey, Username: "jane", Password: "hunter2"},
		auth.WithURL(srv.URL),
		auth.WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("resolved", "token", tok)

	logs := buf.String()
	for _, secret := range []string{resellerKey, "hunter2", string(tok)} {
		if strings.Contains(logs, secret) {
			t.Errorf("logs leak secret %q:\n%s", secret, logs)
		}
	}
	if !strings.Contains(logs, "subuser-password") {
		t.Errorf("expected credential mode in logs:\n%s", logs)
	}
}

func TestFindSubuser(t *testing.T) {
	users := []auth.Subuser{
		{Name: "jane", Type: "stack-user", ID: "1"},
		{Name: "ops", Type: "service-user", ID: "2"},
		{Name: "jane", Type: "service-user", ID: "3"},
	}

	u, ok := auth.FindSubuser(users, "jane")
	if !ok {
		t.Fatal("expected jane to be found")
	}
	if u.Scope() != "stack-user:1" {
		t.Errorf("expected scope stack-user:1, got %s", u.Scope())
	}

	if _, ok := auth.FindSubuser(users, "JANE"); ok {
		t.Error("username matching must be exact")
	}
}

func TestEncode(t *testing.T) {
	testCases := map[string]struct {
		raw string
		exp auth.Token
	}{
		"token":   {raw: "c6d7b42a36fcd2625", exp: "YzZkN2I0MmEzNmZjZDI2MjU="},
		"padding": {raw: "ab", exp: "YWI="},
		"empty":   {raw: "", exp: ""},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			if got := auth.Encode(tc.raw); got != tc.exp {
				t.Errorf("expected %q, got %q", tc.exp, got)
			}
		})
	}
}

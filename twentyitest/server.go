// Package twentyitest provides a fake 20i authentication service and API
// for use in tests, in the manner of [net/http/httptest].
//
//	srv := twentyitest.NewServer("reseller-key")
//	defer srv.Close()
//
//	srv.AddStackUser("jane", "stack-user", 42)
//	srv.AddScopeToken("stack-user:42", "scoped-token")
//	srv.HandleJSON(http.MethodGet, "/domain", http.StatusOK, domains)
//
// The same server answers both the authentication routes and the API
// routes, so its URL serves as auth URL and base URL alike.
package twentyitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// Subuser is an entry served by the user listing routes.
type Subuser struct {
	Name string `json:"name"`
	Type string `json:"type"`
	ID   any    `json:"id"`
}

// Request is a request received by the [Server].
type Request struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	Header        http.Header
	// Body is the decoded JSON body, nil when none was sent.
	Body any
}

type route struct {
	status int
	body   []byte
}

// Server is a fake 20i backend. Routes registered with HandleJSON or
// HandleRaw take precedence over the built in authentication routes.
type Server struct {
	*httptest.Server

	resellerToken string

	mu           sync.Mutex
	stackUsers   []Subuser
	serviceUsers []Subuser
	logins       map[string][2]string // username -> password, access token
	scopes       map[string]string    // scope -> access token
	routes       map[string]route
	requests     []Request
}

// NewServer starts a Server whose authentication routes accept
// resellerToken as bearer.
func NewServer(resellerToken string) *Server {
	s := &Server{
		resellerToken: resellerToken,
		stackUsers:    []Subuser{},
		serviceUsers:  []Subuser{},
		logins:        make(map[string][2]string),
		scopes:        make(map[string]string),
		routes:        make(map[string]route),
	}
	s.Server = httptest.NewServer(s)

	return s
}

// AddStackUser lists a user on /user/stack-user.
func (s *Server) AddStackUser(name, typ string, id any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stackUsers = append(s.stackUsers, Subuser{Name: name, Type: typ, ID: id})
}

// AddServiceUser lists a user on /user/service-user.
func (s *Server) AddServiceUser(name, typ string, id any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.serviceUsers = append(s.serviceUsers, Subuser{Name: name, Type: typ, ID: id})
}

// AddLogin makes a password grant for username and password return
// accessToken.
func (s *Server) AddLogin(username, password, accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logins[username] = [2]string{password, accessToken}
}

// AddScopeToken makes a client credentials grant for scope return
// accessToken.
func (s *Server) AddScopeToken(scope, accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scopes[scope] = accessToken
}

// HandleJSON answers method and path with v encoded as JSON.
func (s *Server) HandleJSON(method, path string, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("twentyitest: encoding response for %s %s: %v", method, path, err))
	}

	s.HandleRaw(method, path, status, string(data))
}

// HandleRaw answers method and path with body verbatim.
func (s *Server) HandleRaw(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.routes[method+" "+path] = route{status: status, body: []byte(body)}
}

// Requests returns the requests received so far, oldest first.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Request(nil), s.requests...)
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := Request{
		Method:        r.Method,
		Path:          r.URL.Path,
		RawQuery:      r.URL.RawQuery,
		Authorization: r.Header.Get("Authorization"),
		Header:        r.Header.Clone(),
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		_ = RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rec.Body); err != nil {
			_ = RespondError(w, http.StatusBadRequest, "body is not valid JSON")
			return
		}
	}

	s.mu.Lock()
	s.requests = append(s.requests, rec)
	rt, ok := s.routes[r.Method+" "+r.URL.Path]
	s.mu.Unlock()

	if ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rt.status)
		_, _ = w.Write(rt.body)
		return
	}

	switch r.Method + " " + r.URL.Path {
	case "POST /login/authenticate":
		if s.authorized(w, rec) {
			s.authenticate(w, rec.Body)
		}
	case "GET /user/stack-user":
		if s.authorized(w, rec) {
			s.mu.Lock()
			users := make([]Subuser, len(s.stackUsers))
			copy(users, s.stackUsers)
			s.mu.Unlock()
			_ = RespondJSON(w, http.StatusOK, users)
		}
	case "GET /user/service-user":
		if s.authorized(w, rec) {
			s.mu.Lock()
			users := make([]Subuser, len(s.serviceUsers))
			copy(users, s.serviceUsers)
			s.mu.Unlock()
			_ = RespondJSON(w, http.StatusOK, users)
		}
	default:
		_ = RespondError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) authorized(w http.ResponseWriter, rec Request) bool {
	if rec.Authorization != "Bearer "+s.resellerToken {
		_ = RespondError(w, http.StatusUnauthorized, "invalid reseller token")
		return false
	}

	return true
}

func (s *Server) authenticate(w http.ResponseWriter, body any) {
	g, _ := body.(map[string]any)
	str := func(k string) string {
		v, _ := g[k].(string)
		return v
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch str("grant_type") {
	case "password":
		login, ok := s.logins[str("username")]
		if !ok || login[0] != str("password") {
			_ = RespondError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		_ = RespondJSON(w, http.StatusOK, map[string]string{"access_token": login[1]})

	case "client_credentials":
		tok, ok := s.scopes[str("scope")]
		if !ok {
			_ = RespondError(w, http.StatusBadRequest, "invalid scope")
			return
		}
		_ = RespondJSON(w, http.StatusOK, map[string]string{"access_token": tok})

	default:
		_ = RespondError(w, http.StatusBadRequest, "unsupported grant_type")
	}
}

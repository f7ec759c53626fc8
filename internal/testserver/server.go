// Package testserver is an in-process QMS backend used by tests and by the
// qmsmock demo binary. It issues short-lived HS256 access tokens and rotating
// refresh tokens, serves the records API, and can inject faults per route.
package testserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/waabox/qmsdeck/internal/domain"
)

// Route names accepted by Fail.
const (
	RouteLogin   = "login"
	RouteRefresh = "refresh"
	RouteLogout  = "logout"
	RouteList    = "list"
	RouteGet     = "get"
	RouteUpdate  = "update"
)

// Options configures a Server. Zero values fall back to demo defaults.
type Options struct {
	Username  string
	Password  string
	Secret    []byte
	AccessTTL time.Duration
	Records   []domain.Record
}

type claims struct {
	jwt.RegisteredClaims
	Generation int `json:"gen"`
}

// Server is the mock backend. Mount Handler() under any prefix-free URL;
// all routes live below /api.
type Server struct {
	username  string
	password  string
	secret    []byte
	accessTTL time.Duration
	router    *mux.Router

	mu            sync.Mutex
	generation    int
	refreshTokens map[string]string // token -> username
	records       map[domain.Collection]map[string]domain.Record
	faults        map[string][]int
	refreshGate   chan struct{}
	logins        int
	refreshes     int
}

// New creates a Server seeded with opts.Records (or a small demo data set).
func New(opts Options) *Server {
	s := &Server{
		username:      opts.Username,
		password:      opts.Password,
		secret:        opts.Secret,
		accessTTL:     opts.AccessTTL,
		refreshTokens: make(map[string]string),
		records:       make(map[domain.Collection]map[string]domain.Record),
		faults:        make(map[string][]int),
	}
	if s.username == "" {
		s.username = "auditor"
	}
	if s.password == "" {
		s.password = "secret"
	}
	if len(s.secret) == 0 {
		s.secret = []byte(uuid.NewString())
	}
	if s.accessTTL <= 0 {
		s.accessTTL = 5 * time.Minute
	}
	seed := opts.Records
	if seed == nil {
		seed = DemoRecords()
	}
	for _, r := range seed {
		if s.records[r.Collection] == nil {
			s.records[r.Collection] = make(map[string]domain.Record)
		}
		s.records[r.Collection][r.ID] = r
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/auth/login", s.faulty(RouteLogin, http.HandlerFunc(s.handleLogin))).Methods(http.MethodPost)
	api.Handle("/auth/refresh", s.faulty(RouteRefresh, http.HandlerFunc(s.handleRefresh))).Methods(http.MethodPost)
	api.Handle("/auth/logout", s.faulty(RouteLogout, s.requireAuth(http.HandlerFunc(s.handleLogout)))).Methods(http.MethodPost)
	api.Handle("/collections/{collection}/records", s.faulty(RouteList, s.requireAuth(http.HandlerFunc(s.handleList)))).Methods(http.MethodGet)
	api.Handle("/collections/{collection}/records/{id}", s.faulty(RouteGet, s.requireAuth(http.HandlerFunc(s.handleGet)))).Methods(http.MethodGet)
	api.Handle("/collections/{collection}/records/{id}", s.faulty(RouteUpdate, s.requireAuth(http.HandlerFunc(s.handleUpdate)))).Methods(http.MethodPatch)
	s.router = r
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Credentials returns the username and password the server accepts.
func (s *Server) Credentials() (string, string) {
	return s.username, s.password
}

// Issue mints a fresh credential pair for the configured user, as a login would.
func (s *Server) Issue() (domain.CredentialPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(s.username)
}

// ExpireAccessTokens invalidates every access token issued so far.
// Refresh tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// RevokeRefreshTokens invalidates every outstanding refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.refreshTokens)
}

// Fail makes the next len(statuses) calls to route answer with those statuses.
func (s *Server) Fail(route string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = append(s.faults[route], statuses...)
}

// HoldRefresh blocks refresh calls until the returned function is called.
func (s *Server) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.refreshGate = gate
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.refreshGate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Logins returns how many successful logins the server handled.
func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

// Refreshes returns how many refresh calls reached the server.
func (s *Server) Refreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

func (s *Server) issueLocked(username string) (domain.CredentialPair, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.accessTTL)),
		},
		Generation: s.generation,
	})
	access, err := token.SignedString(s.secret)
	if err != nil {
		return domain.CredentialPair{}, fmt.Errorf("signing access token: %w", err)
	}
	refresh := uuid.NewString()
	s.refreshTokens[refresh] = username
	return domain.CredentialPair{AccessToken: access, RefreshToken: refresh}, nil
}

// subject validates a bearer access token and returns its user.
func (s *Server) subject(r *http.Request) (string, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return "", errors.New("missing bearer token")
	}
	c := &claims{}
	token, err := jwt.ParseWithClaims(raw, c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()
	if c.Generation != gen {
		return "", errors.New("token expired")
	}
	return c.Subject, nil
}

func (s *Server) faulty(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var status int
		if q := s.faults[route]; len(q) > 0 {
			status, s.faults[route] = q[0], q[1:]
		}
		s.mu.Unlock()
		if status != 0 {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.subject(r); err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Username != s.username || body.Password != s.password {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	s.mu.Lock()
	pair, err := s.issueLocked(body.Username)
	if err == nil {
		s.logins++
	}
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.refreshes++
	gate := s.refreshGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	user, ok := s.refreshTokens[body.RefreshToken]
	var (
		pair domain.CredentialPair
		err  error
	)
	if ok {
		delete(s.refreshTokens, body.RefreshToken)
		pair, err = s.issueLocked(user)
	}
	s.mu.Unlock()

	switch {
	case !ok:
		writeError(w, http.StatusUnauthorized, "refresh token is invalid or already used")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, pair)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	user, _ := s.subject(r)
	s.mu.Lock()
	for tok, u := range s.refreshTokens {
		if u == user {
			delete(s.refreshTokens, tok)
		}
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	c := domain.Collection(mux.Vars(r)["collection"])
	s.mu.Lock()
	recs, ok := s.records[c]
	list := make([]domain.Record, 0, len(recs))
	for _, rec := range recs {
		list = append(list, rec)
	}
	s.mu.Unlock()
	if !ok && !c.Valid() {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown collection %q", c))
		return
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	rec, ok := s.records[domain.Collection(vars["collection"])][vars["id"]]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body struct {
		Status domain.RecordStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !body.Status.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "invalid status")
		return
	}

	c := domain.Collection(vars["collection"])
	s.mu.Lock()
	rec, ok := s.records[c][vars["id"]]
	if ok {
		rec.Status = body.Status
		rec.UpdatedAt = time.Now().UTC()
		s.records[c][rec.ID] = rec
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// Package auth guards the admin surface with one shared password and
// in-memory session cookies. Sessions do not survive a restart.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	CookieName    = "pitchvote_session"
	SessionExpiry = 24 * time.Hour

	// LoginPath is where unauthenticated admin pages are sent
	LoginPath = "/admin/login"
)

// Words for generated admin passwords
var passwordWords = []string{
	"pitch", "stage", "spotlight", "demo", "trophy",
	"pixel", "render", "frame", "vector", "shader",
	"studio", "camera", "story", "launch", "gold",
	"audience", "encore", "podium", "canvas",
}

type session struct {
	created time.Time
	expires time.Time
}

// Auth holds the admin password and the live sessions
type Auth struct {
	password []byte
	ttl      time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]session
}

// Option configures an Auth
type Option func(*Auth)

// WithClock replaces time.Now for session expiry checks
func WithClock(now func() time.Time) Option {
	return func(a *Auth) { a.now = now }
}

// WithTTL overrides SessionExpiry
func WithTTL(ttl time.Duration) Option {
	return func(a *Auth) { a.ttl = ttl }
}

// New creates an Auth for password. An empty password rejects every login.
func New(password string, opts ...Option) *Auth {
	a := &Auth{
		password: []byte(password),
		ttl:      SessionExpiry,
		now:      time.Now,
		sessions: make(map[string]session),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GeneratePassword picks three words, e.g. "stage-pixel-encore"
func GeneratePassword() string {
	words := make([]string, 3)
	for i := range words {
		words[i] = passwordWords[randomIndex(len(passwordWords))]
	}
	return strings.Join(words, "-")
}

// Login starts a session when password matches
func (a *Auth) Login(password string) (string, bool) {
	if len(a.password) == 0 || subtle.ConstantTimeCompare([]byte(password), a.password) != 1 {
		return "", false
	}

	token, err := newToken()
	if err != nil {
		return "", false
	}

	now := a.now()
	a.mu.Lock()
	a.sessions[token] = session{created: now, expires: now.Add(a.ttl)}
	a.mu.Unlock()
	return token, true
}

// Logout ends the session for token. Unknown tokens are ignored.
func (a *Auth) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// ValidateSession reports whether token names a live session. An expired
// session is dropped on sight.
func (a *Auth) ValidateSession(token string) bool {
	if token == "" {
		return false
	}

	a.mu.RLock()
	s, ok := a.sessions[token]
	a.mu.RUnlock()
	if !ok {
		return false
	}
	if a.now().Before(s.expires) {
		return true
	}

	a.mu.Lock()
	if cur, ok := a.sessions[token]; ok && cur == s {
		delete(a.sessions, token)
	}
	a.mu.Unlock()
	return false
}

// PurgeExpired drops sessions that expired at or before now and returns
// how many went
func (a *Auth) PurgeExpired(now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	purged := 0
	for token, s := range a.sessions {
		if !now.Before(s.expires) {
			delete(a.sessions, token)
			purged++
		}
	}
	return purged
}

// ActiveSessions counts sessions not yet purged
func (a *Auth) ActiveSessions() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sessions)
}

// SessionToken returns the session cookie value carried by r
func SessionToken(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// GetSessionFromRequest reports whether r carries a live session
func (a *Auth) GetSessionFromRequest(r *http.Request) bool {
	token, ok := SessionToken(r)
	return ok && a.ValidateSession(token)
}

// RequireAuth sends visitors without a session to the login page
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.GetSessionFromRequest(r) {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type unauthorizedBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// RequireAuthAPI answers 401 with a JSON error body when there is no session
func (a *Auth) RequireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.GetSessionFromRequest(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(unauthorizedBody{Code: "UNAUTHORIZED", Error: "Unauthorized - please log in"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetSessionCookie hands token to the browser for SessionExpiry
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionExpiry.Seconds()),
	})
}

// ClearSessionCookie tells the browser to forget the session
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// randomIndex returns a uniform int in [0, n)
func randomIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuthCookie is the cookie carrying the session token issued at login.
const AuthCookie = "session"

// SessionTTL is how long a login stays valid.
const SessionTTL = 30 * 24 * time.Hour

// Sessions keeps the tokens of logged-in users in memory.
type Sessions struct {
	tokens map[string]time.Time // token -> expiry
	mu     sync.Mutex
	now    func() time.Time
}

func NewSessions() *Sessions {
	return &Sessions{
		tokens: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Create issues a new random session token.
func (s *Sessions) Create() string {
	token := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = s.now().Add(SessionTTL)
	return token
}

// Valid reports whether token belongs to a live session. Expired tokens
// are forgotten.
func (s *Sessions) Valid(token string) bool {
	if token == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.tokens[token]
	if !ok {
		return false
	}
	if s.now().After(expiry) {
		delete(s.tokens, token)
		return false
	}
	return true
}

// Revoke ends a session.
func (s *Sessions) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// AuthMiddleware sprawdza, czy użytkownik jest zalogowany (ma cookie z ważnym tokenem sesji)
func (s *Sessions) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		// Logowanie jest dostępne bez uwierzytelnienia
		if r.URL.Path == "/auth/login" {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(AuthCookie)
		if err != nil || !s.Valid(cookie.Value) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

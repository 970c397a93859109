package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSessions_Lifecycle(t *testing.T) {
	s := NewSessions()

	token := s.Create()
	if !s.Valid(token) {
		t.Fatal("Fresh token should be valid")
	}
	if other := s.Create(); other == token {
		t.Error("Tokens must be unique")
	}

	s.Revoke(token)
	if s.Valid(token) {
		t.Error("Revoked token should be invalid")
	}
}

func TestSessions_Expiry(t *testing.T) {
	s := NewSessions()
	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return current }

	token := s.Create()
	current = current.Add(SessionTTL + time.Minute)

	if s.Valid(token) {
		t.Error("Expired token should be invalid")
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := NewSessions()
	token := s.Create()
	handler := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		path   string
		cookie *http.Cookie
		status int
	}{
		{"no cookie", "/api/alerts", nil, http.StatusUnauthorized},
		{"forged legacy cookie", "/api/alerts", &http.Cookie{Name: "authenticated", Value: "true"}, http.StatusUnauthorized},
		{"forged session value", "/api/alerts", &http.Cookie{Name: AuthCookie, Value: "true"}, http.StatusUnauthorized},
		{"valid session", "/api/alerts", &http.Cookie{Name: AuthCookie, Value: token}, http.StatusOK},
		{"login is open", "/auth/login", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

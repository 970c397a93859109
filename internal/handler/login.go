package handler

import (
	"crypto/subtle"
	"net/http"

	"sparkvision/internal/config"
	"sparkvision/internal/logger"
	"sparkvision/internal/middleware"
)

// LoginHandler handles POST /auth/login by validating password and issuing a session cookie.
func LoginHandler(config *config.Config, sessions *middleware.Sessions, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		password := r.FormValue("password")
		if subtle.ConstantTimeCompare([]byte(password), []byte(config.Password)) != 1 {
			logger.Warning("Failed login attempt from %s", r.RemoteAddr)
			http.Error(w, "Invalid password", http.StatusUnauthorized)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.AuthCookie,
			Value:    sessions.Create(),
			Path:     "/",
			MaxAge:   int(middleware.SessionTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

// LogoutHandler ends the session and clears the cookie.
func LogoutHandler(sessions *middleware.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(middleware.AuthCookie); err == nil {
			sessions.Revoke(cookie.Value)
		}

		http.SetCookie(w, &http.Cookie{
			Name:   middleware.AuthCookie,
			Value:  "",
			Path:   "/",
			MaxAge: -1, // Deleting cookie
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

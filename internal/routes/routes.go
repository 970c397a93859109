package routes

import (
	"net/http"

	"sparkvision/internal/config"
	"sparkvision/internal/handler"
	"sparkvision/internal/logger"
	"sparkvision/internal/middleware"
	"sparkvision/internal/repository"
	"sparkvision/internal/services/websocket"
)

// SetupRoutes registers the tracker's API, log and auth endpoints and
// wraps the mux with the authentication middleware.
func SetupRoutes(hub *websocket.HubService, alertRepo repository.AlertRepository, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()
	sessions := middleware.NewSessions()

	// API endpoints
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(hub, logger))
	mux.HandleFunc("/api/alerts", handler.GetAlertsHandler(alertRepo, logger))

	// Log endpoints
	mux.HandleFunc("/logs/info", handler.ShowInfoLogsHandler(logger))
	mux.HandleFunc("/logs/warning", handler.ShowWarningLogsHandler(logger))
	mux.HandleFunc("/logs/error", handler.ShowErrorLogsHandler(logger))

	mux.HandleFunc("/logs/info/clear", handler.ClearInfoLogsHandler(logger))
	mux.HandleFunc("/logs/warning/clear", handler.ClearWarningLogsHandler(logger))
	mux.HandleFunc("/logs/error/clear", handler.ClearErrorLogsHandler(logger))

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, sessions, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler(sessions))

	// Apply middleware
	return sessions.AuthMiddleware(mux)
}

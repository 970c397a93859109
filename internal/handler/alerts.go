package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"sparkvision/internal/dto"
	"sparkvision/internal/logger"
	"sparkvision/internal/model"
	"sparkvision/internal/repository"
)

const (
	// MaxAlertsPageSize caps the limit query parameter.
	MaxAlertsPageSize = 100
	// MaxAlertsPage caps the page query parameter so the offset stays small.
	MaxAlertsPage = 100000
)

// GetAlertsHandler returns a page of received alerts, newest first.
// Query: page, limit, since (2006-01-02).
func GetAlertsHandler(alertRepo repository.AlertRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		page := min(atoiDefault(q.Get("page"), 1), MaxAlertsPage)
		limit := min(atoiDefault(q.Get("limit"), 24), MaxAlertsPageSize)

		filter := &model.JournalFilter{
			Since:  parseDate(q.Get("since")),
			Limit:  limit,
			Offset: (page - 1) * limit,
		}

		alerts, err := alertRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying alerts from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := alertRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting alerts: %v", err)
			totalCount = len(alerts)
		}

		infos := make([]dto.AlertInfo, 0, len(alerts))
		for _, a := range alerts {
			infos = append(infos, dto.NewAlertInfo(a))
		}

		data := dto.AlertsData{
			Alerts:      infos,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}

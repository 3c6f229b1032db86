// Package handlers provides HTTP handlers for the triage-service API.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sukoon-health/risk-pipeline/internal/assess"
	"github.com/sukoon-health/risk-pipeline/internal/database"
	"github.com/sukoon-health/risk-pipeline/internal/metrics"
)

const (
	// DefaultHistoryLimit is the number of risk events returned when the
	// caller does not specify a limit.
	DefaultHistoryLimit = 20
	// MaxHistoryLimit caps the history page size.
	MaxHistoryLimit = 100
	// MaxAssessTextLength bounds manual assessment input.
	MaxAssessTextLength = 5000
)

// HistoryReader reads stored risk events for the history endpoint.
type HistoryReader interface {
	RecentRiskEvents(ctx context.Context, userID string, limit int) ([]database.RiskEventRecord, error)
}

// Handlers wraps dependencies for HTTP handlers.
type Handlers struct {
	history       HistoryReader
	assessor      *assess.Assessor
	metricsReader *metrics.Reader
	collector     *metrics.Collector
}

// NewHandlers creates a new handlers instance. metricsReader and collector
// may be nil when Redis is not configured.
func NewHandlers(history HistoryReader, assessor *assess.Assessor, metricsReader *metrics.Reader, collector *metrics.Collector) *Handlers {
	return &Handlers{
		history:       history,
		assessor:      assessor,
		metricsReader: metricsReader,
		collector:     collector,
	}
}

// GetMetricsCollector returns the metrics collector for middleware use.
func (h *Handlers) GetMetricsCollector() *metrics.Collector {
	return h.collector
}

// serviceResponse is the API response envelope.
type serviceResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp serviceResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, serviceResponse{Success: false, Error: message})
}

// assessRequest is the manual assessment request body.
type assessRequest struct {
	UserID  string `json:"userId"`
	Text    string `json:"text"`
	Context struct {
		RecentRisks int `json:"recentRisks"`
	} `json:"context"`
}

// Assess performs a synchronous, stateless risk assessment.
// POST /api/v1/assess
func (h *Handlers) Assess(w http.ResponseWriter, r *http.Request) {
	var req assessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if len(req.Text) > MaxAssessTextLength {
		writeError(w, http.StatusBadRequest, "text too long")
		return
	}
	if req.Context.RecentRisks < 0 {
		writeError(w, http.StatusBadRequest, "recentRisks cannot be negative")
		return
	}

	assessment := h.assessor.Assess(req.Text, req.Context.RecentRisks)

	slog.Info("Manual assessment completed",
		"user_id", req.UserID,
		"risk_level", assessment.RiskLevel,
		"requires_escalation", assessment.RequiresEscalation,
	)

	writeJSON(w, http.StatusOK, serviceResponse{Success: true, Data: assessment})
}

// RiskHistory returns a user's stored risk events, newest first.
// GET /api/v1/risks?user_id=<id>&limit=<n>
func (h *Handlers) RiskHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
		if limit > MaxHistoryLimit {
			limit = MaxHistoryLimit
		}
	}

	records, err := h.history.RecentRiskEvents(r.Context(), userID, limit)
	if err != nil {
		slog.Error("Failed to read risk history", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read risk history")
		return
	}
	if records == nil {
		records = []database.RiskEventRecord{}
	}

	writeJSON(w, http.StatusOK, serviceResponse{Success: true, Data: records})
}

// ServiceMetrics returns metrics for pipeline services from Redis.
// GET /api/v1/services/metrics
func (h *Handlers) ServiceMetrics(w http.ResponseWriter, r *http.Request) {
	if h.metricsReader == nil {
		writeError(w, http.StatusInternalServerError, "metrics reader not available")
		return
	}

	all, err := h.metricsReader.GetAllServiceMetrics(r.Context())
	if err != nil {
		slog.Error("Failed to get service metrics", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to retrieve service metrics")
		return
	}

	// Include known services that might be offline
	for _, name := range metrics.ServiceNames {
		if _, exists := all[name]; !exists {
			all[name] = &metrics.ServiceMetrics{
				ServiceName: name,
				Status:      "offline",
			}
		}
	}

	writeJSON(w, http.StatusOK, serviceResponse{Success: true, Data: all})
}

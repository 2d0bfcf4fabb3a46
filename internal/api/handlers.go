// Package api exposes the HTTP surface: the streaming recommend endpoint,
// history CRUD, and health.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/ratelimit"
	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/recommend"
	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/storage"
	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/version"
)

// Handlers contains the HTTP handlers for the recommendation API.
type Handlers struct {
	service   *recommend.Service
	storage   storage.Storage
	startTime time.Time
}

// NewHandlers creates a new handlers instance.
func NewHandlers(service *recommend.Service, store storage.Storage) *Handlers {
	return &Handlers{
		service:   service,
		storage:   store,
		startTime: time.Now(),
	}
}

// Recommend handles streaming recommendation requests.
// POST /api/v1/recommend
func (h *Handlers) Recommend(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeAgentError(w, models.NewAgentError(models.ErrorTypeValidation,
			"invalid JSON body", err))
		return
	}

	// Validate before committing to the stream so validation failures
	// arrive as regular HTTP errors, not stream frames.
	if err := req.Validate(); err != nil {
		h.writeAgentError(w, models.Classify(err))
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		h.writeAgentError(w, models.NewAgentError(models.ErrorTypeAPI,
			"streaming unsupported by connection", err))
		return
	}

	identifier := ratelimit.ClientIdentifier(r)
	_, runErr := h.service.Recommend(r.Context(), identifier, &req, sse)
	switch {
	case runErr == nil:
		sse.Done()
	case models.IsCancellation(runErr):
		// Caller is gone; nothing useful to write.
	default:
		sse.Error(models.Classify(runErr))
	}
}

// ListHistory returns a page of past recommendation runs.
// GET /api/v1/history
func (h *Handlers) ListHistory(w http.ResponseWriter, r *http.Request) {
	req := &models.HistoryRequest{}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			h.writeAgentError(w, models.NewAgentError(models.ErrorTypeValidation,
				"limit must be an integer", err))
			return
		}
		req.Limit = limit
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			h.writeAgentError(w, models.NewAgentError(models.ErrorTypeValidation,
				"offset must be an integer", err))
			return
		}
		req.Offset = offset
	}

	resp, err := h.service.History(r.Context(), req)
	if err != nil {
		h.writeAgentError(w, models.Classify(err))
		return
	}
	h.writeJSONResponse(w, http.StatusOK, resp)
}

// GetHistoryRecord returns one past run.
// GET /api/v1/history/{id}
func (h *Handlers) GetHistoryRecord(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	record, err := h.service.GetRecord(r.Context(), id)
	if err != nil {
		h.writeAgentError(w, models.Classify(err))
		return
	}
	h.writeJSONResponse(w, http.StatusOK, record)
}

// DeleteHistoryRecord removes one past run.
// DELETE /api/v1/history/{id}
func (h *Handlers) DeleteHistoryRecord(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.service.DeleteRecord(r.Context(), id); err != nil {
		h.writeAgentError(w, models.Classify(err))
		return
	}
	h.writeJSONResponse(w, http.StatusOK, &models.DeleteRecordResponse{
		ID:      id,
		Message: "record deleted",
	})
}

// HealthCheck reports service health.
// GET /health and GET /api/v1/health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Version = version.Version
	response.Uptime = time.Since(h.startTime).Round(time.Second).String()

	if _, _, err := h.storage.ListRecommendations(r.Context(), 1, 0); err != nil {
		response.Status = models.StatusDegraded
		response.AddComponent("storage", models.StatusUnhealthy, err.Error())
	} else {
		response.AddComponent("storage", models.StatusHealthy, "storage is operational")
	}
	response.AddComponent("api", models.StatusHealthy, "api is operational")

	status := http.StatusOK
	if response.Status != models.StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	h.writeJSONResponse(w, status, response)
}

// writeJSONResponse writes a JSON response.
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeAgentError maps a classified error onto its HTTP status and body.
func (h *Handlers) writeAgentError(w http.ResponseWriter, agentErr *models.AgentError) {
	resp := models.NewErrorResponseFromAgentError(agentErr)
	if resp.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(resp.RetryAfter))
	}
	h.writeJSONResponse(w, agentErr.HTTPStatus(), resp)
}

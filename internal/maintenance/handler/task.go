package handler

import (
	"encoding/json"
	"net/http"

	"depot/internal/maintenance/service"
	httputil "depot/pkg/http"
	"depot/pkg/logger"
	"depot/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type TaskHandler struct {
	service service.TaskService
	log     *logger.Logger
}

func NewTaskHandler(service service.TaskService, log *logger.Logger) *TaskHandler {
	return &TaskHandler{
		service: service,
		log:     log,
	}
}

// TaskListResponse extends the paginated envelope with per-status totals.
type TaskListResponse struct {
	Data         []*model.MaintenanceTask       `json:"data"`
	TotalCount   int64                          `json:"total_count"`
	Limit        int                            `json:"limit"`
	Offset       int64                          `json:"offset"`
	StatusCounts *model.MaintenanceStatusCounts `json:"status_counts"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var task model.MaintenanceTask
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Create(r.Context(), &task); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, task); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *TaskHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	task, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, task); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TaskHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	status := r.URL.Query().Get("status")

	tasks, total, counts, err := h.service.GetAll(r.Context(), status, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, TaskListResponse{
		Data:         tasks,
		TotalCount:   total,
		Limit:        limit,
		Offset:       offset,
		StatusCounts: counts,
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "GetAll", "operation", "WriteJSON", "error", err)
	}
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var body struct {
		PerformedBy string `json:"performed_by"`
	}
	if r.Body != nil {
		// The body is optional; decode errors on an empty body are fine.
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	if err := h.service.Complete(r.Context(), id, body.PerformedBy); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Complete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *TaskHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/maintenance", h.Create)
	router.GET("/api/v1/maintenance", h.GetAll)
	router.GET("/api/v1/maintenance/id/:id", h.GetByID)
	router.POST("/api/v1/maintenance/id/:id/complete", h.Complete)
}

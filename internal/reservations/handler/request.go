package handler

import (
	"encoding/json"
	"net/http"

	"depot/internal/reservations/repository"
	"depot/internal/reservations/service"
	httputil "depot/pkg/http"
	"depot/pkg/logger"
	"depot/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type RequestHandler struct {
	service service.RequestService
	log     *logger.Logger
}

func NewRequestHandler(service service.RequestService, log *logger.Logger) *RequestHandler {
	return &RequestHandler{
		service: service,
		log:     log,
	}
}

type reviewBody struct {
	ReviewerID string `json:"reviewer_id"`
	Comment    string `json:"comment"`
}

func (h *RequestHandler) Submit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var request model.LoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Submit", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Submit(r.Context(), &request); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Submit", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, request); err != nil {
		h.log.Error("failed to write created response", "handler", "Submit", "operation", "WriteCreated", "error", err)
	}
}

func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var body reviewBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Approve", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	result, err := h.service.Approve(r.Context(), id, body.ReviewerID, body.Comment)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Approve", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Approve", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var body reviewBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Reject", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Reject(r.Context(), id, body.ReviewerID, body.Comment); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Reject", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *RequestHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	request, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, request); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RequestHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	query := r.URL.Query()
	filter := repository.RequestFilter{
		RequesterID: query.Get("requester_id"),
		AssetID:     query.Get("asset_id"),
		Status:      query.Get("status"),
	}

	requests, total, err := h.service.GetAll(r.Context(), filter, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, requests, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *RequestHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/requests", h.Submit)
	router.GET("/api/v1/requests", h.GetAll)
	router.GET("/api/v1/requests/id/:id", h.GetByID)
	router.POST("/api/v1/requests/id/:id/approve", h.Approve)
	router.POST("/api/v1/requests/id/:id/reject", h.Reject)
}

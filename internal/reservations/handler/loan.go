package handler

import (
	"net/http"

	"depot/internal/reservations/service"
	httputil "depot/pkg/http"
	"depot/pkg/logger"
	"depot/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type LoanHandler struct {
	service service.LoanService
	log     *logger.Logger
}

func NewLoanHandler(service service.LoanService, log *logger.Logger) *LoanHandler {
	return &LoanHandler{
		service: service,
		log:     log,
	}
}

// LoanListResponse extends the paginated envelope with per-status totals.
type LoanListResponse struct {
	Data         []*model.LoanView       `json:"data"`
	TotalCount   int64                   `json:"total_count"`
	Limit        int                     `json:"limit"`
	Offset       int64                   `json:"offset"`
	StatusCounts *model.LoanStatusCounts `json:"status_counts"`
}

func (h *LoanHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	loan, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, loan); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *LoanHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	status := r.URL.Query().Get("status")

	loans, total, counts, err := h.service.GetAll(r.Context(), status, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, LoanListResponse{
		Data:         loans,
		TotalCount:   total,
		Limit:        limit,
		Offset:       offset,
		StatusCounts: counts,
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "GetAll", "operation", "WriteJSON", "error", err)
	}
}

func (h *LoanHandler) Return(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if err := h.service.Return(r.Context(), id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Return", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *LoanHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/loans", h.GetAll)
	router.GET("/api/v1/loans/id/:id", h.GetByID)
	router.POST("/api/v1/loans/id/:id/return", h.Return)
}

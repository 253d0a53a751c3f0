package handler

import (
	"encoding/json"
	"net/http"

	"depot/internal/assets/repository"
	"depot/internal/assets/service"
	httputil "depot/pkg/http"
	"depot/pkg/logger"
	"depot/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AssetHandler struct {
	service service.AssetService
	resync  service.ResyncService
	log     *logger.Logger
}

func NewAssetHandler(service service.AssetService, resync service.ResyncService, log *logger.Logger) *AssetHandler {
	return &AssetHandler{
		service: service,
		resync:  resync,
		log:     log,
	}
}

// AssetListResponse extends the paginated envelope with per-status totals.
type AssetListResponse struct {
	Data         []*model.Asset           `json:"data"`
	TotalCount   int64                    `json:"total_count"`
	Limit        int                      `json:"limit"`
	Offset       int64                    `json:"offset"`
	StatusCounts *model.AssetStatusCounts `json:"status_counts"`
}

func (h *AssetHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var asset model.Asset
	if err := json.NewDecoder(r.Body).Decode(&asset); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Create(r.Context(), &asset); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, asset); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *AssetHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	asset, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, asset); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AssetHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	query := r.URL.Query()
	filter := repository.AssetFilter{
		Name:     query.Get("name"),
		Category: query.Get("category"),
		Location: query.Get("location"),
		Status:   query.Get("status"),
	}

	assets, total, counts, err := h.service.GetAll(r.Context(), filter, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, AssetListResponse{
		Data:         assets,
		TotalCount:   total,
		Limit:        limit,
		Offset:       offset,
		StatusCounts: counts,
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "GetAll", "operation", "WriteJSON", "error", err)
	}
}

func (h *AssetHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var updates model.AssetUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Update", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Update(r.Context(), id, &updates); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AssetHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "UpdateStatus", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.UpdateStatus(r.Context(), id, body.Status); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UpdateStatus", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AssetHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AssetHandler) Resync(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	report, err := h.resync.Resync(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Resync", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, report); err != nil {
		h.log.Error("failed to write success response", "handler", "Resync", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AssetHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/assets", h.Create)
	router.GET("/api/v1/assets", h.GetAll)
	router.GET("/api/v1/assets/id/:id", h.GetByID)
	router.PATCH("/api/v1/assets/id/:id", h.Update)
	router.PUT("/api/v1/assets/id/:id/status", h.UpdateStatus)
	router.DELETE("/api/v1/assets/id/:id", h.Delete)
	router.POST("/api/v1/assets/resync", h.Resync)
}

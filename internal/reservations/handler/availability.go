package handler

import (
	"net/http"

	"depot/internal/reservations/service"
	httputil "depot/pkg/http"
	"depot/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

type availabilityResponse struct {
	AssetID   string `json:"asset_id"`
	Available bool   `json:"available"`
}

// Check answers whether one asset is free for the window given by the
// optional start/end query parameters. Omitting both asks about right now.
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	assetID := ps.ByName("id")

	start, err := httputil.ExtractTimeParam(r, "start")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Check", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	end, err := httputil.ExtractTimeParam(r, "end")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Check", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	available, err := h.service.IsAvailable(r.Context(), assetID, start, end)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Check", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, availabilityResponse{AssetID: assetID, Available: available}); err != nil {
		h.log.Error("failed to write success response", "handler", "Check", "operation", "WriteSuccess", "error", err)
	}
}

// Search lists assets free for the window, excluding anything an approved
// or active event has reserved.
func (h *AvailabilityHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Search", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	start, err := httputil.ExtractTimeParam(r, "start")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Search", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	end, err := httputil.ExtractTimeParam(r, "end")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Search", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	name := r.URL.Query().Get("name")

	assets, total, err := h.service.Search(r.Context(), name, start, end, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Search", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, assets, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "Search", "operation", "WritePaginated", "error", err)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/availability", h.Search)
	router.GET("/api/v1/availability/id/:id", h.Check)
}

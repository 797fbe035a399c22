package handler

import (
	"net/http"

	"cowork/internal/amenities/service"
	httputil "cowork/pkg/http"
	"cowork/pkg/logger"
	"cowork/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AmenityHandler struct {
	service service.AmenityService
	log     *logger.Logger
}

func NewAmenityHandler(service service.AmenityService, log *logger.Logger) *AmenityHandler {
	return &AmenityHandler{
		service: service,
		log:     log,
	}
}

func (h *AmenityHandler) CreateItem(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var item model.StockedItem
	if err := httputil.DecodeJSON(r, &item); err != nil {
		h.writeError(w, "CreateItem", err)
		return
	}

	if err := h.service.CreateItem(r.Context(), &item); err != nil {
		h.writeError(w, "CreateItem", err)
		return
	}

	if err := httputil.WriteCreated(w, item); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateItem", "operation", "WriteCreated", "error", err)
	}
}

func (h *AmenityHandler) Purchase(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.PurchaseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Purchase", err)
		return
	}

	usage, err := h.service.Purchase(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Purchase", err)
		return
	}

	if err := httputil.WriteCreated(w, usage); err != nil {
		h.log.Error("failed to write created response", "handler", "Purchase", "operation", "WriteCreated", "error", err)
	}
}

func (h *AmenityHandler) LowStock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	threshold, err := httputil.ExtractInt(r, "threshold", 0)
	if err != nil {
		h.writeError(w, "LowStock", err)
		return
	}

	items, err := h.service.LowStock(r.Context(), threshold)
	if err != nil {
		h.writeError(w, "LowStock", err)
		return
	}

	if err := httputil.WriteSuccess(w, items); err != nil {
		h.log.Error("failed to write success response", "handler", "LowStock", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AmenityHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AmenityHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/amenities", h.CreateItem)
	router.POST("/api/v1/amenities/purchase", h.Purchase)
	router.GET("/api/v1/amenities/low-stock", h.LowStock)
}

package handler

import (
	"net/http"

	"cowork/internal/resources/service"
	httputil "cowork/pkg/http"
	"cowork/pkg/logger"
	"cowork/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ResourceHandler struct {
	service service.ResourceService
	log     *logger.Logger
}

func NewResourceHandler(service service.ResourceService, log *logger.Logger) *ResourceHandler {
	return &ResourceHandler{
		service: service,
		log:     log,
	}
}

func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var resource model.Resource
	if err := httputil.DecodeJSON(r, &resource); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), &resource); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, resource); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	resource, err := h.service.Get(r.Context(), ps.ByName("type"), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}

	if err := httputil.WriteSuccess(w, resource); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resources, err := h.service.List(r.Context(), filterFrom(r))
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, resources); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ResourceHandler) Available(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resources, err := h.service.Available(r.Context(), filterFrom(r))
	if err != nil {
		h.writeError(w, "Available", err)
		return
	}

	if err := httputil.WriteSuccess(w, resources); err != nil {
		h.log.Error("failed to write success response", "handler", "Available", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ResourceHandler) SetStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var update model.ResourceStatusUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		h.writeError(w, "SetStatus", err)
		return
	}

	resource, err := h.service.SetStatus(r.Context(), ps.ByName("type"), ps.ByName("id"), &update)
	if err != nil {
		h.writeError(w, "SetStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, resource); err != nil {
		h.log.Error("failed to write success response", "handler", "SetStatus", "operation", "WriteSuccess", "error", err)
	}
}

func filterFrom(r *http.Request) model.ResourceFilter {
	query := r.URL.Query()
	return model.ResourceFilter{
		Type:     query.Get("type"),
		Location: query.Get("location"),
	}
}

func (h *ResourceHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ResourceHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/resources", h.Create)
	router.GET("/api/v1/resources", h.List)
	router.GET("/api/v1/resources/available", h.Available)
	router.GET("/api/v1/resources/id/:type/:id", h.Get)
	router.PATCH("/api/v1/resources/id/:type/:id/status", h.SetStatus)
}

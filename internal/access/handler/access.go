package handler

import (
	"net/http"

	"cowork/internal/access/service"
	httputil "cowork/pkg/http"
	"cowork/pkg/logger"
	"cowork/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AccessHandler struct {
	service service.AccessService
	log     *logger.Logger
}

func NewAccessHandler(service service.AccessService, log *logger.Logger) *AccessHandler {
	return &AccessHandler{
		service: service,
		log:     log,
	}
}

func (h *AccessHandler) Log(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var entry model.AccessLog
	if err := httputil.DecodeJSON(r, &entry); err != nil {
		h.writeError(w, "Log", err)
		return
	}

	if err := h.service.Log(r.Context(), &entry); err != nil {
		h.writeError(w, "Log", err)
		return
	}

	if err := httputil.WriteCreated(w, entry); err != nil {
		h.log.Error("failed to write created response", "handler", "Log", "operation", "WriteCreated", "error", err)
	}
}

func (h *AccessHandler) History(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	days, err := httputil.ExtractInt(r, "days", 0)
	if err != nil {
		h.writeError(w, "History", err)
		return
	}

	entries, err := h.service.History(r.Context(), ps.ByName("member_id"), days)
	if err != nil {
		h.writeError(w, "History", err)
		return
	}

	if err := httputil.WriteSuccess(w, entries); err != nil {
		h.log.Error("failed to write success response", "handler", "History", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AccessHandler) Today(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	entries, err := h.service.Today(r.Context())
	if err != nil {
		h.writeError(w, "Today", err)
		return
	}

	if err := httputil.WriteSuccess(w, entries); err != nil {
		h.log.Error("failed to write success response", "handler", "Today", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AccessHandler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	days, err := httputil.ExtractInt(r, "days", 0)
	if err != nil {
		h.writeError(w, "Stats", err)
		return
	}

	stats, err := h.service.Stats(r.Context(), days)
	if err != nil {
		h.writeError(w, "Stats", err)
		return
	}

	if err := httputil.WriteSuccess(w, stats); err != nil {
		h.log.Error("failed to write success response", "handler", "Stats", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AccessHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AccessHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/access", h.Log)
	router.GET("/api/v1/access/member/:member_id", h.History)
	router.GET("/api/v1/access/today", h.Today)
	router.GET("/api/v1/access/stats", h.Stats)
}

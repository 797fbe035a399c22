package handler

import (
	"net/http"

	"cowork/internal/reports/service"
	httputil "cowork/pkg/http"
	"cowork/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type ReportHandler struct {
	service service.ReportService
	log     *logger.Logger
}

func NewReportHandler(service service.ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		log:     log,
	}
}

// Get serves /api/v1/reports/:name with optional days and limit parameters.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	days, err := httputil.ExtractInt(r, "days", 0)
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}
	limit, err := httputil.ExtractInt(r, "limit", 0)
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}

	report, err := h.service.Run(r.Context(), ps.ByName("name"), days, limit)
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}

	if err := httputil.WriteSuccess(w, report); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReportHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ReportHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/reports/:name", h.Get)
}

package handler

import (
	"net/http"

	"cowork/internal/billing/service"
	httputil "cowork/pkg/http"
	"cowork/pkg/logger"
	"cowork/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type InvoiceHandler struct {
	service service.InvoiceService
	log     *logger.Logger
}

func NewInvoiceHandler(service service.InvoiceService, log *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		service: service,
		log:     log,
	}
}

func (h *InvoiceHandler) Generate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.InvoiceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Generate", err)
		return
	}

	invoice, err := h.service.Generate(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Generate", err)
		return
	}

	if err := httputil.WriteCreated(w, invoice); err != nil {
		h.log.Error("failed to write created response", "handler", "Generate", "operation", "WriteCreated", "error", err)
	}
}

func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	invoice, err := h.service.Pay(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Pay", err)
		return
	}

	if err := httputil.WriteSuccess(w, invoice); err != nil {
		h.log.Error("failed to write success response", "handler", "Pay", "operation", "WriteSuccess", "error", err)
	}
}

func (h *InvoiceHandler) ByMember(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	invoices, err := h.service.ByMember(r.Context(), ps.ByName("member_id"))
	if err != nil {
		h.writeError(w, "ByMember", err)
		return
	}

	if err := httputil.WriteSuccess(w, invoices); err != nil {
		h.log.Error("failed to write success response", "handler", "ByMember", "operation", "WriteSuccess", "error", err)
	}
}

func (h *InvoiceHandler) Overdue(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	invoices, err := h.service.Overdue(r.Context())
	if err != nil {
		h.writeError(w, "Overdue", err)
		return
	}

	if err := httputil.WriteSuccess(w, invoices); err != nil {
		h.log.Error("failed to write success response", "handler", "Overdue", "operation", "WriteSuccess", "error", err)
	}
}

func (h *InvoiceHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *InvoiceHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/invoices", h.Generate)
	router.POST("/api/v1/invoices/id/:id/pay", h.Pay)
	router.GET("/api/v1/invoices/member/:member_id", h.ByMember)
	router.GET("/api/v1/invoices/overdue", h.Overdue)
}

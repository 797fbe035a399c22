package handler

import (
	"net/http"

	"cowork/internal/members/service"
	httputil "cowork/pkg/http"
	"cowork/pkg/logger"
	"cowork/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type MemberHandler struct {
	service service.MemberService
	log     *logger.Logger
}

func NewMemberHandler(service service.MemberService, log *logger.Logger) *MemberHandler {
	return &MemberHandler{
		service: service,
		log:     log,
	}
}

func (h *MemberHandler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.RegisterMemberRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Register", err)
		return
	}

	registration, err := h.service.Register(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Register", err)
		return
	}

	if err := httputil.WriteCreated(w, registration); err != nil {
		h.log.Error("failed to write created response", "handler", "Register", "operation", "WriteCreated", "error", err)
	}
}

func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	member, err := h.service.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}

	if err := httputil.WriteSuccess(w, member); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "operation", "WriteSuccess", "error", err)
	}
}

func (h *MemberHandler) ByPlan(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	members, err := h.service.ByPlan(r.Context(), r.URL.Query().Get("plan"))
	if err != nil {
		h.writeError(w, "ByPlan", err)
		return
	}

	if err := httputil.WriteSuccess(w, members); err != nil {
		h.log.Error("failed to write success response", "handler", "ByPlan", "operation", "WriteSuccess", "error", err)
	}
}

func (h *MemberHandler) SetStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var update model.MemberStatusUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		h.writeError(w, "SetStatus", err)
		return
	}

	member, err := h.service.SetStatus(r.Context(), ps.ByName("id"), &update)
	if err != nil {
		h.writeError(w, "SetStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, member); err != nil {
		h.log.Error("failed to write success response", "handler", "SetStatus", "operation", "WriteSuccess", "error", err)
	}
}

func (h *MemberHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *MemberHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/members", h.Register)
	router.GET("/api/v1/members", h.ByPlan)
	router.GET("/api/v1/members/id/:id", h.Get)
	router.PATCH("/api/v1/members/id/:id/status", h.SetStatus)
}

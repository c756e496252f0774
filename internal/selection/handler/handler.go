// Package handler exposes final selections over HTTP.
package handler

import (
	"net/http"

	"procurement_backend/internal/selection/service"
	"procurement_backend/internal/selection/transport"
	"procurement_backend/platform/httpkit"
	"procurement_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for final selections.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new selection handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the selection routes. Selections are addressed
// through their owning quotation request.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("/:id/selection", h.Create)
	rg.GET("/:id/selection", h.Get)
	rg.POST("/:id/selection/approve", h.Approve)
}

func (h *Handler) Create(c *gin.Context) {
	requestID, ok := pathID(c)
	if !ok {
		return
	}
	actorID, ok := httpkit.MustGetUserID(c)
	if !ok {
		return
	}

	var req transport.CreateSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), requestID, actorID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

func (h *Handler) Get(c *gin.Context) {
	requestID, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetForRequest(c.Request.Context(), requestID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Approve(c *gin.Context) {
	requestID, ok := pathID(c)
	if !ok {
		return
	}
	actorID, ok := httpkit.MustGetUserID(c)
	if !ok {
		return
	}

	sel, err := h.svc.GetForRequest(c.Request.Context(), requestID)
	if httpkit.HandleError(c, err) {
		return
	}

	result, err := h.svc.Approve(c.Request.Context(), sel.ID, actorID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

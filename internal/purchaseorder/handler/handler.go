// Package handler exposes purchase orders over HTTP.
package handler

import (
	"net/http"

	"procurement_backend/internal/purchaseorder/service"
	"procurement_backend/internal/purchaseorder/transport"
	"procurement_backend/platform/httpkit"
	"procurement_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for purchase orders.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new purchase order handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the purchase order routes.
func (h *Handler) RegisterRoutes(orders, requests *gin.RouterGroup) {
	orders.GET("/:id", h.Get)
	orders.POST("/:id/sign", h.Sign)
	orders.POST("/:id/reject", h.Reject)

	requests.GET("/:id/orders", h.ListForRequest)
	requests.POST("/:id/orders", h.Generate)
	requests.POST("/:id/orders/generate-all", h.GenerateAll)
}

func (h *Handler) Generate(c *gin.Context) {
	requestID, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.GenerateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Generate(c.Request.Context(), requestID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

func (h *Handler) GenerateAll(c *gin.Context) {
	requestID, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.svc.GenerateAll(c.Request.Context(), requestID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) ListForRequest(c *gin.Context) {
	requestID, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.svc.ListForRequest(c.Request.Context(), requestID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Get(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), orderID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Sign(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}
	signerID, ok := httpkit.MustGetUserID(c)
	if !ok {
		return
	}

	var req transport.SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Sign(c.Request.Context(), orderID, signerID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Reject(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}
	signerID, ok := httpkit.MustGetUserID(c)
	if !ok {
		return
	}

	var req transport.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Reject(c.Request.Context(), orderID, signerID, req)
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

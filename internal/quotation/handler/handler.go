// Package handler exposes the quotation workflow over HTTP.
package handler

import (
	"net/http"

	"procurement_backend/internal/quotation/service"
	"procurement_backend/internal/quotation/transport"
	"procurement_backend/platform/httpkit"
	"procurement_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for quotation requests.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new quotation handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the quotation routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetDetail)
	rg.GET("/:id/comparison", h.GetComparison)
	rg.POST("/:id/suppliers", h.SolicitSuppliers)
	rg.POST("/:id/sign", h.Sign)
	rg.POST("/:id/reject", h.Reject)
	rg.POST("/:id/reset", h.Reset)
	rg.PUT("/suppliers/:supplierId/quotation", h.RecordQuotation)
	rg.POST("/suppliers/:supplierId/quotation/submit", h.SubmitQuotation)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.CreateRequest(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

func (h *Handler) GetDetail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.svc.GetDetail(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) GetComparison(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.svc.Compare(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) SolicitSuppliers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req transport.SolicitSuppliersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.svc.SolicitSuppliers(c.Request.Context(), id, req); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "solicited"})
}

func (h *Handler) Sign(c *gin.Context) {
	id, ok := pathID(c, "id")
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

	result, err := h.svc.Sign(c.Request.Context(), id, signerID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Reject(c *gin.Context) {
	id, ok := pathID(c, "id")
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

	result, err := h.svc.Reject(c.Request.Context(), id, signerID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Reset(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actorID, ok := httpkit.MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.svc.Reset(c.Request.Context(), id, actorID); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "reset"})
}

func (h *Handler) RecordQuotation(c *gin.Context) {
	supplierID, ok := pathID(c, "supplierId")
	if !ok {
		return
	}

	var req transport.RecordQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.RecordQuotationDraft(c.Request.Context(), supplierID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) SubmitQuotation(c *gin.Context) {
	supplierID, ok := pathID(c, "supplierId")
	if !ok {
		return
	}

	if err := h.svc.SubmitQuotation(c.Request.Context(), supplierID); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "submitted"})
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

// Package purchaseorder provides the purchase order domain module.
package purchaseorder

import (
	"procurement_backend/internal/catalog"
	apphttp "procurement_backend/internal/http"
	"procurement_backend/internal/purchaseorder/handler"
	"procurement_backend/internal/purchaseorder/repository"
	"procurement_backend/internal/purchaseorder/service"
	quotationrepo "procurement_backend/internal/quotation/repository"
	selectionrepo "procurement_backend/internal/selection/repository"
	"procurement_backend/platform/events"
	"procurement_backend/platform/logger"
	"procurement_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the purchase order domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new purchase order module with all dependencies wired.
func NewModule(
	pool *pgxpool.Pool,
	quotation *quotationrepo.Repository,
	cat catalog.Provider,
	storage service.SignatureStore,
	eventBus *events.InMemoryBus,
	cfg service.ProcurementConfig,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	selRepo := selectionrepo.New(pool)
	svc := service.New(repo, selRepo, quotation, cat, storage, eventBus, cfg, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "purchaseorder"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	orders := ctx.Protected.Group("/purchase-orders")
	requests := ctx.Protected.Group("/quotation-requests")
	m.handler.RegisterRoutes(orders, requests)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

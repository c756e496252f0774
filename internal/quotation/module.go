// Package quotation provides the quotation request (RFQ) domain module.
package quotation

import (
	"procurement_backend/internal/catalog"
	apphttp "procurement_backend/internal/http"
	"procurement_backend/internal/quotation/handler"
	"procurement_backend/internal/quotation/repository"
	"procurement_backend/internal/quotation/service"
	"procurement_backend/internal/rates"
	"procurement_backend/platform/events"
	"procurement_backend/platform/logger"
	"procurement_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the quotation domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates a new quotation module with all dependencies wired.
// Cross-module collaborators (final selection, purchase orders) are injected
// afterwards via the service setters.
func NewModule(
	pool *pgxpool.Pool,
	cat catalog.Provider,
	rateProvider rates.Provider,
	storage service.SignatureStore,
	queue service.SolicitationQueuer,
	eventBus *events.InMemoryBus,
	cfg service.ProcurementConfig,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cat, rateProvider, storage, queue, eventBus, cfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "quotation"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for modules that share quotation data.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	requests := ctx.Protected.Group("/quotation-requests")
	m.handler.RegisterRoutes(requests)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

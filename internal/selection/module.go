// Package selection provides the adjudication (final selection) domain module.
package selection

import (
	"procurement_backend/internal/catalog"
	apphttp "procurement_backend/internal/http"
	quotationrepo "procurement_backend/internal/quotation/repository"
	"procurement_backend/internal/rates"
	"procurement_backend/internal/selection/handler"
	"procurement_backend/internal/selection/repository"
	"procurement_backend/internal/selection/service"
	"procurement_backend/platform/logger"
	"procurement_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the selection domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new selection module with all dependencies wired.
func NewModule(
	pool *pgxpool.Pool,
	quotation *quotationrepo.Repository,
	cat catalog.Provider,
	rateProvider rates.Provider,
	cfg service.ProcurementConfig,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, quotation, cat, rateProvider, cfg, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "selection"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes under the quotation request
// resource.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	requests := ctx.Protected.Group("/quotation-requests")
	m.handler.RegisterRoutes(requests)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

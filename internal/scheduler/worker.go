package scheduler

import (
	"context"
	"fmt"
	"time"

	"procurement_backend/internal/catalog"
	"procurement_backend/internal/email"
	quotationrepo "procurement_backend/internal/quotation/repository"
	quotationsvc "procurement_backend/internal/quotation/service"
	"procurement_backend/platform/apperr"
	"procurement_backend/platform/config"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker processes background tasks: solicitation email delivery and the
// quotation expiry sweep.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux

	repo    *quotationrepo.Repository
	svc     *quotationsvc.Service
	catalog catalog.Provider
	sender  email.Sender
	log     *logger.Logger
}

// NewWorker creates the asynq server, registers the task handlers and sets up
// the periodic expiry sweep.
func NewWorker(
	cfg config.SchedulerConfig,
	sweepEvery time.Duration,
	repo *quotationrepo.Repository,
	svc *quotationsvc.Service,
	cat catalog.Provider,
	sender email.Sender,
	log *logger.Logger,
) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		repo:    repo,
		svc:     svc,
		catalog: cat,
		sender:  sender,
		log:     log,
	}

	mux.HandleFunc(TaskSolicitationEmail, w.handleSolicitationEmail)
	mux.HandleFunc(TaskQuotationExpirySweep, w.handleExpirySweep)

	if sweepEvery > 0 {
		sched := asynq.NewScheduler(opt, nil)
		if _, err := sched.Register(
			fmt.Sprintf("@every %s", sweepEvery),
			NewQuotationExpirySweepTask(),
			asynq.Queue(queue),
		); err != nil {
			return nil, fmt.Errorf("register expiry sweep: %w", err)
		}
		w.scheduler = sched
	}

	return w, nil
}

// handleSolicitationEmail renders and sends the quotation order email, then
// marks the supplier as SENT. A supplier already past PENDING is skipped so
// asynq retries stay idempotent.
func (w *Worker) handleSolicitationEmail(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSolicitationEmailPayload(task)
	if err != nil {
		return err
	}
	qsID, err := uuid.Parse(payload.QuotationSupplierID)
	if err != nil {
		return err
	}

	qs, err := w.repo.GetSupplier(ctx, qsID)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			w.log.Warn("solicitation email skipped, supplier row gone", "quotationSupplierId", qsID)
			return nil
		}
		return err
	}
	if qs.Status != quotationrepo.SupplierPending {
		return nil
	}

	request, err := w.repo.GetRequest(ctx, qs.RequestID)
	if err != nil {
		return err
	}
	supplier, err := w.catalog.GetSupplier(ctx, qs.SupplierID)
	if err != nil {
		return err
	}
	buyer, err := w.catalog.GetBuyerProfile(ctx)
	if err != nil {
		return err
	}

	lines, err := w.catalog.GetRequirementLines(ctx, request.RequirementID)
	if err != nil {
		return err
	}
	solicited, err := w.repo.ListSolicitedLines(ctx, qs.RequestID)
	if err != nil {
		return err
	}
	mine := make(map[uuid.UUID]bool)
	for _, l := range solicited {
		if l.QuotationSupplierID == qs.ID {
			mine[l.RequirementLineID] = true
		}
	}

	data := email.SolicitationData{
		SupplierName: supplier.Name,
		ContactName:  supplier.ContactName,
		OrderNumber:  qs.OrderNumber,
		RequestCode:  request.Code,
		BuyerName:    buyer.Name,
		ReplyToEmail: buyer.Email,
	}
	if qs.Terms != nil {
		data.Terms = *qs.Terms
	}
	for _, l := range lines {
		if !mine[l.ID] {
			continue
		}
		data.Lines = append(data.Lines, email.SolicitationLine{
			Description: l.Description,
			Quantity:    l.Quantity.String(),
			Unit:        l.Unit,
			Kind:        string(l.Kind),
		})
	}

	if err := w.sender.SendSolicitationEmail(ctx, supplier.Email, data); err != nil {
		w.log.Error("solicitation email failed", "quotationSupplierId", qsID, "error", err)
		return err
	}

	return w.svc.MarkOrderSent(ctx, qsID)
}

func (w *Worker) handleExpirySweep(ctx context.Context, _ *asynq.Task) error {
	_, err := w.svc.ExpireStaleQuotations(ctx)
	return err
}

// Run starts the worker (and the periodic scheduler, when configured) until
// the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	if w.scheduler != nil {
		go func() {
			if err := w.scheduler.Run(); err != nil {
				w.log.Error("periodic scheduler stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

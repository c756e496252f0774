package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogrepo "procurement_backend/internal/catalog/repository"
	"procurement_backend/internal/email"
	quotationrepo "procurement_backend/internal/quotation/repository"
	quotationservice "procurement_backend/internal/quotation/service"
	"procurement_backend/internal/rates"
	"procurement_backend/internal/scheduler"
	"procurement_backend/platform/config"
	"procurement_backend/platform/db"
	"procurement_backend/platform/events"
	"procurement_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	catalogProvider := catalogrepo.New(pool)
	rateProvider := rates.NewPGProvider(pool)

	// Worker-side quotation wiring (no HTTP handlers or signature uploads
	// required): the worker only marks orders sent after delivery and expires
	// stale quotations on the periodic sweep.
	repo := quotationrepo.New(pool)
	svc := quotationservice.New(repo, catalogProvider, rateProvider, nil, (*scheduler.Client)(nil), eventBus, cfg, log)

	worker, err := scheduler.NewWorker(cfg, cfg.GetQuotationExpirySweepInterval(), repo, svc, catalogProvider, sender, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"procurement_backend/internal/approval"
	"procurement_backend/internal/events"
	"procurement_backend/internal/purchaseorder/repository"
	"procurement_backend/internal/purchaseorder/transport"
	"procurement_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// orderEntity adapts a locked purchase order row onto the approval protocol.
// Orders are ready to sign from the moment they are generated.
type orderEntity struct {
	status string
	amount decimal.Decimal
}

func (e orderEntity) EntityType() string { return "purchase order" }

func (e orderEntity) ReadyToSign() bool { return e.status == repository.StatusPending }

func (e orderEntity) HighestSignedLevel() int {
	switch e.status {
	case repository.StatusSigned1:
		return 1
	case repository.StatusSigned2:
		return 2
	case repository.StatusSigned3:
		return 3
	case repository.StatusApproved:
		return approval.MaxLevels
	}
	return 0
}

func (e orderEntity) IsTerminal() bool {
	switch e.status {
	case repository.StatusApproved, repository.StatusRejected, repository.StatusCancelled:
		return true
	}
	return false
}

func (e orderEntity) ThresholdAmount() decimal.Decimal { return e.amount }

func orderSignedStatus(level int) string {
	switch level {
	case 1:
		return repository.StatusSigned1
	case 2:
		return repository.StatusSigned2
	case 3:
		return repository.StatusSigned3
	}
	return repository.StatusApproved
}

// Sign applies one signature level to a purchase order. The fourth level is
// gated on the order's normalized total, independently of the owning request.
func (s *Service) Sign(ctx context.Context, orderID uuid.UUID, signerID uuid.UUID, req transport.SignRequest) (*transport.OrderResponse, error) {
	content, err := base64.StdEncoding.DecodeString(req.SignatureData)
	if err != nil {
		return nil, apperr.Validation("signatureData must be base64 encoded")
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "image/png"
	}

	// Check the transition before storing the blob so refused attempts leave
	// no orphaned objects. The transaction re-validates under lock.
	current, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	pre := orderEntity{status: current.Status, amount: current.NormalizedTotal}
	if err := approval.CanSign(pre, req.Level); err != nil {
		return nil, err
	}

	objectKey, err := s.storage.UploadSignature(ctx, repository.EntityTypeOrder, orderID, req.Level, content, contentType)
	if err != nil {
		return nil, fmt.Errorf("store signature: %w", err)
	}

	var updated *repository.PurchaseOrder
	var approved bool
	err = s.repo.WithTx(ctx, func(tx pgx.Tx) error {
		order, err := s.repo.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}

		entity := orderEntity{status: order.Status, amount: order.NormalizedTotal}
		approved, err = approval.Advance(entity, req.Level)
		if err != nil {
			return err
		}

		newStatus := repository.StatusApproved
		if !approved {
			newStatus = orderSignedStatus(req.Level)
		}

		if err := s.repo.InsertSignature(ctx, tx, orderID, req.Level, objectKey, signerID); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, tx, orderID, newStatus); err != nil {
			return err
		}

		s.log.Transition("purchase_order", orderID.String(), order.Status, newStatus, signerID.String())
		order.Status = newStatus
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.PurchaseOrderSigned{
		BaseEvent: events.NewBaseEvent(),
		OrderID:   orderID,
		Level:     req.Level,
		SignerID:  signerID,
		Approved:  approved,
	})

	return s.toOrderResponse(ctx, updated)
}

// Reject rejects the purchase order during sign-off.
func (s *Service) Reject(ctx context.Context, orderID uuid.UUID, signerID uuid.UUID, req transport.RejectRequest) (*transport.OrderResponse, error) {
	var updated *repository.PurchaseOrder
	err := s.repo.WithTx(ctx, func(tx pgx.Tx) error {
		order, err := s.repo.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}

		entity := orderEntity{status: order.Status, amount: order.NormalizedTotal}
		if err := approval.CanReject(entity, req.Reason); err != nil {
			return err
		}

		if err := s.repo.RecordRejection(ctx, tx, orderID, req.Reason, signerID); err != nil {
			return err
		}

		s.log.Transition("purchase_order", orderID.String(), order.Status, repository.StatusRejected, signerID.String())
		order.Status = repository.StatusRejected
		order.RejectionReason = &req.Reason
		order.RejectedBy = &signerID
		now := time.Now()
		order.RejectedAt = &now
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.PurchaseOrderRejected{
		BaseEvent: events.NewBaseEvent(),
		OrderID:   orderID,
		Reason:    req.Reason,
		SignerID:  signerID,
	})

	return s.toOrderResponse(ctx, updated)
}

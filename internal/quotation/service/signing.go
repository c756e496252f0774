package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"procurement_backend/internal/approval"
	"procurement_backend/internal/events"
	"procurement_backend/internal/quotation/repository"
	"procurement_backend/internal/quotation/transport"
	"procurement_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// requestEntity adapts a locked quotation request row onto the approval
// protocol. readiness and amount are resolved before the transaction starts;
// status comes from the row read under FOR UPDATE.
type requestEntity struct {
	status string
	ready  bool
	amount decimal.Decimal
}

func (e requestEntity) EntityType() string { return "quotation request" }

func (e requestEntity) ReadyToSign() bool { return e.ready }

func (e requestEntity) HighestSignedLevel() int { return signedLevel(e.status) }

func (e requestEntity) IsTerminal() bool {
	switch e.status {
	case repository.StatusApproved, repository.StatusRejected, repository.StatusCancelled:
		return true
	}
	return false
}

func (e requestEntity) ThresholdAmount() decimal.Decimal { return e.amount }

func signedLevel(status string) int {
	switch status {
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

func signedStatus(level int) string {
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

// Sign applies one signature level to the request. The first signature only
// becomes legal once the final selection is approved and every awarded
// supplier has a generated purchase order; from then on the workflow is
// frozen except for the sign-off chain itself.
func (s *Service) Sign(ctx context.Context, requestID uuid.UUID, signerID uuid.UUID, req transport.SignRequest) (*transport.RequestResponse, error) {
	content, err := base64.StdEncoding.DecodeString(req.SignatureData)
	if err != nil {
		return nil, apperr.Validation("signatureData must be base64 encoded")
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "image/png"
	}

	ready, amount, err := s.signatureReadiness(ctx, requestID)
	if err != nil {
		return nil, err
	}

	// Check the transition before storing the blob so refused attempts leave
	// no orphaned objects. The transaction re-validates under lock.
	current, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	pre := requestEntity{status: current.Status, ready: ready && current.Status == repository.StatusActive, amount: amount}
	if err := approval.CanSign(pre, req.Level); err != nil {
		return nil, err
	}

	objectKey, err := s.storage.UploadSignature(ctx, repository.EntityTypeRequest, requestID, req.Level, content, contentType)
	if err != nil {
		return nil, fmt.Errorf("store signature: %w", err)
	}

	var updated *repository.QuotationRequest
	var approved bool
	err = s.repo.WithTx(ctx, func(tx pgx.Tx) error {
		request, err := s.repo.GetRequestForUpdate(ctx, tx, requestID)
		if err != nil {
			return err
		}

		entity := requestEntity{status: request.Status, ready: ready && request.Status == repository.StatusActive, amount: amount}
		approved, err = approval.Advance(entity, req.Level)
		if err != nil {
			return err
		}

		newStatus := repository.StatusApproved
		if !approved {
			newStatus = signedStatus(req.Level)
		}

		if err := s.repo.InsertSignature(ctx, tx, &repository.Signature{
			ID:         uuid.New(),
			EntityType: repository.EntityTypeRequest,
			EntityID:   requestID,
			Level:      req.Level,
			ObjectKey:  objectKey,
			SignerID:   signerID,
			SignedAt:   time.Now(),
		}); err != nil {
			return err
		}
		if err := s.repo.UpdateRequestStatus(ctx, tx, requestID, newStatus); err != nil {
			return err
		}

		s.log.Transition("quotation_request", requestID.String(), request.Status, newStatus, signerID.String())
		request.Status = newStatus
		updated = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.QuotationRequestSigned{
		BaseEvent: events.NewBaseEvent(),
		RequestID: requestID,
		Level:     req.Level,
		SignerID:  signerID,
		Approved:  approved,
	})

	resp := toRequestResponse(updated)
	return &resp, nil
}

// Reject rejects the request during sign-off, recording who rejected and why.
func (s *Service) Reject(ctx context.Context, requestID uuid.UUID, signerID uuid.UUID, req transport.RejectRequest) (*transport.RequestResponse, error) {
	var updated *repository.QuotationRequest
	err := s.repo.WithTx(ctx, func(tx pgx.Tx) error {
		request, err := s.repo.GetRequestForUpdate(ctx, tx, requestID)
		if err != nil {
			return err
		}

		entity := requestEntity{status: request.Status}
		if err := approval.CanReject(entity, req.Reason); err != nil {
			return err
		}

		if err := s.repo.RecordRequestRejection(ctx, tx, requestID, req.Reason, signerID); err != nil {
			return err
		}

		s.log.Transition("quotation_request", requestID.String(), request.Status, repository.StatusRejected, signerID.String())
		request.Status = repository.StatusRejected
		request.RejectionReason = &req.Reason
		request.RejectedBy = &signerID
		now := time.Now()
		request.RejectedAt = &now
		updated = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.QuotationRequestRejected{
		BaseEvent: events.NewBaseEvent(),
		RequestID: requestID,
		Reason:    req.Reason,
		SignerID:  signerID,
	})

	resp := toRequestResponse(updated)
	return &resp, nil
}

// Reset wipes all downstream data of a request and returns it to PENDING.
// Open purchase orders generated from the request are cascade-cancelled
// first; if that fails the request is left untouched. The operation is
// irreversible and audited through the published event.
func (s *Service) Reset(ctx context.Context, requestID uuid.UUID, actorID uuid.UUID) error {
	request, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}

	var cancelled []uuid.UUID
	if s.canceller != nil {
		cancelled, err = s.canceller.CancelOpenForRequest(ctx, requestID, fmt.Sprintf("quotation request %s was reset", request.Code))
		if err != nil {
			return fmt.Errorf("cancel open purchase orders: %w", err)
		}
	}

	if err := s.repo.ResetRequest(ctx, requestID); err != nil {
		return err
	}

	s.log.Transition("quotation_request", requestID.String(), request.Status, repository.StatusPending, actorID.String())
	s.bus.Publish(ctx, events.QuotationRequestReset{
		BaseEvent:         events.NewBaseEvent(),
		RequestID:         requestID,
		ActorID:           actorID,
		CancelledOrderIDs: cancelled,
	})
	return nil
}

// signatureReadiness resolves the first-signature gate and the fourth-level
// threshold amount from the final selection and its purchase orders.
func (s *Service) signatureReadiness(ctx context.Context, requestID uuid.UUID) (ready bool, amount decimal.Decimal, err error) {
	if s.selections == nil {
		return false, decimal.Zero, nil
	}

	summary, err := s.selections.GetSummaryForRequest(ctx, requestID)
	if apperr.GetKind(err) == apperr.KindNotFound {
		return false, decimal.Zero, nil
	}
	if err != nil {
		return false, decimal.Zero, err
	}

	amount = summary.NormalizedTotal
	if summary.Status != "APPROVED" && summary.Status != "GENERATED" {
		return false, amount, nil
	}

	if s.orders == nil {
		return false, amount, nil
	}
	generated, err := s.orders.ListGeneratedSuppliers(ctx, summary.ID)
	if err != nil {
		return false, amount, err
	}
	generatedSet := make(map[uuid.UUID]bool, len(generated))
	for _, id := range generated {
		generatedSet[id] = true
	}
	for _, supplierID := range summary.SupplierIDs {
		if !generatedSet[supplierID] {
			return false, amount, nil
		}
	}
	return true, amount, nil
}

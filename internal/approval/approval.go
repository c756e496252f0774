// Package approval implements the multi-level sign-off protocol shared by
// quotation requests and purchase orders. The protocol is a sequential chain
// of up to four signature levels (logistics, technical office, administration,
// management); the fourth level only applies above a fixed amount threshold.
//
// The package is pure: it validates and describes transitions but never
// persists anything. Services run these checks inside a transaction after
// re-reading the entity's current state, then write the outcome.
package approval

import (
	"fmt"
	"time"

	"procurement_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxLevels is the number of signature slots a signable entity carries.
const MaxLevels = 4

// FourthLevelThreshold is the adjudicated amount (in base currency) at and
// above which the management signature becomes mandatory.
var FourthLevelThreshold = decimal.NewFromInt(10000)

// Signature is one recorded sign-off: the artifact reference plus the signer
// identity and timestamp, kept for audit.
type Signature struct {
	Level     int
	SignerID  uuid.UUID
	ObjectKey string // signature artifact location in blob storage
	SignedAt  time.Time
}

// Entity is the narrow view of a signable aggregate the protocol needs.
// Both QuotationRequest and PurchaseOrder adapt onto it.
type Entity interface {
	// EntityType names the aggregate kind for error messages and audit.
	EntityType() string
	// ReadyToSign reports whether the entity is in its "ready to sign"
	// status (ACTIVE for quotation requests, PENDING for purchase orders).
	ReadyToSign() bool
	// HighestSignedLevel returns 0 when unsigned, otherwise the highest
	// level already signed.
	HighestSignedLevel() int
	// IsTerminal reports whether the entity reached APPROVED, REJECTED or
	// CANCELLED.
	IsTerminal() bool
	// ThresholdAmount is the aggregate amount the fourth-level gate is
	// evaluated against, normalized to the base currency.
	ThresholdAmount() decimal.Decimal
}

// RequiresFourthLevel reports whether the management signature applies for
// the given amount. True iff amount >= 10000.
func RequiresFourthLevel(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(FourthLevelThreshold)
}

// ApplicableLevels returns how many signature levels the chain has for the
// given amount: MaxLevels at or above the threshold, one fewer below it.
func ApplicableLevels(amount decimal.Decimal) int {
	if RequiresFourthLevel(amount) {
		return MaxLevels
	}
	return MaxLevels - 1
}

// CanSign validates that the given level may be signed in the entity's
// current state. Returns an InvalidTransition error describing the offending
// level otherwise.
func CanSign(e Entity, level int) error {
	if level < 1 || level > MaxLevels {
		return apperr.Validation(fmt.Sprintf("signature level %d out of range 1..%d", level, MaxLevels))
	}

	if e.IsTerminal() {
		return apperr.InvalidTransition(fmt.Sprintf("%s is in a terminal state and cannot be signed", e.EntityType()))
	}

	applicable := ApplicableLevels(e.ThresholdAmount())
	if level > applicable {
		return apperr.InvalidTransition(fmt.Sprintf(
			"signature level %d does not apply: amount below the level-%d threshold", level, MaxLevels))
	}

	signed := e.HighestSignedLevel()
	if signed >= level {
		return apperr.InvalidTransition(fmt.Sprintf("%s level %d is already signed", e.EntityType(), level))
	}

	if level == 1 {
		if !e.ReadyToSign() {
			return apperr.InvalidTransition(fmt.Sprintf("%s is not ready for its first signature", e.EntityType()))
		}
		return nil
	}

	if signed != level-1 {
		return apperr.InvalidTransition(fmt.Sprintf(
			"%s level %d cannot be signed before level %d", e.EntityType(), level, level-1))
	}

	return nil
}

// Advance validates the signature and reports whether it completes the chain
// (i.e. the entity becomes APPROVED rather than SIGNED_n). The caller
// persists the new status and the signature record atomically.
func Advance(e Entity, level int) (approved bool, err error) {
	if err := CanSign(e, level); err != nil {
		return false, err
	}
	return level == ApplicableLevels(e.ThresholdAmount()), nil
}

// CanReject validates a rejection. Rejection is only legal from a
// signed-but-not-yet-approved state, and always needs a reason.
func CanReject(e Entity, reason string) error {
	if reason == "" {
		return apperr.Validation("rejection reason is required")
	}
	if e.IsTerminal() {
		return apperr.InvalidTransition(fmt.Sprintf("%s is in a terminal state and cannot be rejected", e.EntityType()))
	}
	if e.HighestSignedLevel() < 1 {
		return apperr.InvalidTransition(fmt.Sprintf("%s has no signatures to reject", e.EntityType()))
	}
	return nil
}

package approval

import (
	"testing"

	"procurement_backend/platform/apperr"

	"github.com/shopspring/decimal"
)

type fakeEntity struct {
	ready    bool
	signed   int
	terminal bool
	amount   decimal.Decimal
}

func (f fakeEntity) EntityType() string               { return "test entity" }
func (f fakeEntity) ReadyToSign() bool                { return f.ready }
func (f fakeEntity) HighestSignedLevel() int          { return f.signed }
func (f fakeEntity) IsTerminal() bool                 { return f.terminal }
func (f fakeEntity) ThresholdAmount() decimal.Decimal { return f.amount }

func amt(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRequiresFourthLevel_Boundary(t *testing.T) {
	if RequiresFourthLevel(amt("9999.99")) {
		t.Fatal("9999.99 must not require the fourth level")
	}
	if !RequiresFourthLevel(amt("10000.00")) {
		t.Fatal("10000.00 must require the fourth level")
	}
	if !RequiresFourthLevel(amt("10000.01")) {
		t.Fatal("10000.01 must require the fourth level")
	}
}

func TestApplicableLevels(t *testing.T) {
	if got := ApplicableLevels(amt("500")); got != 3 {
		t.Fatalf("expected 3 levels below threshold, got %d", got)
	}
	if got := ApplicableLevels(amt("10000")); got != 4 {
		t.Fatalf("expected 4 levels at threshold, got %d", got)
	}
}

func TestCanSign_FirstLevelRequiresReadyState(t *testing.T) {
	notReady := fakeEntity{ready: false, amount: amt("100")}
	if err := CanSign(notReady, 1); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected InvalidTransition for unready entity, got %v", err)
	}

	ready := fakeEntity{ready: true, amount: amt("100")}
	if err := CanSign(ready, 1); err != nil {
		t.Fatalf("expected first signature on ready entity to pass, got %v", err)
	}
}

func TestCanSign_EnforcesSequentialOrder(t *testing.T) {
	e := fakeEntity{ready: true, signed: 1, amount: amt("20000")}

	if err := CanSign(e, 3); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected out-of-order signing to fail, got %v", err)
	}
	if err := CanSign(e, 2); err != nil {
		t.Fatalf("expected level 2 after level 1 to pass, got %v", err)
	}
}

func TestCanSign_RejectsDoubleSigning(t *testing.T) {
	e := fakeEntity{ready: true, signed: 2, amount: amt("20000")}
	if err := CanSign(e, 2); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected re-signing an existing level to fail, got %v", err)
	}
	if err := CanSign(e, 1); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected signing below the current level to fail, got %v", err)
	}
}

func TestCanSign_TerminalEntity(t *testing.T) {
	e := fakeEntity{ready: true, signed: 2, terminal: true, amount: amt("20000")}
	if err := CanSign(e, 3); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected signing a terminal entity to fail, got %v", err)
	}
}

func TestCanSign_FourthLevelSkippedBelowThreshold(t *testing.T) {
	e := fakeEntity{ready: true, signed: 3, amount: amt("9999.99")}
	if err := CanSign(e, 4); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected level 4 below threshold to fail, got %v", err)
	}
}

func TestCanSign_LevelOutOfRange(t *testing.T) {
	e := fakeEntity{ready: true, amount: amt("100")}
	if err := CanSign(e, 0); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for level 0, got %v", err)
	}
	if err := CanSign(e, 5); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for level 5, got %v", err)
	}
}

func TestAdvance_ApprovesAtLastApplicableLevel(t *testing.T) {
	small := fakeEntity{ready: true, signed: 2, amount: amt("500")}
	approved, err := Advance(small, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approved {
		t.Fatal("level 3 must approve a below-threshold entity")
	}

	large := fakeEntity{ready: true, signed: 2, amount: amt("50000")}
	approved, err = Advance(large, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if approved {
		t.Fatal("level 3 must not approve an above-threshold entity")
	}

	large.signed = 3
	approved, err = Advance(large, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approved {
		t.Fatal("level 4 must approve an above-threshold entity")
	}
}

func TestCanReject(t *testing.T) {
	unsigned := fakeEntity{ready: true, amount: amt("100")}
	if err := CanReject(unsigned, "too expensive"); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected rejecting an unsigned entity to fail, got %v", err)
	}

	signed := fakeEntity{ready: true, signed: 1, amount: amt("100")}
	if err := CanReject(signed, ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected empty reason to fail validation, got %v", err)
	}
	if err := CanReject(signed, "budget exceeded"); err != nil {
		t.Fatalf("expected rejection of signed entity to pass, got %v", err)
	}

	terminal := fakeEntity{signed: 2, terminal: true, amount: amt("100")}
	if err := CanReject(terminal, "reason"); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected rejecting a terminal entity to fail, got %v", err)
	}
}

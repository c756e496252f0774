package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEffectiveQuantity(t *testing.T) {
	tests := []struct {
		name string
		kind LineKind
		qty  int64
		want int64
	}{
		{"article uses stored quantity", LineKindArticle, 12, 12},
		{"article with zero quantity counts as one", LineKindArticle, 0, 1},
		{"service always counts as one", LineKindService, 5, 1},
		{"service with zero quantity counts as one", LineKindService, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := RequirementLine{Kind: tt.kind, Quantity: decimal.NewFromInt(tt.qty)}
			if got := line.EffectiveQuantity(); !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Errorf("EffectiveQuantity() = %s, want %d", got, tt.want)
			}
		})
	}
}

package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMovement_Validate(t *testing.T) {
	valid := func() Movement {
		return Movement{StoreID: 1, SKU: "ABC", Type: TypePurchase, QuantityDelta: 5}
	}

	tests := []struct {
		name    string
		mutate  func(m *Movement)
		wantErr bool
	}{
		{"合法的采购入库", func(m *Movement) {}, false},
		{"调整可以为负", func(m *Movement) { m.Type = TypeAdjustment; m.QuantityDelta = -3 }, false},
		{"调整可以为正", func(m *Movement) { m.Type = TypeAdjustment; m.QuantityDelta = 3 }, false},
		{"销售为负", func(m *Movement) { m.Type = TypeSale; m.QuantityDelta = -1 }, false},
		{"门店为空", func(m *Movement) { m.StoreID = 0 }, true},
		{"SKU为空白", func(m *Movement) { m.SKU = "  " }, true},
		{"SKU过长", func(m *Movement) { m.SKU = string(make([]byte, MaxSKULength+1)) }, true},
		{"未知类型", func(m *Movement) { m.Type = "gift" }, true},
		{"数量为0", func(m *Movement) { m.QuantityDelta = 0 }, true},
		{"采购为负", func(m *Movement) { m.QuantityDelta = -5 }, true},
		{"销售为正", func(m *Movement) { m.Type = TypeSale; m.QuantityDelta = 2 }, true},
		{"破损为正", func(m *Movement) { m.Type = TypeDamage; m.QuantityDelta = 2 }, true},
		{"负成本", func(m *Movement) { m.UnitCost = decimal.NewFromInt(-1) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.mutate(&m)

			err := m.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidMovement), "应返回ErrInvalidMovement, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

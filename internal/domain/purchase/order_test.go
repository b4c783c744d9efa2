package purchase

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

var now = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func TestNewOrder(t *testing.T) {
	items := []Item{
		{SKU: "ABC", OrderedQty: 20, UnitCost: decimal.RequireFromString("2.5")},
		{SKU: "XYZ", OrderedQty: 10, ShippedQty: 8, UnitCost: decimal.RequireFromString("1.25")},
	}

	o, err := NewOrder("PO-1", "SUP-1", 1, items, nil, now)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	// 20*2.5 + 8*1.25(按实发)
	assert.True(t, o.TotalValue.Equal(decimal.RequireFromString("60")), "got %s", o.TotalValue)

	_, err = NewOrder("", "SUP-1", 1, items, nil, now)
	assert.True(t, errors.Is(err, ErrInvalidPurchaseOrder))
	_, err = NewOrder("PO-2", "SUP-1", 1, nil, nil, now)
	assert.True(t, errors.Is(err, ErrInvalidPurchaseOrder))
}

func TestOrder_Transitions(t *testing.T) {
	o := &Order{PONumber: "PO-1", Status: StatusPending}

	require.NoError(t, o.MarkReceived(now))
	assert.Equal(t, StatusReceived, o.Status)
	require.NotNil(t, o.ReceivedAt)

	assert.True(t, errors.Is(o.Cancel(now), ErrInvalidStatusTransition), "已收货不能取消")
	assert.True(t, errors.Is(o.MarkReceived(now), ErrInvalidStatusTransition), "不能重复收货")
}

func TestItem_Validate(t *testing.T) {
	assert.NoError(t, (&Item{SKU: "A", OrderedQty: 1}).Validate())
	assert.NoError(t, (&Item{SKU: "A", ShippedQty: 1}).Validate())
	assert.Error(t, (&Item{SKU: "", OrderedQty: 1}).Validate())
	assert.Error(t, (&Item{SKU: "A"}).Validate())
	assert.Error(t, (&Item{SKU: "A", OrderedQty: 1, UnitCost: decimal.NewFromInt(-1)}).Validate())
}

func TestReceivingError(t *testing.T) {
	cause := errors.New("db down")
	err := error(&ReceivingError{PurchaseOrderID: 3, Line: 2, SKU: "XYZ", Err: cause})

	assert.True(t, errors.Is(err, ErrReceivingFailed))
	assert.True(t, errors.Is(err, cause))

	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeReceivingFailed, appErr.Code)
	assert.Contains(t, appErr.Message, "SKU=XYZ")
}

func TestOrder_SKUs(t *testing.T) {
	o := &Order{Items: []Item{{SKU: "B"}, {SKU: "A"}, {SKU: "B"}}}
	assert.Equal(t, []string{"B", "A"}, o.SKUs())
}

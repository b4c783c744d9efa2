package batch

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var received = time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	b, err := New(Origin{
		LotNumber:  "LOT-1",
		SKU:        "ABC",
		StoreID:    1,
		Quantity:   20,
		UnitCost:   decimal.RequireFromString("2.50"),
		CaseGTIN:   "10012345678902",
		UnitGTIN:   "00012345678905",
		ReceivedAt: received,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(20), b.QuantityReceived)
	assert.Equal(t, int64(20), b.QuantityRemaining)
	assert.Equal(t, "10012345678902", b.CaseGTIN)

	_, err = New(Origin{SKU: "ABC", StoreID: 1, Quantity: 0, ReceivedAt: received})
	assert.True(t, errors.Is(err, ErrInvalidBatch))
}

func TestBatch_Consume(t *testing.T) {
	b := &Batch{ID: 1, QuantityReceived: 10, QuantityRemaining: 10}

	require.NoError(t, b.Consume(4, received))
	assert.Equal(t, int64(6), b.QuantityRemaining)

	err := b.Consume(7, received)
	assert.True(t, errors.Is(err, ErrInsufficientBatchQuantity))
	assert.Equal(t, int64(6), b.QuantityRemaining, "失败时不扣减")

	require.NoError(t, b.Consume(6, received))
	assert.True(t, b.IsDepleted())
}

func TestAllocateFIFO(t *testing.T) {
	open := func() []*Batch {
		return []*Batch{
			{ID: 1, LotNumber: "OLD", QuantityRemaining: 3},
			{ID: 2, LotNumber: "MID", QuantityRemaining: 5},
			{ID: 3, LotNumber: "NEW", QuantityRemaining: 10},
		}
	}

	t.Run("跨批次先进先出", func(t *testing.T) {
		batches := open()
		allocs, err := AllocateFIFO(batches, 6, received)
		require.NoError(t, err)
		assert.Equal(t, []Allocation{
			{BatchID: 1, LotNumber: "OLD", Quantity: 3},
			{BatchID: 2, LotNumber: "MID", Quantity: 3},
		}, allocs)
		assert.Equal(t, int64(0), batches[0].QuantityRemaining)
		assert.Equal(t, int64(2), batches[1].QuantityRemaining)
		assert.Equal(t, int64(10), batches[2].QuantityRemaining)
	})

	t.Run("总量不足时不修改任何批次", func(t *testing.T) {
		batches := open()
		_, err := AllocateFIFO(batches, 19, received)
		assert.True(t, errors.Is(err, ErrInsufficientBatchQuantity))
		assert.Equal(t, int64(3), batches[0].QuantityRemaining)
	})
}

func TestBatch_IsExpired(t *testing.T) {
	expiry := received.AddDate(0, 1, 0)
	b := &Batch{ExpiryDate: &expiry}
	assert.False(t, b.IsExpired(received))
	assert.True(t, b.IsExpired(expiry))
	assert.False(t, (&Batch{}).IsExpired(received), "无保质期")
}

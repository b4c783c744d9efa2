package snapshot

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/stockcore/internal/domain/ledger"
)

func TestSnapshot_Available(t *testing.T) {
	s := &Snapshot{OnHand: 10, Reserved: 4}
	assert.Equal(t, int64(6), s.Available())

	// 盘亏后OnHand可能小于Reserved,可售量不能为负
	s.OnHand = 2
	assert.Equal(t, int64(0), s.Available())
}

func TestSnapshot_Apply(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := New(1, "ABC", now)

	s.Apply(&ledger.Movement{ID: 7, Type: ledger.TypePurchase, QuantityDelta: 20, CreatedAt: now})
	assert.Equal(t, int64(20), s.OnHand)
	assert.Equal(t, uint(7), s.LastMovementID)
	require.NotNil(t, s.LastReceivedAt)
	assert.Nil(t, s.LastSoldAt)

	later := now.Add(time.Hour)
	s.Apply(&ledger.Movement{ID: 8, Type: ledger.TypeSale, QuantityDelta: -4, CreatedAt: later})
	assert.Equal(t, int64(16), s.OnHand)
	require.NotNil(t, s.LastSoldAt)
	assert.True(t, s.LastSoldAt.Equal(later))
}

func TestSnapshot_Hold(t *testing.T) {
	now := time.Now()
	s := &Snapshot{StoreID: 1, SKU: "ABC", OnHand: 10}

	require.NoError(t, s.Hold(4, now))
	assert.Equal(t, int64(6), s.Available())

	err := s.Hold(7, now)
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.Equal(t, int64(4), s.Reserved, "失败时不能部分预占")

	require.NoError(t, s.Hold(6, now))
	assert.Equal(t, int64(0), s.Available())

	assert.Error(t, s.Hold(0, now))

	s.Unhold(100, now)
	assert.Equal(t, int64(0), s.Reserved)
}

func TestSnapshot_NeedsReorder(t *testing.T) {
	s := &Snapshot{OnHand: 10}
	assert.False(t, s.NeedsReorder(), "未设置补货点")

	require.NoError(t, s.SetReorderPolicy(5, 20, time.Now()))
	assert.False(t, s.NeedsReorder())

	s.Reserved = 5
	assert.True(t, s.NeedsReorder())

	assert.Error(t, s.SetReorderPolicy(-1, 0, time.Now()))
}

func TestLockKey(t *testing.T) {
	assert.Equal(t, "stock:1:ABC", LockKey(1, "ABC"))
	assert.Equal(t, LockKey(2, "X"), (&Snapshot{StoreID: 2, SKU: "X"}).Key())
}

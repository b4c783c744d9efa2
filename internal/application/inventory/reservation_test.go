package inventory

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/stockcore/internal/domain/ledger"
	"github.com/xiebiao/stockcore/internal/domain/reservation"
	"github.com/xiebiao/stockcore/internal/domain/snapshot"
)

// 在手10 → 预占4 → 可售6 → 提交 → 在手6、预占0、一条-4销售流水
// 再收货20 → 在手26、批次剩余20、一条+20入库流水
func TestReservation_CheckoutThenReceive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, "ABC", 10)

	res, err := f.manager.Hold(ctx, HoldRequest{StoreID: 1, SKU: "ABC", Quantity: 4, OwnerRef: "cart-1"})
	require.NoError(t, err)
	assert.Equal(t, reservation.StateHeld, res.State)
	assert.Equal(t, testNow.Add(15*time.Minute), res.ExpiresAt, "默认预占15分钟")

	s := f.snapshot(t, 1, "ABC")
	assert.Equal(t, int64(10), s.OnHand)
	assert.Equal(t, int64(4), s.Reserved)
	assert.Equal(t, int64(6), s.Available())

	result, err := f.manager.Commit(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StateCommitted, result.Reservation.State)
	require.NotNil(t, result.Reservation.MovementID)
	assert.Equal(t, result.Movement.ID, *result.Reservation.MovementID)

	s = f.snapshot(t, 1, "ABC")
	assert.Equal(t, int64(6), s.OnHand)
	assert.Equal(t, int64(0), s.Reserved)

	sales, err := f.ledger.ByReference(ctx, "reservation", res.ID)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, ledger.TypeSale, sales[0].Type)
	assert.Equal(t, int64(-4), sales[0].QuantityDelta)
	assert.Equal(t, 1, f.events.count(RoutingReservationCommitted))

	po := f.createPO(t, "PO-1001", 1, poItem("ABC", 20, "2.50"))
	received, err := f.receiver.Receive(ctx, po.ID)
	require.NoError(t, err)
	assert.NotNil(t, received.ReceivedAt)

	s = f.snapshot(t, 1, "ABC")
	assert.Equal(t, int64(26), s.OnHand)
	f.requireLedgerConsistent(t, 1, "ABC")

	batches, err := f.batches.ListByPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, int64(20), batches[0].QuantityRemaining)

	purchases, err := f.ledger.ByReference(ctx, "purchase_order", strconv.FormatUint(uint64(po.ID), 10))
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, int64(20), purchases[0].QuantityDelta)
}

func TestReservation_NeverOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 12
	f.seed(t, 1, "HOT", n-1)

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		ok, rejected int
		unexpected   []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.Hold(ctx, HoldRequest{StoreID: 1, SKU: "HOT", Quantity: 1})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, snapshot.ErrInsufficientStock):
				rejected++
			default:
				unexpected = append(unexpected, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, unexpected)
	assert.Equal(t, n-1, ok)
	assert.Equal(t, 1, rejected, "恰好一个请求因库存不足失败")

	s := f.snapshot(t, 1, "HOT")
	assert.Equal(t, int64(n-1), s.Reserved)
	assert.Equal(t, int64(0), s.Available())
}

func TestReservation_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, "ABC", 5)

	_, err := f.manager.Hold(ctx, HoldRequest{StoreID: 1, SKU: "ABC", Quantity: 6})
	assert.True(t, errors.Is(err, snapshot.ErrInsufficientStock), "不做部分预占")

	_, err = f.manager.Hold(ctx, HoldRequest{StoreID: 1, SKU: "ABC", Quantity: 0})
	assert.True(t, errors.Is(err, reservation.ErrInvalidReservation))

	_, err = f.manager.Hold(ctx, HoldRequest{StoreID: 1, SKU: "ABC", Quantity: 1, TTL: -time.Second})
	assert.True(t, errors.Is(err, reservation.ErrInvalidReservation))

	_, err = f.manager.Hold(ctx, HoldRequest{StoreID: 1, SKU: "UNKNOWN", Quantity: 1})
	assert.True(t, errors.Is(err, snapshot.ErrInsufficientStock), "没有库存记录的SKU按库存不足处理")

	res, err := f.manager.Hold(ctx, HoldRequest{StoreID: 1, SKU: "ABC", Quantity: 1, TTL: 24 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(2*time.Hour), res.ExpiresAt, "超过上限按上限处理")

	assert.Equal(t, int64(1), f.snapshot(t, 1, "ABC").Reserved)
}

func TestReservation_ReleaseIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, "ABC", 10)

	res, err := f.manager.Hold(ctx, HoldRequest{StoreID: 1, SKU: "ABC", Quantity: 3})
	require.NoError(t, err)

	released, err := f.manager.Release(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StateReleased, released.State)
	assert.Equal(t, int64(0), f.snapshot(t, 1, "ABC").Reserved)

	_, err = f.manager.Release(ctx, res.ID)
	assert.True(t, errors.Is(err, reservation.ErrAlreadyReleased))

	s := f.snapshot(t, 1, "ABC")
	assert.Equal(t, int64(0), s.Reserved, "重复释放没有副作用")
	assert.Equal(t, int64(10), s.OnHand)

	_, err = f.manager.Release(ctx, "no-such-id")
	assert.True(t, errors.Is(err, reservation.ErrReservationNotFound))
}

func TestReservation_TerminalStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, "ABC", 10)

	t.Run("提交后不能释放", func(t *testing.T) {
		res, err := f.manager.Hold(ctx, HoldRequest{StoreID: 1, SKU: "ABC", Quantity: 2})
		require.NoError(t, err)
		_, err = f.manager.Commit(ctx, res.ID)
		require.NoError(t, err)

		_, err = f.manager.Release(ctx, res.ID)
		assert.True(t, errors.Is(err, reservation.ErrReservationClosed))
		_, err = f.manager.Commit(ctx, res.ID)
		assert.True(t, errors.Is(err, reservation.ErrReservationClosed), "不能重复提交")
	})

	t.Run("释放后不能提交", func(t *testing.T) {
		res, err := f.manager.Hold(ctx, HoldRequest{StoreID: 1, SKU: "ABC", Quantity: 2})
		require.NoError(t, err)
		_, err = f.manager.Release(ctx, res.ID)
		require.NoError(t, err)

		_, err = f.manager.Commit(ctx, res.ID)
		assert.True(t, errors.Is(err, reservation.ErrReservationClosed))
	})

	s := f.snapshot(t, 1, "ABC")
	assert.Equal(t, int64(8), s.OnHand)
	assert.Equal(t, int64(0), s.Reserved)
	f.requireLedgerConsistent(t, 1, "ABC")
}

func TestReservation_Expiry(t *testing.T) {
	ctx := context.Background()

	t.Run("访问时懒过期,释放出的库存可再次预占", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 1, "ABC", 5)

		stale, err := f.manager.Hold(ctx, HoldRequest{StoreID: 1, SKU: "ABC", Quantity: 5, TTL: time.Minute})
		require.NoError(t, err)

		_, err = f.manager.Hold(ctx, HoldRequest{StoreID: 1, SKU: "ABC", Quantity: 1})
		require.True(t, errors.Is(err, snapshot.ErrInsufficientStock))

		f.clock.Advance(2 * time.Minute)
		_, err = f.manager.Hold(ctx, HoldRequest{StoreID: 1, SKU: "ABC", Quantity: 5})
		require.NoError(t, err)

		got, err := f.reservations.FindByID(ctx, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, reservation.StateExpired, got.State)
		assert.Equal(t, int64(5), f.snapshot(t, 1, "ABC").Reserved)
	})

	t.Run("过期后提交失败,过期状态已落库", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 1, "ABC", 5)

		res, err := f.manager.Hold(ctx, HoldRequest{StoreID: 1, SKU: "ABC", Quantity: 2, TTL: time.Minute})
		require.NoError(t, err)
		f.clock.Advance(time.Minute) // 到期时刻即视为过期

		_, err = f.manager.Commit(ctx, res.ID)
		assert.True(t, errors.Is(err, reservation.ErrReservationExpired))

		got, err := f.reservations.FindByID(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, reservation.StateExpired, got.State)

		s := f.snapshot(t, 1, "ABC")
		assert.Equal(t, int64(0), s.Reserved)
		assert.Equal(t, int64(5), s.OnHand, "过期不产生流水")
	})

	t.Run("过期后释放视为成功,再次释放返回已释放", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 1, "ABC", 5)

		res, err := f.manager.Hold(ctx, HoldRequest{StoreID: 1, SKU: "ABC", Quantity: 2, TTL: time.Minute})
		require.NoError(t, err)
		f.clock.Advance(time.Hour)

		released, err := f.manager.Release(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, reservation.StateExpired, released.State)
		assert.Equal(t, int64(0), f.snapshot(t, 1, "ABC").Reserved)

		_, err = f.manager.Release(ctx, res.ID)
		assert.True(t, errors.Is(err, reservation.ErrAlreadyReleased))
	})

	t.Run("查询时懒过期", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 1, "ABC", 5)

		res, err := f.manager.Hold(ctx, HoldRequest{StoreID: 1, SKU: "ABC", Quantity: 2, TTL: time.Minute})
		require.NoError(t, err)

		got, err := f.manager.Get(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, reservation.StateHeld, got.State)

		f.clock.Advance(2 * time.Minute)
		got, err = f.manager.Get(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, reservation.StateExpired, got.State)
		assert.Equal(t, int64(0), f.snapshot(t, 1, "ABC").Reserved)
	})
}

func TestReservationManager_ExpireStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, "A", 10)
	f.seed(t, 1, "B", 10)
	f.seed(t, 2, "A", 10)

	for _, req := range []HoldRequest{
		{StoreID: 1, SKU: "A", Quantity: 1, TTL: time.Minute},
		{StoreID: 1, SKU: "A", Quantity: 2, TTL: time.Minute},
		{StoreID: 1, SKU: "B", Quantity: 3, TTL: time.Minute},
		{StoreID: 2, SKU: "A", Quantity: 4, TTL: time.Hour},
	} {
		_, err := f.manager.Hold(ctx, req)
		require.NoError(t, err)
	}

	n, err := f.manager.ExpireStale(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "尚未到期")

	f.clock.Advance(5 * time.Minute)
	n, err = f.manager.ExpireStale(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, int64(0), f.snapshot(t, 1, "A").Reserved)
	assert.Equal(t, int64(0), f.snapshot(t, 1, "B").Reserved)
	assert.Equal(t, int64(4), f.snapshot(t, 2, "A").Reserved, "未到期的预占不受影响")

	n, err = f.manager.ExpireStale(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "重复扫描没有副作用")
}

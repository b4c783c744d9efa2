package inventory

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xiebiao/stockcore/internal/domain/asn"
	"github.com/xiebiao/stockcore/internal/domain/batch"
	"github.com/xiebiao/stockcore/internal/domain/ledger"
	"github.com/xiebiao/stockcore/internal/domain/purchase"
	"github.com/xiebiao/stockcore/internal/domain/reservation"
	"github.com/xiebiao/stockcore/internal/domain/snapshot"
	"github.com/xiebiao/stockcore/internal/infrastructure/config"
	"github.com/xiebiao/stockcore/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/stockcore/pkg/keylock"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// testClock 可拨动的时钟
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, routingKey)
	return nil
}

func (p *recordingPublisher) count(routingKey string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == routingKey {
			n++
		}
	}
	return n
}

// fixture 一套完整的库存服务,数据库为临时SQLite文件
type fixture struct {
	db     *gorm.DB
	clock  *testClock
	events *recordingPublisher

	movements    ledger.Repository
	snapshots    snapshot.Repository
	reservations reservation.Repository
	batchRepo    batch.Repository
	orders       purchase.Repository
	staging      asn.Repository

	ledger   *Ledger
	batches  *BatchTracker
	store    *SnapshotStore
	manager  *ReservationManager
	receiver *Receiver
	promoter *ASNPromoter
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithCache(t, nil)
}

func newFixtureWithCache(t *testing.T, cache StockCache) *fixture {
	t.Helper()

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "stock.db"),
		},
	}
	db, err := mysql.NewDB(cfg, zap.NewNop())
	require.NoError(t, err, "打开测试数据库失败")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	f := &fixture{
		db:           db,
		clock:        &testClock{now: testNow},
		events:       &recordingPublisher{},
		movements:    mysql.NewMovementRepository(db),
		snapshots:    mysql.NewSnapshotRepository(db),
		reservations: mysql.NewReservationRepository(db),
		batchRepo:    mysql.NewBatchRepository(db),
		orders:       mysql.NewPurchaseOrderRepository(db),
		staging:      mysql.NewStagingRepository(db),
	}

	opts := DefaultOptions()
	opts.LockTimeout = 10 * time.Second
	opts.Now = f.clock.Now
	rt := NewRuntime(mysql.NewTxManager(db), keylock.NewLocal(), cache, f.events, opts, zap.NewNop())

	f.batches = NewBatchTracker(rt, f.batchRepo)
	f.ledger = NewLedger(rt, f.movements, f.snapshots, f.batches)
	f.store = NewSnapshotStore(rt, f.ledger, f.snapshots, f.reservations, f.movements)
	f.manager = NewReservationManager(rt, f.store, f.reservations)
	f.receiver = NewReceiver(rt, f.ledger, f.batches, f.orders)
	f.promoter = NewASNPromoter(rt, f.orders, f.staging)
	return f
}

// seed 写一条入库流水
func (f *fixture) seed(t *testing.T, storeID uint, sku string, qty int64) {
	t.Helper()
	_, err := f.ledger.Append(context.Background(), AppendRequest{
		StoreID:       storeID,
		SKU:           sku,
		Type:          ledger.TypeAdjustment,
		QuantityDelta: qty,
		Reference:     ledger.Reference{Type: "seed", ID: "init"},
	})
	require.NoError(t, err)
}

func (f *fixture) snapshot(t *testing.T, storeID uint, sku string) *snapshot.Snapshot {
	t.Helper()
	s, err := f.snapshots.FindByKey(context.Background(), storeID, sku)
	require.NoError(t, err)
	return s
}

// requireLedgerConsistent 流水合计必须等于快照OnHand
func (f *fixture) requireLedgerConsistent(t *testing.T, storeID uint, sku string) {
	t.Helper()
	sum, err := f.movements.SumByKey(context.Background(), storeID, sku)
	require.NoError(t, err)
	require.Equal(t, sum, f.snapshot(t, storeID, sku).OnHand, "流水合计与快照不一致 store=%d sku=%s", storeID, sku)
}

// createPO 创建待收货采购单
func (f *fixture) createPO(t *testing.T, poNumber string, storeID uint, items ...purchase.Item) *purchase.Order {
	t.Helper()
	o, err := purchase.NewOrder(poNumber, "SUP-1", storeID, items, nil, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.orders.Create(context.Background(), o))
	return o
}

func poItem(sku string, qty int64, cost string) purchase.Item {
	return purchase.Item{
		SKU:        sku,
		OrderedQty: qty,
		UnitCost:   decimal.RequireFromString(cost),
		LotNumber:  "LOT-" + sku,
		CaseGTIN:   "1" + sku,
		UnitGTIN:   "0" + sku,
	}
}

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table(table).Count(&n).Error)
	return n
}

package report

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xiebiao/stockcore/internal/infrastructure/config"
	"github.com/xiebiao/stockcore/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/stockcore/pkg/metrics"
)

var base = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

func newTestReporter(t *testing.T) (*gorm.DB, *Reporter) {
	t.Helper()
	cfg := &config.Config{Database: config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "report.db"),
	}}
	db, err := mysql.NewDB(cfg, zap.NewNop())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db, NewReporter(sqlDB, "sqlite", zap.NewNop())
}

func movement(storeID uint, sku, typ string, delta int64, at time.Time) *mysql.MovementModel {
	return &mysql.MovementModel{StoreID: storeID, SKU: sku, Type: typ, QuantityDelta: delta, CreatedAt: at}
}

func TestReporter_Reconciliation(t *testing.T) {
	db, r := newTestReporter(t)
	ctx := context.Background()

	require.NoError(t, db.Create([]*mysql.MovementModel{
		movement(1, "A", "purchase", 10, base),
		movement(1, "A", "sale", -3, base),
		movement(1, "B", "purchase", 5, base),
		movement(2, "A", "purchase", 4, base),
	}).Error)
	require.NoError(t, db.Create([]*mysql.SnapshotModel{
		{StoreID: 1, SKU: "A", OnHand: 7, Reserved: 2},
		{StoreID: 1, SKU: "B", OnHand: 9},              // 在手漂移
		{StoreID: 2, SKU: "A", OnHand: 4, Reserved: 1}, // 预占漂移
	}).Error)
	require.NoError(t, db.Create(&mysql.ReservationModel{
		ID: "r-1", StoreID: 1, SKU: "A", Quantity: 2, State: "held", ExpiresAt: base.Add(time.Hour),
	}).Error)

	rows, err := r.Reconciliation(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, DriftRow{StoreID: 1, SKU: "B", OnHand: 9, LedgerOnHand: 5}, rows[0])
	assert.Equal(t, DriftRow{StoreID: 2, SKU: "A", OnHand: 4, LedgerOnHand: 4, Reserved: 1}, rows[1])
	var m dto.Metric
	require.NoError(t, metrics.ReconciliationDriftSKUs.Write(&m))
	assert.Equal(t, float64(2), m.GetGauge().GetValue(), "漂移SKU数指标")

	rows, err = r.Reconciliation(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, uint(2), rows[0].StoreID)
}

func TestReporter_MovementSummary(t *testing.T) {
	db, r := newTestReporter(t)
	ctx := context.Background()

	require.NoError(t, db.Create([]*mysql.MovementModel{
		movement(1, "A", "purchase", 10, base),
		movement(1, "B", "purchase", 6, base.Add(time.Hour)),
		movement(1, "A", "sale", -3, base.Add(2*time.Hour)),
		movement(1, "A", "sale", -1, base.Add(48*time.Hour)), // 区间外
		movement(2, "A", "sale", -1, base.Add(time.Hour)),    // 其他门店
	}).Error)

	rows, err := r.MovementSummary(ctx, 1, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []MovementSummaryRow{
		{Type: "purchase", Movements: 2, Quantity: 16},
		{Type: "sale", Movements: 1, Quantity: -3},
	}, rows)

	_, err = r.MovementSummary(ctx, 1, base, base)
	assert.Error(t, err)
}

func TestReporter_BatchValuation(t *testing.T) {
	db, r := newTestReporter(t)
	ctx := context.Background()

	batch := func(sku string, remaining int64, cost string) *mysql.BatchModel {
		return &mysql.BatchModel{
			StoreID: 1, SKU: sku, LotNumber: "L-" + sku,
			QuantityReceived: 20, QuantityRemaining: remaining,
			UnitCost: decimal.RequireFromString(cost), ReceivedAt: base,
		}
	}
	require.NoError(t, db.Create([]*mysql.BatchModel{
		batch("A", 20, "2.5"),
		batch("A", 4, "0.25"),
		batch("B", 0, "9"), // 已耗尽
	}).Error)

	rows, err := r.BatchValuation(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].SKU)
	assert.Equal(t, int64(2), rows[0].Batches)
	assert.Equal(t, int64(24), rows[0].Remaining)
	assert.True(t, rows[0].Value.Equal(decimal.NewFromInt(51)), "got %s", rows[0].Value)
}

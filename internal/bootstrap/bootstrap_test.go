package bootstrap

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/stockcore/internal/application/inventory"
	"github.com/xiebiao/stockcore/internal/domain/ledger"
	"github.com/xiebiao/stockcore/internal/infrastructure/config"
	"github.com/xiebiao/stockcore/internal/infrastructure/scheduler"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "app.db")},
		Log:      config.LogConfig{Level: "debug", Format: "console", Output: "stderr"},
		Inventory: config.InventoryConfig{
			ReservationTTL:    15 * time.Minute,
			ReservationMaxTTL: time.Hour,
			SweepSchedule:     "@every 1m",
			SweepBatch:        10,
			ReconcileSchedule: "@every 10m",
			LockBackend:       "local",
			LockTimeout:       time.Second,
		},
	}
}

func TestNew_SQLite(t *testing.T) {
	cfg := testConfig(t)
	log, err := NewLogger(cfg)
	require.NoError(t, err)

	app, err := New(context.Background(), cfg, log)
	require.NoError(t, err)
	defer app.Close()

	ctx := context.Background()
	_, err = app.Ledger.Append(ctx, inventory.AppendRequest{
		StoreID: 1, SKU: "A", Type: ledger.TypeAdjustment, QuantityDelta: 3,
	})
	require.NoError(t, err)

	snap, err := app.Snapshots.Get(ctx, 1, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.OnHand)

	h := app.Handlers()
	assert.NotNil(t, h.Stock)
	assert.NotNil(t, h.Report)

	s, err := app.Scheduler()
	require.NoError(t, err)
	require.NoError(t, s.Run(ctx, scheduler.JobReservationSweep))
	require.NoError(t, s.Run(ctx, scheduler.JobReconcile))
}

func TestNew_InvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Inventory.SweepSchedule = "sometimes"

	app, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	_, err = app.Scheduler()
	assert.Error(t, err)
}

func TestNew_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Redis = config.RedisConfig{Enabled: true, Host: mr.Host(), Port: port}
	cfg.Inventory.LockBackend = "redis"
	cfg.Inventory.LockTTL = 5 * time.Second
	cfg.Inventory.CacheEnabled = true
	cfg.Inventory.CacheTTL = time.Minute

	app, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	ctx := context.Background()
	_, err = app.Ledger.Append(ctx, inventory.AppendRequest{
		StoreID: 2, SKU: "B", Type: ledger.TypeAdjustment, QuantityDelta: 5,
	})
	require.NoError(t, err)
	assert.True(t, mr.Exists("stockcache:2:B"), "提交后写入Redis缓存")
}

func TestNew_DatabaseUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database = config.DatabaseConfig{Driver: "mysql", Host: "127.0.0.1", Port: 1, DBName: "x"}

	app, err := New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
	assert.Nil(t, app)
}

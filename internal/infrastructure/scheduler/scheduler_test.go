package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xiebiao/stockcore/internal/infrastructure/persistence/report"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

type fakeSweeper struct {
	calls atomic.Int32
	limit atomic.Int32
	n     int
	err   error
}

func (f *fakeSweeper) ExpireStale(_ context.Context, limit int) (int, error) {
	f.calls.Add(1)
	f.limit.Store(int32(limit))
	return f.n, f.err
}

type fakeReconciler struct {
	rows []report.DriftRow
}

func (f *fakeReconciler) Reconciliation(context.Context, uint) ([]report.DriftRow, error) {
	return f.rows, nil
}

func TestScheduler_Add(t *testing.T) {
	s := New(zap.NewNop(), 0)
	job := func(context.Context) error { return nil }

	require.NoError(t, s.Add("a", "@every 1m", job))

	err := s.Add("a", "@every 1m", job)
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams, "重复注册")

	err = s.Add("b", "every minute", job)
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams, "非法表达式")

	err = s.Run(context.Background(), "b")
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "非法表达式的任务不应注册")
}

func TestScheduler_Run(t *testing.T) {
	sw := &fakeSweeper{n: 3}
	s := New(zap.NewNop(), time.Second)
	require.NoError(t, s.Add(JobReservationSweep, "@every 1h", SweepJob(sw, 50, zap.NewNop())))

	require.NoError(t, s.Run(context.Background(), JobReservationSweep))
	assert.Equal(t, int32(1), sw.calls.Load())
	assert.Equal(t, int32(50), sw.limit.Load())

	sw.err = errors.New("db down")
	assert.Error(t, s.Run(context.Background(), JobReservationSweep))
}

func TestScheduler_Timeout(t *testing.T) {
	s := New(zap.NewNop(), 20*time.Millisecond)
	require.NoError(t, s.Add("slow", "@every 1h", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	err := s.Run(context.Background(), "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScheduler_StartStop(t *testing.T) {
	sw := &fakeSweeper{}
	s := New(zap.NewNop(), 0)
	require.NoError(t, s.Add(JobReservationSweep, "@every 1s", SweepJob(sw, 0, zap.NewNop())))

	s.Start()
	assert.Eventually(t, func() bool { return sw.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond, "调度器应按计划执行任务")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestReconcileJob(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := &fakeReconciler{rows: []report.DriftRow{
		{StoreID: 1, SKU: "A", OnHand: 9, LedgerOnHand: 5},
		{StoreID: 2, SKU: "B", Reserved: 1},
	}}

	require.NoError(t, ReconcileJob(r, zap.New(core))(context.Background()))
	entries := logs.All()
	require.Len(t, entries, 2, "每个漂移SKU一条告警")
	assert.Equal(t, "A", entries[0].ContextMap()["sku"])
}

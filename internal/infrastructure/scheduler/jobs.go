package scheduler

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/stockcore/internal/infrastructure/persistence/report"
)

// 任务名称
const (
	JobReservationSweep = "reservation-sweep"
	JobReconcile        = "reconcile"
)

// ReservationSweeper 过期预占清理,*inventory.ReservationManager 满足该接口
type ReservationSweeper interface {
	ExpireStale(ctx context.Context, limit int) (int, error)
}

// Reconciler 快照对账,*report.Reporter 满足该接口
type Reconciler interface {
	Reconciliation(ctx context.Context, storeID uint) ([]report.DriftRow, error)
}

// SweepJob 释放到期未提交的预占
func SweepJob(sweeper ReservationSweeper, batch int, log *zap.Logger) Job {
	return func(ctx context.Context) error {
		n, err := sweeper.ExpireStale(ctx, batch)
		if n > 0 {
			log.Info("已释放过期预占", zap.Int("count", n))
		}
		return err
	}
}

// ReconcileJob 全量对账,只报告漂移不修复
// 修复走 stockctl rebuild,需要人工确认
func ReconcileJob(r Reconciler, log *zap.Logger) Job {
	return func(ctx context.Context) error {
		rows, err := r.Reconciliation(ctx, 0)
		if err != nil {
			return err
		}
		for _, row := range rows {
			log.Warn("库存快照漂移",
				zap.Uint("store_id", row.StoreID),
				zap.String("sku", row.SKU),
				zap.Int64("on_hand", row.OnHand),
				zap.Int64("ledger_on_hand", row.LedgerOnHand),
				zap.Int64("reserved", row.Reserved),
				zap.Int64("held_reserved", row.HeldReserved),
			)
		}
		return nil
	}
}

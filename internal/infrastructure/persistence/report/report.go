// Package report 只读报表查询
//
// 报表是跨表聚合的手写SQL,用sqlx直接映射到结构体,不经过GORM模型;
// 与GORM共用同一个*sql.DB连接池
package report

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/xiebiao/stockcore/pkg/errors"
	"github.com/xiebiao/stockcore/pkg/metrics"
)

// Reporter 报表查询
type Reporter struct {
	db  *sqlx.DB
	log *zap.Logger
}

// NewReporter 基于已有连接池创建报表查询
// driverName: mysql | sqlite,两者都使用?占位符
func NewReporter(db *sql.DB, driverName string, log *zap.Logger) *Reporter {
	metrics.InitMetrics()
	return &Reporter{db: sqlx.NewDb(db, driverName), log: log}
}

// DriftRow 快照与流水/预占不一致的一行
type DriftRow struct {
	StoreID      uint   `db:"store_id" json:"store_id"`
	SKU          string `db:"sku" json:"sku"`
	OnHand       int64  `db:"on_hand" json:"on_hand"`
	LedgerOnHand int64  `db:"ledger_on_hand" json:"ledger_on_hand"` // 流水合计
	Reserved     int64  `db:"reserved" json:"reserved"`
	HeldReserved int64  `db:"held_reserved" json:"held_reserved"` // 持有中的预占合计
}

const reconciliationQuery = `
SELECT s.store_id, s.sku, s.on_hand, s.reserved,
       COALESCE(m.total, 0) AS ledger_on_hand,
       COALESCE(r.held, 0)  AS held_reserved
FROM stock_snapshots s
LEFT JOIN (
    SELECT store_id, sku, SUM(quantity_delta) AS total
    FROM stock_movements
    GROUP BY store_id, sku
) m ON m.store_id = s.store_id AND m.sku = s.sku
LEFT JOIN (
    SELECT store_id, sku, SUM(quantity) AS held
    FROM stock_reservations
    WHERE state = 'held'
    GROUP BY store_id, sku
) r ON r.store_id = s.store_id AND r.sku = s.sku
WHERE (? = 0 OR s.store_id = ?)
  AND (s.on_hand <> COALESCE(m.total, 0) OR s.reserved <> COALESCE(r.held, 0))
ORDER BY s.store_id, s.sku`

// Reconciliation 对账: 找出在手数量不等于流水合计、或预占数量不等于持有中预占合计的SKU
// storeID为0时检查全部门店,并更新漂移SKU数指标
func (r *Reporter) Reconciliation(ctx context.Context, storeID uint) ([]DriftRow, error) {
	rows := []DriftRow{}
	if err := r.db.SelectContext(ctx, &rows, reconciliationQuery, storeID, storeID); err != nil {
		return nil, apperrors.Wrap(err, "对账查询失败")
	}

	if storeID == 0 {
		metrics.SetGauge(metrics.ReconciliationDriftSKUs, float64(len(rows)))
	}
	if len(rows) > 0 {
		r.log.Warn("发现库存快照漂移", zap.Uint("store_id", storeID), zap.Int("skus", len(rows)))
	}
	return rows, nil
}

// MovementSummaryRow 按变动类型汇总
type MovementSummaryRow struct {
	Type      string `db:"movement_type" json:"movement_type"`
	Movements int64  `db:"movements" json:"movements"`
	Quantity  int64  `db:"quantity" json:"quantity"`
}

// MovementSummary 门店在[from, to)区间内的流水汇总
func (r *Reporter) MovementSummary(ctx context.Context, storeID uint, from, to time.Time) ([]MovementSummaryRow, error) {
	if !from.Before(to) {
		return nil, apperrors.WithDetail(apperrors.ErrInvalidParams, "开始时间必须早于结束时间")
	}

	rows := []MovementSummaryRow{}
	err := r.db.SelectContext(ctx, &rows, `
SELECT type AS movement_type, COUNT(*) AS movements, COALESCE(SUM(quantity_delta), 0) AS quantity
FROM stock_movements
WHERE store_id = ? AND created_at >= ? AND created_at < ?
GROUP BY type
ORDER BY type`, storeID, from.UTC(), to.UTC())
	if err != nil {
		return nil, apperrors.Wrap(err, "流水汇总查询失败")
	}
	return rows, nil
}

// BatchValuationRow 按SKU汇总的批次剩余价值
type BatchValuationRow struct {
	SKU       string          `db:"sku" json:"sku"`
	Batches   int64           `db:"batches" json:"batches"`
	Remaining int64           `db:"remaining" json:"remaining"`
	Value     decimal.Decimal `db:"value" json:"value"`
}

// BatchValuation 门店未耗尽批次的剩余数量和成本价值
func (r *Reporter) BatchValuation(ctx context.Context, storeID uint) ([]BatchValuationRow, error) {
	rows := []BatchValuationRow{}
	err := r.db.SelectContext(ctx, &rows, `
SELECT sku, COUNT(*) AS batches,
       COALESCE(SUM(quantity_remaining), 0) AS remaining,
       COALESCE(SUM(quantity_remaining * unit_cost), 0) AS value
FROM stock_batches
WHERE store_id = ? AND quantity_remaining > 0
GROUP BY sku
ORDER BY sku`, storeID)
	if err != nil {
		return nil, apperrors.Wrap(err, "批次估值查询失败")
	}
	return rows, nil
}

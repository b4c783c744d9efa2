package inventory

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xiebiao/stockcore/internal/domain/batch"
	"github.com/xiebiao/stockcore/internal/domain/snapshot"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// BatchTracker 批次/批号追踪
type BatchTracker struct {
	rt      *Runtime
	batches batch.Repository
}

// NewBatchTracker 创建批次追踪服务
func NewBatchTracker(rt *Runtime, batches batch.Repository) *BatchTracker {
	return &BatchTracker{rt: rt, batches: batches}
}

// CreateBatch 创建批次,剩余量等于收货量
// 同一采购行只能创建一次(ErrBatchExists)
// 在事务中调用时加入该事务
func (t *BatchTracker) CreateBatch(ctx context.Context, origin batch.Origin) (*batch.Batch, error) {
	if origin.ReceivedAt.IsZero() {
		origin.ReceivedAt = t.rt.opts.now()
	}
	b, err := batch.New(origin)
	if err != nil {
		return nil, err
	}
	if err := t.batches.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ConsumeRequest 扣减批次请求
type ConsumeRequest struct {
	StoreID  uint
	SKU      string
	Quantity int64
	BatchID  *uint // 为空时按先进先出分配
}

// Consume 扣减批次剩余量(不改快照,不写流水)
// 剩余不足时整体失败,不做部分扣减
func (t *BatchTracker) Consume(ctx context.Context, req ConsumeRequest) ([]batch.Allocation, error) {
	if req.StoreID == 0 || strings.TrimSpace(req.SKU) == "" {
		return nil, apperrors.WithDetail(batch.ErrInvalidBatch, "门店和SKU不能为空")
	}

	ctx, unlock, err := t.rt.lock(ctx, snapshot.LockKey(req.StoreID, req.SKU))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var allocs []batch.Allocation
	err = t.rt.tx.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		allocs, err = t.consume(txCtx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	t.rt.log.Info("批次扣减完成",
		zap.Uint("store_id", req.StoreID),
		zap.String("sku", req.SKU),
		zap.Int64("quantity", req.Quantity),
		zap.Int("batches", len(allocs)),
	)
	return allocs, nil
}

// consume 事务内扣减,调用方已持有key锁
func (t *BatchTracker) consume(ctx context.Context, req ConsumeRequest) ([]batch.Allocation, error) {
	now := t.rt.opts.now()

	if req.BatchID != nil {
		b, err := t.lockOwned(ctx, *req.BatchID, req.StoreID, req.SKU)
		if err != nil {
			return nil, err
		}
		if err := b.Consume(req.Quantity, now); err != nil {
			return nil, err
		}
		if err := t.batches.UpdateRemaining(ctx, b); err != nil {
			return nil, err
		}
		return []batch.Allocation{{BatchID: b.ID, LotNumber: b.LotNumber, Quantity: req.Quantity}}, nil
	}

	open, err := t.batches.LockOpenFIFO(ctx, req.StoreID, req.SKU)
	if err != nil {
		return nil, err
	}
	allocs, err := batch.AllocateFIFO(open, req.Quantity, now)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*batch.Batch, len(open))
	for _, b := range open {
		byID[b.ID] = b
	}
	for _, a := range allocs {
		if err := t.batches.UpdateRemaining(ctx, byID[a.BatchID]); err != nil {
			return nil, err
		}
	}
	return allocs, nil
}

// lockOwned 锁定批次并校验归属
func (t *BatchTracker) lockOwned(ctx context.Context, id, storeID uint, sku string) (*batch.Batch, error) {
	b, err := t.batches.LockByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.BelongsTo(storeID, sku) {
		return nil, apperrors.WithDetail(batch.ErrBatchMismatch, "batch=%d 属于 store=%d sku=%s", id, b.StoreID, b.SKU)
	}
	return b, nil
}

// TraceLot 批号追溯(召回)
func (t *BatchTracker) TraceLot(ctx context.Context, lotNumber string) ([]*batch.Batch, error) {
	if strings.TrimSpace(lotNumber) == "" {
		return nil, apperrors.WithDetail(apperrors.ErrInvalidParams, "批号不能为空")
	}
	return t.batches.ListByLot(ctx, lotNumber)
}

// ListByPurchaseOrder 采购单生成的批次
func (t *BatchTracker) ListByPurchaseOrder(ctx context.Context, purchaseOrderID uint) ([]*batch.Batch, error) {
	return t.batches.ListByPurchaseOrder(ctx, purchaseOrderID)
}

// Get 查询批次
func (t *BatchTracker) Get(ctx context.Context, id uint) (*batch.Batch, error) {
	return t.batches.FindByID(ctx, id)
}

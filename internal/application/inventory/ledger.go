package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xiebiao/stockcore/internal/domain/ledger"
	"github.com/xiebiao/stockcore/internal/domain/snapshot"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
	"github.com/xiebiao/stockcore/pkg/metrics"
	"github.com/xiebiao/stockcore/pkg/tracing"
)

// Ledger 库存流水服务
// 流水是唯一能改变OnHand的入口,写流水和更新快照在同一个事务中完成
type Ledger struct {
	rt        *Runtime
	movements ledger.Repository
	snapshots snapshot.Repository
	batches   *BatchTracker
}

// NewLedger 创建流水服务
func NewLedger(rt *Runtime, movements ledger.Repository, snapshots snapshot.Repository, batches *BatchTracker) *Ledger {
	return &Ledger{rt: rt, movements: movements, snapshots: snapshots, batches: batches}
}

// AppendRequest 追加流水请求
type AppendRequest struct {
	StoreID       uint
	SKU           string
	Type          ledger.MovementType
	QuantityDelta int64 // 有符号,出库为负
	UnitCost      decimal.Decimal
	UnitPrice     decimal.Decimal
	Reference     ledger.Reference
	BatchID       *uint
	Note          string
}

func (r AppendRequest) movement() *ledger.Movement {
	return &ledger.Movement{
		StoreID:       r.StoreID,
		SKU:           r.SKU,
		Type:          r.Type,
		QuantityDelta: r.QuantityDelta,
		UnitCost:      r.UnitCost,
		UnitPrice:     r.UnitPrice,
		Reference:     r.Reference,
		BatchID:       r.BatchID,
		Note:          r.Note,
	}
}

// Append 追加一条流水并同步快照
// 只做结构校验,不拒绝导致负库存的出库(盘亏、破损必须如实记录)
func (l *Ledger) Append(ctx context.Context, req AppendRequest) (m *ledger.Movement, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Ledger.Append")
	defer func() { tracing.EndSpan(span, err) }()

	m = req.movement()
	if err := m.Validate(); err != nil {
		return nil, err
	}

	ctx, unlock, err := l.rt.lock(ctx, snapshot.LockKey(m.StoreID, m.SKU))
	if err != nil {
		return nil, err
	}
	defer unlock()

	fx := newEffects()
	err = l.rt.tx.Transaction(ctx, func(txCtx context.Context) error {
		_, err := l.record(txCtx, m, nil, fx)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.rt.afterCommit(ctx, fx)
	return m, nil
}

// record 写流水并应用到快照,调用方必须已持有key锁且处于事务中
// snap为空时加行锁读取(不存在则创建);非空时必须是同一事务中已锁定的快照
func (l *Ledger) record(ctx context.Context, m *ledger.Movement, snap *snapshot.Snapshot, fx *effects) (*snapshot.Snapshot, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = l.rt.opts.now()
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	if snap == nil {
		var err error
		if snap, err = l.lockOrCreate(ctx, m.StoreID, m.SKU); err != nil {
			return nil, err
		}
	}

	if err := l.movements.Create(ctx, m); err != nil {
		return nil, err
	}

	if m.BatchID != nil {
		if err := l.applyToBatch(ctx, m); err != nil {
			return nil, err
		}
	}

	wasLow := snap.NeedsReorder()
	snap.Apply(m)
	if err := l.snapshots.Save(ctx, snap); err != nil {
		return nil, err
	}

	metrics.IncCounterVec(metrics.MovementsAppendedTotal, map[string]string{"type": string(m.Type)})
	fx.touch(snap, wasLow)
	fx.emit(RoutingMovementAppended, newMovementEvent(m, snap))

	l.rt.log.Debug("库存流水已写入",
		zap.Uint("movement_id", m.ID),
		zap.Uint("store_id", m.StoreID),
		zap.String("sku", m.SKU),
		zap.String("type", string(m.Type)),
		zap.Int64("delta", m.QuantityDelta),
		zap.Int64("on_hand", snap.OnHand),
	)
	return snap, nil
}

// applyToBatch 出库流水指定批次时同步扣减该批次;入库只校验批次归属
func (l *Ledger) applyToBatch(ctx context.Context, m *ledger.Movement) error {
	if m.QuantityDelta < 0 {
		_, err := l.batches.consume(ctx, ConsumeRequest{
			StoreID:  m.StoreID,
			SKU:      m.SKU,
			Quantity: -m.QuantityDelta,
			BatchID:  m.BatchID,
		})
		return err
	}
	_, err := l.batches.lockOwned(ctx, *m.BatchID, m.StoreID, m.SKU)
	return err
}

// lockOrCreate 加行锁读取快照,第一次出现时懒创建
func (l *Ledger) lockOrCreate(ctx context.Context, storeID uint, sku string) (*snapshot.Snapshot, error) {
	snap, err := l.snapshots.LockByKey(ctx, storeID, sku)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, snapshot.ErrSnapshotNotFound) {
		return nil, err
	}

	snap = snapshot.New(storeID, sku, l.rt.opts.now())
	if err := l.snapshots.Create(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// TransferRequest 门店间调拨
type TransferRequest struct {
	FromStoreID uint
	ToStoreID   uint
	SKU         string
	Quantity    int64
	UnitCost    decimal.Decimal
	TransferID  string // 为空时自动生成
	Note        string
}

// TransferResult 调拨结果
type TransferResult struct {
	TransferID string
	Out        *ledger.Movement
	In         *ledger.Movement
}

// Transfer 调出门店写transfer_out,调入门店写transfer_in,两条流水同成同败
func (l *Ledger) Transfer(ctx context.Context, req TransferRequest) (res *TransferResult, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Ledger.Transfer")
	defer func() { tracing.EndSpan(span, err) }()

	switch {
	case req.Quantity <= 0:
		return nil, apperrors.WithDetail(ledger.ErrInvalidMovement, "调拨数量必须大于0")
	case req.FromStoreID == req.ToStoreID:
		return nil, apperrors.WithDetail(ledger.ErrInvalidMovement, "调出和调入门店不能相同")
	}
	if req.TransferID == "" {
		req.TransferID = uuid.NewString()
	}
	ref := ledger.Reference{Type: "transfer", ID: req.TransferID}

	out := &ledger.Movement{
		StoreID: req.FromStoreID, SKU: req.SKU, Type: ledger.TypeTransferOut,
		QuantityDelta: -req.Quantity, UnitCost: req.UnitCost, Reference: ref, Note: req.Note,
	}
	in := &ledger.Movement{
		StoreID: req.ToStoreID, SKU: req.SKU, Type: ledger.TypeTransferIn,
		QuantityDelta: req.Quantity, UnitCost: req.UnitCost, Reference: ref, Note: req.Note,
	}
	for _, m := range []*ledger.Movement{out, in} {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}

	ctx, unlock, err := l.rt.lock(ctx,
		snapshot.LockKey(req.FromStoreID, req.SKU),
		snapshot.LockKey(req.ToStoreID, req.SKU),
	)
	if err != nil {
		return nil, err
	}
	defer unlock()

	fx := newEffects()
	err = l.rt.tx.Transaction(ctx, func(txCtx context.Context) error {
		if _, err := l.record(txCtx, out, nil, fx); err != nil {
			return err
		}
		_, err := l.record(txCtx, in, nil, fx)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.rt.afterCommit(ctx, fx)
	l.rt.log.Info("门店调拨完成",
		zap.String("transfer_id", req.TransferID),
		zap.Uint("from_store_id", req.FromStoreID),
		zap.Uint("to_store_id", req.ToStoreID),
		zap.String("sku", req.SKU),
		zap.Int64("quantity", req.Quantity),
	)
	return &TransferResult{TransferID: req.TransferID, Out: out, In: in}, nil
}

// History 分页查询流水(按序号倒序)
func (l *Ledger) History(ctx context.Context, storeID uint, sku string, page, pageSize int) ([]*ledger.Movement, int64, error) {
	return l.movements.ListByKey(ctx, storeID, sku, page, pageSize)
}

// ByReference 查询某业务单据产生的流水
func (l *Ledger) ByReference(ctx context.Context, refType, refID string) ([]*ledger.Movement, error) {
	return l.movements.ListByReference(ctx, refType, refID)
}

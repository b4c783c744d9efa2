package inventory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/stockcore/internal/domain/batch"
	"github.com/xiebiao/stockcore/internal/domain/ledger"
	"github.com/xiebiao/stockcore/internal/domain/purchase"
	"github.com/xiebiao/stockcore/internal/domain/snapshot"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
	"github.com/xiebiao/stockcore/pkg/metrics"
	"github.com/xiebiao/stockcore/pkg/tracing"
)

// Receiver 采购单收货
//
// 防止"收一半"的完整流程:
//  1. 读取采购单,得到涉及的全部(门店, SKU)
//  2. 按字典序一次性锁住所有key和采购单本身
//  3. 一个事务内逐行: 入库流水 → 批次 → 快照
//  4. 同一事务内把状态改为已收货
//  5. 任何一行失败(包括请求被取消)整单回滚,采购单保持待收货
type Receiver struct {
	rt      *Runtime
	ledger  *Ledger
	batches *BatchTracker
	orders  purchase.Repository

	// afterLine 测试钩子: 每行处理完成后调用
	afterLine func(ctx context.Context, line int)
}

// NewReceiver 创建收货服务
func NewReceiver(rt *Runtime, lg *Ledger, batches *BatchTracker, orders purchase.Repository) *Receiver {
	return &Receiver{rt: rt, ledger: lg, batches: batches, orders: orders}
}

func purchaseOrderLockKey(id uint) string {
	return fmt.Sprintf("po:%d", id)
}

// Receive 整单收货
// 已收货的采购单直接返回(幂等);已取消的返回ErrInvalidStatusTransition
func (r *Receiver) Receive(ctx context.Context, purchaseOrderID uint) (order *purchase.Order, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, tracerName, "Receiver.Receive")
	defer func() { tracing.EndSpan(span, err) }()

	o, err := r.orders.FindByID(ctx, purchaseOrderID)
	if err != nil {
		return nil, err
	}
	if o.Status == purchase.StatusReceived {
		metrics.IncCounterVec(metrics.PurchaseOrdersReceivedTotal, map[string]string{"result": "noop"})
		return o, nil
	}

	keys := []string{purchaseOrderLockKey(o.ID)}
	for _, sku := range o.SKUs() {
		keys = append(keys, snapshot.LockKey(o.StoreID, sku))
	}
	ctx, unlock, err := r.rt.lock(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	fx := newEffects()
	noop := false
	err = r.rt.tx.Transaction(ctx, func(txCtx context.Context) error {
		// 等锁期间可能已被其他请求收货
		locked, err := r.orders.LockByID(txCtx, purchaseOrderID)
		if err != nil {
			return err
		}
		if locked.Status == purchase.StatusReceived {
			noop = true
			order = locked
			return nil
		}
		if !locked.CanTransitionTo(purchase.StatusReceived) {
			return apperrors.WithDetail(purchase.ErrInvalidStatusTransition, "%s 当前状态 %s,不能收货", locked.PONumber, locked.Status)
		}

		now := r.rt.opts.now()
		for i := range locked.Items {
			if err := r.receiveLine(txCtx, locked, i, now, fx); err != nil {
				return err
			}
		}

		if err := locked.MarkReceived(now); err != nil {
			return err
		}
		if err := r.orders.UpdateStatus(txCtx, locked); err != nil {
			return err
		}
		order = locked
		return nil
	})

	metrics.ObserveHistogram(metrics.ReceivingDuration, time.Since(start).Seconds())
	if err != nil {
		metrics.IncCounterVec(metrics.PurchaseOrdersReceivedTotal, map[string]string{"result": "failure"})
		r.rt.log.Warn("采购单收货失败,已整单回滚",
			zap.Uint("purchase_order_id", purchaseOrderID),
			zap.Error(err),
		)
		return nil, err
	}
	if noop {
		metrics.IncCounterVec(metrics.PurchaseOrdersReceivedTotal, map[string]string{"result": "noop"})
		return order, nil
	}

	fx.emit(RoutingPurchaseOrderReceived, newPurchaseOrderEvent(order))
	r.rt.afterCommit(ctx, fx)
	metrics.IncCounterVec(metrics.PurchaseOrdersReceivedTotal, map[string]string{"result": "success"})
	r.rt.log.Info("采购单收货完成",
		zap.Uint("purchase_order_id", order.ID),
		zap.String("po_number", order.PONumber),
		zap.Uint("store_id", order.StoreID),
		zap.Int("lines", len(order.Items)),
		zap.String("total_value", order.TotalValue.StringFixed(2)),
	)
	return order, nil
}

// receiveLine 处理第i行,失败统一包装为ReceivingError
func (r *Receiver) receiveLine(ctx context.Context, o *purchase.Order, i int, now time.Time, fx *effects) error {
	item := &o.Items[i]
	fail := func(err error) error {
		return &purchase.ReceivingError{PurchaseOrderID: o.ID, Line: i + 1, SKU: item.SKU, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if err := item.Validate(); err != nil {
		return fail(err)
	}

	qty := item.ReceivedQuantity()
	m := &ledger.Movement{
		StoreID:       o.StoreID,
		SKU:           item.SKU,
		Type:          ledger.TypePurchase,
		QuantityDelta: qty,
		UnitCost:      item.UnitCost,
		Reference:     ledger.Reference{Type: "purchase_order", ID: strconv.FormatUint(uint64(o.ID), 10)},
		Note:          o.PONumber,
		CreatedAt:     now,
	}
	if _, err := r.ledger.record(ctx, m, nil, fx); err != nil {
		return fail(err)
	}

	orderID, itemID, movementID := o.ID, item.ID, m.ID
	_, err := r.batches.CreateBatch(ctx, batch.Origin{
		LotNumber:           item.LotNumber,
		SKU:                 item.SKU,
		StoreID:             o.StoreID,
		Quantity:            qty,
		UnitCost:            item.UnitCost,
		CaseGTIN:            item.CaseGTIN,
		UnitGTIN:            item.UnitGTIN,
		PurchaseOrderID:     &orderID,
		PurchaseOrderItemID: &itemID,
		MovementID:          &movementID,
		ShelfLocation:       item.ShelfLocation,
		ExpiryDate:          item.ExpiryDate,
		ReceivedAt:          now,
	})
	if err != nil {
		return fail(err)
	}

	if r.afterLine != nil {
		r.afterLine(ctx, i+1)
	}
	return nil
}

// CreateOrderRequest 手工录入采购单
type CreateOrderRequest struct {
	PONumber     string
	SupplierID   string
	StoreID      uint
	ExpectedDate *time.Time
	Items        []purchase.Item
}

// Create 手工录入待收货的采购单
// 与ASN生成的采购单不同,录入时就逐行校验
func (r *Receiver) Create(ctx context.Context, req CreateOrderRequest) (*purchase.Order, error) {
	o, err := purchase.NewOrder(req.PONumber, req.SupplierID, req.StoreID, req.Items, req.ExpectedDate, r.rt.opts.now())
	if err != nil {
		return nil, err
	}
	for i := range o.Items {
		if err := o.Items[i].Validate(); err != nil {
			return nil, err
		}
	}
	if err := r.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	r.rt.log.Info("采购单已录入", zap.Uint("purchase_order_id", o.ID), zap.String("po_number", o.PONumber))
	return o, nil
}

// Cancel 取消待收货的采购单
func (r *Receiver) Cancel(ctx context.Context, purchaseOrderID uint) (*purchase.Order, error) {
	ctx, unlock, err := r.rt.lock(ctx, purchaseOrderLockKey(purchaseOrderID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	fx := newEffects()
	var order *purchase.Order
	err = r.rt.tx.Transaction(ctx, func(txCtx context.Context) error {
		o, err := r.orders.LockByID(txCtx, purchaseOrderID)
		if err != nil {
			return err
		}
		if err := o.Cancel(r.rt.opts.now()); err != nil {
			return err
		}
		if err := r.orders.UpdateStatus(txCtx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	fx.emit(RoutingPurchaseOrderCancelled, newPurchaseOrderEvent(order))
	r.rt.afterCommit(ctx, fx)
	r.rt.log.Info("采购单已取消", zap.Uint("purchase_order_id", order.ID), zap.String("po_number", order.PONumber))
	return order, nil
}

// Get 查询采购单(含明细)
func (r *Receiver) Get(ctx context.Context, purchaseOrderID uint) (*purchase.Order, error) {
	return r.orders.FindByID(ctx, purchaseOrderID)
}

// ListByStatus 分页查询采购单
func (r *Receiver) ListByStatus(ctx context.Context, status purchase.Status, page, pageSize int) ([]*purchase.Order, int64, error) {
	return r.orders.ListByStatus(ctx, status, page, pageSize)
}

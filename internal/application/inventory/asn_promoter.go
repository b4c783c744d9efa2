package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/stockcore/internal/domain/asn"
	"github.com/xiebiao/stockcore/internal/domain/purchase"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
	"github.com/xiebiao/stockcore/pkg/metrics"
	"github.com/xiebiao/stockcore/pkg/tracing"
)

// ASNPromoter 把ASN暂存行提升为采购单
//
// 生成采购单和删除暂存行在同一个事务中;
// 采购单上的asn_session_id唯一,重试时发现已生成过则只补做清理并返回原采购单
type ASNPromoter struct {
	rt      *Runtime
	orders  purchase.Repository
	staging asn.Repository

	// beforeCleanup 测试钩子: 采购单已写入、暂存行未删除时调用,返回错误模拟崩溃
	beforeCleanup func(ctx context.Context, o *purchase.Order) error
}

// NewASNPromoter 创建ASN提升服务
func NewASNPromoter(rt *Runtime, orders purchase.Repository, staging asn.Repository) *ASNPromoter {
	return &ASNPromoter{rt: rt, orders: orders, staging: staging}
}

func asnLockKey(sessionID string) string {
	return "asn:" + sessionID
}

// Stage 写入暂存行
// 会话已生成采购单时拒绝追加(ErrSessionPromoted)
func (p *ASNPromoter) Stage(ctx context.Context, sessionID string, lines []*asn.StagedLine) (int, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return 0, apperrors.WithDetail(asn.ErrInvalidStagedLine, "会话ID不能为空")
	}
	if len(lines) == 0 {
		return 0, apperrors.WithDetail(asn.ErrEmptySession, "session=%s 没有可导入的行", sessionID)
	}

	now := p.rt.opts.now()
	for _, l := range lines {
		l.SessionID = sessionID
		l.CreatedAt = now
		if err := l.Validate(); err != nil {
			return 0, err
		}
	}

	ctx, unlock, err := p.rt.lock(ctx, asnLockKey(sessionID))
	if err != nil {
		return 0, err
	}
	defer unlock()

	err = p.rt.tx.Transaction(ctx, func(txCtx context.Context) error {
		if o, err := p.orders.FindByASNSession(txCtx, sessionID); err == nil {
			return apperrors.WithDetail(asn.ErrSessionPromoted, "session=%s 已生成采购单 %s", sessionID, o.PONumber)
		} else if !errors.Is(err, purchase.ErrPurchaseOrderNotFound) {
			return err
		}
		return p.staging.CreateLines(txCtx, lines)
	})
	if err != nil {
		return 0, err
	}

	p.rt.log.Info("ASN暂存行已导入", zap.String("session_id", sessionID), zap.Int("lines", len(lines)))
	return len(lines), nil
}

// PromoteRequest 提升请求
type PromoteRequest struct {
	SessionID    string
	PONumber     string // 为空时使用 ASN-<会话ID>
	SupplierID   string // 为空时使用暂存行上的供应商编码
	ExpectedDate *time.Time
}

// PromoteResult 提升结果
type PromoteResult struct {
	Order    *purchase.Order
	Repaired bool // 采购单在之前的尝试中已生成,本次只完成了清理
}

// Promote 暂存行 → 采购单
func (p *ASNPromoter) Promote(ctx context.Context, req PromoteRequest) (result *PromoteResult, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "ASNPromoter.Promote")
	defer func() { tracing.EndSpan(span, err) }()

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return nil, apperrors.WithDetail(asn.ErrInvalidStagedLine, "会话ID不能为空")
	}

	ctx, unlock, err := p.rt.lock(ctx, asnLockKey(sessionID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = p.rt.tx.Transaction(ctx, func(txCtx context.Context) error {
		existing, err := p.orders.FindByASNSession(txCtx, sessionID)
		if err == nil {
			// 上一次已经建单,只补做清理
			if _, err := p.staging.DeleteBySession(txCtx, sessionID); err != nil {
				return err
			}
			result = &PromoteResult{Order: existing, Repaired: true}
			return nil
		}
		if !errors.Is(err, purchase.ErrPurchaseOrderNotFound) {
			return err
		}

		o, err := p.buildOrder(txCtx, sessionID, req)
		if err != nil {
			return err
		}
		if err := p.orders.Create(txCtx, o); err != nil {
			return err
		}

		if p.beforeCleanup != nil {
			if err := p.beforeCleanup(txCtx, o); err != nil {
				return err
			}
		}

		if _, err := p.staging.DeleteBySession(txCtx, sessionID); err != nil {
			return err
		}
		result = &PromoteResult{Order: o}
		return nil
	})
	if err != nil {
		metrics.IncCounterVec(metrics.ASNPromotionsTotal, map[string]string{"result": "failure"})
		p.rt.log.Warn("ASN提升失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	if result.Repaired {
		metrics.IncCounterVec(metrics.ASNPromotionsTotal, map[string]string{"result": "repaired"})
		p.rt.log.Info("ASN会话已生成过采购单,完成暂存清理",
			zap.String("session_id", sessionID),
			zap.String("po_number", result.Order.PONumber),
		)
		return result, nil
	}

	fx := newEffects()
	fx.emit(RoutingASNPromoted, newPurchaseOrderEvent(result.Order))
	p.rt.afterCommit(ctx, fx)
	metrics.IncCounterVec(metrics.ASNPromotionsTotal, map[string]string{"result": "created"})
	p.rt.log.Info("ASN已生成采购单",
		zap.String("session_id", sessionID),
		zap.Uint("purchase_order_id", result.Order.ID),
		zap.String("po_number", result.Order.PONumber),
		zap.Int("lines", len(result.Order.Items)),
		zap.String("total_value", result.Order.TotalValue.StringFixed(2)),
	)
	return result, nil
}

// buildOrder 读取暂存行,推导单头,组装采购单
func (p *ASNPromoter) buildOrder(ctx context.Context, sessionID string, req PromoteRequest) (*purchase.Order, error) {
	lines, err := p.staging.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return nil, err
		}
	}

	header, err := asn.DeriveHeader(sessionID, lines)
	if err != nil {
		return nil, err
	}

	items := make([]purchase.Item, len(lines))
	for i, l := range lines {
		items[i] = l.ToItem()
	}

	poNumber := strings.TrimSpace(req.PONumber)
	if poNumber == "" {
		poNumber = "ASN-" + sessionID
	}
	supplierID := strings.TrimSpace(req.SupplierID)
	if supplierID == "" {
		supplierID = header.Shipment.VendorCode
	}

	o, err := purchase.NewOrder(poNumber, supplierID, header.StoreID, items, req.ExpectedDate, p.rt.opts.now())
	if err != nil {
		return nil, err
	}
	o.ASNSessionID = &sessionID
	o.Shipment = header.Shipment
	return o, nil
}

// Lines 查询会话内的暂存行
func (p *ASNPromoter) Lines(ctx context.Context, sessionID string) ([]*asn.StagedLine, error) {
	return p.staging.ListBySession(ctx, sessionID)
}

// Discard 丢弃会话内全部暂存行,会话不存在时返回0
func (p *ASNPromoter) Discard(ctx context.Context, sessionID string) (int64, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return 0, apperrors.WithDetail(asn.ErrInvalidStagedLine, "会话ID不能为空")
	}

	ctx, unlock, err := p.rt.lock(ctx, asnLockKey(sessionID))
	if err != nil {
		return 0, err
	}
	defer unlock()

	var n int64
	err = p.rt.tx.Transaction(ctx, func(txCtx context.Context) error {
		n, err = p.staging.DeleteBySession(txCtx, sessionID)
		return err
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		p.rt.log.Info("ASN暂存行已丢弃", zap.String("session_id", sessionID), zap.Int64("lines", n))
	}
	return n, nil
}

package inventory

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/stockcore/internal/domain/reservation"
	"github.com/xiebiao/stockcore/internal/domain/snapshot"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// ReservationManager 预占生命周期
// held → committed | released | expired,终态不可再流转
type ReservationManager struct {
	rt           *Runtime
	store        *SnapshotStore
	reservations reservation.Repository
}

// NewReservationManager 创建预占服务
func NewReservationManager(rt *Runtime, store *SnapshotStore, reservations reservation.Repository) *ReservationManager {
	return &ReservationManager{rt: rt, store: store, reservations: reservations}
}

// HoldRequest 预占请求
type HoldRequest struct {
	StoreID  uint
	SKU      string
	Quantity int64
	OwnerRef string        // 购物车/结算会话
	TTL      time.Duration // 0表示使用默认时长,超过上限按上限处理
}

// Hold 预占库存,返回预占句柄
func (m *ReservationManager) Hold(ctx context.Context, req HoldRequest) (*reservation.Reservation, error) {
	ttl, err := m.ttl(req.TTL)
	if err != nil {
		return nil, err
	}
	return m.store.Reserve(ctx, req.StoreID, req.SKU, req.Quantity, req.OwnerRef, m.rt.opts.now().Add(ttl))
}

func (m *ReservationManager) ttl(requested time.Duration) (time.Duration, error) {
	switch {
	case requested < 0:
		return 0, apperrors.WithDetail(reservation.ErrInvalidReservation, "预占时长不能为负数")
	case requested == 0:
		return m.rt.opts.ReservationTTL, nil
	case requested > m.rt.opts.ReservationMaxTTL:
		return m.rt.opts.ReservationMaxTTL, nil
	}
	return requested, nil
}

// Commit 预占转销售
func (m *ReservationManager) Commit(ctx context.Context, id string) (*CommitResult, error) {
	return m.store.Commit(ctx, id)
}

// Release 释放预占
func (m *ReservationManager) Release(ctx context.Context, id string) (*reservation.Reservation, error) {
	return m.store.Release(ctx, id)
}

// Get 查询预占,已到期仍持有的先按过期处理
func (m *ReservationManager) Get(ctx context.Context, id string) (*reservation.Reservation, error) {
	res, err := m.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.IsExpired(m.rt.opts.now()) {
		return res, nil
	}

	if _, err := m.store.expireKey(ctx, res.StoreID, res.SKU); err != nil {
		return nil, err
	}
	return m.reservations.FindByID(ctx, id)
}

// ExpireStale 扫描已到期的预占并释放,返回处理数量
// 按key分组,每个key使用与释放相同的锁边界;limit<=0时使用配置的批量
func (m *ReservationManager) ExpireStale(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = m.rt.opts.SweepBatch
	}

	stale, err := m.reservations.ListExpiredHeld(ctx, m.rt.opts.now(), limit)
	if err != nil {
		return 0, err
	}

	type key struct {
		storeID uint
		sku     string
	}
	seen := make(map[key]struct{})
	var total int
	for _, r := range stale {
		k := key{r.StoreID, r.SKU}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}

		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := m.store.expireKey(ctx, k.storeID, k.sku)
		if err != nil {
			m.rt.log.Error("过期预占释放失败",
				zap.String("key", snapshot.LockKey(k.storeID, k.sku)),
				zap.Error(err),
			)
			continue
		}
		total += n
	}

	if total > 0 {
		m.rt.log.Info("过期预占扫描完成", zap.Int("expired", total), zap.Int("keys", len(seen)))
	}
	return total, nil
}

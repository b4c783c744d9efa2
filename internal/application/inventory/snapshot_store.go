package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiebiao/stockcore/internal/domain/ledger"
	"github.com/xiebiao/stockcore/internal/domain/reservation"
	"github.com/xiebiao/stockcore/internal/domain/snapshot"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
	"github.com/xiebiao/stockcore/pkg/metrics"
	"github.com/xiebiao/stockcore/pkg/tracing"
)

// SnapshotStore 实时库存
// OnHand只能经由Ledger修改;Reserved由预占/释放/提交修改
type SnapshotStore struct {
	rt           *Runtime
	ledger       *Ledger
	snapshots    snapshot.Repository
	reservations reservation.Repository
	movements    ledger.Repository
}

// NewSnapshotStore 创建快照服务
func NewSnapshotStore(rt *Runtime, lg *Ledger, snapshots snapshot.Repository, reservations reservation.Repository, movements ledger.Repository) *SnapshotStore {
	return &SnapshotStore{
		rt:           rt,
		ledger:       lg,
		snapshots:    snapshots,
		reservations: reservations,
		movements:    movements,
	}
}

// Get 查询快照,优先读缓存
// 未命中时持key锁回源并回填,与写路径的提交后写缓存互斥
func (s *SnapshotStore) Get(ctx context.Context, storeID uint, sku string) (*snapshot.Snapshot, error) {
	if _, disabled := s.rt.cache.(nopCache); disabled {
		return s.snapshots.FindByKey(ctx, storeID, sku)
	}

	if snap, ok, err := s.rt.cache.Get(ctx, storeID, sku); err != nil {
		s.rt.log.Warn("读取库存缓存失败,回源数据库", zap.Uint("store_id", storeID), zap.String("sku", sku), zap.Error(err))
	} else if ok {
		return snap, nil
	}

	lockedCtx, unlock, err := s.rt.lock(ctx, snapshot.LockKey(storeID, sku))
	if err != nil {
		// 等锁超时只读库,不回填
		return s.snapshots.FindByKey(ctx, storeID, sku)
	}
	defer unlock()

	snap, err := s.snapshots.FindByKey(lockedCtx, storeID, sku)
	if err != nil {
		return nil, err
	}
	if err := s.rt.cache.Put(lockedCtx, snap); err != nil {
		s.rt.log.Warn("回填库存缓存失败", zap.String("key", snap.Key()), zap.Error(err))
	}
	return snap, nil
}

// List 分页查询门店库存
func (s *SnapshotStore) List(ctx context.Context, storeID uint, page, pageSize int) ([]*snapshot.Snapshot, int64, error) {
	return s.snapshots.ListByStore(ctx, storeID, page, pageSize)
}

// ListLowStock 可售量不高于补货点的SKU
func (s *SnapshotStore) ListLowStock(ctx context.Context, storeID uint) ([]*snapshot.Snapshot, error) {
	return s.snapshots.ListLowStock(ctx, storeID)
}

// SetReorderPolicy 设置补货点和建议补货量
func (s *SnapshotStore) SetReorderPolicy(ctx context.Context, storeID uint, sku string, point, quantity int64) (*snapshot.Snapshot, error) {
	ctx, unlock, err := s.rt.lock(ctx, snapshot.LockKey(storeID, sku))
	if err != nil {
		return nil, err
	}
	defer unlock()

	fx := newEffects()
	var snap *snapshot.Snapshot
	err = s.rt.tx.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		if snap, err = s.snapshots.LockByKey(txCtx, storeID, sku); err != nil {
			return err
		}
		wasLow := snap.NeedsReorder()
		if err := snap.SetReorderPolicy(point, quantity, s.rt.opts.now()); err != nil {
			return err
		}
		if err := s.snapshots.Save(txCtx, snap); err != nil {
			return err
		}
		fx.touch(snap, wasLow)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.rt.afterCommit(ctx, fx)
	return snap, nil
}

// Reserve 预占库存
// 可售量 >= qty 时成功,否则返回ErrInsufficientStock(不做部分预占)
// 先在同一把锁下把该key已过期的预占释放掉,避免过期预占长期占用可售量
func (s *SnapshotStore) Reserve(ctx context.Context, storeID uint, sku string, qty int64, owner string, expiresAt time.Time) (res *reservation.Reservation, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "SnapshotStore.Reserve")
	defer func() { tracing.EndSpan(span, err) }()

	now := s.rt.opts.now()
	res, err = reservation.New(uuid.NewString(), storeID, strings.TrimSpace(sku), qty, owner, expiresAt.UTC(), now)
	if err != nil {
		return nil, err
	}

	ctx, unlock, err := s.rt.lock(ctx, snapshot.LockKey(res.StoreID, res.SKU))
	if err != nil {
		return nil, err
	}
	defer unlock()

	fx := newEffects()
	err = s.rt.tx.Transaction(ctx, func(txCtx context.Context) error {
		snap, err := s.snapshots.LockByKey(txCtx, res.StoreID, res.SKU)
		if errors.Is(err, snapshot.ErrSnapshotNotFound) {
			return apperrors.WithDetail(snapshot.ErrInsufficientStock, "store=%d sku=%s 无库存记录", res.StoreID, res.SKU)
		}
		if err != nil {
			return err
		}

		wasLow := snap.NeedsReorder()
		if _, err := s.expireHeld(txCtx, snap, now); err != nil {
			return err
		}
		if err := snap.Hold(res.Quantity, now); err != nil {
			return err
		}
		if err := s.snapshots.Save(txCtx, snap); err != nil {
			return err
		}
		if err := s.reservations.Create(txCtx, res); err != nil {
			return err
		}
		fx.touch(snap, wasLow)
		return nil
	})
	if err != nil {
		if errors.Is(err, snapshot.ErrInsufficientStock) {
			metrics.IncCounterVec(metrics.ReservationsTotal, map[string]string{"result": "rejected"})
		}
		return nil, err
	}

	s.rt.afterCommit(ctx, fx)
	metrics.IncCounterVec(metrics.ReservationsTotal, map[string]string{"result": "held"})
	return res, nil
}

// Release 释放预占,归还Reserved
// 1. 已到期但仍持有的预占按过期处理,同样视为释放成功
// 2. 重复释放返回ErrAlreadyReleased,没有任何副作用
// 3. 已提交的预占返回ErrReservationClosed
func (s *SnapshotStore) Release(ctx context.Context, id string) (res *reservation.Reservation, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "SnapshotStore.Release")
	defer func() { tracing.EndSpan(span, err) }()

	found, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ctx, unlock, err := s.rt.lock(ctx, snapshot.LockKey(found.StoreID, found.SKU))
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.rt.opts.now()
	fx := newEffects()
	result := "released"
	err = s.rt.tx.Transaction(ctx, func(txCtx context.Context) error {
		snap, err := s.snapshots.LockByKey(txCtx, found.StoreID, found.SKU)
		if err != nil {
			return err
		}
		wasLow := snap.NeedsReorder()
		expired, err := s.expireHeld(txCtx, snap, now)
		if err != nil {
			return err
		}

		if res, err = s.reservations.LockByID(txCtx, id); err != nil {
			return err
		}
		if _, ok := expired[id]; ok {
			result = "expired"
		} else {
			if err := res.Release(now); err != nil {
				return err
			}
			if err := s.reservations.Update(txCtx, res); err != nil {
				return err
			}
			snap.Unhold(res.Quantity, now)
		}

		if err := s.snapshots.Save(txCtx, snap); err != nil {
			return err
		}
		fx.touch(snap, wasLow)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.rt.afterCommit(ctx, fx)
	metrics.IncCounterVec(metrics.ReservationsTotal, map[string]string{"result": result})
	return res, nil
}

// CommitResult 提交结果
type CommitResult struct {
	Reservation *reservation.Reservation
	Movement    *ledger.Movement
	Snapshot    *snapshot.Snapshot
}

// Commit 预占转销售
// 同一事务内: Reserved -= qty, 写一条 -qty 的销售流水(OnHand -= qty), 预占置为committed
// 已到期的预占先落库为expired,再返回ErrReservationExpired
func (s *SnapshotStore) Commit(ctx context.Context, id string) (result *CommitResult, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "SnapshotStore.Commit")
	defer func() { tracing.EndSpan(span, err) }()

	found, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ctx, unlock, err := s.rt.lock(ctx, snapshot.LockKey(found.StoreID, found.SKU))
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.rt.opts.now()
	fx := newEffects()
	var expiredErr error
	err = s.rt.tx.Transaction(ctx, func(txCtx context.Context) error {
		snap, err := s.snapshots.LockByKey(txCtx, found.StoreID, found.SKU)
		if err != nil {
			return err
		}
		wasLow := snap.NeedsReorder()
		expired, err := s.expireHeld(txCtx, snap, now)
		if err != nil {
			return err
		}

		res, err := s.reservations.LockByID(txCtx, id)
		if err != nil {
			return err
		}
		if _, ok := expired[id]; ok {
			// 过期需要提交,错误在事务外返回
			expiredErr = apperrors.WithDetail(reservation.ErrReservationExpired, "reservation=%s", id)
			if err := s.snapshots.Save(txCtx, snap); err != nil {
				return err
			}
			fx.touch(snap, wasLow)
			return nil
		}
		if err := res.Commit(now); err != nil {
			return err
		}

		snap.Unhold(res.Quantity, now)
		m := &ledger.Movement{
			StoreID:       res.StoreID,
			SKU:           res.SKU,
			Type:          ledger.TypeSale,
			QuantityDelta: -res.Quantity,
			Reference:     ledger.Reference{Type: "reservation", ID: res.ID},
			CreatedAt:     now,
		}
		if _, err := s.ledger.record(txCtx, m, snap, fx); err != nil {
			return err
		}

		res.MovementID = &m.ID
		if err := s.reservations.Update(txCtx, res); err != nil {
			return err
		}
		fx.emit(RoutingReservationCommitted, newCommittedEvent(res))
		result = &CommitResult{Reservation: res, Movement: m, Snapshot: snap}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.rt.afterCommit(ctx, fx)
	if expiredErr != nil {
		metrics.IncCounterVec(metrics.ReservationsTotal, map[string]string{"result": "expired"})
		return nil, expiredErr
	}
	metrics.IncCounterVec(metrics.ReservationsTotal, map[string]string{"result": "committed"})
	return result, nil
}

// expireHeld 把该key下已到期仍持有的预占置为expired并归还Reserved
// snap必须已在同一事务中锁定,由调用方保存;返回被过期的预占ID
func (s *SnapshotStore) expireHeld(ctx context.Context, snap *snapshot.Snapshot, now time.Time) (map[string]struct{}, error) {
	stale, err := s.reservations.ListExpiredHeldByKey(ctx, snap.StoreID, snap.SKU, now)
	if err != nil {
		return nil, err
	}

	expired := make(map[string]struct{}, len(stale))
	for _, r := range stale {
		if err := r.Expire(now); err != nil {
			return nil, err
		}
		if err := s.reservations.Update(ctx, r); err != nil {
			return nil, err
		}
		snap.Unhold(r.Quantity, now)
		expired[r.ID] = struct{}{}
	}
	if len(stale) > 0 {
		s.rt.log.Info("预占已过期释放",
			zap.String("key", snap.Key()),
			zap.Int("count", len(stale)),
		)
	}
	return expired, nil
}

// expireKey 独立事务中处理一个key下的过期预占(后台扫描使用)
func (s *SnapshotStore) expireKey(ctx context.Context, storeID uint, sku string) (int, error) {
	ctx, unlock, err := s.rt.lock(ctx, snapshot.LockKey(storeID, sku))
	if err != nil {
		return 0, err
	}
	defer unlock()

	now := s.rt.opts.now()
	fx := newEffects()
	var count int
	err = s.rt.tx.Transaction(ctx, func(txCtx context.Context) error {
		snap, err := s.snapshots.LockByKey(txCtx, storeID, sku)
		if err != nil {
			return err
		}
		wasLow := snap.NeedsReorder()
		expired, err := s.expireHeld(txCtx, snap, now)
		if err != nil {
			return err
		}
		if count = len(expired); count == 0 {
			return nil
		}
		if err := s.snapshots.Save(txCtx, snap); err != nil {
			return err
		}
		fx.touch(snap, wasLow)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.rt.afterCommit(ctx, fx)
	if count > 0 {
		metrics.AddCounterVec(metrics.ReservationsTotal, map[string]string{"result": "expired"}, float64(count))
	}
	return count, nil
}

// RebuildResult 重建结果
type RebuildResult struct {
	Snapshot       *snapshot.Snapshot
	OnHandBefore   int64
	ReservedBefore int64
}

// Drifted 快照是否与流水/预占不一致
func (r *RebuildResult) Drifted() bool {
	return r.OnHandBefore != r.Snapshot.OnHand || r.ReservedBefore != r.Snapshot.Reserved
}

// Rebuild 按流水合计和持有中的预占重新计算快照(修复路径)
func (s *SnapshotStore) Rebuild(ctx context.Context, storeID uint, sku string) (*RebuildResult, error) {
	ctx, unlock, err := s.rt.lock(ctx, snapshot.LockKey(storeID, sku))
	if err != nil {
		return nil, err
	}
	defer unlock()

	fx := newEffects()
	var result *RebuildResult
	err = s.rt.tx.Transaction(ctx, func(txCtx context.Context) error {
		snap, err := s.snapshots.LockByKey(txCtx, storeID, sku)
		if err != nil {
			return err
		}
		result = &RebuildResult{Snapshot: snap, OnHandBefore: snap.OnHand, ReservedBefore: snap.Reserved}

		onHand, err := s.movements.SumByKey(txCtx, storeID, sku)
		if err != nil {
			return err
		}
		reserved, err := s.reservations.SumHeldByKey(txCtx, storeID, sku)
		if err != nil {
			return err
		}
		if onHand == snap.OnHand && reserved == snap.Reserved {
			return nil
		}

		wasLow := snap.NeedsReorder()
		snap.OnHand = onHand
		snap.Reserved = reserved
		snap.UpdatedAt = s.rt.opts.now()
		if err := s.snapshots.Save(txCtx, snap); err != nil {
			return err
		}
		fx.touch(snap, wasLow)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.rt.afterCommit(ctx, fx)
	if result.Drifted() {
		s.rt.log.Warn("库存快照已按流水重建",
			zap.Uint("store_id", storeID),
			zap.String("sku", sku),
			zap.Int64("on_hand_before", result.OnHandBefore),
			zap.Int64("on_hand", result.Snapshot.OnHand),
			zap.Int64("reserved_before", result.ReservedBefore),
			zap.Int64("reserved", result.Snapshot.Reserved),
		)
	}
	return result, nil
}

// CountResult 盘点结果
type CountResult struct {
	Snapshot *snapshot.Snapshot
	Movement *ledger.Movement // 盘点数与账面一致时为空
}

// Count 盘点: 实盘数与OnHand的差额写一条adjustment流水,并记录盘点时间
func (s *SnapshotStore) Count(ctx context.Context, storeID uint, sku string, counted int64, note string) (*CountResult, error) {
	if counted < 0 {
		return nil, apperrors.WithDetail(apperrors.ErrInvalidParams, "盘点数量不能为负数")
	}
	if storeID == 0 || strings.TrimSpace(sku) == "" {
		return nil, apperrors.WithDetail(ledger.ErrInvalidMovement, "门店和SKU不能为空")
	}

	ctx, unlock, err := s.rt.lock(ctx, snapshot.LockKey(storeID, sku))
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.rt.opts.now()
	fx := newEffects()
	result := &CountResult{}
	err = s.rt.tx.Transaction(ctx, func(txCtx context.Context) error {
		snap, err := s.ledger.lockOrCreate(txCtx, storeID, sku)
		if err != nil {
			return err
		}

		if diff := counted - snap.OnHand; diff != 0 {
			m := &ledger.Movement{
				StoreID:       storeID,
				SKU:           sku,
				Type:          ledger.TypeAdjustment,
				QuantityDelta: diff,
				Reference:     ledger.Reference{Type: "count", ID: uuid.NewString()},
				Note:          note,
				CreatedAt:     now,
			}
			if _, err := s.ledger.record(txCtx, m, snap, fx); err != nil {
				return err
			}
			result.Movement = m
		}

		snap.MarkCounted(now)
		if err := s.snapshots.Save(txCtx, snap); err != nil {
			return err
		}
		fx.touch(snap, true)
		result.Snapshot = snap
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.rt.afterCommit(ctx, fx)
	return result, nil
}

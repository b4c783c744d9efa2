// Package inventory 库存核心用例
//
// 所有写操作遵循同一个顺序:
//
//	加key锁(门店+SKU) → 开事务 → 行锁读取 → 修改 → 提交 → 写缓存/发事件 → 释放key锁
//
// 事务内不做任何网络调用(缓存、消息),它们只在提交之后执行,失败只记日志
package inventory

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/stockcore/internal/domain/snapshot"
	"github.com/xiebiao/stockcore/internal/infrastructure/config"
	"github.com/xiebiao/stockcore/internal/infrastructure/persistence/mysql"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
	"github.com/xiebiao/stockcore/pkg/keylock"
	"github.com/xiebiao/stockcore/pkg/metrics"
)

const tracerName = "inventory"

// Options 库存服务参数
type Options struct {
	ReservationTTL    time.Duration // 默认预占时长
	ReservationMaxTTL time.Duration // 调用方可申请的最长预占时长
	LockTimeout       time.Duration // 等待key锁的上限
	SweepBatch        int           // 每次过期扫描处理的预占数
	Now               func() time.Time
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		ReservationTTL:    15 * time.Minute,
		ReservationMaxTTL: 2 * time.Hour,
		LockTimeout:       3 * time.Second,
		SweepBatch:        200,
	}
}

// OptionsFromConfig 从配置构建参数
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ReservationTTL:    cfg.Inventory.ReservationTTL,
		ReservationMaxTTL: cfg.Inventory.ReservationMaxTTL,
		LockTimeout:       cfg.Inventory.LockTimeout,
		SweepBatch:        cfg.Inventory.SweepBatch,
	}
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

// EventPublisher 领域事件发布
// *mq.Publisher 直接满足该接口
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// StockCache 快照读缓存
// *redis.StockCache 直接满足该接口
type StockCache interface {
	Put(ctx context.Context, s *snapshot.Snapshot) error
	Get(ctx context.Context, storeID uint, sku string) (*snapshot.Snapshot, bool, error)
	Invalidate(ctx context.Context, storeID uint, sku string) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, interface{}) error { return nil }

// NopPublisher 未启用消息队列时使用
func NopPublisher() EventPublisher { return nopPublisher{} }

type nopCache struct{}

func (nopCache) Put(context.Context, *snapshot.Snapshot) error { return nil }
func (nopCache) Get(context.Context, uint, string) (*snapshot.Snapshot, bool, error) {
	return nil, false, nil
}
func (nopCache) Invalidate(context.Context, uint, string) error { return nil }

// NopCache 未启用缓存时使用
func NopCache() StockCache { return nopCache{} }

// Runtime 各服务共享的基础设施
type Runtime struct {
	tx     *mysql.TxManager
	locker keylock.Locker
	cache  StockCache
	events EventPublisher
	opts   Options
	log    *zap.Logger
}

// NewRuntime 创建运行时
// cache、events为nil时使用空实现
func NewRuntime(tx *mysql.TxManager, locker keylock.Locker, cache StockCache, events EventPublisher, opts Options, log *zap.Logger) *Runtime {
	metrics.InitMetrics()

	if cache == nil {
		cache = NopCache()
	}
	if events == nil {
		events = NopPublisher()
	}
	if log == nil {
		log = zap.NewNop()
	}
	defaults := DefaultOptions()
	if opts.ReservationTTL <= 0 {
		opts.ReservationTTL = defaults.ReservationTTL
	}
	if opts.ReservationMaxTTL < opts.ReservationTTL {
		opts.ReservationMaxTTL = opts.ReservationTTL
	}
	if opts.SweepBatch <= 0 {
		opts.SweepBatch = defaults.SweepBatch
	}
	return &Runtime{tx: tx, locker: locker, cache: cache, events: events, opts: opts, log: log}
}

// lock 获取key锁并记录等待耗时
func (rt *Runtime) lock(ctx context.Context, keys ...string) (context.Context, func(), error) {
	start := time.Now()
	lockedCtx, unlock, err := keylock.Acquire(ctx, rt.locker, rt.opts.LockTimeout, keys...)
	metrics.ObserveHistogram(metrics.LockWaitDuration, time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, apperrors.ErrLockTimeout) {
			metrics.IncCounter(metrics.LockTimeoutsTotal)
			rt.log.Warn("等待库存锁超时", zap.Strings("keys", keys), zap.Duration("timeout", rt.opts.LockTimeout))
		}
		return ctx, func() {}, err
	}
	return lockedCtx, unlock, nil
}

// effects 事务提交后才执行的副作用
type effects struct {
	order     []string
	snapshots map[string]*snapshot.Snapshot
	events    []event
}

type event struct {
	routingKey string
	payload    interface{}
}

func newEffects() *effects {
	return &effects{snapshots: make(map[string]*snapshot.Snapshot)}
}

// touch 记录被修改的快照;可售量首次跌破补货点时追加低库存事件
func (fx *effects) touch(s *snapshot.Snapshot, wasLow bool) {
	key := s.Key()
	if _, ok := fx.snapshots[key]; !ok {
		fx.order = append(fx.order, key)
	}
	fx.snapshots[key] = s

	if !wasLow && s.NeedsReorder() {
		fx.emit(RoutingStockLow, newLowStockEvent(s))
	}
}

func (fx *effects) emit(routingKey string, payload interface{}) {
	fx.events = append(fx.events, event{routingKey: routingKey, payload: payload})
}

// afterCommit 写缓存、发事件
// 仍持有key锁,同一key的缓存写入不会乱序
func (rt *Runtime) afterCommit(ctx context.Context, fx *effects) {
	ctx = context.WithoutCancel(ctx)

	for _, key := range fx.order {
		s := fx.snapshots[key]
		if err := rt.cache.Put(ctx, s); err != nil {
			rt.log.Warn("写入库存缓存失败", zap.String("key", key), zap.Error(err))
			_ = rt.cache.Invalidate(ctx, s.StoreID, s.SKU)
		}
	}

	for _, e := range fx.events {
		if e.routingKey == RoutingStockLow {
			metrics.IncCounter(metrics.LowStockEventsTotal)
		}
		if err := rt.events.Publish(ctx, e.routingKey, e.payload); err != nil {
			rt.log.Warn("发布领域事件失败", zap.String("routing_key", e.routingKey), zap.Error(err))
		}
	}
}

// Package bootstrap 按配置组装库存核心的全部依赖
//
// 依赖链: 配置 → 日志/追踪 → 数据库/Redis/RabbitMQ → 仓储 → 应用服务 → HTTP/定时任务
// cmd/api 与 cmd/stockctl 共用这里的组装逻辑
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xiebiao/stockcore/internal/application/inventory"
	"github.com/xiebiao/stockcore/internal/infrastructure/config"
	"github.com/xiebiao/stockcore/internal/infrastructure/messaging"
	"github.com/xiebiao/stockcore/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/stockcore/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/stockcore/internal/infrastructure/persistence/report"
	"github.com/xiebiao/stockcore/internal/infrastructure/scheduler"
	"github.com/xiebiao/stockcore/internal/interface/http/handler"
	"github.com/xiebiao/stockcore/internal/interface/http/router"
	"github.com/xiebiao/stockcore/pkg/keylock"
	"github.com/xiebiao/stockcore/pkg/logger"
	"github.com/xiebiao/stockcore/pkg/tracing"
)

// App 组装完成的应用
type App struct {
	Config *config.Config
	Log    *zap.Logger
	DB     *gorm.DB

	Ledger       *inventory.Ledger
	Batches      *inventory.BatchTracker
	Snapshots    *inventory.SnapshotStore
	Reservations *inventory.ReservationManager
	Receiver     *inventory.Receiver
	Promoter     *inventory.ASNPromoter
	Intake       *inventory.Intake
	Reporter     *report.Reporter

	closers []func() error
}

// NewLogger 按配置创建日志器
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Options{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
}

// New 连接外部依赖并创建全部服务
// 任一步骤失败时已打开的连接会被关闭
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (app *App, err error) {
	app = &App{Config: cfg, Log: log}
	defer func() {
		if err != nil {
			app.Close()
			app = nil
		}
	}()

	// 1. 链路追踪
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
		if err != nil {
			return app, fmt.Errorf("初始化链路追踪失败: %w", err)
		}
		app.addCloser(func() error { return shutdown(context.Background()) })
	}

	// 2. 数据库
	db, err := mysql.NewDB(cfg, log)
	if err != nil {
		return app, err
	}
	app.DB = db
	sqlDB, err := db.DB()
	if err != nil {
		return app, fmt.Errorf("获取数据库连接池失败: %w", err)
	}
	app.addCloser(sqlDB.Close)

	// 3. Redis(可选): 分布式锁、库存缓存
	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, cfg, log)
		if err != nil {
			return app, err
		}
		app.addCloser(redisClient.Close)
	}
	locker, cache := lockerAndCache(cfg, redisClient)

	// 4. RabbitMQ(可选): 领域事件
	var events inventory.EventPublisher
	if cfg.MQ.Enabled {
		pub, closePub, err := messaging.Dial(cfg, log)
		if err != nil {
			return app, err
		}
		app.addCloser(closePub)
		events = pub
	}

	app.wire(db, sqlDB, locker, cache, events)
	log.Info("库存核心已初始化",
		zap.String("database", cfg.Database.Driver),
		zap.String("lock_backend", cfg.Inventory.LockBackend),
		zap.Bool("cache", cache != nil),
		zap.Bool("events", events != nil),
	)
	return app, nil
}

func lockerAndCache(cfg *config.Config, client *goredis.Client) (keylock.Locker, inventory.StockCache) {
	var locker keylock.Locker = keylock.NewLocal()
	if cfg.Inventory.LockBackend == "redis" && client != nil {
		locker = redis.NewLocker(client, cfg.Inventory.LockTTL)
	}

	var cache inventory.StockCache
	if cfg.Inventory.CacheEnabled && client != nil {
		cache = redis.NewStockCache(client, cfg.Inventory.CacheTTL)
	}
	return locker, cache
}

// wire 仓储 → 应用服务
func (a *App) wire(db *gorm.DB, sqlDB *sql.DB, locker keylock.Locker, cache inventory.StockCache, events inventory.EventPublisher) {
	movements := mysql.NewMovementRepository(db)
	snapshots := mysql.NewSnapshotRepository(db)
	reservations := mysql.NewReservationRepository(db)
	orders := mysql.NewPurchaseOrderRepository(db)

	rt := inventory.NewRuntime(mysql.NewTxManager(db), locker, cache, events, inventory.OptionsFromConfig(a.Config), a.Log)
	a.Batches = inventory.NewBatchTracker(rt, mysql.NewBatchRepository(db))
	a.Ledger = inventory.NewLedger(rt, movements, snapshots, a.Batches)
	a.Snapshots = inventory.NewSnapshotStore(rt, a.Ledger, snapshots, reservations, movements)
	a.Reservations = inventory.NewReservationManager(rt, a.Snapshots, reservations)
	a.Receiver = inventory.NewReceiver(rt, a.Ledger, a.Batches, orders)
	a.Promoter = inventory.NewASNPromoter(rt, orders, mysql.NewStagingRepository(db))
	a.Intake = inventory.NewIntake(a.Promoter, a.Receiver, a.Log)

	driver := "mysql"
	if a.Config.Database.IsSQLite() {
		driver = "sqlite"
	}
	a.Reporter = report.NewReporter(sqlDB, driver, a.Log)
}

// Handlers 创建HTTP处理器
func (a *App) Handlers() router.Handlers {
	return router.Handlers{
		Stock:         handler.NewStockHandler(a.Ledger, a.Snapshots),
		Reservation:   handler.NewReservationHandler(a.Reservations),
		PurchaseOrder: handler.NewPurchaseOrderHandler(a.Receiver, a.Batches),
		Batch:         handler.NewBatchHandler(a.Batches),
		ASN:           handler.NewASNHandler(a.Promoter),
		Report:        handler.NewReportHandler(a.Reporter),
	}
}

// Scheduler 创建定时任务: 过期预占清理、快照对账
func (a *App) Scheduler() (*scheduler.Scheduler, error) {
	inv := a.Config.Inventory
	s := scheduler.New(a.Log, 0)
	if err := s.Add(scheduler.JobReservationSweep, inv.SweepSchedule, scheduler.SweepJob(a.Reservations, inv.SweepBatch, a.Log)); err != nil {
		return nil, err
	}
	if inv.ReconcileSchedule != "" {
		if err := s.Add(scheduler.JobReconcile, inv.ReconcileSchedule, scheduler.ReconcileJob(a.Reporter, a.Log)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (a *App) addCloser(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close 按打开的逆序关闭外部连接
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn("关闭资源失败", zap.Error(err))
		}
	}
	a.closers = nil
}

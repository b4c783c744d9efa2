package reservation

import (
	"context"
	"time"
)

// Repository 预占仓储
type Repository interface {
	Create(ctx context.Context, r *Reservation) error

	FindByID(ctx context.Context, id string) (*Reservation, error)

	// LockByID 加行锁查询,必须在事务中调用
	LockByID(ctx context.Context, id string) (*Reservation, error)

	// Update 更新状态相关字段
	Update(ctx context.Context, r *Reservation) error

	// ListExpiredHeld 全局扫描已到期但仍持有的预占(后台清理用)
	ListExpiredHeld(ctx context.Context, now time.Time, limit int) ([]*Reservation, error)

	// ListExpiredHeldByKey 某门店某SKU下已到期但仍持有的预占(访问时懒过期)
	ListExpiredHeldByKey(ctx context.Context, storeID uint, sku string, now time.Time) ([]*Reservation, error)

	// SumHeldByKey 某门店某SKU下持有中的预占数量合计(用于重建快照)
	SumHeldByKey(ctx context.Context, storeID uint, sku string) (int64, error)
}

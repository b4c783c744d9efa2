package snapshot

import (
	"context"
)

// Repository 库存快照仓储
type Repository interface {
	// FindByKey 普通查询,不存在返回ErrSnapshotNotFound
	FindByKey(ctx context.Context, storeID uint, sku string) (*Snapshot, error)

	// LockByKey 加行锁查询(SELECT ... FOR UPDATE),必须在事务中调用
	LockByKey(ctx context.Context, storeID uint, sku string) (*Snapshot, error)

	// Create 创建快照,(门店, SKU)唯一
	Create(ctx context.Context, s *Snapshot) error

	// Save 保存全部字段
	Save(ctx context.Context, s *Snapshot) error

	// ListByStore 分页查询门店库存
	ListByStore(ctx context.Context, storeID uint, page, pageSize int) ([]*Snapshot, int64, error)

	// ListLowStock 可售量不高于补货点的SKU
	ListLowStock(ctx context.Context, storeID uint) ([]*Snapshot, error)
}

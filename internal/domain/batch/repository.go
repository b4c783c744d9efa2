package batch

import (
	"context"
)

// Repository 批次仓储
type Repository interface {
	// Create 创建批次;采购行重复时返回ErrBatchExists
	Create(ctx context.Context, b *Batch) error

	FindByID(ctx context.Context, id uint) (*Batch, error)

	// LockByID 加行锁查询,必须在事务中调用
	LockByID(ctx context.Context, id uint) (*Batch, error)

	// UpdateRemaining 更新剩余量
	UpdateRemaining(ctx context.Context, b *Batch) error

	// LockOpenFIFO 加锁查询有剩余的批次,按收货时间、ID升序
	LockOpenFIFO(ctx context.Context, storeID uint, sku string) ([]*Batch, error)

	// FindByPurchaseOrderItem 查询采购行对应的批次,不存在返回ErrBatchNotFound
	FindByPurchaseOrderItem(ctx context.Context, itemID uint) (*Batch, error)

	// ListByLot 批号追溯
	ListByLot(ctx context.Context, lotNumber string) ([]*Batch, error)

	// ListByPurchaseOrder 采购单生成的全部批次
	ListByPurchaseOrder(ctx context.Context, purchaseOrderID uint) ([]*Batch, error)
}

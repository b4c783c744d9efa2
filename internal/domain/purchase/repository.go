package purchase

import (
	"context"
)

// Repository 采购单仓储接口
type Repository interface {
	// Create 创建采购单(包含明细),采购单号/ASN会话重复时返回ErrDuplicatePONumber
	Create(ctx context.Context, o *Order) error

	// FindByID 根据ID查找(包含明细)
	FindByID(ctx context.Context, id uint) (*Order, error)

	// LockByID 加行锁查询(包含明细),必须在事务中调用
	LockByID(ctx context.Context, id uint) (*Order, error)

	// FindByPONumber 根据采购单号查找
	FindByPONumber(ctx context.Context, poNumber string) (*Order, error)

	// FindByASNSession 查找由某个ASN会话生成的采购单
	FindByASNSession(ctx context.Context, sessionID string) (*Order, error)

	// UpdateStatus 更新状态和收货时间
	UpdateStatus(ctx context.Context, o *Order) error

	// ListByStatus 分页查询某状态的采购单
	ListByStatus(ctx context.Context, status Status, page, pageSize int) ([]*Order, int64, error)
}

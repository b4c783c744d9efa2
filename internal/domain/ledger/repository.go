package ledger

import (
	"context"
)

// Repository 库存流水仓储
// 只提供追加与查询,没有Update/Delete
type Repository interface {
	// Create 追加一条流水,回填ID
	Create(ctx context.Context, m *Movement) error

	// FindByID 根据ID查找
	FindByID(ctx context.Context, id uint) (*Movement, error)

	// ListByKey 分页查询某门店某SKU的流水(按ID倒序)
	ListByKey(ctx context.Context, storeID uint, sku string, page, pageSize int) ([]*Movement, int64, error)

	// SumByKey 某门店某SKU的流水数量合计
	SumByKey(ctx context.Context, storeID uint, sku string) (int64, error)

	// ListByReference 查询某业务单据产生的全部流水
	ListByReference(ctx context.Context, refType, refID string) ([]*Movement, error)
}

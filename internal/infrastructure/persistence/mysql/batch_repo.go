package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/stockcore/internal/domain/batch"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// batchRepository 批次仓储实现
type batchRepository struct {
	db *gorm.DB
}

// NewBatchRepository 创建批次仓储
func NewBatchRepository(db *gorm.DB) batch.Repository {
	return &batchRepository{db: db}
}

// Create 创建批次
// 教学要点:purchase_order_item_id唯一索引兜底,重复收货同一采购行会被数据库拒绝
func (r *batchRepository) Create(ctx context.Context, b *batch.Batch) error {
	model := toBatchModel(b)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return apperrors.WithDetail(batch.ErrBatchExists, "采购行 %d", derefUint(b.PurchaseOrderItemID))
		}
		return apperrors.Wrap(err, "创建批次失败")
	}
	b.ID = model.ID
	return nil
}

func (r *batchRepository) FindByID(ctx context.Context, id uint) (*batch.Batch, error) {
	return r.findOne(getDB(ctx, r.db).Where("id = ?", id))
}

func (r *batchRepository) LockByID(ctx context.Context, id uint) (*batch.Batch, error) {
	return r.findOne(forUpdate(getDB(ctx, r.db)).Where("id = ?", id))
}

func (r *batchRepository) FindByPurchaseOrderItem(ctx context.Context, itemID uint) (*batch.Batch, error) {
	return r.findOne(getDB(ctx, r.db).Where("purchase_order_item_id = ?", itemID))
}

func (r *batchRepository) findOne(query *gorm.DB) (*batch.Batch, error) {
	var model BatchModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, batch.ErrBatchNotFound
		}
		return nil, apperrors.Wrap(err, "查询批次失败")
	}
	return toBatchEntity(&model), nil
}

// UpdateRemaining 只更新剩余量
func (r *batchRepository) UpdateRemaining(ctx context.Context, b *batch.Batch) error {
	result := getDB(ctx, r.db).Model(&BatchModel{}).Where("id = ?", b.ID).Updates(map[string]interface{}{
		"quantity_remaining": b.QuantityRemaining,
		"updated_at":         b.UpdatedAt,
	})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新批次剩余量失败")
	}
	if result.RowsAffected == 0 {
		return batch.ErrBatchNotFound
	}
	return nil
}

// LockOpenFIFO 有剩余的批次,先收先出
func (r *batchRepository) LockOpenFIFO(ctx context.Context, storeID uint, sku string) ([]*batch.Batch, error) {
	var models []BatchModel
	err := forUpdate(getDB(ctx, r.db)).
		Where("store_id = ? AND sku = ? AND quantity_remaining > 0", storeID, sku).
		Order("received_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询可用批次失败")
	}
	return toBatchEntities(models), nil
}

// ListByLot 批号追溯(跨门店)
func (r *batchRepository) ListByLot(ctx context.Context, lotNumber string) ([]*batch.Batch, error) {
	var models []BatchModel
	err := getDB(ctx, r.db).
		Where("lot_number = ?", lotNumber).
		Order("store_id ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "按批号查询批次失败")
	}
	return toBatchEntities(models), nil
}

func (r *batchRepository) ListByPurchaseOrder(ctx context.Context, purchaseOrderID uint) ([]*batch.Batch, error) {
	var models []BatchModel
	err := getDB(ctx, r.db).
		Where("purchase_order_id = ?", purchaseOrderID).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "按采购单查询批次失败")
	}
	return toBatchEntities(models), nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

func toBatchModel(b *batch.Batch) *BatchModel {
	return &BatchModel{
		ID:                  b.ID,
		LotNumber:           b.LotNumber,
		SKU:                 b.SKU,
		StoreID:             b.StoreID,
		QuantityReceived:    b.QuantityReceived,
		QuantityRemaining:   b.QuantityRemaining,
		UnitCost:            b.UnitCost,
		CaseGTIN:            b.CaseGTIN,
		UnitGTIN:            b.UnitGTIN,
		PurchaseOrderID:     b.PurchaseOrderID,
		PurchaseOrderItemID: b.PurchaseOrderItemID,
		MovementID:          b.MovementID,
		ShelfLocation:       b.ShelfLocation,
		ExpiryDate:          b.ExpiryDate,
		ReceivedAt:          b.ReceivedAt.UTC(),
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

func toBatchEntity(model *BatchModel) *batch.Batch {
	return &batch.Batch{
		ID:                  model.ID,
		LotNumber:           model.LotNumber,
		SKU:                 model.SKU,
		StoreID:             model.StoreID,
		QuantityReceived:    model.QuantityReceived,
		QuantityRemaining:   model.QuantityRemaining,
		UnitCost:            model.UnitCost,
		CaseGTIN:            model.CaseGTIN,
		UnitGTIN:            model.UnitGTIN,
		PurchaseOrderID:     model.PurchaseOrderID,
		PurchaseOrderItemID: model.PurchaseOrderItemID,
		MovementID:          model.MovementID,
		ShelfLocation:       model.ShelfLocation,
		ExpiryDate:          utcPtr(model.ExpiryDate),
		ReceivedAt:          model.ReceivedAt.UTC(),
		CreatedAt:           model.CreatedAt.UTC(),
		UpdatedAt:           model.UpdatedAt.UTC(),
	}
}

func toBatchEntities(models []BatchModel) []*batch.Batch {
	out := make([]*batch.Batch, len(models))
	for i := range models {
		out[i] = toBatchEntity(&models[i])
	}
	return out
}

func derefUint(p *uint) uint {
	if p == nil {
		return 0
	}
	return *p
}

package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/stockcore/internal/domain/ledger"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// movementRepository 库存流水仓储实现
// 只有INSERT和SELECT,没有UPDATE/DELETE
type movementRepository struct {
	db *gorm.DB
}

// NewMovementRepository 创建流水仓储
func NewMovementRepository(db *gorm.DB) ledger.Repository {
	return &movementRepository{db: db}
}

// Create 追加流水,回填自增ID
func (r *movementRepository) Create(ctx context.Context, m *ledger.Movement) error {
	model := toMovementModel(m)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "写入库存流水失败")
	}
	m.ID = model.ID
	return nil
}

// FindByID 根据ID查找
func (r *movementRepository) FindByID(ctx context.Context, id uint) (*ledger.Movement, error) {
	var model MovementModel
	err := getDB(ctx, r.db).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrMovementNotFound
		}
		return nil, apperrors.Wrap(err, "查询库存流水失败")
	}
	return toMovementEntity(&model), nil
}

// ListByKey 分页查询流水,最新的在前
func (r *movementRepository) ListByKey(ctx context.Context, storeID uint, sku string, page, pageSize int) ([]*ledger.Movement, int64, error) {
	page, pageSize = normalizePage(page, pageSize)

	var total int64
	query := getDB(ctx, r.db).Model(&MovementModel{}).Where("store_id = ? AND sku = ?", storeID, sku)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询流水总数失败")
	}

	var models []MovementModel
	err := query.Order("id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询流水列表失败")
	}

	return toMovementEntities(models), total, nil
}

// SumByKey 流水数量合计(对账用)
func (r *movementRepository) SumByKey(ctx context.Context, storeID uint, sku string) (int64, error) {
	var sum int64
	err := getDB(ctx, r.db).Model(&MovementModel{}).
		Select("COALESCE(SUM(quantity_delta), 0)").
		Where("store_id = ? AND sku = ?", storeID, sku).
		Scan(&sum).Error
	if err != nil {
		return 0, apperrors.Wrap(err, "汇总库存流水失败")
	}
	return sum, nil
}

// ListByReference 某业务单据产生的全部流水,按发生顺序
func (r *movementRepository) ListByReference(ctx context.Context, refType, refID string) ([]*ledger.Movement, error) {
	var models []MovementModel
	err := getDB(ctx, r.db).
		Where("ref_type = ? AND ref_id = ?", refType, refID).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "按单据查询流水失败")
	}
	return toMovementEntities(models), nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

func toMovementModel(m *ledger.Movement) *MovementModel {
	return &MovementModel{
		ID:            m.ID,
		StoreID:       m.StoreID,
		SKU:           m.SKU,
		Type:          string(m.Type),
		QuantityDelta: m.QuantityDelta,
		UnitCost:      m.UnitCost,
		UnitPrice:     m.UnitPrice,
		RefType:       m.Reference.Type,
		RefID:         m.Reference.ID,
		BatchID:       m.BatchID,
		Note:          m.Note,
		CreatedAt:     m.CreatedAt,
	}
}

func toMovementEntity(model *MovementModel) *ledger.Movement {
	return &ledger.Movement{
		ID:            model.ID,
		StoreID:       model.StoreID,
		SKU:           model.SKU,
		Type:          ledger.MovementType(model.Type),
		QuantityDelta: model.QuantityDelta,
		UnitCost:      model.UnitCost,
		UnitPrice:     model.UnitPrice,
		Reference:     ledger.Reference{Type: model.RefType, ID: model.RefID},
		BatchID:       model.BatchID,
		Note:          model.Note,
		CreatedAt:     model.CreatedAt.UTC(),
	}
}

func toMovementEntities(models []MovementModel) []*ledger.Movement {
	out := make([]*ledger.Movement, len(models))
	for i := range models {
		out[i] = toMovementEntity(&models[i])
	}
	return out
}

package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/stockcore/internal/domain/snapshot"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// snapshotRepository 库存快照仓储实现
type snapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository 创建快照仓储
func NewSnapshotRepository(db *gorm.DB) snapshot.Repository {
	return &snapshotRepository{db: db}
}

// FindByKey 普通查询
func (r *snapshotRepository) FindByKey(ctx context.Context, storeID uint, sku string) (*snapshot.Snapshot, error) {
	return r.findByKey(getDB(ctx, r.db), storeID, sku)
}

// LockByKey 悲观锁查询
// 生成SQL: SELECT * FROM stock_snapshots WHERE store_id = ? AND sku = ? LIMIT 1 FOR UPDATE
func (r *snapshotRepository) LockByKey(ctx context.Context, storeID uint, sku string) (*snapshot.Snapshot, error) {
	return r.findByKey(forUpdate(getDB(ctx, r.db)), storeID, sku)
}

func (r *snapshotRepository) findByKey(db *gorm.DB, storeID uint, sku string) (*snapshot.Snapshot, error) {
	var model SnapshotModel
	err := db.Where("store_id = ? AND sku = ?", storeID, sku).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, snapshot.ErrSnapshotNotFound
		}
		return nil, apperrors.Wrap(err, "查询库存快照失败")
	}
	return toSnapshotEntity(&model), nil
}

// Create 创建快照
func (r *snapshotRepository) Create(ctx context.Context, s *snapshot.Snapshot) error {
	model := toSnapshotModel(s)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return apperrors.WithDetail(apperrors.ErrDuplicateEntry, "快照 %s 已存在", s.Key())
		}
		return apperrors.Wrap(err, "创建库存快照失败")
	}
	s.ID = model.ID
	return nil
}

// Save 保存全部字段(包括零值)
func (r *snapshotRepository) Save(ctx context.Context, s *snapshot.Snapshot) error {
	if err := getDB(ctx, r.db).Save(toSnapshotModel(s)).Error; err != nil {
		return apperrors.Wrap(err, "保存库存快照失败")
	}
	return nil
}

// ListByStore 分页查询门店库存
func (r *snapshotRepository) ListByStore(ctx context.Context, storeID uint, page, pageSize int) ([]*snapshot.Snapshot, int64, error) {
	page, pageSize = normalizePage(page, pageSize)

	var total int64
	query := getDB(ctx, r.db).Model(&SnapshotModel{}).Where("store_id = ?", storeID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询库存总数失败")
	}

	var models []SnapshotModel
	err := query.Order("sku ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询库存列表失败")
	}
	return toSnapshotEntities(models), total, nil
}

// ListLowStock 可售量(on_hand - reserved)不高于补货点,且设置了补货点
func (r *snapshotRepository) ListLowStock(ctx context.Context, storeID uint) ([]*snapshot.Snapshot, error) {
	var models []SnapshotModel
	err := getDB(ctx, r.db).
		Where("store_id = ? AND reorder_point > 0 AND on_hand - reserved <= reorder_point", storeID).
		Order("sku ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询低库存失败")
	}
	return toSnapshotEntities(models), nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

func toSnapshotModel(s *snapshot.Snapshot) *SnapshotModel {
	return &SnapshotModel{
		ID:              s.ID,
		StoreID:         s.StoreID,
		SKU:             s.SKU,
		OnHand:          s.OnHand,
		Reserved:        s.Reserved,
		ReorderPoint:    s.ReorderPoint,
		ReorderQuantity: s.ReorderQuantity,
		LastMovementID:  s.LastMovementID,
		LastCountedAt:   s.LastCountedAt,
		LastSoldAt:      s.LastSoldAt,
		LastReceivedAt:  s.LastReceivedAt,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func toSnapshotEntity(model *SnapshotModel) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		ID:              model.ID,
		StoreID:         model.StoreID,
		SKU:             model.SKU,
		OnHand:          model.OnHand,
		Reserved:        model.Reserved,
		ReorderPoint:    model.ReorderPoint,
		ReorderQuantity: model.ReorderQuantity,
		LastMovementID:  model.LastMovementID,
		LastCountedAt:   utcPtr(model.LastCountedAt),
		LastSoldAt:      utcPtr(model.LastSoldAt),
		LastReceivedAt:  utcPtr(model.LastReceivedAt),
		CreatedAt:       model.CreatedAt.UTC(),
		UpdatedAt:       model.UpdatedAt.UTC(),
	}
}

func toSnapshotEntities(models []SnapshotModel) []*snapshot.Snapshot {
	out := make([]*snapshot.Snapshot, len(models))
	for i := range models {
		out[i] = toSnapshotEntity(&models[i])
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

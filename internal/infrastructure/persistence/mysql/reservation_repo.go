package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/stockcore/internal/domain/reservation"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// reservationRepository 预占仓储实现
type reservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository 创建预占仓储
func NewReservationRepository(db *gorm.DB) reservation.Repository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	if err := getDB(ctx, r.db).Create(toReservationModel(res)).Error; err != nil {
		if isDuplicateError(err) {
			return apperrors.WithDetail(apperrors.ErrDuplicateEntry, "预占 %s 已存在", res.ID)
		}
		return apperrors.Wrap(err, "创建预占失败")
	}
	return nil
}

func (r *reservationRepository) FindByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	return r.findByID(getDB(ctx, r.db), id)
}

func (r *reservationRepository) LockByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	return r.findByID(forUpdate(getDB(ctx, r.db)), id)
}

func (r *reservationRepository) findByID(db *gorm.DB, id string) (*reservation.Reservation, error) {
	var model ReservationModel
	err := db.Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, apperrors.Wrap(err, "查询预占失败")
	}
	return toReservationEntity(&model), nil
}

// Update 只更新状态相关字段
func (r *reservationRepository) Update(ctx context.Context, res *reservation.Reservation) error {
	result := getDB(ctx, r.db).Model(&ReservationModel{}).Where("id = ?", res.ID).Updates(map[string]interface{}{
		"state":       string(res.State),
		"movement_id": res.MovementID,
		"closed_at":   res.ClosedAt,
		"updated_at":  res.UpdatedAt,
	})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新预占失败")
	}
	if result.RowsAffected == 0 {
		return reservation.ErrReservationNotFound
	}
	return nil
}

// ListExpiredHeld 已到期仍持有的预占,最早到期的在前
func (r *reservationRepository) ListExpiredHeld(ctx context.Context, now time.Time, limit int) ([]*reservation.Reservation, error) {
	var models []ReservationModel
	err := getDB(ctx, r.db).
		Where("state = ? AND expires_at <= ?", string(reservation.StateHeld), now.UTC()).
		Order("expires_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询过期预占失败")
	}
	return toReservationEntities(models), nil
}

func (r *reservationRepository) ListExpiredHeldByKey(ctx context.Context, storeID uint, sku string, now time.Time) ([]*reservation.Reservation, error) {
	var models []ReservationModel
	err := getDB(ctx, r.db).
		Where("store_id = ? AND sku = ? AND state = ? AND expires_at <= ?",
			storeID, sku, string(reservation.StateHeld), now.UTC()).
		Order("expires_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询过期预占失败")
	}
	return toReservationEntities(models), nil
}

func (r *reservationRepository) SumHeldByKey(ctx context.Context, storeID uint, sku string) (int64, error) {
	var sum int64
	err := getDB(ctx, r.db).Model(&ReservationModel{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("store_id = ? AND sku = ? AND state = ?", storeID, sku, string(reservation.StateHeld)).
		Scan(&sum).Error
	if err != nil {
		return 0, apperrors.Wrap(err, "汇总预占数量失败")
	}
	return sum, nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

func toReservationModel(res *reservation.Reservation) *ReservationModel {
	return &ReservationModel{
		ID:         res.ID,
		StoreID:    res.StoreID,
		SKU:        res.SKU,
		Quantity:   res.Quantity,
		OwnerRef:   res.OwnerRef,
		State:      string(res.State),
		ExpiresAt:  res.ExpiresAt.UTC(),
		MovementID: res.MovementID,
		ClosedAt:   res.ClosedAt,
		CreatedAt:  res.CreatedAt,
		UpdatedAt:  res.UpdatedAt,
	}
}

func toReservationEntity(model *ReservationModel) *reservation.Reservation {
	return &reservation.Reservation{
		ID:         model.ID,
		StoreID:    model.StoreID,
		SKU:        model.SKU,
		Quantity:   model.Quantity,
		OwnerRef:   model.OwnerRef,
		State:      reservation.State(model.State),
		ExpiresAt:  model.ExpiresAt.UTC(),
		MovementID: model.MovementID,
		ClosedAt:   utcPtr(model.ClosedAt),
		CreatedAt:  model.CreatedAt.UTC(),
		UpdatedAt:  model.UpdatedAt.UTC(),
	}
}

func toReservationEntities(models []ReservationModel) []*reservation.Reservation {
	out := make([]*reservation.Reservation, len(models))
	for i := range models {
		out[i] = toReservationEntity(&models[i])
	}
	return out
}

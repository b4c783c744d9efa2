package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/xiebiao/stockcore/internal/domain/asn"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// stagingRepository ASN暂存仓储实现
type stagingRepository struct {
	db *gorm.DB
}

// NewStagingRepository 创建ASN暂存仓储
func NewStagingRepository(db *gorm.DB) asn.Repository {
	return &stagingRepository{db: db}
}

// CreateLines 批量插入,每批100行
func (r *stagingRepository) CreateLines(ctx context.Context, lines []*asn.StagedLine) error {
	if len(lines) == 0 {
		return nil
	}
	models := make([]StagedLineModel, len(lines))
	for i, l := range lines {
		models[i] = *toStagedLineModel(l)
	}
	if err := getDB(ctx, r.db).CreateInBatches(models, 100).Error; err != nil {
		return apperrors.Wrap(err, "写入ASN暂存行失败")
	}
	for i := range lines {
		lines[i].ID = models[i].ID
	}
	return nil
}

func (r *stagingRepository) ListBySession(ctx context.Context, sessionID string) ([]*asn.StagedLine, error) {
	var models []StagedLineModel
	err := getDB(ctx, r.db).Where("session_id = ?", sessionID).Order("id ASC").Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询ASN暂存行失败")
	}
	out := make([]*asn.StagedLine, len(models))
	for i := range models {
		out[i] = toStagedLineEntity(&models[i])
	}
	return out, nil
}

func (r *stagingRepository) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	result := getDB(ctx, r.db).Where("session_id = ?", sessionID).Delete(&StagedLineModel{})
	if result.Error != nil {
		return 0, apperrors.Wrap(result.Error, "清理ASN暂存行失败")
	}
	return result.RowsAffected, nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

func toStagedLineModel(l *asn.StagedLine) *StagedLineModel {
	return &StagedLineModel{
		ID:            l.ID,
		SessionID:     l.SessionID,
		ShipToStoreID: l.ShipToStoreID,
		ShipmentID:    l.ShipmentID,
		ContainerID:   l.ContainerID,
		VendorCode:    l.VendorCode,
		VendorName:    l.VendorName,
		SKU:           l.SKU,
		Description:   l.Description,
		Quantity:      l.Quantity,
		UnitCost:      l.UnitCost,
		LotNumber:     l.LotNumber,
		CaseGTIN:      l.CaseGTIN,
		UnitGTIN:      l.UnitGTIN,
		ExpiryDate:    l.ExpiryDate,
		ShelfLocation: l.ShelfLocation,
		CreatedAt:     l.CreatedAt,
	}
}

func toStagedLineEntity(model *StagedLineModel) *asn.StagedLine {
	return &asn.StagedLine{
		ID:            model.ID,
		SessionID:     model.SessionID,
		ShipToStoreID: model.ShipToStoreID,
		ShipmentID:    model.ShipmentID,
		ContainerID:   model.ContainerID,
		VendorCode:    model.VendorCode,
		VendorName:    model.VendorName,
		SKU:           model.SKU,
		Description:   model.Description,
		Quantity:      model.Quantity,
		UnitCost:      model.UnitCost,
		LotNumber:     model.LotNumber,
		CaseGTIN:      model.CaseGTIN,
		UnitGTIN:      model.UnitGTIN,
		ExpiryDate:    utcPtr(model.ExpiryDate),
		ShelfLocation: model.ShelfLocation,
		CreatedAt:     model.CreatedAt.UTC(),
	}
}

package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/stockcore/internal/domain/purchase"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// purchaseOrderRepository 采购单仓储实现(MySQL)
// 教学要点:
// 1. PurchaseOrder和Item是聚合关系,必须一起保存
// 2. 查询时使用Preload预加载明细,避免N+1问题
// 3. 事务通过context传递
type purchaseOrderRepository struct {
	db *gorm.DB
}

// NewPurchaseOrderRepository 创建采购单仓储
func NewPurchaseOrderRepository(db *gorm.DB) purchase.Repository {
	return &purchaseOrderRepository{db: db}
}

// Create 创建采购单(GORM会自动保存关联的Items)
func (r *purchaseOrderRepository) Create(ctx context.Context, o *purchase.Order) error {
	model := toPurchaseOrderModel(o)

	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return apperrors.WithDetail(purchase.ErrDuplicatePONumber, "%s", o.PONumber)
		}
		return apperrors.Wrap(err, "创建采购单失败")
	}

	// 回填自增ID
	o.ID = model.ID
	for i := range o.Items {
		o.Items[i].ID = model.Items[i].ID
		o.Items[i].OrderID = model.ID
	}
	return nil
}

// FindByID 根据ID查找采购单
func (r *purchaseOrderRepository) FindByID(ctx context.Context, id uint) (*purchase.Order, error) {
	return r.findOne(getDB(ctx, r.db).Where("id = ?", id))
}

// LockByID 加行锁查询
// 只锁单头,明细随后Preload,单头锁已经足够串行化收货
func (r *purchaseOrderRepository) LockByID(ctx context.Context, id uint) (*purchase.Order, error) {
	return r.findOne(forUpdate(getDB(ctx, r.db)).Where("id = ?", id))
}

func (r *purchaseOrderRepository) FindByPONumber(ctx context.Context, poNumber string) (*purchase.Order, error) {
	return r.findOne(getDB(ctx, r.db).Where("po_number = ?", poNumber))
}

func (r *purchaseOrderRepository) FindByASNSession(ctx context.Context, sessionID string) (*purchase.Order, error) {
	return r.findOne(getDB(ctx, r.db).Where("asn_session_id = ?", sessionID))
}

func (r *purchaseOrderRepository) findOne(query *gorm.DB) (*purchase.Order, error) {
	var model PurchaseOrderModel
	// Preload("Items")会执行:
	// 1. SELECT * FROM purchase_orders WHERE ...
	// 2. SELECT * FROM purchase_order_items WHERE order_id IN (?) ORDER BY id
	err := query.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, purchase.ErrPurchaseOrderNotFound
		}
		return nil, apperrors.Wrap(err, "查询采购单失败")
	}
	return toPurchaseOrderEntity(&model), nil
}

// UpdateStatus 只更新状态与收货时间,不更新Items
func (r *purchaseOrderRepository) UpdateStatus(ctx context.Context, o *purchase.Order) error {
	result := getDB(ctx, r.db).Model(&PurchaseOrderModel{}).Where("id = ?", o.ID).Updates(map[string]interface{}{
		"status":      string(o.Status),
		"received_at": o.ReceivedAt,
		"updated_at":  o.UpdatedAt,
	})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新采购单失败")
	}
	if result.RowsAffected == 0 {
		return purchase.ErrPurchaseOrderNotFound
	}
	return nil
}

// ListByStatus 分页查询
func (r *purchaseOrderRepository) ListByStatus(ctx context.Context, status purchase.Status, page, pageSize int) ([]*purchase.Order, int64, error) {
	page, pageSize = normalizePage(page, pageSize)

	var total int64
	query := getDB(ctx, r.db).Model(&PurchaseOrderModel{}).Where("status = ?", string(status))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询采购单总数失败")
	}

	var models []PurchaseOrderModel
	err := query.Preload("Items").
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询采购单列表失败")
	}

	orders := make([]*purchase.Order, len(models))
	for i := range models {
		orders[i] = toPurchaseOrderEntity(&models[i])
	}
	return orders, total, nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

// toPurchaseOrderModel 领域实体 → GORM模型
func toPurchaseOrderModel(o *purchase.Order) *PurchaseOrderModel {
	items := make([]PurchaseOrderItemModel, len(o.Items))
	for i, item := range o.Items {
		items[i] = PurchaseOrderItemModel{
			ID:            item.ID,
			OrderID:       item.OrderID,
			SKU:           item.SKU,
			Description:   item.Description,
			OrderedQty:    item.OrderedQty,
			ShippedQty:    item.ShippedQty,
			UnitCost:      item.UnitCost,
			LotNumber:     item.LotNumber,
			CaseGTIN:      item.CaseGTIN,
			UnitGTIN:      item.UnitGTIN,
			ExpiryDate:    item.ExpiryDate,
			ShelfLocation: item.ShelfLocation,
		}
	}

	return &PurchaseOrderModel{
		ID:           o.ID,
		PONumber:     o.PONumber,
		SupplierID:   o.SupplierID,
		StoreID:      o.StoreID,
		Status:       string(o.Status),
		ExpectedDate: o.ExpectedDate,
		ReceivedAt:   o.ReceivedAt,
		TotalValue:   o.TotalValue,
		ASNSessionID: o.ASNSessionID,
		ShipmentID:   o.Shipment.ShipmentID,
		ContainerID:  o.Shipment.ContainerID,
		VendorCode:   o.Shipment.VendorCode,
		VendorName:   o.Shipment.VendorName,
		Items:        items,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

// toPurchaseOrderEntity GORM模型 → 领域实体
func toPurchaseOrderEntity(model *PurchaseOrderModel) *purchase.Order {
	items := make([]purchase.Item, len(model.Items))
	for i, item := range model.Items {
		items[i] = purchase.Item{
			ID:            item.ID,
			OrderID:       item.OrderID,
			SKU:           item.SKU,
			Description:   item.Description,
			OrderedQty:    item.OrderedQty,
			ShippedQty:    item.ShippedQty,
			UnitCost:      item.UnitCost,
			LotNumber:     item.LotNumber,
			CaseGTIN:      item.CaseGTIN,
			UnitGTIN:      item.UnitGTIN,
			ExpiryDate:    utcPtr(item.ExpiryDate),
			ShelfLocation: item.ShelfLocation,
		}
	}

	return &purchase.Order{
		ID:           model.ID,
		PONumber:     model.PONumber,
		SupplierID:   model.SupplierID,
		StoreID:      model.StoreID,
		Status:       purchase.Status(model.Status),
		ExpectedDate: utcPtr(model.ExpectedDate),
		ReceivedAt:   utcPtr(model.ReceivedAt),
		TotalValue:   model.TotalValue,
		ASNSessionID: model.ASNSessionID,
		Shipment: purchase.Shipment{
			ShipmentID:  model.ShipmentID,
			ContainerID: model.ContainerID,
			VendorCode:  model.VendorCode,
			VendorName:  model.VendorName,
		},
		Items:     items,
		CreatedAt: model.CreatedAt.UTC(),
		UpdatedAt: model.UpdatedAt.UTC(),
	}
}

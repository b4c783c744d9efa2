package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/stockcore/internal/domain/batch"
	"github.com/xiebiao/stockcore/internal/domain/purchase"
)

// CreatePurchaseOrderRequest 手工录入采购单
type CreatePurchaseOrderRequest struct {
	PONumber     string                     `json:"po_number" binding:"required,max=64" example:"PO-2026-0001"`
	SupplierID   string                     `json:"supplier_id" binding:"max=64" example:"SUP-1"`
	StoreID      uint                       `json:"store_id" binding:"required" example:"1"`
	ExpectedDate *time.Time                 `json:"expected_date"`
	Items        []PurchaseOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// PurchaseOrderItemRequest 采购明细
type PurchaseOrderItemRequest struct {
	SKU           string          `json:"sku" binding:"required,max=64" example:"ABC-001"`
	Description   string          `json:"description" binding:"max=255"`
	OrderedQty    int64           `json:"ordered_qty" binding:"required,min=1" example:"20"`
	ShippedQty    int64           `json:"shipped_qty" binding:"min=0" example:"0"`
	UnitCost      decimal.Decimal `json:"unit_cost" swaggertype:"string" example:"2.50"`
	LotNumber     string          `json:"lot_number" binding:"max=64" example:"LOT-2026-03"`
	CaseGTIN      string          `json:"case_gtin" binding:"max=32"`
	UnitGTIN      string          `json:"unit_gtin" binding:"max=32"`
	ExpiryDate    *time.Time      `json:"expiry_date"`
	ShelfLocation string          `json:"shelf_location" binding:"max=32"`
}

// ToItem 转为领域明细
func (r PurchaseOrderItemRequest) ToItem() purchase.Item {
	return purchase.Item{
		SKU:           r.SKU,
		Description:   r.Description,
		OrderedQty:    r.OrderedQty,
		ShippedQty:    r.ShippedQty,
		UnitCost:      r.UnitCost,
		LotNumber:     r.LotNumber,
		CaseGTIN:      r.CaseGTIN,
		UnitGTIN:      r.UnitGTIN,
		ExpiryDate:    r.ExpiryDate,
		ShelfLocation: r.ShelfLocation,
	}
}

// ListPurchaseOrdersRequest 按状态查询采购单
type ListPurchaseOrdersRequest struct {
	PageRequest
	Status string `form:"status" binding:"omitempty,oneof=pending received cancelled" example:"pending"`
}

// PurchaseOrderResponse 采购单
type PurchaseOrderResponse struct {
	ID           uint                        `json:"id" example:"1"`
	PONumber     string                      `json:"po_number" example:"PO-2026-0001"`
	SupplierID   string                      `json:"supplier_id" example:"SUP-1"`
	StoreID      uint                        `json:"store_id" example:"1"`
	Status       string                      `json:"status" example:"pending"`
	ExpectedDate *time.Time                  `json:"expected_date,omitempty"`
	ReceivedAt   *time.Time                  `json:"received_at,omitempty"`
	TotalValue   decimal.Decimal             `json:"total_value" swaggertype:"string" example:"50.00"`
	ASNSessionID *string                     `json:"asn_session_id,omitempty"`
	ShipmentID   string                      `json:"shipment_id,omitempty"`
	ContainerID  string                      `json:"container_id,omitempty"`
	VendorCode   string                      `json:"vendor_code,omitempty"`
	VendorName   string                      `json:"vendor_name,omitempty"`
	Items        []PurchaseOrderItemResponse `json:"items"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

// PurchaseOrderItemResponse 采购明细
type PurchaseOrderItemResponse struct {
	ID            uint            `json:"id"`
	SKU           string          `json:"sku"`
	Description   string          `json:"description,omitempty"`
	OrderedQty    int64           `json:"ordered_qty"`
	ShippedQty    int64           `json:"shipped_qty"`
	UnitCost      decimal.Decimal `json:"unit_cost" swaggertype:"string"`
	LotNumber     string          `json:"lot_number,omitempty"`
	CaseGTIN      string          `json:"case_gtin,omitempty"`
	UnitGTIN      string          `json:"unit_gtin,omitempty"`
	ExpiryDate    *time.Time      `json:"expiry_date,omitempty"`
	ShelfLocation string          `json:"shelf_location,omitempty"`
}

// NewPurchaseOrderResponse 领域对象转响应
func NewPurchaseOrderResponse(o *purchase.Order) *PurchaseOrderResponse {
	if o == nil {
		return nil
	}
	resp := &PurchaseOrderResponse{
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
		Items:        make([]PurchaseOrderItemResponse, 0, len(o.Items)),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	for _, i := range o.Items {
		resp.Items = append(resp.Items, PurchaseOrderItemResponse{
			ID:            i.ID,
			SKU:           i.SKU,
			Description:   i.Description,
			OrderedQty:    i.OrderedQty,
			ShippedQty:    i.ShippedQty,
			UnitCost:      i.UnitCost,
			LotNumber:     i.LotNumber,
			CaseGTIN:      i.CaseGTIN,
			UnitGTIN:      i.UnitGTIN,
			ExpiryDate:    i.ExpiryDate,
			ShelfLocation: i.ShelfLocation,
		})
	}
	return resp
}

// NewPurchaseOrderList 批量转换
func NewPurchaseOrderList(list []*purchase.Order) []*PurchaseOrderResponse {
	out := make([]*PurchaseOrderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, NewPurchaseOrderResponse(o))
	}
	return out
}

// BatchResponse 收货批次
type BatchResponse struct {
	ID                  uint            `json:"id" example:"1"`
	LotNumber           string          `json:"lot_number" example:"LOT-2026-03"`
	SKU                 string          `json:"sku" example:"ABC-001"`
	StoreID             uint            `json:"store_id" example:"1"`
	QuantityReceived    int64           `json:"quantity_received" example:"20"`
	QuantityRemaining   int64           `json:"quantity_remaining" example:"12"`
	UnitCost            decimal.Decimal `json:"unit_cost" swaggertype:"string" example:"2.50"`
	CaseGTIN            string          `json:"case_gtin,omitempty"`
	UnitGTIN            string          `json:"unit_gtin,omitempty"`
	PurchaseOrderID     *uint           `json:"purchase_order_id,omitempty"`
	PurchaseOrderItemID *uint           `json:"purchase_order_item_id,omitempty"`
	MovementID          *uint           `json:"movement_id,omitempty"`
	ShelfLocation       string          `json:"shelf_location,omitempty"`
	ExpiryDate          *time.Time      `json:"expiry_date,omitempty"`
	ReceivedAt          time.Time       `json:"received_at"`
}

// NewBatchResponse 领域对象转响应
func NewBatchResponse(b *batch.Batch) *BatchResponse {
	if b == nil {
		return nil
	}
	return &BatchResponse{
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
		ReceivedAt:          b.ReceivedAt,
	}
}

// NewBatchList 批量转换
func NewBatchList(list []*batch.Batch) []*BatchResponse {
	out := make([]*BatchResponse, 0, len(list))
	for _, b := range list {
		out = append(out, NewBatchResponse(b))
	}
	return out
}

// ConsumeBatchRequest 批次扣减(不记流水,由调用方负责对应的出库流水)
type ConsumeBatchRequest struct {
	StoreID  uint   `json:"store_id" binding:"required" example:"1"`
	SKU      string `json:"sku" binding:"required,max=64" example:"ABC-001"`
	Quantity int64  `json:"quantity" binding:"required,min=1" example:"3"`
	BatchID  *uint  `json:"batch_id"` // 为空时先进先出
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/stockcore/internal/domain/asn"
)

// StageLinesRequest 追加ASN暂存行
type StageLinesRequest struct {
	Lines []StagedLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// StagedLineRequest ASN的一行(供应商提前发货通知)
type StagedLineRequest struct {
	ShipToStoreID uint            `json:"ship_to_store_id" binding:"required" example:"7"`
	ShipmentID    string          `json:"shipment_id" binding:"max=64" example:"SHP-9"`
	ContainerID   string          `json:"container_id" binding:"max=64" example:"CONT-1"`
	VendorCode    string          `json:"vendor_code" binding:"max=64" example:"V01"`
	VendorName    string          `json:"vendor_name" binding:"max=128" example:"Acme"`
	SKU           string          `json:"sku" binding:"required,max=64" example:"ABC-001"`
	Description   string          `json:"description" binding:"max=255"`
	Quantity      int64           `json:"quantity" binding:"required,min=1" example:"12"`
	UnitCost      decimal.Decimal `json:"unit_cost" swaggertype:"string" example:"3.20"`
	LotNumber     string          `json:"lot_number" binding:"max=64"`
	CaseGTIN      string          `json:"case_gtin" binding:"max=32"`
	UnitGTIN      string          `json:"unit_gtin" binding:"max=32"`
	ExpiryDate    *time.Time      `json:"expiry_date"`
	ShelfLocation string          `json:"shelf_location" binding:"max=32"`
}

// ToStagedLine 转为领域对象,会话ID由路径给出
func (r StagedLineRequest) ToStagedLine(sessionID string) *asn.StagedLine {
	return &asn.StagedLine{
		SessionID:     sessionID,
		ShipToStoreID: r.ShipToStoreID,
		ShipmentID:    r.ShipmentID,
		ContainerID:   r.ContainerID,
		VendorCode:    r.VendorCode,
		VendorName:    r.VendorName,
		SKU:           r.SKU,
		Description:   r.Description,
		Quantity:      r.Quantity,
		UnitCost:      r.UnitCost,
		LotNumber:     r.LotNumber,
		CaseGTIN:      r.CaseGTIN,
		UnitGTIN:      r.UnitGTIN,
		ExpiryDate:    r.ExpiryDate,
		ShelfLocation: r.ShelfLocation,
	}
}

// StagedLineResponse 暂存行
type StagedLineResponse struct {
	ID            uint            `json:"id"`
	ShipToStoreID uint            `json:"ship_to_store_id"`
	ShipmentID    string          `json:"shipment_id,omitempty"`
	ContainerID   string          `json:"container_id,omitempty"`
	VendorCode    string          `json:"vendor_code,omitempty"`
	SKU           string          `json:"sku"`
	Quantity      int64           `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost" swaggertype:"string"`
	LotNumber     string          `json:"lot_number,omitempty"`
}

// NewStagedLineList 批量转换
func NewStagedLineList(lines []*asn.StagedLine) []*StagedLineResponse {
	out := make([]*StagedLineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, &StagedLineResponse{
			ID:            l.ID,
			ShipToStoreID: l.ShipToStoreID,
			ShipmentID:    l.ShipmentID,
			ContainerID:   l.ContainerID,
			VendorCode:    l.VendorCode,
			SKU:           l.SKU,
			Quantity:      l.Quantity,
			UnitCost:      l.UnitCost,
			LotNumber:     l.LotNumber,
		})
	}
	return out
}

// StageResponse 暂存结果
type StageResponse struct {
	SessionID string `json:"session_id" example:"asn-20260301-01"`
	Lines     int    `json:"lines" example:"12"` // 本次导入的行数
}

// PromoteRequest ASN转采购单,字段均可选
type PromoteRequest struct {
	PONumber     string     `json:"po_number" binding:"max=64" example:"ASN-asn-20260301-01"`
	SupplierID   string     `json:"supplier_id" binding:"max=64" example:"V01"`
	ExpectedDate *time.Time `json:"expected_date"`
}

// PromoteResponse 转换结果
type PromoteResponse struct {
	PurchaseOrder *PurchaseOrderResponse `json:"purchase_order"`
	Repaired      bool                   `json:"repaired"` // 采购单此前已生成,本次只清理了暂存
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/stockcore/internal/domain/ledger"
	"github.com/xiebiao/stockcore/internal/domain/snapshot"
)

// PageRequest 分页参数
type PageRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
}

// Normalize 填充默认值
func (p *PageRequest) Normalize() {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = 20
	}
}

// SnapshotResponse 门店SKU的库存快照
type SnapshotResponse struct {
	StoreID         uint       `json:"store_id" example:"1"`
	SKU             string     `json:"sku" example:"ABC-001"`
	OnHand          int64      `json:"on_hand" example:"10"`
	Reserved        int64      `json:"reserved" example:"4"`
	Available       int64      `json:"available" example:"6"` // 可售 = 在手 - 预占
	ReorderPoint    int64      `json:"reorder_point" example:"5"`
	ReorderQuantity int64      `json:"reorder_quantity" example:"20"`
	NeedsReorder    bool       `json:"needs_reorder" example:"false"`
	LastMovementID  uint       `json:"last_movement_id" example:"42"`
	LastCountedAt   *time.Time `json:"last_counted_at,omitempty"`
	LastSoldAt      *time.Time `json:"last_sold_at,omitempty"`
	LastReceivedAt  *time.Time `json:"last_received_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewSnapshotResponse 领域对象转响应
func NewSnapshotResponse(s *snapshot.Snapshot) *SnapshotResponse {
	if s == nil {
		return nil
	}
	return &SnapshotResponse{
		StoreID:         s.StoreID,
		SKU:             s.SKU,
		OnHand:          s.OnHand,
		Reserved:        s.Reserved,
		Available:       s.Available(),
		ReorderPoint:    s.ReorderPoint,
		ReorderQuantity: s.ReorderQuantity,
		NeedsReorder:    s.NeedsReorder(),
		LastMovementID:  s.LastMovementID,
		LastCountedAt:   s.LastCountedAt,
		LastSoldAt:      s.LastSoldAt,
		LastReceivedAt:  s.LastReceivedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// NewSnapshotList 批量转换
func NewSnapshotList(list []*snapshot.Snapshot) []*SnapshotResponse {
	out := make([]*SnapshotResponse, 0, len(list))
	for _, s := range list {
		out = append(out, NewSnapshotResponse(s))
	}
	return out
}

// MovementResponse 库存流水
type MovementResponse struct {
	ID            uint            `json:"id" example:"42"`
	StoreID       uint            `json:"store_id" example:"1"`
	SKU           string          `json:"sku" example:"ABC-001"`
	Type          string          `json:"type" example:"sale"`
	QuantityDelta int64           `json:"quantity_delta" example:"-4"`
	UnitCost      decimal.Decimal `json:"unit_cost" swaggertype:"string" example:"2.50"`
	UnitPrice     decimal.Decimal `json:"unit_price" swaggertype:"string" example:"4.99"`
	ReferenceType string          `json:"reference_type,omitempty" example:"reservation"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	BatchID       *uint           `json:"batch_id,omitempty"`
	Note          string          `json:"note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewMovementResponse 领域对象转响应
func NewMovementResponse(m *ledger.Movement) *MovementResponse {
	if m == nil {
		return nil
	}
	return &MovementResponse{
		ID:            m.ID,
		StoreID:       m.StoreID,
		SKU:           m.SKU,
		Type:          string(m.Type),
		QuantityDelta: m.QuantityDelta,
		UnitCost:      m.UnitCost,
		UnitPrice:     m.UnitPrice,
		ReferenceType: m.Reference.Type,
		ReferenceID:   m.Reference.ID,
		BatchID:       m.BatchID,
		Note:          m.Note,
		CreatedAt:     m.CreatedAt,
	}
}

// NewMovementList 批量转换
func NewMovementList(list []*ledger.Movement) []*MovementResponse {
	out := make([]*MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, NewMovementResponse(m))
	}
	return out
}

// AppendMovementRequest 记一笔库存流水(损耗、退货、调整等)
// quantity_delta 有符号,出库为负;方向必须与类型一致
type AppendMovementRequest struct {
	StoreID       uint            `json:"store_id" binding:"required" example:"1"`
	SKU           string          `json:"sku" binding:"required,max=64" example:"ABC-001"`
	Type          string          `json:"type" binding:"required" example:"damage"`
	QuantityDelta int64           `json:"quantity_delta" binding:"required" example:"-2"`
	UnitCost      decimal.Decimal `json:"unit_cost" swaggertype:"string" example:"2.50"`
	UnitPrice     decimal.Decimal `json:"unit_price" swaggertype:"string" example:"0"`
	ReferenceType string          `json:"reference_type" binding:"max=32" example:"incident"`
	ReferenceID   string          `json:"reference_id" binding:"max=64" example:"INC-7"`
	BatchID       *uint           `json:"batch_id"`
	Note          string          `json:"note" binding:"max=255" example:"货架倒塌"`
}

// TransferRequest 门店间调拨
type TransferRequest struct {
	FromStoreID uint            `json:"from_store_id" binding:"required" example:"1"`
	ToStoreID   uint            `json:"to_store_id" binding:"required,nefield=FromStoreID" example:"2"`
	SKU         string          `json:"sku" binding:"required,max=64" example:"ABC-001"`
	Quantity    int64           `json:"quantity" binding:"required,min=1" example:"5"`
	UnitCost    decimal.Decimal `json:"unit_cost" swaggertype:"string" example:"2.50"`
	TransferID  string          `json:"transfer_id" binding:"max=64"`
	Note        string          `json:"note" binding:"max=255"`
}

// TransferResponse 调拨结果,一出一入两条流水
type TransferResponse struct {
	TransferID string            `json:"transfer_id"`
	Out        *MovementResponse `json:"out"`
	In         *MovementResponse `json:"in"`
}

// CountRequest 盘点
type CountRequest struct {
	Counted *int64 `json:"counted" binding:"required,min=0" example:"7"`
	Note    string `json:"note" binding:"max=255" example:"月度盘点"`
}

// CountResponse 盘点结果,账实一致时movement为空
type CountResponse struct {
	Snapshot *SnapshotResponse `json:"snapshot"`
	Movement *MovementResponse `json:"movement,omitempty"`
}

// ReorderPolicyRequest 设置补货点
type ReorderPolicyRequest struct {
	ReorderPoint    *int64 `json:"reorder_point" binding:"required,min=0" example:"5"`
	ReorderQuantity int64  `json:"reorder_quantity" binding:"min=0" example:"20"`
}

// RebuildResponse 从流水重建快照的结果
type RebuildResponse struct {
	Snapshot       *SnapshotResponse `json:"snapshot"`
	OnHandBefore   int64             `json:"on_hand_before"`
	ReservedBefore int64             `json:"reserved_before"`
	Drifted        bool              `json:"drifted"`
}

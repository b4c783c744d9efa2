package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/stockcore/internal/domain/ledger"
	"github.com/xiebiao/stockcore/internal/domain/purchase"
	"github.com/xiebiao/stockcore/internal/domain/reservation"
	"github.com/xiebiao/stockcore/internal/domain/snapshot"
)

// 领域事件路由键(topic exchange)
const (
	RoutingMovementAppended       = "stock.movement.appended"
	RoutingStockLow               = "stock.low"
	RoutingReservationCommitted   = "reservation.committed"
	RoutingPurchaseOrderReceived  = "purchase_order.received"
	RoutingPurchaseOrderCancelled = "purchase_order.cancelled"
	RoutingASNPromoted            = "asn.promoted"
)

// MovementAppendedEvent 新增流水
type MovementAppendedEvent struct {
	MovementID    uint            `json:"movement_id"`
	StoreID       uint            `json:"store_id"`
	SKU           string          `json:"sku"`
	Type          string          `json:"type"`
	QuantityDelta int64           `json:"quantity_delta"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	ReferenceType string          `json:"reference_type,omitempty"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	OnHand        int64           `json:"on_hand"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

func newMovementEvent(m *ledger.Movement, s *snapshot.Snapshot) MovementAppendedEvent {
	return MovementAppendedEvent{
		MovementID:    m.ID,
		StoreID:       m.StoreID,
		SKU:           m.SKU,
		Type:          string(m.Type),
		QuantityDelta: m.QuantityDelta,
		UnitCost:      m.UnitCost,
		ReferenceType: m.Reference.Type,
		ReferenceID:   m.Reference.ID,
		OnHand:        s.OnHand,
		OccurredAt:    m.CreatedAt,
	}
}

// LowStockEvent 可售量跌破补货点,供补货服务订阅
type LowStockEvent struct {
	StoreID         uint      `json:"store_id"`
	SKU             string    `json:"sku"`
	OnHand          int64     `json:"on_hand"`
	Reserved        int64     `json:"reserved"`
	Available       int64     `json:"available"`
	ReorderPoint    int64     `json:"reorder_point"`
	ReorderQuantity int64     `json:"reorder_quantity"`
	OccurredAt      time.Time `json:"occurred_at"`
}

func newLowStockEvent(s *snapshot.Snapshot) LowStockEvent {
	return LowStockEvent{
		StoreID:         s.StoreID,
		SKU:             s.SKU,
		OnHand:          s.OnHand,
		Reserved:        s.Reserved,
		Available:       s.Available(),
		ReorderPoint:    s.ReorderPoint,
		ReorderQuantity: s.ReorderQuantity,
		OccurredAt:      s.UpdatedAt,
	}
}

// ReservationCommittedEvent 预占转为销售
type ReservationCommittedEvent struct {
	ReservationID string    `json:"reservation_id"`
	StoreID       uint      `json:"store_id"`
	SKU           string    `json:"sku"`
	Quantity      int64     `json:"quantity"`
	OwnerRef      string    `json:"owner_ref"`
	MovementID    uint      `json:"movement_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func newCommittedEvent(r *reservation.Reservation) ReservationCommittedEvent {
	e := ReservationCommittedEvent{
		ReservationID: r.ID,
		StoreID:       r.StoreID,
		SKU:           r.SKU,
		Quantity:      r.Quantity,
		OwnerRef:      r.OwnerRef,
		OccurredAt:    r.UpdatedAt,
	}
	if r.MovementID != nil {
		e.MovementID = *r.MovementID
	}
	return e
}

// PurchaseOrderEvent 采购单状态变化
type PurchaseOrderEvent struct {
	PurchaseOrderID uint            `json:"purchase_order_id"`
	PONumber        string          `json:"po_number"`
	StoreID         uint            `json:"store_id"`
	Status          string          `json:"status"`
	Lines           int             `json:"lines"`
	TotalValue      decimal.Decimal `json:"total_value"`
	ASNSessionID    string          `json:"asn_session_id,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

func newPurchaseOrderEvent(o *purchase.Order) PurchaseOrderEvent {
	e := PurchaseOrderEvent{
		PurchaseOrderID: o.ID,
		PONumber:        o.PONumber,
		StoreID:         o.StoreID,
		Status:          string(o.Status),
		Lines:           len(o.Items),
		TotalValue:      o.TotalValue,
		OccurredAt:      o.UpdatedAt,
	}
	if o.ASNSessionID != nil {
		e.ASNSessionID = *o.ASNSessionID
	}
	return e
}

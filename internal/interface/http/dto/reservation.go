package dto

import (
	"time"

	"github.com/xiebiao/stockcore/internal/domain/reservation"
)

// HoldRequest 结算时预占库存
type HoldRequest struct {
	StoreID    uint   `json:"store_id" binding:"required" example:"1"`
	SKU        string `json:"sku" binding:"required,max=64" example:"ABC-001"`
	Quantity   int64  `json:"quantity" binding:"required,min=1" example:"4"`
	OwnerRef   string `json:"owner_ref" binding:"max=128" example:"cart-8f2c"`
	TTLSeconds int64  `json:"ttl_seconds" binding:"min=0" example:"900"` // 0表示默认时长
}

// TTL 转换为time.Duration
func (r *HoldRequest) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}

// ReservationResponse 预占
type ReservationResponse struct {
	ID         string     `json:"id" example:"3f0c9a6e-8f43-4c8e-9b4c-2a1d2f1b7c55"`
	StoreID    uint       `json:"store_id" example:"1"`
	SKU        string     `json:"sku" example:"ABC-001"`
	Quantity   int64      `json:"quantity" example:"4"`
	OwnerRef   string     `json:"owner_ref,omitempty" example:"cart-8f2c"`
	State      string     `json:"state" example:"held"`
	ExpiresAt  time.Time  `json:"expires_at"`
	MovementID *uint      `json:"movement_id,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewReservationResponse 领域对象转响应
func NewReservationResponse(r *reservation.Reservation) *ReservationResponse {
	if r == nil {
		return nil
	}
	return &ReservationResponse{
		ID:         r.ID,
		StoreID:    r.StoreID,
		SKU:        r.SKU,
		Quantity:   r.Quantity,
		OwnerRef:   r.OwnerRef,
		State:      string(r.State),
		ExpiresAt:  r.ExpiresAt,
		MovementID: r.MovementID,
		ClosedAt:   r.ClosedAt,
		CreatedAt:  r.CreatedAt,
	}
}

// CommitResponse 预占转销售
type CommitResponse struct {
	Reservation *ReservationResponse `json:"reservation"`
	Movement    *MovementResponse    `json:"movement"`
	Snapshot    *SnapshotResponse    `json:"snapshot"`
}

package batch

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// Batch 批次/批号记录
// 教学要点:
// 1. 收货时每个采购行生成一个批次,QuantityRemaining初始等于QuantityReceived
// 2. 批次与快照各自记录"剩余量",两者互不替代:
//    快照回答"现在能卖多少",批次回答"这批货去哪了"(召回/追溯)
// 3. 永不删除,剩余量可以降到0
type Batch struct {
	ID                  uint
	LotNumber           string
	SKU                 string
	StoreID             uint
	QuantityReceived    int64
	QuantityRemaining   int64
	UnitCost            decimal.Decimal
	CaseGTIN            string // 箱码
	UnitGTIN            string // 单品码
	PurchaseOrderID     *uint
	PurchaseOrderItemID *uint // 唯一: 一个采购行只生成一个批次
	MovementID          *uint // 生成该批次的入库流水
	ShelfLocation       string
	ExpiryDate          *time.Time
	ReceivedAt          time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Origin 创建批次所需的来源信息
type Origin struct {
	LotNumber           string
	SKU                 string
	StoreID             uint
	Quantity            int64
	UnitCost            decimal.Decimal
	CaseGTIN            string
	UnitGTIN            string
	PurchaseOrderID     *uint
	PurchaseOrderItemID *uint
	MovementID          *uint
	ShelfLocation       string
	ExpiryDate          *time.Time
	ReceivedAt          time.Time
}

// New 根据来源信息创建批次
func New(o Origin) (*Batch, error) {
	switch {
	case o.StoreID == 0 || strings.TrimSpace(o.SKU) == "":
		return nil, apperrors.WithDetail(ErrInvalidBatch, "门店和SKU不能为空")
	case o.Quantity <= 0:
		return nil, apperrors.WithDetail(ErrInvalidBatch, "SKU %s 收货数量必须大于0", o.SKU)
	case o.UnitCost.IsNegative():
		return nil, apperrors.WithDetail(ErrInvalidBatch, "SKU %s 成本不能为负数", o.SKU)
	case o.ReceivedAt.IsZero():
		return nil, apperrors.WithDetail(ErrInvalidBatch, "收货时间不能为空")
	}
	return &Batch{
		LotNumber:           o.LotNumber,
		SKU:                 o.SKU,
		StoreID:             o.StoreID,
		QuantityReceived:    o.Quantity,
		QuantityRemaining:   o.Quantity,
		UnitCost:            o.UnitCost,
		CaseGTIN:            o.CaseGTIN,
		UnitGTIN:            o.UnitGTIN,
		PurchaseOrderID:     o.PurchaseOrderID,
		PurchaseOrderItemID: o.PurchaseOrderItemID,
		MovementID:          o.MovementID,
		ShelfLocation:       o.ShelfLocation,
		ExpiryDate:          o.ExpiryDate,
		ReceivedAt:          o.ReceivedAt,
		CreatedAt:           o.ReceivedAt,
		UpdatedAt:           o.ReceivedAt,
	}, nil
}

// Consume 扣减剩余量,超出剩余量时整体失败
func (b *Batch) Consume(qty int64, now time.Time) error {
	if qty <= 0 {
		return apperrors.WithDetail(ErrInvalidBatch, "扣减数量必须大于0")
	}
	if qty > b.QuantityRemaining {
		return apperrors.WithDetail(ErrInsufficientBatchQuantity, "batch=%d 剩余%d 需要%d",
			b.ID, b.QuantityRemaining, qty)
	}
	b.QuantityRemaining -= qty
	b.UpdatedAt = now
	return nil
}

// BelongsTo 批次是否属于该门店该SKU
func (b *Batch) BelongsTo(storeID uint, sku string) bool {
	return b.StoreID == storeID && b.SKU == sku
}

// IsDepleted 已耗尽
func (b *Batch) IsDepleted() bool {
	return b.QuantityRemaining == 0
}

// IsExpired 是否过了保质期
func (b *Batch) IsExpired(now time.Time) bool {
	return b.ExpiryDate != nil && !now.Before(*b.ExpiryDate)
}

// Allocation 一次扣减落在某个批次上的数量
type Allocation struct {
	BatchID   uint   `json:"batch_id"`
	LotNumber string `json:"lot_number"`
	Quantity  int64  `json:"quantity"`
}

// AllocateFIFO 按先进先出在候选批次上分配qty
// open必须已按收货时间升序排列;总剩余不足时返回错误且不修改任何批次
func AllocateFIFO(open []*Batch, qty int64, now time.Time) ([]Allocation, error) {
	var total int64
	for _, b := range open {
		total += b.QuantityRemaining
	}
	if qty <= 0 {
		return nil, apperrors.WithDetail(ErrInvalidBatch, "扣减数量必须大于0")
	}
	if total < qty {
		return nil, apperrors.WithDetail(ErrInsufficientBatchQuantity, "所有批次剩余%d 需要%d", total, qty)
	}

	var allocs []Allocation
	left := qty
	for _, b := range open {
		if left == 0 {
			break
		}
		take := b.QuantityRemaining
		if take > left {
			take = left
		}
		if take == 0 {
			continue
		}
		_ = b.Consume(take, now)
		allocs = append(allocs, Allocation{BatchID: b.ID, LotNumber: b.LotNumber, Quantity: take})
		left -= take
	}
	return allocs, nil
}

package purchase

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// Status 采购单状态
type Status string

const (
	StatusPending   Status = "pending"   // 待收货
	StatusReceived  Status = "received"  // 已收货(终态)
	StatusCancelled Status = "cancelled" // 已取消(终态)
)

// String 实现Stringer接口(方便日志输出)
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "待收货"
	case StatusReceived:
		return "已收货"
	case StatusCancelled:
		return "已取消"
	default:
		return "未知状态"
	}
}

// Shipment 发货信息(来自ASN)
type Shipment struct {
	ShipmentID  string
	ContainerID string
	VendorCode  string
	VendorName  string
}

// Order 采购单(聚合根)
// 教学要点:
// 1. 状态只能通过收货服务从pending变为received,收货服务是其下游流水/批次/快照的唯一写入方
// 2. 由ASN暂存数据生成时记录ASNSessionID(唯一),用于重试时识别"已经生成过"
type Order struct {
	ID           uint
	PONumber     string // 采购单号(业务主键,唯一)
	SupplierID   string
	StoreID      uint // 收货门店
	Status       Status
	ExpectedDate *time.Time
	ReceivedAt   *time.Time
	TotalValue   decimal.Decimal
	ASNSessionID *string
	Shipment     Shipment
	Items        []Item
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Item 采购明细
type Item struct {
	ID            uint
	OrderID       uint
	SKU           string
	Description   string
	OrderedQty    int64
	ShippedQty    int64 // ASN上的实发数量,0表示未知
	UnitCost      decimal.Decimal
	LotNumber     string
	CaseGTIN      string
	UnitGTIN      string
	ExpiryDate    *time.Time
	ShelfLocation string
}

// ReceivedQuantity 收货数量: 有实发数量时以实发为准,否则按订货数量
func (i *Item) ReceivedQuantity() int64 {
	if i.ShippedQty > 0 {
		return i.ShippedQty
	}
	return i.OrderedQty
}

// LineValue 行金额
func (i *Item) LineValue() decimal.Decimal {
	return i.UnitCost.Mul(decimal.NewFromInt(i.ReceivedQuantity()))
}

// Validate 行校验
func (i *Item) Validate() error {
	switch {
	case strings.TrimSpace(i.SKU) == "":
		return apperrors.WithDetail(ErrInvalidItem, "SKU不能为空")
	case i.OrderedQty < 0 || i.ShippedQty < 0:
		return apperrors.WithDetail(ErrInvalidItem, "SKU %s 数量不能为负数", i.SKU)
	case i.ReceivedQuantity() <= 0:
		return apperrors.WithDetail(ErrInvalidItem, "SKU %s 收货数量必须大于0", i.SKU)
	case i.UnitCost.IsNegative():
		return apperrors.WithDetail(ErrInvalidItem, "SKU %s 成本不能为负数", i.SKU)
	}
	return nil
}

// NewOrder 创建待收货的采购单(工厂方法)
// 明细的合法性在收货时逐行校验,这里只校验单头
func NewOrder(poNumber, supplierID string, storeID uint, items []Item, expectedDate *time.Time, now time.Time) (*Order, error) {
	switch {
	case strings.TrimSpace(poNumber) == "":
		return nil, apperrors.WithDetail(ErrInvalidPurchaseOrder, "采购单号不能为空")
	case storeID == 0:
		return nil, apperrors.WithDetail(ErrInvalidPurchaseOrder, "收货门店不能为空")
	case len(items) == 0:
		return nil, apperrors.WithDetail(ErrInvalidPurchaseOrder, "采购明细不能为空")
	}
	o := &Order{
		PONumber:     poNumber,
		SupplierID:   supplierID,
		StoreID:      storeID,
		Status:       StatusPending,
		ExpectedDate: expectedDate,
		Items:        items,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	o.TotalValue = o.CalculateTotal()
	return o, nil
}

// CanTransitionTo 检查是否可以转换到目标状态
func (o *Order) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusPending:   {StatusReceived, StatusCancelled},
		StatusReceived:  {},
		StatusCancelled: {},
	}

	for _, allowed := range transitions[o.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionTo 状态转换
func (o *Order) TransitionTo(target Status, now time.Time) error {
	if !o.CanTransitionTo(target) {
		return apperrors.WithDetail(ErrInvalidStatusTransition, "%s 当前状态 %s", o.PONumber, o.Status)
	}
	o.Status = target
	o.UpdatedAt = now
	return nil
}

// MarkReceived 收货完成
func (o *Order) MarkReceived(now time.Time) error {
	if err := o.TransitionTo(StatusReceived, now); err != nil {
		return err
	}
	o.ReceivedAt = &now
	return nil
}

// Cancel 取消
func (o *Order) Cancel(now time.Time) error {
	return o.TransitionTo(StatusCancelled, now)
}

// CalculateTotal 按收货数量计算总金额
func (o *Order) CalculateTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].LineValue())
	}
	return total
}

// SKUs 明细涉及的SKU(去重)
func (o *Order) SKUs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	var out []string
	for _, it := range o.Items {
		if _, ok := seen[it.SKU]; ok {
			continue
		}
		seen[it.SKU] = struct{}{}
		out = append(out, it.SKU)
	}
	return out
}

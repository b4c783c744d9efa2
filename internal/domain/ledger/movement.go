package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// MovementType 库存变动类型
type MovementType string

const (
	TypePurchase    MovementType = "purchase"     // 采购入库
	TypeSale        MovementType = "sale"         // 销售出库
	TypeReturn      MovementType = "return"       // 顾客退货
	TypeAdjustment  MovementType = "adjustment"   // 盘点调整(正负均可)
	TypeTransferIn  MovementType = "transfer_in"  // 调拨入
	TypeTransferOut MovementType = "transfer_out" // 调拨出
	TypeDamage      MovementType = "damage"       // 破损
	TypeTheft       MovementType = "theft"        // 丢失
	TypeExpiry      MovementType = "expiry"       // 过期报废
)

// direction 每种类型的数量符号: 1=只能增加, -1=只能减少, 0=不限
var direction = map[MovementType]int{
	TypePurchase:    1,
	TypeReturn:      1,
	TypeTransferIn:  1,
	TypeSale:        -1,
	TypeTransferOut: -1,
	TypeDamage:      -1,
	TypeTheft:       -1,
	TypeExpiry:      -1,
	TypeAdjustment:  0,
}

// IsValid 是否为已知类型
func (t MovementType) IsValid() bool {
	_, ok := direction[t]
	return ok
}

// MaxSKULength SKU最大长度(与表结构一致)
const MaxSKULength = 64

// Reference 引起本次变动的业务单据
type Reference struct {
	Type string // purchase_order / reservation / transfer / count ...
	ID   string
}

// Movement 库存流水(只追加,不修改,不删除)
//
// 同一(门店, SKU)下所有流水QuantityDelta之和 == 快照OnHand
type Movement struct {
	ID            uint // 自增,即流水序号
	StoreID       uint
	SKU           string
	Type          MovementType
	QuantityDelta int64 // 有符号
	UnitCost      decimal.Decimal
	UnitPrice     decimal.Decimal
	Reference     Reference
	BatchID       *uint // 指定批次时,出库会同步扣减批次剩余量
	Note          string
	CreatedAt     time.Time
}

// Validate 结构校验
// 只校验"这条流水是否合法",不校验业务策略(比如出库后库存是否为负)
func (m *Movement) Validate() error {
	switch {
	case m.StoreID == 0:
		return apperrors.WithDetail(ErrInvalidMovement, "门店ID不能为空")
	case strings.TrimSpace(m.SKU) == "":
		return apperrors.WithDetail(ErrInvalidMovement, "SKU不能为空")
	case len(m.SKU) > MaxSKULength:
		return apperrors.WithDetail(ErrInvalidMovement, "SKU长度超过%d", MaxSKULength)
	case !m.Type.IsValid():
		return apperrors.WithDetail(ErrInvalidMovement, "未知的变动类型 %q", m.Type)
	case m.QuantityDelta == 0:
		return apperrors.WithDetail(ErrInvalidMovement, "变动数量不能为0")
	case m.UnitCost.IsNegative() || m.UnitPrice.IsNegative():
		return apperrors.WithDetail(ErrInvalidMovement, "单价不能为负数")
	}

	if dir := direction[m.Type]; dir != 0 && sign(m.QuantityDelta) != dir {
		return apperrors.WithDetail(ErrInvalidMovement, "%s 类型的数量符号错误: %d", m.Type, m.QuantityDelta)
	}
	return nil
}

// IsInbound 是否为入库
func (m *Movement) IsInbound() bool {
	return m.QuantityDelta > 0
}

func sign(n int64) int {
	if n < 0 {
		return -1
	}
	return 1
}

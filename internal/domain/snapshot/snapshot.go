package snapshot

import (
	"fmt"
	"time"

	"github.com/xiebiao/stockcore/internal/domain/ledger"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// Snapshot 门店+SKU维度的实时库存(物化视图)
// 教学要点:
// 1. OnHand只由库存流水驱动(Apply),Reserved只由预占驱动(Hold/Unhold)
// 2. Available是派生值,不落库,永远不小于0
// 3. 第一次出现流水时懒创建,之后不删除
type Snapshot struct {
	ID              uint
	StoreID         uint
	SKU             string
	OnHand          int64 // 在手数量(可能因盘亏为负)
	Reserved        int64 // 已预占数量
	ReorderPoint    int64 // 补货点
	ReorderQuantity int64 // 建议补货量
	LastMovementID  uint
	LastCountedAt   *time.Time
	LastSoldAt      *time.Time
	LastReceivedAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// New 创建空快照
func New(storeID uint, sku string, now time.Time) *Snapshot {
	return &Snapshot{
		StoreID:   storeID,
		SKU:       sku,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// LockKey 门店+SKU的串行化key
// 所有修改同一快照的操作(流水、预占、释放、提交、收货)都使用这个key
func LockKey(storeID uint, sku string) string {
	return fmt.Sprintf("stock:%d:%s", storeID, sku)
}

// Key 当前快照的串行化key
func (s *Snapshot) Key() string {
	return LockKey(s.StoreID, s.SKU)
}

// Available 可售数量 = max(0, OnHand - Reserved)
func (s *Snapshot) Available() int64 {
	if a := s.OnHand - s.Reserved; a > 0 {
		return a
	}
	return 0
}

// Apply 应用一条流水
func (s *Snapshot) Apply(m *ledger.Movement) {
	s.OnHand += m.QuantityDelta
	s.LastMovementID = m.ID

	at := m.CreatedAt
	switch m.Type {
	case ledger.TypeSale:
		s.LastSoldAt = &at
	case ledger.TypePurchase, ledger.TypeTransferIn:
		s.LastReceivedAt = &at
	}
	s.UpdatedAt = at
}

// Hold 预占qty件,可售不足时整体失败(不做部分预占)
func (s *Snapshot) Hold(qty int64, now time.Time) error {
	if qty <= 0 {
		return apperrors.WithDetail(apperrors.ErrInvalidParams, "预占数量必须大于0")
	}
	if s.Available() < qty {
		return apperrors.WithDetail(ErrInsufficientStock, "store=%d sku=%s 可售%d 需要%d",
			s.StoreID, s.SKU, s.Available(), qty)
	}
	s.Reserved += qty
	s.UpdatedAt = now
	return nil
}

// Unhold 归还预占
func (s *Snapshot) Unhold(qty int64, now time.Time) {
	s.Reserved -= qty
	if s.Reserved < 0 {
		s.Reserved = 0
	}
	s.UpdatedAt = now
}

// MarkCounted 记录盘点时间
func (s *Snapshot) MarkCounted(now time.Time) {
	s.LastCountedAt = &now
	s.UpdatedAt = now
}

// SetReorderPolicy 设置补货策略
func (s *Snapshot) SetReorderPolicy(point, quantity int64, now time.Time) error {
	if point < 0 || quantity < 0 {
		return apperrors.WithDetail(apperrors.ErrInvalidParams, "补货点和补货量不能为负数")
	}
	s.ReorderPoint = point
	s.ReorderQuantity = quantity
	s.UpdatedAt = now
	return nil
}

// NeedsReorder 可售量降到补货点(含)以下
func (s *Snapshot) NeedsReorder() bool {
	return s.ReorderPoint > 0 && s.Available() <= s.ReorderPoint
}

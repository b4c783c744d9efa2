package purchase

import (
	"fmt"

	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// 采购领域错误定义
var (
	// ErrPurchaseOrderNotFound 采购单不存在
	ErrPurchaseOrderNotFound = apperrors.New(apperrors.ErrCodePurchaseOrderNotFound, "采购单不存在")

	// ErrInvalidStatusTransition 非法的状态转换
	ErrInvalidStatusTransition = apperrors.New(apperrors.ErrCodeInvalidStatus, "采购单状态不允许此操作")

	// ErrInvalidPurchaseOrder 单头不合法
	ErrInvalidPurchaseOrder = apperrors.New(apperrors.ErrCodeInvalidPurchaseOrder, "采购单不合法")

	// ErrInvalidItem 明细行不合法
	ErrInvalidItem = apperrors.New(apperrors.ErrCodeInvalidPurchaseOrder, "采购明细不合法")

	// ErrDuplicatePONumber 采购单号重复
	ErrDuplicatePONumber = apperrors.New(apperrors.ErrCodeDuplicateEntry, "采购单号已存在")

	// ErrReceivingFailed 收货失败,整单回滚
	ErrReceivingFailed = apperrors.New(apperrors.ErrCodeReceivingFailed, "收货失败")
)

// ReceivingError 收货失败的明细定位
// errors.Is(err, ErrReceivingFailed) 和 errors.Is(err, 原因) 都成立
type ReceivingError struct {
	PurchaseOrderID uint
	Line            int // 从1开始
	SKU             string
	Err             error
}

func (e *ReceivingError) Error() string {
	return fmt.Sprintf("采购单%d 第%d行(SKU=%s)收货失败: %v", e.PurchaseOrderID, e.Line, e.SKU, e.Err)
}

// Unwrap 第一个元素带上失败行信息,供HTTP层提取错误码和提示
func (e *ReceivingError) Unwrap() []error {
	return []error{
		apperrors.WithDetail(ErrReceivingFailed, "第%d行 SKU=%s", e.Line, e.SKU),
		e.Err,
	}
}

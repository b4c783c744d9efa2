package errors

import (
	"errors"
	"fmt"
)

// AppError 自定义应用错误
// 设计说明：
// 1. Code用于客户端判断错误类型（不要直接暴露HTTP状态码）
// 2. Message是用户友好的提示信息
// 3. Err是内部错误，仅记录到日志，不返回给客户端
type AppError struct {
	Code    int    `json:"code"`    // 业务错误码
	Message string `json:"message"` // 用户友好的错误提示
	Err     error  `json:"-"`       // 内部错误（不序列化）
}

func (e *AppError) Error() string {
	// WithDetail生成的错误内部包着同码的预定义错误,不重复输出
	var inner *AppError
	if e.Err != nil && !(errors.As(e.Err, &inner) && inner.Code == e.Code) {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装系统错误（如数据库错误、网络错误）
// 用途：将底层错误转换为业务错误，隐藏实现细节
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// WithDetail 在预定义错误上附加上下文（如失败的SKU、字段名）
// 返回的错误保留原错误码,并且 errors.Is(err, base) 仍然成立
//
// 使用示例:
//
//	return apperrors.WithDetail(ErrInsufficientStock, "store=%d sku=%s 可用%d", storeID, sku, available)
func WithDetail(base *AppError, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    base.Code,
		Message: base.Message + ": " + fmt.Sprintf(format, args...),
		Err:     base,
	}
}

// =========================================
// 错误码定义
// =========================================
// 规范：
// - 4xxxx: 客户端错误（参数错误、业务规则校验失败）
// - 5xxxx: 服务端错误（数据库异常、外部服务调用失败）

const (
	// 系统级错误码（50000-50099）
	ErrCodeInternal       = 50000 // 内部错误
	ErrCodeDatabaseError  = 50001 // 数据库错误
	ErrCodeRedisError     = 50002 // Redis错误
	ErrCodeMessagingError = 50003 // 消息队列错误

	// 资源错误（40400-40499）
	ErrCodeNotFound              = 40400 // 资源不存在(通用)
	ErrCodeSnapshotNotFound      = 40401 // 库存快照不存在
	ErrCodeReservationNotFound   = 40402 // 预占记录不存在
	ErrCodeBatchNotFound         = 40403 // 批次不存在
	ErrCodePurchaseOrderNotFound = 40404 // 采购单不存在
	ErrCodeMovementNotFound      = 40405 // 库存流水不存在

	// 业务规则错误（40000-40099）
	ErrCodeBusinessError             = 40000 // 业务错误(通用)
	ErrCodeInsufficientStock         = 40001 // 可用库存不足
	ErrCodeInvalidStatus             = 40002 // 状态不允许此操作
	ErrCodeInsufficientBatchQuantity = 40003 // 批次剩余数量不足
	ErrCodeAlreadyReleased           = 40004 // 预占已释放
	ErrCodeReservationClosed         = 40005 // 预占已结束（已提交/已释放）
	ErrCodeReservationExpired        = 40006 // 预占已过期
	ErrCodeReceivingFailed           = 40007 // 收货失败（整单回滚）
	ErrCodeStagingInconsistent       = 40008 // ASN暂存数据不一致
	ErrCodeDuplicateEntry            = 40009 // 重复记录(通用)
	ErrCodeEmptyStaging              = 40010 // ASN暂存会话为空
	ErrCodeBatchExists               = 40011 // 采购行已生成批次
	ErrCodeBatchMismatch             = 40012 // 批次与门店/SKU不匹配

	// 并发控制（40800-40899）
	ErrCodeLockTimeout = 40800 // 等待锁超时

	// 参数错误（40900-40999）
	ErrCodeInvalidParams        = 40900 // 参数错误
	ErrCodeBindError            = 40901 // 参数绑定失败
	ErrCodeInvalidMovement      = 40902 // 库存流水结构不合法
	ErrCodeInvalidReservation   = 40903 // 预占参数不合法
	ErrCodeInvalidBatch         = 40904 // 批次参数不合法
	ErrCodeInvalidPurchaseOrder = 40905 // 采购单不合法
	ErrCodeInvalidStagedLine    = 40906 // ASN暂存行不合法
)

// =========================================
// 预定义错误（避免每次都New）
// =========================================

var (
	// 系统错误
	ErrInternal       = New(ErrCodeInternal, "系统内部错误")
	ErrDatabaseError  = New(ErrCodeDatabaseError, "数据库错误")
	ErrRedisError     = New(ErrCodeRedisError, "缓存服务错误")
	ErrMessagingError = New(ErrCodeMessagingError, "消息服务错误")

	// 并发控制
	ErrLockTimeout = New(ErrCodeLockTimeout, "系统繁忙,请稍后重试")

	// 通用
	ErrNotFound       = New(ErrCodeNotFound, "资源不存在")
	ErrDuplicateEntry = New(ErrCodeDuplicateEntry, "记录已存在")

	// 参数错误
	ErrInvalidParams = New(ErrCodeInvalidParams, "参数错误")
	ErrBindError     = New(ErrCodeBindError, "参数格式错误")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "系统内部错误")
}

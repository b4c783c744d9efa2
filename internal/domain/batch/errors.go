package batch

import (
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

var (
	ErrBatchNotFound = apperrors.New(apperrors.ErrCodeBatchNotFound, "批次不存在")

	ErrInvalidBatch = apperrors.New(apperrors.ErrCodeInvalidBatch, "批次参数不合法")

	// ErrInsufficientBatchQuantity 批次剩余量不足(不做部分扣减)
	ErrInsufficientBatchQuantity = apperrors.New(apperrors.ErrCodeInsufficientBatchQuantity, "批次剩余数量不足")

	// ErrBatchExists 该采购行已经生成过批次
	ErrBatchExists = apperrors.New(apperrors.ErrCodeBatchExists, "该采购行已生成批次")

	// ErrBatchMismatch 指定的批次不属于该门店/SKU
	ErrBatchMismatch = apperrors.New(apperrors.ErrCodeBatchMismatch, "批次与门店/SKU不匹配")
)

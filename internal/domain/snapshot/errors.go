package snapshot

import (
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

var (
	// ErrSnapshotNotFound 该门店该SKU还没有任何流水
	ErrSnapshotNotFound = apperrors.New(apperrors.ErrCodeSnapshotNotFound, "库存记录不存在")

	// ErrInsufficientStock 可售库存不足
	ErrInsufficientStock = apperrors.New(apperrors.ErrCodeInsufficientStock, "可用库存不足")
)

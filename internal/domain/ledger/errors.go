package ledger

import (
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// 库存流水领域错误定义
var (
	// ErrInvalidMovement 流水结构不合法(类型未知、数量为0、符号错误等)
	ErrInvalidMovement = apperrors.New(apperrors.ErrCodeInvalidMovement, "库存流水不合法")

	// ErrMovementNotFound 流水不存在
	ErrMovementNotFound = apperrors.New(apperrors.ErrCodeMovementNotFound, "库存流水不存在")
)

package reservation

import (
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// 预占领域错误定义
var (
	// ErrReservationNotFound 预占不存在
	ErrReservationNotFound = apperrors.New(apperrors.ErrCodeReservationNotFound, "预占记录不存在")

	// ErrInvalidReservation 预占参数不合法
	ErrInvalidReservation = apperrors.New(apperrors.ErrCodeInvalidReservation, "预占参数不合法")

	// ErrAlreadyReleased 重复释放(幂等,无副作用)
	ErrAlreadyReleased = apperrors.New(apperrors.ErrCodeAlreadyReleased, "预占已释放")

	// ErrReservationClosed 预占已进入终态,不允许再流转
	ErrReservationClosed = apperrors.New(apperrors.ErrCodeReservationClosed, "预占已结束")

	// ErrReservationExpired 预占已过期,不能提交
	ErrReservationExpired = apperrors.New(apperrors.ErrCodeReservationExpired, "预占已过期")
)

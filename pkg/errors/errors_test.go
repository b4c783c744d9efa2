package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithDetail(t *testing.T) {
	base := New(ErrCodeInsufficientStock, "可用库存不足")

	err := WithDetail(base, "store=%d sku=%s", 1, "ABC")

	assert.Equal(t, ErrCodeInsufficientStock, err.Code)
	assert.Equal(t, "可用库存不足: store=1 sku=ABC", err.Message)
	assert.True(t, errors.Is(err, base), "WithDetail后仍应匹配原错误")
	assert.Equal(t, "[40001] 可用库存不足: store=1 sku=ABC", err.Error())
}

func TestGetAppError(t *testing.T) {
	t.Run("包装链中的AppError", func(t *testing.T) {
		err := fmt.Errorf("外层: %w", ErrInvalidParams)
		assert.Equal(t, ErrCodeInvalidParams, GetAppError(err).Code)
	})

	t.Run("普通错误转为内部错误", func(t *testing.T) {
		appErr := GetAppError(errors.New("boom"))
		assert.Equal(t, ErrCodeInternal, appErr.Code)
		assert.Contains(t, appErr.Error(), "boom")
	})
}

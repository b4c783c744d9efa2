package asn

import (
	"fmt"

	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

var (
	// ErrEmptySession 会话下没有暂存行(可能从未导入,或已被提升)
	ErrEmptySession = apperrors.New(apperrors.ErrCodeEmptyStaging, "ASN暂存会话为空")

	// ErrInvalidStagedLine 暂存行不合法
	ErrInvalidStagedLine = apperrors.New(apperrors.ErrCodeInvalidStagedLine, "ASN暂存行不合法")

	// ErrStagingInconsistent 会话内单头字段不一致(数据质量问题,需人工处理)
	ErrStagingInconsistent = apperrors.New(apperrors.ErrCodeStagingInconsistent, "ASN暂存数据不一致")

	// ErrSessionPromoted 会话已经提升为采购单,不能再追加暂存行
	ErrSessionPromoted = apperrors.New(apperrors.ErrCodeStagingInconsistent, "ASN会话已生成采购单")
)

// StagingError 指出不一致的字段
type StagingError struct {
	SessionID string
	Field     string
	Values    []string
}

func (e *StagingError) Error() string {
	return fmt.Sprintf("ASN会话%s 字段%s不一致: %q", e.SessionID, e.Field, e.Values)
}

func (e *StagingError) Unwrap() error {
	return apperrors.WithDetail(ErrStagingInconsistent, "字段 %s 存在不同取值 %q", e.Field, e.Values)
}

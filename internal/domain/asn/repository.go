package asn

import (
	"context"
)

// Repository ASN暂存仓储
type Repository interface {
	// CreateLines 批量写入暂存行
	CreateLines(ctx context.Context, lines []*StagedLine) error

	// ListBySession 按ID升序返回会话内全部暂存行
	ListBySession(ctx context.Context, sessionID string) ([]*StagedLine, error)

	// DeleteBySession 删除会话内全部暂存行,返回删除行数
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
}

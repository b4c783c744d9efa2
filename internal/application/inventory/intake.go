package inventory

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/stockcore/internal/domain/asn"
	"github.com/xiebiao/stockcore/internal/domain/purchase"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
	"github.com/xiebiao/stockcore/pkg/saga"
)

const defaultIntakeTimeout = 2 * time.Minute

// Intake ASN一键入库: 暂存 → 生成采购单 → 收货
//
// 三步各自是独立事务。生成采购单失败时丢弃本次暂存行,便于修正文件后用同一会话重新导入;
// 收货失败时保留待收货的采购单,可单独重试收货
type Intake struct {
	promoter *ASNPromoter
	receiver *Receiver
	timeout  time.Duration
	log      *zap.Logger
}

// NewIntake 创建入库流程
func NewIntake(promoter *ASNPromoter, receiver *Receiver, log *zap.Logger) *Intake {
	return &Intake{promoter: promoter, receiver: receiver, timeout: defaultIntakeTimeout, log: log}
}

// IntakeResult 入库结果,失败时Order为已生成(若有)的采购单
type IntakeResult struct {
	Staged int
	Order  *purchase.Order
}

// Run 执行入库
// 会话内已有暂存行时拒绝执行,避免补偿时误删之前导入的数据
func (in *Intake) Run(ctx context.Context, req PromoteRequest, lines []*asn.StagedLine) (*IntakeResult, error) {
	existing, err := in.promoter.Lines(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, apperrors.WithDetail(apperrors.ErrInvalidParams, "会话 %s 已有 %d 行暂存数据", req.SessionID, len(existing))
	}

	result := &IntakeResult{}
	s := saga.NewSaga("asn-intake", in.timeout, in.log)
	s.AddStep("stage",
		func(ctx context.Context) (err error) {
			result.Staged, err = in.promoter.Stage(ctx, req.SessionID, lines)
			return err
		},
		func(ctx context.Context) error {
			_, err := in.promoter.Discard(ctx, req.SessionID)
			return err
		},
	)
	s.AddStep("promote", func(ctx context.Context) error {
		res, err := in.promoter.Promote(ctx, req)
		if err != nil {
			return err
		}
		result.Order = res.Order
		return nil
	}, nil)
	s.AddStep("receive", func(ctx context.Context) error {
		o, err := in.receiver.Receive(ctx, result.Order.ID)
		if err != nil {
			return err
		}
		result.Order = o
		return nil
	}, nil)

	if err := s.Execute(ctx); err != nil {
		return result, err
	}
	return result, nil
}

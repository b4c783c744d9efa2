// Package saga 多步骤流程编排
//
// 每一步是一个独立的本地事务,附带可选的补偿操作;
// 某一步失败时按逆序补偿已完成的步骤。补偿必须幂等,失败只记日志、继续补偿其余步骤
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Step 流程中的一步
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error // 可为nil
}

// Saga 一次流程执行
type Saga struct {
	name     string
	steps    []Step
	executed []Step
	timeout  time.Duration
	log      *zap.Logger
}

// NewSaga 创建流程,timeout<=0表示不限时
func NewSaga(name string, timeout time.Duration, log *zap.Logger) *Saga {
	if log == nil {
		log = zap.NewNop()
	}
	return &Saga{name: name, timeout: timeout, log: log}
}

// AddStep 追加一步,按添加顺序执行、逆序补偿
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, Step{Name: name, Action: action, Compensate: compensate})
}

// Execute 执行全部步骤
// 失败时返回的错误包装了原始错误(errors.Is/As可用);补偿失败的错误一并join
func (s *Saga) Execute(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return s.fail(ctx, fmt.Errorf("%s超时: %w", s.name, err))
		}
		if step.Action != nil {
			if err := step.Action(ctx); err != nil {
				return s.fail(ctx, fmt.Errorf("%s步骤[%d:%s]失败: %w", s.name, i, step.Name, err))
			}
		}
		s.executed = append(s.executed, step)
	}
	return nil
}

func (s *Saga) fail(ctx context.Context, cause error) error {
	s.log.Warn("流程失败,开始补偿", zap.String("saga", s.name), zap.Int("executed", len(s.executed)), zap.Error(cause))
	// 补偿不受原ctx超时影响
	if errs := s.compensate(context.WithoutCancel(ctx)); len(errs) > 0 {
		return errors.Join(append([]error{cause}, errs...)...)
	}
	return cause
}

// compensate 逆序补偿,单步失败不中断
func (s *Saga) compensate(ctx context.Context) []error {
	var errs []error
	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			s.log.Error("补偿失败,需要人工处理", zap.String("saga", s.name), zap.String("step", step.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("补偿[%s]失败: %w", step.Name, err))
		}
	}
	s.executed = nil
	return errs
}

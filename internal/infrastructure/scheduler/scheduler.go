// Package scheduler 后台定时任务
//
// 使用robfig/cron调度;同一任务上一轮未结束时跳过本轮,任务panic被恢复并记日志
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// Job 定时任务
type Job func(ctx context.Context) error

// Scheduler 定时任务调度器
type Scheduler struct {
	cron    *cron.Cron
	log     *zap.Logger
	timeout time.Duration

	mu   sync.Mutex
	jobs map[string]Job
}

// New 创建调度器
// timeout为单次任务执行的上限,<=0表示不限制
func New(log *zap.Logger, timeout time.Duration) *Scheduler {
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		)),
		log:     log,
		timeout: timeout,
		jobs:    make(map[string]Job),
	}
}

// Add 注册任务
func (s *Scheduler) Add(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return apperrors.WithDetail(apperrors.ErrInvalidParams, "任务已注册: %s", name)
	}
	if _, err := s.cron.AddFunc(spec, func() { _ = s.run(context.Background(), name, job) }); err != nil {
		return apperrors.WithDetail(apperrors.ErrInvalidParams, "任务%s的调度表达式不合法: %v", name, err)
	}
	s.jobs[name] = job
	s.log.Info("定时任务已注册", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

// Run 立即执行一次已注册的任务
func (s *Scheduler) Run(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return apperrors.WithDetail(apperrors.ErrNotFound, "任务未注册: %s", name)
	}
	return s.run(ctx, name, job)
}

func (s *Scheduler) run(ctx context.Context, name string, job Job) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := job(ctx)
	if err != nil {
		s.log.Error("定时任务执行失败", zap.String("job", name), zap.Duration("cost", time.Since(start)), zap.Error(err))
		return err
	}
	s.log.Debug("定时任务执行完成", zap.String("job", name), zap.Duration("cost", time.Since(start)))
	return nil
}

// Start 启动调度(非阻塞)
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度,等待运行中的任务结束或ctx超时
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("等待定时任务结束超时: %w", ctx.Err())
	}
}

// cronLogger 适配cron.Logger
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, zap.Any("kv", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, zap.Error(err), zap.Any("kv", keysAndValues))
}

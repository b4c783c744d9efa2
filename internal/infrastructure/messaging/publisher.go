// Package messaging 领域事件的发布与订阅
//
// 库存写路径在事务提交后发布事件,发布失败只记日志;
// 这里把RabbitMQ发布者放在熔断器后面,Broker不可用时快速失败
package messaging

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xiebiao/stockcore/internal/infrastructure/config"
	"github.com/xiebiao/stockcore/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
	"github.com/xiebiao/stockcore/pkg/metrics"
	"github.com/xiebiao/stockcore/pkg/mq"
)

// Publisher 底层发布者,*mq.Publisher 满足该接口
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// BreakerPublisher 带熔断的事件发布者
type BreakerPublisher struct {
	inner Publisher
	cb    *circuitbreaker.CircuitBreaker
	log   *zap.Logger
}

// NewBreakerPublisher 包装发布者
func NewBreakerPublisher(inner Publisher, cfg circuitbreaker.Config, log *zap.Logger) *BreakerPublisher {
	cb := circuitbreaker.NewCircuitBreaker("mq-publisher", cfg)
	cb.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
		log.Warn("熔断器状态变化",
			zap.String("name", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})
	return &BreakerPublisher{inner: inner, cb: cb, log: log}
}

// Publish 发布事件
// 熔断打开时不调用底层发布者,返回ErrMessagingError
func (p *BreakerPublisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	err := p.cb.Execute(func() error {
		return p.inner.Publish(ctx, routingKey, message)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, circuitbreaker.ErrOpenState):
		metrics.IncCounterVec(metrics.MessagesPublishedTotal, map[string]string{
			"exchange":    "",
			"routing_key": routingKey,
			"result":      "rejected",
		})
		return apperrors.WithDetail(apperrors.ErrMessagingError, "熔断中,丢弃事件 %s", routingKey)
	default:
		return apperrors.WithDetail(apperrors.ErrMessagingError, "%v", err)
	}
}

// State 熔断器当前状态
func (p *BreakerPublisher) State() circuitbreaker.State {
	return p.cb.State()
}

// Dial 按配置连接RabbitMQ并返回带熔断的发布者
// 返回的closer在进程退出时调用
func Dial(cfg *config.Config, log *zap.Logger) (*BreakerPublisher, func() error, error) {
	pub, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType, log)
	if err != nil {
		return nil, nil, apperrors.WithDetail(apperrors.ErrMessagingError, "%v", err)
	}
	return NewBreakerPublisher(pub, circuitbreaker.DefaultConfig(), log), pub.Close, nil
}

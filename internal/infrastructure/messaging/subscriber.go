package messaging

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/xiebiao/stockcore/internal/infrastructure/config"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
	"github.com/xiebiao/stockcore/pkg/mq"
)

// DefaultRoutingKeys 事件跟踪默认订阅全部库存事件
var DefaultRoutingKeys = []string{"stock.#", "reservation.#", "purchase_order.#", "asn.#"}

// EventLogHandler 把收到的事件按路由键写入日志
// 无法解析的消息直接确认丢弃,避免毒消息反复入队
func EventLogHandler(log *zap.Logger) mq.Handler {
	return func(ctx context.Context, routingKey string, body []byte) error {
		var payload map[string]interface{}
		if err := json.Unmarshal(body, &payload); err != nil {
			log.Warn("丢弃无法解析的事件", zap.String("routing_key", routingKey), zap.Error(err))
			return nil
		}

		fields := []zap.Field{zap.String("routing_key", routingKey)}
		for _, k := range []string{"store_id", "sku", "po_number", "reservation_id", "quantity_delta", "available"} {
			if v, ok := payload[k]; ok {
				fields = append(fields, zap.Any(k, v))
			}
		}
		log.Info("收到库存事件", fields...)
		return nil
	}
}

// Tail 订阅事件并交给handler处理,阻塞直到ctx取消
func Tail(ctx context.Context, cfg *config.Config, queue string, routingKeys []string, handler mq.Handler, log *zap.Logger) error {
	if len(routingKeys) == 0 {
		routingKeys = DefaultRoutingKeys
	}
	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType, queue, routingKeys, log)
	if err != nil {
		return apperrors.WithDetail(apperrors.ErrMessagingError, "%v", err)
	}
	defer consumer.Close()

	return consumer.Consume(ctx, handler)
}

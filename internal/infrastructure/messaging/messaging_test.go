package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xiebiao/stockcore/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

var errBroker = errors.New("broker unavailable")

type fakePublisher struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (f *fakePublisher) Publish(_ context.Context, routingKey string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, routingKey)
	return f.err
}

func (f *fakePublisher) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testConfig() circuitbreaker.Config {
	return circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Hour,
		ReadyToTrip: func(c circuitbreaker.Counts) bool { return c.ConsecutiveFailures >= 2 },
	}
}

func TestBreakerPublisher(t *testing.T) {
	ctx := context.Background()
	inner := &fakePublisher{}
	p := NewBreakerPublisher(inner, testConfig(), zap.NewNop())

	t.Run("正常发布", func(t *testing.T) {
		require.NoError(t, p.Publish(ctx, "stock.low", map[string]int{"store_id": 1}))
		assert.Equal(t, 1, inner.count())
	})

	t.Run("失败转换为消息服务错误", func(t *testing.T) {
		inner.setErr(errBroker)
		err := p.Publish(ctx, "stock.low", nil)
		assert.ErrorIs(t, err, apperrors.ErrMessagingError)
		assert.Equal(t, apperrors.ErrCodeMessagingError, apperrors.GetAppError(err).Code)
	})

	t.Run("连续失败后熔断,不再调用下游", func(t *testing.T) {
		_ = p.Publish(ctx, "stock.low", nil)
		require.Equal(t, circuitbreaker.StateOpen, p.State())

		before := inner.count()
		inner.setErr(nil)
		err := p.Publish(ctx, "asn.promoted", nil)
		assert.ErrorIs(t, err, apperrors.ErrMessagingError)
		assert.Equal(t, before, inner.count(), "熔断期间不应调用底层发布者")
	})
}

func TestEventLogHandler(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := EventLogHandler(zap.New(core))
	ctx := context.Background()

	t.Run("记录关键字段", func(t *testing.T) {
		err := h(ctx, "stock.low", []byte(`{"store_id":3,"sku":"ABC","available":2,"reorder_point":5}`))
		require.NoError(t, err)

		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "stock.low", fields["routing_key"])
		assert.Equal(t, "ABC", fields["sku"])
		assert.NotContains(t, fields, "reorder_point")
	})

	t.Run("无法解析的消息被确认丢弃", func(t *testing.T) {
		err := h(ctx, "stock.low", []byte("not-json"))
		assert.NoError(t, err)

		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, zap.WarnLevel, entries[0].Level)
	})
}

package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetrics(t *testing.T) {
	require.NotPanics(t, func() {
		InitMetrics()
		InitMetrics()
	}, "重复初始化不应重复注册")

	for name, c := range map[string]prometheus.Collector{
		"http_requests_total":            HTTPRequestsTotal,
		"stock_movements_appended_total": MovementsAppendedTotal,
		"stock_reservations_total":       ReservationsTotal,
		"stock_lock_wait":                LockWaitDuration,
		"stock_reconciliation_drift":     ReconciliationDriftSKUs,
		"circuit_breaker_state":          CircuitBreakerState,
		"messages_published_total":       MessagesPublishedTotal,
	} {
		assert.NotNil(t, c, "%s 未初始化", name)
	}
}

func TestCounterHelpers(t *testing.T) {
	InitMetrics()

	t.Run("Counter", func(t *testing.T) {
		before := value(t, LowStockEventsTotal)
		IncCounter(LowStockEventsTotal)
		IncCounter(LowStockEventsTotal)
		assert.Equal(t, before+2, value(t, LowStockEventsTotal))
	})

	t.Run("CounterVec按标签区分", func(t *testing.T) {
		sale := map[string]string{"type": "sale"}
		purchase := map[string]string{"type": "purchase"}
		beforeSale := value(t, MovementsAppendedTotal.With(sale))
		beforePurchase := value(t, MovementsAppendedTotal.With(purchase))

		IncCounterVec(MovementsAppendedTotal, sale)
		IncCounterVec(MovementsAppendedTotal, sale)
		IncCounterVec(MovementsAppendedTotal, purchase)

		assert.Equal(t, beforeSale+2, value(t, MovementsAppendedTotal.With(sale)))
		assert.Equal(t, beforePurchase+1, value(t, MovementsAppendedTotal.With(purchase)))
	})

	t.Run("AddCounterVec批量累加", func(t *testing.T) {
		expired := map[string]string{"result": "expired"}
		before := value(t, ReservationsTotal.With(expired))
		AddCounterVec(ReservationsTotal, expired, 5)
		assert.Equal(t, before+5, value(t, ReservationsTotal.With(expired)))
	})
}

func TestGaugeHelpers(t *testing.T) {
	InitMetrics()

	SetGauge(HTTPRequestsInProgress, 0)
	IncGauge(HTTPRequestsInProgress)
	IncGauge(HTTPRequestsInProgress)
	DecGauge(HTTPRequestsInProgress)
	assert.Equal(t, float64(1), value(t, HTTPRequestsInProgress))

	SetGauge(ReconciliationDriftSKUs, 3)
	assert.Equal(t, float64(3), value(t, ReconciliationDriftSKUs))

	SetGaugeVec(CircuitBreakerState, map[string]string{"name": "mq-publisher"}, 1)
	assert.Equal(t, float64(1), value(t, CircuitBreakerState.With(prometheus.Labels{"name": "mq-publisher"})))
}

func TestHistogramHelpers(t *testing.T) {
	InitMetrics()

	before := histogram(t, ReceivingDuration)
	ObserveHistogram(ReceivingDuration, 0.2)
	ObserveHistogram(ReceivingDuration, 0.3)
	after := histogram(t, ReceivingDuration)
	assert.Equal(t, before.GetSampleCount()+2, after.GetSampleCount())
	assert.InDelta(t, before.GetSampleSum()+0.5, after.GetSampleSum(), 1e-9)

	labels := map[string]string{"method": "POST", "path": "/api/v1/reservations"}
	ObserveHistogramVec(HTTPRequestDuration, labels, 0.05)
	obs, err := HTTPRequestDuration.GetMetricWith(labels)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, histogram(t, obs.(prometheus.Histogram)).GetSampleCount(), uint64(1))
}

func TestExposition(t *testing.T) {
	InitMetrics()
	IncCounterVec(ASNPromotionsTotal, map[string]string{"result": "created"})

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "asn_promotions_total")
}

func histogram(t *testing.T, h prometheus.Histogram) *dto.Histogram {
	t.Helper()
	var m dto.Metric
	require.NoError(t, h.Write(&m))
	return m.GetHistogram()
}

// value 读取Counter/Gauge的当前值
func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

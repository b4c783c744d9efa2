// Package metrics 提供基于Prometheus的指标收集
//
// # 核心概念
//
// **1. Counter（计数器）**：只增不减的累计值
//   - 示例：库存流水条数、预占次数、收货失败次数
//
// **2. Gauge（仪表盘）**：可增可减的瞬时值
//   - 示例：正在处理的请求数、对账差异SKU数
//
// **3. Histogram（直方图）**：观测值的分布
//   - 示例：HTTP请求耗时、收货耗时、等锁耗时
//
// # 使用示例
//
//	// 1. 初始化Metrics(可重复调用)
//	metrics.InitMetrics()
//
//	// 2. 暴露/metrics端点
//	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
//	// 3. 在业务代码中记录指标
//	metrics.IncCounterVec(metrics.MovementsAppendedTotal, map[string]string{"type": "sale"})
//	metrics.ObserveHistogram(metrics.ReceivingDuration, time.Since(start).Seconds())
//
// # 命名规范
//
// 1. Counter以`_total`结尾
// 2. Histogram以单位结尾（`_seconds`）
// 3. 避免高基数标签: 不要用sku、store_id作为标签
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// initOnce 防止重复注册(测试、CLI子命令都可能多次调用)
	initOnce sync.Once

	// HTTP请求相关指标

	// HTTPRequestsTotal HTTP请求总数（Counter）
	// 标签：method、path（路由模板）、status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时（Histogram）
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的HTTP请求数（Gauge）
	HTTPRequestsInProgress prometheus.Gauge

	// 库存业务指标

	// MovementsAppendedTotal 写入的库存流水条数
	// 标签：type（purchase/sale/adjustment...）
	MovementsAppendedTotal *prometheus.CounterVec

	// ReservationsTotal 预占结果
	// 标签：result（held/committed/released/expired/rejected）
	ReservationsTotal *prometheus.CounterVec

	// PurchaseOrdersReceivedTotal 采购单收货结果
	// 标签：result（success/failure/noop）
	PurchaseOrdersReceivedTotal *prometheus.CounterVec

	// ReceivingDuration 整单收货耗时
	ReceivingDuration prometheus.Histogram

	// ASNPromotionsTotal ASN提升结果
	// 标签：result（created/repaired/failure）
	ASNPromotionsTotal *prometheus.CounterVec

	// LowStockEventsTotal 触发的低库存事件数
	LowStockEventsTotal prometheus.Counter

	// LockWaitDuration 等待key锁的耗时
	LockWaitDuration prometheus.Histogram

	// LockTimeoutsTotal 等锁超时次数
	LockTimeoutsTotal prometheus.Counter

	// ReconciliationDriftSKUs 最近一次对账中快照与流水不一致的SKU数
	ReconciliationDriftSKUs prometheus.Gauge

	// 熔断器指标

	// CircuitBreakerState 熔断器状态（Gauge）
	// 0=CLOSED, 1=OPEN, 2=HALF_OPEN
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests 熔断器请求总数（Counter）
	// 标签：name、result（success/failure/rejected）
	CircuitBreakerRequests *prometheus.CounterVec

	// 消息队列指标

	// MessagesPublishedTotal 消息发布总数
	// 标签：exchange、routing_key、result（success/failure）
	MessagesPublishedTotal *prometheus.CounterVec

	// MessagesConsumedTotal 消息消费总数
	// 标签：queue、result（success/failure）
	MessagesConsumedTotal *prometheus.CounterVec

	// MessageProcessingDuration 消息处理耗时
	MessageProcessingDuration prometheus.Histogram
)

// InitMetrics 初始化所有Prometheus指标
//
// 设计要点：
// 1. 使用promauto.New*自动注册到默认Registry
// 2. Counter使用*Vec支持标签（多维度统计）
// 3. Histogram的Buckets根据业务场景定制
func InitMetrics() {
	initOnce.Do(register)
}

func register() {
	// HTTP请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "HTTP请求耗时（秒）",
			// 桶设置：1ms、10ms、100ms、500ms、1s、5s、10s
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_progress",
			Help: "正在处理的HTTP请求数",
		},
	)

	// 库存业务指标
	MovementsAppendedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_movements_appended_total",
			Help: "写入的库存流水条数",
		},
		[]string{"type"},
	)

	ReservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_reservations_total",
			Help: "预占操作结果",
		},
		[]string{"result"},
	)

	PurchaseOrdersReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchase_orders_received_total",
			Help: "采购单收货结果",
		},
		[]string{"result"},
	)

	ReceivingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "purchase_order_receiving_duration_seconds",
			Help: "整单收货耗时（秒）",
			// 收货涉及多行流水+批次,比普通请求慢
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)

	ASNPromotionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asn_promotions_total",
			Help: "ASN暂存提升结果",
		},
		[]string{"result"},
	)

	LowStockEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_low_events_total",
			Help: "低库存事件数",
		},
	)

	LockWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stock_lock_wait_duration_seconds",
			Help:    "等待key锁耗时（秒）",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 3},
		},
	)

	LockTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_lock_timeouts_total",
			Help: "等锁超时次数",
		},
	)

	ReconciliationDriftSKUs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stock_reconciliation_drift_skus",
			Help: "快照与流水合计不一致的SKU数",
		},
	)

	// 熔断器指标
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "熔断器请求总数",
		},
		[]string{"name", "result"},
	)

	// 消息队列指标
	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_published_total",
			Help: "消息发布总数",
		},
		[]string{"exchange", "routing_key", "result"},
	)

	MessagesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_consumed_total",
			Help: "消息消费总数",
		},
		[]string{"queue", "result"},
	)

	MessageProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "message_processing_duration_seconds",
			Help:    "消息处理耗时（秒）",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
		},
	)
}

// IncCounter 递增Counter（便捷函数）
func IncCounter(counter prometheus.Counter) {
	counter.Inc()
}

// IncCounterVec 递增CounterVec（带标签）
func IncCounterVec(counter *prometheus.CounterVec, labels map[string]string) {
	counter.With(labels).Inc()
}

// AddCounterVec 批量累加（如一次扫描过期了多个预占）
func AddCounterVec(counter *prometheus.CounterVec, labels map[string]string, value float64) {
	counter.With(labels).Add(value)
}

// IncGauge 递增Gauge
func IncGauge(gauge prometheus.Gauge) {
	gauge.Inc()
}

// DecGauge 递减Gauge
func DecGauge(gauge prometheus.Gauge) {
	gauge.Dec()
}

// SetGauge 设置Gauge值
func SetGauge(gauge prometheus.Gauge, value float64) {
	gauge.Set(value)
}

// SetGaugeVec 设置GaugeVec值（带标签）
func SetGaugeVec(gauge *prometheus.GaugeVec, labels map[string]string, value float64) {
	gauge.With(labels).Set(value)
}

// ObserveHistogram 记录Histogram观测值
func ObserveHistogram(histogram prometheus.Histogram, value float64) {
	histogram.Observe(value)
}

// ObserveHistogramVec 记录HistogramVec观测值（带标签）
func ObserveHistogramVec(histogram *prometheus.HistogramVec, labels map[string]string, value float64) {
	histogram.With(labels).Observe(value)
}

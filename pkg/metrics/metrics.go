// Package metrics 提供定价服务的 Prometheus 指标
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wyfcoding/optionpricing/pkg/logger"
)

const namespace = "optionpricing"

// Metrics 指标集合
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求计数 (method, path, status)
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时 (method, path)
	HTTPRequestDuration *prometheus.HistogramVec

	// 定价计算计数 (operation, status)
	CalculationsTotal *prometheus.CounterVec
	// 定价计算耗时 (operation)
	CalculationDuration *prometheus.HistogramVec
	// 隐含波动率在搜索区间内无解的次数
	ImpliedVolNotFound prometheus.Counter
	// 二叉树风险中性概率越界次数
	NumericInstability prometheus.Counter
	// 事件发布计数 (event_type, status)
	EventsPublished *prometheus.CounterVec
}

// New 创建指标实例，使用独立 registry 以便测试中多次创建
func New(serviceName string) *Metrics {
	constLabels := prometheus.Labels{"service": serviceName}
	return &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "http_requests_total",
			Help:        "Total HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "path"}),
		CalculationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "calculations_total",
			Help:        "Total pricing calculations by operation and outcome",
			ConstLabels: constLabels,
		}, []string{"operation", "status"}),
		CalculationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "calculation_duration_seconds",
			Help:        "Pricing calculation duration in seconds",
			Buckets:     prometheus.ExponentialBuckets(1e-6, 4, 14),
			ConstLabels: constLabels,
		}, []string{"operation"}),
		ImpliedVolNotFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "implied_volatility_not_found_total",
			Help:        "Implied volatility searches with no root in the search interval",
			ConstLabels: constLabels,
		}),
		NumericInstability: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "binomial_numeric_instability_total",
			Help:        "Binomial pricings rejected because the risk-neutral probability left (0,1)",
			ConstLabels: constLabels,
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "events_published_total",
			Help:        "Pricing events published to the message queue",
			ConstLabels: constLabels,
		}, []string{"event_type", "status"}),
	}
}

// Register 注册所有指标以及 Go 运行时与进程指标
func (m *Metrics) Register() error {
	cs := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CalculationsTotal,
		m.CalculationDuration,
		m.ImpliedVolNotFound,
		m.NumericInstability,
		m.EventsPublished,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range cs {
		if err := m.registry.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}
	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// Handler Prometheus 抓取端点
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCalculation 记录一次定价计算
func (m *Metrics) RecordCalculation(operation, status string, duration time.Duration) {
	m.CalculationsTotal.WithLabelValues(operation, status).Inc()
	m.CalculationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordEventPublished 记录事件发布结果
func (m *Metrics) RecordEventPublished(eventType string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.EventsPublished.WithLabelValues(eventType, status).Inc()
}

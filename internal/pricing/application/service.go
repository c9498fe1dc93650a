package application

import (
	"context"
	"strings"
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/config"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
)

// Option 服务选项
type Option func(*engine)

// WithClock 替换时钟，用于由到期日计算期限
func WithClock(now func() time.Time) Option {
	return func(e *engine) { e.now = now }
}

// engine 命令与查询服务共享的限制、指标与事件发布
type engine struct {
	limits    config.PricingConfig
	metrics   *metrics.Metrics
	publisher domain.EventPublisher
	now       func() time.Time
}

func newEngine(limits config.PricingConfig, m *metrics.Metrics, publisher domain.EventPublisher, opts []Option) *engine {
	e := &engine{
		limits:    limits,
		metrics:   m,
		publisher: publisher,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// observe 记录计算耗时与结果
func (e *engine) observe(ctx context.Context, op string, start time.Time, err error) {
	elapsed := time.Since(start)
	code := ErrorCode(err)
	status := "success"
	if code != "" {
		status = strings.ToLower(code)
	}
	if e.metrics != nil {
		e.metrics.RecordCalculation(op, status, elapsed)
	}

	switch code {
	case "":
		logger.Debug(ctx, "Pricing calculation completed", "operation", op, "duration", elapsed)
	case CodeInternal:
		logger.Error(ctx, "Pricing calculation failed", "operation", op, "duration", elapsed, "error", err)
	case CodeNotFound:
		logger.Info(ctx, "Pricing calculation found no solution", "operation", op, "error", err)
	default:
		logger.Warn(ctx, "Pricing calculation rejected", "operation", op, "code", code, "error", err)
	}
}

func (e *engine) simulationOptions(seed uint64) []domain.SimulationOption {
	opts := []domain.SimulationOption{domain.WithSeed(seed)}
	if e.limits.Workers > 0 {
		opts = append(opts, domain.WithWorkers(e.limits.Workers))
	}
	return opts
}

// emit 发布事件；发布失败只记录日志与指标，不影响计算结果
func (e *engine) emit(ctx context.Context, eventType string, publish func(domain.EventPublisher) error) {
	if e.publisher == nil {
		return
	}
	err := publish(e.publisher)
	if e.metrics != nil {
		e.metrics.RecordEventPublished(eventType, err)
	}
	if err != nil {
		logger.Error(ctx, "Failed to publish pricing event", "event_type", eventType, "error", err)
	}
}

func (e *engine) emitError(ctx context.Context, op, symbol string, err error) {
	e.emit(ctx, domain.PricingErrorEventType, func(p domain.EventPublisher) error {
		return p.PublishPricingError(ctx, domain.PricingErrorEvent{
			RequestID:  logger.RequestIDFromContext(ctx),
			Symbol:     symbol,
			Operation:  op,
			ErrorCode:  ErrorCode(err),
			Error:      err.Error(),
			OccurredOn: e.now(),
		})
	})
}

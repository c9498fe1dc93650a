package messaging

import (
	"context"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// Sender 消息发送接口，由 mq.KafkaProducer 实现
type Sender interface {
	SendMessage(ctx context.Context, key string, value any, headers map[string]string) error
}

// KafkaEventPublisher 实现 domain.EventPublisher，将定价事件写入 Kafka
type KafkaEventPublisher struct {
	sender Sender
}

// NewKafkaEventPublisher 创建 KafkaEventPublisher 实例
func NewKafkaEventPublisher(sender Sender) *KafkaEventPublisher {
	return &KafkaEventPublisher{sender: sender}
}

// PublishOptionPriced 发布期权定价完成事件
func (p *KafkaEventPublisher) PublishOptionPriced(ctx context.Context, event domain.OptionPricedEvent) error {
	return p.publish(ctx, domain.OptionPricedEventType, event.Symbol, event.RequestID, event)
}

// PublishGreeksCalculated 发布希腊字母计算完成事件
func (p *KafkaEventPublisher) PublishGreeksCalculated(ctx context.Context, event domain.GreeksCalculatedEvent) error {
	return p.publish(ctx, domain.GreeksCalculatedEventType, event.Symbol, event.RequestID, event)
}

// PublishPricingError 发布定价错误事件
func (p *KafkaEventPublisher) PublishPricingError(ctx context.Context, event domain.PricingErrorEvent) error {
	return p.publish(ctx, domain.PricingErrorEventType, event.Symbol, event.RequestID, event)
}

// publish 以标的代码为分区 key，缺省时退回 request id
func (p *KafkaEventPublisher) publish(ctx context.Context, eventType, symbol, requestID string, event any) error {
	key := symbol
	if key == "" {
		key = requestID
	}
	headers := map[string]string{"event_type": eventType}
	if requestID != "" {
		headers["request_id"] = requestID
	}
	return p.sender.SendMessage(ctx, key, event, headers)
}

var _ domain.EventPublisher = (*KafkaEventPublisher)(nil)

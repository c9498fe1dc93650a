package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/mq"
)

type recordingWriter struct {
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaEventPublisher(t *testing.T) {
	w := &recordingWriter{}
	pub := NewKafkaEventPublisher(mq.NewProducerWithWriter(w, "pricing-events"))
	ctx := context.Background()

	require.NoError(t, pub.PublishOptionPriced(ctx, domain.OptionPricedEvent{
		RequestID:    "req-1",
		Symbol:       "AAPL",
		OptionType:   domain.OptionTypeCall,
		PricingModel: domain.PricingModelBlackScholes,
		OptionPrice:  10.45,
		OccurredOn:   time.Now(),
	}))
	require.NoError(t, pub.PublishGreeksCalculated(ctx, domain.GreeksCalculatedEvent{
		RequestID: "req-2",
		Symbol:    "MSFT",
		Greeks:    domain.Greeks{Delta: 0.5},
	}))
	require.NoError(t, pub.PublishPricingError(ctx, domain.PricingErrorEvent{
		RequestID: "req-3",
		Operation: "implied_volatility",
		ErrorCode: "NOT_FOUND",
	}))

	require.Len(t, w.msgs, 3)

	assert.Equal(t, "AAPL", string(w.msgs[0].Key))
	assert.Equal(t, domain.OptionPricedEventType, headerValue(w.msgs[0], "event_type"))
	assert.Equal(t, "req-1", headerValue(w.msgs[0], "request_id"))
	var priced domain.OptionPricedEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &priced))
	assert.Equal(t, 10.45, priced.OptionPrice)
	assert.Equal(t, domain.PricingModelBlackScholes, priced.PricingModel)

	assert.Equal(t, domain.GreeksCalculatedEventType, headerValue(w.msgs[1], "event_type"))

	// 无标的时以 request id 作为 key
	assert.Equal(t, "req-3", string(w.msgs[2].Key))
	assert.Equal(t, domain.PricingErrorEventType, headerValue(w.msgs[2], "event_type"))
}

package events

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Producer publishes checkout events asynchronously. A nil *Producer is a
// valid no-op, so callers never branch on whether eventing is configured.
type Producer struct {
	w        *kafka.Writer
	producer string
	logger   *log.Logger
}

func NewProducer(brokers []string, topic, producerName string, logger *log.Logger) *Producer {
	if len(brokers) == 0 {
		return nil
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		producer: producerName,
		logger:   logger,
	}
}

// Publish wraps the payload in an envelope and hands it to the async writer.
// Events are advisory; failures are logged, never propagated to the checkout
// caller.
func (p *Producer) Publish(ctx context.Context, key []byte, eventType string, payload any) {
	if p == nil {
		return
	}
	env := Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Producer:   p.producer,
		Payload:    json.RawMessage(MustMarshal(payload)),
	}
	msg := kafka.Message{Key: key, Value: MustMarshal(env), Time: time.Now()}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.logger.Printf("events: publish type=%s error=%v", eventType, err)
	}
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.w.Close()
}

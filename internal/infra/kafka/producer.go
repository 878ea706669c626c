package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"risk_market/internal/event"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes dispatched events to a kafka topic as JSON, keyed by order id.
type Producer struct {
	writer  messageWriter
	timeout time.Duration
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
		timeout: 5 * time.Second,
	}
}

func (p *Producer) Name() string { return "kafka" }

// Deliver implements event.Sink.
func (p *Producer) Deliver(ctx context.Context, ev event.Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.GetType(), err)
	}
	return p.Send(ctx, []byte(ev.Key()), value, string(ev.GetType()))
}

func (p *Producer) Send(ctx context.Context, key, value []byte, eventType string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(eventType)},
		},
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

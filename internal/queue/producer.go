package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hyperjump/pagesift/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes messages keyed by URL to one topic.
type Producer struct {
	writer messageWriter
}

// NewProducer returns a producer writing to topic on brokers.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic not configured")
	}
	return newProducer(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		AllowAutoTopicCreation: true,
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              100,
		WriteTimeout:           10 * time.Second,
	}), nil
}

func newProducer(w messageWriter) *Producer {
	return &Producer{writer: w}
}

// Enqueue publishes each URL as a bare value keyed by itself.
func (p *Producer) Enqueue(ctx context.Context, urls ...string) error {
	if len(urls) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, len(urls))
	for i, u := range urls {
		msgs[i] = kafka.Message{Key: []byte(u), Value: []byte(u)}
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("enqueue urls: %w", err)
	}
	return nil
}

// PublishResult publishes the JSON ingest result keyed by its URL.
func (p *Producer) PublishResult(ctx context.Context, res *models.IngestResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(res.URL), Value: payload}); err != nil {
		return fmt.Errorf("publish result: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

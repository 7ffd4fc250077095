package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/hyperjump/pagesift/internal/models"
)

// Ingester ingests batches of URLs.
type Ingester interface {
	IngestBatch(ctx context.Context, urls []string) []*models.IngestResult
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads URLs from a topic and ingests them one message at a time.
type Consumer struct {
	reader   messageReader
	ingester Ingester
	results  *Producer
	logger   *zap.Logger
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithResults publishes every ingest result through p.
func WithResults(p *Producer) ConsumerOption {
	return func(c *Consumer) { c.results = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ConsumerOption {
	return func(c *Consumer) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewConsumer returns a consumer group member reading topic on brokers.
func NewConsumer(brokers []string, topic, groupID string, ingester Ingester, opts ...ConsumerOption) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	if topic == "" || groupID == "" {
		return nil, fmt.Errorf("kafka topic and group id are required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	})
	return newConsumer(reader, ingester, opts...), nil
}

func newConsumer(r messageReader, ingester Ingester, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		reader:   r,
		ingester: ingester,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run consumes until ctx is cancelled, which is not an error. Messages that
// do not carry a URL are logged and skipped.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	url, err := DecodeURL(msg.Value)
	if err != nil {
		c.logger.Warn("skipping message",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return
	}

	res := c.ingester.IngestBatch(ctx, []string{url})[0]
	if res.Failed() {
		c.logger.Warn("ingest failed", zap.String("url", url), zap.String("error", res.Error))
	} else {
		c.logger.Info("ingested",
			zap.String("url", url),
			zap.String("id", res.RecordID),
			zap.String("category", string(res.Category)),
		)
	}

	if c.results != nil {
		if err := c.results.PublishResult(ctx, res); err != nil {
			c.logger.Error("publish result failed", zap.String("url", url), zap.Error(err))
		}
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

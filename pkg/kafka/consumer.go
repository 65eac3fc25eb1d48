package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	kafka_config "spotbook/pkg/kafka/config"

	"github.com/segmentio/kafka-go"
)

// Consumer wraps a kafka-go reader. Messages that keep failing beyond the
// retry budget are forwarded to the dead letter queue and committed so the
// partition keeps moving.
type Consumer struct {
	reader      *kafka.Reader
	dlqProducer *Producer
	topic       string
	groupID     string
	maxRetries  int
	middleware  []ConsumerMiddleware
	closed      bool
	mu          sync.RWMutex
}

type ConsumerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

func NewConsumer(cfg *kafka_config.Config, topic string, groupID string, dlqTopic string) (*Consumer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if groupID == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}

	consumer := &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Brokers,
			Topic:          topic,
			GroupID:        groupID,
			StartOffset:    cfg.ConsumerStartOffset,
			MinBytes:       cfg.ConsumerMinBytes,
			MaxBytes:       cfg.ConsumerMaxBytes,
			MaxWait:        cfg.ConsumerMaxWait,
			CommitInterval: cfg.ConsumerCommitInterval,
			Logger:         kafka.LoggerFunc(func(msg string, args ...any) {}),
			ErrorLogger:    kafka.LoggerFunc(log.Printf),
		}),
		topic:      topic,
		groupID:    groupID,
		maxRetries: cfg.ConsumerMaxRetries,
	}

	if dlqTopic != "" {
		dlqProducer, err := NewProducer(cfg, dlqTopic, "")
		if err != nil {
			consumer.reader.Close()
			return nil, fmt.Errorf("failed to create DLQ producer: %w", err)
		}
		consumer.dlqProducer = dlqProducer
	}

	return consumer, nil
}

func (c *Consumer) Use(middleware ConsumerMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, middleware)
}

// Consume blocks processing messages until ctx is cancelled or the consumer
// is closed.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	for {
		c.mu.RLock()
		if c.closed {
			c.mu.RUnlock()
			return ErrConsumerClosed
		}
		c.mu.RUnlock()

		kafkaMsg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			log.Printf("kafka: fetch error on topic %s: %v", c.topic, err)
			continue
		}

		msg := fromKafkaMessage(kafkaMsg)

		if err := c.handle(ctx, msg, handler); err != nil {
			log.Printf("kafka: message %s failed permanently: %v", msg.GetEventID(), err)
		}

		if err := c.reader.CommitMessages(ctx, kafkaMsg); err != nil {
			log.Printf("kafka: commit error on topic %s: %v", c.topic, err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg Message, handler MessageHandler) error {
	wrapped := handler
	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := wrapped
		wrapped = func(ctx context.Context, m Message) error {
			return middleware(ctx, m, next)
		}
	}

	var err error
	for {
		err = wrapped(ctx, msg)
		if err == nil {
			return nil
		}
		if !ShouldRetry(err, msg.GetRetryCount(), c.maxRetries) {
			break
		}
		msg.IncrementRetryCount()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffFor(msg.GetRetryCount())):
		}
	}

	if c.dlqProducer != nil {
		msg.Headers[HeaderOriginalTopic] = c.topic
		msg.Headers["dlq-error"] = err.Error()
		if dlqErr := c.dlqProducer.Publish(ctx, msg); dlqErr != nil {
			return fmt.Errorf("failed to forward to DLQ: %v (handler error: %v)", dlqErr, err)
		}
		return nil
	}
	return err
}

// backoffFor grows exponentially, capped at 30s.
func backoffFor(attempt int) time.Duration {
	d := time.Second << uint(attempt-1)
	if d > 30*time.Second || d <= 0 {
		return 30 * time.Second
	}
	return d
}

func fromKafkaMessage(kafkaMsg kafka.Message) Message {
	msg := Message{
		Key:       string(kafkaMsg.Key),
		Value:     kafkaMsg.Value,
		Headers:   make(map[string]string, len(kafkaMsg.Headers)),
		Topic:     kafkaMsg.Topic,
		Partition: kafkaMsg.Partition,
		Offset:    kafkaMsg.Offset,
		Timestamp: kafkaMsg.Time,
	}
	for _, header := range kafkaMsg.Headers {
		msg.Headers[header.Key] = string(header.Value)
	}
	return msg
}

func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	err := c.reader.Close()
	if c.dlqProducer != nil {
		if dlqErr := c.dlqProducer.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}

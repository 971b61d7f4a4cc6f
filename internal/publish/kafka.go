// Package publish forwards derived views to message brokers.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"nivel_exporter/internal/types"
)

// KafkaConfig holds the options of the Kafka view sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Key     string // message key, normally the tank name
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each view as a JSON message to a Kafka topic.
type KafkaPublisher struct {
	writer messageWriter
	key    []byte
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher builds a publisher backed by a kafka.Writer.
func NewKafkaPublisher(cfg KafkaConfig, logger *slog.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("kafka topic must not be empty")
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}

	logger.Info("Kafka sink enabled", "brokers", strings.Join(cfg.Brokers, ","), "topic", cfg.Topic)
	return newKafkaPublisher(w, cfg, logger), nil
}

func newKafkaPublisher(w messageWriter, cfg KafkaConfig, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: w,
		key:    []byte(cfg.Key),
		topic:  cfg.Topic,
		logger: logger,
	}
}

// Publish implements poller.Sink.
func (p *KafkaPublisher) Publish(ctx context.Context, view types.DerivedView) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal view: %w", err)
	}

	msg := kafka.Message{
		Key:   p.key,
		Value: payload,
		Time:  view.GeneratedAt,
		Headers: []kafka.Header{
			{Key: "cycle_id", Value: []byte(view.CycleID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", p.topic, err)
	}

	p.logger.Debug("View published to Kafka", "topic", p.topic, "seq", view.Seq, "bytes", len(payload))
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

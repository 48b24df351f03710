package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/estat-data-etl/internal/config"
	"github.com/couchcryptid/estat-data-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer appends emitted items to the sink Kafka topic.
// It implements pipeline.Emitter.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Emit serializes one item and publishes it to the sink topic. Items are
// written one at a time so the stream order matches emission order.
func (w *Writer) Emit(ctx context.Context, key string, item any) error {
	msg, err := serializeToMessage(key, item)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an emitted item into a Kafka message, tagging
// the headers with the item type and emission time.
func serializeToMessage(key string, item any) (kafkago.Message, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize emitted item: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "item_type", Value: []byte(itemType(item))},
			{Key: "emitted_at", Value: []byte(domain.Now())},
		},
	}, nil
}

// itemType maps an emitted item to its stream type tag. StatRecord is the
// untagged default; everything else carries its own tag.
func itemType(item any) string {
	switch v := item.(type) {
	case domain.StatRecord:
		return domain.ItemTypeRecord
	case domain.RawItem:
		return v.Type
	case domain.ErrorItem:
		return v.Type
	case domain.RunSummary:
		return v.Type
	default:
		return "unknown"
	}
}

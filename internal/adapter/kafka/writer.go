// Package kafka publishes canonical closure sets to a sink topic for
// downstream consumers (archiving, analytics). Publishing is feature-flagged
// and never gates the request path.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/gptogo/lane-closure-impact/internal/domain"
)

// Writer produces closure records to a Kafka topic.
// It implements pipeline.ClosurePublisher.
type Writer struct {
	writer *kafkago.Writer
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, clock: clockwork.NewRealClock(), logger: logger}
}

// PublishClosures serializes and publishes a canonical closure set in a
// single WriteMessages call, keyed by closure ID.
func (w *Writer) PublishClosures(ctx context.Context, island string, records []domain.ClosureRecord) error {
	if len(records) == 0 {
		return nil
	}
	fetchedAt := w.fetchedAt()
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(island, fetchedAt, records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// fetchedAt stamps the publish batch with the clock's current UTC time. All
// messages in one batch share the stamp.
func (w *Writer) fetchedAt() string {
	return w.clock.Now().UTC().Format(time.RFC3339)
}

// serializeToMessage marshals a closure record into a Kafka message.
func serializeToMessage(island, fetchedAt string, rec domain.ClosureRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize closure record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatInt(rec.ID, 10)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "island", Value: []byte(island)},
			{Key: "fetched_at", Value: []byte(fetchedAt)},
		},
	}, nil
}

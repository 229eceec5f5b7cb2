// Package kafka publishes built sighting records to a Kafka topic so other
// consumers can ingest the archive alongside the CSV upload files.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/marshbird/sightings-etl/internal/config"
	"github.com/marshbird/sightings-etl/internal/domain"
	"github.com/marshbird/sightings-etl/internal/pipeline"
)

// Publisher produces sighting records to a Kafka topic. It implements
// pipeline.RecordSink; keys are record IDs, so reprocessing a page upserts
// rather than duplicates on compacted topics.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// WritePage serializes and publishes one page's records in a single
// WriteMessages call.
func (p *Publisher) WritePage(ctx context.Context, result pipeline.PageResult) error {
	if len(result.Records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(result.Records))
	for i := range result.Records {
		msg, err := serializeToMessage(result.Records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	p.logger.Debug("publishing records", "page", result.PageID, "count", len(msgs))
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a SightingRecord into a Kafka message.
func serializeToMessage(rec domain.SightingRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize sighting record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(rec.Status)},
			{Key: "processed_at", Value: []byte(rec.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}

// Package bus publishes terminal ledger entries to Kafka for downstream consumers.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"solana-kalshi-copier/internal/domain"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// LedgerPublisher publishes ledger entries as JSON, keyed by follower so one
// follower's entries stay ordered within a partition.
type LedgerPublisher struct {
	writer messageWriter
	Topic  string
}

// NewLedgerPublisher creates a publisher for brokers and topic.
func NewLedgerPublisher(brokers []string, topic string) *LedgerPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return &LedgerPublisher{writer: writer, Topic: topic}
}

// LedgerMessage is the published payload.
type LedgerMessage struct {
	Type  string              `json:"type"` // always "ledger.entry"
	Entry *domain.LedgerEntry `json:"entry"`
}

// PublishEntries writes one message per entry.
func (p *LedgerPublisher) PublishEntries(ctx context.Context, entries []*domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(entries))
	for _, e := range entries {
		value, err := json.Marshal(LedgerMessage{Type: "ledger.entry", Entry: e})
		if err != nil {
			return fmt.Errorf("marshal ledger entry: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.Follower),
			Value: value,
			Headers: []kafka.Header{
				{Key: "status", Value: []byte(e.Status)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close closes the underlying Kafka writer.
func (p *LedgerPublisher) Close() error {
	return p.writer.Close()
}

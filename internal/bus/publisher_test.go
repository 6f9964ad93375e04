package bus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-kalshi-copier/internal/domain"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishEntries(t *testing.T) {
	w := &fakeWriter{}
	p := &LedgerPublisher{writer: w, Topic: "t"}

	entries := []*domain.LedgerEntry{
		{ID: "a", Follower: "f1", Status: domain.LedgerStatusExecuted, SizeUSD: 12.5},
		{ID: "b", Follower: "f2", Status: domain.LedgerStatusFailed, Error: "No matching market"},
	}
	require.NoError(t, p.PublishEntries(context.Background(), entries))
	require.Len(t, w.msgs, 2)

	assert.Equal(t, "f1", string(w.msgs[0].Key))
	assert.Equal(t, "executed", string(w.msgs[0].Headers[0].Value))

	var msg LedgerMessage
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &msg))
	assert.Equal(t, "ledger.entry", msg.Type)
	assert.Equal(t, "b", msg.Entry.ID)
	assert.Equal(t, "No matching market", msg.Entry.Error)

	require.NoError(t, p.PublishEntries(context.Background(), nil))
	assert.Len(t, w.msgs, 2)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishEntries_WriteError(t *testing.T) {
	p := &LedgerPublisher{writer: &fakeWriter{err: errors.New("broker down")}}
	err := p.PublishEntries(context.Background(), []*domain.LedgerEntry{{ID: "a"}})
	assert.ErrorContains(t, err, "broker down")
}

func TestNewLedgerPublisher(t *testing.T) {
	p := NewLedgerPublisher([]string{"localhost:9092"}, "copier.ledger")
	kw, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "copier.ledger", kw.Topic)
	assert.Equal(t, kafka.RequireAll, kw.RequiredAcks)
	require.NoError(t, p.Close())
}

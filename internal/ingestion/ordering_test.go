package ingestion

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"

	"solana-kalshi-copier/internal/domain"
)

func TestSortEvents_CopyOrder(t *testing.T) {
	events := []*domain.TradeEvent{
		{OccurredAt: 200, WalletAddress: "w1", SourceSignature: "s2"},
		{OccurredAt: 100, WalletAddress: "w2", SourceSignature: "s1"},
		{OccurredAt: 100, WalletAddress: "w1", SourceSignature: "s3"},
		{OccurredAt: 100, WalletAddress: "w1", SourceSignature: "s1"},
		{OccurredAt: 300, WalletAddress: "w1", SourceSignature: "s0"},
	}

	SortEvents(events)

	got := make([]string, len(events))
	for i, e := range events {
		got[i] = e.WalletAddress + "/" + e.SourceSignature
	}
	assert.Equal(t, []string{"w1/s1", "w1/s3", "w2/s1", "w1/s2", "w1/s0"}, got)
}

func TestCompareEvents(t *testing.T) {
	tests := []struct {
		name string
		a, b domain.TradeEvent
		want int
	}{
		{"older first", domain.TradeEvent{OccurredAt: 1}, domain.TradeEvent{OccurredAt: 2}, -1},
		{"wallet breaks time ties", domain.TradeEvent{OccurredAt: 1, WalletAddress: "b"}, domain.TradeEvent{OccurredAt: 1, WalletAddress: "a"}, 1},
		{"signature breaks wallet ties", domain.TradeEvent{WalletAddress: "w", SourceSignature: "a"}, domain.TradeEvent{WalletAddress: "w", SourceSignature: "b"}, -1},
		{"identical", domain.TradeEvent{OccurredAt: 1, WalletAddress: "w", SourceSignature: "s"}, domain.TradeEvent{OccurredAt: 1, WalletAddress: "w", SourceSignature: "s"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compareEvents(&tt.a, &tt.b))
		})
	}
}

func TestSortEvents_Empty(t *testing.T) {
	var events []*domain.TradeEvent
	SortEvents(events)
	assert.True(t, slices.IsSortedFunc(events, compareEvents))
}

package ingestion

import (
	"cmp"
	"slices"

	"solana-kalshi-copier/internal/domain"
)

// SortEvents puts a batch in copy order: oldest first, then wallet, then signature.
// Providers deliver batches newest first, and followers must see trades in the order
// the trader made them.
func SortEvents(events []*domain.TradeEvent) {
	slices.SortStableFunc(events, compareEvents)
}

func compareEvents(a, b *domain.TradeEvent) int {
	return cmp.Or(
		cmp.Compare(a.OccurredAt, b.OccurredAt),
		cmp.Compare(a.WalletAddress, b.WalletAddress),
		cmp.Compare(a.SourceSignature, b.SourceSignature),
	)
}

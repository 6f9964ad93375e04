package domain

import (
	"strings"
	"unicode"
)

// Side is the inferred direction of an observed wallet trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// IsValid checks if the side is a valid value.
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// TradeEvent is a normalized on-chain trade observed for a tracked wallet.
// Immutable once created; identity is SourceSignature.
type TradeEvent struct {
	SourceSignature  string  `json:"sourceSignature"`            // upstream transaction signature
	WalletAddress    string  `json:"walletAddress"`              // fee payer / trader wallet
	OccurredAt       int64   `json:"occurredAt"`                 // unix ms
	RawDescription   string  `json:"rawDescription"`             // free-text description from the feed
	Side             Side    `json:"side"`                       // inferred buy/sell
	CounterpartyMint string  `json:"counterpartyMint,omitempty"` // mint moved to/from the wallet, empty when unknown
	Amount           float64 `json:"amount,omitempty"`           // token amount of CounterpartyMint
	Source           string  `json:"source"`                     // "webhook" | "watcher" | "replay"
	// Seed marks a wallet's first observed trade, emitted only to copy open positions.
	// Followers without CopyOpenPositions ignore seed events.
	Seed bool `json:"seed,omitempty"`
}

// Event source labels.
const (
	EventSourceWebhook = "webhook"
	EventSourceWatcher = "watcher"
	EventSourceReplay  = "replay"
)

// OutcomeSide returns the exchange contract side implied by a trade description:
// "no" when the word no appears, otherwise "yes".
func OutcomeSide(description string) string {
	words := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if w == "no" {
			return OrderSideNo
		}
	}
	return OrderSideYes
}

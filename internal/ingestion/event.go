package ingestion

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/solana"
)

// DecodePayload accepts a single activity object or an array of them and returns
// the raw items. Anything else is a validation error for the whole batch.
func DecodePayload(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, &domain.ValidationError{Field: "body", Reason: "empty"}
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, &domain.ValidationError{Field: "body", Reason: err.Error()}
		}
		return items, nil
	case '{':
		if !json.Valid(trimmed) {
			return nil, &domain.ValidationError{Field: "body", Reason: "malformed JSON object"}
		}
		return []json.RawMessage{json.RawMessage(trimmed)}, nil
	default:
		return nil, &domain.ValidationError{Field: "body", Reason: "expected JSON object or array"}
	}
}

// ParseActivity decodes one raw activity item.
func ParseActivity(raw json.RawMessage) (solana.EnhancedTransaction, error) {
	var a solana.EnhancedTransaction
	if err := json.Unmarshal(raw, &a); err != nil {
		return a, &domain.ValidationError{Field: "item", Reason: err.Error()}
	}
	return a, nil
}

// BuildTradeEvent validates activity and converts it to a TradeEvent. now is used when
// the activity has no timestamp.
func BuildTradeEvent(a solana.EnhancedTransaction, source string, now time.Time) (*domain.TradeEvent, error) {
	signature := strings.TrimSpace(a.Signature)
	if signature == "" {
		return nil, &domain.ValidationError{Field: "signature", Reason: "required"}
	}
	feePayer := strings.TrimSpace(a.FeePayer)
	if feePayer == "" {
		return nil, &domain.ValidationError{Field: "feePayer", Reason: "required"}
	}
	if err := solana.ValidateWalletAddress(feePayer); err != nil {
		return nil, &domain.ValidationError{Field: "feePayer", Reason: err.Error()}
	}

	occurredAt := now.UnixMilli()
	if a.Timestamp > 0 {
		occurredAt = a.Timestamp * 1000
	}

	side, mint, amount := inferSide(a.TokenTransfers, feePayer)

	return &domain.TradeEvent{
		SourceSignature:  signature,
		WalletAddress:    feePayer,
		OccurredAt:       occurredAt,
		RawDescription:   strings.TrimSpace(a.Description),
		Side:             side,
		CounterpartyMint: mint,
		Amount:           amount,
		Source:           source,
	}, nil
}

// inferSide looks at the first non-quote token moved to or from the wallet: received
// means the wallet bought it, sent means it sold. No such transfer defaults to buy.
func inferSide(transfers []solana.TokenTransfer, wallet string) (domain.Side, string, float64) {
	for _, t := range transfers {
		if t.Mint == "" || solana.IsQuoteMint(t.Mint) {
			continue
		}
		switch wallet {
		case t.ToUserAccount:
			return domain.SideBuy, t.Mint, t.TokenAmount
		case t.FromUserAccount:
			return domain.SideSell, t.Mint, t.TokenAmount
		}
	}
	return domain.SideBuy, "", 0
}

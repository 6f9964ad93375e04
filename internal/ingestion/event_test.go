package ingestion

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/solana"
)

func newWallet(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return base58.Encode(pub)
}

func TestDecodePayload(t *testing.T) {
	items, err := DecodePayload([]byte(`  {"signature":"a"} `))
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = DecodePayload([]byte(`[{"signature":"a"},{"signature":"b"}, 5]`))
	require.NoError(t, err)
	assert.Len(t, items, 3)

	for _, body := range []string{"", "  ", `"str"`, `42`, `{"broken":`, `[1,`} {
		_, err := DecodePayload([]byte(body))
		assert.ErrorIs(t, err, domain.ErrValidation, "body %q", body)
	}
}

func TestBuildTradeEvent(t *testing.T) {
	wallet := newWallet(t)
	now := time.UnixMilli(1_700_000_000_000)

	t.Run("buy with timestamp", func(t *testing.T) {
		e, err := BuildTradeEvent(solana.EnhancedTransaction{
			Signature:   "sig1",
			FeePayer:    wallet,
			Description: "  Bought YES on Bitcoin above 100k ",
			Timestamp:   1_690_000_000,
			TokenTransfers: []solana.TokenTransfer{
				{FromUserAccount: wallet, ToUserAccount: "pool", Mint: solana.USDCMint, TokenAmount: 10},
				{FromUserAccount: "pool", ToUserAccount: wallet, Mint: "OutcomeMint", TokenAmount: 25},
			},
		}, domain.EventSourceWebhook, now)
		require.NoError(t, err)

		assert.Equal(t, "sig1", e.SourceSignature)
		assert.Equal(t, wallet, e.WalletAddress)
		assert.Equal(t, int64(1_690_000_000_000), e.OccurredAt)
		assert.Equal(t, "Bought YES on Bitcoin above 100k", e.RawDescription)
		assert.Equal(t, domain.SideBuy, e.Side)
		assert.Equal(t, "OutcomeMint", e.CounterpartyMint)
		assert.Equal(t, 25.0, e.Amount)
		assert.Equal(t, domain.EventSourceWebhook, e.Source)
	})

	t.Run("sell defaults timestamp to now", func(t *testing.T) {
		e, err := BuildTradeEvent(solana.EnhancedTransaction{
			Signature: "sig2",
			FeePayer:  wallet,
			TokenTransfers: []solana.TokenTransfer{
				{FromUserAccount: wallet, ToUserAccount: "pool", Mint: "OutcomeMint", TokenAmount: 3},
			},
		}, domain.EventSourceWatcher, now)
		require.NoError(t, err)
		assert.Equal(t, now.UnixMilli(), e.OccurredAt)
		assert.Equal(t, domain.SideSell, e.Side)
	})

	t.Run("quote-only transfers default to buy", func(t *testing.T) {
		e, err := BuildTradeEvent(solana.EnhancedTransaction{
			Signature: "sig3",
			FeePayer:  wallet,
			TokenTransfers: []solana.TokenTransfer{
				{FromUserAccount: wallet, ToUserAccount: "x", Mint: solana.WrappedSOLMint, TokenAmount: 1},
			},
		}, domain.EventSourceWebhook, now)
		require.NoError(t, err)
		assert.Equal(t, domain.SideBuy, e.Side)
		assert.Empty(t, e.CounterpartyMint)
	})

	tests := []struct {
		name  string
		in    solana.EnhancedTransaction
		field string
	}{
		{"missing signature", solana.EnhancedTransaction{FeePayer: wallet}, "signature"},
		{"missing fee payer", solana.EnhancedTransaction{Signature: "s"}, "feePayer"},
		{"bad fee payer", solana.EnhancedTransaction{Signature: "s", FeePayer: "not-base58-0OIl"}, "feePayer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildTradeEvent(tt.in, domain.EventSourceWebhook, now)
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestParseActivity_IgnoresUnknownFields(t *testing.T) {
	a, err := ParseActivity(json.RawMessage(`{"signature":"s","feePayer":"f","slot":5,"events":{},"timestamp":12}`))
	require.NoError(t, err)
	assert.Equal(t, "s", a.Signature)
	assert.Equal(t, int64(12), a.Timestamp)

	_, err = ParseActivity(json.RawMessage(`5`))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

package watcher

import (
	"context"
	"fmt"
	"time"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/ingestion"
	"solana-kalshi-copier/internal/observability"
	"solana-kalshi-copier/internal/solana"
)

// Feed returns a wallet's most recent activity as a trade event, or nil when the
// wallet has none.
type Feed interface {
	Latest(ctx context.Context, wallet string) (*domain.TradeEvent, error)
}

// RPCFeed reads the newest signature with getSignaturesForAddress and fills in token
// movements from getTransaction. The signature memo is used as description.
type RPCFeed struct {
	rpc solana.RPCClient
	now func() time.Time
}

// NewRPCFeed creates a feed over a JSON-RPC client.
func NewRPCFeed(rpc solana.RPCClient) *RPCFeed {
	return &RPCFeed{rpc: rpc, now: time.Now}
}

// Latest implements Feed. Failed transactions are not trades and yield nil.
func (f *RPCFeed) Latest(ctx context.Context, wallet string) (*domain.TradeEvent, error) {
	start := time.Now()
	sigs, err := f.rpc.GetSignaturesForAddress(ctx, wallet, &solana.SignaturesOpts{Limit: 1})
	observability.RecordUpstreamLatency("solana", "get_signatures", time.Since(start).Seconds())
	if err != nil {
		return nil, domain.ClassifyUpstream("get signatures", err)
	}
	if len(sigs) == 0 || sigs[0].Err != nil {
		return nil, nil
	}
	info := sigs[0]

	activity := solana.EnhancedTransaction{
		Signature:   info.Signature,
		FeePayer:    wallet,
		Description: info.Memo,
	}
	if info.BlockTime != nil {
		activity.Timestamp = *info.BlockTime
	}

	tx, err := f.rpc.GetTransaction(ctx, info.Signature)
	if err != nil {
		return nil, domain.ClassifyUpstream("get transaction", err)
	}
	if tx != nil {
		full := solana.ActivityFromTransaction(tx, wallet, info.Memo)
		if full.Timestamp == 0 {
			full.Timestamp = activity.Timestamp
		}
		activity = full
	}

	return ingestion.BuildTradeEvent(activity, domain.EventSourceWatcher, f.now())
}

// EnhancedFeed reads parsed activity from the enhanced transactions API.
type EnhancedFeed struct {
	client *solana.EnhancedClient
	now    func() time.Time
}

// NewEnhancedFeed creates a feed over the enhanced transactions API.
func NewEnhancedFeed(client *solana.EnhancedClient) *EnhancedFeed {
	return &EnhancedFeed{client: client, now: time.Now}
}

// Latest implements Feed.
func (f *EnhancedFeed) Latest(ctx context.Context, wallet string) (*domain.TradeEvent, error) {
	start := time.Now()
	txs, err := f.client.AddressTransactions(ctx, wallet, 1)
	observability.RecordUpstreamLatency("solana", "address_transactions", time.Since(start).Seconds())
	if err != nil {
		return nil, domain.ClassifyUpstream("address transactions", err)
	}
	if len(txs) == 0 {
		return nil, nil
	}
	if txs[0].FeePayer == "" {
		txs[0].FeePayer = wallet
	}
	e, err := ingestion.BuildTradeEvent(txs[0], domain.EventSourceWatcher, f.now())
	if err != nil {
		return nil, fmt.Errorf("malformed activity for %s: %w", wallet, err)
	}
	return e, nil
}

// Package ingestion turns pushed wallet-activity payloads into trade events for the copy engine.
package ingestion

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/observability"
	"solana-kalshi-copier/internal/storage"
)

// Processor copies one trade event for every follower of its wallet.
type Processor interface {
	Process(ctx context.Context, e *domain.TradeEvent) error
}

// Ingestor validates activity payloads and forwards new events to the Processor.
// Safe for concurrent use; redelivered events are short-circuited by the signature log.
type Ingestor struct {
	processor  Processor
	signatures storage.SignatureLog
	logger     *zap.Logger
	now        func() time.Time
}

// Options contains configuration for creating an Ingestor.
type Options struct {
	Processor  Processor
	Signatures storage.SignatureLog
	Logger     *zap.Logger
	Now        func() time.Time
}

// New creates an Ingestor.
func New(opts Options) *Ingestor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Ingestor{
		processor:  opts.Processor,
		signatures: opts.Signatures,
		logger:     logger.Named("ingestion"),
		now:        now,
	}
}

// Result counts the outcome of one batch.
type Result struct {
	Received   int `json:"received"`
	Accepted   int `json:"accepted"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
	Failed     int `json:"failed"`
	Retryable  int `json:"retryable"` // failures worth a redelivery
}

// Succeeded reports whether every valid item was copied or already handled.
func (r Result) Succeeded() bool { return r.Failed == 0 }

// Ingest decodes a webhook body (object or array) and ingests its items. Only a body
// that is not an object or array fails the batch; bad items are logged and counted.
func (i *Ingestor) Ingest(ctx context.Context, body []byte, source string) (Result, error) {
	items, err := DecodePayload(body)
	if err != nil {
		return Result{}, err
	}
	return i.IngestItems(ctx, items, source), nil
}

// IngestItems processes already split raw items.
func (i *Ingestor) IngestItems(ctx context.Context, items []json.RawMessage, source string) Result {
	res := Result{Received: len(items)}
	now := i.now()

	events := make([]*domain.TradeEvent, 0, len(items))
	for idx, raw := range items {
		activity, err := ParseActivity(raw)
		if err == nil {
			var e *domain.TradeEvent
			e, err = BuildTradeEvent(activity, source, now)
			if err == nil {
				events = append(events, e)
				continue
			}
		}
		res.Rejected++
		i.logger.Warn("rejected activity item", zap.Int("index", idx), zap.Error(err))
	}

	SortEvents(events)
	for _, e := range events {
		out, err := i.ingestEvent(ctx, e)
		switch out {
		case outcomeAccepted:
			res.Accepted++
		case outcomeDuplicate:
			res.Duplicates++
		default:
			res.Failed++
			if domain.IsRetryable(err) {
				res.Retryable++
			}
		}
	}

	observability.RecordIngested("accepted", res.Accepted)
	observability.RecordIngested("duplicate", res.Duplicates)
	observability.RecordIngested("rejected", res.Rejected)
	observability.RecordIngested("failed", res.Failed)

	i.logger.Debug("batch ingested",
		zap.Int("received", res.Received),
		zap.Int("accepted", res.Accepted),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("rejected", res.Rejected),
		zap.Int("failed", res.Failed),
	)
	return res
}

type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeDuplicate
	outcomeFailed
)

// ingestEvent forwards e unless its signature was already handled. The signature is
// recorded only after the processor succeeded, so transient failures are retried on
// redelivery.
func (i *Ingestor) ingestEvent(ctx context.Context, e *domain.TradeEvent) (outcome, error) {
	log := i.logger.With(zap.String("signature", e.SourceSignature), zap.String("wallet", e.WalletAddress))

	if i.signatures != nil {
		seen, err := i.signatures.Contains(ctx, e.WalletAddress, e.SourceSignature)
		if err != nil {
			log.Warn("signature lookup failed, processing anyway", zap.Error(err))
		} else if seen {
			log.Debug("duplicate delivery skipped")
			return outcomeDuplicate, nil
		}

		if err := i.signatures.AppendHistory(ctx, e); err != nil {
			log.Warn("append history failed", zap.Error(err))
		}
	}

	if err := i.processor.Process(ctx, e); err != nil {
		log.Warn("copy failed", zap.Bool("retryable", domain.IsRetryable(err)), zap.Error(err))
		return outcomeFailed, err
	}

	if i.signatures != nil {
		if err := i.signatures.Record(ctx, e.WalletAddress, e.SourceSignature); err != nil {
			log.Warn("record signature failed", zap.Error(err))
		}
	}
	return outcomeAccepted, nil
}

// Forward ingests an event built elsewhere (watcher polls). It reports whether the
// event was new.
func (i *Ingestor) Forward(ctx context.Context, e *domain.TradeEvent) (bool, error) {
	out, err := i.ingestEvent(ctx, e)
	switch out {
	case outcomeAccepted:
		observability.RecordIngested("accepted", 1)
	case outcomeDuplicate:
		observability.RecordIngested("duplicate", 1)
	default:
		observability.RecordIngested("failed", 1)
	}
	return out == outcomeAccepted, err
}

package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/storage"
)

// SignatureLog implements storage.SignatureLog on Redis.
//
// Keys:
//
//	sigs:{wallet}     SET of handled signatures, expiring ttl after the last write
//	history:{wallet}  LIST of JSON events, newest first, capped at historyLen
type SignatureLog struct {
	rdb        *Client
	ttl        time.Duration
	historyLen int
}

// NewSignatureLog creates a new Redis-backed signature log.
func NewSignatureLog(rdb *Client, ttl time.Duration, historyLen int) *SignatureLog {
	if historyLen <= 0 {
		historyLen = 50
	}
	return &SignatureLog{rdb: rdb, ttl: ttl, historyLen: historyLen}
}

var _ storage.SignatureLog = (*SignatureLog)(nil)

func signaturesKey(wallet string) string { return "sigs:" + wallet }
func historyKey(wallet string) string    { return "history:" + wallet }

// Contains reports whether the signature was recorded for the wallet.
func (s *SignatureLog) Contains(ctx context.Context, wallet, signature string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, signaturesKey(wallet), signature).Result()
	if err != nil {
		return false, fmt.Errorf("redis SISMEMBER: %w", err)
	}
	return ok, nil
}

// Record adds the signature and refreshes the set TTL.
func (s *SignatureLog) Record(ctx context.Context, wallet, signature string) error {
	if wallet == "" || signature == "" {
		return storage.ErrInvalidInput
	}

	key := signaturesKey(wallet)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, signature)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis record signature: %w", err)
	}
	return nil
}

// historyEvent is the stored JSON shape of a TradeEvent.
type historyEvent struct {
	Signature   string      `json:"signature"`
	Wallet      string      `json:"wallet"`
	Timestamp   int64       `json:"timestamp"`
	Description string      `json:"description"`
	Side        domain.Side `json:"side"`
	Mint        string      `json:"mint,omitempty"`
	Amount      float64     `json:"amount,omitempty"`
	Source      string      `json:"source"`
}

// AppendHistory pushes the event to the front of the wallet history and trims it.
func (s *SignatureLog) AppendHistory(ctx context.Context, e *domain.TradeEvent) error {
	if e == nil || e.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	data, err := json.Marshal(historyEvent{
		Signature:   e.SourceSignature,
		Wallet:      e.WalletAddress,
		Timestamp:   e.OccurredAt,
		Description: e.RawDescription,
		Side:        e.Side,
		Mint:        e.CounterpartyMint,
		Amount:      e.Amount,
		Source:      e.Source,
	})
	if err != nil {
		return fmt.Errorf("marshal history event: %w", err)
	}

	key := historyKey(e.WalletAddress)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, int64(s.historyLen-1))
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append history: %w", err)
	}
	return nil
}

// History returns up to limit most recent events. limit <= 0 returns the whole list.
func (s *SignatureLog) History(ctx context.Context, wallet string, limit int) ([]*domain.TradeEvent, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	raw, err := s.rdb.LRange(ctx, historyKey(wallet), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis LRANGE: %w", err)
	}

	events := make([]*domain.TradeEvent, 0, len(raw))
	for _, item := range raw {
		var h historyEvent
		if err := json.Unmarshal([]byte(item), &h); err != nil {
			continue
		}
		events = append(events, &domain.TradeEvent{
			SourceSignature:  h.Signature,
			WalletAddress:    h.Wallet,
			OccurredAt:       h.Timestamp,
			RawDescription:   h.Description,
			Side:             h.Side,
			CounterpartyMint: h.Mint,
			Amount:           h.Amount,
			Source:           h.Source,
		})
	}
	return events, nil
}

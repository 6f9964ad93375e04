package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/storage"
)

// LedgerAnalyticsStore mirrors terminal ledger entries into ClickHouse for reporting.
// The table is a ReplacingMergeTree on (follower, id), so re-inserting an entry is harmless
// and reads use FINAL.
type LedgerAnalyticsStore struct {
	conn *Conn
}

// NewLedgerAnalyticsStore creates a new LedgerAnalyticsStore.
func NewLedgerAnalyticsStore(conn *Conn) *LedgerAnalyticsStore {
	return &LedgerAnalyticsStore{conn: conn}
}

var _ storage.LedgerAnalyticsStore = (*LedgerAnalyticsStore)(nil)

// InsertEntries appends terminal entries in one batch. Pending entries are rejected.
func (s *LedgerAnalyticsStore) InsertEntries(ctx context.Context, entries []*domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e == nil || !e.Status.IsTerminal() {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ledger_entries (
			follower, id, trader_id, source_signature,
			status, platform, kalshi_ticker, side, action,
			size_usd, order_id, error, is_simulation,
			created_at, resolved_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range entries {
		var sim uint8
		if e.IsSimulation {
			sim = 1
		}
		err = batch.Append(
			e.Follower, e.ID, e.TraderID, e.SourceSignature,
			string(e.Status), e.Platform, e.KalshiTicker, e.OrderSide, e.OrderAction,
			e.SizeUSD, e.OrderID, e.Error, sim,
			e.CreatedAt, e.ResolvedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// DailyVolume returns executed volume per UTC day within [from, to] (unix ms), oldest day first.
func (s *LedgerAnalyticsStore) DailyVolume(ctx context.Context, follower string, from, to int64) ([]storage.DailyVolume, error) {
	if to <= 0 {
		to = time.Now().UnixMilli()
	}

	query := `
		SELECT
			toString(toDate(fromUnixTimestamp64Milli(created_at), 'UTC')) AS day,
			count() AS trades,
			sum(size_usd) AS volume
		FROM ledger_entries FINAL
		WHERE follower = ? AND status = 'executed' AND created_at >= ? AND created_at <= ?
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := s.conn.Query(ctx, query, follower, from, to)
	if err != nil {
		return nil, fmt.Errorf("query daily volume: %w", err)
	}
	defer rows.Close()

	var result []storage.DailyVolume
	for rows.Next() {
		var day string
		var trades uint64
		var volume float64
		if err := rows.Scan(&day, &trades, &volume); err != nil {
			return nil, fmt.Errorf("scan daily volume: %w", err)
		}
		result = append(result, storage.DailyVolume{Day: day, Trades: int(trades), VolumeUSD: volume})
	}
	return result, rows.Err()
}

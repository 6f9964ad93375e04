package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/storage"
)

// CopySettingStore implements storage.CopySettingStore using PostgreSQL.
type CopySettingStore struct {
	pool *Pool
}

// NewCopySettingStore creates a new CopySettingStore.
func NewCopySettingStore(pool *Pool) *CopySettingStore {
	return &CopySettingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CopySettingStore = (*CopySettingStore)(nil)

// Get returns the follower's settings in stored order.
func (s *CopySettingStore) Get(ctx context.Context, follower string) ([]domain.CopySetting, error) {
	if follower == "" {
		return nil, storage.ErrInvalidInput
	}

	rows, err := s.pool.Query(ctx, `
		SELECT trader_id, is_active, allocation_usd, max_position_percent, stop_loss_percent, copy_open_positions
		FROM copy_settings
		WHERE follower = $1
		ORDER BY position ASC
	`, follower)
	if err != nil {
		return nil, fmt.Errorf("query copy settings: %w", err)
	}
	defer rows.Close()

	settings := []domain.CopySetting{}
	for rows.Next() {
		var cs domain.CopySetting
		if err := rows.Scan(&cs.TraderID, &cs.IsActive, &cs.AllocationUSD, &cs.MaxPositionPercent,
			&cs.StopLossPercent, &cs.CopyOpenPositions); err != nil {
			return nil, fmt.Errorf("scan copy setting: %w", err)
		}
		settings = append(settings, cs)
	}
	return settings, rows.Err()
}

// Replace deletes and re-inserts the follower's list in one transaction.
func (s *CopySettingStore) Replace(ctx context.Context, follower string, settings []domain.CopySetting) error {
	if follower == "" {
		return storage.ErrInvalidInput
	}

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM copy_settings WHERE follower = $1`, follower); err != nil {
			return fmt.Errorf("delete copy settings: %w", err)
		}

		batch := &pgx.Batch{}
		for i, cs := range settings {
			batch.Queue(`
				INSERT INTO copy_settings (
					follower, trader_id, position, is_active, allocation_usd,
					max_position_percent, stop_loss_percent, copy_open_positions
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, follower, cs.TraderID, i, cs.IsActive, cs.AllocationUSD,
				cs.MaxPositionPercent, cs.StopLossPercent, cs.CopyOpenPositions)
		}
		if batch.Len() == 0 {
			return nil
		}

		results := tx.SendBatch(ctx, batch)
		for range settings {
			if _, err := results.Exec(); err != nil {
				results.Close()
				if isDuplicateKeyError(err) {
					return storage.ErrDuplicateKey
				}
				return fmt.Errorf("insert copy setting: %w", err)
			}
		}
		return results.Close()
	})
}

// ActiveByTrader returns active settings following traderID, ordered by follower.
func (s *CopySettingStore) ActiveByTrader(ctx context.Context, traderID string) ([]domain.FollowerSetting, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT follower, trader_id, is_active, allocation_usd, max_position_percent, stop_loss_percent, copy_open_positions
		FROM copy_settings
		WHERE trader_id = $1 AND is_active
		ORDER BY follower ASC
	`, traderID)
	if err != nil {
		return nil, fmt.Errorf("query active settings: %w", err)
	}
	defer rows.Close()

	var result []domain.FollowerSetting
	for rows.Next() {
		var fs domain.FollowerSetting
		cs := &fs.Setting
		if err := rows.Scan(&fs.Follower, &cs.TraderID, &cs.IsActive, &cs.AllocationUSD,
			&cs.MaxPositionPercent, &cs.StopLossPercent, &cs.CopyOpenPositions); err != nil {
			return nil, fmt.Errorf("scan active setting: %w", err)
		}
		result = append(result, fs)
	}
	return result, rows.Err()
}

// ActiveTraders returns distinct traders referenced by active settings, ordered by wallet.
func (s *CopySettingStore) ActiveTraders(ctx context.Context) ([]domain.TraderSubscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT trader_id, BOOL_OR(copy_open_positions)
		FROM copy_settings
		WHERE is_active
		GROUP BY trader_id
		ORDER BY trader_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query active traders: %w", err)
	}
	defer rows.Close()

	result := []domain.TraderSubscription{}
	for rows.Next() {
		var sub domain.TraderSubscription
		if err := rows.Scan(&sub.Wallet, &sub.CopyOpenPositions); err != nil {
			return nil, fmt.Errorf("scan active trader: %w", err)
		}
		result = append(result, sub)
	}
	return result, rows.Err()
}

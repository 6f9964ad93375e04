package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/storage"
)

// LedgerStore implements storage.LedgerStore using PostgreSQL.
// The (follower, id) primary key is the reservation point: a second insert fails with 23505.
type LedgerStore struct {
	pool *Pool
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(pool *Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LedgerStore = (*LedgerStore)(nil)

const ledgerColumns = `
	follower, id, trader_id, source_signature, original_trade,
	status, platform, kalshi_ticker, side, action,
	size_usd, order_id, error, is_simulation, created_at, resolved_at`

// Insert adds a new entry. Returns ErrDuplicateKey if (follower, id) exists.
func (s *LedgerStore) Insert(ctx context.Context, e *domain.LedgerEntry) error {
	if e == nil || e.ID == "" || e.Follower == "" {
		return storage.ErrInvalidInput
	}

	original, err := json.Marshal(e.OriginalTrade)
	if err != nil {
		return fmt.Errorf("marshal original trade: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO ledger_entries (`+ledgerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		e.Follower, e.ID, e.TraderID, e.SourceSignature, original,
		string(e.Status), e.Platform, e.KalshiTicker, e.OrderSide, e.OrderAction,
		e.SizeUSD, e.OrderID, e.Error, e.IsSimulation, e.CreatedAt, e.ResolvedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// Resolve applies a terminal resolution to a pending entry.
// The status guard in the WHERE clause makes the pending->terminal step a single CAS.
func (s *LedgerStore) Resolve(ctx context.Context, follower, id string, r domain.Resolution) (*domain.LedgerEntry, error) {
	if !r.Status.IsTerminal() {
		return nil, storage.ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE ledger_entries
		SET status = $3, kalshi_ticker = $4, size_usd = $5, order_id = $6, error = $7, resolved_at = $8
		WHERE follower = $1 AND id = $2 AND status = 'pending'
		RETURNING `+ledgerColumns,
		follower, id, string(r.Status), r.KalshiTicker, r.SizeUSD, r.OrderID, r.Error, r.ResolvedAt,
	)

	e, err := scanLedgerEntry(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("resolve ledger entry: %w", err)
	}
	return e, nil
}

// GetByID retrieves an entry. Returns ErrNotFound if not exists.
func (s *LedgerStore) GetByID(ctx context.Context, follower, id string) (*domain.LedgerEntry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries
		WHERE follower = $1 AND id = $2
	`, follower, id)

	e, err := scanLedgerEntry(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return e, nil
}

// Query returns one page of entries ordered by created_at DESC, follower, id and the unpaginated total.
func (s *LedgerStore) Query(ctx context.Context, q domain.LedgerQuery) ([]*domain.LedgerEntry, int, error) {
	if q.Limit < 0 || q.Offset < 0 {
		return nil, 0, storage.ErrInvalidInput
	}

	where, args := ledgerWhere(q)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries` + where +
		` ORDER BY created_at DESC, follower ASC, id ASC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	args = append(args, q.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query ledger entries: %w", err)
	}
	entries, err := collectLedgerEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListPendingBefore returns pending entries created strictly before cutoff.
func (s *LedgerStore) ListPendingBefore(ctx context.Context, cutoff int64) ([]*domain.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC, id ASC
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query pending ledger entries: %w", err)
	}
	return collectLedgerEntries(rows)
}

// ledgerWhere builds the WHERE clause and positional args for a query.
func ledgerWhere(q domain.LedgerQuery) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if q.Follower != "" {
		add("follower = $%d", q.Follower)
	}
	f := q.Filter
	if f.Platform != "" {
		add("platform = $%d", f.Platform)
	}
	if f.Side != "" {
		add("side = $%d", f.Side)
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if f.From > 0 {
		add("created_at >= $%d", f.From)
	}
	if f.To > 0 {
		add("created_at <= $%d", f.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var status string
	var original []byte
	err := row.Scan(
		&e.Follower, &e.ID, &e.TraderID, &e.SourceSignature, &original,
		&status, &e.Platform, &e.KalshiTicker, &e.OrderSide, &e.OrderAction,
		&e.SizeUSD, &e.OrderID, &e.Error, &e.IsSimulation, &e.CreatedAt, &e.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Status = domain.LedgerStatus(status)
	if len(original) > 0 {
		if err := json.Unmarshal(original, &e.OriginalTrade); err != nil {
			return nil, fmt.Errorf("unmarshal original trade: %w", err)
		}
	}
	return &e, nil
}

func collectLedgerEntries(rows pgx.Rows) ([]*domain.LedgerEntry, error) {
	defer rows.Close()

	entries := []*domain.LedgerEntry{}
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}

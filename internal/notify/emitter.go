package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/observability"
	"solana-kalshi-copier/internal/storage"
)

// DefaultLimit is the number of notifications kept per user.
const DefaultLimit = 50

// Broadcaster pushes a freshly emitted notification to live listeners.
type Broadcaster interface {
	Broadcast(user string, n *domain.Notification)
}

// Options configures an Emitter.
type Options struct {
	Store  storage.NotificationStore
	Limit  int
	Hub    Broadcaster // optional
	Logger *zap.Logger
	Now    func() time.Time
}

// Emitter writes per-user notifications and fans them out to the stream hub.
type Emitter struct {
	store  storage.NotificationStore
	limit  int
	hub    Broadcaster
	logger *zap.Logger
	now    func() time.Time
}

// Inbox is a user's notification list with its unread counter.
type Inbox struct {
	Notifications []*domain.Notification `json:"notifications"`
	UnreadCount   int                    `json:"unreadCount"`
}

// New creates an emitter.
func New(opts Options) *Emitter {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Emitter{
		store:  opts.Store,
		limit:  opts.Limit,
		hub:    opts.Hub,
		logger: opts.Logger.Named("notify"),
		now:    opts.Now,
	}
}

// Emit stores n for user. A notice whose DedupKey was already claimed for the user
// is dropped and Emit returns (nil, nil).
func (e *Emitter) Emit(ctx context.Context, user string, n domain.Notification) (*domain.Notification, error) {
	if user == "" {
		return nil, &domain.ValidationError{Field: "user", Reason: "required"}
	}
	if !n.Type.IsValid() {
		return nil, &domain.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown type %q", n.Type)}
	}

	if n.DedupKey != "" {
		claimed, err := e.store.Claim(ctx, user, n.DedupKey)
		if err != nil {
			return nil, domain.Persistence("claim notification", err)
		}
		if !claimed {
			e.logger.Debug("duplicate notification suppressed",
				zap.String("user", user), zap.String("key", n.DedupKey))
			return nil, nil
		}
	}

	n.ID = uuid.NewString()
	n.Read = false
	n.CreatedAt = e.now().UnixMilli()

	if err := e.store.Push(ctx, user, &n, e.limit); err != nil {
		return nil, domain.Persistence("push notification", err)
	}
	observability.RecordNotification(string(n.Type))

	if e.hub != nil {
		e.hub.Broadcast(user, &n)
	}
	return &n, nil
}

// EmitRequest builds a notice from req and emits it.
func (e *Emitter) EmitRequest(ctx context.Context, user string, req Request) (*domain.Notification, error) {
	n, err := Build(req)
	if err != nil {
		return nil, err
	}
	return e.Emit(ctx, user, n)
}

// EmitLedgerEntry emits the notice for a terminal ledger entry, at most once per entry.
// Failures are logged; ledger processing never depends on notification delivery.
func (e *Emitter) EmitLedgerEntry(ctx context.Context, entry *domain.LedgerEntry) {
	n, ok := ForLedgerEntry(entry)
	if !ok {
		return
	}
	if _, err := e.Emit(ctx, entry.Follower, n); err != nil {
		e.logger.Warn("ledger notification failed",
			zap.String("follower", entry.Follower),
			zap.String("entry", entry.ID),
			zap.Error(err))
	}
}

// List returns up to limit notifications for the user with the unread count.
func (e *Emitter) List(ctx context.Context, user string, limit int) (*Inbox, error) {
	if limit <= 0 || limit > e.limit {
		limit = e.limit
	}
	items, err := e.store.List(ctx, user, limit)
	if err != nil {
		return nil, domain.Persistence("list notifications", err)
	}
	unread, err := e.store.UnreadCount(ctx, user)
	if err != nil {
		return nil, domain.Persistence("unread count", err)
	}
	if items == nil {
		items = []*domain.Notification{}
	}
	return &Inbox{Notifications: items, UnreadCount: unread}, nil
}

// MarkRead marks one notification read.
func (e *Emitter) MarkRead(ctx context.Context, user, id string) error {
	if err := e.store.MarkRead(ctx, user, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
		}
		return domain.Persistence("mark read", err)
	}
	return nil
}

// MarkAllRead marks every notification of the user read.
func (e *Emitter) MarkAllRead(ctx context.Context, user string) error {
	if err := e.store.MarkAllRead(ctx, user); err != nil {
		return domain.Persistence("mark all read", err)
	}
	return nil
}

// Clear removes every notification of the user.
func (e *Emitter) Clear(ctx context.Context, user string) error {
	if err := e.store.Clear(ctx, user); err != nil {
		return domain.Persistence("clear notifications", err)
	}
	return nil
}

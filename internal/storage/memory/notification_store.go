package memory

import (
	"context"
	"sync"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/storage"
)

// NotificationStore is an in-memory implementation of storage.NotificationStore.
// Each user has an independent lock so emits for different users do not contend.
type NotificationStore struct {
	mu    sync.Mutex
	users map[string]*userNotifications
}

type userNotifications struct {
	mu      sync.Mutex
	items   []*domain.Notification // newest first
	unread  int
	claimed map[string]struct{}
}

// NewNotificationStore creates a new in-memory notification store.
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{
		users: make(map[string]*userNotifications),
	}
}

var _ storage.NotificationStore = (*NotificationStore)(nil)

func (s *NotificationStore) user(user string) *userNotifications {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[user]
	if !ok {
		u = &userNotifications{claimed: make(map[string]struct{})}
		s.users[user] = u
	}
	return u
}

// Claim records a dedup key. Returns false if it was already claimed.
func (s *NotificationStore) Claim(_ context.Context, user, key string) (bool, error) {
	if user == "" || key == "" {
		return false, storage.ErrInvalidInput
	}

	u := s.user(user)
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, ok := u.claimed[key]; ok {
		return false, nil
	}
	u.claimed[key] = struct{}{}
	return true, nil
}

// Push prepends n and trims the list to limit.
func (s *NotificationStore) Push(_ context.Context, user string, n *domain.Notification, limit int) error {
	if user == "" || n == nil || n.ID == "" {
		return storage.ErrInvalidInput
	}

	u := s.user(user)
	u.mu.Lock()
	defer u.mu.Unlock()

	copy := *n
	u.items = append([]*domain.Notification{&copy}, u.items...)
	if !copy.Read {
		u.unread++
	}

	if limit > 0 && len(u.items) > limit {
		for _, dropped := range u.items[limit:] {
			if !dropped.Read && u.unread > 0 {
				u.unread--
			}
		}
		u.items = u.items[:limit]
	}
	return nil
}

// List returns up to limit notifications, newest first.
func (s *NotificationStore) List(_ context.Context, user string, limit int) ([]*domain.Notification, error) {
	u := s.user(user)
	u.mu.Lock()
	defer u.mu.Unlock()

	n := len(u.items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*domain.Notification, n)
	for i := 0; i < n; i++ {
		copy := *u.items[i]
		out[i] = &copy
	}
	return out, nil
}

// UnreadCount returns the unread counter.
func (s *NotificationStore) UnreadCount(_ context.Context, user string) (int, error) {
	u := s.user(user)
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.unread, nil
}

// MarkRead marks one notification read.
func (s *NotificationStore) MarkRead(_ context.Context, user, id string) error {
	u := s.user(user)
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, n := range u.items {
		if n.ID != id {
			continue
		}
		if !n.Read {
			n.Read = true
			if u.unread > 0 {
				u.unread--
			}
		}
		return nil
	}
	return storage.ErrNotFound
}

// MarkAllRead marks every notification read.
func (s *NotificationStore) MarkAllRead(_ context.Context, user string) error {
	u := s.user(user)
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, n := range u.items {
		n.Read = true
	}
	u.unread = 0
	return nil
}

// Clear removes every notification. Dedup claims are kept.
func (s *NotificationStore) Clear(_ context.Context, user string) error {
	u := s.user(user)
	u.mu.Lock()
	defer u.mu.Unlock()

	u.items = nil
	u.unread = 0
	return nil
}

package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/storage"
)

// NotificationStore implements storage.NotificationStore on Redis.
//
// Keys:
//
//	notifications:{user}             LIST of JSON notifications, newest first
//	notifications:{user}:unread      counter
//	notifications:{user}:claim:{key} dedup marker, expires after claimTTL
//
// Mutations that touch both the list and the counter run as Lua scripts so
// concurrent emits for the same user cannot skew the counter.
type NotificationStore struct {
	rdb      *Client
	claimTTL time.Duration
}

// NewNotificationStore creates a new Redis-backed notification store.
func NewNotificationStore(rdb *Client, claimTTL time.Duration) *NotificationStore {
	if claimTTL <= 0 {
		claimTTL = 7 * 24 * time.Hour
	}
	return &NotificationStore{rdb: rdb, claimTTL: claimTTL}
}

var _ storage.NotificationStore = (*NotificationStore)(nil)

func listKey(user string) string   { return "notifications:" + user }
func unreadKey(user string) string { return "notifications:" + user + ":unread" }
func claimKey(user, key string) string {
	return "notifications:" + user + ":claim:" + key
}

// pushScript: KEYS[1]=list KEYS[2]=unread ARGV[1]=json ARGV[2]=limit ARGV[3]=1 if unread.
var pushScript = redis.NewScript(`
redis.call('LPUSH', KEYS[1], ARGV[1])
local unread = tonumber(redis.call('GET', KEYS[2]) or '0') + tonumber(ARGV[3])
local limit = tonumber(ARGV[2])
if limit > 0 then
  local dropped = redis.call('LRANGE', KEYS[1], limit, -1)
  for _, raw in ipairs(dropped) do
    if not cjson.decode(raw).read then unread = unread - 1 end
  end
  redis.call('LTRIM', KEYS[1], 0, limit - 1)
end
if unread < 0 then unread = 0 end
redis.call('SET', KEYS[2], unread)
return unread
`)

// markReadScript: KEYS[1]=list KEYS[2]=unread ARGV[1]=id. Returns -1 when the id is unknown.
var markReadScript = redis.NewScript(`
local items = redis.call('LRANGE', KEYS[1], 0, -1)
for i, raw in ipairs(items) do
  local n = cjson.decode(raw)
  if n.id == ARGV[1] then
    if not n.read then
      n.read = true
      redis.call('LSET', KEYS[1], i - 1, cjson.encode(n))
      local unread = tonumber(redis.call('GET', KEYS[2]) or '0') - 1
      if unread < 0 then unread = 0 end
      redis.call('SET', KEYS[2], unread)
    end
    return 1
  end
end
return -1
`)

// markAllReadScript: KEYS[1]=list KEYS[2]=unread.
var markAllReadScript = redis.NewScript(`
local items = redis.call('LRANGE', KEYS[1], 0, -1)
for i, raw in ipairs(items) do
  local n = cjson.decode(raw)
  if not n.read then
    n.read = true
    redis.call('LSET', KEYS[1], i - 1, cjson.encode(n))
  end
end
redis.call('SET', KEYS[2], 0)
return #items
`)

// Claim records a dedup key with SET NX.
func (s *NotificationStore) Claim(ctx context.Context, user, key string) (bool, error) {
	if user == "" || key == "" {
		return false, storage.ErrInvalidInput
	}
	ok, err := s.rdb.SetNX(ctx, claimKey(user, key), 1, s.claimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX claim: %w", err)
	}
	return ok, nil
}

// Push prepends n, trims to limit and adjusts the unread counter atomically.
func (s *NotificationStore) Push(ctx context.Context, user string, n *domain.Notification, limit int) error {
	if user == "" || n == nil || n.ID == "" {
		return storage.ErrInvalidInput
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	unread := 1
	if n.Read {
		unread = 0
	}
	if err := pushScript.Run(ctx, s.rdb, []string{listKey(user), unreadKey(user)}, data, limit, unread).Err(); err != nil {
		return fmt.Errorf("redis push notification: %w", err)
	}
	return nil
}

// List returns up to limit notifications, newest first.
func (s *NotificationStore) List(ctx context.Context, user string, limit int) ([]*domain.Notification, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	raw, err := s.rdb.LRange(ctx, listKey(user), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis LRANGE: %w", err)
	}

	out := make([]*domain.Notification, 0, len(raw))
	for _, item := range raw {
		var n domain.Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			continue
		}
		out = append(out, &n)
	}
	return out, nil
}

// UnreadCount returns the unread counter; a missing key is zero.
func (s *NotificationStore) UnreadCount(ctx context.Context, user string) (int, error) {
	n, err := s.rdb.Get(ctx, unreadKey(user)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis GET unread: %w", err)
	}
	return n, nil
}

// MarkRead marks one notification read.
func (s *NotificationStore) MarkRead(ctx context.Context, user, id string) error {
	res, err := markReadScript.Run(ctx, s.rdb, []string{listKey(user), unreadKey(user)}, id).Int()
	if err != nil {
		return fmt.Errorf("redis mark read: %w", err)
	}
	if res < 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkAllRead marks every notification read and zeroes the counter.
func (s *NotificationStore) MarkAllRead(ctx context.Context, user string) error {
	if err := markAllReadScript.Run(ctx, s.rdb, []string{listKey(user), unreadKey(user)}).Err(); err != nil {
		return fmt.Errorf("redis mark all read: %w", err)
	}
	return nil
}

// Clear deletes the list and the counter. Dedup claims expire on their own.
func (s *NotificationStore) Clear(ctx context.Context, user string) error {
	if err := s.rdb.Del(ctx, listKey(user), unreadKey(user)).Err(); err != nil {
		return fmt.Errorf("redis DEL notifications: %w", err)
	}
	return nil
}

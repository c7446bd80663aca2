package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const inboxKey = "notifications:recent"

// Inbox keeps the most recent toasts so the dashboard can poll for them.
type Inbox interface {
	Notifier
	Recent(ctx context.Context, limit int) ([]Toast, error)
}

// RedisInbox stores toasts in a capped Redis list, newest first.
type RedisInbox struct {
	client *redis.Client
	key    string
	size   int64
}

// NewRedisInbox builds an inbox holding at most size toasts.
func NewRedisInbox(client *redis.Client, prefix string, size int) *RedisInbox {
	if size <= 0 {
		size = 50
	}
	return &RedisInbox{client: client, key: prefix + inboxKey, size: int64(size)}
}

// Notify pushes the toast and trims the list.
func (i *RedisInbox) Notify(ctx context.Context, toast Toast) error {
	if toast.CreatedAt.IsZero() {
		toast.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(toast)
	if err != nil {
		return err
	}
	pipe := i.client.TxPipeline()
	pipe.LPush(ctx, i.key, payload)
	pipe.LTrim(ctx, i.key, 0, i.size-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push notification: %w", err)
	}
	return nil
}

// Recent returns up to limit toasts, newest first.
func (i *RedisInbox) Recent(ctx context.Context, limit int) ([]Toast, error) {
	if limit <= 0 || int64(limit) > i.size {
		limit = int(i.size)
	}
	raw, err := i.client.LRange(ctx, i.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read notifications: %w", err)
	}
	toasts := make([]Toast, 0, len(raw))
	for _, item := range raw {
		var t Toast
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			continue
		}
		toasts = append(toasts, t)
	}
	return toasts, nil
}

type memoryInbox struct {
	mu     sync.Mutex
	toasts []Toast
	size   int
}

// NewMemoryInbox builds an in-process inbox holding at most size toasts.
func NewMemoryInbox(size int) Inbox {
	if size <= 0 {
		size = 50
	}
	return &memoryInbox{size: size}
}

func (i *memoryInbox) Notify(_ context.Context, toast Toast) error {
	if toast.CreatedAt.IsZero() {
		toast.CreatedAt = time.Now().UTC()
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.toasts = append([]Toast{toast}, i.toasts...)
	if len(i.toasts) > i.size {
		i.toasts = i.toasts[:i.size]
	}
	return nil
}

func (i *memoryInbox) Recent(_ context.Context, limit int) ([]Toast, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if limit <= 0 || limit > len(i.toasts) {
		limit = len(i.toasts)
	}
	out := make([]Toast, limit)
	copy(out, i.toasts[:limit])
	return out, nil
}

// ForUser keeps the toasts addressed to userID, in order, up to limit. A
// non-positive limit keeps all of them.
func ForUser(toasts []Toast, userID string, limit int) []Toast {
	out := make([]Toast, 0, len(toasts))
	if userID == "" {
		return out
	}
	for _, t := range toasts {
		if t.UserID != userID {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

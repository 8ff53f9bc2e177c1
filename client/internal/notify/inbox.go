// Package notify keeps the local notification inbox and its unread count.
package notify

import (
	"context"
	"fmt"
	"sync"

	"zestro/client/internal/api"
	"zestro/domain"
)

// DefaultLimit is how many notifications Load fetches.
const DefaultLimit = 20

type API interface {
	Notifications(ctx context.Context, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context) (int64, error)
}

var _ API = (*api.Client)(nil)

type Inbox struct {
	api API

	mu     sync.RWMutex
	items  []domain.Notification
	unread int
}

func NewInbox(client API) *Inbox {
	return &Inbox{api: client}
}

// Load replaces the inbox with the server's latest notifications. On failure
// the current items are kept.
func (in *Inbox) Load(ctx context.Context) error {
	list, err := in.api.Notifications(ctx, DefaultLimit)
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}

	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}

	in.mu.Lock()
	in.items = append([]domain.Notification(nil), list...)
	in.unread = unread
	in.mu.Unlock()
	return nil
}

// Push prepends a pushed notification. A notification already present is
// ignored.
func (in *Inbox) Push(n domain.Notification) bool {
	in.mu.Lock()
	defer in.mu.Unlock()

	for _, existing := range in.items {
		if existing.ID == n.ID {
			return false
		}
	}
	in.items = append([]domain.Notification{n}, in.items...)
	if !n.Read {
		in.unread++
	}
	return true
}

// MarkRead marks one notification read on the server, then locally.
func (in *Inbox) MarkRead(ctx context.Context, id string) error {
	if _, err := in.api.MarkRead(ctx, id); err != nil {
		return err
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	for i := range in.items {
		if in.items[i].ID != id {
			continue
		}
		if !in.items[i].Read {
			in.items[i].Read = true
			in.unread--
		}
		break
	}
	return nil
}

func (in *Inbox) MarkAllRead(ctx context.Context) error {
	if _, err := in.api.MarkAllRead(ctx); err != nil {
		return err
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	for i := range in.items {
		in.items[i].Read = true
	}
	in.unread = 0
	return nil
}

// Items returns the notifications, newest first.
func (in *Inbox) Items() []domain.Notification {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return append([]domain.Notification(nil), in.items...)
}

func (in *Inbox) Unread() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.unread
}

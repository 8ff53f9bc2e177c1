package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"zestro/client/internal/api"
	"zestro/client/internal/cart"
	"zestro/client/internal/notify"
	"zestro/client/internal/orders"
	"zestro/client/internal/realtime"
	"zestro/domain"
	"zestro/lifecycle"
)

// Workspace is everything that belongs to one signed-in identity. It is built
// at login and closed at logout; nothing in it outlives the identity.
type Workspace struct {
	Identity domain.Identity
	Caps     lifecycle.Capability
	API      *api.Client
	Cart     *cart.Store
	Orders   *orders.Engine
	Inbox    *notify.Inbox
	Channel  *realtime.Channel

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func (w *Workspace) Token() string {
	return w.API.Token()
}

// CartCount is the cart badge; identities without a cart always report 0.
func (w *Workspace) CartCount() int {
	if w.Cart == nil {
		return 0
	}
	return w.Cart.Count()
}

// Refresh re-fetches the order views and the inbox. Each part keeps its
// previous state when its fetch fails.
func (w *Workspace) Refresh(ctx context.Context) error {
	return errors.Join(w.Orders.Refresh(ctx), w.Inbox.Load(ctx))
}

// RestaurantProfile loads the restaurant owned by a Restaurant identity.
// exists is false when the owner has not created one yet.
func (w *Workspace) RestaurantProfile(ctx context.Context) (*domain.Restaurant, bool, error) {
	r, err := w.API.MyRestaurant(ctx)
	if errors.Is(err, lifecycle.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load restaurant profile: %w", err)
	}
	w.Orders.SetRestaurant(r.ID)
	return r, true, nil
}

func (w *Workspace) start(ctx context.Context) {
	if w.Cart != nil {
		if err := w.Cart.Watch(ctx); err != nil {
			log.Printf("[session] cart sync disabled for %s: %v", w.Identity.ID, err)
		}
	}
	if w.Channel != nil {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.Channel.Run(ctx)
		}()
	}
}

// Close stops the sync channel and cart watcher. It is safe to call twice.
func (w *Workspace) Close() {
	w.once.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		w.wg.Wait()
		w.API.SetToken("")
	})
}

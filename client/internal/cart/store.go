// Package cart stages a customer's menu items before an order is placed. The
// cart is scoped to one identity and persisted in Redis so that every client
// instance of that identity sees the same lines.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"zestro/domain"
)

// Cart is an immutable view of the staged lines.
type Cart struct {
	RestaurantID string            `json:"restaurantId"`
	Lines        []domain.CartLine `json:"lines"`
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Item.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

func (c Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

func (c Cart) Empty() bool {
	return len(c.Lines) == 0
}

func (c Cart) clone() Cart {
	out := Cart{RestaurantID: c.RestaurantID}
	out.Lines = append([]domain.CartLine(nil), c.Lines...)
	return out
}

// ConfirmFunc is asked before a cart from currentID is discarded to stage an
// item from nextID.
type ConfirmFunc func(currentID, nextID string) bool

type Store struct {
	rdb        *redis.Client
	identityID string
	instance   string

	mu        sync.Mutex
	cart      Cart
	count     int
	observers []func(count int)
}

func Key(identityID string) string {
	return fmt.Sprintf("zestro:cart:%s", identityID)
}

func SyncChannel(identityID string) string {
	return Key(identityID) + ":sync"
}

// Open loads the persisted cart of identityID.
func Open(ctx context.Context, rdb *redis.Client, identityID string) (*Store, error) {
	s := &Store{
		rdb:        rdb,
		identityID: identityID,
		instance:   uuid.NewString(),
	}
	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.cart = c
	s.count = c.Count()
	return s, nil
}

func (s *Store) load(ctx context.Context) (Cart, error) {
	raw, err := s.rdb.Get(ctx, Key(s.identityID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Cart{}, nil
	}
	if err != nil {
		return Cart{}, fmt.Errorf("load cart %s: %w", s.identityID, err)
	}
	var c Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		log.Printf("[cart] dropping unreadable cart for %s: %v", s.identityID, err)
		return Cart{}, nil
	}
	return c, nil
}

// commit persists next, announces it to other instances and only then makes
// it the local state. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, next Cart) error {
	if next.Empty() {
		next.RestaurantID = ""
		if err := s.rdb.Del(ctx, Key(s.identityID)).Err(); err != nil {
			return fmt.Errorf("save cart %s: %w", s.identityID, err)
		}
	} else {
		payload, err := json.Marshal(next)
		if err != nil {
			return err
		}
		if err := s.rdb.Set(ctx, Key(s.identityID), payload, 0).Err(); err != nil {
			return fmt.Errorf("save cart %s: %w", s.identityID, err)
		}
	}
	if err := s.rdb.Publish(ctx, SyncChannel(s.identityID), s.instance).Err(); err != nil {
		log.Printf("[cart] sync signal for %s: %v", s.identityID, err)
	}

	s.cart = next
	s.setCount(next.Count())
	return nil
}

func (s *Store) setCount(n int) {
	s.count = n
	for _, fn := range s.observers {
		fn(n)
	}
}

// Add stages one unit of item. It reports false without error when the
// cart belongs to another restaurant and confirm declines to replace it.
func (s *Store) Add(ctx context.Context, item domain.MenuItem, restaurantID string, confirm ConfirmFunc) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cart.clone()
	if !next.Empty() && next.RestaurantID != restaurantID {
		if confirm == nil || !confirm(next.RestaurantID, restaurantID) {
			return false, nil
		}
		next = Cart{}
	}
	next.RestaurantID = restaurantID

	found := false
	for i := range next.Lines {
		if next.Lines[i].Item.ID == item.ID {
			next.Lines[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		next.Lines = append(next.Lines, domain.CartLine{Item: item, Quantity: 1, RestaurantID: restaurantID})
	}

	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// SetQuantity sets the quantity of a staged item; qty <= 0 removes it and an
// unknown item is ignored.
func (s *Store) SetQuantity(ctx context.Context, itemID string, qty int) error {
	if qty <= 0 {
		return s.Remove(ctx, itemID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cart.clone()
	for i := range next.Lines {
		if next.Lines[i].Item.ID == itemID {
			next.Lines[i].Quantity = qty
			return s.commit(ctx, next)
		}
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := Cart{RestaurantID: s.cart.RestaurantID}
	removed := false
	for _, l := range s.cart.Lines {
		if l.Item.ID == itemID {
			removed = true
			continue
		}
		next.Lines = append(next.Lines, l)
	}
	if !removed {
		return nil
	}
	return s.commit(ctx, next)
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, Cart{})
}

func (s *Store) Snapshot() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.clone()
}

// Count is the badge count, kept in step with every mutation and sync signal.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// OnChange registers fn to receive the new count after every change. fn runs
// with the store locked and must not call back into it.
func (s *Store) OnChange(fn func(count int)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Watch subscribes to the sync channel and reloads the cart whenever another
// instance changes it. It returns once the subscription is live; the reload
// loop runs until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	sub := s.rdb.Subscribe(ctx, SyncChannel(s.identityID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("watch cart %s: %w", s.identityID, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg.Payload == s.instance {
					continue
				}
				s.reload(ctx)
			}
		}
	}()
	return nil
}

func (s *Store) reload(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx)
	if err != nil {
		log.Printf("[cart] reload: %v", err)
		return
	}
	s.cart = c
	s.setCount(c.Count())
}

// Discard deletes the persisted cart, used on logout.
func (s *Store) Discard(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rdb.Del(ctx, Key(s.identityID)).Err(); err != nil {
		return fmt.Errorf("discard cart %s: %w", s.identityID, err)
	}
	s.cart = Cart{}
	s.setCount(0)
	return nil
}

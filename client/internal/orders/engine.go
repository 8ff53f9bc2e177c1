// Package orders drives the order lifecycle from the client: it validates
// requests locally with the shared lifecycle rules, calls the API and keeps
// the local Board in step.
package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"zestro/client/internal/api"
	"zestro/client/internal/cart"
	"zestro/domain"
	"zestro/lifecycle"
)

type API interface {
	CreateOrder(ctx context.Context, restaurantID string, lines []api.OrderLine) (*domain.Order, error)
	MyOrders(ctx context.Context) ([]domain.Order, error)
	AvailableOrders(ctx context.Context) ([]domain.Order, error)
	AcceptOrder(ctx context.Context, id string) (*domain.Order, error)
	ClaimOrder(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.Order, error)
}

type Cart interface {
	Snapshot() cart.Cart
	Clear(ctx context.Context) error
}

var _ API = (*api.Client)(nil)
var _ Cart = (*cart.Store)(nil)

type Engine struct {
	api   API
	cart  Cart
	caps  lifecycle.Capability
	board *Board

	mu    sync.RWMutex
	actor lifecycle.Actor
}

// NewEngine builds the engine for actor. c may be nil for roles without a
// cart.
func NewEngine(client API, c Cart, actor lifecycle.Actor) (*Engine, error) {
	caps, ok := lifecycle.CapabilitiesOf(actor.Role)
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", lifecycle.ErrUnauthorized, actor.Role)
	}
	return &Engine{
		api:   client,
		cart:  c,
		caps:  caps,
		board: NewBoard(),
		actor: actor,
	}, nil
}

func (e *Engine) Board() *Board {
	return e.board
}

func (e *Engine) Actor() lifecycle.Actor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.actor
}

// SetRestaurant records the restaurant a Restaurant actor owns once it is
// known, enabling ownership checks before requests go out.
func (e *Engine) SetRestaurant(id string) {
	e.mu.Lock()
	e.actor.RestaurantID = id
	e.mu.Unlock()
}

// Place submits the cart as a new order and clears the cart on success.
func (e *Engine) Place(ctx context.Context) (*domain.Order, error) {
	if !e.caps.CanPlace || e.cart == nil {
		return nil, fmt.Errorf("%w: %s cannot place orders", lifecycle.ErrUnauthorized, e.caps.Role)
	}

	snap := e.cart.Snapshot()
	if snap.Empty() {
		return nil, lifecycle.ErrEmptyCart
	}
	if snap.RestaurantID == "" {
		return nil, lifecycle.ErrMissingRestaurant
	}

	lines := make([]api.OrderLine, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		lines = append(lines, api.OrderLine{MenuItemID: l.Item.ID, Quantity: l.Quantity})
	}

	order, err := e.api.CreateOrder(ctx, snap.RestaurantID, lines)
	if err != nil {
		return nil, err
	}
	e.board.InsertCreated(*order)

	if err := e.cart.Clear(ctx); err != nil {
		return order, fmt.Errorf("order %s placed but cart not cleared: %w", order.ID, err)
	}
	return order, nil
}

// check pre-validates a status change against the local copy, when there is
// one. Without a local copy only the role is checked and the server decides.
func (e *Engine) check(id string, to domain.Status) error {
	if !e.caps.Allows(to) {
		return fmt.Errorf("%w: %s cannot set %s", lifecycle.ErrUnauthorized, e.caps.Role, to)
	}
	o, ok := e.board.Find(id)
	if !ok {
		return nil
	}
	actor := e.Actor()
	if actor.Role == domain.RoleRestaurant && actor.RestaurantID == "" {
		return lifecycle.CheckTransition(o.Status, to)
	}
	return lifecycle.Authorize(o, actor, to)
}

func (e *Engine) Accept(ctx context.Context, id string) (*domain.Order, error) {
	if err := e.check(id, domain.StatusAccepted); err != nil {
		return nil, err
	}
	order, err := e.api.AcceptOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	e.board.Upsert(*order)
	return order, nil
}

func (e *Engine) UpdateStatus(ctx context.Context, id string, to domain.Status) (*domain.Order, error) {
	if err := e.check(id, to); err != nil {
		return nil, err
	}
	order, err := e.api.UpdateStatus(ctx, id, to)
	if err != nil {
		return nil, err
	}
	e.board.Upsert(*order)
	return order, nil
}

func (e *Engine) Claim(ctx context.Context, id string) (*domain.Order, error) {
	if !e.caps.CanClaim {
		return nil, fmt.Errorf("%w: only riders claim orders", lifecycle.ErrUnauthorized)
	}
	if o, ok := e.board.Find(id); ok {
		if err := lifecycle.CheckClaim(o, e.Actor()); err != nil {
			return nil, err
		}
	}
	order, err := e.api.ClaimOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	e.board.Upsert(*order)
	return order, nil
}

// Refresh re-fetches the views. On failure the previous state is kept.
func (e *Engine) Refresh(ctx context.Context) error {
	mine, err := e.api.MyOrders(ctx)
	if err != nil {
		return fmt.Errorf("refresh orders: %w", err)
	}

	var (
		available    []domain.Order
		availableErr error
	)
	if e.caps.CanClaim {
		available, availableErr = e.api.AvailableOrders(ctx)
		if availableErr != nil && !errors.Is(availableErr, lifecycle.ErrUnauthorized) {
			return fmt.Errorf("refresh available orders: %w", availableErr)
		}
	}

	e.board.ReplaceMine(mine)
	if e.caps.CanClaim && availableErr == nil {
		e.board.ReplaceAvailable(available)
	}
	return nil
}

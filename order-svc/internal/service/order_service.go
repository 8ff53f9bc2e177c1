package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"zestro/domain"
	"zestro/lifecycle"
)

type OrderService struct {
	orders      OrderRepository
	menu        MenuRepository
	restaurants RestaurantRepository
	notifier    Notifier
	publisher   EventPublisher
	qrEncoder   QRGenerator
	now         func() time.Time
}

func NewOrderService(
	orders OrderRepository,
	menu MenuRepository,
	restaurants RestaurantRepository,
	notifier Notifier,
	publisher EventPublisher,
	qr QRGenerator,
) *OrderService {
	return &OrderService{
		orders:      orders,
		menu:        menu,
		restaurants: restaurants,
		notifier:    notifier,
		publisher:   publisher,
		qrEncoder:   qr,
		now:         time.Now,
	}
}

// WithClock replaces the time source.
func (s *OrderService) WithClock(now func() time.Time) *OrderService {
	s.now = now
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolve fills in the restaurant a Restaurant actor owns. An owner without a
// restaurant keeps an empty RestaurantID and fails every ownership check.
func (s *OrderService) resolve(ctx context.Context, actor lifecycle.Actor) (lifecycle.Actor, error) {
	if actor.Role != domain.RoleRestaurant || actor.RestaurantID != "" {
		return actor, nil
	}
	rest, err := s.restaurants.GetRestaurantByOwner(ctx, actor.ID)
	if errors.Is(err, lifecycle.ErrNotFound) {
		return actor, nil
	}
	if err != nil {
		return actor, err
	}
	actor.RestaurantID = rest.ID
	return actor, nil
}

func (s *OrderService) Create(ctx context.Context, actor lifecycle.Actor, req CreateOrderRequest) (*domain.Order, error) {
	if actor.Role != domain.RoleCustomer {
		return nil, fmt.Errorf("%w: only customers place orders", lifecycle.ErrUnauthorized)
	}
	if len(req.Items) == 0 {
		return nil, lifecycle.ErrEmptyCart
	}
	if req.RestaurantID == "" {
		return nil, lifecycle.ErrMissingRestaurant
	}

	rest, err := s.restaurants.GetRestaurant(ctx, req.RestaurantID)
	if errors.Is(err, lifecycle.ErrNotFound) {
		return nil, fmt.Errorf("%w: restaurant %s does not exist", lifecycle.ErrMissingRestaurant, req.RestaurantID)
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	quantities := make(map[string]int)
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for %s must be positive", ErrInvalidInput, line.MenuItemID)
		}
		if _, seen := quantities[line.MenuItemID]; !seen {
			ids = append(ids, line.MenuItemID)
		}
		quantities[line.MenuItemID] += line.Quantity
	}

	menuItems, err := s.menu.GetMenuItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.MenuItem, len(menuItems))
	for _, m := range menuItems {
		byID[m.ID] = m
	}

	items := make([]domain.OrderItem, 0, len(ids))
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: menu item %s", lifecycle.ErrNotFound, id)
		}
		if m.RestaurantID != rest.ID {
			return nil, fmt.Errorf("%w: menu item %s is served by another restaurant", lifecycle.ErrMissingRestaurant, id)
		}
		items = append(items, domain.OrderItem{
			MenuItemID: m.ID,
			Name:       m.Name,
			Quantity:   quantities[id],
			Price:      m.Price,
		})
	}

	order, err := lifecycle.NewOrder(actor, rest.ID, items, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.orders.CreateOrder(ctx, &order); err != nil {
		return nil, err
	}

	if s.qrEncoder != nil {
		if qr, err := s.qrEncoder.Generate(order.ID); err == nil {
			_ = s.orders.SaveQRCode(ctx, order.ID, qr)
		}
	}

	s.publish(ctx, domain.Event{
		Type:       domain.EventOrderCreated,
		OrderID:    order.ID,
		Status:     order.Status,
		Order:      &order,
		Recipients: []string{rest.OwnerID},
		Timestamp:  order.CreatedAt,
	})
	s.notify(ctx, rest.OwnerID, order.ID, fmt.Sprintf("New order #%s received", shortID(order.ID)))

	log.Printf("[order-svc] order %s placed by %s at restaurant %s, total %s", order.ID, actor.ID, rest.ID, order.Total)
	return &order, nil
}

func (s *OrderService) ListMine(ctx context.Context, actor lifecycle.Actor) ([]domain.Order, error) {
	actor, err := s.resolve(ctx, actor)
	if err != nil {
		return nil, err
	}

	var filter OrderFilter
	switch actor.Role {
	case domain.RoleCustomer:
		filter.CustomerID = actor.ID
	case domain.RoleRestaurant:
		if actor.RestaurantID == "" {
			return []domain.Order{}, nil
		}
		filter.RestaurantID = actor.RestaurantID
	case domain.RoleRider:
		filter.RiderID = actor.ID
	default:
		return nil, lifecycle.ErrUnauthorized
	}
	return s.orders.ListOrders(ctx, filter)
}

func (s *OrderService) ListAvailable(ctx context.Context, actor lifecycle.Actor) ([]domain.Order, error) {
	if actor.Role != domain.RoleRider {
		return nil, fmt.Errorf("%w: only riders see available orders", lifecycle.ErrUnauthorized)
	}
	return s.orders.ListOrders(ctx, OrderFilter{
		Unassigned: true,
		Statuses:   lifecycle.ClaimableStatuses(),
	})
}

func canView(o domain.Order, actor lifecycle.Actor) bool {
	switch actor.Role {
	case domain.RoleCustomer:
		return o.CustomerID == actor.ID
	case domain.RoleRestaurant:
		return actor.RestaurantID != "" && o.RestaurantID == actor.RestaurantID
	case domain.RoleRider:
		return o.RiderID == actor.ID || (!o.Assigned() && lifecycle.Claimable(o.Status))
	}
	return false
}

func (s *OrderService) Get(ctx context.Context, actor lifecycle.Actor, id string) (*domain.Order, error) {
	actor, err := s.resolve(ctx, actor)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(*order, actor) {
		return nil, fmt.Errorf("%w: order %s", lifecycle.ErrUnauthorized, id)
	}
	return order, nil
}

func (s *OrderService) Accept(ctx context.Context, actor lifecycle.Actor, id string) (*domain.Order, error) {
	return s.UpdateStatus(ctx, actor, id, domain.StatusAccepted)
}

func (s *OrderService) UpdateStatus(ctx context.Context, actor lifecycle.Actor, id string, to domain.Status) (*domain.Order, error) {
	actor, err := s.resolve(ctx, actor)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	from := order.Status
	now := s.now().UTC()
	if err := lifecycle.Transition(order, actor, to, now); err != nil {
		return nil, err
	}

	rows, err := s.orders.UpdateStatus(ctx, id, from, to, now)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: order %s is no longer %s", lifecycle.ErrInvalidTransition, id, from)
	}

	s.announceStatus(ctx, *order)
	log.Printf("[order-svc] order %s moved %s -> %s by %s", id, from, to, actor.ID)
	return order, nil
}

func (s *OrderService) Claim(ctx context.Context, actor lifecycle.Actor, id string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := lifecycle.Claim(order, actor, now); err != nil {
		return nil, err
	}

	rows, err := s.orders.AssignRider(ctx, id, actor.ID, now)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		if current, err := s.orders.GetOrder(ctx, id); err == nil && current.Assigned() {
			return nil, fmt.Errorf("%w: order %s", lifecycle.ErrAlreadyAssigned, id)
		}
		return nil, fmt.Errorf("%w: order %s is no longer claimable", lifecycle.ErrInvalidTransition, id)
	}

	recipients := []string{order.CustomerID}
	if owner := s.ownerOf(ctx, order.RestaurantID); owner != "" {
		recipients = append(recipients, owner)
	}
	s.publish(ctx, domain.Event{
		Type:       domain.EventAssignmentChanged,
		OrderID:    order.ID,
		Status:     order.Status,
		RiderID:    order.RiderID,
		Order:      order,
		Recipients: recipients,
		Roles:      []domain.Role{domain.RoleRider},
		Timestamp:  now,
	})
	s.notify(ctx, order.CustomerID, order.ID, fmt.Sprintf("A rider has been assigned to your order #%s", shortID(order.ID)))

	log.Printf("[order-svc] order %s claimed by rider %s", id, actor.ID)
	return order, nil
}

func (s *OrderService) announceStatus(ctx context.Context, order domain.Order) {
	recipients := []string{order.CustomerID}
	if owner := s.ownerOf(ctx, order.RestaurantID); owner != "" {
		recipients = append(recipients, owner)
	}
	if order.Assigned() {
		recipients = append(recipients, order.RiderID)
	}

	update := domain.Event{
		Type:       domain.EventStatusChanged,
		OrderID:    order.ID,
		Status:     order.Status,
		RiderID:    order.RiderID,
		Order:      &order,
		Recipients: recipients,
		Timestamp:  order.UpdatedAt,
	}
	events := []domain.Event{update}

	// Riders keep their available list in step while the order is open.
	if !order.Assigned() && lifecycle.Claimable(order.Status) {
		events[0].Roles = []domain.Role{domain.RoleRider}
		if order.Status == domain.StatusAccepted {
			events = append(events, domain.Event{
				Type:      domain.EventAssignmentChanged,
				OrderID:   order.ID,
				Status:    order.Status,
				Order:     &order,
				Roles:     []domain.Role{domain.RoleRider},
				Timestamp: order.UpdatedAt,
			})
		}
	}

	s.publish(ctx, events...)
	s.notify(ctx, order.CustomerID, order.ID, fmt.Sprintf("Your order #%s is now %s", shortID(order.ID), order.Status))
}

func (s *OrderService) ownerOf(ctx context.Context, restaurantID string) string {
	rest, err := s.restaurants.GetRestaurant(ctx, restaurantID)
	if err != nil {
		log.Printf("[order-svc] lookup restaurant %s: %v", restaurantID, err)
		return ""
	}
	return rest.OwnerID
}

func (s *OrderService) publish(ctx context.Context, events ...domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		log.Printf("[order-svc] publish %d event(s): %v", len(events), err)
	}
}

func (s *OrderService) notify(ctx context.Context, userID, orderID, message string) {
	if s.notifier == nil || userID == "" {
		return
	}
	if err := s.notifier.Notify(ctx, userID, orderID, message); err != nil {
		log.Printf("[order-svc] notify %s about order %s: %v", userID, orderID, err)
	}
}

func (s *OrderService) GetQRCode(ctx context.Context, id string) ([]byte, error) {
	qr, err := s.orders.GetQRCode(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(qr) == 0 && s.qrEncoder != nil {
		if regenerated, err := s.qrEncoder.Generate(id); err == nil {
			_ = s.orders.SaveQRCode(ctx, id, regenerated)
			return regenerated, nil
		}
	}
	return qr, nil
}

func (s *OrderService) QRLink(id string) string {
	return fmt.Sprintf("/api/orders/%s/qrcode", id)
}

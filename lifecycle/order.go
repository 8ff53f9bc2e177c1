package lifecycle

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"zestro/domain"
)

// Total sums price * quantity over items.
func Total(items []domain.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// NewOrder builds a PLACED order from a snapshot of priced items. The items
// slice is copied so later menu edits never reach the order.
func NewOrder(actor Actor, restaurantID string, items []domain.OrderItem, now time.Time) (domain.Order, error) {
	if actor.Role != domain.RoleCustomer {
		return domain.Order{}, fmt.Errorf("%w: only customers place orders", ErrUnauthorized)
	}
	if len(items) == 0 {
		return domain.Order{}, ErrEmptyCart
	}
	if restaurantID == "" {
		return domain.Order{}, ErrMissingRestaurant
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return domain.Order{}, fmt.Errorf("%w: quantity for %s must be positive", ErrEmptyCart, it.MenuItemID)
		}
	}

	snapshot := make([]domain.OrderItem, len(items))
	copy(snapshot, items)

	return domain.Order{
		ID:           uuid.NewString(),
		RestaurantID: restaurantID,
		CustomerID:   actor.ID,
		Items:        snapshot,
		Total:        Total(snapshot),
		Status:       domain.StatusPlaced,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Available keeps unassigned orders a rider may still claim.
func Available(orders []domain.Order) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if !o.Assigned() && Claimable(o.Status) {
			out = append(out, o)
		}
	}
	return out
}

// Mine keeps orders assigned to riderID.
func Mine(orders []domain.Order, riderID string) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if riderID != "" && o.RiderID == riderID {
			out = append(out, o)
		}
	}
	return out
}

// Worklist drops delivered orders from a restaurant dashboard.
func Worklist(orders []domain.Order) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status != domain.StatusDelivered {
			out = append(out, o)
		}
	}
	return out
}

// Package lifecycle holds the order state machine shared by order-svc and the
// client: the transition table, claim rules, role capabilities and the derived
// order views.
package lifecycle

import (
	"fmt"
	"time"

	"zestro/domain"
)

// Actor is whoever requests a change. RestaurantID is only set for the
// Restaurant role and names the restaurant the actor owns.
type Actor struct {
	ID           string
	Role         domain.Role
	RestaurantID string
}

type rule struct {
	from     []domain.Status
	to       domain.Status
	role     domain.Role
	assignee bool
}

var rules = []rule{
	{from: []domain.Status{domain.StatusPlaced}, to: domain.StatusAccepted, role: domain.RoleRestaurant},
	{from: []domain.Status{domain.StatusAccepted}, to: domain.StatusPreparing, role: domain.RoleRestaurant},
	{from: []domain.Status{domain.StatusPreparing}, to: domain.StatusReady, role: domain.RoleRestaurant},
	{
		from:     []domain.Status{domain.StatusAccepted, domain.StatusPreparing, domain.StatusReady},
		to:       domain.StatusPicked,
		role:     domain.RoleRider,
		assignee: true,
	},
	{from: []domain.Status{domain.StatusPicked}, to: domain.StatusDelivered, role: domain.RoleRider, assignee: true},
}

// claimable lists the statuses in which an unassigned order may be claimed.
var claimable = []domain.Status{domain.StatusAccepted, domain.StatusPreparing, domain.StatusReady}

func contains(list []domain.Status, s domain.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func ruleFor(from, to domain.Status) (rule, bool) {
	for _, r := range rules {
		if r.to == to && contains(r.from, from) {
			return r, true
		}
	}
	return rule{}, false
}

// CheckTransition reports whether to is reachable from from in one step.
func CheckTransition(from, to domain.Status) error {
	if _, ok := ruleFor(from, to); !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Authorize checks that actor may move o to the target status. It does not
// modify o.
func Authorize(o domain.Order, actor Actor, to domain.Status) error {
	r, ok := ruleFor(o.Status, to)
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	if actor.Role != r.role {
		return fmt.Errorf("%w: %s cannot set %s", ErrUnauthorized, actor.Role, to)
	}
	switch r.role {
	case domain.RoleRestaurant:
		if actor.RestaurantID == "" || actor.RestaurantID != o.RestaurantID {
			return fmt.Errorf("%w: order %s belongs to another restaurant", ErrUnauthorized, o.ID)
		}
	case domain.RoleRider:
		if r.assignee && o.RiderID != actor.ID {
			return fmt.Errorf("%w: order %s is not assigned to rider %s", ErrUnauthorized, o.ID, actor.ID)
		}
	}
	return nil
}

// Transition applies a status change after Authorize succeeds.
func Transition(o *domain.Order, actor Actor, to domain.Status, now time.Time) error {
	if err := Authorize(*o, actor, to); err != nil {
		return err
	}
	o.Status = to
	o.UpdatedAt = now
	return nil
}

// CheckClaim validates a claim without applying it. An assigned order always
// fails with ErrAlreadyAssigned, whatever its status.
func CheckClaim(o domain.Order, actor Actor) error {
	if actor.Role != domain.RoleRider {
		return fmt.Errorf("%w: only riders claim orders", ErrUnauthorized)
	}
	if o.Assigned() {
		return fmt.Errorf("%w: order %s", ErrAlreadyAssigned, o.ID)
	}
	if !contains(claimable, o.Status) {
		return fmt.Errorf("%w: order %s is %s", ErrInvalidTransition, o.ID, o.Status)
	}
	return nil
}

// Claim assigns the rider and leaves the status untouched.
func Claim(o *domain.Order, actor Actor, now time.Time) error {
	if err := CheckClaim(*o, actor); err != nil {
		return err
	}
	o.RiderID = actor.ID
	o.UpdatedAt = now
	return nil
}

// Claimable reports whether s allows a rider claim.
func Claimable(s domain.Status) bool {
	return contains(claimable, s)
}

// ClaimableStatuses returns a copy of the claimable status set.
func ClaimableStatuses() []domain.Status {
	return append([]domain.Status(nil), claimable...)
}

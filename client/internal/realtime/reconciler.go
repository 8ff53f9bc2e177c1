package realtime

import (
	"log"

	"zestro/client/internal/orders"
	"zestro/domain"
)

// Inbox is the notification sink.
type Inbox interface {
	Push(n domain.Notification) bool
}

// Reconciler applies pushed events to the order board and inbox in arrival
// order.
type Reconciler struct {
	Board   *orders.Board
	Inbox   Inbox
	Self    string
	OnEvent func(e domain.Event, changed bool)
}

func (r *Reconciler) Apply(e domain.Event) {
	changed := r.apply(e)
	if r.OnEvent != nil {
		r.OnEvent(e, changed)
	}
}

func (r *Reconciler) apply(e domain.Event) bool {
	switch e.Type {
	case domain.EventOrderCreated:
		if e.Order == nil {
			log.Printf("[realtime] %s without order", e.Type)
			return false
		}
		return r.Board.InsertCreated(*e.Order)

	case domain.EventStatusChanged:
		id := e.OrderID
		if id == "" && e.Order != nil {
			id = e.Order.ID
		}
		if id == "" || e.Status == "" {
			log.Printf("[realtime] %s without order id or status", e.Type)
			return false
		}
		return r.Board.PatchStatus(id, e.Status, e.Timestamp)

	case domain.EventAssignmentChanged:
		if e.Order == nil {
			log.Printf("[realtime] %s without order", e.Type)
			return false
		}
		return r.Board.ApplyAssignment(*e.Order, e.RiderID, r.Self)

	case domain.EventNotification:
		if e.Notification == nil || r.Inbox == nil {
			return false
		}
		return r.Inbox.Push(*e.Notification)
	}

	log.Printf("[realtime] ignoring event type %q", e.Type)
	return false
}

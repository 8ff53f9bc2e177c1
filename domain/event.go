package domain

import "time"

type EventType string

const (
	EventOrderCreated      EventType = "NEW_ORDER"
	EventStatusChanged     EventType = "ORDER_STATUS_UPDATE"
	EventAssignmentChanged EventType = "ORDER_ASSIGNED"
	EventNotification      EventType = "NOTIFICATION"
)

// Event is the envelope carried on the order-events topic and pushed to
// websocket clients. Recipients and Roles address the event; both are
// stripped before the frame reaches a client.
type Event struct {
	Type         EventType     `json:"type"`
	OrderID      string        `json:"orderId,omitempty"`
	Status       Status        `json:"status,omitempty"`
	RiderID      string        `json:"riderId,omitempty"`
	Order        *Order        `json:"order,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
	Recipients   []string      `json:"recipients,omitempty"`
	Roles        []Role        `json:"roles,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// Key selects the Kafka partition key: order events stay in order per order id.
func (e Event) Key() string {
	if e.OrderID != "" {
		return e.OrderID
	}
	if e.Notification != nil {
		return e.Notification.UserID
	}
	if len(e.Recipients) > 0 {
		return e.Recipients[0]
	}
	return string(e.Type)
}

// Public returns a copy without addressing fields.
func (e Event) Public() Event {
	e.Recipients = nil
	e.Roles = nil
	return e
}

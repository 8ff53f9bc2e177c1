package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/segmentio/kafka-go"

	"zestro/domain"
)

type Consumer struct {
	Reader MessageReader
	Hub    Dispatcher
}

func NewConsumer(reader MessageReader, hub Dispatcher) *Consumer {
	return &Consumer{
		Reader: reader,
		Hub:    hub,
	}
}

func (c *Consumer) Start(ctx context.Context) {
	log.Println("[realtime-svc] starting order-events consumer...")
	for {
		message, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				log.Println("[realtime-svc] consumer stopped")
				return
			}
			log.Printf("[realtime-svc] error reading message: %v", err)
			continue
		}
		c.Process(ctx, message)
	}
}

func known(t domain.EventType) bool {
	switch t {
	case domain.EventOrderCreated, domain.EventStatusChanged,
		domain.EventAssignmentChanged, domain.EventNotification:
		return true
	}
	return false
}

func (c *Consumer) Process(ctx context.Context, message kafka.Message) {
	var event domain.Event
	if err := json.Unmarshal(message.Value, &event); err != nil {
		log.Printf("[realtime-svc] error unmarshaling message at offset %d: %v", message.Offset, err)
		return
	}
	if !known(event.Type) {
		log.Printf("[realtime-svc] skipping unknown event type %q", event.Type)
		return
	}
	if len(event.Recipients) == 0 && len(event.Roles) == 0 {
		return
	}

	if err := c.Hub.Dispatch(ctx, event); err != nil {
		log.Printf("[realtime-svc] dispatch %s for order %s: %v", event.Type, event.OrderID, err)
	}
}

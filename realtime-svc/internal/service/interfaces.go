package service

import (
	"context"

	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"

	"zestro/domain"
	"zestro/realtime-svc/internal/hub"
	"zestro/realtime-svc/internal/storage"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, e domain.Event) error
}

type ConnectionHub interface {
	Dispatcher
	Attach(conn *websocket.Conn, userID string, role domain.Role) bool
}

type PresenceStoreInterface interface {
	hub.Presence
	IsOnline(ctx context.Context, userID string, role domain.Role) (bool, error)
	Counts(ctx context.Context) (map[domain.Role]int64, error)
}

type ConsumerInterface interface {
	Start(ctx context.Context)
	Process(ctx context.Context, msg kafka.Message)
}

var (
	_ MessageReader          = (*kafka.Reader)(nil)
	_ ConnectionHub          = (*hub.Hub)(nil)
	_ PresenceStoreInterface = (*storage.PresenceStore)(nil)
	_ ConsumerInterface      = (*Consumer)(nil)
)

package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"zestro/auth"
	"zestro/config"
	httpapi "zestro/realtime-svc/internal/api/http"
	"zestro/realtime-svc/internal/hub"
	"zestro/realtime-svc/internal/service"
	"zestro/realtime-svc/internal/storage"
)

func main() {
	config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := config.MustInitRedis()
	defer rdb.Close()
	presence := storage.NewPresenceStore(rdb)

	h := hub.New(presence)
	go h.Run(ctx)

	reader := config.NewKafkaReader(config.OrderEventsTopic, "realtime-svc")
	defer reader.Close()
	go service.NewConsumer(reader, h).Start(ctx)

	tokens := auth.NewTokens(config.JWTSecret(), config.JWTTTL())
	handler := httpapi.NewHandler(h, presence, tokens)

	log.Println("[realtime-svc] wiring complete")
	httpapi.StartServer(":"+config.Getenv("REALTIME_SVC_PORT", "8082"), httpapi.NewRouter(handler))
}

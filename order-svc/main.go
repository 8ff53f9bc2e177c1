package main

import (
	"log"

	"zestro/auth"
	"zestro/config"
	httpapi "zestro/order-svc/internal/api/http"
	"zestro/order-svc/internal/service"
	"zestro/order-svc/internal/storage"
)

func main() {
	config.Load()

	db := config.MustInitPostgres()
	defer db.Close()

	repo := storage.NewPostgresRepository(db)
	if err := repo.EnsureSchema(); err != nil {
		log.Fatal("Failed to ensure schema:", err)
	}

	writer := config.NewKafkaWriter(config.OrderEventsTopic)
	defer writer.Close()
	publisher := storage.NewKafkaPublisher(writer)

	tokens := auth.NewTokens(config.JWTSecret(), config.JWTTTL())
	qr := service.TrackingQRGenerator{BaseURL: config.Getenv("PUBLIC_BASE_URL", "http://localhost:8080")}

	notifications := service.NewNotificationService(repo, publisher)
	handler := httpapi.NewHandler(
		service.NewAuthService(repo, tokens),
		service.NewCatalogService(repo, repo),
		service.NewOrderService(repo, repo, repo, notifications, publisher, qr),
		notifications,
		tokens,
	)

	httpapi.StartServer(":"+config.Getenv("ORDER_SVC_PORT", "8081"), httpapi.NewRouter(handler))
}

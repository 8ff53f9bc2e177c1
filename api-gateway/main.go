package main

import (
	"log"
	"net/http"
	"time"

	"github.com/rs/cors"

	"zestro/api-gateway/internal/gateway"
	"zestro/config"
)

func main() {
	config.Load()

	cfg := gateway.Config{
		OrderSvcURL:    config.Getenv("ORDER_SVC_URL", "http://localhost:8081"),
		RealtimeSvcURL: config.Getenv("REALTIME_SVC_URL", "http://localhost:8082"),
		FrontendDir:    config.Getenv("FRONTEND_DIR", "./frontend"),
	}

	gw := gateway.NewGateway(cfg, &http.Client{Timeout: 30 * time.Second})

	r := gw.SetupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:8080", "http://127.0.0.1:8080", "*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	handler := c.Handler(r)

	addr := ":" + config.Getenv("GATEWAY_PORT", "8080")
	log.Printf("API Gateway starting on %s", addr)
	log.Fatal(http.ListenAndServe(addr, handler))
}

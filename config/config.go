package config

import (
	"context"
	"database/sql"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

const (
	OrderEventsTopic = "order-events"
	DefaultJWTTTL    = 24 * time.Hour
)

// Load reads a .env file from the working directory when one exists.
// Variables already set in the environment win.
func Load(files ...string) {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		log.Printf("config: failed to read env file: %v", err)
	}
}

func Getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func JWTSecret() string {
	return Getenv("JWT_SECRET", "changeme")
}

func JWTTTL() time.Duration {
	ttl, err := time.ParseDuration(Getenv("JWT_TTL", ""))
	if err != nil || ttl <= 0 {
		return DefaultJWTTTL
	}
	return ttl
}

func KafkaBrokers() []string {
	return strings.Split(Getenv("KAFKA_BROKER", "localhost:9092"), ",")
}

func MustInitPostgres() *sql.DB {
	connStr := "host=" + Getenv("DB_HOST", "localhost") +
		" port=" + Getenv("DB_PORT", "5432") +
		" user=" + Getenv("DB_USER", "postgres") +
		" password=" + os.Getenv("DB_PASSWORD") +
		" dbname=" + Getenv("DB_NAME", "zestro") +
		" sslmode=" + Getenv("DB_SSLMODE", "disable")

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err = db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	return db
}

func MustInitRedis() *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     Getenv("REDIS_HOST", "localhost") + ":" + Getenv("REDIS_PORT", "6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	return client
}

func NewKafkaReader(topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: KafkaBrokers(),
		Topic:   topic,
		GroupID: groupID,
	})
}

// NewKafkaWriter hashes on the message key so every event of one order lands
// on the same partition.
func NewKafkaWriter(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(KafkaBrokers()...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"zestro/lifecycle"
	"zestro/order-svc/internal/service"
)

type PostgresRepository struct {
	DB *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{DB: db}
}

var (
	_ service.UserRepository         = (*PostgresRepository)(nil)
	_ service.RestaurantRepository   = (*PostgresRepository)(nil)
	_ service.MenuRepository         = (*PostgresRepository)(nil)
	_ service.OrderRepository        = (*PostgresRepository)(nil)
	_ service.NotificationRepository = (*PostgresRepository)(nil)
)

// notFound turns sql.ErrNoRows into lifecycle.ErrNotFound naming the entity.
func notFound(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", lifecycle.ErrNotFound, entity, id)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *PostgresRepository) EnsureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			phone TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS restaurants (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL UNIQUE REFERENCES users(id),
			name TEXT NOT NULL,
			cuisine TEXT NOT NULL DEFAULT '',
			banner TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS menu_items (
			id TEXT PRIMARY KEY,
			restaurant_id TEXT NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price NUMERIC(10, 2) NOT NULL,
			image TEXT NOT NULL DEFAULT '',
			veg BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
			customer_id TEXT NOT NULL REFERENCES users(id),
			rider_id TEXT REFERENCES users(id),
			total NUMERIC(12, 2) NOT NULL,
			status TEXT NOT NULL,
			qr_code BYTEA,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			position INT NOT NULL,
			menu_item_id TEXT NOT NULL,
			name TEXT NOT NULL,
			quantity INT NOT NULL,
			price NUMERIC(10, 2) NOT NULL,
			PRIMARY KEY (order_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			order_id TEXT,
			message TEXT NOT NULL,
			read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		"CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status) WHERE rider_id IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at DESC)",
	}
	for _, stmt := range statements {
		if _, err := r.DB.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema `%s`: %w", stmt, err)
		}
	}
	return nil
}

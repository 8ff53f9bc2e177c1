package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"zestro/domain"
	"zestro/lifecycle"
	"zestro/order-svc/internal/service"
)

const orderColumns = "id, restaurant_id, customer_id, COALESCE(rider_id, ''), total, status, created_at, updated_at"

func scanOrder(row interface{ Scan(...any) error }, o *domain.Order) error {
	return row.Scan(&o.ID, &o.RestaurantID, &o.CustomerID, &o.RiderID, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *PostgresRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, restaurant_id, customer_id, rider_id, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		order.ID, order.RestaurantID, order.CustomerID, nullable(order.RiderID),
		order.Total, order.Status, order.CreatedAt, order.UpdatedAt); err != nil {
		return err
	}

	for i, item := range order.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, menu_item_id, name, quantity, price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			order.ID, i, item.MenuItemID, item.Name, item.Quantity, item.Price); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	row := r.DB.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if err := scanOrder(row, &order); err != nil {
		return nil, notFound(err, "order", id)
	}

	orders := []domain.Order{order}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *PostgresRepository) ListOrders(ctx context.Context, filter service.OrderFilter) ([]domain.Order, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.CustomerID != "" {
		add("customer_id = $%d", filter.CustomerID)
	}
	if filter.RestaurantID != "" {
		add("restaurant_id = $%d", filter.RestaurantID)
	}
	if filter.RiderID != "" {
		add("rider_id = $%d", filter.RiderID)
	}
	if filter.Unassigned {
		conds = append(conds, "rider_id IS NULL")
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", pq.Array(statuses))
	}

	query := "SELECT " + orderColumns + " FROM orders"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		var order domain.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the line items of every order in one query.
func (r *PostgresRepository) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Items = []domain.OrderItem{}
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT order_id, menu_item_id, name, quantity, price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.MenuItemID, &item.Name, &item.Quantity, &item.Price); err != nil {
			return err
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	return rows.Err()
}

// UpdateStatus only succeeds while the order is still in from; zero rows
// means another request moved it first.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, from, to domain.Status, at time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4",
		to, at, id, from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AssignRider only succeeds for an unassigned order in a claimable status.
func (r *PostgresRepository) AssignRider(ctx context.Context, id, riderID string, at time.Time) (int64, error) {
	statuses := make([]string, 0, 3)
	for _, s := range lifecycle.ClaimableStatuses() {
		statuses = append(statuses, string(s))
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE orders SET rider_id = $1, updated_at = $2
		WHERE id = $3 AND rider_id IS NULL AND status = ANY($4)`,
		riderID, at, id, pq.Array(statuses))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) SaveQRCode(ctx context.Context, id string, qr []byte) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE orders SET qr_code = $1 WHERE id = $2", qr, id)
	return err
}

func (r *PostgresRepository) GetQRCode(ctx context.Context, id string) ([]byte, error) {
	var qrCode []byte
	if err := r.DB.QueryRowContext(ctx, "SELECT qr_code FROM orders WHERE id = $1", id).Scan(&qrCode); err != nil {
		return nil, notFound(err, "order", id)
	}
	return qrCode, nil
}

package storage

import (
	"context"

	"zestro/domain"
)

const notificationColumns = "id, user_id, COALESCE(order_id, ''), message, read, created_at"

func scanNotification(row interface{ Scan(...any) error }, n *domain.Notification) error {
	return row.Scan(&n.ID, &n.UserID, &n.OrderID, &n.Message, &n.Read, &n.CreatedAt)
}

func (r *PostgresRepository) CreateNotification(ctx context.Context, n *domain.Notification) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, order_id, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.UserID, nullable(n.OrderID), n.Message, n.Read, n.CreatedAt)
	return err
}

func (r *PostgresRepository) ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+notificationColumns+" FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		if err := scanNotification(rows, &n); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) MarkRead(ctx context.Context, userID, id string) (*domain.Notification, error) {
	var n domain.Notification
	row := r.DB.QueryRowContext(ctx,
		"UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2 RETURNING "+notificationColumns,
		id, userID)
	if err := scanNotification(row, &n); err != nil {
		return nil, notFound(err, "notification", id)
	}
	return &n, nil
}

func (r *PostgresRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

package storage

import (
	"context"
	"database/sql"

	"zestro/domain"
	"zestro/order-svc/internal/service"
)

func (r *PostgresRepository) CreateUser(ctx context.Context, user *domain.Identity, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, name, email, phone, role, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Name, user.Email, user.Phone, user.Role, passwordHash, user.CreatedAt)
	if isUniqueViolation(err) {
		return service.ErrEmailTaken
	}
	return err
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*domain.Identity, string, error) {
	var (
		user domain.Identity
		hash string
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, name, email, phone, role, password_hash, created_at
		FROM users WHERE email = $1`, email).
		Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &user.Role, &hash, &user.CreatedAt)
	if err != nil {
		return nil, "", notFound(err, "user", email)
	}
	return &user, hash, nil
}

func (r *PostgresRepository) GetUser(ctx context.Context, id string) (*domain.Identity, error) {
	var user domain.Identity
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, name, email, phone, role, created_at
		FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &user.Role, &user.CreatedAt)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

func (r *PostgresRepository) UpdateUser(ctx context.Context, user *domain.Identity) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name = $1, phone = $2 WHERE id = $3",
		user.Name, user.Phone, user.ID)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return notFound(sql.ErrNoRows, "user", user.ID)
	}
	return nil
}

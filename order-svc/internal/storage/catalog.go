package storage

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"zestro/domain"
)

const restaurantColumns = "id, owner_id, name, cuisine, banner, created_at"

func scanRestaurant(row interface{ Scan(...any) error }, rest *domain.Restaurant) error {
	return row.Scan(&rest.ID, &rest.OwnerID, &rest.Name, &rest.Cuisine, &rest.Banner, &rest.CreatedAt)
}

func (r *PostgresRepository) CreateRestaurant(ctx context.Context, rest *domain.Restaurant) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO restaurants (id, owner_id, name, cuisine, banner, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rest.ID, rest.OwnerID, rest.Name, rest.Cuisine, rest.Banner, rest.CreatedAt)
	return err
}

func (r *PostgresRepository) ListRestaurants(ctx context.Context) ([]domain.Restaurant, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+restaurantColumns+" FROM restaurants ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	restaurants := []domain.Restaurant{}
	for rows.Next() {
		var rest domain.Restaurant
		if err := scanRestaurant(rows, &rest); err != nil {
			return nil, err
		}
		restaurants = append(restaurants, rest)
	}
	return restaurants, rows.Err()
}

func (r *PostgresRepository) GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error) {
	var rest domain.Restaurant
	row := r.DB.QueryRowContext(ctx, "SELECT "+restaurantColumns+" FROM restaurants WHERE id = $1", id)
	if err := scanRestaurant(row, &rest); err != nil {
		return nil, notFound(err, "restaurant", id)
	}
	return &rest, nil
}

func (r *PostgresRepository) GetRestaurantByOwner(ctx context.Context, ownerID string) (*domain.Restaurant, error) {
	var rest domain.Restaurant
	row := r.DB.QueryRowContext(ctx, "SELECT "+restaurantColumns+" FROM restaurants WHERE owner_id = $1", ownerID)
	if err := scanRestaurant(row, &rest); err != nil {
		return nil, notFound(err, "restaurant of owner", ownerID)
	}
	return &rest, nil
}

func (r *PostgresRepository) UpdateRestaurant(ctx context.Context, rest *domain.Restaurant) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE restaurants SET name = $1, cuisine = $2, banner = $3 WHERE id = $4",
		rest.Name, rest.Cuisine, rest.Banner, rest.ID)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return notFound(sql.ErrNoRows, "restaurant", rest.ID)
	}
	return nil
}

const menuColumns = "id, restaurant_id, name, description, price, image, veg, created_at"

func scanMenuItem(row interface{ Scan(...any) error }, item *domain.MenuItem) error {
	return row.Scan(&item.ID, &item.RestaurantID, &item.Name, &item.Description, &item.Price, &item.Image, &item.Veg, &item.CreatedAt)
}

func (r *PostgresRepository) CreateMenuItem(ctx context.Context, item *domain.MenuItem) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO menu_items (id, restaurant_id, name, description, price, image, veg, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.RestaurantID, item.Name, item.Description, item.Price, item.Image, item.Veg, item.CreatedAt)
	return err
}

func (r *PostgresRepository) queryMenuItems(ctx context.Context, query string, args ...any) ([]domain.MenuItem, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.MenuItem{}
	for rows.Next() {
		var item domain.MenuItem
		if err := scanMenuItem(rows, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) ListMenuItems(ctx context.Context, restaurantID string) ([]domain.MenuItem, error) {
	return r.queryMenuItems(ctx,
		"SELECT "+menuColumns+" FROM menu_items WHERE restaurant_id = $1 ORDER BY created_at", restaurantID)
}

func (r *PostgresRepository) GetMenuItems(ctx context.Context, ids []string) ([]domain.MenuItem, error) {
	if len(ids) == 0 {
		return []domain.MenuItem{}, nil
	}
	return r.queryMenuItems(ctx,
		"SELECT "+menuColumns+" FROM menu_items WHERE id = ANY($1)", pq.Array(ids))
}

func (r *PostgresRepository) UpdateMenuItem(ctx context.Context, item *domain.MenuItem) error {
	err := r.DB.QueryRowContext(ctx, `
		UPDATE menu_items
		SET name = $1, description = $2, price = $3, image = $4, veg = $5
		WHERE id = $6 AND restaurant_id = $7
		RETURNING created_at`,
		item.Name, item.Description, item.Price, item.Image, item.Veg, item.ID, item.RestaurantID).
		Scan(&item.CreatedAt)
	return notFound(err, "menu item", item.ID)
}

func (r *PostgresRepository) DeleteMenuItem(ctx context.Context, restaurantID, id string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM menu_items WHERE id = $1 AND restaurant_id = $2", id, restaurantID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

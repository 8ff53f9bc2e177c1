package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"zestro/domain"
	"zestro/lifecycle"
)

type CatalogService struct {
	restaurants RestaurantRepository
	menu        MenuRepository
	now         func() time.Time
}

func NewCatalogService(restaurants RestaurantRepository, menu MenuRepository) *CatalogService {
	return &CatalogService{restaurants: restaurants, menu: menu, now: time.Now}
}

func (s *CatalogService) ListRestaurants(ctx context.Context) ([]domain.Restaurant, error) {
	return s.restaurants.ListRestaurants(ctx)
}

func (s *CatalogService) GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error) {
	return s.restaurants.GetRestaurant(ctx, id)
}

func (s *CatalogService) Menu(ctx context.Context, restaurantID string) ([]domain.MenuItem, error) {
	if _, err := s.restaurants.GetRestaurant(ctx, restaurantID); err != nil {
		return nil, err
	}
	return s.menu.ListMenuItems(ctx, restaurantID)
}

func requireOwner(actor lifecycle.Actor) error {
	if actor.Role != domain.RoleRestaurant {
		return fmt.Errorf("%w: restaurant accounts only", lifecycle.ErrUnauthorized)
	}
	return nil
}

func (s *CatalogService) CreateRestaurant(ctx context.Context, actor lifecycle.Actor, req RestaurantRequest) (*domain.Restaurant, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: restaurant name is required", ErrInvalidInput)
	}

	existing, err := s.restaurants.GetRestaurantByOwner(ctx, actor.ID)
	if err == nil && existing != nil {
		return nil, ErrRestaurantExists
	}
	if err != nil && !errors.Is(err, lifecycle.ErrNotFound) {
		return nil, err
	}

	rest := &domain.Restaurant{
		ID:        uuid.NewString(),
		OwnerID:   actor.ID,
		Name:      strings.TrimSpace(req.Name),
		Cuisine:   strings.TrimSpace(req.Cuisine),
		Banner:    req.Banner,
		CreatedAt: s.now().UTC(),
	}
	if err := s.restaurants.CreateRestaurant(ctx, rest); err != nil {
		return nil, err
	}
	return rest, nil
}

// MyRestaurant returns lifecycle.ErrNotFound while the owner has not created
// a restaurant yet.
func (s *CatalogService) MyRestaurant(ctx context.Context, actor lifecycle.Actor) (*domain.Restaurant, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	return s.restaurants.GetRestaurantByOwner(ctx, actor.ID)
}

func (s *CatalogService) UpdateMyRestaurant(ctx context.Context, actor lifecycle.Actor, req RestaurantRequest) (*domain.Restaurant, error) {
	rest, err := s.MyRestaurant(ctx, actor)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		rest.Name = name
	}
	if cuisine := strings.TrimSpace(req.Cuisine); cuisine != "" {
		rest.Cuisine = cuisine
	}
	if req.Banner != "" {
		rest.Banner = req.Banner
	}
	if err := s.restaurants.UpdateRestaurant(ctx, rest); err != nil {
		return nil, err
	}
	return rest, nil
}

func (s *CatalogService) MyMenu(ctx context.Context, actor lifecycle.Actor) ([]domain.MenuItem, error) {
	rest, err := s.MyRestaurant(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.menu.ListMenuItems(ctx, rest.ID)
}

func validateMenuItem(req MenuItemRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: item name is required", ErrInvalidInput)
	}
	if req.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	}
	return nil
}

func (s *CatalogService) CreateMenuItem(ctx context.Context, actor lifecycle.Actor, req MenuItemRequest) (*domain.MenuItem, error) {
	if err := validateMenuItem(req); err != nil {
		return nil, err
	}
	rest, err := s.MyRestaurant(ctx, actor)
	if err != nil {
		return nil, err
	}
	item := &domain.MenuItem{
		ID:           uuid.NewString(),
		RestaurantID: rest.ID,
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Price:        req.Price.Round(2),
		Image:        req.Image,
		Veg:          req.Veg,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.menu.CreateMenuItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CatalogService) UpdateMenuItem(ctx context.Context, actor lifecycle.Actor, id string, req MenuItemRequest) (*domain.MenuItem, error) {
	if err := validateMenuItem(req); err != nil {
		return nil, err
	}
	rest, err := s.MyRestaurant(ctx, actor)
	if err != nil {
		return nil, err
	}
	item := &domain.MenuItem{
		ID:           id,
		RestaurantID: rest.ID,
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Price:        req.Price.Round(2),
		Image:        req.Image,
		Veg:          req.Veg,
	}
	if err := s.menu.UpdateMenuItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CatalogService) DeleteMenuItem(ctx context.Context, actor lifecycle.Actor, id string) error {
	rest, err := s.MyRestaurant(ctx, actor)
	if err != nil {
		return err
	}
	rows, err := s.menu.DeleteMenuItem(ctx, rest.ID, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: menu item %s", lifecycle.ErrNotFound, id)
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"time"

	"zestro/domain"
	"zestro/lifecycle"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRestaurantExists   = errors.New("restaurant already exists for this owner")
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.Identity, passwordHash string) error
	GetUserByEmail(ctx context.Context, email string) (*domain.Identity, string, error)
	GetUser(ctx context.Context, id string) (*domain.Identity, error)
	UpdateUser(ctx context.Context, user *domain.Identity) error
}

type RestaurantRepository interface {
	CreateRestaurant(ctx context.Context, rest *domain.Restaurant) error
	ListRestaurants(ctx context.Context) ([]domain.Restaurant, error)
	GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error)
	GetRestaurantByOwner(ctx context.Context, ownerID string) (*domain.Restaurant, error)
	UpdateRestaurant(ctx context.Context, rest *domain.Restaurant) error
}

type MenuRepository interface {
	CreateMenuItem(ctx context.Context, item *domain.MenuItem) error
	ListMenuItems(ctx context.Context, restaurantID string) ([]domain.MenuItem, error)
	GetMenuItems(ctx context.Context, ids []string) ([]domain.MenuItem, error)
	UpdateMenuItem(ctx context.Context, item *domain.MenuItem) error
	DeleteMenuItem(ctx context.Context, restaurantID, id string) (int64, error)
}

// OrderFilter narrows ListOrders. Empty fields do not filter.
type OrderFilter struct {
	CustomerID   string
	RestaurantID string
	RiderID      string
	Unassigned   bool
	Statuses     []domain.Status
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.Status, at time.Time) (int64, error)
	AssignRider(ctx context.Context, id, riderID string, at time.Time) (int64, error)
	SaveQRCode(ctx context.Context, id string, qr []byte) error
	GetQRCode(ctx context.Context, id string) ([]byte, error)
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID, id string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, events ...domain.Event) error
}

type Notifier interface {
	Notify(ctx context.Context, userID, orderID, message string) error
}

type AuthServiceInterface interface {
	Signup(ctx context.Context, req SignupRequest) (*AuthResult, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)
	Me(ctx context.Context, userID string) (*domain.Identity, error)
	UpdateProfile(ctx context.Context, userID string, req ProfileRequest) (*domain.Identity, error)
}

type CatalogServiceInterface interface {
	ListRestaurants(ctx context.Context) ([]domain.Restaurant, error)
	GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error)
	Menu(ctx context.Context, restaurantID string) ([]domain.MenuItem, error)
	CreateRestaurant(ctx context.Context, actor lifecycle.Actor, req RestaurantRequest) (*domain.Restaurant, error)
	MyRestaurant(ctx context.Context, actor lifecycle.Actor) (*domain.Restaurant, error)
	UpdateMyRestaurant(ctx context.Context, actor lifecycle.Actor, req RestaurantRequest) (*domain.Restaurant, error)
	MyMenu(ctx context.Context, actor lifecycle.Actor) ([]domain.MenuItem, error)
	CreateMenuItem(ctx context.Context, actor lifecycle.Actor, req MenuItemRequest) (*domain.MenuItem, error)
	UpdateMenuItem(ctx context.Context, actor lifecycle.Actor, id string, req MenuItemRequest) (*domain.MenuItem, error)
	DeleteMenuItem(ctx context.Context, actor lifecycle.Actor, id string) error
}

type OrderServiceInterface interface {
	Create(ctx context.Context, actor lifecycle.Actor, req CreateOrderRequest) (*domain.Order, error)
	ListMine(ctx context.Context, actor lifecycle.Actor) ([]domain.Order, error)
	ListAvailable(ctx context.Context, actor lifecycle.Actor) ([]domain.Order, error)
	Get(ctx context.Context, actor lifecycle.Actor, id string) (*domain.Order, error)
	Accept(ctx context.Context, actor lifecycle.Actor, id string) (*domain.Order, error)
	Claim(ctx context.Context, actor lifecycle.Actor, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, actor lifecycle.Actor, id string, to domain.Status) (*domain.Order, error)
	GetQRCode(ctx context.Context, id string) ([]byte, error)
	QRLink(id string) string
}

type NotificationServiceInterface interface {
	Notifier
	List(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID, id string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

var (
	_ AuthServiceInterface         = (*AuthService)(nil)
	_ CatalogServiceInterface      = (*CatalogService)(nil)
	_ OrderServiceInterface        = (*OrderService)(nil)
	_ NotificationServiceInterface = (*NotificationService)(nil)
)

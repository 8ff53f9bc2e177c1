package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type Role string

const (
	RoleCustomer   Role = "Customer"
	RoleRestaurant Role = "Restaurant"
	RoleRider      Role = "Rider"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleRestaurant, RoleRider:
		return true
	}
	return false
}

type Status string

const (
	StatusPlaced    Status = "PLACED"
	StatusAccepted  Status = "ACCEPTED"
	StatusPreparing Status = "PREPARING"
	StatusReady     Status = "READY"
	StatusPicked    Status = "PICKED"
	StatusDelivered Status = "DELIVERED"
)

type Identity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type Restaurant struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Cuisine   string    `json:"cuisine"`
	Banner    string    `json:"banner,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type MenuItem struct {
	ID           string          `json:"id"`
	RestaurantID string          `json:"restaurantId"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Image        string          `json:"image,omitempty"`
	Veg          bool            `json:"veg"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type OrderItem struct {
	MenuItemID string          `json:"menuItemId"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

type Order struct {
	ID           string          `json:"id"`
	RestaurantID string          `json:"restaurantId"`
	CustomerID   string          `json:"customerId"`
	RiderID      string          `json:"riderId,omitempty"`
	Items        []OrderItem     `json:"items"`
	Total        decimal.Decimal `json:"total"`
	Status       Status          `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func (o Order) Assigned() bool {
	return o.RiderID != ""
}

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	OrderID   string    `json:"orderId,omitempty"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// CartLine is one staged menu item. Every line of a cart shares RestaurantID.
type CartLine struct {
	Item         MenuItem `json:"item"`
	Quantity     int      `json:"quantity"`
	RestaurantID string   `json:"restaurantId"`
}

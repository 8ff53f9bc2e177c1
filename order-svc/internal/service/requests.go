package service

import (
	"github.com/shopspring/decimal"

	"zestro/domain"
)

type SignupRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Phone    string      `json:"phone"`
	Role     domain.Role `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResult struct {
	Token string           `json:"token"`
	User  *domain.Identity `json:"user"`
}

type ProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type RestaurantRequest struct {
	Name    string `json:"name"`
	Cuisine string `json:"cuisine"`
	Banner  string `json:"banner"`
}

type MenuItemRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Veg         bool            `json:"veg"`
}

type OrderLine struct {
	MenuItemID string `json:"menuItemId"`
	Quantity   int    `json:"quantity"`
}

type CreateOrderRequest struct {
	RestaurantID string      `json:"restaurantId"`
	Items        []OrderLine `json:"items"`
}

type StatusRequest struct {
	Status domain.Status `json:"status"`
}

// Package api is the client side of the order-svc REST contract. Error
// responses come back as *Error values that unwrap to the lifecycle
// sentinels, so callers can test them with errors.Is.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"zestro/domain"
	"zestro/lifecycle"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	BaseURL string
	HTTP    HTTPClient

	mu    sync.RWMutex
	token string
}

func New(baseURL string, httpClient HTTPClient) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: baseURL, HTTP: httpClient}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Error is a rejection reported by the server.
type Error struct {
	Status  int
	Code    string
	Message string
	err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
}

func (e *Error) Unwrap() error {
	return e.err
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// codeForStatus names a bare HTTP status, for answers that carry no code.
func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return lifecycle.CodeNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return lifecycle.CodeUnauthorized
	case http.StatusBadRequest:
		return lifecycle.CodeBadRequest
	}
	return lifecycle.CodeInternal
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Code == "" {
		// A proxy answered instead of order-svc.
		if resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusServiceUnavailable ||
			resp.StatusCode == http.StatusGatewayTimeout {
			return fmt.Errorf("%w: %s", lifecycle.ErrNetworkFailure, resp.Status)
		}
		code := codeForStatus(resp.StatusCode)
		return &Error{
			Status:  resp.StatusCode,
			Code:    code,
			Message: string(bytes.TrimSpace(raw)),
			err:     lifecycle.FromCode(code),
		}
	}
	return &Error{
		Status:  resp.StatusCode,
		Code:    body.Code,
		Message: body.Error,
		err:     lifecycle.FromCode(body.Code),
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", lifecycle.ErrNetworkFailure, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", lifecycle.ErrNetworkFailure, method, path, err)
	}
	return nil
}

type SignupRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Phone    string      `json:"phone,omitempty"`
	Role     domain.Role `json:"role"`
}

type AuthResult struct {
	Token string          `json:"token"`
	User  domain.Identity `json:"user"`
}

type OrderLine struct {
	MenuItemID string `json:"menuItemId"`
	Quantity   int    `json:"quantity"`
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	var res AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var res AuthResult
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Me(ctx context.Context) (*domain.Identity, error) {
	var res struct {
		User domain.Identity `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &res); err != nil {
		return nil, err
	}
	return &res.User, nil
}

func (c *Client) UpdateProfile(ctx context.Context, name, phone string) (*domain.Identity, error) {
	var res struct {
		User domain.Identity `json:"user"`
	}
	in := map[string]string{"name": name, "phone": phone}
	if err := c.do(ctx, http.MethodPut, "/api/users/profile", in, &res); err != nil {
		return nil, err
	}
	return &res.User, nil
}

func (c *Client) Restaurants(ctx context.Context) ([]domain.Restaurant, error) {
	var res struct {
		Restaurants []domain.Restaurant `json:"restaurants"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/restaurants", nil, &res); err != nil {
		return nil, err
	}
	return res.Restaurants, nil
}

func (c *Client) Menu(ctx context.Context, restaurantID string) ([]domain.MenuItem, error) {
	var res struct {
		MenuItems []domain.MenuItem `json:"menuItems"`
	}
	path := "/api/restaurants/" + url.PathEscape(restaurantID) + "/menu"
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res.MenuItems, nil
}

func (c *Client) MyRestaurant(ctx context.Context) (*domain.Restaurant, error) {
	var res struct {
		Restaurant domain.Restaurant `json:"restaurant"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/restaurants/me/restaurant", nil, &res); err != nil {
		return nil, err
	}
	return &res.Restaurant, nil
}

type orderEnvelope struct {
	Order domain.Order `json:"order"`
}

type ordersEnvelope struct {
	Orders []domain.Order `json:"orders"`
}

func (c *Client) CreateOrder(ctx context.Context, restaurantID string, lines []OrderLine) (*domain.Order, error) {
	var res orderEnvelope
	in := struct {
		RestaurantID string      `json:"restaurantId"`
		Items        []OrderLine `json:"items"`
	}{restaurantID, lines}
	if err := c.do(ctx, http.MethodPost, "/api/orders", in, &res); err != nil {
		return nil, err
	}
	return &res.Order, nil
}

func (c *Client) MyOrders(ctx context.Context) ([]domain.Order, error) {
	var res ordersEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/orders/my-orders", nil, &res); err != nil {
		return nil, err
	}
	return res.Orders, nil
}

func (c *Client) AvailableOrders(ctx context.Context) ([]domain.Order, error) {
	var res ordersEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/orders/available", nil, &res); err != nil {
		return nil, err
	}
	return res.Orders, nil
}

func (c *Client) orderCall(ctx context.Context, method, path string, in any) (*domain.Order, error) {
	var res orderEnvelope
	if err := c.do(ctx, method, path, in, &res); err != nil {
		return nil, err
	}
	return &res.Order, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return c.orderCall(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(id), nil)
}

func (c *Client) AcceptOrder(ctx context.Context, id string) (*domain.Order, error) {
	return c.orderCall(ctx, http.MethodPost, "/api/orders/"+url.PathEscape(id)+"/accept", nil)
}

func (c *Client) ClaimOrder(ctx context.Context, id string) (*domain.Order, error) {
	return c.orderCall(ctx, http.MethodPost, "/api/orders/"+url.PathEscape(id)+"/accept-rider", nil)
}

func (c *Client) UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.Order, error) {
	in := map[string]domain.Status{"status": status}
	return c.orderCall(ctx, http.MethodPatch, "/api/orders/"+url.PathEscape(id)+"/status", in)
}

func (c *Client) Notifications(ctx context.Context, limit int) ([]domain.Notification, error) {
	var res struct {
		Notifications []domain.Notification `json:"notifications"`
	}
	path := "/api/notifications"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res.Notifications, nil
}

func (c *Client) MarkRead(ctx context.Context, id string) (*domain.Notification, error) {
	var res struct {
		Notification domain.Notification `json:"notification"`
	}
	if err := c.do(ctx, http.MethodPatch, "/api/notifications/"+url.PathEscape(id)+"/read", nil, &res); err != nil {
		return nil, err
	}
	return &res.Notification, nil
}

func (c *Client) MarkAllRead(ctx context.Context) (int64, error) {
	var res struct {
		Updated int64 `json:"updated"`
	}
	if err := c.do(ctx, http.MethodPatch, "/api/notifications/read-all", nil, &res); err != nil {
		return 0, err
	}
	return res.Updated, nil
}

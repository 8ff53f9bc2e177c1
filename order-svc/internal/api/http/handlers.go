package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"zestro/auth"
	"zestro/lifecycle"
	"zestro/order-svc/internal/service"
)

type Handler struct {
	Auth          service.AuthServiceInterface
	Catalog       service.CatalogServiceInterface
	Orders        service.OrderServiceInterface
	Notifications service.NotificationServiceInterface
	Tokens        *auth.Tokens
}

func NewHandler(
	authSvc service.AuthServiceInterface,
	catalogSvc service.CatalogServiceInterface,
	orderSvc service.OrderServiceInterface,
	notificationSvc service.NotificationServiceInterface,
	tokens *auth.Tokens,
) *Handler {
	return &Handler{
		Auth:          authSvc,
		Catalog:       catalogSvc,
		Orders:        orderSvc,
		Notifications: notificationSvc,
		Tokens:        tokens,
	}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.healthCheck).Methods("GET")

	r.HandleFunc("/api/auth/signup", h.signup).Methods("POST")
	r.HandleFunc("/api/auth/login", h.login).Methods("POST")
	r.Handle("/api/auth/me", h.protect(h.me)).Methods("GET")
	r.Handle("/api/users/profile", h.protect(h.updateProfile)).Methods("PUT")

	r.HandleFunc("/api/restaurants", h.getRestaurants).Methods("GET")
	r.Handle("/api/restaurants", h.protect(h.createRestaurant)).Methods("POST")
	r.Handle("/api/restaurants/me/restaurant", h.protect(h.getMyRestaurant)).Methods("GET")
	r.Handle("/api/restaurants/me/restaurant", h.protect(h.updateMyRestaurant)).Methods("PUT")
	r.HandleFunc("/api/restaurants/{id}", h.getRestaurant).Methods("GET")
	r.HandleFunc("/api/restaurants/{id}/menu", h.getMenu).Methods("GET")

	r.Handle("/api/menu-items/my", h.protect(h.getMyMenu)).Methods("GET")
	r.Handle("/api/menu-items", h.protect(h.createMenuItem)).Methods("POST")
	r.Handle("/api/menu-items/{id}", h.protect(h.updateMenuItem)).Methods("PUT")
	r.Handle("/api/menu-items/{id}", h.protect(h.deleteMenuItem)).Methods("DELETE")

	r.Handle("/api/orders", h.protect(h.createOrder)).Methods("POST")
	r.Handle("/api/orders/my-orders", h.protect(h.getMyOrders)).Methods("GET")
	r.Handle("/api/orders/available", h.protect(h.getAvailableOrders)).Methods("GET")
	r.Handle("/api/orders/{id}", h.protect(h.getOrder)).Methods("GET")
	r.Handle("/api/orders/{id}/accept", h.protect(h.acceptOrder)).Methods("POST")
	r.Handle("/api/orders/{id}/accept-rider", h.protect(h.claimOrder)).Methods("POST")
	r.Handle("/api/orders/{id}/status", h.protect(h.updateOrderStatus)).Methods("PATCH")
	r.HandleFunc("/api/orders/{id}/qrcode", h.getOrderQRCode).Methods("GET")

	r.Handle("/api/notifications", h.protect(h.getNotifications)).Methods("GET")
	r.Handle("/api/notifications/read-all", h.protect(h.markAllNotificationsRead)).Methods("PATCH")
	r.Handle("/api/notifications/{id}/read", h.protect(h.markNotificationRead)).Methods("PATCH")
}

func (h *Handler) protect(fn http.HandlerFunc) http.Handler {
	return h.Tokens.Middleware(writeError)(fn)
}

// actorOf is only called behind protect, so the claims are always present.
func actorOf(r *http.Request) lifecycle.Actor {
	claims, _ := auth.ClaimsFrom(r.Context())
	if claims == nil {
		return lifecycle.Actor{}
	}
	return lifecycle.Actor{ID: claims.UserID, Role: claims.Role}
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "order-svc",
		"timestamp": time.Now().Format(time.RFC3339),
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid JSON format: "+err.Error())
		return
	}
	res, err := h.Auth.Signup(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid JSON format: "+err.Error())
		return
	}
	res, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Auth.Me(r.Context(), actorOf(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req service.ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid JSON format: "+err.Error())
		return
	}
	user, err := h.Auth.UpdateProfile(r.Context(), actorOf(r).ID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *Handler) getNotifications(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.Notifications.List(r.Context(), actorOf(r).ID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": list})
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.Notifications.MarkRead(r.Context(), actorOf(r).ID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notification": n})
}

func (h *Handler) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.Notifications.MarkAllRead(r.Context(), actorOf(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"updated": updated})
}

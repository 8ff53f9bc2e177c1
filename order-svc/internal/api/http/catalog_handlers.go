package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"zestro/order-svc/internal/service"
)

func (h *Handler) getRestaurants(w http.ResponseWriter, r *http.Request) {
	restaurants, err := h.Catalog.ListRestaurants(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"restaurants": restaurants})
}

func (h *Handler) getRestaurant(w http.ResponseWriter, r *http.Request) {
	rest, err := h.Catalog.GetRestaurant(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"restaurant": rest})
}

func (h *Handler) getMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.Catalog.Menu(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"menuItems": items})
}

func (h *Handler) createRestaurant(w http.ResponseWriter, r *http.Request) {
	var req service.RestaurantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid JSON format: "+err.Error())
		return
	}
	rest, err := h.Catalog.CreateRestaurant(r.Context(), actorOf(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"restaurant": rest})
}

func (h *Handler) getMyRestaurant(w http.ResponseWriter, r *http.Request) {
	rest, err := h.Catalog.MyRestaurant(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"restaurant": rest})
}

func (h *Handler) updateMyRestaurant(w http.ResponseWriter, r *http.Request) {
	var req service.RestaurantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid JSON format: "+err.Error())
		return
	}
	rest, err := h.Catalog.UpdateMyRestaurant(r.Context(), actorOf(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"restaurant": rest})
}

func (h *Handler) getMyMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.Catalog.MyMenu(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"menuItems": items})
}

func (h *Handler) createMenuItem(w http.ResponseWriter, r *http.Request) {
	var req service.MenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid JSON format: "+err.Error())
		return
	}
	item, err := h.Catalog.CreateMenuItem(r.Context(), actorOf(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"menuItem": item})
}

func (h *Handler) updateMenuItem(w http.ResponseWriter, r *http.Request) {
	var req service.MenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid JSON format: "+err.Error())
		return
	}
	item, err := h.Catalog.UpdateMenuItem(r.Context(), actorOf(r), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"menuItem": item})
}

func (h *Handler) deleteMenuItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteMenuItem(r.Context(), actorOf(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"zestro/order-svc/internal/service"
)

type orderResponse struct {
	Order  interface{} `json:"order"`
	QRCode string      `json:"qrCode,omitempty"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req service.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid JSON format: "+err.Error())
		return
	}

	order, err := h.Orders.Create(r.Context(), actorOf(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse{Order: order, QRCode: h.Orders.QRLink(order.ID)})
}

func (h *Handler) getMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Orders.ListMine(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

func (h *Handler) getAvailableOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Orders.ListAvailable(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Orders.Get(r.Context(), actorOf(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Order: order})
}

func (h *Handler) acceptOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Orders.Accept(r.Context(), actorOf(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Order: order})
}

func (h *Handler) claimOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Orders.Claim(r.Context(), actorOf(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Order: order})
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req service.StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid JSON format: "+err.Error())
		return
	}
	if req.Status == "" {
		badRequest(w, "status is required")
		return
	}
	order, err := h.Orders.UpdateStatus(r.Context(), actorOf(r), mux.Vars(r)["id"], req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Order: order})
}

func (h *Handler) getOrderQRCode(w http.ResponseWriter, r *http.Request) {
	qrCode, err := h.Orders.GetQRCode(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if len(qrCode) == 0 {
		http.Error(w, "QR code not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(qrCode)
}

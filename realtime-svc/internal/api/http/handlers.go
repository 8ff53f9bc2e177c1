package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"zestro/auth"
	"zestro/realtime-svc/internal/service"
)

type Handler struct {
	Hub      service.ConnectionHub
	Presence service.PresenceStoreInterface
	Tokens   *auth.Tokens
	Upgrader websocket.Upgrader
}

func NewHandler(h service.ConnectionHub, presence service.PresenceStoreInterface, tokens *auth.Tokens) *Handler {
	return &Handler{
		Hub:      h,
		Presence: presence,
		Tokens:   tokens,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.healthCheck).Methods("GET")
	r.Handle("/ws", h.Tokens.Middleware(writeError)(http.HandlerFunc(h.serveWS))).Methods("GET")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[realtime-svc] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error(), "code": "UNAUTHORIZED"})
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "realtime-svc",
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if h.Presence != nil {
		if counts, err := h.Presence.Counts(r.Context()); err == nil {
			response["online"] = counts
		} else {
			log.Printf("[realtime-svc] presence counts: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// serveWS upgrades an authenticated request. The socket is push-only: frames
// sent by the client are read and dropped.
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[realtime-svc] ws upgrade error: %v", err)
		return
	}
	if !h.Hub.Attach(conn, claims.UserID, claims.Role) {
		return
	}
	log.Printf("[realtime-svc] %s %s connected", claims.Role, claims.UserID)
}

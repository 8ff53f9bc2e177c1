package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"zestro/auth"
	"zestro/lifecycle"
	"zestro/order-svc/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[order-svc] encode response: %v", err)
	}
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, lifecycle.ErrEmptyCart),
		errors.Is(err, lifecycle.ErrMissingRestaurant):
		return http.StatusBadRequest, lifecycle.Code(err)
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, lifecycle.CodeBadRequest
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrAlreadyAssigned):
		return http.StatusConflict, lifecycle.Code(err)
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrRestaurantExists):
		return http.StatusConflict, lifecycle.CodeBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, lifecycle.CodeUnauthorized
	case errors.Is(err, lifecycle.ErrUnauthorized):
		return http.StatusForbidden, lifecycle.CodeUnauthorized
	case errors.Is(err, lifecycle.ErrNotFound):
		return http.StatusNotFound, lifecycle.CodeNotFound
	}
	return http.StatusInternalServerError, lifecycle.CodeInternal
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	message := lifecycle.Message(err)
	if status == http.StatusInternalServerError {
		log.Printf("[order-svc] internal error: %v", err)
		message = "internal server error"
	} else if code == lifecycle.CodeBadRequest || (code == lifecycle.CodeUnauthorized && !errors.Is(err, lifecycle.ErrUnauthorized)) {
		message = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: lifecycle.CodeBadRequest})
}

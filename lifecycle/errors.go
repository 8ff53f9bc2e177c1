package lifecycle

import "errors"

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrMissingRestaurant = errors.New("restaurant is missing")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnauthorized      = errors.New("not authorized")
	ErrAlreadyAssigned   = errors.New("order already assigned")
	ErrNotFound          = errors.New("not found")
	ErrNetworkFailure    = errors.New("network failure")
)

// Wire codes exchanged between order-svc and its clients.
const (
	CodeEmptyCart         = "EMPTY_CART"
	CodeMissingRestaurant = "MISSING_RESTAURANT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeAlreadyAssigned   = "ALREADY_ASSIGNED"
	CodeNotFound          = "NOT_FOUND"
	CodeBadRequest        = "BAD_REQUEST"
	CodeInternal          = "INTERNAL"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrEmptyCart, CodeEmptyCart},
	{ErrMissingRestaurant, CodeMissingRestaurant},
	{ErrInvalidTransition, CodeInvalidTransition},
	{ErrUnauthorized, CodeUnauthorized},
	{ErrAlreadyAssigned, CodeAlreadyAssigned},
	{ErrNotFound, CodeNotFound},
}

// Code maps err onto its wire code; unknown errors are INTERNAL.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// FromCode returns the sentinel for a wire code, or nil when the code has none.
func FromCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}

// Message is the user-facing reason for a rejected action.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyCart):
		return "your cart is empty"
	case errors.Is(err, ErrMissingRestaurant):
		return "no restaurant selected for this order"
	case errors.Is(err, ErrInvalidTransition):
		return "this order cannot move to that status right now"
	case errors.Is(err, ErrUnauthorized):
		return "not authorized for this action"
	case errors.Is(err, ErrAlreadyAssigned):
		return "order already claimed by another rider"
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrNetworkFailure):
		return "network problem, please try again"
	}
	return err.Error()
}

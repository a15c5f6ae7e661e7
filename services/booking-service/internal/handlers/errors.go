package handlers

import (
	"errors"
	"net/http"

	"roomstay-system/services/booking-service/internal/domain"
)

// writeDomainError maps the error taxonomy onto HTTP status codes. A lock
// conflict reads as "room unavailable, try another" to the client.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAlreadyLocked):
		http.Error(w, "room unavailable, try another", http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidOrderState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidStateTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidLock), errors.Is(err, domain.ErrInvalidDateRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrUnauthorized):
		http.Error(w, "lock held by another customer", http.StatusForbidden)
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrCustomerNotFound),
		errors.Is(err, domain.ErrOrderNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrTransientStore):
		http.Error(w, "temporarily unavailable", http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

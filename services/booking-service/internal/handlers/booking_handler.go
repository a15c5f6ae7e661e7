package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"roomstay-system/services/booking-service/internal/booking"
	"roomstay-system/services/booking-service/internal/domain"
)

type BookingHandler struct {
	Bookings *booking.Service
}

type createBookingRequest struct {
	LockID     string `json:"lock_id"`
	RoomID     string `json:"room_id"`
	CustomerID string `json:"customer_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
}

type orderResponse struct {
	ID          string  `json:"id"`
	RoomID      string  `json:"room_id"`
	CustomerID  string  `json:"customer_id"`
	Nights      int     `json:"nights"`
	TotalPrice  float64 `json:"total_price"`
	Status      string  `json:"status"`
	CheckInCode string  `json:"check_in_code"`
}

func toOrderResponse(o *domain.Order) orderResponse {
	return orderResponse{
		ID:          o.ID,
		RoomID:      o.RoomID,
		CustomerID:  o.CustomerID,
		Nights:      o.Nights,
		TotalPrice:  o.TotalPrice,
		Status:      string(o.Status),
		CheckInCode: o.CheckInCode,
	}
}

func (h *BookingHandler) HandleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	checkIn, err := time.Parse("2006-01-02", req.CheckIn)
	if err != nil {
		http.Error(w, "check_in must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	checkOut, err := time.Parse("2006-01-02", req.CheckOut)
	if err != nil {
		http.Error(w, "check_out must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	order, err := h.Bookings.CreateBooking(r.Context(), booking.CreateBookingInput{
		LockID:     req.LockID,
		RoomID:     req.RoomID,
		CustomerID: req.CustomerID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toOrderResponse(order))
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h *BookingHandler) HandleCancelBooking(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	var req cancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reason == "" {
		req.Reason = "customer_request"
	}

	order, err := h.Bookings.CancelBooking(r.Context(), orderID, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toOrderResponse(order))
}

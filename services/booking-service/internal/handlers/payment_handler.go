package handlers

import (
	"encoding/json"
	"net/http"

	"roomstay-system/services/booking-service/internal/payment"
)

type PaymentHandler struct {
	Payments *payment.Service
}

type executePaymentRequest struct {
	OrderID string `json:"order_id"`
	Method  string `json:"method"`
}

type paymentResponse struct {
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	Message       string `json:"message,omitempty"`
}

func (h *PaymentHandler) HandleExecutePayment(w http.ResponseWriter, r *http.Request) {
	var req executePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" || req.Method == "" {
		http.Error(w, "order_id and method are required", http.StatusBadRequest)
		return
	}

	resp, err := h.Payments.Execute(r.Context(), payment.Request{
		OrderID: req.OrderID,
		Method:  payment.Method(req.Method),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if resp.Status != payment.StatusSuccess {
		// Payment failed without a crash; order state is unchanged.
		status = http.StatusPaymentRequired
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(paymentResponse{
		OrderID:       resp.OrderID,
		Status:        string(resp.Status),
		TransactionID: resp.TransactionID,
		Message:       resp.Message,
	})
}

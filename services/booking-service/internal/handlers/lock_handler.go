package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"roomstay-system/services/booking-service/internal/lock"
)

type LockHandler struct {
	Locks *lock.Manager
}

type createLockRequest struct {
	RoomID     string `json:"room_id"`
	CustomerID string `json:"customer_id"`
	TTLSeconds int    `json:"ttl_seconds,omitempty"`
}

type createLockResponse struct {
	LeaseID string `json:"lease_id"`
	RoomID  string `json:"room_id"`
}

func (h *LockHandler) HandleCreateLock(w http.ResponseWriter, r *http.Request) {
	var req createLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomID == "" || req.CustomerID == "" {
		http.Error(w, "room_id and customer_id are required", http.StatusBadRequest)
		return
	}

	leaseID, err := h.Locks.CreateLock(r.Context(), req.RoomID, req.CustomerID,
		time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(createLockResponse{LeaseID: leaseID, RoomID: req.RoomID})
}

func (h *LockHandler) HandleReleaseLock(w http.ResponseWriter, r *http.Request) {
	leaseID := r.PathValue("leaseId")
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		http.Error(w, "customer_id is required", http.StatusBadRequest)
		return
	}

	released := h.Locks.ReleaseLock(r.Context(), leaseID, customerID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"released": released})
}

func (h *LockHandler) HandleAdminRelease(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	released := h.Locks.ReleaseLockByRoomID(r.Context(), roomID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"released": released})
}

func (h *LockHandler) HandleLockStatus(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")

	info, err := h.Locks.GetLockInfo(r.Context(), roomID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if info == nil {
		json.NewEncoder(w).Encode(map[string]interface{}{"locked": false})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"locked":      true,
		"lease_id":    info.LeaseID,
		"holder_id":   info.HolderID,
		"ttl_seconds": int(h.Locks.GetLockTTL(r.Context(), roomID).Seconds()),
	})
}

package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/foodbridge-dev/foodbridge/internal/database"
	"github.com/foodbridge-dev/foodbridge/internal/metrics"
)

type createClaimReq struct {
	FoodID     string `json:"food_id"`
	ReceiverID string `json:"receiver_id"`
	Notes      string `json:"notes"`
}

// CreateClaim opens a Pending claim for a receiver against a listing.
// POST /claims
func (h *Handler) CreateClaim(w http.ResponseWriter, r *http.Request) {
	var req createClaimReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.FoodID == "" || req.ReceiverID == "" {
		jsonError(w, "food_id and receiver_id are required", http.StatusBadRequest)
		return
	}

	claim := &database.Claim{
		ID:         uuid.New().String(),
		FoodID:     req.FoodID,
		ReceiverID: req.ReceiverID,
		Notes:      req.Notes,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.db.CreateClaim(r.Context(), claim); err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			jsonError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, database.ErrConflict):
			jsonError(w, "listing is not available", http.StatusConflict)
		default:
			log.Printf("error creating claim: %v", err)
			jsonError(w, "failed to create claim", http.StatusInternalServerError)
		}
		return
	}

	metrics.ClaimsCreated.Inc()
	jsonOK(w, http.StatusCreated, claim)
}

// ListClaims returns claims, optionally filtered by status.
// GET /claims
func (h *Handler) ListClaims(w http.ResponseWriter, r *http.Request) {
	status := database.ClaimStatus(r.URL.Query().Get("status"))
	if status != "" && status != database.ClaimPending && !status.IsTerminal() {
		jsonError(w, "unknown status filter", http.StatusBadRequest)
		return
	}

	claims, err := h.db.ListClaims(status)
	if err != nil {
		log.Printf("error listing claims: %v", err)
		jsonError(w, "failed to list claims", http.StatusInternalServerError)
		return
	}
	if claims == nil {
		claims = []*database.Claim{}
	}
	jsonOK(w, http.StatusOK, claims)
}

type transitionReq struct {
	Status string `json:"status"`
}

type transitionResp struct {
	ClaimID string               `json:"claim_id"`
	Status  database.ClaimStatus `json:"status"`
}

// UpdateClaimStatus drives a claim to Completed or Cancelled and keeps the
// listing's availability in sync.
// POST /claims/{claim_id}/status
func (h *Handler) UpdateClaimStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "claim_id")

	var req transitionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	next := database.ClaimStatus(req.Status)
	if !next.IsTerminal() {
		jsonError(w, "status must be Completed or Cancelled", http.StatusBadRequest)
		return
	}

	applied, err := h.db.TransitionClaim(r.Context(), id, next)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			jsonError(w, "claim not found", http.StatusNotFound)
		case errors.Is(err, database.ErrInvalidTransition), errors.Is(err, database.ErrConflict):
			jsonError(w, err.Error(), http.StatusConflict)
		default:
			log.Printf("error transitioning claim %s: %v", id, err)
			jsonError(w, "failed to update claim status", http.StatusInternalServerError)
		}
		return
	}

	metrics.ClaimTransitions.WithLabelValues(string(applied)).Inc()
	jsonOK(w, http.StatusOK, transitionResp{ClaimID: id, Status: applied})
}

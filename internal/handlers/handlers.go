// Package handlers contains the HTTP layer: JSON request decoding, error
// mapping, and response shaping over the database, sandbox, and analytics
// services.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/foodbridge-dev/foodbridge/internal/analytics"
	"github.com/foodbridge-dev/foodbridge/internal/database"
	"github.com/foodbridge-dev/foodbridge/internal/query"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	db        *database.DB
	sandbox   *query.Sandbox
	analytics *analytics.Service
}

// New creates a new Handler.
func New(db *database.DB, sandbox *query.Sandbox, svc *analytics.Service) *Handler {
	return &Handler{db: db, sandbox: sandbox, analytics: svc}
}

// --- Provider registration ---

type createProviderReq struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Address string `json:"address"`
	City    string `json:"city"`
	Contact string `json:"contact"`
	Email   string `json:"email"`
}

// CreateProvider registers a provider.
// POST /api/providers
func (h *Handler) CreateProvider(w http.ResponseWriter, r *http.Request) {
	var req createProviderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Type == "" {
		jsonError(w, "name and type are required", http.StatusBadRequest)
		return
	}

	p := &database.Provider{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Type:      req.Type,
		Address:   req.Address,
		City:      req.City,
		Contact:   req.Contact,
		Email:     req.Email,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.db.CreateProvider(p); err != nil {
		log.Printf("error creating provider: %v", err)
		jsonError(w, "failed to create provider", http.StatusInternalServerError)
		return
	}
	jsonOK(w, http.StatusCreated, p)
}

// ListProviders returns all providers.
// GET /api/providers
func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.db.ListProviders()
	if err != nil {
		log.Printf("error listing providers: %v", err)
		jsonError(w, "failed to list providers", http.StatusInternalServerError)
		return
	}
	if providers == nil {
		providers = []*database.Provider{}
	}
	jsonOK(w, http.StatusOK, providers)
}

// --- Receiver registration ---

type createReceiverReq struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	City    string `json:"city"`
	Contact string `json:"contact"`
	Email   string `json:"email"`
}

// CreateReceiver registers a receiver.
// POST /api/receivers
func (h *Handler) CreateReceiver(w http.ResponseWriter, r *http.Request) {
	var req createReceiverReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Type == "" {
		jsonError(w, "name and type are required", http.StatusBadRequest)
		return
	}

	rec := &database.Receiver{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Type:      req.Type,
		City:      req.City,
		Contact:   req.Contact,
		Email:     req.Email,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.db.CreateReceiver(rec); err != nil {
		log.Printf("error creating receiver: %v", err)
		jsonError(w, "failed to create receiver", http.StatusInternalServerError)
		return
	}
	jsonOK(w, http.StatusCreated, rec)
}

// ListReceivers returns all receivers.
// GET /api/receivers
func (h *Handler) ListReceivers(w http.ResponseWriter, r *http.Request) {
	receivers, err := h.db.ListReceivers()
	if err != nil {
		log.Printf("error listing receivers: %v", err)
		jsonError(w, "failed to list receivers", http.StatusInternalServerError)
		return
	}
	if receivers == nil {
		receivers = []*database.Receiver{}
	}
	jsonOK(w, http.StatusOK, receivers)
}

// --- Food listings ---

type createListingReq struct {
	FoodName    string `json:"food_name"`
	Quantity    int    `json:"quantity"`
	ExpiryDate  string `json:"expiry_date"` // YYYY-MM-DD
	ProviderID  string `json:"provider_id"`
	Location    string `json:"location"`
	FoodType    string `json:"food_type"`
	MealType    string `json:"meal_type"`
	Description string `json:"description"`
}

// CreateListing adds a food listing for a provider.
// POST /api/food-listings
func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req createListingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.FoodName == "" || req.ProviderID == "" {
		jsonError(w, "food_name and provider_id are required", http.StatusBadRequest)
		return
	}
	if req.Quantity < 1 {
		jsonError(w, "quantity must be at least 1", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse("2006-01-02", req.ExpiryDate); err != nil {
		jsonError(w, "expiry_date must be a YYYY-MM-DD date", http.StatusBadRequest)
		return
	}

	l := &database.FoodListing{
		ID:          uuid.New().String(),
		FoodName:    req.FoodName,
		Quantity:    req.Quantity,
		ExpiryDate:  req.ExpiryDate,
		ProviderID:  req.ProviderID,
		Location:    req.Location,
		FoodType:    req.FoodType,
		MealType:    req.MealType,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.db.CreateListing(l); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			jsonError(w, "provider not found", http.StatusNotFound)
			return
		}
		log.Printf("error creating listing: %v", err)
		jsonError(w, "failed to create listing", http.StatusInternalServerError)
		return
	}
	jsonOK(w, http.StatusCreated, l)
}

// ListListings returns listings, filterable by food_type, status, and
// expiring_soon.
// GET /api/food-listings
func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := database.ListingFilter{
		FoodType:     q.Get("food_type"),
		Status:       database.ListingStatus(q.Get("status")),
		ExpiringSoon: q.Get("expiring_soon") == "true" || q.Get("expiring_soon") == "1",
	}

	listings, err := h.db.ListListings(filter)
	if err != nil {
		log.Printf("error listing food listings: %v", err)
		jsonError(w, "failed to list food listings", http.StatusInternalServerError)
		return
	}
	if listings == nil {
		listings = []*database.FoodListing{}
	}
	jsonOK(w, http.StatusOK, listings)
}

// --- helpers ---

func jsonOK(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

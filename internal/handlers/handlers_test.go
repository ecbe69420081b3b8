package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/foodbridge-dev/foodbridge/internal/analytics"
	"github.com/foodbridge-dev/foodbridge/internal/database"
	"github.com/foodbridge-dev/foodbridge/internal/query"
)

// testRouter mirrors the route table wired up in cmd/server.
func testRouter(t *testing.T) (http.Handler, *database.DB) {
	t.Helper()
	db, err := database.Open(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sandbox := query.New(db, 0)
	h := New(db, sandbox, analytics.New(db, sandbox))

	r := chi.NewRouter()
	r.Post("/claims", h.CreateClaim)
	r.Get("/claims", h.ListClaims)
	r.Post("/claims/{claim_id}/status", h.UpdateClaimStatus)
	r.Route("/analytics", func(r chi.Router) {
		r.Post("/query", h.CustomQuery)
		r.Get("/query-suggestions", h.QuerySuggestions)
		r.Get("/reports", h.Reports)
	})
	r.Route("/api", func(r chi.Router) {
		r.Post("/providers", h.CreateProvider)
		r.Get("/providers", h.ListProviders)
		r.Post("/receivers", h.CreateReceiver)
		r.Get("/receivers", h.ListReceivers)
		r.Post("/food-listings", h.CreateListing)
		r.Get("/food-listings", h.ListListings)
		r.Get("/urgent-food", h.UrgentFood)
		r.Get("/dashboard-stats", h.DashboardStats)
		r.Get("/stats", h.Overview)
	})
	return r, db
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dest); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// register creates a provider, a receiver, and one listing, returning their ids.
func register(t *testing.T, router http.Handler) (providerID, receiverID, foodID string) {
	t.Helper()

	rr := do(t, router, http.MethodPost, "/api/providers", map[string]any{
		"name": "Green Grocer", "type": "Grocery Store", "city": "Springfield",
		"contact": "555-0101",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create provider: status %d, body %s", rr.Code, rr.Body)
	}
	var p database.Provider
	decode(t, rr, &p)

	rr = do(t, router, http.MethodPost, "/api/receivers", map[string]any{
		"name": "City Shelter", "type": "Shelter", "city": "Springfield",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create receiver: status %d, body %s", rr.Code, rr.Body)
	}
	var rec database.Receiver
	decode(t, rr, &rec)

	rr = do(t, router, http.MethodPost, "/api/food-listings", map[string]any{
		"food_name": "Bread", "quantity": 5, "expiry_date": "2030-01-02",
		"provider_id": p.ID, "food_type": "Bakery",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create listing: status %d, body %s", rr.Code, rr.Body)
	}
	var l database.FoodListing
	decode(t, rr, &l)

	return p.ID, rec.ID, l.ID
}

func listingStatus(t *testing.T, db *database.DB, id string) database.ListingStatus {
	t.Helper()
	l, err := db.ListingByID(id)
	if err != nil {
		t.Fatalf("listing by id: %v", err)
	}
	return l.Status
}

func TestClaimLifecycleEndToEnd(t *testing.T) {
	router, db := testRouter(t)
	_, receiverID, foodID := register(t, router)

	rr := do(t, router, http.MethodPost, "/claims", map[string]any{
		"food_id": foodID, "receiver_id": receiverID, "notes": "pickup after 5pm",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create claim: status %d, body %s", rr.Code, rr.Body)
	}
	var claim database.Claim
	decode(t, rr, &claim)
	if claim.Status != database.ClaimPending {
		t.Errorf("new claim status = %q, want Pending", claim.Status)
	}
	if got := listingStatus(t, db, foodID); got != database.ListingAvailable {
		t.Errorf("listing after pending claim = %q, want Available", got)
	}

	rr = do(t, router, http.MethodPost, "/claims/"+claim.ID+"/status", map[string]string{"status": "Completed"})
	if rr.Code != http.StatusOK {
		t.Fatalf("complete claim: status %d, body %s", rr.Code, rr.Body)
	}
	var resp struct {
		ClaimID string `json:"claim_id"`
		Status  string `json:"status"`
	}
	decode(t, rr, &resp)
	if resp.ClaimID != claim.ID || resp.Status != "Completed" {
		t.Errorf("transition response = %+v", resp)
	}
	if got := listingStatus(t, db, foodID); got != database.ListingClaimed {
		t.Errorf("listing after completion = %q, want Claimed", got)
	}

	// Reversal: cancelling a completed claim releases the listing.
	rr = do(t, router, http.MethodPost, "/claims/"+claim.ID+"/status", map[string]string{"status": "Cancelled"})
	if rr.Code != http.StatusOK {
		t.Fatalf("cancel claim: status %d, body %s", rr.Code, rr.Body)
	}
	if got := listingStatus(t, db, foodID); got != database.ListingAvailable {
		t.Errorf("listing after cancellation = %q, want Available", got)
	}
}

func TestUpdateClaimStatusErrors(t *testing.T) {
	router, _ := testRouter(t)
	_, receiverID, foodID := register(t, router)

	rr := do(t, router, http.MethodPost, "/claims/no-such-claim/status", map[string]string{"status": "Completed"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown claim: status %d, want 404", rr.Code)
	}

	rr = do(t, router, http.MethodPost, "/claims", map[string]any{
		"food_id": foodID, "receiver_id": receiverID,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create claim: status %d", rr.Code)
	}
	var claim database.Claim
	decode(t, rr, &claim)

	for _, status := range []string{"Pending", "Bogus", ""} {
		rr = do(t, router, http.MethodPost, "/claims/"+claim.ID+"/status", map[string]string{"status": status})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status %q: got %d, want 400", status, rr.Code)
		}
	}
}

func TestCreateClaimErrors(t *testing.T) {
	router, _ := testRouter(t)
	_, receiverID, foodID := register(t, router)

	rr := do(t, router, http.MethodPost, "/claims", map[string]any{"receiver_id": receiverID})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing food_id: status %d, want 400", rr.Code)
	}

	rr = do(t, router, http.MethodPost, "/claims", map[string]any{
		"food_id": "no-such-food", "receiver_id": receiverID,
	})
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown listing: status %d, want 404", rr.Code)
	}

	// Complete a first claim, then try to claim the now-Claimed listing.
	rr = do(t, router, http.MethodPost, "/claims", map[string]any{
		"food_id": foodID, "receiver_id": receiverID,
	})
	var claim database.Claim
	decode(t, rr, &claim)
	do(t, router, http.MethodPost, "/claims/"+claim.ID+"/status", map[string]string{"status": "Completed"})

	rr = do(t, router, http.MethodPost, "/claims", map[string]any{
		"food_id": foodID, "receiver_id": receiverID,
	})
	if rr.Code != http.StatusConflict {
		t.Errorf("claim on claimed listing: status %d, want 409", rr.Code)
	}
}

func TestListListingsFilterParams(t *testing.T) {
	router, _ := testRouter(t)
	register(t, router)

	rr := do(t, router, http.MethodGet, "/api/food-listings?status=Available&food_type=Bakery", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list listings: status %d", rr.Code)
	}
	var listings []database.FoodListing
	decode(t, rr, &listings)
	if len(listings) != 1 {
		t.Errorf("expected 1 listing, got %d", len(listings))
	}

	rr = do(t, router, http.MethodGet, "/api/food-listings?food_type=Produce", nil)
	decode(t, rr, &listings)
	if len(listings) != 0 {
		t.Errorf("expected empty result for Produce, got %d", len(listings))
	}
}

func TestCustomQueryEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	register(t, router)

	rr := do(t, router, http.MethodPost, "/analytics/query", map[string]string{
		"query": "SELECT food_name, quantity FROM food_listings",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("valid query: status %d, body %s", rr.Code, rr.Body)
	}
	var ok struct {
		Success  bool     `json:"success"`
		Columns  []string `json:"columns"`
		Data     [][]any  `json:"data"`
		RowCount int      `json:"row_count"`
	}
	decode(t, rr, &ok)
	if !ok.Success || ok.RowCount != 1 || len(ok.Columns) != 2 {
		t.Errorf("query response = %+v", ok)
	}

	cases := []struct {
		query    string
		code     int
		contains string
	}{
		{"", http.StatusBadRequest, "empty"},
		{"DROP TABLE claims", http.StatusBadRequest, "DROP"},
		{"PRAGMA table_info(claims)", http.StatusBadRequest, "SELECT"},
		{"SELECT * FROM no_such_table", http.StatusInternalServerError, "database error"},
	}
	for _, tc := range cases {
		rr = do(t, router, http.MethodPost, "/analytics/query", map[string]string{"query": tc.query})
		if rr.Code != tc.code {
			t.Errorf("query %q: status %d, want %d", tc.query, rr.Code, tc.code)
			continue
		}
		var fail struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}
		decode(t, rr, &fail)
		if fail.Success {
			t.Errorf("query %q: success flag set on failure", tc.query)
		}
		if !strings.Contains(fail.Error, tc.contains) {
			t.Errorf("query %q: error %q does not mention %q", tc.query, fail.Error, tc.contains)
		}
	}
}

func TestQuerySuggestionsAllPassSandbox(t *testing.T) {
	router, db := testRouter(t)
	register(t, router)

	rr := do(t, router, http.MethodGet, "/analytics/query-suggestions", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("suggestions: status %d", rr.Code)
	}
	var resp struct {
		Success     bool         `json:"success"`
		Suggestions []Suggestion `json:"suggestions"`
	}
	decode(t, rr, &resp)
	if !resp.Success || len(resp.Suggestions) == 0 {
		t.Fatalf("suggestions response = %+v", resp)
	}

	sandbox := query.New(db, 0)
	for _, s := range resp.Suggestions {
		if _, err := sandbox.Execute(context.Background(), s.Query); err != nil {
			t.Errorf("suggestion %q does not run: %v", s.Title, err)
		}
	}
}

func TestReportsEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	register(t, router)

	rr := do(t, router, http.MethodGet, "/analytics/reports", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("reports: status %d, body %s", rr.Code, rr.Body)
	}
	var reports []analytics.Report
	decode(t, rr, &reports)
	if len(reports) != 6 {
		t.Errorf("expected 6 reports, got %d", len(reports))
	}
}

func TestUrgentFoodEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	register(t, router)

	for _, bad := range []string{"abc", "-1"} {
		rr := do(t, router, http.MethodGet, "/api/urgent-food?days="+bad, nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("days=%q: status %d, want 400", bad, rr.Code)
		}
	}

	// The registered listing expires in 2030; a 3-day window must not see it.
	rr := do(t, router, http.MethodGet, "/api/urgent-food", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("urgent food: status %d", rr.Code)
	}
	var items []analytics.UrgentItem
	decode(t, rr, &items)
	if len(items) != 0 {
		t.Errorf("expected no urgent items, got %d", len(items))
	}

	rr = do(t, router, http.MethodGet, fmt.Sprintf("/api/urgent-food?days=%d", 3650), nil)
	decode(t, rr, &items)
	if len(items) != 1 {
		t.Errorf("wide window: expected 1 item, got %d", len(items))
	}
}

func TestStatsEndpoints(t *testing.T) {
	router, _ := testRouter(t)
	_, receiverID, foodID := register(t, router)

	rr := do(t, router, http.MethodPost, "/claims", map[string]any{
		"food_id": foodID, "receiver_id": receiverID,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create claim: status %d", rr.Code)
	}

	rr = do(t, router, http.MethodGet, "/api/dashboard-stats", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard stats: status %d", rr.Code)
	}
	var stats analytics.DashboardStats
	decode(t, rr, &stats)
	if got := stats.ProviderSuccess["Grocery Store"]; got.Total != 1 || got.SuccessRate != 0 {
		t.Errorf("grocery success = %+v, want 1 pending claim and zero rate", got)
	}

	rr = do(t, router, http.MethodGet, "/api/stats", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("stats: status %d", rr.Code)
	}
	var o analytics.Overview
	decode(t, rr, &o)
	if o.TotalProviders != 1 || o.PendingClaims != 1 || o.AvailableItems != 1 {
		t.Errorf("overview = %+v", o)
	}
}

func TestCreateListingValidation(t *testing.T) {
	router, _ := testRouter(t)
	providerID, _, _ := register(t, router)

	cases := []map[string]any{
		{"quantity": 5, "expiry_date": "2030-01-02", "provider_id": providerID},      // missing name
		{"food_name": "Rice", "quantity": 0, "expiry_date": "2030-01-02", "provider_id": providerID}, // zero quantity
		{"food_name": "Rice", "quantity": 5, "expiry_date": "tomorrow", "provider_id": providerID},   // bad date
	}
	for i, body := range cases {
		rr := do(t, router, http.MethodPost, "/api/food-listings", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("case %d: status %d, want 400", i, rr.Code)
		}
	}

	rr := do(t, router, http.MethodPost, "/api/food-listings", map[string]any{
		"food_name": "Rice", "quantity": 5, "expiry_date": "2030-01-02", "provider_id": "missing",
	})
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown provider: status %d, want 404", rr.Code)
	}
}

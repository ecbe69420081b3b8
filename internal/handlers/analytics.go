package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/foodbridge-dev/foodbridge/internal/metrics"
	"github.com/foodbridge-dev/foodbridge/internal/query"
)

type customQueryReq struct {
	Query string `json:"query"`
}

type querySuccessResp struct {
	Success  bool     `json:"success"`
	Columns  []string `json:"columns"`
	Data     [][]any  `json:"data"`
	RowCount int      `json:"row_count"`
}

type queryFailureResp struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// CustomQuery runs a caller-supplied read-only query through the sandbox.
// The response keeps the {success, ...} body shape in both directions, with
// validation failures as 400 and store failures as 500.
// POST /analytics/query
func (h *Handler) CustomQuery(w http.ResponseWriter, r *http.Request) {
	var req customQueryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonOK(w, http.StatusBadRequest, queryFailureResp{Error: "invalid request body"})
		return
	}

	res, err := h.sandbox.Execute(r.Context(), req.Query)
	if err != nil {
		var forbidden *query.ForbiddenKeywordError
		status := http.StatusInternalServerError
		outcome := "store_error"
		switch {
		case errors.Is(err, query.ErrInvalidQuery):
			status = http.StatusBadRequest
			outcome = "invalid"
		case errors.As(err, &forbidden):
			status = http.StatusBadRequest
			outcome = "forbidden"
		case errors.Is(err, query.ErrTimeout):
			outcome = "timeout"
		}
		metrics.SandboxQueries.WithLabelValues(outcome).Inc()
		jsonOK(w, status, queryFailureResp{Error: err.Error()})
		return
	}

	metrics.SandboxQueries.WithLabelValues("success").Inc()
	jsonOK(w, http.StatusOK, querySuccessResp{
		Success:  true,
		Columns:  res.Columns,
		Data:     res.Rows,
		RowCount: res.RowCount,
	})
}

// Suggestion is a titled example query for the analytics surface.
type Suggestion struct {
	Title string `json:"title"`
	Query string `json:"query"`
}

// suggestions is a static catalog; every entry passes the sandbox filter.
var suggestions = []Suggestion{
	{
		Title: "Total Food Items by Provider Type",
		Query: "SELECT p.type, COUNT(f.food_id) AS total_items FROM providers p LEFT JOIN food_listings f ON p.provider_id = f.provider_id GROUP BY p.type ORDER BY total_items DESC;",
	},
	{
		Title: "Claims Status Summary",
		Query: "SELECT status, COUNT(*) AS count FROM claims GROUP BY status ORDER BY count DESC;",
	},
	{
		Title: "Food Items Expiring in Next 7 Days",
		Query: "SELECT f.food_name, f.quantity, f.expiry_date, p.name AS provider FROM food_listings f JOIN providers p ON f.provider_id = p.provider_id WHERE f.expiry_date <= date('now', '+7 days') AND f.status = 'Available' ORDER BY f.expiry_date;",
	},
	{
		Title: "Top 5 Most Active Providers",
		Query: "SELECT p.name, p.type, COUNT(f.food_id) AS food_items FROM providers p LEFT JOIN food_listings f ON p.provider_id = f.provider_id GROUP BY p.provider_id ORDER BY food_items DESC LIMIT 5;",
	},
	{
		Title: "Receivers by Type and City",
		Query: "SELECT city, type, COUNT(*) AS count FROM receivers GROUP BY city, type ORDER BY city, count DESC;",
	},
	{
		Title: "Monthly Claims Trend",
		Query: "SELECT strftime('%Y-%m', timestamp) AS month, COUNT(*) AS claims_count FROM claims GROUP BY month ORDER BY month DESC LIMIT 12;",
	},
	{
		Title: "Food Saved by Food Type",
		Query: "SELECT f.food_type, SUM(f.quantity) AS total_quantity FROM food_listings f JOIN claims c ON f.food_id = c.food_id WHERE c.status = 'Completed' GROUP BY f.food_type ORDER BY total_quantity DESC;",
	},
	{
		Title: "Average Response Time for Claims",
		Query: "SELECT AVG(julianday(date('now')) - julianday(date(timestamp))) AS avg_response_days FROM claims WHERE status != 'Pending';",
	},
}

// QuerySuggestions serves the static example-query catalog. No store access.
// GET /analytics/query-suggestions
func (h *Handler) QuerySuggestions(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, http.StatusOK, map[string]any{
		"success":     true,
		"suggestions": suggestions,
	})
}

// Reports runs the canned analytics catalog.
// GET /analytics/reports
func (h *Handler) Reports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.analytics.Reports(r.Context())
	if err != nil {
		log.Printf("error building reports: %v", err)
		jsonError(w, "failed to build reports", http.StatusInternalServerError)
		return
	}
	jsonOK(w, http.StatusOK, reports)
}

// UrgentFood lists available listings that expire within ?days (default 3).
// GET /api/urgent-food
func (h *Handler) UrgentFood(w http.ResponseWriter, r *http.Request) {
	days := 3
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			jsonError(w, "days must be a non-negative integer", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	items, err := h.analytics.UrgentFood(r.Context(), days)
	if err != nil {
		log.Printf("error listing urgent food: %v", err)
		jsonError(w, "failed to list urgent food", http.StatusInternalServerError)
		return
	}
	jsonOK(w, http.StatusOK, items)
}

// DashboardStats serves claim volume and provider success-rate figures.
// GET /api/dashboard-stats
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.DashboardStats(r.Context())
	if err != nil {
		log.Printf("error computing dashboard stats: %v", err)
		jsonError(w, "failed to compute dashboard stats", http.StatusInternalServerError)
		return
	}
	jsonOK(w, http.StatusOK, stats)
}

// Overview serves the landing dashboard's headline numbers.
// GET /api/stats
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.analytics.Overview(r.Context())
	if err != nil {
		log.Printf("error computing overview: %v", err)
		jsonError(w, "failed to compute overview", http.StatusInternalServerError)
		return
	}
	jsonOK(w, http.StatusOK, overview)
}

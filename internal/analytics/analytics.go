// Package analytics holds the fixed catalog of aggregate reads over the
// store: distributions, time trends, dashboard statistics, and the urgent
// food feed. Nothing here mutates; every report is recomputed per request.
package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/foodbridge-dev/foodbridge/internal/database"
	"github.com/foodbridge-dev/foodbridge/internal/query"
)

// Service runs analytics reads. The canned reports execute through the same
// sandbox as user-submitted queries so every analytical result shares one
// tabular shape.
type Service struct {
	db      *database.DB
	sandbox *query.Sandbox
}

// New constructs a Service.
func New(db *database.DB, sandbox *query.Sandbox) *Service {
	return &Service{db: db, sandbox: sandbox}
}

// Report is one canned analytical read.
type Report struct {
	Name   string        `json:"name"`
	Title  string        `json:"title"`
	Result *query.Result `json:"result"`
}

// The catalog SQL deliberately references the claims "timestamp" column
// rather than a created_at alias: the sandbox's keyword scan would reject
// "created_at" as containing CREATE.
var catalog = []struct {
	name, title, sql string
}{
	{
		"claims_by_status", "Claims by status",
		`SELECT status, COUNT(*) AS count FROM claims GROUP BY status`,
	},
	{
		"food_types", "Food type distribution",
		`SELECT food_type, COUNT(*) AS count FROM food_listings GROUP BY food_type`,
	},
	{
		"provider_types", "Provider type distribution",
		`SELECT type, COUNT(*) AS count FROM providers GROUP BY type`,
	},
	{
		"receiver_types", "Receiver type distribution",
		`SELECT type, COUNT(*) AS count FROM receivers GROUP BY type`,
	},
	{
		"waste_metrics", "Waste prevention metrics",
		`SELECT
			COALESCE(SUM(CASE WHEN c.status = 'Completed' THEN f.quantity ELSE 0 END), 0) AS saved,
			COALESCE(SUM(CASE WHEN c.status = 'Cancelled' THEN f.quantity ELSE 0 END), 0) AS cancelled,
			COALESCE(SUM(f.quantity), 0) AS total
		FROM claims c
		JOIN food_listings f ON c.food_id = f.food_id`,
	},
	{
		"monthly_trends", "Monthly claim trend",
		`SELECT strftime('%Y-%m', timestamp) AS month, COUNT(*) AS claims_count
		FROM claims
		WHERE timestamp >= date('now', '-6 months')
		GROUP BY month ORDER BY month`,
	},
}

// Reports runs the whole catalog in order.
func (s *Service) Reports(ctx context.Context) ([]Report, error) {
	reports := make([]Report, 0, len(catalog))
	for _, entry := range catalog {
		res, err := s.sandbox.Execute(ctx, entry.sql)
		if err != nil {
			return nil, fmt.Errorf("report %s: %w", entry.name, err)
		}
		reports = append(reports, Report{Name: entry.name, Title: entry.title, Result: res})
	}
	return reports, nil
}

// ProviderSuccess summarizes claim outcomes for one provider type.
type ProviderSuccess struct {
	Total       int     `json:"total"`
	Completed   int     `json:"completed"`
	SuccessRate float64 `json:"success_rate"` // percent, one decimal, 0 when Total is 0
}

// DashboardStats feeds the operational dashboard.
type DashboardStats struct {
	DailyClaims     map[string]int             `json:"daily_claims"`
	ProviderSuccess map[string]ProviderSuccess `json:"provider_success"`
}

// DashboardStats returns claim counts per day for the last 7 days and the
// completion rate per provider type. Provider types with no claims at all
// appear with a zero rate rather than being dropped.
func (s *Service) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{
		DailyClaims:     map[string]int{},
		ProviderSuccess: map[string]ProviderSuccess{},
	}

	rows, err := s.db.QueryRead(ctx, `
		SELECT date(timestamp) AS day, COUNT(*) AS count
		FROM claims
		WHERE timestamp >= datetime('now', '-7 days')
		GROUP BY day ORDER BY day`)
	if err != nil {
		return nil, fmt.Errorf("daily claims: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, err
		}
		stats.DailyClaims[day] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryRead(ctx, `
		SELECT p.type,
		       COUNT(c.claim_id) AS total,
		       COALESCE(SUM(CASE WHEN c.status = 'Completed' THEN 1 ELSE 0 END), 0) AS completed
		FROM providers p
		LEFT JOIN food_listings f ON f.provider_id = p.provider_id
		LEFT JOIN claims c ON c.food_id = f.food_id
		GROUP BY p.type`)
	if err != nil {
		return nil, fmt.Errorf("provider success: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var providerType string
		var total, completed int
		if err := rows.Scan(&providerType, &total, &completed); err != nil {
			return nil, err
		}
		rate := 0.0
		if total > 0 {
			rate = math.Round(float64(completed)/float64(total)*1000) / 10
		}
		stats.ProviderSuccess[providerType] = ProviderSuccess{
			Total:       total,
			Completed:   completed,
			SuccessRate: rate,
		}
	}
	return stats, rows.Err()
}

// UrgentItem is an available listing that expires soon.
type UrgentItem struct {
	FoodID          string `json:"food_id"`
	FoodName        string `json:"food_name"`
	Quantity        int    `json:"quantity"`
	ExpiryDate      string `json:"expiry_date"`
	ProviderName    string `json:"provider_name"`
	ProviderContact string `json:"provider_contact"`
}

// UrgentFood returns Available listings expiring on or before today+days,
// soonest first.
func (s *Service) UrgentFood(ctx context.Context, days int) ([]UrgentItem, error) {
	rows, err := s.db.QueryRead(ctx, `
		SELECT f.food_id, f.food_name, f.quantity, f.expiry_date, p.name, p.contact
		FROM food_listings f
		JOIN providers p ON f.provider_id = p.provider_id
		WHERE f.expiry_date <= date('now', ?) AND f.status = 'Available'
		ORDER BY f.expiry_date`,
		fmt.Sprintf("+%d days", days))
	if err != nil {
		return nil, fmt.Errorf("urgent food: %w", err)
	}
	defer rows.Close()

	items := []UrgentItem{}
	for rows.Next() {
		var item UrgentItem
		if err := rows.Scan(&item.FoodID, &item.FoodName, &item.Quantity, &item.ExpiryDate,
			&item.ProviderName, &item.ProviderContact); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// RecentClaim is a row in the overview's recent activity feed.
type RecentClaim struct {
	ClaimID   string    `json:"claim_id"`
	FoodName  string    `json:"food_name"`
	Receiver  string    `json:"receiver"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Overview carries the headline numbers for the landing dashboard.
type Overview struct {
	TotalProviders   int           `json:"total_providers"`
	TotalReceivers   int           `json:"total_receivers"`
	AvailableItems   int           `json:"available_food_items"`
	SuccessfulClaims int           `json:"successful_claims"`
	PendingClaims    int           `json:"pending_claims"`
	TotalQuantity    int           `json:"total_quantity"`
	ExpiringSoon     int           `json:"expiring_soon"`
	RecentClaims     []RecentClaim `json:"recent_claims"`
}

// Overview computes the headline counts and the five most recent claims.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	o := &Overview{RecentClaims: []RecentClaim{}}

	counts := []struct {
		dest *int
		sql  string
	}{
		{&o.TotalProviders, `SELECT COUNT(*) FROM providers`},
		{&o.TotalReceivers, `SELECT COUNT(*) FROM receivers`},
		{&o.AvailableItems, `SELECT COUNT(*) FROM food_listings WHERE status = 'Available'`},
		{&o.SuccessfulClaims, `SELECT COUNT(*) FROM claims WHERE status = 'Completed'`},
		{&o.PendingClaims, `SELECT COUNT(*) FROM claims WHERE status = 'Pending'`},
		{&o.TotalQuantity, `SELECT COALESCE(SUM(quantity), 0) FROM food_listings WHERE status = 'Available'`},
		{&o.ExpiringSoon, `SELECT COUNT(*) FROM food_listings WHERE expiry_date <= date('now', '+3 days') AND status = 'Available'`},
	}
	for _, c := range counts {
		if err := s.scalar(ctx, c.sql, c.dest); err != nil {
			return nil, err
		}
	}

	rows, err := s.db.QueryRead(ctx, `
		SELECT c.claim_id, f.food_name, r.name, c.status, c.timestamp
		FROM claims c
		JOIN food_listings f ON c.food_id = f.food_id
		JOIN receivers r ON c.receiver_id = r.receiver_id
		ORDER BY c.timestamp DESC LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("recent claims: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rc RecentClaim
		if err := rows.Scan(&rc.ClaimID, &rc.FoodName, &rc.Receiver, &rc.Status, &rc.Timestamp); err != nil {
			return nil, err
		}
		o.RecentClaims = append(o.RecentClaims, rc)
	}
	return o, rows.Err()
}

func (s *Service) scalar(ctx context.Context, sql string, dest *int) error {
	rows, err := s.db.QueryRead(ctx, sql)
	if err != nil {
		return fmt.Errorf("overview count: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(dest); err != nil {
			return err
		}
	}
	return rows.Err()
}

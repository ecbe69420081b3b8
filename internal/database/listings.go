package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ListingStatus represents the availability state of a food listing. It is
// mutated only by the claim-transition path, never directly.
type ListingStatus string

const (
	ListingAvailable ListingStatus = "Available"
	ListingClaimed   ListingStatus = "Claimed"
)

// FoodListing is a quantity of food offered by a provider.
type FoodListing struct {
	ID           string        `json:"food_id"`
	FoodName     string        `json:"food_name"`
	Quantity     int           `json:"quantity"`
	ExpiryDate   string        `json:"expiry_date"` // calendar date, YYYY-MM-DD
	ProviderID   string        `json:"provider_id"`
	ProviderType string        `json:"provider_type"` // copied from the provider at creation
	Location     string        `json:"location"`
	FoodType     string        `json:"food_type"`
	MealType     string        `json:"meal_type"`
	Description  string        `json:"description"`
	Status       ListingStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
}

// ListingFilter narrows ListListings results.
type ListingFilter struct {
	FoodType     string
	Status       ListingStatus
	ExpiringSoon bool // expiry within the next 3 days
}

const listingColumns = `food_id, food_name, quantity, expiry_date, provider_id, provider_type, location, food_type, meal_type, description, status, created_at`

// CreateListing inserts a new listing with status Available, copying the
// provider's type onto the row for query convenience. The provider must
// exist.
func (db *DB) CreateListing(l *FoodListing) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRow(`SELECT type FROM providers WHERE provider_id = ?`, l.ProviderID).Scan(&l.ProviderType)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("provider %s: %w", l.ProviderID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("select provider type: %w", err)
	}

	l.Status = ListingAvailable
	_, err = tx.Exec(
		`INSERT INTO food_listings (`+listingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.FoodName, l.Quantity, l.ExpiryDate, l.ProviderID, l.ProviderType,
		l.Location, l.FoodType, l.MealType, l.Description, l.Status, sqliteTime(l.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return tx.Commit()
}

func scanListing(row interface{ Scan(...any) error }) (*FoodListing, error) {
	l := &FoodListing{}
	err := row.Scan(
		&l.ID, &l.FoodName, &l.Quantity, &l.ExpiryDate, &l.ProviderID, &l.ProviderType,
		&l.Location, &l.FoodType, &l.MealType, &l.Description, &l.Status, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ListingByID looks up a listing.
func (db *DB) ListingByID(id string) (*FoodListing, error) {
	l, err := scanListing(db.conn.QueryRow(
		`SELECT `+listingColumns+` FROM food_listings WHERE food_id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select listing: %w", err)
	}
	return l, nil
}

// ListListings returns listings matching the filter, ordered by expiry date.
func (db *DB) ListListings(f ListingFilter) ([]*FoodListing, error) {
	q := `SELECT ` + listingColumns + ` FROM food_listings WHERE 1=1`
	var args []any
	if f.FoodType != "" {
		q += ` AND food_type = ?`
		args = append(args, f.FoodType)
	}
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.ExpiringSoon {
		q += ` AND expiry_date <= date('now', '+3 days')`
	}
	q += ` ORDER BY expiry_date`

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	var listings []*FoodListing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

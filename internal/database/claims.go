package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ClaimStatus represents the lifecycle state of a claim.
type ClaimStatus string

const (
	ClaimPending   ClaimStatus = "Pending"
	ClaimCompleted ClaimStatus = "Completed"
	ClaimCancelled ClaimStatus = "Cancelled"
)

// IsTerminal reports whether s is a valid target of an explicit transition.
func (s ClaimStatus) IsTerminal() bool {
	return s == ClaimCompleted || s == ClaimCancelled
}

// claimTransitions is the explicit transition table. Pending moves to either
// terminal state; the terminal states may be deliberately reversed into each
// other (a completed pickup can fall through, a cancelled claim can be
// revived). Re-applying the current status is handled earlier as a no-op.
var claimTransitions = map[ClaimStatus]map[ClaimStatus]bool{
	ClaimPending:   {ClaimCompleted: true, ClaimCancelled: true},
	ClaimCompleted: {ClaimCancelled: true},
	ClaimCancelled: {ClaimCompleted: true},
}

// Claim is a receiver's request against a food listing.
type Claim struct {
	ID         string      `json:"claim_id"`
	FoodID     string      `json:"food_id"`
	ReceiverID string      `json:"receiver_id"`
	Status     ClaimStatus `json:"status"`
	Notes      string      `json:"notes"`
	CreatedAt  time.Time   `json:"created_at"`
}

const claimColumns = `claim_id, food_id, receiver_id, status, notes, timestamp`

// CreateClaim inserts a new claim with status Pending. The referenced
// receiver and listing must exist, and the listing must be Available; the
// checks run in the same transaction as the insert so a listing cannot be
// double-claimed between check and write. The listing itself is not mutated
// at creation.
func (db *DB) CreateClaim(ctx context.Context, c *Claim) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM receivers WHERE receiver_id = ?`, c.ReceiverID).Scan(&exists); err != nil {
		return fmt.Errorf("check receiver: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("receiver %s: %w", c.ReceiverID, ErrNotFound)
	}

	var status ListingStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM food_listings WHERE food_id = ?`, c.FoodID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("listing %s: %w", c.FoodID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check listing: %w", err)
	}
	if status != ListingAvailable {
		return fmt.Errorf("listing %s is not available: %w", c.FoodID, ErrConflict)
	}

	c.Status = ClaimPending
	_, err = tx.ExecContext(ctx,
		`INSERT INTO claims (`+claimColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.FoodID, c.ReceiverID, c.Status, c.Notes, sqliteTime(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return tx.Commit()
}

// ClaimByID looks up a claim.
func (db *DB) ClaimByID(id string) (*Claim, error) {
	c := &Claim{}
	err := db.conn.QueryRow(
		`SELECT `+claimColumns+` FROM claims WHERE claim_id = ?`, id,
	).Scan(&c.ID, &c.FoodID, &c.ReceiverID, &c.Status, &c.Notes, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("claim %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select claim: %w", err)
	}
	return c, nil
}

// ListClaims returns claims newest first, optionally filtered by status.
func (db *DB) ListClaims(status ClaimStatus) ([]*Claim, error) {
	q := `SELECT ` + claimColumns + ` FROM claims`
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY timestamp DESC`

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []*Claim
	for rows.Next() {
		c := &Claim{}
		if err := rows.Scan(&c.ID, &c.FoodID, &c.ReceiverID, &c.Status, &c.Notes, &c.CreatedAt); err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// TransitionClaim moves a claim to next and synchronizes the associated
// listing's availability, as one transaction: both writes land or neither
// does. Re-applying the claim's current status is an idempotent no-op. The
// claim update carries an optimistic status guard, so a concurrent transition
// that wins the race surfaces as ErrConflict rather than a silent overwrite.
func (db *DB) TransitionClaim(ctx context.Context, id string, next ClaimStatus) (ClaimStatus, error) {
	if !next.IsTerminal() {
		return "", fmt.Errorf("status %q: %w", next, ErrInvalidTransition)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var cur ClaimStatus
	var foodID string
	err = tx.QueryRowContext(ctx, `SELECT status, food_id FROM claims WHERE claim_id = ?`, id).Scan(&cur, &foodID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("claim %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("select claim: %w", err)
	}

	if cur == next {
		return cur, nil
	}
	if !claimTransitions[cur][next] {
		return "", fmt.Errorf("%s -> %s: %w", cur, next, ErrInvalidTransition)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE claims SET status = ? WHERE claim_id = ? AND status = ?`,
		next, id, cur,
	)
	if err != nil {
		return "", fmt.Errorf("update claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("update claim: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("claim %s changed concurrently: %w", id, ErrConflict)
	}

	if err := syncListing(ctx, tx, foodID, next); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit transition: %w", err)
	}
	return next, nil
}

// syncListing keeps a listing's availability in line with the outcome just
// applied to a claim against it: Completed marks the listing Claimed,
// Cancelled returns it to Available. Exactly one listing row is touched. A
// missing listing here means a foreign key was violated upstream, so it is
// reported as an error rather than ignored.
func syncListing(ctx context.Context, tx *sql.Tx, foodID string, claimStatus ClaimStatus) error {
	var status ListingStatus
	switch claimStatus {
	case ClaimCompleted:
		status = ListingClaimed
	case ClaimCancelled:
		status = ListingAvailable
	default:
		// Pending is the initial state and never re-entered here.
		return nil
	}

	res, err := tx.ExecContext(ctx, `UPDATE food_listings SET status = ? WHERE food_id = ?`, status, foodID)
	if err != nil {
		return fmt.Errorf("sync listing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sync listing: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("listing %s referenced by claim: %w", foodID, ErrNotFound)
	}
	return nil
}

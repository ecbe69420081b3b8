package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Provider is an entity that lists surplus food.
type Provider struct {
	ID        string    `json:"provider_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	Contact   string    `json:"contact"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Receiver is an entity that claims listed food.
type Receiver struct {
	ID        string    `json:"receiver_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	City      string    `json:"city"`
	Contact   string    `json:"contact"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

const providerColumns = `provider_id, name, type, address, city, contact, email, created_at`

// CreateProvider inserts a new provider.
func (db *DB) CreateProvider(p *Provider) error {
	_, err := db.conn.Exec(
		`INSERT INTO providers (`+providerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Type, p.Address, p.City, p.Contact, p.Email, sqliteTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert provider: %w", err)
	}
	return nil
}

// ProviderByID looks up a provider.
func (db *DB) ProviderByID(id string) (*Provider, error) {
	p := &Provider{}
	err := db.conn.QueryRow(
		`SELECT `+providerColumns+` FROM providers WHERE provider_id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Type, &p.Address, &p.City, &p.Contact, &p.Email, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("provider %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select provider: %w", err)
	}
	return p, nil
}

// ListProviders returns all providers ordered by name.
func (db *DB) ListProviders() ([]*Provider, error) {
	rows, err := db.conn.Query(`SELECT ` + providerColumns + ` FROM providers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var providers []*Provider
	for rows.Next() {
		p := &Provider{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &p.Address, &p.City, &p.Contact, &p.Email, &p.CreatedAt); err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

const receiverColumns = `receiver_id, name, type, city, contact, email, created_at`

// CreateReceiver inserts a new receiver.
func (db *DB) CreateReceiver(r *Receiver) error {
	_, err := db.conn.Exec(
		`INSERT INTO receivers (`+receiverColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Type, r.City, r.Contact, r.Email, sqliteTime(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert receiver: %w", err)
	}
	return nil
}

// ReceiverByID looks up a receiver.
func (db *DB) ReceiverByID(id string) (*Receiver, error) {
	r := &Receiver{}
	err := db.conn.QueryRow(
		`SELECT `+receiverColumns+` FROM receivers WHERE receiver_id = ?`, id,
	).Scan(&r.ID, &r.Name, &r.Type, &r.City, &r.Contact, &r.Email, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("receiver %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select receiver: %w", err)
	}
	return r, nil
}

// ListReceivers returns all receivers ordered by name.
func (db *DB) ListReceivers() ([]*Receiver, error) {
	rows, err := db.conn.Query(`SELECT ` + receiverColumns + ` FROM receivers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list receivers: %w", err)
	}
	defer rows.Close()

	var receivers []*Receiver
	for rows.Next() {
		r := &Receiver{}
		if err := rows.Scan(&r.ID, &r.Name, &r.Type, &r.City, &r.Contact, &r.Email, &r.CreatedAt); err != nil {
			return nil, err
		}
		receivers = append(receivers, r)
	}
	return receivers, rows.Err()
}

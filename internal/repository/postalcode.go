package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quitanda/backend/internal/domain/address"
)

const (
	lookupPostalCodeSQL = `SELECT street, city, state FROM postal_codes WHERE cep = $1`

	upsertPostalCodeSQL = `INSERT INTO postal_codes (cep, street, city, state)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cep) DO UPDATE SET
		street = EXCLUDED.street, city = EXCLUDED.city, state = EXCLUDED.state`
)

var _ address.Directory = (*PostalCodeDirectory)(nil)

// PostalCodeDirectory implements address.Directory against the local
// postal_codes table, populated by cmd/cep-ingest. It avoids the network
// round trip of the remote directory entirely.
type PostalCodeDirectory struct {
	pool *pgxpool.Pool
}

// NewPostalCodeDirectory returns a PostalCodeDirectory that uses the given pool.
func NewPostalCodeDirectory(pool *pgxpool.Pool) *PostalCodeDirectory {
	return &PostalCodeDirectory{pool: pool}
}

// Lookup resolves a CEP from the local table. An unknown CEP maps to
// address.ErrInvalidCEP.
func (d *PostalCodeDirectory) Lookup(ctx context.Context, cep string) (*address.Location, error) {
	var loc address.Location
	err := d.pool.QueryRow(ctx, lookupPostalCodeSQL, cep).Scan(&loc.Street, &loc.City, &loc.State)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrInvalidCEP
		}
		return nil, fmt.Errorf("looking up CEP %q: %w", cep, err)
	}
	return &loc, nil
}

// Upsert inserts or refreshes one postal code entry. Used by the ingest tool.
func (d *PostalCodeDirectory) Upsert(ctx context.Context, cep string, loc address.Location) error {
	_, err := d.pool.Exec(ctx, upsertPostalCodeSQL, cep, loc.Street, loc.City, loc.State)
	if err != nil {
		return fmt.Errorf("upserting CEP %q: %w", cep, err)
	}
	return nil
}

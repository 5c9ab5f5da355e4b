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
	findAddressByKeySQL = `SELECT id, cep, number, complement, street, city, state
		FROM addresses WHERE cep = $1 AND number = $2 AND complement = $3`

	// Idempotent on the natural key: a concurrent insert of the same
	// (cep, number, complement) returns the row that won, never a duplicate.
	createAddressSQL = `INSERT INTO addresses (id, cep, number, complement, street, city, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (cep, number, complement) DO UPDATE SET cep = EXCLUDED.cep
		RETURNING id, cep, number, complement, street, city, state`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// FindByNaturalKey returns the address matching (cep, number, complement),
// or address.ErrNotFound.
func (r *AddressRepository) FindByNaturalKey(ctx context.Context, cep, number, complement string) (*address.Address, error) {
	rows, err := r.pool.Query(ctx, findAddressByKeySQL, cep, number, complement)
	if err != nil {
		return nil, fmt.Errorf("finding address: %w", err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[address.Address])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, fmt.Errorf("finding address: %w", err)
	}
	return &a, nil
}

// Create persists the address, returning the stored row. When the natural
// key already exists the existing row comes back unchanged.
func (r *AddressRepository) Create(ctx context.Context, a *address.Address) (*address.Address, error) {
	rows, err := r.pool.Query(ctx, createAddressSQL,
		a.ID, a.CEP, a.Number, a.Complement, a.Street, a.City, a.State,
	)
	if err != nil {
		return nil, fmt.Errorf("creating address: %w", err)
	}

	stored, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[address.Address])
	if err != nil {
		return nil, fmt.Errorf("creating address: %w", err)
	}
	return &stored, nil
}

package address

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when no address matches a natural key.
	ErrNotFound = errors.New("address not found")
	// ErrInvalidCEP is returned when the postal code directory rejects or
	// cannot resolve a CEP.
	ErrInvalidCEP = errors.New("invalid CEP")
)

// Address is a delivery address. The natural key (CEP, Number, Complement)
// identifies the real-world address independent of ID; street, city and
// state come from the postal code directory.
type Address struct {
	ID         string
	CEP        string
	Number     string
	Complement string
	Street     string
	City       string
	State      string
}

// Location holds the directory-resolved portion of an address.
type Location struct {
	Street string
	City   string
	State  string
}

// Directory resolves a CEP to its street, city and state. Implementations:
// the remote ViaCEP client and the local postal_codes table.
type Directory interface {
	// Lookup returns ErrInvalidCEP when the CEP is unknown or malformed.
	Lookup(ctx context.Context, cep string) (*Location, error)
}

// Repository defines persistence operations for addresses.
type Repository interface {
	// FindByNaturalKey returns ErrNotFound when no address matches.
	FindByNaturalKey(ctx context.Context, cep, number, complement string) (*Address, error)
	// Create persists the address. It must be idempotent on the natural key:
	// a concurrent insert of the same key yields the already-stored row.
	Create(ctx context.Context, a *Address) (*Address, error)
}

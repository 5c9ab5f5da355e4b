package address

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Resolver turns a (CEP, number, complement) request into a stored address,
// reusing an existing row when the natural key has been seen before.
type Resolver struct {
	addresses Repository
	directory Directory
}

// NewResolver creates a Resolver using the given repository and directory.
func NewResolver(addresses Repository, directory Directory) *Resolver {
	return &Resolver{addresses: addresses, directory: directory}
}

// Resolve returns the address for the given natural key. An existing address
// is returned unchanged, without re-validating the CEP. Otherwise the CEP is
// resolved through the directory, merged with the request fields, and
// persisted. The same natural key always resolves to the same address ID.
func (r *Resolver) Resolve(ctx context.Context, cep, number, complement string) (*Address, error) {
	existing, err := r.addresses.FindByNaturalKey(ctx, cep, number, complement)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "lookup address")
	}

	loc, err := r.directory.Lookup(ctx, cep)
	if err != nil {
		if errors.Is(err, ErrInvalidCEP) {
			return nil, ErrInvalidCEP
		}
		return nil, errors.Wrap(err, "resolve CEP")
	}

	created, err := r.addresses.Create(ctx, &Address{
		ID:         uuid.New().String(),
		CEP:        cep,
		Number:     number,
		Complement: complement,
		Street:     loc.Street,
		City:       loc.City,
		State:      loc.State,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create address")
	}

	return created, nil
}

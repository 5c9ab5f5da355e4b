package user

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("user not found")

// User is an account able to place orders. Credentials and tokens are
// handled outside this module; only identity is needed here.
type User struct {
	ID    string
	Name  string
	Email string
}

// Repository defines lookup operations for user accounts.
type Repository interface {
	FindByID(ctx context.Context, id string) (*User, error)
}

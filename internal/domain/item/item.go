package item

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested item does not exist.
	ErrNotFound = errors.New("item not found")
	// ErrAlreadyExists is returned when an item with the same name and
	// category is already in the catalog.
	ErrAlreadyExists = errors.New("item already exists")
)

// Item represents a catalog item available for purchase. Quantity is the
// stock on hand; it is only mutated through UpdateQuantities.
type Item struct {
	ID         string
	Name       string
	Category   string
	PictureURL string
	Price      decimal.Decimal
	Quantity   int
}

// QuantityUpdate sets the absolute on-hand quantity for one item as part of
// a bulk write.
type QuantityUpdate struct {
	ID       string
	Quantity int
}

// InsufficientStockError indicates a requested quantity exceeds the item's
// on-hand stock.
type InsufficientStockError struct {
	ItemID    string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("item %q is not available in the requested quantity: requested %d, available %d",
		e.Name, e.Requested, e.Available)
}

// Repository defines persistence operations for the item catalog.
type Repository interface {
	Create(ctx context.Context, it *Item) error
	GetByID(ctx context.Context, id string) (*Item, error)
	FindByNameAndCategory(ctx context.Context, name, category string) (*Item, error)
	List(ctx context.Context) ([]Item, error)
	// ListByName matches the name case-insensitively as a substring.
	ListByName(ctx context.Context, name string, page int) ([]Item, error)
	ListByCategory(ctx context.Context, category string, page int) ([]Item, error)
	Update(ctx context.Context, it *Item) error
	Delete(ctx context.Context, id string) error
	// UpdateQuantities applies all quantity changes in a single statement.
	// It is the only write path for stock levels.
	UpdateQuantities(ctx context.Context, updates []QuantityUpdate) error
}

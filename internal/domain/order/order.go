package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

// ParseStatus validates a status string against the known set.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusPreparing, StatusCompleted, StatusCancelled, StatusRejected:
		return Status(s), nil
	default:
		return "", errors.Errorf("invalid status: %q", s)
	}
}

// Line is a single order line. Lines are unique by item within an order;
// duplicates in the request are consolidated before persistence.
type Line struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// Order is a placed customer order. TotalAmount is always derived from the
// catalog prices and discounts, never taken from the client.
type Order struct {
	ID           string
	Status       Status
	Note         string
	TotalAmount  decimal.Decimal
	CreatedAt    time.Time
	DeliveryDate time.Time
	UserID       string
	AddressID    string
	Lines        []Line
}

// Repository defines persistence operations for orders. Orders are never
// deleted; status changes go through UpdateStatus.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string, page int) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}

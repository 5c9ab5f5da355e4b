package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/quitanda/backend/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(id, status, note, total_amount, created_at, delivery_date, user_id, address_id, lines)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	getOrderByIDSQL = `SELECT id, status, note, total_amount, created_at, delivery_date, user_id, address_id, lines
		FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT id, status, note, total_amount, created_at, delivery_date, user_id, address_id, lines
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`
)

const orderPageSize = 10

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Order
// lines are serialized to JSON for storage in the JSONB column.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}

	// An unset delivery date is stored as NULL, not the zero time.
	var deliveryDate any
	if !o.DeliveryDate.IsZero() {
		deliveryDate = o.DeliveryDate
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, string(o.Status), o.Note, o.TotalAmount,
		o.CreatedAt, deliveryDate, o.UserID, o.AddressID, linesJSON,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByUser returns a page of the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, page int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID, page*orderPageSize, orderPageSize)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus sets the order's status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status))
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o            order.Order
		status       string
		total        decimal.Decimal
		createdAt    time.Time
		deliveryDate *time.Time
		linesJSON    []byte
	)
	err := row.Scan(
		&o.ID, &status, &o.Note, &total,
		&createdAt, &deliveryDate, &o.UserID, &o.AddressID, &linesJSON,
	)
	if err != nil {
		return order.Order{}, err
	}

	if err := json.Unmarshal(linesJSON, &o.Lines); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling lines of order %q: %w", o.ID, err)
	}

	o.Status = order.Status(status)
	o.TotalAmount = total
	o.CreatedAt = createdAt
	if deliveryDate != nil {
		o.DeliveryDate = *deliveryDate
	}
	return o, nil
}

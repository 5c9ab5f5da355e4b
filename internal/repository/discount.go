package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quitanda/backend/internal/domain/discount"
)

const (
	createDiscountSQL = `INSERT INTO discounts (id, value, rule, item_id, last_change)
		VALUES ($1, $2, $3, $4, $5)`

	getDiscountByIDSQL = `SELECT id, value, rule, item_id, last_change
		FROM discounts WHERE id = $1`

	// Value-descending order is load-bearing: the resolver applies the first
	// matching rule, which must be the highest discount.
	findDiscountsForItemSQL = `SELECT id, value, rule, item_id, last_change
		FROM discounts WHERE item_id = $1 ORDER BY value DESC`

	listDiscountsByItemSQL = `SELECT id, value, rule, item_id, last_change
		FROM discounts WHERE item_id = $1 ORDER BY value DESC OFFSET $2 LIMIT $3`

	deleteDiscountSQL = `DELETE FROM discounts WHERE id = $1`
)

const discountPageSize = 10

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
// Rules are stored in their "> N" / "< N" string form and parsed on read.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// Create persists a new discount.
func (r *DiscountRepository) Create(ctx context.Context, d *discount.Discount) error {
	_, err := r.pool.Exec(ctx, createDiscountSQL,
		d.ID, d.Value, d.Rule.String(), d.ItemID, d.LastChange,
	)
	if err != nil {
		return fmt.Errorf("creating discount %q: %w", d.ID, err)
	}
	return nil
}

// GetByID returns a single discount by its identifier.
func (r *DiscountRepository) GetByID(ctx context.Context, id string) (*discount.Discount, error) {
	rows, err := r.pool.Query(ctx, getDiscountByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting discount %q: %w", id, err)
	}

	d, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("getting discount %q: %w", id, err)
	}
	return &d, nil
}

// FindAllForItemByValueDesc returns every discount for the item, highest
// value first.
func (r *DiscountRepository) FindAllForItemByValueDesc(ctx context.Context, itemID string) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx, findDiscountsForItemSQL, itemID)
	if err != nil {
		return nil, fmt.Errorf("finding discounts for item %q: %w", itemID, err)
	}
	return pgx.CollectRows(rows, scanDiscount)
}

// ListByItem returns a page of the item's discounts.
func (r *DiscountRepository) ListByItem(ctx context.Context, itemID string, page int) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx, listDiscountsByItemSQL, itemID, page*discountPageSize, discountPageSize)
	if err != nil {
		return nil, fmt.Errorf("listing discounts for item %q: %w", itemID, err)
	}
	return pgx.CollectRows(rows, scanDiscount)
}

// Delete removes a discount.
func (r *DiscountRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteDiscountSQL, id)
	if err != nil {
		return fmt.Errorf("deleting discount %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

func scanDiscount(row pgx.CollectableRow) (discount.Discount, error) {
	var (
		d          discount.Discount
		value      int32
		rule       string
		lastChange time.Time
	)
	if err := row.Scan(&d.ID, &value, &rule, &d.ItemID, &lastChange); err != nil {
		return discount.Discount{}, err
	}

	parsed, err := discount.ParseRule(rule)
	if err != nil {
		return discount.Discount{}, fmt.Errorf("parsing rule %q of discount %q: %w", rule, d.ID, err)
	}

	d.Value = int(value)
	d.Rule = parsed
	d.LastChange = lastChange
	return d, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/quitanda/backend/internal/domain/item"
)

const (
	createItemSQL = `INSERT INTO items (id, name, category, picture_url, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getItemByIDSQL = `SELECT id, name, category, picture_url, price, quantity
		FROM items WHERE id = $1`

	findItemByNameAndCategorySQL = `SELECT id, name, category, picture_url, price, quantity
		FROM items WHERE name = $1 AND category = $2`

	listItemsSQL = `SELECT id, name, category, picture_url, price, quantity
		FROM items ORDER BY name`

	listItemsByNameSQL = `SELECT id, name, category, picture_url, price, quantity
		FROM items WHERE name ILIKE '%' || $1 || '%'
		ORDER BY name OFFSET $2 LIMIT $3`

	listItemsByCategorySQL = `SELECT id, name, category, picture_url, price, quantity
		FROM items WHERE category = $1
		ORDER BY name OFFSET $2 LIMIT $3`

	updateItemSQL = `UPDATE items SET name = $2, category = $3, picture_url = $4,
		price = $5, quantity = $6 WHERE id = $1`

	deleteItemSQL = `DELETE FROM items WHERE id = $1`

	// Bulk quantity write: one statement for every line of an order.
	updateQuantitiesSQL = `UPDATE items AS i SET quantity = u.quantity
		FROM (SELECT UNNEST($1::text[]) AS id, UNNEST($2::int[]) AS quantity) AS u
		WHERE i.id = u.id`
)

const itemPageSize = 10

var _ item.Repository = (*ItemRepository)(nil)

// ItemRepository implements item.Repository backed by PostgreSQL.
type ItemRepository struct {
	pool *pgxpool.Pool
}

// NewItemRepository returns an ItemRepository that uses the given pool.
func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

// Create persists a new catalog item. A (name, category) collision maps to
// item.ErrAlreadyExists via the unique index.
func (r *ItemRepository) Create(ctx context.Context, it *item.Item) error {
	_, err := r.pool.Exec(ctx, createItemSQL,
		it.ID, it.Name, it.Category, it.PictureURL, it.Price, it.Quantity,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return item.ErrAlreadyExists
		}
		return fmt.Errorf("creating item %q: %w", it.ID, err)
	}
	return nil
}

// GetByID returns a single item by its identifier.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*item.Item, error) {
	rows, err := r.pool.Query(ctx, getItemByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting item %q: %w", id, err)
	}

	it, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, item.ErrNotFound
		}
		return nil, fmt.Errorf("getting item %q: %w", id, err)
	}
	return &it, nil
}

// FindByNameAndCategory returns the item with the given name and category,
// or item.ErrNotFound.
func (r *ItemRepository) FindByNameAndCategory(ctx context.Context, name, category string) (*item.Item, error) {
	rows, err := r.pool.Query(ctx, findItemByNameAndCategorySQL, name, category)
	if err != nil {
		return nil, fmt.Errorf("finding item %q/%q: %w", name, category, err)
	}

	it, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, item.ErrNotFound
		}
		return nil, fmt.Errorf("finding item %q/%q: %w", name, category, err)
	}
	return &it, nil
}

// List returns the whole catalog ordered by name.
func (r *ItemRepository) List(ctx context.Context) ([]item.Item, error) {
	rows, err := r.pool.Query(ctx, listItemsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// ListByName returns a page of items whose names contain the given fragment,
// matched case-insensitively.
func (r *ItemRepository) ListByName(ctx context.Context, name string, page int) ([]item.Item, error) {
	rows, err := r.pool.Query(ctx, listItemsByNameSQL, name, page*itemPageSize, itemPageSize)
	if err != nil {
		return nil, fmt.Errorf("listing items by name %q: %w", name, err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// ListByCategory returns a page of the category's items.
func (r *ItemRepository) ListByCategory(ctx context.Context, category string, page int) ([]item.Item, error) {
	rows, err := r.pool.Query(ctx, listItemsByCategorySQL, category, page*itemPageSize, itemPageSize)
	if err != nil {
		return nil, fmt.Errorf("listing items by category %q: %w", category, err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// Update rewrites every mutable field of the item. A (name, category)
// collision with another item maps to item.ErrAlreadyExists.
func (r *ItemRepository) Update(ctx context.Context, it *item.Item) error {
	tag, err := r.pool.Exec(ctx, updateItemSQL,
		it.ID, it.Name, it.Category, it.PictureURL, it.Price, it.Quantity,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return item.ErrAlreadyExists
		}
		return fmt.Errorf("updating item %q: %w", it.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return item.ErrNotFound
	}
	return nil
}

// Delete removes an item from the catalog.
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteItemSQL, id)
	if err != nil {
		return fmt.Errorf("deleting item %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return item.ErrNotFound
	}
	return nil
}

// UpdateQuantities applies every quantity change in one UPDATE ... FROM
// statement, so an order's stock commit is a single write.
func (r *ItemRepository) UpdateQuantities(ctx context.Context, updates []item.QuantityUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	ids := make([]string, len(updates))
	quantities := make([]int32, len(updates))
	for i, u := range updates {
		ids[i] = u.ID
		quantities[i] = int32(u.Quantity)
	}

	_, err := r.pool.Exec(ctx, updateQuantitiesSQL, ids, quantities)
	if err != nil {
		return fmt.Errorf("updating item quantities: %w", err)
	}
	return nil
}

func scanItem(row pgx.CollectableRow) (item.Item, error) {
	var (
		it       item.Item
		price    decimal.Decimal
		quantity int32
	)
	err := row.Scan(&it.ID, &it.Name, &it.Category, &it.PictureURL, &price, &quantity)
	it.Price = price
	it.Quantity = int(quantity)
	return it, err
}

package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/quitanda/backend/internal/domain/address"
	"github.com/quitanda/backend/internal/domain/item"
	"github.com/quitanda/backend/internal/domain/user"
)

// ErrEmptyLines is returned when an order request carries no line items.
var ErrEmptyLines = errors.New("order must have at least one item")

// ItemNotFoundError indicates a requested line references an item that does
// not exist (or vanished between request and processing).
type ItemNotFoundError struct {
	ItemID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s not found", e.ItemID)
}

// InvalidQuantityError indicates a line has a quantity below 1.
type InvalidQuantityError struct {
	ItemID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for item %s", e.ItemID)
}

// LinePricer computes the discounted total for one order line.
type LinePricer interface {
	LineTotal(ctx context.Context, itemID string, unitPrice decimal.Decimal, quantity int) (decimal.Decimal, error)
}

// AddressResolver resolves a delivery address payload to a stored address.
type AddressResolver interface {
	Resolve(ctx context.Context, cep, number, complement string) (*address.Address, error)
}

// CreateRequest holds the input for placing an order. Any total a client
// might compute on its side is irrelevant: the service derives its own.
type CreateRequest struct {
	UserID       string
	CEP          string
	Number       string
	Complement   string
	Note         string
	DeliveryDate time.Time
	Lines        []Line
}

// Service assembles orders: it validates the user, consolidates lines,
// prices them, resolves the address, commits the stock decrement, and
// persists the order.
type Service struct {
	users     user.Repository
	items     item.Repository
	pricing   LinePricer
	addresses AddressResolver
	orders    Repository
	now       func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	users user.Repository,
	items item.Repository,
	pricing LinePricer,
	addresses AddressResolver,
	orders Repository,
) *Service {
	return &Service{
		users:     users,
		items:     items,
		pricing:   pricing,
		addresses: addresses,
		orders:    orders,
		now:       time.Now,
	}
}

// Create places an order. Every validation runs before the only two mutating
// steps (stock decrement, order insert), so a rejection leaves nothing
// behind. A failure between the decrement and the insert is a known
// consistency gap; no compensating rollback is attempted.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}
	for _, line := range req.Lines {
		if line.Quantity < 1 {
			return nil, &InvalidQuantityError{ItemID: line.ItemID}
		}
	}

	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrap(err, "find user")
	}

	lines := Consolidate(req.Lines)

	items, err := s.fetchItems(ctx, lines)
	if err != nil {
		return nil, err
	}

	// Stock is checked sequentially so the first failure is always the first
	// offending consolidated line, not whichever lookup lost a race.
	for i, line := range lines {
		if line.Quantity > items[i].Quantity {
			return nil, &item.InsufficientStockError{
				ItemID:    items[i].ID,
				Name:      items[i].Name,
				Requested: line.Quantity,
				Available: items[i].Quantity,
			}
		}
	}

	total, err := s.priceLines(ctx, lines, items)
	if err != nil {
		return nil, err
	}

	addr, err := s.addresses.Resolve(ctx, req.CEP, req.Number, req.Complement)
	if err != nil {
		return nil, err
	}

	// Single bulk write covering every consolidated line. This is the last
	// mutating step before the order insert.
	updates := make([]item.QuantityUpdate, len(lines))
	for i, line := range lines {
		updates[i] = item.QuantityUpdate{
			ID:       line.ItemID,
			Quantity: items[i].Quantity - line.Quantity,
		}
	}
	if err := s.items.UpdateQuantities(ctx, updates); err != nil {
		return nil, errors.Wrap(err, "update item quantities")
	}

	o := &Order{
		ID:           uuid.New().String(),
		Status:       StatusPending,
		Note:         req.Note,
		TotalAmount:  total,
		CreatedAt:    s.now(),
		DeliveryDate: req.DeliveryDate,
		UserID:       req.UserID,
		AddressID:    addr.ID,
		Lines:        lines,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// GetByID returns one order.
func (s *Service) GetByID(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// ListByUser returns a page of the user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string, page int) ([]Order, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrap(err, "find user")
	}
	return s.orders.ListByUser(ctx, userID, page)
}

// ChangeStatus moves an order to the given status. It never touches stock or
// totals.
func (s *Service) ChangeStatus(ctx context.Context, id string, status Status) error {
	if _, err := s.orders.GetByID(ctx, id); err != nil {
		return err
	}
	return s.orders.UpdateStatus(ctx, id, status)
}

// Consolidate merges duplicate lines by item, summing quantities. The output
// keeps the insertion order of each item's first occurrence.
func Consolidate(lines []Line) []Line {
	index := make(map[string]int, len(lines))
	out := make([]Line, 0, len(lines))

	for _, line := range lines {
		if i, ok := index[line.ItemID]; ok {
			out[i].Quantity += line.Quantity
			continue
		}
		index[line.ItemID] = len(out)
		out = append(out, line)
	}

	return out
}

// fetchItems resolves every consolidated line's item concurrently. Results
// are positioned by line index, so completion order is irrelevant.
func (s *Service) fetchItems(ctx context.Context, lines []Line) ([]item.Item, error) {
	items := make([]item.Item, len(lines))

	g, ctx := errgroup.WithContext(ctx)
	for i, line := range lines {
		g.Go(func() error {
			it, err := s.items.GetByID(ctx, line.ItemID)
			if err != nil {
				if errors.Is(err, item.ErrNotFound) {
					return &ItemNotFoundError{ItemID: line.ItemID}
				}
				return errors.Wrapf(err, "get item %s", line.ItemID)
			}
			items[i] = *it
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return items, nil
}

// priceLines resolves every line's discounted total concurrently and sums
// them. The sum only depends on the multiset of line totals, never on
// completion order.
func (s *Service) priceLines(ctx context.Context, lines []Line, items []item.Item) (decimal.Decimal, error) {
	totals := make([]decimal.Decimal, len(lines))

	g, ctx := errgroup.WithContext(ctx)
	for i, line := range lines {
		g.Go(func() error {
			t, err := s.pricing.LineTotal(ctx, line.ItemID, items[i].Price, line.Quantity)
			if err != nil {
				return errors.Wrapf(err, "price item %s", line.ItemID)
			}
			totals[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, t := range totals {
		total = total.Add(t)
	}
	return total, nil
}

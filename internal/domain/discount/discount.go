package discount

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a requested discount does not exist.
	ErrNotFound = errors.New("discount not found")
	// ErrInvalidQuantity is returned when a line quantity is below 1.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	// ErrInvalidRule is returned when a rule string is not of the form
	// "> N" or "< N".
	ErrInvalidRule = errors.New(`rule must be of the form "> N" or "< N"`)
	// ErrInvalidValue is returned when a discount percentage is outside 1-99.
	ErrInvalidValue = errors.New("discount value must be between 1 and 99")
)

// Op is a rule comparison operator.
type Op uint8

const (
	// OpGreaterThan matches when the quantity is strictly above the threshold.
	OpGreaterThan Op = iota + 1
	// OpLessThan matches when the quantity is strictly below the threshold.
	OpLessThan
)

// Rule is a quantity predicate deciding whether a discount applies.
// The zero Rule matches nothing.
type Rule struct {
	Op        Op
	Threshold int
}

// Matches reports whether the rule applies to the given quantity.
func (r Rule) Matches(quantity int) bool {
	switch r.Op {
	case OpGreaterThan:
		return quantity > r.Threshold
	case OpLessThan:
		return quantity < r.Threshold
	default:
		return false
	}
}

// String renders the rule in its wire/storage form, e.g. "> 5".
func (r Rule) String() string {
	var op string
	switch r.Op {
	case OpGreaterThan:
		op = ">"
	case OpLessThan:
		op = "<"
	default:
		return ""
	}
	return op + " " + strconv.Itoa(r.Threshold)
}

// ParseRule parses the "> N" / "< N" rule form. The threshold must be a
// non-negative integer. Parsing happens once at the edge; matching never
// touches strings.
func ParseRule(s string) (Rule, error) {
	op, rest, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return Rule{}, ErrInvalidRule
	}

	var r Rule
	switch op {
	case ">":
		r.Op = OpGreaterThan
	case "<":
		r.Op = OpLessThan
	default:
		return Rule{}, ErrInvalidRule
	}

	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || n < 0 {
		return Rule{}, ErrInvalidRule
	}
	r.Threshold = n

	return r, nil
}

// Discount is a percentage discount attached to one item, guarded by a
// quantity rule. Multiple discounts may target the same item.
type Discount struct {
	ID         string
	Value      int // percentage, 1-99
	Rule       Rule
	ItemID     string
	LastChange time.Time
}

// Repository provides lookup and mutation of discounts.
type Repository interface {
	Create(ctx context.Context, d *Discount) error
	GetByID(ctx context.Context, id string) (*Discount, error)
	// FindAllForItemByValueDesc returns every discount attached to the item,
	// ordered by value descending. The resolver relies on this order.
	FindAllForItemByValueDesc(ctx context.Context, itemID string) ([]Discount, error)
	ListByItem(ctx context.Context, itemID string, page int) ([]Discount, error)
	Delete(ctx context.Context, id string) error
}

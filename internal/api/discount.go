package api

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/quitanda/backend/internal/domain/discount"
)

// CreateDiscount attaches a new percentage discount to an item. The rule is
// validated and parsed once here; the resolver only ever sees the parsed
// form.
func (h *Handler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	d, err := decodeCreateDiscount(body)
	if err != nil {
		if errors.Is(err, discount.ErrInvalidRule) {
			respondError(w, r, err)
			return
		}
		writeError(w, http.StatusBadRequest, "malformed discount request: "+err.Error())
		return
	}
	if d.Value < 1 || d.Value > 99 {
		respondError(w, r, discount.ErrInvalidValue)
		return
	}

	// The target item must exist.
	if _, err := h.items.GetByID(r.Context(), d.ItemID); err != nil {
		respondError(w, r, err)
		return
	}

	d.ID = uuid.New().String()
	d.LastChange = time.Now()
	if err := h.discounts.Create(r.Context(), d); err != nil {
		respondError(w, r, err)
		return
	}

	writeMessage(w, http.StatusCreated, "discount created successfully")
}

// GetDiscount returns a single discount by ID.
func (h *Handler) GetDiscount(w http.ResponseWriter, r *http.Request) {
	d, err := h.discounts.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeDiscount(e, d)
	})
}

// DeleteDiscount removes a discount. Orders already priced with it are
// unaffected.
func (h *Handler) DeleteDiscount(w http.ResponseWriter, r *http.Request) {
	if err := h.discounts.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "discount deleted successfully")
}

// ListItemDiscounts returns a page of the item's discounts, highest value
// first.
func (h *Handler) ListItemDiscounts(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")

	if _, err := h.items.GetByID(r.Context(), itemID); err != nil {
		respondError(w, r, err)
		return
	}

	list, err := h.discounts.ListByItem(r.Context(), itemID, pageParam(r))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range list {
			encodeDiscount(e, &list[i])
		}
		e.ArrEnd()
	})
}

func decodeCreateDiscount(body []byte) (*discount.Discount, error) {
	var d discount.Discount

	dec := jx.DecodeBytes(body)
	err := dec.Obj(func(dec *jx.Decoder, key string) error {
		switch key {
		case "value":
			n, err := dec.Int()
			d.Value = n
			return err
		case "rule":
			s, err := dec.Str()
			if err != nil {
				return err
			}
			rule, err := discount.ParseRule(s)
			d.Rule = rule
			return err
		case "item_id":
			s, err := dec.Str()
			d.ItemID = s
			return err
		default:
			return dec.Skip()
		}
	})

	return &d, err
}

func encodeDiscount(e *jx.Encoder, d *discount.Discount) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(d.ID)
	e.FieldStart("value")
	e.Int(d.Value)
	e.FieldStart("rule")
	e.Str(d.Rule.String())
	e.FieldStart("item_id")
	e.Str(d.ItemID)
	e.FieldStart("last_change")
	e.Str(d.LastChange.Format(time.RFC3339))
	e.ObjEnd()
}

package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quitanda/backend/internal/domain/item"
)

// ListItems returns the catalog. With a name or category query parameter
// the result is a filtered page: name matches case-insensitively as a
// substring, category matches exactly.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	var (
		items []item.Item
		err   error
	)
	switch q := r.URL.Query(); {
	case q.Get("name") != "":
		items, err = h.items.ListByName(r.Context(), q.Get("name"), pageParam(r))
	case q.Get("category") != "":
		items, err = h.items.ListByCategory(r.Context(), q.Get("category"), pageParam(r))
	default:
		items, err = h.items.List(r.Context())
	}
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range items {
			h.encodeItem(e, &items[i])
		}
		e.ArrEnd()
	})
}

// GetItem returns a single catalog item by ID.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	it, err := h.items.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeItem(e, it)
	})
}

// CreateItem adds a new item to the catalog. Name and category together must
// be unique.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	it, err := decodeCreateItem(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed item request: "+err.Error())
		return
	}
	if it.Name == "" || it.Category == "" || !it.Price.IsPositive() || it.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "item requires a name, a category, a positive price and a non-negative quantity")
		return
	}

	if _, err := h.items.FindByNameAndCategory(r.Context(), it.Name, it.Category); err == nil {
		respondError(w, r, item.ErrAlreadyExists)
		return
	}

	it.ID = uuid.New().String()
	if err := h.items.Create(r.Context(), it); err != nil {
		respondError(w, r, err)
		return
	}

	writeMessage(w, http.StatusCreated, "item created successfully")
}

// UpdateItem applies a partial update to a catalog item. A changed name or
// category is re-checked against the name+category uniqueness rule before
// the write.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	patch, err := decodeItemPatch(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed item request: "+err.Error())
		return
	}

	it, err := h.items.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	renamed := (patch.name != nil && *patch.name != it.Name) ||
		(patch.category != nil && *patch.category != it.Category)
	patch.apply(it)

	if it.Name == "" || it.Category == "" || !it.Price.IsPositive() || it.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "item requires a name, a category, a positive price and a non-negative quantity")
		return
	}

	if renamed {
		if _, err := h.items.FindByNameAndCategory(r.Context(), it.Name, it.Category); err == nil {
			respondError(w, r, item.ErrAlreadyExists)
			return
		}
	}

	if err := h.items.Update(r.Context(), it); err != nil {
		respondError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "item updated successfully")
}

// DeleteItem removes an item from the catalog. Its discounts go with it;
// past orders keep their line snapshots.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.items.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "item removed successfully")
}

func decodeCreateItem(body []byte) (*item.Item, error) {
	var it item.Item

	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			s, err := d.Str()
			it.Name = s
			return err
		case "category":
			s, err := d.Str()
			it.Category = s
			return err
		case "picture_url":
			s, err := d.Str()
			it.PictureURL = s
			return err
		case "price":
			n, err := d.Num()
			if err != nil {
				return err
			}
			price, err := decimal.NewFromString(n.String())
			it.Price = price
			return err
		case "quantity":
			n, err := d.Int()
			it.Quantity = n
			return err
		default:
			return d.Skip()
		}
	})

	return &it, err
}

// pictureURL prefixes the configured image base onto relative picture
// paths. Already-absolute URLs pass through untouched.
func (h *Handler) pictureURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return h.imageBaseURL + path
}

// itemPatch carries only the fields the update request actually set.
type itemPatch struct {
	name       *string
	category   *string
	pictureURL *string
	price      *decimal.Decimal
	quantity   *int
}

func (p *itemPatch) apply(it *item.Item) {
	if p.name != nil {
		it.Name = *p.name
	}
	if p.category != nil {
		it.Category = *p.category
	}
	if p.pictureURL != nil {
		it.PictureURL = *p.pictureURL
	}
	if p.price != nil {
		it.Price = *p.price
	}
	if p.quantity != nil {
		it.Quantity = *p.quantity
	}
}

func decodeItemPatch(body []byte) (*itemPatch, error) {
	var p itemPatch

	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			s, err := d.Str()
			p.name = &s
			return err
		case "category":
			s, err := d.Str()
			p.category = &s
			return err
		case "picture_url":
			s, err := d.Str()
			p.pictureURL = &s
			return err
		case "price":
			n, err := d.Num()
			if err != nil {
				return err
			}
			price, err := decimal.NewFromString(n.String())
			p.price = &price
			return err
		case "quantity":
			n, err := d.Int()
			p.quantity = &n
			return err
		default:
			return d.Skip()
		}
	})

	return &p, err
}

func (h *Handler) encodeItem(e *jx.Encoder, it *item.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ID)
	e.FieldStart("name")
	e.Str(it.Name)
	e.FieldStart("category")
	e.Str(it.Category)
	e.FieldStart("picture_url")
	e.Str(h.pictureURL(it.PictureURL))
	e.FieldStart("price")
	e.Float64(it.Price.InexactFloat64())
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	e.ObjEnd()
}

package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/jx"

	"github.com/quitanda/backend/internal/domain/order"
)

// orderCreatedMessage is the confirmation returned after a successful order.
const orderCreatedMessage = "order created successfully"

// CreateOrder decodes the order request, delegates to the order service, and
// returns the confirmation message.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	req, err := decodeCreateOrder(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed order request: "+err.Error())
		return
	}

	if _, err := h.orders.Create(r.Context(), req); err != nil {
		respondError(w, r, err)
		return
	}

	writeMessage(w, http.StatusCreated, orderCreatedMessage)
}

// GetOrder returns a single order by ID.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// ListUserOrders returns a page of the user's orders.
func (h *Handler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.ListByUser(r.Context(), r.PathValue("id"), pageParam(r))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range list {
			encodeOrder(e, &list[i])
		}
		e.ArrEnd()
	})
}

// ChangeOrderStatus moves an order to a new status.
func (h *Handler) ChangeOrderStatus(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	var raw string
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		s, err := d.Str()
		raw = s
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, "malformed status request")
		return
	}

	status, err := order.ParseStatus(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.orders.ChangeStatus(r.Context(), r.PathValue("id"), status); err != nil {
		respondError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "order status changed successfully")
}

func decodeCreateOrder(body []byte) (order.CreateRequest, error) {
	var req order.CreateRequest

	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "user_id":
			s, err := d.Str()
			req.UserID = s
			return err
		case "cep":
			s, err := d.Str()
			req.CEP = s
			return err
		case "number":
			s, err := d.Str()
			req.Number = s
			return err
		case "complement":
			s, err := d.Str()
			req.Complement = s
			return err
		case "note":
			s, err := d.Str()
			req.Note = s
			return err
		case "delivery_date":
			s, err := d.Str()
			if err != nil {
				return err
			}
			t, err := time.Parse(time.RFC3339, s)
			req.DeliveryDate = t
			return err
		case "lines":
			return d.Arr(func(d *jx.Decoder) error {
				var line order.Line
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "item_id":
						s, err := d.Str()
						line.ItemID = s
						return err
					case "quantity":
						n, err := d.Int()
						line.Quantity = n
						return err
					default:
						return d.Skip()
					}
				}); err != nil {
					return err
				}
				req.Lines = append(req.Lines, line)
				return nil
			})
		default:
			return d.Skip()
		}
	})

	return req, err
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("status")
	e.Str(string(o.Status))
	if o.Note != "" {
		e.FieldStart("note")
		e.Str(o.Note)
	}
	e.FieldStart("total_amount")
	e.Float64(o.TotalAmount.InexactFloat64())
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.Format(time.RFC3339))
	if !o.DeliveryDate.IsZero() {
		e.FieldStart("delivery_date")
		e.Str(o.DeliveryDate.Format(time.RFC3339))
	}
	e.FieldStart("user_id")
	e.Str(o.UserID)
	e.FieldStart("address_id")
	e.Str(o.AddressID)
	e.FieldStart("lines")
	e.ArrStart()
	for _, line := range o.Lines {
		e.ObjStart()
		e.FieldStart("item_id")
		e.Str(line.ItemID)
		e.FieldStart("quantity")
		e.Int(line.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

// pageParam reads the optional "page" query parameter, defaulting to 0.
func pageParam(r *http.Request) int {
	v := r.URL.Query().Get("page")
	if v == "" {
		return 0
	}
	page, err := strconv.Atoi(v)
	if err != nil || page < 0 {
		return 0
	}
	return page
}

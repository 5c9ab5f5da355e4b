package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/quitanda/backend/internal/domain/address"
	"github.com/quitanda/backend/internal/domain/discount"
	"github.com/quitanda/backend/internal/domain/item"
	"github.com/quitanda/backend/internal/domain/order"
	"github.com/quitanda/backend/internal/domain/user"
)

// writeJSON encodes the object built by fn and writes it with the given
// status code.
func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeMessage writes a { "message": ... } confirmation body.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("message")
		e.Str(msg)
		e.ObjEnd()
	})
}

// writeError writes a { "code": ..., "message": ... } error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(msg)
		e.ObjEnd()
	})
}

// respondError maps a domain error to an HTTP response. Request-rejection
// errors carry their own message; anything unrecognized is logged and
// answered with a bare 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		iqErr  *order.InvalidQuantityError
		infErr *order.ItemNotFoundError
		stkErr *item.InsufficientStockError
	)

	switch {
	case errors.Is(err, order.ErrEmptyLines),
		errors.As(err, &iqErr),
		errors.Is(err, discount.ErrInvalidQuantity),
		errors.Is(err, discount.ErrInvalidRule),
		errors.Is(err, discount.ErrInvalidValue),
		errors.As(err, &stkErr),
		errors.Is(err, address.ErrInvalidCEP),
		errors.Is(err, item.ErrAlreadyExists):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, item.ErrNotFound),
		errors.Is(err, discount.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.As(err, &infErr):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

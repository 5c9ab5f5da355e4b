// Package api exposes the commerce core over HTTP. Handlers are registered
// on a net/http ServeMux with method patterns and exchange JSON through
// go-faster/jx.
package api

import (
	"net/http"

	"github.com/quitanda/backend/internal/domain/discount"
	"github.com/quitanda/backend/internal/domain/item"
	"github.com/quitanda/backend/internal/domain/order"
	"github.com/quitanda/backend/pkg/httpmiddleware"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative picture paths in item responses.
	// When empty, picture paths are returned as stored.
	ImageBaseURL string
}

// Handler holds the HTTP handlers, delegating business logic to the domain
// services and repositories.
type Handler struct {
	items        item.Repository
	discounts    discount.Repository
	orders       *order.Service
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	items item.Repository,
	discounts discount.Repository,
	orders *order.Service,
) *Handler {
	return &Handler{
		items:        items,
		discounts:    discounts,
		orders:       orders,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Register attaches all routes to the mux. Mutating routes are wrapped with
// the authed middleware; reads stay open.
func (h *Handler) Register(mux *http.ServeMux, authed httpmiddleware.Middleware) {
	mux.HandleFunc("GET /api/items", h.ListItems)
	mux.HandleFunc("GET /api/items/{id}", h.GetItem)
	mux.HandleFunc("GET /api/items/{id}/discounts", h.ListItemDiscounts)
	mux.HandleFunc("GET /api/discounts/{id}", h.GetDiscount)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("GET /api/users/{id}/orders", h.ListUserOrders)

	mux.Handle("POST /api/items", authed(http.HandlerFunc(h.CreateItem)))
	mux.Handle("PATCH /api/items/{id}", authed(http.HandlerFunc(h.UpdateItem)))
	mux.Handle("DELETE /api/items/{id}", authed(http.HandlerFunc(h.DeleteItem)))
	mux.Handle("POST /api/discounts", authed(http.HandlerFunc(h.CreateDiscount)))
	mux.Handle("DELETE /api/discounts/{id}", authed(http.HandlerFunc(h.DeleteDiscount)))
	mux.Handle("POST /api/orders", authed(http.HandlerFunc(h.CreateOrder)))
	mux.Handle("PATCH /api/orders/{id}/status", authed(http.HandlerFunc(h.ChangeOrderStatus)))
}

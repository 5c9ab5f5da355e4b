package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quitanda/backend/internal/domain/address"
	"github.com/quitanda/backend/internal/domain/auth"
	"github.com/quitanda/backend/internal/domain/discount"
	"github.com/quitanda/backend/internal/domain/item"
	"github.com/quitanda/backend/internal/domain/order"
	"github.com/quitanda/backend/internal/domain/user"
)

// --- Mock implementations ---

type mockItemRepo struct {
	byID    map[string]*item.Item
	created []*item.Item
}

func newMockItemRepo(items ...*item.Item) *mockItemRepo {
	byID := make(map[string]*item.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	return &mockItemRepo{byID: byID}
}

func (m *mockItemRepo) Create(_ context.Context, it *item.Item) error {
	m.created = append(m.created, it)
	m.byID[it.ID] = it
	return nil
}

func (m *mockItemRepo) GetByID(_ context.Context, id string) (*item.Item, error) {
	it, ok := m.byID[id]
	if !ok {
		return nil, item.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *mockItemRepo) FindByNameAndCategory(_ context.Context, name, category string) (*item.Item, error) {
	for _, it := range m.byID {
		if it.Name == name && it.Category == category {
			return it, nil
		}
	}
	return nil, item.ErrNotFound
}

func (m *mockItemRepo) List(_ context.Context) ([]item.Item, error) {
	out := make([]item.Item, 0, len(m.byID))
	for _, it := range m.byID {
		out = append(out, *it)
	}
	return out, nil
}

func (m *mockItemRepo) ListByName(_ context.Context, name string, _ int) ([]item.Item, error) {
	var out []item.Item
	for _, it := range m.byID {
		if strings.Contains(strings.ToLower(it.Name), strings.ToLower(name)) {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (m *mockItemRepo) ListByCategory(_ context.Context, category string, _ int) ([]item.Item, error) {
	var out []item.Item
	for _, it := range m.byID {
		if it.Category == category {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (m *mockItemRepo) Update(_ context.Context, it *item.Item) error {
	if _, ok := m.byID[it.ID]; !ok {
		return item.ErrNotFound
	}
	m.byID[it.ID] = it
	return nil
}

func (m *mockItemRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return item.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *mockItemRepo) UpdateQuantities(_ context.Context, _ []item.QuantityUpdate) error {
	return nil
}

type mockDiscountRepo struct {
	byItem  map[string][]discount.Discount
	byID    map[string]*discount.Discount
	created []*discount.Discount
	deleted []string
}

func (m *mockDiscountRepo) Create(_ context.Context, d *discount.Discount) error {
	m.created = append(m.created, d)
	return nil
}

func (m *mockDiscountRepo) GetByID(_ context.Context, id string) (*discount.Discount, error) {
	d, ok := m.byID[id]
	if !ok {
		return nil, discount.ErrNotFound
	}
	return d, nil
}

func (m *mockDiscountRepo) FindAllForItemByValueDesc(_ context.Context, itemID string) ([]discount.Discount, error) {
	return m.byItem[itemID], nil
}

func (m *mockDiscountRepo) ListByItem(_ context.Context, itemID string, _ int) ([]discount.Discount, error) {
	return m.byItem[itemID], nil
}

func (m *mockDiscountRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return discount.ErrNotFound
	}
	delete(m.byID, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockUserRepo struct {
	byID map[string]*user.User
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*user.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

type mockAddressResolver struct {
	addr *address.Address
	err  error
}

func (m *mockAddressResolver) Resolve(_ context.Context, _, _, _ string) (*address.Address, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.addr, nil
}

type mockOrderRepo struct {
	byID      map[string]*order.Order
	lastOrder *order.Order
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.lastOrder = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string, _ int) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.byID {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, status order.Status) error {
	if o, ok := m.byID[id]; ok {
		o.Status = status
	}
	return nil
}

type mockKeyRepo struct {
	byHash map[string]*auth.APIKey
}

func (m *mockKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKey, error) {
	k, ok := m.byHash[hash]
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	return k, nil
}

// --- Test fixture ---

const (
	testAPIKey = "test-key"
	testPepper = "pepper"
)

type fixture struct {
	mux       *http.ServeMux
	items     *mockItemRepo
	discounts *mockDiscountRepo
	orders    *mockOrderRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	items := newMockItemRepo(
		&item.Item{ID: "i1", Name: "Apple", Category: "fruits", Price: decimal.RequireFromString("2.50"), Quantity: 10},
	)
	discounts := &mockDiscountRepo{
		byItem: map[string][]discount.Discount{},
		byID:   map[string]*discount.Discount{},
	}
	users := &mockUserRepo{byID: map[string]*user.User{
		"u1": {ID: "u1", Name: "Test User", Email: "u1@example.com"},
	}}
	orders := &mockOrderRepo{byID: map[string]*order.Order{}}

	svc := order.NewService(
		users,
		items,
		discount.NewResolver(discounts),
		&mockAddressResolver{addr: &address.Address{ID: "addr-1"}},
		orders,
	)

	mac := hmac.New(sha256.New, []byte(testPepper))
	mac.Write([]byte(testAPIKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))
	keys := &mockKeyRepo{byHash: map[string]*auth.APIKey{
		keyHash: {ID: "default", KeyHash: keyHash, Name: "test"},
	}}

	h := NewHandler(HandlerConfig{}, items, discounts, svc)

	mux := http.NewServeMux()
	h.Register(mux, APIKeyAuth(keys, []byte(testPepper)))

	return &fixture{mux: mux, items: items, discounts: discounts, orders: orders}
}

func (f *fixture) do(t *testing.T, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if authed {
		r.Header.Set(APIKeyHeader, testAPIKey)
	}

	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// --- Tests ---

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/orders", `{
		"user_id": "u1",
		"cep": "01001000",
		"number": "42",
		"lines": [
			{"item_id": "i1", "quantity": 2},
			{"item_id": "i1", "quantity": 1}
		]
	}`, true)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "order created successfully", decodeBody(t, w)["message"])

	require.NotNil(t, f.orders.lastOrder)
	o := f.orders.lastOrder
	assert.Equal(t, order.StatusPending, o.Status)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, order.Line{ItemID: "i1", Quantity: 3}, o.Lines[0])
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("7.50")), "total = %s", o.TotalAmount)
}

func TestCreateOrder_Unauthorized(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/orders", `{"user_id":"u1"}`, false)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, f.orders.lastOrder)
}

func TestCreateOrder_UnknownUser(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/orders", `{
		"user_id": "ghost",
		"cep": "01001000",
		"number": "42",
		"lines": [{"item_id": "i1", "quantity": 1}]
	}`, true)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/orders", `{
		"user_id": "u1",
		"cep": "01001000",
		"number": "42",
		"lines": [{"item_id": "i1", "quantity": 11}]
	}`, true)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["message"], "not available in the requested quantity")
}

func TestCreateOrder_MalformedBody(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/orders", `{"lines": "nope"}`, true)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrder(t *testing.T) {
	f := newFixture(t)
	f.orders.byID["o1"] = &order.Order{
		ID:          "o1",
		Status:      order.StatusPending,
		TotalAmount: decimal.RequireFromString("7.50"),
		UserID:      "u1",
		AddressID:   "addr-1",
		Lines:       []order.Line{{ItemID: "i1", Quantity: 3}},
	}

	w := f.do(t, http.MethodGet, "/api/orders/o1", "", false)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "o1", body["id"])
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, 7.5, body["total_amount"])
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/orders/missing", "", false)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestChangeOrderStatus(t *testing.T) {
	f := newFixture(t)
	f.orders.byID["o1"] = &order.Order{ID: "o1", Status: order.StatusPending}

	w := f.do(t, http.MethodPatch, "/api/orders/o1/status", `{"status": "preparing"}`, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, order.StatusPreparing, f.orders.byID["o1"].Status)
}

func TestChangeOrderStatus_UnknownStatus(t *testing.T) {
	f := newFixture(t)
	f.orders.byID["o1"] = &order.Order{ID: "o1", Status: order.StatusPending}

	w := f.do(t, http.MethodPatch, "/api/orders/o1/status", `{"status": "teleported"}`, true)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, order.StatusPending, f.orders.byID["o1"].Status)
}

func TestGetItem(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/items/i1", "", false)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "Apple", body["name"])
	assert.Equal(t, 2.5, body["price"])
}

func TestGetItem_NotFound(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/items/missing", "", false)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateItem(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/items", `{
		"name": "Pear",
		"category": "fruits",
		"picture_url": "/img/pear.png",
		"price": 3.00,
		"quantity": 8
	}`, true)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, f.items.created, 1)
	created := f.items.created[0]
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Pear", created.Name)
	assert.True(t, created.Price.Equal(decimal.RequireFromString("3.00")))
}

func TestCreateItem_Duplicate(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/items", `{
		"name": "Apple",
		"category": "fruits",
		"price": 2.50,
		"quantity": 5
	}`, true)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.items.created)
}

func TestCreateItem_Invalid(t *testing.T) {
	f := newFixture(t)

	for name, body := range map[string]string{
		"missing name":      `{"category": "fruits", "price": 1.00, "quantity": 1}`,
		"zero price":        `{"name": "Plum", "category": "fruits", "price": 0, "quantity": 1}`,
		"negative quantity": `{"name": "Plum", "category": "fruits", "price": 1.00, "quantity": -1}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/items", body, true)
			require.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestUpdateItem(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPatch, "/api/items/i1", `{
		"price": 2.75,
		"quantity": 20
	}`, true)

	require.Equal(t, http.StatusOK, w.Code)
	updated := f.items.byID["i1"]
	require.NotNil(t, updated)
	assert.Equal(t, "Apple", updated.Name)
	assert.True(t, updated.Price.Equal(decimal.RequireFromString("2.75")))
	assert.Equal(t, 20, updated.Quantity)
}

func TestUpdateItem_DuplicateNameCategory(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.items.Create(context.Background(),
		&item.Item{ID: "i2", Name: "Pear", Category: "fruits", Price: decimal.RequireFromString("3.00"), Quantity: 8},
	))

	w := f.do(t, http.MethodPatch, "/api/items/i2", `{"name": "Apple"}`, true)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Pear", f.items.byID["i2"].Name)
}

func TestUpdateItem_NotFound(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPatch, "/api/items/missing", `{"quantity": 1}`, true)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateItem_Invalid(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPatch, "/api/items/i1", `{"price": 0}`, true)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, f.items.byID["i1"].Price.Equal(decimal.RequireFromString("2.50")))
}

func TestDeleteItem(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodDelete, "/api/items/i1", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, f.items.byID, "i1")

	w = f.do(t, http.MethodDelete, "/api/items/i1", "", true)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListItems_FilterByName(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.items.Create(context.Background(),
		&item.Item{ID: "i2", Name: "Pineapple", Category: "fruits", Price: decimal.RequireFromString("6.00"), Quantity: 4},
	))

	w := f.do(t, http.MethodGet, "/api/items?name=apple", "", false)
	require.Equal(t, http.StatusOK, w.Code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}

func TestListItems_FilterByCategory(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.items.Create(context.Background(),
		&item.Item{ID: "i2", Name: "Milk", Category: "dairy", Price: decimal.RequireFromString("4.20"), Quantity: 6},
	))

	w := f.do(t, http.MethodGet, "/api/items?category=dairy", "", false)
	require.Equal(t, http.StatusOK, w.Code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Milk", list[0]["name"])
}

func TestGetItem_PictureURLPrefix(t *testing.T) {
	items := newMockItemRepo(
		&item.Item{ID: "i1", Name: "Apple", Category: "fruits", PictureURL: "/images/apple.png", Price: decimal.RequireFromString("2.50"), Quantity: 1},
		&item.Item{ID: "i2", Name: "Pear", Category: "fruits", PictureURL: "https://cdn.example.com/pear.png", Price: decimal.RequireFromString("3.00"), Quantity: 1},
	)
	h := NewHandler(HandlerConfig{ImageBaseURL: "https://img.example.com"}, items, &mockDiscountRepo{}, nil)
	mux := http.NewServeMux()
	h.Register(mux, func(next http.Handler) http.Handler { return next })

	for id, want := range map[string]string{
		"i1": "https://img.example.com/images/apple.png",
		"i2": "https://cdn.example.com/pear.png",
	} {
		r := httptest.NewRequest(http.MethodGet, "/api/items/"+id, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		var got map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, want, got["picture_url"])
	}
}

func TestCreateDiscount(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/discounts", `{
		"value": 10,
		"rule": "> 5",
		"item_id": "i1"
	}`, true)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, f.discounts.created, 1)
	d := f.discounts.created[0]
	assert.Equal(t, 10, d.Value)
	assert.Equal(t, "> 5", d.Rule.String())
	assert.Equal(t, "i1", d.ItemID)
	assert.False(t, d.LastChange.IsZero())
}

func TestCreateDiscount_InvalidRule(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/discounts", `{
		"value": 10,
		"rule": ">= 5",
		"item_id": "i1"
	}`, true)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.discounts.created)
}

func TestCreateDiscount_InvalidValue(t *testing.T) {
	f := newFixture(t)

	for name, body := range map[string]string{
		"zero":    `{"value": 0, "rule": "> 5", "item_id": "i1"}`,
		"hundred": `{"value": 100, "rule": "> 5", "item_id": "i1"}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/discounts", body, true)
			require.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateDiscount_UnknownItem(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/discounts", `{
		"value": 10,
		"rule": "> 5",
		"item_id": "missing"
	}`, true)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListItemDiscounts(t *testing.T) {
	f := newFixture(t)
	rule, err := discount.ParseRule("> 5")
	require.NoError(t, err)
	f.discounts.byItem["i1"] = []discount.Discount{
		{ID: "d1", Value: 10, Rule: rule, ItemID: "i1"},
	}

	w := f.do(t, http.MethodGet, "/api/items/i1/discounts", "", false)
	require.Equal(t, http.StatusOK, w.Code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "> 5", list[0]["rule"])
}

func TestGetDiscount(t *testing.T) {
	f := newFixture(t)
	rule, err := discount.ParseRule("> 10")
	require.NoError(t, err)
	f.discounts.byID["d1"] = &discount.Discount{ID: "d1", Value: 15, Rule: rule, ItemID: "i1"}

	w := f.do(t, http.MethodGet, "/api/discounts/d1", "", false)
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "d1", got["id"])
	assert.Equal(t, float64(15), got["value"])
	assert.Equal(t, "> 10", got["rule"])
}

func TestGetDiscount_NotFound(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/discounts/missing", "", false)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteDiscount(t *testing.T) {
	f := newFixture(t)
	rule, err := discount.ParseRule("> 10")
	require.NoError(t, err)
	f.discounts.byID["d1"] = &discount.Discount{ID: "d1", Value: 15, Rule: rule, ItemID: "i1"}

	w := f.do(t, http.MethodDelete, "/api/discounts/d1", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"d1"}, f.discounts.deleted)

	w = f.do(t, http.MethodDelete, "/api/discounts/d1", "", true)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPIKeyAuth_WrongKey(t *testing.T) {
	f := newFixture(t)

	r := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{}`))
	r.Header.Set(APIKeyHeader, "wrong-key")
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

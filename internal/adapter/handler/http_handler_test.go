package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/order-desk/internal/adapter/storage"
	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/core/service"
)

const testSecret = "test-secret"

type apiEnv struct {
	t      *testing.T
	svc    Services
	tokens *TokenIssuer
	router *gin.Engine
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemoryStore()
	cache := storage.NewMemoryCache()
	opts := []service.Option{service.WithLocker(cache, time.Second)}
	svc := Services{
		Orders:         service.NewOrderService(store, cache, opts...),
		Inventory:      service.NewInventoryService(store, opts...),
		Catalog:        service.NewCatalogService(store, opts...),
		PurchaseOrders: service.NewPurchaseOrderService(store, cache, opts...),
		Notifications:  service.NewNotificationService(store),
		Guard:          service.NewGuard(store, opts...),
	}

	ctx := context.Background()
	require.NoError(t, svc.Guard.Bootstrap(ctx, "u-admin", "Ada Admin"))
	admin, err := svc.Guard.ResolveActor(ctx, "u-admin")
	require.NoError(t, err)
	for userID, role := range map[string]domain.Role{
		"u-sales": domain.RoleSales,
		"u-acc":   domain.RoleAccountant,
		"u-wh":    domain.RoleWarehouseManager,
	} {
		_, err := svc.Guard.RegisterProfile(ctx, admin, service.RegisterProfileInput{UserID: userID, Name: userID, Role: role})
		require.NoError(t, err)
	}

	tokens := NewTokenIssuer(testSecret)
	h := NewHTTPHandler(svc, tokens, nil)
	return &apiEnv{t: t, svc: svc, tokens: tokens, router: h.Router("order-desk-test")}
}

func (e *apiEnv) token(userID string) string {
	e.t.Helper()
	tok, err := e.tokens.Issue(userID, time.Hour)
	require.NoError(e.t, err)
	return tok
}

func (e *apiEnv) do(method, path, userID string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(userID))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (e *apiEnv) createProduct(code string, stock int) ProductResponse {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/products", "u-admin", gin.H{
		"code": code, "name": "Product " + code, "unit_price": "10", "opening_stock": stock,
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[ProductResponse](e.t, rec)
}

func (e *apiEnv) createOrder(productRef string, qty int) OrderResponse {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/orders", "u-sales", gin.H{
		"customer_name": "Acme",
		"items":         []gin.H{{"product_id": productRef, "quantity": qty, "unit_price": "10"}},
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[OrderResponse](e.t, rec)
}

func TestHealthCheck(t *testing.T) {
	e := newAPIEnv(t)
	rec := e.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthentication(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	bad := httptest.NewRecorder()
	e.router.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)

	forged, err := NewTokenIssuer("other-secret").Issue("u-admin", time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	bad = httptest.NewRecorder()
	e.router.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)

	// valid token, no profile
	rec = e.do(http.MethodGet, "/api/orders", "u-stranger", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNotifications_NoProfileIsEmpty(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(http.MethodGet, "/api/notifications", "u-stranger", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = e.do(http.MethodGet, "/api/notifications/unread-count", "u-stranger", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0}`, rec.Body.String())

	rec = e.do(http.MethodPost, "/api/notifications/read-all", "u-stranger", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	e := newAPIEnv(t)
	p := e.createProduct("P1", 5)
	assert.Equal(t, 5, p.StockQuantity)

	order := e.createOrder("P1", 2)
	assert.Equal(t, "pending", order.Status)
	assert.Equal(t, "20", order.Total.String())
	assert.Equal(t, "Product P1", order.Items[0].ProductName)

	rec := e.do(http.MethodGet, "/api/notifications/unread-count", "u-acc", nil)
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())

	rec = e.do(http.MethodPost, "/api/orders/"+order.ID+"/approve", "u-acc", gin.H{"notes": "ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decode[OrderResponse](t, rec)
	assert.Equal(t, "approved", approved.Status)
	require.Len(t, approved.Comments, 1)
	assert.Equal(t, "ok", approved.Comments[0].Text)

	rec = e.do(http.MethodGet, "/api/inventory/availability/"+p.ID, "u-wh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	avail := decode[AvailabilityResponse](t, rec)
	assert.Equal(t, 3, avail.Stock)

	rec = e.do(http.MethodGet, "/api/inventory/transactions?order_id="+order.ID, "u-wh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	txns := decode[[]TransactionResponse](t, rec)
	require.Len(t, txns, 1)
	assert.Equal(t, "ship", txns[0].Type)
	assert.Equal(t, -2, txns[0].Quantity)

	rec = e.do(http.MethodPost, "/api/orders/"+order.ID+"/confirm-warehouse", "u-wh", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "warehouse_confirmed", decode[OrderResponse](t, rec).Status)

	rec = e.do(http.MethodPost, "/api/orders/"+order.ID+"/vouchers", "u-admin", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	v := decode[VoucherResponse](t, rec)
	assert.Equal(t, order.ID, v.OrderID)

	rec = e.do(http.MethodGet, "/api/orders/"+order.ID+"/vouchers", "u-sales", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]VoucherResponse](t, rec), 1)

	rec = e.do(http.MethodGet, "/api/notifications", "u-sales", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[[]NotificationResponse](t, rec))
}

func TestErrorMapping(t *testing.T) {
	e := newAPIEnv(t)
	e.createProduct("P1", 1)
	order := e.createOrder("P1", 3)

	rec := e.do(http.MethodPost, "/api/orders/"+order.ID+"/approve", "u-sales", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodGet, "/api/orders/missing", "u-admin", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(http.MethodPost, "/api/orders/"+order.ID+"/approve", "u-acc", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = e.do(http.MethodPost, "/api/orders/"+order.ID+"/confirm-warehouse", "u-wh", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(http.MethodPost, "/api/products", "u-admin", gin.H{"code": "P1", "name": "dup"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestValidation(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(http.MethodPost, "/api/orders", "u-sales", gin.H{"customer_name": "Acme"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "required", body.Fields["items"])

	rec = e.do(http.MethodPost, "/api/orders/any/status", "u-admin", gin.H{"status": "approved"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "order_status", decode[ErrorResponse](t, rec).Fields["status"])

	rec = e.do(http.MethodPost, "/api/inventory/batches/any/adjust", "u-wh", gin.H{"delta": 1, "type": "ship"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "txn_type", decode[ErrorResponse](t, rec).Fields["type"])

	rec = e.do(http.MethodPost, "/api/orders/any/reject", "u-acc", gin.H{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "required", decode[ErrorResponse](t, rec).Fields["reason"])
}

func TestIdempotencyKeyHeader(t *testing.T) {
	e := newAPIEnv(t)
	e.createProduct("P1", 5)

	send := func() int {
		body, _ := json.Marshal(gin.H{
			"customer_name": "Acme",
			"items":         []gin.H{{"product_id": "P1", "quantity": 1}},
		})
		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+e.token("u-sales"))
		req.Header.Set("Idempotency-Key", "req-1")
		rec := httptest.NewRecorder()
		e.router.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusCreated, send())
	assert.Equal(t, http.StatusConflict, send())
}

func TestInventoryRoutes(t *testing.T) {
	e := newAPIEnv(t)
	p := e.createProduct("P1", 0)

	rec := e.do(http.MethodPost, "/api/inventory/batches", "u-wh", gin.H{
		"product_id": "P1", "batch_number": "B-1", "quantity": 10, "location": "A1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	batch := decode[BatchResponse](t, rec)
	assert.Equal(t, p.ID, batch.ProductID)

	rec = e.do(http.MethodPost, "/api/inventory/batches/"+batch.ID+"/adjust", "u-wh", gin.H{"delta": -4, "type": "damage"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 6, decode[BatchResponse](t, rec).Quantity)

	rec = e.do(http.MethodPatch, "/api/inventory/batches/"+batch.ID, "u-wh", gin.H{"location": "B2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "B2", decode[BatchResponse](t, rec).Location)

	rec = e.do(http.MethodGet, "/api/inventory/batches/by-number/B-1", "u-wh", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodGet, "/api/inventory/batches?product_id="+p.ID, "u-wh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]BatchResponse](t, rec), 1)

	rec = e.do(http.MethodDelete, "/api/inventory/batches/"+batch.ID, "u-wh", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = e.do(http.MethodDelete, "/api/inventory/batches/"+batch.ID, "u-admin", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPurchaseOrderRoutes(t *testing.T) {
	e := newAPIEnv(t)
	e.createProduct("P1", 0)

	rec := e.do(http.MethodPost, "/api/purchase-orders", "u-wh", gin.H{
		"supplier_name": "Supplier Co",
		"items":         []gin.H{{"product_id": "P1", "requested_quantity": 4, "unit_price": "2.5"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	po := decode[PurchaseOrderResponse](t, rec)
	assert.Equal(t, "draft", po.Status)
	assert.Equal(t, "10", po.Total.String())

	rec = e.do(http.MethodPost, "/api/purchase-orders/"+po.ID+"/submit", "u-wh", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = e.do(http.MethodPost, "/api/purchase-orders/"+po.ID+"/approve", "u-admin", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "approved", decode[PurchaseOrderResponse](t, rec).Status)

	rec = e.do(http.MethodPost, "/api/purchase-orders/"+po.ID+"/received", "u-wh", gin.H{"complete": true})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterProfileRoute(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(http.MethodPost, "/api/profiles", "u-admin", gin.H{"user_id": "u-ship", "name": "Sid", "role": "shipper"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "shipper", decode[ProfileResponse](t, rec).Role)

	rec = e.do(http.MethodPost, "/api/profiles", "u-sales", gin.H{"user_id": "u-x", "role": "admin"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

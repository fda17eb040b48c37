package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/order-desk/internal/adapter/storage"
	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/port"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type fixture struct {
	t         *testing.T
	store     *storage.MemoryStore
	cache     *storage.MemoryCache
	orders    *OrderService
	inventory *InventoryService
	catalog   *CatalogService
	pos       *PurchaseOrderService
	notes     *NotificationService
	guard     *Guard

	sales, sales2, accountant, warehouse, warehouse2, shipper, admin domain.Actor
}

func newFixture(t *testing.T, extra ...Option) *fixture {
	t.Helper()

	store := storage.NewMemoryStore()
	cache := storage.NewMemoryCache()

	var seq atomic.Int64
	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	opts := append([]Option{
		WithClock(func() time.Time { return clock.Add(time.Duration(seq.Add(1)) * time.Second) }),
		WithLocker(cache, time.Second),
	}, extra...)

	f := &fixture{
		t:         t,
		store:     store,
		cache:     cache,
		orders:    NewOrderService(store, cache, opts...),
		inventory: NewInventoryService(store, opts...),
		catalog:   NewCatalogService(store, opts...),
		pos:       NewPurchaseOrderService(store, cache, opts...),
		notes:     NewNotificationService(store),
		guard:     NewGuard(store, opts...),
	}

	f.sales = f.profile("u-sales", "Sam Sales", domain.RoleSales)
	f.sales2 = f.profile("u-sales2", "Sue Sales", domain.RoleSales)
	f.accountant = f.profile("u-acc", "Ann Accountant", domain.RoleAccountant)
	f.warehouse = f.profile("u-wh", "Will Warehouse", domain.RoleWarehouseManager)
	f.warehouse2 = f.profile("u-wh2", "Wendy Warehouse", domain.RoleWarehouseManager)
	f.shipper = f.profile("u-ship", "Sid Shipper", domain.RoleShipper)
	f.admin = f.profile("u-admin", "Ada Admin", domain.RoleAdmin)
	return f
}

func (f *fixture) profile(userID, name string, role domain.Role) domain.Actor {
	f.t.Helper()
	p := domain.Profile{ID: "p-" + userID, UserID: userID, Name: name, Role: role}
	err := f.store.WithinTx(context.Background(), func(ctx context.Context, repo port.Repository) error {
		return repo.CreateProfile(ctx, p)
	})
	require.NoError(f.t, err)
	return p.Actor()
}

func (f *fixture) product(code, name string, price int64, stock int) domain.Product {
	f.t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), f.admin, CreateProductInput{
		Code:         code,
		Name:         name,
		UnitPrice:    decimal.NewFromInt(price),
		OpeningStock: stock,
	})
	require.NoError(f.t, err)
	return p
}

func (f *fixture) stock(productID string) int {
	f.t.Helper()
	var qty int
	err := f.store.WithinTx(context.Background(), func(ctx context.Context, repo port.Repository) error {
		p, err := repo.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("product %s missing", productID)
		}
		qty = p.StockQuantity
		return nil
	})
	require.NoError(f.t, err)
	return qty
}

func (f *fixture) ledger(filter port.TransactionFilter) []domain.InventoryTransaction {
	f.t.Helper()
	var out []domain.InventoryTransaction
	err := f.store.WithinTx(context.Background(), func(ctx context.Context, repo port.Repository) error {
		var err error
		out, err = repo.ListTransactions(ctx, filter)
		return err
	})
	require.NoError(f.t, err)
	return out
}

// ledgerSum checks that stock equals the sum of ledger deltas.
func (f *fixture) ledgerSum(productID string) int {
	sum := 0
	for _, t := range f.ledger(port.TransactionFilter{ProductID: productID}) {
		sum += t.Quantity
	}
	return sum
}

func (f *fixture) inbox(actor domain.Actor) []domain.Notification {
	f.t.Helper()
	list, err := f.notes.List(context.Background(), actor)
	require.NoError(f.t, err)
	return list
}

func (f *fixture) order(actor domain.Actor, lines ...domain.LineInput) domain.Order {
	f.t.Helper()
	o, err := f.orders.CreateOrder(context.Background(), actor, CreateOrderInput{
		CustomerName: "Acme",
		Items:        lines,
	})
	require.NoError(f.t, err)
	return o
}

func line(ref string, qty int, price int64) domain.LineInput {
	return domain.LineInput{ProductRef: ref, Quantity: qty, UnitPrice: decimal.NewFromInt(price)}
}

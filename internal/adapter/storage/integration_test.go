package storage_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/order-desk/internal/adapter/storage"
	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/core/service"
	"github.com/rl1809/order-desk/internal/port"
)

type testEnv struct {
	redis *redis.Client
	cache *storage.RedisAdapter
	db    *storage.MySQLAdapter
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/orderdesk"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	db, err := storage.OpenMySQL(mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	t.Cleanup(func() {
		rdb.Close()
		db.Close()
	})

	adapter := storage.NewMySQLAdapter(db)
	require.NoError(t, adapter.Migrate(context.Background()))
	return &testEnv{redis: rdb, cache: storage.NewRedisAdapter(rdb), db: adapter}
}

func (env *testEnv) seedActor(t *testing.T, role domain.Role) domain.Actor {
	p := domain.Profile{ID: uuid.NewString(), UserID: uuid.NewString(), Name: string(role) + " tester", Role: role}
	err := env.db.WithinTx(context.Background(), func(ctx context.Context, repo port.Repository) error {
		return repo.CreateProfile(ctx, p)
	})
	require.NoError(t, err)
	return p.Actor()
}

func TestIntegration_ConcurrentApprovalsNeverOversell(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	sales := env.seedActor(t, domain.RoleSales)
	accountant := env.seedActor(t, domain.RoleAccountant)
	admin := env.seedActor(t, domain.RoleAdmin)

	catalog := service.NewCatalogService(env.db)
	orders := service.NewOrderService(env.db, env.cache, service.WithLocker(env.cache, 5*time.Second))

	initialStock := 10
	product, err := catalog.CreateProduct(ctx, admin, service.CreateProductInput{
		Code:         "INT-" + uuid.NewString()[:8],
		Name:         "Integration widget",
		UnitPrice:    decimal.NewFromInt(5),
		OpeningStock: initialStock,
	})
	require.NoError(t, err)

	totalOrders := 20
	ids := make([]string, totalOrders)
	for i := range ids {
		o, err := orders.CreateOrder(ctx, sales, service.CreateOrderInput{
			CustomerName: "Acme",
			Items:        []domain.LineInput{{ProductRef: product.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(5)}},
		})
		require.NoError(t, err)
		ids[i] = o.ID
	}

	var (
		wg           sync.WaitGroup
		successCount atomic.Int32
		shortCount   atomic.Int32
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := orders.ApproveOrder(ctx, accountant, id, "")
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				shortCount.Add(1)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, int32(initialStock), successCount.Load())
	assert.Equal(t, int32(totalOrders-initialStock), shortCount.Load())

	err = env.db.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		p, err := repo.GetProductForUpdate(ctx, product.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, p.StockQuantity)

		rows, err := repo.ListTransactions(ctx, port.TransactionFilter{ProductID: product.ID})
		require.NoError(t, err)
		sum := 0
		for _, r := range rows {
			sum += r.Quantity
		}
		assert.Equal(t, p.StockQuantity, sum)
		return nil
	})
	require.NoError(t, err)
}

func TestIntegration_OppositeLineOrderApprovals(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	sales := env.seedActor(t, domain.RoleSales)
	accountant := env.seedActor(t, domain.RoleAccountant)
	admin := env.seedActor(t, domain.RoleAdmin)

	catalog := service.NewCatalogService(env.db)
	orders := service.NewOrderService(env.db, env.cache, service.WithLocker(env.cache, 5*time.Second))

	suffix := uuid.NewString()[:8]
	a, err := catalog.CreateProduct(ctx, admin, service.CreateProductInput{
		Code: "INT-A-" + suffix, Name: "Widget", UnitPrice: decimal.NewFromInt(1), OpeningStock: 100,
	})
	require.NoError(t, err)
	b, err := catalog.CreateProduct(ctx, admin, service.CreateProductInput{
		Code: "INT-B-" + suffix, Name: "Gadget", UnitPrice: decimal.NewFromInt(1), OpeningStock: 100,
	})
	require.NoError(t, err)

	totalOrders := 20
	ids := make([]string, totalOrders)
	for i := range ids {
		items := []domain.LineInput{
			{ProductRef: a.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
			{ProductRef: b.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
		}
		if i%2 == 1 {
			items[0], items[1] = items[1], items[0]
		}
		o, err := orders.CreateOrder(ctx, sales, service.CreateOrderInput{CustomerName: "Acme", Items: items})
		require.NoError(t, err)
		ids[i] = o.ID
	}

	var wg sync.WaitGroup
	errs := make([]error, totalOrders)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = orders.ApproveOrder(ctx, accountant, id, "")
		}(i, id)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "approval %d", i)
	}

	err = env.db.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		for _, id := range []string{a.ID, b.ID} {
			p, err := repo.GetProductForUpdate(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, 100-totalOrders, p.StockQuantity)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestIntegration_IdempotencyPreventsDoubleOrder(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	sales := env.seedActor(t, domain.RoleSales)

	orders := service.NewOrderService(env.db, env.cache)
	in := service.CreateOrderInput{
		CustomerName:   "Acme",
		Items:          []domain.LineInput{{ProductRef: "anything", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}},
		IdempotencyKey: uuid.NewString(),
	}

	_, err := orders.CreateOrder(ctx, sales, in)
	require.NoError(t, err)

	_, err = orders.CreateOrder(ctx, sales, in)
	assert.True(t, errors.Is(err, domain.ErrDuplicateRequest), "got %v", err)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/order-desk/internal/adapter/storage"
	"github.com/rl1809/order-desk/internal/config"
	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/core/service"
	"github.com/rl1809/order-desk/internal/port"
)

const (
	initialStock  = 20
	totalRequests = 50
)

type cacheLocker interface {
	port.CacheRepository
	port.Locker
}

// Approves totalRequests single-unit orders concurrently against a product
// holding initialStock units. Uses MySQL and Redis when configured.
func main() {
	ctx := context.Background()
	cfg := config.Load()

	var store port.Store = storage.NewMemoryStore()
	if cfg.MySQLDSN != "" {
		db, err := storage.OpenMySQL(cfg.MySQLDSN)
		if err != nil {
			log.Fatalf("failed to open mysql: %v", err)
		}
		defer db.Close()
		adapter := storage.NewMySQLAdapter(db)
		if err := adapter.Migrate(ctx); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}
		store = adapter
	}

	var cache cacheLocker = storage.NewMemoryCache()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer rdb.Close()
		cache = storage.NewRedisAdapter(rdb)
	}

	sales := seedProfile(ctx, store, domain.RoleSales)
	accountant := seedProfile(ctx, store, domain.RoleAccountant)
	admin := seedProfile(ctx, store, domain.RoleAdmin)

	opts := []service.Option{service.WithLocker(cache, 5*time.Second)}
	catalog := service.NewCatalogService(store, opts...)
	orders := service.NewOrderService(store, cache, opts...)
	inventory := service.NewInventoryService(store, opts...)

	product, err := catalog.CreateProduct(ctx, admin, service.CreateProductInput{
		Code:         "STRESS-" + uuid.NewString()[:8],
		Name:         "Stress item",
		UnitPrice:    decimal.NewFromInt(1),
		OpeningStock: initialStock,
	})
	if err != nil {
		log.Fatalf("failed to create product: %v", err)
	}

	ids := make([]string, totalRequests)
	for i := range ids {
		o, err := orders.CreateOrder(ctx, sales, service.CreateOrderInput{
			CustomerName: fmt.Sprintf("customer-%d", i),
			Items:        []domain.LineInput{{ProductRef: product.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(1)}},
		})
		if err != nil {
			log.Fatalf("failed to create order: %v", err)
		}
		ids[i] = o.ID
	}

	var successCount, shortCount, otherCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

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
			default:
				otherCount.Add(1)
				log.Printf("approve %s: %v", id, err)
			}
		}(id)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	short := shortCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Approvals:  %d\n", totalRequests)
	fmt.Printf("Approved:         %d\n", success)
	fmt.Printf("Out of stock:     %d\n", short)
	fmt.Printf("Other errors:     %d\n", otherCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == initialStock && short == totalRequests-initialStock {
		fmt.Printf("PASS: Exactly %d approvals succeeded, %d refused\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d approved/%d refused, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, short)
	}

	avail, err := inventory.DeriveAvailability(ctx, admin, product.ID)
	if err != nil {
		log.Fatalf("failed to read availability: %v", err)
	}
	fmt.Printf("Final Stock:      %d\n", avail.Stock)

	txns, err := inventory.ListTransactions(ctx, admin, port.TransactionFilter{ProductID: product.ID})
	if err != nil {
		log.Fatalf("failed to read ledger: %v", err)
	}
	sum := 0
	for _, t := range txns {
		sum += t.Quantity
	}
	if avail.Stock == 0 && sum == avail.Stock {
		fmt.Println("PASS: Stock depleted to 0 and ledger balances")
	} else {
		fmt.Printf("FAIL: stock %d, ledger sum %d\n", avail.Stock, sum)
	}
}

func seedProfile(ctx context.Context, store port.Store, role domain.Role) domain.Actor {
	p := domain.Profile{
		ID:        uuid.NewString(),
		UserID:    "stress-" + uuid.NewString(),
		Name:      "stress " + string(role),
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	err := store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		return repo.CreateProfile(ctx, p)
	})
	if err != nil {
		log.Fatalf("failed to seed profile: %v", err)
	}
	return p.Actor()
}

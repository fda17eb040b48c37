package port

import (
	"context"

	"github.com/rl1809/order-desk/internal/core/domain"
)

// Store runs fn inside one all-or-nothing transaction. Every write made
// through repo is committed only if fn returns nil.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// Repository is bound to a single transaction. Lookups return (nil, nil)
// when the record does not exist.
type Repository interface {
	ProfileRepository
	ProductRepository
	PartyRepository
	OrderRepository
	InventoryRepository
	PurchaseOrderRepository
	NotificationRepository
}

type ProfileRepository interface {
	CreateProfile(ctx context.Context, p domain.Profile) error
	GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	ListProfilesByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error)
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, p domain.Product) error

	// GetProductForUpdate locks the product row until the transaction ends
	GetProductForUpdate(ctx context.Context, id string) (*domain.Product, error)

	// GetProductByCodeForUpdate locks the product row matching code
	GetProductByCodeForUpdate(ctx context.Context, code string) (*domain.Product, error)

	UpdateProduct(ctx context.Context, p domain.Product) error
	ListProducts(ctx context.Context, status domain.ProductStatus) ([]domain.Product, error)
}

type PartyRepository interface {
	CreateCustomer(ctx context.Context, c domain.Customer) error
	GetCustomerByTaxCode(ctx context.Context, taxCode string) (*domain.Customer, error)
	CreateSupplier(ctx context.Context, s domain.Supplier) error
	GetSupplierByTaxCode(ctx context.Context, taxCode string) (*domain.Supplier, error)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, o domain.Order) error

	// GetOrderForUpdate locks the order row until the transaction ends
	GetOrderForUpdate(ctx context.Context, id string) (*domain.Order, error)

	UpdateOrder(ctx context.Context, o domain.Order) error
	ListOrders(ctx context.Context, scope domain.OrderScope) ([]domain.Order, error)

	// ListOpenOrdersWithShipments returns open orders that recorded shipped
	// quantities for productRefs
	ListOpenOrdersWithShipments(ctx context.Context, productRefs []string) ([]domain.Order, error)

	CreateVoucher(ctx context.Context, v domain.DeliveryVoucher) error
	ListVouchersByOrder(ctx context.Context, orderID string) ([]domain.DeliveryVoucher, error)
}

type BatchFilter struct {
	ProductID string
	Status    domain.BatchStatus
}

type TransactionFilter struct {
	BatchID   string
	ProductID string
	OrderID   string
}

type InventoryRepository interface {
	CreateBatch(ctx context.Context, b domain.InventoryBatch) error

	// GetBatchForUpdate locks the batch row until the transaction ends
	GetBatchForUpdate(ctx context.Context, id string) (*domain.InventoryBatch, error)

	GetBatchByNumber(ctx context.Context, batchNumber string) (*domain.InventoryBatch, error)
	UpdateBatch(ctx context.Context, b domain.InventoryBatch) error
	DeleteBatch(ctx context.Context, id string) error
	ListBatches(ctx context.Context, filter BatchFilter) ([]domain.InventoryBatch, error)

	// AppendTransaction writes a ledger row; rows are never updated or deleted
	AppendTransaction(ctx context.Context, t domain.InventoryTransaction) error

	ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.InventoryTransaction, error)
}

type PurchaseOrderRepository interface {
	CreatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) error

	// GetPurchaseOrderForUpdate locks the purchase order row until the transaction ends
	GetPurchaseOrderForUpdate(ctx context.Context, id string) (*domain.PurchaseOrder, error)

	UpdatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) error
	DeletePurchaseOrder(ctx context.Context, id string) error
	ListPurchaseOrders(ctx context.Context) ([]domain.PurchaseOrder, error)
}

// NotificationRecipientRepository is what fan-out needs: who holds a role,
// and where to write.
type NotificationRecipientRepository interface {
	ListProfilesByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error)
	CreateNotification(ctx context.Context, n domain.Notification) error
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n domain.Notification) error
	GetNotification(ctx context.Context, id string) (*domain.Notification, error)
	ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)

	// MarkRead marks the given notifications read; an empty ids slice marks
	// every unread notification of userID
	MarkRead(ctx context.Context, userID string, ids []string) error
}

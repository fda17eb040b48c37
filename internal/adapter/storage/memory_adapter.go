package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/port"
)

// MemoryStore keeps every entity in process. A single mutex is held for the
// whole of WithinTx, and writes land on a snapshot that replaces the live
// state only when fn succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repo port.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := m.state.clone()
	if err := fn(ctx, &memRepo{s: snapshot}); err != nil {
		return err
	}
	m.state = snapshot
	return nil
}

type memState struct {
	profiles       map[string]domain.Profile
	products       map[string]domain.Product
	customers      map[string]domain.Customer
	suppliers      map[string]domain.Supplier
	orders         map[string]domain.Order
	vouchers       []domain.DeliveryVoucher
	batches        map[string]domain.InventoryBatch
	txns           []domain.InventoryTransaction
	purchaseOrders map[string]domain.PurchaseOrder
	notifications  []domain.Notification
}

func newMemState() *memState {
	return &memState{
		profiles:       make(map[string]domain.Profile),
		products:       make(map[string]domain.Product),
		customers:      make(map[string]domain.Customer),
		suppliers:      make(map[string]domain.Supplier),
		orders:         make(map[string]domain.Order),
		batches:        make(map[string]domain.InventoryBatch),
		purchaseOrders: make(map[string]domain.PurchaseOrder),
	}
}

func copyMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// clone copies containers only. Stored values are never mutated in place, so
// sharing them between snapshots is safe.
func (s *memState) clone() *memState {
	return &memState{
		profiles:       copyMap(s.profiles),
		products:       copyMap(s.products),
		customers:      copyMap(s.customers),
		suppliers:      copyMap(s.suppliers),
		orders:         copyMap(s.orders),
		vouchers:       append([]domain.DeliveryVoucher(nil), s.vouchers...),
		batches:        copyMap(s.batches),
		txns:           append([]domain.InventoryTransaction(nil), s.txns...),
		purchaseOrders: copyMap(s.purchaseOrders),
		notifications:  append([]domain.Notification(nil), s.notifications...),
	}
}

type memRepo struct {
	s *memState
}

// profiles

func (r *memRepo) CreateProfile(ctx context.Context, p domain.Profile) error {
	for _, existing := range r.s.profiles {
		if existing.UserID == p.UserID {
			return &domain.UniquenessError{Field: "profile user", Value: p.UserID}
		}
	}
	r.s.profiles[p.ID] = p
	return nil
}

func (r *memRepo) GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	for _, p := range r.s.profiles {
		if p.UserID == userID {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *memRepo) ListProfilesByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error) {
	var out []domain.Profile
	for _, p := range r.s.profiles {
		if p.Role == role {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// products

func (r *memRepo) CreateProduct(ctx context.Context, p domain.Product) error {
	for _, existing := range r.s.products {
		if existing.Code == p.Code {
			return &domain.UniquenessError{Field: "product code", Value: p.Code}
		}
	}
	r.s.products[p.ID] = p
	return nil
}

func (r *memRepo) GetProductForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memRepo) GetProductByCodeForUpdate(ctx context.Context, code string) (*domain.Product, error) {
	for _, p := range r.s.products {
		if p.Code == code {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *memRepo) UpdateProduct(ctx context.Context, p domain.Product) error {
	if _, ok := r.s.products[p.ID]; !ok {
		return &domain.NotFoundError{Entity: "product", Ref: p.ID}
	}
	for id, existing := range r.s.products {
		if id != p.ID && existing.Code == p.Code {
			return &domain.UniquenessError{Field: "product code", Value: p.Code}
		}
	}
	r.s.products[p.ID] = p
	return nil
}

func (r *memRepo) ListProducts(ctx context.Context, status domain.ProductStatus) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range r.s.products {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// customers and suppliers

func (r *memRepo) CreateCustomer(ctx context.Context, c domain.Customer) error {
	if found, _ := r.GetCustomerByTaxCode(ctx, c.TaxCode); found != nil {
		return &domain.UniquenessError{Field: "customer tax code", Value: c.TaxCode}
	}
	r.s.customers[c.ID] = c
	return nil
}

func (r *memRepo) GetCustomerByTaxCode(ctx context.Context, taxCode string) (*domain.Customer, error) {
	for _, c := range r.s.customers {
		if c.TaxCode == taxCode {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memRepo) CreateSupplier(ctx context.Context, s domain.Supplier) error {
	if found, _ := r.GetSupplierByTaxCode(ctx, s.TaxCode); found != nil {
		return &domain.UniquenessError{Field: "supplier tax code", Value: s.TaxCode}
	}
	r.s.suppliers[s.ID] = s
	return nil
}

func (r *memRepo) GetSupplierByTaxCode(ctx context.Context, taxCode string) (*domain.Supplier, error) {
	for _, s := range r.s.suppliers {
		if s.TaxCode == taxCode {
			return &s, nil
		}
	}
	return nil, nil
}

// orders

func (r *memRepo) CreateOrder(ctx context.Context, o domain.Order) error {
	for _, existing := range r.s.orders {
		if existing.OrderNumber == o.OrderNumber {
			return &domain.UniquenessError{Field: "order number", Value: o.OrderNumber}
		}
	}
	r.s.orders[o.ID] = o.Clone()
	return nil
}

func (r *memRepo) GetOrderForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	c := o.Clone()
	return &c, nil
}

func (r *memRepo) UpdateOrder(ctx context.Context, o domain.Order) error {
	if _, ok := r.s.orders[o.ID]; !ok {
		return &domain.NotFoundError{Entity: "order", Ref: o.ID}
	}
	r.s.orders[o.ID] = o.Clone()
	return nil
}

func (r *memRepo) ListOrders(ctx context.Context, scope domain.OrderScope) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range r.s.orders {
		if scope.Contains(o) {
			out = append(out, o.Clone())
		}
	}
	sortOrdersNewestFirst(out)
	return out, nil
}

func (r *memRepo) ListOpenOrdersWithShipments(ctx context.Context, productRefs []string) ([]domain.Order, error) {
	want := make(map[string]bool, len(productRefs))
	for _, ref := range productRefs {
		want[ref] = true
	}
	var out []domain.Order
	for _, o := range r.s.orders {
		if !o.Status.Open() {
			continue
		}
		for _, sq := range o.ShippedQuantities {
			if want[sq.ProductRef] {
				out = append(out, o.Clone())
				break
			}
		}
	}
	sortOrdersNewestFirst(out)
	return out, nil
}

func sortOrdersNewestFirst(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].OrderNumber > orders[j].OrderNumber
	})
}

func (r *memRepo) CreateVoucher(ctx context.Context, v domain.DeliveryVoucher) error {
	for _, existing := range r.s.vouchers {
		if existing.VoucherNumber == v.VoucherNumber {
			return &domain.UniquenessError{Field: "voucher number", Value: v.VoucherNumber}
		}
	}
	v.Items = append([]domain.VoucherItem(nil), v.Items...)
	r.s.vouchers = append(r.s.vouchers, v)
	return nil
}

func (r *memRepo) ListVouchersByOrder(ctx context.Context, orderID string) ([]domain.DeliveryVoucher, error) {
	var out []domain.DeliveryVoucher
	for _, v := range r.s.vouchers {
		if v.OrderID == orderID {
			v.Items = append([]domain.VoucherItem(nil), v.Items...)
			out = append(out, v)
		}
	}
	return out, nil
}

// inventory

func (r *memRepo) CreateBatch(ctx context.Context, b domain.InventoryBatch) error {
	if found, _ := r.GetBatchByNumber(ctx, b.BatchNumber); found != nil {
		return &domain.UniquenessError{Field: "batch number", Value: b.BatchNumber}
	}
	r.s.batches[b.ID] = b
	return nil
}

func (r *memRepo) GetBatchForUpdate(ctx context.Context, id string) (*domain.InventoryBatch, error) {
	b, ok := r.s.batches[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *memRepo) GetBatchByNumber(ctx context.Context, batchNumber string) (*domain.InventoryBatch, error) {
	for _, b := range r.s.batches {
		if b.BatchNumber == batchNumber {
			return &b, nil
		}
	}
	return nil, nil
}

func (r *memRepo) UpdateBatch(ctx context.Context, b domain.InventoryBatch) error {
	if _, ok := r.s.batches[b.ID]; !ok {
		return &domain.NotFoundError{Entity: "inventory batch", Ref: b.ID}
	}
	r.s.batches[b.ID] = b
	return nil
}

func (r *memRepo) DeleteBatch(ctx context.Context, id string) error {
	delete(r.s.batches, id)
	return nil
}

func (r *memRepo) ListBatches(ctx context.Context, filter port.BatchFilter) ([]domain.InventoryBatch, error) {
	var out []domain.InventoryBatch
	for _, b := range r.s.batches {
		if filter.ProductID != "" && b.ProductID != filter.ProductID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].ReceivedAt.Before(out[j].ReceivedAt)
		}
		return out[i].BatchNumber < out[j].BatchNumber
	})
	return out, nil
}

func (r *memRepo) AppendTransaction(ctx context.Context, t domain.InventoryTransaction) error {
	r.s.txns = append(r.s.txns, t)
	return nil
}

func (r *memRepo) ListTransactions(ctx context.Context, filter port.TransactionFilter) ([]domain.InventoryTransaction, error) {
	var out []domain.InventoryTransaction
	for _, t := range r.s.txns {
		if filter.BatchID != "" && t.BatchID != filter.BatchID {
			continue
		}
		if filter.ProductID != "" && t.ProductID != filter.ProductID {
			continue
		}
		if filter.OrderID != "" && t.OrderID != filter.OrderID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// purchase orders

func (r *memRepo) CreatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) error {
	for _, existing := range r.s.purchaseOrders {
		if existing.PONumber == po.PONumber {
			return &domain.UniquenessError{Field: "purchase order number", Value: po.PONumber}
		}
	}
	r.s.purchaseOrders[po.ID] = po.Clone()
	return nil
}

func (r *memRepo) GetPurchaseOrderForUpdate(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	po, ok := r.s.purchaseOrders[id]
	if !ok {
		return nil, nil
	}
	c := po.Clone()
	return &c, nil
}

func (r *memRepo) UpdatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) error {
	if _, ok := r.s.purchaseOrders[po.ID]; !ok {
		return &domain.NotFoundError{Entity: "purchase order", Ref: po.ID}
	}
	r.s.purchaseOrders[po.ID] = po.Clone()
	return nil
}

func (r *memRepo) DeletePurchaseOrder(ctx context.Context, id string) error {
	delete(r.s.purchaseOrders, id)
	return nil
}

func (r *memRepo) ListPurchaseOrders(ctx context.Context) ([]domain.PurchaseOrder, error) {
	out := make([]domain.PurchaseOrder, 0, len(r.s.purchaseOrders))
	for _, po := range r.s.purchaseOrders {
		out = append(out, po.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].PONumber > out[j].PONumber
	})
	return out, nil
}

// notifications

func (r *memRepo) CreateNotification(ctx context.Context, n domain.Notification) error {
	r.s.notifications = append(r.s.notifications, n)
	return nil
}

func (r *memRepo) GetNotification(ctx context.Context, id string) (*domain.Notification, error) {
	for _, n := range r.s.notifications {
		if n.ID == id {
			return &n, nil
		}
	}
	return nil, nil
}

func (r *memRepo) ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	for i := len(r.s.notifications) - 1; i >= 0; i-- {
		n := r.s.notifications[i]
		if n.UserID != userID {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	count := 0
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *memRepo) MarkRead(ctx context.Context, userID string, ids []string) error {
	only := make(map[string]bool, len(ids))
	for _, id := range ids {
		only[id] = true
	}
	for i, n := range r.s.notifications {
		if n.UserID != userID {
			continue
		}
		if len(ids) > 0 && !only[n.ID] {
			continue
		}
		r.s.notifications[i].IsRead = true
	}
	return nil
}

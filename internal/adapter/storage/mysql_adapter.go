package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/port"
)

//go:embed schema.sql
var schema string

const (
	mysqlDuplicateEntry = 1062
	mysqlDeadlock       = 1213

	deadlockRetries = 3
)

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// OpenMySQL parses dsn and forces the connection settings the adapter relies
// on: parsed UTC times and found-rows semantics for UPDATE.
func OpenMySQL(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	cfg.Loc = time.UTC

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

// Migrate creates any missing tables. Statements are run one at a time so the
// DSN does not need multiStatements.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// WithinTx runs fn in a transaction. A transaction chosen as a deadlock
// victim is retried from the start, so fn must not keep state between calls.
func (m *MySQLAdapter) WithinTx(ctx context.Context, fn func(ctx context.Context, repo port.Repository) error) error {
	var err error
	for attempt := 1; attempt <= deadlockRetries; attempt++ {
		err = m.runTx(ctx, fn)
		if !isDeadlock(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

func isDeadlock(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDeadlock
}

func (m *MySQLAdapter) runTx(ctx context.Context, fn func(ctx context.Context, repo port.Repository) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &mysqlRepo{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type mysqlRepo struct {
	tx *sql.Tx
}

type rowScanner interface {
	Scan(dest ...any) error
}

// uniqueErr maps a duplicate key error on insert to a UniquenessError.
func uniqueErr(err error, op, field, value string) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return &domain.UniquenessError{Field: field, Value: value}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return b, nil
}

func fromJSON(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// profiles

const profileColumns = `id, user_id, email, name, role, created_at`

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(&p.ID, &p.UserID, &p.Email, &p.Name, &p.Role, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *mysqlRepo) CreateProfile(ctx context.Context, p domain.Profile) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Email, p.Name, p.Role, p.CreatedAt,
	)
	if err != nil {
		return uniqueErr(err, "insert profile", "profile user", p.UserID)
	}
	return nil
}

func (r *mysqlRepo) GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := scanProfile(r.tx.QueryRowContext(ctx, `
		SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return p, nil
}

func (r *mysqlRepo) ListProfilesByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+profileColumns+` FROM profiles WHERE role = ?
		ORDER BY created_at, id`, role)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var out []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// products

const productColumns = `id, code, name, unit_price, stock_quantity, status, created_by, updated_by, created_at, updated_at`

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.UnitPrice, &p.StockQuantity, &p.Status,
		&p.CreatedBy, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *mysqlRepo) CreateProduct(ctx context.Context, p domain.Product) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Code, p.Name, p.UnitPrice, p.StockQuantity, p.Status,
		p.CreatedBy, p.UpdatedBy, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return uniqueErr(err, "insert product", "product code", p.Code)
	}
	return nil
}

func (r *mysqlRepo) getProduct(ctx context.Context, where string, arg any) (*domain.Product, error) {
	p, err := scanProduct(r.tx.QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE `+where+` FOR UPDATE`, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

func (r *mysqlRepo) GetProductForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	return r.getProduct(ctx, "id = ?", id)
}

func (r *mysqlRepo) GetProductByCodeForUpdate(ctx context.Context, code string) (*domain.Product, error) {
	return r.getProduct(ctx, "code = ?", code)
}

func (r *mysqlRepo) UpdateProduct(ctx context.Context, p domain.Product) error {
	result, err := r.tx.ExecContext(ctx, `
		UPDATE products
		SET code = ?, name = ?, unit_price = ?, stock_quantity = ?, status = ?, updated_by = ?, updated_at = ?
		WHERE id = ?`,
		p.Code, p.Name, p.UnitPrice, p.StockQuantity, p.Status, p.UpdatedBy, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return uniqueErr(err, "update product", "product code", p.Code)
	}
	return requireRow(result, "product", p.ID)
}

func (r *mysqlRepo) ListProducts(ctx context.Context, status domain.ProductStatus) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	rows, err := r.tx.QueryContext(ctx, query+` ORDER BY code`, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// requireRow relies on ClientFoundRows, so matched rows are counted even when
// no column changed.
func requireRow(result sql.Result, entity, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: %w", entity, err)
	}
	if n == 0 {
		return &domain.NotFoundError{Entity: entity, Ref: id}
	}
	return nil
}

// customers and suppliers

func (r *mysqlRepo) CreateCustomer(ctx context.Context, c domain.Customer) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO customers (id, company_name, tax_code, address, shipping_address, region, status, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CompanyName, c.TaxCode, c.Address, c.ShippingAddress, c.Region, c.Status, c.CreatedBy, c.CreatedAt,
	)
	if err != nil {
		return uniqueErr(err, "insert customer", "customer tax code", c.TaxCode)
	}
	return nil
}

func (r *mysqlRepo) GetCustomerByTaxCode(ctx context.Context, taxCode string) (*domain.Customer, error) {
	var c domain.Customer
	err := r.tx.QueryRowContext(ctx, `
		SELECT id, company_name, tax_code, address, shipping_address, region, status, created_by, created_at
		FROM customers WHERE tax_code = ?`, taxCode,
	).Scan(&c.ID, &c.CompanyName, &c.TaxCode, &c.Address, &c.ShippingAddress, &c.Region, &c.Status, &c.CreatedBy, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}
	return &c, nil
}

func (r *mysqlRepo) CreateSupplier(ctx context.Context, s domain.Supplier) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO suppliers (id, company_name, tax_code, address, contact_name, contact_phone, status, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.CompanyName, s.TaxCode, s.Address, s.ContactName, s.ContactPhone, s.Status, s.CreatedBy, s.CreatedAt,
	)
	if err != nil {
		return uniqueErr(err, "insert supplier", "supplier tax code", s.TaxCode)
	}
	return nil
}

func (r *mysqlRepo) GetSupplierByTaxCode(ctx context.Context, taxCode string) (*domain.Supplier, error) {
	var s domain.Supplier
	err := r.tx.QueryRowContext(ctx, `
		SELECT id, company_name, tax_code, address, contact_name, contact_phone, status, created_by, created_at
		FROM suppliers WHERE tax_code = ?`, taxCode,
	).Scan(&s.ID, &s.CompanyName, &s.TaxCode, &s.Address, &s.ContactName, &s.ContactPhone, &s.Status, &s.CreatedBy, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query supplier: %w", err)
	}
	return &s, nil
}

// orders

const orderColumns = `id, order_number, customer_id, customer_name, items, total, status, created_by,
	assigned_accountant, assigned_warehouse_manager, assigned_shipper, comments, shipping_address,
	tracking_number, shipped_quantities, created_at, updated_at`

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o                                 domain.Order
		items, comments, address, shipped []byte
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerName, &items, &o.Total, &o.Status, &o.CreatedBy,
		&o.AssignedAccountant, &o.AssignedWarehouseManager, &o.AssignedShipper, &comments, &address,
		&o.TrackingNumber, &shipped, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := fromJSON(items, &o.Items); err != nil {
		return nil, err
	}
	if err := fromJSON(comments, &o.Comments); err != nil {
		return nil, err
	}
	if err := fromJSON(address, &o.ShippingAddress); err != nil {
		return nil, err
	}
	if err := fromJSON(shipped, &o.ShippedQuantities); err != nil {
		return nil, err
	}
	return &o, nil
}

type orderJSON struct {
	items, comments, address, shipped []byte
}

func encodeOrder(o domain.Order) (orderJSON, error) {
	var (
		enc orderJSON
		err error
	)
	if enc.items, err = toJSON(o.Items); err != nil {
		return enc, err
	}
	if enc.comments, err = toJSON(nonNil(o.Comments)); err != nil {
		return enc, err
	}
	if enc.address, err = toJSON(o.ShippingAddress); err != nil {
		return enc, err
	}
	if enc.shipped, err = toJSON(nonNil(o.ShippedQuantities)); err != nil {
		return enc, err
	}
	return enc, nil
}

// nonNil keeps empty JSON arrays as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (r *mysqlRepo) CreateOrder(ctx context.Context, o domain.Order) error {
	enc, err := encodeOrder(o)
	if err != nil {
		return err
	}
	_, err = r.tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.OrderNumber, o.CustomerID, o.CustomerName, enc.items, o.Total, o.Status, o.CreatedBy,
		o.AssignedAccountant, o.AssignedWarehouseManager, o.AssignedShipper, enc.comments, enc.address,
		o.TrackingNumber, enc.shipped, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return uniqueErr(err, "insert order", "order number", o.OrderNumber)
	}
	return nil
}

func (r *mysqlRepo) GetOrderForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.tx.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return o, nil
}

func (r *mysqlRepo) UpdateOrder(ctx context.Context, o domain.Order) error {
	enc, err := encodeOrder(o)
	if err != nil {
		return err
	}
	result, err := r.tx.ExecContext(ctx, `
		UPDATE orders
		SET customer_id = ?, customer_name = ?, items = ?, total = ?, status = ?,
			assigned_accountant = ?, assigned_warehouse_manager = ?, assigned_shipper = ?,
			comments = ?, shipping_address = ?, tracking_number = ?, shipped_quantities = ?, updated_at = ?
		WHERE id = ?`,
		o.CustomerID, o.CustomerName, enc.items, o.Total, o.Status,
		o.AssignedAccountant, o.AssignedWarehouseManager, o.AssignedShipper,
		enc.comments, enc.address, o.TrackingNumber, enc.shipped, o.UpdatedAt,
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return requireRow(result, "order", o.ID)
}

func (r *mysqlRepo) queryOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *mysqlRepo) ListOrders(ctx context.Context, scope domain.OrderScope) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	switch {
	case scope.All:
	case scope.CreatedBy != "":
		query += ` WHERE created_by = ?`
		args = append(args, scope.CreatedBy)
	case len(scope.Statuses) > 0:
		query += ` WHERE status IN (` + placeholders(len(scope.Statuses)) + `)`
		for _, s := range scope.Statuses {
			args = append(args, s)
		}
	default:
		return nil, nil
	}
	return r.queryOrders(ctx, query+` ORDER BY created_at DESC, order_number DESC`, args...)
}

func (r *mysqlRepo) ListOpenOrdersWithShipments(ctx context.Context, productRefs []string) ([]domain.Order, error) {
	open := []any{
		domain.OrderStatusPending, domain.OrderStatusEditRequested, domain.OrderStatusApproved,
		domain.OrderStatusWarehouseConfirmed, domain.OrderStatusShipped,
	}
	orders, err := r.queryOrders(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status IN (`+placeholders(len(open))+`) AND JSON_LENGTH(shipped_quantities) > 0
		ORDER BY created_at DESC, order_number DESC`, open...)
	if err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(productRefs))
	for _, ref := range productRefs {
		want[ref] = true
	}
	var out []domain.Order
	for _, o := range orders {
		for _, sq := range o.ShippedQuantities {
			if want[sq.ProductRef] {
				out = append(out, o)
				break
			}
		}
	}
	return out, nil
}

func (r *mysqlRepo) CreateVoucher(ctx context.Context, v domain.DeliveryVoucher) error {
	items, err := toJSON(nonNil(v.Items))
	if err != nil {
		return err
	}
	_, err = r.tx.ExecContext(ctx, `
		INSERT INTO delivery_vouchers (id, voucher_number, order_id, items, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, v.VoucherNumber, v.OrderID, items, v.CreatedBy, v.CreatedAt,
	)
	if err != nil {
		return uniqueErr(err, "insert voucher", "voucher number", v.VoucherNumber)
	}
	return nil
}

func (r *mysqlRepo) ListVouchersByOrder(ctx context.Context, orderID string) ([]domain.DeliveryVoucher, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, voucher_number, order_id, items, created_by, created_at
		FROM delivery_vouchers WHERE order_id = ? ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query vouchers: %w", err)
	}
	defer rows.Close()

	var out []domain.DeliveryVoucher
	for rows.Next() {
		var (
			v     domain.DeliveryVoucher
			items []byte
		)
		if err := rows.Scan(&v.ID, &v.VoucherNumber, &v.OrderID, &items, &v.CreatedBy, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan voucher: %w", err)
		}
		if err := fromJSON(items, &v.Items); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// inventory

const batchColumns = `id, product_id, product_code, product_name, batch_number, quantity, received_at,
	expires_at, manufactured_at, supplier_name, purchase_order_id, location, notes, status,
	created_by, updated_by, created_at, updated_at`

func scanBatch(row rowScanner) (*domain.InventoryBatch, error) {
	var (
		b                     domain.InventoryBatch
		expires, manufactured sql.NullTime
	)
	err := row.Scan(&b.ID, &b.ProductID, &b.ProductCode, &b.ProductName, &b.BatchNumber, &b.Quantity, &b.ReceivedAt,
		&expires, &manufactured, &b.SupplierName, &b.PurchaseOrderID, &b.Location, &b.Notes, &b.Status,
		&b.CreatedBy, &b.UpdatedBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.ExpiresAt = timePtr(expires)
	b.ManufacturedAt = timePtr(manufactured)
	return &b, nil
}

func (r *mysqlRepo) CreateBatch(ctx context.Context, b domain.InventoryBatch) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO inventory_batches (`+batchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.ProductID, b.ProductCode, b.ProductName, b.BatchNumber, b.Quantity, b.ReceivedAt,
		nullTime(b.ExpiresAt), nullTime(b.ManufacturedAt), b.SupplierName, b.PurchaseOrderID, b.Location, b.Notes, b.Status,
		b.CreatedBy, b.UpdatedBy, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return uniqueErr(err, "insert batch", "batch number", b.BatchNumber)
	}
	return nil
}

func (r *mysqlRepo) getBatch(ctx context.Context, query string, arg any) (*domain.InventoryBatch, error) {
	b, err := scanBatch(r.tx.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query batch: %w", err)
	}
	return b, nil
}

func (r *mysqlRepo) GetBatchForUpdate(ctx context.Context, id string) (*domain.InventoryBatch, error) {
	return r.getBatch(ctx, `SELECT `+batchColumns+` FROM inventory_batches WHERE id = ? FOR UPDATE`, id)
}

func (r *mysqlRepo) GetBatchByNumber(ctx context.Context, batchNumber string) (*domain.InventoryBatch, error) {
	return r.getBatch(ctx, `SELECT `+batchColumns+` FROM inventory_batches WHERE batch_number = ?`, batchNumber)
}

func (r *mysqlRepo) UpdateBatch(ctx context.Context, b domain.InventoryBatch) error {
	result, err := r.tx.ExecContext(ctx, `
		UPDATE inventory_batches
		SET quantity = ?, expires_at = ?, manufactured_at = ?, location = ?, notes = ?, status = ?,
			updated_by = ?, updated_at = ?
		WHERE id = ?`,
		b.Quantity, nullTime(b.ExpiresAt), nullTime(b.ManufacturedAt), b.Location, b.Notes, b.Status,
		b.UpdatedBy, b.UpdatedAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return requireRow(result, "inventory batch", b.ID)
}

func (r *mysqlRepo) DeleteBatch(ctx context.Context, id string) error {
	if _, err := r.tx.ExecContext(ctx, `DELETE FROM inventory_batches WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	return nil
}

func (r *mysqlRepo) ListBatches(ctx context.Context, filter port.BatchFilter) ([]domain.InventoryBatch, error) {
	var (
		where []string
		args  []any
	)
	if filter.ProductID != "" {
		where = append(where, "product_id = ?")
		args = append(args, filter.ProductID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	query := `SELECT ` + batchColumns + ` FROM inventory_batches`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}

	rows, err := r.tx.QueryContext(ctx, query+` ORDER BY received_at, batch_number`, args...)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var out []domain.InventoryBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *mysqlRepo) AppendTransaction(ctx context.Context, t domain.InventoryTransaction) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO inventory_transactions
			(id, batch_id, product_id, type, quantity, order_id, purchase_order_id, notes, performed_by, performed_by_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.BatchID, t.ProductID, t.Type, t.Quantity, t.OrderID, t.PurchaseOrderID, t.Notes,
		t.PerformedBy, t.PerformedByName, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert inventory transaction: %w", err)
	}
	return nil
}

func (r *mysqlRepo) ListTransactions(ctx context.Context, filter port.TransactionFilter) ([]domain.InventoryTransaction, error) {
	var (
		where []string
		args  []any
	)
	for col, val := range map[string]string{
		"batch_id":   filter.BatchID,
		"product_id": filter.ProductID,
		"order_id":   filter.OrderID,
	} {
		if val != "" {
			where = append(where, col+" = ?")
			args = append(args, val)
		}
	}
	query := `
		SELECT id, batch_id, product_id, type, quantity, order_id, purchase_order_id, notes,
			performed_by, performed_by_name, created_at
		FROM inventory_transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}

	rows, err := r.tx.QueryContext(ctx, query+` ORDER BY seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("query inventory transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.InventoryTransaction
	for rows.Next() {
		var t domain.InventoryTransaction
		err := rows.Scan(&t.ID, &t.BatchID, &t.ProductID, &t.Type, &t.Quantity, &t.OrderID, &t.PurchaseOrderID,
			&t.Notes, &t.PerformedBy, &t.PerformedByName, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan inventory transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// purchase orders

const purchaseOrderColumns = `id, po_number, supplier_name, items, total, status, created_by,
	approved_by, approved_at, rejection_reason, comments, created_at, updated_at`

func scanPurchaseOrder(row rowScanner) (*domain.PurchaseOrder, error) {
	var (
		po              domain.PurchaseOrder
		items, comments []byte
		approvedAt      sql.NullTime
	)
	err := row.Scan(&po.ID, &po.PONumber, &po.SupplierName, &items, &po.Total, &po.Status, &po.CreatedBy,
		&po.ApprovedBy, &approvedAt, &po.RejectionReason, &comments, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		return nil, err
	}
	po.ApprovedAt = timePtr(approvedAt)
	if err := fromJSON(items, &po.Items); err != nil {
		return nil, err
	}
	if err := fromJSON(comments, &po.Comments); err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *mysqlRepo) CreatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) error {
	items, err := toJSON(po.Items)
	if err != nil {
		return err
	}
	comments, err := toJSON(nonNil(po.Comments))
	if err != nil {
		return err
	}
	_, err = r.tx.ExecContext(ctx, `
		INSERT INTO purchase_orders (`+purchaseOrderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		po.ID, po.PONumber, po.SupplierName, items, po.Total, po.Status, po.CreatedBy,
		po.ApprovedBy, nullTime(po.ApprovedAt), po.RejectionReason, comments, po.CreatedAt, po.UpdatedAt,
	)
	if err != nil {
		return uniqueErr(err, "insert purchase order", "purchase order number", po.PONumber)
	}
	return nil
}

func (r *mysqlRepo) GetPurchaseOrderForUpdate(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	po, err := scanPurchaseOrder(r.tx.QueryRowContext(ctx, `
		SELECT `+purchaseOrderColumns+` FROM purchase_orders WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query purchase order: %w", err)
	}
	return po, nil
}

func (r *mysqlRepo) UpdatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) error {
	items, err := toJSON(po.Items)
	if err != nil {
		return err
	}
	comments, err := toJSON(nonNil(po.Comments))
	if err != nil {
		return err
	}
	result, err := r.tx.ExecContext(ctx, `
		UPDATE purchase_orders
		SET supplier_name = ?, items = ?, total = ?, status = ?, approved_by = ?, approved_at = ?,
			rejection_reason = ?, comments = ?, updated_at = ?
		WHERE id = ?`,
		po.SupplierName, items, po.Total, po.Status, po.ApprovedBy, nullTime(po.ApprovedAt),
		po.RejectionReason, comments, po.UpdatedAt, po.ID,
	)
	if err != nil {
		return fmt.Errorf("update purchase order: %w", err)
	}
	return requireRow(result, "purchase order", po.ID)
}

func (r *mysqlRepo) DeletePurchaseOrder(ctx context.Context, id string) error {
	if _, err := r.tx.ExecContext(ctx, `DELETE FROM purchase_orders WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete purchase order: %w", err)
	}
	return nil
}

func (r *mysqlRepo) ListPurchaseOrders(ctx context.Context) ([]domain.PurchaseOrder, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+purchaseOrderColumns+` FROM purchase_orders
		ORDER BY created_at DESC, po_number DESC`)
	if err != nil {
		return nil, fmt.Errorf("query purchase orders: %w", err)
	}
	defer rows.Close()

	var out []domain.PurchaseOrder
	for rows.Next() {
		po, err := scanPurchaseOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		out = append(out, *po)
	}
	return out, rows.Err()
}

// notifications

const notificationColumns = `id, user_id, order_id, type, title, message, order_number, is_read, created_at`

func scanNotification(row rowScanner) (*domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.OrderID, &n.Type, &n.Title, &n.Message, &n.OrderNumber, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *mysqlRepo) CreateNotification(ctx context.Context, n domain.Notification) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.OrderID, n.Type, n.Title, n.Message, n.OrderNumber, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *mysqlRepo) GetNotification(ctx context.Context, id string) (*domain.Notification, error) {
	n, err := scanNotification(r.tx.QueryRowContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query notification: %w", err)
	}
	return n, nil
}

func (r *mysqlRepo) ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ? ORDER BY seq DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (r *mysqlRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = FALSE`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

func (r *mysqlRepo) MarkRead(ctx context.Context, userID string, ids []string) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE user_id = ? AND is_read = FALSE`
	args := []any{userID}
	if len(ids) > 0 {
		query += ` AND id IN (` + placeholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	if _, err := r.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

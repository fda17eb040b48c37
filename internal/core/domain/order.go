package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending            OrderStatus = "pending"
	OrderStatusApproved           OrderStatus = "approved"
	OrderStatusEditRequested      OrderStatus = "edit_requested"
	OrderStatusRejected           OrderStatus = "rejected"
	OrderStatusWarehouseConfirmed OrderStatus = "warehouse_confirmed"
	OrderStatusWarehouseRejected  OrderStatus = "warehouse_rejected"
	OrderStatusShipped            OrderStatus = "shipped"
	OrderStatusCompleted          OrderStatus = "completed"
	OrderStatusPartialComplete    OrderStatus = "partial_complete"
	OrderStatusFailed             OrderStatus = "failed"
	OrderStatusCancelled          OrderStatus = "cancelled"
)

func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusPartialComplete, OrderStatusFailed,
		OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// Open reports whether shipped quantities recorded on an order in this
// status still count against available stock.
func (s OrderStatus) Open() bool {
	switch s {
	case OrderStatusPending, OrderStatusEditRequested, OrderStatusApproved,
		OrderStatusWarehouseConfirmed, OrderStatusShipped:
		return true
	}
	return false
}

type OrderLineItem struct {
	ProductRef  string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

type Comment struct {
	ActorID   string
	ActorName string
	ActorRole Role
	Text      string
	CreatedAt time.Time
}

type ShippingAddress struct {
	Street  string
	City    string
	State   string
	ZipCode string
	Country string
}

type ShippedQuantity struct {
	ProductRef string
	Quantity   int
}

type Order struct {
	ID                       string
	OrderNumber              string
	CustomerID               string
	CustomerName             string
	Items                    []OrderLineItem
	Total                    decimal.Decimal
	Status                   OrderStatus
	CreatedBy                string
	AssignedAccountant       string
	AssignedWarehouseManager string
	AssignedShipper          string
	Comments                 []Comment
	ShippingAddress          ShippingAddress
	TrackingNumber           string
	ShippedQuantities        []ShippedQuantity
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// LineInput is a requested order line before pricing is snapshotted.
type LineInput struct {
	ProductRef  string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// NewOrderLines validates inputs and snapshots each line total. The
// returned total is the sum of line totals and is never recomputed.
func NewOrderLines(inputs []LineInput) ([]OrderLineItem, decimal.Decimal, error) {
	if len(inputs) == 0 {
		return nil, decimal.Zero, InvalidInput("order must have at least one line")
	}
	items := make([]OrderLineItem, 0, len(inputs))
	total := decimal.Zero
	for i, in := range inputs {
		if strings.TrimSpace(in.ProductRef) == "" {
			return nil, decimal.Zero, InvalidInput("line %d: product is required", i+1)
		}
		if in.Quantity <= 0 {
			return nil, decimal.Zero, InvalidInput("line %d: quantity must be positive", i+1)
		}
		if in.UnitPrice.IsNegative() {
			return nil, decimal.Zero, InvalidInput("line %d: unit price must not be negative", i+1)
		}
		lineTotal := in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity)))
		items = append(items, OrderLineItem{
			ProductRef:  in.ProductRef,
			ProductName: in.ProductName,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			LineTotal:   lineTotal,
		})
		total = total.Add(lineTotal)
	}
	return items, total, nil
}

func (o *Order) AddComment(actor Actor, text string, at time.Time) {
	o.Comments = append(o.Comments, Comment{
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Text:      text,
		CreatedAt: at,
	})
}

// QuantityByRef sums requested quantities per product reference, preserving
// first-seen order.
func (o Order) QuantityByRef() ([]string, map[string]int) {
	var refs []string
	qty := make(map[string]int)
	for _, item := range o.Items {
		if _, ok := qty[item.ProductRef]; !ok {
			refs = append(refs, item.ProductRef)
		}
		qty[item.ProductRef] += item.Quantity
	}
	return refs, qty
}

func (o Order) Clone() Order {
	c := o
	c.Items = append([]OrderLineItem(nil), o.Items...)
	c.Comments = append([]Comment(nil), o.Comments...)
	c.ShippedQuantities = append([]ShippedQuantity(nil), o.ShippedQuantities...)
	return c
}

type VoucherItem struct {
	ProductRef  string
	ProductName string
	Quantity    int
}

// DeliveryVoucher is an immutable snapshot of what was picked for an order.
type DeliveryVoucher struct {
	ID            string
	VoucherNumber string
	OrderID       string
	Items         []VoucherItem
	CreatedBy     string
	CreatedAt     time.Time
}

func NewVoucherItems(items []OrderLineItem) []VoucherItem {
	out := make([]VoucherItem, len(items))
	for i, item := range items {
		out[i] = VoucherItem{
			ProductRef:  item.ProductRef,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
		}
	}
	return out
}

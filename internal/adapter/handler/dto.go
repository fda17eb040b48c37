package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/order-desk/internal/core/domain"
)

// requests

type LineRequest struct {
	ProductID   string          `json:"product_id" binding:"required"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type AddressDTO struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

type CreateOrderRequest struct {
	CustomerID      string        `json:"customer_id"`
	CustomerName    string        `json:"customer_name" binding:"required"`
	Items           []LineRequest `json:"items" binding:"required,min=1,dive"`
	ShippingAddress AddressDTO    `json:"shipping_address"`
	Notes           string        `json:"notes"`
	IdempotencyKey  string        `json:"idempotency_key"`
}

type ReasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type NotesRequest struct {
	Notes string `json:"notes"`
}

type CommentRequest struct {
	Comment string `json:"comment" binding:"required"`
}

type ShippedDTO struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"gte=0"`
}

type UpdateStatusRequest struct {
	Status            string       `json:"status" binding:"required,order_status"`
	TrackingNumber    string       `json:"tracking_number"`
	ShippedQuantities []ShippedDTO `json:"shipped_quantities" binding:"dive"`
	Notes             string       `json:"notes"`
}

type ReceiveBatchRequest struct {
	ProductID       string     `json:"product_id" binding:"required"`
	BatchNumber     string     `json:"batch_number" binding:"required"`
	Quantity        int        `json:"quantity" binding:"required,gt=0"`
	ReceivedAt      *time.Time `json:"received_at"`
	ExpiresAt       *time.Time `json:"expires_at"`
	ManufacturedAt  *time.Time `json:"manufactured_at"`
	SupplierName    string     `json:"supplier_name"`
	PurchaseOrderID string     `json:"purchase_order_id"`
	Location        string     `json:"location"`
	Notes           string     `json:"notes"`
}

type AdjustBatchRequest struct {
	Delta       *int   `json:"delta"`
	NewQuantity *int   `json:"new_quantity" binding:"omitempty,gte=0"`
	Type        string `json:"type" binding:"omitempty,txn_type"`
	Notes       string `json:"notes"`
}

type UpdateBatchRequest struct {
	Quantity       *int       `json:"quantity" binding:"omitempty,gte=0"`
	ExpiresAt      *time.Time `json:"expires_at"`
	ManufacturedAt *time.Time `json:"manufactured_at"`
	Location       *string    `json:"location"`
	Notes          *string    `json:"notes"`
	Status         *string    `json:"status"`
}

type POLineRequest struct {
	ProductID         string          `json:"product_id" binding:"required"`
	ProductName       string          `json:"product_name"`
	RequestedQuantity int             `json:"requested_quantity" binding:"required,gt=0"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
}

type CreatePurchaseOrderRequest struct {
	SupplierName string          `json:"supplier_name" binding:"required"`
	Items        []POLineRequest `json:"items" binding:"required,min=1,dive"`
	Notes        string          `json:"notes"`
}

type POItemsRequest struct {
	Items []POLineRequest `json:"items" binding:"required,min=1,dive"`
}

type ReceivedRequest struct {
	Complete bool `json:"complete"`
}

type CreateProductRequest struct {
	Code         string          `json:"code" binding:"required"`
	Name         string          `json:"name" binding:"required"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	OpeningStock int             `json:"opening_stock" binding:"gte=0"`
}

type UpdateProductRequest struct {
	Code      *string          `json:"code"`
	Name      *string          `json:"name"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Status    *string          `json:"status" binding:"omitempty,oneof=active inactive"`
}

type PartyRequest struct {
	CompanyName     string `json:"company_name" binding:"required"`
	TaxCode         string `json:"tax_code" binding:"required"`
	Address         string `json:"address"`
	ShippingAddress string `json:"shipping_address"`
	Region          string `json:"region"`
	ContactName     string `json:"contact_name"`
	ContactPhone    string `json:"contact_phone"`
}

type RegisterProfileRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Email  string `json:"email" binding:"omitempty,email"`
	Name   string `json:"name"`
	Role   string `json:"role" binding:"required"`
}

func (r LineRequest) input() domain.LineInput {
	return domain.LineInput{ProductRef: r.ProductID, ProductName: r.ProductName, Quantity: r.Quantity, UnitPrice: r.UnitPrice}
}

func (r POLineRequest) input() domain.POLineInput {
	return domain.POLineInput{ProductRef: r.ProductID, ProductName: r.ProductName, RequestedQuantity: r.RequestedQuantity, UnitPrice: r.UnitPrice}
}

func poInputs(items []POLineRequest) []domain.POLineInput {
	out := make([]domain.POLineInput, len(items))
	for i, item := range items {
		out[i] = item.input()
	}
	return out
}

func (a AddressDTO) toDomain() domain.ShippingAddress {
	return domain.ShippingAddress{Street: a.Street, City: a.City, State: a.State, ZipCode: a.ZipCode, Country: a.Country}
}

// responses

type LineResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type CommentResponse struct {
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderResponse struct {
	ID                       string            `json:"id"`
	OrderNumber              string            `json:"order_number"`
	CustomerID               string            `json:"customer_id,omitempty"`
	CustomerName             string            `json:"customer_name"`
	Items                    []LineResponse    `json:"items"`
	Total                    decimal.Decimal   `json:"total"`
	Status                   string            `json:"status"`
	CreatedBy                string            `json:"created_by"`
	AssignedAccountant       string            `json:"assigned_accountant,omitempty"`
	AssignedWarehouseManager string            `json:"assigned_warehouse_manager,omitempty"`
	AssignedShipper          string            `json:"assigned_shipper,omitempty"`
	Comments                 []CommentResponse `json:"comments"`
	ShippingAddress          AddressDTO        `json:"shipping_address"`
	TrackingNumber           string            `json:"tracking_number,omitempty"`
	ShippedQuantities        []ShippedDTO      `json:"shipped_quantities,omitempty"`
	CreatedAt                time.Time         `json:"created_at"`
	UpdatedAt                time.Time         `json:"updated_at"`
}

func comments(in []domain.Comment) []CommentResponse {
	out := make([]CommentResponse, len(in))
	for i, c := range in {
		out[i] = CommentResponse{UserID: c.ActorID, UserName: c.ActorName, Role: string(c.ActorRole), Text: c.Text, CreatedAt: c.CreatedAt}
	}
	return out
}

func toOrderResponse(o domain.Order) OrderResponse {
	items := make([]LineResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = LineResponse{
			ProductID:   item.ProductRef,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		}
	}
	var shipped []ShippedDTO
	for _, sq := range o.ShippedQuantities {
		shipped = append(shipped, ShippedDTO{ProductID: sq.ProductRef, Quantity: sq.Quantity})
	}
	a := o.ShippingAddress
	return OrderResponse{
		ID:                       o.ID,
		OrderNumber:              o.OrderNumber,
		CustomerID:               o.CustomerID,
		CustomerName:             o.CustomerName,
		Items:                    items,
		Total:                    o.Total,
		Status:                   string(o.Status),
		CreatedBy:                o.CreatedBy,
		AssignedAccountant:       o.AssignedAccountant,
		AssignedWarehouseManager: o.AssignedWarehouseManager,
		AssignedShipper:          o.AssignedShipper,
		Comments:                 comments(o.Comments),
		ShippingAddress:          AddressDTO{Street: a.Street, City: a.City, State: a.State, ZipCode: a.ZipCode, Country: a.Country},
		TrackingNumber:           o.TrackingNumber,
		ShippedQuantities:        shipped,
		CreatedAt:                o.CreatedAt,
		UpdatedAt:                o.UpdatedAt,
	}
}

func toOrderResponses(orders []domain.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	return out
}

type VoucherItemResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

type VoucherResponse struct {
	ID            string                `json:"id"`
	VoucherNumber string                `json:"voucher_number"`
	OrderID       string                `json:"order_id"`
	Items         []VoucherItemResponse `json:"items"`
	CreatedBy     string                `json:"created_by"`
	CreatedAt     time.Time             `json:"created_at"`
}

func toVoucherResponse(v domain.DeliveryVoucher) VoucherResponse {
	items := make([]VoucherItemResponse, len(v.Items))
	for i, item := range v.Items {
		items[i] = VoucherItemResponse{ProductID: item.ProductRef, ProductName: item.ProductName, Quantity: item.Quantity}
	}
	return VoucherResponse{
		ID:            v.ID,
		VoucherNumber: v.VoucherNumber,
		OrderID:       v.OrderID,
		Items:         items,
		CreatedBy:     v.CreatedBy,
		CreatedAt:     v.CreatedAt,
	}
}

type BatchResponse struct {
	ID              string     `json:"id"`
	ProductID       string     `json:"product_id"`
	ProductCode     string     `json:"product_code"`
	ProductName     string     `json:"product_name"`
	BatchNumber     string     `json:"batch_number"`
	Quantity        int        `json:"quantity"`
	ReceivedAt      time.Time  `json:"received_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	ManufacturedAt  *time.Time `json:"manufactured_at,omitempty"`
	SupplierName    string     `json:"supplier_name,omitempty"`
	PurchaseOrderID string     `json:"purchase_order_id,omitempty"`
	Location        string     `json:"location,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	Status          string     `json:"status"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toBatchResponse(b domain.InventoryBatch) BatchResponse {
	return BatchResponse{
		ID:              b.ID,
		ProductID:       b.ProductID,
		ProductCode:     b.ProductCode,
		ProductName:     b.ProductName,
		BatchNumber:     b.BatchNumber,
		Quantity:        b.Quantity,
		ReceivedAt:      b.ReceivedAt,
		ExpiresAt:       b.ExpiresAt,
		ManufacturedAt:  b.ManufacturedAt,
		SupplierName:    b.SupplierName,
		PurchaseOrderID: b.PurchaseOrderID,
		Location:        b.Location,
		Notes:           b.Notes,
		Status:          string(b.Status),
		UpdatedAt:       b.UpdatedAt,
	}
}

type TransactionResponse struct {
	ID              string    `json:"id"`
	BatchID         string    `json:"batch_id,omitempty"`
	ProductID       string    `json:"product_id"`
	Type            string    `json:"type"`
	Quantity        int       `json:"quantity"`
	OrderID         string    `json:"order_id,omitempty"`
	PurchaseOrderID string    `json:"purchase_order_id,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	PerformedBy     string    `json:"performed_by"`
	PerformedByName string    `json:"performed_by_name"`
	CreatedAt       time.Time `json:"created_at"`
}

func toTransactionResponse(t domain.InventoryTransaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID,
		BatchID:         t.BatchID,
		ProductID:       t.ProductID,
		Type:            string(t.Type),
		Quantity:        t.Quantity,
		OrderID:         t.OrderID,
		PurchaseOrderID: t.PurchaseOrderID,
		Notes:           t.Notes,
		PerformedBy:     t.PerformedBy,
		PerformedByName: t.PerformedByName,
		CreatedAt:       t.CreatedAt,
	}
}

type AvailabilityResponse struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
	Committed int    `json:"committed"`
	Available int    `json:"available"`
}

type POLineResponse struct {
	ProductID         string          `json:"product_id"`
	ProductName       string          `json:"product_name"`
	RequestedQuantity int             `json:"requested_quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	LineTotal         decimal.Decimal `json:"line_total"`
}

type PurchaseOrderResponse struct {
	ID              string            `json:"id"`
	PONumber        string            `json:"po_number"`
	SupplierName    string            `json:"supplier_name"`
	Items           []POLineResponse  `json:"items"`
	Total           decimal.Decimal   `json:"total"`
	Status          string            `json:"status"`
	CreatedBy       string            `json:"created_by"`
	ApprovedBy      string            `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time        `json:"approved_at,omitempty"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
	Comments        []CommentResponse `json:"comments"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func toPurchaseOrderResponse(po domain.PurchaseOrder) PurchaseOrderResponse {
	items := make([]POLineResponse, len(po.Items))
	for i, item := range po.Items {
		items[i] = POLineResponse{
			ProductID:         item.ProductRef,
			ProductName:       item.ProductName,
			RequestedQuantity: item.RequestedQuantity,
			UnitPrice:         item.UnitPrice,
			LineTotal:         item.LineTotal,
		}
	}
	return PurchaseOrderResponse{
		ID:              po.ID,
		PONumber:        po.PONumber,
		SupplierName:    po.SupplierName,
		Items:           items,
		Total:           po.Total,
		Status:          string(po.Status),
		CreatedBy:       po.CreatedBy,
		ApprovedBy:      po.ApprovedBy,
		ApprovedAt:      po.ApprovedAt,
		RejectionReason: po.RejectionReason,
		Comments:        comments(po.Comments),
		CreatedAt:       po.CreatedAt,
		UpdatedAt:       po.UpdatedAt,
	}
}

type ProductResponse struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	StockQuantity int             `json:"stock_quantity"`
	Status        string          `json:"status"`
}

func toProductResponse(p domain.Product) ProductResponse {
	return ProductResponse{ID: p.ID, Code: p.Code, Name: p.Name, UnitPrice: p.UnitPrice, StockQuantity: p.StockQuantity, Status: string(p.Status)}
}

type PartyResponse struct {
	ID          string `json:"id"`
	CompanyName string `json:"company_name"`
	TaxCode     string `json:"tax_code"`
	Status      string `json:"status"`
}

type ProfileResponse struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type NotificationResponse struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id,omitempty"`
	OrderNumber string    `json:"order_number,omitempty"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

func toNotificationResponses(list []domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, len(list))
	for i, n := range list {
		out[i] = NotificationResponse{
			ID:          n.ID,
			OrderID:     n.OrderID,
			OrderNumber: n.OrderNumber,
			Type:        string(n.Type),
			Title:       n.Title,
			Message:     n.Message,
			IsRead:      n.IsRead,
			CreatedAt:   n.CreatedAt,
		}
	}
	return out
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

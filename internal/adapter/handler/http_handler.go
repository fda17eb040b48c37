package handler

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/rl1809/order-desk/internal/config"
	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/core/service"
	"github.com/rl1809/order-desk/internal/port"
)

const principalKey = "principal"

// Services groups the core services exposed over HTTP and gRPC.
type Services struct {
	Orders         *service.OrderService
	Inventory      *service.InventoryService
	Catalog        *service.CatalogService
	PurchaseOrders *service.PurchaseOrderService
	Notifications  *service.NotificationService
	Guard          *service.Guard
}

type HTTPHandler struct {
	svc    Services
	tokens *TokenIssuer
	logger logrus.FieldLogger
}

func NewHTTPHandler(svc Services, tokens *TokenIssuer, logger logrus.FieldLogger) *HTTPHandler {
	if logger == nil {
		logger = config.NopLogger()
	}
	registerValidators()
	return &HTTPHandler{svc: svc, tokens: tokens, logger: logger}
}

var validatorsOnce sync.Once

func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
			_, ok := domain.StatusAction(domain.OrderStatus(fl.Field().String()))
			return ok
		})
		_ = v.RegisterValidation("txn_type", func(fl validator.FieldLevel) bool {
			return domain.TransactionType(fl.Field().String()).Adjustable()
		})
	})
}

// Router builds the gin engine with tracing middleware and every route.
func (h *HTTPHandler) Router(serviceName string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware(serviceName))

	r.GET("/health", h.HealthCheck)

	api := r.Group("/api", h.authenticate())

	orders := api.Group("/orders")
	orders.POST("", h.CreateOrder)
	orders.GET("", h.ListOrders)
	orders.GET("/:id", h.GetOrder)
	orders.POST("/:id/approve", h.ApproveOrder)
	orders.POST("/:id/reject", h.RejectOrder)
	orders.POST("/:id/request-edit", h.RequestEdit)
	orders.POST("/:id/confirm-warehouse", h.ConfirmWarehouse)
	orders.POST("/:id/reject-warehouse", h.RejectWarehouse)
	orders.POST("/:id/status", h.UpdateOrderStatus)
	orders.POST("/:id/comments", h.AddOrderComment)
	orders.POST("/:id/vouchers", h.CreateDeliveryVoucher)
	orders.GET("/:id/vouchers", h.ListDeliveryVouchers)

	inv := api.Group("/inventory")
	inv.POST("/batches", h.ReceiveBatch)
	inv.GET("/batches", h.ListBatches)
	inv.GET("/batches/by-number/:number", h.GetBatchByNumber)
	inv.PATCH("/batches/:id", h.UpdateBatch)
	inv.POST("/batches/:id/adjust", h.AdjustBatch)
	inv.DELETE("/batches/:id", h.DeleteBatch)
	inv.GET("/transactions", h.ListTransactions)
	inv.GET("/availability/:productId", h.DeriveAvailability)

	pos := api.Group("/purchase-orders")
	pos.POST("", h.CreatePurchaseOrder)
	pos.GET("", h.ListPurchaseOrders)
	pos.GET("/:id", h.GetPurchaseOrder)
	pos.PUT("/:id/items", h.UpdatePurchaseOrderItems)
	pos.POST("/:id/submit", h.SubmitPurchaseOrder)
	pos.POST("/:id/approve", h.ApprovePurchaseOrder)
	pos.POST("/:id/reject", h.RejectPurchaseOrder)
	pos.POST("/:id/send", h.SendPurchaseOrder)
	pos.POST("/:id/received", h.MarkPurchaseOrderReceived)
	pos.POST("/:id/cancel", h.CancelPurchaseOrder)
	pos.POST("/:id/comments", h.AddPurchaseOrderComment)
	pos.DELETE("/:id", h.DeletePurchaseOrder)

	api.POST("/products", h.CreateProduct)
	api.GET("/products", h.ListProducts)
	api.PATCH("/products/:id", h.UpdateProduct)
	api.POST("/customers", h.CreateCustomer)
	api.POST("/suppliers", h.CreateSupplier)
	api.POST("/profiles", h.RegisterProfile)

	api.GET("/notifications", h.ListNotifications)
	api.GET("/notifications/unread-count", h.UnreadCount)
	api.POST("/notifications/:id/read", h.MarkNotificationRead)
	api.POST("/notifications/read-all", h.MarkAllNotificationsRead)

	return r
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := h.tokens.Principal(c.GetHeader("Authorization"))
		if err != nil {
			h.fail(c, err)
			c.Abort()
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

func (h *HTTPHandler) actor(c *gin.Context) (domain.Actor, bool) {
	actor, err := h.svc.Guard.ResolveActor(c.Request.Context(), c.GetString(principalKey))
	if err != nil {
		h.fail(c, err)
		return domain.Actor{}, false
	}
	return actor, true
}

// softActor lets callers without a profile through with ok=false so the
// notification routes can answer with empty results.
func (h *HTTPHandler) softActor(c *gin.Context) (domain.Actor, bool, bool) {
	actor, found, err := h.svc.Guard.ResolveActorSoft(c.Request.Context(), c.GetString(principalKey))
	if err != nil {
		h.fail(c, err)
		return domain.Actor{}, false, false
	}
	return actor, found, true
}

func (h *HTTPHandler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: processValidationErrors(ve)})
			return false
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// bindOptional accepts an empty body.
func (h *HTTPHandler) bindOptional(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return h.bind(c, req)
}

func processValidationErrors(ve validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

func (h *HTTPHandler) fail(c *gin.Context, err error) {
	code := httpStatus(err)
	if code == http.StatusInternalServerError {
		config.LogError(h.logger, "HTTPHandler", c.HandlerName(), c.FullPath(), nil, err)
		c.JSON(code, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// orders

func (h *HTTPHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	items := make([]domain.LineInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = item.input()
	}
	key := req.IdempotencyKey
	if key == "" {
		key = c.GetHeader("Idempotency-Key")
	}
	order, err := h.svc.Orders.CreateOrder(c.Request.Context(), actor, service.CreateOrderInput{
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		Items:           items,
		ShippingAddress: req.ShippingAddress.toDomain(),
		Notes:           req.Notes,
		IdempotencyKey:  key,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (h *HTTPHandler) ListOrders(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orders, err := h.svc.Orders.ListOrders(c.Request.Context(), actor, domain.OrderStatus(c.Query("status")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponses(orders))
}

func (h *HTTPHandler) GetOrder(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	order, err := h.svc.Orders.GetOrder(c.Request.Context(), actor, c.Param("id"))
	h.respondOrder(c, order, err)
}

func (h *HTTPHandler) ApproveOrder(c *gin.Context) {
	var req NotesRequest
	if !h.bindOptional(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	order, err := h.svc.Orders.ApproveOrder(c.Request.Context(), actor, c.Param("id"), req.Notes)
	h.respondOrder(c, order, err)
}

func (h *HTTPHandler) RejectOrder(c *gin.Context) {
	h.withReason(c, h.svc.Orders.RejectOrder)
}

func (h *HTTPHandler) RequestEdit(c *gin.Context) {
	h.withReason(c, h.svc.Orders.RequestEdit)
}

func (h *HTTPHandler) RejectWarehouse(c *gin.Context) {
	h.withReason(c, h.svc.Orders.RejectWarehouse)
}

func (h *HTTPHandler) ConfirmWarehouse(c *gin.Context) {
	var req NotesRequest
	if !h.bindOptional(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	order, err := h.svc.Orders.ConfirmWarehouse(c.Request.Context(), actor, c.Param("id"), req.Notes)
	h.respondOrder(c, order, err)
}

func (h *HTTPHandler) withReason(c *gin.Context, call func(ctx context.Context, actor domain.Actor, id, text string) (domain.Order, error)) {
	var req ReasonRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	order, err := call(c.Request.Context(), actor, c.Param("id"), req.Reason)
	h.respondOrder(c, order, err)
}

func (h *HTTPHandler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	shipped := make([]domain.ShippedQuantity, len(req.ShippedQuantities))
	for i, sq := range req.ShippedQuantities {
		shipped[i] = domain.ShippedQuantity{ProductRef: sq.ProductID, Quantity: sq.Quantity}
	}
	order, err := h.svc.Orders.UpdateOrderStatus(c.Request.Context(), actor, c.Param("id"), service.UpdateStatusInput{
		Status:            domain.OrderStatus(req.Status),
		TrackingNumber:    req.TrackingNumber,
		ShippedQuantities: shipped,
		Notes:             req.Notes,
	})
	h.respondOrder(c, order, err)
}

func (h *HTTPHandler) AddOrderComment(c *gin.Context) {
	var req CommentRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	order, err := h.svc.Orders.AddOrderComment(c.Request.Context(), actor, c.Param("id"), req.Comment)
	h.respondOrder(c, order, err)
}

func (h *HTTPHandler) respondOrder(c *gin.Context, order domain.Order, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *HTTPHandler) CreateDeliveryVoucher(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	v, err := h.svc.Orders.CreateDeliveryVoucher(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toVoucherResponse(v))
}

func (h *HTTPHandler) ListDeliveryVouchers(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	list, err := h.svc.Orders.ListDeliveryVouchers(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]VoucherResponse, len(list))
	for i, v := range list {
		out[i] = toVoucherResponse(v)
	}
	c.JSON(http.StatusOK, out)
}

// inventory

func (h *HTTPHandler) ReceiveBatch(c *gin.Context) {
	var req ReceiveBatchRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	in := service.ReceiveBatchInput{
		ProductRef:      req.ProductID,
		BatchNumber:     req.BatchNumber,
		Quantity:        req.Quantity,
		ExpiresAt:       req.ExpiresAt,
		ManufacturedAt:  req.ManufacturedAt,
		SupplierName:    req.SupplierName,
		PurchaseOrderID: req.PurchaseOrderID,
		Location:        req.Location,
		Notes:           req.Notes,
	}
	if req.ReceivedAt != nil {
		in.ReceivedAt = *req.ReceivedAt
	}
	b, err := h.svc.Inventory.ReceiveBatch(c.Request.Context(), actor, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBatchResponse(b))
}

func (h *HTTPHandler) ListBatches(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	list, err := h.svc.Inventory.ListBatches(c.Request.Context(), actor, port.BatchFilter{
		ProductID: c.Query("product_id"),
		Status:    domain.BatchStatus(c.Query("status")),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]BatchResponse, len(list))
	for i, b := range list {
		out[i] = toBatchResponse(b)
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) GetBatchByNumber(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	b, err := h.svc.Inventory.GetBatchByNumber(c.Request.Context(), actor, c.Param("number"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBatchResponse(b))
}

func (h *HTTPHandler) UpdateBatch(c *gin.Context) {
	var req UpdateBatchRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	in := service.UpdateBatchInput{
		Quantity:       req.Quantity,
		ExpiresAt:      req.ExpiresAt,
		ManufacturedAt: req.ManufacturedAt,
		Location:       req.Location,
		Notes:          req.Notes,
	}
	if req.Status != nil {
		s := domain.BatchStatus(*req.Status)
		in.Status = &s
	}
	b, err := h.svc.Inventory.UpdateBatch(c.Request.Context(), actor, c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBatchResponse(b))
}

func (h *HTTPHandler) AdjustBatch(c *gin.Context) {
	var req AdjustBatchRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	b, err := h.svc.Inventory.AdjustBatch(c.Request.Context(), actor, service.AdjustBatchInput{
		BatchID:     c.Param("id"),
		Delta:       req.Delta,
		NewQuantity: req.NewQuantity,
		Type:        domain.TransactionType(req.Type),
		Notes:       req.Notes,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBatchResponse(b))
}

func (h *HTTPHandler) DeleteBatch(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.svc.Inventory.DeleteBatch(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) ListTransactions(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	list, err := h.svc.Inventory.ListTransactions(c.Request.Context(), actor, port.TransactionFilter{
		BatchID:   c.Query("batch_id"),
		ProductID: c.Query("product_id"),
		OrderID:   c.Query("order_id"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]TransactionResponse, len(list))
	for i, t := range list {
		out[i] = toTransactionResponse(t)
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) DeriveAvailability(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	a, err := h.svc.Inventory.DeriveAvailability(c.Request.Context(), actor, c.Param("productId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, AvailabilityResponse{ProductID: a.ProductID, Stock: a.Stock, Committed: a.Committed, Available: a.Available})
}

// purchase orders

func (h *HTTPHandler) CreatePurchaseOrder(c *gin.Context) {
	var req CreatePurchaseOrderRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	po, err := h.svc.PurchaseOrders.Create(c.Request.Context(), actor, service.CreatePurchaseOrderInput{
		SupplierName: req.SupplierName,
		Items:        poInputs(req.Items),
		Notes:        req.Notes,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPurchaseOrderResponse(po))
}

func (h *HTTPHandler) ListPurchaseOrders(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	list, err := h.svc.PurchaseOrders.List(c.Request.Context(), actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]PurchaseOrderResponse, len(list))
	for i, po := range list {
		out[i] = toPurchaseOrderResponse(po)
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) GetPurchaseOrder(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	po, err := h.svc.PurchaseOrders.Get(c.Request.Context(), actor, c.Param("id"))
	h.respondPO(c, po, err)
}

func (h *HTTPHandler) UpdatePurchaseOrderItems(c *gin.Context) {
	var req POItemsRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	po, err := h.svc.PurchaseOrders.UpdateItems(c.Request.Context(), actor, c.Param("id"), poInputs(req.Items))
	h.respondPO(c, po, err)
}

func (h *HTTPHandler) SubmitPurchaseOrder(c *gin.Context) {
	h.advancePO(c, h.svc.PurchaseOrders.Submit)
}

func (h *HTTPHandler) ApprovePurchaseOrder(c *gin.Context) {
	h.advancePO(c, h.svc.PurchaseOrders.Approve)
}

func (h *HTTPHandler) SendPurchaseOrder(c *gin.Context) {
	h.advancePO(c, h.svc.PurchaseOrders.SendToSupplier)
}

func (h *HTTPHandler) CancelPurchaseOrder(c *gin.Context) {
	h.advancePO(c, h.svc.PurchaseOrders.Cancel)
}

func (h *HTTPHandler) RejectPurchaseOrder(c *gin.Context) {
	var req ReasonRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	po, err := h.svc.PurchaseOrders.Reject(c.Request.Context(), actor, c.Param("id"), req.Reason)
	h.respondPO(c, po, err)
}

func (h *HTTPHandler) MarkPurchaseOrderReceived(c *gin.Context) {
	var req ReceivedRequest
	if !h.bindOptional(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	po, err := h.svc.PurchaseOrders.MarkReceived(c.Request.Context(), actor, c.Param("id"), req.Complete)
	h.respondPO(c, po, err)
}

func (h *HTTPHandler) AddPurchaseOrderComment(c *gin.Context) {
	var req CommentRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	po, err := h.svc.PurchaseOrders.AddComment(c.Request.Context(), actor, c.Param("id"), req.Comment)
	h.respondPO(c, po, err)
}

func (h *HTTPHandler) DeletePurchaseOrder(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.svc.PurchaseOrders.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) advancePO(c *gin.Context, call func(ctx context.Context, actor domain.Actor, id string) (domain.PurchaseOrder, error)) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	po, err := call(c.Request.Context(), actor, c.Param("id"))
	h.respondPO(c, po, err)
}

func (h *HTTPHandler) respondPO(c *gin.Context, po domain.PurchaseOrder, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPurchaseOrderResponse(po))
}

// catalog

func (h *HTTPHandler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	p, err := h.svc.Catalog.CreateProduct(c.Request.Context(), actor, service.CreateProductInput{
		Code:         req.Code,
		Name:         req.Name,
		UnitPrice:    req.UnitPrice,
		OpeningStock: req.OpeningStock,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProductResponse(p))
}

func (h *HTTPHandler) UpdateProduct(c *gin.Context) {
	var req UpdateProductRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	in := service.UpdateProductInput{Code: req.Code, Name: req.Name, UnitPrice: req.UnitPrice}
	if req.Status != nil {
		s := domain.ProductStatus(*req.Status)
		in.Status = &s
	}
	p, err := h.svc.Catalog.UpdateProduct(c.Request.Context(), actor, c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(p))
}

func (h *HTTPHandler) ListProducts(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	list, err := h.svc.Catalog.ListActiveProducts(c.Request.Context(), actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]ProductResponse, len(list))
	for i, p := range list {
		out[i] = toProductResponse(p)
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) CreateCustomer(c *gin.Context) {
	var req PartyRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	cust, err := h.svc.Catalog.CreateCustomer(c.Request.Context(), actor, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, PartyResponse{ID: cust.ID, CompanyName: cust.CompanyName, TaxCode: cust.TaxCode, Status: string(cust.Status)})
}

func (h *HTTPHandler) CreateSupplier(c *gin.Context) {
	var req PartyRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	s, err := h.svc.Catalog.CreateSupplier(c.Request.Context(), actor, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, PartyResponse{ID: s.ID, CompanyName: s.CompanyName, TaxCode: s.TaxCode, Status: string(s.Status)})
}

func (r PartyRequest) input() service.CreatePartyInput {
	return service.CreatePartyInput{
		CompanyName:     r.CompanyName,
		TaxCode:         r.TaxCode,
		Address:         r.Address,
		ShippingAddress: r.ShippingAddress,
		Region:          r.Region,
		ContactName:     r.ContactName,
		ContactPhone:    r.ContactPhone,
	}
}

func (h *HTTPHandler) RegisterProfile(c *gin.Context) {
	var req RegisterProfileRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	p, err := h.svc.Guard.RegisterProfile(c.Request.Context(), actor, service.RegisterProfileInput{
		UserID: req.UserID,
		Email:  req.Email,
		Name:   req.Name,
		Role:   domain.Role(req.Role),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ProfileResponse{ID: p.ID, UserID: p.UserID, Email: p.Email, Name: p.Name, Role: string(p.Role)})
}

// notifications

func (h *HTTPHandler) ListNotifications(c *gin.Context) {
	actor, found, ok := h.softActor(c)
	if !ok {
		return
	}
	if !found {
		c.JSON(http.StatusOK, []NotificationResponse{})
		return
	}
	list, err := h.svc.Notifications.List(c.Request.Context(), actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toNotificationResponses(list))
}

func (h *HTTPHandler) UnreadCount(c *gin.Context) {
	actor, found, ok := h.softActor(c)
	if !ok {
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"count": 0})
		return
	}
	n, err := h.svc.Notifications.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *HTTPHandler) MarkNotificationRead(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.svc.Notifications.MarkAsRead(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) MarkAllNotificationsRead(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.svc.Notifications.MarkAllAsRead(c.Request.Context(), actor); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

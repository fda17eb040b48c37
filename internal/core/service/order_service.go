package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/order-desk/internal/config"
	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/port"
)

const (
	orderNumberPrefix   = "ORD"
	voucherNumberPrefix = "DV"
)

type OrderService struct {
	store      port.Store
	cache      port.CacheRepository
	dispatcher *Dispatcher
	opts       options
}

func NewOrderService(store port.Store, cache port.CacheRepository, opts ...Option) *OrderService {
	o := newOptions(opts)
	return &OrderService{
		store:      store,
		cache:      cache,
		dispatcher: NewDispatcher(o.newID),
		opts:       o,
	}
}

type CreateOrderInput struct {
	CustomerID      string
	CustomerName    string
	Items           []domain.LineInput
	ShippingAddress domain.ShippingAddress
	Notes           string

	// IdempotencyKey, when set, makes a replay of the same request fail with
	// ErrDuplicateRequest instead of creating a second order.
	IdempotencyKey string
}

func (s *OrderService) CreateOrder(ctx context.Context, actor domain.Actor, in CreateOrderInput) (order domain.Order, err error) {
	ctx, span := s.opts.tracer.Start(ctx, "OrderService.CreateOrder",
		trace.WithAttributes(attribute.String("actor.id", actor.ID)))
	defer func() { endSpan(span, err) }()

	if err := Authorize(actor, string(domain.ActionCreate), domain.CreateOrderRoles...); err != nil {
		return domain.Order{}, err
	}
	if strings.TrimSpace(in.CustomerName) == "" {
		return domain.Order{}, domain.InvalidInput("customer name is required")
	}
	items, total, err := domain.NewOrderLines(in.Items)
	if err != nil {
		return domain.Order{}, err
	}

	if in.IdempotencyKey != "" {
		key := fmt.Sprintf("idempotency:order:%s:%s", actor.ID, in.IdempotencyKey)
		claimed, claimErr := s.cache.SetIdempotency(ctx, key)
		if claimErr != nil {
			return domain.Order{}, fmt.Errorf("idempotency check failed: %w", claimErr)
		}
		if !claimed {
			return domain.Order{}, domain.ErrDuplicateRequest
		}
		// Release the claim unless an order was stored.
		defer func() {
			if err == nil {
				return
			}
			if releaseErr := s.cache.ReleaseIdempotency(context.WithoutCancel(ctx), key); releaseErr != nil {
				config.LogError(s.opts.logger, "OrderService", "CreateOrder", "release idempotency key", key, releaseErr)
			}
		}()
	}

	now := s.opts.clock()
	number, err := numberFor(ctx, s.cache, orderNumberPrefix, now)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order number: %w", err)
	}

	order = domain.Order{
		ID:              s.opts.newID(),
		OrderNumber:     number,
		CustomerID:      in.CustomerID,
		CustomerName:    strings.TrimSpace(in.CustomerName),
		Items:           items,
		Total:           total,
		Status:          domain.OrderStatusPending,
		CreatedBy:       actor.ID,
		ShippingAddress: in.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		order.AddComment(actor, notes, now)
	}

	var event domain.OrderEvent
	err = s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		for i, item := range order.Items {
			if item.ProductName != "" {
				continue
			}
			res, err := ResolveProduct(ctx, repo, item.ProductRef)
			if err != nil {
				return err
			}
			if r, ok := res.(domain.Resolved); ok {
				order.Items[i].ProductName = r.Product.Name
			}
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		event, err = s.dispatcher.Dispatch(ctx, repo, domain.NotifyOrderSubmitted, order, actor, "", now)
		return err
	})
	if err != nil {
		config.LogError(s.opts.logger, "OrderService", "CreateOrder", "create order failed", order.OrderNumber, err)
		return domain.Order{}, err
	}

	s.opts.publish(ctx, []domain.OrderEvent{event})
	s.logTransition(order, "create", actor)
	return order, nil
}

// ApproveOrder validates stock for every line before touching any of it,
// then reduces stock and writes one ship ledger row per line. Nothing is
// written if any line fails.
func (s *OrderService) ApproveOrder(ctx context.Context, actor domain.Actor, orderID, comment string) (domain.Order, error) {
	return s.transition(ctx, actor, orderID, domain.ActionApprove, func(ctx context.Context, repo port.Repository, order *domain.Order, now time.Time) (string, error) {
		type reduction struct {
			product domain.Product
			qty     int
		}
		byProduct := make(map[string]*reduction)
		var productOrder []string
		lineProduct := make([]string, len(order.Items))

		// Product rows are locked in sorted ref order so that approvals
		// sharing products always acquire their row locks in the same order.
		refs, _ := order.QuantityByRef()
		slices.Sort(refs)
		refProduct := make(map[string]domain.Product, len(refs))
		for _, ref := range refs {
			res, err := ResolveProduct(ctx, repo, ref)
			if err != nil {
				return "", err
			}
			resolved, ok := res.(domain.Resolved)
			if !ok {
				return "", &domain.NotFoundError{Entity: "product", Ref: ref}
			}
			refProduct[ref] = resolved.Product
		}

		for i, item := range order.Items {
			product := refProduct[item.ProductRef]
			lineProduct[i] = product.ID
			if byProduct[product.ID] == nil {
				byProduct[product.ID] = &reduction{product: product}
				productOrder = append(productOrder, product.ID)
			}
			byProduct[product.ID].qty += item.Quantity
		}

		for _, id := range productOrder {
			r := byProduct[id]
			if r.product.StockQuantity < r.qty {
				return "", &domain.InsufficientStockError{
					Product:   r.product.Name,
					Available: r.product.StockQuantity,
					Requested: r.qty,
				}
			}
		}

		for _, id := range productOrder {
			r := byProduct[id]
			p := r.product
			p.StockQuantity -= r.qty
			p.UpdatedBy = actor.ID
			p.UpdatedAt = now
			if err := repo.UpdateProduct(ctx, p); err != nil {
				return "", fmt.Errorf("reduce stock for %s: %w", p.Code, err)
			}
		}

		for i, item := range order.Items {
			txn := domain.InventoryTransaction{
				ID:              s.opts.newID(),
				ProductID:       lineProduct[i],
				Type:            domain.TxnShip,
				Quantity:        -item.Quantity,
				OrderID:         order.ID,
				Notes:           "Order " + order.OrderNumber + " approved",
				PerformedBy:     actor.ID,
				PerformedByName: actor.Name,
				CreatedAt:       now,
			}
			if err := repo.AppendTransaction(ctx, txn); err != nil {
				return "", fmt.Errorf("append ship transaction: %w", err)
			}
		}

		order.AssignedAccountant = actor.ID
		if c := strings.TrimSpace(comment); c != "" {
			order.AddComment(actor, c, now)
		}
		return "", nil
	})
}

func (s *OrderService) RejectOrder(ctx context.Context, actor domain.Actor, orderID, reason string) (domain.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Order{}, domain.InvalidInput("rejection reason is required")
	}
	return s.transition(ctx, actor, orderID, domain.ActionReject, func(ctx context.Context, repo port.Repository, order *domain.Order, now time.Time) (string, error) {
		order.AddComment(actor, "Order rejected: "+reason, now)
		order.AssignedAccountant = actor.ID
		return reason, nil
	})
}

func (s *OrderService) RequestEdit(ctx context.Context, actor domain.Actor, orderID, reason string) (domain.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Order{}, domain.InvalidInput("edit reason is required")
	}
	return s.transition(ctx, actor, orderID, domain.ActionRequestEdit, func(ctx context.Context, repo port.Repository, order *domain.Order, now time.Time) (string, error) {
		order.AddComment(actor, "Edit requested: "+reason, now)
		order.AssignedAccountant = actor.ID
		return reason, nil
	})
}

func (s *OrderService) ConfirmWarehouse(ctx context.Context, actor domain.Actor, orderID, notes string) (domain.Order, error) {
	return s.transition(ctx, actor, orderID, domain.ActionConfirmWarehouse, func(ctx context.Context, repo port.Repository, order *domain.Order, now time.Time) (string, error) {
		order.AssignedWarehouseManager = actor.ID
		if n := strings.TrimSpace(notes); n != "" {
			order.AddComment(actor, n, now)
		}
		return "", nil
	})
}

// RejectWarehouse returns an approved order's stock by reversing each ship
// row recorded at approval with a return row.
func (s *OrderService) RejectWarehouse(ctx context.Context, actor domain.Actor, orderID, reason string) (domain.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Order{}, domain.InvalidInput("rejection reason is required")
	}
	return s.transition(ctx, actor, orderID, domain.ActionRejectWarehouse, func(ctx context.Context, repo port.Repository, order *domain.Order, now time.Time) (string, error) {
		shipped, err := repo.ListTransactions(ctx, port.TransactionFilter{OrderID: order.ID})
		if err != nil {
			return "", fmt.Errorf("list order transactions: %w", err)
		}

		release := make(map[string]int)
		var productOrder []string
		for _, t := range shipped {
			if t.Type != domain.TxnShip {
				continue
			}
			if _, ok := release[t.ProductID]; !ok {
				productOrder = append(productOrder, t.ProductID)
			}
			release[t.ProductID] -= t.Quantity
		}

		for _, id := range productOrder {
			p, err := repo.GetProductForUpdate(ctx, id)
			if err != nil {
				return "", err
			}
			if p == nil {
				return "", &domain.NotFoundError{Entity: "product", Ref: id}
			}
			p.StockQuantity += release[id]
			p.UpdatedBy = actor.ID
			p.UpdatedAt = now
			if err := repo.UpdateProduct(ctx, *p); err != nil {
				return "", fmt.Errorf("release stock for %s: %w", p.Code, err)
			}
			txn := domain.InventoryTransaction{
				ID:              s.opts.newID(),
				ProductID:       id,
				Type:            domain.TxnReturn,
				Quantity:        release[id],
				OrderID:         order.ID,
				Notes:           "Order " + order.OrderNumber + " rejected by warehouse",
				PerformedBy:     actor.ID,
				PerformedByName: actor.Name,
				CreatedAt:       now,
			}
			if err := repo.AppendTransaction(ctx, txn); err != nil {
				return "", fmt.Errorf("append return transaction: %w", err)
			}
		}

		order.AddComment(actor, "Warehouse rejected: "+reason, now)
		order.AssignedWarehouseManager = actor.ID
		return reason, nil
	})
}

type UpdateStatusInput struct {
	Status            domain.OrderStatus
	TrackingNumber    string
	ShippedQuantities []domain.ShippedQuantity
	Notes             string
}

// UpdateOrderStatus handles the shipping and terminal edges. Which roles may
// take each edge comes from the transition table.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, actor domain.Actor, orderID string, in UpdateStatusInput) (domain.Order, error) {
	action, ok := domain.StatusAction(in.Status)
	if !ok {
		return domain.Order{}, domain.InvalidInput("status %q cannot be set directly", in.Status)
	}
	for _, sq := range in.ShippedQuantities {
		if strings.TrimSpace(sq.ProductRef) == "" || sq.Quantity < 0 {
			return domain.Order{}, domain.InvalidInput("shipped quantities need a product and a non-negative quantity")
		}
	}

	return s.transition(ctx, actor, orderID, action, func(ctx context.Context, repo port.Repository, order *domain.Order, now time.Time) (string, error) {
		if in.TrackingNumber != "" {
			order.TrackingNumber = strings.TrimSpace(in.TrackingNumber)
		}
		if len(in.ShippedQuantities) > 0 {
			order.ShippedQuantities = append([]domain.ShippedQuantity(nil), in.ShippedQuantities...)
		}
		if action == domain.ActionShip || actor.Role == domain.RoleShipper {
			order.AssignedShipper = actor.ID
		}
		if n := strings.TrimSpace(in.Notes); n != "" {
			order.AddComment(actor, n, now)
		}
		return "", nil
	})
}

func (s *OrderService) AddOrderComment(ctx context.Context, actor domain.Actor, orderID, text string) (domain.Order, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Order{}, domain.InvalidInput("comment text is required")
	}

	var order domain.Order
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		o, err := s.visibleOrder(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}
		now := s.opts.clock()
		o.AddComment(actor, text, now)
		o.UpdatedAt = now
		if err := repo.UpdateOrder(ctx, *o); err != nil {
			return err
		}
		order = *o
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (s *OrderService) CreateDeliveryVoucher(ctx context.Context, actor domain.Actor, orderID string) (voucher domain.DeliveryVoucher, err error) {
	ctx, span := s.opts.tracer.Start(ctx, "OrderService.CreateDeliveryVoucher",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { endSpan(span, err) }()

	if err := Authorize(actor, string(domain.ActionCreateVoucher), domain.RoleAdmin); err != nil {
		return domain.DeliveryVoucher{}, err
	}

	now := s.opts.clock()
	number, err := numberFor(ctx, s.cache, voucherNumberPrefix, now)
	if err != nil {
		return domain.DeliveryVoucher{}, fmt.Errorf("voucher number: %w", err)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		order, err := repo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return &domain.NotFoundError{Entity: "order", Ref: orderID}
		}
		if !domain.VoucherAllowed(order.Status) {
			return &domain.InvalidStateError{Entity: "order", Action: string(domain.ActionCreateVoucher), Status: string(order.Status)}
		}
		voucher = domain.DeliveryVoucher{
			ID:            s.opts.newID(),
			VoucherNumber: number,
			OrderID:       order.ID,
			Items:         domain.NewVoucherItems(order.Items),
			CreatedBy:     actor.ID,
			CreatedAt:     now,
		}
		return repo.CreateVoucher(ctx, voucher)
	})
	if err != nil {
		return domain.DeliveryVoucher{}, err
	}
	return voucher, nil
}

// ListOrders returns what actor may see, newest first. An empty status
// returns every visible order.
func (s *OrderService) ListOrders(ctx context.Context, actor domain.Actor, status domain.OrderStatus) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		var err error
		orders, err = repo.ListOrders(ctx, domain.ScopeFor(actor))
		return err
	})
	if err != nil {
		return nil, err
	}
	if status == "" {
		return orders, nil
	}
	filtered := orders[:0]
	for _, o := range orders {
		if o.Status == status {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

func (s *OrderService) GetOrder(ctx context.Context, actor domain.Actor, orderID string) (domain.Order, error) {
	var order domain.Order
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		o, err := s.visibleOrder(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}
		order = *o
		return nil
	})
	return order, err
}

func (s *OrderService) ListDeliveryVouchers(ctx context.Context, actor domain.Actor, orderID string) ([]domain.DeliveryVoucher, error) {
	var vouchers []domain.DeliveryVoucher
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		if _, err := s.visibleOrder(ctx, repo, actor, orderID); err != nil {
			return err
		}
		var err error
		vouchers, err = repo.ListVouchersByOrder(ctx, orderID)
		return err
	})
	return vouchers, err
}

// visibleOrder loads an order the actor may see. A sales actor reading
// someone else's order is denied; other roles get NotFound so the order's
// existence is not revealed.
func (s *OrderService) visibleOrder(ctx context.Context, repo port.Repository, actor domain.Actor, orderID string) (*domain.Order, error) {
	order, err := repo.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, &domain.NotFoundError{Entity: "order", Ref: orderID}
	}
	if domain.ScopeFor(actor).Contains(*order) {
		return order, nil
	}
	if actor.Role == domain.RoleSales {
		return nil, &domain.AuthorizationError{Action: "view orders created by others", Allowed: []domain.Role{domain.RoleAccountant, domain.RoleAdmin}}
	}
	return nil, &domain.NotFoundError{Entity: "order", Ref: orderID}
}

// mutateFunc applies an edge's side effects to order. The returned string is
// the reason quoted in notifications.
type mutateFunc func(ctx context.Context, repo port.Repository, order *domain.Order, now time.Time) (string, error)

// transition runs one edge of the order state machine inside a single store
// transaction: role check, edge check, side effects, status change and
// notifications. Events are published only after commit.
func (s *OrderService) transition(ctx context.Context, actor domain.Actor, orderID string, action domain.Action, mutate mutateFunc) (order domain.Order, err error) {
	ctx, span := s.opts.tracer.Start(ctx, "OrderService.transition", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.action", string(action)),
		attribute.String("actor.role", string(actor.Role)),
	))
	defer func() { endSpan(span, err) }()

	if roles := domain.ActionRoles(action); roles != nil {
		if err := Authorize(actor, string(action), roles...); err != nil {
			return domain.Order{}, err
		}
	}

	if s.opts.locker != nil {
		release, err := s.opts.locker.Lock(ctx, "order:"+orderID, s.opts.lockTTL)
		if errors.Is(err, port.ErrLockNotObtained) {
			return domain.Order{}, fmt.Errorf("order %s is being processed: %w", orderID, domain.ErrInvalidState)
		}
		if err != nil {
			return domain.Order{}, fmt.Errorf("lock order: %w", err)
		}
		defer func() { _ = release(context.WithoutCancel(ctx)) }()
	}

	var event domain.OrderEvent
	err = s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		o, err := repo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return &domain.NotFoundError{Entity: "order", Ref: orderID}
		}

		edge, err := domain.NextEdge(o.Status, action)
		if err != nil {
			return err
		}
		if edge.Roles != nil {
			if err := Authorize(actor, string(action), edge.Roles...); err != nil {
				return err
			}
		} else if !domain.ScopeFor(actor).Contains(*o) {
			return &domain.NotFoundError{Entity: "order", Ref: orderID}
		}

		now := s.opts.clock()
		reason, err := mutate(ctx, repo, o, now)
		if err != nil {
			return err
		}
		o.Status = edge.To
		o.UpdatedAt = now
		if err := repo.UpdateOrder(ctx, *o); err != nil {
			return err
		}

		event, err = s.dispatcher.Dispatch(ctx, repo, notificationForStatus(edge.To), *o, actor, reason, now)
		if err != nil {
			return err
		}
		order = *o
		return nil
	})
	if err != nil {
		s.opts.logger.WithFields(logrus.Fields{
			"order_id": orderID,
			"action":   string(action),
			"actor_id": actor.ID,
		}).WithError(err).Warn("order transition refused")
		return domain.Order{}, err
	}

	s.opts.publish(ctx, []domain.OrderEvent{event})
	s.logTransition(order, string(action), actor)
	return order, nil
}

func (s *OrderService) logTransition(order domain.Order, action string, actor domain.Actor) {
	s.opts.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"action":       action,
		"status":       string(order.Status),
		"actor_id":     actor.ID,
	}).Info("order transition")
}

// ResolveProduct looks a reference up by id, then by code.
func ResolveProduct(ctx context.Context, repo port.ProductRepository, ref string) (domain.ProductResolution, error) {
	p, err := repo.GetProductForUpdate(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p != nil {
		return domain.Resolved{Product: *p, Via: domain.ResolvedByID}, nil
	}
	p, err = repo.GetProductByCodeForUpdate(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("get product by code: %w", err)
	}
	if p != nil {
		return domain.Resolved{Product: *p, Via: domain.ResolvedByCode}, nil
	}
	return domain.Unresolved{Ref: ref}, nil
}

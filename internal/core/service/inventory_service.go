package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/port"
)

var inventoryRoles = []domain.Role{domain.RoleWarehouseManager, domain.RoleAdmin}

// InventoryService owns batches and the stock ledger. Every change to a
// product's stock goes through here together with a ledger row.
type InventoryService struct {
	store port.Store
	opts  options
}

func NewInventoryService(store port.Store, opts ...Option) *InventoryService {
	return &InventoryService{store: store, opts: newOptions(opts)}
}

type ReceiveBatchInput struct {
	ProductRef      string
	BatchNumber     string
	Quantity        int
	ReceivedAt      time.Time
	ExpiresAt       *time.Time
	ManufacturedAt  *time.Time
	SupplierName    string
	PurchaseOrderID string
	Location        string
	Notes           string
}

func (s *InventoryService) ReceiveBatch(ctx context.Context, actor domain.Actor, in ReceiveBatchInput) (batch domain.InventoryBatch, err error) {
	ctx, span := s.opts.tracer.Start(ctx, "InventoryService.ReceiveBatch", trace.WithAttributes(
		attribute.String("batch.number", in.BatchNumber),
		attribute.Int("batch.quantity", in.Quantity),
	))
	defer func() { endSpan(span, err) }()

	if err := Authorize(actor, "receive inventory", inventoryRoles...); err != nil {
		return domain.InventoryBatch{}, err
	}
	in.BatchNumber = strings.TrimSpace(in.BatchNumber)
	if in.BatchNumber == "" {
		return domain.InventoryBatch{}, domain.InvalidInput("batch number is required")
	}
	if in.Quantity <= 0 {
		return domain.InventoryBatch{}, domain.InvalidInput("quantity must be positive")
	}

	now := s.opts.clock()
	if in.ReceivedAt.IsZero() {
		in.ReceivedAt = now
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		product, err := s.resolveExisting(ctx, repo, in.ProductRef)
		if err != nil {
			return err
		}
		if in.PurchaseOrderID != "" {
			po, err := repo.GetPurchaseOrderForUpdate(ctx, in.PurchaseOrderID)
			if err != nil {
				return err
			}
			if po == nil {
				return &domain.NotFoundError{Entity: "purchase order", Ref: in.PurchaseOrderID}
			}
		}
		existing, err := repo.GetBatchByNumber(ctx, in.BatchNumber)
		if err != nil {
			return err
		}
		if existing != nil {
			return &domain.UniquenessError{Field: "batch number", Value: in.BatchNumber}
		}

		batch = domain.InventoryBatch{
			ID:              s.opts.newID(),
			ProductID:       product.ID,
			ProductCode:     product.Code,
			ProductName:     product.Name,
			BatchNumber:     in.BatchNumber,
			Quantity:        in.Quantity,
			ReceivedAt:      in.ReceivedAt,
			ExpiresAt:       in.ExpiresAt,
			ManufacturedAt:  in.ManufacturedAt,
			SupplierName:    in.SupplierName,
			PurchaseOrderID: in.PurchaseOrderID,
			Location:        in.Location,
			Notes:           in.Notes,
			Status:          domain.BatchStatusAvailable,
			CreatedBy:       actor.ID,
			UpdatedBy:       actor.ID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := repo.CreateBatch(ctx, batch); err != nil {
			return err
		}
		return s.moveStock(ctx, repo, actor, product, batch.ID, domain.TxnReceive, in.Quantity, in.PurchaseOrderID, "Batch "+batch.BatchNumber+" received", now)
	})
	if err != nil {
		return domain.InventoryBatch{}, err
	}

	s.opts.logger.WithFields(logrus.Fields{
		"batch_id":   batch.ID,
		"product_id": batch.ProductID,
		"quantity":   batch.Quantity,
	}).Info("inventory batch received")
	return batch, nil
}

type AdjustBatchInput struct {
	BatchID string

	// Exactly one of Delta and NewQuantity is set.
	Delta       *int
	NewQuantity *int

	Type  domain.TransactionType
	Notes string
}

func (s *InventoryService) AdjustBatch(ctx context.Context, actor domain.Actor, in AdjustBatchInput) (batch domain.InventoryBatch, err error) {
	ctx, span := s.opts.tracer.Start(ctx, "InventoryService.AdjustBatch",
		trace.WithAttributes(attribute.String("batch.id", in.BatchID)))
	defer func() { endSpan(span, err) }()

	if err := Authorize(actor, "adjust inventory", inventoryRoles...); err != nil {
		return domain.InventoryBatch{}, err
	}
	if (in.Delta == nil) == (in.NewQuantity == nil) {
		return domain.InventoryBatch{}, domain.InvalidInput("provide either a delta or a new quantity")
	}
	if in.Type == "" {
		in.Type = domain.TxnAdjust
	}
	if !in.Type.Adjustable() {
		return domain.InventoryBatch{}, domain.InvalidInput("transaction type %q cannot be used for adjustments", in.Type)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		var err error
		batch, err = s.adjust(ctx, repo, actor, in)
		return err
	})
	if err != nil {
		return domain.InventoryBatch{}, err
	}
	return batch, nil
}

func (s *InventoryService) adjust(ctx context.Context, repo port.Repository, actor domain.Actor, in AdjustBatchInput) (domain.InventoryBatch, error) {
	b, err := repo.GetBatchForUpdate(ctx, in.BatchID)
	if err != nil {
		return domain.InventoryBatch{}, err
	}
	if b == nil {
		return domain.InventoryBatch{}, &domain.NotFoundError{Entity: "inventory batch", Ref: in.BatchID}
	}

	var delta int
	if in.Delta != nil {
		delta = *in.Delta
	} else {
		delta = *in.NewQuantity - b.Quantity
	}
	if delta == 0 {
		return domain.InventoryBatch{}, domain.InvalidInput("adjustment does not change the quantity")
	}
	if b.Quantity+delta < 0 {
		return domain.InventoryBatch{}, &domain.InsufficientStockError{Product: b.ProductName, Available: b.Quantity, Requested: -delta}
	}

	product, err := repo.GetProductForUpdate(ctx, b.ProductID)
	if err != nil {
		return domain.InventoryBatch{}, err
	}
	if product == nil {
		return domain.InventoryBatch{}, &domain.NotFoundError{Entity: "product", Ref: b.ProductID}
	}
	if product.StockQuantity+delta < 0 {
		return domain.InventoryBatch{}, &domain.InsufficientStockError{Product: product.Name, Available: product.StockQuantity, Requested: -delta}
	}

	now := s.opts.clock()
	b.Quantity += delta
	b.UpdatedBy = actor.ID
	b.UpdatedAt = now
	if err := repo.UpdateBatch(ctx, *b); err != nil {
		return domain.InventoryBatch{}, err
	}

	notes := strings.TrimSpace(in.Notes)
	if notes == "" {
		notes = fmt.Sprintf("Batch %s %s %+d", b.BatchNumber, in.Type, delta)
	}
	if err := s.moveStock(ctx, repo, actor, *product, b.ID, in.Type, delta, "", notes, now); err != nil {
		return domain.InventoryBatch{}, err
	}
	return *b, nil
}

type UpdateBatchInput struct {
	Quantity       *int
	ExpiresAt      *time.Time
	ManufacturedAt *time.Time
	Location       *string
	Notes          *string
	Status         *domain.BatchStatus
}

// UpdateBatch patches batch metadata. A quantity change is booked as an
// adjust row, exactly like AdjustBatch.
func (s *InventoryService) UpdateBatch(ctx context.Context, actor domain.Actor, batchID string, in UpdateBatchInput) (domain.InventoryBatch, error) {
	if err := Authorize(actor, "update inventory batches", inventoryRoles...); err != nil {
		return domain.InventoryBatch{}, err
	}
	if in.Status != nil && !in.Status.Valid() {
		return domain.InventoryBatch{}, domain.InvalidInput("unknown batch status %q", *in.Status)
	}

	var batch domain.InventoryBatch
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		b, err := repo.GetBatchForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if b == nil {
			return &domain.NotFoundError{Entity: "inventory batch", Ref: batchID}
		}
		if in.Quantity != nil && *in.Quantity != b.Quantity {
			adjusted, err := s.adjust(ctx, repo, actor, AdjustBatchInput{
				BatchID:     batchID,
				NewQuantity: in.Quantity,
				Type:        domain.TxnAdjust,
				Notes:       fmt.Sprintf("Batch %s quantity set to %d", b.BatchNumber, *in.Quantity),
			})
			if err != nil {
				return err
			}
			b = &adjusted
		}

		if in.ExpiresAt != nil {
			b.ExpiresAt = in.ExpiresAt
		}
		if in.ManufacturedAt != nil {
			b.ManufacturedAt = in.ManufacturedAt
		}
		if in.Location != nil {
			b.Location = *in.Location
		}
		if in.Notes != nil {
			b.Notes = *in.Notes
		}
		if in.Status != nil {
			b.Status = *in.Status
		}
		b.UpdatedBy = actor.ID
		b.UpdatedAt = s.opts.clock()
		if err := repo.UpdateBatch(ctx, *b); err != nil {
			return err
		}
		batch = *b
		return nil
	})
	if err != nil {
		return domain.InventoryBatch{}, err
	}
	return batch, nil
}

// DeleteBatch removes a batch and takes its quantity back out of product
// stock, floored at zero, with an adjust row for the amount removed.
func (s *InventoryService) DeleteBatch(ctx context.Context, actor domain.Actor, batchID string) error {
	if err := Authorize(actor, "delete inventory batches", domain.RoleAdmin); err != nil {
		return err
	}

	return s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		b, err := repo.GetBatchForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if b == nil {
			return &domain.NotFoundError{Entity: "inventory batch", Ref: batchID}
		}
		product, err := repo.GetProductForUpdate(ctx, b.ProductID)
		if err != nil {
			return err
		}

		if product != nil {
			reverse := min(b.Quantity, product.StockQuantity)
			if reverse > 0 {
				notes := fmt.Sprintf("Batch %s deleted", b.BatchNumber)
				if err := s.moveStock(ctx, repo, actor, *product, b.ID, domain.TxnAdjust, -reverse, "", notes, s.opts.clock()); err != nil {
					return err
				}
			}
		}
		return repo.DeleteBatch(ctx, b.ID)
	})
}

// DeriveAvailability nets product stock against shipped quantities still
// held by open orders.
func (s *InventoryService) DeriveAvailability(ctx context.Context, actor domain.Actor, productRef string) (domain.Availability, error) {
	if err := Authorize(actor, "view inventory", inventoryRoles...); err != nil {
		return domain.Availability{}, err
	}

	var av domain.Availability
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		product, err := s.resolveExisting(ctx, repo, productRef)
		if err != nil {
			return err
		}
		refs := []string{product.ID, product.Code}
		orders, err := repo.ListOpenOrdersWithShipments(ctx, refs)
		if err != nil {
			return err
		}

		committed := 0
		for _, o := range orders {
			if !o.Status.Open() {
				continue
			}
			for _, sq := range o.ShippedQuantities {
				if sq.ProductRef == product.ID || sq.ProductRef == product.Code {
					committed += sq.Quantity
				}
			}
		}
		av = domain.Availability{
			ProductID: product.ID,
			Stock:     product.StockQuantity,
			Committed: committed,
			Available: max(0, product.StockQuantity-committed),
		}
		return nil
	})
	return av, err
}

func (s *InventoryService) ListBatches(ctx context.Context, actor domain.Actor, filter port.BatchFilter) ([]domain.InventoryBatch, error) {
	if err := Authorize(actor, "view inventory", inventoryRoles...); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.InvalidInput("unknown batch status %q", filter.Status)
	}
	var out []domain.InventoryBatch
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		var err error
		out, err = repo.ListBatches(ctx, filter)
		return err
	})
	return out, err
}

func (s *InventoryService) GetBatchByNumber(ctx context.Context, actor domain.Actor, batchNumber string) (domain.InventoryBatch, error) {
	if err := Authorize(actor, "view inventory", inventoryRoles...); err != nil {
		return domain.InventoryBatch{}, err
	}
	var batch domain.InventoryBatch
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		b, err := repo.GetBatchByNumber(ctx, batchNumber)
		if err != nil {
			return err
		}
		if b == nil {
			return &domain.NotFoundError{Entity: "inventory batch", Ref: batchNumber}
		}
		batch = *b
		return nil
	})
	return batch, err
}

func (s *InventoryService) ListTransactions(ctx context.Context, actor domain.Actor, filter port.TransactionFilter) ([]domain.InventoryTransaction, error) {
	if err := Authorize(actor, "view inventory", inventoryRoles...); err != nil {
		return nil, err
	}
	var out []domain.InventoryTransaction
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		var err error
		out, err = repo.ListTransactions(ctx, filter)
		return err
	})
	return out, err
}

func (s *InventoryService) resolveExisting(ctx context.Context, repo port.ProductRepository, ref string) (domain.Product, error) {
	res, err := ResolveProduct(ctx, repo, ref)
	if err != nil {
		return domain.Product{}, err
	}
	switch r := res.(type) {
	case domain.Resolved:
		return r.Product, nil
	default:
		return domain.Product{}, &domain.NotFoundError{Entity: "product", Ref: ref}
	}
}

// moveStock applies delta to product stock and appends the matching ledger
// row. Callers have already checked the result stays non-negative.
func (s *InventoryService) moveStock(ctx context.Context, repo port.Repository, actor domain.Actor, product domain.Product, batchID string, typ domain.TransactionType, delta int, poID, notes string, now time.Time) error {
	product.StockQuantity += delta
	product.UpdatedBy = actor.ID
	product.UpdatedAt = now
	if err := repo.UpdateProduct(ctx, product); err != nil {
		return fmt.Errorf("update product stock: %w", err)
	}
	return repo.AppendTransaction(ctx, domain.InventoryTransaction{
		ID:              s.opts.newID(),
		BatchID:         batchID,
		ProductID:       product.ID,
		Type:            typ,
		Quantity:        delta,
		PurchaseOrderID: poID,
		Notes:           notes,
		PerformedBy:     actor.ID,
		PerformedByName: actor.Name,
		CreatedAt:       now,
	})
}

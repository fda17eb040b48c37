package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/port"
)

const poNumberPrefix = "PO"

var poRoles = []domain.Role{domain.RoleWarehouseManager, domain.RoleAdmin}

type PurchaseOrderService struct {
	store port.Store
	cache port.CacheRepository
	opts  options
}

func NewPurchaseOrderService(store port.Store, cache port.CacheRepository, opts ...Option) *PurchaseOrderService {
	return &PurchaseOrderService{store: store, cache: cache, opts: newOptions(opts)}
}

type CreatePurchaseOrderInput struct {
	SupplierName string
	Items        []domain.POLineInput
	Notes        string
}

func (s *PurchaseOrderService) Create(ctx context.Context, actor domain.Actor, in CreatePurchaseOrderInput) (domain.PurchaseOrder, error) {
	if err := Authorize(actor, "manage purchase orders", poRoles...); err != nil {
		return domain.PurchaseOrder{}, err
	}
	if strings.TrimSpace(in.SupplierName) == "" {
		return domain.PurchaseOrder{}, domain.InvalidInput("supplier name is required")
	}
	items, total, err := domain.NewPurchaseOrderLines(in.Items)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	now := s.opts.clock()
	number, err := numberFor(ctx, s.cache, poNumberPrefix, now)
	if err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("purchase order number: %w", err)
	}

	po := domain.PurchaseOrder{
		ID:           s.opts.newID(),
		PONumber:     number,
		SupplierName: strings.TrimSpace(in.SupplierName),
		Items:        items,
		Total:        total,
		Status:       domain.POStatusDraft,
		CreatedBy:    actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		po.Comments = append(po.Comments, comment(actor, notes, now))
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		return repo.CreatePurchaseOrder(ctx, po)
	})
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	return po, nil
}

// UpdateItems replaces the lines of a draft and recomputes its total.
func (s *PurchaseOrderService) UpdateItems(ctx context.Context, actor domain.Actor, poID string, inputs []domain.POLineInput) (domain.PurchaseOrder, error) {
	if err := Authorize(actor, "manage purchase orders", poRoles...); err != nil {
		return domain.PurchaseOrder{}, err
	}
	items, total, err := domain.NewPurchaseOrderLines(inputs)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	return s.mutate(ctx, poID, func(po *domain.PurchaseOrder, now time.Time) error {
		if po.Status != domain.POStatusDraft {
			return &domain.InvalidStateError{Entity: "purchase order", Action: "edit items", Status: string(po.Status)}
		}
		po.Items = items
		po.Total = total
		return nil
	})
}

func (s *PurchaseOrderService) Submit(ctx context.Context, actor domain.Actor, poID string) (domain.PurchaseOrder, error) {
	return s.advance(ctx, actor, poID, domain.POActionSubmit, poRoles, nil)
}

func (s *PurchaseOrderService) Approve(ctx context.Context, actor domain.Actor, poID string) (domain.PurchaseOrder, error) {
	return s.advance(ctx, actor, poID, domain.POActionApprove, []domain.Role{domain.RoleAdmin}, func(po *domain.PurchaseOrder, now time.Time) {
		po.ApprovedBy = actor.ID
		po.ApprovedAt = &now
		po.RejectionReason = ""
	})
}

// Reject sends a pending purchase order back to draft with the reason kept
// on the order and in its comments.
func (s *PurchaseOrderService) Reject(ctx context.Context, actor domain.Actor, poID, reason string) (domain.PurchaseOrder, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.PurchaseOrder{}, domain.InvalidInput("rejection reason is required")
	}
	return s.advance(ctx, actor, poID, domain.POActionReject, []domain.Role{domain.RoleAdmin}, func(po *domain.PurchaseOrder, now time.Time) {
		po.RejectionReason = reason
		po.Comments = append(po.Comments, comment(actor, "Purchase order rejected: "+reason, now))
	})
}

func (s *PurchaseOrderService) SendToSupplier(ctx context.Context, actor domain.Actor, poID string) (domain.PurchaseOrder, error) {
	return s.advance(ctx, actor, poID, domain.POActionSend, poRoles, nil)
}

// MarkReceived moves a sent order to partially_received, or to completed
// when complete is set.
func (s *PurchaseOrderService) MarkReceived(ctx context.Context, actor domain.Actor, poID string, complete bool) (domain.PurchaseOrder, error) {
	action := domain.POActionReceivePartial
	if complete {
		action = domain.POActionReceiveComplete
	}
	return s.advance(ctx, actor, poID, action, poRoles, nil)
}

func (s *PurchaseOrderService) Cancel(ctx context.Context, actor domain.Actor, poID string) (domain.PurchaseOrder, error) {
	return s.advance(ctx, actor, poID, domain.POActionCancel, poRoles, nil)
}

func (s *PurchaseOrderService) AddComment(ctx context.Context, actor domain.Actor, poID, text string) (domain.PurchaseOrder, error) {
	if err := Authorize(actor, "comment on purchase orders", poRoles...); err != nil {
		return domain.PurchaseOrder{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.PurchaseOrder{}, domain.InvalidInput("comment text is required")
	}
	return s.mutate(ctx, poID, func(po *domain.PurchaseOrder, now time.Time) error {
		po.Comments = append(po.Comments, comment(actor, text, now))
		return nil
	})
}

// Delete is admin only and limited to drafts and cancelled orders.
func (s *PurchaseOrderService) Delete(ctx context.Context, actor domain.Actor, poID string) error {
	if err := Authorize(actor, "delete purchase orders", domain.RoleAdmin); err != nil {
		return err
	}
	return s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		po, err := repo.GetPurchaseOrderForUpdate(ctx, poID)
		if err != nil {
			return err
		}
		if po == nil {
			return &domain.NotFoundError{Entity: "purchase order", Ref: poID}
		}
		if po.Status != domain.POStatusDraft && po.Status != domain.POStatusCancelled {
			return &domain.InvalidStateError{Entity: "purchase order", Action: "delete", Status: string(po.Status)}
		}
		return repo.DeletePurchaseOrder(ctx, poID)
	})
}

func (s *PurchaseOrderService) List(ctx context.Context, actor domain.Actor) ([]domain.PurchaseOrder, error) {
	if err := Authorize(actor, "view purchase orders", poRoles...); err != nil {
		return nil, err
	}
	var out []domain.PurchaseOrder
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		var err error
		out, err = repo.ListPurchaseOrders(ctx)
		return err
	})
	return out, err
}

func (s *PurchaseOrderService) Get(ctx context.Context, actor domain.Actor, poID string) (domain.PurchaseOrder, error) {
	if err := Authorize(actor, "view purchase orders", poRoles...); err != nil {
		return domain.PurchaseOrder{}, err
	}
	var out domain.PurchaseOrder
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		po, err := repo.GetPurchaseOrderForUpdate(ctx, poID)
		if err != nil {
			return err
		}
		if po == nil {
			return &domain.NotFoundError{Entity: "purchase order", Ref: poID}
		}
		out = *po
		return nil
	})
	return out, err
}

func (s *PurchaseOrderService) advance(ctx context.Context, actor domain.Actor, poID string, action domain.POAction, roles []domain.Role, apply func(po *domain.PurchaseOrder, now time.Time)) (domain.PurchaseOrder, error) {
	if err := Authorize(actor, string(action)+" purchase orders", roles...); err != nil {
		return domain.PurchaseOrder{}, err
	}
	po, err := s.mutate(ctx, poID, func(po *domain.PurchaseOrder, now time.Time) error {
		to, err := domain.NextPOStatus(po.Status, action)
		if err != nil {
			return err
		}
		if apply != nil {
			apply(po, now)
		}
		po.Status = to
		return nil
	})
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	s.opts.logger.WithFields(logrus.Fields{
		"po_id":    po.ID,
		"action":   string(action),
		"status":   string(po.Status),
		"actor_id": actor.ID,
	}).Info("purchase order transition")
	return po, nil
}

func (s *PurchaseOrderService) mutate(ctx context.Context, poID string, fn func(po *domain.PurchaseOrder, now time.Time) error) (domain.PurchaseOrder, error) {
	var out domain.PurchaseOrder
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		po, err := repo.GetPurchaseOrderForUpdate(ctx, poID)
		if err != nil {
			return err
		}
		if po == nil {
			return &domain.NotFoundError{Entity: "purchase order", Ref: poID}
		}
		now := s.opts.clock()
		if err := fn(po, now); err != nil {
			return err
		}
		po.UpdatedAt = now
		if err := repo.UpdatePurchaseOrder(ctx, *po); err != nil {
			return err
		}
		out = *po
		return nil
	})
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	return out, nil
}

func comment(actor domain.Actor, text string, at time.Time) domain.Comment {
	return domain.Comment{
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Text:      text,
		CreatedAt: at,
	}
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/port"
)

// audience is one recipient group of an event with its own wording.
type audience struct {
	creator bool
	role    domain.Role
	title   string
	message func(o domain.Order, reason string) string
}

func statusAudience(status domain.OrderStatus) []audience {
	return []audience{{
		creator: true,
		title:   "Order " + strings.ToUpper(string(status)),
		message: func(o domain.Order, _ string) string {
			return fmt.Sprintf("Order %s status updated to %s", o.OrderNumber, status)
		},
	}}
}

var recipients = map[domain.NotificationType][]audience{
	domain.NotifyOrderSubmitted: {{
		role:  domain.RoleAccountant,
		title: "New Order Submitted",
		message: func(o domain.Order, _ string) string {
			return fmt.Sprintf("Order %s from %s needs approval", o.OrderNumber, o.CustomerName)
		},
	}},
	domain.NotifyOrderApproved: {
		{
			creator: true,
			title:   "Order Approved",
			message: func(o domain.Order, _ string) string {
				return fmt.Sprintf("Your order %s has been approved", o.OrderNumber)
			},
		},
		{
			role:  domain.RoleWarehouseManager,
			title: "Order Ready for Processing",
			message: func(o domain.Order, _ string) string {
				return fmt.Sprintf("Order %s has been approved and needs inventory confirmation", o.OrderNumber)
			},
		},
	},
	domain.NotifyOrderRejected: {{
		creator: true,
		title:   "Order Rejected",
		message: func(o domain.Order, reason string) string {
			return fmt.Sprintf("Your order %s has been rejected: %s", o.OrderNumber, reason)
		},
	}},
	domain.NotifyEditRequested: {{
		creator: true,
		title:   "Order Edit Requested",
		message: func(o domain.Order, reason string) string {
			return fmt.Sprintf("Changes requested for order %s: %s", o.OrderNumber, reason)
		},
	}},
	domain.NotifyWarehouseConfirmed: {{
		role:  domain.RoleShipper,
		title: "Order Ready to Ship",
		message: func(o domain.Order, _ string) string {
			return fmt.Sprintf("Order %s is ready for shipping", o.OrderNumber)
		},
	}},
	domain.NotifyWarehouseRejected: {
		{
			creator: true,
			title:   "Order Rejected by Warehouse",
			message: func(o domain.Order, reason string) string {
				return fmt.Sprintf("Your order %s was rejected by the warehouse: %s", o.OrderNumber, reason)
			},
		},
		{
			role:  domain.RoleAccountant,
			title: "Order Rejected by Warehouse",
			message: func(o domain.Order, reason string) string {
				return fmt.Sprintf("Order %s was rejected by the warehouse and its stock released: %s", o.OrderNumber, reason)
			},
		},
	},
	domain.NotifyOrderShipped:   statusAudience(domain.OrderStatusShipped),
	domain.NotifyOrderCompleted: statusAudience(domain.OrderStatusCompleted),
	domain.NotifyOrderPartial:   statusAudience(domain.OrderStatusPartialComplete),
	domain.NotifyOrderFailed:    statusAudience(domain.OrderStatusFailed),
	domain.NotifyOrderCancelled: statusAudience(domain.OrderStatusCancelled),
}

func notificationForStatus(s domain.OrderStatus) domain.NotificationType {
	switch s {
	case domain.OrderStatusApproved:
		return domain.NotifyOrderApproved
	case domain.OrderStatusRejected:
		return domain.NotifyOrderRejected
	case domain.OrderStatusEditRequested:
		return domain.NotifyEditRequested
	case domain.OrderStatusWarehouseConfirmed:
		return domain.NotifyWarehouseConfirmed
	case domain.OrderStatusWarehouseRejected:
		return domain.NotifyWarehouseRejected
	case domain.OrderStatusShipped:
		return domain.NotifyOrderShipped
	case domain.OrderStatusCompleted:
		return domain.NotifyOrderCompleted
	case domain.OrderStatusPartialComplete:
		return domain.NotifyOrderPartial
	case domain.OrderStatusFailed:
		return domain.NotifyOrderFailed
	case domain.OrderStatusCancelled:
		return domain.NotifyOrderCancelled
	}
	return domain.NotifyOrderSubmitted
}

// Dispatcher writes notification rows inside the caller's transaction and
// returns the event to publish once that transaction commits.
type Dispatcher struct {
	newID func() string
}

func NewDispatcher(newID func() string) *Dispatcher {
	return &Dispatcher{newID: newID}
}

func (d *Dispatcher) Dispatch(ctx context.Context, repo port.NotificationRecipientRepository, typ domain.NotificationType, order domain.Order, actor domain.Actor, reason string, at time.Time) (domain.OrderEvent, error) {
	event := domain.OrderEvent{
		Type:        typ,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		OccurredAt:  at,
	}

	seen := make(map[string]bool)
	for _, aud := range recipients[typ] {
		var userIDs []string
		if aud.creator {
			userIDs = append(userIDs, order.CreatedBy)
		}
		if aud.role != "" {
			profiles, err := repo.ListProfilesByRole(ctx, aud.role)
			if err != nil {
				return event, fmt.Errorf("list %s profiles: %w", aud.role, err)
			}
			for _, p := range profiles {
				userIDs = append(userIDs, p.ID)
			}
		}

		for _, userID := range userIDs {
			if userID == "" || seen[userID] {
				continue
			}
			seen[userID] = true

			n := domain.Notification{
				ID:          d.newID(),
				UserID:      userID,
				OrderID:     order.ID,
				Type:        typ,
				Title:       aud.title,
				Message:     aud.message(order, reason),
				OrderNumber: order.OrderNumber,
				CreatedAt:   at,
			}
			if err := repo.CreateNotification(ctx, n); err != nil {
				return event, fmt.Errorf("create notification: %w", err)
			}
			event.Recipients = append(event.Recipients, userID)
		}
	}
	return event, nil
}

package domain

import "time"

type NotificationType string

const (
	NotifyOrderSubmitted     NotificationType = "order_submitted"
	NotifyOrderApproved      NotificationType = "order_approved"
	NotifyOrderRejected      NotificationType = "order_rejected"
	NotifyEditRequested      NotificationType = "edit_requested"
	NotifyWarehouseConfirmed NotificationType = "warehouse_confirmed"
	NotifyWarehouseRejected  NotificationType = "warehouse_rejected"
	NotifyOrderShipped       NotificationType = "order_shipped"
	NotifyOrderCompleted     NotificationType = "order_completed"
	NotifyOrderPartial       NotificationType = "order_partial_complete"
	NotifyOrderFailed        NotificationType = "order_failed"
	NotifyOrderCancelled     NotificationType = "order_cancelled"
)

type Notification struct {
	ID          string
	UserID      string
	OrderID     string
	Type        NotificationType
	Title       string
	Message     string
	OrderNumber string
	IsRead      bool
	CreatedAt   time.Time
}

// OrderEvent is published after a transition commits.
type OrderEvent struct {
	Type        NotificationType `json:"type"`
	OrderID     string           `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	Status      OrderStatus      `json:"status"`
	ActorID     string           `json:"actor_id"`
	ActorRole   Role             `json:"actor_role"`
	Recipients  []string         `json:"recipients"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

package port

import (
	"context"

	"github.com/rl1809/order-desk/internal/core/domain"
)

type EventPublisher interface {
	// Publish delivers a committed order event; failures never undo the transition
	Publish(ctx context.Context, event domain.OrderEvent) error
}

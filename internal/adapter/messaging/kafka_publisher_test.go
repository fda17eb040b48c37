package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/rl1809/order-desk/internal/core/domain"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessage(ctx context.Context, msg kafka.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

func sampleEvent() domain.OrderEvent {
	return domain.OrderEvent{
		Type:        domain.NotifyOrderApproved,
		OrderID:     "o-1",
		OrderNumber: "ORD-20240501090000-0001",
		Status:      domain.OrderStatusApproved,
		ActorID:     "p-acc",
		ActorRole:   domain.RoleAccountant,
		Recipients:  []string{"p-sales", "p-wh"},
		OccurredAt:  time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestPublish_KeyedByOrder(t *testing.T) {
	w := new(mockWriter)
	w.On("WriteMessage", mock.Anything, mock.MatchedBy(func(msg kafka.Message) bool {
		var got domain.OrderEvent
		if err := json.Unmarshal(msg.Value, &got); err != nil {
			return false
		}
		return string(msg.Key) == "o-1" &&
			got.Status == domain.OrderStatusApproved &&
			len(msg.Headers) == 1 && string(msg.Headers[0].Value) == "order_approved"
	})).Return(nil).Once()
	w.On("Close").Return(nil)

	p := NewKafkaPublisher(w)
	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.NoError(t, p.Close())
	w.AssertExpectations(t)
}

func TestPublish_WrapsWriteError(t *testing.T) {
	w := new(mockWriter)
	w.On("WriteMessage", mock.Anything, mock.Anything).Return(errors.New("leader not available"))

	err := NewKafkaPublisher(w).Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write order event order_approved")
}

func TestPublish_Broker(t *testing.T) {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("Kafka not available: KAFKA_BROKERS not set")
	}

	writer, err := NewTracedWriter(strings.Split(brokers, ","), "order-events-test", "order-desk-test", noop.NewTracerProvider())
	require.NoError(t, err)
	p := NewKafkaPublisher(writer)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	assert.NoError(t, p.Publish(ctx, sampleEvent()))
}

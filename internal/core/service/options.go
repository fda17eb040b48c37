package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/order-desk/internal/config"
	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/port"
)

const tracerName = "github.com/rl1809/order-desk/internal/core/service"

type options struct {
	logger    logrus.FieldLogger
	tracer    trace.Tracer
	publisher port.EventPublisher
	locker    port.Locker
	lockTTL   time.Duration
	now       func() time.Time
	newID     func() string
}

type Option func(*options)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) { o.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithPublisher sets where committed order events go after each transition.
func WithPublisher(p port.EventPublisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithLocker guards each order transition with a short lease on the order id.
func WithLocker(l port.Locker, ttl time.Duration) Option {
	return func(o *options) {
		o.locker = l
		o.lockTTL = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) options {
	o := options{
		logger:  config.NopLogger(),
		tracer:  otel.Tracer(tracerName),
		lockTTL: 30 * time.Second,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) clock() time.Time {
	return o.now().UTC()
}

// endSpan records err on span before ending it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// publish sends committed events; a failed send is logged, never returned.
func (o options) publish(ctx context.Context, events []domain.OrderEvent) {
	if o.publisher == nil {
		return
	}
	for _, ev := range events {
		if err := o.publisher.Publish(ctx, ev); err != nil {
			config.LogError(o.logger, "service", "publish", "order event not delivered", ev, err)
		}
	}
}

// numberFor builds a display number such as ORD-20240501103000-0007. The
// sequence resets daily.
func numberFor(ctx context.Context, cache port.CacheRepository, prefix string, at time.Time) (string, error) {
	seq, err := cache.NextSequence(ctx, prefix+":"+at.Format("20060102"))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, at.Format("20060102150405"), seq), nil
}

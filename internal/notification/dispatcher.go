package notification

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/handyman/internal/config"
	"github.com/Additional-Code/handyman/internal/messaging"
)

var dispatchTracer = otel.Tracer("github.com/Additional-Code/handyman/notification")

// Dispatcher runs notifications in the background. Callers never wait and
// never see delivery errors.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// DispatcherParams collects dispatcher dependencies.
type DispatcherParams struct {
	fx.In

	Channel Notifier
	Client  messaging.Client
	Config  config.Config
	Logger  *zap.Logger
}

// NewDispatcher selects direct delivery or the message bus based on NOTIFY_MODE.
func NewDispatcher(p DispatcherParams) *Dispatcher {
	target := p.Channel
	if p.Config.Notification.Mode == "queue" {
		p.Logger.Info("notifications queued on message bus", zap.String("topic", p.Client.Topic()))
		target = NewQueue(p.Client)
	}
	return newDispatcher(target, p.Config.Notification.Timeout, p.Logger)
}

func newDispatcher(n Notifier, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{notifier: n, timeout: timeout, logger: logger}
}

// OrderCreated schedules a new-order notification.
func (d *Dispatcher) OrderCreated(ctx context.Context, evt OrderCreated) {
	d.dispatch(ctx, eventOrderCreated, evt.OrderID, func(ctx context.Context) error {
		return d.notifier.NotifyNewOrder(ctx, evt)
	})
}

// StatusChanged schedules a status-change notification.
func (d *Dispatcher) StatusChanged(ctx context.Context, evt StatusChanged) {
	d.dispatch(ctx, eventStatusChanged, evt.OrderID, func(ctx context.Context) error {
		return d.notifier.NotifyStatusChange(ctx, evt)
	})
}

func (d *Dispatcher) dispatch(parent context.Context, kind string, orderID int64, send func(context.Context) error) {
	// Detached from the request so cancellation of the caller does not abort delivery.
	link := trace.LinkFromContext(parent)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("notification panicked", zap.String("event", kind), zap.Int64("order_id", orderID), zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		ctx, span := dispatchTracer.Start(ctx, "notification."+kind,
			trace.WithLinks(link),
			trace.WithAttributes(attribute.Int64("order.id", orderID)),
		)
		defer span.End()

		if err := send(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "delivery failed")
			d.logger.Warn("notification failed", zap.String("event", kind), zap.Int64("order_id", orderID), zap.Error(err))
			return
		}
		d.logger.Debug("notification sent", zap.String("event", kind), zap.Int64("order_id", orderID))
	}()
}

// Wait blocks until in-flight notifications finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package notification

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/handyman/internal/config"
	"github.com/Additional-Code/handyman/internal/messaging"
	notify "github.com/Additional-Code/handyman/internal/notification"
	"github.com/Additional-Code/handyman/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/handyman/worker/notification")

// Module registers the queued notification consumer.
var Module = fx.Module("worker_notification",
	fx.Provide(
		fx.Annotate(
			NewDeliveryHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewDeliveryHandler forwards queued order events to the chat channel.
func NewDeliveryHandler(channel notify.Notifier, client messaging.Client, cfg config.Config, logger *zap.Logger) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.notifications.deliver", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
			attribute.Int64("messaging.offset", msg.Offset),
		))
		defer span.End()

		ctx, cancel := context.WithTimeout(ctx, cfg.Notification.Timeout)
		defer cancel()

		err := notify.Deliver(ctx, channel, msg.Value)
		if errors.Is(err, notify.ErrMalformed) {
			// Retrying cannot fix the payload; drop it so the partition moves on.
			logger.Error("dropping malformed notification", zap.Error(err), zap.Int64("offset", msg.Offset))
			return nil
		}
		if err != nil {
			logger.Error("queued notification failed", zap.Error(err), zap.ByteString("key", msg.Key))

			span.RecordError(err)
			span.SetStatus(codes.Error, "delivery failed")
			return err
		}
		logger.Debug("queued notification delivered", zap.ByteString("key", msg.Key))

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   client.Topic(),
		Handler: handler,
	}
}

package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/handyman/internal/config"
	"github.com/Additional-Code/handyman/internal/storage"
)

// OrderCreated describes a freshly persisted order.
type OrderCreated struct {
	OrderID      int64     `json:"order_id"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	Description  string    `json:"description"`
	SelectedDate string    `json:"selected_date"`
	Photos       []string  `json:"photos"`
	CreatedAt    time.Time `json:"created_at"`
}

// StatusChanged describes an admin status update.
type StatusChanged struct {
	OrderID   int64     `json:"order_id"`
	Previous  string    `json:"previous"`
	Current   string    `json:"current"`
	ChangedAt time.Time `json:"changed_at"`
}

// Notifier relays order events to an external channel.
type Notifier interface {
	NotifyNewOrder(ctx context.Context, evt OrderCreated) error
	NotifyStatusChange(ctx context.Context, evt StatusChanged) error
}

// Module provides the delivery channel and the dispatcher.
var Module = fx.Options(
	fx.Provide(NewChannel, NewDispatcher),
	fx.Invoke(func(lc fx.Lifecycle, d *Dispatcher) {
		lc.Append(fx.Hook{OnStop: d.Wait})
	}),
)

// Noop drops every event.
type Noop struct{}

func (Noop) NotifyNewOrder(context.Context, OrderCreated) error      { return nil }
func (Noop) NotifyStatusChange(context.Context, StatusChanged) error { return nil }

// NewChannel builds the notifier that talks to the chat service directly.
func NewChannel(cfg config.Config, store storage.Store, logger *zap.Logger) (Notifier, error) {
	switch cfg.Notification.Driver {
	case "noop":
		logger.Info("notifications disabled; using noop channel")
		return Noop{}, nil
	case "telegram":
		return NewTelegram(cfg.Notification, store.Path, cfg.Booking.Location, logger), nil
	default:
		return nil, fmt.Errorf("unsupported notification driver: %s", cfg.Notification.Driver)
	}
}

package order

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/handyman/internal/notification"
	verifysvc "github.com/Additional-Code/handyman/internal/service/verification"
)

// Module provides the order service to Fx.
var Module = fx.Provide(
	NewService,
	func(v *verifysvc.Service) Verifier { return v },
	func(d *notification.Dispatcher) Notifier { return d },
)

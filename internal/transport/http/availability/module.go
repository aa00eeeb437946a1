package availability

import (
	"go.uber.org/fx"

	httpserver "github.com/Additional-Code/handyman/internal/server/http"
)

// Module wires HTTP calendar handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(func(r httpserver.Router, h *Handler) {
		Register(r, h)
	}),
)

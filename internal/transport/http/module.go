package http

import (
	"go.uber.org/fx"

	availabilitytransport "github.com/Additional-Code/handyman/internal/transport/http/availability"
	ordertransport "github.com/Additional-Code/handyman/internal/transport/http/order"
	verificationtransport "github.com/Additional-Code/handyman/internal/transport/http/verification"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	availabilitytransport.Module,
	ordertransport.Module,
	verificationtransport.Module,
)

package verification

import "go.uber.org/fx"

// Module provides the verification repository to Fx.
var Module = fx.Provide(NewRepository)

package availability

import "go.uber.org/fx"

// Module provides the available date repository to Fx.
var Module = fx.Provide(NewRepository)

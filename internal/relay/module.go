package relay

import "go.uber.org/fx"

// Module provides the Relay and exposes it as a Handler
var Module = fx.Module("relay",
	fx.Provide(
		New,
		func(r *Relay) Handler { return r },
	),
)

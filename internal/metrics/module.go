package metrics

import "go.uber.org/fx"

// Module provides the relay Metrics
var Module = fx.Module("metrics",
	fx.Provide(New),
)

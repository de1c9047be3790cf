package surface

import "go.uber.org/fx"

// Module provides the hub-backed Surface
var Module = fx.Module("surface",
	fx.Provide(
		fx.Annotate(
			NewHubSurface,
			fx.As(new(Surface)),
		),
	),
)

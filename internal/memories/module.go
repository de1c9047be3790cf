package memories

import "go.uber.org/fx"

// Module provides the memories Service
var Module = fx.Module("memories",
	fx.Provide(NewService),
)

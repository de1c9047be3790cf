package transport

import "go.uber.org/fx"

// Module provides the relay HTTP Server
var Module = fx.Module("transport",
	fx.Provide(NewServer),
)

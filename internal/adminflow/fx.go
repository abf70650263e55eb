package adminflow

import "go.uber.org/fx"

var Module = fx.Module("adminflow",
	fx.Provide(New),
)

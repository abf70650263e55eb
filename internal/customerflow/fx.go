package customerflow

import "go.uber.org/fx"

var Module = fx.Module("customerflow",
	fx.Provide(New),
)

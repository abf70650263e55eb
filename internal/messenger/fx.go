package messenger

import "go.uber.org/fx"

var Module = fx.Module("messenger",
	fx.Provide(NewWhatsApp),
)

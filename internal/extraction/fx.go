package extraction

import "go.uber.org/fx"

var Module = fx.Module("extraction",
	fx.Provide(NewClient),
	fx.Provide(func(c *Client) Chain { return c }),
	fx.Provide(NewService),
)

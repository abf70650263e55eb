package subscription

import (
	"github.com/smallbiznis/ordena/internal/subscription/repository"
	"github.com/smallbiznis/ordena/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

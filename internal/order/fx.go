package order

import (
	"github.com/smallbiznis/ordena/internal/order/repository"
	"github.com/smallbiznis/ordena/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

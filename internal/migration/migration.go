// Package migration creates the schema on startup so the service is usable
// out of the box on any of the supported databases.
package migration

import (
	admindomain "github.com/smallbiznis/ordena/internal/admin/domain"
	bizdomain "github.com/smallbiznis/ordena/internal/business/domain"
	custdomain "github.com/smallbiznis/ordena/internal/customer/domain"
	orderdomain "github.com/smallbiznis/ordena/internal/order/domain"
	productdomain "github.com/smallbiznis/ordena/internal/product/domain"
	"github.com/smallbiznis/ordena/internal/seed"
	subdomain "github.com/smallbiznis/ordena/internal/subscription/domain"
	tenantdomain "github.com/smallbiznis/ordena/internal/tenant/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Run),
	fx.Invoke(seed.Run),
)

func Run(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&tenantdomain.Channel{},
		&bizdomain.Business{},
		&bizdomain.DeliveryZone{},
		&bizdomain.BankDetails{},
		&admindomain.Admin{},
		&admindomain.InviteCode{},
		&admindomain.State{},
		&custdomain.State{},
		&productdomain.Product{},
		&orderdomain.Order{},
		&subdomain.Subscription{},
		&subdomain.UsageCounter{},
	)
}

// Package command implements the deterministic grammar for high-stakes
// administrator commands. Exact matches always win over natural-language
// interpretation: payment confirmation, order rejection, status changes and
// plan changes are reachable only through this grammar.
package command

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
)

// Kind identifies one parsed command.
type Kind string

const (
	KindHelp          Kind = "help"
	KindViewOrders    Kind = "view_orders"
	KindViewOrder     Kind = "view_order"
	KindOrderStatus   Kind = "order_status"
	KindConfirmPay    Kind = "confirm_payment"
	KindRejectOrder   Kind = "reject_order"
	KindSales         Kind = "sales"
	KindViewMenu      Kind = "view_menu"
	KindViewBusiness  Kind = "view_business"
	KindSyncCatalog   Kind = "sync_catalog"
	KindPauseProduct  Kind = "pause_product"
	KindEditProduct   Kind = "edit_product"
	KindDeleteProduct Kind = "delete_product"
	KindAddProduct    Kind = "add_product"
	KindEditBusiness  Kind = "edit_business"
	KindMyPlan        Kind = "my_plan"
	KindPlans         Kind = "plans"
	KindChangePlan    Kind = "change_plan"
	KindRenew         Kind = "renew"
	KindAnalytics     Kind = "analytics"
)

// Customer-side commands, always available independent of flow state.
const (
	KindOrderQuery  Kind = "order_query"
	KindCancelOrder Kind = "cancel_order"
	KindCancel      Kind = "cancel"
)

// Fulfillment statuses accepted by the ESTADO PEDIDO grammar.
var orderStatuses = map[string]string{
	"PREPARANDO": "preparando",
	"EN CAMINO":  "en_camino",
	"EN_CAMINO":  "en_camino",
	"ENTREGADO":  "entregado",
}

// Command is one parsed admin or customer command with its arguments.
type Command struct {
	Kind        Kind
	OrderNumber int
	Status      string
	Reason      string
	Period      string
	PlanSlug    string
	ProductName string
	Price       int64
	Category    string
}

var (
	reViewOrder   = regexp.MustCompile(`(?i)^VER\s+PEDIDO\s+#?(\d+)$`)
	reOrderStatus = regexp.MustCompile(`(?i)^ESTADO\s+PEDIDO\s+#?(\d+)(?:\s+(.+))?$`)
	reConfirmPay  = regexp.MustCompile(`(?i)^CONFIRMAR\s+PAGO\s+#?(\d+)$`)
	reRejectOrder = regexp.MustCompile(`(?i)^RECHAZAR\s+PEDIDO\s+#?(\d+)(?:\s+(.+))?$`)
	reSales       = regexp.MustCompile(`(?i)^VENTAS\s+(HOY|SEMANA|MES)$`)
	reChangePlan  = regexp.MustCompile(`(?i)^CAMBIAR\s+PLAN\s+(\S+)$`)
	reAddProduct  = regexp.MustCompile(`(?i)^AGREGAR\s+PRODUCTO\s+(.+)$`)

	reOrderQuery  = regexp.MustCompile(`(?i)^ESTADO\s+#?(\d+)$`)
	reCancelOrder = regexp.MustCompile(`(?i)^CANCELAR\s+#?(\d+)$`)
)

var fixedVocabulary = map[string]Kind{
	"AYUDA":             KindHelp,
	"MENU AYUDA":        KindHelp,
	"VER PEDIDOS":       KindViewOrders,
	"PEDIDOS":           KindViewOrders,
	"VER MENU":          KindViewMenu,
	"VER MENÚ":          KindViewMenu,
	"VER NEGOCIO":       KindViewBusiness,
	"SINCRONIZAR":       KindSyncCatalog,
	"PAUSAR PRODUCTO":   KindPauseProduct,
	"EDITAR PRODUCTO":   KindEditProduct,
	"ELIMINAR PRODUCTO": KindDeleteProduct,
	"BORRAR PRODUCTO":   KindDeleteProduct,
	"EDITAR":            KindEditBusiness,
	"EDITAR NEGOCIO":    KindEditBusiness,
	"MI PLAN":           KindMyPlan,
	"PLAN":              KindMyPlan,
	"PLANES":            KindPlans,
	"RENOVAR":           KindRenew,
	"ANALYTICS":         KindAnalytics,
	"ESTADISTICAS":      KindAnalytics,
	"ESTADÍSTICAS":      KindAnalytics,
}

// Parse matches admin input against the deterministic grammar. A malformed
// argument yields no match; the caller may then fall back to natural-language
// classification, but only for the non-destructive subset.
func Parse(raw string) (Command, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Command{}, false
	}
	upper := strings.ToUpper(text)

	if kind, ok := fixedVocabulary[upper]; ok {
		return Command{Kind: kind}, true
	}

	if m := reViewOrder.FindStringSubmatch(text); m != nil {
		return Command{Kind: KindViewOrder, OrderNumber: mustAtoi(m[1])}, true
	}

	if m := reConfirmPay.FindStringSubmatch(text); m != nil {
		return Command{Kind: KindConfirmPay, OrderNumber: mustAtoi(m[1])}, true
	}

	if m := reRejectOrder.FindStringSubmatch(text); m != nil {
		return Command{
			Kind:        KindRejectOrder,
			OrderNumber: mustAtoi(m[1]),
			Reason:      strings.TrimSpace(m[2]),
		}, true
	}

	if m := reOrderStatus.FindStringSubmatch(text); m != nil {
		cmd := Command{Kind: KindOrderStatus, OrderNumber: mustAtoi(m[1])}
		arg := strings.ToUpper(strings.TrimSpace(m[2]))
		if arg == "" {
			// Bare "ESTADO PEDIDO #N" is a status query.
			cmd.Kind = KindViewOrder
			return cmd, true
		}
		status, ok := orderStatuses[arg]
		if !ok {
			return Command{}, false
		}
		cmd.Status = status
		return cmd, true
	}

	if m := reSales.FindStringSubmatch(text); m != nil {
		return Command{Kind: KindSales, Period: strings.ToLower(m[1])}, true
	}

	if m := reChangePlan.FindStringSubmatch(text); m != nil {
		return Command{Kind: KindChangePlan, PlanSlug: slug.Make(m[1])}, true
	}

	if m := reAddProduct.FindStringSubmatch(text); m != nil {
		cmd, ok := parseAddProduct(m[1])
		if !ok {
			return Command{}, false
		}
		return cmd, true
	}

	return Command{}, false
}

// ParseCustomer matches the always-available customer commands.
func ParseCustomer(raw string) (Command, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Command{}, false
	}

	if m := reOrderQuery.FindStringSubmatch(text); m != nil {
		return Command{Kind: KindOrderQuery, OrderNumber: mustAtoi(m[1])}, true
	}
	if m := reCancelOrder.FindStringSubmatch(text); m != nil {
		return Command{Kind: KindCancelOrder, OrderNumber: mustAtoi(m[1])}, true
	}
	if strings.EqualFold(text, "CANCELAR") {
		return Command{Kind: KindCancel}, true
	}

	return Command{}, false
}

// parseAddProduct expects "nombre | precio | categoría", category optional.
func parseAddProduct(args string) (Command, bool) {
	parts := strings.Split(args, "|")
	if len(parts) < 2 {
		return Command{}, false
	}

	name := strings.TrimSpace(parts[0])
	priceRaw := strings.TrimSpace(parts[1])
	priceRaw = strings.TrimPrefix(priceRaw, "$")
	priceRaw = strings.ReplaceAll(priceRaw, ".", "")
	priceRaw = strings.ReplaceAll(priceRaw, ",", "")

	price, err := strconv.ParseInt(priceRaw, 10, 64)
	if err != nil || price <= 0 || name == "" {
		return Command{}, false
	}

	cmd := Command{Kind: KindAddProduct, ProductName: name, Price: price}
	if len(parts) >= 3 {
		cmd.Category = strings.TrimSpace(parts[2])
	}
	return cmd, true
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

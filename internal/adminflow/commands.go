package adminflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	admindomain "github.com/smallbiznis/ordena/internal/admin/domain"
	bizdomain "github.com/smallbiznis/ordena/internal/business/domain"
	"github.com/smallbiznis/ordena/internal/catalogsync"
	"github.com/smallbiznis/ordena/internal/command"
	"github.com/smallbiznis/ordena/internal/messenger"
	orderdomain "github.com/smallbiznis/ordena/internal/order/domain"
	productdomain "github.com/smallbiznis/ordena/internal/product/domain"
	subdomain "github.com/smallbiznis/ordena/internal/subscription/domain"
	"go.uber.org/zap"
)

const helpText = `Comandos disponibles:
• VER PEDIDOS — pedidos pendientes
• VER PEDIDO #N — detalle de un pedido
• ESTADO PEDIDO #N preparando|en camino|entregado
• CONFIRMAR PAGO #N
• RECHAZAR PEDIDO #N [motivo]
• VENTAS HOY|SEMANA|MES
• VER MENU / VER NEGOCIO
• AGREGAR PRODUCTO nombre | precio | categoría
• PAUSAR PRODUCTO / EDITAR PRODUCTO / ELIMINAR PRODUCTO
• SINCRONIZAR — sincronizar catálogo
• EDITAR — editar tu negocio
• MI PLAN / PLANES / CAMBIAR PLAN <plan> / RENOVAR
• ANALYTICS — reporte de tu negocio`

// handleCompleted routes post-onboarding input: deterministic commands first,
// natural-language classification second. Destructive actions never reach the
// NL path.
func (e *Engine) handleCompleted(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business) ([]messenger.Outgoing, error) {
	if cmd, ok := command.Parse(in.Text); ok {
		return e.execute(ctx, in, state, business, cmd)
	}
	return e.handleIntent(ctx, in, business)
}

func (e *Engine) execute(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business, cmd command.Command) ([]messenger.Outgoing, error) {
	switch cmd.Kind {
	case command.KindHelp:
		return reply(in.Phone, helpText), nil
	case command.KindViewOrders:
		return e.cmdViewOrders(ctx, in, business)
	case command.KindViewOrder:
		return e.cmdViewOrder(ctx, in, business, cmd.OrderNumber)
	case command.KindOrderStatus:
		return e.cmdOrderStatus(ctx, in, business, cmd)
	case command.KindConfirmPay:
		return e.cmdConfirmPayment(ctx, in, business, cmd.OrderNumber)
	case command.KindRejectOrder:
		return e.cmdRejectOrder(ctx, in, business, cmd)
	case command.KindSales:
		return e.cmdSales(ctx, in, business, cmd.Period)
	case command.KindViewMenu:
		return e.cmdViewMenu(ctx, in, business)
	case command.KindViewBusiness:
		return e.cmdViewBusiness(ctx, in, business)
	case command.KindSyncCatalog:
		return e.cmdSyncCatalog(ctx, in, business)
	case command.KindAddProduct:
		return e.cmdAddProduct(ctx, in, business, cmd)
	case command.KindPauseProduct:
		return e.startProductPick(ctx, in, state, business, admindomain.StepProductPausePick,
			"¿Qué producto querés pausar o reactivar? Respondé con el número (0 para cancelar):")
	case command.KindEditProduct:
		return e.startProductPick(ctx, in, state, business, admindomain.StepProductEditPick,
			"¿Qué producto querés editar? Respondé con el número (0 para cancelar):")
	case command.KindDeleteProduct:
		return e.startProductPick(ctx, in, state, business, admindomain.StepProductDeletePick,
			"¿Qué producto querés eliminar? Respondé con el número (0 para cancelar):")
	case command.KindEditBusiness:
		if err := e.advance(ctx, state, admindomain.StepEditMenu); err != nil {
			return nil, err
		}
		return reply(in.Phone, editMenuPrompt), nil
	case command.KindMyPlan:
		return e.cmdMyPlan(ctx, in, business)
	case command.KindPlans:
		return reply(in.Phone, e.formatPlans()), nil
	case command.KindChangePlan:
		return e.cmdChangePlan(ctx, in, business, cmd.PlanSlug)
	case command.KindRenew:
		return e.cmdRenew(ctx, in, business)
	case command.KindAnalytics:
		return e.cmdAnalytics(ctx, in, business)
	default:
		return reply(in.Phone, helpText), nil
	}
}

func (e *Engine) cmdViewOrders(ctx context.Context, in Input, business *bizdomain.Business) ([]messenger.Outgoing, error) {
	pending, err := e.orders.Pending(ctx, business.ID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return reply(in.Phone, "No tenés pedidos pendientes. 👌"), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Pedidos pendientes (%d):\n", len(pending))
	for _, o := range pending {
		fmt.Fprintf(&sb, "• #%d — %s — $%d — %s/%s\n",
			o.OrderNumber, o.ClientPhone, o.GrandTotal, o.OrderStatus, o.PaymentStatus)
	}
	sb.WriteString("Escribí VER PEDIDO #N para ver el detalle.")
	return reply(in.Phone, sb.String()), nil
}

func (e *Engine) cmdViewOrder(ctx context.Context, in Input, business *bizdomain.Business, number int) ([]messenger.Outgoing, error) {
	order, err := e.orders.Get(ctx, business.ID, number)
	if errors.Is(err, orderdomain.ErrOrderNotFound) {
		return reply(in.Phone, fmt.Sprintf("No encontré el pedido #%d.", number)), nil
	}
	if err != nil {
		return nil, err
	}
	return reply(in.Phone, formatOrder(order)), nil
}

func (e *Engine) cmdOrderStatus(ctx context.Context, in Input, business *bizdomain.Business, cmd command.Command) ([]messenger.Outgoing, error) {
	order, err := e.orders.AdvanceStatus(ctx, business.ID, cmd.OrderNumber, orderdomain.OrderStatus(cmd.Status))
	switch {
	case errors.Is(err, orderdomain.ErrOrderNotFound):
		return reply(in.Phone, fmt.Sprintf("No encontré el pedido #%d.", cmd.OrderNumber)), nil
	case errors.Is(err, orderdomain.ErrTerminalStatus):
		return reply(in.Phone, fmt.Sprintf("El pedido #%d ya está %s y no se puede modificar.", cmd.OrderNumber, order.OrderStatus)), nil
	case err != nil:
		return nil, err
	}

	out := reply(in.Phone, fmt.Sprintf("Pedido #%d → %s ✅", order.OrderNumber, order.OrderStatus))
	if notice := statusNotice(order); notice != "" {
		out = append(out, messenger.Text(order.ClientPhone, notice))
	}
	return out, nil
}

func (e *Engine) cmdConfirmPayment(ctx context.Context, in Input, business *bizdomain.Business, number int) ([]messenger.Outgoing, error) {
	order, already, err := e.orders.ConfirmPayment(ctx, business.ID, number)
	if errors.Is(err, orderdomain.ErrOrderNotFound) {
		return reply(in.Phone, fmt.Sprintf("No encontré el pedido #%d.", number)), nil
	}
	if err != nil {
		return nil, err
	}
	if already {
		return reply(in.Phone, fmt.Sprintf("El pago del pedido #%d ya estaba confirmado.", number)), nil
	}
	return []messenger.Outgoing{
		messenger.Text(in.Phone, fmt.Sprintf("Pago del pedido #%d confirmado ✅", number)),
		messenger.Text(order.ClientPhone, fmt.Sprintf("✅ Recibimos tu pago del pedido #%d. ¡Ya lo estamos preparando!", number)),
	}, nil
}

func (e *Engine) cmdRejectOrder(ctx context.Context, in Input, business *bizdomain.Business, cmd command.Command) ([]messenger.Outgoing, error) {
	order, already, err := e.orders.Reject(ctx, business.ID, cmd.OrderNumber, cmd.Reason)
	switch {
	case errors.Is(err, orderdomain.ErrOrderNotFound):
		return reply(in.Phone, fmt.Sprintf("No encontré el pedido #%d.", cmd.OrderNumber)), nil
	case errors.Is(err, orderdomain.ErrTerminalStatus):
		return reply(in.Phone, fmt.Sprintf("El pedido #%d ya fue entregado, no se puede rechazar.", cmd.OrderNumber)), nil
	case err != nil:
		return nil, err
	}
	if already {
		return reply(in.Phone, fmt.Sprintf("El pedido #%d ya estaba cancelado.", cmd.OrderNumber)), nil
	}

	notice := fmt.Sprintf("❌ Tu pedido #%d fue rechazado.", cmd.OrderNumber)
	if cmd.Reason != "" {
		notice += " Motivo: " + cmd.Reason
	}
	return []messenger.Outgoing{
		messenger.Text(in.Phone, fmt.Sprintf("Pedido #%d rechazado.", cmd.OrderNumber)),
		messenger.Text(order.ClientPhone, notice),
	}, nil
}

func (e *Engine) cmdSales(ctx context.Context, in Input, business *bizdomain.Business, period string) ([]messenger.Outgoing, error) {
	since, label := e.periodStart(period)
	summary, err := e.orders.Sales(ctx, business.ID, since)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Ventas de %s:\n", label)
	fmt.Fprintf(&sb, "• Pedidos: %d (entregados %d, en curso %d, cancelados %d)\n",
		summary.Total, summary.Delivered, summary.InProgress, summary.Cancelled)
	fmt.Fprintf(&sb, "• Facturado (pagos confirmados): $%d\n", summary.TotalRevenue)
	fmt.Fprintf(&sb, "  – Efectivo: $%d\n", summary.CashRevenue)
	fmt.Fprintf(&sb, "  – Transferencia/seña: $%d", summary.TransferRevenue)
	return reply(in.Phone, sb.String()), nil
}

func (e *Engine) periodStart(period string) (time.Time, string) {
	now := e.clock.Now().In(e.loc)
	switch period {
	case "hoy":
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.loc)
		return midnight, "hoy"
	case "semana":
		return now.AddDate(0, 0, -7), "los últimos 7 días"
	default:
		return now.AddDate(0, 0, -30), "los últimos 30 días"
	}
}

func (e *Engine) cmdViewMenu(ctx context.Context, in Input, business *bizdomain.Business) ([]messenger.Outgoing, error) {
	products, err := e.prodRepo.FindAll(ctx, e.db, business.ID)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return reply(in.Phone, "Tu menú está vacío. Agregá productos con AGREGAR PRODUCTO nombre | precio."), nil
	}

	var sb strings.Builder
	sb.WriteString("📋 Tu menú:\n")
	for i, p := range products {
		marker := ""
		if !p.Available {
			marker = " (pausado)"
		}
		fmt.Fprintf(&sb, "%d. %s — $%d%s\n", i+1, p.Name, p.Price, marker)
	}
	return reply(in.Phone, sb.String()), nil
}

func (e *Engine) cmdViewBusiness(ctx context.Context, in Input, business *bizdomain.Business) ([]messenger.Outgoing, error) {
	zones, err := e.bizRepo.ZonesByBusiness(ctx, e.db, business.ID)
	if err != nil {
		return nil, err
	}
	bank, err := e.bizRepo.BankDetails(ctx, e.db, business.ID)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🏪 %s\n", business.Name)
	fmt.Fprintf(&sb, "• Horarios: %s\n", business.Hours)
	fmt.Fprintf(&sb, "• Entrega: %s\n", deliveryLabel(business))
	if business.Address != "" {
		fmt.Fprintf(&sb, "• Dirección: %s\n", business.Address)
	}
	fmt.Fprintf(&sb, "• Pagos: %s\n", paymentsLabel(business))
	if len(zones) > 0 {
		sb.WriteString("• Zonas de delivery:\n")
		for _, z := range zones {
			fmt.Fprintf(&sb, "  – %s: $%d\n", z.Name, z.Price)
		}
	}
	if bank != nil {
		fmt.Fprintf(&sb, "• Cuenta: %s (%s)\n", bank.Alias, bank.AccountHolder)
	}
	sb.WriteString("Escribí EDITAR para modificar tu negocio.")
	return reply(in.Phone, sb.String()), nil
}

func (e *Engine) cmdSyncCatalog(ctx context.Context, in Input, business *bizdomain.Business) ([]messenger.Outgoing, error) {
	products, err := e.prodRepo.FindAll(ctx, e.db, business.ID)
	if err != nil {
		return nil, err
	}
	err = e.importer.Import(ctx, in.CatalogID, products)
	switch {
	case errors.Is(err, catalogsync.ErrNotConfigured):
		return reply(in.Phone, "La sincronización de catálogo no está configurada para tu canal."), nil
	case err != nil:
		e.log.Warn("catalog sync failed", zap.String("business_id", business.ID.String()), zap.Error(err))
		return reply(in.Phone, "⚠️ No pude sincronizar el catálogo. Probá de nuevo más tarde."), nil
	}
	return reply(in.Phone, fmt.Sprintf("Catálogo sincronizado: %d producto(s) ✅", len(products))), nil
}

func (e *Engine) cmdAddProduct(ctx context.Context, in Input, business *bizdomain.Business, cmd command.Command) ([]messenger.Outgoing, error) {
	id := e.genID.Generate()
	product := productdomain.Product{
		ID:         id,
		BusinessID: business.ID,
		Name:       cmd.ProductName,
		Price:      cmd.Price,
		Category:   cmd.Category,
		Available:  true,
		RetailerID: retailerID(cmd.ProductName, id),
		CreatedAt:  e.clock.Now(),
		UpdatedAt:  e.clock.Now(),
	}
	if err := e.prodRepo.Insert(ctx, e.db, []productdomain.Product{product}); err != nil {
		return nil, err
	}
	return reply(in.Phone, fmt.Sprintf("Agregado: %s — $%d ✅", product.Name, product.Price)), nil
}

func (e *Engine) startProductPick(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business, step, prompt string) ([]messenger.Outgoing, error) {
	products, err := e.prodRepo.FindAll(ctx, e.db, business.ID)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return reply(in.Phone, "Tu menú está vacío, no hay nada para elegir."), nil
	}

	ids := make([]string, 0, len(products))
	var sb strings.Builder
	sb.WriteString(prompt + "\n")
	for i, p := range products {
		marker := ""
		if !p.Available {
			marker = " (pausado)"
		}
		fmt.Fprintf(&sb, "%d. %s — $%d%s\n", i+1, p.Name, p.Price, marker)
		ids = append(ids, p.ID.String())
	}

	encoded, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	e.setData(state, dataProductIDs, string(encoded))
	if err := e.advance(ctx, state, step); err != nil {
		return nil, err
	}
	return reply(in.Phone, sb.String()), nil
}

// pickProduct resolves a numeric reply against the id list stored when the
// pick started. ok=false means the input did not select anything.
func (e *Engine) pickProduct(ctx context.Context, state *admindomain.State, business *bizdomain.Business, text string) (*productdomain.Product, bool, error) {
	var ids []string
	if err := json.Unmarshal([]byte(e.dataString(state, dataProductIDs)), &ids); err != nil {
		return nil, false, fmt.Errorf("decode product pick list: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > len(ids) {
		return nil, false, nil
	}
	raw, err := strconv.ParseInt(ids[n-1], 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("decode product id: %w", err)
	}
	product, err := e.prodRepo.FindByID(ctx, e.db, business.ID, snowflake.ID(raw))
	if err != nil {
		return nil, false, err
	}
	return product, product != nil, nil
}

func (e *Engine) stepProductPausePick(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business, text string) ([]messenger.Outgoing, error) {
	if isPickCancel(text) {
		return e.abortPick(ctx, in, state)
	}
	product, ok, err := e.pickProduct(ctx, state, business, text)
	if err != nil {
		return nil, err
	}
	if !ok {
		return reply(in.Phone, "Respondé con el número del producto (0 para cancelar)."), nil
	}

	if err := e.prodRepo.SetAvailability(ctx, e.db, business.ID, product.ID, !product.Available); err != nil {
		return nil, err
	}
	e.clearData(state, dataProductIDs)
	if err := e.advance(ctx, state, admindomain.StepCompleted); err != nil {
		return nil, err
	}
	if product.Available {
		return reply(in.Phone, fmt.Sprintf("%s quedó pausado. ⏸️", product.Name)), nil
	}
	return reply(in.Phone, fmt.Sprintf("%s volvió a estar disponible. ▶️", product.Name)), nil
}

func (e *Engine) stepProductDeletePick(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business, text string) ([]messenger.Outgoing, error) {
	if isPickCancel(text) {
		return e.abortPick(ctx, in, state)
	}
	product, ok, err := e.pickProduct(ctx, state, business, text)
	if err != nil {
		return nil, err
	}
	if !ok {
		return reply(in.Phone, "Respondé con el número del producto (0 para cancelar)."), nil
	}

	if err := e.prodRepo.Delete(ctx, e.db, business.ID, product.ID); err != nil {
		return nil, err
	}
	e.clearData(state, dataProductIDs)
	if err := e.advance(ctx, state, admindomain.StepCompleted); err != nil {
		return nil, err
	}
	return reply(in.Phone, fmt.Sprintf("%s fue eliminado del menú. 🗑️", product.Name)), nil
}

func (e *Engine) stepProductEditPick(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business, text string) ([]messenger.Outgoing, error) {
	if isPickCancel(text) {
		return e.abortPick(ctx, in, state)
	}
	product, ok, err := e.pickProduct(ctx, state, business, text)
	if err != nil {
		return nil, err
	}
	if !ok {
		return reply(in.Phone, "Respondé con el número del producto (0 para cancelar)."), nil
	}

	e.clearData(state, dataProductIDs)
	e.setData(state, dataProductID, product.ID.String())
	if err := e.advance(ctx, state, admindomain.StepProductEditValue); err != nil {
		return nil, err
	}
	return reply(in.Phone, fmt.Sprintf("%s cuesta $%d. ¿Cuál es el nuevo precio?", product.Name, product.Price)), nil
}

func (e *Engine) stepProductEditValue(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business, text string) ([]messenger.Outgoing, error) {
	if isPickCancel(text) {
		return e.abortPick(ctx, in, state)
	}

	priceRaw := strings.TrimPrefix(strings.TrimSpace(text), "$")
	priceRaw = strings.ReplaceAll(priceRaw, ".", "")
	priceRaw = strings.ReplaceAll(priceRaw, ",", "")
	price, err := strconv.ParseInt(priceRaw, 10, 64)
	if err != nil || price <= 0 {
		return reply(in.Phone, "Escribime el nuevo precio, por ejemplo: 6500."), nil
	}

	raw, err := strconv.ParseInt(e.dataString(state, dataProductID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode product id: %w", err)
	}
	if err := e.prodRepo.UpdatePrice(ctx, e.db, business.ID, snowflake.ID(raw), price); err != nil {
		return nil, err
	}

	e.clearData(state, dataProductID)
	if err := e.advance(ctx, state, admindomain.StepCompleted); err != nil {
		return nil, err
	}
	return reply(in.Phone, fmt.Sprintf("Precio actualizado a $%d ✅", price)), nil
}

func (e *Engine) abortPick(ctx context.Context, in Input, state *admindomain.State) ([]messenger.Outgoing, error) {
	e.clearData(state, dataProductIDs)
	e.clearData(state, dataProductID)
	if err := e.advance(ctx, state, admindomain.StepCompleted); err != nil {
		return nil, err
	}
	return reply(in.Phone, "Listo, no cambié nada."), nil
}

func isPickCancel(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == "0" || t == "cancelar"
}

func (e *Engine) cmdMyPlan(ctx context.Context, in Input, business *bizdomain.Business) ([]messenger.Outgoing, error) {
	ent, err := e.subs.Current(ctx, business.ID)
	if errors.Is(err, subdomain.ErrNoSubscription) {
		return reply(in.Phone, "No tenés un plan activo. Escribí PLANES para ver las opciones."), nil
	}
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "💳 Plan %s (%s)\n", ent.Plan.Name, ent.Subscription.Status)
	if ent.Expired {
		fmt.Fprintf(&sb, "Tu plan venció el %s. Escribí RENOVAR para reactivarlo.", ent.Subscription.ExpiresAt.Format("02/01/2006"))
		return reply(in.Phone, sb.String()), nil
	}
	fmt.Fprintf(&sb, "• Vence: %s\n", ent.Subscription.ExpiresAt.Format("02/01/2006"))

	quota, err := e.subs.CheckOrderQuota(ctx, business.ID)
	if err == nil {
		if quota.Limit == 0 {
			fmt.Fprintf(&sb, "• Pedidos este mes: %d (sin límite)\n", quota.Current)
		} else {
			fmt.Fprintf(&sb, "• Pedidos este mes: %d de %d\n", quota.Current, quota.Limit)
		}
	}
	sb.WriteString("Escribí PLANES para comparar planes.")
	return reply(in.Phone, sb.String()), nil
}

func (e *Engine) formatPlans() string {
	book := e.plans.Get()
	var sb strings.Builder
	sb.WriteString("Planes disponibles:\n")
	for _, p := range book.Plans {
		fmt.Fprintf(&sb, "\n*%s* — $%d/mes\n", p.Name, p.MonthlyPrice)
		if p.MaxOrdersPerMonth > 0 {
			fmt.Fprintf(&sb, "• Hasta %d pedidos por mes\n", p.MaxOrdersPerMonth)
		} else {
			sb.WriteString("• Pedidos ilimitados\n")
		}
		if p.MaxDeliveryZones > 0 {
			fmt.Fprintf(&sb, "• Hasta %d zonas de delivery\n", p.MaxDeliveryZones)
		}
		if p.AIEnabled {
			sb.WriteString("• Asistente con IA\n")
		}
		if p.Analytics {
			sb.WriteString("• Estadísticas\n")
		}
		if p.PrioritySupport {
			sb.WriteString("• Soporte prioritario\n")
		}
	}
	sb.WriteString("\nEscribí CAMBIAR PLAN <nombre> para cambiar.")
	return sb.String()
}

func (e *Engine) cmdChangePlan(ctx context.Context, in Input, business *bizdomain.Business, slug string) ([]messenger.Outgoing, error) {
	ent, err := e.subs.ChangePlan(ctx, business.ID, slug)
	switch {
	case errors.Is(err, subdomain.ErrUnknownPlan):
		return reply(in.Phone, "No conozco ese plan. Escribí PLANES para ver los disponibles."), nil
	case errors.Is(err, subdomain.ErrNoSubscription):
		return reply(in.Phone, "Todavía no tenés una suscripción. Contactá a soporte."), nil
	case err != nil:
		return nil, err
	}
	return reply(in.Phone, fmt.Sprintf(
		"Listo, ahora estás en el plan %s. Válido hasta el %s ✅",
		ent.Plan.Name, ent.Subscription.ExpiresAt.Format("02/01/2006"),
	)), nil
}

func (e *Engine) cmdRenew(ctx context.Context, in Input, business *bizdomain.Business) ([]messenger.Outgoing, error) {
	sub, err := e.subs.Renew(ctx, business.ID)
	if errors.Is(err, subdomain.ErrNoSubscription) {
		return reply(in.Phone, "No tenés una suscripción para renovar. Escribí PLANES."), nil
	}
	if err != nil {
		return nil, err
	}
	return reply(in.Phone, fmt.Sprintf("Tu plan quedó renovado hasta el %s ✅", sub.ExpiresAt.Format("02/01/2006"))), nil
}

func (e *Engine) cmdAnalytics(ctx context.Context, in Input, business *bizdomain.Business) ([]messenger.Outgoing, error) {
	ok, err := e.subs.HasAnalytics(ctx, business.ID)
	if errors.Is(err, subdomain.ErrNoSubscription) {
		return reply(in.Phone, "Necesitás un plan activo para ver estadísticas. Escribí PLANES."), nil
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return reply(in.Phone, "Tu plan no incluye estadísticas. Mejorá tu plan con PLANES."), nil
	}

	quota, err := e.subs.CheckAnalyticsQuota(ctx, business.ID)
	if errors.Is(err, subdomain.ErrSubscriptionExpired) {
		return reply(in.Phone, "Tu plan está vencido. Escribí RENOVAR para reactivarlo."), nil
	}
	if err != nil {
		return nil, err
	}
	if !quota.Allowed {
		return reply(in.Phone, fmt.Sprintf("Llegaste al límite de %d consultas de estadísticas de tu plan este mes.", quota.Limit)), nil
	}
	if err := e.subs.RecordAnalytics(ctx, business.ID); err != nil {
		return nil, err
	}

	since := e.clock.Now().AddDate(0, 0, -30)
	summary, err := e.orders.Sales(ctx, business.ID, since)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("📈 Últimos 30 días:\n")
	fmt.Fprintf(&sb, "• Pedidos: %d\n", summary.Total)
	fmt.Fprintf(&sb, "• Entregados: %d | Cancelados: %d\n", summary.Delivered, summary.Cancelled)
	fmt.Fprintf(&sb, "• Facturado: $%d\n", summary.TotalRevenue)
	if summary.Total > 0 {
		fmt.Fprintf(&sb, "• Ticket promedio: $%d", summary.TotalRevenue/int64(summary.Total))
	}
	return reply(in.Phone, sb.String()), nil
}

func statusNotice(order orderdomain.Order) string {
	switch order.OrderStatus {
	case orderdomain.StatusPreparing:
		return fmt.Sprintf("👨‍🍳 Tu pedido #%d está en preparación.", order.OrderNumber)
	case orderdomain.StatusEnRoute:
		return fmt.Sprintf("🛵 Tu pedido #%d está en camino.", order.OrderNumber)
	case orderdomain.StatusDelivered:
		return fmt.Sprintf("✅ Tu pedido #%d fue entregado. ¡Gracias por tu compra!", order.OrderNumber)
	default:
		return ""
	}
}

func formatOrder(order orderdomain.Order) string {
	var items []orderdomain.Item
	_ = json.Unmarshal(order.Items, &items)

	var sb strings.Builder
	fmt.Fprintf(&sb, "🧾 Pedido #%d\n", order.OrderNumber)
	fmt.Fprintf(&sb, "Cliente: %s", order.ClientPhone)
	if order.ClientName != "" {
		fmt.Fprintf(&sb, " (%s)", order.ClientName)
	}
	sb.WriteString("\n")
	for _, item := range items {
		fmt.Fprintf(&sb, "• %dx %s — $%d\n", item.Qty, item.Name, item.LineTotal)
	}
	if order.DeliveryPrice > 0 {
		fmt.Fprintf(&sb, "Envío: $%d\n", order.DeliveryPrice)
	}
	fmt.Fprintf(&sb, "Total: $%d\n", order.GrandTotal)
	fmt.Fprintf(&sb, "Pago: %s (%s)\n", order.PaymentMethod, order.PaymentStatus)
	if order.DepositAmount > 0 {
		fmt.Fprintf(&sb, "Seña: $%d\n", order.DepositAmount)
	}
	fmt.Fprintf(&sb, "Estado: %s", order.OrderStatus)
	if order.ClientAddress != "" {
		fmt.Fprintf(&sb, "\nDirección: %s", order.ClientAddress)
	}
	return sb.String()
}

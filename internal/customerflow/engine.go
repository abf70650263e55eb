// Package customerflow runs the ordering conversation for one tenant's end
// customers.
package customerflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	bizdomain "github.com/smallbiznis/ordena/internal/business/domain"
	"github.com/smallbiznis/ordena/internal/clock"
	"github.com/smallbiznis/ordena/internal/command"
	"github.com/smallbiznis/ordena/internal/config"
	custdomain "github.com/smallbiznis/ordena/internal/customer/domain"
	"github.com/smallbiznis/ordena/internal/extraction"
	"github.com/smallbiznis/ordena/internal/messenger"
	orderdomain "github.com/smallbiznis/ordena/internal/order/domain"
	productdomain "github.com/smallbiznis/ordena/internal/product/domain"
	subdomain "github.com/smallbiznis/ordena/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CartEvent is one line of a native-cart order from the channel's catalog UI,
// matched by retailer id instead of free text.
type CartEvent struct {
	RetailerID string
	Qty        int
}

// Input is one inbound customer message, already resolved to a business.
// CatalogID is the channel's product catalog, when one is bound; the flow
// offers the native catalog UI only when it is set.
type Input struct {
	Phone     string
	Text      string
	CartItems []CartEvent
	CatalogID string
}

type Engine struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	loc      *time.Location
	repo     custdomain.Repository
	bizRepo  bizdomain.Repository
	prodRepo productdomain.Repository
	orders   orderdomain.Service
	subs     subdomain.Service
	extract  extraction.Service
}

type EngineParam struct {
	fx.In

	Config   config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     custdomain.Repository
	BizRepo  bizdomain.Repository
	ProdRepo productdomain.Repository
	Orders   orderdomain.Service
	Subs     subdomain.Service
	Extract  extraction.Service
}

func New(p EngineParam) *Engine {
	loc, err := time.LoadLocation(p.Config.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return &Engine{
		db:       p.DB,
		log:      p.Log.Named("customerflow"),
		genID:    p.GenID,
		clock:    p.Clock,
		loc:      loc,
		repo:     p.Repo,
		bizRepo:  p.BizRepo,
		prodRepo: p.ProdRepo,
		orders:   p.Orders,
		subs:     p.Subs,
		extract:  p.Extract,
	}
}

// Handle processes one customer message for one business. State is re-read
// from the store per event.
func (e *Engine) Handle(ctx context.Context, in Input, business *bizdomain.Business) ([]messenger.Outgoing, error) {
	text := strings.TrimSpace(in.Text)

	// Post-order self-service commands work from any state, including no
	// state at all.
	if cmd, ok := command.ParseCustomer(text); ok {
		switch cmd.Kind {
		case command.KindOrderQuery:
			return e.orderStatus(ctx, in, business, cmd.OrderNumber)
		case command.KindCancelOrder:
			return e.cancelOrder(ctx, in, business, cmd.OrderNumber)
		case command.KindCancel:
			return e.cancelFlow(ctx, in, business)
		}
	}

	state, err := e.repo.Find(ctx, e.db, business.ID, in.Phone)
	if err != nil {
		return nil, fmt.Errorf("load customer state: %w", err)
	}
	if state == nil {
		return e.startFlow(ctx, in, business)
	}

	switch state.CurrentStep {
	case custdomain.StepBuildingCart:
		return e.stepBuildingCart(ctx, in, business, state, text)
	case custdomain.StepDeliveryMethod:
		return e.stepDeliveryMethod(ctx, in, business, state, text)
	case custdomain.StepDeliveryZone:
		return e.stepDeliveryZone(ctx, in, business, state, text)
	case custdomain.StepDeliveryAddress:
		return e.stepDeliveryAddress(ctx, in, business, state, text)
	case custdomain.StepPaymentMethod:
		return e.stepPaymentMethod(ctx, in, business, state, text)
	case custdomain.StepAwaitingTransfer:
		return e.stepAwaitingTransfer(ctx, in, business, state, text)
	default:
		e.log.Error("customer state in unknown step",
			zap.String("phone", in.Phone),
			zap.String("business_id", business.ID.String()),
			zap.String("step", state.CurrentStep),
		)
		return reply(in.Phone, "Algo salió mal con tu pedido. Escribí CANCELAR y empezá de nuevo."), nil
	}
}

// startFlow begins a fresh conversation. Outside the declared business hours
// the flow refuses to start and explains them instead.
func (e *Engine) startFlow(ctx context.Context, in Input, business *bizdomain.Business) ([]messenger.Outgoing, error) {
	now := e.clock.Now().In(e.loc)
	if business.Hours != "" && !withinHours(business.Hours, now) {
		return reply(in.Phone, fmt.Sprintf(
			"¡Hola! %s está cerrado en este momento. 🕐\nNuestros horarios: %s",
			business.Name, business.Hours,
		)), nil
	}

	state := &custdomain.State{
		ID:          e.genID.Generate(),
		Phone:       in.Phone,
		BusinessID:  business.ID,
		CurrentStep: custdomain.StepBuildingCart,
		UpdatedAt:   e.clock.Now(),
	}
	if err := e.repo.Save(ctx, e.db, state); err != nil {
		return nil, err
	}

	if len(in.CartItems) > 0 {
		return e.stepBuildingCart(ctx, in, business, state, strings.TrimSpace(in.Text))
	}

	menu, err := e.menuText(ctx, business)
	if err != nil {
		return nil, err
	}
	out := reply(in.Phone,
		fmt.Sprintf("¡Hola! Bienvenido a %s 👋", business.Name),
		menu+"\n\nDecime qué querés pedir, por ejemplo: \"2 muzzarella y 1 coca\".",
	)
	if in.CatalogID != "" {
		out = append(out, messenger.Catalog(in.Phone,
			"También podés armar tu pedido desde nuestro catálogo. 🛍️"))
	}
	return out, nil
}

func (e *Engine) menuText(ctx context.Context, business *bizdomain.Business) (string, error) {
	products, err := e.prodRepo.FindAvailable(ctx, e.db, business.ID)
	if err != nil {
		return "", err
	}
	if len(products) == 0 {
		return "El menú todavía no está cargado.", nil
	}

	var sb strings.Builder
	sb.WriteString("📋 Menú:\n")
	for _, p := range products {
		fmt.Fprintf(&sb, "• %s — $%d\n", p.Name, p.Price)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (e *Engine) stepBuildingCart(ctx context.Context, in Input, business *bizdomain.Business, state *custdomain.State, text string) ([]messenger.Outgoing, error) {
	cart, err := decodeCart(state)
	if err != nil {
		return nil, err
	}

	if len(in.CartItems) > 0 {
		added, err := e.mergeNativeCart(ctx, business, &cart, in.CartItems)
		if err != nil {
			return nil, err
		}
		if added == 0 {
			return reply(in.Phone, "No pude reconocer los productos de tu carrito. Probá pedirlos por texto."), nil
		}
		if err := e.saveCart(ctx, state, cart); err != nil {
			return nil, err
		}
		return reply(in.Phone, cartSummary(cart)+"\n¿Algo más? Si está completo escribí CONFIRMAR."), nil
	}

	if isCartDone(text) {
		if len(cart) == 0 {
			return reply(in.Phone, "Tu carrito está vacío. Decime qué querés pedir."), nil
		}
		return e.routeAfterCart(ctx, in, business, state)
	}

	if strings.EqualFold(text, "menu") || strings.EqualFold(text, "menú") || strings.EqualFold(text, "ver menu") {
		menu, err := e.menuText(ctx, business)
		if err != nil {
			return nil, err
		}
		return reply(in.Phone, menu), nil
	}

	catalog, err := e.availableCatalog(ctx, business)
	if err != nil {
		return nil, err
	}
	if len(catalog) == 0 {
		return reply(in.Phone, "El menú todavía no está cargado. Probá más tarde."), nil
	}

	extracted, err := e.extract.ExtractOrderItems(ctx, text, catalog)
	if err != nil {
		return reply(in.Phone, "No entendí tu pedido. Decime qué querés, por ejemplo: \"2 muzzarella y 1 coca\"."), nil
	}
	if len(extracted.Items) == 0 && len(extracted.NotFound) == 0 {
		return reply(in.Phone, "No entendí tu pedido. Decime qué querés, por ejemplo: \"2 muzzarella y 1 coca\"."), nil
	}

	prices := make(map[string]int64, len(catalog))
	for _, c := range catalog {
		prices[c.ID] = c.Price
	}
	for _, item := range extracted.Items {
		mergeCartLine(&cart, custdomain.CartItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: prices[item.ProductID],
			Qty:       item.Qty,
		})
	}
	if err := e.saveCart(ctx, state, cart); err != nil {
		return nil, err
	}

	var sb strings.Builder
	if len(extracted.NotFound) > 0 {
		fmt.Fprintf(&sb, "No encontré en el menú: %s\n\n", strings.Join(extracted.NotFound, ", "))
	}
	if len(cart) == 0 {
		sb.WriteString("Decime qué querés pedir del menú.")
		return reply(in.Phone, sb.String()), nil
	}
	sb.WriteString(cartSummary(cart))
	sb.WriteString("\n¿Algo más? Si está completo escribí CONFIRMAR.")
	return reply(in.Phone, sb.String()), nil
}

func (e *Engine) availableCatalog(ctx context.Context, business *bizdomain.Business) ([]extraction.CatalogItem, error) {
	products, err := e.prodRepo.FindAvailable(ctx, e.db, business.ID)
	if err != nil {
		return nil, err
	}
	catalog := make([]extraction.CatalogItem, 0, len(products))
	for _, p := range products {
		catalog = append(catalog, extraction.CatalogItem{
			ID:       p.ID.String(),
			Name:     p.Name,
			Price:    p.Price,
			Category: p.Category,
		})
	}
	return catalog, nil
}

func (e *Engine) mergeNativeCart(ctx context.Context, business *bizdomain.Business, cart *[]custdomain.CartItem, events []CartEvent) (int, error) {
	added := 0
	for _, ev := range events {
		product, err := e.prodRepo.FindByRetailerID(ctx, e.db, business.ID, ev.RetailerID)
		if err != nil {
			return added, err
		}
		if product == nil || !product.Available {
			continue
		}
		qty := ev.Qty
		if qty <= 0 {
			qty = 1
		}
		mergeCartLine(cart, custdomain.CartItem{
			ProductID: product.ID.String(),
			Name:      product.Name,
			UnitPrice: product.Price,
			Qty:       qty,
		})
		added++
	}
	return added, nil
}

func (e *Engine) routeAfterCart(ctx context.Context, in Input, business *bizdomain.Business, state *custdomain.State) ([]messenger.Outgoing, error) {
	switch {
	case business.HasDelivery && business.HasPickup:
		state.CurrentStep = custdomain.StepDeliveryMethod
		if err := e.save(ctx, state); err != nil {
			return nil, err
		}
		return []messenger.Outgoing{messenger.WithButtons(in.Phone, "¿Cómo lo querés recibir?",
			messenger.Button{ID: "1", Title: "Delivery"},
			messenger.Button{ID: "2", Title: "Retiro en el local"},
		)}, nil
	case business.HasDelivery:
		state.DeliveryMode = custdomain.DeliveryModeDelivery
		return e.askZone(ctx, in, business, state)
	default:
		state.DeliveryMode = custdomain.DeliveryModePickup
		return e.askPayment(ctx, in, business, state)
	}
}

func (e *Engine) stepDeliveryMethod(ctx context.Context, in Input, business *bizdomain.Business, state *custdomain.State, text string) ([]messenger.Outgoing, error) {
	switch strings.ToLower(text) {
	case "1", "delivery":
		state.DeliveryMode = custdomain.DeliveryModeDelivery
		return e.askZone(ctx, in, business, state)
	case "2", "retiro":
		state.DeliveryMode = custdomain.DeliveryModePickup
		return e.askPayment(ctx, in, business, state)
	default:
		return reply(in.Phone, "Respondé 1 (Delivery) o 2 (Retiro)."), nil
	}
}

func (e *Engine) askZone(ctx context.Context, in Input, business *bizdomain.Business, state *custdomain.State) ([]messenger.Outgoing, error) {
	zones, err := e.bizRepo.ZonesByBusiness(ctx, e.db, business.ID)
	if err != nil {
		return nil, err
	}
	if len(zones) == 0 {
		// No zones configured: free delivery, straight to the address.
		state.CurrentStep = custdomain.StepDeliveryAddress
		if err := e.save(ctx, state); err != nil {
			return nil, err
		}
		return reply(in.Phone, "¿A qué dirección lo llevamos?"), nil
	}

	state.CurrentStep = custdomain.StepDeliveryZone
	if err := e.save(ctx, state); err != nil {
		return nil, err
	}

	// The channel caps interactive lists at ten rows; longer zone sets fall
	// back to a numbered text menu. Replies are the row number either way.
	if len(zones) > messenger.MaxListRows {
		var sb strings.Builder
		sb.WriteString("¿En qué zona estás?\n")
		for i, z := range zones {
			fmt.Fprintf(&sb, "%d. %s — envío $%d\n", i+1, z.Name, z.Price)
		}
		return reply(in.Phone, sb.String()), nil
	}

	rows := make([]messenger.Row, 0, len(zones))
	for i, z := range zones {
		rows = append(rows, messenger.Row{
			ID:          strconv.Itoa(i + 1),
			Title:       z.Name,
			Description: fmt.Sprintf("Envío $%d", z.Price),
		})
	}
	return []messenger.Outgoing{messenger.WithList(in.Phone, "¿En qué zona estás?", "Elegir zona",
		messenger.Section{Title: "Zonas de entrega", Rows: rows},
	)}, nil
}

func (e *Engine) stepDeliveryZone(ctx context.Context, in Input, business *bizdomain.Business, state *custdomain.State, text string) ([]messenger.Outgoing, error) {
	zones, err := e.bizRepo.ZonesByBusiness(ctx, e.db, business.ID)
	if err != nil {
		return nil, err
	}
	n, convErr := strconv.Atoi(text)
	if convErr != nil || n < 1 || n > len(zones) {
		return reply(in.Phone, "Respondé con el número de tu zona."), nil
	}

	zone := zones[n-1]
	state.DeliveryZoneID = &zone.ID
	state.DeliveryPrice = zone.Price
	state.CurrentStep = custdomain.StepDeliveryAddress
	if err := e.save(ctx, state); err != nil {
		return nil, err
	}
	return reply(in.Phone, "¿A qué dirección lo llevamos?"), nil
}

func (e *Engine) stepDeliveryAddress(ctx context.Context, in Input, business *bizdomain.Business, state *custdomain.State, text string) ([]messenger.Outgoing, error) {
	if text == "" {
		return reply(in.Phone, "Escribime la dirección de entrega."), nil
	}
	state.DeliveryAddress = text
	return e.askPayment(ctx, in, business, state)
}

// paymentOptions derives the selectable methods from the business flags, in a
// fixed order so numeric replies stay stable across the two messages.
func paymentOptions(business *bizdomain.Business) []string {
	var opts []string
	if business.AcceptsCash {
		opts = append(opts, orderdomain.PayCash)
	}
	if business.AcceptsTransfer && !business.AcceptsDeposit {
		opts = append(opts, orderdomain.PayTransfer)
	}
	if business.AcceptsDeposit {
		opts = append(opts, orderdomain.PayDeposit)
	}
	return opts
}

func paymentLabel(method string, business *bizdomain.Business) string {
	switch method {
	case orderdomain.PayCash:
		return "Efectivo"
	case orderdomain.PayTransfer:
		return "Transferencia"
	case orderdomain.PayDeposit:
		return fmt.Sprintf("Transferencia con seña del %d%%", business.DepositPercent)
	}
	return method
}

// paymentButtonTitle is the short form of paymentLabel; button titles are
// capped at twenty characters by the channel.
func paymentButtonTitle(method string, business *bizdomain.Business) string {
	if method == orderdomain.PayDeposit {
		return fmt.Sprintf("Seña %d%%", business.DepositPercent)
	}
	return paymentLabel(method, business)
}

func (e *Engine) askPayment(ctx context.Context, in Input, business *bizdomain.Business, state *custdomain.State) ([]messenger.Outgoing, error) {
	opts := paymentOptions(business)
	cart, err := decodeCart(state)
	if err != nil {
		return nil, err
	}

	if len(opts) == 0 {
		// Nothing configured; fall back to cash on delivery.
		state.PaymentMethod = orderdomain.PayCash
		return e.confirmOrder(ctx, in, business, state, cart)
	}
	if len(opts) == 1 {
		state.PaymentMethod = opts[0]
		if opts[0] == orderdomain.PayCash {
			return e.confirmOrder(ctx, in, business, state, cart)
		}
		return e.askTransfer(ctx, in, business, state, cart)
	}

	state.CurrentStep = custdomain.StepPaymentMethod
	if err := e.save(ctx, state); err != nil {
		return nil, err
	}

	buttons := make([]messenger.Button, 0, len(opts))
	for i, opt := range opts {
		buttons = append(buttons, messenger.Button{
			ID:    strconv.Itoa(i + 1),
			Title: paymentButtonTitle(opt, business),
		})
	}
	return []messenger.Outgoing{messenger.WithButtons(in.Phone,
		orderSummary(cart, state)+"\n¿Cómo querés pagar?", buttons...)}, nil
}

func (e *Engine) stepPaymentMethod(ctx context.Context, in Input, business *bizdomain.Business, state *custdomain.State, text string) ([]messenger.Outgoing, error) {
	opts := paymentOptions(business)
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > len(opts) {
		return reply(in.Phone, "Respondé con el número de la opción de pago."), nil
	}

	cart, err := decodeCart(state)
	if err != nil {
		return nil, err
	}

	state.PaymentMethod = opts[n-1]
	if state.PaymentMethod == orderdomain.PayCash {
		return e.confirmOrder(ctx, in, business, state, cart)
	}
	return e.askTransfer(ctx, in, business, state, cart)
}

// askTransfer shows the payout data and the amount to transfer, then waits
// for the customer to report the transfer.
func (e *Engine) askTransfer(ctx context.Context, in Input, business *bizdomain.Business, state *custdomain.State, cart []custdomain.CartItem) ([]messenger.Outgoing, error) {
	state.CurrentStep = custdomain.StepAwaitingTransfer
	if err := e.save(ctx, state); err != nil {
		return nil, err
	}

	total := cartTotal(cart) + state.DeliveryPrice
	amount := total
	if state.PaymentMethod == orderdomain.PayDeposit {
		amount = depositAmount(total, business.DepositPercent)
	}

	var sb strings.Builder
	sb.WriteString(orderSummary(cart, state))
	if state.PaymentMethod == orderdomain.PayDeposit {
		fmt.Fprintf(&sb, "\nSeña a transferir: $%d (el resto al recibir el pedido)\n", amount)
	} else {
		fmt.Fprintf(&sb, "\nTotal a transferir: $%d\n", amount)
	}

	bank, err := e.bizRepo.BankDetails(ctx, e.db, business.ID)
	if err != nil {
		return nil, err
	}
	if bank != nil {
		fmt.Fprintf(&sb, "Datos para la transferencia:\n• Alias: %s\n• CBU/CVU: %s\n• Titular: %s\n", bank.Alias, bank.CBU, bank.AccountHolder)
	}
	sb.WriteString("Cuando transfieras avisame con \"LISTO\".")
	return reply(in.Phone, sb.String()), nil
}

func (e *Engine) stepAwaitingTransfer(ctx context.Context, in Input, business *bizdomain.Business, state *custdomain.State, text string) ([]messenger.Outgoing, error) {
	if !transferReported(text) {
		return reply(in.Phone, "Cuando hagas la transferencia escribí \"LISTO\" y confirmo tu pedido. Para cancelar escribí CANCELAR."), nil
	}
	cart, err := decodeCart(state)
	if err != nil {
		return nil, err
	}
	return e.confirmOrder(ctx, in, business, state, cart)
}

// confirmOrder is the single state-changing side effect of the flow: it
// creates the immutable order, notifies the admin, and deletes the
// conversation state so it cannot run twice for the same cart.
func (e *Engine) confirmOrder(ctx context.Context, in Input, business *bizdomain.Business, state *custdomain.State, cart []custdomain.CartItem) ([]messenger.Outgoing, error) {
	if len(cart) == 0 {
		return reply(in.Phone, "Tu carrito está vacío. Decime qué querés pedir."), nil
	}

	quota, err := e.subs.CheckOrderQuota(ctx, business.ID)
	if err != nil && !errors.Is(err, subdomain.ErrNoSubscription) {
		if errors.Is(err, subdomain.ErrSubscriptionExpired) {
			return e.refuseOrder(ctx, in, business, state, "el plan del negocio está vencido")
		}
		return nil, err
	}
	if err == nil && !quota.Allowed {
		return e.refuseOrder(ctx, in, business, state,
			fmt.Sprintf("el negocio llegó a su límite de %d pedidos mensuales", quota.Limit))
	}

	items := make([]orderdomain.Item, 0, len(cart))
	for _, line := range cart {
		items = append(items, orderdomain.Item{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Qty:       line.Qty,
		})
	}

	total := cartTotal(cart) + state.DeliveryPrice
	var deposit int64
	if state.PaymentMethod == orderdomain.PayDeposit {
		deposit = depositAmount(total, business.DepositPercent)
	}

	order, err := e.orders.Create(ctx, orderdomain.CreateOrderRequest{
		BusinessID:     business.ID,
		ClientPhone:    in.Phone,
		ClientName:     state.Name,
		ClientAddress:  state.DeliveryAddress,
		Items:          items,
		DeliveryZoneID: state.DeliveryZoneID,
		DeliveryPrice:  state.DeliveryPrice,
		PaymentMethod:  state.PaymentMethod,
		DepositAmount:  deposit,
	})
	if err != nil {
		return nil, err
	}
	if err := e.subs.RecordOrder(ctx, business.ID); err != nil {
		e.log.Warn("order usage increment failed",
			zap.String("business_id", business.ID.String()), zap.Error(err))
	}
	if err := e.repo.Delete(ctx, e.db, business.ID, in.Phone); err != nil {
		return nil, err
	}

	confirmation := fmt.Sprintf(
		"¡Pedido confirmado! 🎉 Tu número es #%d.\nTotal: $%d\nConsultá el estado con ESTADO #%d.",
		order.OrderNumber, order.GrandTotal, order.OrderNumber,
	)
	adminNotice := fmt.Sprintf(
		"🔔 Nuevo pedido #%d de %s\n%s\nTotal: $%d (%s)\nRespondé VER PEDIDO #%d para el detalle.",
		order.OrderNumber, in.Phone, cartSummaryLines(cart), order.GrandTotal,
		paymentLabel(order.PaymentMethod, business), order.OrderNumber,
	)
	return []messenger.Outgoing{
		messenger.Text(in.Phone, confirmation),
		messenger.Text(business.AdminPhone, adminNotice),
	}, nil
}

func (e *Engine) refuseOrder(ctx context.Context, in Input, business *bizdomain.Business, state *custdomain.State, reason string) ([]messenger.Outgoing, error) {
	if err := e.repo.Delete(ctx, e.db, business.ID, in.Phone); err != nil {
		return nil, err
	}
	return []messenger.Outgoing{
		messenger.Text(in.Phone, "Lo sentimos, no podemos tomar tu pedido en este momento. 🙏"),
		messenger.Text(business.AdminPhone, "⚠️ Se rechazó un pedido porque "+reason+". Escribí PLANES para ampliar tu plan."),
	}, nil
}

func (e *Engine) cancelFlow(ctx context.Context, in Input, business *bizdomain.Business) ([]messenger.Outgoing, error) {
	if err := e.repo.Delete(ctx, e.db, business.ID, in.Phone); err != nil {
		return nil, err
	}
	return reply(in.Phone, "Listo, cancelé tu pedido. Cuando quieras empezamos de nuevo. 👋"), nil
}

func (e *Engine) orderStatus(ctx context.Context, in Input, business *bizdomain.Business, number int) ([]messenger.Outgoing, error) {
	order, err := e.orders.GetForClient(ctx, business.ID, in.Phone, number)
	if errors.Is(err, orderdomain.ErrOrderNotFound) {
		return reply(in.Phone, fmt.Sprintf("No encontré un pedido #%d tuyo.", number)), nil
	}
	if err != nil {
		return nil, err
	}
	return reply(in.Phone, fmt.Sprintf("Tu pedido #%d está %s. Pago: %s.",
		order.OrderNumber, statusLabel(order.OrderStatus), paymentStatusLabel(order.PaymentStatus))), nil
}

func (e *Engine) cancelOrder(ctx context.Context, in Input, business *bizdomain.Business, number int) ([]messenger.Outgoing, error) {
	order, err := e.orders.CancelForClient(ctx, business.ID, in.Phone, number)
	switch {
	case errors.Is(err, orderdomain.ErrOrderNotFound):
		return reply(in.Phone, fmt.Sprintf("No encontré un pedido #%d tuyo.", number)), nil
	case errors.Is(err, orderdomain.ErrCancelNotAllowed):
		return reply(in.Phone, fmt.Sprintf("Tu pedido #%d ya está %s y no se puede cancelar. Contactá al negocio.",
			number, statusLabel(order.OrderStatus))), nil
	case err != nil:
		return nil, err
	}
	return []messenger.Outgoing{
		messenger.Text(in.Phone, fmt.Sprintf("Tu pedido #%d fue cancelado. 👋", number)),
		messenger.Text(business.AdminPhone, fmt.Sprintf("El cliente %s canceló el pedido #%d.", in.Phone, number)),
	}, nil
}

func (e *Engine) save(ctx context.Context, state *custdomain.State) error {
	state.UpdatedAt = e.clock.Now()
	return e.repo.Save(ctx, e.db, state)
}

func (e *Engine) saveCart(ctx context.Context, state *custdomain.State, cart []custdomain.CartItem) error {
	encoded, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	state.Cart = datatypes.JSON(encoded)
	return e.save(ctx, state)
}

func decodeCart(state *custdomain.State) ([]custdomain.CartItem, error) {
	if len(state.Cart) == 0 {
		return nil, nil
	}
	var cart []custdomain.CartItem
	if err := json.Unmarshal(state.Cart, &cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return cart, nil
}

func mergeCartLine(cart *[]custdomain.CartItem, line custdomain.CartItem) {
	for i := range *cart {
		if (*cart)[i].ProductID == line.ProductID {
			(*cart)[i].Qty += line.Qty
			return
		}
	}
	*cart = append(*cart, line)
}

func cartTotal(cart []custdomain.CartItem) int64 {
	var total int64
	for _, line := range cart {
		total += line.UnitPrice * int64(line.Qty)
	}
	return total
}

func cartSummaryLines(cart []custdomain.CartItem) string {
	var sb strings.Builder
	for _, line := range cart {
		fmt.Fprintf(&sb, "• %dx %s — $%d\n", line.Qty, line.Name, line.UnitPrice*int64(line.Qty))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func cartSummary(cart []custdomain.CartItem) string {
	return fmt.Sprintf("🛒 Tu pedido:\n%s\nSubtotal: $%d", cartSummaryLines(cart), cartTotal(cart))
}

func orderSummary(cart []custdomain.CartItem, state *custdomain.State) string {
	var sb strings.Builder
	sb.WriteString(cartSummary(cart))
	if state.DeliveryPrice > 0 {
		fmt.Fprintf(&sb, "\nEnvío: $%d", state.DeliveryPrice)
	}
	fmt.Fprintf(&sb, "\nTotal: $%d", cartTotal(cart)+state.DeliveryPrice)
	return sb.String()
}

// depositAmount rounds up so the business never receives less than the
// configured percentage.
func depositAmount(total int64, percent int) int64 {
	return (total*int64(percent) + 99) / 100
}

func isCartDone(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "confirmar", "listo", "eso", "nada mas", "nada más", "no":
		return true
	}
	return false
}

func transferReported(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, token := range []string{"listo", "ya", "transfer", "envie", "envié", "hice", "pague", "pagué"} {
		if strings.Contains(t, token) {
			return true
		}
	}
	return false
}

func statusLabel(status orderdomain.OrderStatus) string {
	switch status {
	case orderdomain.StatusNew:
		return "pendiente de confirmación"
	case orderdomain.StatusPreparing:
		return "en preparación"
	case orderdomain.StatusEnRoute:
		return "en camino"
	case orderdomain.StatusDelivered:
		return "entregado"
	case orderdomain.StatusCancelled:
		return "cancelado"
	}
	return string(status)
}

func paymentStatusLabel(status orderdomain.PaymentStatus) string {
	if status == orderdomain.PaymentConfirmed {
		return "confirmado"
	}
	return "pendiente"
}

func reply(to string, bodies ...string) []messenger.Outgoing {
	out := make([]messenger.Outgoing, 0, len(bodies))
	for _, b := range bodies {
		out = append(out, messenger.Text(to, b))
	}
	return out
}

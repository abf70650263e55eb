package adminflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	admindomain "github.com/smallbiznis/ordena/internal/admin/domain"
	bizdomain "github.com/smallbiznis/ordena/internal/business/domain"
	"github.com/smallbiznis/ordena/internal/catalogsync"
	"github.com/smallbiznis/ordena/internal/extraction"
	"github.com/smallbiznis/ordena/internal/messenger"
	productdomain "github.com/smallbiznis/ordena/internal/product/domain"
	subdomain "github.com/smallbiznis/ordena/internal/subscription/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	dataEditMode     = "edit"
	dataPendingHours = "pending_hours"
	dataPendingZones = "pending_zones"
	dataPendingBank  = "pending_bank"
	dataProductIDs   = "product_ids"
	dataProductID    = "product_id"
)

func (e *Engine) handleStep(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business) ([]messenger.Outgoing, error) {
	text := strings.TrimSpace(in.Text)

	switch state.CurrentStep {
	case admindomain.StepBusinessName:
		return e.stepBusinessName(ctx, in, state, business, text)
	case admindomain.StepBusinessHours:
		return e.stepBusinessHours(ctx, in, state, text)
	case admindomain.StepBusinessHoursConfirm:
		return e.stepBusinessHoursConfirm(ctx, in, state, business, text)
	case admindomain.StepDeliveryMethod:
		return e.stepDeliveryMethod(ctx, in, state, business, text)
	case admindomain.StepPickupAddress:
		return e.stepPickupAddress(ctx, in, state, business, text)
	case admindomain.StepPaymentMethods:
		return e.stepPaymentMethods(ctx, in, state, business, text)
	case admindomain.StepDepositPercent:
		return e.stepDepositPercent(ctx, in, state, business, text)
	case admindomain.StepDeliveryZones:
		return e.stepDeliveryZones(ctx, in, state, business, text)
	case admindomain.StepDeliveryZonesConfirm:
		return e.stepDeliveryZonesConfirm(ctx, in, state, business, text)
	case admindomain.StepBankData:
		return e.stepBankData(ctx, in, state, text)
	case admindomain.StepBankDataConfirm:
		return e.stepBankDataConfirm(ctx, in, state, business, text)
	case admindomain.StepProducts:
		return e.stepProducts(ctx, in, state, business, text)
	case admindomain.StepReview:
		return e.stepReview(ctx, in, state, business, text)
	case admindomain.StepEditMenu:
		return e.stepEditMenu(ctx, in, state, text)
	case admindomain.StepEditName:
		return e.stepEditName(ctx, in, state, business, text)
	case admindomain.StepEditAddress:
		return e.stepEditAddress(ctx, in, state, business, text)
	case admindomain.StepProductPausePick:
		return e.stepProductPausePick(ctx, in, state, business, text)
	case admindomain.StepProductEditPick:
		return e.stepProductEditPick(ctx, in, state, business, text)
	case admindomain.StepProductEditValue:
		return e.stepProductEditValue(ctx, in, state, business, text)
	case admindomain.StepProductDeletePick:
		return e.stepProductDeletePick(ctx, in, state, business, text)
	default:
		e.log.Error("admin state in unknown step",
			zap.String("phone", in.Phone),
			zap.String("step", state.CurrentStep),
		)
		return reply(in.Phone, "Algo salió mal con tu configuración. Escribí AYUDA."), nil
	}
}

func (e *Engine) stepBusinessName(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business, text string) ([]messenger.Outgoing, error) {
	if text == "" {
		return reply(in.Phone, "¿Cómo se llama tu negocio?"), nil
	}
	if err := e.bizRepo.Update(ctx, e.db, business.ID, map[string]interface{}{"name": text}); err != nil {
		return nil, err
	}
	if e.isEdit(state) {
		return e.finishEdit(ctx, in, state, "Nombre actualizado ✅")
	}
	if err := e.advance(ctx, state, admindomain.StepBusinessHours); err != nil {
		return nil, err
	}
	return reply(in.Phone,
		fmt.Sprintf("¡Perfecto, %s! 🎉", text),
		"¿Cuáles son tus horarios de atención? Por ejemplo: \"lunes a viernes de 11 a 23\".",
	), nil
}

func (e *Engine) stepBusinessHours(ctx context.Context, in Input, state *admindomain.State, text string) ([]messenger.Outgoing, error) {
	hours, err := e.extract.ExtractHours(ctx, text)
	if err != nil {
		return reply(in.Phone, "No entendí los horarios. Probá de nuevo, por ejemplo: \"lunes a sábado de 10 a 22\"."), nil
	}
	e.setData(state, dataPendingHours, hours)
	if err := e.advance(ctx, state, admindomain.StepBusinessHoursConfirm); err != nil {
		return nil, err
	}
	return reply(in.Phone, fmt.Sprintf("Entendí: %s\n¿Es correcto? (si/no)", hours)), nil
}

func (e *Engine) stepBusinessHoursConfirm(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business, text string) ([]messenger.Outgoing, error) {
	switch {
	case isYes(text):
		hours := e.dataString(state, dataPendingHours)
		if err := e.bizRepo.Update(ctx, e.db, business.ID, map[string]interface{}{"hours": hours}); err != nil {
			return nil, err
		}
		e.clearData(state, dataPendingHours)
		if e.isEdit(state) {
			return e.finishEdit(ctx, in, state, "Horarios actualizados ✅")
		}
		if err := e.advance(ctx, state, admindomain.StepDeliveryMethod); err != nil {
			return nil, err
		}
		return reply(in.Phone, "¿Cómo entregás los pedidos?\n1. Delivery\n2. Retiro en el local\n3. Ambos"), nil
	case isNo(text):
		e.clearData(state, dataPendingHours)
		if err := e.advance(ctx, state, admindomain.StepBusinessHours); err != nil {
			return nil, err
		}
		return reply(in.Phone, "Ok, escribime los horarios de nuevo."), nil
	default:
		return reply(in.Phone, "Respondé \"si\" o \"no\" por favor."), nil
	}
}

func (e *Engine) stepDeliveryMethod(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business, text string) ([]messenger.Outgoing, error) {
	var delivery, pickup bool
	switch normalizeOption(text) {
	case "1", "delivery":
		delivery = true
	case "2", "retiro":
		pickup = true
	case "3", "ambos":
		delivery, pickup = true, true
	default:
		return reply(in.Phone, "Elegí una opción: 1 (Delivery), 2 (Retiro) o 3 (Ambos)."), nil
	}

	if err := e.bizRepo.Update(ctx, e.db, business.ID, map[string]interface{}{
		"has_delivery": delivery,
		"has_pickup":   pickup,
	}); err != nil {
		return nil, err
	}
	business.HasDelivery = delivery
	business.HasPickup = pickup

	if pickup {
		if err := e.advance(ctx, state, admindomain.StepPickupAddress); err != nil {
			return nil, err
		}
		return reply(in.Phone, "¿Cuál es la dirección del local para los retiros?"), nil
	}
	if e.isEdit(state) {
		return e.finishEdit(ctx, in, state, "Forma de entrega actualizada ✅")
	}
	if err := e.advance(ctx, state, admindomain.StepPaymentMethods); err != nil {
		return nil, err
	}
	return reply(in.Phone, paymentPrompt), nil
}

const paymentPrompt = "¿Qué medios de pago aceptás?\n1. Efectivo\n2. Transferencia\n3. Ambos\n4. Transferencia con seña"

func (e *Engine) stepPickupAddress(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business, text string) ([]messenger.Outgoing, error) {
	if text == "" {
		return reply(in.Phone, "Escribime la dirección del local."), nil
	}
	if err := e.bizRepo.Update(ctx, e.db, business.ID, map[string]interface{}{"address": text}); err != nil {
		return nil, err
	}
	if e.isEdit(state) {
		return e.finishEdit(ctx, in, state, "Dirección actualizada ✅")
	}
	if err := e.advance(ctx, state, admindomain.StepPaymentMethods); err != nil {
		return nil, err
	}
	return reply(in.Phone, paymentPrompt), nil
}

func (e *Engine) stepPaymentMethods(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business, text string) ([]messenger.Outgoing, error) {
	var cash, transfer, deposit bool
	switch normalizeOption(text) {
	case "1", "efectivo":
		cash = true
	case "2", "transferencia":
		transfer = true
	case "3", "ambos":
		cash, transfer = true, true
	case "4", "sena", "seña":
		transfer, deposit = true, true
	default:
		return reply(in.Phone, "Elegí una opción: 1, 2, 3 o 4."), nil
	}

	if err := e.bizRepo.Update(ctx, e.db, business.ID, map[string]interface{}{
		"accepts_cash":     cash,
		"accepts_transfer": transfer,
		"accepts_deposit":  deposit,
	}); err != nil {
		return nil, err
	}
	business.AcceptsCash = cash
	business.AcceptsTransfer = transfer
	business.AcceptsDeposit = deposit

	if deposit {
		if err := e.advance(ctx, state, admindomain.StepDepositPercent); err != nil {
			return nil, err
		}
		return reply(in.Phone, "¿Qué porcentaje de seña pedís? (por ejemplo: 50)"), nil
	}
	if e.isEdit(state) {
		return e.finishEdit(ctx, in, state, "Medios de pago actualizados ✅")
	}
	return e.routeAfterPayments(ctx, in, state, business)
}

func (e *Engine) stepDepositPercent(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business, text string) ([]messenger.Outgoing, error) {
	percent, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(text), "%"))
	if err != nil || percent < 1 || percent > 100 {
		return reply(in.Phone, "Escribí un porcentaje entre 1 y 100."), nil
	}
	if err := e.bizRepo.Update(ctx, e.db, business.ID, map[string]interface{}{"deposit_percent": percent}); err != nil {
		return nil, err
	}
	business.DepositPercent = percent
	if e.isEdit(state) {
		return e.finishEdit(ctx, in, state, "Medios de pago actualizados ✅")
	}
	return e.routeAfterPayments(ctx, in, state, business)
}

func (e *Engine) routeAfterPayments(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business) ([]messenger.Outgoing, error) {
	if business.HasDelivery {
		if err := e.advance(ctx, state, admindomain.StepDeliveryZones); err != nil {
			return nil, err
		}
		return reply(in.Phone, "¿A qué zonas hacés delivery y cuánto cobrás el envío? Por ejemplo: \"Centro $500, Norte $800\"."), nil
	}
	return e.routeAfterZones(ctx, in, state, business)
}

func (e *Engine) routeAfterZones(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business) ([]messenger.Outgoing, error) {
	if business.AcceptsTransfer || business.AcceptsDeposit {
		if err := e.advance(ctx, state, admindomain.StepBankData); err != nil {
			return nil, err
		}
		return reply(in.Phone, "Pasame los datos para transferencias: alias, CBU/CVU y titular de la cuenta."), nil
	}
	if err := e.advance(ctx, state, admindomain.StepProducts); err != nil {
		return nil, err
	}
	return reply(in.Phone, productsPrompt), nil
}

const productsPrompt = "Ahora cargá tu menú. Mandame los productos con su precio, por ejemplo:\n\"Pizza Muzzarella $5500\nCoca Cola 1.5L $2000\"\nCuando termines escribí LISTO."

func (e *Engine) stepDeliveryZones(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business, text string) ([]messenger.Outgoing, error) {
	zones, err := e.extract.ExtractZones(ctx, text)
	if err != nil || len(zones) == 0 {
		return reply(in.Phone, "No pude reconocer las zonas. Probá por ejemplo: \"Centro $500, Norte $800\"."), nil
	}

	// The zone cap applies once a plan exists; during onboarding there is no
	// subscription yet.
	quota, err := e.subs.CheckZoneQuota(ctx, business.ID, len(zones))
	if err != nil && !errors.Is(err, subdomain.ErrNoSubscription) && !errors.Is(err, subdomain.ErrSubscriptionExpired) {
		return nil, err
	}
	if err == nil && !quota.Allowed {
		return reply(in.Phone, fmt.Sprintf("Tu plan permite hasta %d zonas y enviaste %d. Sacá algunas o mejorá tu plan con PLANES.", quota.Limit, quota.Current)), nil
	}

	encoded, err := json.Marshal(zones)
	if err != nil {
		return nil, err
	}
	e.setData(state, dataPendingZones, string(encoded))
	if err := e.advance(ctx, state, admindomain.StepDeliveryZonesConfirm); err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("Entendí estas zonas:\n")
	for _, z := range zones {
		fmt.Fprintf(&sb, "• %s: $%d\n", z.Name, z.Price)
	}
	sb.WriteString("¿Es correcto? (si/no)")
	return reply(in.Phone, sb.String()), nil
}

func (e *Engine) stepDeliveryZonesConfirm(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business, text string) ([]messenger.Outgoing, error) {
	switch {
	case isYes(text):
		var zones []extraction.Zone
		if err := json.Unmarshal([]byte(e.dataString(state, dataPendingZones)), &zones); err != nil {
			return nil, fmt.Errorf("decode pending zones: %w", err)
		}
		rows := make([]bizdomain.DeliveryZone, 0, len(zones))
		for _, z := range zones {
			rows = append(rows, bizdomain.DeliveryZone{
				ID:         e.genID.Generate(),
				BusinessID: business.ID,
				Name:       z.Name,
				Price:      z.Price,
				CreatedAt:  e.clock.Now(),
			})
		}
		if err := e.bizRepo.ReplaceZones(ctx, e.db, business.ID, rows); err != nil {
			return nil, err
		}
		e.clearData(state, dataPendingZones)
		if e.isEdit(state) {
			return e.finishEdit(ctx, in, state, "Zonas actualizadas ✅")
		}
		return e.routeAfterZones(ctx, in, state, business)
	case isNo(text):
		e.clearData(state, dataPendingZones)
		if err := e.advance(ctx, state, admindomain.StepDeliveryZones); err != nil {
			return nil, err
		}
		return reply(in.Phone, "Ok, escribime las zonas de nuevo."), nil
	default:
		return reply(in.Phone, "Respondé \"si\" o \"no\" por favor."), nil
	}
}

func (e *Engine) stepBankData(ctx context.Context, in Input, state *admindomain.State, text string) ([]messenger.Outgoing, error) {
	details, err := e.extract.ExtractBankDetails(ctx, text)
	if err != nil {
		return reply(in.Phone, "No pude leer los datos bancarios. Mandame alias, CBU/CVU y titular."), nil
	}
	var missing []string
	if details.Alias == "" {
		missing = append(missing, "alias")
	}
	if details.CBU == "" {
		missing = append(missing, "CBU/CVU")
	}
	if details.AccountHolder == "" {
		missing = append(missing, "titular")
	}
	if len(missing) > 0 {
		return reply(in.Phone, "Me falta: "+strings.Join(missing, ", ")+". Mandame los datos completos."), nil
	}

	encoded, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	e.setData(state, dataPendingBank, string(encoded))
	if err := e.advance(ctx, state, admindomain.StepBankDataConfirm); err != nil {
		return nil, err
	}
	return reply(in.Phone, fmt.Sprintf(
		"Datos bancarios:\n• Alias: %s\n• CBU/CVU: %s\n• Titular: %s\n¿Es correcto? (si/no)",
		details.Alias, details.CBU, details.AccountHolder,
	)), nil
}

func (e *Engine) stepBankDataConfirm(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business, text string) ([]messenger.Outgoing, error) {
	switch {
	case isYes(text):
		var details extraction.BankDetails
		if err := json.Unmarshal([]byte(e.dataString(state, dataPendingBank)), &details); err != nil {
			return nil, fmt.Errorf("decode pending bank details: %w", err)
		}
		if err := e.bizRepo.UpsertBankDetails(ctx, e.db, &bizdomain.BankDetails{
			ID:            e.genID.Generate(),
			BusinessID:    business.ID,
			Alias:         details.Alias,
			CBU:           details.CBU,
			AccountHolder: details.AccountHolder,
			UpdatedAt:     e.clock.Now(),
		}); err != nil {
			return nil, err
		}
		e.clearData(state, dataPendingBank)
		if e.isEdit(state) {
			return e.finishEdit(ctx, in, state, "Datos bancarios actualizados ✅")
		}
		if err := e.advance(ctx, state, admindomain.StepProducts); err != nil {
			return nil, err
		}
		return reply(in.Phone, productsPrompt), nil
	case isNo(text):
		e.clearData(state, dataPendingBank)
		if err := e.advance(ctx, state, admindomain.StepBankData); err != nil {
			return nil, err
		}
		return reply(in.Phone, "Ok, mandame los datos de nuevo."), nil
	default:
		return reply(in.Phone, "Respondé \"si\" o \"no\" por favor."), nil
	}
}

func (e *Engine) stepProducts(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business, text string) ([]messenger.Outgoing, error) {
	if strings.EqualFold(strings.TrimSpace(text), "LISTO") {
		existing, err := e.prodRepo.FindAll(ctx, e.db, business.ID)
		if err != nil {
			return nil, err
		}
		if len(existing) == 0 {
			return reply(in.Phone, "Todavía no cargaste ningún producto. Mandame al menos uno antes de seguir."), nil
		}
		if err := e.advance(ctx, state, admindomain.StepReview); err != nil {
			return nil, err
		}
		summary, err := e.reviewSummary(ctx, business)
		if err != nil {
			return nil, err
		}
		return reply(in.Phone, summary), nil
	}

	drafts, err := e.extract.ExtractProducts(ctx, text)
	if err != nil || len(drafts) == 0 {
		return reply(in.Phone, "No pude reconocer productos. Mandame nombre y precio, por ejemplo: \"Empanada de carne $900\"."), nil
	}

	products := make([]productdomain.Product, 0, len(drafts))
	for _, d := range drafts {
		id := e.genID.Generate()
		products = append(products, productdomain.Product{
			ID:          id,
			BusinessID:  business.ID,
			Name:        d.Name,
			Description: d.Description,
			Price:       d.Price,
			Category:    d.Category,
			Available:   true,
			RetailerID:  retailerID(d.Name, id),
			CreatedAt:   e.clock.Now(),
			UpdatedAt:   e.clock.Now(),
		})
	}
	if err := e.prodRepo.Insert(ctx, e.db, products); err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Agregué %d producto(s):\n", len(products))
	for _, p := range products {
		fmt.Fprintf(&sb, "• %s: $%d\n", p.Name, p.Price)
	}
	sb.WriteString("Mandame más productos o escribí LISTO para continuar.")
	return reply(in.Phone, sb.String()), nil
}

func (e *Engine) stepReview(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business, text string) ([]messenger.Outgoing, error) {
	if !strings.EqualFold(strings.TrimSpace(text), "CONFIRMAR") {
		summary, err := e.reviewSummary(ctx, business)
		if err != nil {
			return nil, err
		}
		return reply(in.Phone, summary), nil
	}

	if err := e.bizRepo.Update(ctx, e.db, business.ID, map[string]interface{}{"active": true}); err != nil {
		return nil, err
	}
	if err := e.advance(ctx, state, admindomain.StepCompleted); err != nil {
		return nil, err
	}

	out := reply(in.Phone, "¡Tu negocio quedó activo! 🎉 Ya podés recibir pedidos.\nEscribí AYUDA para ver los comandos disponibles.")

	// Trial and catalog import are best effort. Failures are surfaced as
	// warnings, never block activation.
	if _, err := e.subs.CreateTrial(ctx, business.ID); err != nil {
		e.log.Warn("trial creation failed", zap.String("business_id", business.ID.String()), zap.Error(err))
		out = append(out, messenger.Text(in.Phone, "⚠️ No pude activar tu período de prueba. Escribí PLANES para elegir uno."))
	}
	if products, err := e.prodRepo.FindAll(ctx, e.db, business.ID); err == nil {
		if err := e.importer.Import(ctx, in.CatalogID, products); err != nil && !errors.Is(err, catalogsync.ErrNotConfigured) {
			e.log.Warn("catalog import failed", zap.String("business_id", business.ID.String()), zap.Error(err))
			out = append(out, messenger.Text(in.Phone, "⚠️ No pude sincronizar el catálogo. Podés reintentar con SINCRONIZAR."))
		}
	}
	return out, nil
}

func (e *Engine) reviewSummary(ctx context.Context, business *bizdomain.Business) (string, error) {
	fresh, err := e.bizRepo.FindByID(ctx, e.db, business.ID)
	if err != nil {
		return "", err
	}
	products, err := e.prodRepo.FindAll(ctx, e.db, business.ID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Revisá tu configuración:\n")
	fmt.Fprintf(&sb, "• Nombre: %s\n", fresh.Name)
	fmt.Fprintf(&sb, "• Horarios: %s\n", fresh.Hours)
	fmt.Fprintf(&sb, "• Entrega: %s\n", deliveryLabel(fresh))
	if fresh.Address != "" {
		fmt.Fprintf(&sb, "• Dirección: %s\n", fresh.Address)
	}
	fmt.Fprintf(&sb, "• Pagos: %s\n", paymentsLabel(fresh))
	fmt.Fprintf(&sb, "• Productos: %d\n", len(products))
	sb.WriteString("Escribí CONFIRMAR para activar tu negocio.")
	return sb.String(), nil
}

func (e *Engine) stepEditMenu(ctx context.Context, in Input, state *admindomain.State, text string) ([]messenger.Outgoing, error) {
	var target string
	switch normalizeOption(text) {
	case "1", "nombre":
		target = admindomain.StepEditName
	case "2", "horarios":
		target = admindomain.StepBusinessHours
	case "3", "direccion":
		target = admindomain.StepEditAddress
	case "4", "zonas":
		target = admindomain.StepDeliveryZones
	case "5", "bancarios":
		target = admindomain.StepBankData
	case "6", "entrega":
		target = admindomain.StepDeliveryMethod
	case "7", "pagos":
		target = admindomain.StepPaymentMethods
	case "0", "cancelar":
		if err := e.advance(ctx, state, admindomain.StepCompleted); err != nil {
			return nil, err
		}
		return reply(in.Phone, "Edición cancelada."), nil
	default:
		return reply(in.Phone, editMenuPrompt), nil
	}

	e.setData(state, dataEditMode, true)
	if err := e.advance(ctx, state, target); err != nil {
		return nil, err
	}
	return reply(in.Phone, editPromptFor(target)), nil
}

const editMenuPrompt = "¿Qué querés editar?\n1. Nombre\n2. Horarios\n3. Dirección\n4. Zonas de delivery\n5. Datos bancarios\n6. Forma de entrega\n7. Medios de pago\n0. Cancelar"

func editPromptFor(step string) string {
	switch step {
	case admindomain.StepEditName:
		return "¿Cuál es el nuevo nombre?"
	case admindomain.StepBusinessHours:
		return "Escribime los nuevos horarios."
	case admindomain.StepEditAddress:
		return "¿Cuál es la nueva dirección?"
	case admindomain.StepDeliveryZones:
		return "Escribime las zonas y precios de nuevo, por ejemplo: \"Centro $500, Norte $800\"."
	case admindomain.StepBankData:
		return "Mandame alias, CBU/CVU y titular."
	case admindomain.StepDeliveryMethod:
		return "¿Cómo entregás los pedidos?\n1. Delivery\n2. Retiro en el local\n3. Ambos"
	case admindomain.StepPaymentMethods:
		return paymentPrompt
	default:
		return editMenuPrompt
	}
}

func (e *Engine) stepEditName(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business, text string) ([]messenger.Outgoing, error) {
	if text == "" {
		return reply(in.Phone, "¿Cuál es el nuevo nombre?"), nil
	}
	if err := e.bizRepo.Update(ctx, e.db, business.ID, map[string]interface{}{"name": text}); err != nil {
		return nil, err
	}
	return e.finishEdit(ctx, in, state, "Nombre actualizado ✅")
}

func (e *Engine) stepEditAddress(ctx context.Context, in Input, state *admindomain.State, business *bizdomain.Business, text string) ([]messenger.Outgoing, error) {
	if text == "" {
		return reply(in.Phone, "¿Cuál es la nueva dirección?"), nil
	}
	if err := e.bizRepo.Update(ctx, e.db, business.ID, map[string]interface{}{"address": text}); err != nil {
		return nil, err
	}
	return e.finishEdit(ctx, in, state, "Dirección actualizada ✅")
}

func (e *Engine) finishEdit(ctx context.Context, in Input, state *admindomain.State, confirmation string) ([]messenger.Outgoing, error) {
	e.clearData(state, dataEditMode)
	if err := e.advance(ctx, state, admindomain.StepCompleted); err != nil {
		return nil, err
	}
	return reply(in.Phone, confirmation), nil
}

func (e *Engine) isEdit(state *admindomain.State) bool {
	v, ok := state.Data[dataEditMode]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (e *Engine) setData(state *admindomain.State, key string, value interface{}) {
	if state.Data == nil {
		state.Data = datatypes.JSONMap{}
	}
	state.Data[key] = value
}

func (e *Engine) clearData(state *admindomain.State, key string) {
	delete(state.Data, key)
}

func (e *Engine) dataString(state *admindomain.State, key string) string {
	v, ok := state.Data[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func retailerID(name string, id snowflake.ID) string {
	s := id.String()
	if len(s) > 6 {
		s = s[len(s)-6:]
	}
	return slug.Make(name) + "-" + s
}

func deliveryLabel(b *bizdomain.Business) string {
	switch {
	case b.HasDelivery && b.HasPickup:
		return "Delivery y retiro"
	case b.HasDelivery:
		return "Delivery"
	case b.HasPickup:
		return "Retiro en el local"
	default:
		return "Sin definir"
	}
}

func paymentsLabel(b *bizdomain.Business) string {
	var parts []string
	if b.AcceptsCash {
		parts = append(parts, "efectivo")
	}
	if b.AcceptsTransfer {
		parts = append(parts, "transferencia")
	}
	if b.AcceptsDeposit {
		parts = append(parts, fmt.Sprintf("seña %d%%", b.DepositPercent))
	}
	if len(parts) == 0 {
		return "Sin definir"
	}
	return strings.Join(parts, ", ")
}

func isYes(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "si", "sí", "s", "ok", "dale", "correcto":
		return true
	}
	return false
}

func isNo(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "no", "n":
		return true
	}
	return false
}

// normalizeOption lowercases, strips accents relevant to menu keywords and
// keeps only the first word.
func normalizeOption(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u").Replace(t)
	if i := strings.IndexByte(t, ' '); i > 0 {
		t = t[:i]
	}
	return t
}

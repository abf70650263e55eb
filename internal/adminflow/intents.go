package adminflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	bizdomain "github.com/smallbiznis/ordena/internal/business/domain"
	"github.com/smallbiznis/ordena/internal/extraction"
	"github.com/smallbiznis/ordena/internal/messenger"
	subdomain "github.com/smallbiznis/ordena/internal/subscription/domain"
	"go.uber.org/zap"
)

const fallbackHint = "No te entendí. Escribí AYUDA para ver los comandos disponibles."
const clarifyHint = "No estoy seguro de qué necesitás. ¿Podés reformularlo? Escribí AYUDA para ver los comandos."

// handleIntent is the natural-language fallback for input the deterministic
// grammar did not match. Only non-destructive intents are reachable here;
// classification is gated on the plan's AI feature.
func (e *Engine) handleIntent(ctx context.Context, in Input, business *bizdomain.Business) ([]messenger.Outgoing, error) {
	aiOK, err := e.subs.HasAI(ctx, business.ID)
	if err != nil && !errors.Is(err, subdomain.ErrNoSubscription) {
		return nil, err
	}
	if !aiOK {
		return reply(in.Phone, fallbackHint), nil
	}

	intent, err := e.extract.ClassifyIntent(ctx, in.Text)
	if err != nil {
		e.log.Debug("intent classification unavailable", zap.Error(err))
		return reply(in.Phone, fallbackHint), nil
	}

	switch intent {
	case extraction.IntentViewOrders:
		return e.cmdViewOrders(ctx, in, business)
	case extraction.IntentViewMenu:
		return e.cmdViewMenu(ctx, in, business)
	case extraction.IntentViewBusiness:
		return e.cmdViewBusiness(ctx, in, business)
	case extraction.IntentSales:
		return e.cmdSales(ctx, in, business, "mes")
	case extraction.IntentHelp:
		return reply(in.Phone, helpText), nil
	case extraction.IntentQuestion:
		return e.answerQuestion(ctx, in, business)
	default:
		return reply(in.Phone, clarifyHint), nil
	}
}

func (e *Engine) answerQuestion(ctx context.Context, in Input, business *bizdomain.Business) ([]messenger.Outgoing, error) {
	answer, err := e.extract.Answer(ctx, in.Text, e.businessContext(ctx, business))
	if err != nil {
		return reply(in.Phone, clarifyHint), nil
	}
	return reply(in.Phone, answer), nil
}

func (e *Engine) businessContext(ctx context.Context, business *bizdomain.Business) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Negocio: %s\n", business.Name)
	fmt.Fprintf(&sb, "Horarios: %s\n", business.Hours)
	fmt.Fprintf(&sb, "Entrega: %s\n", deliveryLabel(business))
	fmt.Fprintf(&sb, "Pagos: %s\n", paymentsLabel(business))
	if products, err := e.prodRepo.FindAll(ctx, e.db, business.ID); err == nil {
		sb.WriteString("Menú:\n")
		for _, p := range products {
			fmt.Fprintf(&sb, "- %s $%d\n", p.Name, p.Price)
		}
	}
	return sb.String()
}

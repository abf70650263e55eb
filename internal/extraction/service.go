package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Chain is the raw JSON-extraction capability, satisfied by *Client.
type Chain interface {
	Extract(ctx context.Context, system, user string) (json.RawMessage, error)
}

// Zone is one delivery zone pulled from free text.
type Zone struct {
	Name  string
	Price int64
}

// BankDetails holds payout data; empty fields were not found in the text.
type BankDetails struct {
	Alias         string
	CBU           string
	AccountHolder string
}

// ProductDraft is one catalog entry pulled from free text.
type ProductDraft struct {
	Name        string
	Description string
	Price       int64
	Category    string
}

// CatalogItem is one live catalog row offered to the order-items prompt.
type CatalogItem struct {
	ID       string
	Name     string
	Price    int64
	Category string
}

// OrderItem references a catalog product by id, never by invented data.
type OrderItem struct {
	ProductID string
	Name      string
	Qty       int
}

// OrderExtraction is the parse result for a free-text order. Terms that did
// not match any catalog item are surfaced in NotFound, never dropped.
type OrderExtraction struct {
	Items    []OrderItem
	NotFound []string
}

// Intent is the closed set of natural-language admin intents.
type Intent string

const (
	IntentViewOrders   Intent = "ver_pedidos"
	IntentViewMenu     Intent = "ver_menu"
	IntentViewBusiness Intent = "ver_negocio"
	IntentSales        Intent = "ventas"
	IntentHelp         Intent = "ayuda"
	IntentQuestion     Intent = "pregunta"
	IntentUnknown      Intent = "desconocido"
)

// Service exposes typed extraction helpers on top of the provider chain.
// Every helper treats a parse failure or exhausted chain as "nothing
// extracted" and reports it with an error the caller turns into a re-prompt.
type Service interface {
	ExtractHours(ctx context.Context, text string) (string, error)
	ExtractZones(ctx context.Context, text string) ([]Zone, error)
	ExtractBankDetails(ctx context.Context, text string) (BankDetails, error)
	ExtractProducts(ctx context.Context, text string) ([]ProductDraft, error)
	ExtractOrderItems(ctx context.Context, text string, catalog []CatalogItem) (OrderExtraction, error)
	ClassifyIntent(ctx context.Context, text string) (Intent, error)
	Answer(ctx context.Context, question, businessContext string) (string, error)
}

type service struct {
	chain Chain
	log   *zap.Logger
}

type ServiceParam struct {
	fx.In

	Chain Chain
	Log   *zap.Logger
}

func NewService(p ServiceParam) Service {
	return &service{chain: p.Chain, log: p.Log.Named("extraction.service")}
}

const hoursPrompt = `Sos un asistente que normaliza horarios de atención de negocios.
El usuario describe sus horarios en lenguaje natural.
Respondé SOLO con JSON: {"hours": "<horario normalizado>"} o {"hours": null} si no se entiende.
Ejemplo: "lunes a viernes de 11 a 23" -> {"hours": "Lun a Vie 11:00-23:00"}.`

func (s *service) ExtractHours(ctx context.Context, text string) (string, error) {
	raw, err := s.chain.Extract(ctx, hoursPrompt, text)
	if err != nil {
		return "", err
	}
	var out struct {
		Hours *string `json:"hours"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || out.Hours == nil {
		return "", fmt.Errorf("no hours extracted")
	}
	return strings.TrimSpace(*out.Hours), nil
}

const zonesPrompt = `Extraé zonas de entrega con su costo de envío del texto del usuario.
Respondé SOLO con JSON: {"zones": [{"zone_name": "<nombre>", "price": <numero>}]}.
Si no hay zonas reconocibles respondé {"zones": []}.`

func (s *service) ExtractZones(ctx context.Context, text string) ([]Zone, error) {
	raw, err := s.chain.Extract(ctx, zonesPrompt, text)
	if err != nil {
		return nil, err
	}
	var out struct {
		Zones []struct {
			ZoneName string  `json:"zone_name"`
			Price    float64 `json:"price"`
		} `json:"zones"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("no zones extracted: %w", err)
	}
	zones := make([]Zone, 0, len(out.Zones))
	for _, z := range out.Zones {
		name := strings.TrimSpace(z.ZoneName)
		if name == "" {
			continue
		}
		zones = append(zones, Zone{Name: name, Price: roundPrice(z.Price)})
	}
	return zones, nil
}

const bankPrompt = `Extraé los datos bancarios del texto: alias, CBU/CVU y titular de la cuenta.
Respondé SOLO con JSON: {"alias": <string|null>, "cbu": <string|null>, "account_holder": <string|null>}.`

func (s *service) ExtractBankDetails(ctx context.Context, text string) (BankDetails, error) {
	raw, err := s.chain.Extract(ctx, bankPrompt, text)
	if err != nil {
		return BankDetails{}, err
	}
	var out struct {
		Alias         *string `json:"alias"`
		CBU           *string `json:"cbu"`
		AccountHolder *string `json:"account_holder"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return BankDetails{}, fmt.Errorf("no bank details extracted: %w", err)
	}
	return BankDetails{
		Alias:         deref(out.Alias),
		CBU:           deref(out.CBU),
		AccountHolder: deref(out.AccountHolder),
	}, nil
}

const productsPrompt = `Extraé productos del texto del usuario: nombre, descripción opcional, precio y categoría opcional.
Respondé SOLO con JSON: {"products": [{"name": "...", "description": "...", "price": <numero>, "category": "..."}]}.
Si no hay productos reconocibles respondé {"products": []}.`

func (s *service) ExtractProducts(ctx context.Context, text string) ([]ProductDraft, error) {
	raw, err := s.chain.Extract(ctx, productsPrompt, text)
	if err != nil {
		return nil, err
	}
	var out struct {
		Products []struct {
			Name        string  `json:"name"`
			Description string  `json:"description"`
			Price       float64 `json:"price"`
			Category    string  `json:"category"`
		} `json:"products"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("no products extracted: %w", err)
	}
	products := make([]ProductDraft, 0, len(out.Products))
	for _, p := range out.Products {
		name := strings.TrimSpace(p.Name)
		if name == "" || p.Price <= 0 {
			continue
		}
		products = append(products, ProductDraft{
			Name:        name,
			Description: strings.TrimSpace(p.Description),
			Price:       roundPrice(p.Price),
			Category:    strings.TrimSpace(p.Category),
		})
	}
	return products, nil
}

const orderItemsPrompt = `Sos un asistente que interpreta pedidos de clientes contra un catálogo.
Matcheá cada pedido del cliente con un producto del catálogo por su ID.
NUNCA inventes productos: si un término no matchea con ningún producto del catálogo, agregalo a "not_found".
Respondé SOLO con JSON: {"items": [{"product_id": "<id del catálogo>", "name": "<nombre del catálogo>", "qty": <numero>}], "not_found": ["<término>"]}.`

func (s *service) ExtractOrderItems(ctx context.Context, text string, catalog []CatalogItem) (OrderExtraction, error) {
	var sb strings.Builder
	sb.WriteString("Catálogo disponible:\n")
	for _, item := range catalog {
		fmt.Fprintf(&sb, "- ID: %s | %s | $%d | %s\n", item.ID, item.Name, item.Price, item.Category)
	}
	sb.WriteString("\nPedido del cliente:\n")
	sb.WriteString(text)

	raw, err := s.chain.Extract(ctx, orderItemsPrompt, sb.String())
	if err != nil {
		return OrderExtraction{}, err
	}

	var out struct {
		Items []struct {
			ProductID string `json:"product_id"`
			Name      string `json:"name"`
			Qty       int    `json:"qty"`
		} `json:"items"`
		NotFound []string `json:"not_found"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return OrderExtraction{}, fmt.Errorf("no order items extracted: %w", err)
	}

	// Only identifiers present in the provided catalog are accepted; anything
	// else is demoted to not_found so the customer sees it.
	known := make(map[string]CatalogItem, len(catalog))
	for _, item := range catalog {
		known[item.ID] = item
	}

	result := OrderExtraction{NotFound: append([]string{}, out.NotFound...)}
	for _, item := range out.Items {
		catalogItem, ok := known[item.ProductID]
		if !ok {
			result.NotFound = append(result.NotFound, item.Name)
			continue
		}
		qty := item.Qty
		if qty <= 0 {
			qty = 1
		}
		result.Items = append(result.Items, OrderItem{
			ProductID: catalogItem.ID,
			Name:      catalogItem.Name,
			Qty:       qty,
		})
	}
	return result, nil
}

const intentPrompt = `Clasificá la intención del mensaje de un administrador de un negocio.
Valores posibles: "ver_pedidos", "ver_menu", "ver_negocio", "ventas", "ayuda", "pregunta", "desconocido".
Respondé SOLO con JSON: {"intent": "<valor>"}.`

func (s *service) ClassifyIntent(ctx context.Context, text string) (Intent, error) {
	raw, err := s.chain.Extract(ctx, intentPrompt, text)
	if err != nil {
		return IntentUnknown, err
	}
	var out struct {
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return IntentUnknown, fmt.Errorf("no intent extracted: %w", err)
	}
	switch Intent(strings.ToLower(strings.TrimSpace(out.Intent))) {
	case IntentViewOrders:
		return IntentViewOrders, nil
	case IntentViewMenu:
		return IntentViewMenu, nil
	case IntentViewBusiness:
		return IntentViewBusiness, nil
	case IntentSales:
		return IntentSales, nil
	case IntentHelp:
		return IntentHelp, nil
	case IntentQuestion:
		return IntentQuestion, nil
	default:
		return IntentUnknown, nil
	}
}

const answerPrompt = `Respondé la pregunta del administrador usando SOLO la información del negocio provista.
Si la información no alcanza, decilo.
Respondé SOLO con JSON: {"answer": "<respuesta breve>"}.`

func (s *service) Answer(ctx context.Context, question, businessContext string) (string, error) {
	raw, err := s.chain.Extract(ctx, answerPrompt, "Información del negocio:\n"+businessContext+"\n\nPregunta:\n"+question)
	if err != nil {
		return "", err
	}
	var out struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || strings.TrimSpace(out.Answer) == "" {
		return "", fmt.Errorf("no answer extracted")
	}
	return strings.TrimSpace(out.Answer), nil
}

func roundPrice(v float64) int64 {
	return int64(math.Round(v))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

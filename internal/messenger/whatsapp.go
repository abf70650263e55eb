package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/smallbiznis/ordena/internal/config"
	"github.com/smallbiznis/ordena/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const maxSendAttempts = 3

type WhatsApp struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
	metrics *metrics.Metrics
	sleep   func(time.Duration)
}

type WhatsAppParam struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics
}

func NewWhatsApp(p WhatsAppParam) Messenger {
	return &WhatsApp{
		baseURL: p.Config.Channel.GraphBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     p.Log.Named("messenger.whatsapp"),
		metrics: p.Metrics,
		sleep:   time.Sleep,
	}
}

func (w *WhatsApp) SendText(ctx context.Context, target Target, to, body string) error {
	return w.send(ctx, target, "text", map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]interface{}{"body": body},
	})
}

func (w *WhatsApp) SendButtons(ctx context.Context, target Target, to, body string, buttons []Button) error {
	if len(buttons) > MaxButtons {
		return ErrTooManyButtons
	}

	actions := make([]map[string]interface{}, 0, len(buttons))
	for _, b := range buttons {
		actions = append(actions, map[string]interface{}{
			"type":  "reply",
			"reply": map[string]interface{}{"id": b.ID, "title": b.Title},
		})
	}

	return w.send(ctx, target, "buttons", map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]interface{}{
			"type":   "button",
			"body":   map[string]interface{}{"text": body},
			"action": map[string]interface{}{"buttons": actions},
		},
	})
}

func (w *WhatsApp) SendList(ctx context.Context, target Target, to, body, buttonLabel string, sections []Section) error {
	total := 0
	wire := make([]map[string]interface{}, 0, len(sections))
	for _, s := range sections {
		rows := make([]map[string]interface{}, 0, len(s.Rows))
		for _, r := range s.Rows {
			total++
			rows = append(rows, map[string]interface{}{
				"id":          r.ID,
				"title":       r.Title,
				"description": r.Description,
			})
		}
		wire = append(wire, map[string]interface{}{"title": s.Title, "rows": rows})
	}
	if total > MaxListRows {
		return ErrTooManyListRows
	}

	return w.send(ctx, target, "list", map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]interface{}{
			"type":   "list",
			"body":   map[string]interface{}{"text": body},
			"action": map[string]interface{}{"button": buttonLabel, "sections": wire},
		},
	})
}

func (w *WhatsApp) SendCatalog(ctx context.Context, target Target, to, body string) error {
	return w.send(ctx, target, "catalog", map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]interface{}{
			"type": "catalog_message",
			"body": map[string]interface{}{"text": body},
		},
	})
}

// MarkRead flags the inbound message as read and shows a typing indicator
// while the flow engines work out a reply.
func (w *WhatsApp) MarkRead(ctx context.Context, target Target, messageID string) error {
	return w.post(ctx, target, map[string]interface{}{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
		"typing_indicator":  map[string]interface{}{"type": "text"},
	})
}

func (w *WhatsApp) send(ctx context.Context, target Target, kind string, payload map[string]interface{}) error {
	if err := w.post(ctx, target, payload); err != nil {
		w.metrics.OutboundMessages.WithLabelValues(kind + "_failed").Inc()
		return err
	}
	w.metrics.OutboundMessages.WithLabelValues(kind).Inc()
	return nil
}

// post delivers one payload to the channel's /messages endpoint, retrying
// only on 429 and honoring Retry-After when present.
func (w *WhatsApp) post(ctx context.Context, target Target, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", w.baseURL, target.PhoneNumberID)

	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+target.AccessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.http.Do(req)
		if err != nil {
			return fmt.Errorf("whatsapp request: %w", err)
		}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		lastErr = fmt.Errorf("whatsapp status %d: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode != http.StatusTooManyRequests {
			return lastErr
		}

		wait := time.Second * time.Duration(attempt)
		if after := resp.Header.Get("Retry-After"); after != "" {
			if secs, err := strconv.Atoi(after); err == nil && secs > 0 {
				wait = time.Duration(secs) * time.Second
			}
		}
		w.log.Warn("rate limited by channel, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
		)
		w.sleep(wait)
	}
	return lastErr
}

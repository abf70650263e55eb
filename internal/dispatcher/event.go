package dispatcher

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smallbiznis/ordena/internal/customerflow"
)

// Event is one inbound message, flattened from the webhook envelope.
type Event struct {
	PhoneNumberID string
	From          string
	SenderName    string
	MessageID     string
	Text          string
	CartItems     []customerflow.CartEvent
}

// payload mirrors the subset of the Graph webhook envelope the dispatcher
// consumes. Unknown fields are ignored.
type payload struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []message `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type message struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive struct {
		Type        string `json:"type"`
		ButtonReply struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
		ListReply struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply"`
	} `json:"interactive"`
	Order struct {
		CatalogID    string `json:"catalog_id"`
		ProductItems []struct {
			ProductRetailerID string `json:"product_retailer_id"`
			Quantity          int    `json:"quantity"`
		} `json:"product_items"`
	} `json:"order"`
	Location struct {
		Address string  `json:"address"`
		Name    string  `json:"name"`
		Lat     float64 `json:"latitude"`
		Lon     float64 `json:"longitude"`
	} `json:"location"`
}

// Extract flattens a webhook body into events. Status updates and unsupported
// message types produce no events; a malformed body is an error.
func Extract(raw []byte) ([]Event, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}

	var events []Event
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string, len(change.Value.Contacts))
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}
			for _, msg := range change.Value.Messages {
				ev, ok := flatten(msg)
				if !ok {
					continue
				}
				ev.PhoneNumberID = change.Value.Metadata.PhoneNumberID
				ev.SenderName = names[msg.From]
				events = append(events, ev)
			}
		}
	}
	return events, nil
}

func flatten(msg message) (Event, bool) {
	ev := Event{From: msg.From, MessageID: msg.ID}

	switch msg.Type {
	case "text":
		ev.Text = strings.TrimSpace(msg.Text.Body)
		return ev, ev.Text != ""
	case "interactive":
		// Button and list replies carry their row id as the reply text, so
		// numbered prompts work the same over both surfaces.
		switch msg.Interactive.Type {
		case "button_reply":
			ev.Text = msg.Interactive.ButtonReply.ID
		case "list_reply":
			ev.Text = msg.Interactive.ListReply.ID
		}
		return ev, ev.Text != ""
	case "order":
		for _, item := range msg.Order.ProductItems {
			ev.CartItems = append(ev.CartItems, customerflow.CartEvent{
				RetailerID: item.ProductRetailerID,
				Qty:        item.Quantity,
			})
		}
		return ev, len(ev.CartItems) > 0
	case "location":
		ev.Text = strings.TrimSpace(msg.Location.Address)
		if ev.Text == "" && msg.Location.Name != "" {
			ev.Text = msg.Location.Name
		}
		if ev.Text == "" {
			ev.Text = fmt.Sprintf("%.6f, %.6f", msg.Location.Lat, msg.Location.Lon)
		}
		return ev, true
	default:
		// Audio, stickers, reactions, statuses: nothing to route.
		return Event{}, false
	}
}

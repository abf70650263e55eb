// Package messenger sends outbound messages through the WhatsApp Cloud API.
package messenger

import (
	"context"
	"errors"
)

// Channel-imposed caps on interactive messages. Callers with more options
// than fit must fall back to a numbered text menu.
const (
	MaxButtons  = 3
	MaxListRows = 10
)

var (
	ErrTooManyButtons  = errors.New("too_many_buttons")
	ErrTooManyListRows = errors.New("too_many_list_rows")
)

// Target is the sending identity. Each tenant channel carries its own
// credentials; the deployment default is used for unlinked senders.
type Target struct {
	AccessToken   string
	PhoneNumberID string
	CatalogID     string
}

// Button is one interactive reply button. At most three per message.
type Button struct {
	ID    string
	Title string
}

// Row is one interactive list entry. At most ten rows per message across all
// sections.
type Row struct {
	ID          string
	Title       string
	Description string
}

type Section struct {
	Title string
	Rows  []Row
}

type Messenger interface {
	SendText(ctx context.Context, target Target, to, body string) error
	SendButtons(ctx context.Context, target Target, to, body string, buttons []Button) error
	SendList(ctx context.Context, target Target, to, body, buttonLabel string, sections []Section) error
	SendCatalog(ctx context.Context, target Target, to, body string) error
	MarkRead(ctx context.Context, target Target, messageID string) error
}

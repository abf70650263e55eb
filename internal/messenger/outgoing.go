package messenger

import "context"

// OutKind selects the message shape used to deliver an Outgoing.
type OutKind string

const (
	OutText    OutKind = "text"
	OutButtons OutKind = "buttons"
	OutList    OutKind = "list"
	OutCatalog OutKind = "catalog"
)

// Outgoing is one queued outbound message. The flow engines return these and
// the dispatcher delivers them with the resolved tenant credentials, so the
// engines stay independent of the transport.
type Outgoing struct {
	Kind        OutKind
	To          string
	Body        string
	Buttons     []Button
	ButtonLabel string
	Sections    []Section
}

func Text(to, body string) Outgoing {
	return Outgoing{Kind: OutText, To: to, Body: body}
}

func WithButtons(to, body string, buttons ...Button) Outgoing {
	return Outgoing{Kind: OutButtons, To: to, Body: body, Buttons: buttons}
}

func WithList(to, body, buttonLabel string, sections ...Section) Outgoing {
	return Outgoing{Kind: OutList, To: to, Body: body, ButtonLabel: buttonLabel, Sections: sections}
}

func Catalog(to, body string) Outgoing {
	return Outgoing{Kind: OutCatalog, To: to, Body: body}
}

// Deliver sends one Outgoing through the messenger using the shape it asks
// for.
func Deliver(ctx context.Context, m Messenger, target Target, out Outgoing) error {
	switch out.Kind {
	case OutButtons:
		return m.SendButtons(ctx, target, out.To, out.Body, out.Buttons)
	case OutList:
		return m.SendList(ctx, target, out.To, out.Body, out.ButtonLabel, out.Sections)
	case OutCatalog:
		return m.SendCatalog(ctx, target, out.To, out.Body)
	default:
		return m.SendText(ctx, target, out.To, out.Body)
	}
}

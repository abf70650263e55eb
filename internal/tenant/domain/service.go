package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrChannelNotFound = errors.New("tenant_channel_not_found")
)

// Resolver maps an inbound channel identity to tenant credentials. Absence of
// a binding is reported with found=false, not an error; the dispatcher falls
// back to the deployment-wide default channel in that case.
type Resolver interface {
	Resolve(ctx context.Context, phoneNumberID string) (Channel, bool, error)
	Invalidate(phoneNumberID string)
	Link(ctx context.Context, phoneNumberID string, businessID snowflake.ID) error
}

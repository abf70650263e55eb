// Package tenantctx carries per-event correlation identifiers in the context.
package tenantctx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type keyType string

const (
	businessIDKey keyType = "business_id"
	senderKey     keyType = "sender"
	requestIDKey  keyType = "request_id"
)

func WithBusinessID(ctx context.Context, id snowflake.ID) context.Context {
	return context.WithValue(ctx, businessIDKey, id)
}

func BusinessID(ctx context.Context) (snowflake.ID, bool) {
	id, ok := ctx.Value(businessIDKey).(snowflake.ID)
	return id, ok
}

func WithSender(ctx context.Context, sender string) context.Context {
	return context.WithValue(ctx, senderKey, sender)
}

func Sender(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(senderKey).(string)
	return s, ok
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

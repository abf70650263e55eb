package logger

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordena/pkg/tenantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContextCarriesCorrelationFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	node, err := snowflake.NewNode(9)
	require.NoError(t, err)
	businessID := node.Generate()

	ctx := tenantctx.WithRequestID(context.Background(), "req-123")
	ctx = tenantctx.WithBusinessID(ctx, businessID)
	ctx = tenantctx.WithSender(ctx, "549555")

	FromContext(ctx).Info("handling event")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-123", fields["request_id"])
	assert.Equal(t, businessID.String(), fields["business_id"])
	assert.Equal(t, "549555", fields["sender"])
}

func TestWithContextOnBareContextOnlyAddsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	WithContext(context.Background(), zap.New(core)).Info("handling event")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Contains(t, fields, "request_id")
	assert.NotContains(t, fields, "business_id")
	assert.NotContains(t, fields, "sender")
}

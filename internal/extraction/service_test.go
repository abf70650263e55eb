package extraction

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChain struct {
	raw json.RawMessage
	err error
}

func (f *fakeChain) Extract(ctx context.Context, system, user string) (json.RawMessage, error) {
	return f.raw, f.err
}

func newFakeService(raw string) Service {
	return NewService(ServiceParam{Chain: &fakeChain{raw: json.RawMessage(raw)}, Log: zap.NewNop()})
}

func TestExtractOrderItemsRejectsUnknownIDs(t *testing.T) {
	svc := newFakeService(`{"items":[
		{"product_id":"p1","name":"Pizza Muzzarella","qty":2},
		{"product_id":"ghost","name":"Empanada","qty":3}
	],"not_found":["fernet"]}`)

	catalog := []CatalogItem{
		{ID: "p1", Name: "Pizza Muzzarella", Price: 5500},
		{ID: "p2", Name: "Coca Cola", Price: 2000},
	}

	out, err := svc.ExtractOrderItems(context.Background(), "2 muzza y 3 empanadas y fernet", catalog)
	require.NoError(t, err)

	require.Len(t, out.Items, 1)
	assert.Equal(t, "p1", out.Items[0].ProductID)
	assert.Equal(t, 2, out.Items[0].Qty)
	assert.ElementsMatch(t, []string{"fernet", "Empanada"}, out.NotFound)
}

func TestExtractHoursNull(t *testing.T) {
	svc := newFakeService(`{"hours": null}`)

	_, err := svc.ExtractHours(context.Background(), "asdf")
	assert.Error(t, err)
}

func TestExtractZonesSkipsBlankNames(t *testing.T) {
	svc := newFakeService(`{"zones":[{"zone_name":"Centro","price":1500},{"zone_name":"  ","price":900}]}`)

	zones, err := svc.ExtractZones(context.Background(), "centro 1500")
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, Zone{Name: "Centro", Price: 1500}, zones[0])
}

func TestClassifyIntentUnknownValueMapsToUnknown(t *testing.T) {
	svc := newFakeService(`{"intent": "hacer_magia"}`)

	intent, err := svc.ClassifyIntent(context.Background(), "hola")
	require.NoError(t, err)
	assert.Equal(t, IntentUnknown, intent)
}

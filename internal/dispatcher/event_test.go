package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextMessage(t *testing.T) {
	raw := []byte(`{
		"object": "whatsapp_business_account",
		"entry": [{"changes": [{"field": "messages", "value": {
			"metadata": {"phone_number_id": "111222"},
			"contacts": [{"wa_id": "549333", "profile": {"name": "Carla"}}],
			"messages": [{"from": "549333", "id": "wamid.1", "type": "text", "text": {"body": " hola "}}]
		}}]}]
	}`)

	events, err := Extract(raw)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "111222", events[0].PhoneNumberID)
	assert.Equal(t, "549333", events[0].From)
	assert.Equal(t, "Carla", events[0].SenderName)
	assert.Equal(t, "wamid.1", events[0].MessageID)
	assert.Equal(t, "hola", events[0].Text)
}

func TestExtractListReplyBecomesText(t *testing.T) {
	raw := []byte(`{
		"entry": [{"changes": [{"value": {
			"metadata": {"phone_number_id": "111222"},
			"messages": [{"from": "549333", "id": "wamid.2", "type": "interactive",
				"interactive": {"type": "list_reply", "list_reply": {"id": "2", "title": "Norte"}}}]
		}}]}]
	}`)

	events, err := Extract(raw)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2", events[0].Text)
}

func TestExtractNativeCartOrder(t *testing.T) {
	raw := []byte(`{
		"entry": [{"changes": [{"value": {
			"metadata": {"phone_number_id": "111222"},
			"messages": [{"from": "549333", "id": "wamid.3", "type": "order",
				"order": {"catalog_id": "cat1", "product_items": [
					{"product_retailer_id": "pizza-muzzarella-000001", "quantity": 2},
					{"product_retailer_id": "coca-15l-000002", "quantity": 1}
				]}}]
		}}]}]
	}`)

	events, err := Extract(raw)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Len(t, events[0].CartItems, 2)
	assert.Equal(t, "pizza-muzzarella-000001", events[0].CartItems[0].RetailerID)
	assert.Equal(t, 2, events[0].CartItems[0].Qty)
	assert.Empty(t, events[0].Text)
}

func TestExtractStatusUpdateYieldsNoEvents(t *testing.T) {
	raw := []byte(`{
		"entry": [{"changes": [{"value": {
			"metadata": {"phone_number_id": "111222"},
			"statuses": [{"id": "wamid.4", "status": "delivered"}]
		}}]}]
	}`)

	events, err := Extract(raw)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestExtractMalformedBody(t *testing.T) {
	_, err := Extract([]byte(`{"entry": [`))
	assert.Error(t, err)
}

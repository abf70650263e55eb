package dispatcher

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	admindomain "github.com/smallbiznis/ordena/internal/admin/domain"
	adminrepo "github.com/smallbiznis/ordena/internal/admin/repository"
	adminservice "github.com/smallbiznis/ordena/internal/admin/service"
	"github.com/smallbiznis/ordena/internal/adminflow"
	bizdomain "github.com/smallbiznis/ordena/internal/business/domain"
	bizrepo "github.com/smallbiznis/ordena/internal/business/repository"
	"github.com/smallbiznis/ordena/internal/clock"
	"github.com/smallbiznis/ordena/internal/config"
	custdomain "github.com/smallbiznis/ordena/internal/customer/domain"
	custrepo "github.com/smallbiznis/ordena/internal/customer/repository"
	"github.com/smallbiznis/ordena/internal/customerflow"
	"github.com/smallbiznis/ordena/internal/extraction"
	"github.com/smallbiznis/ordena/internal/messenger"
	"github.com/smallbiznis/ordena/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/ordena/internal/order/domain"
	orderrepo "github.com/smallbiznis/ordena/internal/order/repository"
	orderservice "github.com/smallbiznis/ordena/internal/order/service"
	productdomain "github.com/smallbiznis/ordena/internal/product/domain"
	productrepo "github.com/smallbiznis/ordena/internal/product/repository"
	"github.com/smallbiznis/ordena/internal/ratelimit"
	subdomain "github.com/smallbiznis/ordena/internal/subscription/domain"
	subrepo "github.com/smallbiznis/ordena/internal/subscription/repository"
	subservice "github.com/smallbiznis/ordena/internal/subscription/service"
	tenantdomain "github.com/smallbiznis/ordena/internal/tenant/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type sentMessage struct {
	To   string
	Body string
}

type fakeMessenger struct {
	sent      []sentMessage
	readMarks []string
}

func (f *fakeMessenger) SendText(_ context.Context, _ messenger.Target, to, body string) error {
	f.sent = append(f.sent, sentMessage{To: to, Body: body})
	return nil
}

func (f *fakeMessenger) SendButtons(_ context.Context, _ messenger.Target, to, body string, _ []messenger.Button) error {
	f.sent = append(f.sent, sentMessage{To: to, Body: body})
	return nil
}

func (f *fakeMessenger) SendList(_ context.Context, _ messenger.Target, to, body, _ string, _ []messenger.Section) error {
	f.sent = append(f.sent, sentMessage{To: to, Body: body})
	return nil
}

func (f *fakeMessenger) SendCatalog(_ context.Context, _ messenger.Target, to, body string) error {
	f.sent = append(f.sent, sentMessage{To: to, Body: body})
	return nil
}

func (f *fakeMessenger) MarkRead(_ context.Context, _ messenger.Target, messageID string) error {
	f.readMarks = append(f.readMarks, messageID)
	return nil
}

type fakeResolver struct {
	channels map[string]tenantdomain.Channel
	links    map[string]snowflake.ID
}

func (f *fakeResolver) Resolve(_ context.Context, phoneNumberID string) (tenantdomain.Channel, bool, error) {
	ch, ok := f.channels[phoneNumberID]
	return ch, ok, nil
}

func (f *fakeResolver) Invalidate(string) {}

func (f *fakeResolver) Link(_ context.Context, phoneNumberID string, businessID snowflake.ID) error {
	if f.links == nil {
		f.links = map[string]snowflake.ID{}
	}
	f.links[phoneNumberID] = businessID
	return nil
}

type fakeExtract struct {
	items []extraction.OrderItem
}

func (f *fakeExtract) ExtractOrderItems(context.Context, string, []extraction.CatalogItem) (extraction.OrderExtraction, error) {
	return extraction.OrderExtraction{Items: f.items}, nil
}
func (f *fakeExtract) ExtractHours(context.Context, string) (string, error) { return "", nil }
func (f *fakeExtract) ExtractZones(context.Context, string) ([]extraction.Zone, error) {
	return nil, nil
}
func (f *fakeExtract) ExtractBankDetails(context.Context, string) (extraction.BankDetails, error) {
	return extraction.BankDetails{}, nil
}
func (f *fakeExtract) ExtractProducts(context.Context, string) ([]extraction.ProductDraft, error) {
	return nil, nil
}
func (f *fakeExtract) ClassifyIntent(context.Context, string) (extraction.Intent, error) {
	return extraction.IntentUnknown, nil
}
func (f *fakeExtract) Answer(context.Context, string, string) (string, error) { return "", nil }

type fakeImporter struct{}

func (fakeImporter) Import(context.Context, string, []productdomain.Product) error { return nil }

type harness struct {
	dispatcher *Dispatcher
	db         *gorm.DB
	clk        *clock.FakeClock
	node       *snowflake.Node
	sender     *fakeMessenger
	resolver   *fakeResolver
	extract    *fakeExtract
	metrics    *metrics.Metrics
	logs       *observer.ObservedLogs
}

func newHarness(t *testing.T, limit int) *harness {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&admindomain.Admin{}, &admindomain.InviteCode{}, &admindomain.State{},
		&bizdomain.Business{}, &bizdomain.DeliveryZone{}, &bizdomain.BankDetails{},
		&custdomain.State{}, &productdomain.Product{}, &orderdomain.Order{},
		&subdomain.Subscription{}, &subdomain.UsageCounter{},
		&tenantdomain.Channel{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC))
	m := metrics.NewWith(prometheus.NewRegistry())
	cfg := config.Config{
		Timezone: "America/Argentina/Buenos_Aires",
		Channel: config.ChannelConfig{
			AccessToken:   "default-token",
			PhoneNumberID: "111222",
		},
	}
	plans := config.NewStaticPlanBookHolder(config.DefaultPlanBook())

	resolver := &fakeResolver{channels: map[string]tenantdomain.Channel{}}
	registration := adminservice.New(adminservice.ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     adminrepo.Provide(),
		BizRepo:  bizrepo.Provide(),
		Resolver: resolver,
	})

	orders := orderservice.New(orderservice.ServiceParam{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clk,
		Repo:    orderrepo.Provide(),
		Metrics: m,
	})
	subs := subservice.New(subservice.ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  subrepo.Provide(node),
		Plans: plans,
	})

	ext := &fakeExtract{}
	adminFlow := adminflow.New(adminflow.EngineParam{
		Config:   cfg,
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     adminrepo.Provide(),
		BizRepo:  bizrepo.Provide(),
		ProdRepo: productrepo.Provide(),
		Orders:   orders,
		Subs:     subs,
		Extract:  ext,
		Importer: fakeImporter{},
		Plans:    plans,
	})
	customerFlow := customerflow.New(customerflow.EngineParam{
		Config:   cfg,
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     custrepo.Provide(),
		BizRepo:  bizrepo.Provide(),
		ProdRepo: productrepo.Provide(),
		Orders:   orders,
		Subs:     subs,
		Extract:  ext,
	})

	sender := &fakeMessenger{}
	core, logs := observer.New(zapcore.DebugLevel)
	d := New(Param{
		Config:       cfg,
		DB:           db,
		Log:          zap.New(core),
		Limiter:      ratelimit.NewWithLimits(clk, time.Minute, limit),
		Resolver:     resolver,
		Metrics:      m,
		Messenger:    sender,
		Registration: registration,
		AdminFlow:    adminFlow,
		CustomerFlow: customerFlow,
		BizRepo:      bizrepo.Provide(),
	})

	return &harness{
		dispatcher: d, db: db, clk: clk, node: node,
		sender: sender, resolver: resolver, extract: ext, metrics: m, logs: logs,
	}
}

func textPayload(from, text string) []byte {
	return []byte(fmt.Sprintf(`{
		"entry": [{"changes": [{"value": {
			"metadata": {"phone_number_id": "111222"},
			"contacts": [{"wa_id": %q, "profile": {"name": "Test"}}],
			"messages": [{"from": %q, "id": "wamid.x", "type": "text", "text": {"body": %q}}]
		}}]}]
	}`, from, from, text))
}

func (h *harness) seedActiveBusiness(t *testing.T) *bizdomain.Business {
	t.Helper()
	business := &bizdomain.Business{
		ID:          h.node.Generate(),
		AdminPhone:  "549111",
		Name:        "Pizzería Sur",
		HasPickup:   true,
		AcceptsCash: true,
		Active:      true,
	}
	require.NoError(t, bizrepo.Provide().Create(context.Background(), h.db, business))
	return business
}

func TestInviteCodeRegistersAdminAndLinksChannel(t *testing.T) {
	h := newHarness(t, 30)
	require.NoError(t, h.db.Create(&admindomain.InviteCode{
		ID: h.node.Generate(), Code: "REST-AB12",
	}).Error)

	h.dispatcher.Process(context.Background(), textPayload("549444", "rest-ab12"))

	require.Len(t, h.sender.sent, 2)
	assert.Contains(t, h.sender.sent[0].Body, "Bienvenido")
	assert.Contains(t, h.sender.sent[1].Body, "negocio")

	admin, err := adminrepo.Provide().FindAdminByPhone(context.Background(), h.db, "549444")
	require.NoError(t, err)
	require.NotNil(t, admin)

	// The receiving channel now resolves straight to the new business.
	linked, ok := h.resolver.links["111222"]
	require.True(t, ok)
	assert.NotZero(t, linked)
}

func TestUsedInviteCodeIsRejected(t *testing.T) {
	h := newHarness(t, 30)
	used := "549000"
	require.NoError(t, h.db.Create(&admindomain.InviteCode{
		ID: h.node.Generate(), Code: "REST-CD34", UsedByPhone: &used,
	}).Error)

	h.dispatcher.Process(context.Background(), textPayload("549444", "REST-CD34"))

	require.Len(t, h.sender.sent, 1)
	assert.Contains(t, h.sender.sent[0].Body, "ya fue usado")
}

func TestAdminSenderRoutesToAdminFlow(t *testing.T) {
	h := newHarness(t, 30)
	business := h.seedActiveBusiness(t)
	require.NoError(t, h.db.Create(&admindomain.Admin{
		ID: h.node.Generate(), Phone: "549111", Name: "Juana",
	}).Error)
	require.NoError(t, adminrepo.Provide().SaveState(context.Background(), h.db, &admindomain.State{
		ID: h.node.Generate(), Phone: "549111",
		CurrentStep: admindomain.StepCompleted, BusinessID: business.ID,
	}))

	h.dispatcher.Process(context.Background(), textPayload("549111", "AYUDA"))

	require.NotEmpty(t, h.sender.sent)
	assert.Equal(t, "549111", h.sender.sent[0].To)
	assert.Contains(t, h.sender.sent[0].Body, "VER PEDIDOS")
	assert.Equal(t, []string{"wamid.x"}, h.sender.readMarks)
}

func TestCustomerRoutesToActiveBusiness(t *testing.T) {
	h := newHarness(t, 30)
	business := h.seedActiveBusiness(t)
	require.NoError(t, productrepo.Provide().Insert(context.Background(), h.db, []productdomain.Product{{
		ID: h.node.Generate(), BusinessID: business.ID, Name: "Pizza Muzzarella", Price: 5500, Available: true,
	}}))

	h.dispatcher.Process(context.Background(), textPayload("549555", "hola"))

	require.NotEmpty(t, h.sender.sent)
	assert.Equal(t, "549555", h.sender.sent[0].To)
	assert.Contains(t, h.sender.sent[0].Body, "Pizzería Sur")
	assert.Equal(t, 1.0, testutil.ToFloat64(
		h.metrics.InboundEvents.WithLabelValues(metrics.OutcomeProcessed)))
}

func TestNoActiveBusinessGetsFixedReply(t *testing.T) {
	h := newHarness(t, 30)

	h.dispatcher.Process(context.Background(), textPayload("549555", "hola"))

	require.Len(t, h.sender.sent, 1)
	assert.Contains(t, h.sender.sent[0].Body, "no está atendiendo")
}

func TestRateLimitedEventsAreSilentlyDropped(t *testing.T) {
	h := newHarness(t, 1)
	h.seedActiveBusiness(t)

	h.dispatcher.Process(context.Background(), textPayload("549555", "hola"))
	sentBefore := len(h.sender.sent)

	h.dispatcher.Process(context.Background(), textPayload("549555", "hola de nuevo"))

	// No reply, no error notice: the event vanishes.
	assert.Equal(t, sentBefore, len(h.sender.sent))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		h.metrics.InboundEvents.WithLabelValues(metrics.OutcomeDroppedRate)))

	// A different sender is unaffected.
	h.dispatcher.Process(context.Background(), textPayload("549666", "hola"))
	assert.Greater(t, len(h.sender.sent), sentBefore)
}

func TestCustomerEventLogsCarryTenantFields(t *testing.T) {
	h := newHarness(t, 30)
	business := h.seedActiveBusiness(t)

	h.dispatcher.Process(context.Background(), textPayload("549555", "hola"))

	entries := h.logs.FilterMessage("routing customer event").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "549555", fields["sender"])
	assert.Equal(t, business.ID.String(), fields["business_id"])
}

func TestDropPolicyOnlyHandlerFailuresGetAReply(t *testing.T) {
	assert.Equal(t, metrics.OutcomeIgnored, dropPolicy[failBadPayload].outcome)
	assert.Equal(t, metrics.OutcomeDroppedRate, dropPolicy[failRateLimited].outcome)
	assert.Equal(t, metrics.OutcomeFailed, dropPolicy[failChannel].outcome)
	assert.Equal(t, metrics.OutcomeFailed, dropPolicy[failHandler].outcome)

	for class, policy := range dropPolicy {
		if class == failHandler {
			assert.NotEmpty(t, policy.reply)
			continue
		}
		assert.Empty(t, policy.reply, string(class))
	}
}

func TestMalformedPayloadCountsAsIgnored(t *testing.T) {
	h := newHarness(t, 30)

	h.dispatcher.Process(context.Background(), []byte("{not json"))

	assert.Empty(t, h.sender.sent)
	assert.Equal(t, 1.0, testutil.ToFloat64(
		h.metrics.InboundEvents.WithLabelValues(metrics.OutcomeIgnored)))
}

func TestChannelBindingSelectsBusiness(t *testing.T) {
	h := newHarness(t, 30)
	bound := h.seedActiveBusiness(t)
	other := &bizdomain.Business{
		ID: h.node.Generate(), AdminPhone: "549999", Name: "Otro Local",
		HasPickup: true, AcceptsCash: true, Active: true,
	}
	require.NoError(t, bizrepo.Provide().Create(context.Background(), h.db, other))

	boundID := bound.ID
	h.resolver.channels["111222"] = tenantdomain.Channel{
		ID: h.node.Generate(), PhoneNumberID: "111222",
		AccessToken: "tenant-token", BusinessID: &boundID, Active: true,
	}

	h.dispatcher.Process(context.Background(), textPayload("549555", "hola"))

	require.NotEmpty(t, h.sender.sent)
	assert.Contains(t, h.sender.sent[0].Body, "Pizzería Sur")
}

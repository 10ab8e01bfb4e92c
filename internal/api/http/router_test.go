package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chamatrack/chama-service/internal/api/http/handlers"
	"github.com/chamatrack/chama-service/internal/auth"
	"github.com/chamatrack/chama-service/internal/config"
	"github.com/chamatrack/chama-service/internal/domain"
	"github.com/chamatrack/chama-service/internal/events"
	"github.com/chamatrack/chama-service/internal/notify"
	"github.com/chamatrack/chama-service/internal/observability"
	"github.com/chamatrack/chama-service/internal/repository"
	"github.com/chamatrack/chama-service/internal/repository/memory"
	"github.com/chamatrack/chama-service/internal/service"
)

type testApp struct {
	app     *fiber.App
	store   *memory.Store
	channel *notify.RecordingChannel
	auth    *service.AuthService
}

type appOptions struct {
	passwordHash string
	validator    handlers.SignatureValidator
}

func newTestApp(t *testing.T, opts appOptions) *testApp {
	t.Helper()
	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	store := memory.NewStore()
	channel := notify.NewRecordingChannel()
	dispatcher := events.NewInMemoryDispatcher()

	members := service.NewMemberService(service.MemberDependencies{
		MemberRepo:  store.Members(),
		PaymentRepo: store.Payments(),
		Dispatcher:  dispatcher,
	})
	payments := service.NewPaymentService(service.PaymentDependencies{
		MemberRepo:  store.Members(),
		PaymentRepo: store.Payments(),
		Tx:          store,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
	})
	settings := service.NewSettingsService(store.Settings(), domain.Settings{
		ExpectedPerMember: decimal.NewFromInt(1000),
		Currency:          "KSh",
	})
	reports := service.NewReportService(service.ReportDependencies{
		MemberRepo:  store.Members(),
		PaymentRepo: store.Payments(),
		Settings:    settings,
		Location:    time.UTC,
	})
	reminders := service.NewReminderService(service.ReminderDependencies{
		MemberRepo: store.Members(),
		Channel:    channel,
		Metrics:    metrics,
		Logger:     logger,
	})
	inbound := service.NewInboundService(service.InboundDependencies{
		MemberRepo: store.Members(),
		Payments:   payments,
		Settings:   settings,
		Metrics:    metrics,
		Logger:     logger,
	})
	authService := service.NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		AdminUsername:         "admin",
		AdminPasswordHash:     opts.passwordHash,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("chama-service", "test", nil),
		Auth:           handlers.NewAuthHandler(authService),
		Members:        handlers.NewMembersHandler(members),
		Payments:       handlers.NewPaymentsHandler(payments, reports),
		Reports:        handlers.NewReportsHandler(reports, settings, members, time.UTC),
		Reminders:      handlers.NewRemindersHandler(reminders),
		Webhook:        handlers.NewWebhookHandler(inbound, handlers.WebhookConfig{Validator: opts.validator}, logger),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), !authService.Enabled()),
		Gatherer:       reg,
	})
	return &testApp{app: app, store: store, channel: channel, auth: authService}
}

func (a *testApp) do(t *testing.T, method, path, body string, headers map[string]string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func errorCode(t *testing.T, raw []byte) string {
	t.Helper()
	envelope, ok := decode(t, raw)["error"].(map[string]any)
	require.True(t, ok, string(raw))
	return envelope["code"].(string)
}

func (a *testApp) createMember(t *testing.T, name, phone string) string {
	t.Helper()
	status, raw := a.do(t, fiber.MethodPost, "/api/members", `{"name":"`+name+`","phone":"`+phone+`"}`, nil)
	require.Equal(t, fiber.StatusCreated, status, string(raw))
	return decode(t, raw)["data"].(map[string]any)["id"].(string)
}

func TestMemberEndpoints(t *testing.T) {
	a := newTestApp(t, appOptions{})
	id := a.createMember(t, "Amina Wanjiru", "0712 345 678")

	status, raw := a.do(t, fiber.MethodPost, "/api/members", `{"name":"Other","phone":"+254712345678"}`, nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(t, raw))

	status, raw = a.do(t, fiber.MethodPost, "/api/members", `{"name":"Bad","phone":"12345"}`, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, raw))

	status, raw = a.do(t, fiber.MethodPatch, "/api/members/"+id+"/paid", `{"paid":true}`, nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	assert.Equal(t, true, decode(t, raw)["data"].(map[string]any)["has_paid"])

	status, raw = a.do(t, fiber.MethodGet, "/api/members?search=amina", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	list := decode(t, raw)["data"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "+254712345678", list[0].(map[string]any)["phone"])

	status, _ = a.do(t, fiber.MethodGet, "/api/members/missing", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = a.do(t, fiber.MethodDelete, "/api/members/"+id, "", nil)
	assert.Equal(t, fiber.StatusNoContent, status)
}

func TestValidationErrorsCarryFieldDetails(t *testing.T) {
	a := newTestApp(t, appOptions{})

	status, raw := a.do(t, fiber.MethodPost, "/api/members", `{}`, nil)
	require.Equal(t, fiber.StatusBadRequest, status)
	details := decode(t, raw)["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "is required", details["name"])
	assert.Equal(t, "is required", details["phone"])

	status, raw = a.do(t, fiber.MethodPatch, "/api/members/x/paid", `{}`, nil)
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, raw))
}

func TestRecordPaymentUpdatesReports(t *testing.T) {
	a := newTestApp(t, appOptions{})
	id := a.createMember(t, "Amina", "0712345678")
	a.createMember(t, "Baraka", "0722345678")

	status, raw := a.do(t, fiber.MethodPost, "/api/payments", `{"member_id":"`+id+`","amount":1500}`, nil)
	require.Equal(t, fiber.StatusCreated, status, string(raw))
	assert.Equal(t, "1500.00", decode(t, raw)["data"].(map[string]any)["amount"])

	status, raw = a.do(t, fiber.MethodPost, "/api/payments", `{"member_id":"`+id+`","amount":"0"}`, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, raw))

	status, raw = a.do(t, fiber.MethodGet, "/api/reports/balance", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	report := decode(t, raw)["data"].(map[string]any)
	summary := report["summary"].(map[string]any)
	assert.Equal(t, "1500.00", summary["total_collected"])
	assert.Equal(t, "2000.00", summary["expected_total"])
	assert.EqualValues(t, 75, summary["collection_percentage"])
	assert.EqualValues(t, 50, summary["payment_rate"])
	assert.Len(t, report["recent_payments"].([]any), 1)

	status, raw = a.do(t, fiber.MethodGet, "/api/stats", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	stats := decode(t, raw)["data"].(map[string]any)
	assert.EqualValues(t, 1, stats["paid_members"])
	assert.EqualValues(t, 1, stats["unpaid_members"])

	status, raw = a.do(t, fiber.MethodGet, "/api/payments/recent?limit=5", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode(t, raw)["data"].([]any), 1)

	status, raw = a.do(t, fiber.MethodGet, "/api/reminders", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	targets := decode(t, raw)["data"].([]any)
	require.Len(t, targets, 1)
	assert.Equal(t, "Baraka", targets[0].(map[string]any)["name"])
}

func TestSettingsAndCycleReset(t *testing.T) {
	a := newTestApp(t, appOptions{})
	id := a.createMember(t, "Amina", "0712345678")
	status, _ := a.do(t, fiber.MethodPatch, "/api/members/"+id+"/paid", `{"paid":true}`, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, raw := a.do(t, fiber.MethodPut, "/api/settings", `{"due_date":"2024-04-05","expected_per_member":"2500"}`, nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	settings := decode(t, raw)["data"].(map[string]any)
	assert.Equal(t, "2024-04-05", settings["due_date"])
	assert.Equal(t, "2500.00", settings["expected_per_member"])

	status, raw = a.do(t, fiber.MethodPut, "/api/settings", `{"due_date":"05/04/2024"}`, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, raw))

	status, raw = a.do(t, fiber.MethodPut, "/api/settings", `{"due_date":""}`, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Nil(t, decode(t, raw)["data"].(map[string]any)["due_date"])

	status, raw = a.do(t, fiber.MethodPost, "/api/cycle/reset", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, decode(t, raw)["data"].(map[string]any)["members_reset"])
}

func TestSendRemindersReportsPerMemberOutcome(t *testing.T) {
	a := newTestApp(t, appOptions{})
	a.createMember(t, "Amina", "0712345678")
	a.createMember(t, "Baraka", "0722345678")
	a.channel.FailTo = map[string]error{"+254722345678": assert.AnError}

	status, raw := a.do(t, fiber.MethodPost, "/api/reminders/send", "", nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	batch := decode(t, raw)["data"].(map[string]any)
	assert.EqualValues(t, 1, batch["sent"])
	assert.EqualValues(t, 1, batch["failed"])
	assert.EqualValues(t, 2, batch["total_unpaid"])
	require.Len(t, a.channel.Sent(), 1)
	assert.Equal(t, "+254712345678", a.channel.Sent()[0].To)
}

func TestBalanceCSVExport(t *testing.T) {
	a := newTestApp(t, appOptions{})
	a.createMember(t, "Amina", "0712345678")

	req := httptest.NewRequest(fiber.MethodGet, "/api/reports/balance.csv", nil)
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/csv")
	assert.True(t, strings.HasPrefix(string(raw), "name,phone,status,total_paid"))
	assert.Contains(t, string(raw), "Amina")
}

func TestAdminRoutesRequireToken(t *testing.T) {
	hash, err := auth.HashPassword("s3cret", 4)
	require.NoError(t, err)
	a := newTestApp(t, appOptions{passwordHash: hash})

	status, raw := a.do(t, fiber.MethodGet, "/api/members", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, raw))

	status, _ = a.do(t, fiber.MethodPost, "/auth/login", `{"username":"admin","password":"wrong"}`, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, raw = a.do(t, fiber.MethodPost, "/auth/login", `{"username":"admin","password":"s3cret"}`, nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	token := decode(t, raw)["data"].(map[string]any)["token"].(string)

	status, _ = a.do(t, fiber.MethodGet, "/api/members", "", map[string]string{
		fiber.HeaderAuthorization: "Bearer " + token,
	})
	assert.Equal(t, fiber.StatusOK, status)
}

func (a *testApp) postWebhook(t *testing.T, form url.Values, headers map[string]string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/webhooks/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header.Get(fiber.HeaderContentType), string(raw)
}

func TestWebhookRepliesWithTwiML(t *testing.T) {
	a := newTestApp(t, appOptions{})
	id := a.createMember(t, "Amina", "0712345678")

	status, contentType, body := a.postWebhook(t, url.Values{
		"From":       {"whatsapp:+254712345678"},
		"Body":       {" Paid "},
		"MessageSid": {"SM1"},
	}, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, contentType, "text/xml")
	assert.Contains(t, body, "<Response>")
	assert.Contains(t, body, "Your payment has been recorded")

	ledger, err := a.store.Payments().CountByMember(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, ledger)

	_, _, body = a.postWebhook(t, url.Values{
		"From": {"whatsapp:+254799999999"},
		"Body": {"status"},
	}, nil)
	assert.Contains(t, body, "not registered")
}

func TestWebhookPaymentReferenceOutlivesRequest(t *testing.T) {
	a := newTestApp(t, appOptions{})
	a.createMember(t, "Amina", "0712345678")

	_, _, body := a.postWebhook(t, url.Values{
		"From":       {"whatsapp:+254712345678"},
		"Body":       {"paid"},
		"MessageSid": {"SMAAAAAAAAAAAAAAAA"},
	}, nil)
	require.Contains(t, body, "Your payment has been recorded")

	for i := 0; i < 20; i++ {
		a.postWebhook(t, url.Values{
			"From":       {"whatsapp:+254712345678"},
			"Body":       {"status"},
			"MessageSid": {"ZZZZZZZZZZZZZZZZZZ"},
		}, nil)
	}

	ledger, err := a.store.Payments().List(context.Background(), repository.PaymentFilter{})
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	require.NotNil(t, ledger[0].Reference)
	assert.Equal(t, "SMAAAAAAAAAAAAAAAA", *ledger[0].Reference)
}

type fakeValidator struct{ ok bool }

func (f fakeValidator) Validate(string, map[string]string, string) bool { return f.ok }

func TestWebhookSignatureIsEnforced(t *testing.T) {
	a := newTestApp(t, appOptions{validator: fakeValidator{ok: false}})
	form := url.Values{"From": {"whatsapp:+254712345678"}, "Body": {"status"}}

	status, _, _ := a.postWebhook(t, form, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _, _ = a.postWebhook(t, form, map[string]string{"X-Twilio-Signature": "bad"})
	assert.Equal(t, fiber.StatusForbidden, status)

	a = newTestApp(t, appOptions{validator: fakeValidator{ok: true}})
	status, _, body := a.postWebhook(t, form, map[string]string{"X-Twilio-Signature": "good"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "not registered")
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	a := newTestApp(t, appOptions{})
	status, raw := a.do(t, fiber.MethodGet, "/nope", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, raw))
}

func TestHealthAndMetrics(t *testing.T) {
	a := newTestApp(t, appOptions{})

	status, raw := a.do(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ready", decode(t, raw)["status"])

	a.createMember(t, "Amina", "0712345678")
	status, raw = a.do(t, fiber.MethodGet, "/metrics", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(raw), "http_requests_total")
}

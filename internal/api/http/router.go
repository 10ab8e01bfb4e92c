package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chamatrack/chama-service/internal/api/http/handlers"
	"github.com/chamatrack/chama-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Members        *handlers.MembersHandler
	Payments       *handlers.PaymentsHandler
	Reports        *handlers.ReportsHandler
	Reminders      *handlers.RemindersHandler
	Webhook        *handlers.WebhookHandler
	AuthMiddleware *auth.AuthMiddleware
	// Gatherer backs GET /metrics; nil leaves the route unregistered.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	app.Post("/auth/login", cfg.Auth.Login)
	app.Post("/webhooks/whatsapp", cfg.Webhook.WhatsApp)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireRole(auth.RoleAdmin))

	members := api.Group("/members")
	members.Get("/", cfg.Members.List)
	members.Post("/", cfg.Members.Create)
	members.Get("/:id", cfg.Members.Get)
	members.Get("/:id/payments", cfg.Members.Payments)
	members.Patch("/:id/paid", cfg.Members.SetPaid)
	members.Delete("/:id", cfg.Members.Delete)

	api.Post("/payments", cfg.Payments.Record)
	api.Get("/payments/recent", cfg.Payments.Recent)

	api.Get("/reports/balance", cfg.Reports.Balance)
	api.Get("/reports/balance.csv", cfg.Reports.BalanceCSV)
	api.Get("/stats", cfg.Reports.Stats)
	api.Get("/settings", cfg.Reports.GetSettings)
	api.Put("/settings", cfg.Reports.UpdateSettings)
	api.Post("/cycle/reset", cfg.Reports.ResetCycle)

	api.Get("/reminders", cfg.Reminders.List)
	api.Post("/reminders/send", cfg.Reminders.Send)
}

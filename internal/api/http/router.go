package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/callpool-service/internal/api/http/handlers"
	"github.com/spec-kit/callpool-service/internal/auth"
	"github.com/spec-kit/callpool-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Claims         *handlers.ClaimsHandler
	Items          *handlers.ItemsHandler
	Admin          *handlers.AdminHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
	AdminKeyHash   string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	me := app.Group("/me", cfg.AuthMiddleware.Handle, auth.RequireModerator())
	me.Get("", cfg.Claims.Profile)
	me.Post("/claims", cfg.Claims.Claim)
	me.Get("/items", cfg.Claims.MyItems)

	items := app.Group("/items", cfg.AuthMiddleware.Handle, auth.RequireModerator())
	items.Get("/:id", cfg.Items.Get)
	items.Post("/:id/resolve", cfg.Items.Resolve)
	items.Post("/:id/conversion", cfg.Items.RecordConversion)
	items.Delete("/:id/conversion", cfg.Items.ClearConversion)
	items.Post("/:id/reset",
		auth.RequireRole(domain.RoleElevated, domain.RoleSuperuser), cfg.Items.Reset)

	reports := app.Group("/reports", cfg.AuthMiddleware.Handle, auth.RequireModerator())
	reports.Get("/summary", cfg.Reports.Summary)
	reports.Get("/buckets", cfg.Reports.Buckets)

	admin := app.Group("/admin", auth.RequireAdminKey(cfg.AdminKeyHash))
	admin.Post("/items/import", cfg.Admin.ImportItems)
	admin.Get("/items", cfg.Admin.ListItems)
	admin.Post("/distribute", cfg.Admin.Distribute)
	admin.Get("/moderators", cfg.Admin.ListModerators)
	admin.Patch("/moderators/:id", cfg.Admin.UpdateModerator)
}

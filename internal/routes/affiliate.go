package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nexusplay/nexusplay/internal/affiliate"
	"github.com/nexusplay/nexusplay/internal/identity"
	"github.com/nexusplay/nexusplay/internal/middleware"
	"github.com/nexusplay/nexusplay/internal/reporting"
)

// RegisterAffiliateRoutes wires affiliate link management and the affiliate
// dashboard.
func RegisterAffiliateRoutes(r fiber.Router, h *affiliate.Handler, reports *reporting.Handler) {
	group := r.Group("/affiliate", middleware.RequireRole(identity.RoleAffiliate, identity.RoleAdmin))
	group.Get("/overview", reports.AffiliateOverview)
	group.Get("/performance", reports.Performance)
	group.Get("/links", h.Links)
	group.Post("/links", h.CreateLink)
}

// RegisterReferralRedirect wires the public click-tracking redirect. It lives
// at the app root so shared URLs stay short.
func RegisterReferralRedirect(app *fiber.App, h *affiliate.Handler) {
	app.Get("/r/:slug", h.Redirect)
}

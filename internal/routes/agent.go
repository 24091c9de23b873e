package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nexusplay/nexusplay/internal/commission"
	"github.com/nexusplay/nexusplay/internal/identity"
	"github.com/nexusplay/nexusplay/internal/middleware"
	"github.com/nexusplay/nexusplay/internal/reporting"
)

// RegisterAgentRoutes wires the agent dashboard: players, earnings and
// commission history.
func RegisterAgentRoutes(r fiber.Router, ids *identity.Handler, reports *reporting.Handler, commissions *commission.Handler) {
	group := r.Group("/agent", middleware.RequireRole(identity.RoleAgent, identity.RoleAdmin))
	group.Get("/overview", reports.AgentOverview)
	group.Get("/earnings", reports.EarningsChart)
	group.Get("/players", ids.Players)
	group.Post("/players", ids.CreatePlayer)
	group.Get("/commissions", commissions.List)
}

package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nexusplay/nexusplay/internal/payout"
)

// RegisterPayoutRoutes wires withdrawal endpoints for the authenticated
// party. Approval and rejection live under the admin group.
func RegisterPayoutRoutes(r fiber.Router, h *payout.Handler) {
	group := r.Group("/payouts")
	group.Post("", h.Request)
	group.Get("", h.History)
}

package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nexusplay/nexusplay/internal/commission"
	"github.com/nexusplay/nexusplay/internal/identity"
	"github.com/nexusplay/nexusplay/internal/middleware"
	"github.com/nexusplay/nexusplay/internal/payout"
	"github.com/nexusplay/nexusplay/internal/reporting"
	"github.com/nexusplay/nexusplay/internal/wallet"
)

// RegisterAdminRoutes wires back-office operations: payout review, wallet
// controls, activity reporting and account management.
func RegisterAdminRoutes(r fiber.Router, wallets *wallet.Handler, payouts *payout.Handler, commissions *commission.Handler, ids *identity.Handler, reports *reporting.Handler) {
	group := r.Group("/admin", middleware.RequireRole(identity.RoleAdmin))

	group.Get("/payouts/funnel", reports.WithdrawalFunnel)
	group.Post("/payouts/:transactionId/approve", payouts.Approve)
	group.Post("/payouts/:transactionId/reject", payouts.Reject)

	group.Post("/wallets/:partyId/freeze", wallets.Freeze)
	group.Post("/wallets/:partyId/unfreeze", wallets.Unfreeze)

	// Activity reporting from the gaming subsystem.
	group.Post("/activity/wager", wallets.Wager)
	group.Post("/activity/win", wallets.Win)

	group.Post("/commissions", commissions.Accrue)

	group.Post("/users/:userId/deactivate", ids.Deactivate)
	group.Post("/users/:userId/reactivate", ids.Reactivate)

	group.Get("/parties/:partyId/transactions", reports.Statement)
}

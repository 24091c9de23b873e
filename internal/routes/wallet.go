package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nexusplay/nexusplay/internal/wallet"
)

// RegisterWalletRoutes wires the authenticated party's wallet endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	group := r.Group("/wallet")
	group.Get("/balance", h.Balance)
	group.Get("/transactions", h.Transactions)
	group.Post("/deposit", h.Deposit)
}

package reporting

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nexusplay/nexusplay/internal/httperr"
	"github.com/nexusplay/nexusplay/internal/ledger"
)

// Handler exposes dashboard endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a reporting HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// AgentOverview returns the authenticated agent's dashboard summary.
func (h *Handler) AgentOverview(c *fiber.Ctx) error {
	agentID, _ := c.Locals("user_id").(string)
	if agentID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	overview, err := h.service.AgentOverview(c.UserContext(), agentID)
	if err != nil {
		return httperr.From(err)
	}
	return c.Status(http.StatusOK).JSON(overview)
}

// EarningsChart returns the agent's per-day commission rollups.
func (h *Handler) EarningsChart(c *fiber.Ctx) error {
	agentID, _ := c.Locals("user_id").(string)
	if agentID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	points, err := h.service.EarningsChart(c.UserContext(), agentID, c.QueryInt("days", 30))
	if err != nil {
		return httperr.From(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": points})
}

// Statement exports a party's transaction history. Admin only.
func (h *Handler) Statement(c *fiber.Ctx) error {
	entries, err := h.service.Statement(c.UserContext(), c.Params("partyId"), ledger.Filter{
		Type:   ledger.TransactionType(c.Query("type")),
		Status: ledger.Status(c.Query("status")),
		Limit:  c.QueryInt("limit", 100),
		Offset: c.QueryInt("offset", 0),
	})
	if err != nil {
		return httperr.From(err)
	}
	out := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		out = append(out, fiber.Map{
			"id":         e.ID,
			"wallet_id":  e.WalletID,
			"amount":     e.Amount,
			"type":       e.Type,
			"status":     e.Status,
			"metadata":   e.Metadata,
			"created_at": e.CreatedAt.UTC().Format(time.RFC3339Nano),
			"updated_at": e.UpdatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": out})
}

// AffiliateOverview returns the authenticated affiliate's dashboard summary.
func (h *Handler) AffiliateOverview(c *fiber.Ctx) error {
	affiliateID, _ := c.Locals("user_id").(string)
	if affiliateID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	overview, err := h.service.AffiliateOverview(c.UserContext(), affiliateID)
	if err != nil {
		return httperr.From(err)
	}
	return c.Status(http.StatusOK).JSON(overview)
}

// Performance returns the affiliate's per-day clicks and conversions.
func (h *Handler) Performance(c *fiber.Ctx) error {
	affiliateID, _ := c.Locals("user_id").(string)
	if affiliateID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	points, err := h.service.Performance(c.UserContext(), affiliateID, c.QueryInt("days", 30))
	if err != nil {
		return httperr.From(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": points})
}

// WithdrawalFunnel returns platform-wide withdrawal counts per stage. Admin
// only.
func (h *Handler) WithdrawalFunnel(c *fiber.Ctx) error {
	funnel, err := h.service.WithdrawalFunnel(c.UserContext())
	if err != nil {
		return httperr.From(err)
	}
	return c.Status(http.StatusOK).JSON(funnel)
}

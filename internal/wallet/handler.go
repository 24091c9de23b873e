package wallet

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nexusplay/nexusplay/internal/httperr"
	"github.com/nexusplay/nexusplay/internal/ledger"
	"github.com/nexusplay/nexusplay/internal/money"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type balanceResponse struct {
	PartyID  string      `json:"party_id"`
	WalletID string      `json:"wallet_id"`
	Balance  money.Money `json:"balance"`
	Currency string      `json:"currency"`
	Frozen   bool        `json:"frozen"`
	AsOf     string      `json:"as_of"`
}

type transactionResponse struct {
	ID        string          `json:"id"`
	WalletID  string          `json:"wallet_id"`
	Amount    money.Money     `json:"amount"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	Metadata  ledger.Metadata `json:"metadata,omitempty"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

func toTransactionResponse(t ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:        t.ID,
		WalletID:  t.WalletID,
		Amount:    t.Amount,
		Type:      string(t.Type),
		Status:    string(t.Status),
		Metadata:  t.Metadata,
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: t.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Balance returns the authenticated party's wallet snapshot, creating the
// wallet on first sight.
func (h *Handler) Balance(c *fiber.Ctx) error {
	partyID, _ := c.Locals("user_id").(string)
	if partyID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	if _, err := h.service.GetOrCreate(c.UserContext(), partyID); err != nil {
		return httperr.From(err)
	}
	bal, err := h.service.Balance(c.UserContext(), partyID)
	if err != nil {
		return httperr.From(err)
	}
	return c.Status(http.StatusOK).JSON(balanceResponse{
		PartyID:  bal.PartyID,
		WalletID: bal.WalletID,
		Balance:  bal.Amount,
		Currency: bal.Currency,
		Frozen:   bal.Frozen,
		AsOf:     bal.AsOf.Format(time.RFC3339Nano),
	})
}

// Transactions lists the authenticated party's ledger entries.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	partyID, _ := c.Locals("user_id").(string)
	if partyID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	entries, err := h.service.Statement(c.UserContext(), partyID,
		ledger.TransactionType(c.Query("type")), ledger.Status(c.Query("status")), limit, offset)
	if err != nil {
		return httperr.From(err)
	}
	out := make([]transactionResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toTransactionResponse(e))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": out})
}

type depositRequest struct {
	Amount money.Money `json:"amount"`
	Method string      `json:"method"`
}

// Deposit credits the authenticated party's wallet.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	partyID, _ := c.Locals("user_id").(string)
	if partyID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.service.Deposit(c.UserContext(), partyID, req.Amount, req.Method)
	if err != nil {
		return httperr.From(err)
	}
	return c.Status(http.StatusCreated).JSON(toTransactionResponse(entry))
}

type activityRequest struct {
	PartyID     string      `json:"party_id"`
	Amount      money.Money `json:"amount"`
	Description string      `json:"description"`
}

// Wager records a wager debit reported by the gaming subsystem.
func (h *Handler) Wager(c *fiber.Ctx) error {
	var req activityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.service.RecordWager(c.UserContext(), req.PartyID, req.Amount, req.Description)
	if err != nil {
		return httperr.From(err)
	}
	return c.Status(http.StatusCreated).JSON(toTransactionResponse(entry))
}

// Win records a win credit reported by the gaming subsystem.
func (h *Handler) Win(c *fiber.Ctx) error {
	var req activityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.service.RecordWin(c.UserContext(), req.PartyID, req.Amount, req.Description)
	if err != nil {
		return httperr.From(err)
	}
	return c.Status(http.StatusCreated).JSON(toTransactionResponse(entry))
}

// Freeze suspends all mutations on a wallet. Admin only.
func (h *Handler) Freeze(c *fiber.Ctx) error {
	if err := h.service.Freeze(c.UserContext(), c.Params("partyId")); err != nil {
		return httperr.From(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Unfreeze lifts a wallet suspension. Admin only.
func (h *Handler) Unfreeze(c *fiber.Ctx) error {
	if err := h.service.Unfreeze(c.UserContext(), c.Params("partyId")); err != nil {
		return httperr.From(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

package identity

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes identity endpoints that sit outside the auth token flow.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createPlayerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type userResponse struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	FullName        string `json:"full_name"`
	Role            string `json:"role"`
	AgentID         string `json:"agent_id,omitempty"`
	AffiliateLinkID string `json:"affiliate_link_id,omitempty"`
	Active          bool   `json:"active"`
	CreatedAt       string `json:"created_at"`
}

func toResponse(u User) userResponse {
	return userResponse{
		ID:              u.ID,
		Email:           u.Email,
		FullName:        u.FullName,
		Role:            u.Role,
		AgentID:         u.AgentID,
		AffiliateLinkID: u.AffiliateLinkID,
		Active:          u.Active,
		CreatedAt:       u.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Me returns the authenticated account.
func (h *Handler) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	user, err := h.service.Get(c.UserContext(), userID)
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toResponse(user))
}

// Players lists the authenticated agent's players.
func (h *Handler) Players(c *fiber.Ctx) error {
	agentID, _ := c.Locals("user_id").(string)
	if agentID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	users, err := h.service.Players(c.UserContext(), agentID, c.Query("search"), c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toResponse(u))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": out})
}

// CreatePlayer registers a player under the authenticated agent.
func (h *Handler) CreatePlayer(c *fiber.Ctx) error {
	agentID, _ := c.Locals("user_id").(string)
	if agentID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req createPlayerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.CreatePlayer(c.UserContext(), agentID, RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		if errors.Is(err, ErrWeakPassword) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return err
	}
	return c.Status(http.StatusCreated).JSON(toResponse(user))
}

// Deactivate disables an account. Admin only.
func (h *Handler) Deactivate(c *fiber.Ctx) error {
	if err := h.service.Deactivate(c.UserContext(), c.Params("userId")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Reactivate re-enables an account. Admin only.
func (h *Handler) Reactivate(c *fiber.Ctx) error {
	if err := h.service.Reactivate(c.UserContext(), c.Params("userId")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

package affiliate

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes affiliate link management plus the public click redirect.
type Handler struct {
	service *Service
}

// NewHandler constructs an affiliate HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createLinkRequest struct {
	Name      string `json:"name"`
	TargetURL string `json:"target_url"`
	Slug      string `json:"slug"`
}

type linkResponse struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	TargetURL string `json:"target_url"`
	Clicks    int    `json:"clicks"`
	CreatedAt string `json:"created_at"`
}

// CreateLink registers a referral link for the authenticated affiliate.
func (h *Handler) CreateLink(c *fiber.Ctx) error {
	affiliateID, _ := c.Locals("user_id").(string)
	if affiliateID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req createLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	link, err := h.service.CreateLink(c.UserContext(), affiliateID, req.Name, req.TargetURL, req.Slug)
	if err != nil {
		if errors.Is(err, ErrSlugTaken) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		if errors.Is(err, ErrInvalidSlug) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return err
	}
	return c.Status(http.StatusCreated).JSON(linkResponse{
		ID:        link.ID,
		Slug:      link.Slug,
		Name:      link.Name,
		TargetURL: link.TargetURL,
		CreatedAt: link.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

// Links lists the authenticated affiliate's links with click counts.
func (h *Handler) Links(c *fiber.Ctx) error {
	affiliateID, _ := c.Locals("user_id").(string)
	if affiliateID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	links, stats, err := h.service.Links(c.UserContext(), affiliateID)
	if err != nil {
		return err
	}
	clicksByLink := make(map[string]int, len(stats))
	for _, s := range stats {
		clicksByLink[s.LinkID] = s.Clicks
	}
	out := make([]linkResponse, 0, len(links))
	for _, link := range links {
		out = append(out, linkResponse{
			ID:        link.ID,
			Slug:      link.Slug,
			Name:      link.Name,
			TargetURL: link.TargetURL,
			Clicks:    clicksByLink[link.ID],
			CreatedAt: link.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": out})
}

// Redirect records the click and forwards the visitor. Public, no auth.
func (h *Handler) Redirect(c *fiber.Ctx) error {
	link, err := h.service.Track(c.UserContext(), c.Params("slug"), c.IP(), c.Get(fiber.HeaderUserAgent), c.Get(fiber.HeaderReferer))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return err
	}
	target := link.TargetURL
	if target == "" {
		target = "/"
	}
	return c.Redirect(target, http.StatusFound)
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nexusplay/nexusplay/internal/auth"
	"github.com/nexusplay/nexusplay/internal/config"
	"github.com/nexusplay/nexusplay/internal/identity"
)

// JWTAuth validates access tokens, checks the token version against the
// store, and stashes user_id and role in locals.
func JWTAuth(cfg config.Config, repo identity.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := auth.ParseAndVerifyHS256(tokenStr, []byte(cfg.JWTSecret))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		sub, _ := claims["sub"].(string)
		role, _ := claims["role"].(string)
		verFloat, _ := claims["ver"].(float64)

		user, err := repo.FindByID(c.UserContext(), sub)
		if err != nil || user.TokenVersion != int(verFloat) {
			return fiber.NewError(http.StatusUnauthorized, "token invalidated")
		}
		if !user.Active {
			return fiber.NewError(http.StatusUnauthorized, "account disabled")
		}

		c.Locals("user_id", sub)
		c.Locals("role", role)
		return c.Next()
	}
}

// RequireRole rejects requests whose role claim is not in the allowed set.
// Must run after JWTAuth.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(string)
		if _, ok := allowed[role]; !ok {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

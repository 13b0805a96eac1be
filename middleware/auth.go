// daily-challenge-system/middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/cases"
)

// UserContextMiddleware extracts the authenticated user's email set by the
// Gateway. Applied to routes under /s/ — the engine is keyed by normalized
// email, so the fold happens here once instead of in every handler.
func UserContextMiddleware() fiber.Handler {
	fold := cases.Fold()

	return func(c *fiber.Ctx) error {
		email := strings.TrimSpace(c.Get("X-User-Email"))
		rolesStr := c.Get("X-User-Roles")

		path := c.Path()
		isSecured := strings.HasPrefix(path, "/s/")
		if isSecured && email == "" {
			log.Printf("❌ [USER_CTX] X-User-Email required but missing on secured route: %s", path)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-Email — request must come through gateway with auth context",
			})
		}

		var roles []string
		if rolesStr != "" {
			for _, r := range strings.Split(rolesStr, ",") {
				r = strings.TrimSpace(r)
				if r != "" {
					roles = append(roles, r)
				}
			}
		}

		c.Locals("user_email", fold.String(email))
		c.Locals("user_roles", roles)

		return c.Next()
	}
}

// IsAdmin reports whether the gateway flagged an admin role on this request.
func IsAdmin(c *fiber.Ctx) bool {
	roles, _ := c.Locals("user_roles").([]string)
	for _, r := range roles {
		if r == "admin" {
			return true
		}
	}
	return false
}

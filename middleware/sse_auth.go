// daily-challenge-system/middleware/sse_auth.go
package middleware

import (
	"log"
	"strings"

	"daily-challenge-system/services"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/cases"
)

// SSEAuthMiddleware validates `token` and `device_id` from query params via
// the auth service. EventSource cannot send headers, so the status stream is
// the one route that authenticates this way instead of via the gateway.
//
// Usage:
//   app.Get("/challenge/status/stream", middleware.SSEAuthMiddleware(authClient), progressionService.StreamChallengeStatusSSE)
func SSEAuthMiddleware(authClient *services.AuthServiceClient) func(*fiber.Ctx) error {
	fold := cases.Fold()

	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(string(c.Request().URI().QueryArgs().Peek("token")))
		deviceID := strings.TrimSpace(string(c.Request().URI().QueryArgs().Peek("device_id")))

		if accessToken == "" || deviceID == "" {
			log.Printf("[SSEAuth] ❌ Missing query params: token(len=%d), device_id='%s'", len(accessToken), deviceID)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token or device_id in query",
			})
		}

		resp, err := authClient.ValidateToken(accessToken, deviceID)
		if err != nil {
			log.Printf("[SSEAuth] ❌ Validation failed for device %s: %v", deviceID, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals("user_email", fold.String(resp.Email))
		c.Locals("user_roles", resp.Roles)

		return c.Next()
	}
}

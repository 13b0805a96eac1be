// handlers/leaderboard_routes.go
package handlers

import (
	"daily-challenge-system/models"
	"daily-challenge-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLeaderboardRoutes(app *fiber.App, leaderboardService *services.LeaderboardService) {
	// Public read within the gateway perimeter — no user context needed
	app.Get("/leaderboard/:level", func(c *fiber.Ctx) error {
		level := models.ChallengeLevel(c.Params("level"))

		entries, err := leaderboardService.GetLeaderboard(level)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"level":   level,
			"entries": entries,
		})
	})
}

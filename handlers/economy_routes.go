// handlers/economy_routes.go
package handlers

import (
	"errors"

	"daily-challenge-system/middleware"
	"daily-challenge-system/models"
	"daily-challenge-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupEconomyRoutes(app *fiber.App, economyService *services.EconomyService) {
	securedGroup := app.Group("/s/economy", middleware.UserContextMiddleware())

	securedGroup.Post("/share", func(c *fiber.Ctx) error {
		email := c.Locals("user_email").(string)

		profile, err := economyService.RewardShare(email)
		if errors.Is(err, services.ErrAlreadyRewarded) {
			// Benign: nothing granted, nothing broken. Distinguished so the
			// UI doesn't claim a reward was given.
			return c.JSON(fiber.Map{
				"rewarded": false,
				"message":  "share reward already granted today",
			})
		}
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"rewarded": true,
			"coins":    profile.Coins,
		})
	})

	securedGroup.Post("/unlock", func(c *fiber.Ctx) error {
		email := c.Locals("user_email").(string)

		var req struct {
			Day int `json:"day"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}

		profile, charged, err := economyService.UnlockDay(email, req.Day)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"day":           req.Day,
			"charged":       charged,
			"coins":         profile.Coins,
			"unlocked_days": profile.UnlockedDays,
		})
	})

	securedGroup.Post("/switch-level", func(c *fiber.Ctx) error {
		email := c.Locals("user_email").(string)

		var req struct {
			Level models.ChallengeLevel `json:"level"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}

		profile, cost, err := economyService.SwitchLevel(email, req.Level)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"level": profile.Level,
			"cost":  cost,
			"coins": profile.Coins,
		})
	})

	securedGroup.Get("/packages", func(c *fiber.Ctx) error {
		return c.JSON(economyService.Config.CoinPackages)
	})

	// Service-to-service webhook from the payment gateway collaborator.
	// Gateway token auth applies globally; no user session on this path.
	app.Post("/payment/confirm", func(c *fiber.Ctx) error {
		var req struct {
			Reference string `json:"reference"`
			Email     string `json:"email"`
			Package   string `json:"package"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}
		if req.Reference == "" || req.Email == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "reference and email are required",
			})
		}

		credited, err := economyService.CreditPurchase(req.Reference, req.Email, req.Package)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"reference": req.Reference,
			"credited":  credited, // false = duplicate delivery, balance untouched
		})
	})
}

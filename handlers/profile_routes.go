// handlers/profile_routes.go
package handlers

import (
	"daily-challenge-system/middleware"
	"daily-challenge-system/models"
	"daily-challenge-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProfileRoutes(app *fiber.App, profileService *services.ProfileService, progressionService *services.ProgressionService) {
	// Registration is gateway-authenticated but carries its own email in the
	// body — the marketing site calls it before the user has a session.
	app.Post("/register", func(c *fiber.Ctx) error {
		var req struct {
			Email        string                `json:"email"`
			Level        models.ChallengeLevel `json:"level"`
			Purpose      string                `json:"purpose"`
			ReferralCode string                `json:"referral_code"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}
		if req.Email == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email is required"})
		}
		if req.Level == "" {
			req.Level = models.LevelBasic
		}

		profile, created, err := profileService.Register(req.Email, req.Level, req.Purpose, req.ReferralCode)
		if err != nil {
			return serviceError(c, err)
		}

		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(fiber.Map{
			"profile": profile,
			"created": created,
		})
	})

	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Get("/profile", func(c *fiber.Ctx) error {
		email := c.Locals("user_email").(string)

		profile, err := progressionService.GetProfile(email)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(profile)
	})

	securedGroup.Get("/referral", func(c *fiber.Ctx) error {
		email := c.Locals("user_email").(string)

		profile, grants, err := profileService.ReferralSummary(email)
		if err != nil {
			return serviceError(c, err)
		}

		var earned float64
		for _, g := range grants {
			earned += g.CoinsAwarded
		}
		return c.JSON(fiber.Map{
			"referral_code": profile.ReferralCode,
			"total_invited": len(grants),
			"coins_earned":  earned,
			"grants":        grants,
		})
	})
}

package handlers

import (
	"errors"

	"daily-challenge-system/services"

	"github.com/gofiber/fiber/v2"
)

// serviceError maps service sentinels onto HTTP responses. Economy and
// progression failures are user-actionable; anything unrecognized is treated
// as a store failure and reported generically.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrProfileNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "profile not found", "action": "please register again",
		})
	case errors.Is(err, services.ErrInsufficientCoins):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error": "not enough coins", "action": "buy coins to continue",
		})
	case errors.Is(err, services.ErrAttemptNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "quiz attempt not found"})
	case errors.Is(err, services.ErrAttemptFinished):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "quiz attempt already finished"})
	case errors.Is(err, services.ErrInvalidLevel),
		errors.Is(err, services.ErrInvalidDay),
		errors.Is(err, services.ErrWrongQuestion),
		errors.Is(err, services.ErrNotAnswered),
		errors.Is(err, services.ErrUnknownPackage),
		errors.Is(err, services.ErrSelfReferral),
		errors.Is(err, services.ErrSkipTooFar):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrBankMissing):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "question bank unavailable for this level and day",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "operation failed", "cause": err.Error(),
		})
	}
}

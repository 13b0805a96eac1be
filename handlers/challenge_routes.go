// handlers/challenge_routes.go
package handlers

import (
	"strconv"

	"daily-challenge-system/middleware"
	"daily-challenge-system/models"
	"daily-challenge-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupChallengeRoutes(app *fiber.App, quizService *services.QuizService, progressionService *services.ProgressionService, authClient *services.AuthServiceClient) {
	// SSE status stream authenticates via query token (EventSource cannot set headers)
	app.Get("/challenge/status/stream",
		middleware.SSEAuthMiddleware(authClient),
		progressionService.StreamChallengeStatusSSE)

	securedGroup := app.Group("/s/challenge", middleware.UserContextMiddleware())

	securedGroup.Get("/can-play/:day", func(c *fiber.Ctx) error {
		email := c.Locals("user_email").(string)
		day, err := strconv.Atoi(c.Params("day"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid day"})
		}

		gate, err := progressionService.CanPlay(email, day)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(gate)
	})

	securedGroup.Post("/start", func(c *fiber.Ctx) error {
		email := c.Locals("user_email").(string)

		var req struct {
			Day    int  `json:"day"`
			Weekly bool `json:"weekly"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}

		attempt, gate, err := quizService.StartDay(email, req.Day, req.Weekly)
		if err == services.ErrDayLocked {
			// Not an error from the user's perspective — the gate explains
			// what to do (wait out the cooldown or pay to unlock)
			return c.Status(fiber.StatusForbidden).JSON(gate)
		}
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(presentAttempt(attempt))
	})

	securedGroup.Get("/active", func(c *fiber.Ctx) error {
		email := c.Locals("user_email").(string)

		attempt, err := quizService.ActiveAttempt(email)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(presentAttempt(attempt))
	})

	securedGroup.Post("/answer", func(c *fiber.Ctx) error {
		email := c.Locals("user_email").(string)

		var req struct {
			AttemptID string `json:"attempt_id"`
			Question  int    `json:"question"`
			Selected  int    `json:"selected"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}

		attempt, result, err := quizService.SubmitAnswer(email, req.AttemptID, req.Question, req.Selected)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"attempt": presentAttempt(attempt),
			"result":  result,
		})
	})

	securedGroup.Post("/next", func(c *fiber.Ctx) error {
		email := c.Locals("user_email").(string)

		var req struct {
			AttemptID string `json:"attempt_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}

		attempt, err := quizService.Advance(email, req.AttemptID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(presentAttempt(attempt))
	})

	securedGroup.Post("/finish", func(c *fiber.Ctx) error {
		email := c.Locals("user_email").(string)

		var req struct {
			AttemptID string `json:"attempt_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}

		attempt, err := quizService.Finish(email, req.AttemptID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"attempt_id":   attempt.ID,
			"day":          attempt.Day,
			"score":        attempt.Score,
			"best_score":   attempt.BestScore,
			"day_advanced": attempt.DayAdvanced,
			"finished_at":  attempt.FinishedAt,
		})
	})

	// Admin: publish/replace a question bank
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware())

	adminGroup.Post("/question-banks", func(c *fiber.Ctx) error {
		if !middleware.IsAdmin(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
		}

		var bank models.QuestionBank
		if err := c.BodyParser(&bank); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}

		if err := quizService.Banks.Publish(c.Context(), &bank); err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":   "question bank published",
			"key":       services.BankKey(bank.Level, bank.Topic),
			"questions": len(bank.Questions),
		})
	})
}

// presentAttempt strips correct-answer indexes from an in-flight attempt so
// the client never sees the key before answering. Finished attempts are
// returned whole (the results screen shows explanations).
func presentAttempt(a *models.QuizAttempt) fiber.Map {
	questions := make([]fiber.Map, len(a.Questions))
	for i, q := range a.Questions {
		entry := fiber.Map{
			"prompt":  q.Prompt,
			"options": q.Options,
			"seconds": q.Seconds,
		}
		if q.Selected != nil {
			entry["selected"] = *q.Selected
		}
		if a.State == models.AttemptFinished || (q.Selected != nil) {
			entry["answer"] = q.Answer
			entry["explanation"] = q.Explanation
		}
		questions[i] = entry
	}
	return fiber.Map{
		"id":            a.ID,
		"day":           a.Day,
		"level":         a.Level,
		"weekly":        a.Weekly,
		"state":         a.State,
		"current_index": a.CurrentIndex,
		"score":         a.Score,
		"deadline":      a.Deadline,
		"questions":     questions,
		"started_at":    a.StartedAt,
		"finished_at":   a.FinishedAt,
	}
}

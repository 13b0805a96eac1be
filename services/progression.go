package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"daily-challenge-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// PlayGate is the answer to "can this user start day N right now".
// RequiresPayment means a coin unlock is offered as an override.
type PlayGate struct {
	Allowed         bool       `json:"allowed"`
	Reason          string     `json:"reason,omitempty"`
	RequiresPayment bool       `json:"requires_payment"`
	HoursRemaining  int        `json:"hours_remaining,omitempty"`
	UnlocksAt       *time.Time `json:"unlocks_at,omitempty"`
}

// CanPlayDay evaluates the gate rules against a profile snapshot, in priority
// order:
//  1. explicitly unlocked days (day 1 and paid unlocks) are always playable
//  2. past days are always replayable for score improvement
//  3. the current day waits out a wall-clock cooldown from the last completion
//  4. future days need a paid unlock, capped by MaxSkipAhead
//
// The gate is anchored to LastPlayedDate, not a running countdown, so closing
// and reopening the client never shortens or extends the wait.
func CanPlayDay(day int, p *models.ChallengeProfile, now time.Time, cfg EconomyConfig) PlayGate {
	if day < models.FirstDay || day > models.FinalDay {
		return PlayGate{Reason: fmt.Sprintf("day must be between %d and %d", models.FirstDay, models.FinalDay)}
	}

	if p.UnlockedDays.Contains(day) {
		return PlayGate{Allowed: true}
	}

	if day < p.CurrentDay {
		return PlayGate{Allowed: true}
	}

	if day == p.CurrentDay {
		if p.LastPlayedDate == nil {
			return PlayGate{Allowed: true} // first-ever attempt
		}
		cooldown := time.Duration(cfg.CooldownHours) * time.Hour
		unlocksAt := p.LastPlayedDate.Add(cooldown)
		if !now.Before(unlocksAt) {
			return PlayGate{Allowed: true}
		}
		remaining := unlocksAt.Sub(now)
		return PlayGate{
			Reason:          fmt.Sprintf("next challenge unlocks in %d hour(s)", int(remaining.Hours())),
			RequiresPayment: true,
			HoursRemaining:  int(remaining.Hours()),
			UnlocksAt:       &unlocksAt,
		}
	}

	// day > CurrentDay: skipping ahead is a paid unlock, not a hard wall
	gate := PlayGate{
		Reason:          "complete previous days first",
		RequiresPayment: day-p.CurrentDay <= cfg.MaxSkipAhead,
	}
	if !gate.RequiresPayment {
		gate.Reason = "complete previous days first (too far ahead to unlock)"
	}
	return gate
}

type ProgressionService struct {
	DB     *gorm.DB
	Config EconomyConfig
}

func NewProgressionService(db *gorm.DB, cfg EconomyConfig) *ProgressionService {
	return &ProgressionService{DB: db, Config: cfg}
}

// GetProfile fetches a profile by normalized email.
func (s *ProgressionService) GetProfile(email string) (*models.ChallengeProfile, error) {
	var p models.ChallengeProfile
	if err := s.DB.Where("email = ?", NormalizeEmail(email)).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CanPlay answers the gate for the stored profile.
func (s *ProgressionService) CanPlay(email string, day int) (PlayGate, error) {
	p, err := s.GetProfile(email)
	if err != nil {
		return PlayGate{}, err
	}
	return CanPlayDay(day, p, time.Now(), s.Config), nil
}

// challengeStatus is the SSE payload: enough for the dashboard to recompute
// its countdown on every tick instead of trusting a client-side timer.
type challengeStatus struct {
	Coins        float64    `json:"coins"`
	CurrentDay   int        `json:"current_day"`
	TotalScore   int        `json:"total_score"`
	Gate         PlayGate   `json:"gate"`
	NextUnlockAt *time.Time `json:"next_unlock_at,omitempty"`
}

// StreamChallengeStatusSSE streams the user's gate state and balance so the
// client can resync after backgrounding without polling storms.
func (s *ProgressionService) StreamChallengeStatusSSE(c *fiber.Ctx) error {
	email := c.Locals("user_email").(string)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	cooldown := time.Duration(s.Config.CooldownHours) * time.Hour

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var p models.ChallengeProfile
				if err := s.DB.Where("email = ?", email).First(&p).Error; err != nil {
					log.Printf("SSE query error for %s: %v", email, err)
					continue
				}

				status := challengeStatus{
					Coins:      p.Coins,
					CurrentDay: p.CurrentDay,
					TotalScore: p.TotalScore,
					Gate:       CanPlayDay(p.CurrentDay, &p, time.Now(), s.Config),
				}
				// Pre-announce the next unlock while an attempt is still running
				if p.LastChallengeStartedAt != nil && p.LastPlayedDate == nil {
					next := p.LastChallengeStartedAt.Add(cooldown)
					status.NextUnlockAt = &next
				} else if p.LastPlayedDate != nil {
					next := p.LastPlayedDate.Add(cooldown)
					status.NextUnlockAt = &next
				}

				payload, _ := json.Marshal(status)
				fmt.Fprintf(w, "event: status\ndata: %s\n\n", payload)

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				return
			}
		}
	})

	return nil
}

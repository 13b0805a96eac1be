package services

import (
	"testing"
	"time"

	"daily-challenge-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() *models.ChallengeProfile {
	return &models.ChallengeProfile{
		Email:           "user@example.com",
		Level:           models.LevelBasic,
		CurrentDay:      1,
		UnlockedDays:    models.DaySet{1},
		Scores:          models.ScoreMap{},
		CompletedLevels: models.LevelSet{},
	}
}

func TestCanPlayDay_UnlockedDays(t *testing.T) {
	now := time.Now()
	p := testProfile()
	p.CurrentDay = 2
	p.UnlockedDays = models.DaySet{1, 4}
	played := now.Add(-1 * time.Hour)
	p.LastPlayedDate = &played

	t.Run("Day1AlwaysUnlocked", func(t *testing.T) {
		gate := CanPlayDay(1, p, now, DefaultEconomy)
		assert.True(t, gate.Allowed)
	})

	t.Run("PaidUnlockBypassesGate", func(t *testing.T) {
		// Day 4 is ahead of current day 2, but was explicitly unlocked
		gate := CanPlayDay(4, p, now, DefaultEconomy)
		assert.True(t, gate.Allowed)
	})
}

func TestCanPlayDay_PastDaysReplayable(t *testing.T) {
	now := time.Now()
	p := testProfile()
	p.CurrentDay = 5
	played := now.Add(-2 * time.Hour)
	p.LastPlayedDate = &played

	for day := 1; day < 5; day++ {
		gate := CanPlayDay(day, p, now, DefaultEconomy)
		assert.True(t, gate.Allowed, "day %d should be replayable", day)
	}
}

func TestCanPlayDay_CooldownGate(t *testing.T) {
	now := time.Now()

	t.Run("FirstAttemptAllowed", func(t *testing.T) {
		p := testProfile()
		gate := CanPlayDay(1, p, now, DefaultEconomy)
		assert.True(t, gate.Allowed)
	})

	t.Run("Blocked23HoursAfterLastPlay", func(t *testing.T) {
		p := testProfile()
		p.CurrentDay = 2
		played := now.Add(-23 * time.Hour)
		p.LastPlayedDate = &played

		gate := CanPlayDay(2, p, now, DefaultEconomy)
		assert.False(t, gate.Allowed)
		assert.True(t, gate.RequiresPayment)
		assert.Equal(t, 1, gate.HoursRemaining)
		require.NotNil(t, gate.UnlocksAt)
		assert.Equal(t, played.Add(24*time.Hour), *gate.UnlocksAt)
	})

	t.Run("Allowed25HoursAfterLastPlay", func(t *testing.T) {
		p := testProfile()
		p.CurrentDay = 2
		played := now.Add(-25 * time.Hour)
		p.LastPlayedDate = &played

		gate := CanPlayDay(2, p, now, DefaultEconomy)
		assert.True(t, gate.Allowed)
	})

	t.Run("AllowedExactlyAtCooldown", func(t *testing.T) {
		p := testProfile()
		p.CurrentDay = 2
		played := now.Add(-24 * time.Hour)
		p.LastPlayedDate = &played

		gate := CanPlayDay(2, p, now, DefaultEconomy)
		assert.True(t, gate.Allowed)
	})
}

func TestCanPlayDay_FutureDays(t *testing.T) {
	now := time.Now()

	t.Run("SkipAheadOffersPayment", func(t *testing.T) {
		p := testProfile()
		gate := CanPlayDay(3, p, now, DefaultEconomy)
		assert.False(t, gate.Allowed)
		assert.True(t, gate.RequiresPayment)
		assert.Equal(t, "complete previous days first", gate.Reason)
	})

	t.Run("TooFarAheadNoPayment", func(t *testing.T) {
		cfg := DefaultEconomy
		cfg.MaxSkipAhead = 1

		p := testProfile()
		gate := CanPlayDay(4, p, now, cfg)
		assert.False(t, gate.Allowed)
		assert.False(t, gate.RequiresPayment)
	})
}

func TestCanPlayDay_InvalidDay(t *testing.T) {
	now := time.Now()
	p := testProfile()

	for _, day := range []int{0, -1, 7, 99} {
		gate := CanPlayDay(day, p, now, DefaultEconomy)
		assert.False(t, gate.Allowed, "day %d must be rejected", day)
		assert.False(t, gate.RequiresPayment)
	}
}

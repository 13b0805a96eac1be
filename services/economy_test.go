package services

import (
	"testing"
	"time"

	"daily-challenge-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyShareReward(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	t.Run("FirstShareCredits", func(t *testing.T) {
		p := testProfile()
		p.Coins = 1

		err := applyShareReward(p, now, DefaultEconomy)
		require.NoError(t, err)
		assert.Equal(t, 1.5, p.Coins)
		require.NotNil(t, p.LastShareDate)
		assert.Equal(t, now, *p.LastShareDate)
	})

	t.Run("SecondShareSameDayRejected", func(t *testing.T) {
		p := testProfile()
		require.NoError(t, applyShareReward(p, now, DefaultEconomy))

		later := now.Add(6 * time.Hour)
		err := applyShareReward(p, later, DefaultEconomy)
		assert.ErrorIs(t, err, ErrAlreadyRewarded)
		assert.Equal(t, 0.5, p.Coins) // balance unchanged by the rejected call
	})

	t.Run("NextCalendarDayCreditsAgain", func(t *testing.T) {
		p := testProfile()
		require.NoError(t, applyShareReward(p, now, DefaultEconomy))

		// 23:50 → 00:10 crosses midnight: different calendar day, short gap
		evening := time.Date(2026, 3, 14, 23, 50, 0, 0, time.UTC)
		p.LastShareDate = &evening
		afterMidnight := time.Date(2026, 3, 15, 0, 10, 0, 0, time.UTC)

		require.NoError(t, applyShareReward(p, afterMidnight, DefaultEconomy))
		assert.Equal(t, 1.0, p.Coins)
	})
}

func TestApplyUnlockDay(t *testing.T) {
	t.Run("DeductsAndUnlocks", func(t *testing.T) {
		p := testProfile()
		p.Coins = 5

		charged, err := applyUnlockDay(p, 2, DefaultEconomy)
		require.NoError(t, err)
		assert.Equal(t, 2.0, charged)
		assert.Equal(t, 3.0, p.Coins)
		assert.True(t, p.UnlockedDays.Contains(2))
	})

	t.Run("RepeatUnlockIsFreeNoOp", func(t *testing.T) {
		p := testProfile()
		p.Coins = 5
		_, err := applyUnlockDay(p, 2, DefaultEconomy)
		require.NoError(t, err)

		charged, err := applyUnlockDay(p, 2, DefaultEconomy)
		require.NoError(t, err)
		assert.Zero(t, charged)
		assert.Equal(t, 3.0, p.Coins) // only the first unlock deducted
	})

	t.Run("InsufficientCoins", func(t *testing.T) {
		p := testProfile()
		p.Coins = 1.5

		charged, err := applyUnlockDay(p, 2, DefaultEconomy)
		assert.ErrorIs(t, err, ErrInsufficientCoins)
		assert.Zero(t, charged)
		assert.Equal(t, 1.5, p.Coins)
		assert.False(t, p.UnlockedDays.Contains(2))
	})

	t.Run("SkipTooFar", func(t *testing.T) {
		cfg := DefaultEconomy
		cfg.MaxSkipAhead = 2

		p := testProfile()
		p.Coins = 10

		_, err := applyUnlockDay(p, 5, cfg)
		assert.ErrorIs(t, err, ErrSkipTooFar)
		assert.Equal(t, 10.0, p.Coins)
	})

	t.Run("InvalidDay", func(t *testing.T) {
		p := testProfile()
		p.Coins = 10

		for _, day := range []int{0, 7, -3} {
			_, err := applyUnlockDay(p, day, DefaultEconomy)
			assert.ErrorIs(t, err, ErrInvalidDay, "day %d", day)
		}
	})
}

func TestApplySwitchLevel(t *testing.T) {
	t.Run("PaidSwitch", func(t *testing.T) {
		p := testProfile()
		p.Coins = 2

		cost, err := applySwitchLevel(p, models.LevelAdvanced, DefaultEconomy)
		require.NoError(t, err)
		assert.Equal(t, 1.0, cost)
		assert.Equal(t, 1.0, p.Coins)
		assert.Equal(t, models.LevelAdvanced, p.Level)
	})

	t.Run("SameLevelNoOp", func(t *testing.T) {
		p := testProfile()
		p.Coins = 2

		cost, err := applySwitchLevel(p, models.LevelBasic, DefaultEconomy)
		require.NoError(t, err)
		assert.Zero(t, cost)
		assert.Equal(t, 2.0, p.Coins)
	})

	t.Run("FreeWhenCurrentLevelCompleted", func(t *testing.T) {
		p := testProfile()
		p.Coins = 0
		p.CompletedLevels = models.LevelSet{models.LevelBasic}

		cost, err := applySwitchLevel(p, models.LevelAdvanced, DefaultEconomy)
		require.NoError(t, err)
		assert.Zero(t, cost)
		assert.Equal(t, models.LevelAdvanced, p.Level)
	})

	t.Run("FreeWhenTargetCompleted", func(t *testing.T) {
		p := testProfile()
		p.Coins = 0
		p.CompletedLevels = models.LevelSet{models.LevelMaster}

		cost, err := applySwitchLevel(p, models.LevelMaster, DefaultEconomy)
		require.NoError(t, err)
		assert.Zero(t, cost)
	})

	t.Run("InsufficientCoins", func(t *testing.T) {
		p := testProfile()
		p.Coins = 0.5

		_, err := applySwitchLevel(p, models.LevelMaster, DefaultEconomy)
		assert.ErrorIs(t, err, ErrInsufficientCoins)
		assert.Equal(t, models.LevelBasic, p.Level)
		assert.Equal(t, 0.5, p.Coins)
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		p := testProfile()

		_, err := applySwitchLevel(p, models.ChallengeLevel("expert"), DefaultEconomy)
		assert.ErrorIs(t, err, ErrInvalidLevel)
	})

	t.Run("ProgressUntouched", func(t *testing.T) {
		p := testProfile()
		p.Coins = 3
		p.CurrentDay = 4
		p.UnlockedDays = models.DaySet{1, 2, 5}
		p.Scores = models.ScoreMap{"1": 20, "2": 25, "3": 18}

		_, err := applySwitchLevel(p, models.LevelAdvanced, DefaultEconomy)
		require.NoError(t, err)
		assert.Equal(t, 4, p.CurrentDay)
		assert.Equal(t, models.DaySet{1, 2, 5}, p.UnlockedDays)
		assert.Equal(t, models.ScoreMap{"1": 20, "2": 25, "3": 18}, p.Scores)
	})
}

func TestWithTxRetry(t *testing.T) {
	t.Run("RetriesConflictsUntilSuccess", func(t *testing.T) {
		calls := 0
		err := withTxRetry("TEST", "user@example.com", func() error {
			calls++
			if calls < 3 {
				return errString("ERROR: deadlock detected (SQLSTATE 40P01)")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("DomainErrorsNotRetried", func(t *testing.T) {
		calls := 0
		err := withTxRetry("TEST", "user@example.com", func() error {
			calls++
			return ErrInsufficientCoins
		})
		assert.ErrorIs(t, err, ErrInsufficientCoins)
		assert.Equal(t, 1, calls)
	})

	t.Run("GivesUpAfterBoundedAttempts", func(t *testing.T) {
		calls := 0
		err := withTxRetry("TEST", "user@example.com", func() error {
			calls++
			return errString("could not serialize access (SQLSTATE 40001)")
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Contains(t, err.Error(), "did not settle")
	})
}

func TestIsRetryableTxError(t *testing.T) {
	assert.False(t, isRetryableTxError(nil))
	assert.False(t, isRetryableTxError(ErrInsufficientCoins))
	assert.True(t, isRetryableTxError(errString("ERROR: deadlock detected (SQLSTATE 40P01)")))
	assert.True(t, isRetryableTxError(errString("could not serialize access (SQLSTATE 40001)")))
}

type errString string

func (e errString) Error() string { return string(e) }

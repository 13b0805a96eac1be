package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChallengeLevelValid(t *testing.T) {
	assert.True(t, LevelBasic.Valid())
	assert.True(t, LevelAdvanced.Valid())
	assert.True(t, LevelMaster.Valid())
	assert.False(t, ChallengeLevel("expert").Valid())
	assert.False(t, ChallengeLevel("").Valid())
}

func TestRecordScore(t *testing.T) {
	t.Run("FirstScoreStored", func(t *testing.T) {
		p := &ChallengeProfile{}
		best := p.RecordScore(1, 18)
		assert.Equal(t, 18, best)
		assert.Equal(t, 18, p.TotalScore)
	})

	t.Run("LowerReplayKeepsBest", func(t *testing.T) {
		p := &ChallengeProfile{Scores: ScoreMap{"2": 25}}
		best := p.RecordScore(2, 10)
		assert.Equal(t, 25, best)
		assert.Equal(t, 25, p.TotalScore)
	})

	t.Run("HigherReplayImproves", func(t *testing.T) {
		p := &ChallengeProfile{Scores: ScoreMap{"2": 25}}
		best := p.RecordScore(2, 28)
		assert.Equal(t, 28, best)
		assert.Equal(t, 28, p.TotalScore)
	})

	t.Run("TotalSumsAllDays", func(t *testing.T) {
		p := &ChallengeProfile{}
		p.RecordScore(1, 20)
		p.RecordScore(2, 15)
		p.RecordScore(3, 30)
		assert.Equal(t, 65, p.TotalScore)

		// Replaying day 2 worse leaves the total alone
		p.RecordScore(2, 5)
		assert.Equal(t, 65, p.TotalScore)
	})

	t.Run("ZeroScoreCounts", func(t *testing.T) {
		p := &ChallengeProfile{}
		best := p.RecordScore(4, 0)
		assert.Equal(t, 0, best)
		assert.Equal(t, 0, p.TotalScore)
	})
}

func TestDaySet(t *testing.T) {
	s := DaySet{1}
	assert.True(t, s.Contains(1))
	assert.False(t, s.Contains(3))

	s = s.Add(3)
	assert.True(t, s.Contains(3))

	// Re-adding never duplicates
	s = s.Add(3)
	assert.Equal(t, DaySet{1, 3}, s)
}

func TestLevelSet(t *testing.T) {
	s := LevelSet{}
	assert.False(t, s.Contains(LevelBasic))

	s = s.Add(LevelBasic)
	s = s.Add(LevelBasic)
	assert.Equal(t, LevelSet{LevelBasic}, s)
}

func TestScoreMapScanRoundTrip(t *testing.T) {
	m := ScoreMap{"1": 20, "6": 30}
	raw, err := m.Value()
	assert.NoError(t, err)

	var back ScoreMap
	assert.NoError(t, back.Scan(raw))
	assert.Equal(t, m, back)
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
)

// ChallengeLevel is the active difficulty tier of a profile.
type ChallengeLevel string

const (
	LevelBasic    ChallengeLevel = "basic"
	LevelAdvanced ChallengeLevel = "advanced"
	LevelMaster   ChallengeLevel = "master"
)

// Valid reports whether l is one of the known tiers.
func (l ChallengeLevel) Valid() bool {
	switch l {
	case LevelBasic, LevelAdvanced, LevelMaster:
		return true
	}
	return false
}

// FinalDay is the last playable challenge day; CurrentDay == FinalDay+1 means
// the user finished the whole sequence.
const (
	FirstDay = 1
	FinalDay = 6
)

// DaySet is a JSONB-backed set of unlocked day numbers.
type DaySet []int

func (s DaySet) Contains(day int) bool {
	for _, d := range s {
		if d == day {
			return true
		}
	}
	return false
}

// Add returns the set with day included (no duplicates, stable order).
func (s DaySet) Add(day int) DaySet {
	if s.Contains(day) {
		return s
	}
	return append(s, day)
}

func (s DaySet) Value() (driver.Value, error) {
	if s == nil {
		s = DaySet{}
	}
	return json.Marshal(s)
}

func (s *DaySet) Scan(value interface{}) error {
	return scanJSON(value, s)
}

// ScoreMap maps a day key ("1".."6") to the best score achieved on that day.
type ScoreMap map[string]int

// DayKey is the canonical scores key for a day number.
func DayKey(day int) string { return strconv.Itoa(day) }

// Total sums all stored day scores. TotalScore on the profile must always be
// recomputed from this, never mutated independently.
func (m ScoreMap) Total() int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}

func (m ScoreMap) Value() (driver.Value, error) {
	if m == nil {
		m = ScoreMap{}
	}
	return json.Marshal(m)
}

func (m *ScoreMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// LevelSet is a JSONB-backed set of tiers the user has completed (finished
// day 6 at least once with a nonzero score).
type LevelSet []ChallengeLevel

func (s LevelSet) Contains(level ChallengeLevel) bool {
	for _, l := range s {
		if l == level {
			return true
		}
	}
	return false
}

func (s LevelSet) Add(level ChallengeLevel) LevelSet {
	if s.Contains(level) {
		return s
	}
	return append(s, level)
}

func (s LevelSet) Value() (driver.Value, error) {
	if s == nil {
		s = LevelSet{}
	}
	return json.Marshal(s)
}

func (s *LevelSet) Scan(value interface{}) error {
	return scanJSON(value, s)
}

func scanJSON(value interface{}, dest interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	}
	return errors.New("unsupported column type for JSON scan")
}

// ChallengeProfile is the per-user ledger record for the daily challenge
// (denormalized for performance — one row answers every gate/economy question).
// Keyed by normalized email; created at registration, never deleted.
type ChallengeProfile struct {
	ID    string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Email string `gorm:"uniqueIndex;not null" json:"email"`

	Level   ChallengeLevel `gorm:"type:varchar(16);not null;index" json:"level"`
	Purpose string         `gorm:"type:varchar(64)" json:"purpose"` // user's stated goal, informational only

	// Progression
	CurrentDay   int    `gorm:"not null;default:1" json:"current_day"` // 1..7, 7 = all days finished
	UnlockedDays DaySet `gorm:"type:jsonb;not null;default:'[1]'" json:"unlocked_days"`

	LastPlayedDate         *time.Time `json:"last_played_date,omitempty"`          // last natural day completion; anchors the 24h gate
	LastChallengeStartedAt *time.Time `json:"last_challenge_started_at,omitempty"` // current-day attempt start

	// Scoring
	Scores     ScoreMap `gorm:"type:jsonb;not null;default:'{}'" json:"scores"`
	TotalScore int      `gorm:"not null;default:0;index" json:"total_score"`

	// Economy
	Coins           float64  `gorm:"not null;default:0" json:"coins"` // fractional coins are valid (0.5 share rewards)
	CompletedLevels LevelSet `gorm:"type:jsonb;not null;default:'[]'" json:"completed_levels"`

	ReferralCode  string     `gorm:"uniqueIndex;not null;type:varchar(12)" json:"referral_code"`
	LastShareDate *time.Time `json:"last_share_date,omitempty"` // bounds the share reward to once per calendar day

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// RecordScore stores best-of(old, new) for the day and recomputes TotalScore.
// Returns the score that remains on record.
func (p *ChallengeProfile) RecordScore(day, score int) int {
	if p.Scores == nil {
		p.Scores = ScoreMap{}
	}
	key := DayKey(day)
	if old, ok := p.Scores[key]; !ok || score > old {
		p.Scores[key] = score
	}
	p.TotalScore = p.Scores.Total()
	return p.Scores[key]
}

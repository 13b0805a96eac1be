package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// AttemptState is the lifecycle of one quiz attempt.
type AttemptState string

const (
	AttemptInProgress AttemptState = "in_progress" // waiting on an answer for Questions[CurrentIndex]
	AttemptAnswered   AttemptState = "answered"    // answered, waiting on explicit advance
	AttemptFinished   AttemptState = "finished"
)

// NoAnswer is the sentinel selection recorded when the countdown expires
// before the user picks an option. Always scored as incorrect.
const NoAnswer = -1

// AttemptQuestion is the server-side snapshot of one question as presented:
// options already shuffled, Answer relocated to match. Selected stays nil
// until the question is answered.
type AttemptQuestion struct {
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	Answer      int      `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
	Seconds     int      `json:"seconds"`
	Selected    *int     `json:"selected,omitempty"`
}

// AttemptQuestions is the JSONB column holding the full presented set.
type AttemptQuestions []AttemptQuestion

func (q AttemptQuestions) Value() (driver.Value, error) {
	if q == nil {
		q = AttemptQuestions{}
	}
	return json.Marshal(q)
}

func (q *AttemptQuestions) Scan(value interface{}) error {
	return scanJSON(value, q)
}

// QuizAttempt is one timed run through a day's question set. The per-question
// Deadline is the timing authority — the client countdown is advisory only.
type QuizAttempt struct {
	ID    string `gorm:"primaryKey;type:uuid" json:"id"`
	Email string `gorm:"index;not null" json:"email"`

	Day    int            `gorm:"not null" json:"day"`
	Level  ChallengeLevel `gorm:"type:varchar(16);not null" json:"level"`
	Weekly bool           `gorm:"default:false" json:"weekly"` // lightweight weekly quiz variant

	Questions    AttemptQuestions `gorm:"type:jsonb;not null" json:"questions"`
	CurrentIndex int              `gorm:"not null;default:0" json:"current_index"`
	Score        int              `gorm:"not null;default:0" json:"score"`

	State    AttemptState `gorm:"type:varchar(16);not null;index" json:"state"`
	Deadline *time.Time   `json:"deadline,omitempty"` // wall-clock deadline for the current question

	// Finalize result, kept so retried finish calls return the same outcome
	BestScore   int        `gorm:"default:0" json:"best_score"`
	DayAdvanced bool       `gorm:"default:false" json:"day_advanced"`
	StartedAt   time.Time  `gorm:"autoCreateTime" json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`

	Timestamps
}

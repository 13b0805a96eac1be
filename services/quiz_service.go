package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"daily-challenge-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// answerGrace absorbs network latency on the countdown boundary. The deadline
// itself is server-side: the client timer is advisory only.
const answerGrace = 2 * time.Second

// QuizService runs timed attempts: question selection, per-question
// countdowns, scoring, and the finalize write-back into the profile.
type QuizService struct {
	DB     *gorm.DB
	Banks  *QuestionBankStore
	Config EconomyConfig
}

func NewQuizService(db *gorm.DB, banks *QuestionBankStore, cfg EconomyConfig) *QuizService {
	return &QuizService{DB: db, Banks: banks, Config: cfg}
}

// quizTx runs one attempt mutation with the same conflict retry the economy
// path gets. Every transaction in this file that needs both rows takes the
// profile lock before the attempt lock — two tabs racing start/finish for
// the same user queue at the profile row instead of deadlocking.
func (s *QuizService) quizTx(email string, fn func(tx *gorm.DB) error) error {
	return withTxRetry("QUIZ", email, func() error {
		return s.DB.Transaction(fn)
	})
}

// questionSeconds is the per-question countdown for a tier.
func questionSeconds(level models.ChallengeLevel, cfg EconomyConfig) int {
	if level == models.LevelBasic {
		return cfg.BasicSeconds
	}
	return cfg.UpperSeconds
}

// shuffleOptions randomizes option order and relocates the correct index to
// follow its option.
func shuffleOptions(q models.Question, rng *rand.Rand) ([]string, int) {
	order := rng.Perm(len(q.Options))
	shuffled := make([]string, len(q.Options))
	answer := q.Answer
	for newIdx, oldIdx := range order {
		shuffled[newIdx] = q.Options[oldIdx]
		if oldIdx == q.Answer {
			answer = newIdx
		}
	}
	return shuffled, answer
}

// buildAttemptQuestions snapshots the presented set: first `count` questions
// of the fixed bank, each with shuffled options and the tier's countdown.
func buildAttemptQuestions(bank []models.Question, count, seconds int, rng *rand.Rand) models.AttemptQuestions {
	if count > len(bank) {
		count = len(bank)
	}
	out := make(models.AttemptQuestions, 0, count)
	for _, q := range bank[:count] {
		options, answer := shuffleOptions(q, rng)
		out = append(out, models.AttemptQuestion{
			Prompt:      q.Prompt,
			Options:     options,
			Answer:      answer,
			Explanation: q.Explanation,
			Seconds:     seconds,
		})
	}
	return out
}

// StartDay opens an attempt for the given day (or the weekly variant, which
// ignores the gate and never touches progression). If the user already has a
// live attempt it is resumed rather than replaced, so a second tab cannot
// spawn a parallel run.
func (s *QuizService) StartDay(email string, day int, weekly bool) (*models.QuizAttempt, PlayGate, error) {
	email = NormalizeEmail(email)
	var attempt *models.QuizAttempt
	var gate PlayGate

	err := s.quizTx(email, func(tx *gorm.DB) error {
		p, err := lockProfile(tx, email)
		if err != nil {
			return err
		}

		// Resume a live attempt if one exists
		var live models.QuizAttempt
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("email = ? AND state <> ?", email, models.AttemptFinished).
			First(&live).Error
		if err == nil {
			attempt = &live
			gate = PlayGate{Allowed: true}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now()
		seconds := questionSeconds(p.Level, s.Config)

		var bank []models.Question
		count := s.Config.DailyQuestionCount
		if weekly {
			bank, err = s.Banks.ForWeekly(p.Level)
			count = s.Config.WeeklyQuestionCount
			day = 0 // weekly runs outside the six-day sequence
		} else {
			gate = CanPlayDay(day, p, now, s.Config)
			if !gate.Allowed {
				return ErrDayLocked
			}
			bank, err = s.Banks.ForDay(p.Level, day)
		}
		if err != nil {
			return err
		}

		rng := rand.New(rand.NewSource(now.UnixNano()))
		deadline := now.Add(time.Duration(seconds) * time.Second)
		attempt = &models.QuizAttempt{
			ID:        uuid.NewString(),
			Email:     email,
			Day:       day,
			Level:     p.Level,
			Weekly:    weekly,
			Questions: buildAttemptQuestions(bank, count, seconds, rng),
			State:     models.AttemptInProgress,
			Deadline:  &deadline,
			StartedAt: now,
		}
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}

		if !weekly && day == p.CurrentDay {
			// Pre-announces the next unlock before the attempt completes
			p.LastChallengeStartedAt = &now
			if err := tx.Save(p).Error; err != nil {
				return err
			}
		}

		gate = PlayGate{Allowed: true}
		log.Printf("🎯 [QUIZ] %s started day=%d weekly=%t level=%s (%d questions, %ds each)",
			email, day, weekly, p.Level, len(attempt.Questions), seconds)
		return nil
	})

	return attempt, gate, err
}

// ActiveAttempt returns the user's live attempt, if any (dashboard resume).
func (s *QuizService) ActiveAttempt(email string) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	err := s.DB.Where("email = ? AND state <> ?", NormalizeEmail(email), models.AttemptFinished).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// AnswerResult tells the client how the submission scored.
type AnswerResult struct {
	Correct     bool   `json:"correct"`
	TimedOut    bool   `json:"timed_out"`
	Answer      int    `json:"answer"`
	Explanation string `json:"explanation,omitempty"`
	Score       int    `json:"score"`
}

// SubmitAnswer records a selection for the current question. Selections past
// the server-side deadline are stored as the no-answer sentinel and count as
// incorrect, no matter what the client timer claimed.
func (s *QuizService) SubmitAnswer(email, attemptID string, questionIndex, selected int) (*models.QuizAttempt, *AnswerResult, error) {
	email = NormalizeEmail(email)
	var attempt *models.QuizAttempt
	var result *AnswerResult

	// Answering only touches the attempt row; no profile lock needed
	err := s.quizTx(email, func(tx *gorm.DB) error {
		a, err := lockAttempt(tx, email, attemptID)
		if err != nil {
			return err
		}
		if a.State == models.AttemptFinished {
			return ErrAttemptFinished
		}
		if a.State != models.AttemptInProgress || questionIndex != a.CurrentIndex {
			return ErrWrongQuestion
		}
		q := &a.Questions[a.CurrentIndex]

		now := time.Now()
		timedOut := a.Deadline != nil && now.After(a.Deadline.Add(answerGrace))
		if !timedOut && (selected < 0 || selected >= len(q.Options)) {
			return fmt.Errorf("selected option %d out of range", selected)
		}

		choice := selected
		if timedOut {
			choice = models.NoAnswer
		}
		q.Selected = &choice

		correct := choice == q.Answer
		if correct {
			a.Score++
		}

		a.State = models.AttemptAnswered
		if err := tx.Save(a).Error; err != nil {
			return err
		}

		attempt = a
		result = &AnswerResult{
			Correct:     correct,
			TimedOut:    timedOut,
			Answer:      q.Answer,
			Explanation: q.Explanation,
			Score:       a.Score,
		}
		return nil
	})

	return attempt, result, err
}

// Advance moves an answered attempt to the next question, or finalizes it
// when the set is exhausted.
func (s *QuizService) Advance(email, attemptID string) (*models.QuizAttempt, error) {
	email = NormalizeEmail(email)
	var attempt *models.QuizAttempt

	err := s.quizTx(email, func(tx *gorm.DB) error {
		p, err := lockProfile(tx, email)
		if err != nil {
			return err
		}
		a, err := lockAttempt(tx, email, attemptID)
		if err != nil {
			return err
		}
		if a.State == models.AttemptFinished {
			return ErrAttemptFinished
		}
		if a.State != models.AttemptAnswered {
			return ErrNotAnswered
		}

		a.CurrentIndex++
		if a.CurrentIndex >= len(a.Questions) {
			if err := s.finalize(tx, p, a, time.Now()); err != nil {
				return err
			}
		} else {
			now := time.Now()
			deadline := now.Add(time.Duration(a.Questions[a.CurrentIndex].Seconds) * time.Second)
			a.State = models.AttemptInProgress
			a.Deadline = &deadline
			if err := tx.Save(a).Error; err != nil {
				return err
			}
		}
		attempt = a
		return nil
	})

	return attempt, err
}

// Finish ends the attempt now — used both for completing the set and for
// explicit early termination, which still counts as "played" (advancing the
// day and starting the cooldown) so a user cannot stall the clock by bailing
// out. Finishing an already-finished attempt returns the stored result, so
// the client can safely retry after a transient store failure.
func (s *QuizService) Finish(email, attemptID string) (*models.QuizAttempt, error) {
	email = NormalizeEmail(email)
	var attempt *models.QuizAttempt

	err := s.quizTx(email, func(tx *gorm.DB) error {
		p, err := lockProfile(tx, email)
		if err != nil {
			return err
		}
		a, err := lockAttempt(tx, email, attemptID)
		if err != nil {
			return err
		}
		if a.State == models.AttemptFinished {
			attempt = a // idempotent: same outcome on retry
			return nil
		}
		if err := s.finalize(tx, p, a, time.Now()); err != nil {
			return err
		}
		attempt = a
		return nil
	})

	return attempt, err
}

// applyAttemptResult folds a finished attempt into the profile: best-of
// score for the day, recomputed total, natural advancement (stamping the
// cooldown anchor) when this was the current progression day, and tier
// completion on a scoring final-day finish. Weekly attempts never touch the
// profile. Returns the score left on record and whether the day advanced.
func applyAttemptResult(p *models.ChallengeProfile, a *models.QuizAttempt, now time.Time) (int, bool) {
	if a.Weekly {
		return a.Score, false
	}

	best := p.RecordScore(a.Day, a.Score)

	advanced := false
	if a.Day == p.CurrentDay {
		if p.CurrentDay <= models.FinalDay {
			p.CurrentDay++
		}
		p.LastPlayedDate = &now
		advanced = true
	}

	if a.Day == models.FinalDay && a.Score > 0 {
		p.CompletedLevels = p.CompletedLevels.Add(a.Level)
	}
	return best, advanced
}

// finalize persists the attempt outcome. p must already be locked by the
// caller (profile before attempt, see quizTx).
func (s *QuizService) finalize(tx *gorm.DB, p *models.ChallengeProfile, a *models.QuizAttempt, now time.Time) error {
	a.State = models.AttemptFinished
	a.FinishedAt = &now
	a.Deadline = nil
	a.BestScore, a.DayAdvanced = applyAttemptResult(p, a, now)

	if !a.Weekly {
		if err := tx.Save(p).Error; err != nil {
			return err
		}
	}

	if err := tx.Save(a).Error; err != nil {
		return err
	}

	log.Printf("🏁 [QUIZ] %s finished day=%d weekly=%t score=%d/%d best=%d advanced=%t",
		a.Email, a.Day, a.Weekly, a.Score, len(a.Questions), a.BestScore, a.DayAdvanced)
	return nil
}

// SweepStaleAttempts finalizes attempts that have sat untouched for longer
// than maxIdle, through the normal early-termination path. Abandoned sessions
// therefore still count as played.
func (s *QuizService) SweepStaleAttempts(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)

	var stale []models.QuizAttempt
	if err := s.DB.Where("state <> ? AND updated_at < ?", models.AttemptFinished, cutoff).
		Limit(100).
		Find(&stale).Error; err != nil {
		log.Printf("❌ [QUIZ] Stale-attempt sweep query failed: %v", err)
		return
	}

	for _, a := range stale {
		if _, err := s.Finish(a.Email, a.ID); err != nil {
			log.Printf("❌ [QUIZ] Failed to finalize stale attempt %s: %v", a.ID, err)
		} else {
			log.Printf("🧹 [QUIZ] Finalized stale attempt %s (user %s, day %d)", a.ID, a.Email, a.Day)
		}
	}
}

func lockAttempt(tx *gorm.DB, email, attemptID string) (*models.QuizAttempt, error) {
	var a models.QuizAttempt
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND email = ?", attemptID, email).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	return &a, nil
}

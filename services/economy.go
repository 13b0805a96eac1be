package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"daily-challenge-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EconomyService owns every coin mutation. Each operation is a single
// transaction over a FOR UPDATE-locked profile row: two tabs racing the same
// balance serialize at the row lock instead of both spending the same coins.
type EconomyService struct {
	DB     *gorm.DB
	Config EconomyConfig
}

func NewEconomyService(db *gorm.DB, cfg EconomyConfig) *EconomyService {
	return &EconomyService{DB: db, Config: cfg}
}

// --- pure appliers -------------------------------------------------------
// These mutate a profile snapshot and report what happened; the service
// wraps them in a locked transaction. Keeping them pure keeps the balance
// invariants testable without a database.

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// applyShareReward grants the daily share bonus once per calendar day,
// measured on the server clock (UTC in deployment).
func applyShareReward(p *models.ChallengeProfile, now time.Time, cfg EconomyConfig) error {
	if p.LastShareDate != nil && sameCalendarDay(*p.LastShareDate, now) {
		return ErrAlreadyRewarded
	}
	p.Coins += cfg.ShareReward
	p.LastShareDate = &now
	return nil
}

// applyUnlockDay deducts the unlock cost and adds the day to the unlocked
// set. Unlocking an already-unlocked day is a free no-op, never a second
// deduction. Returns the amount actually charged.
func applyUnlockDay(p *models.ChallengeProfile, day int, cfg EconomyConfig) (float64, error) {
	if day < models.FirstDay || day > models.FinalDay {
		return 0, ErrInvalidDay
	}
	if p.UnlockedDays.Contains(day) {
		return 0, nil // idempotent success
	}
	if day-p.CurrentDay > cfg.MaxSkipAhead {
		return 0, ErrSkipTooFar
	}
	if p.Coins < cfg.UnlockDayCost {
		return 0, ErrInsufficientCoins
	}
	p.Coins -= cfg.UnlockDayCost
	p.UnlockedDays = p.UnlockedDays.Add(day)
	return cfg.UnlockDayCost, nil
}

// applySwitchLevel changes the active tier. Free when the current OR target
// tier is already completed; otherwise costs SwitchLevelCost. Progress
// (current day, scores, unlocked days) is never touched — the switch only
// changes which question bank and leaderboard division apply from here on.
func applySwitchLevel(p *models.ChallengeProfile, target models.ChallengeLevel, cfg EconomyConfig) (float64, error) {
	if !target.Valid() {
		return 0, ErrInvalidLevel
	}
	if target == p.Level {
		return 0, nil
	}
	cost := cfg.SwitchLevelCost
	if p.CompletedLevels.Contains(p.Level) || p.CompletedLevels.Contains(target) {
		cost = 0
	}
	if p.Coins < cost {
		return 0, ErrInsufficientCoins
	}
	p.Coins -= cost
	p.Level = target
	return cost, nil
}

// --- transactional operations --------------------------------------------

// profileTx runs fn against a locked profile and persists the result.
// Deadlocks/serialization hiccups retry the whole read-modify-write.
func (s *EconomyService) profileTx(email string, fn func(tx *gorm.DB, p *models.ChallengeProfile) error) (*models.ChallengeProfile, error) {
	email = NormalizeEmail(email)
	var p *models.ChallengeProfile
	err := withTxRetry("ECONOMY", email, func() error {
		return s.DB.Transaction(func(tx *gorm.DB) error {
			var txErr error
			p, txErr = lockProfile(tx, email)
			if txErr != nil {
				return txErr
			}
			if txErr = fn(tx, p); txErr != nil {
				return txErr
			}
			return tx.Save(p).Error
		})
	})
	return p, err
}

// withTxRetry re-runs a transaction closure after a deadlock or
// serialization abort, which postgres resolves by killing one participant.
// Bounded, so a genuinely stuck row fails loudly instead of spinning.
func withTxRetry(tag, subject string, run func() error) error {
	const maxAttempts = 3
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = run()
		if err == nil || !isRetryableTxError(err) {
			return err
		}
		log.Printf("🔁 [%s] Retrying %s after conflict (attempt %d/%d): %v", tag, subject, attempt, maxAttempts, err)
	}
	return fmt.Errorf("transaction for %s did not settle after %d attempts: %w", subject, maxAttempts, err)
}

func isRetryableTxError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	// postgres deadlock / serialization failure
	return strings.Contains(msg, "40001") || strings.Contains(msg, "40P01") ||
		strings.Contains(msg, "deadlock detected")
}

// RewardShare grants the once-a-day share bonus. ErrAlreadyRewarded is a
// benign outcome the handler reports without claiming a reward was given.
func (s *EconomyService) RewardShare(email string) (*models.ChallengeProfile, error) {
	p, err := s.profileTx(email, func(tx *gorm.DB, p *models.ChallengeProfile) error {
		return applyShareReward(p, time.Now(), s.Config)
	})
	if err == nil {
		log.Printf("💰 [ECONOMY] Share reward +%.1f → %s (balance %.1f)", s.Config.ShareReward, p.Email, p.Coins)
	}
	return p, err
}

// UnlockDay spends coins to bypass the cooldown or skip ahead.
func (s *EconomyService) UnlockDay(email string, day int) (*models.ChallengeProfile, float64, error) {
	var charged float64
	p, err := s.profileTx(email, func(tx *gorm.DB, p *models.ChallengeProfile) error {
		var applyErr error
		charged, applyErr = applyUnlockDay(p, day, s.Config)
		return applyErr
	})
	if err == nil {
		log.Printf("🔓 [ECONOMY] Day %d unlocked for %s (charged %.1f, balance %.1f)", day, p.Email, charged, p.Coins)
	}
	return p, charged, err
}

// SwitchLevel changes the active tier, waiving the fee when either side of
// the switch is a completed tier.
func (s *EconomyService) SwitchLevel(email string, target models.ChallengeLevel) (*models.ChallengeProfile, float64, error) {
	var cost float64
	p, err := s.profileTx(email, func(tx *gorm.DB, p *models.ChallengeProfile) error {
		var applyErr error
		cost, applyErr = applySwitchLevel(p, target, s.Config)
		return applyErr
	})
	if err == nil {
		log.Printf("🔀 [ECONOMY] %s switched to %s (cost %.1f, balance %.1f)", p.Email, target, cost, p.Coins)
	}
	return p, cost, err
}

// GrantReferralCredit credits the owner of code for referring referredEmail.
// The ReferralGrant row's unique index on the referred email makes replays of
// the same registration event a no-op.
func (s *EconomyService) GrantReferralCredit(code, referredEmail string) error {
	referredEmail = NormalizeEmail(referredEmail)
	code = strings.ToUpper(strings.TrimSpace(code))

	return s.DB.Transaction(func(tx *gorm.DB) error {
		referrer, err := lockReferrerByCode(tx, code)
		if err != nil {
			return err
		}
		if referrer.Email == referredEmail {
			return ErrSelfReferral
		}

		now := time.Now()
		grant := models.ReferralGrant{
			ReferrerEmail:    referrer.Email,
			ReferredEmail:    referredEmail,
			ReferralCodeUsed: code,
			CoinsAwarded:     s.Config.ReferralReward,
			AwardedAt:        &now,
		}
		if err := tx.Create(&grant).Error; err != nil {
			if isUniqueViolation(err) {
				return nil // this registration already credited someone
			}
			return err
		}

		referrer.Coins += s.Config.ReferralReward
		if err := tx.Save(referrer).Error; err != nil {
			return err
		}
		log.Printf("🤝 [ECONOMY] Referral credit +%.1f → %s (code %s used by %s)",
			s.Config.ReferralReward, referrer.Email, code, referredEmail)
		return nil
	})
}

// CreditPurchase applies a confirmed coin top-up from the payment gateway.
// reference is the gateway transaction reference; a duplicate confirmation
// returns (false, nil) and never double-credits.
func (s *EconomyService) CreditPurchase(reference, email, pkg string) (bool, error) {
	coins, ok := s.Config.CoinPackages[pkg]
	if !ok {
		return false, ErrUnknownPackage
	}
	email = NormalizeEmail(email)

	credited := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		purchase := models.CoinPurchase{
			ID:        uuid.NewString(),
			Reference: reference,
			Email:     email,
			Package:   pkg,
			Coins:     coins,
		}
		if err := tx.Create(&purchase).Error; err != nil {
			if isUniqueViolation(err) {
				log.Printf("↩️  [ECONOMY] Duplicate payment confirmation %s ignored", reference)
				return nil
			}
			return err
		}

		p, err := lockProfile(tx, email)
		if err != nil {
			return err
		}
		p.Coins += coins
		if err := tx.Save(p).Error; err != nil {
			return err
		}
		credited = true
		log.Printf("💳 [ECONOMY] Purchase %s: +%.1f coins → %s (balance %.1f)", reference, coins, email, p.Coins)
		return nil
	})
	return credited, err
}

func lockReferrerByCode(tx *gorm.DB, code string) (*models.ChallengeProfile, error) {
	var p models.ChallengeProfile
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("referral_code = ?", code).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

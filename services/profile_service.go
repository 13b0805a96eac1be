package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"daily-challenge-system/models"

	"golang.org/x/text/cases"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NormalizeEmail is the canonical profile key: trimmed and Unicode
// case-folded, so Foo@Bar.com and foo@bar.com hit the same row.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// referral codes skip 0/O/1/I to survive being read out loud
const referralCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const referralCodeLength = 6

func newReferralCode() string {
	b := make([]byte, referralCodeLength)
	for i := range b {
		b[i] = referralCodeCharset[rand.Intn(len(referralCodeCharset))]
	}
	return string(b)
}

type ProfileService struct {
	DB      *gorm.DB
	Economy *EconomyService
}

func NewProfileService(db *gorm.DB, economy *EconomyService) *ProfileService {
	return &ProfileService{DB: db, Economy: economy}
}

// Register creates the challenge profile for a new participant: day 1
// unlocked, zero coins, empty scores, fresh referral code. If a referrer's
// code is supplied the referrer is credited exactly once (creation-time only —
// re-registering with the same email returns the existing profile untouched).
func (s *ProfileService) Register(email string, level models.ChallengeLevel, purpose, referredBy string) (*models.ChallengeProfile, bool, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, false, fmt.Errorf("email is required")
	}
	if !level.Valid() {
		return nil, false, ErrInvalidLevel
	}

	var existing models.ChallengeProfile
	err := s.DB.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, false, nil // re-login, not a new registration
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	profile := &models.ChallengeProfile{
		Email:           email,
		Level:           level,
		Purpose:         purpose,
		CurrentDay:      models.FirstDay,
		UnlockedDays:    models.DaySet{models.FirstDay},
		Scores:          models.ScoreMap{},
		CompletedLevels: models.LevelSet{},
	}

	// Reserve a fresh code atomically; regenerate on collision.
	const maxCodeAttempts = 5
	for attempt := 0; ; attempt++ {
		profile.ReferralCode = newReferralCode()
		err = s.DB.Create(profile).Error
		if err == nil {
			break
		}
		if isUniqueViolation(err) && attempt < maxCodeAttempts {
			log.Printf("⚠️  Referral code collision (%s), regenerating", profile.ReferralCode)
			continue
		}
		return nil, false, err
	}

	if referredBy != "" {
		if err := s.Economy.GrantReferralCredit(referredBy, email); err != nil {
			// The new profile exists either way; referral credit is best-effort
			// but logged loudly because it is user-visible money.
			log.Printf("❌ Referral credit failed for code %s (new user %s): %v", referredBy, email, err)
		}
	}

	log.Printf("🎓 New challenge profile: %s (level=%s, code=%s)", email, level, profile.ReferralCode)
	return profile, true, nil
}

// ReferralSummary returns the user's own code plus every grant it produced.
func (s *ProfileService) ReferralSummary(email string) (*models.ChallengeProfile, []models.ReferralGrant, error) {
	var p models.ChallengeProfile
	if err := s.DB.Where("email = ?", NormalizeEmail(email)).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProfileNotFound
		}
		return nil, nil, err
	}
	var grants []models.ReferralGrant
	if err := s.DB.Where("referrer_email = ?", p.Email).
		Order("created_at DESC").
		Find(&grants).Error; err != nil {
		return nil, nil, err
	}
	return &p, grants, nil
}

// lockProfile loads a profile row FOR UPDATE inside tx. Every mutation in the
// economy/progression path goes through this so concurrent requests for the
// same user serialize instead of both reading the same balance.
func lockProfile(tx *gorm.DB, email string) (*models.ChallengeProfile, error) {
	var p models.ChallengeProfile
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("email = ?", email).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// pgx reports SQLSTATE 23505 for unique violations
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "duplicate key")
}

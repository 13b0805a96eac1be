package services

import (
	"daily-challenge-system/models"

	"gorm.io/gorm"
)

// LeaderboardEntry is the public projection of one ranked profile — never
// the whole row (no coins, no referral code).
type LeaderboardEntry struct {
	Rank       int                   `json:"rank"`
	Email      string                `json:"email"`
	Level      models.ChallengeLevel `json:"level"`
	CurrentDay int                   `json:"current_day"`
	TotalScore int                   `json:"total_score"`
}

type LeaderboardService struct {
	DB     *gorm.DB
	Config EconomyConfig
}

func NewLeaderboardService(db *gorm.DB, cfg EconomyConfig) *LeaderboardService {
	return &LeaderboardService{DB: db, Config: cfg}
}

// GetLeaderboard returns the top N profiles in a tier, total score
// descending. Ties break on earliest registration, then email, so the
// ordering is stable across requests. Read-only; recomputed per request.
func (s *LeaderboardService) GetLeaderboard(level models.ChallengeLevel) ([]LeaderboardEntry, error) {
	if !level.Valid() {
		return nil, ErrInvalidLevel
	}

	var profiles []models.ChallengeProfile
	if err := s.DB.Where("level = ?", level).
		Order("total_score DESC, created_at ASC, email ASC").
		Limit(s.Config.LeaderboardSize).
		Find(&profiles).Error; err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(profiles))
	for i, p := range profiles {
		entries[i] = LeaderboardEntry{
			Rank:       i + 1,
			Email:      p.Email,
			Level:      p.Level,
			CurrentDay: p.CurrentDay,
			TotalScore: p.TotalScore,
		}
	}
	return entries, nil
}

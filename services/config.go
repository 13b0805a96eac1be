package services

import (
	"log"
	"os"
	"strconv"
)

// EconomyConfig defines every tunable coin value and gate parameter in one
// place (env-overridable). Call sites must never hardcode costs — the old
// dashboard had both 1-coin and 3-coin level switches depending on where you
// clicked, and this struct is the single source of truth that resolves that.
type EconomyConfig struct {
	UnlockDayCost   float64 // pay-to-unlock a gated or future day
	SwitchLevelCost float64 // tier switch when neither tier is completed
	ShareReward     float64 // once per calendar day
	ReferralReward  float64 // credited to the referrer at registration

	CooldownHours int // natural-progression gate between days
	MaxSkipAhead  int // how many days past current_day a paid unlock may reach

	DailyQuestionCount  int
	WeeklyQuestionCount int
	BasicSeconds        int // per-question countdown, basic tier
	UpperSeconds        int // per-question countdown, advanced/master tiers

	LeaderboardSize int

	// CoinPackages maps a payment-gateway package code to the coins credited
	// when that purchase is confirmed.
	CoinPackages map[string]float64
}

var DefaultEconomy = EconomyConfig{
	UnlockDayCost:   2,
	SwitchLevelCost: 1,
	ShareReward:     0.5,
	ReferralReward:  0.5,

	CooldownHours: 24,
	MaxSkipAhead:  6, // whole week reachable; tighten via MAX_SKIP_AHEAD if product decides otherwise

	DailyQuestionCount:  30,
	WeeklyQuestionCount: 5,
	BasicSeconds:        30,
	UpperSeconds:        40,

	LeaderboardSize: 20,

	CoinPackages: map[string]float64{
		"starter": 5,
		"value":   12,
		"mega":    30,
	},
}

// LoadEconomyConfig returns DefaultEconomy with env overrides applied.
func LoadEconomyConfig() EconomyConfig {
	cfg := DefaultEconomy

	if v := os.Getenv("SWITCH_LEVEL_COST"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.SwitchLevelCost = f
		} else {
			log.Printf("⚠️  Invalid SWITCH_LEVEL_COST=%q, keeping default %.1f", v, cfg.SwitchLevelCost)
		}
	}
	if v := os.Getenv("UNLOCK_DAY_COST"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.UnlockDayCost = f
		} else {
			log.Printf("⚠️  Invalid UNLOCK_DAY_COST=%q, keeping default %.1f", v, cfg.UnlockDayCost)
		}
	}
	if v := os.Getenv("MAX_SKIP_AHEAD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxSkipAhead = n
		} else {
			log.Printf("⚠️  Invalid MAX_SKIP_AHEAD=%q, keeping default %d", v, cfg.MaxSkipAhead)
		}
	}

	return cfg
}

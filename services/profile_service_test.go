package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Foo@Bar.com", "foo@bar.com"},
		{"  user@example.com  ", "user@example.com"},
		{"ALICE@EXAMPLE.COM", "alice@example.com"},
		{"user@example.com", "user@example.com"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeEmail(tc.in), "input %q", tc.in)
	}
}

func TestNewReferralCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := newReferralCode()
		require.Len(t, code, referralCodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(referralCodeCharset, r),
				"code %s contains %q outside the charset", code, r)
		}
		seen[code] = true
	}
	// 32^6 keyspace: 100 draws colliding entirely would mean a broken generator
	assert.Greater(t, len(seen), 90)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(ErrProfileNotFound))
	assert.True(t, isUniqueViolation(errString(`ERROR: duplicate key value violates unique constraint "idx_email" (SQLSTATE 23505)`)))
}

func TestLoadEconomyConfigOverrides(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("SWITCH_LEVEL_COST", "")
		t.Setenv("UNLOCK_DAY_COST", "")
		t.Setenv("MAX_SKIP_AHEAD", "")

		cfg := LoadEconomyConfig()
		assert.Equal(t, 1.0, cfg.SwitchLevelCost)
		assert.Equal(t, 2.0, cfg.UnlockDayCost)
		assert.Equal(t, 6, cfg.MaxSkipAhead)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("SWITCH_LEVEL_COST", "3")
		t.Setenv("UNLOCK_DAY_COST", "4.5")
		t.Setenv("MAX_SKIP_AHEAD", "2")

		cfg := LoadEconomyConfig()
		assert.Equal(t, 3.0, cfg.SwitchLevelCost)
		assert.Equal(t, 4.5, cfg.UnlockDayCost)
		assert.Equal(t, 2, cfg.MaxSkipAhead)
	})

	t.Run("GarbageKeepsDefaults", func(t *testing.T) {
		t.Setenv("SWITCH_LEVEL_COST", "free")
		t.Setenv("MAX_SKIP_AHEAD", "-1")

		cfg := LoadEconomyConfig()
		assert.Equal(t, 1.0, cfg.SwitchLevelCost)
		assert.Equal(t, 6, cfg.MaxSkipAhead)
	})
}

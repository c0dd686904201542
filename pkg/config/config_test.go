package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("WITHDRAWAL_FEE_PERCENT", "2")
	t.Setenv("MIN_WITHDRAWAL_AMOUNT", "1000")
	t.Setenv("DUAL_CONTROL_THRESHOLD", "100000")
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		setRequired(t)

		snap, err := Load()
		require.NoError(t, err)

		assert.True(t, snap.FeePercent.Equal(decimal.NewFromInt(2)))
		assert.Equal(t, int64(1000), snap.MinWithdrawalAmount)
		assert.Equal(t, int64(100000), snap.DualControlThreshold)
		assert.False(t, snap.AutoWithdrawalEnabled)
		assert.False(t, snap.EmergencyStopWithdrawals)
		assert.Equal(t, 5, snap.MaxSettlementRetries)
		assert.Equal(t, time.Minute, snap.BaseRetryDelay)
		assert.Equal(t, 15*time.Minute, snap.StuckThreshold)
	})

	t.Run("Missing Fee Percent Fails", func(t *testing.T) {
		setRequired(t)
		t.Setenv("WITHDRAWAL_FEE_PERCENT", "")

		_, err := Load()
		assert.ErrorContains(t, err, "WITHDRAWAL_FEE_PERCENT")
	})

	t.Run("Malformed Fee Percent Fails", func(t *testing.T) {
		setRequired(t)
		t.Setenv("WITHDRAWAL_FEE_PERCENT", "two percent")

		_, err := Load()
		assert.ErrorContains(t, err, "invalid WITHDRAWAL_FEE_PERCENT")
	})

	t.Run("Fee Percent Out Of Range Fails", func(t *testing.T) {
		setRequired(t)
		t.Setenv("WITHDRAWAL_FEE_PERCENT", "100")

		_, err := Load()
		assert.ErrorContains(t, err, "must be in [0, 100)")
	})

	t.Run("Missing Minimum Amount Fails", func(t *testing.T) {
		setRequired(t)
		t.Setenv("MIN_WITHDRAWAL_AMOUNT", "")

		_, err := Load()
		assert.ErrorContains(t, err, "MIN_WITHDRAWAL_AMOUNT")
	})

	t.Run("Toggles And Overrides", func(t *testing.T) {
		setRequired(t)
		t.Setenv("AUTO_WITHDRAWAL_ENABLED", "true")
		t.Setenv("EMERGENCY_STOP_WITHDRAWALS", "true")
		t.Setenv("BASE_RETRY_DELAY", "30s")
		t.Setenv("DAILY_WITHDRAWAL_CAP", "5000000")

		snap, err := Load()
		require.NoError(t, err)

		assert.True(t, snap.AutoWithdrawalEnabled)
		assert.True(t, snap.EmergencyStopWithdrawals)
		assert.Equal(t, 30*time.Second, snap.BaseRetryDelay)
		assert.Equal(t, int64(5000000), snap.DailyWithdrawalCap)
	})
}

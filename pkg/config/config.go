package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is an immutable view of the global platform configuration. A single
// snapshot is threaded through each request or worker invocation so that
// validation and execution observe the same values.
type Snapshot struct {
	// FeePercent is the withdrawal service fee as a percentage of the gross
	// amount, e.g. 2 for 2%. Load fails if it is absent or malformed; the
	// pipeline must never fall back to a zero fee.
	FeePercent decimal.Decimal

	// MinWithdrawalAmount is the configured floor, in minor units.
	MinWithdrawalAmount int64

	// AutoWithdrawalEnabled is the global toggle for same-flow settlement
	// without manual approval.
	AutoWithdrawalEnabled bool

	// DailyWithdrawalCap is the platform-wide daily cap in minor units.
	// Zero disables the cap.
	DailyWithdrawalCap int64

	// AutoPayoutMultiplier caps lifetime withdrawals at this multiple of
	// lifetime deposits for auto-withdrawal eligibility.
	AutoPayoutMultiplier decimal.Decimal

	// EmergencyStopWithdrawals is the global circuit breaker.
	EmergencyStopWithdrawals bool

	// DualControlThreshold is the amount at or above which approval requires
	// a two-admin escrow, in minor units.
	DualControlThreshold int64

	// EscrowExpiry bounds how long a pending escrow action stays actionable.
	EscrowExpiry time.Duration

	// MaxSettlementRetries and BaseRetryDelay parameterize the payment retry
	// engine's exponential backoff.
	MaxSettlementRetries int
	BaseRetryDelay       time.Duration

	// RetryLeaseTTL bounds how long one worker may hold a claimed retry record.
	RetryLeaseTTL time.Duration

	// LockMaxAttempts and LockBaseDelay parameterize the account lock-conflict
	// retry loop in the request handler.
	LockMaxAttempts int
	LockBaseDelay   time.Duration

	// StuckThreshold is how long a PROCESSING withdrawal may go without an
	// update before the reconciler re-queries the external ledger.
	StuckThreshold time.Duration

	// GatewayTimeout bounds every call to the external payment network.
	GatewayTimeout time.Duration
}

// Load reads the snapshot from the environment. It fails rather than default
// on financially significant values.
func Load() (*Snapshot, error) {
	feeStr := os.Getenv("WITHDRAWAL_FEE_PERCENT")
	if feeStr == "" {
		return nil, fmt.Errorf("WITHDRAWAL_FEE_PERCENT environment variable is required")
	}
	feePercent, err := decimal.NewFromString(feeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid WITHDRAWAL_FEE_PERCENT %q: %w", feeStr, err)
	}
	if feePercent.IsNegative() || feePercent.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("WITHDRAWAL_FEE_PERCENT must be in [0, 100), got %s", feePercent)
	}

	minAmount, err := requiredInt("MIN_WITHDRAWAL_AMOUNT")
	if err != nil {
		return nil, err
	}

	dualControl, err := requiredInt("DUAL_CONTROL_THRESHOLD")
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		FeePercent:               feePercent,
		MinWithdrawalAmount:      minAmount,
		AutoWithdrawalEnabled:    os.Getenv("AUTO_WITHDRAWAL_ENABLED") == "true",
		DailyWithdrawalCap:       optionalInt("DAILY_WITHDRAWAL_CAP", 0),
		AutoPayoutMultiplier:     decimal.NewFromInt(5),
		EmergencyStopWithdrawals: os.Getenv("EMERGENCY_STOP_WITHDRAWALS") == "true",
		DualControlThreshold:     dualControl,
		EscrowExpiry:             optionalDuration("ESCROW_EXPIRY", 24*time.Hour),
		MaxSettlementRetries:     int(optionalInt("MAX_SETTLEMENT_RETRIES", 5)),
		BaseRetryDelay:           optionalDuration("BASE_RETRY_DELAY", time.Minute),
		RetryLeaseTTL:            optionalDuration("RETRY_LEASE_TTL", 5*time.Minute),
		LockMaxAttempts:          int(optionalInt("LOCK_MAX_ATTEMPTS", 3)),
		LockBaseDelay:            optionalDuration("LOCK_BASE_DELAY", 100*time.Millisecond),
		StuckThreshold:           optionalDuration("STUCK_THRESHOLD", 15*time.Minute),
		GatewayTimeout:           optionalDuration("GATEWAY_TIMEOUT", 30*time.Second),
	}

	if snap.MinWithdrawalAmount <= 0 {
		return nil, fmt.Errorf("MIN_WITHDRAWAL_AMOUNT must be positive, got %d", snap.MinWithdrawalAmount)
	}
	if snap.DualControlThreshold <= 0 {
		return nil, fmt.Errorf("DUAL_CONTROL_THRESHOLD must be positive, got %d", snap.DualControlThreshold)
	}
	if snap.MaxSettlementRetries <= 0 {
		return nil, fmt.Errorf("MAX_SETTLEMENT_RETRIES must be positive, got %d", snap.MaxSettlementRetries)
	}

	return snap, nil
}

func requiredInt(name string) (int64, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, fmt.Errorf("%s environment variable is required", name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return v, nil
}

func optionalInt(name string, fallback int64) int64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func optionalDuration(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

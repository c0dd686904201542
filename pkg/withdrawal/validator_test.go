package withdrawal

import (
	"context"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openvest/payout-pipeline/pkg/config"
	"github.com/openvest/payout-pipeline/pkg/models"
	storage_mocks "github.com/openvest/payout-pipeline/pkg/storage/mocks"
	"github.com/openvest/payout-pipeline/pkg/withdrawal/mocks"
)

func testSnapshot() *config.Snapshot {
	return &config.Snapshot{
		FeePercent:           decimal.NewFromInt(2),
		MinWithdrawalAmount:  1000,
		AutoPayoutMultiplier: decimal.NewFromInt(5),
		DualControlThreshold: 100000,
	}
}

func newValidator(store *storage_mocks.Storage, fraud *mocks.FraudChecker, recovery *mocks.RecoveryChecker) *Validator {
	return &Validator{
		Accounts:     store,
		Transactions: store,
		Fraud:        fraud,
		Recovery:     recovery,
		Logger:       slog.Default(),
	}
}

func TestValidate(t *testing.T) {
	account := &models.Account{ID: "acct-1", Balance: 10000}

	t.Run("Emergency Stop Short-Circuits Everything", func(t *testing.T) {
		snap := testSnapshot()
		snap.EmergencyStopWithdrawals = true

		// No collaborator is consulted at all.
		v := newValidator(new(storage_mocks.Storage), new(mocks.FraudChecker), new(mocks.RecoveryChecker))

		rej, err := v.Validate(context.Background(), snap, account, 4000)
		require.NoError(t, err)
		require.NotNil(t, rej)
		assert.Equal(t, RejectEmergencyStop, rej.Code)
	})

	t.Run("Below Minimum", func(t *testing.T) {
		v := newValidator(new(storage_mocks.Storage), new(mocks.FraudChecker), new(mocks.RecoveryChecker))

		rej, err := v.Validate(context.Background(), testSnapshot(), account, 999)
		require.NoError(t, err)
		require.NotNil(t, rej)
		assert.Equal(t, RejectBelowMinimum, rej.Code)
	})

	t.Run("Banned Account", func(t *testing.T) {
		v := newValidator(new(storage_mocks.Storage), new(mocks.FraudChecker), new(mocks.RecoveryChecker))

		banned := &models.Account{ID: "acct-1", Balance: 10000, IsBanned: true}
		rej, err := v.Validate(context.Background(), testSnapshot(), banned, 4000)
		require.NoError(t, err)
		require.NotNil(t, rej)
		assert.Equal(t, RejectAccountBanned, rej.Code)
	})

	t.Run("Blocked Account", func(t *testing.T) {
		v := newValidator(new(storage_mocks.Storage), new(mocks.FraudChecker), new(mocks.RecoveryChecker))

		blocked := &models.Account{ID: "acct-1", Balance: 10000, WithdrawalBlocked: true}
		rej, err := v.Validate(context.Background(), testSnapshot(), blocked, 4000)
		require.NoError(t, err)
		require.NotNil(t, rej)
		assert.Equal(t, RejectAccountBlocked, rej.Code)
	})

	t.Run("Recovery Active Fails Pending Withdrawals", func(t *testing.T) {
		store := new(storage_mocks.Storage)
		fraud := new(mocks.FraudChecker)
		recovery := new(mocks.RecoveryChecker)

		recovery.On("RecoveryActive", mock.Anything, "acct-1").Return(true, nil)
		store.On("ListPendingWithdrawals", mock.Anything, "acct-1").Return([]models.Transaction{
			{Id: "tx-1", AccountID: "acct-1", Amount: 2000, Status: models.PENDING},
			{Id: "tx-2", AccountID: "acct-1", Amount: 3000, Status: models.PENDING},
		}, nil)
		store.On("RefundWithdrawal", mock.Anything, "tx-1", []models.TransactionStatus{models.PENDING}, mock.Anything).Return(nil)
		store.On("RefundWithdrawal", mock.Anything, "tx-2", []models.TransactionStatus{models.PENDING}, mock.Anything).Return(nil)

		v := newValidator(store, fraud, recovery)

		rej, err := v.Validate(context.Background(), testSnapshot(), account, 4000)
		require.NoError(t, err)
		require.NotNil(t, rej)
		assert.Equal(t, RejectRecoveryActive, rej.Code)
		// The fraud predicate is never reached.
		fraud.AssertNotCalled(t, "IsFraudRisk", mock.Anything, mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("Fraud Risk", func(t *testing.T) {
		store := new(storage_mocks.Storage)
		fraud := new(mocks.FraudChecker)
		recovery := new(mocks.RecoveryChecker)

		recovery.On("RecoveryActive", mock.Anything, "acct-1").Return(false, nil)
		fraud.On("IsFraudRisk", mock.Anything, account, int64(4000)).Return(true, nil)

		v := newValidator(store, fraud, recovery)

		rej, err := v.Validate(context.Background(), testSnapshot(), account, 4000)
		require.NoError(t, err)
		require.NotNil(t, rej)
		assert.Equal(t, RejectFraudRisk, rej.Code)
	})

	t.Run("Fraud Check Side Effect Observed", func(t *testing.T) {
		store := new(storage_mocks.Storage)
		fraud := new(mocks.FraudChecker)
		recovery := new(mocks.RecoveryChecker)

		recovery.On("RecoveryActive", mock.Anything, "acct-1").Return(false, nil)
		fraud.On("IsFraudRisk", mock.Anything, account, int64(4000)).Return(false, nil)
		// The predicate blocked the account mid-check; the re-read sees it.
		store.On("GetAccount", mock.Anything, "acct-1").
			Return(&models.Account{ID: "acct-1", Balance: 10000, WithdrawalBlocked: true}, nil)

		v := newValidator(store, fraud, recovery)

		rej, err := v.Validate(context.Background(), testSnapshot(), account, 4000)
		require.NoError(t, err)
		require.NotNil(t, rej)
		assert.Equal(t, RejectAccountBlocked, rej.Code)
	})

	t.Run("Insufficient Balance", func(t *testing.T) {
		store := new(storage_mocks.Storage)
		fraud := new(mocks.FraudChecker)
		recovery := new(mocks.RecoveryChecker)

		recovery.On("RecoveryActive", mock.Anything, "acct-1").Return(false, nil)
		fraud.On("IsFraudRisk", mock.Anything, account, int64(20000)).Return(false, nil)
		store.On("GetAccount", mock.Anything, "acct-1").Return(account, nil)

		v := newValidator(store, fraud, recovery)

		rej, err := v.Validate(context.Background(), testSnapshot(), account, 20000)
		require.NoError(t, err)
		require.NotNil(t, rej)
		assert.Equal(t, RejectInsufficientBalance, rej.Code)
	})

	t.Run("Accepted", func(t *testing.T) {
		store := new(storage_mocks.Storage)
		fraud := new(mocks.FraudChecker)
		recovery := new(mocks.RecoveryChecker)

		recovery.On("RecoveryActive", mock.Anything, "acct-1").Return(false, nil)
		fraud.On("IsFraudRisk", mock.Anything, account, int64(4000)).Return(false, nil)
		store.On("GetAccount", mock.Anything, "acct-1").Return(account, nil)

		v := newValidator(store, fraud, recovery)

		rej, err := v.Validate(context.Background(), testSnapshot(), account, 4000)
		require.NoError(t, err)
		assert.Nil(t, rej)
	})
}

func TestAutoEligible(t *testing.T) {
	account := &models.Account{
		ID:                "acct-1",
		Balance:           10000,
		LifetimeDeposited: 10000,
		LifetimeWithdrawn: 30000,
	}

	t.Run("Toggle Disabled", func(t *testing.T) {
		v := newValidator(new(storage_mocks.Storage), new(mocks.FraudChecker), new(mocks.RecoveryChecker))

		snap := testSnapshot()
		snap.AutoWithdrawalEnabled = false

		auto, err := v.AutoEligible(context.Background(), snap, account, 4000)
		require.NoError(t, err)
		assert.False(t, auto)
	})

	t.Run("Within Lifetime Multiple", func(t *testing.T) {
		store := new(storage_mocks.Storage)
		v := newValidator(store, new(mocks.FraudChecker), new(mocks.RecoveryChecker))

		snap := testSnapshot()
		snap.AutoWithdrawalEnabled = true

		// 30000 + 4000 <= 5 * 10000
		auto, err := v.AutoEligible(context.Background(), snap, account, 4000)
		require.NoError(t, err)
		assert.True(t, auto)
	})

	t.Run("Exceeds Lifetime Multiple", func(t *testing.T) {
		v := newValidator(new(storage_mocks.Storage), new(mocks.FraudChecker), new(mocks.RecoveryChecker))

		snap := testSnapshot()
		snap.AutoWithdrawalEnabled = true

		// 30000 + 21000 > 5 * 10000
		auto, err := v.AutoEligible(context.Background(), snap, account, 21000)
		require.NoError(t, err)
		assert.False(t, auto)
	})

	t.Run("Daily Cap Exceeded", func(t *testing.T) {
		store := new(storage_mocks.Storage)
		store.On("TotalWithdrawnToday", mock.Anything).Return(int64(98000), nil)

		v := newValidator(store, new(mocks.FraudChecker), new(mocks.RecoveryChecker))

		snap := testSnapshot()
		snap.AutoWithdrawalEnabled = true
		snap.DailyWithdrawalCap = 100000

		auto, err := v.AutoEligible(context.Background(), snap, account, 4000)
		require.NoError(t, err)
		assert.False(t, auto)
	})

	t.Run("Daily Cap Not Reached", func(t *testing.T) {
		store := new(storage_mocks.Storage)
		store.On("TotalWithdrawnToday", mock.Anything).Return(int64(50000), nil)

		v := newValidator(store, new(mocks.FraudChecker), new(mocks.RecoveryChecker))

		snap := testSnapshot()
		snap.AutoWithdrawalEnabled = true
		snap.DailyWithdrawalCap = 100000

		auto, err := v.AutoEligible(context.Background(), snap, account, 4000)
		require.NoError(t, err)
		assert.True(t, auto)
	})
}

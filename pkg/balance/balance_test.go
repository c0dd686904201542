package balance

import (
	"context"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openvest/payout-pipeline/pkg/models"
	"github.com/openvest/payout-pipeline/pkg/storage/mocks"
)

func TestComputeFee(t *testing.T) {
	t.Run("Two Percent", func(t *testing.T) {
		fee, err := ComputeFee(4000, decimal.NewFromInt(2))
		require.NoError(t, err)
		assert.Equal(t, int64(80), fee)
	})

	t.Run("Floors To Minor Unit", func(t *testing.T) {
		// 99 * 2% = 1.98, floored to 1.
		fee, err := ComputeFee(99, decimal.NewFromInt(2))
		require.NoError(t, err)
		assert.Equal(t, int64(1), fee)
	})

	t.Run("Fractional Rate", func(t *testing.T) {
		rate, _ := decimal.NewFromString("0.5")
		fee, err := ComputeFee(10000, rate)
		require.NoError(t, err)
		assert.Equal(t, int64(50), fee)
	})

	t.Run("Zero Rate Rejected", func(t *testing.T) {
		_, err := ComputeFee(4000, decimal.Zero)
		assert.ErrorIs(t, err, ErrFeeUnavailable)
	})

	t.Run("Negative Rate Rejected", func(t *testing.T) {
		_, err := ComputeFee(4000, decimal.NewFromInt(-1))
		assert.ErrorIs(t, err, ErrFeeUnavailable)
	})

	t.Run("Full Rate Rejected", func(t *testing.T) {
		_, err := ComputeFee(4000, decimal.NewFromInt(100))
		assert.ErrorIs(t, err, ErrFeeUnavailable)
	})
}

func TestAvailableBalance(t *testing.T) {
	mockStorage := new(mocks.Storage)
	mockStorage.On("GetAccount", mock.Anything, "acct-1").Return(&models.Account{ID: "acct-1", Balance: 6000}, nil)

	m := NewManager(mockStorage, mockStorage, slog.Default())

	got, err := m.AvailableBalance(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(6000), got)
	mockStorage.AssertExpectations(t)
}

func TestDebitCredit(t *testing.T) {
	t.Run("Debit Passes Through", func(t *testing.T) {
		mockStorage := new(mocks.Storage)
		mockStorage.On("DebitAccount", mock.Anything, "acct-1", int64(500), "tx-1", "withdrawal").
			Return(&models.Account{ID: "acct-1", Balance: 5500}, nil)

		m := NewManager(mockStorage, mockStorage, slog.Default())

		account, err := m.Debit(context.Background(), "acct-1", 500, "tx-1", "withdrawal")
		require.NoError(t, err)
		assert.Equal(t, int64(5500), account.Balance)
		mockStorage.AssertExpectations(t)
	})

	t.Run("Credit Passes Through", func(t *testing.T) {
		mockStorage := new(mocks.Storage)
		mockStorage.On("CreditAccount", mock.Anything, "acct-1", int64(500), "tx-1", "refund").
			Return(&models.Account{ID: "acct-1", Balance: 6000}, nil)

		m := NewManager(mockStorage, mockStorage, slog.Default())

		account, err := m.Credit(context.Background(), "acct-1", 500, "tx-1", "refund")
		require.NoError(t, err)
		assert.Equal(t, int64(6000), account.Balance)
		mockStorage.AssertExpectations(t)
	})
}

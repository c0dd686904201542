package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/openvest/payout-pipeline/pkg/api"
	"github.com/openvest/payout-pipeline/pkg/balance"
	"github.com/openvest/payout-pipeline/pkg/clock"
	"github.com/openvest/payout-pipeline/pkg/config"
	"github.com/openvest/payout-pipeline/pkg/gateway"
	gateway_mocks "github.com/openvest/payout-pipeline/pkg/gateway/mocks"
	"github.com/openvest/payout-pipeline/pkg/models"
	"github.com/openvest/payout-pipeline/pkg/retry"
	scheduler_mocks "github.com/openvest/payout-pipeline/pkg/scheduler/mocks"
	"github.com/openvest/payout-pipeline/pkg/storage"
	"github.com/openvest/payout-pipeline/pkg/storage/mocks"
	"github.com/openvest/payout-pipeline/pkg/withdrawal"
	withdrawal_mocks "github.com/openvest/payout-pipeline/pkg/withdrawal/mocks"
)

func testSnapshot() *config.Snapshot {
	return &config.Snapshot{
		FeePercent:           decimal.NewFromInt(2),
		MinWithdrawalAmount:  1000,
		DualControlThreshold: 100000,
		EscrowExpiry:         24 * time.Hour,
		MaxSettlementRetries: 5,
		BaseRetryDelay:       time.Minute,
		RetryLeaseTTL:        5 * time.Minute,
		LockMaxAttempts:      3,
		LockBaseDelay:        time.Millisecond,
		StuckThreshold:       15 * time.Minute,
		GatewayTimeout:       30 * time.Second,
	}
}

type handlerFixture struct {
	handler  *ApiHandler
	store    *mocks.Storage
	gateway  *gateway_mocks.PaymentGateway
	fraud    *withdrawal_mocks.FraudChecker
	recovery *withdrawal_mocks.RecoveryChecker
	sched    *scheduler_mocks.Scheduler
}

func newFixture() *handlerFixture {
	store := new(mocks.Storage)
	gw := new(gateway_mocks.PaymentGateway)
	fraud := new(withdrawal_mocks.FraudChecker)
	recovery := new(withdrawal_mocks.RecoveryChecker)
	sched := new(scheduler_mocks.Scheduler)
	logger := slog.Default()
	clk := clock.RealClock{}

	validator := &withdrawal.Validator{
		Accounts:     store,
		Transactions: store,
		Fraud:        fraud,
		Recovery:     recovery,
		Logger:       logger,
	}
	h := &ApiHandler{
		Store: store,
		Request: &withdrawal.RequestHandler{
			Store:     store,
			Validator: validator,
			Scheduler: sched,
			Clock:     clk,
			Logger:    logger,
		},
		Lifecycle: &withdrawal.LifecycleHandler{
			Store:   store,
			Gateway: gw,
			Clock:   clk,
			Logger:  logger,
		},
		Retry: &retry.Engine{
			Store:    store,
			Gateway:  gw,
			Clock:    clk,
			Logger:   logger,
			WorkerID: "test",
		},
		Balances: balance.NewManager(store, store, logger),
		Snapshot: testSnapshot,
	}
	return &handlerFixture{handler: h, store: store, gateway: gw, fraud: fraud, recovery: recovery, sched: sched}
}

func asAdmin(req *http.Request) *http.Request {
	req.Header.Set(api.AdminIDHeader, "admin-a")
	return req
}

func TestRequestWithdrawalHandler(t *testing.T) {
	account := &models.Account{ID: "acct-1", Balance: 10000, DestinationAddress: "dest-1"}

	t.Run("Success", func(t *testing.T) {
		f := newFixture()
		f.recovery.On("RecoveryActive", mock.Anything, "acct-1").Return(false, nil)
		f.fraud.On("IsFraudRisk", mock.Anything, mock.Anything, int64(4000)).Return(false, nil)
		f.store.On("GetAccount", mock.Anything, "acct-1").Return(account, nil)
		f.store.On("CreateWithdrawal", mock.Anything, mock.Anything).Return(&models.Transaction{
			Id: uuid.New().String(), AccountID: "acct-1", Amount: 4000, Fee: 80, Status: models.PENDING,
		}, nil)

		body, _ := json.Marshal(api.NewWithdrawal{Amount: 4000})
		req := httptest.NewRequest(http.MethodPost, "/accounts/acct-1/withdrawals", bytes.NewReader(body))
		rr := httptest.NewRecorder()

		f.handler.RequestWithdrawal(rr, req, "acct-1")

		assert.Equal(t, http.StatusCreated, rr.Code)

		var returned api.Withdrawal
		json.Unmarshal(rr.Body.Bytes(), &returned)
		assert.Equal(t, int64(4000), returned.Amount)
		assert.Equal(t, int64(80), returned.Fee)
		assert.Equal(t, int64(3920), returned.NetAmount)
		f.store.AssertExpectations(t)
	})

	t.Run("Rejection Returns 422", func(t *testing.T) {
		f := newFixture()
		f.store.On("GetAccount", mock.Anything, "acct-1").Return(account, nil)

		body, _ := json.Marshal(api.NewWithdrawal{Amount: 500})
		req := httptest.NewRequest(http.MethodPost, "/accounts/acct-1/withdrawals", bytes.NewReader(body))
		rr := httptest.NewRecorder()

		f.handler.RequestWithdrawal(rr, req, "acct-1")

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

		var rej api.Rejection
		json.Unmarshal(rr.Body.Bytes(), &rej)
		assert.Equal(t, string(withdrawal.RejectBelowMinimum), rej.Code)
	})

	t.Run("Invalid Body", func(t *testing.T) {
		f := newFixture()

		req := httptest.NewRequest(http.MethodPost, "/accounts/acct-1/withdrawals", strings.NewReader("not json"))
		rr := httptest.NewRecorder()

		f.handler.RequestWithdrawal(rr, req, "acct-1")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Account Not Found", func(t *testing.T) {
		f := newFixture()
		f.store.On("GetAccount", mock.Anything, "acct-missing").Return(nil, storage.ErrAccountNotFound)

		body, _ := json.Marshal(api.NewWithdrawal{Amount: 4000})
		req := httptest.NewRequest(http.MethodPost, "/accounts/acct-missing/withdrawals", bytes.NewReader(body))
		rr := httptest.NewRecorder()

		f.handler.RequestWithdrawal(rr, req, "acct-missing")

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestGetAccountBalanceHandler(t *testing.T) {
	f := newFixture()
	f.store.On("GetAccount", mock.Anything, "acct-1").
		Return(&models.Account{ID: "acct-1", Balance: 10000}, nil)
	f.store.On("PendingWithdrawalsTotal", mock.Anything, "acct-1").Return(int64(4000), nil)

	req := httptest.NewRequest(http.MethodGet, "/accounts/acct-1/balance", nil)
	rr := httptest.NewRecorder()

	f.handler.GetAccountBalance(rr, req, "acct-1")

	assert.Equal(t, http.StatusOK, rr.Code)

	var b api.Balance
	json.Unmarshal(rr.Body.Bytes(), &b)
	assert.Equal(t, int64(10000), b.Balance)
	assert.Equal(t, int64(4000), b.PendingWithdrawalsTotal)
}

func TestCancelWithdrawalHandler(t *testing.T) {
	txID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		f := newFixture()
		f.store.On("GetTransaction", mock.Anything, txID.String()).
			Return(&models.Transaction{Id: txID.String(), AccountID: "acct-1", Status: models.PENDING}, nil)
		f.store.On("RefundWithdrawal", mock.Anything, txID.String(),
			[]models.TransactionStatus{models.PENDING}, mock.Anything).Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/accounts/acct-1/withdrawals/"+txID.String()+"/cancel", nil)
		rr := httptest.NewRecorder()

		f.handler.CancelWithdrawal(rr, req, "acct-1", txID)

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("Wrong Owner Returns 403", func(t *testing.T) {
		f := newFixture()
		f.store.On("GetTransaction", mock.Anything, txID.String()).
			Return(&models.Transaction{Id: txID.String(), AccountID: "acct-1", Status: models.PENDING}, nil)

		req := httptest.NewRequest(http.MethodPost, "/accounts/acct-2/withdrawals/"+txID.String()+"/cancel", nil)
		rr := httptest.NewRecorder()

		f.handler.CancelWithdrawal(rr, req, "acct-2", txID)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("Already Processed Returns 409", func(t *testing.T) {
		f := newFixture()
		f.store.On("GetTransaction", mock.Anything, txID.String()).
			Return(&models.Transaction{Id: txID.String(), AccountID: "acct-1", Status: models.FAILED}, nil)
		f.store.On("RefundWithdrawal", mock.Anything, txID.String(),
			[]models.TransactionStatus{models.PENDING}, mock.Anything).
			Return(storage.ErrAlreadyProcessed)

		req := httptest.NewRequest(http.MethodPost, "/accounts/acct-1/withdrawals/"+txID.String()+"/cancel", nil)
		rr := httptest.NewRecorder()

		f.handler.CancelWithdrawal(rr, req, "acct-1", txID)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestApproveWithdrawalHandler(t *testing.T) {
	txID := uuid.New()

	t.Run("Missing Admin Header Returns 401", func(t *testing.T) {
		f := newFixture()

		body, _ := json.Marshal(api.ApproveWithdrawalRequest{ExternalRef: "ref-1"})
		req := httptest.NewRequest(http.MethodPost, "/admin/withdrawals/"+txID.String()+"/approve", bytes.NewReader(body))
		rr := httptest.NewRecorder()

		f.handler.ApproveWithdrawal(rr, req, txID)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Success", func(t *testing.T) {
		f := newFixture()
		f.store.On("GetTransaction", mock.Anything, txID.String()).
			Return(&models.Transaction{Id: txID.String(), Amount: 4000, Status: models.PENDING}, nil)
		f.store.On("MarkProcessing", mock.Anything, txID.String(), "ref-1", int64(0)).Return(nil)

		body, _ := json.Marshal(api.ApproveWithdrawalRequest{ExternalRef: "ref-1"})
		req := asAdmin(httptest.NewRequest(http.MethodPost, "/admin/withdrawals/"+txID.String()+"/approve", bytes.NewReader(body)))
		rr := httptest.NewRecorder()

		f.handler.ApproveWithdrawal(rr, req, txID)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		f.store.AssertExpectations(t)
	})

	t.Run("Escrow Required Returns 422", func(t *testing.T) {
		f := newFixture()
		f.store.On("GetTransaction", mock.Anything, txID.String()).
			Return(&models.Transaction{Id: txID.String(), Amount: 150000, Status: models.PENDING}, nil)

		body, _ := json.Marshal(api.ApproveWithdrawalRequest{ExternalRef: "ref-1"})
		req := asAdmin(httptest.NewRequest(http.MethodPost, "/admin/withdrawals/"+txID.String()+"/approve", bytes.NewReader(body)))
		rr := httptest.NewRecorder()

		f.handler.ApproveWithdrawal(rr, req, txID)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("Missing External Ref Returns 400", func(t *testing.T) {
		f := newFixture()

		body, _ := json.Marshal(api.ApproveWithdrawalRequest{})
		req := asAdmin(httptest.NewRequest(http.MethodPost, "/admin/withdrawals/"+txID.String()+"/approve", bytes.NewReader(body)))
		rr := httptest.NewRecorder()

		f.handler.ApproveWithdrawal(rr, req, txID)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestApproveEscrowHandler(t *testing.T) {
	escrowID := uuid.New()
	txID := uuid.New()

	t.Run("Self Approval Returns 403", func(t *testing.T) {
		f := newFixture()
		f.store.On("GetEscrow", mock.Anything, escrowID.String()).
			Return(&models.EscrowAction{
				Id: escrowID.String(), InitiatorAdminID: "admin-a", Status: models.EscrowPending,
			}, nil)

		req := asAdmin(httptest.NewRequest(http.MethodPost, "/admin/escrows/"+escrowID.String()+"/approve", nil))
		rr := httptest.NewRecorder()

		f.handler.ApproveEscrow(rr, req, escrowID)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("Send Failure Returns 502", func(t *testing.T) {
		f := newFixture()
		approver := "admin-a"
		f.store.On("GetEscrow", mock.Anything, escrowID.String()).
			Return(&models.EscrowAction{
				Id:               escrowID.String(),
				InitiatorAdminID: "admin-b",
				ApproverAdminID:  &approver,
				TransactionID:    txID.String(),
				Status:           models.EscrowApproved,
			}, nil)
		f.store.On("GetTransaction", mock.Anything, txID.String()).
			Return(&models.Transaction{
				Id: txID.String(), Amount: 150000, Fee: 3000, Status: models.PENDING, DestinationAddress: "dest-1",
			}, nil)
		f.gateway.On("SendPayment", mock.Anything, "dest-1", int64(147000), "").
			Return(&gateway.SendResult{Success: false, Status: gateway.SendFailed, Error: "rejected"}, nil)

		req := asAdmin(httptest.NewRequest(http.MethodPost, "/admin/escrows/"+escrowID.String()+"/approve", nil))
		rr := httptest.NewRecorder()

		f.handler.ApproveEscrow(rr, req, escrowID)

		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})
}

func TestRedriveRetryHandler(t *testing.T) {
	retryID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		f := newFixture()
		f.store.On("RedriveRetry", mock.Anything, retryID.String(), mock.Anything).Return(nil)

		req := asAdmin(httptest.NewRequest(http.MethodPost, "/admin/dead-letter/"+retryID.String()+"/redrive", nil))
		rr := httptest.NewRecorder()

		f.handler.RedriveRetry(rr, req, retryID)

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("Not In Dead Letter Returns 409", func(t *testing.T) {
		f := newFixture()
		f.store.On("RedriveRetry", mock.Anything, retryID.String(), mock.Anything).
			Return(storage.ErrNotInDeadLetter)

		req := asAdmin(httptest.NewRequest(http.MethodPost, "/admin/dead-letter/"+retryID.String()+"/redrive", nil))
		rr := httptest.NewRecorder()

		f.handler.RedriveRetry(rr, req, retryID)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestListLedgerEntriesHandler(t *testing.T) {
	f := newFixture()
	f.store.On("ListLedgerEntries", mock.Anything, int32(50)).
		Return([]models.LedgerEntry{
			{EntryID: "entry-1", TransactionID: "tx-1", AccountID: "acct-1", Debit: 4000},
		}, nil)

	req := asAdmin(httptest.NewRequest(http.MethodGet, "/admin/ledger", nil))
	rr := httptest.NewRecorder()

	f.handler.ListLedgerEntries(rr, req, api.ListLedgerEntriesParams{})

	assert.Equal(t, http.StatusOK, rr.Code)

	var entries []api.LedgerEntry
	json.Unmarshal(rr.Body.Bytes(), &entries)
	assert.Len(t, entries, 1)
	assert.Equal(t, int64(4000), entries[0].Debit)
}

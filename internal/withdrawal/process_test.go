package withdrawal

import (
	"context"
	"errors"
	"testing"

	"github.com/sportdesk/walletd/internal/gateway"
	"github.com/sportdesk/walletd/internal/models"
	"github.com/sportdesk/walletd/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func pendingJob() *Job {
	return &Job{
		JobID:          "job-1",
		ClientID:       4,
		UserID:         55,
		Username:       "punter",
		Amount:         1_000,
		WithdrawalID:   "wd-1",
		WithdrawalCode: "code123",
		AccountNumber:  "0123456789",
		AccountName:    "Test Punter",
		BankCode:       "058",
		BankName:       "Test Bank",
		Settings:       *defaultSettings(),
	}
}

func pendingWithdrawal() *models.Withdrawal {
	return &models.Withdrawal{
		ID:             "wd-1",
		ClientID:       4,
		UserID:         55,
		Username:       "punter",
		Amount:         1_000,
		WithdrawalCode: "code123",
		AccountNumber:  "0123456789",
		AccountName:    "Test Punter",
		BankCode:       "058",
		BankName:       "Test Bank",
		Status:         models.WithdrawalPending,
	}
}

func TestProcessJobSkipsResolvedWithdrawals(t *testing.T) {
	f := newServiceFixture()

	paid := pendingWithdrawal()
	paid.Status = models.WithdrawalPaid

	f.db.WithdrawalRepo.On("FindByCode", 4, "code123").Return(paid, true, nil)

	result, err := f.service.ProcessJob(context.Background(), pendingJob())
	require.NoError(t, err)

	assert.True(t, result.AlreadyResolved)
	f.gateway.AssertNotCalled(t, "Disburse", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessJobAutoDisburses(t *testing.T) {
	f := newServiceFixture()

	f.db.WithdrawalRepo.On("FindByCode", 4, "code123").Return(pendingWithdrawal(), true, nil)
	f.db.WithdrawalAccountRepo.On("Upsert", mock.Anything).Return(nil)
	f.db.TransactionRepo.On("FindByTransactionNo", 4, "code123", models.TrxCredit).
		Return(nil, false, nil)

	var creditLeg *models.Transaction
	f.db.TransactionRepo.On("Insert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { creditLeg = args.Get(0).(*models.Transaction) }).
		Return("trx-2", nil)

	f.counter.On("Get", mock.Anything).Return("", errors.New("cache miss"))
	f.db.WithdrawalRepo.On("CountPaidToday", 4, 55).Return(0, nil)

	f.db.WithdrawalRepo.On("Claim", "wd-1", "auto-disbursement").Return(true, nil)
	f.gateway.On("Disburse", mock.Anything, 1_000.0, "code123").
		Return(&gateway.DisburseResult{Success: true, ProviderRef: "pd-1"}, nil)
	f.db.WithdrawalRepo.On("MarkPaid", mock.Anything, "wd-1", "auto-disbursement").Return(true, nil)
	f.db.TransactionRepo.On("Settle", mock.Anything, 4, "code123", 0.0).Return(true, nil)
	f.counter.On("Increment", mock.Anything, mock.Anything).Return(int64(1), nil)

	result, err := f.service.ProcessJob(context.Background(), pendingJob())
	require.NoError(t, err)

	assert.True(t, result.Disbursed)

	// the payout side got its credit leg before the disburse
	require.NotNil(t, creditLeg)
	assert.Equal(t, models.TrxCredit, creditLeg.TrxType)
	assert.Equal(t, "code123", creditLeg.TransactionNo)
	assert.Equal(t, models.TransactionPending, creditLeg.Status)
}

func TestProcessJobDoesNotDuplicateCreditLegOnRedelivery(t *testing.T) {
	f := newServiceFixture()

	f.db.WithdrawalRepo.On("FindByCode", 4, "code123").Return(pendingWithdrawal(), true, nil)
	f.db.WithdrawalAccountRepo.On("Upsert", mock.Anything).Return(nil)
	f.db.TransactionRepo.On("FindByTransactionNo", 4, "code123", models.TrxCredit).
		Return(&models.Transaction{ID: "trx-2", TrxType: models.TrxCredit}, true, nil)

	f.counter.On("Get", mock.Anything).Return("", errors.New("cache miss"))
	f.db.WithdrawalRepo.On("CountPaidToday", 4, 55).Return(0, nil)

	f.db.WithdrawalRepo.On("Claim", "wd-1", "auto-disbursement").Return(true, nil)
	f.gateway.On("Disburse", mock.Anything, 1_000.0, "code123").
		Return(&gateway.DisburseResult{Success: true}, nil)
	f.db.WithdrawalRepo.On("MarkPaid", mock.Anything, "wd-1", "auto-disbursement").Return(true, nil)
	f.db.TransactionRepo.On("Settle", mock.Anything, 4, "code123", 0.0).Return(true, nil)
	f.counter.On("Increment", mock.Anything, mock.Anything).Return(int64(1), nil)

	_, err := f.service.ProcessJob(context.Background(), pendingJob())
	require.NoError(t, err)

	f.db.TransactionRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestProcessJobSkipsWhenPayoutClaimedElsewhere(t *testing.T) {
	f := newServiceFixture()

	f.db.WithdrawalRepo.On("FindByCode", 4, "code123").Return(pendingWithdrawal(), true, nil)
	f.db.WithdrawalAccountRepo.On("Upsert", mock.Anything).Return(nil)
	f.db.TransactionRepo.On("FindByTransactionNo", 4, "code123", models.TrxCredit).
		Return(&models.Transaction{ID: "trx-2", TrxType: models.TrxCredit}, true, nil)

	f.counter.On("Get", mock.Anything).Return("", errors.New("cache miss"))
	f.db.WithdrawalRepo.On("CountPaidToday", 4, 55).Return(0, nil)

	// a manual approval holds the claim already
	f.db.WithdrawalRepo.On("Claim", "wd-1", "auto-disbursement").Return(false, nil)

	result, err := f.service.ProcessJob(context.Background(), pendingJob())
	require.NoError(t, err)

	assert.True(t, result.AlreadyResolved)
	f.gateway.AssertNotCalled(t, "Disburse", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessJobToleratesConcurrentCreditLegInsert(t *testing.T) {
	f := newServiceFixture()

	job := pendingJob()
	job.Settings.AutoDisbursement = false

	f.db.WithdrawalRepo.On("FindByCode", 4, "code123").Return(pendingWithdrawal(), true, nil)
	f.db.WithdrawalAccountRepo.On("Upsert", mock.Anything).Return(nil)
	f.db.TransactionRepo.On("FindByTransactionNo", 4, "code123", models.TrxCredit).
		Return(nil, false, nil)

	// a concurrent delivery wrote the leg between the check and the insert;
	// the unique leg index turns the second write into this error
	f.db.TransactionRepo.On("Insert", mock.Anything, mock.Anything).
		Return("", repository.ErrDuplicateTransaction)

	result, err := f.service.ProcessJob(context.Background(), job)
	require.NoError(t, err)

	assert.True(t, result.AwaitingManual)
}

func TestProcessJobRoutesDisabledAutoDisbursementToManual(t *testing.T) {
	f := newServiceFixture()

	job := pendingJob()
	job.Settings.AutoDisbursement = false

	f.db.WithdrawalRepo.On("FindByCode", 4, "code123").Return(pendingWithdrawal(), true, nil)
	f.db.WithdrawalAccountRepo.On("Upsert", mock.Anything).Return(nil)
	f.db.TransactionRepo.On("FindByTransactionNo", 4, "code123", models.TrxCredit).
		Return(nil, false, nil)
	f.db.TransactionRepo.On("Insert", mock.Anything, mock.Anything).Return("trx-2", nil)

	result, err := f.service.ProcessJob(context.Background(), job)
	require.NoError(t, err)

	assert.True(t, result.AwaitingManual)
	f.gateway.AssertNotCalled(t, "Disburse", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessJobCashPickupAlwaysGoesManual(t *testing.T) {
	f := newServiceFixture()

	job := pendingJob()
	job.BankCode = models.BankCodeCash
	job.AccountNumber = ""
	job.AccountName = ""

	withdrawal := pendingWithdrawal()
	withdrawal.BankCode = models.BankCodeCash

	f.db.WithdrawalRepo.On("FindByCode", 4, "code123").Return(withdrawal, true, nil)
	f.db.TransactionRepo.On("FindByTransactionNo", 4, "code123", models.TrxCredit).
		Return(nil, false, nil)
	f.db.TransactionRepo.On("Insert", mock.Anything, mock.Anything).Return("trx-2", nil)

	result, err := f.service.ProcessJob(context.Background(), job)
	require.NoError(t, err)

	assert.True(t, result.AwaitingManual)
	// cash destinations are not reusable bank accounts
	f.db.WithdrawalAccountRepo.AssertNotCalled(t, "Upsert", mock.Anything)
}

func TestProcessJobFallsBackToManualWhenCountUnavailable(t *testing.T) {
	f := newServiceFixture()

	f.db.WithdrawalRepo.On("FindByCode", 4, "code123").Return(pendingWithdrawal(), true, nil)
	f.db.WithdrawalAccountRepo.On("Upsert", mock.Anything).Return(nil)
	f.db.TransactionRepo.On("FindByTransactionNo", 4, "code123", models.TrxCredit).
		Return(nil, false, nil)
	f.db.TransactionRepo.On("Insert", mock.Anything, mock.Anything).Return("trx-2", nil)

	f.counter.On("Get", mock.Anything).Return("", errors.New("cache miss"))
	f.db.WithdrawalRepo.On("CountPaidToday", 4, 55).Return(0, errors.New("db unavailable"))

	result, err := f.service.ProcessJob(context.Background(), pendingJob())
	require.NoError(t, err)

	assert.True(t, result.AwaitingManual)
	f.gateway.AssertNotCalled(t, "Disburse", mock.Anything, mock.Anything, mock.Anything)
}

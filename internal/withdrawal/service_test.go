package withdrawal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/sportdesk/walletd/internal/gateway"
	"github.com/sportdesk/walletd/internal/identity"
	"github.com/sportdesk/walletd/internal/ledger"
	"github.com/sportdesk/walletd/internal/mocks"
	"github.com/sportdesk/walletd/internal/models"
	"github.com/sportdesk/walletd/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	service  *Service
	db       *mocks.MockDatabase
	identity *mocks.MockIdentityClient
	gateway  *mocks.MockGatewayAdapter
	producer *mocks.MockProducer
	counter  *mocks.MockCounter
}

func newServiceFixture() *serviceFixture {
	db := mocks.NewMockDatabase()
	idClient := new(mocks.MockIdentityClient)
	adapter := new(mocks.MockGatewayAdapter)
	producer := new(mocks.MockProducer)
	counter := new(mocks.MockCounter)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &serviceFixture{
		service:  NewService(db, ledger.New(db), idClient, adapter, producer, counter, logger),
		db:       db,
		identity: idClient,
		gateway:  adapter,
		producer: producer,
		counter:  counter,
	}
}

func defaultSettings() *identity.WithdrawalSettings {
	return &identity.WithdrawalSettings{
		MinimumWithdrawal:     100,
		MaximumWithdrawal:     10_000,
		AutoDisbursement:      true,
		AutoDisbursementMin:   100,
		AutoDisbursementMax:   5_000,
		AutoDisbursementCount: 5,
	}
}

func bankDestination() gateway.Destination {
	return gateway.Destination{
		AccountNumber: "0123456789",
		AccountName:   "Test Punter",
		BankCode:      "058",
		BankName:      "Test Bank",
	}
}

func TestRequestTakesHoldAndEnqueuesJob(t *testing.T) {
	f := newServiceFixture()

	f.identity.On("GetUser", 55).Return(&identity.User{UserID: 55, ClientID: 4, Username: "punter"}, nil)
	f.identity.On("GetWithdrawalSettings", 4, 55).Return(defaultSettings(), nil)
	f.db.WalletRepo.On("GetByUser", 4, 55).
		Return(&models.Wallet{ClientID: 4, UserID: 55, AvailableBalance: 5_000}, true, nil)
	f.db.WalletRepo.On("Debit", mock.Anything, 4, 55, models.FieldAvailableBalance, 1_000.0).
		Return(4_000.0, nil)

	var debitLeg *models.Transaction
	f.db.TransactionRepo.On("Insert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { debitLeg = args.Get(0).(*models.Transaction) }).
		Return("trx-1", nil)
	f.db.WithdrawalRepo.On("Insert", mock.Anything, mock.Anything).Return("wd-1", nil)

	var producedKey, producedMessage string
	f.producer.On("ProduceMessage", RequestTopic, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			producedKey = args.String(1)
			producedMessage = args.String(2)
		}).
		Return(nil)

	result, err := f.service.Request(context.Background(), 4, 55, 1_000, bankDestination())
	require.NoError(t, err)

	assert.Equal(t, "wd-1", result.ID)
	assert.NotEmpty(t, result.WithdrawalCode)

	// the hold is a pending debit leg under the withdrawal code
	require.NotNil(t, debitLeg)
	assert.Equal(t, models.TrxDebit, debitLeg.TrxType)
	assert.Equal(t, models.TransactionPending, debitLeg.Status)
	assert.Equal(t, result.WithdrawalCode, debitLeg.TransactionNo)
	assert.Equal(t, models.SubjectWithdrawal, debitLeg.Subject)
	assert.Equal(t, 4_000.0, debitLeg.Balance)

	// the job is keyed by withdrawal code, never by (user, amount)
	assert.Equal(t, result.WithdrawalCode, producedKey)

	var job Job
	require.NoError(t, json.Unmarshal([]byte(producedMessage), &job))
	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, result.WithdrawalCode, job.WithdrawalCode)
	assert.Equal(t, *defaultSettings(), job.Settings)
}

func TestRequestRejectsAmountOutsideConfiguredRange(t *testing.T) {
	f := newServiceFixture()

	f.identity.On("GetUser", 55).Return(&identity.User{UserID: 55, ClientID: 4, Username: "punter"}, nil)
	f.identity.On("GetWithdrawalSettings", 4, 55).Return(defaultSettings(), nil)

	var rangeErr *AmountRangeError

	_, err := f.service.Request(context.Background(), 4, 55, 50, bankDestination())
	require.ErrorAs(t, err, &rangeErr)
	assert.True(t, rangeErr.Below)
	assert.Equal(t, 100.0, rangeErr.Threshold)

	_, err = f.service.Request(context.Background(), 4, 55, 20_000, bankDestination())
	require.ErrorAs(t, err, &rangeErr)
	assert.False(t, rangeErr.Below)

	f.db.WalletRepo.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestFailsFastOnInsufficientFunds(t *testing.T) {
	f := newServiceFixture()

	f.identity.On("GetUser", 55).Return(&identity.User{UserID: 55, ClientID: 4, Username: "punter"}, nil)
	f.identity.On("GetWithdrawalSettings", 4, 55).Return(defaultSettings(), nil)
	f.db.WalletRepo.On("GetByUser", 4, 55).
		Return(&models.Wallet{ClientID: 4, UserID: 55, AvailableBalance: 200}, true, nil)

	_, err := f.service.Request(context.Background(), 4, 55, 1_000, bankDestination())
	assert.ErrorIs(t, err, repository.ErrInsufficientFunds)

	f.db.WithdrawalRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestRequestSurvivesProduceFailure(t *testing.T) {
	f := newServiceFixture()

	f.identity.On("GetUser", 55).Return(&identity.User{UserID: 55, ClientID: 4, Username: "punter"}, nil)
	f.identity.On("GetWithdrawalSettings", 4, 55).Return(defaultSettings(), nil)
	f.db.WalletRepo.On("GetByUser", 4, 55).
		Return(&models.Wallet{ClientID: 4, UserID: 55, AvailableBalance: 5_000}, true, nil)
	f.db.WalletRepo.On("Debit", mock.Anything, 4, 55, models.FieldAvailableBalance, 1_000.0).
		Return(4_000.0, nil)
	f.db.TransactionRepo.On("Insert", mock.Anything, mock.Anything).Return("trx-1", nil)
	f.db.WithdrawalRepo.On("Insert", mock.Anything, mock.Anything).Return("wd-1", nil)
	f.producer.On("ProduceMessage", RequestTopic, mock.Anything, mock.Anything).
		Return(errors.New("broker unavailable"))

	// the hold is committed; the requeue sweep owns recovery from here
	result, err := f.service.Request(context.Background(), 4, 55, 1_000, bankDestination())
	require.NoError(t, err)
	assert.Equal(t, "wd-1", result.ID)
}

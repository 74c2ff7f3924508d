package withdrawal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sportdesk/walletd/internal/gateway"
	"github.com/sportdesk/walletd/internal/identity"
	"github.com/sportdesk/walletd/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRejectReleasesTheHold(t *testing.T) {
	f := newServiceFixture()

	f.db.WithdrawalRepo.On("GetOne", "wd-1").Return(pendingWithdrawal(), true, nil)
	f.db.WithdrawalRepo.On("MarkRejected", mock.Anything, "wd-1", "ops_sarah", "limits exceeded").
		Return(true, nil)
	f.db.TransactionRepo.On("Fail", mock.Anything, 4, "code123").Return(true, nil)
	f.db.WalletRepo.On("Credit", mock.Anything, 4, 55, models.FieldAvailableBalance, 1_000.0).
		Return(5_000.0, nil)

	var legs []*models.Transaction
	f.db.TransactionRepo.On("Insert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			legs = append(legs, args.Get(0).(*models.Transaction))
		}).
		Return("trx-r", nil)

	err := f.service.Reject(context.Background(), "wd-1", "ops_sarah", "limits exceeded")
	require.NoError(t, err)

	// the reversal is its own settled pair, distinct from the failed original
	require.Len(t, legs, 2)
	for _, leg := range legs {
		assert.Equal(t, models.SubjectRejectedRequest, leg.Subject)
		assert.Equal(t, models.TransactionSettled, leg.Status)
		assert.NotEqual(t, "code123", leg.TransactionNo)
	}

	f.db.WalletRepo.AssertExpectations(t)
	f.db.TransactionRepo.AssertExpectations(t)
}

func TestRejectAlreadyDecided(t *testing.T) {
	f := newServiceFixture()

	paid := pendingWithdrawal()
	paid.Status = models.WithdrawalPaid

	f.db.WithdrawalRepo.On("GetOne", "wd-1").Return(paid, true, nil)

	err := f.service.Reject(context.Background(), "wd-1", "ops_sarah", "too late")
	assert.ErrorIs(t, err, ErrAlreadyDecided)

	f.db.WalletRepo.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRejectLosesRaceToConcurrentDecision(t *testing.T) {
	f := newServiceFixture()

	f.db.WithdrawalRepo.On("GetOne", "wd-1").Return(pendingWithdrawal(), true, nil)
	f.db.WithdrawalRepo.On("MarkRejected", mock.Anything, "wd-1", "ops_sarah", "limits exceeded").
		Return(false, nil)

	err := f.service.Reject(context.Background(), "wd-1", "ops_sarah", "limits exceeded")
	assert.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestApprovePaysOutThroughGateway(t *testing.T) {
	f := newServiceFixture()

	f.db.WithdrawalRepo.On("GetOne", "wd-1").Return(pendingWithdrawal(), true, nil)
	f.db.WithdrawalRepo.On("Claim", "wd-1", "ops_sarah").Return(true, nil)
	f.gateway.On("Disburse", mock.Anything, 1_000.0, "code123").
		Return(&gateway.DisburseResult{Success: true, ProviderRef: "pd-9"}, nil)
	f.db.WithdrawalRepo.On("MarkPaid", mock.Anything, "wd-1", "ops_sarah").Return(true, nil)
	f.db.TransactionRepo.On("Settle", mock.Anything, 4, "code123", 0.0).Return(true, nil)
	f.counter.On("Increment", mock.Anything, mock.Anything).Return(int64(1), nil)

	err := f.service.Approve(context.Background(), "wd-1", "ops_sarah")
	require.NoError(t, err)

	f.db.WithdrawalRepo.AssertExpectations(t)
}

func TestApproveRacingDecidersDisburseOnce(t *testing.T) {
	f := newServiceFixture()

	f.db.WithdrawalRepo.On("GetOne", "wd-1").Return(pendingWithdrawal(), true, nil)

	// both deciders read Pending; only the claim winner reaches the provider
	f.db.WithdrawalRepo.On("Claim", "wd-1", "ops_sarah").Return(true, nil).Once()
	f.db.WithdrawalRepo.On("Claim", "wd-1", "ops_tunde").Return(false, nil).Once()

	f.gateway.On("Disburse", mock.Anything, 1_000.0, "code123").
		Return(&gateway.DisburseResult{Success: true, ProviderRef: "pd-9"}, nil)
	f.db.WithdrawalRepo.On("MarkPaid", mock.Anything, "wd-1", "ops_sarah").Return(true, nil)
	f.db.TransactionRepo.On("Settle", mock.Anything, 4, "code123", 0.0).Return(true, nil)
	f.counter.On("Increment", mock.Anything, mock.Anything).Return(int64(1), nil)

	require.NoError(t, f.service.Approve(context.Background(), "wd-1", "ops_sarah"))
	assert.ErrorIs(t, f.service.Approve(context.Background(), "wd-1", "ops_tunde"), ErrAlreadyDecided)

	f.gateway.AssertNumberOfCalls(t, "Disburse", 1)
}

func TestApproveGatewayFailureLeavesWithdrawalPending(t *testing.T) {
	f := newServiceFixture()

	f.db.WithdrawalRepo.On("GetOne", "wd-1").Return(pendingWithdrawal(), true, nil)
	f.db.WithdrawalRepo.On("Claim", "wd-1", "ops_sarah").Return(true, nil)
	f.gateway.On("Disburse", mock.Anything, 1_000.0, "code123").
		Return(nil, errors.New("provider timeout"))
	f.db.WithdrawalRepo.On("Release", "wd-1").Return(nil)

	err := f.service.Approve(context.Background(), "wd-1", "ops_sarah")
	assert.ErrorIs(t, err, ErrDisbursementFailed)

	// the claim goes back so the operator can retry the payout
	f.db.WithdrawalRepo.AssertCalled(t, "Release", "wd-1")
	f.db.WithdrawalRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
	f.db.TransactionRepo.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequeueStuckReproducesJobs(t *testing.T) {
	f := newServiceFixture()

	stuck := []models.Withdrawal{*pendingWithdrawal()}

	f.db.WithdrawalRepo.On("FindStuckPending", mock.Anything, 100).Return(stuck, nil)
	f.identity.On("GetWithdrawalSettings", 4, 55).Return(defaultSettings(), nil)
	f.producer.On("ProduceMessage", RequestTopic, "code123", mock.Anything).Return(nil)

	requeued, err := f.service.RequeueStuck(context.Background(), 15*time.Minute, 100)
	require.NoError(t, err)

	assert.Equal(t, 1, requeued)
	f.producer.AssertExpectations(t)
}

func TestRequeueStuckSkipsRowsItCannotEnqueue(t *testing.T) {
	f := newServiceFixture()

	second := *pendingWithdrawal()
	second.ID = "wd-2"
	second.UserID = 56
	second.WithdrawalCode = "code456"

	stuck := []models.Withdrawal{*pendingWithdrawal(), second}

	f.db.WithdrawalRepo.On("FindStuckPending", mock.Anything, 100).Return(stuck, nil)
	f.identity.On("GetWithdrawalSettings", 4, 55).
		Return((*identity.WithdrawalSettings)(nil), errors.New("identity down"))
	f.identity.On("GetWithdrawalSettings", 4, 56).Return(defaultSettings(), nil)
	f.producer.On("ProduceMessage", RequestTopic, "code456", mock.Anything).Return(nil)

	requeued, err := f.service.RequeueStuck(context.Background(), 15*time.Minute, 100)
	require.NoError(t, err)

	assert.Equal(t, 1, requeued)
}

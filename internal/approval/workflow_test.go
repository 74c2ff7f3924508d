package approval

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/sportdesk/walletd/internal/identity"
	"github.com/sportdesk/walletd/internal/ledger"
	"github.com/sportdesk/walletd/internal/mocks"
	"github.com/sportdesk/walletd/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type workflowFixture struct {
	workflow *Workflow
	db       *mocks.MockDatabase
	identity *mocks.MockIdentityClient
	uploader *mocks.MockUploader
}

func newWorkflowFixture() *workflowFixture {
	db := mocks.NewMockDatabase()
	idClient := new(mocks.MockIdentityClient)
	uploader := new(mocks.MockUploader)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &workflowFixture{
		workflow: New(db, ledger.New(db), idClient, uploader, logger),
		db:       db,
		identity: idClient,
		uploader: uploader,
	}
}

func verifier() *identity.User {
	return &identity.User{UserID: 900, ClientID: 4, Username: "verifier_jo"}
}

func pendingCashIn() *models.Approval {
	return &models.Approval{
		ID:       "ap-1",
		Type:     models.ApprovalCashIn,
		ClientID: 4,
		BranchID: 21,
		UserID:   300,
		Amount:   2_000,
		Status:   models.ApprovalPending,
	}
}

func TestSubmitRecordsPendingRequest(t *testing.T) {
	f := newWorkflowFixture()

	var saved *models.Approval
	f.db.ApprovalRepo.On("Insert", mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(0).(*models.Approval) }).
		Return("ap-1", nil)

	record, err := f.workflow.Submit(context.Background(), SubmitInput{
		Type:     models.ApprovalCashIn,
		ClientID: 4,
		BranchID: 21,
		UserID:   300,
		Amount:   2_000,
		Comment:  "morning float",
	})
	require.NoError(t, err)

	assert.Equal(t, "ap-1", record.ID)
	assert.Equal(t, models.ApprovalPending, saved.Status)

	// submission never touches a wallet
	f.db.WalletRepo.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitUploadsExpenseReceipt(t *testing.T) {
	f := newWorkflowFixture()

	f.uploader.On("UploadFile", "/tmp/receipt-1.jpg").Return("https://files.example/receipt-1.jpg", nil)

	var saved *models.Approval
	f.db.ApprovalRepo.On("Insert", mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(0).(*models.Approval) }).
		Return("ap-2", nil)

	_, err := f.workflow.Submit(context.Background(), SubmitInput{
		Type:        models.ApprovalExpense,
		ClientID:    4,
		BranchID:    21,
		UserID:      300,
		Amount:      150,
		ReceiptFile: "/tmp/receipt-1.jpg",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://files.example/receipt-1.jpg", saved.ReceiptURL)
}

func TestSubmitRejectsInvalidType(t *testing.T) {
	f := newWorkflowFixture()

	_, err := f.workflow.Submit(context.Background(), SubmitInput{
		Type:   models.ApprovalType("transfer"),
		Amount: 100,
	})
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestDecideApproveCashInCreditsBranch(t *testing.T) {
	f := newWorkflowFixture()

	f.db.ApprovalRepo.On("GetOne", "ap-1").Return(pendingCashIn(), true, nil)
	f.identity.On("AuthorizeVerifier", 900, 4, 21).Return(true, nil)
	f.db.ApprovalRepo.On("Decide", mock.Anything, "ap-1", models.ApprovalApproved, "verifier_jo", "ok").
		Return(true, nil)
	f.db.WalletRepo.On("Credit", mock.Anything, 4, 21, models.FieldAvailableBalance, 2_000.0).
		Return(12_000.0, nil)

	var legs []*models.Transaction
	f.db.TransactionRepo.On("Insert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			legs = append(legs, args.Get(0).(*models.Transaction))
		}).
		Return("trx-1", nil)

	record, err := f.workflow.Decide(context.Background(), "ap-1", verifier(), true, "ok")
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalApproved, record.Status)
	assert.Equal(t, "verifier_jo", record.VerifiedBy)

	require.Len(t, legs, 2)
	assert.Equal(t, models.SubjectCashIn, legs[0].Subject)
	assert.Equal(t, models.TransactionSettled, legs[0].Status)
}

func TestDecideApproveExpenseMovesBranchMoneyToVerifier(t *testing.T) {
	f := newWorkflowFixture()

	expense := pendingCashIn()
	expense.Type = models.ApprovalExpense
	expense.Amount = 150

	f.db.ApprovalRepo.On("GetOne", "ap-1").Return(expense, true, nil)
	f.identity.On("AuthorizeVerifier", 900, 4, 21).Return(true, nil)
	f.db.ApprovalRepo.On("Decide", mock.Anything, "ap-1", models.ApprovalApproved, "verifier_jo", "").
		Return(true, nil)
	f.db.WalletRepo.On("Debit", mock.Anything, 4, 21, models.FieldAvailableBalance, 150.0).
		Return(9_850.0, nil)
	f.db.WalletRepo.On("Credit", mock.Anything, 4, 900, models.FieldAvailableBalance, 150.0).
		Return(650.0, nil)
	f.db.TransactionRepo.On("Insert", mock.Anything, mock.Anything).Return("trx-1", nil)

	_, err := f.workflow.Decide(context.Background(), "ap-1", verifier(), true, "")
	require.NoError(t, err)

	f.db.WalletRepo.AssertExpectations(t)
}

func TestDecideRejectNeverTouchesWallets(t *testing.T) {
	f := newWorkflowFixture()

	f.db.ApprovalRepo.On("GetOne", "ap-1").Return(pendingCashIn(), true, nil)
	f.identity.On("AuthorizeVerifier", 900, 4, 21).Return(true, nil)
	f.db.ApprovalRepo.On("Decide", mock.Anything, "ap-1", models.ApprovalRejected, "verifier_jo", "not recognized").
		Return(true, nil)

	record, err := f.workflow.Decide(context.Background(), "ap-1", verifier(), false, "not recognized")
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalRejected, record.Status)
	f.db.WalletRepo.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.db.WalletRepo.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDecideRequiresAuthorizedVerifier(t *testing.T) {
	f := newWorkflowFixture()

	f.db.ApprovalRepo.On("GetOne", "ap-1").Return(pendingCashIn(), true, nil)
	f.identity.On("AuthorizeVerifier", 900, 4, 21).Return(false, nil)

	_, err := f.workflow.Decide(context.Background(), "ap-1", verifier(), true, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	f.db.ApprovalRepo.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDecideIsMonotonic(t *testing.T) {
	f := newWorkflowFixture()

	decided := pendingCashIn()
	decided.Status = models.ApprovalApproved

	f.db.ApprovalRepo.On("GetOne", "ap-1").Return(decided, true, nil)
	f.identity.On("AuthorizeVerifier", 900, 4, 21).Return(true, nil)

	_, err := f.workflow.Decide(context.Background(), "ap-1", verifier(), false, "second opinion")
	assert.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestDecideLostRaceRollsBackMovement(t *testing.T) {
	f := newWorkflowFixture()

	f.db.ApprovalRepo.On("GetOne", "ap-1").Return(pendingCashIn(), true, nil)
	f.identity.On("AuthorizeVerifier", 900, 4, 21).Return(true, nil)
	// another verifier's decide committed between the read and the swap
	f.db.ApprovalRepo.On("Decide", mock.Anything, "ap-1", models.ApprovalApproved, "verifier_jo", "").
		Return(false, nil)

	_, err := f.workflow.Decide(context.Background(), "ap-1", verifier(), true, "")
	assert.ErrorIs(t, err, ErrAlreadyDecided)

	f.db.WalletRepo.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

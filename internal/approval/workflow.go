// Package approval implements the two-party pending→approved/rejected
// workflow behind branch cash-in, cash-out and expense reimbursement. A
// decision is a compare-and-swap: of two racing verifiers only one wins, and
// an approval triggers exactly one wallet movement with its ledger pair.
package approval

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/sportdesk/walletd/internal/identity"
	"github.com/sportdesk/walletd/internal/ledger"
	"github.com/sportdesk/walletd/internal/models"
	"github.com/sportdesk/walletd/internal/repository"
)

var (
	ErrApprovalNotFound = errors.New("approval record not found")
	ErrAlreadyDecided   = errors.New("approval already decided")
	ErrUnauthorized     = errors.New("verifier is not authorized for this branch")
	ErrInvalidType      = errors.New("invalid approval type")
)

// Uploader is the slice of the file service used for expense receipts.
type Uploader interface {
	UploadFile(fileName string) (string, error)
}

type Workflow struct {
	db        repository.Database
	approvals repository.ApprovalRepository
	wallets   repository.WalletRepository
	recorder  *ledger.Recorder
	identity  identity.Client
	uploader  Uploader
	logger    *slog.Logger
}

func New(db repository.Database, recorder *ledger.Recorder, idClient identity.Client, uploader Uploader, logger *slog.Logger) *Workflow {
	return &Workflow{
		db:        db,
		approvals: db.Approval(),
		wallets:   db.Wallet(),
		recorder:  recorder,
		identity:  idClient,
		uploader:  uploader,
		logger:    logger,
	}
}

type SubmitInput struct {
	Type        models.ApprovalType
	ClientID    int
	BranchID    int
	UserID      int
	Amount      float64
	Comment     string
	ReceiptFile string
}

// Submit records the request in Pending. Nothing touches a wallet until a
// verifier approves.
func (w *Workflow) Submit(ctx context.Context, input SubmitInput) (*models.Approval, error) {
	if !input.Type.Valid() {
		return nil, ErrInvalidType
	}
	if input.Amount <= 0 {
		return nil, ledger.ErrInvalidAmount
	}

	record := &models.Approval{
		Type:     input.Type,
		ClientID: input.ClientID,
		BranchID: input.BranchID,
		UserID:   input.UserID,
		Amount:   input.Amount,
		Comment:  input.Comment,
	}

	if input.ReceiptFile != "" && input.Type == models.ApprovalExpense {
		url, err := w.uploader.UploadFile(input.ReceiptFile)
		if err != nil {
			return nil, err
		}
		record.ReceiptURL = url
	}

	id, err := w.approvals.Insert(record)
	if err != nil {
		return nil, err
	}
	record.ID = id

	return record, nil
}

// Decide moves a pending record to its terminal state. Approving applies the
// one wallet movement the record type calls for; the CAS and the movement are
// a single database transaction, so a racing decide either wins everything or
// changes nothing and gets ErrAlreadyDecided.
func (w *Workflow) Decide(ctx context.Context, id string, verifier *identity.User, approve bool, comment string) (*models.Approval, error) {
	record, found, err := w.approvals.GetOne(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrApprovalNotFound
	}

	authorized, err := w.identity.AuthorizeVerifier(ctx, verifier.UserID, record.ClientID, record.BranchID)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, ErrUnauthorized
	}

	if record.Status.Terminal() {
		return nil, ErrAlreadyDecided
	}

	if !approve {
		swapped, err := w.approvals.Decide(nil, id, models.ApprovalRejected, verifier.Username, comment)
		if err != nil {
			return nil, err
		}
		if !swapped {
			return nil, ErrAlreadyDecided
		}
		record.Status = models.ApprovalRejected
		record.VerifiedBy = verifier.Username
		return record, nil
	}

	err = w.db.InTx(ctx, func(tx *sqlx.Tx) error {
		swapped, err := w.approvals.Decide(tx, id, models.ApprovalApproved, verifier.Username, comment)
		if err != nil {
			return err
		}
		if !swapped {
			return ErrAlreadyDecided
		}

		return w.applyMovement(ctx, tx, record, verifier)
	})
	if err != nil {
		return nil, err
	}

	record.Status = models.ApprovalApproved
	record.VerifiedBy = verifier.Username

	w.logger.Info("approval granted",
		"approval_id", record.ID,
		"type", record.Type,
		"branch_id", record.BranchID,
		"amount", record.Amount,
	)

	return record, nil
}

// applyMovement performs the type-specific wallet mutation and its ledger
// pair. Cash-in credits the branch, cash-out debits it, an expense moves the
// money from the spending branch to the approver.
func (w *Workflow) applyMovement(ctx context.Context, tx *sqlx.Tx, record *models.Approval, verifier *identity.User) error {
	movement := &ledger.Movement{
		TransactionNo: ledger.GenerateTransactionNo(),
		Amount:        record.Amount,
		Channel:       "cashbook",
		Status:        models.TransactionSettled,
	}

	switch record.Type {
	case models.ApprovalCashIn:
		newBalance, err := w.wallets.Credit(tx, record.ClientID, record.BranchID, models.FieldAvailableBalance, record.Amount)
		if err != nil {
			return err
		}
		movement.Subject = models.SubjectCashIn
		movement.From = ledger.Party{ClientID: record.ClientID, Username: "system"}
		movement.To = ledger.Party{ClientID: record.ClientID, UserID: record.BranchID, BalanceAfter: newBalance}

	case models.ApprovalCashOut:
		newBalance, err := w.wallets.Debit(tx, record.ClientID, record.BranchID, models.FieldAvailableBalance, record.Amount)
		if err != nil {
			return err
		}
		movement.Subject = models.SubjectCashOut
		movement.From = ledger.Party{ClientID: record.ClientID, UserID: record.BranchID, BalanceAfter: newBalance}
		movement.To = ledger.Party{ClientID: record.ClientID, Username: "system"}

	case models.ApprovalExpense:
		branchBalance, err := w.wallets.Debit(tx, record.ClientID, record.BranchID, models.FieldAvailableBalance, record.Amount)
		if err != nil {
			return err
		}
		verifierBalance, err := w.wallets.Credit(tx, record.ClientID, verifier.UserID, models.FieldAvailableBalance, record.Amount)
		if err != nil {
			return err
		}
		movement.Subject = models.SubjectExpense
		movement.From = ledger.Party{ClientID: record.ClientID, UserID: record.BranchID, BalanceAfter: branchBalance}
		movement.To = ledger.Party{ClientID: record.ClientID, UserID: verifier.UserID, Username: verifier.Username, BalanceAfter: verifierBalance}

	default:
		return ErrInvalidType
	}

	_, _, err := w.recorder.Record(ctx, tx, movement)
	return err
}

package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sportdesk/walletd/internal/gateway"
	"github.com/sportdesk/walletd/internal/models"
	"github.com/sportdesk/walletd/internal/repository"
)

// ProcessResult tells the queue worker what happened to a job.
type ProcessResult struct {
	Disbursed       bool
	AwaitingManual  bool
	AlreadyResolved bool
}

// ProcessJob runs one queued withdrawal. It is safe under redelivery: a
// withdrawal that already reached a terminal status is skipped, and the credit
// leg is only recorded once. A returned error is transient; the worker retries
// with backoff and parks the job when the budget runs out.
func (s *Service) ProcessJob(ctx context.Context, job *Job) (*ProcessResult, error) {
	withdrawal, found, err := s.withdrawals.FindByCode(job.ClientID, job.WithdrawalCode)
	if err != nil {
		return nil, err
	}
	if !found {
		// the hold transaction writes the row before the job is produced, so
		// this means the message is foreign or the row was purged
		return nil, fmt.Errorf("%w: code %s", ErrWithdrawalNotFound, job.WithdrawalCode)
	}

	if withdrawal.Status.Terminal() {
		return &ProcessResult{AlreadyResolved: true}, nil
	}

	if job.BankCode != models.BankCodeCash {
		err = s.accounts.Upsert(&models.WithdrawalAccount{
			ClientID:      job.ClientID,
			UserID:        job.UserID,
			AccountNumber: job.AccountNumber,
			AccountName:   job.AccountName,
			BankCode:      job.BankCode,
			BankName:      job.BankName,
		})
		if err != nil {
			return nil, err
		}
	}

	// pair up the hold: the debit leg was written at request time, the credit
	// leg belongs to the payout side and is written here, once
	_, creditFound, err := s.transactions.FindByTransactionNo(job.ClientID, job.WithdrawalCode, models.TrxCredit)
	if err != nil {
		return nil, err
	}
	if !creditFound {
		_, err = s.transactions.Insert(&models.Transaction{
			ClientID:      job.ClientID,
			UserID:        job.UserID,
			Username:      job.Username,
			TransactionNo: job.WithdrawalCode,
			Amount:        job.Amount,
			TrxType:       models.TrxCredit,
			Subject:       models.SubjectWithdrawal,
			Channel:       "internal",
			Source:        job.BankName,
			Status:        models.TransactionPending,
		}, nil)
		// a concurrent delivery can slip between the existence check and the
		// insert; the unique leg index makes that a no-op instead of a
		// duplicate row
		if err != nil && !errors.Is(err, repository.ErrDuplicateTransaction) {
			return nil, err
		}
	}

	eligible, reason := s.autoEligible(job)
	if !eligible {
		s.logger.Info("withdrawal awaiting manual approval",
			"withdrawal_code", job.WithdrawalCode, "reason", reason)
		return &ProcessResult{AwaitingManual: true}, nil
	}

	if err := s.disburse(ctx, withdrawal, "auto-disbursement"); err != nil {
		if errors.Is(err, ErrAlreadyDecided) {
			// another actor claimed or decided this payout mid-flight
			return &ProcessResult{AlreadyResolved: true}, nil
		}
		return nil, err
	}

	return &ProcessResult{Disbursed: true}, nil
}

// autoEligible evaluates the auto-disbursement policy: the per-user daily
// success count, the configured amount band and the destination type. Cash
// pickups always go to a human.
func (s *Service) autoEligible(job *Job) (bool, string) {
	if !job.Settings.AutoDisbursement {
		return false, "auto-disbursement disabled"
	}
	if job.BankCode == models.BankCodeCash {
		return false, "cash destinations are paid at the branch"
	}
	if job.Amount < job.Settings.AutoDisbursementMin {
		return false, fmt.Sprintf("amount below auto-disbursement minimum %.2f", job.Settings.AutoDisbursementMin)
	}
	if job.Amount > job.Settings.AutoDisbursementMax {
		return false, fmt.Sprintf("amount above auto-disbursement maximum %.2f", job.Settings.AutoDisbursementMax)
	}

	count, err := s.paidTodayCount(job.ClientID, job.UserID)
	if err != nil {
		// policy data unavailable: route to a human instead of guessing
		s.logger.Error("could not determine daily disbursement count", "error", err)
		return false, "daily disbursement count unavailable"
	}
	if count > job.Settings.AutoDisbursementCount {
		return false, fmt.Sprintf("daily auto-disbursement count %d exceeded", job.Settings.AutoDisbursementCount)
	}

	return true, ""
}

func (s *Service) paidTodayCount(clientID, userID int) (int, error) {
	key := dailyCounterKey(clientID, userID)

	if value, err := s.counter.Get(key); err == nil {
		var count int
		if _, scanErr := fmt.Sscanf(value, "%d", &count); scanErr == nil {
			return count, nil
		}
	}

	// cache miss; the database is the source of truth
	return s.withdrawals.CountPaidToday(clientID, userID)
}

func dailyCounterKey(clientID, userID int) string {
	return fmt.Sprintf("withdrawal:auto:%d:%d:%s", clientID, userID, time.Now().Format("2006-01-02"))
}

// disburse pays out through the gateway and, on success, marks the withdrawal
// Paid and settles both ledger legs in one database transaction. The claim CAS
// runs before the provider call: only the claim winner talks to the provider,
// so racing deciders cannot send the same money twice. A provider failure
// releases the claim and leaves the withdrawal Pending; once the provider has
// accepted the transfer the claim is never released.
func (s *Service) disburse(ctx context.Context, withdrawal *models.Withdrawal, updatedBy string) error {
	claimed, err := s.withdrawals.Claim(withdrawal.ID, updatedBy)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrAlreadyDecided
	}

	destination := gateway.Destination{
		AccountNumber: withdrawal.AccountNumber,
		AccountName:   withdrawal.AccountName,
		BankCode:      withdrawal.BankCode,
		BankName:      withdrawal.BankName,
	}

	res, err := s.gateway.Disburse(ctx, destination, withdrawal.Amount, withdrawal.WithdrawalCode)
	if err != nil {
		s.releaseClaim(withdrawal)
		return fmt.Errorf("%w: %v", ErrDisbursementFailed, err)
	}
	if !res.Success {
		s.releaseClaim(withdrawal)
		return fmt.Errorf("%w: provider declined transfer %s", ErrDisbursementFailed, withdrawal.WithdrawalCode)
	}

	err = s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		swapped, err := s.withdrawals.MarkPaid(tx, withdrawal.ID, updatedBy)
		if err != nil {
			return err
		}
		if !swapped {
			return ErrAlreadyDecided
		}

		_, err = s.transactions.Settle(tx, withdrawal.ClientID, withdrawal.WithdrawalCode, 0)
		return err
	})
	if err != nil {
		return err
	}

	if _, err := s.counter.Increment(dailyCounterKey(withdrawal.ClientID, withdrawal.UserID), 24*time.Hour); err != nil {
		s.logger.Error("could not bump daily disbursement counter", "error", err)
	}

	s.logger.Info("withdrawal disbursed",
		"withdrawal_code", withdrawal.WithdrawalCode,
		"amount", withdrawal.Amount,
		"provider_ref", res.ProviderRef,
	)

	return nil
}

// releaseClaim puts a claimed withdrawal back to plain Pending after a
// provider failure. A release error is logged, not returned: the withdrawal
// stays held either way and an operator resolves it.
func (s *Service) releaseClaim(withdrawal *models.Withdrawal) {
	if err := s.withdrawals.Release(withdrawal.ID); err != nil {
		s.logger.Error("could not release withdrawal claim",
			"withdrawal_code", withdrawal.WithdrawalCode, "error", err)
	}
}

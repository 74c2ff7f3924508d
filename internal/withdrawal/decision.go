package withdrawal

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sportdesk/walletd/internal/ledger"
	"github.com/sportdesk/walletd/internal/models"
)

// Approve is the manual path for jobs that were not auto-eligible. The payout
// is attempted immediately; a gateway failure leaves the withdrawal Pending so
// the operator can retry, it never silently drops the request.
func (s *Service) Approve(ctx context.Context, withdrawalID, verifier string) error {
	withdrawal, found, err := s.withdrawals.GetOne(withdrawalID)
	if err != nil {
		return err
	}
	if !found {
		return ErrWithdrawalNotFound
	}
	if withdrawal.Status.Terminal() {
		return ErrAlreadyDecided
	}

	return s.disburse(ctx, withdrawal, verifier)
}

// Reject releases the hold: the withdrawal flips Pending→Rejected, the
// original movement legs are failed, and the held amount is credited back with
// a "Rejected Request" reversal pair. All of it is one database transaction.
func (s *Service) Reject(ctx context.Context, withdrawalID, verifier, comment string) error {
	withdrawal, found, err := s.withdrawals.GetOne(withdrawalID)
	if err != nil {
		return err
	}
	if !found {
		return ErrWithdrawalNotFound
	}
	if withdrawal.Status.Terminal() {
		return ErrAlreadyDecided
	}

	return s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		swapped, err := s.withdrawals.MarkRejected(tx, withdrawal.ID, verifier, comment)
		if err != nil {
			return err
		}
		if !swapped {
			return ErrAlreadyDecided
		}

		if _, err := s.transactions.Fail(tx, withdrawal.ClientID, withdrawal.WithdrawalCode); err != nil {
			return err
		}

		newBalance, err := s.wallets.Credit(tx, withdrawal.ClientID, withdrawal.UserID, models.FieldAvailableBalance, withdrawal.Amount)
		if err != nil {
			return err
		}

		_, _, err = s.recorder.Record(ctx, tx, &ledger.Movement{
			TransactionNo: ledger.GenerateTransactionNo(),
			Amount:        withdrawal.Amount,
			Subject:       models.SubjectRejectedRequest,
			Description:   "reversal of withdrawal " + withdrawal.WithdrawalCode,
			Channel:       "internal",
			From: ledger.Party{
				ClientID: withdrawal.ClientID,
				Username: "system",
			},
			To: ledger.Party{
				ClientID:     withdrawal.ClientID,
				UserID:       withdrawal.UserID,
				Username:     withdrawal.Username,
				BalanceAfter: newBalance,
			},
			Status: models.TransactionSettled,
		})
		return err
	})
}

// RequeueStuck re-produces jobs for withdrawals that are still Pending past
// the cutoff. This is the recovery path for a crash between the hold commit
// and the queue produce; job processing is redelivery-safe so re-producing an
// in-flight withdrawal is harmless.
func (s *Service) RequeueStuck(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	stuck, err := s.withdrawals.FindStuckPending(time.Now().Add(-olderThan), limit)
	if err != nil {
		return 0, err
	}

	requeued := 0
	for i := range stuck {
		w := &stuck[i]

		settings, err := s.identity.GetWithdrawalSettings(ctx, w.ClientID, w.UserID)
		if err != nil {
			s.logger.Error("requeue: could not fetch withdrawal settings",
				"withdrawal_code", w.WithdrawalCode, "error", err)
			continue
		}

		job := &Job{
			JobID:          newJobID(),
			ClientID:       w.ClientID,
			UserID:         w.UserID,
			Username:       w.Username,
			Amount:         w.Amount,
			WithdrawalID:   w.ID,
			WithdrawalCode: w.WithdrawalCode,
			AccountNumber:  w.AccountNumber,
			AccountName:    w.AccountName,
			BankCode:       w.BankCode,
			BankName:       w.BankName,
			Settings:       *settings,
		}

		if err := s.produce(job); err != nil {
			s.logger.Error("requeue: produce failed", "withdrawal_code", w.WithdrawalCode, "error", err)
			continue
		}
		requeued++
	}

	return requeued, nil
}

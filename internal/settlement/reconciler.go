// Package settlement resolves pending ledger movements against signals from
// the outside world. Whatever path a signal takes into the system (webhook
// push, redirect callback, explicit poll, queue worker), it lands on
// Reconciler.Resolve, and Resolve applies the outcome to the wallet and the
// ledger exactly once.
package settlement

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/jmoiron/sqlx"
	"github.com/sportdesk/walletd/internal/gateway"
	"github.com/sportdesk/walletd/internal/models"
	"github.com/sportdesk/walletd/internal/repository"
)

var (
	// ErrTransactionNotFound means no movement matches the correlation
	// reference. The money has not moved in this system; callers should log
	// and acknowledge the external message so the provider stops retrying.
	ErrTransactionNotFound = errors.New("transaction not found for correlation reference")

	errLostRace = errors.New("settlement lost status race")
)

// Result reports what Resolve did. AlreadyResolved is a success shape, not a
// failure: re-delivered webhooks land here and must be acknowledged upstream.
type Result struct {
	Status          models.TransactionStatus
	AlreadyResolved bool
	AmountMismatch  bool
	NewBalance      float64
}

type Reconciler struct {
	db           repository.Database
	wallets      repository.WalletRepository
	transactions repository.TransactionRepository
	logger       *slog.Logger
}

func New(db repository.Database, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		db:           db,
		wallets:      db.Wallet(),
		transactions: db.Transaction(),
		logger:       logger,
	}
}

// Resolve applies exactly one of settle/fail to the pending movement matching
// (clientID, correlationRef). gatewayAmount is the amount the provider claims
// to have moved; zero means the provider did not report one.
//
// The critical section is "re-check Pending, credit wallet, set terminal
// status" inside one database transaction: the status update carries a
// WHERE status=0 guard, so of two concurrent deliveries that both observed
// Pending, the loser's wallet credit rolls back with its transaction.
func (r *Reconciler) Resolve(ctx context.Context, clientID int, correlationRef string, outcome gateway.Outcome, gatewayAmount float64) (*Result, error) {
	trx, found, err := r.transactions.FindByTransactionNo(clientID, correlationRef, models.TrxCredit)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrTransactionNotFound
	}

	if trx.Status.Terminal() {
		return &Result{Status: trx.Status, AlreadyResolved: true}, nil
	}

	if outcome == gateway.OutcomePending {
		// nothing to apply yet; a later signal will resolve it
		return &Result{Status: models.TransactionPending}, nil
	}

	if outcome == gateway.OutcomeFailed {
		swapped, err := r.transactions.Fail(nil, clientID, correlationRef)
		if err != nil {
			return nil, err
		}
		if !swapped {
			return r.resolvedElsewhere(clientID, correlationRef)
		}
		r.logger.Info("settlement marked failed", "client_id", clientID, "reference", correlationRef)
		return &Result{Status: models.TransactionFailed}, nil
	}

	// We settle with the amount we recorded, never the gateway's number. A
	// variance is loud but does not block the customer's money.
	mismatch := gatewayAmount > 0 && math.Abs(gatewayAmount-trx.Amount) >= 0.01
	if mismatch {
		r.logger.Error("gateway amount differs from recorded amount",
			"client_id", clientID,
			"reference", correlationRef,
			"recorded_amount", trx.Amount,
			"gateway_amount", gatewayAmount,
		)
	}

	result := &Result{Status: models.TransactionSettled, AmountMismatch: mismatch}

	err = r.db.InTx(ctx, func(tx *sqlx.Tx) error {
		_, found, err := r.wallets.GetByUser(clientID, trx.UserID)
		if err != nil {
			return err
		}
		if !found {
			// leave the transaction Pending for manual intervention; do not
			// silently drop a success signal
			return repository.ErrWalletNotFound
		}

		newBalance, err := r.wallets.Credit(tx, clientID, trx.UserID, models.FieldAvailableBalance, trx.Amount)
		if err != nil {
			return err
		}

		swapped, err := r.transactions.Settle(tx, clientID, correlationRef, newBalance)
		if err != nil {
			return err
		}
		if !swapped {
			return errLostRace
		}

		result.NewBalance = newBalance
		return nil
	})

	if errors.Is(err, errLostRace) {
		return r.resolvedElsewhere(clientID, correlationRef)
	}
	if err != nil {
		return nil, err
	}

	r.logger.Info("settlement applied",
		"client_id", clientID,
		"reference", correlationRef,
		"amount", trx.Amount,
		"user_id", trx.UserID,
	)

	return result, nil
}

// resolvedElsewhere re-reads the movement after a lost status race. The winner
// may have applied either outcome, so the stored status is the only truth
// worth reporting.
func (r *Reconciler) resolvedElsewhere(clientID int, correlationRef string) (*Result, error) {
	trx, found, err := r.transactions.FindByTransactionNo(clientID, correlationRef, models.TrxCredit)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrTransactionNotFound
	}

	return &Result{Status: trx.Status, AlreadyResolved: true}, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sportdesk/walletd/internal/models"
)

type WithdrawalRepository interface {
	Insert(w *models.Withdrawal, tx *sqlx.Tx) (string, error)
	FindByCode(clientID int, code string) (*models.Withdrawal, bool, error)
	GetOne(id string) (*models.Withdrawal, bool, error)
	Claim(id, claimedBy string) (bool, error)
	Release(id string) error
	MarkPaid(tx *sqlx.Tx, id, updatedBy string) (bool, error)
	MarkRejected(tx *sqlx.Tx, id, updatedBy, comment string) (bool, error)
	CountPaidToday(clientID, userID int) (int, error)
	FindStuckPending(olderThan time.Time, limit int) ([]models.Withdrawal, error)
}

type WithdrawalRepositoryImpl struct {
	db *sqlx.DB
}

func NewWithdrawalRepository(db *sqlx.DB) WithdrawalRepository {
	return &WithdrawalRepositoryImpl{db: db}
}

func (repo *WithdrawalRepositoryImpl) Insert(w *models.Withdrawal, tx *sqlx.Tx) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string

	query := `
		INSERT INTO withdrawals (client_id, user_id, username, amount, withdrawal_code,
			account_number, account_name, bank_code, bank_name, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	args := []any{
		w.ClientID,
		w.UserID,
		w.Username,
		w.Amount,
		w.WithdrawalCode,
		w.AccountNumber,
		w.AccountName,
		w.BankCode,
		w.BankName,
		w.Comment,
	}

	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = repo.db.GetContext(ctx, &id, query, args...)
	}

	if err != nil {
		return "", err
	}

	return id, nil
}

func (repo *WithdrawalRepositoryImpl) FindByCode(clientID int, code string) (*models.Withdrawal, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var withdrawal models.Withdrawal

	query := `
        SELECT id, client_id, user_id, username, amount, withdrawal_code, account_number,
			account_name, bank_code, bank_name, comment, updated_by, status, created_at, updated_at
		FROM withdrawals WHERE client_id=$1 AND withdrawal_code=$2`

	err := repo.db.GetContext(ctx, &withdrawal, query, clientID, code)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &withdrawal, true, nil
}

func (repo *WithdrawalRepositoryImpl) GetOne(id string) (*models.Withdrawal, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var withdrawal models.Withdrawal

	query := `
        SELECT id, client_id, user_id, username, amount, withdrawal_code, account_number,
			account_name, bank_code, bank_name, comment, updated_by, status, created_at, updated_at
		FROM withdrawals WHERE id=$1`

	err := repo.db.GetContext(ctx, &withdrawal, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &withdrawal, true, nil
}

// Claim stamps updated_by on a pending, unclaimed withdrawal. Only the winner
// of this compare-and-swap may call the payment provider, so one withdrawal
// can never produce two transfers however many actors race on it.
func (repo *WithdrawalRepositoryImpl) Claim(id, claimedBy string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE withdrawals SET updated_by=$1, updated_at=NOW()
		WHERE id=$2 AND status=0 AND updated_by=''`

	res, err := repo.db.ExecContext(ctx, query, claimedBy, id)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

// Release clears the claim stamp on a still-pending withdrawal so the payout
// can be attempted again.
func (repo *WithdrawalRepositoryImpl) Release(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE withdrawals SET updated_by='', updated_at=NOW() WHERE id=$1 AND status=0`

	_, err := repo.db.ExecContext(ctx, query, id)
	return err
}

// MarkPaid is a Pending→Paid compare-and-swap. A false return means some other
// actor already decided this withdrawal.
func (repo *WithdrawalRepositoryImpl) MarkPaid(tx *sqlx.Tx, id, updatedBy string) (bool, error) {
	return repo.decide(tx, id, models.WithdrawalPaid, updatedBy, "")
}

// MarkRejected is a Pending→Rejected compare-and-swap.
func (repo *WithdrawalRepositoryImpl) MarkRejected(tx *sqlx.Tx, id, updatedBy, comment string) (bool, error) {
	return repo.decide(tx, id, models.WithdrawalRejected, updatedBy, comment)
}

func (repo *WithdrawalRepositoryImpl) decide(tx *sqlx.Tx, id string, status models.WithdrawalStatus, updatedBy, comment string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	// a claim stamp held by a different actor blocks the decision: a payout
	// that is in flight at the provider must not be rejected underneath
	query := `
		UPDATE withdrawals SET status=$1, updated_by=$2, comment=CASE WHEN $3 <> '' THEN $3 ELSE comment END, updated_at=NOW()
		WHERE id=$4 AND status=0 AND (updated_by='' OR updated_by=$2)`

	var (
		res sql.Result
		err error
	)
	if tx != nil {
		res, err = tx.ExecContext(ctx, query, status, updatedBy, comment, id)
	} else {
		res, err = repo.db.ExecContext(ctx, query, status, updatedBy, comment, id)
	}
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (repo *WithdrawalRepositoryImpl) CountPaidToday(clientID, userID int) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var count int

	query := `
        SELECT COUNT(*) FROM withdrawals
		WHERE client_id=$1 AND user_id=$2 AND status=$3 AND created_at >= CURRENT_DATE`

	err := repo.db.GetContext(ctx, &count, query, clientID, userID, models.WithdrawalPaid)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// FindStuckPending returns pending withdrawals older than the given cutoff so
// the requeue sweep can re-produce jobs lost between the hold commit and the
// queue produce.
func (repo *WithdrawalRepositoryImpl) FindStuckPending(olderThan time.Time, limit int) ([]models.Withdrawal, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var withdrawals []models.Withdrawal

	query := `
        SELECT id, client_id, user_id, username, amount, withdrawal_code, account_number,
			account_name, bank_code, bank_name, comment, updated_by, status, created_at, updated_at
		FROM withdrawals WHERE status=0 AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`

	err := repo.db.SelectContext(ctx, &withdrawals, query, olderThan, limit)
	if err != nil {
		return nil, err
	}

	return withdrawals, nil
}

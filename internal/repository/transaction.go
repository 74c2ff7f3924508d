package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sportdesk/walletd/internal/models"
)

type TransactionRepository interface {
	Insert(t *models.Transaction, tx *sqlx.Tx) (string, error)
	FindByTransactionNo(clientID int, transactionNo, trxType string) (*models.Transaction, bool, error)
	FindLast(clientID, userID, limit int) ([]models.Transaction, error)
	SumBySubject(clientID int, subject, trxType string, start, end time.Time) (float64, error)
	Settle(tx *sqlx.Tx, clientID int, transactionNo string, balance float64) (bool, error)
	Fail(tx *sqlx.Tx, clientID int, transactionNo string) (bool, error)
}

type TransactionRepositoryImpl struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) TransactionRepository {
	return &TransactionRepositoryImpl{db: db}
}

func (repo *TransactionRepositoryImpl) Insert(t *models.Transaction, tx *sqlx.Tx) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string

	query := `
		INSERT INTO transactions (client_id, user_id, username, transaction_no, amount, tranx_type,
			subject, description, source, channel, balance, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	args := []any{
		t.ClientID,
		t.UserID,
		t.Username,
		t.TransactionNo,
		t.Amount,
		t.TrxType,
		t.Subject,
		t.Description,
		t.Source,
		t.Channel,
		t.Balance,
		t.Status,
	}

	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = repo.db.GetContext(ctx, &id, query, args...)
	}

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return "", ErrDuplicateTransaction
		}
		return "", err
	}

	return id, nil
}

func (repo *TransactionRepositoryImpl) FindByTransactionNo(clientID int, transactionNo, trxType string) (*models.Transaction, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var trans models.Transaction

	query := `
        SELECT id, client_id, user_id, username, transaction_no, amount, tranx_type, subject,
			description, source, channel, balance, status, created_at, updated_at
		FROM transactions
		WHERE client_id=$1 AND transaction_no=$2 AND tranx_type=$3`

	err := repo.db.GetContext(ctx, &trans, query, clientID, transactionNo, trxType)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &trans, true, nil
}

func (repo *TransactionRepositoryImpl) FindLast(clientID, userID, limit int) ([]models.Transaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var transactions []models.Transaction

	query := `
        SELECT id, client_id, user_id, username, transaction_no, amount, tranx_type, subject,
			description, source, channel, balance, status, created_at, updated_at
		FROM transactions
		WHERE client_id=$1 AND user_id=$2
		ORDER BY created_at DESC
		LIMIT $3`

	err := repo.db.SelectContext(ctx, &transactions, query, clientID, userID, limit)
	if err != nil {
		return nil, err
	}

	return transactions, nil
}

func (repo *TransactionRepositoryImpl) SumBySubject(clientID int, subject, trxType string, start, end time.Time) (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var total float64

	query := `
        SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE client_id=$1 AND subject=$2 AND tranx_type=$3 AND status=$4
			AND created_at >= $5 AND created_at < $6`

	err := repo.db.GetContext(ctx, &total, query, clientID, subject, trxType, models.TransactionSettled, start, end)
	if err != nil {
		return 0, err
	}

	return total, nil
}

// Settle moves both legs of a pending movement to Settled and stamps the
// balance-after on the credit leg. A zero balance keeps whatever the row
// already holds; the payout path settles without a balance-after of its own.
// The WHERE status=0 clause is the compare-and-swap that closes the
// double-delivery race: when two concurrent settlements both observed Pending,
// only one of them updates a row here, and the loser's enclosing transaction
// rolls back its wallet credit with it.
func (repo *TransactionRepositoryImpl) Settle(tx *sqlx.Tx, clientID int, transactionNo string, balance float64) (bool, error) {
	return repo.resolve(tx, clientID, transactionNo, models.TransactionSettled, balance)
}

// Fail moves both legs of a pending movement to Failed. No wallet is touched.
func (repo *TransactionRepositoryImpl) Fail(tx *sqlx.Tx, clientID int, transactionNo string) (bool, error) {
	return repo.resolve(tx, clientID, transactionNo, models.TransactionFailed, 0)
}

func (repo *TransactionRepositoryImpl) resolve(tx *sqlx.Tx, clientID int, transactionNo string, status models.TransactionStatus, balance float64) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	creditQuery := `
		UPDATE transactions SET status=$1, balance=CASE WHEN $2 > 0 THEN $2 ELSE balance END, updated_at=NOW()
		WHERE client_id=$3 AND transaction_no=$4 AND tranx_type='credit' AND status=0`

	debitQuery := `
		UPDATE transactions SET status=$1, updated_at=NOW()
		WHERE client_id=$2 AND transaction_no=$3 AND tranx_type='debit' AND status=0`

	var (
		res sql.Result
		err error
	)

	if tx != nil {
		res, err = tx.ExecContext(ctx, creditQuery, status, balance, clientID, transactionNo)
		if err != nil {
			return false, err
		}
		_, err = tx.ExecContext(ctx, debitQuery, status, clientID, transactionNo)
	} else {
		res, err = repo.db.ExecContext(ctx, creditQuery, status, balance, clientID, transactionNo)
		if err != nil {
			return false, err
		}
		_, err = repo.db.ExecContext(ctx, debitQuery, status, clientID, transactionNo)
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

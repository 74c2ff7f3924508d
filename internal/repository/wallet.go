package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sportdesk/walletd/internal/models"
)

const (
	WalletActiveStatus = 1
	WalletOnHoldStatus = 2
)

type WalletRepository interface {
	Insert(wallet *models.Wallet, tx *sqlx.Tx) (string, error)
	GetByUser(clientID, userID int) (*models.Wallet, bool, error)
	Credit(tx *sqlx.Tx, clientID, userID int, field models.BalanceField, amount float64) (float64, error)
	Debit(tx *sqlx.Tx, clientID, userID int, field models.BalanceField, amount float64) (float64, error)
}

type WalletRepositoryImpl struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) WalletRepository {
	return &WalletRepositoryImpl{db: db}
}

func (repo *WalletRepositoryImpl) Insert(wallet *models.Wallet, tx *sqlx.Tx) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string

	query := `
		INSERT INTO wallets (client_id, user_id, username, available_balance, balance)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id`
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query,
			wallet.ClientID,
			wallet.UserID,
			wallet.Username,
			wallet.AvailableBalance,
		).Scan(&id)
	} else {
		err = repo.db.GetContext(ctx, &id, query,
			wallet.ClientID,
			wallet.UserID,
			wallet.Username,
			wallet.AvailableBalance,
		)
	}

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return "", ErrDuplicateWallet
		}
		return "", err
	}

	return id, nil
}

func (repo *WalletRepositoryImpl) GetByUser(clientID, userID int) (*models.Wallet, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var wallet models.Wallet

	query := `
        SELECT id, client_id, user_id, username, balance, available_balance, trust_balance,
			sport_bonus_balance, virtual_bonus_balance, casino_bonus_balance, status, created_at, updated_at
		FROM wallets WHERE client_id=$1 AND user_id=$2`

	err := repo.db.GetContext(ctx, &wallet, query, clientID, userID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &wallet, true, nil
}

// Credit adds amount to the named sub-balance under a row lock and returns the
// new value of that sub-balance. When tx is nil the lock lives in its own
// transaction; when the caller passes a tx the lock is held until the caller
// commits, which is how settlement keeps "credit wallet + settle transaction"
// atomic.
func (repo *WalletRepositoryImpl) Credit(tx *sqlx.Tx, clientID, userID int, field models.BalanceField, amount float64) (float64, error) {
	return repo.adjust(tx, clientID, userID, field, amount, false)
}

// Debit subtracts amount from the named sub-balance. It fails with
// ErrInsufficientFunds before writing anything if the current value is lower
// than amount; the balance is checked before commit, never after.
func (repo *WalletRepositoryImpl) Debit(tx *sqlx.Tx, clientID, userID int, field models.BalanceField, amount float64) (float64, error) {
	return repo.adjust(tx, clientID, userID, field, -amount, true)
}

func (repo *WalletRepositoryImpl) adjust(tx *sqlx.Tx, clientID, userID int, field models.BalanceField, delta float64, checkFunds bool) (float64, error) {
	if !field.Valid() {
		return 0, fmt.Errorf("invalid balance field %q", field)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	ownTx := tx == nil
	if ownTx {
		var err error
		tx, err = repo.db.BeginTxx(ctx, nil)
		if err != nil {
			return 0, err
		}
		defer tx.Rollback()
	}

	var current float64

	// we'll use pessimistic lock to hold the row for the duration of the operation
	query := fmt.Sprintf(`SELECT %s FROM wallets WHERE client_id=$1 AND user_id=$2 FOR UPDATE`, field)

	err := tx.GetContext(ctx, &current, query, clientID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrWalletNotFound
		}
		return 0, err
	}

	if checkFunds && current+delta < 0 {
		return 0, ErrInsufficientFunds
	}

	// the top-line balance tracks the sum of the sub-balances, so every delta
	// applies to both columns
	query = fmt.Sprintf(`
		UPDATE wallets SET %s = %s + $1, balance = balance + $1, updated_at = NOW()
		WHERE client_id=$2 AND user_id=$3`, field, field)

	_, err = tx.ExecContext(ctx, query, delta, clientID, userID)
	if err != nil {
		return 0, err
	}

	if ownTx {
		if err := tx.Commit(); err != nil {
			return 0, err
		}
	}

	return current + delta, nil
}

package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/sportdesk/walletd/internal/models"
)

type WithdrawalAccountRepository interface {
	Upsert(account *models.WithdrawalAccount) error
	GetAllByUserID(userID int) ([]models.WithdrawalAccount, error)
}

type WithdrawalAccountRepositoryImpl struct {
	db *sqlx.DB
}

func NewWithdrawalAccountRepository(db *sqlx.DB) WithdrawalAccountRepository {
	return &WithdrawalAccountRepositoryImpl{db: db}
}

// Upsert caches a destination the first time it is used. Duplicates on
// (user_id, bank_code) are silently ignored.
func (repo *WithdrawalAccountRepositoryImpl) Upsert(account *models.WithdrawalAccount) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		INSERT INTO withdrawal_accounts (client_id, user_id, account_number, account_name, bank_code, bank_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, bank_code) DO NOTHING`

	_, err := repo.db.ExecContext(ctx, query,
		account.ClientID,
		account.UserID,
		account.AccountNumber,
		account.AccountName,
		account.BankCode,
		account.BankName,
	)

	return err
}

func (repo *WithdrawalAccountRepositoryImpl) GetAllByUserID(userID int) ([]models.WithdrawalAccount, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var accounts []models.WithdrawalAccount

	query := `
        SELECT id, client_id, user_id, account_number, account_name, bank_code, bank_name, created_at
		FROM withdrawal_accounts WHERE user_id=$1
		ORDER BY created_at DESC`

	err := repo.db.SelectContext(ctx, &accounts, query, userID)
	if err != nil {
		return nil, err
	}

	return accounts, nil
}

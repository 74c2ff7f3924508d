package mocks

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/sportdesk/walletd/internal/repository"
	"github.com/stretchr/testify/mock"
)

// MockDatabase satisfies repository.Database. InTx runs the callback with a
// nil tx, which the repository mocks accept, so transactional code paths can
// run end to end in tests without a database.
type MockDatabase struct {
	mock.Mock

	WalletRepo            *MockWalletRepo
	TransactionRepo       *MockTransactionRepo
	WithdrawalRepo        *MockWithdrawalRepo
	WithdrawalAccountRepo *MockWithdrawalAccountRepo
	ApprovalRepo          *MockApprovalRepo
}

func NewMockDatabase() *MockDatabase {
	return &MockDatabase{
		WalletRepo:            new(MockWalletRepo),
		TransactionRepo:       new(MockTransactionRepo),
		WithdrawalRepo:        new(MockWithdrawalRepo),
		WithdrawalAccountRepo: new(MockWithdrawalAccountRepo),
		ApprovalRepo:          new(MockApprovalRepo),
	}
}

func (m *MockDatabase) Wallet() repository.WalletRepository {
	return m.WalletRepo
}

func (m *MockDatabase) Transaction() repository.TransactionRepository {
	return m.TransactionRepo
}

func (m *MockDatabase) Withdrawal() repository.WithdrawalRepository {
	return m.WithdrawalRepo
}

func (m *MockDatabase) WithdrawalAccount() repository.WithdrawalAccountRepository {
	return m.WithdrawalAccountRepo
}

func (m *MockDatabase) Approval() repository.ApprovalRepository {
	return m.ApprovalRepo
}

func (m *MockDatabase) Close() error {
	return nil
}

func (m *MockDatabase) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, nil
}

func (m *MockDatabase) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

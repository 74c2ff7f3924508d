package mocks

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sportdesk/walletd/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockWalletRepo struct {
	mock.Mock
}

func (m *MockWalletRepo) Insert(wallet *models.Wallet, tx *sqlx.Tx) (string, error) {
	args := m.Called(wallet, tx)
	return args.String(0), args.Error(1)
}

func (m *MockWalletRepo) GetByUser(clientID, userID int) (*models.Wallet, bool, error) {
	args := m.Called(clientID, userID)
	wallet, _ := args.Get(0).(*models.Wallet)
	return wallet, args.Bool(1), args.Error(2)
}

func (m *MockWalletRepo) Credit(tx *sqlx.Tx, clientID, userID int, field models.BalanceField, amount float64) (float64, error) {
	args := m.Called(tx, clientID, userID, field, amount)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockWalletRepo) Debit(tx *sqlx.Tx, clientID, userID int, field models.BalanceField, amount float64) (float64, error) {
	args := m.Called(tx, clientID, userID, field, amount)
	return args.Get(0).(float64), args.Error(1)
}

type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) Insert(t *models.Transaction, tx *sqlx.Tx) (string, error) {
	args := m.Called(t, tx)
	return args.String(0), args.Error(1)
}

func (m *MockTransactionRepo) FindByTransactionNo(clientID int, transactionNo, trxType string) (*models.Transaction, bool, error) {
	args := m.Called(clientID, transactionNo, trxType)
	trx, _ := args.Get(0).(*models.Transaction)
	return trx, args.Bool(1), args.Error(2)
}

func (m *MockTransactionRepo) FindLast(clientID, userID, limit int) ([]models.Transaction, error) {
	args := m.Called(clientID, userID, limit)
	list, _ := args.Get(0).([]models.Transaction)
	return list, args.Error(1)
}

func (m *MockTransactionRepo) SumBySubject(clientID int, subject, trxType string, start, end time.Time) (float64, error) {
	args := m.Called(clientID, subject, trxType, start, end)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockTransactionRepo) Settle(tx *sqlx.Tx, clientID int, transactionNo string, balance float64) (bool, error) {
	args := m.Called(tx, clientID, transactionNo, balance)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepo) Fail(tx *sqlx.Tx, clientID int, transactionNo string) (bool, error) {
	args := m.Called(tx, clientID, transactionNo)
	return args.Bool(0), args.Error(1)
}

type MockWithdrawalRepo struct {
	mock.Mock
}

func (m *MockWithdrawalRepo) Insert(w *models.Withdrawal, tx *sqlx.Tx) (string, error) {
	args := m.Called(w, tx)
	return args.String(0), args.Error(1)
}

func (m *MockWithdrawalRepo) FindByCode(clientID int, code string) (*models.Withdrawal, bool, error) {
	args := m.Called(clientID, code)
	w, _ := args.Get(0).(*models.Withdrawal)
	return w, args.Bool(1), args.Error(2)
}

func (m *MockWithdrawalRepo) GetOne(id string) (*models.Withdrawal, bool, error) {
	args := m.Called(id)
	w, _ := args.Get(0).(*models.Withdrawal)
	return w, args.Bool(1), args.Error(2)
}

func (m *MockWithdrawalRepo) Claim(id, claimedBy string) (bool, error) {
	args := m.Called(id, claimedBy)
	return args.Bool(0), args.Error(1)
}

func (m *MockWithdrawalRepo) Release(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockWithdrawalRepo) MarkPaid(tx *sqlx.Tx, id, updatedBy string) (bool, error) {
	args := m.Called(tx, id, updatedBy)
	return args.Bool(0), args.Error(1)
}

func (m *MockWithdrawalRepo) MarkRejected(tx *sqlx.Tx, id, updatedBy, comment string) (bool, error) {
	args := m.Called(tx, id, updatedBy, comment)
	return args.Bool(0), args.Error(1)
}

func (m *MockWithdrawalRepo) CountPaidToday(clientID, userID int) (int, error) {
	args := m.Called(clientID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockWithdrawalRepo) FindStuckPending(olderThan time.Time, limit int) ([]models.Withdrawal, error) {
	args := m.Called(olderThan, limit)
	list, _ := args.Get(0).([]models.Withdrawal)
	return list, args.Error(1)
}

type MockWithdrawalAccountRepo struct {
	mock.Mock
}

func (m *MockWithdrawalAccountRepo) Upsert(account *models.WithdrawalAccount) error {
	args := m.Called(account)
	return args.Error(0)
}

func (m *MockWithdrawalAccountRepo) GetAllByUserID(userID int) ([]models.WithdrawalAccount, error) {
	args := m.Called(userID)
	list, _ := args.Get(0).([]models.WithdrawalAccount)
	return list, args.Error(1)
}

type MockApprovalRepo struct {
	mock.Mock
}

func (m *MockApprovalRepo) Insert(a *models.Approval) (string, error) {
	args := m.Called(a)
	return args.String(0), args.Error(1)
}

func (m *MockApprovalRepo) GetOne(id string) (*models.Approval, bool, error) {
	args := m.Called(id)
	a, _ := args.Get(0).(*models.Approval)
	return a, args.Bool(1), args.Error(2)
}

func (m *MockApprovalRepo) Decide(tx *sqlx.Tx, id string, status models.ApprovalStatus, verifiedBy, comment string) (bool, error) {
	args := m.Called(tx, id, status, verifiedBy, comment)
	return args.Bool(0), args.Error(1)
}

func (m *MockApprovalRepo) ListPending(clientID, limit, offset int) ([]models.Approval, error) {
	args := m.Called(clientID, limit, offset)
	list, _ := args.Get(0).([]models.Approval)
	return list, args.Error(1)
}

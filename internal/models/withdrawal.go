package models

import (
	"database/sql"
	"time"
)

type WithdrawalStatus int

const (
	WithdrawalPending  WithdrawalStatus = 0
	WithdrawalPaid     WithdrawalStatus = 1
	WithdrawalRejected WithdrawalStatus = 2
)

func (s WithdrawalStatus) Terminal() bool {
	return s != WithdrawalPending
}

func (s WithdrawalStatus) String() string {
	switch s {
	case WithdrawalPending:
		return "pending"
	case WithdrawalPaid:
		return "paid"
	case WithdrawalRejected:
		return "rejected"
	}
	return "unknown"
}

type Withdrawal struct {
	ID             string           `db:"id"`
	ClientID       int              `db:"client_id"`
	UserID         int              `db:"user_id"`
	Username       string           `db:"username"`
	Amount         float64          `db:"amount"`
	WithdrawalCode string           `db:"withdrawal_code"`
	AccountNumber  string           `db:"account_number"`
	AccountName    string           `db:"account_name"`
	BankCode       string           `db:"bank_code"`
	BankName       string           `db:"bank_name"`
	Comment        string           `db:"comment"`
	UpdatedBy      string           `db:"updated_by"`
	Status         WithdrawalStatus `db:"status"`
	CreatedAt      time.Time        `db:"created_at"`
	UpdatedAt      sql.NullTime     `db:"updated_at"`
}

// BankCodeCash marks a branch cash pickup destination. Cash pickups are never
// auto-disbursed.
const BankCodeCash = "cash"

type WithdrawalAccount struct {
	ID            string    `db:"id"`
	ClientID      int       `db:"client_id"`
	UserID        int       `db:"user_id"`
	AccountNumber string    `db:"account_number"`
	AccountName   string    `db:"account_name"`
	BankCode      string    `db:"bank_code"`
	BankName      string    `db:"bank_name"`
	CreatedAt     time.Time `db:"created_at"`
}

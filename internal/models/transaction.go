package models

import (
	"database/sql"
	"time"
)

// TransactionStatus is monotonic: a row starts Pending and moves exactly once
// to Settled or Failed. Integer values are kept for back-office compatibility.
type TransactionStatus int

const (
	TransactionPending TransactionStatus = 0
	TransactionSettled TransactionStatus = 1
	TransactionFailed  TransactionStatus = 2
)

func (s TransactionStatus) Terminal() bool {
	return s != TransactionPending
}

func (s TransactionStatus) String() string {
	switch s {
	case TransactionPending:
		return "pending"
	case TransactionSettled:
		return "settled"
	case TransactionFailed:
		return "failed"
	}
	return "unknown"
}

const (
	TrxDebit  = "debit"
	TrxCredit = "credit"
)

// Well-known subjects. Free-form subjects are allowed, these are the ones the
// core writes itself.
const (
	SubjectDeposit         = "Deposit"
	SubjectWithdrawal      = "Withdrawal"
	SubjectRejectedRequest = "Rejected Request"
	SubjectCashIn          = "Cash In (Cashbook)"
	SubjectCashOut         = "Cash Out (Cashbook)"
	SubjectExpense         = "Expense (Cashbook)"
	SubjectOpeningBalance  = "Opening Balance"
)

type Transaction struct {
	ID            string            `db:"id"`
	ClientID      int               `db:"client_id"`
	UserID        int               `db:"user_id"`
	Username      string            `db:"username"`
	TransactionNo string            `db:"transaction_no"`
	Amount        float64           `db:"amount"`
	TrxType       string            `db:"tranx_type"`
	Subject       string            `db:"subject"`
	Description   string            `db:"description"`
	Source        string            `db:"source"`
	Channel       string            `db:"channel"`
	Balance       float64           `db:"balance"`
	Status        TransactionStatus `db:"status"`
	CreatedAt     time.Time         `db:"created_at"`
	UpdatedAt     sql.NullTime      `db:"updated_at"`
}

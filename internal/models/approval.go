package models

import (
	"database/sql"
	"time"
)

type ApprovalStatus int

const (
	ApprovalPending  ApprovalStatus = 0
	ApprovalApproved ApprovalStatus = 1
	ApprovalRejected ApprovalStatus = 2
)

func (s ApprovalStatus) Terminal() bool {
	return s != ApprovalPending
}

func (s ApprovalStatus) String() string {
	switch s {
	case ApprovalPending:
		return "pending"
	case ApprovalApproved:
		return "approved"
	case ApprovalRejected:
		return "rejected"
	}
	return "unknown"
}

type ApprovalType string

const (
	ApprovalCashIn  ApprovalType = "cash_in"
	ApprovalCashOut ApprovalType = "cash_out"
	ApprovalExpense ApprovalType = "expense"
)

func (t ApprovalType) Valid() bool {
	switch t {
	case ApprovalCashIn, ApprovalCashOut, ApprovalExpense:
		return true
	}
	return false
}

// Approval is the generic two-party record behind branch cash-in, cash-out and
// expense reimbursement. It is mutable only while Pending; once decided it is
// immutable history.
type Approval struct {
	ID         string         `db:"id"`
	Type       ApprovalType   `db:"approval_type"`
	ClientID   int            `db:"client_id"`
	BranchID   int            `db:"branch_id"`
	UserID     int            `db:"user_id"`
	Amount     float64        `db:"amount"`
	Comment    string         `db:"comment"`
	ReceiptURL string         `db:"receipt_url"`
	Status     ApprovalStatus `db:"status"`
	VerifiedBy string         `db:"verified_by"`
	VerifiedAt sql.NullTime   `db:"verified_at"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  sql.NullTime   `db:"updated_at"`
}

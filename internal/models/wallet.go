package models

import (
	"database/sql"
	"time"
)

type Wallet struct {
	ID               string       `db:"id"`
	ClientID         int          `db:"client_id"`
	UserID           int          `db:"user_id"`
	Username         string       `db:"username"`
	Balance          float64      `db:"balance"`
	AvailableBalance float64      `db:"available_balance"`
	TrustBalance     float64      `db:"trust_balance"`
	SportBonus       float64      `db:"sport_bonus_balance"`
	VirtualBonus     float64      `db:"virtual_bonus_balance"`
	CasinoBonus      float64      `db:"casino_bonus_balance"`
	Status           int          `db:"status"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedAt        sql.NullTime `db:"updated_at"`
}

// BalanceField names a mutable sub-balance column on the wallets table.
// Repositories only accept values declared here, so a caller can never
// smuggle an arbitrary column name into a query.
type BalanceField string

const (
	FieldAvailableBalance BalanceField = "available_balance"
	FieldTrustBalance     BalanceField = "trust_balance"
	FieldSportBonus       BalanceField = "sport_bonus_balance"
	FieldVirtualBonus     BalanceField = "virtual_bonus_balance"
	FieldCasinoBonus      BalanceField = "casino_bonus_balance"
)

func (f BalanceField) Valid() bool {
	switch f {
	case FieldAvailableBalance, FieldTrustBalance, FieldSportBonus, FieldVirtualBonus, FieldCasinoBonus:
		return true
	}
	return false
}

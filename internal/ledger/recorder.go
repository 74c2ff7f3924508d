// Package ledger owns the append-only double-entry transaction log. Every
// money movement in the system is two rows sharing a transaction number: a
// debit leg at the source and a credit leg at the destination. The Record API
// writes both or neither, so no caller can leave a dangling half-movement.
package ledger

import (
	"context"
	"errors"
	"math/rand"

	"github.com/jmoiron/sqlx"
	"github.com/sportdesk/walletd/internal/models"
	"github.com/sportdesk/walletd/internal/repository"
)

var (
	ErrInvalidAmount = errors.New("movement amount must be positive")
	ErrNoReference   = errors.New("movement needs a transaction number")
)

// Party is one side of a movement.
type Party struct {
	ClientID     int
	UserID       int
	Username     string
	BalanceAfter float64
}

// Movement describes one logical money movement. Status applies to both legs.
type Movement struct {
	TransactionNo string
	Amount        float64
	Subject       string
	Description   string
	Channel       string
	Source        string
	From          Party
	To            Party
	Status        models.TransactionStatus
}

type Recorder struct {
	db           repository.Database
	transactions repository.TransactionRepository
}

func New(db repository.Database) *Recorder {
	return &Recorder{
		db:           db,
		transactions: db.Transaction(),
	}
}

// Record appends the debit and credit legs of a movement atomically. When the
// caller passes a tx the legs join the caller's transaction; otherwise Record
// opens its own.
func (r *Recorder) Record(ctx context.Context, tx *sqlx.Tx, m *Movement) (*models.Transaction, *models.Transaction, error) {
	if m.Amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	if m.TransactionNo == "" {
		return nil, nil, ErrNoReference
	}

	debitLeg := &models.Transaction{
		ClientID:      m.From.ClientID,
		UserID:        m.From.UserID,
		Username:      m.From.Username,
		TransactionNo: m.TransactionNo,
		Amount:        m.Amount,
		TrxType:       models.TrxDebit,
		Subject:       m.Subject,
		Description:   m.Description,
		Source:        m.Source,
		Channel:       m.Channel,
		Balance:       m.From.BalanceAfter,
		Status:        m.Status,
	}

	creditLeg := &models.Transaction{
		ClientID:      m.To.ClientID,
		UserID:        m.To.UserID,
		Username:      m.To.Username,
		TransactionNo: m.TransactionNo,
		Amount:        m.Amount,
		TrxType:       models.TrxCredit,
		Subject:       m.Subject,
		Description:   m.Description,
		Source:        m.Source,
		Channel:       m.Channel,
		Balance:       m.To.BalanceAfter,
		Status:        m.Status,
	}

	write := func(tx *sqlx.Tx) error {
		debitID, err := r.transactions.Insert(debitLeg, tx)
		if err != nil {
			return err
		}
		debitLeg.ID = debitID

		creditID, err := r.transactions.Insert(creditLeg, tx)
		if err != nil {
			return err
		}
		creditLeg.ID = creditID

		return nil
	}

	if tx != nil {
		if err := write(tx); err != nil {
			return nil, nil, err
		}
		return debitLeg, creditLeg, nil
	}

	if err := r.db.InTx(ctx, write); err != nil {
		return nil, nil, err
	}

	return debitLeg, creditLeg, nil
}

const referenceAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateTransactionNo produces the short internal reference used for
// movements that never leave the system. It is random, not guaranteed unique;
// anything that has to be correlated with a gateway must carry the
// gateway-issued reference instead.
func GenerateTransactionNo() string {
	code := make([]byte, 7)
	for i := range code {
		code[i] = referenceAlphabet[rand.Intn(len(referenceAlphabet))]
	}
	return string(code)
}

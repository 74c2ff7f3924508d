// Package withdrawal owns the payout pipeline: the synchronous hold taken when
// a customer asks for their money, the queued job that actually pays out, the
// auto-vs-manual disbursement policy, and the compensation path when a request
// is rejected.
package withdrawal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sportdesk/walletd/internal/gateway"
	"github.com/sportdesk/walletd/internal/identity"
	"github.com/sportdesk/walletd/internal/ledger"
	"github.com/sportdesk/walletd/internal/models"
	"github.com/sportdesk/walletd/internal/repository"
)

var (
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
	ErrAlreadyDecided     = errors.New("withdrawal already decided")
	ErrDisbursementFailed = errors.New("disbursement failed")
)

// AmountRangeError reports which configured threshold a request violated.
type AmountRangeError struct {
	Amount    float64
	Threshold float64
	Below     bool
}

func (e *AmountRangeError) Error() string {
	if e.Below {
		return fmt.Sprintf("minimum withdrawal amount is %.2f", e.Threshold)
	}
	return fmt.Sprintf("maximum withdrawal amount is %.2f", e.Threshold)
}

// Producer is the slice of the stream client the service needs.
type Producer interface {
	ProduceMessage(topic, key, message string) error
}

// Counter is the slice of the cache the service needs for the daily
// auto-disbursement counters.
type Counter interface {
	Get(key string) (string, error)
	Increment(key string, expiration time.Duration) (int64, error)
}

// RequestTopic carries newly held withdrawal jobs to the queue worker.
const RequestTopic = "withdrawal.request"

// Job is the queue message. Identity is the withdrawal code (also the Kafka
// message key), never (userId, amount): two same-amount requests from one user
// must never collide.
type Job struct {
	JobID            string                      `json:"job_id"`
	ClientID         int                         `json:"client_id"`
	UserID           int                         `json:"user_id"`
	Username         string                      `json:"username"`
	Amount           float64                     `json:"amount"`
	WithdrawalID     string                      `json:"withdrawal_id"`
	WithdrawalCode   string                      `json:"withdrawal_code"`
	AccountNumber    string                      `json:"account_number"`
	AccountName      string                      `json:"account_name"`
	BankCode         string                      `json:"bank_code"`
	BankName         string                      `json:"bank_name"`
	BalanceAtRequest float64                     `json:"balance_at_request"`
	Settings         identity.WithdrawalSettings `json:"settings"`
}

type Service struct {
	db           repository.Database
	wallets      repository.WalletRepository
	transactions repository.TransactionRepository
	withdrawals  repository.WithdrawalRepository
	accounts     repository.WithdrawalAccountRepository
	recorder     *ledger.Recorder
	identity     identity.Client
	gateway      gateway.Adapter
	producer     Producer
	counter      Counter
	logger       *slog.Logger
}

func NewService(db repository.Database, recorder *ledger.Recorder, idClient identity.Client, adapter gateway.Adapter, producer Producer, counter Counter, logger *slog.Logger) *Service {
	return &Service{
		db:           db,
		wallets:      db.Wallet(),
		transactions: db.Transaction(),
		withdrawals:  db.Withdrawal(),
		accounts:     db.WithdrawalAccount(),
		recorder:     recorder,
		identity:     idClient,
		gateway:      adapter,
		producer:     producer,
		counter:      counter,
		logger:       logger,
	}
}

// Request validates a withdrawal, takes the hold and enqueues the payout job.
// The hold (available-balance debit plus the pending debit leg plus the
// withdrawal row) is one database transaction committed before the enqueue, so
// a crash in between leaves a durable Pending row for the requeue sweep rather
// than a lost job. Callers get the withdrawal code back immediately; that is
// an acknowledgment of committed intent, not of payment.
func (s *Service) Request(ctx context.Context, clientID, userID int, amount float64, destination gateway.Destination) (*models.Withdrawal, error) {
	user, err := s.identity.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	settings, err := s.identity.GetWithdrawalSettings(ctx, clientID, userID)
	if err != nil {
		return nil, err
	}

	if amount < settings.MinimumWithdrawal {
		return nil, &AmountRangeError{Amount: amount, Threshold: settings.MinimumWithdrawal, Below: true}
	}
	if amount > settings.MaximumWithdrawal {
		return nil, &AmountRangeError{Amount: amount, Threshold: settings.MaximumWithdrawal}
	}

	wallet, found, err := s.wallets.GetByUser(clientID, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, repository.ErrWalletNotFound
	}
	if wallet.AvailableBalance < amount {
		return nil, repository.ErrInsufficientFunds
	}

	code := ledger.GenerateTransactionNo()
	withdrawal := &models.Withdrawal{
		ClientID:       clientID,
		UserID:         userID,
		Username:       user.Username,
		Amount:         amount,
		WithdrawalCode: code,
		AccountNumber:  destination.AccountNumber,
		AccountName:    destination.AccountName,
		BankCode:       destination.BankCode,
		BankName:       destination.BankName,
	}

	var balanceAfter float64

	err = s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		// the insufficient-funds check happens again under the row lock;
		// the read above was only to fail fast
		balanceAfter, err = s.wallets.Debit(tx, clientID, userID, models.FieldAvailableBalance, amount)
		if err != nil {
			return err
		}

		_, err = s.transactions.Insert(&models.Transaction{
			ClientID:      clientID,
			UserID:        userID,
			Username:      user.Username,
			TransactionNo: code,
			Amount:        amount,
			TrxType:       models.TrxDebit,
			Subject:       models.SubjectWithdrawal,
			Channel:       "internal",
			Source:        destination.BankName,
			Balance:       balanceAfter,
			Status:        models.TransactionPending,
		}, tx)
		if err != nil {
			return err
		}

		id, err := s.withdrawals.Insert(withdrawal, tx)
		if err != nil {
			return err
		}
		withdrawal.ID = id

		return nil
	})
	if err != nil {
		return nil, err
	}

	job := &Job{
		JobID:            newJobID(),
		ClientID:         clientID,
		UserID:           userID,
		Username:         user.Username,
		Amount:           amount,
		WithdrawalID:     withdrawal.ID,
		WithdrawalCode:   code,
		AccountNumber:    destination.AccountNumber,
		AccountName:      destination.AccountName,
		BankCode:         destination.BankCode,
		BankName:         destination.BankName,
		BalanceAtRequest: balanceAfter,
		Settings:         *settings,
	}

	if err := s.produce(job); err != nil {
		// the hold is committed; the requeue sweep will pick the row up
		s.logger.Error("failed to enqueue withdrawal job, leaving for requeue sweep",
			"withdrawal_code", code, "error", err)
	}

	return withdrawal, nil
}

func (s *Service) produce(job *Job) error {
	message, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return s.producer.ProduceMessage(RequestTopic, job.WithdrawalCode, string(message))
}

func newJobID() string {
	return uuid.New().String()
}

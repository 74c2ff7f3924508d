package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/sportdesk/walletd/assets"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq"
)

const defaultTimeout = 3 * time.Second

// Sentinel errors for expected business outcomes. Callers branch on these
// rather than on error strings.
var (
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrDuplicateWallet      = errors.New("wallet already exists")
	ErrDuplicateTransaction = errors.New("transaction leg already recorded")
)

// Database interface defines available repositories
type Database interface {
	Wallet() WalletRepository
	Transaction() TransactionRepository
	Withdrawal() WithdrawalRepository
	WithdrawalAccount() WithdrawalAccountRepository
	Approval() ApprovalRepository

	Close() error
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

// DatabaseImpl implements the Database interface
type DatabaseImpl struct {
	db                    *sqlx.DB
	walletRepo            WalletRepository
	transactionRepo       TransactionRepository
	withdrawalRepo        WithdrawalRepository
	withdrawalAccountRepo WithdrawalAccountRepository
	approvalRepo          ApprovalRepository

	mu sync.Mutex
}

// New initializes a database connection and runs migrations if enabled
func New(dsn string, automigrate bool) (Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", "postgres://"+dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	// Run migrations if enabled
	if automigrate {
		iofsDriver, err := iofs.New(assets.EmbeddedFiles, "migrations")
		if err != nil {
			return nil, err
		}

		migrator, err := migrate.NewWithSourceInstance("iofs", iofsDriver, "postgres://"+dsn)
		if err != nil {
			return nil, err
		}

		if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, err
		}
	}

	return &DatabaseImpl{db: db}, nil
}

func (d *DatabaseImpl) Close() error {
	return d.db.Close()
}

func (d *DatabaseImpl) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	tx, err := d.db.BeginTxx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// InTx runs fn inside a single database transaction. The "check status, mutate
// wallet, set terminal status" critical sections in settlement and approval all
// go through here so the writes are both-or-neither.
func (d *DatabaseImpl) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (d *DatabaseImpl) Wallet() WalletRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.walletRepo == nil {
		d.walletRepo = NewWalletRepository(d.db)
	}
	return d.walletRepo
}

func (d *DatabaseImpl) Transaction() TransactionRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.transactionRepo == nil {
		d.transactionRepo = NewTransactionRepository(d.db)
	}
	return d.transactionRepo
}

func (d *DatabaseImpl) Withdrawal() WithdrawalRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.withdrawalRepo == nil {
		d.withdrawalRepo = NewWithdrawalRepository(d.db)
	}
	return d.withdrawalRepo
}

func (d *DatabaseImpl) WithdrawalAccount() WithdrawalAccountRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.withdrawalAccountRepo == nil {
		d.withdrawalAccountRepo = NewWithdrawalAccountRepository(d.db)
	}
	return d.withdrawalAccountRepo
}

func (d *DatabaseImpl) Approval() ApprovalRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.approvalRepo == nil {
		d.approvalRepo = NewApprovalRepository(d.db)
	}
	return d.approvalRepo
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/sportdesk/walletd/internal/models"
)

type ApprovalRepository interface {
	Insert(a *models.Approval) (string, error)
	GetOne(id string) (*models.Approval, bool, error)
	Decide(tx *sqlx.Tx, id string, status models.ApprovalStatus, verifiedBy, comment string) (bool, error)
	ListPending(clientID, limit, offset int) ([]models.Approval, error)
}

type ApprovalRepositoryImpl struct {
	db *sqlx.DB
}

func NewApprovalRepository(db *sqlx.DB) ApprovalRepository {
	return &ApprovalRepositoryImpl{db: db}
}

func (repo *ApprovalRepositoryImpl) Insert(a *models.Approval) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string

	query := `
		INSERT INTO approvals (approval_type, client_id, branch_id, user_id, amount, comment, receipt_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := repo.db.GetContext(ctx, &id, query,
		a.Type,
		a.ClientID,
		a.BranchID,
		a.UserID,
		a.Amount,
		a.Comment,
		a.ReceiptURL,
	)
	if err != nil {
		return "", err
	}

	return id, nil
}

func (repo *ApprovalRepositoryImpl) GetOne(id string) (*models.Approval, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var approval models.Approval

	query := `
        SELECT id, approval_type, client_id, branch_id, user_id, amount, comment, receipt_url,
			status, verified_by, verified_at, created_at, updated_at
		FROM approvals WHERE id=$1`

	err := repo.db.GetContext(ctx, &approval, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &approval, true, nil
}

// Decide is the Pending→terminal compare-and-swap. verified_at is stamped on
// approval and left NULL on rejection. A false return means another verifier
// won the race.
func (repo *ApprovalRepositoryImpl) Decide(tx *sqlx.Tx, id string, status models.ApprovalStatus, verifiedBy, comment string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE approvals
		SET status=$1, verified_by=$2,
			verified_at=CASE WHEN $1 = 1 THEN NOW() ELSE NULL END,
			comment=CASE WHEN $3 <> '' THEN $3 ELSE comment END,
			updated_at=NOW()
		WHERE id=$4 AND status=0`

	var (
		res sql.Result
		err error
	)
	if tx != nil {
		res, err = tx.ExecContext(ctx, query, status, verifiedBy, comment, id)
	} else {
		res, err = repo.db.ExecContext(ctx, query, status, verifiedBy, comment, id)
	}
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (repo *ApprovalRepositoryImpl) ListPending(clientID, limit, offset int) ([]models.Approval, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var approvals []models.Approval

	query := `
        SELECT id, approval_type, client_id, branch_id, user_id, amount, comment, receipt_url,
			status, verified_by, verified_at, created_at, updated_at
		FROM approvals WHERE client_id=$1 AND status=0
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`

	err := repo.db.SelectContext(ctx, &approvals, query, clientID, limit, offset)
	if err != nil {
		return nil, err
	}

	return approvals, nil
}

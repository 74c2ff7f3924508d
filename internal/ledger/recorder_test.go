package ledger

import (
	"context"
	"strings"
	"testing"

	"github.com/sportdesk/walletd/internal/mocks"
	"github.com/sportdesk/walletd/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRecordWritesBothLegs(t *testing.T) {
	db := mocks.NewMockDatabase()
	recorder := New(db)

	var inserted []*models.Transaction
	db.TransactionRepo.On("Insert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			inserted = append(inserted, args.Get(0).(*models.Transaction))
		}).
		Return("trx-id", nil)

	debit, credit, err := recorder.Record(context.Background(), nil, &Movement{
		TransactionNo: "abc1234",
		Amount:        250,
		Subject:       models.SubjectCashIn,
		Channel:       "cashbook",
		From:          Party{ClientID: 1, Username: "system"},
		To:            Party{ClientID: 1, UserID: 7, Username: "branch_7", BalanceAfter: 1250},
		Status:        models.TransactionSettled,
	})
	require.NoError(t, err)
	require.Len(t, inserted, 2)

	assert.Equal(t, models.TrxDebit, debit.TrxType)
	assert.Equal(t, models.TrxCredit, credit.TrxType)

	// the pair shares reference, amount, subject and status
	assert.Equal(t, debit.TransactionNo, credit.TransactionNo)
	assert.Equal(t, debit.Amount, credit.Amount)
	assert.Equal(t, debit.Subject, credit.Subject)
	assert.Equal(t, debit.Status, credit.Status)

	assert.Equal(t, 1250.0, credit.Balance)
}

func TestRecordRejectsNonPositiveAmount(t *testing.T) {
	recorder := New(mocks.NewMockDatabase())

	for _, amount := range []float64{0, -10} {
		_, _, err := recorder.Record(context.Background(), nil, &Movement{
			TransactionNo: "abc1234",
			Amount:        amount,
		})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func TestRecordRequiresReference(t *testing.T) {
	recorder := New(mocks.NewMockDatabase())

	_, _, err := recorder.Record(context.Background(), nil, &Movement{Amount: 10})
	assert.ErrorIs(t, err, ErrNoReference)
}

func TestGenerateTransactionNo(t *testing.T) {
	seen := make(map[string]bool)

	for range 100 {
		code := GenerateTransactionNo()
		assert.Len(t, code, 7)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(referenceAlphabet, r), "unexpected rune %q", r)
		}
		seen[code] = true
	}

	// not a uniqueness guarantee, but 100 draws collapsing would mean the
	// generator is broken
	assert.Greater(t, len(seen), 90)
}

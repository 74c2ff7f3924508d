package handler

import (
	"net/http"
	"time"

	"github.com/sportdesk/walletd/internal/context"
	"github.com/sportdesk/walletd/internal/errHandler"
	"github.com/sportdesk/walletd/internal/models"
	"github.com/sportdesk/walletd/internal/repository"
	"github.com/sportdesk/walletd/internal/response"
)

type TransactionResponseData struct {
	ID            string    `json:"id"`
	TransactionNo string    `json:"transaction_no"`
	Amount        float64   `json:"amount"`
	Type          string    `json:"type"`
	Subject       string    `json:"subject"`
	Description   string    `json:"description,omitempty"`
	Channel       string    `json:"channel"`
	Source        string    `json:"source,omitempty"`
	Balance       float64   `json:"balance"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type TransactionHandler struct {
	TransactionRepo repository.TransactionRepository

	ErrHandler *errHandler.ErrorHandler
}

func NewTransactionHandler(handler *TransactionHandler) *TransactionHandler {
	return &TransactionHandler{
		TransactionRepo: handler.TransactionRepo,
		ErrHandler:      handler.ErrHandler,
	}
}

// HandleLastTransactions lists the user's most recent ledger entries, newest
// first.
func (h *TransactionHandler) HandleLastTransactions(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	limit := queryInt(r, "limit", "10")
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	transactions, err := h.TransactionRepo.FindLast(user.ClientID, user.UserID, limit)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	data := make([]TransactionResponseData, len(transactions))
	for i, trx := range transactions {
		data[i] = transactionResponse(&trx)
	}

	message := "Transactions retrieved successfully"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func transactionResponse(trx *models.Transaction) TransactionResponseData {
	return TransactionResponseData{
		ID:            trx.ID,
		TransactionNo: trx.TransactionNo,
		Amount:        trx.Amount,
		Type:          trx.TrxType,
		Subject:       trx.Subject,
		Description:   trx.Description,
		Channel:       trx.Channel,
		Source:        trx.Source,
		Balance:       trx.Balance,
		Status:        trx.Status.String(),
		CreatedAt:     trx.CreatedAt,
	}
}

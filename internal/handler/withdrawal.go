package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/sportdesk/walletd/internal/context"
	"github.com/sportdesk/walletd/internal/errHandler"
	"github.com/sportdesk/walletd/internal/gateway"
	"github.com/sportdesk/walletd/internal/models"
	"github.com/sportdesk/walletd/internal/repository"
	"github.com/sportdesk/walletd/internal/request"
	"github.com/sportdesk/walletd/internal/response"
	"github.com/sportdesk/walletd/internal/validator"
	"github.com/sportdesk/walletd/internal/withdrawal"
)

type WithdrawalResponseData struct {
	ID             string    `json:"id"`
	WithdrawalCode string    `json:"withdrawal_code"`
	Amount         float64   `json:"amount"`
	AccountNumber  string    `json:"account_number"`
	AccountName    string    `json:"account_name"`
	BankCode       string    `json:"bank_code"`
	BankName       string    `json:"bank_name"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

type WithdrawalHandler struct {
	Service     *withdrawal.Service
	AccountRepo repository.WithdrawalAccountRepository

	ErrHandler *errHandler.ErrorHandler
}

func NewWithdrawalHandler(handler *WithdrawalHandler) *WithdrawalHandler {
	return &WithdrawalHandler{
		Service:     handler.Service,
		AccountRepo: handler.AccountRepo,
		ErrHandler:  handler.ErrHandler,
	}
}

// HandleRequestWithdrawal takes the hold and queues the payout. The 201 it
// returns acknowledges the hold, not the payment; the withdrawal code is the
// handle for tracking what happens next.
func (h *WithdrawalHandler) HandleRequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Amount        float64             `json:"amount"`
		AccountNumber string              `json:"account_number"`
		AccountName   string              `json:"account_name"`
		BankCode      string              `json:"bank_code"`
		BankName      string              `json:"bank_name"`
		Validator     validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(input.Amount > 0, "Amount must be greater than zero")
	input.Validator.Check(validator.NotBlank(input.BankCode), "Bank code is required")
	if input.BankCode != models.BankCodeCash {
		input.Validator.Check(validator.NotBlank(input.AccountNumber), "Account number is required")
		input.Validator.Check(validator.NotBlank(input.AccountName), "Account name is required")
	}

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	user := context.ContextGetAuthenticatedUser(r)

	result, err := h.Service.Request(r.Context(), user.ClientID, user.UserID, input.Amount, gateway.Destination{
		AccountNumber: input.AccountNumber,
		AccountName:   input.AccountName,
		BankCode:      input.BankCode,
		BankName:      input.BankName,
	})
	if err != nil {
		var rangeErr *withdrawal.AmountRangeError
		switch {
		case errors.As(err, &rangeErr):
			h.ErrHandler.BadRequest(w, r, rangeErr)
		case errors.Is(err, repository.ErrInsufficientFunds):
			response.JSONErrorResponse(w, nil, "Insufficient funds", http.StatusUnprocessableEntity, nil)
		case errors.Is(err, repository.ErrWalletNotFound):
			response.JSONErrorResponse(w, nil, "No wallet found for this user", http.StatusNotFound, nil)
		default:
			h.ErrHandler.ServerError(w, r, err)
		}
		return
	}

	message := "Withdrawal request received"
	err = response.JSONCreatedResponse(w, withdrawalResponse(result), message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleWithdrawalDecision is the back-office approve/reject endpoint. Routes
// behind it require a back-office principal.
func (h *WithdrawalHandler) HandleWithdrawalDecision(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Action    string              `json:"action"`
		Comment   string              `json:"comment"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(input.Action == "approve" || input.Action == "reject", "Action must be approve or reject")
	if input.Action == "reject" {
		input.Validator.Check(validator.NotBlank(input.Comment), "A comment is required when rejecting")
	}
	input.Validator.Check(validator.MaxRunes(input.Comment, 500), "Comment must not exceed 500 characters")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	user := context.ContextGetAuthenticatedUser(r)
	withdrawalID := r.PathValue("id")

	if input.Action == "approve" {
		err = h.Service.Approve(r.Context(), withdrawalID, user.Username)
	} else {
		err = h.Service.Reject(r.Context(), withdrawalID, user.Username, input.Comment)
	}
	if err != nil {
		switch {
		case errors.Is(err, withdrawal.ErrWithdrawalNotFound):
			h.ErrHandler.NotFound(w, r)
		case errors.Is(err, withdrawal.ErrAlreadyDecided):
			h.ErrHandler.Conflict(w, r, withdrawal.ErrAlreadyDecided)
		case errors.Is(err, withdrawal.ErrDisbursementFailed):
			// the withdrawal stays Pending; the operator can retry once the
			// provider recovers
			response.JSONErrorResponse(w, nil, "Disbursement failed, withdrawal left pending", http.StatusBadGateway, nil)
		default:
			h.ErrHandler.ServerError(w, r, err)
		}
		return
	}

	message := "Withdrawal " + input.Action + "d successfully"
	err = response.JSONOkResponse(w, nil, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleWithdrawalAccounts lists the destinations this user has successfully
// withdrawn to before, newest first.
func (h *WithdrawalHandler) HandleWithdrawalAccounts(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	accounts, err := h.AccountRepo.GetAllByUserID(user.UserID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	type accountData struct {
		AccountNumber string `json:"account_number"`
		AccountName   string `json:"account_name"`
		BankCode      string `json:"bank_code"`
		BankName      string `json:"bank_name"`
	}

	data := make([]accountData, len(accounts))
	for i, account := range accounts {
		data[i] = accountData{
			AccountNumber: account.AccountNumber,
			AccountName:   account.AccountName,
			BankCode:      account.BankCode,
			BankName:      account.BankName,
		}
	}

	message := "Withdrawal accounts retrieved successfully"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func withdrawalResponse(w *models.Withdrawal) *WithdrawalResponseData {
	return &WithdrawalResponseData{
		ID:             w.ID,
		WithdrawalCode: w.WithdrawalCode,
		Amount:         w.Amount,
		AccountNumber:  w.AccountNumber,
		AccountName:    w.AccountName,
		BankCode:       w.BankCode,
		BankName:       w.BankName,
		Status:         w.Status.String(),
		CreatedAt:      w.CreatedAt,
	}
}

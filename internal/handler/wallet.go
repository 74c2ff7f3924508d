package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sportdesk/walletd/internal/context"
	"github.com/sportdesk/walletd/internal/errHandler"
	"github.com/sportdesk/walletd/internal/gateway"
	"github.com/sportdesk/walletd/internal/identity"
	"github.com/sportdesk/walletd/internal/ledger"
	"github.com/sportdesk/walletd/internal/models"
	"github.com/sportdesk/walletd/internal/repository"
	"github.com/sportdesk/walletd/internal/request"
	"github.com/sportdesk/walletd/internal/response"
	"github.com/sportdesk/walletd/internal/settlement"
	"github.com/sportdesk/walletd/internal/validator"
)

type WalletResponseData struct {
	ID               string    `json:"id"`
	UserID           int       `json:"user_id"`
	Username         string    `json:"username"`
	Balance          float64   `json:"balance"`
	AvailableBalance float64   `json:"available_balance"`
	TrustBalance     float64   `json:"trust_balance"`
	SportBonus       float64   `json:"sport_bonus_balance"`
	VirtualBonus     float64   `json:"virtual_bonus_balance"`
	CasinoBonus      float64   `json:"casino_bonus_balance"`
	CreatedAt        time.Time `json:"created_at"`
}

type WalletHandler struct {
	DB              repository.Database
	WalletRepo      repository.WalletRepository
	TransactionRepo repository.TransactionRepository
	Recorder        *ledger.Recorder
	Identity        identity.Client
	Gateways        *gateway.Registry
	Reconciler      *settlement.Reconciler

	ErrHandler *errHandler.ErrorHandler
}

func NewWalletHandler(handler *WalletHandler) *WalletHandler {
	return &WalletHandler{
		DB:              handler.DB,
		WalletRepo:      handler.WalletRepo,
		TransactionRepo: handler.TransactionRepo,
		Recorder:        handler.Recorder,
		Identity:        handler.Identity,
		Gateways:        handler.Gateways,
		Reconciler:      handler.Reconciler,
		ErrHandler:      handler.ErrHandler,
	}
}

func walletResponse(wallet *models.Wallet) *WalletResponseData {
	return &WalletResponseData{
		ID:               wallet.ID,
		UserID:           wallet.UserID,
		Username:         wallet.Username,
		Balance:          wallet.Balance,
		AvailableBalance: wallet.AvailableBalance,
		TrustBalance:     wallet.TrustBalance,
		SportBonus:       wallet.SportBonus,
		VirtualBonus:     wallet.VirtualBonus,
		CasinoBonus:      wallet.CasinoBonus,
		CreatedAt:        wallet.CreatedAt,
	}
}

func (h *WalletHandler) HandleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UserID         int                 `json:"user_id"`
		InitialBalance float64             `json:"initial_balance"`
		Validator      validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(input.UserID > 0, "User ID is required")
	input.Validator.Check(input.InitialBalance >= 0, "Initial balance cannot be negative")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	user := context.ContextGetAuthenticatedUser(r)

	owner, err := h.Identity.GetUser(r.Context(), input.UserID)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, errors.New("could not resolve the wallet owner"))
		return
	}

	wallet := &models.Wallet{
		ClientID:         user.ClientID,
		UserID:           input.UserID,
		Username:         owner.Username,
		AvailableBalance: input.InitialBalance,
	}

	err = h.DB.InTx(r.Context(), func(tx *sqlx.Tx) error {
		id, err := h.WalletRepo.Insert(wallet, tx)
		if err != nil {
			return err
		}
		wallet.ID = id

		if input.InitialBalance <= 0 {
			return nil
		}

		// a funded wallet starts with an opening-balance movement so the
		// ledger explains every unit the wallet ever held
		_, _, err = h.Recorder.Record(r.Context(), tx, &ledger.Movement{
			TransactionNo: ledger.GenerateTransactionNo(),
			Amount:        input.InitialBalance,
			Subject:       models.SubjectOpeningBalance,
			Channel:       "internal",
			From: ledger.Party{
				ClientID: user.ClientID,
				Username: "system",
			},
			To: ledger.Party{
				ClientID:     user.ClientID,
				UserID:       input.UserID,
				Username:     owner.Username,
				BalanceAfter: input.InitialBalance,
			},
			Status: models.TransactionSettled,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateWallet) {
			h.ErrHandler.Conflict(w, r, errors.New("user already has a wallet"))
			return
		}
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	wallet.Balance = input.InitialBalance

	message := "Wallet created successfully"
	err = response.JSONCreatedResponse(w, walletResponse(wallet), message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *WalletHandler) HandleWalletDetails(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	wallet, found, err := h.WalletRepo.GetByUser(user.ClientID, user.UserID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	if !found {
		response.JSONErrorResponse(w, nil, "No wallet found for this user", http.StatusNotFound, nil)
		return
	}

	message := "Wallet details fetched successfully"
	err = response.JSONOkResponse(w, walletResponse(wallet), message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleWalletSummary returns the wallet alongside today's settled deposit and
// withdrawal totals, the figures the back-office dashboard leads with.
func (h *WalletHandler) HandleWalletSummary(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	wallet, found, err := h.WalletRepo.GetByUser(user.ClientID, user.UserID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	if !found {
		response.JSONErrorResponse(w, nil, "No wallet found for this user", http.StatusNotFound, nil)
		return
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	deposits, err := h.TransactionRepo.SumBySubject(user.ClientID, models.SubjectDeposit, models.TrxCredit, startOfDay, now)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	withdrawals, err := h.TransactionRepo.SumBySubject(user.ClientID, models.SubjectWithdrawal, models.TrxDebit, startOfDay, now)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	data := map[string]any{
		"Wallet":           walletResponse(wallet),
		"DepositsToday":    deposits,
		"WithdrawalsToday": withdrawals,
	}

	message := "Wallet summary fetched successfully"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleInitiateDeposit opens a deposit with the chosen provider and records
// the pending movement under the gateway-issued reference. The wallet is not
// touched here; the balance only moves when settlement resolves the reference.
func (h *WalletHandler) HandleInitiateDeposit(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Amount    float64             `json:"amount"`
		Provider  string              `json:"provider"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(input.Amount > 0, "Amount must be greater than zero")
	input.Validator.Check(validator.NotBlank(input.Provider), "Provider is required")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	adapter, ok := h.Gateways.Get(input.Provider)
	if !ok {
		h.ErrHandler.BadRequest(w, r, errors.New("unknown payment provider"))
		return
	}

	user := context.ContextGetAuthenticatedUser(r)

	account, err := h.Identity.GetUser(r.Context(), user.UserID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	res, err := adapter.Initiate(r.Context(), input.Amount, ledger.GenerateTransactionNo(), gateway.Customer{
		UserID:   user.UserID,
		Username: account.Username,
		Email:    account.Email,
	})
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	if !res.Success || res.ProviderRef == "" {
		response.JSONErrorResponse(w, nil, "The payment provider could not open this deposit", http.StatusBadGateway, nil)
		return
	}

	// the provider's own reference is the correlation key webhooks and
	// verification will carry back
	_, _, err = h.Recorder.Record(r.Context(), nil, &ledger.Movement{
		TransactionNo: res.ProviderRef,
		Amount:        input.Amount,
		Subject:       models.SubjectDeposit,
		Channel:       adapter.Name(),
		Source:        input.Provider,
		From: ledger.Party{
			ClientID: user.ClientID,
			Username: "system",
		},
		To: ledger.Party{
			ClientID: user.ClientID,
			UserID:   user.UserID,
			Username: account.Username,
		},
		Status: models.TransactionPending,
	})
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	data := map[string]any{
		"Reference":   res.ProviderRef,
		"RedirectURL": res.RedirectURL,
	}

	message := "Deposit initiated successfully"
	err = response.JSONCreatedResponse(w, data, message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleVerifyDeposit is the customer-driven path to settlement: the frontend
// calls it after the provider redirect, and it polls the provider instead of
// trusting anything in the redirect itself.
func (h *WalletHandler) HandleVerifyDeposit(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	reference := r.PathValue("reference")

	adapter, ok := h.Gateways.Get(provider)
	if !ok {
		h.ErrHandler.BadRequest(w, r, errors.New("unknown payment provider"))
		return
	}

	user := context.ContextGetAuthenticatedUser(r)

	res, err := adapter.Verify(r.Context(), reference)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	result, err := h.Reconciler.Resolve(r.Context(), user.ClientID, reference, res.Outcome, res.Amount)
	if err != nil {
		if errors.Is(err, settlement.ErrTransactionNotFound) {
			h.ErrHandler.NotFound(w, r)
			return
		}
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	data := map[string]any{
		"Reference":        reference,
		"Status":           result.Status.String(),
		"AlreadyProcessed": result.AlreadyResolved,
	}

	message := "Deposit verified successfully"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

package app

import (
	"net/http"

	"github.com/sportdesk/walletd/internal/handler"
	"github.com/sportdesk/walletd/internal/middleware"
)

func (app *Application) routes() http.Handler {
	mux := http.NewServeMux()

	middlewareRepo := middleware.New(app.errorHandler, app.Logger, &app.Config)

	healthHandler := handler.NewHealthCheckHandler(app.errorHandler)

	walletHandler := handler.NewWalletHandler(&handler.WalletHandler{
		DB:              app.DB,
		WalletRepo:      app.DB.Wallet(),
		TransactionRepo: app.DB.Transaction(),
		Recorder:        app.Recorder,
		Identity:        app.Identity,
		Gateways:        app.Gateways,
		Reconciler:      app.Reconciler,
		ErrHandler:      app.errorHandler,
	})

	webhookHandler := handler.NewWebhookHandler(&handler.WebhookHandler{
		Gateways:          app.Gateways,
		Reconciler:        app.Reconciler,
		ErrHandler:        app.errorHandler,
		Helper:            app.helper,
		Mailer:            app.Mailer,
		NotificationEmail: app.Config.Notifications.Email,
		Logger:            app.Logger,
	})

	withdrawalHandler := handler.NewWithdrawalHandler(&handler.WithdrawalHandler{
		Service:     app.Withdrawals,
		AccountRepo: app.DB.WithdrawalAccount(),
		ErrHandler:  app.errorHandler,
	})

	approvalHandler := handler.NewApprovalHandler(&handler.ApprovalHandler{
		Workflow:     app.Approvals,
		ApprovalRepo: app.DB.Approval(),
		ErrHandler:   app.errorHandler,
	})

	transactionHandler := handler.NewTransactionHandler(&handler.TransactionHandler{
		TransactionRepo: app.DB.Transaction(),
		ErrHandler:      app.errorHandler,
	})

	mux.HandleFunc("GET /status", healthHandler.HandleHealthCheck)

	// webhooks authenticate with their signature, not a bearer token
	mux.HandleFunc("POST /api/webhooks/{provider}", webhookHandler.HandleGatewayWebhook)

	authenticated := middlewareRepo.RequireAuthenticatedUser
	backoffice := middlewareRepo.RequireBackofficeUser

	mux.Handle("POST /api/wallets", backoffice(http.HandlerFunc(walletHandler.HandleCreateWallet)))
	mux.Handle("GET /api/wallets", authenticated(http.HandlerFunc(walletHandler.HandleWalletDetails)))
	mux.Handle("GET /api/wallets/summary", authenticated(http.HandlerFunc(walletHandler.HandleWalletSummary)))

	mux.Handle("POST /api/deposits", authenticated(http.HandlerFunc(walletHandler.HandleInitiateDeposit)))
	mux.Handle("GET /api/deposits/{provider}/{reference}/verify", authenticated(http.HandlerFunc(walletHandler.HandleVerifyDeposit)))

	mux.Handle("POST /api/withdrawals", authenticated(http.HandlerFunc(withdrawalHandler.HandleRequestWithdrawal)))
	mux.Handle("PUT /api/withdrawals/{id}", backoffice(http.HandlerFunc(withdrawalHandler.HandleWithdrawalDecision)))
	mux.Handle("GET /api/withdrawal-accounts", authenticated(http.HandlerFunc(withdrawalHandler.HandleWithdrawalAccounts)))

	mux.Handle("POST /api/approvals", authenticated(http.HandlerFunc(approvalHandler.HandleSubmitApproval)))
	mux.Handle("GET /api/approvals", backoffice(http.HandlerFunc(approvalHandler.HandleListPendingApprovals)))
	mux.Handle("PUT /api/approvals/{id}", authenticated(http.HandlerFunc(approvalHandler.HandleDecideApproval)))

	mux.Handle("GET /api/transactions", authenticated(http.HandlerFunc(transactionHandler.HandleLastTransactions)))

	return middlewareRepo.LogAccess(middlewareRepo.RecoverPanic(middlewareRepo.Authenticate(mux)))
}

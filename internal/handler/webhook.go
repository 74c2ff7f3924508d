package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sportdesk/walletd/internal/errHandler"
	"github.com/sportdesk/walletd/internal/gateway"
	"github.com/sportdesk/walletd/internal/helper"
	"github.com/sportdesk/walletd/internal/repository"
	"github.com/sportdesk/walletd/internal/response"
	"github.com/sportdesk/walletd/internal/settlement"
	"github.com/sportdesk/walletd/internal/smtp"
)

// maxWebhookBody caps inbound webhook payloads at 1MB.
const maxWebhookBody = 1_048_576

type WebhookHandler struct {
	Gateways   *gateway.Registry
	Reconciler *settlement.Reconciler

	ErrHandler        *errHandler.ErrorHandler
	Helper            *helper.HelperRepository
	Mailer            smtp.MailerInterface
	NotificationEmail string
	Logger            *slog.Logger
}

func NewWebhookHandler(handler *WebhookHandler) *WebhookHandler {
	return &WebhookHandler{
		Gateways:          handler.Gateways,
		Reconciler:        handler.Reconciler,
		ErrHandler:        handler.ErrHandler,
		Helper:            handler.Helper,
		Mailer:            handler.Mailer,
		NotificationEmail: handler.NotificationEmail,
		Logger:            handler.Logger,
	}
}

// HandleGatewayWebhook ingests a provider notification. The response code is
// a contract with the provider's retry loop: 2xx means "stop sending this
// event", anything else means "send it again later". A signal we can never
// use (bad signature, unknown reference) is therefore acknowledged or dropped
// with a 4xx, and only genuinely transient failures return a 5xx.
func (h *WebhookHandler) HandleGatewayWebhook(w http.ResponseWriter, r *http.Request) {
	adapter, ok := h.Gateways.Get(r.PathValue("provider"))
	if !ok {
		h.ErrHandler.NotFound(w, r)
		return
	}

	clientID := queryInt(r, "client_id", "0")
	if clientID <= 0 {
		h.ErrHandler.BadRequest(w, r, errors.New("client_id is required"))
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.ErrHandler.BadRequest(w, r, errors.New("could not read request body"))
		return
	}

	event, err := adapter.ParseWebhook(payload, r.Header.Get("X-Webhook-Signature"))
	if err != nil {
		// unverifiable signal: nothing was recorded, nothing will be
		h.Logger.Warn("dropping invalid gateway webhook",
			"provider", adapter.Name(), "client_id", clientID, "error", err)
		h.ErrHandler.BadRequest(w, r, gateway.ErrInvalidSignal)
		return
	}

	result, err := h.Reconciler.Resolve(r.Context(), clientID, event.CorrelationRef, event.Outcome, event.Amount)
	if err != nil {
		if errors.Is(err, settlement.ErrTransactionNotFound) {
			// not our movement; acknowledge so the provider stops retrying
			h.Logger.Warn("webhook for unknown reference",
				"provider", adapter.Name(), "client_id", clientID, "reference", event.CorrelationRef)
			h.ackWebhook(w, r, "Acknowledged")
			return
		}
		if errors.Is(err, repository.ErrWalletNotFound) {
			// the movement stays Pending for manual intervention; retrying the
			// webhook cannot fix a missing wallet, so acknowledge and alert
			h.alertOperator(r, clientID, event)
			h.ackWebhook(w, r, "Acknowledged")
			return
		}
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if result.AlreadyResolved {
		h.ackWebhook(w, r, "Already processed")
		return
	}

	h.ackWebhook(w, r, "Processed")
}

func (h *WebhookHandler) ackWebhook(w http.ResponseWriter, r *http.Request, message string) {
	err := response.JSONOkResponse(w, nil, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *WebhookHandler) alertOperator(r *http.Request, clientID int, event *gateway.WebhookEvent) {
	h.Logger.Error("settlement blocked: no wallet for settled movement",
		"client_id", clientID, "reference", event.CorrelationRef, "amount", event.Amount)

	if h.NotificationEmail == "" {
		return
	}

	data := map[string]any{
		"ClientID":  clientID,
		"Reference": event.CorrelationRef,
		"Reason":    "no wallet exists for the credited user",
	}

	h.Helper.BackgroundTask(r, func() error {
		return h.Mailer.Send(h.NotificationEmail, data, "settlement-alert.tmpl")
	})
}

package handler

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sportdesk/walletd/internal/errHandler"
	"github.com/sportdesk/walletd/internal/gateway"
	"github.com/sportdesk/walletd/internal/mocks"
	"github.com/sportdesk/walletd/internal/models"
	"github.com/sportdesk/walletd/internal/settlement"
	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
)

func newWebhookFixture() (*WebhookHandler, *mocks.MockDatabase, *mocks.MockGatewayAdapter) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db := mocks.NewMockDatabase()
	adapter := new(mocks.MockGatewayAdapter)

	h := NewWebhookHandler(&WebhookHandler{
		Gateways:   gateway.NewRegistry(adapter),
		Reconciler: settlement.New(db, logger),
		ErrHandler: errHandler.New("", nil, logger),
		Logger:     logger,
	})

	return h, db, adapter
}

func TestWebhookInvalidSignatureIsDropped(t *testing.T) {
	h, db, adapter := newWebhookFixture()

	adapter.On("ParseWebhook", testifymock.Anything, "sig").
		Return(nil, gateway.ErrInvalidSignal)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/mockpay?client_id=4", bytes.NewBufferString(`{}`))
	req.SetPathValue("provider", "mockpay")
	req.Header.Set("X-Webhook-Signature", "sig")
	rec := httptest.NewRecorder()

	h.HandleGatewayWebhook(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	// nothing may reach the ledger on a bad signature
	db.TransactionRepo.AssertNotCalled(t, "FindByTransactionNo", testifymock.Anything, testifymock.Anything, testifymock.Anything)
}

func TestWebhookUnknownReferenceIsAcknowledged(t *testing.T) {
	h, db, adapter := newWebhookFixture()

	adapter.On("ParseWebhook", testifymock.Anything, "sig").
		Return(&gateway.WebhookEvent{CorrelationRef: "ghost", Outcome: gateway.OutcomeSuccess, Amount: 100}, nil)
	db.TransactionRepo.On("FindByTransactionNo", 4, "ghost", models.TrxCredit).
		Return(nil, false, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/mockpay?client_id=4", bytes.NewBufferString(`{}`))
	req.SetPathValue("provider", "mockpay")
	req.Header.Set("X-Webhook-Signature", "sig")
	rec := httptest.NewRecorder()

	h.HandleGatewayWebhook(rec, req)

	// 2xx stops the provider's retry loop; retrying cannot make the
	// reference known
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookRedeliveryIsAcknowledged(t *testing.T) {
	h, db, adapter := newWebhookFixture()

	adapter.On("ParseWebhook", testifymock.Anything, "sig").
		Return(&gateway.WebhookEvent{CorrelationRef: "ref-1", Outcome: gateway.OutcomeSuccess, Amount: 100}, nil)
	db.TransactionRepo.On("FindByTransactionNo", 4, "ref-1", models.TrxCredit).
		Return(&models.Transaction{
			ClientID:      4,
			UserID:        9,
			TransactionNo: "ref-1",
			Amount:        100,
			TrxType:       models.TrxCredit,
			Status:        models.TransactionSettled,
		}, true, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/mockpay?client_id=4", bytes.NewBufferString(`{}`))
	req.SetPathValue("provider", "mockpay")
	req.Header.Set("X-Webhook-Signature", "sig")
	rec := httptest.NewRecorder()

	h.HandleGatewayWebhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Already processed")
}

func TestWebhookRequiresClientID(t *testing.T) {
	h, _, _ := newWebhookFixture()

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/mockpay", bytes.NewBufferString(`{}`))
	req.SetPathValue("provider", "mockpay")
	rec := httptest.NewRecorder()

	h.HandleGatewayWebhook(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookUnknownProvider(t *testing.T) {
	h, _, _ := newWebhookFixture()

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/nopay?client_id=4", bytes.NewBufferString(`{}`))
	req.SetPathValue("provider", "nopay")
	rec := httptest.NewRecorder()

	h.HandleGatewayWebhook(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

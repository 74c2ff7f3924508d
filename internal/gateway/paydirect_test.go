package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestParseWebhookAcceptsSignedPayload(t *testing.T) {
	p := NewPaydirect("https://api.example", "key", "secret", "whsecret")

	payload := []byte(`{"reference":"ref-1","status":"successful","amount":750}`)

	event, err := p.ParseWebhook(payload, signPayload("whsecret", payload))
	require.NoError(t, err)

	assert.Equal(t, "ref-1", event.CorrelationRef)
	assert.Equal(t, OutcomeSuccess, event.Outcome)
	assert.Equal(t, 750.0, event.Amount)
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	p := NewPaydirect("https://api.example", "key", "secret", "whsecret")

	payload := []byte(`{"reference":"ref-1","status":"successful","amount":750}`)

	_, err := p.ParseWebhook(payload, signPayload("wrong-secret", payload))
	assert.ErrorIs(t, err, ErrInvalidSignal)
}

func TestParseWebhookRejectsMalformedPayload(t *testing.T) {
	p := NewPaydirect("https://api.example", "key", "secret", "whsecret")

	for _, payload := range [][]byte{
		[]byte(`not json`),
		[]byte(`{"status":"successful"}`), // no reference
	} {
		_, err := p.ParseWebhook(payload, signPayload("whsecret", payload))
		assert.ErrorIs(t, err, ErrInvalidSignal)
	}
}

func TestMapOutcome(t *testing.T) {
	tests := map[string]Outcome{
		"success":    OutcomeSuccess,
		"successful": OutcomeSuccess,
		"paid":       OutcomeSuccess,
		"failed":     OutcomeFailed,
		"reversed":   OutcomeFailed,
		"abandoned":  OutcomeFailed,
		"processing": OutcomePending,
		"":           OutcomePending,
	}

	for status, want := range tests {
		assert.Equal(t, want, mapOutcome(status), "status %q", status)
	}
}

func TestVerifyReusesCachedToken(t *testing.T) {
	var tokenRequests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth/token":
			tokenRequests.Add(1)
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "tok-1",
				"expires_in":   3600,
			})
		case "/v1/charges/ref-1":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]any{
				"status": true,
				"data":   map[string]any{"status": "successful", "amount": 300},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	p := NewPaydirect(server.URL, "key", "secret", "whsecret")

	for range 2 {
		res, err := p.Verify(context.Background(), "ref-1")
		require.NoError(t, err)
		assert.Equal(t, OutcomeSuccess, res.Outcome)
		assert.Equal(t, 300.0, res.Amount)
	}

	assert.Equal(t, int32(1), tokenRequests.Load())
}

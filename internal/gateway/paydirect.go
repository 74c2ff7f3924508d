package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Paydirect is the card/bank collection and disbursement provider. One HTTP
// client, bearer token cached until shortly before expiry.
type Paydirect struct {
	BaseURL       string
	ApiKey        string
	ApiSecret     string
	WebhookSecret string
	HttpClient    *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewPaydirect(baseURL, apiKey, apiSecret, webhookSecret string) *Paydirect {
	return &Paydirect{
		BaseURL:       baseURL,
		ApiKey:        apiKey,
		ApiSecret:     apiSecret,
		WebhookSecret: webhookSecret,
		HttpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *Paydirect) Name() string {
	return "paydirect"
}

func (p *Paydirect) getToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// if token still valid, reuse
	if time.Now().Before(p.tokenExpiry) && p.token != "" {
		return p.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/oauth/token", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.ApiKey, p.ApiSecret)

	resp, err := p.HttpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("paydirect token request failed: %s", string(body))
	}

	var res struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", err
	}

	p.token = res.AccessToken
	// renew a minute early so an in-flight call never carries a dead token
	p.tokenExpiry = time.Now().Add(time.Duration(res.ExpiresIn)*time.Second - time.Minute)

	return p.token, nil
}

func (p *Paydirect) post(ctx context.Context, path string, payload, out any) error {
	token, err := p.getToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HttpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("paydirect %s returned %d: %s", path, resp.StatusCode, string(raw))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (p *Paydirect) Initiate(ctx context.Context, amount float64, reference string, customer Customer) (*InitiateResult, error) {
	payload := map[string]any{
		"amount":    amount,
		"reference": reference,
		"email":     customer.Email,
		"customer":  customer.Username,
	}

	var res struct {
		Status bool `json:"status"`
		Data   struct {
			AuthorizationURL string `json:"authorization_url"`
			ProviderRef      string `json:"provider_ref"`
		} `json:"data"`
	}

	if err := p.post(ctx, "/v1/charges", payload, &res); err != nil {
		return nil, err
	}

	return &InitiateResult{
		Success:     res.Status,
		RedirectURL: res.Data.AuthorizationURL,
		ProviderRef: res.Data.ProviderRef,
	}, nil
}

func (p *Paydirect) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	token, err := p.getToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/v1/charges/"+reference, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.HttpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var res struct {
		Status bool `json:"status"`
		Data   struct {
			Status string  `json:"status"`
			Amount float64 `json:"amount"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}

	return &VerifyResult{
		Success: res.Status,
		Outcome: mapOutcome(res.Data.Status),
		Amount:  res.Data.Amount,
	}, nil
}

func (p *Paydirect) Disburse(ctx context.Context, destination Destination, amount float64, reference string) (*DisburseResult, error) {
	payload := map[string]any{
		"amount":         amount,
		"reference":      reference,
		"account_number": destination.AccountNumber,
		"account_name":   destination.AccountName,
		"bank_code":      destination.BankCode,
	}

	var res struct {
		Status bool `json:"status"`
		Data   struct {
			ProviderRef string `json:"provider_ref"`
		} `json:"data"`
	}

	if err := p.post(ctx, "/v1/transfers", payload, &res); err != nil {
		return nil, err
	}

	return &DisburseResult{
		Success:     res.Status,
		ProviderRef: res.Data.ProviderRef,
	}, nil
}

// ParseWebhook checks the HMAC-SHA256 signature over the raw body before
// anything else. An event that fails the check never reaches the ledger.
func (p *Paydirect) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	mac := hmac.New(sha256.New, []byte(p.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrInvalidSignal
	}

	var event struct {
		Reference string  `json:"reference"`
		Status    string  `json:"status"`
		Amount    float64 `json:"amount"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, ErrInvalidSignal
	}
	if event.Reference == "" {
		return nil, ErrInvalidSignal
	}

	return &WebhookEvent{
		CorrelationRef: event.Reference,
		Outcome:        mapOutcome(event.Status),
		Amount:         event.Amount,
	}, nil
}

func mapOutcome(status string) Outcome {
	switch status {
	case "success", "successful", "paid":
		return OutcomeSuccess
	case "failed", "reversed", "abandoned":
		return OutcomeFailed
	}
	return OutcomePending
}

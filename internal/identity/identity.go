// Package identity is the client for the external identity service. User
// records and withdrawal policy live there; nothing is cached on this side,
// every lookup goes to the service.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type User struct {
	UserID   int    `json:"user_id"`
	ClientID int    `json:"client_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type WithdrawalSettings struct {
	MinimumWithdrawal     float64 `json:"minimum_withdrawal"`
	MaximumWithdrawal     float64 `json:"maximum_withdrawal"`
	AutoDisbursement      bool    `json:"auto_disbursement"`
	AutoDisbursementMin   float64 `json:"auto_disbursement_min"`
	AutoDisbursementMax   float64 `json:"auto_disbursement_max"`
	AutoDisbursementCount int     `json:"auto_disbursement_count"`
}

type Client interface {
	GetUser(ctx context.Context, userID int) (*User, error)
	GetWithdrawalSettings(ctx context.Context, clientID, userID int) (*WithdrawalSettings, error)
	AuthorizeVerifier(ctx context.Context, verifierID, clientID, branchID int) (bool, error)
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func get[T any](c *HTTPClient, ctx context.Context, path string) (*T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("identity: not found: %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity: unexpected status %d from %s", resp.StatusCode, path)
	}

	var body envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if !body.Success {
		return nil, fmt.Errorf("identity: %s", body.Message)
	}

	return &body.Data, nil
}

func (c *HTTPClient) GetUser(ctx context.Context, userID int) (*User, error) {
	return get[User](c, ctx, fmt.Sprintf("/api/users/%d", userID))
}

func (c *HTTPClient) GetWithdrawalSettings(ctx context.Context, clientID, userID int) (*WithdrawalSettings, error) {
	return get[WithdrawalSettings](c, ctx, fmt.Sprintf("/api/clients/%d/users/%d/withdrawal-settings", clientID, userID))
}

func (c *HTTPClient) AuthorizeVerifier(ctx context.Context, verifierID, clientID, branchID int) (bool, error) {
	type scope struct {
		Authorized bool `json:"authorized"`
	}
	data, err := get[scope](c, ctx, fmt.Sprintf("/api/clients/%d/branches/%d/verifiers/%d", clientID, branchID, verifierID))
	if err != nil {
		return false, err
	}
	return data.Authorized, nil
}

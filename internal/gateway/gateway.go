// Package gateway defines the uniform contract every money-movement provider
// is wrapped behind. The core never sees provider-specific payloads; it sees
// initiate/verify/disburse/parse-webhook and nothing else.
package gateway

import (
	"context"
	"errors"
)

// Outcome is the provider-reported result for a previously initiated movement.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomePending Outcome = "pending"
)

// ErrInvalidSignal covers bad webhook signatures and malformed payloads. It is
// raised before any ledger effect and callers must drop the signal without
// touching persistence.
var ErrInvalidSignal = errors.New("invalid gateway signal")

type Customer struct {
	UserID   int
	Username string
	Email    string
}

type Destination struct {
	AccountNumber string
	AccountName   string
	BankCode      string
	BankName      string
}

type InitiateResult struct {
	Success     bool
	RedirectURL string
	ProviderRef string
}

type VerifyResult struct {
	Success bool
	Outcome Outcome
	Amount  float64
}

type DisburseResult struct {
	Success     bool
	ProviderRef string
}

// WebhookEvent is a parsed, signature-checked inbound notification.
type WebhookEvent struct {
	CorrelationRef string
	Outcome        Outcome
	Amount         float64
}

type Adapter interface {
	Name() string
	Initiate(ctx context.Context, amount float64, reference string, customer Customer) (*InitiateResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
	Disburse(ctx context.Context, destination Destination, amount float64, reference string) (*DisburseResult, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// Registry holds the configured adapters keyed by provider name.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	reg := &Registry{adapters: make(map[string]Adapter)}
	for _, adapter := range adapters {
		reg.adapters[adapter.Name()] = adapter
	}
	return reg
}

func (r *Registry) Get(name string) (Adapter, bool) {
	adapter, ok := r.adapters[name]
	return adapter, ok
}

package mocks

import (
	"context"
	"time"

	"github.com/sportdesk/walletd/internal/gateway"
	"github.com/sportdesk/walletd/internal/identity"
	"github.com/stretchr/testify/mock"
)

type MockIdentityClient struct {
	mock.Mock
}

func (m *MockIdentityClient) GetUser(ctx context.Context, userID int) (*identity.User, error) {
	args := m.Called(userID)
	user, _ := args.Get(0).(*identity.User)
	return user, args.Error(1)
}

func (m *MockIdentityClient) GetWithdrawalSettings(ctx context.Context, clientID, userID int) (*identity.WithdrawalSettings, error) {
	args := m.Called(clientID, userID)
	settings, _ := args.Get(0).(*identity.WithdrawalSettings)
	return settings, args.Error(1)
}

func (m *MockIdentityClient) AuthorizeVerifier(ctx context.Context, verifierID, clientID, branchID int) (bool, error) {
	args := m.Called(verifierID, clientID, branchID)
	return args.Bool(0), args.Error(1)
}

type MockGatewayAdapter struct {
	mock.Mock
}

func (m *MockGatewayAdapter) Name() string {
	return "mockpay"
}

func (m *MockGatewayAdapter) Initiate(ctx context.Context, amount float64, reference string, customer gateway.Customer) (*gateway.InitiateResult, error) {
	args := m.Called(amount, reference, customer)
	res, _ := args.Get(0).(*gateway.InitiateResult)
	return res, args.Error(1)
}

func (m *MockGatewayAdapter) Verify(ctx context.Context, reference string) (*gateway.VerifyResult, error) {
	args := m.Called(reference)
	res, _ := args.Get(0).(*gateway.VerifyResult)
	return res, args.Error(1)
}

func (m *MockGatewayAdapter) Disburse(ctx context.Context, destination gateway.Destination, amount float64, reference string) (*gateway.DisburseResult, error) {
	args := m.Called(destination, amount, reference)
	res, _ := args.Get(0).(*gateway.DisburseResult)
	return res, args.Error(1)
}

func (m *MockGatewayAdapter) ParseWebhook(payload []byte, signature string) (*gateway.WebhookEvent, error) {
	args := m.Called(payload, signature)
	event, _ := args.Get(0).(*gateway.WebhookEvent)
	return event, args.Error(1)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) ProduceMessage(topic, key, message string) error {
	args := m.Called(topic, key, message)
	return args.Error(0)
}

type MockCounter struct {
	mock.Mock
}

func (m *MockCounter) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockCounter) Increment(key string, expiration time.Duration) (int64, error) {
	args := m.Called(key, expiration)
	return args.Get(0).(int64), args.Error(1)
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) UploadFile(fileName string) (string, error) {
	args := m.Called(fileName)
	return args.String(0), args.Error(1)
}

// Package mocks holds testify mocks for the external collaborators of the services.
package mocks

import (
	"context"
	"time"

	"mechanical_shop/internal/auth"
	"mechanical_shop/internal/models"
	"mechanical_shop/pkg/mailer"
	"mechanical_shop/pkg/sepay"

	"github.com/stretchr/testify/mock"
)

type MockAssistant struct {
	mock.Mock
}

func (m *MockAssistant) Reply(ctx context.Context, history []models.ChatMessage, message string) (string, error) {
	args := m.Called(ctx, history, message)
	return args.String(0), args.Error(1)
}

func (m *MockAssistant) Provider() string {
	return "mock"
}

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreatePayment(ctx context.Context, req sepay.PaymentRequest) (*sepay.PaymentResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sepay.PaymentResult), args.Error(1)
}

func (m *MockPaymentGateway) CheckPaymentStatus(ctx context.Context, transactionID string) (*sepay.StatusResult, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sepay.StatusResult), args.Error(1)
}

func (m *MockPaymentGateway) VerifyWebhook(n *sepay.Notification) bool {
	args := m.Called(n)
	return args.Bool(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, data interface{}) error {
	args := m.Called(ctx, routingKey, data)
	return args.Error(0)
}

func (m *MockPublisher) Close() {}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Enabled() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockMailer) SendOrderConfirmation(ctx context.Context, to string, data mailer.OrderEmail) error {
	args := m.Called(ctx, to, data)
	return args.Error(0)
}

type MockGoogleIdentity struct {
	mock.Mock
}

func (m *MockGoogleIdentity) AuthCodeURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *MockGoogleIdentity) Exchange(ctx context.Context, code string) (*auth.GoogleProfile, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.GoogleProfile), args.Error(1)
}

func (m *MockGoogleIdentity) VerifyIDToken(ctx context.Context, rawIDToken string) (*auth.GoogleProfile, error) {
	args := m.Called(ctx, rawIDToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.GoogleProfile), args.Error(1)
}

type MockStateStore struct {
	mock.Mock
}

func (m *MockStateStore) SaveState(ctx context.Context, state string, ttl time.Duration) error {
	args := m.Called(ctx, state, ttl)
	return args.Error(0)
}

func (m *MockStateStore) ConsumeState(ctx context.Context, state string) (bool, error) {
	args := m.Called(ctx, state)
	return args.Bool(0), args.Error(1)
}

// MockNotifier records dispatched order events without doing any I/O.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) OrderPlaced(order *models.Order)        { m.Called(order) }
func (m *MockNotifier) OrderCancelled(order *models.Order)     { m.Called(order) }
func (m *MockNotifier) OrderStatusChanged(order *models.Order) { m.Called(order) }
func (m *MockNotifier) PaymentChanged(order *models.Order)     { m.Called(order) }

func (m *MockNotifier) Wait(ctx context.Context) error {
	return nil
}

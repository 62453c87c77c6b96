package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mechanical_shop/internal/auth"
	"mechanical_shop/internal/cartsession"
	"mechanical_shop/internal/mocks"
	"mechanical_shop/internal/models"
	"mechanical_shop/internal/repository"
	"mechanical_shop/internal/services"
	"mechanical_shop/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testServer struct {
	db        *gorm.DB
	engine    *gin.Engine
	gateway   *mocks.MockPaymentGateway
	assistant *mocks.MockAssistant
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	store := repository.NewStore(db)

	tokens := auth.NewJWTManager(auth.JWTConfig{
		AccessSecret:         "access",
		RefreshSecret:        "refresh",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: time.Hour,
	})

	notifier := &mocks.MockNotifier{}
	notifier.On("OrderPlaced", mock.Anything).Return()
	notifier.On("OrderCancelled", mock.Anything).Return()
	notifier.On("OrderStatusChanged", mock.Anything).Return()
	notifier.On("PaymentChanged", mock.Anything).Return()

	catalog := services.NewCatalogService(store, nil, time.Minute)
	orders, err := services.NewOrderService(store, catalog, notifier)
	require.NoError(t, err)
	authSvc, err := services.NewAuthService(store, tokens, auth.NewPasswordHasher(bcrypt.MinCost),
		&mocks.MockGoogleIdentity{}, &mocks.MockStateStore{}, "mechanicalshop://auth-callback")
	require.NoError(t, err)

	gateway := &mocks.MockPaymentGateway{}
	assistant := &mocks.MockAssistant{}

	router := &Router{
		Tokens:      tokens,
		Health:      NewHealthHandler(map[string]Pinger{"database": pingFunc(func(ctx context.Context) error { return nil })}),
		Auth:        NewAuthHandler(authSvc),
		Products:    NewProductHandler(catalog),
		Cart:        NewCartHandler(services.NewCartService(store)),
		SessionCart: NewSessionCartHandler(cartsession.NewService(nil, store.Products(), cartsession.Swap)),
		Orders:      NewOrderHandler(orders),
		Addresses:   NewAddressHandler(services.NewAddressService(store)),
		Payments:    NewPaymentHandler(services.NewPaymentService(store, gateway, notifier, time.Second)),
		Chat:        NewChatHandler(services.NewChatService(store, assistant, catalog, time.Second)),
	}

	return &testServer{db: db, engine: router.Engine(), gateway: gateway, assistant: assistant}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(t *testing.T, email string) (string, string) {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email": email, "password": "secret1", "fullName": "Tester",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		User        struct{ ID string } `json:"user"`
		AccessToken string              `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.User.ID, resp.AccessToken
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest), w.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	degraded := NewHealthHandler(map[string]Pinger{
		"redis": pingFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
	})
	engine := gin.New()
	engine.GET("/health", degraded.Health)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestOrdersRequireToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/orders", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register(t, "buyer@example.com")

	hammer := testutil.CreateProduct(t, s.db, "Hammer", 150000, 10)
	wrench := testutil.CreateProduct(t, s.db, "Wrench", 85000, 10)

	w := s.do(t, http.MethodPost, "/api/orders", token, gin.H{
		"shippingAddress": gin.H{"fullName": "A", "phone": "0901", "addressLine": "1 Main", "city": "Hue"},
		"items": []gin.H{
			{"productId": hammer.ID, "quantity": 2},
			{"productId": wrench.ID, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order struct {
		ID          string          `json:"id"`
		TotalAmount decimal.Decimal `json:"totalAmount"`
		Status      string          `json:"status"`
		OrderItems  []interface{}   `json:"orderItems"`
	}
	decode(t, w, &order)
	assert.True(t, decimal.NewFromInt(385000).Equal(order.TotalAmount))
	assert.Equal(t, "pending", order.Status)
	assert.Len(t, order.OrderItems, 2)

	w = s.do(t, http.MethodGet, "/api/orders/"+order.ID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPut, "/api/orders/"+order.ID+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 10, testutil.StockOf(t, s.db, hammer.ID))

	w = s.do(t, http.MethodPut, "/api/orders/"+order.ID+"/cancel", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, otherToken := s.register(t, "other@example.com")
	w = s.do(t, http.MethodGet, "/api/orders/"+order.ID, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register(t, "buyer@example.com")
	wrench := testutil.CreateProduct(t, s.db, "Wrench", 85000, 1)

	w := s.do(t, http.MethodPost, "/api/orders", token, gin.H{
		"shippingAddress": gin.H{"fullName": "A", "phone": "0901", "addressLine": "1 Main", "city": "Hue"},
		"items":           []gin.H{{"productId": wrench.ID, "quantity": 3}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	decode(t, w, &body)
	assert.Contains(t, body["error"], "insufficient stock")
}

func TestAdminStatusRequiresAdminRole(t *testing.T) {
	s := newTestServer(t)
	userID, token := s.register(t, "buyer@example.com")

	w := s.do(t, http.MethodPut, "/api/admin/orders/whatever/status", token, gin.H{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.NoError(t, s.db.Model(&models.User{}).Where("id = ?", userID).Update("role", models.RoleAdmin).Error)
	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "buyer@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		AccessToken string `json:"accessToken"`
	}
	decode(t, w, &login)

	w = s.do(t, http.MethodPut, "/api/admin/orders/whatever/status", login.AccessToken, gin.H{"status": "confirmed"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddressCapOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register(t, "addr@example.com")

	address := gin.H{"fullName": "A", "phone": "0901", "addressLine": "1 Main", "city": "Hue"}
	for i := 0; i < models.MaxAddressesPerUser; i++ {
		w := s.do(t, http.MethodPost, "/api/addresses", token, address)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := s.do(t, http.MethodPost, "/api/addresses", token, address)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/addresses", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Address
	decode(t, w, &list)
	assert.Len(t, list, models.MaxAddressesPerUser)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	s := newTestServer(t)
	s.gateway.On("VerifyWebhook", mock.Anything).Return(false)

	w := s.do(t, http.MethodPost, "/api/payment/sepay/webhook", "", gin.H{
		"orderId": "o1", "transactionId": "t1", "status": "success", "signature": "bad",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChatAssistantFailureIsBadGateway(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register(t, "chat@example.com")
	s.assistant.On("Reply", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("api key sk-secret rejected"))

	w := s.do(t, http.MethodPost, "/api/chat/message", token, gin.H{"message": "hello"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "sk-secret")

	w = s.do(t, http.MethodPost, "/api/chat/message", token, gin.H{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductRoutes(t *testing.T) {
	s := newTestServer(t)
	drill := testutil.CreateProduct(t, s.db, "Drill", 1250000, 3)

	w := s.do(t, http.MethodGet, "/api/products?search=dri", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Products []models.Product `json:"products"`
	}
	decode(t, w, &list)
	assert.Len(t, list.Products, 1)

	w = s.do(t, http.MethodGet, "/api/products/"+drill.ID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/products/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/products/categories/all", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/products?minPrice=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

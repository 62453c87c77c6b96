package sepay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "webhook-secret"

func signedBody(t *testing.T, fields map[string]interface{}, secret string) []byte {
	t.Helper()

	str := make(map[string]string, len(fields))
	for k, v := range fields {
		s, err := fieldString(v)
		require.NoError(t, err)
		str[k] = s
	}

	payload := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload["signature"] = Sign(secret, str)

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body
}

func TestSign_IsOrderIndependent(t *testing.T) {
	a := Sign(testSecret, map[string]string{"b": "2", "a": "1"})
	b := Sign(testSecret, map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestParseNotification_Verify(t *testing.T) {
	body := signedBody(t, map[string]interface{}{
		"orderId":       "order-1",
		"transactionId": "TX1",
		"status":        "success",
		"amount":        json.Number("385000"),
	}, testSecret)

	n, err := ParseNotification(body)
	require.NoError(t, err)
	assert.Equal(t, "order-1", n.OrderID)
	assert.Equal(t, "385000", n.Amount)
	assert.Equal(t, "TX1:success", n.DeliveryKey())
	assert.True(t, Verify(testSecret, n.Fields, n.Signature))
	assert.False(t, Verify("other-secret", n.Fields, n.Signature))
}

func TestParseNotification_TamperedAmount(t *testing.T) {
	body := signedBody(t, map[string]interface{}{
		"orderId":       "order-1",
		"transactionId": "TX1",
		"status":        "success",
		"amount":        json.Number("385000"),
	}, testSecret)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	payload["amount"] = 1000
	tampered, err := json.Marshal(payload)
	require.NoError(t, err)

	n, err := ParseNotification(tampered)
	require.NoError(t, err)
	assert.False(t, Verify(testSecret, n.Fields, n.Signature))
}

func TestParseNotification_MissingFields(t *testing.T) {
	_, err := ParseNotification([]byte(`{"orderId":"o1","status":"success"}`))
	assert.Error(t, err)

	_, err = ParseNotification([]byte(`not json`))
	assert.Error(t, err)
}

func TestClient_CreatePayment(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/create", r.URL.Path)
		assert.Equal(t, "api-key", r.Header.Get("X-API-Key"))

		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		require.NoError(t, dec.Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"qrCode":"qr","paymentUrl":"https://pay/1","transactionId":"TX9"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "merchant", "api-key", testSecret, "http://app", time.Second)
	result, err := client.CreatePayment(context.Background(), PaymentRequest{
		OrderID:     "order-1",
		Amount:      decimal.NewFromInt(385000),
		Description: "Order #ABC",
	})
	require.NoError(t, err)
	assert.Equal(t, "TX9", result.TransactionID)

	fields := map[string]string{}
	for k, v := range received {
		if k == "signature" {
			continue
		}
		s, err := fieldString(v)
		require.NoError(t, err)
		fields[k] = s
	}
	assert.Equal(t, "385000", fields["amount"])
	assert.Equal(t, "http://app/payment/result", fields["returnUrl"])
	assert.True(t, Verify(testSecret, fields, received["signature"].(string)))
}

func TestClient_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"message":"maintenance"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "merchant", "api-key", testSecret, "http://app", time.Second)
	_, err := client.CheckPaymentStatus(context.Background(), "TX1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maintenance")
}

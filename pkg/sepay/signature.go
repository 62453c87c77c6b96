package sepay

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Sign computes hex(HMAC-SHA256(secret, k1=v1&k2=v2...)) over keys in ascending order.
func Sign(secret string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares in constant time.
func Verify(secret string, fields map[string]string, signature string) bool {
	if signature == "" {
		return false
	}
	expected := Sign(secret, fields)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// Notification is a parsed gateway webhook. Fields holds every signed field as it appeared on the wire.
type Notification struct {
	OrderID       string
	TransactionID string
	Status        string
	Amount        string
	Signature     string
	Fields        map[string]string
}

// DeliveryKey identifies a notification for replay detection.
func (n *Notification) DeliveryKey() string {
	return n.TransactionID + ":" + n.Status
}

// ParseNotification decodes a webhook body without losing number formatting.
func ParseNotification(body []byte) (*Notification, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "invalid webhook payload")
	}

	n := &Notification{Fields: make(map[string]string, len(payload))}
	for k, v := range payload {
		s, err := fieldString(v)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", k)
		}
		if k == "signature" {
			n.Signature = s
			continue
		}
		n.Fields[k] = s
	}

	n.OrderID = n.Fields["orderId"]
	n.TransactionID = n.Fields["transactionId"]
	n.Status = n.Fields["status"]
	n.Amount = n.Fields["amount"]

	if n.OrderID == "" || n.TransactionID == "" || n.Status == "" {
		return nil, errors.New("webhook payload requires orderId, transactionId and status")
	}

	return n, nil
}

func fieldString(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		return fmt.Sprintf("%t", val), nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

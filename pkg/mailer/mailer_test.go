package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOrderConfirmation(t *testing.T) {
	html, err := RenderOrderConfirmation(OrderEmail{
		CustomerName:  "Nguyen <script>",
		OrderNumber:   "AB12CD34EF",
		Items:         []OrderEmailItem{{Name: "Claw Hammer", Quantity: 2, Price: "150000", Subtotal: "300000"}},
		Total:         "385000",
		PaymentMethod: "cod",
		Address:       "12 Le Loi, Hue",
	})
	require.NoError(t, err)

	assert.Contains(t, html, "#AB12CD34EF")
	assert.Contains(t, html, "Claw Hammer")
	assert.Contains(t, html, "385000")
	assert.NotContains(t, html, "<script>")
}

func TestMailer_DisabledWithoutCredentials(t *testing.T) {
	m := New(Config{Host: "smtp.example.com", Port: 587})

	assert.False(t, m.Enabled())
	assert.ErrorIs(t, m.Send(context.Background(), "a@example.com", "hi", "<p>hi</p>"), ErrDisabled)
}

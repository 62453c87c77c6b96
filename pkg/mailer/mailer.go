package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

var ErrDisabled = errors.New("mailer disabled: SMTP credentials not configured")

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
}

type Mailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
	enabled  bool
}

func New(cfg Config) *Mailer {
	return &Mailer{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:     cfg.Username,
		fromName: cfg.FromName,
		enabled:  cfg.Username != "" && cfg.Password != "",
	}
}

func (m *Mailer) Enabled() bool {
	return m.enabled
}

// Send delivers one HTML message. gomail has no context support, so ctx only bounds how long we wait.
func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if !m.enabled {
		return ErrDisabled
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sending email to %s: %w", to, ctx.Err())
	}
}

// OrderEmail is the data rendered into the order confirmation.
type OrderEmail struct {
	CustomerName  string
	OrderNumber   string
	Items         []OrderEmailItem
	Total         string
	PaymentMethod string
	Address       string
}

type OrderEmailItem struct {
	Name     string
	Quantity int
	Price    string
	Subtotal string
}

var orderTemplate = template.Must(template.New("order").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Thank you for your order, {{.CustomerName}}!</h2>
  <p>Order <strong>#{{.OrderNumber}}</strong> has been received.</p>
  <table cellpadding="6" style="border-collapse: collapse; width: 100%;">
    <tr style="background: #f3f3f3;"><th align="left">Product</th><th>Qty</th><th align="right">Price</th><th align="right">Subtotal</th></tr>
    {{range .Items}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">{{.Price}}</td><td align="right">{{.Subtotal}}</td></tr>
    {{end}}
  </table>
  <p><strong>Total: {{.Total}}</strong></p>
  <p>Payment method: {{.PaymentMethod}}</p>
  <p>Ship to: {{.Address}}</p>
</body>
</html>`))

func RenderOrderConfirmation(data OrderEmail) (string, error) {
	var buf bytes.Buffer
	if err := orderTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render order email: %w", err)
	}
	return buf.String(), nil
}

func (m *Mailer) SendOrderConfirmation(ctx context.Context, to string, data OrderEmail) error {
	body, err := RenderOrderConfirmation(data)
	if err != nil {
		return err
	}
	return m.Send(ctx, to, fmt.Sprintf("Order confirmation #%s", data.OrderNumber), body)
}

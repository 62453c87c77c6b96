package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"mechanical_shop/internal/events"
	"mechanical_shop/internal/models"
	"mechanical_shop/pkg/mailer"

	log "github.com/sirupsen/logrus"
)

// Mailer sends transactional email.
type Mailer interface {
	Enabled() bool
	SendOrderConfirmation(ctx context.Context, to string, data mailer.OrderEmail) error
}

// NotificationService fans domain events out to email and the message broker.
// Every method returns immediately; failures are logged and never reach the caller.
type NotificationService interface {
	OrderPlaced(order *models.Order)
	OrderCancelled(order *models.Order)
	OrderStatusChanged(order *models.Order)
	PaymentChanged(order *models.Order)
	Wait(ctx context.Context) error
}

type notificationService struct {
	mailer    Mailer
	publisher events.Publisher
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewNotificationService(m Mailer, publisher events.Publisher, timeout time.Duration) NotificationService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &notificationService{mailer: m, publisher: publisher, timeout: timeout}
}

type orderEvent struct {
	OrderID       string `json:"orderId"`
	OrderNumber   string `json:"orderNumber"`
	UserID        string `json:"userId"`
	TotalAmount   string `json:"totalAmount"`
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
	PaymentMethod string `json:"paymentMethod"`
}

func newOrderEvent(order *models.Order) orderEvent {
	return orderEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		TotalAmount:   order.TotalAmount.StringFixed(2),
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		PaymentMethod: string(order.PaymentMethod),
	}
}

func (s *notificationService) dispatch(order *models.Order, name string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.WithField("order_id", order.ID).Errorf("Notification %s panicked: %v", name, r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"order_id":     order.ID,
				"notification": name,
			}).Warn("Notification failed")
		}
	}()
}

func (s *notificationService) publish(order *models.Order, routingKey string) {
	event := newOrderEvent(order)
	s.dispatch(order, routingKey, func(ctx context.Context) error {
		return s.publisher.Publish(ctx, routingKey, event)
	})
}

func (s *notificationService) OrderPlaced(order *models.Order) {
	s.publish(order, events.OrderCreated)

	if s.mailer == nil || !s.mailer.Enabled() || order.User == nil || order.User.Email == "" {
		return
	}

	to := order.User.Email
	data := orderEmail(order)
	s.dispatch(order, "order_confirmation_email", func(ctx context.Context) error {
		return s.mailer.SendOrderConfirmation(ctx, to, data)
	})
}

func (s *notificationService) OrderCancelled(order *models.Order) {
	s.publish(order, events.OrderCancelled)
}

func (s *notificationService) OrderStatusChanged(order *models.Order) {
	s.publish(order, events.OrderStatus)
}

func (s *notificationService) PaymentChanged(order *models.Order) {
	switch order.PaymentStatus {
	case models.PaymentCompleted:
		s.publish(order, events.PaymentCompleted)
	case models.PaymentFailed:
		s.publish(order, events.PaymentFailed)
	}
}

// Wait blocks until in-flight notifications finish or ctx is done.
func (s *notificationService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func orderEmail(order *models.Order) mailer.OrderEmail {
	items := make([]mailer.OrderEmailItem, 0, len(order.OrderItems))
	for _, item := range order.OrderItems {
		name := item.ProductID
		if item.Product != nil {
			name = item.Product.Name
		}
		items = append(items, mailer.OrderEmailItem{
			Name:     name,
			Quantity: item.Quantity,
			Price:    formatVND(item.UnitPrice.StringFixed(0)),
			Subtotal: formatVND(item.Subtotal.StringFixed(0)),
		})
	}

	addr := order.ShippingAddress
	parts := []string{addr.AddressLine, addr.Ward, addr.District, addr.City}
	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}

	customer := addr.FullName
	if order.User != nil && order.User.FullName != "" {
		customer = order.User.FullName
	}

	return mailer.OrderEmail{
		CustomerName:  customer,
		OrderNumber:   order.OrderNumber,
		Items:         items,
		Total:         formatVND(order.TotalAmount.StringFixed(0)),
		PaymentMethod: string(order.PaymentMethod),
		Address:       fmt.Sprintf("%s (%s, %s)", strings.Join(nonEmpty, ", "), addr.FullName, addr.Phone),
	}
}

// formatVND groups thousands with dots: 385000 -> 385.000 ₫
func formatVND(amount string) string {
	neg := strings.HasPrefix(amount, "-")
	digits := strings.TrimPrefix(amount, "-")

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := b.String() + " ₫"
	if neg {
		out = "-" + out
	}
	return out
}

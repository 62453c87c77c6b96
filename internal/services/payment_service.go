package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mechanical_shop/internal/models"
	"mechanical_shop/internal/repository"
	"mechanical_shop/pkg/sepay"

	log "github.com/sirupsen/logrus"
)

// PaymentGateway is the subset of the Sepay client the bridge depends on.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, req sepay.PaymentRequest) (*sepay.PaymentResult, error)
	CheckPaymentStatus(ctx context.Context, transactionID string) (*sepay.StatusResult, error)
	VerifyWebhook(n *sepay.Notification) bool
}

type PaymentSession struct {
	OrderID       string `json:"orderId"`
	TransactionID string `json:"transactionId"`
	QRCode        string `json:"qrCode"`
	PaymentURL    string `json:"paymentUrl"`
	Amount        string `json:"amount"`
}

type PaymentStatusView struct {
	OrderID       string               `json:"orderId"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	OrderStatus   models.OrderStatus   `json:"orderStatus"`
	SepayData     *sepay.StatusResult  `json:"sepayData"`
}

type PaymentService interface {
	CreatePayment(ctx context.Context, userID, orderID string) (*PaymentSession, error)
	HandleWebhook(ctx context.Context, body []byte) error
	PollStatus(ctx context.Context, userID, orderID string) (*PaymentStatusView, error)
}

type paymentService struct {
	store    repository.Store
	gateway  PaymentGateway
	notifier NotificationService
	timeout  time.Duration
}

func NewPaymentService(store repository.Store, gateway PaymentGateway, notifier NotificationService, timeout time.Duration) PaymentService {
	return &paymentService{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		timeout:  timeout,
	}
}

func (s *paymentService) CreatePayment(ctx context.Context, userID, orderID string) (*PaymentSession, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: orderId is required", ErrInvalidInput)
	}

	order, err := s.store.Orders().GetForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.PaymentStatus == models.PaymentCompleted {
		return nil, ErrAlreadyPaid
	}
	if order.Status != models.OrderPending && order.Status != models.OrderConfirmed {
		return nil, ErrOrderNotPayable
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.gateway.CreatePayment(gwCtx, sepay.PaymentRequest{
		OrderID:     order.ID,
		Amount:      order.TotalAmount,
		Description: fmt.Sprintf("Thanh toán đơn hàng #%s", order.OrderNumber),
	})
	if err != nil {
		log.WithError(err).WithField("order_id", order.ID).Error("Failed to create Sepay payment")
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	if err := s.store.Orders().AttachPayment(ctx, order.ID, models.PaymentSepay, result.TransactionID); err != nil {
		return nil, fmt.Errorf("failed to attach payment: %w", err)
	}

	log.WithFields(log.Fields{
		"order_id":       order.ID,
		"transaction_id": result.TransactionID,
	}).Info("Sepay payment created")

	return &PaymentSession{
		OrderID:       order.ID,
		TransactionID: result.TransactionID,
		QRCode:        result.QRCode,
		PaymentURL:    result.PaymentURL,
		Amount:        order.TotalAmount.StringFixed(2),
	}, nil
}

// HandleWebhook applies a signed gateway notification. Replays of the same
// transaction and status are accepted without effect.
func (s *paymentService) HandleWebhook(ctx context.Context, body []byte) error {
	n, err := sepay.ParseNotification(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !s.gateway.VerifyWebhook(n) {
		log.WithField("transaction_id", n.TransactionID).Warn("Rejected Sepay webhook with bad signature")
		return ErrInvalidSignature
	}

	changed, err := s.settle(ctx, n.OrderID, n.TransactionID, n.Status, n.DeliveryKey())
	if err != nil {
		return err
	}
	if changed {
		s.notifyPayment(ctx, n.OrderID)
	}
	return nil
}

func (s *paymentService) PollStatus(ctx context.Context, userID, orderID string) (*PaymentStatusView, error) {
	order, err := s.store.Orders().GetForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.SepayTransactionID == "" {
		return nil, ErrNoTransaction
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	status, err := s.gateway.CheckPaymentStatus(gwCtx, order.SepayTransactionID)
	if err != nil {
		log.WithError(err).WithField("order_id", order.ID).Error("Failed to check Sepay payment status")
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	if status.Succeeded() && order.PaymentStatus != models.PaymentCompleted {
		changed, err := s.settle(ctx, order.ID, order.SepayTransactionID, sepay.StatusSuccess, "")
		if err != nil {
			return nil, err
		}
		if changed {
			s.notifyPayment(ctx, order.ID)
		}

		order, err = s.store.Orders().GetForUser(ctx, orderID, userID)
		if err != nil {
			return nil, err
		}
	}

	return &PaymentStatusView{
		OrderID:       order.ID,
		PaymentStatus: order.PaymentStatus,
		OrderStatus:   order.Status,
		SepayData:     status,
	}, nil
}

// settle moves payment and order state for one gateway outcome. A non-empty
// deliveryKey is recorded in the same transaction; a known key is a no-op.
func (s *paymentService) settle(ctx context.Context, orderID, transactionID, status, deliveryKey string) (bool, error) {
	changed := false

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().GetByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if deliveryKey != "" {
			fresh, err := tx.WebhookEvents().Record(ctx, &models.WebhookEvent{
				DeliveryKey: deliveryKey,
				OrderID:     orderID,
				Status:      status,
				ProcessedAt: time.Now(),
			})
			if err != nil {
				return fmt.Errorf("failed to record webhook delivery: %w", err)
			}
			if !fresh {
				log.WithField("delivery_key", deliveryKey).Info("Ignoring replayed Sepay webhook")
				return nil
			}
		}

		switch status {
		case sepay.StatusSuccess:
			err := tx.Orders().SetPaymentStatus(ctx, orderID,
				[]models.PaymentStatus{models.PaymentPending, models.PaymentFailed},
				models.PaymentCompleted, transactionID)
			if errors.Is(err, repository.ErrStatusConflict) {
				return nil
			}
			if err != nil {
				return err
			}
			changed = true

			if !order.Status.CanTransitionTo(models.OrderPaid) {
				log.WithFields(log.Fields{"order_id": orderID, "status": order.Status}).
					Warn("Payment completed for order that cannot move to paid")
				return nil
			}
			err = tx.Orders().TransitionStatus(ctx, orderID,
				[]models.OrderStatus{models.OrderPending, models.OrderConfirmed}, models.OrderPaid)
			if errors.Is(err, repository.ErrStatusConflict) {
				return nil
			}
			return err

		case sepay.StatusFailed:
			err := tx.Orders().SetPaymentStatus(ctx, orderID,
				[]models.PaymentStatus{models.PaymentPending}, models.PaymentFailed, transactionID)
			if errors.Is(err, repository.ErrStatusConflict) {
				return nil
			}
			if err != nil {
				return err
			}
			changed = true
			return nil

		default:
			log.WithFields(log.Fields{"order_id": orderID, "status": status}).Info("Ignoring intermediate Sepay status")
			return nil
		}
	})
	if err != nil {
		return false, err
	}

	return changed, nil
}

func (s *paymentService) notifyPayment(ctx context.Context, orderID string) {
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		log.WithError(err).WithField("order_id", orderID).Error("Failed to reload order after payment")
		return
	}

	log.WithFields(log.Fields{
		"order_id":       order.ID,
		"payment_status": order.PaymentStatus,
		"status":         order.Status,
	}).Info("Payment status updated")

	if s.notifier != nil {
		s.notifier.PaymentChanged(order)
	}
}

package services

import (
	"context"
	"errors"
	"fmt"

	"mechanical_shop/internal/models"
	"mechanical_shop/internal/repository"

	"github.com/jaevor/go-nanoid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultOrderLimit   = 10
	orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	orderNumberLength   = 10
)

type OrderItemInput struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderInput takes either an inline shipping address or the id of a saved one.
type CreateOrderInput struct {
	ShippingAddress *models.ShippingAddress `json:"shippingAddress"`
	AddressID       string                  `json:"addressId"`
	Notes           string                  `json:"notes"`
	PaymentMethod   models.PaymentMethod    `json:"paymentMethod"`
	Items           []OrderItemInput        `json:"items"`
}

type OrderList struct {
	Orders     []models.Order `json:"orders"`
	Pagination Pagination     `json:"pagination"`
}

// StockObserver is told which products changed stock after a commit.
type StockObserver interface {
	InvalidateProducts(ctx context.Context, ids ...string)
}

type OrderService interface {
	CreateOrder(ctx context.Context, userID string, input CreateOrderInput) (*models.Order, error)
	ListOrders(ctx context.Context, userID string, page, limit int) (*OrderList, error)
	GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error)
	CancelOrder(ctx context.Context, userID, orderID string) (*models.Order, error)
	UploadPaymentProof(ctx context.Context, userID, orderID, proofURL string) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error)
}

type orderService struct {
	store          repository.Store
	stock          StockObserver
	notifier       NotificationService
	newOrderNumber func() string
}

func NewOrderService(store repository.Store, stock StockObserver, notifier NotificationService) (OrderService, error) {
	generate, err := nanoid.CustomASCII(orderNumberAlphabet, orderNumberLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create order number generator: %w", err)
	}

	return &orderService{
		store:          store,
		stock:          stock,
		notifier:       notifier,
		newOrderNumber: generate,
	}, nil
}

type orderLine struct {
	product  models.Product
	quantity int
}

// CreateOrder validates against a stock snapshot, then commits order, items and stock decrements together.
func (s *orderService) CreateOrder(ctx context.Context, userID string, input CreateOrderInput) (*models.Order, error) {
	shipping, err := s.shippingAddress(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	if len(input.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	method := input.PaymentMethod
	if method == "" {
		method = models.PaymentCOD
	}
	if !method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	// coalesce repeated products, keeping first-seen order
	quantities := make(map[string]int, len(input.Items))
	ids := make([]string, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		if _, seen := quantities[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		quantities[item.ProductID] += item.Quantity
	}

	products, err := s.store.Products().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]orderLine, 0, len(ids))
	total := decimal.Zero
	for _, id := range ids {
		product, ok := byID[id]
		if !ok || !product.IsActive {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		if product.StockQuantity < quantities[id] {
			return nil, fmt.Errorf("%w for %s", ErrInsufficientStock, product.Name)
		}

		lines = append(lines, orderLine{product: product, quantity: quantities[id]})
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(quantities[id]))))
	}

	order := &models.Order{
		OrderNumber:     s.newOrderNumber(),
		UserID:          userID,
		TotalAmount:     total,
		Status:          models.OrderPending,
		PaymentStatus:   models.PaymentPending,
		PaymentMethod:   method,
		ShippingAddress: shipping,
		Notes:           input.Notes,
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			quantity := decimal.NewFromInt(int64(line.quantity))
			items = append(items, models.OrderItem{
				OrderID:   order.ID,
				ProductID: line.product.ID,
				Quantity:  line.quantity,
				UnitPrice: line.product.Price,
				Subtotal:  line.product.Price.Mul(quantity),
			})
		}
		if err := tx.OrderItems().CreateBatch(ctx, items); err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}

		for _, line := range lines {
			if err := tx.Products().DecrementStock(ctx, line.product.ID, line.quantity); err != nil {
				if errors.Is(err, repository.ErrStockConflict) {
					return fmt.Errorf("%w for %s", ErrInsufficientStock, line.product.Name)
				}
				return fmt.Errorf("failed to update stock: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, ids)

	created, err := s.store.Orders().GetByID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}

	log.WithFields(log.Fields{
		"order_id":     created.ID,
		"order_number": created.OrderNumber,
		"user_id":      userID,
		"total":        created.TotalAmount.String(),
		"items":        len(created.OrderItems),
	}).Info("Order created")

	if s.notifier != nil {
		s.notifier.OrderPlaced(created)
	}

	return created, nil
}

func (s *orderService) shippingAddress(ctx context.Context, userID string, input CreateOrderInput) (models.ShippingAddress, error) {
	if input.ShippingAddress != nil && !input.ShippingAddress.IsZero() {
		return *input.ShippingAddress, nil
	}
	if input.AddressID == "" {
		return models.ShippingAddress{}, ErrShippingAddressRequired
	}

	saved, err := s.store.Addresses().GetForUser(ctx, input.AddressID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.ShippingAddress{}, ErrAddressNotFound
		}
		return models.ShippingAddress{}, err
	}
	return saved.Snapshot(), nil
}

func (s *orderService) ListOrders(ctx context.Context, userID string, page, limit int) (*OrderList, error) {
	p := pageRequest(page, limit, defaultOrderLimit)

	var (
		orders []models.Order
		total  int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.store.Orders().ListByUser(gctx, userID, p)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Orders().CountByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	if orders == nil {
		orders = []models.Order{}
	}
	return &OrderList{Orders: orders, Pagination: newPagination(p, total)}, nil
}

func (s *orderService) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.store.Orders().GetForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// CancelOrder restores stock for every item; the status guard makes a second cancel a no-op failure.
func (s *orderService) CancelOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(models.OrderCancelled) {
		return nil, ErrOrderNotCancellable
	}

	if err := s.cancel(ctx, order); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, ErrOrderNotCancellable
		}
		return nil, err
	}

	return s.afterStatusChange(ctx, order.ID, func(o *models.Order) {
		if s.notifier != nil {
			s.notifier.OrderCancelled(o)
		}
	})
}

func (s *orderService) cancel(ctx context.Context, order *models.Order) error {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Orders().TransitionStatus(ctx, order.ID, models.Cancellable(), models.OrderCancelled); err != nil {
			return err
		}

		items, err := tx.OrderItems().GetByOrderID(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("failed to load order items: %w", err)
		}
		for _, item := range items {
			if err := tx.Products().IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("failed to restore stock for %s: %w", item.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(order.OrderItems))
	for _, item := range order.OrderItems {
		ids = append(ids, item.ProductID)
	}
	s.invalidate(ctx, ids)

	log.WithFields(log.Fields{"order_id": order.ID, "user_id": order.UserID}).Info("Order cancelled")
	return nil
}

func (s *orderService) UploadPaymentProof(ctx context.Context, userID, orderID, proofURL string) (*models.Order, error) {
	if proofURL == "" {
		return nil, fmt.Errorf("%w: payment proof url is required", ErrInvalidInput)
	}

	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != models.PaymentBankTransfer {
		return nil, ErrPaymentProofNotAllowed
	}

	if err := s.store.Orders().SetPaymentProof(ctx, order.ID, proofURL); err != nil {
		return nil, fmt.Errorf("failed to save payment proof: %w", err)
	}

	order.PaymentProof = proofURL
	return order, nil
}

// UpdateStatus is the back-office transition; cancelling goes through the stock-restoring path.
func (s *orderService) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatusTransition
	}

	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: order is already %s", ErrInvalidStatusTransition, order.Status)
	}
	if !order.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, order.Status, status)
	}

	if status == models.OrderCancelled {
		if err := s.cancel(ctx, order); err != nil {
			if errors.Is(err, repository.ErrStatusConflict) {
				return nil, ErrInvalidStatusTransition
			}
			return nil, err
		}
		return s.afterStatusChange(ctx, order.ID, func(o *models.Order) {
			if s.notifier != nil {
				s.notifier.OrderCancelled(o)
			}
		})
	}

	err = s.store.Orders().TransitionStatus(ctx, order.ID, []models.OrderStatus{order.Status}, status)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, err
	}

	return s.afterStatusChange(ctx, order.ID, func(o *models.Order) {
		if s.notifier != nil {
			s.notifier.OrderStatusChanged(o)
		}
	})
}

func (s *orderService) afterStatusChange(ctx context.Context, orderID string, notify func(o *models.Order)) (*models.Order, error) {
	updated, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	notify(updated)
	return updated, nil
}

func (s *orderService) invalidate(ctx context.Context, ids []string) {
	if s.stock != nil {
		s.stock.InvalidateProducts(ctx, ids...)
	}
}

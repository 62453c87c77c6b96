package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrStockConflict  = errors.New("stock changed concurrently or is insufficient")
	ErrStatusConflict = errors.New("order is no longer in the expected state")
)

// Store groups the repositories that share one database handle.
// Repositories obtained from the tx passed to Transaction run inside that transaction.
type Store interface {
	Users() UserRepository
	Products() ProductRepository
	Categories() CategoryRepository
	Addresses() AddressRepository
	CartItems() CartItemRepository
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	ChatMessages() ChatMessageRepository
	WebhookEvents() WebhookEventRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository                 { return NewUserRepository(s.db) }
func (s *gormStore) Products() ProductRepository           { return NewProductRepository(s.db) }
func (s *gormStore) Categories() CategoryRepository        { return NewCategoryRepository(s.db) }
func (s *gormStore) Addresses() AddressRepository          { return NewAddressRepository(s.db) }
func (s *gormStore) CartItems() CartItemRepository         { return NewCartItemRepository(s.db) }
func (s *gormStore) Orders() OrderRepository               { return NewOrderRepository(s.db) }
func (s *gormStore) OrderItems() OrderItemRepository       { return NewOrderItemRepository(s.db) }
func (s *gormStore) ChatMessages() ChatMessageRepository   { return NewChatMessageRepository(s.db) }
func (s *gormStore) WebhookEvents() WebhookEventRepository { return NewWebhookEventRepository(s.db) }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

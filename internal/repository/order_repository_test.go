package repository

import (
	"context"
	"testing"

	"mechanical_shop/internal/models"
	"mechanical_shop/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T, store Store, userID string) *models.Order {
	t.Helper()

	order := &models.Order{
		OrderNumber:     "TEST" + userID[:6],
		UserID:          userID,
		TotalAmount:     decimal.NewFromInt(100000),
		ShippingAddress: models.ShippingAddress{FullName: "A", Phone: "1", AddressLine: "x", City: "Hue"},
	}
	require.NoError(t, store.Orders().Create(context.Background(), order))
	return order
}

func TestOrderRepository_TransitionStatus(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "buyer@example.com")
	order := newTestOrder(t, store, user.ID)

	require.NoError(t, store.Orders().TransitionStatus(ctx, order.ID, models.Cancellable(), models.OrderCancelled))

	err := store.Orders().TransitionStatus(ctx, order.ID, models.Cancellable(), models.OrderCancelled)
	assert.ErrorIs(t, err, ErrStatusConflict)

	got, err := store.Orders().GetForUser(ctx, order.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.Status)
}

func TestOrderRepository_GetForUser_Ownership(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)

	owner := testutil.CreateUser(t, db, "owner@example.com")
	other := testutil.CreateUser(t, db, "other@example.com")
	order := newTestOrder(t, store, owner.ID)

	_, err := store.Orders().GetForUser(context.Background(), order.ID, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderRepository_SetPaymentStatus(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "payer@example.com")
	order := newTestOrder(t, store, user.ID)
	open := []models.PaymentStatus{models.PaymentPending, models.PaymentFailed}

	require.NoError(t, store.Orders().SetPaymentStatus(ctx, order.ID, open, models.PaymentCompleted, "TX1"))
	assert.ErrorIs(t, store.Orders().SetPaymentStatus(ctx, order.ID, open, models.PaymentFailed, ""), ErrStatusConflict)

	got, err := store.Orders().GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, got.PaymentStatus)
	assert.Equal(t, "TX1", got.SepayTransactionID)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	ctx := context.Background()

	product := testutil.CreateProduct(t, db, "Socket Set", 385000, 2)

	err := store.Transaction(ctx, func(tx Store) error {
		if err := tx.Products().DecrementStock(ctx, product.ID, 1); err != nil {
			return err
		}
		return tx.Products().DecrementStock(ctx, product.ID, 5)
	})
	assert.ErrorIs(t, err, ErrStockConflict)
	assert.Equal(t, 2, testutil.StockOf(t, db, product.ID))
}

func TestWebhookEventRepository_Record(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewWebhookEventRepository(db)
	ctx := context.Background()

	first, err := repo.Record(ctx, &models.WebhookEvent{DeliveryKey: "TX1:success", OrderID: "o1", Status: "success"})
	require.NoError(t, err)
	assert.True(t, first)

	again, err := repo.Record(ctx, &models.WebhookEvent{DeliveryKey: "TX1:success", OrderID: "o1", Status: "success"})
	require.NoError(t, err)
	assert.False(t, again)
}

func TestChatMessageRepository_RecentIsChronological(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewChatMessageRepository(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "chatter@example.com")
	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, repo.Create(ctx, &models.ChatMessage{UserID: user.ID, Message: text, IsUser: true}))
	}

	recent, err := repo.Recent(ctx, user.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "two", recent[0].Message)
	assert.Equal(t, "three", recent[1].Message)
}

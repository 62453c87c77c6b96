package cartsession

import (
	"context"
	"testing"

	"mechanical_shop/internal/models"
	"mechanical_shop/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	carts  map[string]Cart
	active map[string]Identity
}

func newMemoryStore() *memoryStore {
	return &memoryStore{carts: map[string]Cart{}, active: map[string]Identity{}}
}

func (m *memoryStore) ActiveOwner(ctx context.Context, deviceID string) (Identity, bool, error) {
	owner, ok := m.active[deviceID]
	return owner, ok, nil
}

func (m *memoryStore) Load(ctx context.Context, owner Identity) (Cart, error) {
	if cart, ok := m.carts[owner.Key()]; ok {
		return cart.clone(), nil
	}
	return Empty(owner), nil
}

func (m *memoryStore) Save(ctx context.Context, cart Cart) error {
	m.carts[cart.Owner.Key()] = cart.clone()
	return nil
}

func (m *memoryStore) SaveSwitch(ctx context.Context, deviceID string, active, parked Cart) error {
	m.carts[parked.Owner.Key()] = parked.clone()
	m.carts[active.Owner.Key()] = active.clone()
	m.active[deviceID] = active.Owner
	return nil
}

type fakeProducts map[string]*models.Product

func (f fakeProducts) GetByID(ctx context.Context, id string) (*models.Product, error) {
	if p, ok := f[id]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func newTestService(policy Policy) *Service {
	products := fakeProducts{
		"A":   {ID: "A", Name: "Hammer", Price: decimal.NewFromInt(150000), IsActive: true, StockQuantity: 1},
		"B":   {ID: "B", Name: "Wrench", Price: decimal.NewFromInt(85000), IsActive: true, StockQuantity: 1},
		"OFF": {ID: "OFF", Name: "Retired", Price: decimal.NewFromInt(1), IsActive: false},
	}
	return NewService(newMemoryStore(), products, policy)
}

func TestService_GuestLoginLogoutCycle(t *testing.T) {
	svc := newTestService(Swap)
	ctx := context.Background()
	guest := Caller{DeviceID: "d1"}
	user := Caller{DeviceID: "d1", UserID: "u1"}

	_, err := svc.AddItem(ctx, guest, "A", 1)
	require.NoError(t, err)

	// log in: user's (empty) cart becomes active
	cart, err := svc.Switch(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = svc.AddItem(ctx, user, "B", 1)
	require.NoError(t, err)

	// log out: guest cart comes back with A only
	cart, err = svc.Switch(ctx, guest)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "A", cart.Items[0].ProductID)

	// log in again: B is restored
	cart, err = svc.Switch(ctx, user)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "B", cart.Items[0].ProductID)
}

func TestService_NoStockCheckOnSessionCart(t *testing.T) {
	svc := newTestService(Swap)
	ctx := context.Background()
	guest := Caller{DeviceID: "d1"}

	cart, err := svc.AddItem(ctx, guest, "A", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Items[0].Quantity)

	cart, err = svc.SetQuantity(ctx, guest, "A", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, cart.Items[0].Quantity)
}

func TestService_RejectsUnavailableProducts(t *testing.T) {
	svc := newTestService(Swap)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, Caller{DeviceID: "d1"}, "OFF", 1)
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, err = svc.AddItem(ctx, Caller{DeviceID: "d1"}, "missing", 1)
	assert.ErrorIs(t, err, ErrProductUnavailable)
}

func TestService_UserCartHiddenFromAnonymousCaller(t *testing.T) {
	svc := newTestService(Swap)
	ctx := context.Background()

	_, err := svc.Switch(ctx, Caller{DeviceID: "d1", UserID: "u1"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, Caller{DeviceID: "d1"})
	assert.ErrorIs(t, err, ErrOwnerMismatch)

	_, err = svc.Get(ctx, Caller{DeviceID: "d1", UserID: "u2"})
	assert.ErrorIs(t, err, ErrOwnerMismatch)
}

func TestService_MergePolicy(t *testing.T) {
	svc := newTestService(Merge)
	ctx := context.Background()
	guest := Caller{DeviceID: "d1"}
	user := Caller{DeviceID: "d1", UserID: "u1"}

	_, err := svc.AddItem(ctx, guest, "A", 2)
	require.NoError(t, err)

	cart, err := svc.Switch(ctx, user)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	cart, err = svc.Switch(ctx, guest)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestService_MissingDevice(t *testing.T) {
	svc := newTestService(Swap)

	_, err := svc.Get(context.Background(), Caller{})
	assert.ErrorIs(t, err, ErrMissingDevice)
}

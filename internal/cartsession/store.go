package cartsession

import (
	"context"
	"errors"
	"time"

	"mechanical_shop/internal/redis"
)

// Store persists carts by owner and remembers which owner is active on each device.
type Store interface {
	ActiveOwner(ctx context.Context, deviceID string) (Identity, bool, error)
	Load(ctx context.Context, owner Identity) (Cart, error)
	Save(ctx context.Context, cart Cart) error
	// SaveSwitch atomically records the parked cart, the new active cart and the device pointer.
	SaveSwitch(ctx context.Context, deviceID string, active, parked Cart) error
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func activeKey(deviceID string) string {
	return "cart:active:" + deviceID
}

func (s *RedisStore) ActiveOwner(ctx context.Context, deviceID string) (Identity, bool, error) {
	var owner Identity
	err := s.client.GetJSON(ctx, activeKey(deviceID), &owner)
	if errors.Is(err, redis.ErrMiss) {
		return Identity{}, false, nil
	}
	if err != nil {
		return Identity{}, false, err
	}
	return owner, true, nil
}

func (s *RedisStore) Load(ctx context.Context, owner Identity) (Cart, error) {
	var cart Cart
	err := s.client.GetJSON(ctx, owner.Key(), &cart)
	if errors.Is(err, redis.ErrMiss) {
		return Empty(owner), nil
	}
	if err != nil {
		return Cart{}, err
	}
	cart.Owner = owner
	if cart.Items == nil {
		cart.Items = []Item{}
	}
	return cart, nil
}

func (s *RedisStore) Save(ctx context.Context, cart Cart) error {
	return s.client.SetJSON(ctx, cart.Owner.Key(), cart, s.ttl)
}

func (s *RedisStore) SaveSwitch(ctx context.Context, deviceID string, active, parked Cart) error {
	return s.client.SetJSONMulti(ctx, map[string]interface{}{
		parked.Owner.Key():  parked,
		active.Owner.Key():  active,
		activeKey(deviceID): active.Owner,
	}, s.ttl)
}

package cartsession

import (
	"context"
	"errors"
	"fmt"

	"mechanical_shop/internal/models"
	"mechanical_shop/internal/repository"

	log "github.com/sirupsen/logrus"
)

var (
	ErrProductUnavailable = errors.New("product not found or inactive")
	ErrOwnerMismatch      = errors.New("this device cart belongs to a signed-in user")
	ErrMissingDevice      = errors.New("device id is required")
)

// ProductLookup is the slice of the catalog the session cart needs.
type ProductLookup interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
}

type Service struct {
	store    Store
	products ProductLookup
	policy   Policy
}

func NewService(store Store, products ProductLookup, policy Policy) *Service {
	return &Service{store: store, products: products, policy: policy}
}

// Caller is who is making the request; an empty UserID means an anonymous device.
type Caller struct {
	DeviceID string
	UserID   string
}

func (c Caller) identity() Identity {
	if c.UserID != "" {
		return User(c.UserID)
	}
	return Guest(c.DeviceID)
}

// active resolves the device's active cart and checks the caller may touch it.
func (s *Service) active(ctx context.Context, caller Caller) (Cart, error) {
	if caller.DeviceID == "" {
		return Cart{}, ErrMissingDevice
	}

	owner, ok, err := s.store.ActiveOwner(ctx, caller.DeviceID)
	if err != nil {
		return Cart{}, fmt.Errorf("failed to resolve active cart: %w", err)
	}
	if !ok {
		owner = Guest(caller.DeviceID)
	}
	if owner.Kind == KindUser && owner.ID != caller.UserID {
		return Cart{}, ErrOwnerMismatch
	}

	return s.store.Load(ctx, owner)
}

func (s *Service) Get(ctx context.Context, caller Caller) (Cart, error) {
	return s.active(ctx, caller)
}

// AddItem snapshots name and price from the catalog; stock is checked only at checkout.
func (s *Service) AddItem(ctx context.Context, caller Caller, productID string, quantity int) (Cart, error) {
	if quantity < 1 {
		return Cart{}, ErrInvalidQuantity
	}

	cart, err := s.active(ctx, caller)
	if err != nil {
		return Cart{}, err
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Cart{}, ErrProductUnavailable
		}
		return Cart{}, err
	}
	if !product.IsActive {
		return Cart{}, ErrProductUnavailable
	}

	item := Item{ProductID: product.ID, Name: product.Name, Price: product.Price, Quantity: quantity}
	if len(product.Images) > 0 {
		item.Image = product.Images[0]
	}

	next, err := cart.Add(item)
	if err != nil {
		return Cart{}, err
	}
	return next, s.store.Save(ctx, next)
}

func (s *Service) SetQuantity(ctx context.Context, caller Caller, productID string, quantity int) (Cart, error) {
	cart, err := s.active(ctx, caller)
	if err != nil {
		return Cart{}, err
	}

	next := cart.SetQuantity(productID, quantity)
	return next, s.store.Save(ctx, next)
}

func (s *Service) RemoveItem(ctx context.Context, caller Caller, productID string) (Cart, error) {
	cart, err := s.active(ctx, caller)
	if err != nil {
		return Cart{}, err
	}

	next := cart.Remove(productID)
	return next, s.store.Save(ctx, next)
}

func (s *Service) Clear(ctx context.Context, caller Caller) (Cart, error) {
	cart, err := s.active(ctx, caller)
	if err != nil {
		return Cart{}, err
	}

	next := cart.Clear()
	return next, s.store.Save(ctx, next)
}

// Switch makes the caller's identity the active owner on the device.
// Signing in restores the user's cart; signing out restores the device's guest cart.
func (s *Service) Switch(ctx context.Context, caller Caller) (Cart, error) {
	if caller.DeviceID == "" {
		return Cart{}, ErrMissingDevice
	}

	owner, ok, err := s.store.ActiveOwner(ctx, caller.DeviceID)
	if err != nil {
		return Cart{}, fmt.Errorf("failed to resolve active cart: %w", err)
	}
	if !ok {
		owner = Guest(caller.DeviceID)
	}

	target := caller.identity()

	current, err := s.store.Load(ctx, owner)
	if err != nil {
		return Cart{}, err
	}
	if owner == target {
		return current, nil
	}

	stored, err := s.store.Load(ctx, target)
	if err != nil {
		return Cart{}, err
	}

	active, parked := Switch(current, stored, s.policy)
	if err := s.store.SaveSwitch(ctx, caller.DeviceID, active, parked); err != nil {
		return Cart{}, fmt.Errorf("failed to switch cart: %w", err)
	}

	log.WithFields(log.Fields{
		"device_id": caller.DeviceID,
		"from":      owner.Key(),
		"to":        target.Key(),
		"items":     len(active.Items),
	}).Info("Cart session switched")

	return active, nil
}

// Package cartsession keeps per-device shopping carts that follow the user across sign-in and sign-out.
package cartsession

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

type IdentityKind string

const (
	KindGuest IdentityKind = "guest"
	KindUser  IdentityKind = "user"
)

// Identity names the owner of a stored cart.
type Identity struct {
	Kind IdentityKind `json:"kind"`
	ID   string       `json:"id"`
}

func Guest(deviceID string) Identity { return Identity{Kind: KindGuest, ID: deviceID} }
func User(userID string) Identity    { return Identity{Kind: KindUser, ID: userID} }

func (i Identity) Key() string {
	return "cart:" + string(i.Kind) + ":" + i.ID
}

type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
}

type Cart struct {
	Owner     Identity  `json:"owner"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func Empty(owner Identity) Cart {
	return Cart{Owner: owner, Items: []Item{}}
}

func (c Cart) clone() Cart {
	items := make([]Item, len(c.Items))
	copy(items, c.Items)
	c.Items = items
	return c
}

func (c Cart) index(productID string) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Add sums quantities when the product is already in the cart.
func (c Cart) Add(item Item) (Cart, error) {
	if item.Quantity < 1 {
		return c, ErrInvalidQuantity
	}

	next := c.clone()
	if i := next.index(item.ProductID); i >= 0 {
		next.Items[i].Quantity += item.Quantity
		next.Items[i].Name = item.Name
		next.Items[i].Price = item.Price
		next.Items[i].Image = item.Image
	} else {
		next.Items = append(next.Items, item)
	}
	next.UpdatedAt = time.Now()
	return next, nil
}

// SetQuantity removes the line when quantity < 1.
func (c Cart) SetQuantity(productID string, quantity int) Cart {
	if quantity < 1 {
		return c.Remove(productID)
	}

	next := c.clone()
	if i := next.index(productID); i >= 0 {
		next.Items[i].Quantity = quantity
		next.UpdatedAt = time.Now()
	}
	return next
}

func (c Cart) Remove(productID string) Cart {
	next := Cart{Owner: c.Owner, Items: make([]Item, 0, len(c.Items)), UpdatedAt: time.Now()}
	for _, item := range c.Items {
		if item.ProductID != productID {
			next.Items = append(next.Items, item)
		}
	}
	return next
}

func (c Cart) Clear() Cart {
	next := Empty(c.Owner)
	next.UpdatedAt = time.Now()
	return next
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func (c Cart) Count() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Policy decides what happens to the guest cart when a user signs in.
type Policy int

const (
	// Swap parks the outgoing cart and restores the incoming identity's cart untouched.
	Swap Policy = iota
	// Merge folds the guest cart into the user cart on sign-in; other switches swap.
	Merge
)

// Switch changes the active cart from active.Owner to stored.Owner.
// It returns the cart that becomes active and the cart to park under the previous owner.
func Switch(active, stored Cart, policy Policy) (newActive, parked Cart) {
	if active.Owner == stored.Owner {
		return active.clone(), active.clone()
	}

	if policy == Merge && active.Owner.Kind == KindGuest && stored.Owner.Kind == KindUser {
		merged := stored.clone()
		for _, item := range active.Items {
			if i := merged.index(item.ProductID); i >= 0 {
				merged.Items[i].Quantity += item.Quantity
			} else {
				merged.Items = append(merged.Items, item)
			}
		}
		merged.UpdatedAt = time.Now()
		return merged, Empty(active.Owner)
	}

	return stored.clone(), active.clone()
}

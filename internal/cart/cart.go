package cart

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LineItem is one product-and-quantity entry in a cart. Stock is a snapshot
// taken from the catalog when the line was last added and is only an
// advisory upper bound; the authoritative stock check happens at payment
// confirmation time.
type LineItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	ImageURL  string    `json:"image_url"`
	Quantity  int       `json:"quantity"`
	Stock     int       `json:"stock"`
}

// Cart holds a customer's in-progress selection. At most one line exists per
// product id; re-adding merges quantities. Every mutation is persisted to
// the backing store, but persistence is a convenience cache: failures are
// swallowed, not surfaced.
type Cart struct {
	id     uuid.UUID
	lines  []LineItem
	store  Store
	logger *zap.Logger
}

// Load restores a cart from the store. Absent or corrupt persisted data
// yields an empty cart.
func Load(ctx context.Context, id uuid.UUID, store Store, logger *zap.Logger) *Cart {
	c := &Cart{id: id, store: store, logger: logger}

	lines, err := store.Load(ctx, id)
	if err != nil {
		logger.Debug("Failed to load persisted cart, starting empty",
			zap.String("cart_id", id.String()),
			zap.Error(err),
		)
		return c
	}

	c.lines = lines
	return c
}

// ID returns the cart identifier.
func (c *Cart) ID() uuid.UUID {
	return c.id
}

// Lines returns the current line items in insertion order.
func (c *Cart) Lines() []LineItem {
	out := make([]LineItem, len(c.lines))
	copy(out, c.lines)
	return out
}

// Add puts qty units of item into the cart, merging with an existing line
// for the same product. Quantities clamp to the item's stock snapshot and
// never drop below one. Out-of-stock items are ignored. Add never fails.
func (c *Cart) Add(ctx context.Context, item LineItem, qty int) {
	if item.Stock < 1 {
		return
	}
	if qty < 1 {
		qty = 1
	}

	for i := range c.lines {
		if c.lines[i].ProductID == item.ProductID {
			newQty := c.lines[i].Quantity + qty
			if newQty > item.Stock {
				newQty = item.Stock
			}
			c.lines[i].Quantity = newQty
			// Refresh the snapshot so the clamp bound reflects the
			// stock seen at the latest add.
			c.lines[i].Stock = item.Stock
			c.persist(ctx)
			return
		}
	}

	if qty > item.Stock {
		qty = item.Stock
	}
	item.Quantity = qty
	c.lines = append(c.lines, item)
	c.persist(ctx)
}

// UpdateQty sets the quantity for a product's line, clamped to
// [1, stock snapshot]. Unknown product ids are a no-op.
func (c *Cart) UpdateQty(ctx context.Context, productID uuid.UUID, qty int) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			if qty < 1 {
				qty = 1
			}
			if qty > c.lines[i].Stock {
				qty = c.lines[i].Stock
			}
			c.lines[i].Quantity = qty
			c.persist(ctx)
			return
		}
	}
}

// Remove deletes the line for a product. Unknown product ids are a no-op.
func (c *Cart) Remove(ctx context.Context, productID uuid.UUID) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			c.persist(ctx)
			return
		}
	}
}

// Clear empties the cart and removes the persisted state.
func (c *Cart) Clear(ctx context.Context) {
	c.lines = nil
	if err := c.store.Clear(ctx, c.id); err != nil {
		c.logger.Debug("Failed to clear persisted cart",
			zap.String("cart_id", c.id.String()),
			zap.Error(err),
		)
	}
}

// TotalCount is the sum of quantities across all lines.
func (c *Cart) TotalCount() int {
	total := 0
	for _, line := range c.lines {
		total += line.Quantity
	}
	return total
}

// TotalPrice is the sum of price times quantity across all lines.
func (c *Cart) TotalPrice() float64 {
	total := 0.0
	for _, line := range c.lines {
		total += line.Price * float64(line.Quantity)
	}
	return total
}

func (c *Cart) persist(ctx context.Context) {
	if err := c.store.Save(ctx, c.id, c.lines); err != nil {
		c.logger.Debug("Failed to persist cart",
			zap.String("cart_id", c.id.String()),
			zap.Error(err),
		)
	}
}

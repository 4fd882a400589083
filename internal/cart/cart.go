package cart

import (
	"errors"
	"math"

	"gudangpos/internal/domain"
)

var (
	ErrDiscountRange = errors.New("discount out of range")
)

// Line is one cart row. UnitPriceCents is a snapshot taken when the product
// was first added; later catalog price changes do not touch it.
type Line struct {
	ProductID      string
	Name           string
	Unit           string
	Qty            float64
	UnitPriceCents int64
}

func (l Line) TotalCents() int64 {
	return mulCents(l.UnitPriceCents, l.Qty)
}

// Cart is a session-scoped aggregate. Callers hold one instance per terminal
// session; there is no shared package state.
type Cart struct {
	lines         []Line
	discountKind  string
	discountValue float64
}

func New() *Cart {
	return &Cart{discountKind: domain.DiscountNone}
}

// AddItem appends the product with quantity 1, or increments the existing
// line. The line keeps its original price snapshot on increment.
func (c *Cart) AddItem(product domain.Product) {
	for i := range c.lines {
		if c.lines[i].ProductID == product.ID {
			c.lines[i].Qty++
			return
		}
	}
	c.lines = append(c.lines, Line{
		ProductID:      product.ID,
		Name:           product.Name,
		Unit:           product.Unit,
		Qty:            1,
		UnitPriceCents: product.PriceCents,
	})
}

// UpdateQuantity sets the line quantity. Zero or negative quantities are
// ignored; removal is explicit via RemoveItem. Unknown product IDs are a no-op.
func (c *Cart) UpdateQuantity(productID string, qty float64) {
	if qty <= 0 {
		return
	}
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Qty = qty
			return
		}
	}
}

func (c *Cart) RemoveItem(productID string) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

func (c *Cart) Clear() {
	c.lines = nil
	c.discountKind = domain.DiscountNone
	c.discountValue = 0
}

func (c *Cart) SetDiscountPercentage(percent float64) error {
	if percent < 0 || percent > 100 {
		return ErrDiscountRange
	}
	c.discountKind = domain.DiscountPercentage
	c.discountValue = percent
	return nil
}

func (c *Cart) SetDiscountFixed(amountCents int64) error {
	if amountCents < 0 {
		return ErrDiscountRange
	}
	c.discountKind = domain.DiscountFixed
	c.discountValue = float64(amountCents)
	return nil
}

func (c *Cart) ClearDiscount() {
	c.discountKind = domain.DiscountNone
	c.discountValue = 0
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) SubtotalCents() int64 {
	var subtotal int64
	for _, line := range c.lines {
		subtotal += line.TotalCents()
	}
	return subtotal
}

// DiscountCents never exceeds the subtotal, so TotalCents never goes negative.
func (c *Cart) DiscountCents() int64 {
	subtotal := c.SubtotalCents()
	var discount int64
	switch c.discountKind {
	case domain.DiscountPercentage:
		discount = int64(math.Round(float64(subtotal) * c.discountValue / 100))
	case domain.DiscountFixed:
		discount = int64(c.discountValue)
	default:
		return 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	return discount
}

func (c *Cart) TotalCents() int64 {
	return c.SubtotalCents() - c.DiscountCents()
}

// CheckoutItems converts the cart lines into the checkout request shape.
func (c *Cart) CheckoutItems() []domain.CheckoutItemRequest {
	items := make([]domain.CheckoutItemRequest, 0, len(c.lines))
	for _, line := range c.lines {
		items = append(items, domain.CheckoutItemRequest{
			ProductID:      line.ProductID,
			Qty:            line.Qty,
			UnitPriceCents: line.UnitPriceCents,
		})
	}
	return items
}

func mulCents(unitPriceCents int64, qty float64) int64 {
	return int64(math.Round(float64(unitPriceCents) * qty))
}

package cart

import (
	"testing"

	"gudangpos/internal/domain"
)

func sampleProduct(id string, priceCents int64) domain.Product {
	return domain.Product{
		ID:         id,
		SKU:        "SKU-" + id,
		Name:       "Product " + id,
		Unit:       domain.UnitPiece,
		PriceCents: priceCents,
		Active:     true,
	}
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	c := New()
	p := sampleProduct("p1", 2500)

	c.AddItem(p)
	c.AddItem(p)

	lines := c.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Qty != 2 {
		t.Fatalf("expected qty 2, got %v", lines[0].Qty)
	}
	if got := c.SubtotalCents(); got != 5000 {
		t.Fatalf("expected subtotal 5000, got %d", got)
	}
}

func TestSubtotalTracksEveryMutation(t *testing.T) {
	c := New()
	c.AddItem(sampleProduct("p1", 1000))
	c.AddItem(sampleProduct("p2", 300))

	if got := c.SubtotalCents(); got != 1300 {
		t.Fatalf("after adds: expected 1300, got %d", got)
	}

	c.UpdateQuantity("p1", 3)
	if got := c.SubtotalCents(); got != 3300 {
		t.Fatalf("after update: expected 3300, got %d", got)
	}

	c.RemoveItem("p2")
	if got := c.SubtotalCents(); got != 3000 {
		t.Fatalf("after remove: expected 3000, got %d", got)
	}

	c.Clear()
	if !c.IsEmpty() || c.SubtotalCents() != 0 {
		t.Fatalf("expected empty cart with zero subtotal after clear")
	}
}

func TestUpdateQuantityIgnoresNonPositive(t *testing.T) {
	c := New()
	c.AddItem(sampleProduct("p1", 1000))

	c.UpdateQuantity("p1", 0)
	c.UpdateQuantity("p1", -4)

	lines := c.Lines()
	if lines[0].Qty != 1 {
		t.Fatalf("expected qty unchanged at 1, got %v", lines[0].Qty)
	}

	c.RemoveItem("p1")
	if !c.IsEmpty() {
		t.Fatalf("expected RemoveItem to delete the line")
	}
}

func TestUpdateQuantityUnknownProductIsNoop(t *testing.T) {
	c := New()
	c.AddItem(sampleProduct("p1", 1000))

	c.UpdateQuantity("ghost", 5)

	if got := c.SubtotalCents(); got != 1000 {
		t.Fatalf("expected subtotal 1000, got %d", got)
	}
}

func TestFractionalWeightQuantities(t *testing.T) {
	c := New()
	p := sampleProduct("cement", 150) // price per kg
	p.Unit = domain.UnitWeight
	c.AddItem(p)
	c.UpdateQuantity("cement", 12.5)

	if got := c.SubtotalCents(); got != 1875 {
		t.Fatalf("expected subtotal 1875, got %d", got)
	}
}

func TestPercentageDiscountBounds(t *testing.T) {
	c := New()
	c.AddItem(sampleProduct("p1", 10000))

	if err := c.SetDiscountPercentage(101); err == nil {
		t.Fatalf("expected error for percentage above 100")
	}
	if err := c.SetDiscountPercentage(-1); err == nil {
		t.Fatalf("expected error for negative percentage")
	}
	if err := c.SetDiscountPercentage(10); err != nil {
		t.Fatalf("set discount: %v", err)
	}

	if got := c.DiscountCents(); got != 1000 {
		t.Fatalf("expected discount 1000, got %d", got)
	}
	if got := c.TotalCents(); got != 9000 {
		t.Fatalf("expected total 9000, got %d", got)
	}
}

func TestPercentageDiscountFullRange(t *testing.T) {
	c := New()
	c.AddItem(sampleProduct("p1", 4200))

	if err := c.SetDiscountPercentage(0); err != nil {
		t.Fatalf("set 0%%: %v", err)
	}
	if got := c.TotalCents(); got != 4200 {
		t.Fatalf("0%% discount: expected 4200, got %d", got)
	}

	if err := c.SetDiscountPercentage(100); err != nil {
		t.Fatalf("set 100%%: %v", err)
	}
	if got := c.TotalCents(); got != 0 {
		t.Fatalf("100%% discount: expected 0, got %d", got)
	}
}

func TestFixedDiscountClampsAtSubtotal(t *testing.T) {
	c := New()
	c.AddItem(sampleProduct("p1", 500))

	if err := c.SetDiscountFixed(800); err != nil {
		t.Fatalf("set discount: %v", err)
	}
	if got := c.DiscountCents(); got != 500 {
		t.Fatalf("expected discount clamped to 500, got %d", got)
	}
	if got := c.TotalCents(); got != 0 {
		t.Fatalf("expected total clamped at 0, got %d", got)
	}

	if err := c.SetDiscountFixed(-1); err == nil {
		t.Fatalf("expected error for negative fixed discount")
	}
}

func TestPriceSnapshotSurvivesCatalogChange(t *testing.T) {
	c := New()
	p := sampleProduct("p1", 1000)
	c.AddItem(p)

	p.PriceCents = 9999
	c.AddItem(p)

	lines := c.Lines()
	if lines[0].UnitPriceCents != 1000 {
		t.Fatalf("expected snapshot price 1000, got %d", lines[0].UnitPriceCents)
	}
	if got := c.SubtotalCents(); got != 2000 {
		t.Fatalf("expected subtotal 2000, got %d", got)
	}
}

func TestClearResetsDiscount(t *testing.T) {
	c := New()
	c.AddItem(sampleProduct("p1", 1000))
	if err := c.SetDiscountPercentage(50); err != nil {
		t.Fatalf("set discount: %v", err)
	}

	c.Clear()
	c.AddItem(sampleProduct("p2", 1000))

	if got := c.DiscountCents(); got != 0 {
		t.Fatalf("expected discount reset after clear, got %d", got)
	}
}

func TestCheckoutItemsMirrorLines(t *testing.T) {
	c := New()
	c.AddItem(sampleProduct("p1", 1000))
	c.AddItem(sampleProduct("p2", 300))
	c.UpdateQuantity("p2", 4)

	items := c.CheckoutItems()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[1].ProductID != "p2" || items[1].Qty != 4 || items[1].UnitPriceCents != 300 {
		t.Fatalf("unexpected second item: %+v", items[1])
	}
}

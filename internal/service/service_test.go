package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gudangpos/internal/bulkimport"
	"gudangpos/internal/domain"
	"gudangpos/internal/store"
	"gudangpos/internal/store/memory"
)

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded()
	svc := New(repo, nil, time.Second, "main-warehouse", "GudangPOS Test")
	return svc, repo
}

func testActorCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "cashier", Role: domain.RoleCashier})
}

func checkoutItems(items ...domain.CheckoutItemRequest) []domain.CheckoutItemRequest {
	return items
}

func TestCheckoutComputesTotalsAndDecrementsStock(t *testing.T) {
	svc, repo := newTestService()
	ctx := testActorCtx()

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		PaymentMethod:     domain.PaymentCash,
		CashReceivedCents: 2000,
		Items: checkoutItems(
			domain.CheckoutItemRequest{ProductID: "prod-cement", Qty: 10, UnitPriceCents: 150},
		),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if resp.SubtotalCents != 1500 || resp.TotalCents != 1500 {
		t.Fatalf("expected subtotal/total 1500, got %d/%d", resp.SubtotalCents, resp.TotalCents)
	}
	if resp.ChangeCents != 500 {
		t.Fatalf("expected change 500, got %d", resp.ChangeCents)
	}
	if resp.Duplicate {
		t.Fatalf("first checkout must not be a duplicate")
	}
	if resp.ReceiptNumber == "" {
		t.Fatalf("expected a receipt number")
	}

	stock, err := repo.GetStockMap(ctx, "main-warehouse", []string{"prod-cement"})
	if err != nil {
		t.Fatalf("stock map: %v", err)
	}
	if stock["prod-cement"] != 4990 {
		t.Fatalf("expected stock 4990 after checkout, got %v", stock["prod-cement"])
	}
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Checkout(testActorCtx(), domain.CheckoutRequest{
		PaymentMethod: domain.PaymentCash,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCheckoutAppliesDiscountWithClamp(t *testing.T) {
	svc, _ := newTestService()

	resp, err := svc.Checkout(testActorCtx(), domain.CheckoutRequest{
		PaymentMethod: domain.PaymentCash,
		DiscountCents: 99999,
		Items: checkoutItems(
			domain.CheckoutItemRequest{ProductID: "prod-nails", Qty: 2, UnitPriceCents: 1100},
		),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if resp.DiscountCents != 2200 || resp.TotalCents != 0 {
		t.Fatalf("expected discount clamped to subtotal, got discount=%d total=%d", resp.DiscountCents, resp.TotalCents)
	}
}

func TestCheckoutCreditRequiresCustomer(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Checkout(testActorCtx(), domain.CheckoutRequest{
		PaymentMethod: domain.PaymentCredit,
		Items: checkoutItems(
			domain.CheckoutItemRequest{ProductID: "prod-cement", Qty: 1, UnitPriceCents: 150},
		),
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for credit without customer, got %v", err)
	}
}

func TestCheckoutCreditIncrementsCustomerBalance(t *testing.T) {
	svc, repo := newTestService()
	ctx := testActorCtx()

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		PaymentMethod: domain.PaymentCredit,
		CustomerID:    "cust-bangun",
		Items: checkoutItems(
			domain.CheckoutItemRequest{ProductID: "prod-rebar", Qty: 4, UnitPriceCents: 6900},
		),
	})
	if err != nil {
		t.Fatalf("credit checkout: %v", err)
	}
	if resp.TotalCents != 27600 {
		t.Fatalf("expected total 27600, got %d", resp.TotalCents)
	}

	customer, err := repo.GetCustomerByID(ctx, "cust-bangun")
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if customer.CreditBalanceCents != 27600 {
		t.Fatalf("expected balance 27600, got %d", customer.CreditBalanceCents)
	}
}

func TestCheckoutIdempotencyReplayReturnsOriginal(t *testing.T) {
	svc, repo := newTestService()
	ctx := testActorCtx()

	req := domain.CheckoutRequest{
		IdempotencyKey:    "idem-replay-1",
		PaymentMethod:     domain.PaymentCash,
		CashReceivedCents: 5000,
		Items: checkoutItems(
			domain.CheckoutItemRequest{ProductID: "prod-brick", Qty: 20, UnitPriceCents: 70},
		),
	}

	first, err := svc.Checkout(ctx, req)
	if err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	second, err := svc.Checkout(ctx, req)
	if err != nil {
		t.Fatalf("replayed checkout: %v", err)
	}

	if !second.Duplicate {
		t.Fatalf("expected replay to be flagged duplicate")
	}
	if second.SaleID != first.SaleID || second.ReceiptNumber != first.ReceiptNumber {
		t.Fatalf("expected replay to return the original sale, got %s vs %s", second.SaleID, first.SaleID)
	}

	stock, err := repo.GetStockMap(ctx, "main-warehouse", []string{"prod-brick"})
	if err != nil {
		t.Fatalf("stock map: %v", err)
	}
	if stock["prod-brick"] != 4980 {
		t.Fatalf("expected stock decremented once to 4980, got %v", stock["prod-brick"])
	}
}

func TestCheckoutInsufficientStockFailsAtomically(t *testing.T) {
	svc, repo := newTestService()
	ctx := testActorCtx()

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		IdempotencyKey: "idem-too-much",
		PaymentMethod:  domain.PaymentCash,
		Items: checkoutItems(
			domain.CheckoutItemRequest{ProductID: "prod-sand", Qty: 100, UnitPriceCents: 35},
			domain.CheckoutItemRequest{ProductID: "prod-gravel", Qty: 6000, UnitPriceCents: 40},
		),
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	stock, err := repo.GetStockMap(ctx, "main-warehouse", []string{"prod-sand", "prod-gravel"})
	if err != nil {
		t.Fatalf("stock map: %v", err)
	}
	if stock["prod-sand"] != 5000 || stock["prod-gravel"] != 5000 {
		t.Fatalf("expected stock untouched after failed checkout, got %v", stock)
	}
	if _, err := repo.FindSaleByIdempotency(ctx, "idem-too-much"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no sale recorded, got %v", err)
	}
}

func TestRecordCreditPaymentDecrementsBalance(t *testing.T) {
	svc, repo := newTestService()
	ctx := testActorCtx()

	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{
		PaymentMethod: domain.PaymentCredit,
		CustomerID:    "cust-bangun",
		Items: checkoutItems(
			domain.CheckoutItemRequest{ProductID: "prod-paint", Qty: 1, UnitPriceCents: 28500},
		),
	}); err != nil {
		t.Fatalf("credit checkout: %v", err)
	}

	payment, err := svc.RecordCreditPayment(ctx, domain.RecordCreditPaymentRequest{
		CustomerID:  "cust-bangun",
		AmountCents: 10000,
		Method:      domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if payment.ReceivedBy != "cashier" {
		t.Fatalf("expected receiver from actor context, got %s", payment.ReceivedBy)
	}

	customer, err := repo.GetCustomerByID(ctx, "cust-bangun")
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if customer.CreditBalanceCents != 18500 {
		t.Fatalf("expected balance 18500, got %d", customer.CreditBalanceCents)
	}
}

func TestRecordCreditPaymentRejectsOverpayment(t *testing.T) {
	svc, repo := newTestService()
	ctx := testActorCtx()

	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{
		PaymentMethod: domain.PaymentCredit,
		CustomerID:    "cust-bangun",
		Items: checkoutItems(
			domain.CheckoutItemRequest{ProductID: "prod-nails", Qty: 1, UnitPriceCents: 1100},
		),
	}); err != nil {
		t.Fatalf("credit checkout: %v", err)
	}

	_, err := svc.RecordCreditPayment(ctx, domain.RecordCreditPaymentRequest{
		CustomerID:  "cust-bangun",
		AmountCents: 5000,
	})
	if !errors.Is(err, store.ErrOverpayment) {
		t.Fatalf("expected ErrOverpayment, got %v", err)
	}

	customer, err := repo.GetCustomerByID(ctx, "cust-bangun")
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if customer.CreditBalanceCents != 1100 {
		t.Fatalf("expected balance unchanged at 1100, got %d", customer.CreditBalanceCents)
	}
	if payments, _ := svc.ListCreditPayments(ctx, "cust-bangun", 10); len(payments) != 0 {
		t.Fatalf("expected no payment row after rejection, got %d", len(payments))
	}
}

func TestZReportAggregatesTheDay(t *testing.T) {
	svc, _ := newTestService()
	ctx := testActorCtx()

	sales := []struct {
		method string
		price  int64
	}{
		{domain.PaymentCash, 10000},
		{domain.PaymentCash, 5000},
		{domain.PaymentCard, 3000},
	}
	for i, s := range sales {
		req := domain.CheckoutRequest{
			IdempotencyKey:    fmt.Sprintf("idem-z-%d", i),
			PaymentMethod:     s.method,
			CashReceivedCents: s.price,
			Items: checkoutItems(
				domain.CheckoutItemRequest{ProductID: "prod-plywood", Qty: 1, UnitPriceCents: s.price},
			),
		}
		if _, err := svc.Checkout(ctx, req); err != nil {
			t.Fatalf("checkout %d: %v", i, err)
		}
	}

	report, err := svc.ZReport(ctx, "main-warehouse", time.Now().UTC().Format("2006-01-02"))
	if err != nil {
		t.Fatalf("z report: %v", err)
	}
	if report.TotalRevenueCents != 18000 {
		t.Fatalf("expected total revenue 18000, got %d", report.TotalRevenueCents)
	}
	if report.CashTotalCents != 15000 || report.CardTotalCents != 3000 {
		t.Fatalf("expected cash 15000 / card 3000, got %d / %d", report.CashTotalCents, report.CardTotalCents)
	}
}

func TestPickupTicketFromPersistedSale(t *testing.T) {
	svc, _ := newTestService()
	ctx := testActorCtx()

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		PaymentMethod: domain.PaymentCredit,
		CustomerID:    "cust-bangun",
		Items: checkoutItems(
			domain.CheckoutItemRequest{ProductID: "prod-sand", Qty: 400, UnitPriceCents: 35},
			domain.CheckoutItemRequest{ProductID: "prod-gravel", Qty: 400, UnitPriceCents: 40},
			domain.CheckoutItemRequest{ProductID: "prod-cement", Qty: 300, UnitPriceCents: 150},
		),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	ticket, err := svc.PickupTicket(ctx, resp.SaleID)
	if err != nil {
		t.Fatalf("pickup ticket: %v", err)
	}
	if ticket.TotalPayload != 1.1 || ticket.PayloadUnit != "ton" {
		t.Fatalf("expected 1.1 ton payload, got %v %s", ticket.TotalPayload, ticket.PayloadUnit)
	}
	if ticket.CustomerName != "PT Bangun Jaya" {
		t.Fatalf("expected customer name on ticket, got %q", ticket.CustomerName)
	}
}

func TestCustomerStatementRoundTrip(t *testing.T) {
	svc, _ := newTestService()
	ctx := testActorCtx()

	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{
		PaymentMethod: domain.PaymentCredit,
		CustomerID:    "cust-bangun",
		Items: checkoutItems(
			domain.CheckoutItemRequest{ProductID: "prod-rebar", Qty: 2, UnitPriceCents: 6900},
		),
	}); err != nil {
		t.Fatalf("credit checkout: %v", err)
	}
	if _, err := svc.RecordCreditPayment(ctx, domain.RecordCreditPaymentRequest{
		CustomerID:  "cust-bangun",
		AmountCents: 3800,
	}); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	stmt, err := svc.CustomerStatement(ctx, "cust-bangun")
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if len(stmt.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(stmt.Entries))
	}
	if stmt.ClosingBalanceCents != 10000 {
		t.Fatalf("expected closing balance 10000, got %d", stmt.ClosingBalanceCents)
	}
}

func TestImportProductsHappyPath(t *testing.T) {
	svc, repo := newTestService()
	ctx := testActorCtx()

	rows := make([]bulkimport.Row, 0, 60)
	for i := 0; i < 60; i++ {
		rows = append(rows, bulkimport.Row{
			Line:         i + 2,
			SKU:          fmt.Sprintf("SKU-IMP-%03d", i),
			Name:         fmt.Sprintf("Imported Product %03d", i),
			Category:     "building",
			Unit:         domain.UnitPiece,
			PriceCents:   1000,
			CostCents:    700,
			OpeningStock: 10,
		})
	}

	report, err := svc.ImportProducts(ctx, "main-warehouse", rows, nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.Imported != 60 || len(report.Errors) != 0 {
		t.Fatalf("expected 60 imported with no errors, got imported=%d errors=%d", report.Imported, len(report.Errors))
	}

	product, err := repo.GetProductBySKU(ctx, "SKU-IMP-059")
	if err != nil {
		t.Fatalf("expected imported product present: %v", err)
	}
	stock, err := repo.GetStockMap(ctx, "main-warehouse", []string{product.ID})
	if err != nil {
		t.Fatalf("stock map: %v", err)
	}
	if stock[product.ID] != 10 {
		t.Fatalf("expected opening stock 10, got %v", stock[product.ID])
	}
}

func TestImportProductsBatchFailureAttributesWholeBatch(t *testing.T) {
	svc, _ := newTestService()
	ctx := testActorCtx()

	rows := make([]bulkimport.Row, 0, 10)
	for i := 0; i < 10; i++ {
		sku := fmt.Sprintf("SKU-BATCH-%02d", i)
		if i == 7 {
			// Collides with a seeded product, sinking the whole batch.
			sku = "SKU-CEMENT-01"
		}
		rows = append(rows, bulkimport.Row{
			Line:         i + 2,
			SKU:          sku,
			Name:         fmt.Sprintf("Batch Product %02d", i),
			Category:     "building",
			Unit:         domain.UnitPiece,
			PriceCents:   500,
			OpeningStock: 5,
		})
	}

	report, err := svc.ImportProducts(ctx, "main-warehouse", rows, nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.Imported != 0 {
		t.Fatalf("expected nothing imported, got %d", report.Imported)
	}
	if len(report.Errors) != 10 {
		t.Fatalf("expected 10 row errors for the failed batch, got %d", len(report.Errors))
	}
	reason := report.Errors[0].Reason
	for _, rowErr := range report.Errors {
		if rowErr.Reason != reason {
			t.Fatalf("expected one shared reason, got %q and %q", reason, rowErr.Reason)
		}
	}
}

func TestImportProductsRowValidationPrecedesBatches(t *testing.T) {
	svc, _ := newTestService()
	ctx := testActorCtx()

	rows := []bulkimport.Row{
		{Line: 2, SKU: "SKU-VAL-01", Name: "Valid", Category: "building", Unit: domain.UnitPiece, PriceCents: 100, OpeningStock: 1},
		{Line: 3, SKU: "", Name: "No SKU", Category: "building", Unit: domain.UnitPiece, PriceCents: 100},
		{Line: 4, SKU: "SKU-VAL-03", Name: "Bad Unit", Category: "building", Unit: "BOX", PriceCents: 100},
	}

	report, err := svc.ImportProducts(ctx, "main-warehouse", rows, nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.Imported != 1 {
		t.Fatalf("expected 1 imported, got %d", report.Imported)
	}
	if len(report.Errors) != 2 {
		t.Fatalf("expected 2 validation errors, got %d", len(report.Errors))
	}
}

func TestCatalogSnapshotListsProductsWithStock(t *testing.T) {
	svc, _ := newTestService()
	ctx := testActorCtx()

	snapshot, err := svc.CatalogSnapshot(ctx, "")
	if err != nil {
		t.Fatalf("catalog snapshot: %v", err)
	}
	if snapshot.WarehouseID != "main-warehouse" {
		t.Fatalf("expected default warehouse, got %s", snapshot.WarehouseID)
	}
	if len(snapshot.Products) == 0 || len(snapshot.Customers) == 0 {
		t.Fatalf("expected seeded products and customers in snapshot")
	}
	for _, p := range snapshot.Products {
		if p.StockQty != 5000 {
			t.Fatalf("expected seeded stock 5000 for %s, got %v", p.SKU, p.StockQty)
		}
	}
}

func TestReceivePurchaseIncrementsStock(t *testing.T) {
	svc, repo := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Username: "admin", Role: domain.RoleAdmin})

	purchase, err := svc.ReceivePurchase(ctx, domain.ReceivePurchaseRequest{
		SupplierID: "sup-semesta",
		Reference:  "PO-2026-001",
		Items: []domain.PurchaseItemRequest{
			{ProductID: "prod-cement", Qty: 1000, UnitCostCents: 110},
		},
	})
	if err != nil {
		t.Fatalf("receive purchase: %v", err)
	}
	if purchase.TotalCents != 110000 {
		t.Fatalf("expected purchase total 110000, got %d", purchase.TotalCents)
	}

	stock, err := repo.GetStockMap(ctx, "main-warehouse", []string{"prod-cement"})
	if err != nil {
		t.Fatalf("stock map: %v", err)
	}
	if stock["prod-cement"] != 6000 {
		t.Fatalf("expected stock 6000 after purchase, got %v", stock["prod-cement"])
	}
}

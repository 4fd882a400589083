package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"gudangpos/internal/bulkimport"
	"gudangpos/internal/cache"
	"gudangpos/internal/domain"
	"gudangpos/internal/receipt"
	"gudangpos/internal/store"
	"gudangpos/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo               store.Repository
	catalogCache       cache.CatalogCache
	catalogTTL         time.Duration
	defaultWarehouseID string
	shopName           string
}

func New(repo store.Repository, catalogCache cache.CatalogCache, catalogTTL time.Duration, defaultWarehouseID string, shopName string) *Service {
	if catalogCache == nil {
		catalogCache = cache.NoopCatalogCache{}
	}
	if catalogTTL <= 0 {
		catalogTTL = 20 * time.Second
	}
	if defaultWarehouseID == "" {
		defaultWarehouseID = "main-warehouse"
	}
	if shopName == "" {
		shopName = "GudangPOS"
	}

	return &Service{
		repo:               repo,
		catalogCache:       catalogCache,
		catalogTTL:         catalogTTL,
		defaultWarehouseID: defaultWarehouseID,
		shopName:           shopName,
	}
}

func catalogCacheKey(warehouseID string) string {
	return "pos:catalog:" + warehouseID
}

// CatalogSnapshot builds the POS read model for one warehouse, served from
// cache when fresh.
func (s *Service) CatalogSnapshot(ctx context.Context, warehouseID string) (domain.CatalogSnapshot, error) {
	if warehouseID == "" {
		warehouseID = s.defaultWarehouseID
	}

	key := catalogCacheKey(warehouseID)
	if cached, ok, err := s.catalogCache.Get(ctx, key); err == nil && ok {
		return *cached, nil
	}

	products, err := s.repo.ListProducts(ctx, false)
	if err != nil {
		return domain.CatalogSnapshot{}, err
	}

	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	stockMap, err := s.repo.GetStockMap(ctx, warehouseID, ids)
	if err != nil {
		return domain.CatalogSnapshot{}, err
	}

	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		return domain.CatalogSnapshot{}, err
	}

	snapshot := domain.CatalogSnapshot{
		WarehouseID: warehouseID,
		Products:    make([]domain.CatalogProduct, 0, len(products)),
		Customers:   make([]domain.CatalogCustomer, 0, len(customers)),
		FetchedAt:   time.Now().UTC(),
	}
	for _, p := range products {
		qty := stockMap[p.ID]
		snapshot.Products = append(snapshot.Products, domain.CatalogProduct{
			ID:         p.ID,
			SKU:        p.SKU,
			Barcode:    p.Barcode,
			Name:       p.Name,
			Category:   p.Category,
			Unit:       p.Unit,
			PriceCents: p.PriceCents,
			StockQty:   qty,
			LowStock:   p.LowStockThreshold > 0 && qty <= p.LowStockThreshold,
		})
	}
	for _, c := range customers {
		snapshot.Customers = append(snapshot.Customers, domain.CatalogCustomer{
			ID:                 c.ID,
			Name:               c.Name,
			Phone:              c.Phone,
			CreditBalanceCents: c.CreditBalanceCents,
		})
	}

	if err := s.catalogCache.Set(ctx, key, &snapshot, s.catalogTTL); err != nil {
		log.Printf("[service] WARN: failed to cache catalog snapshot warehouse=%s: %v", warehouseID, err)
	}
	return snapshot, nil
}

func (s *Service) invalidateCatalog(ctx context.Context, warehouseID string) {
	if warehouseID == "" {
		warehouseID = s.defaultWarehouseID
	}
	if err := s.catalogCache.Invalidate(ctx, catalogCacheKey(warehouseID)); err != nil {
		log.Printf("[service] WARN: failed to invalidate catalog cache warehouse=%s: %v", warehouseID, err)
	}
}

func (s *Service) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, includeInactive)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.CreateProductRequest) (domain.Product, error) {
	if req.WarehouseID == "" {
		req.WarehouseID = s.defaultWarehouseID
	}

	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	req.Unit = strings.ToUpper(strings.TrimSpace(req.Unit))

	if req.SKU == "" || req.Name == "" || req.Category == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.Unit != domain.UnitPiece && req.Unit != domain.UnitWeight {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.PriceCents < 1 || req.CostCents < 0 || req.InitialStock < 0 || req.LowStockThreshold < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	product := domain.Product{
		SKU:               req.SKU,
		Barcode:           strings.TrimSpace(req.Barcode),
		Name:              req.Name,
		Category:          req.Category,
		Unit:              req.Unit,
		CostCents:         req.CostCents,
		PriceCents:        req.PriceCents,
		LowStockThreshold: req.LowStockThreshold,
		SupplierID:        strings.TrimSpace(req.SupplierID),
		Active:            true,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	if req.InitialStock > 0 {
		if err := s.repo.SetStock(ctx, req.WarehouseID, created.ID, req.InitialStock); err != nil {
			return domain.Product{}, err
		}
	}

	s.logAudit(ctx, "product_create", "product", created.SKU, fmt.Sprintf("name=%s,price=%d,stock=%g", created.Name, created.PriceCents, req.InitialStock))
	s.invalidateCatalog(ctx, req.WarehouseID)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, sku string, req domain.UpdateProductRequest) (domain.Product, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return domain.Product{}, store.ErrInvalidInput
	}

	existing, err := s.repo.GetProductBySKU(ctx, sku)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Category != nil {
		category := strings.ToLower(strings.TrimSpace(*req.Category))
		if category == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Category = category
	}
	if req.Barcode != nil {
		updated.Barcode = strings.TrimSpace(*req.Barcode)
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.CostCents != nil {
		if *req.CostCents < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.CostCents = *req.CostCents
	}
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.LowStockThreshold = *req.LowStockThreshold
	}
	if req.SupplierID != nil {
		updated.SupplierID = strings.TrimSpace(*req.SupplierID)
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_update", "product", saved.SKU, fmt.Sprintf("active=%t,price=%d", saved.Active, saved.PriceCents))
	s.invalidateCatalog(ctx, s.defaultWarehouseID)
	return *saved, nil
}

func (s *Service) DeactivateProduct(ctx context.Context, sku string) error {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return store.ErrInvalidInput
	}
	product, err := s.repo.GetProductBySKU(ctx, sku)
	if err != nil {
		return err
	}
	if err := s.repo.DeactivateProduct(ctx, product.ID); err != nil {
		return err
	}
	s.logAudit(ctx, "product_deactivate", "product", product.SKU, "")
	s.invalidateCatalog(ctx, s.defaultWarehouseID)
	return nil
}

// ImportProducts runs the batched bulk insert. Rows that fail validation
// never reach a batch; a failed batch reports one shared reason for each of
// its rows.
func (s *Service) ImportProducts(ctx context.Context, warehouseID string, rows []bulkimport.Row, parseErrors []bulkimport.RowError) (bulkimport.Report, error) {
	if warehouseID == "" {
		warehouseID = s.defaultWarehouseID
	}
	if _, err := s.repo.GetWarehouseByID(ctx, warehouseID); err != nil {
		return bulkimport.Report{}, err
	}

	report := bulkimport.Report{
		Total:  len(rows) + len(parseErrors),
		Errors: append([]bulkimport.RowError(nil), parseErrors...),
	}

	valid := make([]bulkimport.Row, 0, len(rows))
	for _, row := range rows {
		if err := bulkimport.Validate(row); err != nil {
			report.Errors = append(report.Errors, bulkimport.RowError{Line: row.Line, SKU: row.SKU, Reason: err.Error()})
			continue
		}
		valid = append(valid, row)
	}

	for _, batch := range bulkimport.Batches(valid, bulkimport.BatchSize) {
		products := make([]domain.Product, 0, len(batch))
		openingStock := make([]float64, 0, len(batch))
		for _, row := range batch {
			products = append(products, row.Product())
			openingStock = append(openingStock, row.OpeningStock)
		}

		if err := s.repo.InsertProductBatch(ctx, warehouseID, products, openingStock); err != nil {
			reason := err.Error()
			for _, row := range batch {
				report.Errors = append(report.Errors, bulkimport.RowError{Line: row.Line, SKU: row.SKU, Reason: reason})
			}
			continue
		}
		report.Imported += len(batch)
	}

	s.logAudit(ctx, "product_import", "product", warehouseID, fmt.Sprintf("total=%d,imported=%d,errors=%d", report.Total, report.Imported, len(report.Errors)))
	if report.Imported > 0 {
		s.invalidateCatalog(ctx, warehouseID)
	}
	return report, nil
}

func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	if req.WarehouseID == "" {
		req.WarehouseID = s.defaultWarehouseID
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PaymentCash
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = xid.New("idem")
	}

	if !isSupportedPaymentMethod(req.PaymentMethod) {
		return domain.CheckoutResponse{}, store.ErrInvalidInput
	}
	if req.DiscountCents < 0 {
		return domain.CheckoutResponse{}, store.ErrInvalidInput
	}

	normalized := normalizeItems(req.Items)
	if len(normalized) == 0 {
		return domain.CheckoutResponse{}, store.ErrInvalidInput
	}
	if req.PaymentMethod == domain.PaymentCredit && strings.TrimSpace(req.CustomerID) == "" {
		return domain.CheckoutResponse{}, store.ErrInvalidInput
	}

	if existing, err := s.repo.FindSaleByIdempotency(ctx, req.IdempotencyKey); err == nil {
		return toCheckoutResponse(existing, true), nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.CheckoutResponse{}, err
	}

	ids := make([]string, 0, len(normalized))
	for _, item := range normalized {
		ids = append(ids, item.ProductID)
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	subtotal := int64(0)
	for _, item := range normalized {
		product, exists := products[item.ProductID]
		if !exists || !product.Active {
			return domain.CheckoutResponse{}, store.ErrInvalidInput
		}
		subtotal += mulCents(item.UnitPriceCents, item.Qty)
	}
	if req.DiscountCents > subtotal {
		req.DiscountCents = subtotal
	}

	actor, _ := ActorFromContext(ctx)
	now := time.Now().UTC()
	sale := domain.Sale{
		ID:                xid.New("sale"),
		ReceiptNumber:     receiptNumber(now),
		WarehouseID:       req.WarehouseID,
		CustomerID:        strings.TrimSpace(req.CustomerID),
		CashierUsername:   actor.Username,
		IdempotencyKey:    req.IdempotencyKey,
		PaymentMethod:     req.PaymentMethod,
		DiscountCents:     req.DiscountCents,
		CashReceivedCents: req.CashReceivedCents,
		CreatedAt:         now,
	}
	sale.Items = make([]domain.SaleItem, 0, len(normalized))
	for _, item := range normalized {
		sale.Items = append(sale.Items, domain.SaleItem{
			ProductID:      item.ProductID,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
		})
	}

	created, err := s.repo.CreateCheckout(ctx, sale)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	duplicate := created.ID != sale.ID
	if !duplicate {
		s.logAudit(ctx, "checkout", "sale", created.ID, fmt.Sprintf("receipt=%s,method=%s,total=%d", created.ReceiptNumber, created.PaymentMethod, created.TotalCents))
		s.invalidateCatalog(ctx, req.WarehouseID)
	}
	return toCheckoutResponse(created, duplicate), nil
}

func (s *Service) FindSaleByIdempotency(ctx context.Context, key string) (domain.CheckoutResponse, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.CheckoutResponse{}, store.ErrInvalidInput
	}
	sale, err := s.repo.FindSaleByIdempotency(ctx, key)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	return toCheckoutResponse(sale, true), nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Sale{}, store.ErrInvalidInput
	}
	sale, err := s.repo.FindSaleByID(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

// SaleReceipt renders the persisted sale in the requested format.
func (s *Service) SaleReceipt(ctx context.Context, saleID string, format string) (domain.ReceiptDocument, error) {
	sale, err := s.GetSale(ctx, saleID)
	if err != nil {
		return domain.ReceiptDocument{}, err
	}

	doc := domain.ReceiptDocument{
		SaleID:        sale.ID,
		ReceiptNumber: sale.ReceiptNumber,
		Format:        format,
	}
	switch format {
	case "", domain.ReceiptFormatText:
		doc.Format = domain.ReceiptFormatText
		doc.Content = receipt.RenderText(sale, s.shopName)
	case domain.ReceiptFormatHTML:
		html, err := receipt.RenderHTML(sale, s.shopName)
		if err != nil {
			return domain.ReceiptDocument{}, err
		}
		doc.Content = html
	case domain.ReceiptFormatEscpos:
		doc.Content = receipt.RenderEscposBase64(sale, s.shopName)
		doc.FileName = fmt.Sprintf("receipt-%s.bin", sale.ID)
	default:
		return domain.ReceiptDocument{}, store.ErrInvalidInput
	}
	return doc, nil
}

func (s *Service) PickupTicket(ctx context.Context, saleID string) (domain.PickupTicket, error) {
	sale, err := s.GetSale(ctx, saleID)
	if err != nil {
		return domain.PickupTicket{}, err
	}

	customerName := ""
	if sale.CustomerID != "" {
		customer, err := s.repo.GetCustomerByID(ctx, sale.CustomerID)
		if err == nil {
			customerName = customer.Name
		} else if !errors.Is(err, store.ErrNotFound) {
			return domain.PickupTicket{}, err
		}
	}
	return receipt.BuildPickupTicket(sale, customerName), nil
}

func (s *Service) RenderPickupTicketText(ticket domain.PickupTicket) string {
	return receipt.RenderPickupText(ticket, s.shopName)
}

// ZReport aggregates one calendar day (UTC) of sales for a warehouse.
func (s *Service) ZReport(ctx context.Context, warehouseID string, date string) (domain.ZReport, error) {
	if warehouseID == "" {
		warehouseID = s.defaultWarehouseID
	}
	day, err := parseReportDate(date)
	if err != nil {
		return domain.ZReport{}, err
	}

	from := day
	to := day.Add(24 * time.Hour)
	sales, err := s.repo.ListSales(ctx, warehouseID, from, to)
	if err != nil {
		return domain.ZReport{}, err
	}
	return receipt.BuildZReport(warehouseID, day, sales), nil
}

func (s *Service) RecordCreditPayment(ctx context.Context, req domain.RecordCreditPaymentRequest) (domain.CreditPayment, error) {
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.Method = strings.ToLower(strings.TrimSpace(req.Method))
	if req.Method == "" {
		req.Method = domain.PaymentCash
	}
	if req.CustomerID == "" || req.AmountCents <= 0 {
		return domain.CreditPayment{}, store.ErrInvalidInput
	}
	if req.Method != domain.PaymentCash && req.Method != domain.PaymentCard {
		return domain.CreditPayment{}, store.ErrInvalidInput
	}

	actor, _ := ActorFromContext(ctx)
	payment := domain.CreditPayment{
		ID:          xid.New("pay"),
		CustomerID:  req.CustomerID,
		AmountCents: req.AmountCents,
		Method:      req.Method,
		Notes:       strings.TrimSpace(req.Notes),
		ReceivedBy:  actor.Username,
		CreatedAt:   time.Now().UTC(),
	}

	created, err := s.repo.RecordCreditPayment(ctx, payment)
	if err != nil {
		return domain.CreditPayment{}, err
	}

	s.logAudit(ctx, "credit_payment", "customer", created.CustomerID, fmt.Sprintf("payment=%s,amount=%d", created.ID, created.AmountCents))
	s.invalidateCatalog(ctx, s.defaultWarehouseID)
	return *created, nil
}

func (s *Service) ListCreditPayments(ctx context.Context, customerID string, limit int) ([]domain.CreditPayment, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, store.ErrInvalidInput
	}
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListCreditPayments(ctx, customerID, limit)
}

func (s *Service) CustomerStatement(ctx context.Context, customerID string) (domain.CustomerStatement, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.CustomerStatement{}, store.ErrInvalidInput
	}

	customer, err := s.repo.GetCustomerByID(ctx, customerID)
	if err != nil {
		return domain.CustomerStatement{}, err
	}
	creditSales, err := s.repo.ListCreditSales(ctx, customerID, 0)
	if err != nil {
		return domain.CustomerStatement{}, err
	}
	payments, err := s.repo.ListCreditPayments(ctx, customerID, 0)
	if err != nil {
		return domain.CustomerStatement{}, err
	}
	return receipt.BuildCustomerStatement(*customer, creditSales, payments), nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Customer{}, store.ErrInvalidInput
	}
	customer := domain.Customer{
		Name:  req.Name,
		Phone: strings.TrimSpace(req.Phone),
	}
	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	s.logAudit(ctx, "customer_create", "customer", created.ID, "name="+created.Name)
	return *created, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) CreateWarehouse(ctx context.Context, req domain.CreateWarehouseRequest) (domain.Warehouse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Warehouse{}, store.ErrInvalidInput
	}
	warehouse := domain.Warehouse{
		Name:    req.Name,
		Address: strings.TrimSpace(req.Address),
	}
	created, err := s.repo.CreateWarehouse(ctx, warehouse)
	if err != nil {
		return domain.Warehouse{}, err
	}
	s.logAudit(ctx, "warehouse_create", "warehouse", created.ID, "name="+created.Name)
	return *created, nil
}

func (s *Service) ListWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	return s.repo.ListWarehouses(ctx)
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.CreateSupplierRequest) (domain.Supplier, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Supplier{}, store.ErrInvalidInput
	}
	supplier := domain.Supplier{
		Name:  req.Name,
		Phone: strings.TrimSpace(req.Phone),
	}
	created, err := s.repo.CreateSupplier(ctx, supplier)
	if err != nil {
		return domain.Supplier{}, err
	}
	s.logAudit(ctx, "supplier_create", "supplier", created.ID, "name="+created.Name)
	return *created, nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) ReceivePurchase(ctx context.Context, req domain.ReceivePurchaseRequest) (domain.Purchase, error) {
	if req.WarehouseID == "" {
		req.WarehouseID = s.defaultWarehouseID
	}
	if len(req.Items) == 0 {
		return domain.Purchase{}, store.ErrInvalidInput
	}

	actor, _ := ActorFromContext(ctx)
	purchase := domain.Purchase{
		ID:          xid.New("po"),
		WarehouseID: req.WarehouseID,
		SupplierID:  strings.TrimSpace(req.SupplierID),
		Reference:   strings.TrimSpace(req.Reference),
		ReceivedBy:  actor.Username,
		CreatedAt:   time.Now().UTC(),
	}
	for _, item := range req.Items {
		if item.ProductID == "" || item.Qty <= 0 || item.UnitCostCents < 0 {
			return domain.Purchase{}, store.ErrInvalidInput
		}
		purchase.Items = append(purchase.Items, domain.PurchaseItem{
			ProductID:     item.ProductID,
			Qty:           item.Qty,
			UnitCostCents: item.UnitCostCents,
		})
	}

	created, err := s.repo.CreatePurchase(ctx, purchase)
	if err != nil {
		return domain.Purchase{}, err
	}

	s.logAudit(ctx, "purchase_receive", "purchase", created.ID, fmt.Sprintf("supplier=%s,total=%d", created.SupplierID, created.TotalCents))
	s.invalidateCatalog(ctx, req.WarehouseID)
	return *created, nil
}

func (s *Service) ListPurchases(ctx context.Context, warehouseID string, limit int) ([]domain.Purchase, error) {
	if warehouseID == "" {
		warehouseID = s.defaultWarehouseID
	}
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListPurchases(ctx, warehouseID, limit)
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entity string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:        xid.New("audit"),
		Actor:     actor.Username,
		Action:    action,
		Entity:    entity + "/" + entityID,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entity, entityID, err)
	}
}

func toCheckoutResponse(sale *domain.Sale, duplicate bool) domain.CheckoutResponse {
	return domain.CheckoutResponse{
		SaleID:        sale.ID,
		ReceiptNumber: sale.ReceiptNumber,
		SubtotalCents: sale.SubtotalCents,
		DiscountCents: sale.DiscountCents,
		TotalCents:    sale.TotalCents,
		ChangeCents:   sale.ChangeCents,
		Duplicate:     duplicate,
		CreatedAt:     sale.CreatedAt,
	}
}

// normalizeItems drops empty lines and merges duplicate products, keeping the
// first line's price snapshot.
func normalizeItems(items []domain.CheckoutItemRequest) []domain.CheckoutItemRequest {
	index := make(map[string]int, len(items))
	normalized := make([]domain.CheckoutItemRequest, 0, len(items))
	for _, item := range items {
		if item.ProductID == "" || item.Qty <= 0 {
			continue
		}
		if pos, ok := index[item.ProductID]; ok {
			normalized[pos].Qty += item.Qty
			continue
		}
		index[item.ProductID] = len(normalized)
		normalized = append(normalized, item)
	}
	return normalized
}

func isSupportedPaymentMethod(method string) bool {
	switch method {
	case domain.PaymentCash, domain.PaymentCard, domain.PaymentCredit:
		return true
	}
	return false
}

func receiptNumber(at time.Time) string {
	return fmt.Sprintf("RC-%s-%s", at.Format("20060102"), xid.Short())
}

func parseReportDate(date string) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, store.ErrInvalidInput
	}
	return day, nil
}

func mulCents(unitPriceCents int64, qty float64) int64 {
	return int64(math.Round(float64(unitPriceCents) * qty))
}

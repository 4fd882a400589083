package memory

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"gudangpos/internal/domain"
	"gudangpos/internal/store"
	"gudangpos/internal/xid"
)

type Store struct {
	mu               sync.RWMutex
	products         map[string]domain.Product
	productIDBySKU   map[string]string
	inventory        map[string]map[string]float64
	warehousesByID   map[string]domain.Warehouse
	suppliersByID    map[string]domain.Supplier
	customersByID    map[string]domain.Customer
	salesByID        map[string]*domain.Sale
	salesByIdem      map[string]*domain.Sale
	creditPayments   []domain.CreditPayment
	purchasesByID    map[string]domain.Purchase
	auditLogs        []domain.AuditLog
	usersByUsername  map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; unset
// variables fall back to dev defaults with a warning. The memory store is
// never selected when DATABASE_URL is set.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	products := []domain.Product{
		{ID: "prod-cement", SKU: "SKU-CEMENT-01", Name: "Portland Cement", Category: "building", Unit: domain.UnitWeight, CostCents: 110, PriceCents: 150, LowStockThreshold: 500, Active: true},
		{ID: "prod-sand", SKU: "SKU-SAND-01", Name: "River Sand", Category: "building", Unit: domain.UnitWeight, CostCents: 20, PriceCents: 35, LowStockThreshold: 1000, Active: true},
		{ID: "prod-gravel", SKU: "SKU-GRAVEL-01", Name: "Crushed Gravel", Category: "building", Unit: domain.UnitWeight, CostCents: 25, PriceCents: 40, LowStockThreshold: 1000, Active: true},
		{ID: "prod-rebar", SKU: "SKU-REBAR-10", Name: "Rebar 10mm 12m", Category: "steel", Unit: domain.UnitPiece, CostCents: 5200, PriceCents: 6900, LowStockThreshold: 40, Active: true},
		{ID: "prod-brick", SKU: "SKU-BRICK-01", Name: "Red Clay Brick", Category: "building", Unit: domain.UnitPiece, CostCents: 45, PriceCents: 70, LowStockThreshold: 2000, Active: true},
		{ID: "prod-nails", SKU: "SKU-NAILS-75", Name: "Nails 75mm Box", Category: "hardware", Unit: domain.UnitPiece, CostCents: 720, PriceCents: 1100, LowStockThreshold: 30, Active: true},
		{ID: "prod-paint", SKU: "SKU-PAINT-WH", Name: "Wall Paint White 20L", Category: "finishing", Unit: domain.UnitPiece, CostCents: 21000, PriceCents: 28500, LowStockThreshold: 10, Active: true},
		{ID: "prod-plywood", SKU: "SKU-PLY-12", Name: "Plywood 12mm", Category: "timber", Unit: domain.UnitPiece, CostCents: 9800, PriceCents: 13500, LowStockThreshold: 25, Active: true},
	}

	productMap := make(map[string]domain.Product, len(products))
	idBySKU := make(map[string]string, len(products))
	inventory := map[string]map[string]float64{"main-warehouse": {}}
	for _, p := range products {
		p.CreatedAt = now
		p.UpdatedAt = now
		productMap[p.ID] = p
		idBySKU[p.SKU] = p.ID
		inventory["main-warehouse"][p.ID] = 5000
	}

	return &Store{
		products:       productMap,
		productIDBySKU: idBySKU,
		inventory:      inventory,
		warehousesByID: map[string]domain.Warehouse{
			"main-warehouse": {ID: "main-warehouse", Name: "Main Warehouse", Address: "Jl. Industri 12", CreatedAt: now},
		},
		suppliersByID: map[string]domain.Supplier{
			"sup-semesta": {ID: "sup-semesta", Name: "Semesta Materials", Phone: "+62-811-220-100", CreatedAt: now},
		},
		customersByID: map[string]domain.Customer{
			"cust-bangun": {ID: "cust-bangun", Name: "PT Bangun Jaya", Phone: "+62-811-555-010", CreatedAt: now},
		},
		salesByID:       make(map[string]*domain.Sale),
		salesByIdem:     make(map[string]*domain.Sale),
		creditPayments:  make([]domain.CreditPayment, 0, 32),
		purchasesByID:   make(map[string]domain.Purchase),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
	}
}

func (s *Store) ListProducts(_ context.Context, includeInactive bool) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active && !includeInactive {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if _, exists := s.productIDBySKU[product.SKU]; exists {
		return nil, store.ErrDuplicateKey
	}

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	product.Active = true
	s.products[product.ID] = product
	s.productIDBySKU[product.SKU] = product.ID
	created := product
	return &created, nil
}

func validateProduct(product domain.Product) error {
	if product.SKU == "" || product.Name == "" || product.Category == "" || product.PriceCents < 1 {
		return store.ErrInvalidInput
	}
	if product.Unit != domain.UnitPiece && product.Unit != domain.UnitWeight {
		return store.ErrInvalidInput
	}
	if product.CostCents < 0 || product.LowStockThreshold < 0 {
		return store.ErrInvalidInput
	}
	return nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) GetProductBySKU(_ context.Context, sku string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.productIDBySKU[sku]
	if !exists {
		return nil, store.ErrNotFound
	}
	product := s.products[id]
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if product, exists := s.products[id]; exists {
			result[id] = product
		}
	}
	return result, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if product.SKU != existing.SKU {
		return nil, store.ErrInvalidInput
	}

	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeactivateProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists {
		return store.ErrNotFound
	}
	product.Active = false
	product.UpdatedAt = time.Now().UTC()
	s.products[id] = product
	return nil
}

func (s *Store) InsertProductBatch(_ context.Context, warehouseID string, products []domain.Product, openingStock []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(products) == 0 || len(products) != len(openingStock) {
		return store.ErrInvalidInput
	}
	if _, ok := s.warehousesByID[warehouseID]; !ok {
		return store.ErrNotFound
	}

	// Validate the whole batch before touching state so a failure leaves
	// nothing behind.
	seen := make(map[string]struct{}, len(products))
	for i, product := range products {
		if err := validateProduct(product); err != nil {
			return fmt.Errorf("sku %q: %w", product.SKU, err)
		}
		if _, dup := seen[product.SKU]; dup {
			return fmt.Errorf("sku %q: %w", product.SKU, store.ErrDuplicateKey)
		}
		seen[product.SKU] = struct{}{}
		if _, exists := s.productIDBySKU[product.SKU]; exists {
			return fmt.Errorf("sku %q: %w", product.SKU, store.ErrDuplicateKey)
		}
		if openingStock[i] < 0 {
			return fmt.Errorf("sku %q: %w", product.SKU, store.ErrInvalidInput)
		}
	}

	now := time.Now().UTC()
	stock := s.inventory[warehouseID]
	if stock == nil {
		stock = map[string]float64{}
		s.inventory[warehouseID] = stock
	}
	for i, product := range products {
		if product.ID == "" {
			product.ID = xid.New("prod")
		}
		product.CreatedAt = now
		product.UpdatedAt = now
		product.Active = true
		s.products[product.ID] = product
		s.productIDBySKU[product.SKU] = product.ID
		stock[product.ID] = openingStock[i]
	}
	return nil
}

func (s *Store) GetStockMap(_ context.Context, warehouseID string, productIDs []string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stock := s.inventory[warehouseID]
	result := make(map[string]float64, len(productIDs))
	for _, id := range productIDs {
		result[id] = stock[id]
	}
	return result, nil
}

func (s *Store) SetStock(_ context.Context, warehouseID string, productID string, qty float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if qty < 0 {
		return store.ErrInvalidInput
	}
	if _, exists := s.products[productID]; !exists {
		return store.ErrNotFound
	}
	stock := s.inventory[warehouseID]
	if stock == nil {
		stock = map[string]float64{}
		s.inventory[warehouseID] = stock
	}
	stock[productID] = qty
	return nil
}

func (s *Store) CreateWarehouse(_ context.Context, warehouse domain.Warehouse) (*domain.Warehouse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if warehouse.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if warehouse.ID == "" {
		warehouse.ID = xid.New("wh")
	}
	if warehouse.CreatedAt.IsZero() {
		warehouse.CreatedAt = time.Now().UTC()
	}
	s.warehousesByID[warehouse.ID] = warehouse
	if _, ok := s.inventory[warehouse.ID]; !ok {
		s.inventory[warehouse.ID] = map[string]float64{}
	}
	created := warehouse
	return &created, nil
}

func (s *Store) ListWarehouses(_ context.Context) ([]domain.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	warehouses := make([]domain.Warehouse, 0, len(s.warehousesByID))
	for _, w := range s.warehousesByID {
		warehouses = append(warehouses, w)
	}
	slices.SortFunc(warehouses, func(a, b domain.Warehouse) int { return cmpString(a.Name, b.Name) })
	return warehouses, nil
}

func (s *Store) GetWarehouseByID(_ context.Context, id string) (*domain.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	warehouse, exists := s.warehousesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyWarehouse := warehouse
	return &copyWarehouse, nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if supplier.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}
	s.suppliersByID[supplier.ID] = supplier
	created := supplier
	return &created, nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suppliers := make([]domain.Supplier, 0, len(s.suppliersByID))
	for _, sup := range s.suppliersByID {
		suppliers = append(suppliers, sup)
	}
	slices.SortFunc(suppliers, func(a, b domain.Supplier) int { return cmpString(a.Name, b.Name) })
	return suppliers, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	customer.CreditBalanceCents = 0
	s.customersByID[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customersByID))
	for _, c := range s.customersByID {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int { return cmpString(a.Name, b.Name) })
	return customers, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCustomer := customer
	return &copyCustomer, nil
}

func (s *Store) CreateCheckout(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.IdempotencyKey == "" {
		return nil, store.ErrInvalidInput
	}
	if existing, ok := s.salesByIdem[sale.IdempotencyKey]; ok {
		return cloneSale(existing), nil
	}
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	stock, ok := s.inventory[sale.WarehouseID]
	if !ok {
		return nil, fmt.Errorf("warehouse %s unavailable: %w", sale.WarehouseID, store.ErrNotFound)
	}

	var customer domain.Customer
	if sale.PaymentMethod == domain.PaymentCredit {
		if sale.CustomerID == "" {
			return nil, store.ErrInvalidInput
		}
		customer, ok = s.customersByID[sale.CustomerID]
		if !ok {
			return nil, store.ErrNotFound
		}
	}

	subtotal := int64(0)
	items := make([]domain.SaleItem, 0, len(sale.Items))
	for _, item := range sale.Items {
		if item.Qty <= 0 || item.UnitPriceCents < 0 {
			return nil, store.ErrInvalidInput
		}
		product, exists := s.products[item.ProductID]
		if !exists || !product.Active {
			return nil, fmt.Errorf("product %s unavailable: %w", item.ProductID, store.ErrNotFound)
		}
		if stock[item.ProductID]-item.Qty < 0 {
			return nil, store.ErrInsufficientStock
		}
		lineTotal := mulCents(item.UnitPriceCents, item.Qty)
		items = append(items, domain.SaleItem{
			ProductID:      product.ID,
			ProductName:    product.Name,
			Unit:           product.Unit,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     lineTotal,
		})
		subtotal += lineTotal
	}

	if sale.DiscountCents < 0 || sale.DiscountCents > subtotal {
		return nil, store.ErrInvalidInput
	}

	sale.Items = items
	sale.SubtotalCents = subtotal
	sale.TotalCents = subtotal - sale.DiscountCents
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	switch sale.PaymentMethod {
	case domain.PaymentCash:
		if sale.CashReceivedCents < sale.TotalCents {
			return nil, store.ErrInvalidInput
		}
		sale.ChangeCents = sale.CashReceivedCents - sale.TotalCents
	case domain.PaymentCard:
		sale.CashReceivedCents = 0
		sale.ChangeCents = 0
	case domain.PaymentCredit:
		sale.CashReceivedCents = 0
		sale.ChangeCents = 0
	default:
		return nil, store.ErrInvalidInput
	}

	for _, item := range sale.Items {
		stock[item.ProductID] -= item.Qty
	}
	if sale.PaymentMethod == domain.PaymentCredit {
		customer.CreditBalanceCents += sale.TotalCents
		s.customersByID[customer.ID] = customer
	}

	created := sale
	s.salesByID[created.ID] = &created
	s.salesByIdem[created.IdempotencyKey] = &created
	return cloneSale(&created), nil
}

func (s *Store) FindSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) FindSaleByIdempotency(_ context.Context, key string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByIdem[key]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) ListSales(_ context.Context, warehouseID string, from time.Time, to time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, 16)
	for _, sale := range s.salesByID {
		if sale.WarehouseID != warehouseID {
			continue
		}
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		sales = append(sales, *cloneSale(sale))
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return sales, nil
}

func (s *Store) ListCreditSales(_ context.Context, customerID string, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, 16)
	for _, sale := range s.salesByID {
		if sale.CustomerID != customerID || sale.PaymentMethod != domain.PaymentCredit {
			continue
		}
		sales = append(sales, *cloneSale(sale))
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int { return a.CreatedAt.Compare(b.CreatedAt) })
	if limit > 0 && len(sales) > limit {
		sales = sales[len(sales)-limit:]
	}
	return sales, nil
}

func (s *Store) RecordCreditPayment(_ context.Context, payment domain.CreditPayment) (*domain.CreditPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payment.CustomerID == "" || payment.AmountCents <= 0 {
		return nil, store.ErrInvalidInput
	}
	customer, exists := s.customersByID[payment.CustomerID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if payment.AmountCents > customer.CreditBalanceCents {
		return nil, store.ErrOverpayment
	}

	if payment.ID == "" {
		payment.ID = xid.New("pay")
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}

	customer.CreditBalanceCents -= payment.AmountCents
	s.customersByID[customer.ID] = customer
	s.creditPayments = append(s.creditPayments, payment)
	created := payment
	return &created, nil
}

func (s *Store) ListCreditPayments(_ context.Context, customerID string, limit int) ([]domain.CreditPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payments := make([]domain.CreditPayment, 0, 16)
	for _, payment := range s.creditPayments {
		if payment.CustomerID != customerID {
			continue
		}
		payments = append(payments, payment)
	}
	slices.SortFunc(payments, func(a, b domain.CreditPayment) int { return a.CreatedAt.Compare(b.CreatedAt) })
	if limit > 0 && len(payments) > limit {
		payments = payments[len(payments)-limit:]
	}
	return payments, nil
}

func (s *Store) CreatePurchase(_ context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(purchase.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if _, ok := s.warehousesByID[purchase.WarehouseID]; !ok {
		return nil, store.ErrNotFound
	}
	if purchase.SupplierID != "" {
		if _, ok := s.suppliersByID[purchase.SupplierID]; !ok {
			return nil, store.ErrNotFound
		}
	}

	var total int64
	items := make([]domain.PurchaseItem, 0, len(purchase.Items))
	for _, item := range purchase.Items {
		if item.Qty <= 0 || item.UnitCostCents < 0 {
			return nil, store.ErrInvalidInput
		}
		if _, exists := s.products[item.ProductID]; !exists {
			return nil, fmt.Errorf("product %s unavailable: %w", item.ProductID, store.ErrNotFound)
		}
		lineTotal := mulCents(item.UnitCostCents, item.Qty)
		items = append(items, domain.PurchaseItem{
			ProductID:     item.ProductID,
			Qty:           item.Qty,
			UnitCostCents: item.UnitCostCents,
			TotalCents:    lineTotal,
		})
		total += lineTotal
	}

	if purchase.ID == "" {
		purchase.ID = xid.New("po")
	}
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now().UTC()
	}
	purchase.Items = items
	purchase.TotalCents = total

	stock := s.inventory[purchase.WarehouseID]
	if stock == nil {
		stock = map[string]float64{}
		s.inventory[purchase.WarehouseID] = stock
	}
	for _, item := range purchase.Items {
		stock[item.ProductID] += item.Qty
	}

	s.purchasesByID[purchase.ID] = purchase
	created := purchase
	return &created, nil
}

func (s *Store) ListPurchases(_ context.Context, warehouseID string, limit int) ([]domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	purchases := make([]domain.Purchase, 0, len(s.purchasesByID))
	for _, purchase := range s.purchasesByID {
		if warehouseID != "" && purchase.WarehouseID != warehouseID {
			continue
		}
		purchases = append(purchases, purchase)
	}
	slices.SortFunc(purchases, func(a, b domain.Purchase) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if limit > 0 && len(purchases) > limit {
		purchases = purchases[:limit]
	}
	return purchases, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, len(s.auditLogs))
	for _, entry := range s.auditLogs {
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !entry.CreatedAt.Before(to) {
			continue
		}
		logs = append(logs, entry)
	}
	slices.SortFunc(logs, func(a, b domain.AuditLog) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrDuplicateKey
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int { return cmpString(a.Username, b.Username) })
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	if password == "" {
		return store.ErrInvalidInput
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneSale(sale *domain.Sale) *domain.Sale {
	clone := *sale
	clone.Items = make([]domain.SaleItem, len(sale.Items))
	copy(clone.Items, sale.Items)
	return &clone
}

func mulCents(unitPriceCents int64, qty float64) int64 {
	return int64(math.Round(float64(unitPriceCents) * qty))
}

func cmpString(a, b string) int {
	return strings.Compare(a, b)
}

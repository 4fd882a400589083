package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"gudangpos/internal/domain"
	"gudangpos/internal/store"
	"gudangpos/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := RunMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const productColumns = `id, sku, barcode, name, category, unit, cost_cents, price_cents,
	low_stock_threshold, COALESCE(supplier_id,''), active, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Barcode, &p.Name, &p.Category, &p.Unit,
		&p.CostCents, &p.PriceCents, &p.LowStockThreshold, &p.SupplierID,
		&p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY category, name`
	if !includeInactive {
		query = `SELECT ` + productColumns + ` FROM products WHERE active = true ORDER BY category, name`
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.SKU == "" || product.Name == "" || product.Category == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	now := time.Now().UTC()
	product.Active = true
	product.CreatedAt = now
	product.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, sku, barcode, name, category, unit, cost_cents, price_cents,
			low_stock_threshold, supplier_id, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, product.ID, product.SKU, product.Barcode, product.Name, product.Category, product.Unit,
		product.CostCents, product.PriceCents, product.LowStockThreshold,
		nullIfEmpty(product.SupplierID), product.Active, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateKey
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	return s.findProduct(ctx, "id", id)
}

func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	return s.findProduct(ctx, "sku", sku)
}

func (s *Store) findProduct(ctx context.Context, column string, value string) (*domain.Product, error) {
	if column != "id" && column != "sku" {
		return nil, fmt.Errorf("unsupported lookup column")
	}
	query := fmt.Sprintf(`SELECT `+productColumns+` FROM products WHERE %s = $1`, column)
	p, err := scanProduct(s.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	if len(ids) == 0 {
		return map[string]domain.Product{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Category == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidInput
	}

	product.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET barcode = $2, name = $3, category = $4, cost_cents = $5, price_cents = $6,
			low_stock_threshold = $7, supplier_id = $8, active = $9, updated_at = $10
		WHERE id = $1
	`, product.ID, product.Barcode, product.Name, product.Category, product.CostCents,
		product.PriceCents, product.LowStockThreshold, nullIfEmpty(product.SupplierID),
		product.Active, product.UpdatedAt)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) DeactivateProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET active = false, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) InsertProductBatch(ctx context.Context, warehouseID string, products []domain.Product, openingStock []float64) error {
	if len(products) == 0 || len(products) != len(openingStock) {
		return store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for i, product := range products {
		if product.SKU == "" || product.Name == "" || product.PriceCents < 1 {
			return fmt.Errorf("sku %q: %w", product.SKU, store.ErrInvalidInput)
		}
		if product.ID == "" {
			product.ID = xid.New("prod")
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO products (id, sku, barcode, name, category, unit, cost_cents, price_cents,
				low_stock_threshold, supplier_id, active, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,true,$11,$11)
		`, product.ID, product.SKU, product.Barcode, product.Name, product.Category, product.Unit,
			product.CostCents, product.PriceCents, product.LowStockThreshold,
			nullIfEmpty(product.SupplierID), now)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("sku %q: %w", product.SKU, store.ErrDuplicateKey)
			}
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO inventory_stocks (warehouse_id, product_id, qty, updated_at)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (warehouse_id, product_id)
			DO UPDATE SET qty = EXCLUDED.qty, updated_at = EXCLUDED.updated_at
		`, warehouseID, product.ID, openingStock[i], now)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) GetStockMap(ctx context.Context, warehouseID string, productIDs []string) (map[string]float64, error) {
	result := make(map[string]float64, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, qty
		FROM inventory_stocks
		WHERE warehouse_id = $1 AND product_id = ANY($2)
	`, warehouseID, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var productID string
		var qty float64
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		result[productID] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) SetStock(ctx context.Context, warehouseID string, productID string, qty float64) error {
	if qty < 0 {
		return store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_stocks (warehouse_id, product_id, qty, updated_at)
		VALUES ($1,$2,$3,now())
		ON CONFLICT (warehouse_id, product_id)
		DO UPDATE SET qty = EXCLUDED.qty, updated_at = now()
	`, warehouseID, productID, qty)
	return err
}

func (s *Store) CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) (*domain.Warehouse, error) {
	if warehouse.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if warehouse.ID == "" {
		warehouse.ID = xid.New("wh")
	}
	if warehouse.CreatedAt.IsZero() {
		warehouse.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO warehouses (id, name, address, created_at)
		VALUES ($1,$2,$3,$4)
	`, warehouse.ID, warehouse.Name, warehouse.Address, warehouse.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateKey
		}
		return nil, err
	}

	created := warehouse
	return &created, nil
}

func (s *Store) ListWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, address, created_at
		FROM warehouses
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	warehouses := make([]domain.Warehouse, 0, 8)
	for rows.Next() {
		var w domain.Warehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.Address, &w.CreatedAt); err != nil {
			return nil, err
		}
		warehouses = append(warehouses, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return warehouses, nil
}

func (s *Store) GetWarehouseByID(ctx context.Context, id string) (*domain.Warehouse, error) {
	var w domain.Warehouse
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, address, created_at
		FROM warehouses
		WHERE id = $1
	`, id).Scan(&w.ID, &w.Name, &w.Address, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if supplier.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, phone, created_at)
		VALUES ($1,$2,$3,$4)
	`, supplier.ID, supplier.Name, supplier.Phone, supplier.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := supplier
	return &created, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(phone,''), created_at
		FROM suppliers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, 16)
	for rows.Next() {
		var sup domain.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Phone, &sup.CreatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, credit_balance_cents, created_at)
		VALUES ($1,$2,$3,0,$4)
	`, customer.ID, customer.Name, customer.Phone, customer.CreatedAt)
	if err != nil {
		return nil, err
	}

	customer.CreditBalanceCents = 0
	created := customer
	return &created, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(phone,''), credit_balance_cents, created_at
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 32)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.CreditBalanceCents, &c.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(phone,''), credit_balance_cents, created_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Phone, &c.CreditBalanceCents, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CreateCheckout runs the whole sale as one serializable transaction: stock
// rows are locked, decremented and checked against zero, sale and items are
// inserted, and a credit sale bumps the customer balance. An idempotency key
// collision returns the previously stored sale.
func (s *Store) CreateCheckout(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.IdempotencyKey == "" {
		return nil, store.ErrInvalidInput
	}
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	ids := uniqueProductIDs(sale.Items)
	if len(ids) == 0 {
		return nil, store.ErrInvalidInput
	}

	productRows, err := pgTx.QueryContext(ctx, `
		SELECT id, name, unit
		FROM products
		WHERE active = true AND id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	productMap := make(map[string]domain.Product, len(ids))
	for productRows.Next() {
		var p domain.Product
		if err := productRows.Scan(&p.ID, &p.Name, &p.Unit); err != nil {
			_ = productRows.Close()
			return nil, err
		}
		productMap[p.ID] = p
	}
	if err := productRows.Err(); err != nil {
		_ = productRows.Close()
		return nil, err
	}
	_ = productRows.Close()

	stockRows, err := pgTx.QueryContext(ctx, `
		SELECT product_id, qty
		FROM inventory_stocks
		WHERE warehouse_id = $1 AND product_id = ANY($2)
		FOR UPDATE
	`, sale.WarehouseID, ids)
	if err != nil {
		return nil, err
	}
	stockMap := make(map[string]float64, len(ids))
	for stockRows.Next() {
		var productID string
		var qty float64
		if err := stockRows.Scan(&productID, &qty); err != nil {
			_ = stockRows.Close()
			return nil, err
		}
		stockMap[productID] = qty
	}
	if err := stockRows.Err(); err != nil {
		_ = stockRows.Close()
		return nil, err
	}
	_ = stockRows.Close()

	subtotal := int64(0)
	items := make([]domain.SaleItem, 0, len(sale.Items))
	for _, item := range sale.Items {
		if item.Qty <= 0 || item.UnitPriceCents < 0 {
			return nil, store.ErrInvalidInput
		}
		product, exists := productMap[item.ProductID]
		if !exists {
			return nil, fmt.Errorf("product %s unavailable: %w", item.ProductID, store.ErrNotFound)
		}
		stockQty, exists := stockMap[item.ProductID]
		if !exists || stockQty < item.Qty {
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
		if sale.CustomerID == "" {
			return nil, store.ErrInvalidInput
		}
		sale.CashReceivedCents = 0
		sale.ChangeCents = 0
	default:
		return nil, store.ErrInvalidInput
	}

	if sale.PaymentMethod == domain.PaymentCredit {
		var balance int64
		err := pgTx.QueryRowContext(ctx, `
			SELECT credit_balance_cents
			FROM customers
			WHERE id = $1
			FOR UPDATE
		`, sale.CustomerID).Scan(&balance)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, err
		}
		if _, err := pgTx.ExecContext(ctx, `
			UPDATE customers SET credit_balance_cents = credit_balance_cents + $2 WHERE id = $1
		`, sale.CustomerID, sale.TotalCents); err != nil {
			return nil, err
		}
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO sales (
			id, receipt_number, warehouse_id, customer_id, cashier_username,
			idempotency_key, payment_method, subtotal_cents, discount_cents,
			total_cents, cash_received_cents, change_cents, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, sale.ID, sale.ReceiptNumber, sale.WarehouseID, nullIfEmpty(sale.CustomerID),
		sale.CashierUsername, sale.IdempotencyKey, sale.PaymentMethod, sale.SubtotalCents,
		sale.DiscountCents, sale.TotalCents, sale.CashReceivedCents, sale.ChangeCents, sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			existing, lookupErr := s.FindSaleByIdempotency(ctx, sale.IdempotencyKey)
			if lookupErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}

	for _, item := range sale.Items {
		if _, err := pgTx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, product_name, unit, qty, unit_price_cents, total_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, sale.ID, item.ProductID, item.ProductName, item.Unit, item.Qty, item.UnitPriceCents, item.TotalCents); err != nil {
			return nil, err
		}
		if _, err := pgTx.ExecContext(ctx, `
			UPDATE inventory_stocks
			SET qty = qty - $3, updated_at = now()
			WHERE warehouse_id = $1 AND product_id = $2
		`, sale.WarehouseID, item.ProductID, item.Qty); err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	created := sale
	return &created, nil
}

func (s *Store) FindSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	return s.findSale(ctx, "id", id)
}

func (s *Store) FindSaleByIdempotency(ctx context.Context, key string) (*domain.Sale, error) {
	return s.findSale(ctx, "idempotency_key", key)
}

const saleColumns = `id, receipt_number, warehouse_id, COALESCE(customer_id,''), cashier_username,
	idempotency_key, payment_method, subtotal_cents, discount_cents, total_cents,
	cash_received_cents, change_cents, created_at`

func scanSale(row interface{ Scan(...any) error }) (domain.Sale, error) {
	var sale domain.Sale
	err := row.Scan(&sale.ID, &sale.ReceiptNumber, &sale.WarehouseID, &sale.CustomerID,
		&sale.CashierUsername, &sale.IdempotencyKey, &sale.PaymentMethod, &sale.SubtotalCents,
		&sale.DiscountCents, &sale.TotalCents, &sale.CashReceivedCents, &sale.ChangeCents,
		&sale.CreatedAt)
	return sale, err
}

func (s *Store) findSale(ctx context.Context, column string, value string) (*domain.Sale, error) {
	if column != "id" && column != "idempotency_key" {
		return nil, fmt.Errorf("unsupported lookup column")
	}

	query := fmt.Sprintf(`SELECT `+saleColumns+` FROM sales WHERE %s = $1`, column)
	sale, err := scanSale(s.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	items, err := s.loadSaleItems(ctx, []string{sale.ID})
	if err != nil {
		return nil, err
	}
	sale.Items = items[sale.ID]
	return &sale, nil
}

func (s *Store) loadSaleItems(ctx context.Context, saleIDs []string) (map[string][]domain.SaleItem, error) {
	result := make(map[string][]domain.SaleItem, len(saleIDs))
	if len(saleIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, product_id, product_name, unit, qty, unit_price_cents, total_cents
		FROM sale_items
		WHERE sale_id = ANY($1)
	`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var saleID string
		var item domain.SaleItem
		if err := rows.Scan(&saleID, &item.ProductID, &item.ProductName, &item.Unit,
			&item.Qty, &item.UnitPriceCents, &item.TotalCents); err != nil {
			return nil, err
		}
		result[saleID] = append(result[saleID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) ListSales(ctx context.Context, warehouseID string, from time.Time, to time.Time) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE warehouse_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at
	`, warehouseID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	saleIDs := make([]string, 0, 64)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
		saleIDs = append(saleIDs, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemsBySale, err := s.loadSaleItems(ctx, saleIDs)
	if err != nil {
		return nil, err
	}
	for i := range sales {
		sales[i].Items = itemsBySale[sales[i].ID]
	}
	return sales, nil
}

func (s *Store) ListCreditSales(ctx context.Context, customerID string, limit int) ([]domain.Sale, error) {
	query := `
		SELECT ` + saleColumns + `
		FROM sales
		WHERE customer_id = $1 AND payment_method = 'credit'
		ORDER BY created_at`
	args := []any{customerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 32)
	saleIDs := make([]string, 0, 32)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
		saleIDs = append(saleIDs, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemsBySale, err := s.loadSaleItems(ctx, saleIDs)
	if err != nil {
		return nil, err
	}
	for i := range sales {
		sales[i].Items = itemsBySale[sales[i].ID]
	}
	return sales, nil
}

// RecordCreditPayment locks the customer row, verifies the amount fits the
// outstanding balance and writes both sides atomically.
func (s *Store) RecordCreditPayment(ctx context.Context, payment domain.CreditPayment) (*domain.CreditPayment, error) {
	if payment.CustomerID == "" || payment.AmountCents <= 0 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var balance int64
	err = tx.QueryRowContext(ctx, `
		SELECT credit_balance_cents
		FROM customers
		WHERE id = $1
		FOR UPDATE
	`, payment.CustomerID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if payment.AmountCents > balance {
		return nil, store.ErrOverpayment
	}

	if payment.ID == "" {
		payment.ID = xid.New("pay")
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE customers SET credit_balance_cents = credit_balance_cents - $2 WHERE id = $1
	`, payment.CustomerID, payment.AmountCents); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO credit_payments (id, customer_id, amount_cents, method, notes, received_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, payment.ID, payment.CustomerID, payment.AmountCents, payment.Method,
		payment.Notes, payment.ReceivedBy, payment.CreatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := payment
	return &created, nil
}

func (s *Store) ListCreditPayments(ctx context.Context, customerID string, limit int) ([]domain.CreditPayment, error) {
	query := `
		SELECT id, customer_id, amount_cents, method, COALESCE(notes,''), COALESCE(received_by,''), created_at
		FROM credit_payments
		WHERE customer_id = $1
		ORDER BY created_at`
	args := []any{customerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.CreditPayment, 0, 32)
	for rows.Next() {
		var p domain.CreditPayment
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.AmountCents, &p.Method, &p.Notes, &p.ReceivedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Store) CreatePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	if len(purchase.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if purchase.ID == "" {
		purchase.ID = xid.New("po")
	}
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var total int64
	items := make([]domain.PurchaseItem, 0, len(purchase.Items))
	for _, item := range purchase.Items {
		if item.Qty <= 0 || item.UnitCostCents < 0 {
			return nil, store.ErrInvalidInput
		}
		var exists bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)
		`, item.ProductID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
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
	purchase.Items = items
	purchase.TotalCents = total

	_, err = tx.ExecContext(ctx, `
		INSERT INTO purchases (id, warehouse_id, supplier_id, reference, received_by, total_cents, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, purchase.ID, purchase.WarehouseID, nullIfEmpty(purchase.SupplierID),
		purchase.Reference, purchase.ReceivedBy, purchase.TotalCents, purchase.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, item := range purchase.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO purchase_items (purchase_id, product_id, qty, unit_cost_cents, total_cents)
			VALUES ($1,$2,$3,$4,$5)
		`, purchase.ID, item.ProductID, item.Qty, item.UnitCostCents, item.TotalCents); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO inventory_stocks (warehouse_id, product_id, qty, updated_at)
			VALUES ($1,$2,$3,now())
			ON CONFLICT (warehouse_id, product_id)
			DO UPDATE SET qty = inventory_stocks.qty + EXCLUDED.qty, updated_at = now()
		`, purchase.WarehouseID, item.ProductID, item.Qty); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := purchase
	return &created, nil
}

func (s *Store) ListPurchases(ctx context.Context, warehouseID string, limit int) ([]domain.Purchase, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, warehouse_id, COALESCE(supplier_id,''), COALESCE(reference,''),
			COALESCE(received_by,''), total_cents, created_at
		FROM purchases
		WHERE warehouse_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, warehouseID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]domain.Purchase, 0, limit)
	purchaseIDs := make([]string, 0, limit)
	for rows.Next() {
		var p domain.Purchase
		if err := rows.Scan(&p.ID, &p.WarehouseID, &p.SupplierID, &p.Reference,
			&p.ReceivedBy, &p.TotalCents, &p.CreatedAt); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
		purchaseIDs = append(purchaseIDs, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(purchaseIDs) > 0 {
		itemRows, err := s.db.QueryContext(ctx, `
			SELECT purchase_id, product_id, qty, unit_cost_cents, total_cents
			FROM purchase_items
			WHERE purchase_id = ANY($1)
		`, purchaseIDs)
		if err != nil {
			return nil, err
		}
		defer itemRows.Close()

		itemsByPurchase := make(map[string][]domain.PurchaseItem, len(purchaseIDs))
		for itemRows.Next() {
			var purchaseID string
			var item domain.PurchaseItem
			if err := itemRows.Scan(&purchaseID, &item.ProductID, &item.Qty, &item.UnitCostCents, &item.TotalCents); err != nil {
				return nil, err
			}
			itemsByPurchase[purchaseID] = append(itemsByPurchase[purchaseID], item)
		}
		if err := itemRows.Err(); err != nil {
			return nil, err
		}
		for i := range purchases {
			purchases[i].Items = itemsByPurchase[purchases[i].ID]
		}
	}
	return purchases, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor, action, entity, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, entry.ID, entry.Actor, entry.Action, entry.Entity, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor, action, entity, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.Actor, &entry.Action, &entry.Entity, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, full_name, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, user.Username, user.Password, user.FullName, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, COALESCE(full_name,''), role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.FullName, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	if password == "" {
		return store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func uniqueProductIDs(items []domain.SaleItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func mulCents(unitPriceCents int64, qty float64) int64 {
	return int64(math.Round(float64(unitPriceCents) * qty))
}

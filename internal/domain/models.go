package domain

import "time"

const (
	UnitPiece  = "UN"
	UnitWeight = "KG"

	PaymentCash   = "cash"
	PaymentCard   = "card"
	PaymentCredit = "credit"

	RoleAdmin   = "admin"
	RoleCashier = "cashier"

	DiscountNone       = "none"
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Product is the catalog entry. Stock is tracked per warehouse, not here.
type Product struct {
	ID                string    `json:"id"`
	SKU               string    `json:"sku"`
	Barcode           string    `json:"barcode,omitempty"`
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	Unit              string    `json:"unit"`
	CostCents         int64     `json:"cost_cents"`
	PriceCents        int64     `json:"price_cents"`
	LowStockThreshold float64   `json:"low_stock_threshold"`
	SupplierID        string    `json:"supplier_id,omitempty"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Warehouse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Customer struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Phone              string    `json:"phone,omitempty"`
	CreditBalanceCents int64     `json:"credit_balance_cents"`
	CreatedAt          time.Time `json:"created_at"`
}

// StockLevel is one product's on-hand quantity in one warehouse.
type StockLevel struct {
	WarehouseID string    `json:"warehouse_id"`
	ProductID   string    `json:"product_id"`
	Qty         float64   `json:"qty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Sale struct {
	ID                string     `json:"id"`
	ReceiptNumber     string     `json:"receipt_number"`
	WarehouseID       string     `json:"warehouse_id"`
	CustomerID        string     `json:"customer_id,omitempty"`
	CashierUsername   string     `json:"cashier_username"`
	IdempotencyKey    string     `json:"idempotency_key"`
	PaymentMethod     string     `json:"payment_method"`
	SubtotalCents     int64      `json:"subtotal_cents"`
	DiscountCents     int64      `json:"discount_cents"`
	TotalCents        int64      `json:"total_cents"`
	CashReceivedCents int64      `json:"cash_received_cents,omitempty"`
	ChangeCents       int64      `json:"change_cents,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	Items             []SaleItem `json:"items"`
}

// SaleItem snapshots the product name, unit and price at sale time.
type SaleItem struct {
	ProductID      string  `json:"product_id"`
	ProductName    string  `json:"product_name"`
	Unit           string  `json:"unit"`
	Qty            float64 `json:"qty"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	TotalCents     int64   `json:"total_cents"`
}

type CreditPayment struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	AmountCents int64     `json:"amount_cents"`
	Method      string    `json:"method"`
	Notes       string    `json:"notes,omitempty"`
	ReceivedBy  string    `json:"received_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type Purchase struct {
	ID          string         `json:"id"`
	WarehouseID string         `json:"warehouse_id"`
	SupplierID  string         `json:"supplier_id"`
	Reference   string         `json:"reference,omitempty"`
	ReceivedBy  string         `json:"received_by"`
	TotalCents  int64          `json:"total_cents"`
	CreatedAt   time.Time      `json:"created_at"`
	Items       []PurchaseItem `json:"items"`
}

type PurchaseItem struct {
	ProductID     string  `json:"product_id"`
	Qty           float64 `json:"qty"`
	UnitCostCents int64   `json:"unit_cost_cents"`
	TotalCents    int64   `json:"total_cents"`
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	FullName  string    `json:"full_name,omitempty"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditLog struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CatalogSnapshot is the cached read model served to POS terminals.
type CatalogSnapshot struct {
	WarehouseID string            `json:"warehouse_id"`
	Products    []CatalogProduct  `json:"products"`
	Customers   []CatalogCustomer `json:"customers"`
	FetchedAt   time.Time         `json:"fetched_at"`
}

type CatalogProduct struct {
	ID         string  `json:"id"`
	SKU        string  `json:"sku"`
	Barcode    string  `json:"barcode,omitempty"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Unit       string  `json:"unit"`
	PriceCents int64   `json:"price_cents"`
	StockQty   float64 `json:"stock_qty"`
	LowStock   bool    `json:"low_stock"`
}

type CatalogCustomer struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Phone              string `json:"phone,omitempty"`
	CreditBalanceCents int64  `json:"credit_balance_cents"`
}

type CheckoutItemRequest struct {
	ProductID      string  `json:"product_id"`
	Qty            float64 `json:"qty"`
	UnitPriceCents int64   `json:"unit_price_cents"`
}

type CheckoutRequest struct {
	WarehouseID       string                `json:"warehouse_id"`
	CustomerID        string                `json:"customer_id,omitempty"`
	IdempotencyKey    string                `json:"idempotency_key"`
	PaymentMethod     string                `json:"payment_method"`
	DiscountCents     int64                 `json:"discount_cents"`
	CashReceivedCents int64                 `json:"cash_received_cents,omitempty"`
	Items             []CheckoutItemRequest `json:"items"`
}

type CheckoutResponse struct {
	SaleID        string    `json:"sale_id"`
	ReceiptNumber string    `json:"receipt_number"`
	SubtotalCents int64     `json:"subtotal_cents"`
	DiscountCents int64     `json:"discount_cents"`
	TotalCents    int64     `json:"total_cents"`
	ChangeCents   int64     `json:"change_cents,omitempty"`
	Duplicate     bool      `json:"duplicate"`
	CreatedAt     time.Time `json:"created_at"`
}

// Actor identifies the authenticated user carried in the request context.
type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// ReceiptDocument is a rendered sale receipt in one output format.
type ReceiptDocument struct {
	SaleID        string `json:"sale_id"`
	ReceiptNumber string `json:"receipt_number"`
	Format        string `json:"format"`
	Content       string `json:"content"`
	FileName      string `json:"file_name,omitempty"`
}

const (
	ReceiptFormatText   = "text"
	ReceiptFormatHTML   = "html"
	ReceiptFormatEscpos = "escpos"
)

type CreateProductRequest struct {
	SKU               string  `json:"sku"`
	Barcode           string  `json:"barcode,omitempty"`
	Name              string  `json:"name"`
	Category          string  `json:"category"`
	Unit              string  `json:"unit"`
	CostCents         int64   `json:"cost_cents"`
	PriceCents        int64   `json:"price_cents"`
	LowStockThreshold float64 `json:"low_stock_threshold"`
	SupplierID        string  `json:"supplier_id,omitempty"`
	WarehouseID       string  `json:"warehouse_id,omitempty"`
	InitialStock      float64 `json:"initial_stock,omitempty"`
}

type UpdateProductRequest struct {
	Barcode           *string  `json:"barcode,omitempty"`
	Name              *string  `json:"name,omitempty"`
	Category          *string  `json:"category,omitempty"`
	CostCents         *int64   `json:"cost_cents,omitempty"`
	PriceCents        *int64   `json:"price_cents,omitempty"`
	LowStockThreshold *float64 `json:"low_stock_threshold,omitempty"`
	SupplierID        *string  `json:"supplier_id,omitempty"`
	Active            *bool    `json:"active,omitempty"`
}

type CreateCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

type CreateWarehouseRequest struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

type CreateSupplierRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

type RecordCreditPaymentRequest struct {
	CustomerID  string `json:"customer_id"`
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
	Notes       string `json:"notes,omitempty"`
}

type PurchaseItemRequest struct {
	ProductID     string  `json:"product_id"`
	Qty           float64 `json:"qty"`
	UnitCostCents int64   `json:"unit_cost_cents"`
}

type ReceivePurchaseRequest struct {
	WarehouseID string                `json:"warehouse_id"`
	SupplierID  string                `json:"supplier_id"`
	Reference   string                `json:"reference,omitempty"`
	Items       []PurchaseItemRequest `json:"items"`
}

type CreateCashierRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ZReport is the end-of-day summary for one warehouse.
type ZReport struct {
	WarehouseID         string        `json:"warehouse_id"`
	Date                string        `json:"date"`
	SaleCount           int           `json:"sale_count"`
	TotalRevenueCents   int64         `json:"total_revenue_cents"`
	TotalDiscountsCents int64         `json:"total_discounts_cents"`
	CashTotalCents      int64         `json:"cash_total_cents"`
	CardTotalCents      int64         `json:"card_total_cents"`
	CreditTotalCents    int64         `json:"credit_total_cents"`
	Products            []ZReportLine `json:"products"`
	GeneratedAt         time.Time     `json:"generated_at"`
}

type ZReportLine struct {
	ProductID    string  `json:"product_id"`
	ProductName  string  `json:"product_name"`
	Unit         string  `json:"unit"`
	Qty          float64 `json:"qty"`
	RevenueCents int64   `json:"revenue_cents"`
}

// PickupTicket lists quantities only, no money. Weight lines feed the payload
// total; piece-counted lines are listed but excluded from it.
type PickupTicket struct {
	ReceiptNumber string       `json:"receipt_number"`
	WarehouseID   string       `json:"warehouse_id"`
	CustomerName  string       `json:"customer_name,omitempty"`
	Lines         []PickupLine `json:"lines"`
	TotalPayload  float64      `json:"total_payload"`
	PayloadUnit   string       `json:"payload_unit"`
	CreatedAt     time.Time    `json:"created_at"`
}

type PickupLine struct {
	ProductName string  `json:"product_name"`
	Qty         float64 `json:"qty"`
	Unit        string  `json:"unit"`
}

type CustomerStatement struct {
	CustomerID          string           `json:"customer_id"`
	CustomerName        string           `json:"customer_name"`
	Entries             []StatementEntry `json:"entries"`
	ClosingBalanceCents int64            `json:"closing_balance_cents"`
	GeneratedAt         time.Time        `json:"generated_at"`
}

type StatementEntry struct {
	Date         time.Time `json:"date"`
	Kind         string    `json:"kind"`
	Reference    string    `json:"reference"`
	AmountCents  int64     `json:"amount_cents"`
	BalanceCents int64     `json:"balance_cents"`
}

const (
	StatementEntrySale    = "sale"
	StatementEntryPayment = "payment"
)

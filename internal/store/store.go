package store

import (
	"context"
	"errors"
	"time"

	"gudangpos/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrOverpayment       = errors.New("payment exceeds outstanding balance")
)

// Repository is the persistence boundary. Implementations return fully
// normalized structs so callers never see storage-shaped rows.
type Repository interface {
	ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeactivateProduct(ctx context.Context, id string) error
	// InsertProductBatch writes the batch and its opening stock in one unit.
	// Any failure rolls back the whole batch.
	InsertProductBatch(ctx context.Context, warehouseID string, products []domain.Product, openingStock []float64) error

	GetStockMap(ctx context.Context, warehouseID string, productIDs []string) (map[string]float64, error)
	SetStock(ctx context.Context, warehouseID string, productID string, qty float64) error

	CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) (*domain.Warehouse, error)
	ListWarehouses(ctx context.Context) ([]domain.Warehouse, error)
	GetWarehouseByID(ctx context.Context, id string) (*domain.Warehouse, error)

	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)

	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error)

	// CreateCheckout persists the sale, its items, the stock decrements and,
	// for credit sales, the customer balance increment in one atomic unit.
	CreateCheckout(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	FindSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	FindSaleByIdempotency(ctx context.Context, key string) (*domain.Sale, error)
	ListSales(ctx context.Context, warehouseID string, from time.Time, to time.Time) ([]domain.Sale, error)
	ListCreditSales(ctx context.Context, customerID string, limit int) ([]domain.Sale, error)

	// RecordCreditPayment appends the payment row and decrements the customer
	// balance atomically. Amounts above the balance return ErrOverpayment.
	RecordCreditPayment(ctx context.Context, payment domain.CreditPayment) (*domain.CreditPayment, error)
	ListCreditPayments(ctx context.Context, customerID string, limit int) ([]domain.CreditPayment, error)

	// CreatePurchase persists the purchase, its items and the stock increments
	// in one atomic unit.
	CreatePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error)
	ListPurchases(ctx context.Context, warehouseID string, limit int) ([]domain.Purchase, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gudangpos/internal/bulkimport"
	"gudangpos/internal/domain"
	"gudangpos/internal/service"
	"gudangpos/internal/store"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
	csrfSecret    []byte
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		// Fall back to a deterministic secret if crypto/rand fails (should not happen in practice).
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (expressed as Unix time truncated to the hour). The token is hex-encoded.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *API) generateCSRFToken() string {
	now := time.Now().UTC()
	bucket := now.Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken checks whether the provided token matches the current or
// previous hour bucket, giving a 2-hour validity window.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	now := time.Now().UTC()
	currentBucket := now.Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	expected1 := a.csrfTokenForHour(currentBucket)
	expected2 := a.csrfTokenForHour(prevBucket)

	return hmac.Equal([]byte(token), []byte(expected1)) ||
		hmac.Equal([]byte(token), []byte(expected2))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)

	mux.HandleFunc("/api/v1/catalog", a.requireAuth(a.handleCatalog, domain.RoleCashier, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts, domain.RoleCashier, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/products/import", a.requireAuth(a.handleProductImport, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/products/", a.requireAuth(a.handleProductActions, domain.RoleAdmin))

	mux.HandleFunc("/api/v1/checkout", a.requireAuth(a.handleCheckout, domain.RoleCashier, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/checkout/idempotency/", a.requireAuth(a.handleCheckoutLookup, domain.RoleCashier, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/sales/", a.requireAuth(a.handleSaleActions, domain.RoleCashier, domain.RoleAdmin))

	mux.HandleFunc("/api/v1/customers", a.requireAuth(a.handleCustomers, domain.RoleCashier, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/customers/", a.requireAuth(a.handleCustomerActions, domain.RoleCashier, domain.RoleAdmin))

	mux.HandleFunc("/api/v1/reports/z", a.requireAuth(a.handleZReport, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/warehouses", a.requireAuth(a.handleWarehouses, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/suppliers", a.requireAuth(a.handleSuppliers, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/purchases", a.requireAuth(a.handlePurchases, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/users/cashiers", a.requireAuth(a.handleCashiers, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/audit-logs", a.requireAuth(a.handleAuditLogs, domain.RoleAdmin))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleCSRFToken returns a stateless CSRF token valid for the current hour bucket.
// Clients must include this token in the X-CSRF-Token header for all mutating requests.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

// csrfExemptPaths lists paths that are exempt from CSRF validation. Login is
// excluded because it is called without a prior CSRF token fetch.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
}

// checkCSRF enforces CSRF token validation for state-changing methods
// (POST/PUT/PATCH/DELETE). Returns false and writes an error response if
// validation fails.
func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	method := r.Method
	if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch && method != http.MethodDelete {
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.validateCSRFToken(token) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

func (a *API) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	warehouseID := strings.TrimSpace(r.URL.Query().Get("warehouse_id"))
	snapshot, err := a.service.CatalogSnapshot(r.Context(), warehouseID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		includeInactive := strings.EqualFold(r.URL.Query().Get("include_inactive"), "true")
		products, err := a.service.ListProducts(r.Context(), includeInactive)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products})
	case http.MethodPost:
		actor, ok := service.ActorFromContext(r.Context())
		if !ok || actor.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		var req domain.CreateProductRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		product, err := a.service.CreateProduct(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"product": product})
	default:
		writeMethodNotAllowed(w)
	}
}

// handleProductImport accepts a multipart upload with a "file" field holding a
// CSV or XLSX product sheet and an optional "warehouse_id" form value.
func (a *API) handleProductImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid multipart payload"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("file field required"))
		return
	}
	defer func() { _ = file.Close() }()

	warehouseID := strings.TrimSpace(r.FormValue("warehouse_id"))

	var rows []bulkimport.Row
	var parseErrors []bulkimport.RowError
	if strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
		rows, parseErrors, err = bulkimport.ParseXLSX(file)
	} else {
		rows, parseErrors, err = bulkimport.ParseCSV(file)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	report, err := a.service.ImportProducts(r.Context(), warehouseID, rows, parseErrors)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	importRowsTotal.WithLabelValues("imported").Add(float64(report.Imported))
	importRowsTotal.WithLabelValues("rejected").Add(float64(len(report.Errors)))
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	prefix := "/api/v1/products/"
	sku := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if sku == "" {
		writeError(w, http.StatusBadRequest, errors.New("product sku required"))
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req domain.UpdateProductRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		updated, err := a.service.UpdateProduct(r.Context(), sku, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": updated})
	case http.MethodDelete:
		if err := a.service.DeactivateProduct(r.Context(), sku); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.Checkout(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInsufficientStock):
			checkoutsTotal.WithLabelValues("insufficient_stock").Inc()
		default:
			checkoutsTotal.WithLabelValues("rejected").Inc()
		}
		writeServiceError(w, err)
		return
	}

	if resp.Duplicate {
		checkoutsTotal.WithLabelValues("duplicate").Inc()
	} else {
		checkoutsTotal.WithLabelValues("ok").Inc()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCheckoutLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	prefix := "/api/v1/checkout/idempotency/"
	idempotencyKey := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, prefix))
	if idempotencyKey == "" {
		writeError(w, http.StatusBadRequest, errors.New("idempotency key required"))
		return
	}

	resp, err := a.service.FindSaleByIdempotency(r.Context(), idempotencyKey)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSaleActions serves /api/v1/sales/{id}, /api/v1/sales/{id}/receipt and
// /api/v1/sales/{id}/pickup-ticket.
func (a *API) handleSaleActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	prefix := "/api/v1/sales/"
	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("sale id required"))
		return
	}

	switch {
	case strings.HasSuffix(tail, "/receipt"):
		saleID := strings.Trim(strings.TrimSuffix(tail, "/receipt"), "/")
		format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
		doc, err := a.service.SaleReceipt(r.Context(), saleID, format)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		switch doc.Format {
		case domain.ReceiptFormatText:
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(doc.Content))
		case domain.ReceiptFormatHTML:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(doc.Content))
		default:
			writeJSON(w, http.StatusOK, doc)
		}
	case strings.HasSuffix(tail, "/pickup-ticket"):
		saleID := strings.Trim(strings.TrimSuffix(tail, "/pickup-ticket"), "/")
		ticket, err := a.service.PickupTicket(r.Context(), saleID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if strings.EqualFold(r.URL.Query().Get("format"), "text") {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(a.service.RenderPickupTicketText(ticket)))
			return
		}
		writeJSON(w, http.StatusOK, ticket)
	default:
		sale, err := a.service.GetSale(r.Context(), tail)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
	}
}

func (a *API) handleZReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	warehouseID := strings.TrimSpace(r.URL.Query().Get("warehouse_id"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))

	report, err := a.service.ZReport(r.Context(), warehouseID, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"z-report-%s.csv\"", report.Date))
		_, _ = w.Write([]byte(zReportToCSV(report)))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleCustomers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		customers, err := a.service.ListCustomers(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
	case http.MethodPost:
		var req domain.CreateCustomerRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		customer, err := a.service.CreateCustomer(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"customer": customer})
	default:
		writeMethodNotAllowed(w)
	}
}

// handleCustomerActions serves /api/v1/customers/{id}/payments and
// /api/v1/customers/{id}/statement.
func (a *API) handleCustomerActions(w http.ResponseWriter, r *http.Request) {
	prefix := "/api/v1/customers/"
	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("customer id required"))
		return
	}

	switch {
	case strings.HasSuffix(tail, "/payments"):
		customerID := strings.Trim(strings.TrimSuffix(tail, "/payments"), "/")
		switch r.Method {
		case http.MethodGet:
			limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 200)
			payments, err := a.service.ListCreditPayments(r.Context(), customerID, limit)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
		case http.MethodPost:
			var req domain.RecordCreditPaymentRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			req.CustomerID = customerID
			payment, err := a.service.RecordCreditPayment(r.Context(), req)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"payment": payment})
		default:
			writeMethodNotAllowed(w)
		}
	case strings.HasSuffix(tail, "/statement"):
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		customerID := strings.Trim(strings.TrimSuffix(tail, "/statement"), "/")
		statement, err := a.service.CustomerStatement(r.Context(), customerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statement)
	default:
		writeError(w, http.StatusBadRequest, errors.New("unknown customer action"))
	}
}

func (a *API) handleWarehouses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		warehouses, err := a.service.ListWarehouses(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"warehouses": warehouses})
	case http.MethodPost:
		var req domain.CreateWarehouseRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		warehouse, err := a.service.CreateWarehouse(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"warehouse": warehouse})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSuppliers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		suppliers, err := a.service.ListSuppliers(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"suppliers": suppliers})
	case http.MethodPost:
		var req domain.CreateSupplierRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		supplier, err := a.service.CreateSupplier(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"supplier": supplier})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handlePurchases(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		warehouseID := strings.TrimSpace(r.URL.Query().Get("warehouse_id"))
		limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 200)
		purchases, err := a.service.ListPurchases(r.Context(), warehouseID, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"purchases": purchases})
	case http.MethodPost:
		var req domain.ReceivePurchaseRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		purchase, err := a.service.ReceivePurchase(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"purchase": purchase})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCashiers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cashiers := a.auth.ListCashiers()
		writeJSON(w, http.StatusOK, map[string]any{"cashiers": cashiers})
	case http.MethodPost:
		var req domain.CreateCashierRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		cashier, err := a.auth.CreateCashier(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{"cashier": cashier})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)
	var from, to time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("date must be formatted YYYY-MM-DD"))
			return
		}
		from = day
		to = day.Add(24 * time.Hour)
	}

	logs, err := a.service.ListAuditLogs(r.Context(), from, to, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			contentType := strings.ToLower(r.Header.Get("Content-Type"))
			switch {
			case strings.Contains(contentType, "multipart/form-data"):
				r.Body = http.MaxBytesReader(w, r.Body, 16<<20)
			case strings.Contains(contentType, "application/json"):
				r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if !a.checkCSRF(w, r) {
			return
		}

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		route := metricRoute(r.URL.Path)

		startedAt := time.Now()
		next.ServeHTTP(recorder, r)
		elapsed := time.Since(startedAt)

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(recorder.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, recorder.status, elapsed)
	})
}

func zReportToCSV(report domain.ZReport) string {
	lines := []string{
		"section,key,value",
		fmt.Sprintf("summary,date,%s", report.Date),
		fmt.Sprintf("summary,warehouse_id,%s", report.WarehouseID),
		fmt.Sprintf("summary,sale_count,%d", report.SaleCount),
		fmt.Sprintf("summary,total_revenue_cents,%d", report.TotalRevenueCents),
		fmt.Sprintf("summary,total_discounts_cents,%d", report.TotalDiscountsCents),
		fmt.Sprintf("summary,cash_total_cents,%d", report.CashTotalCents),
		fmt.Sprintf("summary,card_total_cents,%d", report.CardTotalCents),
		fmt.Sprintf("summary,credit_total_cents,%d", report.CreditTotalCents),
	}
	for _, product := range report.Products {
		lines = append(lines, fmt.Sprintf("product,%s_qty,%v", product.ProductID, product.Qty))
		lines = append(lines, fmt.Sprintf("product,%s_revenue_cents,%d", product.ProductID, product.RevenueCents))
	}
	return strings.Join(lines, "\n") + "\n"
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrOverpayment),
		errors.Is(err, store.ErrDuplicateKey):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusUnprocessableEntity, err)
	}
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// For 5xx responses, return a generic message to avoid leaking internal
	// implementation details (stack traces, SQL errors, file paths, etc.).
	// 4xx responses are user-facing so we return the original error message.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

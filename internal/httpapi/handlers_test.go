package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gudangpos/internal/domain"
	"gudangpos/internal/service"
	"gudangpos/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, nil, time.Second, "main-warehouse", "GudangPOS Test")
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "*")
}

func loginAs(t *testing.T, api *API, username, password string) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("login as %s failed, status %d (body: %s)", username, res.Code, res.Body.String())
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response failed: %v", err)
	}
	if strings.TrimSpace(payload.Token) == "" {
		t.Fatalf("expected token in login response")
	}
	return payload.Token
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleProducts_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleProducts_WithValidToken(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "cashier", "cashier123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["products"] == nil {
		t.Fatalf("expected products key in response, got %v", body)
	}
}

func TestHandleCheckout_FullFlow(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	payload, _ := json.Marshal(domain.CheckoutRequest{
		WarehouseID:       "main-warehouse",
		IdempotencyKey:    "idem-http-flow",
		PaymentMethod:     domain.PaymentCash,
		CashReceivedCents: 2000,
		Items: []domain.CheckoutItemRequest{
			{ProductID: "prod-cement", Qty: 10, UnitPriceCents: 150},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", csrf)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var resp domain.CheckoutResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode checkout response: %v", err)
	}
	if resp.TotalCents != 1500 || resp.ChangeCents != 500 {
		t.Fatalf("unexpected totals: total=%d change=%d", resp.TotalCents, resp.ChangeCents)
	}

	receiptReq := httptest.NewRequest(http.MethodGet, "/api/v1/sales/"+resp.SaleID+"/receipt?format=text", nil)
	receiptReq.Header.Set("Authorization", "Bearer "+token)
	receiptRec := httptest.NewRecorder()

	handler.ServeHTTP(receiptRec, receiptReq)

	if receiptRec.Code != http.StatusOK {
		t.Fatalf("receipt expected 200, got %d (body: %s)", receiptRec.Code, receiptRec.Body.String())
	}
	if got := receiptRec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected text/plain receipt, got %q", got)
	}
	if !strings.Contains(receiptRec.Body.String(), "Cement") {
		t.Fatalf("receipt missing product name: %s", receiptRec.Body.String())
	}
}

func TestHandleCheckout_InsufficientStockConflict(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	payload, _ := json.Marshal(domain.CheckoutRequest{
		WarehouseID:    "main-warehouse",
		IdempotencyKey: "idem-http-too-much",
		PaymentMethod:  domain.PaymentCard,
		Items: []domain.CheckoutItemRequest{
			{ProductID: "prod-sand", Qty: 999999, UnitPriceCents: 35},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", csrf)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleProductImport_CSV(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "products.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fmt.Fprintln(part, "sku,name,category,unit,price,cost,opening_stock")
	fmt.Fprintln(part, "SKU-IMP-HTTP-01,Roof Tile,roofing,UN,12.50,8.00,200")
	fmt.Fprintln(part, "SKU-IMP-HTTP-02,River Sand,aggregates,KG,0.35,0.20,1000")
	if err := mw.WriteField("warehouse_id", "main-warehouse"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", csrf)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var report struct {
		Total    int `json:"total"`
		Imported int `json:"imported"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Total != 2 || report.Imported != 2 {
		t.Fatalf("expected 2/2 imported, got %d/%d", report.Imported, report.Total)
	}
}

func TestHandleProductImport_ForbiddenForCashier(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import", strings.NewReader(""))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", csrf)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandleZReport_ForbiddenForCashier(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "cashier", "cashier123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/z", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandleZReport_CSVExport(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "admin", "admin123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/z?format=csv", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/csv") {
		t.Fatalf("expected text/csv, got %q", got)
	}
	if !strings.Contains(rec.Body.String(), "summary,total_revenue_cents,") {
		t.Fatalf("csv missing revenue row: %s", rec.Body.String())
	}
}

func TestHandleCustomerStatement(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	checkoutPayload, _ := json.Marshal(domain.CheckoutRequest{
		WarehouseID:    "main-warehouse",
		CustomerID:     "cust-bangun",
		IdempotencyKey: "idem-http-credit",
		PaymentMethod:  domain.PaymentCredit,
		Items: []domain.CheckoutItemRequest{
			{ProductID: "prod-rebar", Qty: 2, UnitPriceCents: 6900},
		},
	})
	checkoutReq := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(checkoutPayload))
	checkoutReq.Header.Set("Content-Type", "application/json")
	checkoutReq.Header.Set("Authorization", "Bearer "+token)
	checkoutReq.Header.Set("X-CSRF-Token", csrf)
	checkoutRec := httptest.NewRecorder()
	handler.ServeHTTP(checkoutRec, checkoutReq)
	if checkoutRec.Code != http.StatusOK {
		t.Fatalf("credit checkout failed: %d %s", checkoutRec.Code, checkoutRec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/cust-bangun/statement", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var statement domain.CustomerStatement
	if err := json.NewDecoder(rec.Body).Decode(&statement); err != nil {
		t.Fatalf("decode statement: %v", err)
	}
	if statement.ClosingBalanceCents != 13800 {
		t.Fatalf("expected closing balance 13800, got %d", statement.ClosingBalanceCents)
	}
}

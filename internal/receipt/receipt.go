// Package receipt renders persisted sales into customer-facing documents.
// Every renderer is a pure projection: it reads domain structs and never
// touches storage.
package receipt

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"math"
	"sort"
	"strings"
	"time"

	"gudangpos/internal/domain"
)

// payloadConversionKg is the weight above which pickup tickets switch from
// kilograms to tons.
const payloadConversionKg = 1000.0

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func formatQty(qty float64) string {
	if qty == math.Trunc(qty) {
		return fmt.Sprintf("%d", int64(qty))
	}
	return fmt.Sprintf("%.3g", qty)
}

// RenderText builds the plain-text sale receipt for thermal printers and
// previews.
func RenderText(sale domain.Sale, shopName string) string {
	lines := []string{
		shopName,
		"========================",
		"Receipt: " + sale.ReceiptNumber,
		"Warehouse: " + sale.WarehouseID,
		"Cashier: " + sale.CashierUsername,
		"Date: " + sale.CreatedAt.Format("2006-01-02 15:04:05"),
		"------------------------",
	}
	for _, item := range sale.Items {
		lines = append(lines, fmt.Sprintf("%s x%s %s", item.ProductName, formatQty(item.Qty), item.Unit))
		lines = append(lines, fmt.Sprintf("  @%s = %s", formatCents(item.UnitPriceCents), formatCents(item.TotalCents)))
	}
	lines = append(lines,
		"------------------------",
		"Subtotal : "+formatCents(sale.SubtotalCents),
		"Discount : "+formatCents(sale.DiscountCents),
		"Total    : "+formatCents(sale.TotalCents),
		"Payment  : "+sale.PaymentMethod,
	)
	if sale.PaymentMethod == domain.PaymentCash {
		lines = append(lines,
			"Cash     : "+formatCents(sale.CashReceivedCents),
			"Change   : "+formatCents(sale.ChangeCents),
		)
	}
	lines = append(lines,
		"========================",
		"Thank you",
		"",
	)
	return strings.Join(lines, "\n")
}

// RenderEscposBase64 wraps the text receipt in ESC/POS init and cut commands
// for the local printer bridge.
func RenderEscposBase64(sale domain.Sale, shopName string) string {
	escpos := []byte{0x1b, 0x40}
	escpos = append(escpos, []byte(RenderText(sale, shopName))...)
	escpos = append(escpos, '\n')
	escpos = append(escpos, []byte{0x1d, 0x56, 0x41, 0x10}...)
	return base64.StdEncoding.EncodeToString(escpos)
}

var saleReceiptHTMLTmpl = template.Must(template.New("sale-receipt").
	Funcs(template.FuncMap{"money": formatCents}).
	Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Receipt {{.Sale.ReceiptNumber}}</title>
<style>
body { font-family: monospace; max-width: 420px; margin: 16px auto; }
table { width: 100%; border-collapse: collapse; }
td, th { padding: 2px 4px; text-align: left; }
td.amount, th.amount { text-align: right; }
.totals td { border-top: 1px solid #000; }
</style>
</head>
<body>
<h2>{{.ShopName}}</h2>
<p>
Receipt {{.Sale.ReceiptNumber}}<br>
Warehouse {{.Sale.WarehouseID}} / cashier {{.Sale.CashierUsername}}<br>
{{.Date}}
</p>
<table>
<tr><th>Item</th><th class="amount">Qty</th><th class="amount">Price</th><th class="amount">Total</th></tr>
{{range .Sale.Items}}
<tr><td>{{.ProductName}}</td><td class="amount">{{printf "%g" .Qty}} {{.Unit}}</td><td class="amount">{{money .UnitPriceCents}}</td><td class="amount">{{money .TotalCents}}</td></tr>
{{end}}
<tr class="totals"><td colspan="3">Subtotal</td><td class="amount">{{money .Sale.SubtotalCents}}</td></tr>
<tr><td colspan="3">Discount</td><td class="amount">{{money .Sale.DiscountCents}}</td></tr>
<tr><td colspan="3"><strong>Total</strong></td><td class="amount"><strong>{{money .Sale.TotalCents}}</strong></td></tr>
<tr><td colspan="3">Payment</td><td class="amount">{{.Sale.PaymentMethod}}</td></tr>
</table>
</body>
</html>`))

type saleReceiptTmplData struct {
	ShopName string
	Sale     domain.Sale
	Date     string
}

// RenderHTML builds the printable sale receipt page.
func RenderHTML(sale domain.Sale, shopName string) (string, error) {
	var buf bytes.Buffer
	data := saleReceiptTmplData{
		ShopName: shopName,
		Sale:     sale,
		Date:     sale.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if err := saleReceiptHTMLTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildZReport aggregates one day's sales for a warehouse. Callers pass the
// sales already filtered to the report window.
func BuildZReport(warehouseID string, day time.Time, sales []domain.Sale) domain.ZReport {
	report := domain.ZReport{
		WarehouseID: warehouseID,
		Date:        day.Format("2006-01-02"),
		GeneratedAt: time.Now().UTC(),
	}

	productAgg := make(map[string]*domain.ZReportLine)
	for _, sale := range sales {
		report.SaleCount++
		report.TotalRevenueCents += sale.TotalCents
		report.TotalDiscountsCents += sale.DiscountCents
		switch sale.PaymentMethod {
		case domain.PaymentCash:
			report.CashTotalCents += sale.TotalCents
		case domain.PaymentCard:
			report.CardTotalCents += sale.TotalCents
		case domain.PaymentCredit:
			report.CreditTotalCents += sale.TotalCents
		}
		for _, item := range sale.Items {
			line, ok := productAgg[item.ProductID]
			if !ok {
				line = &domain.ZReportLine{
					ProductID:   item.ProductID,
					ProductName: item.ProductName,
					Unit:        item.Unit,
				}
				productAgg[item.ProductID] = line
			}
			line.Qty += item.Qty
			line.RevenueCents += item.TotalCents
		}
	}

	report.Products = make([]domain.ZReportLine, 0, len(productAgg))
	for _, line := range productAgg {
		report.Products = append(report.Products, *line)
	}
	sort.Slice(report.Products, func(i, j int) bool {
		if report.Products[i].RevenueCents != report.Products[j].RevenueCents {
			return report.Products[i].RevenueCents > report.Products[j].RevenueCents
		}
		return report.Products[i].ProductName < report.Products[j].ProductName
	})
	return report
}

// BuildPickupTicket projects a sale into the warehouse loading document.
// Weight lines sum into the payload; piece-counted lines are listed but not
// weighed. Above 1000 kg the payload switches to tons.
func BuildPickupTicket(sale domain.Sale, customerName string) domain.PickupTicket {
	ticket := domain.PickupTicket{
		ReceiptNumber: sale.ReceiptNumber,
		WarehouseID:   sale.WarehouseID,
		CustomerName:  customerName,
		CreatedAt:     sale.CreatedAt,
		PayloadUnit:   "kg",
	}

	var payloadKg float64
	for _, item := range sale.Items {
		ticket.Lines = append(ticket.Lines, domain.PickupLine{
			ProductName: item.ProductName,
			Qty:         item.Qty,
			Unit:        item.Unit,
		})
		if item.Unit == domain.UnitWeight {
			payloadKg += item.Qty
		}
	}

	if payloadKg > payloadConversionKg {
		ticket.TotalPayload = math.Round(payloadKg/payloadConversionKg*1000) / 1000
		ticket.PayloadUnit = "ton"
	} else {
		ticket.TotalPayload = payloadKg
	}
	return ticket
}

// RenderPickupText builds the printable pickup ticket. No prices appear.
func RenderPickupText(ticket domain.PickupTicket, shopName string) string {
	lines := []string{
		shopName + " - PICKUP TICKET",
		"========================",
		"Receipt: " + ticket.ReceiptNumber,
		"Warehouse: " + ticket.WarehouseID,
	}
	if ticket.CustomerName != "" {
		lines = append(lines, "Customer: "+ticket.CustomerName)
	}
	lines = append(lines,
		"Date: "+ticket.CreatedAt.Format("2006-01-02 15:04:05"),
		"------------------------",
	)
	for _, line := range ticket.Lines {
		lines = append(lines, fmt.Sprintf("%s  %s %s", line.ProductName, formatQty(line.Qty), line.Unit))
	}
	lines = append(lines,
		"------------------------",
		fmt.Sprintf("Total payload: %s %s", formatQty(ticket.TotalPayload), ticket.PayloadUnit),
		"",
	)
	return strings.Join(lines, "\n")
}

// BuildCustomerStatement merges credit sales and repayments into one
// chronological ledger with a running balance.
func BuildCustomerStatement(customer domain.Customer, creditSales []domain.Sale, payments []domain.CreditPayment) domain.CustomerStatement {
	entries := make([]domain.StatementEntry, 0, len(creditSales)+len(payments))
	for _, sale := range creditSales {
		entries = append(entries, domain.StatementEntry{
			Date:        sale.CreatedAt,
			Kind:        domain.StatementEntrySale,
			Reference:   sale.ReceiptNumber,
			AmountCents: sale.TotalCents,
		})
	}
	for _, payment := range payments {
		entries = append(entries, domain.StatementEntry{
			Date:        payment.CreatedAt,
			Kind:        domain.StatementEntryPayment,
			Reference:   payment.ID,
			AmountCents: -payment.AmountCents,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})

	var balance int64
	for i := range entries {
		balance += entries[i].AmountCents
		entries[i].BalanceCents = balance
	}

	return domain.CustomerStatement{
		CustomerID:          customer.ID,
		CustomerName:        customer.Name,
		Entries:             entries,
		ClosingBalanceCents: balance,
		GeneratedAt:         time.Now().UTC(),
	}
}

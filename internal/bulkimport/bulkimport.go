// Package bulkimport parses product import files into normalized rows.
// Writes stay in the store layer; this package only reads, converts and
// validates.
package bulkimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"gudangpos/internal/domain"
)

// BatchSize is the fixed chunk size for batched inserts. A failed batch
// reports this many row errors with one shared reason.
const BatchSize = 50

var expectedColumns = []string{"sku", "name", "category", "unit", "price", "cost", "opening_stock"}

var (
	ErrMissingHeader = errors.New("missing or invalid header row")
)

// Row is one parsed data row. Line is the 1-based row number in the source
// file including the header, so the first data row is line 2.
type Row struct {
	Line              int
	SKU               string
	Barcode           string
	Name              string
	Category          string
	Unit              string
	PriceCents        int64
	CostCents         int64
	OpeningStock      float64
	LowStockThreshold float64
}

type RowError struct {
	Line   int    `json:"line"`
	SKU    string `json:"sku,omitempty"`
	Reason string `json:"reason"`
}

type Report struct {
	Total    int        `json:"total"`
	Imported int        `json:"imported"`
	Errors   []RowError `json:"errors"`
}

// ParseCSV reads the import file. Malformed rows become RowErrors; only a
// broken header or unreadable stream fails the whole parse.
func ParseCSV(r io.Reader) ([]Row, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	return parseRecords(records)
}

// ParseXLSX reads the first sheet of an Excel workbook.
func ParseXLSX(r io.Reader) ([]Row, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, ErrMissingHeader
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	return parseRecords(records)
}

func parseRecords(records [][]string) ([]Row, []RowError, error) {
	if len(records) == 0 {
		return nil, nil, ErrMissingHeader
	}

	columnIndex, err := mapHeader(records[0])
	if err != nil {
		return nil, nil, err
	}

	var rows []Row
	var rowErrors []RowError
	for i, record := range records[1:] {
		line := i + 2
		if isBlankRecord(record) {
			continue
		}
		row, err := parseRow(line, record, columnIndex)
		if err != nil {
			rowErrors = append(rowErrors, RowError{Line: line, SKU: field(record, columnIndex["sku"]), Reason: err.Error()})
			continue
		}
		rows = append(rows, row)
	}
	return rows, rowErrors, nil
}

func mapHeader(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range expectedColumns {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: column %q not found", ErrMissingHeader, required)
		}
	}
	return index, nil
}

func parseRow(line int, record []string, columnIndex map[string]int) (Row, error) {
	row := Row{
		Line:     line,
		SKU:      strings.ToUpper(field(record, columnIndex["sku"])),
		Barcode:  field(record, optionalColumn(columnIndex, "barcode")),
		Name:     field(record, columnIndex["name"]),
		Category: strings.ToLower(field(record, columnIndex["category"])),
		Unit:     strings.ToUpper(field(record, columnIndex["unit"])),
	}

	var err error
	if row.PriceCents, err = parseMoney(field(record, columnIndex["price"])); err != nil {
		return Row{}, fmt.Errorf("price: %w", err)
	}
	if row.CostCents, err = parseMoney(field(record, columnIndex["cost"])); err != nil {
		return Row{}, fmt.Errorf("cost: %w", err)
	}
	if row.OpeningStock, err = parseQty(field(record, columnIndex["opening_stock"])); err != nil {
		return Row{}, fmt.Errorf("opening_stock: %w", err)
	}
	if idx := optionalColumn(columnIndex, "low_stock_threshold"); idx >= 0 && field(record, idx) != "" {
		if row.LowStockThreshold, err = parseQty(field(record, idx)); err != nil {
			return Row{}, fmt.Errorf("low_stock_threshold: %w", err)
		}
	}
	return row, nil
}

// Validate applies the catalog rules a row must satisfy before it may join a
// write batch.
func Validate(row Row) error {
	if row.SKU == "" {
		return errors.New("sku is required")
	}
	if row.Name == "" {
		return errors.New("name is required")
	}
	if row.Category == "" {
		return errors.New("category is required")
	}
	if row.Unit != domain.UnitPiece && row.Unit != domain.UnitWeight {
		return fmt.Errorf("unit must be %s or %s", domain.UnitPiece, domain.UnitWeight)
	}
	if row.PriceCents < 1 {
		return errors.New("price must be positive")
	}
	if row.CostCents < 0 {
		return errors.New("cost must not be negative")
	}
	if row.OpeningStock < 0 {
		return errors.New("opening_stock must not be negative")
	}
	return nil
}

// Product converts the row into the catalog shape.
func (r Row) Product() domain.Product {
	return domain.Product{
		SKU:               r.SKU,
		Barcode:           r.Barcode,
		Name:              r.Name,
		Category:          r.Category,
		Unit:              r.Unit,
		CostCents:         r.CostCents,
		PriceCents:        r.PriceCents,
		LowStockThreshold: r.LowStockThreshold,
		Active:            true,
	}
}

// Batches splits rows into fixed-size chunks, preserving order.
func Batches(rows []Row, size int) [][]Row {
	if size < 1 {
		size = BatchSize
	}
	var batches [][]Row
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		batches = append(batches, rows[start:end])
	}
	return batches
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func optionalColumn(columnIndex map[string]int, name string) int {
	if idx, ok := columnIndex[name]; ok {
		return idx
	}
	return -1
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseMoney(raw string) (int64, error) {
	if raw == "" {
		return 0, errors.New("value is required")
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New("not a number")
	}
	return int64(math.Round(val * 100)), nil
}

func parseQty(raw string) (float64, error) {
	if raw == "" {
		return 0, errors.New("value is required")
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New("not a number")
	}
	return val, nil
}

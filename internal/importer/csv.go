// Package importer reads inventory spreadsheets exported as CSV and writes
// physical count sheets.
package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/northchrome/opsledger/internal/ledger"
	"github.com/northchrome/opsledger/internal/models"
)

// ErrEmptyFile is returned when a file has no data rows.
var ErrEmptyFile = errors.New("archivo vacío")

type column int

const (
	colSKU column = iota
	colName
	colCategory
	colStock
	colMinStock
	colUnit
	colLocation
	colPrice
)

// headers maps lower-cased header names to columns.
var headers = map[string]column{
	"sku":          colSKU,
	"código":       colSKU,
	"nombre":       colName,
	"name":         colName,
	"categoría":    colCategory,
	"categoria":    colCategory,
	"category":     colCategory,
	"stock":        colStock,
	"stock mínimo": colMinStock,
	"stock minimo": colMinStock,
	"min stock":    colMinStock,
	"min_stock":    colMinStock,
	"unidad":       colUnit,
	"unit":         colUnit,
	"ubicación":    colLocation,
	"ubicacion":    colLocation,
	"location":     colLocation,
	"precio":       colPrice,
	"price":        colPrice,
}

// Loader reads inventory rows from CSV.
type Loader struct{}

// NewLoader creates a new CSV loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadInventoryFile opens filename and reads its rows.
func (l *Loader) LoadInventoryFile(filename string) ([]ledger.BulkRow, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory file %s: %w", filename, err)
	}
	defer file.Close()

	return l.LoadInventory(file)
}

// LoadInventory reads a header row followed by data rows. Headers are matched
// without regard to case or surrounding space, and unknown columns are ignored.
// Comma and semicolon separated files are both accepted. A cell that cannot be
// parsed marks its row with an error rather than failing the whole file.
func (l *Loader) LoadInventory(r io.Reader) ([]ledger.BulkRow, error) {
	br := bufio.NewReader(r)
	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory CSV: %w", err)
	}
	index, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var rows []ledger.BulkRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read inventory CSV: %w", err)
		}
		if blank(record) {
			continue
		}
		row := parseRow(record, index)
		row.Line, _ = reader.FieldPos(0)
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}

// sniffDelimiter peeks at the header line and picks ';' when it has more
// semicolons than commas.
func sniffDelimiter(br *bufio.Reader) rune {
	line, _ := br.Peek(br.Size())
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

func mapHeader(header []string) (map[column]int, error) {
	index := make(map[column]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if col, ok := headers[name]; ok {
			if _, dup := index[col]; !dup {
				index[col] = i
			}
		}
	}
	if _, ok := index[colSKU]; !ok {
		return nil, fmt.Errorf("inventory CSV header has no SKU column: %v", header)
	}
	return index, nil
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseRow(record []string, index map[column]int) ledger.BulkRow {
	cell := func(c column) (string, bool) {
		i, ok := index[c]
		if !ok || i >= len(record) {
			return "", false
		}
		v := strings.TrimSpace(record[i])
		return v, v != ""
	}
	text := func(c column) *string {
		if v, ok := cell(c); ok {
			return &v
		}
		return nil
	}

	sku, _ := cell(colSKU)
	row := ledger.BulkRow{
		SKU:      sku,
		Name:     text(colName),
		Category: text(colCategory),
		Unit:     text(colUnit),
		Location: text(colLocation),
	}

	var errs []error
	number := func(c column, label string) *float64 {
		v, ok := cell(c)
		if !ok {
			return nil
		}
		f, err := strconv.ParseFloat(normalizeNumber(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			errs = append(errs, fmt.Errorf("%s %q no es un número", label, v))
			return nil
		}
		return &f
	}
	row.Stock = number(colStock, "stock")
	row.MinStock = number(colMinStock, "stock mínimo")
	if v, ok := cell(colPrice); ok {
		d, err := decimal.NewFromString(normalizeNumber(strings.TrimPrefix(v, "$")))
		if err != nil {
			errs = append(errs, fmt.Errorf("precio %q no es un número", v))
		} else {
			row.Price = &d
		}
	}
	row.Err = errors.Join(errs...)
	return row
}

// normalizeNumber reads a comma as the decimal separator, dropping points used
// as thousands separators in values like "1.234,5".
func normalizeNumber(v string) string {
	v = strings.TrimSpace(v)
	if strings.Contains(v, ",") {
		v = strings.ReplaceAll(v, ".", "")
		v = strings.ReplaceAll(v, ",", ".")
	}
	return v
}

// WriteCountSheet writes the physical count sheet: every item with its system
// stock and a blank column for the counted quantity, sorted by location then SKU.
func WriteCountSheet(w io.Writer, items []*models.InventoryItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Ubicación", "SKU", "Nombre del Item", "Categoría", "Unidad", "Stock Sistema", "CONTEO FÍSICO"}); err != nil {
		return fmt.Errorf("failed to write count sheet header: %w", err)
	}

	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b *models.InventoryItem) int {
		if c := strings.Compare(a.Location, b.Location); c != 0 {
			return c
		}
		return strings.Compare(a.SKU, b.SKU)
	})

	for _, it := range sorted {
		record := []string{
			it.Location,
			it.SKU,
			it.Name,
			it.Category,
			it.Unit,
			strconv.FormatFloat(it.Stock, 'f', -1, 64),
			"",
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write count sheet row %s: %w", it.SKU, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

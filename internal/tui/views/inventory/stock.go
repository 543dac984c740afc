// Package inventory provides TUI views for warehouse stock.
package inventory

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/northchrome/opsledger/internal/models"
	"github.com/northchrome/opsledger/internal/tui/components"
	"github.com/northchrome/opsledger/internal/util"
)

// Source supplies the catalog and its stock movements.
type Source interface {
	Inventory() []models.InventoryItem
	SupplyDocuments() []*models.SupplyDocument
	Consumptions() []*models.ConsumptionRecord
}

// movementLimit caps the movements listed in the item detail.
const movementLimit = 10

// Movement is one receipt or dispatch line touching an item.
type Movement struct {
	Date      time.Time
	Document  string
	Reference string
	Quantity  float64 // negative for dispatches
	UnitPrice string
}

// StockView displays the inventory catalog.
type StockView struct {
	source       Source
	table        *components.Table
	styles       components.Styles
	items        []models.InventoryItem
	criticalOnly bool
	dateFormat   string
}

// NewStockView creates a new stock view.
func NewStockView(source Source, styles components.Styles, dateFormat string) *StockView {
	columns := []components.Column{
		{Title: "SKU", Width: 11, Priority: 10},
		{Title: "Nombre", Width: 20, Weight: 1, Priority: 9},
		{Title: "Categoría", Width: 11, Priority: 3},
		{Title: "Stock", Width: 8, Align: lipgloss.Right, Priority: 8},
		{Title: "Mínimo", Width: 7, Align: lipgloss.Right, Priority: 5},
		{Title: "Unidad", Width: 6, Priority: 6},
		{Title: "Ubicación", Width: 9, Priority: 2},
		{Title: "Precio", Width: 10, Align: lipgloss.Right, Priority: 4},
		{Title: "Estado", Width: 7, Priority: 7},
	}

	table := components.NewTable(columns)
	table.ApplyStyles(styles)
	table.SetVisibleRows(15)
	table.Focus(true)

	if dateFormat == "" {
		dateFormat = "2006-01-02"
	}

	return &StockView{
		source:     source,
		table:      table,
		styles:     styles,
		dateFormat: dateFormat,
	}
}

// ToggleCritical switches between every item and critical items only.
func (v *StockView) ToggleCritical() {
	v.criticalOnly = !v.criticalOnly
	v.table.GoToTop()
	v.Load()
}

// CriticalOnly reports whether only critical items are listed.
func (v *StockView) CriticalOnly() bool {
	return v.criticalOnly
}

// Load refreshes the catalog from the source.
func (v *StockView) Load() {
	v.items = nil
	if v.source != nil {
		for _, it := range v.source.Inventory() {
			if !v.criticalOnly || it.IsCritical() {
				v.items = append(v.items, it)
			}
		}
	}

	rows := make([][]string, len(v.items))
	for i, it := range v.items {
		state := "OK"
		if it.IsCritical() {
			state = "CRÍTICO"
		}
		rows[i] = []string{
			it.SKU,
			it.Name,
			it.Category,
			formatQty(it.Stock),
			formatQty(it.MinStock),
			it.Unit,
			it.Location,
			util.FormatMoney(it.Price),
			state,
		}
	}
	v.table.SetRows(rows)
}

// MoveUp moves the selection up.
func (v *StockView) MoveUp() {
	v.table.MoveUp()
}

// MoveDown moves the selection down.
func (v *StockView) MoveDown() {
	v.table.MoveDown()
}

// Selected returns the highlighted item, or nil when the list is empty.
func (v *StockView) Selected() *models.InventoryItem {
	idx := v.table.Selected()
	if idx >= 0 && idx < len(v.items) {
		it := v.items[idx]
		return &it
	}
	return nil
}

// Count returns the number of listed items.
func (v *StockView) Count() int {
	return len(v.items)
}

// Movements returns the most recent receipts and dispatches of itemID,
// newest first.
func (v *StockView) Movements(itemID string) []Movement {
	if v.source == nil {
		return nil
	}

	var out []Movement
	for _, doc := range v.source.SupplyDocuments() {
		for _, line := range doc.Items {
			if line.ItemID == itemID {
				out = append(out, Movement{
					Date:      doc.Date,
					Document:  doc.ID,
					Reference: doc.Provider,
					Quantity:  line.Quantity,
					UnitPrice: util.FormatMoney(line.UnitPrice),
				})
			}
		}
	}
	for _, rec := range v.source.Consumptions() {
		for _, line := range rec.Items {
			if line.ItemID == itemID {
				out = append(out, Movement{
					Date:      rec.Date,
					Document:  rec.ID,
					Reference: rec.WorkOrderID,
					Quantity:  -line.Quantity,
					UnitPrice: util.FormatMoney(line.UnitPrice),
				})
			}
		}
	}

	slices.SortStableFunc(out, func(a, b Movement) int {
		return b.Date.Compare(a.Date)
	})
	if len(out) > movementLimit {
		out = out[:movementLimit]
	}
	return out
}

// Render renders the stock list.
func (v *StockView) Render(width, height int) string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("=== INVENTARIO ==="))
	b.WriteString("\n\n")

	if v.criticalOnly {
		b.WriteString(v.styles.Warning.Render(fmt.Sprintf("Solo stock crítico (%d)", len(v.items))))
	} else {
		b.WriteString(v.styles.Label.Render("Items: "))
		b.WriteString(v.styles.Value.Render(strconv.Itoa(len(v.items))))
	}
	b.WriteString("\n\n")

	if height > 12 {
		v.table.SetVisibleRows(height - 10)
	}

	if v.table.Empty() {
		b.WriteString(v.styles.Label.Render("No hay items en inventario."))
		b.WriteString("\n")
	} else {
		b.WriteString(v.table.RenderResponsive(width))
	}

	b.WriteString("\n")
	if width > 0 && width < 80 {
		b.WriteString(v.styles.Help.Render("Enter:Ver  c:Crít  e:Ent  d:Desp"))
	} else {
		b.WriteString(v.styles.Help.Render("Arriba/Abajo:Elegir  Enter:Detalle  c:Solo críticos  e:Recepción  d:Despacho"))
	}

	return b.String()
}

// RenderDetail renders one item with its recent movements.
func (v *StockView) RenderDetail(item *models.InventoryItem) string {
	label := v.styles.Label.Width(20)
	value := v.styles.Value

	if item == nil {
		return label.Render("Ningún item seleccionado")
	}

	var b strings.Builder
	line := func(name, text string) {
		b.WriteString(label.Render(name+":") + " " + value.Render(text) + "\n")
	}

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("=== %s · %s ===", item.SKU, item.Name)))
	b.WriteString("\n\n")

	b.WriteString(v.styles.Section.Render("ITEM"))
	b.WriteString("\n")
	line("Categoría", item.Category)
	line("Ubicación", item.Location)
	line("Precio", util.FormatMoney(item.Price))
	b.WriteString("\n")

	b.WriteString(v.styles.Section.Render("STOCK"))
	b.WriteString("\n")
	stock := formatQty(item.Stock) + " " + item.Unit
	if item.IsCritical() {
		b.WriteString(label.Render("Stock:") + " " + v.styles.Error.Render(stock+" CRÍTICO") + "\n")
	} else {
		line("Stock", stock)
	}
	line("Mínimo", formatQty(item.MinStock)+" "+item.Unit)
	line("Valorizado", util.FormatMoney(item.StockValue()))
	b.WriteString("\n")

	b.WriteString(v.styles.Section.Render("MOVIMIENTOS"))
	b.WriteString("\n")
	moves := v.Movements(item.ID)
	if len(moves) == 0 {
		b.WriteString(v.styles.Muted.Render("Sin movimientos registrados") + "\n")
	}
	for _, m := range moves {
		qty := "+" + formatQty(m.Quantity)
		style := v.styles.Success
		if m.Quantity < 0 {
			qty = formatQty(m.Quantity)
			style = v.styles.Warning
		}
		b.WriteString(fmt.Sprintf("%s  %-14s %-16s %s @ %s\n",
			m.Date.Format(v.dateFormat), m.Document, m.Reference, style.Render(qty), m.UnitPrice))
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("Esc:Volver  e:Recepción  d:Despacho"))

	return b.String()
}

func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

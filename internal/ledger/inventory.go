package ledger

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/northchrome/opsledger/internal/models"
	"github.com/northchrome/opsledger/internal/util"
)

const entityItem = "inventory item"

// ============================================================================
// Inputs
// ============================================================================

// UpdateInventoryItemInput holds the item fields to change. Nil fields are left as is.
type UpdateInventoryItemInput struct {
	SKU      *string
	Name     *string
	Category *string
	Stock    *float64
	MinStock *float64
	Unit     *string
	Location *string
	Price    *decimal.Decimal
}

// ReceiveLine is one line of an inbound supply document.
type ReceiveLine struct {
	ItemID    string
	Quantity  float64
	UnitPrice decimal.Decimal
}

// ReceiveInput describes an inbound supply document.
type ReceiveInput struct {
	// ID defaults to the next RCP-<year>-<seq> number.
	ID                string
	Type              models.SupplyDocType
	Provider          string
	ExternalReference string
	// Date defaults to now.
	Date       time.Time
	Lines      []ReceiveLine
	ReceivedBy string
}

// ConsumeLine is one line of a stock dispatch.
type ConsumeLine struct {
	ItemID   string
	Quantity float64
	// UnitPrice defaults to the item's current price.
	UnitPrice *decimal.Decimal
}

// ConsumeInput describes stock dispatched to a work order.
type ConsumeInput struct {
	// ID defaults to the next DSP-<year>-<seq> number.
	ID          string
	WorkOrderID string
	// TechnicianID defaults to the order's technician.
	TechnicianID string
	// Date defaults to now.
	Date         time.Time
	Lines        []ConsumeLine
	DispatchedBy string
}

// BulkRow is one imported inventory row. Nil fields were absent from the source.
type BulkRow struct {
	SKU      string
	Name     *string
	Category *string
	Stock    *float64
	MinStock *float64
	Unit     *string
	Location *string
	Price    *decimal.Decimal
	// Line is the row's line in the source file; zero numbers rows by
	// position, counting a header as row 1.
	Line int
	// Err carries a parse failure for the row; the row is reported and skipped.
	Err error
}

// BulkResult summarizes a bulk upsert.
type BulkResult struct {
	Created int
	Updated int
	Errors  []string
}

// ============================================================================
// Catalog
// ============================================================================

// AddInventoryItem registers a stocked item. SKUs are unique ignoring case.
func (l *Ledger) AddInventoryItem(ctx context.Context, item models.InventoryItem) (*models.InventoryItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	item.SKU = models.NormalizeSKU(item.SKU)
	if item.ID == "" {
		item.ID = l.ids.NewPrefixedID(util.ItemPrefix)
	}

	v := newValidation("create", entityItem, item.ID)
	v.check(item.SKU != "", "sku is required")
	v.check(strings.TrimSpace(item.Name) != "", "name is required")
	v.check(nonNegative(item.Stock), "stock must be a non-negative number")
	v.check(nonNegative(item.MinStock), "min stock must be a non-negative number")
	v.check(!item.Price.IsNegative(), "price must not be negative")
	if err := v.err(); err != nil {
		return nil, err
	}
	if _, ok := l.findItem(item.ID); ok {
		return nil, conflictf("create", entityItem, item.ID, "id already in use")
	}
	if _, ok := l.findItemBySKU(item.SKU); ok {
		return nil, conflictf("create", entityItem, item.ID, "sku %s already in use", item.SKU)
	}

	it := item
	l.inventory = append(l.inventory, &it)
	l.appendActivityf(models.ActionCreate, models.EntityInventory, "Agregado item %s", it.SKU)
	l.persist(ctx, KeyInventory, KeyActivity)

	out := it
	return &out, nil
}

// UpdateInventoryItem edits an item's catalog fields.
func (l *Ledger) UpdateInventoryItem(ctx context.Context, id string, input UpdateInventoryItemInput) (*models.InventoryItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, ok := l.findItem(id)
	if !ok {
		return nil, notFound("update", entityItem, id)
	}

	v := newValidation("update", entityItem, id)
	var sku string
	if input.SKU != nil {
		sku = models.NormalizeSKU(*input.SKU)
		v.check(sku != "", "sku is required")
	}
	if input.Name != nil {
		v.check(strings.TrimSpace(*input.Name) != "", "name is required")
	}
	if input.Stock != nil {
		v.check(nonNegative(*input.Stock), "stock must be a non-negative number")
	}
	if input.MinStock != nil {
		v.check(nonNegative(*input.MinStock), "min stock must be a non-negative number")
	}
	if input.Price != nil {
		v.check(!input.Price.IsNegative(), "price must not be negative")
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	if input.SKU != nil {
		if other, ok := l.findItemBySKU(sku); ok && other.ID != id {
			return nil, conflictf("update", entityItem, id, "sku %s already in use", sku)
		}
		item.SKU = sku
	}

	applyItemFields(item, input.Name, input.Category, input.Unit, input.Location, input.Stock, input.MinStock, input.Price)

	l.appendActivityf(models.ActionUpdate, models.EntityInventory, "Actualizado item %s", id)
	l.persist(ctx, KeyInventory, KeyActivity)

	out := *item
	return &out, nil
}

func applyItemFields(item *models.InventoryItem, name, category, unit, location *string, stock, minStock *float64, price *decimal.Decimal) bool {
	changed := false
	setStr := func(dst *string, src *string) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}
	setNum := func(dst *float64, src *float64) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}
	setStr(&item.Name, name)
	setStr(&item.Category, category)
	setStr(&item.Unit, unit)
	setStr(&item.Location, location)
	setNum(&item.Stock, stock)
	setNum(&item.MinStock, minStock)
	if price != nil && !item.Price.Equal(*price) {
		item.Price = *price
		changed = true
	}
	return changed
}

// ============================================================================
// Stock movements
// ============================================================================

// Receive records a supply document and adds each line to stock.
// Tax is the net amount times the configured rate, rounded to whole units.
func (l *Ledger) Receive(ctx context.Context, input ReceiveInput) (*models.SupplyDocument, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if input.Date.IsZero() {
		input.Date = now
	}

	v := newValidation("receive", "supply document", input.ID)
	v.check(input.Type.IsValid(), "invalid document type %q", input.Type)
	v.check(strings.TrimSpace(input.Provider) != "", "provider is required")
	v.check(len(input.Lines) > 0, "at least one line is required")

	items := make([]*models.InventoryItem, len(input.Lines))
	for i, line := range input.Lines {
		item, ok := l.findItem(line.ItemID)
		v.check(ok, "line %d: unknown item %q", i+1, line.ItemID)
		v.check(positive(line.Quantity), "line %d: quantity must be a positive number", i+1)
		v.check(!line.UnitPrice.IsNegative(), "line %d: unit price must not be negative", i+1)
		items[i] = item
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	if input.ID != "" && l.findSupplyDoc(input.ID) {
		return nil, conflictf("receive", "supply document", input.ID, "id already in use")
	}

	doc := &models.SupplyDocument{
		ID:                input.ID,
		Type:              input.Type,
		Provider:          strings.TrimSpace(input.Provider),
		ExternalReference: input.ExternalReference,
		Date:              input.Date,
		Items:             make([]models.SupplyItem, len(input.Lines)),
		ReceivedBy:        input.ReceivedBy,
		Timestamp:         now,
	}
	if doc.ID == "" {
		doc.ID = l.nextDocumentNumber(util.ReceiptPrefix, now.Year())
	}
	if doc.ReceivedBy == "" {
		doc.ReceivedBy = l.actor
	}

	net := decimal.Zero
	for i, line := range input.Lines {
		item := items[i]
		doc.Items[i] = models.SupplyItem{
			ItemID:    item.ID,
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
		net = net.Add(doc.Items[i].LineTotal())
		item.Stock += line.Quantity
	}
	doc.NetAmount = net
	doc.Tax = net.Mul(l.taxRate).Round(0)
	doc.TotalAmount = net.Add(doc.Tax)

	l.supplyDocs = append(l.supplyDocs, doc)
	l.appendActivityf(models.ActionReceiveStock, models.EntityDocument, "Recepción %s (%s)", doc.ID, doc.Type)
	l.persist(ctx, KeyInventory, KeySupplyDocuments, KeyActivity)

	return doc.Clone(), nil
}

// Consume dispatches stock to an open work order. Stock is floored at zero
// when a line asks for more than is on hand. Each line is mirrored into the
// order's materials at the dispatch price.
func (l *Ledger) Consume(ctx context.Context, input ConsumeInput) (*models.ConsumptionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if input.Date.IsZero() {
		input.Date = now
	}

	wo, err := l.getOpenWorkOrder("consume", input.WorkOrderID)
	if err != nil {
		return nil, err
	}

	v := newValidation("consume", "consumption", input.ID)
	v.check(len(input.Lines) > 0, "at least one line is required")
	items := make([]*models.InventoryItem, len(input.Lines))
	for i, line := range input.Lines {
		item, ok := l.findItem(line.ItemID)
		v.check(ok, "line %d: unknown item %q", i+1, line.ItemID)
		v.check(positive(line.Quantity), "line %d: quantity must be a positive number", i+1)
		if line.UnitPrice != nil {
			v.check(!line.UnitPrice.IsNegative(), "line %d: unit price must not be negative", i+1)
		}
		items[i] = item
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	techID := input.TechnicianID
	if techID == "" {
		techID = wo.TechnicianID
	}
	techName := ""
	if techID != "" {
		name, ok := l.technicianName(techID)
		if !ok {
			return nil, notFound("consume", "technician", techID)
		}
		techName = name
	}
	if input.ID != "" && l.findConsumption(input.ID) {
		return nil, conflictf("consume", "consumption", input.ID, "id already in use")
	}

	rec := &models.ConsumptionRecord{
		ID:             input.ID,
		WorkOrderID:    wo.ID,
		TechnicianID:   techID,
		TechnicianName: techName,
		Date:           input.Date,
		Items:          make([]models.ConsumptionItem, len(input.Lines)),
		DispatchedBy:   input.DispatchedBy,
		Timestamp:      now,
	}
	if rec.ID == "" {
		rec.ID = l.nextDocumentNumber(util.DispatchPrefix, now.Year())
	}
	if rec.DispatchedBy == "" {
		rec.DispatchedBy = l.actor
	}

	total := decimal.Zero
	usages := make([]models.MaterialUsage, len(input.Lines))
	for i, line := range input.Lines {
		item := items[i]
		price := item.Price
		if line.UnitPrice != nil {
			price = *line.UnitPrice
		}
		lineTotal := price.Mul(decimal.NewFromFloat(line.Quantity))

		rec.Items[i] = models.ConsumptionItem{
			ItemID:    item.ID,
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  line.Quantity,
			UnitPrice: price,
			Total:     lineTotal,
		}
		usages[i] = models.MaterialUsage{
			ItemID:           item.ID,
			Name:             item.Name,
			Quantity:         line.Quantity,
			UnitPriceAtUsage: price,
			TotalCost:        lineTotal,
			DateAdded:        now,
		}
		total = total.Add(lineTotal)

		if line.Quantity > item.Stock {
			l.log.Warn("consumption exceeds stock, flooring at zero",
				"item", item.SKU, "stock", item.Stock, "requested", line.Quantity)
		}
		item.Stock = max(0, item.Stock-line.Quantity)
	}
	rec.TotalCost = total

	l.attachMaterials(wo, usages)
	l.consumptions = append(l.consumptions, rec)
	l.appendActivityf(models.ActionDispatchStock, models.EntityConsumption, "Despacho %s para OT %s", rec.ID, wo.ID)
	l.persist(ctx, KeyInventory, KeyConsumptions, KeyWorkOrders, KeyActivity)

	return rec.Clone(), nil
}

// BulkUpsert merges imported rows into the catalog by SKU, ignoring case.
// Rows are independent: a bad row is reported and the rest still apply.
func (l *Ledger) BulkUpsert(ctx context.Context, rows []BulkRow) BulkResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := BulkResult{Errors: []string{}}
	for i, row := range rows {
		line := row.Line
		if line == 0 {
			line = i + 2
		}
		if row.Err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Fila %d: %v", line, row.Err))
			continue
		}
		sku := models.NormalizeSKU(row.SKU)
		if sku == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Fila %d: SKU vacío.", line))
			continue
		}
		if msg := negativeField(row); msg != "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Fila %d: %s", line, msg))
			continue
		}

		if item, ok := l.findItemBySKU(sku); ok {
			applyItemFields(item, row.Name, row.Category, row.Unit, row.Location, row.Stock, row.MinStock, row.Price)
			result.Updated++
			continue
		}

		item := &models.InventoryItem{
			ID:       l.ids.NewPrefixedID(util.ItemPrefix),
			SKU:      sku,
			Name:     "Sin Nombre",
			Category: "General",
			Unit:     "un",
			Location: "Bodega",
		}
		applyItemFields(item, row.Name, row.Category, row.Unit, row.Location, row.Stock, row.MinStock, row.Price)
		l.inventory = append(l.inventory, item)
		result.Created++
	}

	if result.Created > 0 || result.Updated > 0 {
		l.appendActivityf(models.ActionUpdate, models.EntityInventory,
			"Carga Masiva: %d creados, %d actualizados.", result.Created, result.Updated)
		l.persist(ctx, KeyInventory, KeyActivity)
	}

	return result
}

func negativeField(row BulkRow) string {
	nums := []struct {
		label string
		v     *float64
	}{{"stock", row.Stock}, {"stock mínimo", row.MinStock}}
	for _, n := range nums {
		switch {
		case n.v == nil:
		case math.IsNaN(*n.v) || math.IsInf(*n.v, 0):
			return n.label + " no es un número válido."
		case *n.v < 0:
			return n.label + " negativo."
		}
	}
	if row.Price != nil && row.Price.IsNegative() {
		return "precio negativo."
	}
	return ""
}

// ============================================================================
// Queries
// ============================================================================

// Inventory returns every catalog item.
func (l *Ledger) Inventory() []models.InventoryItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.InventoryItem, len(l.inventory))
	for i, it := range l.inventory {
		out[i] = *it
	}
	return out
}

// InventoryItem returns one item by id.
func (l *Ledger) InventoryItem(id string) (*models.InventoryItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, ok := l.findItem(id)
	if !ok {
		return nil, notFound("get", entityItem, id)
	}
	out := *item
	return &out, nil
}

// CriticalItems returns items at or below their minimum stock.
func (l *Ledger) CriticalItems() []models.InventoryItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []models.InventoryItem
	for _, it := range l.inventory {
		if it.IsCritical() {
			out = append(out, *it)
		}
	}
	return out
}

// SupplyDocuments returns every recorded receipt.
func (l *Ledger) SupplyDocuments() []*models.SupplyDocument {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*models.SupplyDocument, len(l.supplyDocs))
	for i, d := range l.supplyDocs {
		out[i] = d.Clone()
	}
	return out
}

// Consumptions returns every recorded dispatch.
func (l *Ledger) Consumptions() []*models.ConsumptionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*models.ConsumptionRecord, len(l.consumptions))
	for i, r := range l.consumptions {
		out[i] = r.Clone()
	}
	return out
}

func (l *Ledger) findItem(id string) (*models.InventoryItem, bool) {
	for _, it := range l.inventory {
		if it.ID == id {
			return it, true
		}
	}
	return nil, false
}

func (l *Ledger) findItemBySKU(sku string) (*models.InventoryItem, bool) {
	sku = models.NormalizeSKU(sku)
	for _, it := range l.inventory {
		if models.NormalizeSKU(it.SKU) == sku {
			return it, true
		}
	}
	return nil, false
}

func (l *Ledger) findSupplyDoc(id string) bool {
	for _, d := range l.supplyDocs {
		if d.ID == id {
			return true
		}
	}
	return false
}

func (l *Ledger) findConsumption(id string) bool {
	for _, r := range l.consumptions {
		if r.ID == id {
			return true
		}
	}
	return false
}

// nextDocumentNumber returns the first free <prefix>-<year>-<seq> number.
func (l *Ledger) nextDocumentNumber(prefix string, year int) string {
	taken := func(id string) bool {
		if prefix == util.ReceiptPrefix {
			return l.findSupplyDoc(id)
		}
		return l.findConsumption(id)
	}

	existing := 0
	for _, d := range l.supplyDocs {
		if p, y, _, err := util.ParseDocumentNumber(d.ID); err == nil && p == prefix && y == year {
			existing++
		}
	}
	for _, r := range l.consumptions {
		if p, y, _, err := util.ParseDocumentNumber(r.ID); err == nil && p == prefix && y == year {
			existing++
		}
	}

	id := util.DocumentNumber(prefix, year, existing)
	for taken(id) {
		existing++
		id = util.DocumentNumber(prefix, year, existing)
	}
	return id
}

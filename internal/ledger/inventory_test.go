package ledger

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/northchrome/opsledger/internal/database/seed"
	"github.com/northchrome/opsledger/internal/models"
	"github.com/northchrome/opsledger/internal/testutil"
)

func withStock(items []*models.InventoryItem, orders ...*models.WorkOrder) *seed.Dataset {
	return newDataset(func(ds *seed.Dataset) {
		ds.Inventory = append(ds.Inventory, items...)
		ds.WorkOrders = append(ds.WorkOrders, orders...)
	})
}

func TestReceive(t *testing.T) {
	item := testutil.FixtureInventoryItem(func(i *models.InventoryItem) { i.Stock = 3 })
	h := setupLedger(t, withStock([]*models.InventoryItem{item}))

	doc, err := h.ledger.Receive(h.ctx, ReceiveInput{
		Type:              models.SupplyDocInvoice,
		Provider:          "Ferretería Central",
		ExternalReference: "FAC-1234",
		Lines:             []ReceiveLine{{ItemID: item.ID, Quantity: 10, UnitPrice: decimal.NewFromInt(100)}},
	})
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}

	if !doc.NetAmount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected net 1000, got %s", doc.NetAmount)
	}
	if !doc.Tax.Equal(decimal.NewFromInt(190)) {
		t.Errorf("expected tax 190, got %s", doc.Tax)
	}
	if !doc.TotalAmount.Equal(decimal.NewFromInt(1190)) {
		t.Errorf("expected total 1190, got %s", doc.TotalAmount)
	}
	if doc.ID != "RCP-2024-1001" {
		t.Errorf("expected generated document number, got %q", doc.ID)
	}
	if doc.Items[0].SKU != item.SKU || doc.Items[0].Name != item.Name {
		t.Errorf("expected item snapshot on line, got %+v", doc.Items[0])
	}
	if doc.ReceivedBy != "tester" {
		t.Errorf("expected receiver defaulted to actor, got %q", doc.ReceivedBy)
	}

	got, _ := h.ledger.InventoryItem(item.ID)
	if got.Stock != 13 {
		t.Errorf("expected stock 13, got %v", got.Stock)
	}

	entry := lastActivity(t, h.ledger)
	if entry.Action != models.ActionReceiveStock || entry.Entity != models.EntityDocument {
		t.Errorf("unexpected activity %+v", entry)
	}
	if entry.Details != "Recepción RCP-2024-1001 (FACTURA)" {
		t.Errorf("unexpected details %q", entry.Details)
	}
}

func TestReceive_TaxRounding(t *testing.T) {
	item := testutil.FixtureInventoryItem()
	h := setupLedger(t, withStock([]*models.InventoryItem{item}))

	// 3 x 333 = 999; 999 x 0.19 = 189.81
	doc, err := h.ledger.Receive(h.ctx, ReceiveInput{
		Type:     models.SupplyDocReceipt,
		Provider: "Comercial Sur",
		Lines:    []ReceiveLine{{ItemID: item.ID, Quantity: 3, UnitPrice: decimal.NewFromInt(333)}},
	})
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !doc.Tax.Equal(decimal.NewFromInt(190)) {
		t.Errorf("expected rounded tax 190, got %s", doc.Tax)
	}
	if !doc.TotalAmount.Equal(decimal.NewFromInt(1189)) {
		t.Errorf("expected total 1189, got %s", doc.TotalAmount)
	}
}

func TestReceive_ConfiguredTaxRate(t *testing.T) {
	item := testutil.FixtureInventoryItem()
	h := setupLedgerWith(t, withStock([]*models.InventoryItem{item}), Options{TaxRate: 0.10})

	doc, err := h.ledger.Receive(h.ctx, ReceiveInput{
		Type:     models.SupplyDocInvoice,
		Provider: "Comercial Sur",
		Lines:    []ReceiveLine{{ItemID: item.ID, Quantity: 10, UnitPrice: decimal.NewFromInt(100)}},
	})
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !doc.Tax.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected tax 100, got %s", doc.Tax)
	}
}

func TestReceive_Rejections(t *testing.T) {
	item := testutil.FixtureInventoryItem()

	tests := []struct {
		name  string
		input ReceiveInput
		count int
	}{
		{
			name:  "No lines",
			input: ReceiveInput{Type: models.SupplyDocInvoice, Provider: "X"},
			count: 1,
		},
		{
			name: "Unknown item",
			input: ReceiveInput{Type: models.SupplyDocInvoice, Provider: "X", Lines: []ReceiveLine{
				{ItemID: "MAT-404", Quantity: 1},
			}},
			count: 1,
		},
		{
			name: "Non-positive quantity",
			input: ReceiveInput{Type: models.SupplyDocInvoice, Provider: "X", Lines: []ReceiveLine{
				{ItemID: item.ID, Quantity: 0},
				{ItemID: item.ID, Quantity: -2},
			}},
			count: 2,
		},
		{
			name: "Bad type and provider",
			input: ReceiveInput{Type: "PROFORMA", Lines: []ReceiveLine{
				{ItemID: item.ID, Quantity: 1},
			}},
			count: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := *item
			h := setupLedger(t, withStock([]*models.InventoryItem{&it}))

			_, err := h.ledger.Receive(h.ctx, tt.input)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if got := len(Messages(err)); got != tt.count {
				t.Errorf("expected %d messages, got %v", tt.count, Messages(err))
			}

			got, _ := h.ledger.InventoryItem(item.ID)
			if got.Stock != item.Stock {
				t.Errorf("rejected receipt changed stock to %v", got.Stock)
			}
			if len(h.ledger.SupplyDocuments()) != 0 {
				t.Error("rejected receipt must not be recorded")
			}
		})
	}
}

func TestReceive_DocumentNumbering(t *testing.T) {
	item := testutil.FixtureInventoryItem()
	h := setupLedger(t, withStock([]*models.InventoryItem{item}))

	in := ReceiveInput{
		Type:     models.SupplyDocDispatchNote,
		Provider: "Aceros",
		Lines:    []ReceiveLine{{ItemID: item.ID, Quantity: 1}},
	}
	first, _ := h.ledger.Receive(h.ctx, in)
	second, _ := h.ledger.Receive(h.ctx, in)
	if first.ID != "RCP-2024-1001" || second.ID != "RCP-2024-1002" {
		t.Errorf("unexpected numbering %s, %s", first.ID, second.ID)
	}

	in.ID = first.ID
	if _, err := h.ledger.Receive(h.ctx, in); !errors.Is(err, ErrConflict) {
		t.Errorf("expected conflict for reused number, got %v", err)
	}
}

func TestConsume(t *testing.T) {
	bolt := testutil.FixtureInventoryItem(func(i *models.InventoryItem) { i.Stock = 50 })
	steel := testutil.FixtureInventoryItem(func(i *models.InventoryItem) {
		i.Stock = 8
		i.Price = decimal.NewFromInt(5000)
	})
	wo := testutil.FixtureWorkOrder()
	h := setupLedger(t, withStock([]*models.InventoryItem{bolt, steel}, wo))

	override := decimal.NewFromInt(4500)
	rec, err := h.ledger.Consume(h.ctx, ConsumeInput{
		WorkOrderID: wo.ID,
		Lines: []ConsumeLine{
			{ItemID: bolt.ID, Quantity: 12},
			{ItemID: steel.ID, Quantity: 2, UnitPrice: &override},
		},
	})
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	if rec.ID != "DSP-2024-1001" {
		t.Errorf("expected generated dispatch number, got %q", rec.ID)
	}
	if rec.TechnicianID != "U3" || rec.TechnicianName != "Técnico Juan" {
		t.Errorf("expected order technician snapshot, got %s %q", rec.TechnicianID, rec.TechnicianName)
	}
	if !rec.TotalCost.Equal(decimal.NewFromInt(12*150 + 2*4500)) {
		t.Errorf("unexpected total %s", rec.TotalCost)
	}

	gotBolt, _ := h.ledger.InventoryItem(bolt.ID)
	gotSteel, _ := h.ledger.InventoryItem(steel.ID)
	if gotBolt.Stock != 38 || gotSteel.Stock != 6 {
		t.Errorf("unexpected stock %v / %v", gotBolt.Stock, gotSteel.Stock)
	}

	order, _ := h.ledger.WorkOrder(wo.ID)
	if len(order.Materials) != 2 {
		t.Fatalf("expected 2 material lines, got %d", len(order.Materials))
	}
	for i, m := range order.Materials {
		want := m.UnitPriceAtUsage.Mul(decimal.NewFromFloat(m.Quantity))
		if !m.TotalCost.Equal(want) {
			t.Errorf("line %d: total %s, want %s", i, m.TotalCost, want)
		}
	}
	if !order.Materials[1].UnitPriceAtUsage.Equal(override) {
		t.Errorf("expected dispatch price on material line, got %s", order.Materials[1].UnitPriceAtUsage)
	}

	entry := lastActivity(t, h.ledger)
	if entry.Action != models.ActionDispatchStock || entry.Details != "Despacho DSP-2024-1001 para OT "+wo.ID {
		t.Errorf("unexpected activity %+v", entry)
	}
}

func TestConsume_TerminalOrderRejected(t *testing.T) {
	for _, status := range []models.WorkOrderStatus{models.WorkOrderStatusFinished, models.WorkOrderStatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			item := testutil.FixtureInventoryItem()
			wo := startedOrder(status)
			h := setupLedger(t, withStock([]*models.InventoryItem{item}, wo))

			_, err := h.ledger.Consume(h.ctx, ConsumeInput{
				WorkOrderID: wo.ID,
				Lines:       []ConsumeLine{{ItemID: item.ID, Quantity: 1}},
			})
			if !errors.Is(err, ErrPrecondition) {
				t.Fatalf("expected precondition error, got %v", err)
			}

			got, _ := h.ledger.InventoryItem(item.ID)
			if got.Stock != 100 {
				t.Errorf("stock changed to %v", got.Stock)
			}
			order, _ := h.ledger.WorkOrder(wo.ID)
			if len(order.Materials) != 0 {
				t.Error("materials changed on terminal order")
			}
			if len(h.ledger.Consumptions()) != 0 {
				t.Error("consumption recorded on terminal order")
			}
		})
	}
}

func TestConsume_Rejections(t *testing.T) {
	item := testutil.FixtureInventoryItem()
	wo := testutil.FixtureWorkOrder()
	h := setupLedger(t, withStock([]*models.InventoryItem{item}, wo))

	if _, err := h.ledger.Consume(h.ctx, ConsumeInput{WorkOrderID: "OT.404", Lines: []ConsumeLine{{ItemID: item.ID, Quantity: 1}}}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected unknown order, got %v", err)
	}
	if _, err := h.ledger.Consume(h.ctx, ConsumeInput{WorkOrderID: wo.ID, Lines: []ConsumeLine{{ItemID: item.ID, Quantity: 0}}}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for zero quantity, got %v", err)
	}
	if _, err := h.ledger.Consume(h.ctx, ConsumeInput{WorkOrderID: wo.ID}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for empty dispatch, got %v", err)
	}
	if _, err := h.ledger.Consume(h.ctx, ConsumeInput{WorkOrderID: wo.ID, TechnicianID: "ZZ", Lines: []ConsumeLine{{ItemID: item.ID, Quantity: 1}}}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected unknown technician, got %v", err)
	}

	got, _ := h.ledger.InventoryItem(item.ID)
	if got.Stock != 100 {
		t.Errorf("rejected dispatches changed stock to %v", got.Stock)
	}
}

// Over-consumption is accepted and floors stock at zero rather than failing.
func TestConsume_OverConsumptionFloorsAtZero(t *testing.T) {
	item := testutil.FixtureInventoryItem(func(i *models.InventoryItem) { i.Stock = 4 })
	wo := testutil.FixtureWorkOrder()
	h := setupLedger(t, withStock([]*models.InventoryItem{item}, wo))

	rec, err := h.ledger.Consume(h.ctx, ConsumeInput{
		WorkOrderID: wo.ID,
		Lines:       []ConsumeLine{{ItemID: item.ID, Quantity: 10}},
	})
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	got, _ := h.ledger.InventoryItem(item.ID)
	if got.Stock != 0 {
		t.Errorf("expected stock floored at 0, got %v", got.Stock)
	}
	if rec.Items[0].Quantity != 10 {
		t.Errorf("dispatch keeps the requested quantity, got %v", rec.Items[0].Quantity)
	}
	order, _ := h.ledger.WorkOrder(wo.ID)
	if order.Materials[0].Quantity != 10 {
		t.Errorf("material line keeps the requested quantity, got %v", order.Materials[0].Quantity)
	}
}

func TestStockNeverNegative(t *testing.T) {
	item := testutil.FixtureInventoryItem(func(i *models.InventoryItem) { i.Stock = 5 })
	wo := testutil.FixtureWorkOrder()
	h := setupLedger(t, withStock([]*models.InventoryItem{item}, wo))

	steps := []float64{3, -7, 2, -1, -9, 4, -4, -0.5, 12, -20}
	for i, q := range steps {
		var err error
		if q > 0 {
			_, err = h.ledger.Receive(h.ctx, ReceiveInput{
				Type:     models.SupplyDocInvoice,
				Provider: "Proveedor",
				Lines:    []ReceiveLine{{ItemID: item.ID, Quantity: q}},
			})
		} else {
			_, err = h.ledger.Consume(h.ctx, ConsumeInput{
				WorkOrderID: wo.ID,
				Lines:       []ConsumeLine{{ItemID: item.ID, Quantity: -q}},
			})
		}
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		got, _ := h.ledger.InventoryItem(item.ID)
		if got.Stock < 0 {
			t.Fatalf("step %d: stock went negative: %v", i, got.Stock)
		}
	}
}

func TestAddInventoryItem(t *testing.T) {
	h := setupLedger(t, nil)

	item, err := h.ledger.AddInventoryItem(h.ctx, models.InventoryItem{
		SKU:   "  bolt-m8 ",
		Name:  "Perno M8",
		Stock: 40,
		Price: decimal.NewFromInt(90),
	})
	if err != nil {
		t.Fatalf("AddInventoryItem: %v", err)
	}
	if item.SKU != "BOLT-M8" {
		t.Errorf("expected normalized sku, got %q", item.SKU)
	}
	if item.ID == "" {
		t.Error("expected generated id")
	}

	_, err = h.ledger.AddInventoryItem(h.ctx, models.InventoryItem{SKU: "Bolt-M8", Name: "Otro"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected case-insensitive sku conflict, got %v", err)
	}

	_, err = h.ledger.AddInventoryItem(h.ctx, models.InventoryItem{SKU: "", Name: "", Stock: -1})
	if !errors.Is(err, ErrValidation) || len(Messages(err)) != 3 {
		t.Errorf("expected three validation errors, got %v", Messages(err))
	}
}

func TestUpdateInventoryItem(t *testing.T) {
	a := testutil.FixtureInventoryItem(func(i *models.InventoryItem) { i.SKU = "AAA" })
	b := testutil.FixtureInventoryItem(func(i *models.InventoryItem) { i.SKU = "BBB" })
	h := setupLedger(t, withStock([]*models.InventoryItem{a, b}))

	got, err := h.ledger.UpdateInventoryItem(h.ctx, a.ID, UpdateInventoryItemInput{
		Location: strPtr("Estante 4"),
		MinStock: floatPtr(25),
	})
	if err != nil {
		t.Fatalf("UpdateInventoryItem: %v", err)
	}
	if got.Location != "Estante 4" || got.MinStock != 25 || got.Stock != 100 {
		t.Errorf("unexpected item %+v", got)
	}

	if _, err := h.ledger.UpdateInventoryItem(h.ctx, a.ID, UpdateInventoryItemInput{SKU: strPtr("bbb")}); !errors.Is(err, ErrConflict) {
		t.Errorf("expected sku conflict, got %v", err)
	}
	if _, err := h.ledger.UpdateInventoryItem(h.ctx, a.ID, UpdateInventoryItemInput{Stock: floatPtr(-1)}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := h.ledger.UpdateInventoryItem(h.ctx, "MAT-404", UpdateInventoryItemInput{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestBulkUpsert_CaseInsensitiveRoundTrip(t *testing.T) {
	h := setupLedger(t, nil)

	first := h.ledger.BulkUpsert(h.ctx, []BulkRow{{SKU: "X1", Stock: floatPtr(10)}})
	if first.Created != 1 || first.Updated != 0 || len(first.Errors) != 0 {
		t.Fatalf("unexpected first result %+v", first)
	}

	second := h.ledger.BulkUpsert(h.ctx, []BulkRow{{SKU: "x1", Stock: floatPtr(5)}})
	if second.Created != 0 || second.Updated != 1 {
		t.Errorf("expected created=0 updated=1, got %+v", second)
	}

	inv := h.ledger.Inventory()
	if len(inv) != 1 {
		t.Fatalf("expected a single item, got %d", len(inv))
	}
	if inv[0].Stock != 5 || inv[0].SKU != "X1" {
		t.Errorf("unexpected item %+v", inv[0])
	}
}

func TestBulkUpsert(t *testing.T) {
	existing := testutil.FixtureInventoryItem(func(i *models.InventoryItem) {
		i.SKU = "ST-304"
		i.Name = "Acero 304"
		i.Stock = 7
		i.MinStock = 2
	})
	h := setupLedger(t, withStock([]*models.InventoryItem{existing}))

	price := decimal.NewFromInt(5200)
	res := h.ledger.BulkUpsert(h.ctx, []BulkRow{
		{SKU: "st-304 ", Price: &price},
		{SKU: "  "},
		{SKU: "NEW-1", Name: strPtr("Disco de corte")},
		{SKU: "NEG-1", Stock: floatPtr(-3)},
		{SKU: "ERR-1", Err: errors.New("stock no numérico")},
	})

	if res.Created != 1 || res.Updated != 1 {
		t.Errorf("expected 1 created and 1 updated, got %+v", res)
	}
	wantErrors := []string{
		"Fila 3: SKU vacío.",
		"Fila 5: stock negativo.",
		"Fila 6: stock no numérico",
	}
	if len(res.Errors) != len(wantErrors) {
		t.Fatalf("expected %d errors, got %v", len(wantErrors), res.Errors)
	}
	for i, want := range wantErrors {
		if res.Errors[i] != want {
			t.Errorf("error %d: got %q, want %q", i, res.Errors[i], want)
		}
	}

	got, _ := h.ledger.InventoryItem(existing.ID)
	if got.Stock != 7 || got.MinStock != 2 || got.Name != "Acero 304" {
		t.Errorf("absent fields must be kept, got %+v", got)
	}
	if !got.Price.Equal(price) {
		t.Errorf("expected price %s, got %s", price, got.Price)
	}

	var created models.InventoryItem
	for _, it := range h.ledger.Inventory() {
		if it.SKU == "NEW-1" {
			created = it
		}
	}
	if created.Name != "Disco de corte" || created.Category != "General" || created.Unit != "un" ||
		created.Location != "Bodega" || created.Stock != 0 || created.MinStock != 0 {
		t.Errorf("unexpected defaults on new item %+v", created)
	}

	entry := lastActivity(t, h.ledger)
	if entry.Details != "Carga Masiva: 1 creados, 1 actualizados." {
		t.Errorf("unexpected details %q", entry.Details)
	}
}

func TestBulkUpsert_NothingAppliedNotAudited(t *testing.T) {
	h := setupLedger(t, nil)

	res := h.ledger.BulkUpsert(h.ctx, []BulkRow{{SKU: ""}})
	if len(res.Errors) != 1 {
		t.Errorf("expected one error, got %v", res.Errors)
	}
	if len(h.ledger.Activity()) != 0 {
		t.Error("expected no audit entry when nothing changed")
	}
}

func TestBulkUpsert_NonFiniteStock(t *testing.T) {
	tests := []struct {
		name string
		row  BulkRow
		want string
	}{
		{"NaN stock", BulkRow{SKU: "NAN1", Stock: floatPtr(math.NaN())}, "Fila 2: stock no es un número válido."},
		{"Infinite stock", BulkRow{SKU: "INF1", Stock: floatPtr(math.Inf(1))}, "Fila 2: stock no es un número válido."},
		{"Negative infinite min stock", BulkRow{SKU: "INF2", MinStock: floatPtr(math.Inf(-1))}, "Fila 2: stock mínimo no es un número válido."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := setupLedger(t, nil)

			res := h.ledger.BulkUpsert(h.ctx, []BulkRow{tt.row, {SKU: "OK1", Stock: floatPtr(4)}})
			if len(res.Errors) != 1 || res.Errors[0] != tt.want {
				t.Fatalf("expected %q, got %v", tt.want, res.Errors)
			}
			if res.Created != 1 {
				t.Errorf("expected only the valid row created, got %+v", res)
			}

			inv := h.ledger.Inventory()
			if len(inv) != 1 || inv[0].SKU != "OK1" || inv[0].Stock != 4 {
				t.Errorf("unexpected inventory %+v", inv)
			}
			payload, err := h.store.Load(h.ctx, KeyInventory)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !strings.Contains(string(payload), "OK1") || strings.Contains(string(payload), tt.row.SKU) {
				t.Errorf("persisted inventory = %s", payload)
			}
		})
	}
}

func TestBulkUpsert_SourceLines(t *testing.T) {
	h := setupLedger(t, nil)

	res := h.ledger.BulkUpsert(h.ctx, []BulkRow{
		{SKU: "A", Line: 2},
		{SKU: "B", Stock: floatPtr(-1), Line: 5},
		{SKU: "C", Err: errors.New("stock \"x\" no es un número"), Line: 9},
	})

	want := []string{
		"Fila 5: stock negativo.",
		"Fila 9: stock \"x\" no es un número",
	}
	if len(res.Errors) != len(want) {
		t.Fatalf("expected %d errors, got %v", len(want), res.Errors)
	}
	for i := range want {
		if res.Errors[i] != want[i] {
			t.Errorf("error %d: got %q, want %q", i, res.Errors[i], want[i])
		}
	}
}

func TestInventory_NonFiniteRejected(t *testing.T) {
	values := []struct {
		name string
		v    float64
	}{
		{"NaN", math.NaN()},
		{"Inf", math.Inf(1)},
		{"-Inf", math.Inf(-1)},
	}

	for _, tt := range values {
		t.Run(tt.name, func(t *testing.T) {
			item := testutil.FixtureInventoryItem()
			wo := testutil.FixtureWorkOrder()
			h := setupLedger(t, withStock([]*models.InventoryItem{item}, wo))

			calls := map[string]func() error{
				"add stock": func() error {
					_, err := h.ledger.AddInventoryItem(h.ctx, models.InventoryItem{SKU: "NF-1", Name: "Lija", Stock: tt.v})
					return err
				},
				"add min stock": func() error {
					_, err := h.ledger.AddInventoryItem(h.ctx, models.InventoryItem{SKU: "NF-2", Name: "Lija", MinStock: tt.v})
					return err
				},
				"update stock": func() error {
					_, err := h.ledger.UpdateInventoryItem(h.ctx, item.ID, UpdateInventoryItemInput{Stock: floatPtr(tt.v)})
					return err
				},
				"update min stock": func() error {
					_, err := h.ledger.UpdateInventoryItem(h.ctx, item.ID, UpdateInventoryItemInput{MinStock: floatPtr(tt.v)})
					return err
				},
				"receive": func() error {
					_, err := h.ledger.Receive(h.ctx, ReceiveInput{Type: models.SupplyDocInvoice, Provider: "X", Lines: []ReceiveLine{
						{ItemID: item.ID, Quantity: tt.v},
					}})
					return err
				},
				"consume": func() error {
					_, err := h.ledger.Consume(h.ctx, ConsumeInput{WorkOrderID: wo.ID, Lines: []ConsumeLine{{ItemID: item.ID, Quantity: tt.v}}})
					return err
				},
			}
			for op, call := range calls {
				if err := call(); !errors.Is(err, ErrValidation) {
					t.Errorf("%s with %v: expected validation error, got %v", op, tt.v, err)
				}
			}

			got, _ := h.ledger.InventoryItem(item.ID)
			if got.Stock != item.Stock || got.MinStock != item.MinStock {
				t.Errorf("rejected calls changed the item to %+v", got)
			}
			if len(h.ledger.Inventory()) != 1 || len(h.ledger.SupplyDocuments()) != 0 {
				t.Error("rejected calls must not record anything")
			}
		})
	}
}

func TestCriticalItems(t *testing.T) {
	low := testutil.FixtureInventoryItem(func(i *models.InventoryItem) {
		i.Stock = 10
		i.MinStock = 10
	})
	ok := testutil.FixtureInventoryItem()
	h := setupLedger(t, withStock([]*models.InventoryItem{low, ok}))

	crit := h.ledger.CriticalItems()
	if len(crit) != 1 || crit[0].ID != low.ID {
		t.Errorf("expected only the item at minimum, got %+v", crit)
	}
	if s := h.ledger.Summary(); s.CriticalItems != 1 {
		t.Errorf("expected summary critical count 1, got %d", s.CriticalItems)
	}
}

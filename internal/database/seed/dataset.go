// Package seed provides the documented default collections the ledger falls
// back to on first run or when a stored collection cannot be decoded.
package seed

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/northchrome/opsledger/internal/models"
)

// Config configures the default dataset.
type Config struct {
	CompanyName string
	// Now anchors relative dates (creation, due dates, loans) in the dataset.
	Now time.Time
	// Demo includes the sample work orders, stock and tools.
	Demo bool
}

// DefaultConfig returns a seed configuration with demonstration data enabled.
func DefaultConfig(companyName string, now time.Time) Config {
	return Config{
		CompanyName: companyName,
		Now:         now,
		Demo:        true,
	}
}

// Dataset holds one value per persisted collection.
type Dataset struct {
	WorkOrders       []*models.WorkOrder
	Inventory        []*models.InventoryItem
	SupplyDocuments  []*models.SupplyDocument
	Consumptions     []*models.ConsumptionRecord
	Tools            []*models.Tool
	ToolLoans        []*models.ToolLoan
	ToolMaintenances []*models.ToolMaintenance
	Technicians      []*models.Technician
	Activity         []models.ActivityEntry
	Settings         models.Settings
}

// Generator builds default datasets.
type Generator struct {
	cfg Config
}

// NewGenerator creates a new seed data generator.
func NewGenerator(cfg Config) *Generator {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now().UTC()
	}
	if cfg.CompanyName == "" {
		cfg.CompanyName = "North Chrome Ltda."
	}
	return &Generator{cfg: cfg}
}

// Generate returns a freshly built dataset. Each call returns new values.
func (g *Generator) Generate() *Dataset {
	ds := &Dataset{
		WorkOrders:       []*models.WorkOrder{},
		Inventory:        []*models.InventoryItem{},
		SupplyDocuments:  []*models.SupplyDocument{},
		Consumptions:     []*models.ConsumptionRecord{},
		Tools:            []*models.Tool{},
		ToolLoans:        []*models.ToolLoan{},
		ToolMaintenances: []*models.ToolMaintenance{},
		Technicians:      g.technicians(),
		Activity:         []models.ActivityEntry{},
		Settings: models.Settings{
			CompanyName:          g.cfg.CompanyName,
			NotificationsEnabled: true,
			Theme:                "light",
		},
	}

	if !g.cfg.Demo {
		return ds
	}

	ds.WorkOrders = g.workOrders()
	ds.Inventory = g.inventory()
	ds.SupplyDocuments = g.supplyDocuments()
	ds.Tools, ds.ToolLoans = g.tools()
	return ds
}

func (g *Generator) days(n int) time.Time {
	return g.cfg.Now.AddDate(0, 0, n)
}

func (g *Generator) technicians() []*models.Technician {
	return []*models.Technician{
		{ID: "U3", Name: "Técnico Juan", Specialty: "CNC", Active: true},
		{ID: "T2", Name: "Carlos Mecánico", Specialty: "Mecánica", Active: true},
	}
}

func (g *Generator) workOrders() []*models.WorkOrder {
	started := g.days(-1)
	oldStart := g.days(-6)
	finished := g.days(-2)
	taskDone := g.cfg.Now

	return []*models.WorkOrder{
		{
			ID:                      "OT.1001",
			Title:                   "Reparación Eje Principal",
			ClientID:                "Mining Corp",
			Status:                  models.WorkOrderStatusInProcess,
			IsBudgetApproved:        true,
			Area:                    models.AreaCNC,
			Priority:                models.PriorityHigh,
			CreationDate:            g.days(-2),
			StartDate:               &started,
			EstimatedCompletionDate: g.days(1),
			Description:             "Rectificado de eje principal según plano 404.",
			AssignedOperators:       []string{"Pedro", "Luis"},
			TechnicianID:            "U3",
			Materials: []models.MaterialUsage{
				{
					ItemID:           "MAT-001",
					Name:             "Acero Inoxidable 304",
					Quantity:         2,
					UnitPriceAtUsage: decimal.NewFromInt(5000),
					TotalCost:        decimal.NewFromInt(10000),
					DateAdded:        g.cfg.Now,
				},
			},
			Labor: []models.LaborEntry{
				{
					ID:             "L1",
					TechnicianID:   "U3",
					TechnicianName: "Técnico Juan",
					Hours:          4,
					Date:           started,
					Description:    "Desmontaje y Limpieza",
				},
			},
			Services: []models.ServiceEntry{},
			Tasks: []models.Task{
				{ID: "tk1", Description: "Desmontaje inicial y limpieza", IsCompleted: true, CompletedAt: &taskDone},
				{ID: "tk2", Description: "Rectificado primera etapa"},
				{ID: "tk3", Description: "Control dimensional final"},
			},
			Comments: []models.Comment{},
		},
		{
			ID:                      "OT.1002",
			Title:                   "Soldadura Estructura Base",
			ClientID:                "Constructora X",
			Status:                  models.WorkOrderStatusPending,
			IsBudgetApproved:        true,
			Area:                    models.AreaWelding,
			Priority:                models.PriorityMedium,
			CreationDate:            g.cfg.Now,
			EstimatedCompletionDate: g.days(2),
			Description:             "Soldadura MIG en base de soporte. Requiere certificación.",
			Materials:               []models.MaterialUsage{},
			Labor:                   []models.LaborEntry{},
			Services:                []models.ServiceEntry{},
			Tasks:                   []models.Task{},
			Comments:                []models.Comment{},
		},
		{
			ID:                      "OT.1003",
			Title:                   "Mecanizado Camisa Hidráulica",
			ClientID:                "HydraSystems",
			Status:                  models.WorkOrderStatusFinished,
			IsBudgetApproved:        true,
			Area:                    models.AreaMechanics,
			Priority:                models.PriorityLow,
			CreationDate:            g.days(-7),
			StartDate:               &oldStart,
			FinishedDate:            &finished,
			EstimatedCompletionDate: g.days(-3),
			Description:             "Fabricación de camisa según muestra.",
			FinalNotes:              "Se entregó pintado y embalado. Cliente conforme.",
			Materials:               []models.MaterialUsage{},
			Labor:                   []models.LaborEntry{},
			Services:                []models.ServiceEntry{},
			Tasks:                   []models.Task{},
			Comments:                []models.Comment{},
		},
	}
}

func (g *Generator) inventory() []*models.InventoryItem {
	return []*models.InventoryItem{
		{ID: "MAT-001", SKU: "ST-304", Name: "Acero Inoxidable 304", Category: "Metal", Stock: 5, MinStock: 10, Unit: "kg", Location: "A1", Price: decimal.NewFromInt(5000)},
		{ID: "MAT-002", SKU: "BOLT-M10", Name: "Perno M10 Hex", Category: "Insumos", Stock: 200, MinStock: 50, Unit: "un", Location: "B2", Price: decimal.NewFromInt(150)},
		{ID: "MAT-003", SKU: "WELD-7018", Name: `Electrodo 7018 1/8"`, Category: "Soldadura", Stock: 20, MinStock: 5, Unit: "kg", Location: "C5", Price: decimal.NewFromInt(3500)},
		{ID: "MAT-004", SKU: "OIL-ISO68", Name: "Aceite Hidráulico ISO 68", Category: "Lubricantes", Stock: 200, MinStock: 20, Unit: "L", Location: "D1", Price: decimal.NewFromInt(4200)},
	}
}

func (g *Generator) supplyDocuments() []*models.SupplyDocument {
	received := g.days(-5)
	return []*models.SupplyDocument{
		{
			ID:                "RCP-2024-001",
			ExternalReference: "FAC-9921",
			Provider:          "AceroMundo S.A.",
			Type:              models.SupplyDocInvoice,
			Date:              received,
			Items: []models.SupplyItem{
				{ItemID: "MAT-001", SKU: "ST-304", Name: "Acero Inoxidable 304", Quantity: 10, UnitPrice: decimal.NewFromInt(4800)},
			},
			NetAmount:   decimal.NewFromInt(48000),
			Tax:         decimal.NewFromInt(9120),
			TotalAmount: decimal.NewFromInt(57120),
			ReceivedBy:  "Administrador",
			Timestamp:   received,
		},
	}
}

// tools returns the crib with one tool out on loan and one in maintenance,
// each backed by the loan or dispatch that explains its status.
func (g *Generator) tools() ([]*models.Tool, []*models.ToolLoan) {
	date := func(y int, m time.Month, d int) *time.Time {
		t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &t
	}
	estimated := g.days(5)

	tools := []*models.Tool{
		{ID: "T-001", Code: "TAL-01", Name: "Taladro Percutor 18V", Brand: "Makita", Model: "DHP482", Category: models.ToolCategoryPower, PurchaseDate: date(2023, 1, 15), Status: models.ToolStatusAvailable, Location: "P-1"},
		{ID: "T-002", Code: "ESM-01", Name: `Esmeril Angular 4.5"`, Brand: "Bosch", Model: "GWS 700", Category: models.ToolCategoryPower, PurchaseDate: date(2023, 2, 20), Status: models.ToolStatusInUse, Location: "P-2"},
		{ID: "T-003", Code: "CAL-01", Name: "Pie de Metro Digital", Brand: "Mitutoyo", Model: "500-196", Category: models.ToolCategoryMeasuring, PurchaseDate: date(2023, 6, 1), Status: models.ToolStatusAvailable, Location: "M-1"},
		{
			ID: "T-004", Code: "MIC-01", Name: "Micrómetro Exterior 0-25mm", Brand: "Mitutoyo", Model: "103-137",
			Category: models.ToolCategoryMeasuring, PurchaseDate: date(2022, 11, 10), Status: models.ToolStatusMaintenance, Location: "M-2",
			ActiveMaintenance: &models.MaintenanceDispatch{
				Date:                g.days(-3),
				Type:                models.MaintenanceExternal,
				Urgency:             models.UrgencyMedium,
				Reason:              "Calibración anual",
				Provider:            "Metrología Andina",
				EstimatedReturnDate: &estimated,
			},
		},
	}

	loans := []*models.ToolLoan{
		{
			ID:             "LN-SEED-001",
			ToolID:         "T-002",
			ToolName:       `Esmeril Angular 4.5"`,
			TechnicianID:   "U3",
			TechnicianName: "Técnico Juan",
			WorkOrderID:    "OT.1001",
			LoanDate:       g.days(-1),
			ConditionOut:   "Conforme",
			Status:         models.LoanStatusActive,
		},
	}

	return tools, loans
}

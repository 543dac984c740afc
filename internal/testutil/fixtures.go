package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/northchrome/opsledger/internal/models"
)

// FixtureTime is the fixed instant fixtures are dated from.
var FixtureTime = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

// FixtureWorkOrder creates a pending, budget-approved work order with sensible defaults.
func FixtureWorkOrder(overrides ...func(*models.WorkOrder)) *models.WorkOrder {
	id := uuid.New().String()

	wo := &models.WorkOrder{
		ID:                      "OT." + id[:6],
		Title:                   "Rectificado de eje",
		ClientID:                "Minera Norte",
		Status:                  models.WorkOrderStatusPending,
		IsBudgetApproved:        true,
		Priority:                models.PriorityMedium,
		Area:                    models.AreaCNC,
		TechnicianID:            "U3",
		CreationDate:            FixtureTime,
		EstimatedCompletionDate: FixtureTime.AddDate(0, 0, 7),
	}

	for _, override := range overrides {
		override(wo)
	}

	return wo
}

// FixtureUnapprovedWorkOrder creates a work order whose budget is still pending approval.
func FixtureUnapprovedWorkOrder(overrides ...func(*models.WorkOrder)) *models.WorkOrder {
	return FixtureWorkOrder(append([]func(*models.WorkOrder){
		func(w *models.WorkOrder) {
			w.IsBudgetApproved = false
		},
	}, overrides...)...)
}

// FixtureInventoryItem creates a stocked inventory item.
func FixtureInventoryItem(overrides ...func(*models.InventoryItem)) *models.InventoryItem {
	id := uuid.New().String()

	item := &models.InventoryItem{
		ID:       "MAT-" + id[:8],
		SKU:      "SKU-" + id[:8],
		Name:     "Perno hexagonal",
		Category: "Fijaciones",
		Stock:    100,
		MinStock: 10,
		Unit:     "un",
		Location: "Bodega",
		Price:    decimal.NewFromInt(150),
	}

	for _, override := range overrides {
		override(item)
	}

	return item
}

// FixtureTool creates an available tool.
func FixtureTool(overrides ...func(*models.Tool)) *models.Tool {
	id := uuid.New().String()

	tool := &models.Tool{
		ID:            "T-" + id[:8],
		Code:          "TL-" + id[:8],
		Name:          "Taladro percutor",
		Brand:         "Bosch",
		Category:      models.ToolCategoryPower,
		Status:        models.ToolStatusAvailable,
		Location:      "Estante A",
		PurchasePrice: decimal.NewFromInt(89990),
	}

	for _, override := range overrides {
		override(tool)
	}

	return tool
}

// FixtureTechnician creates an active technician.
func FixtureTechnician(overrides ...func(*models.Technician)) *models.Technician {
	id := uuid.New().String()

	tech := &models.Technician{
		ID:        "TEC-" + id[:6],
		Name:      "Pedro Soldador",
		Specialty: "Soldadura",
		Active:    true,
	}

	for _, override := range overrides {
		override(tech)
	}

	return tech
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ToolStatus represents the custody state of a tool.
type ToolStatus string

const (
	ToolStatusAvailable   ToolStatus = "AVAILABLE"
	ToolStatusInUse       ToolStatus = "IN_USE"
	ToolStatusMaintenance ToolStatus = "MAINTENANCE"
	ToolStatusBroken      ToolStatus = "BROKEN"
	ToolStatusRetired     ToolStatus = "RETIRED"
)

func (s ToolStatus) String() string {
	return string(s)
}

// IsValid reports whether s is a known tool status.
func (s ToolStatus) IsValid() bool {
	switch s {
	case ToolStatusAvailable, ToolStatusInUse, ToolStatusMaintenance,
		ToolStatusBroken, ToolStatusRetired:
		return true
	}
	return false
}

// ToolCategory groups tools in the crib.
type ToolCategory string

const (
	ToolCategoryPower       ToolCategory = "POWER_TOOLS"
	ToolCategoryHand        ToolCategory = "HAND_TOOLS"
	ToolCategoryMeasuring   ToolCategory = "MEASURING"
	ToolCategorySafety      ToolCategory = "SAFETY"
	ToolCategoryConsumables ToolCategory = "CONSUMABLES"
	ToolCategoryMachinery   ToolCategory = "MACHINERY"
)

// IsValid reports whether c is a known tool category.
func (c ToolCategory) IsValid() bool {
	switch c {
	case ToolCategoryPower, ToolCategoryHand, ToolCategoryMeasuring,
		ToolCategorySafety, ToolCategoryConsumables, ToolCategoryMachinery:
		return true
	}
	return false
}

// Tool is a shared, serial-tracked tool held in the crib.
type Tool struct {
	ID                  string               `json:"id"`
	Code                string               `json:"code"`
	Name                string               `json:"name"`
	Brand               string               `json:"brand,omitempty"`
	Model               string               `json:"model,omitempty"`
	SerialNumber        string               `json:"serialNumber,omitempty"`
	Category            ToolCategory         `json:"category"`
	Status              ToolStatus           `json:"status"`
	Location            string               `json:"location"`
	PurchaseDate        *time.Time           `json:"purchaseDate,omitempty"`
	PurchasePrice       decimal.Decimal      `json:"purchasePrice"`
	Provider            string               `json:"provider,omitempty"`
	InvoiceRef          string               `json:"invoiceRef,omitempty"`
	ActiveMaintenance   *MaintenanceDispatch `json:"activeMaintenance,omitempty"`
	NextMaintenanceDate *time.Time           `json:"nextMaintenanceDate,omitempty"`
	Description         string               `json:"description,omitempty"`
}

// MaintenanceDue reports whether scheduled maintenance is on or before now.
func (t *Tool) MaintenanceDue(now time.Time) bool {
	if t.NextMaintenanceDate == nil || t.Status == ToolStatusRetired {
		return false
	}
	return !t.NextMaintenanceDate.After(now)
}

// MaintenanceKind distinguishes in-house work from third-party service.
type MaintenanceKind string

const (
	MaintenanceInternal MaintenanceKind = "INTERNAL"
	MaintenanceExternal MaintenanceKind = "EXTERNAL"
)

// Urgency ranks a maintenance dispatch.
type Urgency string

const (
	UrgencyLow    Urgency = "LOW"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyHigh   Urgency = "HIGH"
)

// MaintenanceDispatch describes an open maintenance job on a tool.
type MaintenanceDispatch struct {
	Date                time.Time       `json:"date"`
	Type                MaintenanceKind `json:"type"`
	Urgency             Urgency         `json:"urgency"`
	Reason              string          `json:"reason"`
	Provider            string          `json:"provider"`
	Responsible         string          `json:"responsible,omitempty"`
	Reference           string          `json:"reference,omitempty"`
	EstimatedReturnDate *time.Time      `json:"estimatedReturnDate,omitempty"`
}

// LoanStatus is the state of a tool loan.
type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "ACTIVE"
	LoanStatusReturned LoanStatus = "RETURNED"
)

// ToolLoan records a checkout of a tool to a technician.
type ToolLoan struct {
	ID             string     `json:"id"`
	ToolID         string     `json:"toolId"`
	ToolName       string     `json:"toolName"`
	TechnicianID   string     `json:"technicianId"`
	TechnicianName string     `json:"technicianName"`
	WorkOrderID    string     `json:"workOrderId,omitempty"`
	LoanDate       time.Time  `json:"loanDate"`
	ReturnDate     *time.Time `json:"returnDate,omitempty"`
	ConditionOut   string     `json:"conditionOut"`
	ConditionIn    string     `json:"conditionIn,omitempty"`
	Status         LoanStatus `json:"status"`
}

// IsActive reports whether the tool is still out on this loan.
func (l *ToolLoan) IsActive() bool {
	return l.Status == LoanStatusActive
}

// MaintenanceType distinguishes scheduled from repair maintenance.
type MaintenanceType string

const (
	MaintenancePreventative MaintenanceType = "PREVENTATIVE"
	MaintenanceCorrective   MaintenanceType = "CORRECTIVE"
)

// ToolMaintenance is a completed maintenance record.
type ToolMaintenance struct {
	ID                string          `json:"id"`
	ToolID            string          `json:"toolId"`
	Type              MaintenanceType `json:"type"`
	Date              time.Time       `json:"date"`
	PerformedBy       string          `json:"performedBy"`
	Cost              decimal.Decimal `json:"cost"`
	InvoiceRef        string          `json:"invoiceRef,omitempty"`
	PurchaseOrder     string          `json:"purchaseOrder,omitempty"`
	Description       string          `json:"description"`
	NextScheduledDate *time.Time      `json:"nextScheduledDate,omitempty"`
}

// Clone returns a copy that shares no pointers with t.
func (t *Tool) Clone() *Tool {
	c := *t
	if t.ActiveMaintenance != nil {
		d := *t.ActiveMaintenance
		c.ActiveMaintenance = &d
	}
	return &c
}

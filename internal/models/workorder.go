package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WorkOrderStatus represents the lifecycle state of a work order.
type WorkOrderStatus string

const (
	WorkOrderStatusPending   WorkOrderStatus = "Pendiente"
	WorkOrderStatusInProcess WorkOrderStatus = "En Proceso"
	WorkOrderStatusWaiting   WorkOrderStatus = "En Espera"
	WorkOrderStatusFinished  WorkOrderStatus = "Finalizado"
	WorkOrderStatusCancelled WorkOrderStatus = "Cancelado"
)

func (s WorkOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether s is a known work order status.
func (s WorkOrderStatus) IsValid() bool {
	switch s {
	case WorkOrderStatusPending, WorkOrderStatusInProcess, WorkOrderStatusWaiting,
		WorkOrderStatusFinished, WorkOrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s WorkOrderStatus) IsTerminal() bool {
	return s == WorkOrderStatusFinished || s == WorkOrderStatusCancelled
}

// workOrderTransitions lists the permitted target states per source state.
var workOrderTransitions = map[WorkOrderStatus][]WorkOrderStatus{
	WorkOrderStatusPending:   {WorkOrderStatusInProcess, WorkOrderStatusWaiting, WorkOrderStatusCancelled},
	WorkOrderStatusInProcess: {WorkOrderStatusFinished, WorkOrderStatusWaiting, WorkOrderStatusCancelled},
	WorkOrderStatusWaiting:   {WorkOrderStatusInProcess, WorkOrderStatusFinished, WorkOrderStatusCancelled},
}

// CanTransitionTo reports whether the state machine permits s -> target.
func (s WorkOrderStatus) CanTransitionTo(target WorkOrderStatus) bool {
	for _, t := range workOrderTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Priority represents how urgently a work order must be handled.
type Priority string

const (
	PriorityLow    Priority = "Baja"
	PriorityMedium Priority = "Media"
	PriorityHigh   Priority = "Alta"
	PriorityUrgent Priority = "Urgente"
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Area is the shop section responsible for a work order.
type Area string

const (
	AreaCNC       Area = "CNC"
	AreaMechanics Area = "Mecánica"
	AreaWelding   Area = "Soldadura"
	AreaQuality   Area = "Calidad"
)

// IsValid reports whether a is a known shop area.
func (a Area) IsValid() bool {
	switch a {
	case AreaCNC, AreaMechanics, AreaWelding, AreaQuality:
		return true
	}
	return false
}

// WorkOrder is a unit of billable shop work.
type WorkOrder struct {
	ID                      string          `json:"id"`
	Title                   string          `json:"title"`
	ClientID                string          `json:"clientId"`
	Identification          string          `json:"identification,omitempty"`
	ClientGuide             string          `json:"clientGuide,omitempty"`
	ClientOC                string          `json:"clientOC,omitempty"`
	ReceptionDoc            string          `json:"receptionDoc,omitempty"`
	QuoteNumber             string          `json:"quoteNumber,omitempty"`
	QuotedValue             decimal.Decimal `json:"quotedValue"`
	Status                  WorkOrderStatus `json:"status"`
	IsBudgetApproved        bool            `json:"isBudgetApproved"`
	Priority                Priority        `json:"priority"`
	Area                    Area            `json:"area"`
	Machine                 string          `json:"machine,omitempty"`
	TechnicianID            string          `json:"technicianId,omitempty"`
	AssignedOperators       []string        `json:"assignedOperators,omitempty"`
	Materials               []MaterialUsage `json:"materials"`
	Labor                   []LaborEntry    `json:"labor"`
	Services                []ServiceEntry  `json:"services"`
	Tasks                   []Task          `json:"tasks"`
	Comments                []Comment       `json:"comments"`
	CreationDate            time.Time       `json:"creationDate"`
	StartDate               *time.Time      `json:"startDate,omitempty"`
	EstimatedCompletionDate time.Time       `json:"estimatedCompletionDate"`
	FinishedDate            *time.Time      `json:"finishedDate,omitempty"`
	Description             string          `json:"description,omitempty"`
	FinalNotes              string          `json:"finalNotes,omitempty"`
}

// MaterialUsage records stock consumed by a work order, priced at the moment of use.
type MaterialUsage struct {
	ItemID           string          `json:"itemId"`
	Name             string          `json:"name"`
	Quantity         float64         `json:"quantity"`
	UnitPriceAtUsage decimal.Decimal `json:"unitPriceAtUsage"`
	TotalCost        decimal.Decimal `json:"totalCost"`
	DateAdded        time.Time       `json:"dateAdded"`
}

// LaborEntry records technician hours booked against a work order.
type LaborEntry struct {
	ID             string          `json:"id"`
	TechnicianID   string          `json:"technicianId"`
	TechnicianName string          `json:"technicianName"`
	Hours          float64         `json:"hours"`
	HourlyRate     decimal.Decimal `json:"hourlyRate"`
	Date           time.Time       `json:"date"`
	Description    string          `json:"description,omitempty"`
}

// Cost returns hours multiplied by the hourly rate.
func (l LaborEntry) Cost() decimal.Decimal {
	return l.HourlyRate.Mul(decimal.NewFromFloat(l.Hours))
}

// ServiceEntry records an external service billed to a work order.
type ServiceEntry struct {
	ID           string          `json:"id"`
	Provider     string          `json:"provider"`
	Description  string          `json:"description"`
	Cost         decimal.Decimal `json:"cost"`
	ReferenceDoc string          `json:"referenceDoc,omitempty"`
	Date         time.Time       `json:"date"`
}

// Task is a checklist item on a work order.
type Task struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	IsCompleted bool       `json:"isCompleted"`
	CompletedBy string     `json:"completedBy,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Comment is a free-text note left on a work order.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// PendingTasks returns the number of tasks not yet completed.
func (w *WorkOrder) PendingTasks() int {
	n := 0
	for _, t := range w.Tasks {
		if !t.IsCompleted {
			n++
		}
	}
	return n
}

// MaterialsCost sums the cost of all consumed materials.
func (w *WorkOrder) MaterialsCost() decimal.Decimal {
	total := decimal.Zero
	for _, m := range w.Materials {
		total = total.Add(m.TotalCost)
	}
	return total
}

// LaborHours sums booked hours.
func (w *WorkOrder) LaborHours() float64 {
	var h float64
	for _, l := range w.Labor {
		h += l.Hours
	}
	return h
}

// LaborCost sums labor at each entry's hourly rate.
func (w *WorkOrder) LaborCost() decimal.Decimal {
	total := decimal.Zero
	for _, l := range w.Labor {
		total = total.Add(l.Cost())
	}
	return total
}

// ServicesCost sums external service costs.
func (w *WorkOrder) ServicesCost() decimal.Decimal {
	total := decimal.Zero
	for _, s := range w.Services {
		total = total.Add(s.Cost)
	}
	return total
}

// TotalCost is materials plus labor plus services.
func (w *WorkOrder) TotalCost() decimal.Decimal {
	return w.MaterialsCost().Add(w.LaborCost()).Add(w.ServicesCost())
}

// IsOverdue reports whether an open order has passed its estimated completion date.
func (w *WorkOrder) IsOverdue(now time.Time) bool {
	if w.Status.IsTerminal() {
		return false
	}
	return now.After(w.EstimatedCompletionDate)
}

// Clone returns a deep copy so callers can hold snapshots without aliasing ledger state.
func (w *WorkOrder) Clone() *WorkOrder {
	c := *w
	c.AssignedOperators = append([]string(nil), w.AssignedOperators...)
	c.Materials = append([]MaterialUsage(nil), w.Materials...)
	c.Labor = append([]LaborEntry(nil), w.Labor...)
	c.Services = append([]ServiceEntry(nil), w.Services...)
	c.Tasks = append([]Task(nil), w.Tasks...)
	c.Comments = append([]Comment(nil), w.Comments...)
	return &c
}

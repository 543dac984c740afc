package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/northchrome/opsledger/internal/models"
)

// Summary holds the headline counts shown on the dashboard.
type Summary struct {
	OpenOrders         int
	OverdueOrders      int
	AwaitingBudget     int
	FinishedOrders     int
	CriticalItems      int
	InventoryValue     decimal.Decimal
	ToolsAvailable     int
	ToolsOnLoan        int
	ToolsInMaintenance int
	ToolsBroken        int
	MaintenanceDue     int
}

// Summary computes dashboard counts from the current state.
func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	s := Summary{InventoryValue: decimal.Zero}

	for _, wo := range l.workOrders {
		switch {
		case wo.Status == models.WorkOrderStatusFinished:
			s.FinishedOrders++
		case wo.Status.IsTerminal():
		default:
			s.OpenOrders++
			if !wo.IsBudgetApproved {
				s.AwaitingBudget++
			}
			if wo.IsOverdue(now) {
				s.OverdueOrders++
			}
		}
	}

	for _, it := range l.inventory {
		if it.IsCritical() {
			s.CriticalItems++
		}
		s.InventoryValue = s.InventoryValue.Add(it.StockValue())
	}

	for _, t := range l.tools {
		switch t.Status {
		case models.ToolStatusAvailable:
			s.ToolsAvailable++
		case models.ToolStatusInUse:
			s.ToolsOnLoan++
		case models.ToolStatusMaintenance:
			s.ToolsInMaintenance++
		case models.ToolStatusBroken:
			s.ToolsBroken++
		}
		if t.MaintenanceDue(now) {
			s.MaintenanceDue++
		}
	}

	return s
}

package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/northchrome/opsledger/internal/ledger"
)

// actionMsg carries the outcome of a ledger operation back to Update.
type actionMsg struct {
	op       string
	text     string
	level    AlertLevel
	err      error
	fromForm bool
}

// ledgerCall performs one ledger operation and describes its outcome.
type ledgerCall func(ctx context.Context) (string, AlertLevel, error)

// run wraps a ledger call in a command.
func (a *App) run(op string, fromForm bool, call ledgerCall) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		text, level, err := call(ctx)
		return actionMsg{op: op, text: text, level: level, err: err, fromForm: fromForm}
	}
}

func (a *App) approveBudget(id string) tea.Cmd {
	return a.run("approve budget", false, func(ctx context.Context) (string, AlertLevel, error) {
		_, err := a.ledger.ApproveBudget(ctx, id)
		return fmt.Sprintf("Presupuesto aprobado: %s", id), AlertInfo, err
	})
}

func (a *App) startWorkOrder(id string) tea.Cmd {
	return a.run("start work order", false, func(ctx context.Context) (string, AlertLevel, error) {
		_, err := a.ledger.StartWorkOrder(ctx, id)
		return fmt.Sprintf("Orden %s en proceso", id), AlertInfo, err
	})
}

func (a *App) pauseWorkOrder(id string) tea.Cmd {
	return a.run("pause work order", false, func(ctx context.Context) (string, AlertLevel, error) {
		_, err := a.ledger.PauseWorkOrder(ctx, id)
		return fmt.Sprintf("Orden %s en espera", id), AlertInfo, err
	})
}

func (a *App) resumeWorkOrder(id string) tea.Cmd {
	return a.run("resume work order", false, func(ctx context.Context) (string, AlertLevel, error) {
		_, err := a.ledger.ResumeWorkOrder(ctx, id)
		return fmt.Sprintf("Orden %s reanudada", id), AlertInfo, err
	})
}

func (a *App) cancelWorkOrder(id string) tea.Cmd {
	return a.run("cancel work order", false, func(ctx context.Context) (string, AlertLevel, error) {
		_, err := a.ledger.CancelWorkOrder(ctx, id)
		return fmt.Sprintf("Orden %s cancelada", id), AlertWarning, err
	})
}

func (a *App) finishWorkOrder(id, notes string) tea.Cmd {
	return a.run("finish work order", true, func(ctx context.Context) (string, AlertLevel, error) {
		res, err := a.ledger.FinishWorkOrder(ctx, id, notes)
		if err != nil {
			return "", AlertWarning, err
		}
		if res.PendingTasks > 0 {
			return fmt.Sprintf("Orden %s finalizada con %d tareas pendientes", id, res.PendingTasks), AlertWarning, nil
		}
		return fmt.Sprintf("Orden %s finalizada", id), AlertInfo, nil
	})
}

func (a *App) createWorkOrder(input ledger.CreateWorkOrderInput) tea.Cmd {
	return a.run("create work order", true, func(ctx context.Context) (string, AlertLevel, error) {
		wo, err := a.ledger.CreateWorkOrder(ctx, input)
		if err != nil {
			return "", AlertWarning, err
		}
		return fmt.Sprintf("Orden %s creada", wo.ID), AlertInfo, nil
	})
}

func (a *App) receiveStock(input ledger.ReceiveInput) tea.Cmd {
	return a.run("receive", true, func(ctx context.Context) (string, AlertLevel, error) {
		doc, err := a.ledger.Receive(ctx, input)
		if err != nil {
			return "", AlertWarning, err
		}
		return fmt.Sprintf("Recepción %s registrada", doc.ID), AlertInfo, nil
	})
}

func (a *App) consumeStock(input ledger.ConsumeInput) tea.Cmd {
	return a.run("consume", true, func(ctx context.Context) (string, AlertLevel, error) {
		rec, err := a.ledger.Consume(ctx, input)
		if err != nil {
			return "", AlertWarning, err
		}
		return fmt.Sprintf("Despacho %s a %s", rec.ID, input.WorkOrderID), AlertInfo, nil
	})
}

func (a *App) checkoutTool(input ledger.CheckoutInput) tea.Cmd {
	return a.run("checkout", true, func(ctx context.Context) (string, AlertLevel, error) {
		loan, err := a.ledger.Checkout(ctx, input)
		if err != nil {
			return "", AlertWarning, err
		}
		return fmt.Sprintf("Préstamo %s a %s", loan.ID, loan.TechnicianName), AlertInfo, nil
	})
}

func (a *App) checkinTool(loanID, condition string) tea.Cmd {
	return a.run("checkin", true, func(ctx context.Context) (string, AlertLevel, error) {
		loan, err := a.ledger.Checkin(ctx, loanID, condition, "")
		if err != nil {
			return "", AlertWarning, err
		}
		if condition == ledger.ConditionDamaged {
			return fmt.Sprintf("Devolución %s: herramienta dañada", loan.ID), AlertWarning, nil
		}
		return fmt.Sprintf("Devolución %s registrada", loan.ID), AlertInfo, nil
	})
}

func (a *App) sendToMaintenance(toolID string, input ledger.DispatchInput) tea.Cmd {
	return a.run("send to maintenance", true, func(ctx context.Context) (string, AlertLevel, error) {
		tool, err := a.ledger.SendToMaintenance(ctx, toolID, input)
		if err != nil {
			return "", AlertWarning, err
		}
		return fmt.Sprintf("%s enviada a mantención", tool.Code), AlertInfo, nil
	})
}

func (a *App) returnFromMaintenance(toolID string, outcome ledger.MaintenanceOutcome) tea.Cmd {
	return a.run("return from maintenance", true, func(ctx context.Context) (string, AlertLevel, error) {
		rec, err := a.ledger.ReturnFromMaintenance(ctx, toolID, outcome)
		if err != nil {
			return "", AlertWarning, err
		}
		return fmt.Sprintf("Mantención %s cerrada", rec.ID), AlertInfo, nil
	})
}

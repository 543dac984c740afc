// Package workorders provides TUI views for the work order board.
package workorders

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/northchrome/opsledger/internal/models"
	"github.com/northchrome/opsledger/internal/tui/components"
	"github.com/northchrome/opsledger/internal/util"
)

// Source supplies the work orders the view lists.
type Source interface {
	WorkOrders() []*models.WorkOrder
}

// Filter selects which orders the board shows.
type Filter int

const (
	FilterOpen Filter = iota
	FilterAll
	FilterOverdue
)

func (f Filter) String() string {
	switch f {
	case FilterAll:
		return "Todas"
	case FilterOverdue:
		return "Atrasadas"
	default:
		return "Abiertas"
	}
}

// Next returns the filter that follows f in the cycle.
func (f Filter) Next() Filter {
	return (f + 1) % 3
}

// ListView displays the work order board.
type ListView struct {
	source     Source
	table      *components.Table
	styles     components.Styles
	orders     []*models.WorkOrder
	filter     Filter
	now        time.Time
	dateFormat string
}

// NewListView creates a new work order board.
func NewListView(source Source, styles components.Styles, dateFormat string) *ListView {
	columns := []components.Column{
		{Title: "OT", Width: 9, Priority: 10},
		{Title: "Título", Width: 18, Weight: 2, Priority: 9},
		{Title: "Cliente", Width: 14, Weight: 1, Priority: 5},
		{Title: "Estado", Width: 10, Priority: 8},
		{Title: "Prioridad", Width: 9, Priority: 4},
		{Title: "Técnico", Width: 7, Priority: 2},
		{Title: "Entrega", Width: 12, Priority: 6},
		{Title: "Costo", Width: 12, Align: lipgloss.Right, Priority: 3},
	}

	table := components.NewTable(columns)
	table.ApplyStyles(styles)
	table.SetVisibleRows(15)
	table.Focus(true)

	if dateFormat == "" {
		dateFormat = "2006-01-02"
	}

	return &ListView{
		source:     source,
		table:      table,
		styles:     styles,
		dateFormat: dateFormat,
		now:        time.Now().UTC(),
	}
}

// SetNow sets the instant overdue orders are measured against.
func (v *ListView) SetNow(t time.Time) {
	v.now = t
}

// Filter returns the active filter.
func (v *ListView) Filter() Filter {
	return v.filter
}

// CycleFilter moves to the next filter and reloads.
func (v *ListView) CycleFilter() {
	v.filter = v.filter.Next()
	v.table.GoToTop()
	v.Load()
}

// Load refreshes the board from the source.
func (v *ListView) Load() {
	v.orders = nil
	if v.source != nil {
		for _, wo := range v.source.WorkOrders() {
			if v.keep(wo) {
				v.orders = append(v.orders, wo)
			}
		}
	}

	rows := make([][]string, len(v.orders))
	for i, wo := range v.orders {
		due := wo.EstimatedCompletionDate.Format(v.dateFormat)
		if wo.IsOverdue(v.now) {
			due = "! " + due
		}
		tech := wo.TechnicianID
		if tech == "" {
			tech = "-"
		}
		rows[i] = []string{
			wo.ID,
			wo.Title,
			wo.ClientID,
			string(wo.Status),
			string(wo.Priority),
			tech,
			due,
			util.FormatMoney(wo.TotalCost()),
		}
	}
	v.table.SetRows(rows)
}

func (v *ListView) keep(wo *models.WorkOrder) bool {
	switch v.filter {
	case FilterAll:
		return true
	case FilterOverdue:
		return wo.IsOverdue(v.now)
	default:
		return !wo.Status.IsTerminal()
	}
}

// MoveUp moves the selection up.
func (v *ListView) MoveUp() {
	v.table.MoveUp()
}

// MoveDown moves the selection down.
func (v *ListView) MoveDown() {
	v.table.MoveDown()
}

// Selected returns the highlighted order, or nil when the board is empty.
func (v *ListView) Selected() *models.WorkOrder {
	idx := v.table.Selected()
	if idx >= 0 && idx < len(v.orders) {
		return v.orders[idx]
	}
	return nil
}

// Count returns the number of orders on the board.
func (v *ListView) Count() int {
	return len(v.orders)
}

// Render renders the board.
func (v *ListView) Render(width, height int) string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("=== ÓRDENES DE TRABAJO ==="))
	b.WriteString("\n\n")
	b.WriteString(v.styles.Label.Render("Filtro: "))
	b.WriteString(v.styles.Value.Render(fmt.Sprintf("%s (%d)", v.filter, len(v.orders))))
	b.WriteString("\n\n")

	if height > 12 {
		v.table.SetVisibleRows(height - 10)
	}

	if v.table.Empty() {
		b.WriteString(v.styles.Label.Render("No hay órdenes para este filtro."))
		b.WriteString("\n")
	} else {
		b.WriteString(v.table.RenderResponsive(width))
	}

	b.WriteString("\n")
	if width > 0 && width < 80 {
		b.WriteString(v.styles.Help.Render("Enter:Ver  t:Filtro  n:Nueva  a/s/f/w/r/x"))
	} else {
		b.WriteString(v.styles.Help.Render("Arriba/Abajo:Elegir  Enter:Detalle  t:Filtro  n:Nueva  a:Aprobar  s:Iniciar  f:Finalizar  w:Pausar  r:Reanudar  x:Cancelar"))
	}

	return b.String()
}

// RenderDetail renders the full record of one order.
func (v *ListView) RenderDetail(wo *models.WorkOrder) string {
	label := v.styles.Label.Width(20)
	value := v.styles.Value

	if wo == nil {
		return label.Render("Ninguna orden seleccionada")
	}

	var b strings.Builder
	line := func(name, text string) {
		b.WriteString(label.Render(name+":") + " " + value.Render(text) + "\n")
	}

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("=== %s · %s ===", wo.ID, wo.Title)))
	b.WriteString("\n\n")

	b.WriteString(v.styles.Section.Render("ORDEN"))
	b.WriteString("\n")
	line("Cliente", wo.ClientID)
	status := string(wo.Status)
	if !wo.IsBudgetApproved {
		status += " (presupuesto pendiente)"
	}
	line("Estado", status)
	line("Prioridad", string(wo.Priority))
	line("Área", string(wo.Area))
	if wo.Machine != "" {
		line("Máquina", wo.Machine)
	}
	if wo.TechnicianID != "" {
		line("Técnico", wo.TechnicianID)
	}
	if len(wo.AssignedOperators) > 0 {
		line("Operadores", strings.Join(wo.AssignedOperators, ", "))
	}
	if wo.QuoteNumber != "" {
		line("Cotización", wo.QuoteNumber+" "+util.FormatMoney(wo.QuotedValue))
	}
	b.WriteString("\n")

	b.WriteString(v.styles.Section.Render("FECHAS"))
	b.WriteString("\n")
	line("Creación", wo.CreationDate.Format(v.dateFormat))
	if wo.StartDate != nil {
		line("Inicio", wo.StartDate.Format(v.dateFormat))
	}
	due := wo.EstimatedCompletionDate.Format(v.dateFormat)
	if wo.IsOverdue(v.now) {
		b.WriteString(label.Render("Entrega:") + " " + v.styles.Error.Render(due+" ATRASADA") + "\n")
	} else {
		line("Entrega", due)
	}
	if wo.FinishedDate != nil {
		line("Término", wo.FinishedDate.Format(v.dateFormat))
	}
	b.WriteString("\n")

	b.WriteString(v.styles.Section.Render("COSTOS"))
	b.WriteString("\n")
	line("Materiales", util.FormatMoney(wo.MaterialsCost()))
	line("Mano de obra", fmt.Sprintf("%s (%.1f h)", util.FormatMoney(wo.LaborCost()), wo.LaborHours()))
	line("Servicios", util.FormatMoney(wo.ServicesCost()))
	line("Total", util.FormatMoney(wo.TotalCost()))
	b.WriteString("\n")

	if len(wo.Tasks) > 0 {
		b.WriteString(v.styles.Section.Render(fmt.Sprintf("TAREAS (%d pendientes)", wo.PendingTasks())))
		b.WriteString("\n")
		for _, task := range wo.Tasks {
			mark := "[ ]"
			if task.IsCompleted {
				mark = "[x]"
			}
			b.WriteString(value.Render(mark+" "+task.Description) + "\n")
		}
		b.WriteString("\n")
	}

	if len(wo.Comments) > 0 {
		b.WriteString(v.styles.Section.Render("COMENTARIOS"))
		b.WriteString("\n")
		for _, c := range wo.Comments {
			b.WriteString(v.styles.Muted.Render(c.Timestamp.Format(v.dateFormat)+" "+c.Author+": ") + value.Render(c.Text) + "\n")
		}
		b.WriteString("\n")
	}

	if wo.FinalNotes != "" {
		line("Notas finales", wo.FinalNotes)
		b.WriteString("\n")
	}

	b.WriteString(v.styles.Help.Render("Esc:Volver  a:Aprobar  s:Iniciar  f:Finalizar  w:Pausar  r:Reanudar  x:Cancelar"))

	return b.String()
}

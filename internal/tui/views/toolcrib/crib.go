// Package toolcrib provides TUI views for tool custody.
package toolcrib

import (
	"fmt"
	"strings"
	"time"

	"github.com/northchrome/opsledger/internal/models"
	"github.com/northchrome/opsledger/internal/tui/components"
	"github.com/northchrome/opsledger/internal/util"
)

// Source supplies tools and their custody records.
type Source interface {
	Tools() []*models.Tool
	ActiveLoans() []models.ToolLoan
	Maintenances() []models.ToolMaintenance
}

// statusLabels maps tool statuses to their display names.
var statusLabels = map[models.ToolStatus]string{
	models.ToolStatusAvailable:   "Disponible",
	models.ToolStatusInUse:       "Prestada",
	models.ToolStatusMaintenance: "Mantención",
	models.ToolStatusBroken:      "Dañada",
	models.ToolStatusRetired:     "De baja",
}

// StatusLabel returns the display name of s.
func StatusLabel(s models.ToolStatus) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// CribView displays the tool crib with the loans currently out.
type CribView struct {
	source     Source
	table      *components.Table
	styles     components.Styles
	tools      []*models.Tool
	loans      map[string]models.ToolLoan // by tool id
	now        time.Time
	dateFormat string
}

// NewCribView creates a new tool crib view.
func NewCribView(source Source, styles components.Styles, dateFormat string) *CribView {
	columns := []components.Column{
		{Title: "Código", Width: 8, Priority: 10},
		{Title: "Herramienta", Width: 20, Weight: 1, Priority: 9},
		{Title: "Marca", Width: 10, Priority: 3},
		{Title: "Estado", Width: 10, Priority: 8},
		{Title: "Ubicación", Width: 9, Priority: 4},
		{Title: "Custodia", Width: 16, Weight: 1, Priority: 7},
		{Title: "Próx. mant.", Width: 12, Priority: 5},
	}

	table := components.NewTable(columns)
	table.ApplyStyles(styles)
	table.SetVisibleRows(12)
	table.Focus(true)

	if dateFormat == "" {
		dateFormat = "2006-01-02"
	}

	return &CribView{
		source:     source,
		table:      table,
		styles:     styles,
		loans:      map[string]models.ToolLoan{},
		now:        time.Now().UTC(),
		dateFormat: dateFormat,
	}
}

// SetNow sets the instant maintenance schedules are measured against.
func (v *CribView) SetNow(t time.Time) {
	v.now = t
}

// Load refreshes the crib from the source.
func (v *CribView) Load() {
	v.tools = nil
	v.loans = map[string]models.ToolLoan{}
	if v.source != nil {
		v.tools = v.source.Tools()
		for _, loan := range v.source.ActiveLoans() {
			v.loans[loan.ToolID] = loan
		}
	}

	rows := make([][]string, len(v.tools))
	for i, t := range v.tools {
		rows[i] = []string{
			t.Code,
			t.Name,
			t.Brand,
			StatusLabel(t.Status),
			t.Location,
			v.custody(t),
			v.nextMaintenance(t),
		}
	}
	v.table.SetRows(rows)
}

func (v *CribView) custody(t *models.Tool) string {
	if loan, ok := v.loans[t.ID]; ok {
		return loan.TechnicianName
	}
	if t.ActiveMaintenance != nil {
		return t.ActiveMaintenance.Provider
	}
	return "-"
}

func (v *CribView) nextMaintenance(t *models.Tool) string {
	if t.NextMaintenanceDate == nil {
		return "-"
	}
	s := t.NextMaintenanceDate.Format(v.dateFormat)
	if t.MaintenanceDue(v.now) {
		s = "! " + s
	}
	return s
}

// MoveUp moves the selection up.
func (v *CribView) MoveUp() {
	v.table.MoveUp()
}

// MoveDown moves the selection down.
func (v *CribView) MoveDown() {
	v.table.MoveDown()
}

// Selected returns the highlighted tool, or nil when the crib is empty.
func (v *CribView) Selected() *models.Tool {
	idx := v.table.Selected()
	if idx >= 0 && idx < len(v.tools) {
		return v.tools[idx]
	}
	return nil
}

// LoanFor returns the open loan of toolID, if any.
func (v *CribView) LoanFor(toolID string) (models.ToolLoan, bool) {
	loan, ok := v.loans[toolID]
	return loan, ok
}

// Count returns the number of tools listed.
func (v *CribView) Count() int {
	return len(v.tools)
}

// Render renders the crib and the loans currently out.
func (v *CribView) Render(width, height int) string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("=== PAÑOL DE HERRAMIENTAS ==="))
	b.WriteString("\n\n")

	if height > 20 {
		v.table.SetVisibleRows(height - 18)
	}

	if v.table.Empty() {
		b.WriteString(v.styles.Label.Render("No hay herramientas registradas."))
		b.WriteString("\n")
	} else {
		b.WriteString(v.table.RenderResponsive(width))
	}
	b.WriteString("\n")

	b.WriteString(v.styles.Section.Render(fmt.Sprintf("PRÉSTAMOS ACTIVOS (%d)", len(v.loans))))
	b.WriteString("\n")
	if len(v.loans) == 0 {
		b.WriteString(v.styles.Muted.Render("Sin préstamos activos") + "\n")
	}
	for _, t := range v.tools {
		loan, ok := v.loans[t.ID]
		if !ok {
			continue
		}
		wo := loan.WorkOrderID
		if wo == "" {
			wo = "-"
		}
		b.WriteString(fmt.Sprintf("%-8s %-22s %-18s %-10s %s\n",
			t.Code, loan.TechnicianName, util.RelativeTimeString(loan.LoanDate, v.now), wo, loan.ID))
	}

	b.WriteString("\n")
	if width > 0 && width < 80 {
		b.WriteString(v.styles.Help.Render("l:Prestar  v:Devolver  m:Mant  b:Volver"))
	} else {
		b.WriteString(v.styles.Help.Render("Arriba/Abajo:Elegir  Enter:Detalle  l:Prestar  v:Devolver  m:A mantención  b:De mantención"))
	}

	return b.String()
}

// RenderDetail renders one tool with its custody and maintenance history.
func (v *CribView) RenderDetail(t *models.Tool) string {
	label := v.styles.Label.Width(20)
	value := v.styles.Value

	if t == nil {
		return label.Render("Ninguna herramienta seleccionada")
	}

	var b strings.Builder
	line := func(name, text string) {
		if text == "" {
			return
		}
		b.WriteString(label.Render(name+":") + " " + value.Render(text) + "\n")
	}

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("=== %s · %s ===", t.Code, t.Name)))
	b.WriteString("\n\n")

	b.WriteString(v.styles.Section.Render("HERRAMIENTA"))
	b.WriteString("\n")
	line("Marca", t.Brand)
	line("Modelo", t.Model)
	line("N° serie", t.SerialNumber)
	line("Categoría", string(t.Category))
	line("Estado", StatusLabel(t.Status))
	line("Ubicación", t.Location)
	if t.PurchaseDate != nil {
		line("Compra", t.PurchaseDate.Format(v.dateFormat)+" "+util.FormatMoney(t.PurchasePrice))
	}
	if t.NextMaintenanceDate != nil {
		next := t.NextMaintenanceDate.Format(v.dateFormat)
		if t.MaintenanceDue(v.now) {
			b.WriteString(label.Render("Próx. mantención:") + " " + v.styles.Warning.Render(next+" VENCIDA") + "\n")
		} else {
			line("Próx. mantención", next)
		}
	}
	b.WriteString("\n")

	if loan, ok := v.loans[t.ID]; ok {
		b.WriteString(v.styles.Section.Render("PRÉSTAMO"))
		b.WriteString("\n")
		line("Técnico", loan.TechnicianName)
		line("Orden", loan.WorkOrderID)
		line("Desde", loan.LoanDate.Format(v.dateFormat))
		line("Condición salida", loan.ConditionOut)
		b.WriteString("\n")
	}

	if m := t.ActiveMaintenance; m != nil {
		b.WriteString(v.styles.Section.Render("EN MANTENCIÓN"))
		b.WriteString("\n")
		line("Tipo", string(m.Type))
		line("Urgencia", string(m.Urgency))
		line("Motivo", m.Reason)
		line("Proveedor", m.Provider)
		line("Desde", m.Date.Format(v.dateFormat))
		if m.EstimatedReturnDate != nil {
			line("Retorno estimado", m.EstimatedReturnDate.Format(v.dateFormat))
		}
		b.WriteString("\n")
	}

	var history []models.ToolMaintenance
	if v.source != nil {
		for _, rec := range v.source.Maintenances() {
			if rec.ToolID == t.ID {
				history = append(history, rec)
			}
		}
	}
	if len(history) > 0 {
		b.WriteString(v.styles.Section.Render("HISTORIAL DE MANTENCIÓN"))
		b.WriteString("\n")
		for _, rec := range history {
			b.WriteString(fmt.Sprintf("%s  %-12s %-16s %s  %s\n",
				rec.Date.Format(v.dateFormat), rec.Type, rec.PerformedBy, util.FormatMoney(rec.Cost), rec.Description))
		}
		b.WriteString("\n")
	}

	b.WriteString(v.styles.Help.Render("Esc:Volver  l:Prestar  v:Devolver  m:A mantención  b:De mantención"))

	return b.String()
}

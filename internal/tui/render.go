package tui

import (
	"fmt"
	"strings"

	"github.com/northchrome/opsledger/internal/models"
	"github.com/northchrome/opsledger/internal/util"
)

const (
	activityPageSize = 15
	recentActivity   = 5
)

// renderDashboard renders the F2 overview.
func (a *App) renderDashboard(width int) string {
	s := a.ledger.Summary()
	colWidth := max((width-2)/2, 30)

	var orders strings.Builder
	fmt.Fprintf(&orders, "%s %d\n", a.theme.Label.Render("Abiertas:       "), s.OpenOrders)
	fmt.Fprintf(&orders, "%s %s\n", a.theme.Label.Render("Atrasadas:      "), a.countStyle(s.OverdueOrders, true))
	fmt.Fprintf(&orders, "%s %s\n", a.theme.Label.Render("Sin presupuesto:"), a.countStyle(s.AwaitingBudget, false))
	fmt.Fprintf(&orders, "%s %d", a.theme.Label.Render("Finalizadas:    "), s.FinishedOrders)

	var stock strings.Builder
	fmt.Fprintf(&stock, "%s %s\n", a.theme.Label.Render("Stock crítico:"), a.countStyle(s.CriticalItems, true))
	fmt.Fprintf(&stock, "%s %s", a.theme.Label.Render("Valorizado:   "), a.theme.Value.Render(util.FormatMoney(s.InventoryValue)))
	for _, item := range a.ledger.CriticalItems() {
		fmt.Fprintf(&stock, "\n  %s", a.theme.Warning.Render(Truncate(fmt.Sprintf("%s %s (%g/%g)", item.SKU, item.Name, item.Stock, item.MinStock), colWidth-6)))
	}

	totalTools := s.ToolsAvailable + s.ToolsOnLoan + s.ToolsInMaintenance + s.ToolsBroken
	var tools strings.Builder
	fmt.Fprintf(&tools, "%s %d\n", a.theme.Label.Render("Disponibles:  "), s.ToolsAvailable)
	fmt.Fprintf(&tools, "%s %d\n", a.theme.Label.Render("Prestadas:    "), s.ToolsOnLoan)
	fmt.Fprintf(&tools, "%s %d\n", a.theme.Label.Render("En mantención:"), s.ToolsInMaintenance)
	fmt.Fprintf(&tools, "%s %s\n", a.theme.Label.Render("Dañadas:      "), a.countStyle(s.ToolsBroken, true))
	fmt.Fprintf(&tools, "%s %s\n", a.theme.Label.Render("Mant. vencida:"), a.countStyle(s.MaintenanceDue, false))
	fmt.Fprintf(&tools, "%s %s", a.theme.Label.Render("En uso:       "), a.theme.Gauge(s.ToolsOnLoan, totalTools, 16))

	var recent strings.Builder
	entries, _ := a.ledger.ActivityPage(models.Pagination{Page: 1, PageSize: recentActivity})
	if len(entries) == 0 {
		recent.WriteString(a.theme.Muted.Render("Sin actividad registrada"))
	}
	for i, e := range entries {
		if i > 0 {
			recent.WriteString("\n")
		}
		when := util.RelativeTimeString(e.Timestamp, a.clock.Now())
		recent.WriteString(a.theme.Muted.Render(PadRight(when, 14)) + " " + Truncate(e.Details, colWidth-20))
	}

	top := SideBySide(
		a.theme.Panel("ÓRDENES DE TRABAJO", orders.String(), colWidth),
		a.theme.Panel("INVENTARIO", stock.String(), colWidth),
		width, 2,
	)
	bottom := SideBySide(
		a.theme.Panel("PAÑOL", tools.String(), colWidth),
		a.theme.Panel("ACTIVIDAD RECIENTE", recent.String(), colWidth),
		width, 2,
	)

	return a.theme.Title.Render("=== PANEL DE CONTROL ===") + "\n\n" + top + "\n" + bottom
}

// countStyle highlights non-zero counts that need attention.
func (a *App) countStyle(n int, critical bool) string {
	text := fmt.Sprintf("%d", n)
	switch {
	case n == 0:
		return a.theme.Value.Render(text)
	case critical:
		return a.theme.Error.Render(text)
	default:
		return a.theme.Warning.Render(text)
	}
}

func (a *App) activityPagination() models.Pagination {
	return models.Pagination{Page: max(a.activityPage, 1), PageSize: activityPageSize}
}

// renderActivity renders one page of the audit log, newest first.
func (a *App) renderActivity(width int) string {
	p := a.activityPagination()
	entries, total := a.ledger.ActivityPage(p)

	var b strings.Builder
	b.WriteString(a.theme.Title.Render("=== REGISTRO DE ACTIVIDAD ==="))
	b.WriteString("\n\n")

	if total == 0 {
		b.WriteString(a.theme.Muted.Render("Sin actividad registrada."))
		return b.String()
	}

	layout := a.config.Display.DateFormat + " " + a.config.Display.TimeFormat
	detailWidth := max(width-len(layout)-20, 10)
	for _, e := range entries {
		b.WriteString(a.theme.Muted.Render(e.Timestamp.Format(layout)))
		b.WriteString("  ")
		b.WriteString(a.theme.Label.Render(PadRight(string(e.Entity), 12)))
		b.WriteString(a.theme.Value.Render(Truncate(e.Details, detailWidth)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(a.theme.Muted.Render(fmt.Sprintf("Página %d/%d | %d registros", p.Page, p.TotalPages(total), total)))
	b.WriteString("\n")
	b.WriteString(a.theme.Label.Render("PgUp/PgDn:Página  Home:Inicio"))
	return b.String()
}

// renderHelp renders the key reference.
func (a *App) renderHelp() string {
	sections := []struct {
		title string
		keys  [][2]string
	}{
		{"GENERAL", [][2]string{
			{"F1 / ?", "Esta ayuda"},
			{"F2-F6", "Panel, Órdenes, Inventario, Pañol, Actividad"},
			{"Enter / Esc", "Ver detalle / Volver"},
			{"q / F10", "Salir"},
		}},
		{"ÓRDENES DE TRABAJO", [][2]string{
			{"n", "Nueva orden"},
			{"t", "Cambiar filtro"},
			{"a", "Aprobar presupuesto"},
			{"s / f", "Iniciar / Finalizar"},
			{"w / r", "Pausar / Reanudar"},
			{"x", "Cancelar orden"},
		}},
		{"INVENTARIO", [][2]string{
			{"c", "Solo stock crítico"},
			{"e", "Recepción de material"},
			{"d", "Despacho a una OT"},
		}},
		{"PAÑOL", [][2]string{
			{"l / v", "Prestar / Devolver"},
			{"m / b", "Enviar a / Volver de mantención"},
		}},
	}

	var b strings.Builder
	b.WriteString(a.theme.Title.Render("=== AYUDA ==="))
	b.WriteString("\n")
	for _, sec := range sections {
		b.WriteString("\n")
		b.WriteString(a.theme.Bold.Render(sec.title))
		b.WriteString("\n")
		for _, k := range sec.keys {
			b.WriteString("  ")
			b.WriteString(a.theme.StatusKey.Render(PadRight(k[0], 14)))
			b.WriteString(a.theme.Value.Render(k[1]))
			b.WriteString("\n")
		}
	}
	return b.String()
}

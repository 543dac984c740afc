package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/northchrome/opsledger/internal/config"
	"github.com/northchrome/opsledger/internal/ledger"
	"github.com/northchrome/opsledger/internal/tui/views/inventory"
	"github.com/northchrome/opsledger/internal/tui/views/toolcrib"
	"github.com/northchrome/opsledger/internal/tui/views/workorders"
	"github.com/northchrome/opsledger/internal/util"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// MaxContentWidth is the maximum width for content display
const MaxContentWidth = 120

// chromeLines counts the header, alert bar and footer lines around the content.
const chromeLines = 6

// maxAlerts caps the alert history.
const maxAlerts = 10

// Module represents a view module in the application.
type Module string

const (
	ModuleDashboard  Module = "dashboard"
	ModuleWorkOrders Module = "workorders"
	ModuleInventory  Module = "inventory"
	ModuleToolCrib   Module = "toolcrib"
	ModuleActivity   Module = "activity"
	ModuleHelp       Module = "help"
)

// App is the main Bubble Tea application model.
type App struct {
	// Dependencies
	ctx    context.Context
	ledger *ledger.Ledger
	config *config.Config
	clock  util.Clock
	log    *slog.Logger

	// Views
	workOrders *workorders.ListView
	stock      *inventory.StockView
	crib       *toolcrib.CribView

	// UI state
	theme    *Theme
	keys     KeyMap
	width    int
	height   int
	ready    bool
	quitting bool

	// Current view
	currentModule  Module
	previousModule Module
	showDetail     bool
	form           *activeForm
	confirm        *confirmation
	activityPage   int

	// Alerts
	alerts []Alert
}

// confirmation is a yes/no modal. A quit confirmation ends the program;
// any other runs action on yes.
type confirmation struct {
	title  string
	prompt string
	quit   bool
	action tea.Cmd
}

// Alert represents a message shown in the alert bar.
type Alert struct {
	Level   AlertLevel
	Message string
	Time    time.Time
}

// AlertLevel indicates the severity of an alert.
type AlertLevel int

const (
	AlertInfo AlertLevel = iota
	AlertWarning
	AlertCritical
)

// tickMsg is sent periodically to update the UI.
type tickMsg time.Time

// New creates a new App instance.
func New(l *ledger.Ledger, cfg *config.Config, clock util.Clock) *App {
	if clock == nil {
		clock = util.SystemClock{}
	}
	theme := NewTheme(cfg.Display.ColorScheme)
	styles := theme.Components()

	a := &App{
		ctx:           context.Background(),
		ledger:        l,
		config:        cfg,
		clock:         clock,
		log:           slog.Default().With("component", "tui"),
		workOrders:    workorders.NewListView(l, styles, cfg.Display.DateFormat),
		stock:         inventory.NewStockView(l, styles, cfg.Display.DateFormat),
		crib:          toolcrib.NewCribView(l, styles, cfg.Display.DateFormat),
		theme:         theme,
		keys:          DefaultKeyMap(),
		currentModule: ModuleDashboard,
		alerts:        []Alert{},
	}
	a.reload()
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tickCmd(),
	)
}

// tickCmd returns a command that sends tick messages.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// reload refreshes every view from the ledger.
func (a *App) reload() {
	now := a.clock.Now()
	a.workOrders.SetNow(now)
	a.crib.SetNow(now)
	a.workOrders.Load()
	a.stock.Load()
	a.crib.Load()
}

// updateViewDimensions sizes the views to the terminal.
func (a *App) updateViewDimensions() {
	a.reload()
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.updateViewDimensions()
		return a, nil

	case tickMsg:
		now := a.clock.Now()
		a.workOrders.SetNow(now)
		a.crib.SetNow(now)
		return a, tickCmd()

	case actionMsg:
		a.handleAction(msg)
		return a, nil
	}

	return a, nil
}

// handleAction applies the outcome of a ledger command.
func (a *App) handleAction(msg actionMsg) {
	a.reload()

	if msg.err != nil {
		text := strings.Join(ledger.Messages(msg.err), "; ")
		a.log.Info("operation refused", "op", msg.op, "error", msg.err)
		if msg.fromForm && a.form != nil {
			a.form.form.Reopen(text)
		}
		a.AddAlert(AlertWarning, text)
		return
	}

	if msg.fromForm {
		a.form = nil
	}
	a.AddAlert(msg.level, msg.text)
}

// handleKeyPress processes key press events.
func (a *App) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Confirmation modal takes priority
	if a.confirm != nil {
		switch msg.String() {
		case "y", "Y", "s", "S", "enter":
			c := a.confirm
			a.confirm = nil
			if c.quit {
				a.quitting = true
				return a, tea.Quit
			}
			return a, c.action
		case "n", "N", "esc":
			a.confirm = nil
		}
		return a, nil
	}

	// Forms need all input, so they come before global keys
	if a.form != nil {
		return a.handleFormKeys(msg)
	}

	if a.keys.IsQuit(msg) {
		a.confirm = &confirmation{
			title:  "CONFIRMAR SALIDA",
			prompt: "¿Desea salir del sistema?",
			quit:   true,
		}
		return a, nil
	}

	if a.keys.IsFunctionKey(msg) || a.keys.Help.Matches(msg) {
		a.switchModule(a.keys.ModuleFor(msg))
		return a, nil
	}

	if a.keys.Back.Matches(msg) {
		if a.showDetail {
			a.showDetail = false
			return a, nil
		}
		if a.currentModule == ModuleHelp && a.previousModule != "" {
			a.currentModule = a.previousModule
			a.previousModule = ""
		}
		return a, nil
	}

	switch a.currentModule {
	case ModuleWorkOrders:
		return a.handleWorkOrderKeys(msg)
	case ModuleInventory:
		return a.handleInventoryKeys(msg)
	case ModuleToolCrib:
		return a.handleToolCribKeys(msg)
	case ModuleActivity:
		return a.handleActivityKeys(msg)
	}

	return a, nil
}

func (a *App) switchModule(m Module) {
	if m == "" {
		return
	}
	if m == ModuleHelp {
		if a.currentModule != ModuleHelp {
			a.previousModule = a.currentModule
		}
	} else {
		a.previousModule = ""
	}
	a.currentModule = m
	a.showDetail = false
	if m == ModuleActivity {
		a.activityPage = 1
	}
	a.reload()
}

// handleWorkOrderKeys handles key presses on the work order board.
func (a *App) handleWorkOrderKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if !a.showDetail {
		switch {
		case a.keys.Up.Matches(msg):
			a.workOrders.MoveUp()
			return a, nil
		case a.keys.Down.Matches(msg):
			a.workOrders.MoveDown()
			return a, nil
		case a.keys.Select.Matches(msg):
			a.showDetail = a.workOrders.Selected() != nil
			return a, nil
		}
		switch key {
		case "t":
			a.workOrders.CycleFilter()
			return a, nil
		case "n":
			a.form = a.newWorkOrderForm()
			return a, nil
		}
	}

	wo := a.workOrders.Selected()
	if wo == nil {
		return a, nil
	}

	switch key {
	case "a":
		return a, a.approveBudget(wo.ID)
	case "s":
		return a, a.startWorkOrder(wo.ID)
	case "f":
		a.form = a.finishForm(wo)
	case "w":
		return a, a.pauseWorkOrder(wo.ID)
	case "r":
		return a, a.resumeWorkOrder(wo.ID)
	case "x":
		a.confirm = &confirmation{
			title:  "CANCELAR ORDEN",
			prompt: fmt.Sprintf("¿Cancelar la orden %s?", wo.ID),
			action: a.cancelWorkOrder(wo.ID),
		}
	}
	return a, nil
}

// handleInventoryKeys handles key presses in the inventory module.
func (a *App) handleInventoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !a.showDetail {
		switch {
		case a.keys.Up.Matches(msg):
			a.stock.MoveUp()
			return a, nil
		case a.keys.Down.Matches(msg):
			a.stock.MoveDown()
			return a, nil
		case a.keys.Select.Matches(msg):
			a.showDetail = a.stock.Selected() != nil
			return a, nil
		}
		if msg.String() == "c" {
			a.stock.ToggleCritical()
			return a, nil
		}
	}

	item := a.stock.Selected()
	if item == nil {
		return a, nil
	}

	switch msg.String() {
	case "e":
		a.form = a.receiveForm(item)
	case "d":
		a.form = a.dispatchForm(item)
	}
	return a, nil
}

// handleToolCribKeys handles key presses in the tool crib.
func (a *App) handleToolCribKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !a.showDetail {
		switch {
		case a.keys.Up.Matches(msg):
			a.crib.MoveUp()
			return a, nil
		case a.keys.Down.Matches(msg):
			a.crib.MoveDown()
			return a, nil
		case a.keys.Select.Matches(msg):
			a.showDetail = a.crib.Selected() != nil
			return a, nil
		}
	}

	tool := a.crib.Selected()
	if tool == nil {
		return a, nil
	}

	switch msg.String() {
	case "l":
		a.form = a.lendForm(tool)
	case "v":
		loan, ok := a.crib.LoanFor(tool.ID)
		if !ok {
			a.AddAlert(AlertWarning, fmt.Sprintf("%s no está prestada", tool.Code))
			return a, nil
		}
		a.form = a.returnForm(tool, loan)
	case "m":
		a.form = a.maintenanceForm(tool)
	case "b":
		a.form = a.backFromMaintenanceForm(tool)
	}
	return a, nil
}

// handleActivityKeys pages through the audit log.
func (a *App) handleActivityKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case a.keys.PageDown.Matches(msg), a.keys.Down.Matches(msg):
		_, total := a.ledger.ActivityPage(a.activityPagination())
		if a.activityPage < a.activityPagination().TotalPages(total) {
			a.activityPage++
		}
	case a.keys.PageUp.Matches(msg), a.keys.Up.Matches(msg):
		if a.activityPage > 1 {
			a.activityPage--
		}
	case a.keys.Home.Matches(msg):
		a.activityPage = 1
	}
	return a, nil
}

// handleFormKeys routes keys to the open form.
func (a *App) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := a.form.form
	f.HandleKey(msg.String())

	if f.IsCancelled() {
		a.form = nil
		return a, nil
	}
	if f.IsSubmitted() {
		return a, a.submitForm()
	}
	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Iniciando..."
	}

	if a.quitting {
		return a.theme.Title.Render("Cerrando el libro de operaciones...")
	}

	var b strings.Builder

	b.WriteString(a.renderHeader())
	b.WriteString("\n")

	b.WriteString(a.renderAlertBar())
	b.WriteString("\n")

	contentHeight := ContentHeight(a.height, chromeLines)
	if a.confirm != nil {
		b.WriteString(a.renderConfirmDialog(contentHeight))
	} else {
		b.WriteString(a.renderContent(contentHeight))
	}

	b.WriteString("\n")
	b.WriteString(a.renderFooter())

	return b.String()
}

// renderHeader renders the top header bar.
func (a *App) renderHeader() string {
	title := fmt.Sprintf("LIBRO DE OPERACIONES v%s", Version)

	company := a.ledger.Settings().CompanyName
	if company == "" {
		company = a.config.Shop.CompanyName
	}
	s := a.ledger.Summary()
	info := fmt.Sprintf("%s | OT: %d | CRÍTICOS: %d", company, s.OpenOrders, s.CriticalItems)

	spacing := max(a.width-lipgloss.Width(title)-lipgloss.Width(info)-2, 1)

	header := a.theme.Header.Render(title) +
		strings.Repeat(" ", spacing) +
		a.theme.Header.Render(info)

	return header + "\n" + a.theme.DrawDoubleLine(a.width)
}

// renderAlertBar renders the latest alert next to the clock.
func (a *App) renderAlertBar() string {
	timeStr := a.clock.Now().Format(a.config.Display.DateFormat + " " + a.config.Display.TimeFormat)

	var alertText string
	if len(a.alerts) > 0 {
		alert := a.alerts[0]
		switch alert.Level {
		case AlertCritical:
			alertText = a.theme.AlertCrit.Render("CRÍTICO: " + alert.Message)
		case AlertWarning:
			alertText = a.theme.AlertWarn.Render("AVISO: " + alert.Message)
		default:
			alertText = a.theme.Alert.Render("INFO: " + alert.Message)
		}
	} else {
		alertText = a.theme.Muted.Render("Sin novedades")
	}

	return a.theme.Value.Render(timeStr) + a.theme.StatusDivider.Render() + alertText
}

// renderContent renders the main content area based on current module.
func (a *App) renderContent(height int) string {
	contentWidth := ContentWidth(a.width, 40, MaxContentWidth)

	style := lipgloss.NewStyle().
		Width(a.width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Top)

	contentStyle := lipgloss.NewStyle().
		Width(contentWidth)

	return style.Render(contentStyle.Render(a.moduleContent(contentWidth, height)))
}

// moduleContent returns the content for the current module.
func (a *App) moduleContent(width, height int) string {
	if a.form != nil {
		return a.form.form.Render()
	}

	switch a.currentModule {
	case ModuleDashboard:
		return a.renderDashboard(width)
	case ModuleWorkOrders:
		if a.showDetail {
			return a.workOrders.RenderDetail(a.workOrders.Selected())
		}
		return a.workOrders.Render(width, height)
	case ModuleInventory:
		if a.showDetail {
			return a.stock.RenderDetail(a.stock.Selected())
		}
		return a.stock.Render(width, height)
	case ModuleToolCrib:
		if a.showDetail {
			return a.crib.RenderDetail(a.crib.Selected())
		}
		return a.crib.Render(width, height)
	case ModuleActivity:
		return a.renderActivity(width)
	case ModuleHelp:
		return a.renderHelp()
	}
	return ""
}

// renderConfirmDialog renders the open confirmation dialog.
func (a *App) renderConfirmDialog(height int) string {
	dialog := a.theme.Box.Render(
		a.theme.Title.Render(a.confirm.title) + "\n\n" +
			a.theme.Base.Render(a.confirm.prompt) + "\n\n" +
			a.theme.Label.Render("[S]í  [N]o"),
	)

	style := lipgloss.NewStyle().
		Width(a.width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center)

	return style.Render(dialog)
}

// renderFooter renders the bottom status bar.
func (a *App) renderFooter() string {
	return a.theme.DrawHorizontalLine(a.width) + "\n" + a.theme.Footer.Render(a.keys.StatusBarHelp())
}

// AddAlert adds a new alert to the display.
func (a *App) AddAlert(level AlertLevel, message string) {
	a.alerts = append([]Alert{{
		Level:   level,
		Message: message,
		Time:    a.clock.Now(),
	}}, a.alerts...)

	if len(a.alerts) > maxAlerts {
		a.alerts = a.alerts[:maxAlerts]
	}
}

// ClearAlerts removes all alerts.
func (a *App) ClearAlerts() {
	a.alerts = []Alert{}
}

// Run starts the TUI application.
func Run(ctx context.Context, l *ledger.Ledger, cfg *config.Config, clock util.Clock) error {
	app := New(l, cfg, clock)
	app.ctx = ctx

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

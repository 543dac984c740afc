package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/northchrome/opsledger/internal/models"
	"github.com/northchrome/opsledger/internal/testutil"
)

func TestApp_InitialState(t *testing.T) {
	app := newTestApp(t)

	if app.currentModule != ModuleDashboard {
		t.Errorf("expected initial module Dashboard, got %s", app.currentModule)
	}
	if !app.ready {
		t.Error("expected app to be ready")
	}
	if app.quitting {
		t.Error("expected app not to be quitting")
	}
	if app.showDetail {
		t.Error("expected no detail shown initially")
	}
	if app.form != nil {
		t.Error("expected no form shown initially")
	}
}

func TestApp_View_NotReady(t *testing.T) {
	app := newTestApp(t)
	app.ready = false

	output := app.View()
	if !strings.Contains(output, "Iniciando") {
		t.Error("expected initialization message when not ready")
	}
}

func TestApp_View_Quitting(t *testing.T) {
	app := newTestApp(t)
	app.quitting = true

	output := app.View()
	if !strings.Contains(output, "Cerrando") {
		t.Error("expected shutdown message when quitting")
	}
}

func TestApp_View_Dashboard(t *testing.T) {
	app := newTestApp(t)
	output := app.View()

	for _, want := range []string{"PANEL DE CONTROL", "Taller Norte", "ST-304", "PAÑOL"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in dashboard output", want)
		}
	}
}

func TestApp_ModuleNavigation_FKeys(t *testing.T) {
	tests := []struct {
		key      tea.KeyType
		expected Module
		title    string
	}{
		{tea.KeyF3, ModuleWorkOrders, "ÓRDENES DE TRABAJO"},
		{tea.KeyF4, ModuleInventory, "INVENTARIO"},
		{tea.KeyF5, ModuleToolCrib, "PAÑOL DE HERRAMIENTAS"},
		{tea.KeyF6, ModuleActivity, "REGISTRO DE ACTIVIDAD"},
		{tea.KeyF2, ModuleDashboard, "PANEL DE CONTROL"},
	}

	for _, tt := range tests {
		t.Run(string(tt.expected), func(t *testing.T) {
			app := newTestApp(t)
			app.Update(specialKeyMsg(tt.key))

			if app.currentModule != tt.expected {
				t.Errorf("expected module %s, got %s", tt.expected, app.currentModule)
			}
			if !strings.Contains(app.View(), tt.title) {
				t.Errorf("expected %q in view", tt.title)
			}
		})
	}
}

func TestApp_ModuleNavigation_HelpKey(t *testing.T) {
	app := newTestApp(t)
	app.Update(specialKeyMsg(tea.KeyF4))
	app.Update(keyMsg("?"))

	if app.currentModule != ModuleHelp {
		t.Fatalf("expected Help module, got %s", app.currentModule)
	}
	if !strings.Contains(app.View(), "AYUDA") {
		t.Error("expected help title in view")
	}

	app.Update(specialKeyMsg(tea.KeyEscape))
	if app.currentModule != ModuleInventory {
		t.Errorf("expected Esc to return to Inventory, got %s", app.currentModule)
	}
}

func TestApp_ModuleNavigation_ClearsDetail(t *testing.T) {
	app := newTestApp(t)
	app.showDetail = true

	app.Update(specialKeyMsg(tea.KeyF5))

	if app.showDetail {
		t.Error("expected detail to be cleared on module switch")
	}
}

func TestApp_QuitConfirmation(t *testing.T) {
	tests := []struct {
		name     string
		open     tea.KeyMsg
		answer   tea.KeyMsg
		quits    bool
		stayOpen bool
	}{
		{"Confirm", keyMsg("q"), keyMsg("y"), true, false},
		{"Confirm in Spanish", keyMsg("q"), keyMsg("s"), true, false},
		{"Confirm from F10", specialKeyMsg(tea.KeyF10), keyMsg("y"), true, false},
		{"Cancel", keyMsg("q"), keyMsg("n"), false, false},
		{"Esc cancels", keyMsg("q"), specialKeyMsg(tea.KeyEscape), false, false},
		{"Other keys ignored", keyMsg("q"), keyMsg("x"), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			app.Update(tt.open)
			if app.confirm == nil || !app.confirm.quit {
				t.Fatal("expected quit confirmation to show")
			}

			_, cmd := app.Update(tt.answer)

			if app.quitting != tt.quits {
				t.Errorf("quitting = %v, want %v", app.quitting, tt.quits)
			}
			if tt.quits && cmd == nil {
				t.Error("expected quit command")
			}
			if (app.confirm != nil) != tt.stayOpen {
				t.Errorf("confirm open = %v, want %v", app.confirm != nil, tt.stayOpen)
			}
		})
	}
}

func TestApp_ConfirmDialog_Render(t *testing.T) {
	app := newTestApp(t)
	app.Update(keyMsg("q"))

	output := app.View()
	if !strings.Contains(output, "CONFIRMAR SALIDA") {
		t.Error("expected confirmation title in view")
	}
	if !strings.Contains(output, "[S]í") {
		t.Error("expected answer keys in view")
	}
}

func TestApp_WindowResize(t *testing.T) {
	app := newTestApp(t)

	app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	if app.width != 80 || app.height != 24 {
		t.Errorf("expected 80x24, got %dx%d", app.width, app.height)
	}
	if !app.ready {
		t.Error("expected app to be ready after resize")
	}
}

func TestApp_WorkOrders_Start(t *testing.T) {
	app := newTestApp(t)
	app.Update(specialKeyMsg(tea.KeyF3))

	app.Update(specialKeyMsg(tea.KeyDown))
	if got := app.workOrders.Selected().ID; got != "OT.1002" {
		t.Fatalf("expected OT.1002 selected, got %s", got)
	}

	_, cmd := app.Update(keyMsg("s"))
	runCmd(t, app, cmd)

	wo, err := app.ledger.WorkOrder("OT.1002")
	if err != nil {
		t.Fatalf("WorkOrder: %v", err)
	}
	if wo.Status != models.WorkOrderStatusInProcess {
		t.Errorf("expected En Proceso, got %s", wo.Status)
	}
	if app.alerts[0].Level != AlertInfo || !strings.Contains(app.alerts[0].Message, "OT.1002") {
		t.Errorf("unexpected alert %+v", app.alerts[0])
	}
}

func TestApp_WorkOrders_RefusedTransitionAlerts(t *testing.T) {
	app := newTestApp(t)
	app.Update(specialKeyMsg(tea.KeyF3))

	// OT.1001 is already in process
	_, cmd := app.Update(keyMsg("s"))
	runCmd(t, app, cmd)

	if len(app.alerts) == 0 || app.alerts[0].Level != AlertWarning {
		t.Fatalf("expected a warning alert, got %+v", app.alerts)
	}
}

func TestApp_WorkOrders_CancelNeedsConfirmation(t *testing.T) {
	app := newTestApp(t)
	app.Update(specialKeyMsg(tea.KeyF3))

	app.Update(keyMsg("x"))
	if app.confirm == nil || app.confirm.quit {
		t.Fatal("expected a cancel confirmation")
	}
	if !strings.Contains(app.View(), "CANCELAR ORDEN") {
		t.Error("expected cancel dialog in view")
	}

	_, cmd := app.Update(keyMsg("s"))
	runCmd(t, app, cmd)

	wo, _ := app.ledger.WorkOrder("OT.1001")
	if wo.Status != models.WorkOrderStatusCancelled {
		t.Errorf("expected Cancelado, got %s", wo.Status)
	}
	if app.workOrders.Count() != 1 {
		t.Errorf("expected cancelled order to leave the open board, got %d", app.workOrders.Count())
	}
}

func TestApp_WorkOrders_FinishReportsPendingTasks(t *testing.T) {
	app := newTestApp(t)
	app.Update(specialKeyMsg(tea.KeyF3))

	app.Update(keyMsg("f"))
	if app.form == nil || app.form.kind != formFinish {
		t.Fatal("expected finish form")
	}
	typeText(app, "Entregado")
	_, cmd := app.Update(specialKeyMsg(tea.KeyCtrlS))
	runCmd(t, app, cmd)

	if app.form != nil {
		t.Error("expected form to close after success")
	}
	wo, _ := app.ledger.WorkOrder("OT.1001")
	if wo.Status != models.WorkOrderStatusFinished || wo.FinalNotes != "Entregado" {
		t.Errorf("unexpected order %s %q", wo.Status, wo.FinalNotes)
	}
	if app.alerts[0].Level != AlertWarning || !strings.Contains(app.alerts[0].Message, "2 tareas pendientes") {
		t.Errorf("unexpected alert %+v", app.alerts[0])
	}
}

func TestApp_WorkOrders_CreateForm(t *testing.T) {
	app := newTestApp(t)
	app.Update(specialKeyMsg(tea.KeyF3))

	app.Update(keyMsg("n"))
	if app.form == nil {
		t.Fatal("expected new work order form")
	}
	if got := app.form.value(fieldID); got != "OT.1004" {
		t.Errorf("expected next id OT.1004, got %q", got)
	}

	app.Update(specialKeyMsg(tea.KeyTab))
	typeText(app, "Eje bomba")
	app.Update(specialKeyMsg(tea.KeyTab))
	typeText(app, "Minera Sur")

	_, cmd := app.Update(specialKeyMsg(tea.KeyCtrlS))
	runCmd(t, app, cmd)

	wo, err := app.ledger.WorkOrder("OT.1004")
	if err != nil {
		t.Fatalf("WorkOrder: %v", err)
	}
	if wo.Title != "Eje bomba" || wo.ClientID != "Minera Sur" {
		t.Errorf("unexpected order %+v", wo)
	}
	if wo.Status != models.WorkOrderStatusPending || wo.Priority != models.PriorityMedium {
		t.Errorf("unexpected status/priority %s %s", wo.Status, wo.Priority)
	}
	if want := testutil.FixtureTime.AddDate(0, 0, defaultDueDays); !wo.EstimatedCompletionDate.Equal(want) {
		t.Errorf("expected due %v, got %v", want, wo.EstimatedCompletionDate)
	}
	if !wo.IsBudgetApproved {
		t.Error("expected budget approved by default")
	}
}

func TestApp_WorkOrders_CreateFormRequiresTitle(t *testing.T) {
	app := newTestApp(t)
	app.Update(specialKeyMsg(tea.KeyF3))
	app.Update(keyMsg("n"))

	_, cmd := app.Update(specialKeyMsg(tea.KeyCtrlS))
	if cmd != nil {
		t.Error("expected no ledger command for an incomplete form")
	}
	if app.form == nil {
		t.Fatal("expected form to stay open")
	}
	if !strings.Contains(app.View(), "complete los campos requeridos") {
		t.Error("expected validation message in view")
	}
}

func TestApp_WorkOrders_CreateFormRejectedKeepsForm(t *testing.T) {
	app := newTestApp(t)
	app.Update(specialKeyMsg(tea.KeyF3))
	app.Update(keyMsg("n"))

	for range 4 {
		app.Update(specialKeyMsg(tea.KeyBackspace))
	}
	typeText(app, "1001")
	app.Update(specialKeyMsg(tea.KeyTab))
	typeText(app, "Duplicada")
	app.Update(specialKeyMsg(tea.KeyTab))
	typeText(app, "Minera Sur")

	_, cmd := app.Update(specialKeyMsg(tea.KeyCtrlS))
	runCmd(t, app, cmd)

	if app.form == nil {
		t.Fatal("expected form to reopen after a refused submission")
	}
	if app.form.form.IsSubmitted() {
		t.Error("expected submitted state cleared")
	}
	if app.alerts[0].Level != AlertWarning {
		t.Errorf("expected warning alert, got %+v", app.alerts[0])
	}
	if len(app.ledger.WorkOrders()) != 3 {
		t.Error("expected no order created")
	}

	app.Update(specialKeyMsg(tea.KeyEscape))
	if app.form != nil {
		t.Error("expected Esc to close the form")
	}
}

func TestApp_WorkOrders_FilterAndDetail(t *testing.T) {
	app := newTestApp(t)
	app.Update(specialKeyMsg(tea.KeyF3))

	if app.workOrders.Count() != 2 {
		t.Fatalf("expected 2 open orders, got %d", app.workOrders.Count())
	}
	app.Update(keyMsg("t"))
	if app.workOrders.Count() != 3 {
		t.Errorf("expected 3 orders with all filter, got %d", app.workOrders.Count())
	}

	app.Update(specialKeyMsg(tea.KeyEnter))
	if !app.showDetail {
		t.Fatal("expected detail view")
	}
	if !strings.Contains(app.View(), "TAREAS") {
		t.Error("expected order detail in view")
	}

	app.Update(specialKeyMsg(tea.KeyEscape))
	if app.showDetail {
		t.Error("expected Esc to close detail")
	}
}

func TestApp_Inventory_Receive(t *testing.T) {
	app := newTestApp(t)
	app.Update(specialKeyMsg(tea.KeyF4))

	app.Update(keyMsg("e"))
	if app.form == nil || app.form.kind != formReceive {
		t.Fatal("expected receive form")
	}
	app.Update(specialKeyMsg(tea.KeyTab))
	typeText(app, "AceroMundo")
	app.Update(specialKeyMsg(tea.KeyTab))
	app.Update(specialKeyMsg(tea.KeyTab))
	typeText(app, "10")

	_, cmd := app.Update(specialKeyMsg(tea.KeyCtrlS))
	runCmd(t, app, cmd)

	item, err := app.ledger.InventoryItem("MAT-001")
	if err != nil {
		t.Fatalf("InventoryItem: %v", err)
	}
	if item.Stock != 15 {
		t.Errorf("expected stock 15, got %v", item.Stock)
	}
	if len(app.ledger.SupplyDocuments()) != 2 {
		t.Error("expected a second supply document")
	}
	if !strings.Contains(app.alerts[0].Message, "Recepción") {
		t.Errorf("unexpected alert %+v", app.alerts[0])
	}
}

func TestApp_Inventory_Dispatch(t *testing.T) {
	app := newTestApp(t)
	app.Update(specialKeyMsg(tea.KeyF4))
	app.Update(specialKeyMsg(tea.KeyDown))

	app.Update(keyMsg("d"))
	typeText(app, "OT.1001")
	app.Update(specialKeyMsg(tea.KeyTab))
	typeText(app, "5")

	_, cmd := app.Update(specialKeyMsg(tea.KeyCtrlS))
	runCmd(t, app, cmd)

	item, _ := app.ledger.InventoryItem("MAT-002")
	if item.Stock != 195 {
		t.Errorf("expected stock 195, got %v", item.Stock)
	}
	wo, _ := app.ledger.WorkOrder("OT.1001")
	found := false
	for _, m := range wo.Materials {
		if m.ItemID == "MAT-002" {
			found = true
		}
	}
	if !found {
		t.Error("expected dispatched material on the order")
	}
}

func TestApp_Inventory_DispatchBadQuantity(t *testing.T) {
	app := newTestApp(t)
	app.Update(specialKeyMsg(tea.KeyF4))

	app.Update(keyMsg("d"))
	typeText(app, "OT.1001")
	app.Update(specialKeyMsg(tea.KeyTab))
	typeText(app, "dos")
	if got := app.form.value(fieldQuantity); got != "" {
		t.Fatalf("expected letters to be rejected, got %q", got)
	}
	typeText(app, "1,2,3")

	_, cmd := app.Update(specialKeyMsg(tea.KeyCtrlS))
	if cmd != nil {
		t.Error("expected no ledger command for an unparsable quantity")
	}
	if !strings.Contains(app.View(), "no es un número") {
		t.Error("expected parse error in form")
	}
}

func TestApp_Inventory_CriticalToggle(t *testing.T) {
	app := newTestApp(t)
	app.Update(specialKeyMsg(tea.KeyF4))

	app.Update(keyMsg("c"))
	if app.stock.Count() != 1 {
		t.Errorf("expected 1 critical item, got %d", app.stock.Count())
	}
}

func TestApp_ToolCrib_LendAndReturnDamaged(t *testing.T) {
	app := newTestApp(t)
	app.Update(specialKeyMsg(tea.KeyF5))

	app.Update(keyMsg("l"))
	if app.form == nil || app.form.kind != formLend {
		t.Fatal("expected lend form")
	}
	typeText(app, "T2")
	_, cmd := app.Update(specialKeyMsg(tea.KeyCtrlS))
	runCmd(t, app, cmd)

	tool, _ := app.ledger.Tool("T-001")
	if tool.Status != models.ToolStatusInUse {
		t.Fatalf("expected tool on loan, got %s", tool.Status)
	}
	if !strings.Contains(app.alerts[0].Message, "Carlos Mecánico") {
		t.Errorf("unexpected alert %+v", app.alerts[0])
	}

	app.Update(keyMsg("v"))
	if app.form == nil || app.form.kind != formReturn {
		t.Fatal("expected return form")
	}
	app.Update(specialKeyMsg(tea.KeyRight))
	_, cmd = app.Update(specialKeyMsg(tea.KeyCtrlS))
	runCmd(t, app, cmd)

	tool, _ = app.ledger.Tool("T-001")
	if tool.Status != models.ToolStatusBroken {
		t.Errorf("expected damaged return to break the tool, got %s", tool.Status)
	}
	if app.alerts[0].Level != AlertWarning {
		t.Errorf("expected warning alert, got %+v", app.alerts[0])
	}
}

func TestApp_ToolCrib_ReturnNeedsLoan(t *testing.T) {
	app := newTestApp(t)
	app.Update(specialKeyMsg(tea.KeyF5))

	app.Update(keyMsg("v"))
	if app.form != nil {
		t.Error("expected no form for a tool that is not lent")
	}
	if !strings.Contains(app.alerts[0].Message, "no está prestada") {
		t.Errorf("unexpected alert %+v", app.alerts[0])
	}
}

func TestApp_ToolCrib_MaintenanceRoundTrip(t *testing.T) {
	app := newTestApp(t)
	app.Update(specialKeyMsg(tea.KeyF5))
	app.Update(specialKeyMsg(tea.KeyDown))
	app.Update(specialKeyMsg(tea.KeyDown))

	app.Update(keyMsg("m"))
	if app.form == nil || app.form.kind != formMaintenance {
		t.Fatal("expected maintenance form")
	}
	app.Update(specialKeyMsg(tea.KeyTab))
	app.Update(specialKeyMsg(tea.KeyTab))
	typeText(app, "Calibración")
	_, cmd := app.Update(specialKeyMsg(tea.KeyCtrlS))
	runCmd(t, app, cmd)

	tool, _ := app.ledger.Tool("T-003")
	if tool.Status != models.ToolStatusMaintenance || tool.ActiveMaintenance == nil {
		t.Fatalf("expected T-003 in maintenance, got %s", tool.Status)
	}
	if tool.ActiveMaintenance.Urgency != models.UrgencyMedium || tool.ActiveMaintenance.Provider != "Taller Interno" {
		t.Errorf("unexpected dispatch %+v", tool.ActiveMaintenance)
	}

	app.Update(keyMsg("b"))
	if app.form == nil || app.form.kind != formBackFromMaintenance {
		t.Fatal("expected back-from-maintenance form")
	}
	_, cmd = app.Update(specialKeyMsg(tea.KeyCtrlS))
	runCmd(t, app, cmd)

	tool, _ = app.ledger.Tool("T-003")
	if tool.Status != models.ToolStatusAvailable {
		t.Errorf("expected T-003 available, got %s", tool.Status)
	}
	if len(app.ledger.Maintenances()) != 1 {
		t.Errorf("expected one maintenance record, got %d", len(app.ledger.Maintenances()))
	}
}

func TestApp_Activity_ShowsOperations(t *testing.T) {
	app := newTestApp(t)
	app.Update(specialKeyMsg(tea.KeyF3))
	app.Update(specialKeyMsg(tea.KeyDown))
	_, cmd := app.Update(keyMsg("a"))
	runCmd(t, app, cmd)

	app.Update(specialKeyMsg(tea.KeyF6))
	output := app.View()
	if !strings.Contains(output, "OT.1002") {
		t.Error("expected approval in activity log")
	}
	if !strings.Contains(output, "Página 1/1") {
		t.Error("expected pagination footer")
	}

	app.Update(specialKeyMsg(tea.KeyPgDown))
	if app.activityPage != 1 {
		t.Errorf("expected to stay on the only page, got %d", app.activityPage)
	}
}

func TestApp_AddAlert_KeepsNewestTen(t *testing.T) {
	app := newTestApp(t)
	for i := range 12 {
		app.AddAlert(AlertInfo, strings.Repeat("x", i+1))
	}
	if len(app.alerts) != maxAlerts {
		t.Fatalf("expected %d alerts, got %d", maxAlerts, len(app.alerts))
	}
	if app.alerts[0].Message != strings.Repeat("x", 12) {
		t.Error("expected newest alert first")
	}

	app.ClearAlerts()
	if !strings.Contains(app.View(), "Sin novedades") {
		t.Error("expected empty alert bar")
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{"", "0", false},
		{"1500", "1500", false},
		{"$1.250,5", "1250.5", false},
		{"12.75", "12.75", false},
		{"mil", "", true},
	}
	for _, tt := range tests {
		got, err := parseAmount(fieldPrice, tt.in)
		if (err != nil) != tt.err {
			t.Errorf("parseAmount(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.err && got.String() != tt.want {
			t.Errorf("parseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/northchrome/opsledger/internal/ledger"
	"github.com/northchrome/opsledger/internal/models"
	"github.com/northchrome/opsledger/internal/tui/components"
)

// formKind identifies which operation an open form submits to.
type formKind int

const (
	formNewWorkOrder formKind = iota
	formFinish
	formReceive
	formDispatch
	formLend
	formReturn
	formMaintenance
	formBackFromMaintenance
)

// Field labels, shared between form builders and submit.
const (
	fieldID        = "N° OT"
	fieldTitle     = "Título"
	fieldClient    = "Cliente"
	fieldPriority  = "Prioridad"
	fieldArea      = "Área"
	fieldTech      = "Técnico"
	fieldDueDays   = "Entrega (días)"
	fieldApproved  = "Presupuesto aprobado"
	fieldNotes     = "Notas finales"
	fieldDocType   = "Tipo documento"
	fieldProvider  = "Proveedor"
	fieldReference = "Referencia"
	fieldQuantity  = "Cantidad"
	fieldPrice     = "Precio unitario"
	fieldOrder     = "OT"
	fieldCondition = "Condición"
	fieldKind      = "Tipo"
	fieldUrgency   = "Urgencia"
	fieldReason    = "Motivo"
	fieldResult    = "Resultado"
	fieldCost      = "Costo"
	fieldDetail    = "Descripción"
)

const defaultDueDays = 7

var (
	priorityOptions = []string{
		string(models.PriorityLow), string(models.PriorityMedium),
		string(models.PriorityHigh), string(models.PriorityUrgent),
	}
	areaOptions = []string{
		string(models.AreaCNC), string(models.AreaMechanics),
		string(models.AreaWelding), string(models.AreaQuality),
	}
	docTypeOptions = []string{
		string(models.SupplyDocInvoice), string(models.SupplyDocDispatchNote), string(models.SupplyDocReceipt),
	}
	yesNo = []string{"Sí", "No"}

	kindByLabel = map[string]models.MaintenanceKind{
		"Interna": models.MaintenanceInternal,
		"Externa": models.MaintenanceExternal,
	}
	urgencyByLabel = map[string]models.Urgency{
		"Baja":  models.UrgencyLow,
		"Media": models.UrgencyMedium,
		"Alta":  models.UrgencyHigh,
	}
	resultByLabel = map[string]models.ToolStatus{
		"Operativa": models.ToolStatusAvailable,
		"Dañada":    models.ToolStatusBroken,
	}
	typeByLabel = map[string]models.MaintenanceType{
		"Correctiva": models.MaintenanceCorrective,
		"Preventiva": models.MaintenancePreventative,
	}
)

// activeForm is an open form together with the record it acts on.
type activeForm struct {
	kind   formKind
	form   *components.Form
	target string
}

func (a *App) newForm(kind formKind, title, target string) *activeForm {
	return &activeForm{
		kind:   kind,
		form:   components.NewForm(title).SetStyles(a.theme.Components()),
		target: target,
	}
}

func (f *activeForm) input(label string) *components.Input {
	in := components.NewInput(label).SetWidth(30)
	f.form.AddField(in)
	return in
}

// number is an input restricted to quantities and amounts.
func (f *activeForm) number(label string) *components.Input {
	return f.input(label).SetAccept(components.Numeric).SetMaxLength(16)
}

func (f *activeForm) choice(label string, options ...string) *components.Select {
	sel := components.NewSelect(label, options)
	f.form.AddField(sel)
	return sel
}

func (f *activeForm) value(label string) string {
	return f.form.Value(label)
}

// ============================================================================
// Builders
// ============================================================================

func (a *App) newWorkOrderForm() *activeForm {
	f := a.newForm(formNewWorkOrder, "NUEVA ORDEN DE TRABAJO", "")
	f.input(fieldID).SetValue(a.nextWorkOrderID()).SetRequired(true)
	f.input(fieldTitle).SetRequired(true).SetMaxLength(80)
	f.input(fieldClient).SetRequired(true).SetPlaceholder("Cliente o contrato")
	f.choice(fieldPriority, priorityOptions...).SetSelected(1)
	f.choice(fieldArea, areaOptions...)
	f.input(fieldTech).SetPlaceholder(a.technicianHint())
	f.number(fieldDueDays).SetValue(strconv.Itoa(defaultDueDays)).SetMaxLength(3)
	f.choice(fieldApproved, yesNo...)
	return f
}

func (a *App) finishForm(wo *models.WorkOrder) *activeForm {
	f := a.newForm(formFinish, "FINALIZAR "+wo.ID, wo.ID)
	in := f.input(fieldNotes).SetMaxLength(200)
	if pending := wo.PendingTasks(); pending > 0 {
		in.SetPlaceholder(fmt.Sprintf("%d tareas pendientes", pending))
	}
	return f
}

func (a *App) receiveForm(item *models.InventoryItem) *activeForm {
	f := a.newForm(formReceive, "RECEPCIÓN "+item.SKU, item.ID)
	f.choice(fieldDocType, docTypeOptions...)
	f.input(fieldProvider).SetRequired(true)
	f.input(fieldReference).SetPlaceholder("N° factura o guía")
	f.number(fieldQuantity).SetRequired(true).SetPlaceholder(item.Unit)
	f.number(fieldPrice).SetValue(item.Price.String())
	return f
}

func (a *App) dispatchForm(item *models.InventoryItem) *activeForm {
	f := a.newForm(formDispatch, "DESPACHO "+item.SKU, item.ID)
	f.input(fieldOrder).SetRequired(true).SetPlaceholder("OT.1001")
	f.number(fieldQuantity).SetRequired(true).SetPlaceholder(item.Unit)
	return f
}

func (a *App) lendForm(tool *models.Tool) *activeForm {
	f := a.newForm(formLend, "PRÉSTAMO "+tool.Code, tool.ID)
	f.input(fieldTech).SetRequired(true).SetPlaceholder(a.technicianHint())
	f.input(fieldOrder).SetPlaceholder("Opcional")
	return f
}

func (a *App) returnForm(tool *models.Tool, loan models.ToolLoan) *activeForm {
	f := a.newForm(formReturn, fmt.Sprintf("DEVOLUCIÓN %s (%s)", tool.Code, loan.TechnicianName), loan.ID)
	f.choice(fieldCondition, ledger.ConditionGood, ledger.ConditionDamaged)
	return f
}

func (a *App) maintenanceForm(tool *models.Tool) *activeForm {
	f := a.newForm(formMaintenance, "ENVÍO A MANTENCIÓN "+tool.Code, tool.ID)
	f.choice(fieldKind, "Interna", "Externa")
	f.choice(fieldUrgency, "Baja", "Media", "Alta").SetSelected(1)
	f.input(fieldReason).SetRequired(true)
	f.input(fieldProvider).SetPlaceholder("Taller Interno")
	return f
}

func (a *App) backFromMaintenanceForm(tool *models.Tool) *activeForm {
	f := a.newForm(formBackFromMaintenance, "RETORNO DE MANTENCIÓN "+tool.Code, tool.ID)
	f.choice(fieldResult, "Operativa", "Dañada")
	f.choice(fieldKind, "Correctiva", "Preventiva")
	f.number(fieldCost).SetValue("0")
	f.input(fieldDetail).SetMaxLength(200)
	return f
}

// nextWorkOrderID proposes the OT number after the highest one in use.
func (a *App) nextWorkOrderID() string {
	highest := 1000
	for _, wo := range a.ledger.WorkOrders() {
		n, err := strconv.Atoi(strings.TrimPrefix(wo.ID, "OT."))
		if err == nil && strings.HasPrefix(wo.ID, "OT.") && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("OT.%d", highest+1)
}

func (a *App) technicianHint() string {
	ids := []string{}
	for _, t := range a.ledger.Technicians() {
		if t.Active {
			ids = append(ids, t.ID)
		}
	}
	return strings.Join(ids, ", ")
}

// ============================================================================
// Submit
// ============================================================================

// submitForm turns the open form into a ledger command. Input that cannot
// be parsed reopens the form without calling the ledger.
func (a *App) submitForm() tea.Cmd {
	f := a.form
	if !f.form.Validate() {
		f.form.Reopen("complete los campos requeridos")
		return nil
	}

	cmd, err := a.formCommand(f)
	if err != nil {
		f.form.Reopen(err.Error())
		return nil
	}
	return cmd
}

func (a *App) formCommand(f *activeForm) (tea.Cmd, error) {
	switch f.kind {
	case formNewWorkOrder:
		days, err := strconv.Atoi(f.value(fieldDueDays))
		if err != nil || days < 0 {
			return nil, fmt.Errorf("entrega: %q no es un número de días", f.value(fieldDueDays))
		}
		approved := f.value(fieldApproved) == yesNo[0]
		return a.createWorkOrder(ledger.CreateWorkOrderInput{
			ID:                      f.value(fieldID),
			Title:                   f.value(fieldTitle),
			ClientID:                f.value(fieldClient),
			Priority:                models.Priority(f.value(fieldPriority)),
			Area:                    models.Area(f.value(fieldArea)),
			TechnicianID:            f.value(fieldTech),
			IsBudgetApproved:        &approved,
			EstimatedCompletionDate: a.clock.Now().AddDate(0, 0, days),
		}), nil

	case formFinish:
		return a.finishWorkOrder(f.target, f.value(fieldNotes)), nil

	case formReceive:
		qty, err := parseQuantity(f.value(fieldQuantity))
		if err != nil {
			return nil, err
		}
		price, err := parseAmount(fieldPrice, f.value(fieldPrice))
		if err != nil {
			return nil, err
		}
		return a.receiveStock(ledger.ReceiveInput{
			Type:              models.SupplyDocType(f.value(fieldDocType)),
			Provider:          f.value(fieldProvider),
			ExternalReference: f.value(fieldReference),
			Lines:             []ledger.ReceiveLine{{ItemID: f.target, Quantity: qty, UnitPrice: price}},
		}), nil

	case formDispatch:
		qty, err := parseQuantity(f.value(fieldQuantity))
		if err != nil {
			return nil, err
		}
		return a.consumeStock(ledger.ConsumeInput{
			WorkOrderID: f.value(fieldOrder),
			Lines:       []ledger.ConsumeLine{{ItemID: f.target, Quantity: qty}},
		}), nil

	case formLend:
		return a.checkoutTool(ledger.CheckoutInput{
			ToolID:       f.target,
			TechnicianID: f.value(fieldTech),
			WorkOrderID:  f.value(fieldOrder),
		}), nil

	case formReturn:
		return a.checkinTool(f.target, f.value(fieldCondition)), nil

	case formMaintenance:
		return a.sendToMaintenance(f.target, ledger.DispatchInput{
			Type:     kindByLabel[f.value(fieldKind)],
			Urgency:  urgencyByLabel[f.value(fieldUrgency)],
			Reason:   f.value(fieldReason),
			Provider: f.value(fieldProvider),
		}), nil

	case formBackFromMaintenance:
		cost, err := parseAmount(fieldCost, f.value(fieldCost))
		if err != nil {
			return nil, err
		}
		return a.returnFromMaintenance(f.target, ledger.MaintenanceOutcome{
			Status:      resultByLabel[f.value(fieldResult)],
			Type:        typeByLabel[f.value(fieldKind)],
			Cost:        cost,
			Description: f.value(fieldDetail),
		}), nil
	}
	return nil, fmt.Errorf("formulario desconocido")
}

// parseQuantity accepts a decimal comma.
func parseQuantity(s string) (float64, error) {
	q, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("cantidad: %q no es un número", s)
	}
	return q, nil
}

// parseAmount accepts "$1.250,5" and "1250.5". A blank amount is zero.
func parseAmount(label, s string) (decimal.Decimal, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(s), "$")
	if clean == "" {
		return decimal.Zero, nil
	}
	if strings.Contains(clean, ",") {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %q no es un monto", strings.ToLower(label), s)
	}
	return d, nil
}

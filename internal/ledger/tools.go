package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/northchrome/opsledger/internal/models"
	"github.com/northchrome/opsledger/internal/util"
)

const (
	entityTool = "tool"
	entityLoan = "loan"

	// Conditions recorded on checkout and return.
	ConditionGood    = "Conforme"
	ConditionDamaged = "Dañada"

	internalWorkshop = "Taller Interno"
	unknownPerformer = "Desconocido"
)

// ============================================================================
// Inputs
// ============================================================================

// UpdateToolInput holds the tool fields to change. Nil fields are left as is.
type UpdateToolInput struct {
	Code                *string
	Name                *string
	Brand               *string
	Model               *string
	SerialNumber        *string
	Category            *models.ToolCategory
	Status              *models.ToolStatus
	Location            *string
	PurchasePrice       *decimal.Decimal
	NextMaintenanceDate *time.Time
	Description         *string
}

// CheckoutInput lends a tool to a technician.
type CheckoutInput struct {
	// ID defaults to a generated LN- identifier.
	ID           string
	ToolID       string
	TechnicianID string
	WorkOrderID  string
	// ConditionOut defaults to ConditionGood.
	ConditionOut string
	// LoanDate defaults to now.
	LoanDate time.Time
}

// ToolReturn is one tool handed back in a batch.
type ToolReturn struct {
	LoanID      string
	ConditionIn string
	// Status defaults from ConditionIn, see StatusForCondition.
	Status models.ToolStatus
}

// ReturnBatch is a set of tools handed back together by one technician.
type ReturnBatch struct {
	TechnicianID string
	// ReturnDate defaults to now.
	ReturnDate time.Time
	Returns    []ToolReturn
}

// DispatchInput opens a maintenance job on a tool.
type DispatchInput struct {
	Type                models.MaintenanceKind
	Urgency             models.Urgency
	Reason              string
	Provider            string
	Responsible         string
	Reference           string
	EstimatedReturnDate *time.Time
}

// MaintenanceOutcome closes a tool's maintenance job.
type MaintenanceOutcome struct {
	// Type defaults to corrective.
	Type models.MaintenanceType
	// Status is the tool's status after maintenance: Available or Broken.
	Status      models.ToolStatus
	Cost        decimal.Decimal
	InvoiceRef  string
	Description string
	// NextMaintenanceDate replaces the tool's schedule when set.
	NextMaintenanceDate *time.Time
}

// StatusForCondition maps a returned tool's condition to its resulting status.
func StatusForCondition(condition string) models.ToolStatus {
	if strings.EqualFold(strings.TrimSpace(condition), ConditionDamaged) {
		return models.ToolStatusBroken
	}
	return models.ToolStatusAvailable
}

// ============================================================================
// Catalog
// ============================================================================

// AddTool registers a tool in the crib. Tools start Available, Broken or Retired.
func (l *Ledger) AddTool(ctx context.Context, tool models.Tool) (*models.Tool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tool.Code = strings.TrimSpace(tool.Code)
	if tool.ID == "" {
		tool.ID = l.ids.NewPrefixedID(util.ToolPrefix)
	}
	if tool.Status == "" {
		tool.Status = models.ToolStatusAvailable
	}

	v := newValidation("create", entityTool, tool.ID)
	v.check(tool.Code != "", "code is required")
	v.check(strings.TrimSpace(tool.Name) != "", "name is required")
	v.check(tool.Category.IsValid(), "invalid category %q", tool.Category)
	v.check(tool.Status == models.ToolStatusAvailable || tool.Status == models.ToolStatusBroken || tool.Status == models.ToolStatusRetired,
		"initial status %s not allowed", tool.Status)
	v.check(!tool.PurchasePrice.IsNegative(), "purchase price must not be negative")
	if err := v.err(); err != nil {
		return nil, err
	}
	if _, ok := l.findTool(tool.ID); ok {
		return nil, conflictf("create", entityTool, tool.ID, "id already in use")
	}
	if l.codeTaken(tool.Code, "") {
		return nil, conflictf("create", entityTool, tool.ID, "code %s already in use", tool.Code)
	}

	tool.ActiveMaintenance = nil
	t := tool.Clone()
	l.tools = append(l.tools, t)
	l.appendActivityf(models.ActionCreate, models.EntityTool, "Herramienta registrada: %s", t.Code)
	l.persist(ctx, KeyTools, KeyActivity)

	return t.Clone(), nil
}

// UpdateTool edits a tool's catalog fields. InUse and Maintenance are only
// reachable through custody operations, and a retired tool stays retired.
func (l *Ledger) UpdateTool(ctx context.Context, id string, input UpdateToolInput) (*models.Tool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tool, ok := l.findTool(id)
	if !ok {
		return nil, notFound("update", entityTool, id)
	}

	v := newValidation("update", entityTool, id)
	if input.Code != nil {
		v.check(strings.TrimSpace(*input.Code) != "", "code is required")
	}
	if input.Name != nil {
		v.check(strings.TrimSpace(*input.Name) != "", "name is required")
	}
	if input.Category != nil {
		v.check(input.Category.IsValid(), "invalid category %q", *input.Category)
	}
	if input.Status != nil {
		v.check(input.Status.IsValid(), "invalid status %q", *input.Status)
	}
	if input.PurchasePrice != nil {
		v.check(!input.PurchasePrice.IsNegative(), "purchase price must not be negative")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	if input.Status != nil && *input.Status != tool.Status {
		target := *input.Status
		switch {
		case target == models.ToolStatusInUse || target == models.ToolStatusMaintenance:
			return nil, preconditionf("update", entityTool, id, "status %s is set by custody operations", target)
		case tool.Status == models.ToolStatusRetired:
			return nil, preconditionf("update", entityTool, id, "tool is retired")
		case tool.Status == models.ToolStatusInUse:
			return nil, preconditionf("update", entityTool, id, "tool is on loan")
		case tool.Status == models.ToolStatusMaintenance:
			return nil, preconditionf("update", entityTool, id, "tool is in maintenance")
		}
	}
	if input.Code != nil {
		code := strings.TrimSpace(*input.Code)
		if l.codeTaken(code, id) {
			return nil, conflictf("update", entityTool, id, "code %s already in use", code)
		}
		tool.Code = code
	}

	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&tool.Name, input.Name)
	set(&tool.Brand, input.Brand)
	set(&tool.Model, input.Model)
	set(&tool.SerialNumber, input.SerialNumber)
	set(&tool.Location, input.Location)
	set(&tool.Description, input.Description)
	if input.Category != nil {
		tool.Category = *input.Category
	}
	if input.PurchasePrice != nil {
		tool.PurchasePrice = *input.PurchasePrice
	}
	if input.NextMaintenanceDate != nil {
		d := *input.NextMaintenanceDate
		tool.NextMaintenanceDate = &d
	}
	retiring := input.Status != nil && *input.Status == models.ToolStatusRetired && tool.Status != models.ToolStatusRetired
	switch {
	case retiring:
		l.retire(tool)
	case input.Status != nil:
		tool.Status = *input.Status
		l.appendActivityf(models.ActionUpdate, models.EntityTool, "Herramienta actualizada: %s", id)
	default:
		l.appendActivityf(models.ActionUpdate, models.EntityTool, "Herramienta actualizada: %s", id)
	}
	l.persist(ctx, KeyTools, KeyActivity)

	return tool.Clone(), nil
}

// RetireTool takes a tool out of service for good. Tools on loan must be returned first.
func (l *Ledger) RetireTool(ctx context.Context, id string) (*models.Tool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tool, ok := l.findTool(id)
	if !ok {
		return nil, notFound("retire", entityTool, id)
	}
	switch tool.Status {
	case models.ToolStatusRetired:
		return nil, preconditionf("retire", entityTool, id, "tool is already retired")
	case models.ToolStatusInUse:
		return nil, preconditionf("retire", entityTool, id, "tool is on loan")
	}

	l.retire(tool)
	l.persist(ctx, KeyTools, KeyActivity)

	return tool.Clone(), nil
}

// retire marks tool Retired and drops its maintenance schedule. The caller
// holds the lock and persists.
func (l *Ledger) retire(tool *models.Tool) {
	tool.Status = models.ToolStatusRetired
	tool.ActiveMaintenance = nil
	tool.NextMaintenanceDate = nil
	l.appendActivityf(models.ActionStatusChange, models.EntityTool, "Herramienta dada de baja: %s", tool.Code)
}

// ============================================================================
// Custody
// ============================================================================

// Checkout lends an Available tool. The tool and technician names are copied
// into the loan.
func (l *Ledger) Checkout(ctx context.Context, input CheckoutInput) (*models.ToolLoan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tool, ok := l.findTool(input.ToolID)
	if !ok {
		return nil, notFound("checkout", entityTool, input.ToolID)
	}
	if tool.Status != models.ToolStatusAvailable {
		return nil, preconditionf("checkout", entityTool, tool.ID, "status is %s, want %s", tool.Status, models.ToolStatusAvailable)
	}
	techName, ok := l.technicianName(input.TechnicianID)
	if !ok {
		return nil, notFound("checkout", "technician", input.TechnicianID)
	}
	if input.WorkOrderID != "" {
		if _, err := l.getOpenWorkOrder("checkout", input.WorkOrderID); err != nil {
			return nil, err
		}
	}
	if input.ID != "" {
		if _, ok := l.findLoan(input.ID); ok {
			return nil, conflictf("checkout", entityLoan, input.ID, "id already in use")
		}
	}

	now := l.clock.Now()
	loan := &models.ToolLoan{
		ID:             input.ID,
		ToolID:         tool.ID,
		ToolName:       tool.Name,
		TechnicianID:   input.TechnicianID,
		TechnicianName: techName,
		WorkOrderID:    input.WorkOrderID,
		LoanDate:       input.LoanDate,
		ConditionOut:   input.ConditionOut,
		Status:         models.LoanStatusActive,
	}
	if loan.ID == "" {
		loan.ID = l.ids.NewPrefixedID(util.LoanPrefix)
	}
	if loan.LoanDate.IsZero() {
		loan.LoanDate = now
	}
	if loan.ConditionOut == "" {
		loan.ConditionOut = ConditionGood
	}

	tool.Status = models.ToolStatusInUse
	l.loans = append(l.loans, loan)

	l.appendActivityf(models.ActionToolLoan, models.EntityTool, "Préstamo: %s a %s", loan.ToolName, loan.TechnicianName)
	l.persist(ctx, KeyTools, KeyToolLoans, KeyActivity)

	out := *loan
	return &out, nil
}

// Checkin closes an active loan and sets the tool's resulting status, which
// must be Available, Broken or Maintenance. Maintenance opens an internal
// dispatch with the return condition as its reason.
func (l *Ledger) Checkin(ctx context.Context, loanID, conditionIn string, status models.ToolStatus) (*models.ToolLoan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ret := ToolReturn{LoanID: loanID, ConditionIn: conditionIn, Status: status}
	loan, tool, err := l.checkReturn("checkin", &ret)
	if err != nil {
		return nil, err
	}

	l.applyReturn(loan, tool, ret, l.clock.Now())
	l.appendActivityf(models.ActionToolReturn, models.EntityTool, "Devolución: %s (Estado: %s)", loan.ToolName, tool.Status)
	l.persist(ctx, KeyTools, KeyToolLoans, KeyActivity)

	out := *loan
	return &out, nil
}

// ProcessReturns checks in several loans at once. Every return is checked
// before any is applied; one bad return rejects the whole batch.
func (l *Ledger) ProcessReturns(ctx context.Context, batch ReturnBatch) ([]models.ToolLoan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v := newValidation("process returns", entityLoan, "")
	v.check(len(batch.Returns) > 0, "at least one return is required")
	if err := v.err(); err != nil {
		return nil, err
	}

	type pending struct {
		loan *models.ToolLoan
		tool *models.Tool
		ret  ToolReturn
	}
	seen := make(map[string]bool, len(batch.Returns))
	checked := make([]pending, 0, len(batch.Returns))
	for _, ret := range batch.Returns {
		if seen[ret.LoanID] {
			return nil, conflictf("process returns", entityLoan, ret.LoanID, "returned twice in batch")
		}
		seen[ret.LoanID] = true

		loan, tool, err := l.checkReturn("process returns", &ret)
		if err != nil {
			return nil, err
		}
		if batch.TechnicianID != "" && loan.TechnicianID != batch.TechnicianID {
			return nil, preconditionf("process returns", entityLoan, loan.ID,
				"loan belongs to %s, not %s", loan.TechnicianID, batch.TechnicianID)
		}
		checked = append(checked, pending{loan: loan, tool: tool, ret: ret})
	}

	when := batch.ReturnDate
	if when.IsZero() {
		when = l.clock.Now()
	}
	out := make([]models.ToolLoan, 0, len(checked))
	for _, p := range checked {
		l.applyReturn(p.loan, p.tool, p.ret, when)
		out = append(out, *p.loan)
	}

	l.appendActivityf(models.ActionToolReturn, models.EntityTool, "Devolución masiva: %d herramientas", len(out))
	l.persist(ctx, KeyTools, KeyToolLoans, KeyActivity)

	return out, nil
}

// checkReturn validates a return and fills in its default status.
func (l *Ledger) checkReturn(op string, ret *ToolReturn) (*models.ToolLoan, *models.Tool, error) {
	loan, ok := l.findLoan(ret.LoanID)
	if !ok {
		return nil, nil, notFound(op, entityLoan, ret.LoanID)
	}
	if !loan.IsActive() {
		return nil, nil, preconditionf(op, entityLoan, loan.ID, "loan is %s", loan.Status)
	}
	tool, ok := l.findTool(loan.ToolID)
	if !ok {
		return nil, nil, notFound(op, entityTool, loan.ToolID)
	}

	if ret.ConditionIn == "" {
		ret.ConditionIn = ConditionGood
	}
	if ret.Status == "" {
		ret.Status = StatusForCondition(ret.ConditionIn)
	}
	switch ret.Status {
	case models.ToolStatusAvailable, models.ToolStatusBroken, models.ToolStatusMaintenance:
	default:
		return nil, nil, preconditionf(op, entityLoan, loan.ID, "cannot return a tool as %s", ret.Status)
	}
	return loan, tool, nil
}

func (l *Ledger) applyReturn(loan *models.ToolLoan, tool *models.Tool, ret ToolReturn, when time.Time) {
	loan.Status = models.LoanStatusReturned
	loan.ReturnDate = &when
	loan.ConditionIn = ret.ConditionIn

	tool.Status = ret.Status
	if ret.Status == models.ToolStatusMaintenance {
		tool.ActiveMaintenance = &models.MaintenanceDispatch{
			Date:        when,
			Type:        models.MaintenanceInternal,
			Urgency:     models.UrgencyMedium,
			Reason:      "Devolución: " + ret.ConditionIn,
			Provider:    internalWorkshop,
			Responsible: loan.TechnicianName,
		}
	}
}

// ============================================================================
// Maintenance
// ============================================================================

// SendToMaintenance opens a maintenance job on an Available or Broken tool.
func (l *Ledger) SendToMaintenance(ctx context.Context, toolID string, input DispatchInput) (*models.Tool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tool, ok := l.findTool(toolID)
	if !ok {
		return nil, notFound("send to maintenance", entityTool, toolID)
	}
	if tool.Status != models.ToolStatusAvailable && tool.Status != models.ToolStatusBroken {
		return nil, preconditionf("send to maintenance", entityTool, toolID, "status is %s", tool.Status)
	}

	v := newValidation("send to maintenance", entityTool, toolID)
	v.check(strings.TrimSpace(input.Reason) != "", "reason is required")
	if input.Type != "" {
		v.check(input.Type == models.MaintenanceInternal || input.Type == models.MaintenanceExternal, "invalid maintenance type %q", input.Type)
	}
	if input.Urgency != "" {
		v.check(input.Urgency == models.UrgencyLow || input.Urgency == models.UrgencyMedium || input.Urgency == models.UrgencyHigh,
			"invalid urgency %q", input.Urgency)
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	d := &models.MaintenanceDispatch{
		Date:                l.clock.Now(),
		Type:                input.Type,
		Urgency:             input.Urgency,
		Reason:              strings.TrimSpace(input.Reason),
		Provider:            strings.TrimSpace(input.Provider),
		Responsible:         input.Responsible,
		Reference:           input.Reference,
		EstimatedReturnDate: input.EstimatedReturnDate,
	}
	if d.Type == "" {
		d.Type = models.MaintenanceInternal
	}
	if d.Urgency == "" {
		d.Urgency = models.UrgencyMedium
	}
	if d.Provider == "" {
		d.Provider = internalWorkshop
	}

	tool.Status = models.ToolStatusMaintenance
	tool.ActiveMaintenance = d

	l.appendActivityf(models.ActionToolMaintenance, models.EntityTool, "Envío a mantenimiento: %s (%s)", tool.Code, d.Provider)
	l.persist(ctx, KeyTools, KeyActivity)

	return tool.Clone(), nil
}

// ReturnFromMaintenance closes a tool's maintenance job and records it.
func (l *Ledger) ReturnFromMaintenance(ctx context.Context, toolID string, outcome MaintenanceOutcome) (*models.ToolMaintenance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tool, ok := l.findTool(toolID)
	if !ok {
		return nil, notFound("return from maintenance", entityTool, toolID)
	}
	if tool.Status != models.ToolStatusMaintenance {
		return nil, preconditionf("return from maintenance", entityTool, toolID, "status is %s, want %s", tool.Status, models.ToolStatusMaintenance)
	}

	if outcome.Status == "" {
		outcome.Status = models.ToolStatusAvailable
	}
	if outcome.Type == "" {
		outcome.Type = models.MaintenanceCorrective
	}
	v := newValidation("return from maintenance", entityTool, toolID)
	v.check(outcome.Status == models.ToolStatusAvailable || outcome.Status == models.ToolStatusBroken,
		"resulting status %s not allowed", outcome.Status)
	v.check(outcome.Type == models.MaintenancePreventative || outcome.Type == models.MaintenanceCorrective,
		"invalid maintenance type %q", outcome.Type)
	v.check(!outcome.Cost.IsNegative(), "cost must not be negative")
	if err := v.err(); err != nil {
		return nil, err
	}

	rec := &models.ToolMaintenance{
		ID:                l.ids.NewPrefixedID(util.MaintenancePrefix),
		ToolID:            tool.ID,
		Type:              outcome.Type,
		Date:              l.clock.Now(),
		PerformedBy:       unknownPerformer,
		Cost:              outcome.Cost,
		InvoiceRef:        outcome.InvoiceRef,
		Description:       strings.TrimSpace(outcome.Description),
		NextScheduledDate: outcome.NextMaintenanceDate,
	}
	if d := tool.ActiveMaintenance; d != nil {
		if d.Provider != "" {
			rec.PerformedBy = d.Provider
		}
		rec.PurchaseOrder = d.Reference
	}
	if rec.Description == "" {
		rec.Description = "Mantenimiento Finalizado"
	}

	tool.ActiveMaintenance = nil
	tool.Status = outcome.Status
	if outcome.NextMaintenanceDate != nil {
		next := *outcome.NextMaintenanceDate
		tool.NextMaintenanceDate = &next
	}
	l.maintenances = append(l.maintenances, rec)

	l.appendActivityf(models.ActionToolMaintenance, models.EntityTool, "Mantenimiento registrado: %s", tool.ID)
	l.persist(ctx, KeyTools, KeyToolMaintenances, KeyActivity)

	out := *rec
	return &out, nil
}

// ============================================================================
// Queries
// ============================================================================

// Tools returns every tool in the crib.
func (l *Ledger) Tools() []*models.Tool {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*models.Tool, len(l.tools))
	for i, t := range l.tools {
		out[i] = t.Clone()
	}
	return out
}

// Tool returns one tool by id.
func (l *Ledger) Tool(id string) (*models.Tool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.findTool(id)
	if !ok {
		return nil, notFound("get", entityTool, id)
	}
	return t.Clone(), nil
}

// Loans returns every loan, open and closed.
func (l *Ledger) Loans() []models.ToolLoan {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loansWhere(func(*models.ToolLoan) bool { return true })
}

// ActiveLoans returns the loans still open.
func (l *Ledger) ActiveLoans() []models.ToolLoan {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loansWhere((*models.ToolLoan).IsActive)
}

// ActiveLoansByTechnician returns the open loans held by one technician.
func (l *Ledger) ActiveLoansByTechnician(technicianID string) []models.ToolLoan {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loansWhere(func(loan *models.ToolLoan) bool {
		return loan.IsActive() && loan.TechnicianID == technicianID
	})
}

func (l *Ledger) loansWhere(keep func(*models.ToolLoan) bool) []models.ToolLoan {
	out := []models.ToolLoan{}
	for _, loan := range l.loans {
		if keep(loan) {
			out = append(out, *loan)
		}
	}
	return out
}

// Maintenances returns the completed maintenance records.
func (l *Ledger) Maintenances() []models.ToolMaintenance {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.ToolMaintenance, len(l.maintenances))
	for i, m := range l.maintenances {
		out[i] = *m
	}
	return out
}

// MaintenanceDue returns tools whose scheduled maintenance falls on or before now.
func (l *Ledger) MaintenanceDue(now time.Time) []*models.Tool {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*models.Tool
	for _, t := range l.tools {
		if t.MaintenanceDue(now) {
			out = append(out, t.Clone())
		}
	}
	return out
}

func (l *Ledger) findTool(id string) (*models.Tool, bool) {
	for _, t := range l.tools {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

func (l *Ledger) codeTaken(code, exceptID string) bool {
	for _, t := range l.tools {
		if t.ID != exceptID && strings.EqualFold(t.Code, code) {
			return true
		}
	}
	return false
}

func (l *Ledger) findLoan(id string) (*models.ToolLoan, bool) {
	for _, loan := range l.loans {
		if loan.ID == id {
			return loan, true
		}
	}
	return nil, false
}

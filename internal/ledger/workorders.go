package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/northchrome/opsledger/internal/models"
	"github.com/northchrome/opsledger/internal/util"
)

const entityWorkOrder = "work order"

// ============================================================================
// Inputs
// ============================================================================

// CreateWorkOrderInput holds the caller-supplied fields of a new work order.
type CreateWorkOrderInput struct {
	ID                string
	Title             string
	ClientID          string
	Identification    string
	ClientGuide       string
	ClientOC          string
	ReceptionDoc      string
	QuoteNumber       string
	QuotedValue       decimal.Decimal
	IsBudgetApproved  *bool // nil means approved
	Priority          models.Priority
	Area              models.Area
	Machine           string
	TechnicianID      string
	AssignedOperators []string
	// CreationDate defaults to now.
	CreationDate            time.Time
	EstimatedCompletionDate time.Time
	Description             string
	Tasks                   []string
}

// UpdateWorkOrderInput holds the fields to change. Nil fields are left as is.
type UpdateWorkOrderInput struct {
	Title                   *string
	ClientID                *string
	Identification          *string
	ClientGuide             *string
	ClientOC                *string
	QuoteNumber             *string
	QuotedValue             *decimal.Decimal
	Priority                *models.Priority
	Area                    *models.Area
	Machine                 *string
	TechnicianID            *string
	EstimatedCompletionDate *time.Time
	Description             *string
	Status                  *models.WorkOrderStatus
}

// LaborInput books technician hours on a work order.
type LaborInput struct {
	TechnicianID string
	Hours        float64
	HourlyRate   decimal.Decimal
	// Date defaults to now.
	Date        time.Time
	Description string
}

// ServiceInput books an external service on a work order.
type ServiceInput struct {
	Provider     string
	Description  string
	Cost         decimal.Decimal
	ReferenceDoc string
	// Date defaults to now.
	Date time.Time
}

// FinishResult is the outcome of finishing a work order.
type FinishResult struct {
	Order *models.WorkOrder
	// PendingTasks counts checklist items still open at completion.
	PendingTasks int
}

// ============================================================================
// Lifecycle
// ============================================================================

// CreateWorkOrder registers a new Pending work order.
func (l *Ledger) CreateWorkOrder(ctx context.Context, input CreateWorkOrderInput) (*models.WorkOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	id := strings.TrimSpace(input.ID)
	if input.CreationDate.IsZero() {
		input.CreationDate = now
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}

	v := newValidation("create", entityWorkOrder, id)
	v.check(id != "", "id is required")
	v.check(strings.TrimSpace(input.Title) != "", "title is required")
	v.check(strings.TrimSpace(input.ClientID) != "", "client is required")
	v.check(input.Area.IsValid(), "invalid area %q", input.Area)
	v.check(input.Priority.IsValid(), "invalid priority %q", input.Priority)
	v.check(!input.EstimatedCompletionDate.IsZero(), "estimated completion date is required")
	v.check(input.EstimatedCompletionDate.IsZero() || !input.EstimatedCompletionDate.Before(input.CreationDate),
		"estimated completion date precedes creation date")
	v.check(!input.QuotedValue.IsNegative(), "quoted value must not be negative")
	if err := v.err(); err != nil {
		return nil, err
	}
	if _, _, ok := l.findWorkOrder(id); ok {
		return nil, conflictf("create", entityWorkOrder, id, "id already in use")
	}
	if input.TechnicianID != "" {
		if _, ok := l.technicianName(input.TechnicianID); !ok {
			return nil, notFound("create", "technician", input.TechnicianID)
		}
	}

	approved := true
	if input.IsBudgetApproved != nil {
		approved = *input.IsBudgetApproved
	}

	wo := &models.WorkOrder{
		ID:                      id,
		Title:                   strings.TrimSpace(input.Title),
		ClientID:                strings.TrimSpace(input.ClientID),
		Identification:          input.Identification,
		ClientGuide:             input.ClientGuide,
		ClientOC:                input.ClientOC,
		ReceptionDoc:            input.ReceptionDoc,
		QuoteNumber:             input.QuoteNumber,
		QuotedValue:             input.QuotedValue,
		Status:                  models.WorkOrderStatusPending,
		IsBudgetApproved:        approved,
		Priority:                input.Priority,
		Area:                    input.Area,
		Machine:                 input.Machine,
		TechnicianID:            input.TechnicianID,
		AssignedOperators:       append([]string(nil), input.AssignedOperators...),
		Materials:               []models.MaterialUsage{},
		Labor:                   []models.LaborEntry{},
		Services:                []models.ServiceEntry{},
		Tasks:                   []models.Task{},
		Comments:                []models.Comment{},
		CreationDate:            input.CreationDate,
		EstimatedCompletionDate: input.EstimatedCompletionDate,
		Description:             input.Description,
	}
	for _, desc := range input.Tasks {
		if desc = strings.TrimSpace(desc); desc != "" {
			wo.Tasks = append(wo.Tasks, models.Task{ID: l.ids.NewPrefixedID(util.TaskPrefix), Description: desc})
		}
	}

	l.workOrders = append(l.workOrders, wo)

	state := "Activa"
	if !approved {
		state = "Pendiente Presupuesto"
	}
	l.appendActivityf(models.ActionCreate, models.EntityWorkOrder, "Creada OT %s (%s)", wo.ID, state)
	l.persist(ctx, KeyWorkOrders, KeyActivity)

	return wo.Clone(), nil
}

// StartWorkOrder moves a Pending order into process. The budget must be approved.
func (l *Ledger) StartWorkOrder(ctx context.Context, id string) (*models.WorkOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wo, err := l.getWorkOrder("start", id)
	if err != nil {
		return nil, err
	}
	if wo.Status != models.WorkOrderStatusPending {
		return nil, preconditionf("start", entityWorkOrder, id, "status is %s, want %s", wo.Status, models.WorkOrderStatusPending)
	}
	if err := checkTransition("start", wo, models.WorkOrderStatusInProcess); err != nil {
		return nil, err
	}

	return l.changeStatus(ctx, wo, models.WorkOrderStatusInProcess), nil
}

// FinishWorkOrder completes an order that is in process or waiting after having
// started. Open checklist tasks do not block completion; their count is reported.
func (l *Ledger) FinishWorkOrder(ctx context.Context, id, finalNotes string) (*FinishResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wo, err := l.getWorkOrder("finish", id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition("finish", wo, models.WorkOrderStatusFinished); err != nil {
		return nil, err
	}

	wo.FinalNotes = finalNotes
	pending := wo.PendingTasks()
	out := l.changeStatus(ctx, wo, models.WorkOrderStatusFinished)
	if pending > 0 {
		l.log.Warn("work order finished with open tasks", "id", id, "pending", pending)
	}

	return &FinishResult{Order: out, PendingTasks: pending}, nil
}

// ApproveBudget marks the order's budget as approved. Status is unchanged.
func (l *Ledger) ApproveBudget(ctx context.Context, id string) (*models.WorkOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wo, err := l.getWorkOrder("approve", id)
	if err != nil {
		return nil, err
	}
	if wo.Status.IsTerminal() {
		return nil, preconditionf("approve", entityWorkOrder, id, "order is %s", wo.Status)
	}

	wo.IsBudgetApproved = true
	l.appendActivityf(models.ActionUpdate, models.EntityWorkOrder, "OT %s: Presupuesto aprobado", id)
	l.persist(ctx, KeyWorkOrders, KeyActivity)

	return wo.Clone(), nil
}

// PauseWorkOrder puts a Pending or InProcess order on hold.
func (l *Ledger) PauseWorkOrder(ctx context.Context, id string) (*models.WorkOrder, error) {
	return l.moveTo(ctx, "pause", id, models.WorkOrderStatusWaiting)
}

// ResumeWorkOrder returns a Waiting order to process. The budget must be approved.
func (l *Ledger) ResumeWorkOrder(ctx context.Context, id string) (*models.WorkOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wo, err := l.getWorkOrder("resume", id)
	if err != nil {
		return nil, err
	}
	if wo.Status != models.WorkOrderStatusWaiting {
		return nil, preconditionf("resume", entityWorkOrder, id, "status is %s, want %s", wo.Status, models.WorkOrderStatusWaiting)
	}
	if err := checkTransition("resume", wo, models.WorkOrderStatusInProcess); err != nil {
		return nil, err
	}

	return l.changeStatus(ctx, wo, models.WorkOrderStatusInProcess), nil
}

// CancelWorkOrder closes a non-terminal order without completing it.
func (l *Ledger) CancelWorkOrder(ctx context.Context, id string) (*models.WorkOrder, error) {
	return l.moveTo(ctx, "cancel", id, models.WorkOrderStatusCancelled)
}

func (l *Ledger) moveTo(ctx context.Context, op, id string, target models.WorkOrderStatus) (*models.WorkOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wo, err := l.getWorkOrder(op, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(op, wo, target); err != nil {
		return nil, err
	}

	return l.changeStatus(ctx, wo, target), nil
}

// UpdateWorkOrder edits order fields. A status change is checked against the
// lifecycle and logged as STATUS_CHANGE; any other edit is logged as UPDATE.
func (l *Ledger) UpdateWorkOrder(ctx context.Context, id string, input UpdateWorkOrderInput) (*models.WorkOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wo, err := l.getWorkOrder("update", id)
	if err != nil {
		return nil, err
	}

	v := newValidation("update", entityWorkOrder, id)
	if input.Title != nil {
		v.check(strings.TrimSpace(*input.Title) != "", "title is required")
	}
	if input.ClientID != nil {
		v.check(strings.TrimSpace(*input.ClientID) != "", "client is required")
	}
	if input.Priority != nil {
		v.check(input.Priority.IsValid(), "invalid priority %q", *input.Priority)
	}
	if input.Area != nil {
		v.check(input.Area.IsValid(), "invalid area %q", *input.Area)
	}
	if input.EstimatedCompletionDate != nil {
		v.check(!input.EstimatedCompletionDate.Before(wo.CreationDate), "estimated completion date precedes creation date")
	}
	if input.QuotedValue != nil {
		v.check(!input.QuotedValue.IsNegative(), "quoted value must not be negative")
	}
	if input.Status != nil {
		v.check(input.Status.IsValid(), "invalid status %q", *input.Status)
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	statusChange := input.Status != nil && *input.Status != wo.Status
	if statusChange {
		if err := checkTransition("update", wo, *input.Status); err != nil {
			return nil, err
		}
	}
	if input.TechnicianID != nil && *input.TechnicianID != "" {
		if _, ok := l.technicianName(*input.TechnicianID); !ok {
			return nil, notFound("update", "technician", *input.TechnicianID)
		}
	}

	changed := false
	set := func(dst *string, src *string) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}
	trimmed := func(src *string) *string {
		if src == nil {
			return nil
		}
		t := strings.TrimSpace(*src)
		return &t
	}
	set(&wo.Title, trimmed(input.Title))
	set(&wo.ClientID, trimmed(input.ClientID))
	set(&wo.Identification, input.Identification)
	set(&wo.ClientGuide, input.ClientGuide)
	set(&wo.ClientOC, input.ClientOC)
	set(&wo.QuoteNumber, input.QuoteNumber)
	set(&wo.Machine, input.Machine)
	set(&wo.TechnicianID, input.TechnicianID)
	set(&wo.Description, input.Description)
	if input.QuotedValue != nil && !wo.QuotedValue.Equal(*input.QuotedValue) {
		wo.QuotedValue = *input.QuotedValue
		changed = true
	}
	if input.Priority != nil && wo.Priority != *input.Priority {
		wo.Priority = *input.Priority
		changed = true
	}
	if input.Area != nil && wo.Area != *input.Area {
		wo.Area = *input.Area
		changed = true
	}
	if input.EstimatedCompletionDate != nil && !wo.EstimatedCompletionDate.Equal(*input.EstimatedCompletionDate) {
		wo.EstimatedCompletionDate = *input.EstimatedCompletionDate
		changed = true
	}

	if statusChange {
		return l.changeStatus(ctx, wo, *input.Status), nil
	}
	if changed {
		l.appendActivityf(models.ActionUpdate, models.EntityWorkOrder, "Actualizada OT %s", id)
		l.persist(ctx, KeyWorkOrders, KeyActivity)
	}

	return wo.Clone(), nil
}

// checkTransition reports whether wo may move to target. Entering InProcess
// requires an approved budget; finishing requires the order to have started.
func checkTransition(op string, wo *models.WorkOrder, target models.WorkOrderStatus) error {
	if !wo.Status.CanTransitionTo(target) {
		return preconditionf(op, entityWorkOrder, wo.ID, "cannot move from %s to %s", wo.Status, target)
	}
	if target == models.WorkOrderStatusInProcess && !wo.IsBudgetApproved {
		return preconditionf(op, entityWorkOrder, wo.ID, "budget not approved")
	}
	if target == models.WorkOrderStatusFinished && wo.StartDate == nil {
		return preconditionf(op, entityWorkOrder, wo.ID, "order was never started")
	}
	return nil
}

// changeStatus applies a checked transition with its date side effects, logs
// it and persists.
func (l *Ledger) changeStatus(ctx context.Context, wo *models.WorkOrder, target models.WorkOrderStatus) *models.WorkOrder {
	now := l.clock.Now()
	from := wo.Status

	switch target {
	case models.WorkOrderStatusInProcess:
		if wo.StartDate == nil {
			wo.StartDate = &now
		}
	case models.WorkOrderStatusFinished:
		wo.FinishedDate = &now
	}
	wo.Status = target

	l.appendActivityf(models.ActionStatusChange, models.EntityWorkOrder,
		"OT %s: Cambio de estado de %q a %q", wo.ID, from, target)
	l.persist(ctx, KeyWorkOrders, KeyActivity)

	return wo.Clone()
}

// ============================================================================
// Resources
// ============================================================================

// AttachMaterials appends material usage to a non-terminal order. Stock is not touched.
func (l *Ledger) AttachMaterials(ctx context.Context, id string, usages []models.MaterialUsage) (*models.WorkOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wo, err := l.getOpenWorkOrder("attach materials", id)
	if err != nil {
		return nil, err
	}

	v := newValidation("attach materials", entityWorkOrder, id)
	for i, u := range usages {
		v.check(u.ItemID != "", "line %d: item is required", i+1)
		v.check(positive(u.Quantity), "line %d: quantity must be a positive number", i+1)
		v.check(!u.UnitPriceAtUsage.IsNegative(), "line %d: unit price must not be negative", i+1)
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	l.attachMaterials(wo, usages)
	l.appendActivityf(models.ActionUpdate, models.EntityWorkOrder, "OT %s: %d materiales asignados", id, len(usages))
	l.persist(ctx, KeyWorkOrders, KeyActivity)

	return wo.Clone(), nil
}

func (l *Ledger) attachMaterials(wo *models.WorkOrder, usages []models.MaterialUsage) {
	now := l.clock.Now()
	for _, u := range usages {
		if u.DateAdded.IsZero() {
			u.DateAdded = now
		}
		if u.TotalCost.IsZero() {
			u.TotalCost = u.UnitPriceAtUsage.Mul(decimal.NewFromFloat(u.Quantity))
		}
		wo.Materials = append(wo.Materials, u)
	}
}

// AddLabor books technician hours on a non-terminal order. The technician's
// name is copied from the roster at booking time.
func (l *Ledger) AddLabor(ctx context.Context, id string, input LaborInput) (*models.WorkOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wo, err := l.getOpenWorkOrder("add labor", id)
	if err != nil {
		return nil, err
	}

	v := newValidation("add labor", entityWorkOrder, id)
	v.check(input.TechnicianID != "", "technician is required")
	v.check(positive(input.Hours), "hours must be a positive number")
	v.check(!input.HourlyRate.IsNegative(), "hourly rate must not be negative")
	if err := v.err(); err != nil {
		return nil, err
	}
	name, ok := l.technicianName(input.TechnicianID)
	if !ok {
		return nil, notFound("add labor", "technician", input.TechnicianID)
	}

	if input.Date.IsZero() {
		input.Date = l.clock.Now()
	}
	wo.Labor = append(wo.Labor, models.LaborEntry{
		ID:             l.ids.NewPrefixedID(util.LaborPrefix),
		TechnicianID:   input.TechnicianID,
		TechnicianName: name,
		Hours:          input.Hours,
		HourlyRate:     input.HourlyRate,
		Date:           input.Date,
		Description:    input.Description,
	})

	l.appendActivityf(models.ActionUpdate, models.EntityWorkOrder, "OT %s: %.1f h de %s", id, input.Hours, name)
	l.persist(ctx, KeyWorkOrders, KeyActivity)

	return wo.Clone(), nil
}

// AddService books an external service on a non-terminal order.
func (l *Ledger) AddService(ctx context.Context, id string, input ServiceInput) (*models.WorkOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wo, err := l.getOpenWorkOrder("add service", id)
	if err != nil {
		return nil, err
	}

	v := newValidation("add service", entityWorkOrder, id)
	v.check(strings.TrimSpace(input.Provider) != "", "provider is required")
	v.check(strings.TrimSpace(input.Description) != "", "description is required")
	v.check(!input.Cost.IsNegative(), "cost must not be negative")
	if err := v.err(); err != nil {
		return nil, err
	}

	if input.Date.IsZero() {
		input.Date = l.clock.Now()
	}
	wo.Services = append(wo.Services, models.ServiceEntry{
		ID:           l.ids.NewPrefixedID(util.ServicePrefix),
		Provider:     strings.TrimSpace(input.Provider),
		Description:  strings.TrimSpace(input.Description),
		Cost:         input.Cost,
		ReferenceDoc: input.ReferenceDoc,
		Date:         input.Date,
	})

	l.appendActivityf(models.ActionUpdate, models.EntityWorkOrder, "OT %s: Servicio externo %s", id, input.Provider)
	l.persist(ctx, KeyWorkOrders, KeyActivity)

	return wo.Clone(), nil
}

// AddTask appends an open checklist item.
func (l *Ledger) AddTask(ctx context.Context, id, description string) (*models.WorkOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wo, err := l.getWorkOrder("add task", id)
	if err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		v := newValidation("add task", entityWorkOrder, id)
		v.addf("description is required")
		return nil, v.err()
	}

	wo.Tasks = append(wo.Tasks, models.Task{
		ID:          l.ids.NewPrefixedID(util.TaskPrefix),
		Description: description,
	})

	l.appendActivityf(models.ActionUpdate, models.EntityWorkOrder, "OT %s: Tarea agregada", id)
	l.persist(ctx, KeyWorkOrders, KeyActivity)

	return wo.Clone(), nil
}

// ToggleTask flips a task's completion. Completing stamps who and when;
// reopening clears both.
func (l *Ledger) ToggleTask(ctx context.Context, id, taskID, by string) (*models.WorkOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wo, err := l.getWorkOrder("toggle task", id)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range wo.Tasks {
		if wo.Tasks[i].ID == taskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, notFound("toggle task", "task", taskID)
	}

	task := &wo.Tasks[idx]
	task.IsCompleted = !task.IsCompleted
	if task.IsCompleted {
		now := l.clock.Now()
		if by == "" {
			by = l.actor
		}
		task.CompletedBy = by
		task.CompletedAt = &now
	} else {
		task.CompletedBy = ""
		task.CompletedAt = nil
	}

	l.appendActivityf(models.ActionUpdate, models.EntityWorkOrder, "OT %s: Tarea %q actualizada", id, task.Description)
	l.persist(ctx, KeyWorkOrders, KeyActivity)

	return wo.Clone(), nil
}

// AddComment appends a note to the order's thread.
func (l *Ledger) AddComment(ctx context.Context, id, author, text string) (*models.WorkOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wo, err := l.getWorkOrder("add comment", id)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		v := newValidation("add comment", entityWorkOrder, id)
		v.addf("text is required")
		return nil, v.err()
	}
	if author == "" {
		author = l.actor
	}

	wo.Comments = append(wo.Comments, models.Comment{
		ID:        l.ids.NewPrefixedID(util.CommentPrefix),
		Author:    author,
		Text:      text,
		Timestamp: l.clock.Now(),
	})

	l.appendActivityf(models.ActionUpdate, models.EntityWorkOrder, "OT %s: Comentario de %s", id, author)
	l.persist(ctx, KeyWorkOrders, KeyActivity)

	return wo.Clone(), nil
}

// ============================================================================
// Queries
// ============================================================================

// WorkOrders returns every work order in creation order.
func (l *Ledger) WorkOrders() []*models.WorkOrder {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*models.WorkOrder, len(l.workOrders))
	for i, wo := range l.workOrders {
		out[i] = wo.Clone()
	}
	return out
}

// WorkOrder returns one work order by id.
func (l *Ledger) WorkOrder(id string) (*models.WorkOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wo, err := l.getWorkOrder("get", id)
	if err != nil {
		return nil, err
	}
	return wo.Clone(), nil
}

// OverdueWorkOrders returns open orders past their estimated completion date.
func (l *Ledger) OverdueWorkOrders() []*models.WorkOrder {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	var out []*models.WorkOrder
	for _, wo := range l.workOrders {
		if wo.IsOverdue(now) {
			out = append(out, wo.Clone())
		}
	}
	return out
}

func (l *Ledger) findWorkOrder(id string) (*models.WorkOrder, int, bool) {
	for i, wo := range l.workOrders {
		if wo.ID == id {
			return wo, i, true
		}
	}
	return nil, -1, false
}

func (l *Ledger) getWorkOrder(op, id string) (*models.WorkOrder, error) {
	wo, _, ok := l.findWorkOrder(id)
	if !ok {
		return nil, notFound(op, entityWorkOrder, id)
	}
	return wo, nil
}

func (l *Ledger) getOpenWorkOrder(op, id string) (*models.WorkOrder, error) {
	wo, err := l.getWorkOrder(op, id)
	if err != nil {
		return nil, err
	}
	if wo.Status.IsTerminal() {
		return nil, preconditionf(op, entityWorkOrder, id, "order is %s", wo.Status)
	}
	return wo, nil
}

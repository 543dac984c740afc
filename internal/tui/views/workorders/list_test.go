package workorders

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/northchrome/opsledger/internal/models"
	"github.com/northchrome/opsledger/internal/testutil"
	"github.com/northchrome/opsledger/internal/tui/components"
)

type stubSource []*models.WorkOrder

func (s stubSource) WorkOrders() []*models.WorkOrder { return s }

func sampleOrders() stubSource {
	return stubSource{
		testutil.FixtureWorkOrder(func(w *models.WorkOrder) {
			w.ID = "OT.2001"
			w.Title = "Rectificado de eje"
			w.Status = models.WorkOrderStatusInProcess
			w.Materials = []models.MaterialUsage{{ItemID: "MAT-1", Quantity: 2, TotalCost: decimal.NewFromInt(12500)}}
		}),
		testutil.FixtureWorkOrder(func(w *models.WorkOrder) {
			w.ID = "OT.2002"
			w.Title = "Soldadura de base"
			w.EstimatedCompletionDate = testutil.FixtureTime.AddDate(0, 0, -1)
		}),
		testutil.FixtureWorkOrder(func(w *models.WorkOrder) {
			w.ID = "OT.2003"
			w.Title = "Camisa hidráulica"
			w.Status = models.WorkOrderStatusFinished
			finished := testutil.FixtureTime
			w.FinishedDate = &finished
		}),
	}
}

func newView(src Source) *ListView {
	v := NewListView(src, components.DefaultStyles(), "")
	v.SetNow(testutil.FixtureTime)
	v.Load()
	return v
}

func TestListView_EmptyRender(t *testing.T) {
	v := newView(nil)
	output := v.Render(120, 40)

	if !strings.Contains(output, "ÓRDENES DE TRABAJO") {
		t.Error("expected title in output")
	}
	if !strings.Contains(output, "No hay órdenes") {
		t.Error("expected empty state message")
	}
	if v.Selected() != nil {
		t.Error("expected no selection on an empty board")
	}
}

func TestListView_Filters(t *testing.T) {
	v := newView(sampleOrders())

	tests := []struct {
		filter Filter
		want   []string
	}{
		{FilterOpen, []string{"OT.2001", "OT.2002"}},
		{FilterAll, []string{"OT.2001", "OT.2002", "OT.2003"}},
		{FilterOverdue, []string{"OT.2002"}},
		{FilterOpen, []string{"OT.2001", "OT.2002"}},
	}

	for i, tt := range tests {
		if i > 0 {
			v.CycleFilter()
		}
		if v.Filter() != tt.filter {
			t.Fatalf("step %d: expected filter %v, got %v", i, tt.filter, v.Filter())
		}
		if v.Count() != len(tt.want) {
			t.Fatalf("filter %v: expected %d orders, got %d", tt.filter, len(tt.want), v.Count())
		}
		output := v.Render(120, 40)
		for _, id := range tt.want {
			if !strings.Contains(output, id) {
				t.Errorf("filter %v: expected %s in output", tt.filter, id)
			}
		}
	}
}

func TestListView_Selection(t *testing.T) {
	v := newView(sampleOrders())

	if got := v.Selected(); got == nil || got.ID != "OT.2001" {
		t.Fatalf("expected OT.2001 selected, got %+v", got)
	}
	v.MoveDown()
	if got := v.Selected(); got.ID != "OT.2002" {
		t.Errorf("expected OT.2002 after MoveDown, got %s", got.ID)
	}
	v.MoveDown()
	if got := v.Selected(); got.ID != "OT.2002" {
		t.Errorf("expected selection to stop at the last row, got %s", got.ID)
	}
	v.MoveUp()
	if got := v.Selected(); got.ID != "OT.2001" {
		t.Errorf("expected OT.2001 after MoveUp, got %s", got.ID)
	}
}

func TestListView_Render_MarksOverdueAndCost(t *testing.T) {
	v := newView(sampleOrders())
	output := v.Render(120, 40)

	if !strings.Contains(output, "$12.500") {
		t.Error("expected formatted total cost")
	}
	if !strings.Contains(output, "! 2024-05-05") {
		t.Error("expected overdue marker on the late order")
	}
}

func TestListView_RenderHelp(t *testing.T) {
	v := newView(nil)

	if !strings.Contains(v.Render(120, 40), "x:Cancelar") {
		t.Error("expected full help text on wide terminal")
	}
	if !strings.Contains(v.Render(60, 40), "a/s/f/w/r/x") {
		t.Error("expected compact help text on narrow terminal")
	}
}

func TestListView_RenderDetail(t *testing.T) {
	v := newView(nil)

	if !strings.Contains(v.RenderDetail(nil), "Ninguna orden") {
		t.Error("expected placeholder for nil order")
	}

	now := testutil.FixtureTime
	wo := testutil.FixtureUnapprovedWorkOrder(func(w *models.WorkOrder) {
		w.ID = "OT.3001"
		w.EstimatedCompletionDate = now.Add(-2 * time.Hour)
		w.Labor = []models.LaborEntry{{TechnicianID: "U3", Hours: 3, HourlyRate: decimal.NewFromInt(10000)}}
		w.Tasks = []models.Task{
			{ID: "t1", Description: "Desmontaje", IsCompleted: true},
			{ID: "t2", Description: "Control dimensional"},
		}
		w.Comments = []models.Comment{{Author: "Juan", Text: "Falta plano", Timestamp: now}}
	})

	output := v.RenderDetail(wo)
	for _, want := range []string{
		"OT.3001",
		"presupuesto pendiente",
		"ATRASADA",
		"$30.000 (3.0 h)",
		"TAREAS (1 pendientes)",
		"[x] Desmontaje",
		"[ ] Control dimensional",
		"Falta plano",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in detail output", want)
		}
	}
}

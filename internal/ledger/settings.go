package ledger

import (
	"context"
	"sort"
	"strings"

	"github.com/northchrome/opsledger/internal/models"
)

// UpdateSettingsInput holds the settings to change. Nil fields are left as is.
type UpdateSettingsInput struct {
	CompanyName          *string
	NotificationsEnabled *bool
	DebugModeEnabled     *bool
	Theme                *string
}

// Settings returns the current application settings.
func (l *Ledger) Settings() models.Settings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.settings
}

// UpdateSettings applies a settings patch. A change that only touches the
// theme is saved without an audit entry.
func (l *Ledger) UpdateSettings(ctx context.Context, input UpdateSettingsInput) models.Settings {
	l.mu.Lock()
	defer l.mu.Unlock()

	var changed []string
	if input.CompanyName != nil && *input.CompanyName != l.settings.CompanyName {
		l.settings.CompanyName = *input.CompanyName
		changed = append(changed, "companyName")
	}
	if input.NotificationsEnabled != nil && *input.NotificationsEnabled != l.settings.NotificationsEnabled {
		l.settings.NotificationsEnabled = *input.NotificationsEnabled
		changed = append(changed, "notificationsEnabled")
	}
	if input.DebugModeEnabled != nil && *input.DebugModeEnabled != l.settings.DebugModeEnabled {
		l.settings.DebugModeEnabled = *input.DebugModeEnabled
		changed = append(changed, "debugModeEnabled")
	}
	themeChanged := input.Theme != nil && *input.Theme != l.settings.Theme
	if themeChanged {
		l.settings.Theme = *input.Theme
	}

	switch {
	case len(changed) > 0:
		if themeChanged {
			changed = append(changed, "theme")
		}
		l.appendActivityf(models.ActionUpdate, models.EntitySystem, "Configuración actualizada: %s", strings.Join(changed, ", "))
		l.persist(ctx, KeySettings, KeyActivity)
	case themeChanged:
		l.persist(ctx, KeySettings)
	}

	return l.settings
}

// AddTechnician adds a member to the technician roster.
func (l *Ledger) AddTechnician(ctx context.Context, tech models.Technician) (*models.Technician, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tech.ID = strings.TrimSpace(tech.ID)
	tech.Name = strings.TrimSpace(tech.Name)

	v := newValidation("create", "technician", tech.ID)
	v.check(tech.ID != "", "id is required")
	v.check(tech.Name != "", "name is required")
	if err := v.err(); err != nil {
		return nil, err
	}
	if _, ok := l.technicianName(tech.ID); ok {
		return nil, conflictf("create", "technician", tech.ID, "id already in use")
	}

	t := tech
	l.technicians = append(l.technicians, &t)
	l.appendActivityf(models.ActionCreate, models.EntitySystem, "Técnico registrado: %s", t.Name)
	l.persist(ctx, KeyTechnicians, KeyActivity)

	out := t
	return &out, nil
}

// Technicians returns the roster sorted by name.
func (l *Ledger) Technicians() []models.Technician {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Technician, 0, len(l.technicians))
	for _, t := range l.technicians {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (l *Ledger) technicianName(id string) (string, bool) {
	for _, t := range l.technicians {
		if t.ID == id {
			return t.Name, true
		}
	}
	return "", false
}

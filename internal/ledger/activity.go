package ledger

import (
	"fmt"

	"github.com/northchrome/opsledger/internal/models"
)

// appendActivity prepends an audit entry and trims the log to the configured
// limit. Callers hold l.mu and include KeyActivity in their persist call.
func (l *Ledger) appendActivity(action models.ActivityAction, entity models.ActivityEntity, details string) {
	entry := models.ActivityEntry{
		ID:        l.ids.NewID(),
		Timestamp: l.clock.Now(),
		Action:    action,
		Entity:    entity,
		Details:   details,
		ActorID:   l.actor,
	}

	next := make([]models.ActivityEntry, 0, min(len(l.activity)+1, l.activityLimit))
	next = append(next, entry)
	for _, e := range l.activity {
		if len(next) == l.activityLimit {
			break
		}
		next = append(next, e)
	}
	l.activity = next

	l.log.Debug("activity", "action", action, "entity", entity, "details", details)
}

func (l *Ledger) appendActivityf(action models.ActivityAction, entity models.ActivityEntity, format string, args ...any) {
	l.appendActivity(action, entity, fmt.Sprintf(format, args...))
}

// Activity returns the retained audit entries, most recent first.
func (l *Ledger) Activity() []models.ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]models.ActivityEntry{}, l.activity...)
}

// ActivityPage returns one page of the audit log and the total entry count.
func (l *Ledger) ActivityPage(p models.Pagination) ([]models.ActivityEntry, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := len(l.activity)
	start := p.Offset()
	if start >= total {
		return []models.ActivityEntry{}, total
	}
	end := min(start+p.Limit(), total)
	return append([]models.ActivityEntry{}, l.activity[start:end]...), total
}

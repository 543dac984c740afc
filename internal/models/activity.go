package models

import "time"

// ActivityAction classifies an audit entry.
type ActivityAction string

const (
	ActionCreate          ActivityAction = "CREATE"
	ActionUpdate          ActivityAction = "UPDATE"
	ActionDelete          ActivityAction = "DELETE"
	ActionStatusChange    ActivityAction = "STATUS_CHANGE"
	ActionReceiveStock    ActivityAction = "RECEIVE_STOCK"
	ActionDispatchStock   ActivityAction = "DISPATCH_STOCK"
	ActionToolLoan        ActivityAction = "TOOL_LOAN"
	ActionToolReturn      ActivityAction = "TOOL_RETURN"
	ActionToolMaintenance ActivityAction = "TOOL_MAINTENANCE"
)

// ActivityEntity names the kind of record an audit entry refers to.
type ActivityEntity string

const (
	EntityWorkOrder   ActivityEntity = "OT"
	EntityInventory   ActivityEntity = "INVENTORY"
	EntitySystem      ActivityEntity = "SYSTEM"
	EntityDocument    ActivityEntity = "DOCUMENT"
	EntityConsumption ActivityEntity = "CONSUMPTION"
	EntityTool        ActivityEntity = "TOOL"
)

// ActivityEntry is one line of the bounded audit trail.
type ActivityEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    ActivityAction `json:"action"`
	Entity    ActivityEntity `json:"entity"`
	Details   string         `json:"details"`
	ActorID   string         `json:"actorId,omitempty"`
}

// Technician is a member of shop staff who can book labor and borrow tools.
type Technician struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
	Active    bool   `json:"active"`
}

// Settings holds operator-adjustable application preferences.
type Settings struct {
	CompanyName          string `json:"companyName"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
	DebugModeEnabled     bool   `json:"debugModeEnabled"`
	Theme                string `json:"theme"`
}

// Pagination selects a 1-based page of a list. Page sizes are clamped to
// 1..100, with 25 used when unset.
type Pagination struct {
	Page     int
	PageSize int
}

// Limit is the effective page size.
func (p Pagination) Limit() int {
	if p.PageSize < 1 {
		return 25
	}
	return min(p.PageSize, 100)
}

// Offset is the index of the page's first entry.
func (p Pagination) Offset() int {
	return (max(p.Page, 1) - 1) * p.Limit()
}

// TotalPages is how many pages total entries span, at least one.
func (p Pagination) TotalPages(total int) int {
	return max((total+p.Limit()-1)/p.Limit(), 1)
}

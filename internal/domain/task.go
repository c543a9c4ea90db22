package domain

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// ParsePriority matches s case-insensitively. Unknown or empty input yields
// PriorityMedium with ok=false.
func ParsePriority(s string) (p Priority, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, true
	case "medium":
		return PriorityMedium, true
	case "low":
		return PriorityLow, true
	}
	return PriorityMedium, false
}

// Task is a single to-do item. DueDate is an opaque client-supplied date
// string. Position is nil until the list is reordered.
type Task struct {
	ID        int64
	ListID    int64
	Text      string
	Completed bool
	Priority  Priority
	DueDate   *string
	Position  *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskPatch carries the fields of a partial task update. Nil pointers leave
// the stored value untouched; ClearDueDate resets DueDate to nil.
type TaskPatch struct {
	Text         *string
	Completed    *bool
	Priority     *Priority
	DueDate      *string
	ClearDueDate bool
}

// Apply returns t with the patch applied.
func (p TaskPatch) Apply(t Task) Task {
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	return t
}

package orderstatus

import (
	"strings"
)

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	parts := strings.Split(s.Name, "_")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

// IsTerminal reports whether no further transition is allowed from s.
func (s Status) IsTerminal() bool {
	return s.Name == Statuses.Completed.Name || s.Name == Statuses.Cancelled.Name
}

type Enum struct {
	Pending    Status
	InProgress Status
	Completed  Status
	Cancelled  Status
}

var Statuses = Enum{
	Pending:    Status{Name: "pending"},
	InProgress: Status{Name: "in_progress"},
	Completed:  Status{Name: "completed"},
	Cancelled:  Status{Name: "cancelled"},
}

var All = []Status{
	Statuses.Pending,
	Statuses.InProgress,
	Statuses.Completed,
	Statuses.Cancelled,
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

// CanTransition reports whether an order may move from one status to another.
// The happy path is pending -> in_progress -> completed; cancellation is
// reachable from any non-terminal state. Terminal states admit no transition.
func CanTransition(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	switch to.Name {
	case Statuses.InProgress.Name:
		return from.Name == Statuses.Pending.Name
	case Statuses.Completed.Name:
		return from.Name == Statuses.Pending.Name || from.Name == Statuses.InProgress.Name
	case Statuses.Cancelled.Name:
		return true
	default:
		return false
	}
}

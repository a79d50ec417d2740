package model

// Task is a single record from the remote task tracker (a Notion page or a
// GitHub issue). Optional fields are nil when the source has no value.
type Task struct {
	PageID      string
	Title       string
	Description *string
	Status      *string
	Priority    *string
	URL         string
}

// TaskList is a page of tasks with its count.
type TaskList struct {
	Tasks []Task
	Total int
}

// TaskFilter narrows a task listing. An empty Status lists every task.
type TaskFilter struct {
	Status string
	Limit  int
}

// DefaultTaskLimit is used when a filter carries no positive limit.
const DefaultTaskLimit = 100

// EffectiveLimit returns Limit, or DefaultTaskLimit when Limit is not positive.
func (f TaskFilter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultTaskLimit
	}
	return f.Limit
}

// StatusUpdate moves a task to a new status. PropertyName is the name of the
// status property on the source; empty means "Status".
type StatusUpdate struct {
	PageID       string
	Status       string
	PropertyName string
}

// DefaultStatusProperty is the status property name used when none is given.
const DefaultStatusProperty = "Status"

// EffectivePropertyName returns PropertyName, or DefaultStatusProperty.
func (u StatusUpdate) EffectivePropertyName() string {
	if u.PropertyName == "" {
		return DefaultStatusProperty
	}
	return u.PropertyName
}

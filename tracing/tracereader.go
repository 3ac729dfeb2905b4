package tracing

// TaskQuery is used to define the tasks to be queried. Not all the fields
// have to be set. If a field is empty, the criteria is ignored.
type TaskQuery struct {
	// Use ID to select a single task by its ID.
	ID string

	// Use ParentID to select all the tasks that are children of a task.
	ParentID string

	// Use Kind to select all the tasks that are of a kind.
	Kind string

	// Use Where to select all the tasks that are executed at a location.
	Where string

	// Enable time range selection.
	EnableTimeRange bool

	// Use StartTime and EndTime to select tasks that overlap with the given
	// time range.
	StartTime, EndTime float64

	// EnableParentTask will also query the parent task of the selected
	// tasks.
	EnableParentTask bool
}

// TraceReader can read tasks back from a stored trace.
type TraceReader interface {
	// ListComponents returns all the locations used in the trace.
	ListComponents() []string

	// ListTasks queries tasks.
	ListTasks(query TaskQuery) []Task
}

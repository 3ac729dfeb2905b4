package tracing

import (
	"sync"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/splitbus/datarecording"
	"github.com/sarchlab/splitbus/sim"
)

type taskEntry struct {
	ID        string  `json:"id" splitbus_data:"unique"`
	ParentID  string  `json:"parent_id" splitbus_data:"index"`
	Kind      string  `json:"kind" splitbus_data:"index"`
	What      string  `json:"what" splitbus_data:"index"`
	Location  string  `json:"location" splitbus_data:"location"`
	StartTime float64 `json:"start_time" splitbus_data:"index"`
	EndTime   float64 `json:"end_time" splitbus_data:"index"`
}

// DBTracer stores tasks in a database through a DataRecorder backend. A task
// is written when it ends. Tasks that never end are discarded.
type DBTracer struct {
	mu         sync.Mutex
	timeTeller sim.TimeTeller
	backend    datarecording.DataRecorder

	startTime, endTime sim.VTimeInSec

	tracingTasks map[string]Task
}

// NewDBTracer creates a new DBTracer.
func NewDBTracer(
	timeTeller sim.TimeTeller,
	dataRecorder datarecording.DataRecorder,
) *DBTracer {
	dataRecorder.CreateTable("trace", taskEntry{})

	t := &DBTracer{
		timeTeller:   timeTeller,
		backend:      dataRecorder,
		tracingTasks: make(map[string]Task),
	}

	atexit.Register(func() { t.Terminate() })

	return t
}

// SetTimeRange sets the time range of the tracer. Tasks that end before the
// range starts or start after the range ends are not recorded.
func (t *DBTracer) SetTimeRange(startTime, endTime sim.VTimeInSec) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = startTime
	t.endTime = endTime
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startingTaskMustBeValid(task)

	task.StartTime = t.timeTeller.CurrentTime()
	if t.endTime > 0 && task.StartTime > t.endTime {
		return
	}

	t.tracingTasks[task.ID] = task
}

// StepTask does nothing for now.
func (t *DBTracer) StepTask(_ Task) {
}

// EndTask marks the end of a task and writes the task into the database.
func (t *DBTracer) EndTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task.EndTime = t.timeTeller.CurrentTime()
	if t.startTime > 0 && task.EndTime < t.startTime {
		delete(t.tracingTasks, task.ID)
		return
	}

	originalTask, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	t.backend.InsertData("trace", taskEntry{
		ID:        originalTask.ID,
		ParentID:  originalTask.ParentID,
		Kind:      originalTask.Kind,
		What:      originalTask.What,
		Location:  originalTask.Where,
		StartTime: float64(originalTask.StartTime),
		EndTime:   float64(task.EndTime),
	})

	delete(t.tracingTasks, task.ID)
}

// Terminate discards the tasks that have not ended and flushes the backend.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracingTasks = nil
	t.backend.Flush()
}

func (t *DBTracer) startingTaskMustBeValid(task Task) {
	if task.ID == "" {
		panic("task ID must be set")
	}

	if task.Kind == "" {
		panic("task kind must be set")
	}

	if task.What == "" {
		panic("task what must be set")
	}

	if task.Where == "" {
		panic("task location must be set")
	}
}

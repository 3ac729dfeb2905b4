package datarecording

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

type execInfo struct {
	Property string
	Value    string
}

// execRecorder records how the program was executed in the exec_info table.
type execRecorder struct {
	tablename string
	recorder  DataRecorder
	entries   []execInfo
}

func newExecRecorder(recorder DataRecorder) *execRecorder {
	e := &execRecorder{
		tablename: "exec_info",
		recorder:  recorder,
	}

	e.recorder.CreateTable(e.tablename, execInfo{})

	return e
}

// Start collects the information about the current execution.
func (e *execRecorder) Start() {
	startTime := time.Now().Format("2006-01-02 15:04:05.000000000")
	e.entries = append(e.entries, execInfo{"Start Time", startTime})

	cmd := strings.Join(os.Args, " ")
	e.entries = append(e.entries, execInfo{"Command", cmd})

	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}

	cwd := filepath.Dir(ex)
	e.entries = append(e.entries, execInfo{"Working Directory", cwd})
}

// End writes the collected information, along with the end time of the
// execution.
func (e *execRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(e.tablename, entry)
	}

	endTime := time.Now().Format("2006-01-02 15:04:05.000000000")
	e.recorder.InsertData(e.tablename, execInfo{"End Time", endTime})

	e.entries = nil

	e.recorder.Flush()
}

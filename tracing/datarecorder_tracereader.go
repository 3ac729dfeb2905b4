package tracing

import (
	"database/sql"

	// SQLite driver registration.
	_ "github.com/mattn/go-sqlite3"

	"github.com/sarchlab/splitbus/sim"
)

// DataRecorderTraceReader reads traces written by a DBTracer.
type DataRecorderTraceReader struct {
	*sql.DB
}

// NewDataRecorderTraceReader opens a trace database for reading.
func NewDataRecorderTraceReader(filename string) *DataRecorderTraceReader {
	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	return &DataRecorderTraceReader{
		DB: db,
	}
}

// ListComponents returns the locations of all the traced tasks.
func (r *DataRecorderTraceReader) ListComponents() []string {
	var components []string

	rows, err := r.Query(`
		SELECT DISTINCT l.Locale
		FROM trace t
		JOIN location l ON t.Location = l.ID
		ORDER BY l.Locale`)
	if err != nil {
		panic(err)
	}
	defer rows.Close()

	for rows.Next() {
		var component string

		err := rows.Scan(&component)
		if err != nil {
			panic(err)
		}

		components = append(components, component)
	}

	return components
}

// ListTasks returns the tasks that match the query.
func (r *DataRecorderTraceReader) ListTasks(query TaskQuery) []Task {
	sqlStr, args := r.prepareTaskQueryStr(query)

	rows, err := r.Query(sqlStr, args...)
	if err != nil {
		panic(err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		tasks = append(tasks, r.scanTask(rows, query.EnableParentTask))
	}

	return tasks
}

func (r *DataRecorderTraceReader) scanTask(
	rows *sql.Rows,
	withParent bool,
) Task {
	t := Task{}

	if !withParent {
		err := rows.Scan(
			&t.ID,
			&t.ParentID,
			&t.Kind,
			&t.What,
			&t.Where,
			&t.StartTime,
			&t.EndTime,
		)
		if err != nil {
			panic(err)
		}

		return t
	}

	// The parent columns are NULL when the parent is not in the trace.
	var (
		ptID, ptParentID, ptKind, ptWhat, ptWhere sql.NullString
		ptStart, ptEnd                            sql.NullFloat64
	)

	err := rows.Scan(
		&t.ID,
		&t.ParentID,
		&t.Kind,
		&t.What,
		&t.Where,
		&t.StartTime,
		&t.EndTime,
		&ptID,
		&ptParentID,
		&ptKind,
		&ptWhat,
		&ptWhere,
		&ptStart,
		&ptEnd,
	)
	if err != nil {
		panic(err)
	}

	if ptID.Valid {
		t.ParentTask = &Task{
			ID:        ptID.String,
			ParentID:  ptParentID.String,
			Kind:      ptKind.String,
			What:      ptWhat.String,
			Where:     ptWhere.String,
			StartTime: sim.VTimeInSec(ptStart.Float64),
			EndTime:   sim.VTimeInSec(ptEnd.Float64),
		}
	}

	return t
}

func (r *DataRecorderTraceReader) prepareTaskQueryStr(
	query TaskQuery,
) (string, []any) {
	sqlStr := `
		SELECT
			t.ID,
			t.ParentID,
			t.Kind,
			t.What,
			l.Locale,
			t.StartTime,
			t.EndTime`

	if query.EnableParentTask {
		sqlStr += `,
			pt.ID,
			pt.ParentID,
			pt.Kind,
			pt.What,
			pl.Locale,
			pt.StartTime,
			pt.EndTime`
	}

	sqlStr += `
		FROM trace t
		LEFT JOIN location l ON t.Location = l.ID`

	if query.EnableParentTask {
		sqlStr += `
		LEFT JOIN trace pt ON t.ParentID = pt.ID
		LEFT JOIN location pl ON pt.Location = pl.ID`
	}

	return r.addQueryConditionsToQueryStr(sqlStr, query)
}

func (r *DataRecorderTraceReader) addQueryConditionsToQueryStr(
	sqlStr string,
	query TaskQuery,
) (string, []any) {
	sqlStr += `
		WHERE 1=1`

	args := []any{}

	if query.ID != "" {
		sqlStr += `
		AND t.ID = ?`
		args = append(args, query.ID)
	}

	if query.ParentID != "" {
		sqlStr += `
		AND t.ParentID = ?`
		args = append(args, query.ParentID)
	}

	if query.Kind != "" {
		sqlStr += `
		AND t.Kind = ?`
		args = append(args, query.Kind)
	}

	if query.Where != "" {
		sqlStr += `
		AND l.Locale = ?`
		args = append(args, query.Where)
	}

	if query.EnableTimeRange {
		sqlStr += `
		AND t.EndTime > ? AND t.StartTime < ?`
		args = append(args, query.StartTime, query.EndTime)
	}

	sqlStr += `
		ORDER BY t.StartTime`

	return sqlStr, args
}

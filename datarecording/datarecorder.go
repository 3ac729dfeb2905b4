// Package datarecording stores simulation results in SQLite databases.
//
// Entries are plain structs. Struct fields can carry an `splitbus_data` tag to
// control how they are stored:
//
//   - "ignore": the field is not stored.
//   - "unique": the column carries a UNIQUE constraint.
//   - "index": an index is created for the column.
//   - "location": the string is interned in a shared `location` table and
//     the column stores the location ID.
package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	// SQLite driver registration.
	_ "github.com/mattn/go-sqlite3"
)

const dataTag = "splitbus_data"

// DataRecorder can create tables and record entries in them.
type DataRecorder interface {
	// CreateTable creates a table, using the fields of the sample entry as
	// columns.
	CreateTable(tableName string, sampleEntry any)

	// InsertData records one entry in a table that already exists. The entry
	// must be of the same type as the sample entry of the table.
	InsertData(tableName string, entry any)

	// ListTables returns the names of all the created tables.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush()

	// Close flushes the remaining entries and closes the database.
	Close()
}

// NewDataRecorder creates a DataRecorder that writes to `path`.sqlite3. It
// also records the command, the working directory, and the start and end
// time of the run in the exec_info table.
func NewDataRecorder(path string) DataRecorder {
	w := &sqliteWriter{
		dbName:    path,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	w.init()

	w.execLog = newExecRecorder(w)
	w.execLog.Start()

	atexit.Register(func() { w.Flush() })

	return w
}

// NewDataRecorderWithDB creates a DataRecorder that writes to an already
// opened database.
func NewDataRecorderWithDB(db *sql.DB) DataRecorder {
	w := &sqliteWriter{
		DB:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

type column struct {
	name       string
	unique     bool
	indexed    bool
	isLocation bool
}

type table struct {
	structType reflect.Type
	columns    []column
	entries    []any
}

type sqliteWriter struct {
	*sql.DB

	dbName     string
	tables     map[string]*table
	batchSize  int
	entryCount int

	execLog          *execRecorder
	locationIDs      map[string]int64
	locationTableRdy bool
}

func (w *sqliteWriter) init() {
	if w.dbName == "" {
		w.dbName = "splitbus_recording_" + xid.New().String()
	}

	filename := w.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	w.DB = db
}

func (w *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	columns := w.columnsOf(sampleEntry)

	colDefs := make([]string, 0, len(columns))
	for _, c := range columns {
		def := c.name
		if c.unique {
			def += " UNIQUE"
		}

		colDefs = append(colDefs, def)

		if c.isLocation {
			w.ensureLocationTable()
		}
	}

	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + strings.Join(colDefs, ", \n\t") + "\n" + `);`
	w.mustExecute(createTableSQL)

	for _, c := range columns {
		if c.indexed {
			w.mustExecute(fmt.Sprintf(
				"CREATE INDEX %s_%s_index ON %s (%s);",
				tableName, c.name, tableName, c.name))
		}
	}

	w.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
		columns:    columns,
		entries:    []any{},
	}
}

func (w *sqliteWriter) InsertData(tableName string, entry any) {
	table, exists := w.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != table.structType {
		panic(fmt.Sprintf("entry type %s does not match table %s",
			reflect.TypeOf(entry), tableName))
	}

	table.entries = append(table.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		w.Flush()
	}
}

func (w *sqliteWriter) ListTables() []string {
	tables := make([]string, 0, len(w.tables))
	for table := range w.tables {
		tables = append(tables, table)
	}

	return tables
}

func (w *sqliteWriter) Flush() {
	if w.entryCount == 0 {
		return
	}

	w.mustExecute("BEGIN TRANSACTION")
	defer w.mustExecute("COMMIT TRANSACTION")

	for tableName, table := range w.tables {
		if len(table.entries) == 0 {
			continue
		}

		w.flushTable(tableName, table)
	}

	w.entryCount = 0
}

func (w *sqliteWriter) Close() {
	if w.execLog != nil {
		w.execLog.End()
	}

	w.Flush()

	err := w.DB.Close()
	if err != nil {
		panic(err)
	}
}

func (w *sqliteWriter) flushTable(tableName string, table *table) {
	placeholders := make([]string, len(table.columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}

	insertSQL := "INSERT INTO " + tableName +
		" VALUES (" + strings.Join(placeholders, ", ") + ")"

	stmt, err := w.Prepare(insertSQL)
	if err != nil {
		panic(err)
	}
	defer stmt.Close()

	for _, entry := range table.entries {
		_, err := stmt.Exec(w.columnValues(table, entry)...)
		if err != nil {
			panic(err)
		}
	}

	table.entries = nil
}

func (w *sqliteWriter) columnValues(table *table, entry any) []any {
	s := structs.New(entry)

	values := make([]any, 0, len(table.columns))
	for _, c := range table.columns {
		v := s.Field(c.name).Value()

		if c.isLocation {
			v = w.locationID(v.(string))
		}

		values = append(values, v)
	}

	return values
}

func (w *sqliteWriter) columnsOf(sampleEntry any) []column {
	fields := structs.New(sampleEntry).Fields()

	columns := make([]column, 0, len(fields))
	for _, f := range fields {
		tag := f.Tag(dataTag)
		if tag == "ignore" {
			continue
		}

		c := column{
			name:       f.Name(),
			unique:     tag == "unique",
			indexed:    tag == "index",
			isLocation: tag == "location",
		}

		w.columnKindMustBeStorable(f.Name(), f.Kind(), c.isLocation)

		columns = append(columns, c)
	}

	if len(columns) == 0 {
		panic("entry has no storable field")
	}

	return columns
}

func (w *sqliteWriter) columnKindMustBeStorable(
	name string,
	kind reflect.Kind,
	isLocation bool,
) {
	if isLocation {
		if kind != reflect.String {
			panic(fmt.Sprintf("location field %s must be a string", name))
		}

		return
	}

	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return
	default:
		panic(fmt.Sprintf("field %s cannot be stored in a table", name))
	}
}

func (w *sqliteWriter) ensureLocationTable() {
	if w.locationTableRdy {
		return
	}

	w.mustExecute(`CREATE TABLE IF NOT EXISTS location (
	ID INTEGER PRIMARY KEY AUTOINCREMENT,
	Locale TEXT UNIQUE
);`)

	w.locationIDs = make(map[string]int64)
	w.locationTableRdy = true
}

func (w *sqliteWriter) locationID(locale string) int64 {
	id, found := w.locationIDs[locale]
	if found {
		return id
	}

	res, err := w.Exec("INSERT INTO location (Locale) VALUES (?)", locale)
	if err != nil {
		panic(err)
	}

	id, err = res.LastInsertId()
	if err != nil {
		panic(err)
	}

	w.locationIDs[locale] = id

	return id
}

func (w *sqliteWriter) mustExecute(query string) sql.Result {
	res, err := w.Exec(query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to execute: %s\n", query)
		panic(err)
	}

	return res
}

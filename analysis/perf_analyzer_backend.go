package analysis

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/splitbus/datarecording"
)

// PerfAnalyzerBackend is the interface that provides the service that can
// store performance data entries.
type PerfAnalyzerBackend interface {
	AddDataEntry(entry PerfAnalyzerEntry)
	Flush()
}

// CSVBackend is a PerfAnalyzerBackend that writes data entries to a CSV
// file.
type CSVBackend struct {
	dbFile    *os.File
	csvWriter *csv.Writer
}

// NewCSVPerfAnalyzerBackend creates a CSVBackend that writes to
// `dbFilename`.csv.
func NewCSVPerfAnalyzerBackend(dbFilename string) *CSVBackend {
	if dbFilename == "" {
		panic("CSV backend requires a filename")
	}

	b := &CSVBackend{}

	var err error
	b.dbFile, err = os.Create(dbFilename + ".csv")
	if err != nil {
		panic(err)
	}

	b.csvWriter = csv.NewWriter(b.dbFile)

	header := []string{
		"Start", "End", "Where", "WhereRemote",
		"What", "EntryType", "Value", "Unit",
	}
	err = b.csvWriter.Write(header)
	if err != nil {
		panic(err)
	}

	atexit.Register(func() { b.Flush() })

	return b
}

// AddDataEntry adds a data entry to the CSV file.
func (b *CSVBackend) AddDataEntry(entry PerfAnalyzerEntry) {
	err := b.csvWriter.Write([]string{
		fmt.Sprintf("%.10f", entry.Start),
		fmt.Sprintf("%.10f", entry.End),
		entry.Where,
		string(entry.WhereRemote),
		entry.What,
		entry.EntryType,
		fmt.Sprintf("%.10f", entry.Value),
		entry.Unit,
	})
	if err != nil {
		panic(err)
	}
}

// Flush flushes the CSV writer.
func (b *CSVBackend) Flush() {
	b.csvWriter.Flush()
}

type perfEntryRow struct {
	StartTime float64 `splitbus_data:"index"`
	EndTime   float64 `splitbus_data:"index"`
	Location  string  `splitbus_data:"location"`
	Remote    string
	What      string `splitbus_data:"index"`
	EntryType string `splitbus_data:"index"`
	Value     float64
	Unit      string
}

// SQLiteBackend is a PerfAnalyzerBackend that writes data entries to a
// SQLite database through a DataRecorder.
type SQLiteBackend struct {
	recorder datarecording.DataRecorder
}

// NewSQLitePerfAnalyzerBackend creates a SQLiteBackend that writes to
// `dbFilename`.sqlite3.
func NewSQLitePerfAnalyzerBackend(dbFilename string) *SQLiteBackend {
	b := &SQLiteBackend{
		recorder: datarecording.NewDataRecorder(dbFilename),
	}

	b.recorder.CreateTable("perf", perfEntryRow{})

	atexit.Register(func() { b.recorder.Close() })

	return b
}

// AddDataEntry buffers one data entry to be written to the database.
func (b *SQLiteBackend) AddDataEntry(entry PerfAnalyzerEntry) {
	b.recorder.InsertData("perf", perfEntryRow{
		StartTime: float64(entry.Start),
		EndTime:   float64(entry.End),
		Location:  entry.Where,
		Remote:    string(entry.WhereRemote),
		What:      entry.What,
		EntryType: entry.EntryType,
		Value:     entry.Value,
		Unit:      entry.Unit,
	})
}

// Flush writes the buffered entries to the database.
func (b *SQLiteBackend) Flush() {
	b.recorder.Flush()
}

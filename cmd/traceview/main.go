// The traceview command serves a recorded trace database so that the tasks
// can be inspected in a browser.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/sarchlab/splitbus/cmd/traceview/static"
	"github.com/sarchlab/splitbus/tracing"
)

var (
	httpFlag = flag.String("http",
		"0.0.0.0:3002",
		"HTTP service address (e.g., ':6060')")
	sqliteFileName = flag.String("sqlite",
		"",
		"Name of the SQLite file to read from.")

	reader *tracing.DataRecorderTraceReader
	fs     http.FileSystem
)

func main() {
	flag.Parse()

	fs = static.GetAssets()

	connectToDB()
	startAPIServer()
}

func connectToDB() {
	if *sqliteFileName == "" {
		panic("Must specify a SQLite file")
	}

	reader = tracing.NewDataRecorderTraceReader(*sqliteFileName)
}

func startAPIServer() {
	http.Handle("/", http.FileServer(fs))

	http.HandleFunc("/api/trace", httpTrace)
	http.HandleFunc("/api/compnames", httpComponentNames)
	http.HandleFunc("/api/compinfo", httpComponentInfo)

	fmt.Printf("Listening %s\n", *httpFlag)

	err := http.ListenAndServe(*httpFlag, nil)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}

package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sarchlab/splitbus/tracing"
)

func httpTrace(w http.ResponseWriter, r *http.Request) {
	useTimeRange := true
	if r.FormValue("starttime") == "" || r.FormValue("endtime") == "" {
		useTimeRange = false
	}

	var err error

	startTime := 0.0
	endTime := 0.0

	if useTimeRange {
		startTime, err = strconv.ParseFloat(r.FormValue("starttime"), 64)
		dieOnErr(err)

		endTime, err = strconv.ParseFloat(r.FormValue("endtime"), 64)
		dieOnErr(err)
	}

	query := tracing.TaskQuery{
		ID:              r.FormValue("id"),
		ParentID:        r.FormValue("parentid"),
		Kind:            r.FormValue("kind"),
		Where:           r.FormValue("where"),
		StartTime:       startTime,
		EndTime:         endTime,
		EnableTimeRange: useTimeRange,
	}

	tasks := reader.ListTasks(query)

	rsp, err := json.Marshal(tasks)
	dieOnErr(err)

	_, err = w.Write(rsp)
	dieOnErr(err)
}

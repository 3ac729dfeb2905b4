package main

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/sarchlab/splitbus/tracing"
)

// A TimeValue is one point of a curve.
type TimeValue struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// ComponentInfo carries one metric of one component over a time range.
type ComponentInfo struct {
	Name      string      `json:"name"`
	InfoType  string      `json:"info_type"`
	StartTime float64     `json:"start_time"`
	EndTime   float64     `json:"end_time"`
	Data      []TimeValue `json:"data"`
}

func httpComponentNames(w http.ResponseWriter, _ *http.Request) {
	componentNames := reader.ListComponents()

	rsp, err := json.Marshal(componentNames)
	dieOnErr(err)

	_, err = w.Write(rsp)
	dieOnErr(err)
}

func httpComponentInfo(w http.ResponseWriter, r *http.Request) {
	compName := r.FormValue("where")
	infoType := r.FormValue("info_type")

	startTime, err := strconv.ParseFloat(r.FormValue("start_time"), 64)
	dieOnErr(err)

	endTime, err := strconv.ParseFloat(r.FormValue("end_time"), 64)
	dieOnErr(err)

	numDots, err := strconv.ParseInt(r.FormValue("num_dots"), 10, 32)
	dieOnErr(err)

	var compInfo *ComponentInfo
	switch infoType {
	case "ReqInCount":
		compInfo = calculateReqIn(
			compName, startTime, endTime, int(numDots))
	case "ReqCompleteCount":
		compInfo = calculateReqComplete(
			compName, startTime, endTime, int(numDots))
	case "AvgLatency":
		compInfo = calculateAvgLatency(
			compName, startTime, endTime, int(numDots))
	case "ConcurrentTask":
		compInfo = calculateTimeWeightedTaskCount(
			compName, infoType,
			startTime, endTime, int(numDots),
			func(t tracing.Task) bool { return true },
			func(t tracing.Task) float64 { return float64(t.StartTime) },
			func(t tracing.Task) float64 { return float64(t.EndTime) },
		)
	case "BufferPressure":
		compInfo = calculateTimeWeightedTaskCount(
			compName, infoType,
			startTime, endTime, int(numDots),
			taskIsReqIn,
			func(t tracing.Task) float64 {
				return float64(t.ParentTask.StartTime)
			},
			func(t tracing.Task) float64 {
				return float64(t.StartTime)
			},
		)
	case "PendingReqOut":
		compInfo = calculateTimeWeightedTaskCount(
			compName, infoType,
			startTime, endTime, int(numDots),
			func(t tracing.Task) bool { return t.Kind == "req_out" },
			func(t tracing.Task) float64 { return float64(t.StartTime) },
			func(t tracing.Task) float64 { return float64(t.EndTime) },
		)
	default:
		http.Error(w, "unknown info_type "+infoType,
			http.StatusBadRequest)
		return
	}

	rsp, err := json.Marshal(compInfo)
	dieOnErr(err)

	_, err = w.Write(rsp)
	dieOnErr(err)
}

func taskIsReqIn(t tracing.Task) bool {
	return t.Kind == "req_in" && t.ParentTask != nil
}

func queryReqInTasks(
	compName string,
	startTime, endTime float64,
) []tracing.Task {
	query := tracing.TaskQuery{
		Where:           compName,
		Kind:            "req_in",
		EnableTimeRange: true,
		StartTime:       startTime,
		EndTime:         endTime,
	}

	return reader.ListTasks(query)
}

// calculateReqIn reports the rate of requests arriving at a component.
func calculateReqIn(
	compName string,
	startTime, endTime float64,
	numDots int,
) *ComponentInfo {
	info := &ComponentInfo{
		Name:      compName,
		InfoType:  "req_in",
		StartTime: startTime,
		EndTime:   endTime,
	}

	reqs := queryReqInTasks(compName, startTime, endTime)

	binDuration := (endTime - startTime) / float64(numDots)
	for i := 0; i < numDots; i++ {
		binStartTime := float64(i)*binDuration + startTime
		binEndTime := float64(i+1)*binDuration + startTime

		reqCount := 0
		for _, r := range reqs {
			if float64(r.StartTime) > binStartTime &&
				float64(r.StartTime) < binEndTime {
				reqCount++
			}
		}

		info.Data = append(info.Data, TimeValue{
			Time:  binStartTime + 0.5*binDuration,
			Value: float64(reqCount) / binDuration,
		})
	}

	return info
}

// calculateReqComplete reports the rate of requests a component completes.
func calculateReqComplete(
	compName string,
	startTime, endTime float64,
	numDots int,
) *ComponentInfo {
	info := &ComponentInfo{
		Name:      compName,
		InfoType:  "req_complete",
		StartTime: startTime,
		EndTime:   endTime,
	}

	reqs := queryReqInTasks(compName, startTime, endTime)

	binDuration := (endTime - startTime) / float64(numDots)
	for i := 0; i < numDots; i++ {
		binStartTime := float64(i)*binDuration + startTime
		binEndTime := float64(i+1)*binDuration + startTime

		reqCount := 0
		for _, r := range reqs {
			if float64(r.EndTime) > binStartTime &&
				float64(r.EndTime) < binEndTime {
				reqCount++
			}
		}

		info.Data = append(info.Data, TimeValue{
			Time:  binStartTime + 0.5*binDuration,
			Value: float64(reqCount) / binDuration,
		})
	}

	return info
}

// calculateAvgLatency reports the average time a request spends at a
// component, grouped by the time the request completes.
func calculateAvgLatency(
	compName string,
	startTime, endTime float64,
	numDots int,
) *ComponentInfo {
	info := &ComponentInfo{
		Name:      compName,
		InfoType:  "avg_latency",
		StartTime: startTime,
		EndTime:   endTime,
	}

	reqs := queryReqInTasks(compName, startTime, endTime)

	binDuration := (endTime - startTime) / float64(numDots)
	for i := 0; i < numDots; i++ {
		binStartTime := float64(i)*binDuration + startTime
		binEndTime := float64(i+1)*binDuration + startTime

		sum := 0.0
		reqCount := 0
		for _, r := range reqs {
			if float64(r.EndTime) > binStartTime &&
				float64(r.EndTime) < binEndTime {
				sum += float64(r.EndTime - r.StartTime)
				reqCount++
			}
		}

		value := 0.0
		if reqCount > 0 {
			value = sum / float64(reqCount)
		}

		info.Data = append(info.Data, TimeValue{
			Time:  binStartTime + 0.5*binDuration,
			Value: value,
		})
	}

	return info
}

type timestamp struct {
	time    float64
	isStart bool
}

type taskFilter func(t tracing.Task) bool
type taskTime func(t tracing.Task) float64

// calculateTimeWeightedTaskCount reports the average number of tasks that
// are live in each bin. A task counts from increaseTime to decreaseTime.
func calculateTimeWeightedTaskCount(
	compName, infoType string,
	startTime, endTime float64,
	numDots int,
	filter taskFilter,
	increaseTime, decreaseTime taskTime,
) *ComponentInfo {
	info := &ComponentInfo{
		Name:      compName,
		InfoType:  infoType,
		StartTime: startTime,
		EndTime:   endTime,
	}

	query := tracing.TaskQuery{
		Where:            compName,
		EnableTimeRange:  true,
		StartTime:        startTime,
		EndTime:          endTime,
		EnableParentTask: true,
	}
	tasks := filterTasks(reader.ListTasks(query), filter)

	binDuration := (endTime - startTime) / float64(numDots)
	for i := 0; i < numDots; i++ {
		binStartTime := float64(i)*binDuration + startTime
		binEndTime := float64(i+1)*binDuration + startTime

		tasksInBin := tasksOverlappingBin(
			tasks,
			binStartTime, binEndTime,
			increaseTime, decreaseTime,
		)
		stamps := tasksToTimestamps(tasksInBin, increaseTime, decreaseTime)

		info.Data = append(info.Data, TimeValue{
			Time:  binStartTime + 0.5*binDuration,
			Value: avgTaskCount(stamps, binStartTime, binEndTime),
		})
	}

	return info
}

func filterTasks(tasks []tracing.Task, filter taskFilter) []tracing.Task {
	filtered := []tracing.Task{}

	for _, t := range tasks {
		if filter(t) {
			filtered = append(filtered, t)
		}
	}

	return filtered
}

func tasksOverlappingBin(
	tasks []tracing.Task,
	binStart, binEnd float64,
	taskStart, taskEnd taskTime,
) []tracing.Task {
	tasksInBin := []tracing.Task{}

	for _, t := range tasks {
		if taskEnd(t) < binStart || taskStart(t) > binEnd {
			continue
		}

		tasksInBin = append(tasksInBin, t)
	}

	return tasksInBin
}

func tasksToTimestamps(
	tasks []tracing.Task,
	taskStart, taskEnd taskTime,
) []timestamp {
	stamps := make([]timestamp, 0, len(tasks)*2)

	for _, t := range tasks {
		stamps = append(stamps,
			timestamp{time: taskStart(t), isStart: true},
			timestamp{time: taskEnd(t)},
		)
	}

	sort.Slice(stamps, func(i, j int) bool {
		return stamps[i].time < stamps[j].time
	})

	return stamps
}

func avgTaskCount(
	stamps []timestamp,
	binStartTime, binEndTime float64,
) float64 {
	var count int
	var timeByCount float64
	prevTime := binStartTime

	for _, ts := range stamps {
		if ts.time < binStartTime {
			if ts.isStart {
				count++
			} else {
				count--
			}
			continue
		}

		if ts.time >= binEndTime {
			break
		}

		duration := ts.time - prevTime
		if duration < 0 {
			panic("duration is smaller than 0")
		}
		timeByCount += duration * float64(count)
		prevTime = ts.time

		if ts.isStart {
			count++
		} else {
			count--
		}
	}

	timeByCount += (binEndTime - prevTime) * float64(count)

	return timeByCount / (binEndTime - binStartTime)
}

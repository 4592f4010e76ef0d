package taskparser

import (
	"encoding/json"
	"testing"
)

func TestParseTaskData_SingleTask(t *testing.T) {
	data := []byte(`{
		"task_name": "t1",
		"platform": "twitter",
		"collection_config": {"query": "golang", "limit": 50}
	}`)

	tasks, err := ParseTaskData(data)
	if err != nil {
		t.Fatalf("ParseTaskData: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].TaskName != "t1" || tasks[0].Platform != "twitter" {
		t.Fatalf("unexpected task: %+v", tasks[0])
	}
	if tasks[0].AbstractConfig.Query != "golang" || tasks[0].AbstractConfig.Limit != 50 {
		t.Fatalf("unexpected abstract config: %+v", tasks[0].AbstractConfig)
	}
}

func TestParseTaskData_TaskArray(t *testing.T) {
	data := []byte(`[
		{"task_name": "a", "platform": "p", "collection_config": {"query": "x"}},
		{"task_name": "b", "platform": "p", "collection_config": {"query": "y"}}
	]`)

	tasks, err := ParseTaskData(data)
	if err != nil {
		t.Fatalf("ParseTaskData: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
}

func TestParseTaskData_MalformedPayloadReturnsParseError(t *testing.T) {
	data := []byte(`{"foo": "bar"}`)

	_, err := ParseTaskData(data)
	if err == nil {
		t.Fatalf("expected a parse error")
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if pe.TaskTraceErr == nil || pe.GroupTraceErr == nil {
		t.Fatalf("expected both validation traces populated, got %+v", pe)
	}
}

// TestGroupExpansionTimestampsByLangCartesianProduct covers a time grid
// crossed with a variable-param product: 3 timestamps x 2 langs = 6 tasks
// named g_0..g_5.
func TestGroupExpansionTimestampsByLangCartesianProduct(t *testing.T) {
	data := []byte(`{
		"platform": "P",
		"group_prefix": "g",
		"static_params": {"limit": 10},
		"variable_params": {"lang": ["en", "es"]},
		"time_config": {
			"start": "2023-01-01T00:00:00Z",
			"end": "2023-01-03T00:00:00Z",
			"interval": {"days": 1}
		}
	}`)

	tasks, err := ParseTaskData(data)
	if err != nil {
		t.Fatalf("ParseTaskData: %v", err)
	}
	if len(tasks) != 6 {
		t.Fatalf("expected 6 tasks, got %d", len(tasks))
	}

	for i, want := range []string{"g_0", "g_1", "g_2", "g_3", "g_4", "g_5"} {
		if tasks[i].TaskName != want {
			t.Fatalf("task[%d]: expected name %s, got %s", i, want, tasks[i].TaskName)
		}
	}

	g0 := tasks[0]
	if g0.AbstractConfig.FromTime == nil || g0.AbstractConfig.FromTime.Format("2006-01-02T15:04:05Z") != "2023-01-01T00:00:00Z" {
		t.Fatalf("g_0 from_time mismatch: %+v", g0.AbstractConfig.FromTime)
	}
	if g0.AbstractConfig.ToTime == nil || g0.AbstractConfig.ToTime.Format("2006-01-02T15:04:05Z") != "2023-01-02T00:00:00Z" {
		t.Fatalf("g_0 to_time mismatch: %+v", g0.AbstractConfig.ToTime)
	}
	if g0.AbstractConfig.Extra["lang"] != "en" {
		t.Fatalf("g_0 expected lang=en, got %v", g0.AbstractConfig.Extra["lang"])
	}
	if g0.AbstractConfig.Limit != 10 {
		t.Fatalf("g_0 expected limit=10 from static_params, got %d", g0.AbstractConfig.Limit)
	}

	g1 := tasks[1]
	if g1.AbstractConfig.Extra["lang"] != "es" {
		t.Fatalf("g_1 expected lang=es, got %v", g1.AbstractConfig.Extra["lang"])
	}
	if g1.AbstractConfig.FromTime.Format("2006-01-02T15:04:05Z") != "2023-01-01T00:00:00Z" {
		t.Fatalf("g_1 expected same window as g_0, got %v", g1.AbstractConfig.FromTime)
	}

	g2 := tasks[2]
	if g2.AbstractConfig.FromTime.Format("2006-01-02T15:04:05Z") != "2023-01-02T00:00:00Z" {
		t.Fatalf("g_2 expected to start 2023-01-02, got %v", g2.AbstractConfig.FromTime)
	}
}

func TestGroupExpansion_MultiPlatformSharesNames(t *testing.T) {
	g := GroupSpec{
		Platform:    mustRaw(t, []string{"A", "B"}),
		GroupPrefix: "g",
		StaticParams: map[string]interface{}{},
		TimeConfig: TimeConfig{
			Start:    "2023-01-01T00:00:00Z",
			End:      "2023-01-01T00:00:00Z",
			Interval: map[string]int{"days": 1},
		},
	}

	tasks, err := ExpandGroup(g)
	if err != nil {
		t.Fatalf("ExpandGroup: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks (1 per platform), got %d", len(tasks))
	}
	if tasks[0].TaskName != tasks[1].TaskName {
		t.Fatalf("expected shared task names across platforms, got %s vs %s", tasks[0].TaskName, tasks[1].TaskName)
	}
	if tasks[0].Platform == tasks[1].Platform {
		t.Fatalf("expected distinct platforms, got %s twice", tasks[0].Platform)
	}
}

func TestGroupExpansion_EmptyVariableParamsIsSingleEmptyTuple(t *testing.T) {
	g := GroupSpec{
		Platform:    mustRaw(t, "P"),
		GroupPrefix: "g",
		TimeConfig: TimeConfig{
			Start:    "2023-01-01T00:00:00Z",
			End:      "2023-01-02T00:00:00Z",
			Interval: map[string]int{"days": 1},
		},
	}

	tasks, err := ExpandGroup(g)
	if err != nil {
		t.Fatalf("ExpandGroup: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks (one per timestamp, single empty param tuple), got %d", len(tasks))
	}
}

func TestGroupExpansion_TruncateOverflowDropsLastInterval(t *testing.T) {
	g := GroupSpec{
		Platform:    mustRaw(t, "P"),
		GroupPrefix: "g",
		TimeConfig: TimeConfig{
			Start:            "2023-01-01T00:00:00Z",
			End:              "2023-01-02T12:00:00Z",
			Interval:         map[string]int{"days": 1},
			TruncateOverflow: true,
		},
	}

	tasks, err := ExpandGroup(g)
	if err != nil {
		t.Fatalf("ExpandGroup: %v", err)
	}
	// timestamps: 01-01 (to=01-02, within end) and 01-02 (to=01-03, exceeds
	// end=01-02T12:00 so it is dropped).
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task after truncation, got %d", len(tasks))
	}
}

func TestGroupExpansion_TimespanNarrowsFromTime(t *testing.T) {
	g := GroupSpec{
		Platform:    mustRaw(t, "P"),
		GroupPrefix: "g",
		TimeConfig: TimeConfig{
			Start:    "2023-01-01T00:00:00Z",
			End:      "2023-01-01T00:00:00Z",
			Interval: map[string]int{"hours": 4},
			Timespan: map[string]int{"hours": 1},
		},
	}

	tasks, err := ExpandGroup(g)
	if err != nil {
		t.Fatalf("ExpandGroup: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	task := tasks[0]
	if task.AbstractConfig.ToTime.Format("2006-01-02T15:04:05Z") != "2023-01-01T04:00:00Z" {
		t.Fatalf("expected to_time = start+interval, got %v", task.AbstractConfig.ToTime)
	}
	if task.AbstractConfig.FromTime.Format("2006-01-02T15:04:05Z") != "2023-01-01T03:00:00Z" {
		t.Fatalf("expected from_time = to_time-timespan, got %v", task.AbstractConfig.FromTime)
	}
}

func mustRaw(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

package taskparser

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/techappsUT/social-queue/internal/platformtypes"
)

// ExpandGroup runs the totally-ordered task-group expansion algorithm
// over a GroupSpec, producing one platformtypes.Task per (timestamp,
// paramTuple, platform) triple.
func ExpandGroup(g GroupSpec) ([]*platformtypes.Task, error) {
	platforms, err := g.platformList()
	if err != nil {
		return nil, err
	}

	timestamps, err := generateTimestamps(g.TimeConfig)
	if err != nil {
		return nil, err
	}
	end, err := parseTimestamp(g.TimeConfig.End)
	if err != nil {
		return nil, fmt.Errorf("time_config.end: %w", err)
	}
	interval, err := durationFromUnits(g.TimeConfig.Interval)
	if err != nil {
		return nil, fmt.Errorf("time_config.interval: %w", err)
	}

	var timespan time.Duration
	hasTimespan := len(g.TimeConfig.Timespan) > 0
	if hasTimespan {
		timespan, err = durationFromUnits(g.TimeConfig.Timespan)
		if err != nil {
			return nil, fmt.Errorf("time_config.timespan: %w", err)
		}
		// timespan == interval is redundant (using interval alone would
		// suffice): it is logged as a warning and accepted, not rejected.
		if timespan == interval {
			logrus.WithField("group_prefix", g.GroupPrefix).Warn("time_config.timespan equals interval and is redundant")
		}
	}

	names := variableParamNames(g)
	values := make([][]interface{}, len(names))
	for i, n := range names {
		values[i] = g.VariableParams[n]
	}
	combos := cartesianProduct(names, values)

	var testData []platformtypes.RawItem
	for _, td := range g.TestData {
		testData = append(testData, rawItemFromMap(td))
	}

	basePlatform := platforms[0]
	var baseTasks []*platformtypes.Task
	index := 0
	for _, ts := range timestamps {
		toTime := ts.Add(interval)
		if g.TimeConfig.TruncateOverflow && toTime.After(end) {
			continue
		}
		fromTime := ts
		if hasTimespan {
			fromTime = toTime.Add(-timespan)
		}

		for _, combo := range combos {
			conf := make(map[string]interface{}, len(g.StaticParams)+len(combo))
			for k, v := range g.StaticParams {
				conf[k] = v
			}
			for k, v := range combo {
				conf[k] = v
			}

			abstract := decodeAbstractConfig(conf)
			ft, tt := fromTime, toTime
			abstract.FromTime = &ft
			abstract.ToTime = &tt

			task := &platformtypes.Task{
				TaskName:       fmt.Sprintf("%s_%d", g.GroupPrefix, index),
				Platform:       basePlatform,
				AbstractConfig: abstract,
				Status:         platformtypes.StatusInit,
				Transient:      g.Transient,
				Test:           g.Test,
				Overwrite:      g.Overwrite,
				TestData:       testData,
			}
			baseTasks = append(baseTasks, task)
			index++
		}
	}

	if len(platforms) == 1 {
		return baseTasks, nil
	}

	allTasks := make([]*platformtypes.Task, 0, len(baseTasks)*len(platforms))
	allTasks = append(allTasks, baseTasks...)
	for _, p := range platforms[1:] {
		for _, t := range baseTasks {
			clone := *t
			clone.Platform = p
			clone.AbstractConfig.Extra = copyExtra(t.AbstractConfig.Extra)
			if t.TestData != nil {
				clone.TestData = append([]platformtypes.RawItem(nil), t.TestData...)
			}
			allTasks = append(allTasks, &clone)
		}
	}
	return allTasks, nil
}

// variableParamNames returns the iteration order for the Cartesian product.
// JSON object decoding into a Go map does not preserve source key order, so
// an explicit variable_params_order is honored when given; otherwise names
// are sorted for a deterministic (if arbitrary relative to the source
// document) product order — see DESIGN.md.
func variableParamNames(g GroupSpec) []string {
	if len(g.VariableOrder) > 0 {
		return g.VariableOrder
	}
	names := make([]string, 0, len(g.VariableParams))
	for k := range g.VariableParams {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// cartesianProduct builds the row-major product of values in the order
// given by names, matching Python's itertools.product(*param_values): the
// last name varies fastest. An empty names list yields a single empty
// tuple ("Empty variable_params treats the product as a
// single empty tuple").
func cartesianProduct(names []string, values [][]interface{}) []map[string]interface{} {
	result := []map[string]interface{}{{}}
	for i, name := range names {
		vals := values[i]
		next := make([]map[string]interface{}, 0, len(result)*len(vals))
		for _, combo := range result {
			for _, v := range vals {
				nc := make(map[string]interface{}, len(combo)+1)
				for k, vv := range combo {
					nc[k] = vv
				}
				nc[name] = v
				next = append(next, nc)
			}
		}
		result = next
	}
	return result
}

func generateTimestamps(tc TimeConfig) ([]time.Time, error) {
	start, err := parseTimestamp(tc.Start)
	if err != nil {
		return nil, fmt.Errorf("time_config.start: %w", err)
	}
	end, err := parseTimestamp(tc.End)
	if err != nil {
		return nil, fmt.Errorf("time_config.end: %w", err)
	}
	interval, err := durationFromUnits(tc.Interval)
	if err != nil {
		return nil, fmt.Errorf("time_config.interval: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("time_config.interval must be positive")
	}

	var out []time.Time
	for cur := start; !cur.After(end); cur = cur.Add(interval) {
		out = append(out, cur)
	}
	return out, nil
}

// durationFromUnits converts a {"days":N,"hours":N,...} map (the JSON
// projection of Python's timedelta(**kwargs)) into a time.Duration.
func durationFromUnits(u map[string]int) (time.Duration, error) {
	var d time.Duration
	for unit, n := range u {
		switch unit {
		case "weeks":
			d += time.Duration(n) * 7 * 24 * time.Hour
		case "days":
			d += time.Duration(n) * 24 * time.Hour
		case "hours":
			d += time.Duration(n) * time.Hour
		case "minutes":
			d += time.Duration(n) * time.Minute
		case "seconds":
			d += time.Duration(n) * time.Second
		default:
			return 0, fmt.Errorf("unsupported interval unit %q", unit)
		}
	}
	return d, nil
}

func copyExtra(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func rawItemFromMap(m map[string]interface{}) platformtypes.RawItem {
	item := platformtypes.RawItem{}
	if s, ok := m["platform_id"].(string); ok {
		item.PlatformID = s
	}
	if s, ok := m["post_url"].(string); ok {
		item.PostURL = s
	}
	if s, ok := m["date_created"].(string); ok {
		if t, err := parseTimestamp(s); err == nil {
			item.DateCreated = t
		}
	}
	if c, ok := m["content"].(map[string]interface{}); ok {
		item.Content = c
	}
	if md, ok := m["metadata"].(map[string]interface{}); ok {
		item.Metadata = md
	}
	return item
}

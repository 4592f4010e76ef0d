package taskparser

import (
	"encoding/json"
	"fmt"

	"github.com/techappsUT/social-queue/internal/platformtypes"
)

// ParseTaskData accepts the three root shapes of a task payload — a single
// task object, an array of task objects, or a task group object — and
// returns the fully expanded concrete tasks. It returns *ParseError when a
// JSON object matches neither the task schema nor the group schema.
func ParseTaskData(data []byte) ([]*platformtypes.Task, error) {
	var probe interface{}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	switch probe.(type) {
	case []interface{}:
		var specs []TaskSpec
		if err := json.Unmarshal(data, &specs); err != nil {
			return nil, fmt.Errorf("invalid task array: %w", err)
		}
		tasks := make([]*platformtypes.Task, 0, len(specs))
		for i, spec := range specs {
			if err := validate.Struct(spec); err != nil {
				return nil, fmt.Errorf("task[%d]: %w", i, err)
			}
			tasks = append(tasks, taskFromSpec(spec))
		}
		return tasks, nil

	case map[string]interface{}:
		var taskSpec TaskSpec
		taskErr := json.Unmarshal(data, &taskSpec)
		if taskErr == nil {
			taskErr = validate.Struct(taskSpec)
		}
		if taskErr == nil {
			return []*platformtypes.Task{taskFromSpec(taskSpec)}, nil
		}

		var group GroupSpec
		groupErr := json.Unmarshal(data, &group)
		if groupErr == nil {
			groupErr = validate.Struct(group)
		}
		if groupErr == nil {
			return ExpandGroup(group)
		}

		return nil, &ParseError{TaskTraceErr: taskErr, GroupTraceErr: groupErr}

	default:
		return nil, fmt.Errorf("unsupported task payload shape")
	}
}

func taskFromSpec(spec TaskSpec) *platformtypes.Task {
	return &platformtypes.Task{
		TaskName:       spec.TaskName,
		Platform:       platformtypes.Platform(spec.Platform),
		AbstractConfig: decodeAbstractConfig(spec.CollectionConfig),
		Status:         platformtypes.StatusInit,
		Transient:      spec.Transient,
		Test:           spec.Test,
		Overwrite:      spec.Overwrite,
		StoreHint:      spec.StoreHint,
	}
}

// decodeAbstractConfig projects a raw collection_config map onto the
// well-known AbstractConfig fields, passing everything else through via
// Extra ("Parse-don't-validate: once past the boundary, fields
// are non-optional unless documented otherwise").
func decodeAbstractConfig(m map[string]interface{}) platformtypes.AbstractConfig {
	ac := platformtypes.AbstractConfig{Extra: map[string]interface{}{}}
	for k, v := range m {
		switch k {
		case "query":
			if s, ok := v.(string); ok {
				ac.Query = s
			}
		case "limit":
			ac.Limit = toInt(v)
		case "language":
			if s, ok := v.(string); ok {
				ac.Language = s
			}
		case "location_base":
			if s, ok := v.(string); ok {
				ac.LocationBase = s
			}
		case "location_mod":
			if s, ok := v.(string); ok {
				ac.LocationMod = s
			}
		case "from_time":
			if s, ok := v.(string); ok {
				if t, err := parseTimestamp(s); err == nil {
					ac.FromTime = &t
				}
			}
		case "to_time":
			if s, ok := v.(string); ok {
				if t, err := parseTimestamp(s); err == nil {
					ac.ToTime = &t
				}
			}
		default:
			ac.Extra[k] = v
		}
	}
	return ac
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

// Package taskparser validates and expands declarative task specs into
// concrete platformtypes.Task records. It accepts exactly
// three root shapes at the system boundary: a single task object, an array
// of task objects, or a task group object — the same "validate at the
// boundary, plain records after" discipline the donor applies in
// internal/middleware/validation.go.
package taskparser

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/techappsUT/social-queue/internal/platformtypes"
)

var validate = validator.New()

// TaskSpec is one concrete task as accepted at the boundary. Every task
// has task_name, platform, collection_config
// and optional flags.
type TaskSpec struct {
	TaskName         string                 `json:"task_name" validate:"required"`
	Platform         string                 `json:"platform" validate:"required"`
	CollectionConfig map[string]interface{} `json:"collection_config" validate:"required"`
	Transient        bool                   `json:"transient"`
	Test             bool                   `json:"test"`
	Overwrite        bool                   `json:"overwrite"`
	StoreHint        string                 `json:"store_hint"`
}

// TimeConfig describes the timestamp grid a task group expands over.
type TimeConfig struct {
	Start            string                 `json:"start" validate:"required"`
	End              string                 `json:"end" validate:"required"`
	Interval         map[string]int         `json:"interval" validate:"required"`
	Timespan         map[string]int         `json:"timespan,omitempty"`
	ClampToSameDay   bool                   `json:"clamp_to_same_day,omitempty"`
	TruncateOverflow bool                   `json:"truncate_overflow,omitempty"`
}

// GroupSpec is a declarative expansion of many tasks over a time grid and a
// variable-parameter Cartesian product ("Task group").
// Platform may be a single symbol or an array of symbols; it is kept as raw
// JSON and decoded into either shape by platformList().
type GroupSpec struct {
	Platform       json.RawMessage          `json:"platform" validate:"required"`
	GroupPrefix    string                   `json:"group_prefix" validate:"required"`
	StaticParams   map[string]interface{}   `json:"static_params"`
	VariableParams map[string][]interface{} `json:"variable_params"`
	VariableOrder  []string                 `json:"variable_params_order,omitempty"`
	TimeConfig     TimeConfig               `json:"time_config" validate:"required"`
	Transient      bool                     `json:"transient"`
	Test           bool                     `json:"test"`
	Overwrite      bool                     `json:"overwrite"`
	TestData       []map[string]interface{} `json:"test_data,omitempty"`
	ForceNewIndex  bool                     `json:"force_new_index,omitempty"`
}

// platformList returns the group's platform(s) as a slice, accepting either
// a JSON string or a JSON array of strings ("platform (symbol
// or list of symbols)").
func (g GroupSpec) platformList() ([]platformtypes.Platform, error) {
	var single string
	if err := json.Unmarshal(g.Platform, &single); err == nil {
		return []platformtypes.Platform{platformtypes.Platform(single)}, nil
	}
	var list []string
	if err := json.Unmarshal(g.Platform, &list); err == nil {
		if len(list) == 0 {
			return nil, fmt.Errorf("platform list must not be empty")
		}
		out := make([]platformtypes.Platform, len(list))
		for i, p := range list {
			out[i] = platformtypes.Platform(p)
		}
		return out, nil
	}
	return nil, fmt.Errorf("platform must be a string or an array of strings")
}

// ParseError carries both validation traces produced when a JSON object
// matches neither the single-task schema nor the group schema — never
// silently accept. An invalid task array yields a plain error instead.
type ParseError struct {
	TaskTraceErr  error
	GroupTraceErr error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("payload matches neither task schema (%v) nor group schema (%v)", e.TaskTraceErr, e.GroupTraceErr)
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

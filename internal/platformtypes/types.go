// Package platformtypes holds the vocabulary shared by every layer of the
// collection orchestrator: platform symbols, task lifecycle states, the
// abstract collection config accepted at the system boundary, and the
// result/error shapes a ClientAdapter hands back to a PlatformManager.
package platformtypes

import "time"

// Platform is a short symbolic name for an external provider, e.g. "twitter".
type Platform string

// TaskStatus is the lifecycle state of a Task row in a PlatformStore.
type TaskStatus string

const (
	StatusInit        TaskStatus = "INIT"
	StatusActive      TaskStatus = "ACTIVE"
	StatusRunning     TaskStatus = "RUNNING"
	StatusPaused      TaskStatus = "PAUSED"
	StatusAborted     TaskStatus = "ABORTED"
	StatusDone        TaskStatus = "DONE"
	StatusInvalidConf TaskStatus = "INVALID_CONF"
)

// PostType categorizes a collected item. REGULAR is the default.
type PostType string

const (
	PostTypeRegular PostType = "REGULAR"
	PostTypeReply   PostType = "REPLY"
	PostTypeRepost  PostType = "REPOST"
)

// AbstractConfig is the provider-agnostic collection configuration accepted
// at the system boundary. Extra holds any additional keys that
// pass through to the adapter untouched.
type AbstractConfig struct {
	Query        string                 `json:"query,omitempty"`
	Limit        int                    `json:"limit,omitempty"`
	FromTime     *time.Time             `json:"from_time,omitempty"`
	ToTime       *time.Time             `json:"to_time,omitempty"`
	Language     string                 `json:"language,omitempty"`
	LocationBase string                 `json:"location_base,omitempty"`
	LocationMod  string                 `json:"location_mod,omitempty"`
	Extra        map[string]interface{} `json:"-"`
}

// RawItem is a single collected item as returned by a ClientAdapter before
// it is projected into a Post by CreatePostEntry.
type RawItem struct {
	PlatformID  string
	PostURL     string
	DateCreated time.Time
	PostType    PostType
	Content     map[string]interface{}
	Metadata    map[string]interface{}
}

// Post is one collected item, identified within a store by
// (Platform, PlatformID).
type Post struct {
	ID               int64
	Platform         Platform
	PlatformID       string
	PostURL          string
	DateCreated      time.Time
	DateCollected    time.Time
	PostType         PostType
	Content          map[string]interface{}
	MetadataContent  map[string]interface{}
	CollectionTaskID *int64
}

// Task is the unit of work: one query to one provider covering one time
// window / parameter point.
type Task struct {
	ID                   int64
	TaskName             string
	Platform             Platform
	AbstractConfig       AbstractConfig
	PlatformConfig       map[string]interface{}
	Status               TaskStatus
	FoundItems           int
	AddedItems           int
	CollectionDurationMs int64
	Transient            bool
	Test                 bool
	Overwrite            bool
	TestData             []RawItem
	StoreHint            string
	TimeAdded            time.Time
	ExecutionTS          *time.Time
}

// CollectionResult is what a ClientAdapter.ExecuteTask returns on success.
type CollectionResult struct {
	Task           *Task
	Posts          []RawItem
	AddedPosts     []Post
	CollectedItems int
	DurationMs     int64
	ExecutionTS    time.Time
}

// ErrorKind distinguishes the adapter error taxonomy.
type ErrorKind string

const (
	ErrKindQuotaExceeded       ErrorKind = "quota_exceeded"
	ErrKindTransientCollection ErrorKind = "transient_collection"
	ErrKindInvalidConfig       ErrorKind = "invalid_config"
	ErrKindFatal               ErrorKind = "fatal"
)

// CollectionError is the typed error an adapter returns across the
// ExecuteTask boundary instead of raising for expected failure kinds.
type CollectionError struct {
	Kind      ErrorKind
	Cause     error
	ReleaseAt time.Time // only meaningful when Kind == ErrKindQuotaExceeded
	Reason    string    // only meaningful when Kind == ErrKindInvalidConfig
}

func (e *CollectionError) Error() string {
	if e.Cause != nil {
		return string(e.Kind) + ": " + e.Cause.Error()
	}
	return string(e.Kind) + ": " + e.Reason
}

func (e *CollectionError) Unwrap() error { return e.Cause }

// IsQuotaExceeded reports whether err is a quota-exceeded CollectionError.
func IsQuotaExceeded(err error) (*CollectionError, bool) {
	ce, ok := err.(*CollectionError)
	return ce, ok && ce.Kind == ErrKindQuotaExceeded
}

// IsInvalidConfig reports whether err is an invalid-config CollectionError.
func IsInvalidConfig(err error) (*CollectionError, bool) {
	ce, ok := err.(*CollectionError)
	return ce, ok && ce.Kind == ErrKindInvalidConfig
}

// IsFatal reports whether err is a fatal CollectionError that must be
// re-raised from the manager to the orchestrator.
func IsFatal(err error) (*CollectionError, bool) {
	ce, ok := err.(*CollectionError)
	return ce, ok && ce.Kind == ErrKindFatal
}

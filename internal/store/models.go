package store

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/techappsUT/social-queue/internal/platformtypes"
)

// TaskRow is the gorm-mapped persistence shape of platformtypes.Task
// ("Task"). task_name is unique per store, enforced by the unique index
// the embedded schema migrations create; the gorm uniqueIndex tag mirrors
// it, matching the donor's struct-tag convention (internal/models/user.go).
type TaskRow struct {
	ID                   int64      `gorm:"primaryKey;autoIncrement"`
	TaskName             string     `gorm:"uniqueIndex;size:50;not null"`
	Platform             string     `gorm:"size:20;not null;index"`
	AbstractConfig       JSONMap    `gorm:"type:text"`
	PlatformConfig       JSONMap    `gorm:"type:text"`
	Status               string     `gorm:"size:20;not null;index"`
	FoundItems           int
	AddedItems           int
	CollectionDurationMs int64
	Transient            bool
	Test                 bool
	Overwrite            bool
	TestData             JSONMap `gorm:"type:text"`
	StoreHint            string  `gorm:"size:20"`
	TimeAdded            time.Time
	ExecutionTS          *time.Time
}

func (TaskRow) TableName() string { return "collection_task" }

// PostRow is the gorm-mapped persistence shape of platformtypes.Post
// ("Post"). (platform_id) is unique within a store.
type PostRow struct {
	ID               int64   `gorm:"primaryKey;autoIncrement"`
	Platform         string  `gorm:"size:20;not null"`
	PlatformID       string  `gorm:"size:100;not null;uniqueIndex"`
	PostURL          string  `gorm:"size:300"`
	DateCreated      time.Time
	DateCollected    time.Time `gorm:"autoCreateTime"`
	PostType         string    `gorm:"size:20;not null"`
	Content          JSONMap   `gorm:"type:text"`
	MetadataContent  JSONMap   `gorm:"type:text"`
	CollectionTaskID *int64    `gorm:"index"`
}

func (PostRow) TableName() string { return "post" }

// CatalogEntry is MetaStore's gorm-mapped row, one per registered
// platform catalog entry.
type CatalogEntry struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Platform  string `gorm:"size:20;not null;uniqueIndex"`
	DBPath    string `gorm:"size:300;not null"`
	IsDefault bool
}

func (CatalogEntry) TableName() string { return "platform_databases" }

// JSONMap is a gorm-friendly map[string]interface{} stored as a JSON text
// column, matching how the donor's persistence layer stores free-form
// JSONB payloads (internal/infrastructure/persistence/post_repository.go's
// pqtype.NullRawMessage use, generalized here to be driver-agnostic since
// this store targets both Postgres and sqlite catalogs).
type JSONMap map[string]interface{}

func (m JSONMap) Value() (interface{}, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		*m = JSONMap{}
		return nil
	}
	if len(raw) == 0 {
		*m = JSONMap{}
		return nil
	}
	out := make(map[string]interface{})
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

func taskRowFromDomain(t *platformtypes.Task) *TaskRow {
	abstract := map[string]interface{}{
		"query":         t.AbstractConfig.Query,
		"limit":         t.AbstractConfig.Limit,
		"language":      t.AbstractConfig.Language,
		"location_base": t.AbstractConfig.LocationBase,
		"location_mod":  t.AbstractConfig.LocationMod,
	}
	if t.AbstractConfig.FromTime != nil {
		abstract["from_time"] = t.AbstractConfig.FromTime.Format(time.RFC3339)
	}
	if t.AbstractConfig.ToTime != nil {
		abstract["to_time"] = t.AbstractConfig.ToTime.Format(time.RFC3339)
	}
	for k, v := range t.AbstractConfig.Extra {
		abstract[k] = v
	}

	var testData JSONMap
	if len(t.TestData) > 0 {
		testData = JSONMap{}
		for i, item := range t.TestData {
			testData[strconv.Itoa(i)] = map[string]interface{}{
				"platform_id":  item.PlatformID,
				"post_url":     item.PostURL,
				"date_created": item.DateCreated.Format(time.RFC3339),
				"content":      item.Content,
				"metadata":     item.Metadata,
			}
		}
	}

	return &TaskRow{
		ID:                   t.ID,
		TaskName:             t.TaskName,
		Platform:             string(t.Platform),
		AbstractConfig:       abstract,
		PlatformConfig:       t.PlatformConfig,
		Status:               string(t.Status),
		FoundItems:           t.FoundItems,
		AddedItems:           t.AddedItems,
		CollectionDurationMs: t.CollectionDurationMs,
		Transient:            t.Transient,
		Test:                 t.Test,
		Overwrite:            t.Overwrite,
		TestData:             testData,
		StoreHint:            t.StoreHint,
		TimeAdded:            t.TimeAdded,
		ExecutionTS:          t.ExecutionTS,
	}
}

func (r *TaskRow) toDomain() *platformtypes.Task {
	abstract := platformtypes.AbstractConfig{Extra: map[string]interface{}{}}
	for k, v := range r.AbstractConfig {
		switch k {
		case "query":
			if s, ok := v.(string); ok {
				abstract.Query = s
			}
		case "limit":
			abstract.Limit = toInt(v)
		case "language":
			if s, ok := v.(string); ok {
				abstract.Language = s
			}
		case "location_base":
			if s, ok := v.(string); ok {
				abstract.LocationBase = s
			}
		case "location_mod":
			if s, ok := v.(string); ok {
				abstract.LocationMod = s
			}
		case "from_time":
			if s, ok := v.(string); ok {
				if tm, err := time.Parse(time.RFC3339, s); err == nil {
					abstract.FromTime = &tm
				}
			}
		case "to_time":
			if s, ok := v.(string); ok {
				if tm, err := time.Parse(time.RFC3339, s); err == nil {
					abstract.ToTime = &tm
				}
			}
		default:
			abstract.Extra[k] = v
		}
	}

	var testData []platformtypes.RawItem
	for _, v := range r.TestData {
		entry, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		item := platformtypes.RawItem{}
		if s, ok := entry["platform_id"].(string); ok {
			item.PlatformID = s
		}
		if s, ok := entry["post_url"].(string); ok {
			item.PostURL = s
		}
		if s, ok := entry["date_created"].(string); ok {
			if tm, err := time.Parse(time.RFC3339, s); err == nil {
				item.DateCreated = tm
			}
		}
		if c, ok := entry["content"].(map[string]interface{}); ok {
			item.Content = c
		}
		if m, ok := entry["metadata"].(map[string]interface{}); ok {
			item.Metadata = m
		}
		testData = append(testData, item)
	}

	return &platformtypes.Task{
		ID:                   r.ID,
		TaskName:             r.TaskName,
		Platform:             platformtypes.Platform(r.Platform),
		AbstractConfig:       abstract,
		PlatformConfig:       r.PlatformConfig,
		Status:               platformtypes.TaskStatus(r.Status),
		FoundItems:           r.FoundItems,
		AddedItems:           r.AddedItems,
		CollectionDurationMs: r.CollectionDurationMs,
		Transient:            r.Transient,
		Test:                 r.Test,
		Overwrite:            r.Overwrite,
		TestData:             testData,
		StoreHint:            r.StoreHint,
		TimeAdded:            r.TimeAdded,
		ExecutionTS:          r.ExecutionTS,
	}
}

func postRowFromDomain(p platformtypes.Post) *PostRow {
	postType := p.PostType
	if postType == "" {
		postType = platformtypes.PostTypeRegular
	}
	return &PostRow{
		Platform:         string(p.Platform),
		PlatformID:       p.PlatformID,
		PostURL:          p.PostURL,
		DateCreated:      p.DateCreated,
		PostType:         string(postType),
		Content:          JSONMap(p.Content),
		MetadataContent:  JSONMap(p.MetadataContent),
		CollectionTaskID: p.CollectionTaskID,
	}
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

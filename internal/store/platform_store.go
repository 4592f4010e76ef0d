package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/techappsUT/social-queue/internal/platformtypes"
)

// PlatformStore owns all Task and Post rows for a single platform.
// A PlatformStore instance is created once per platform at
// startup and owned exclusively by its PlatformManager for the process
// lifetime.
type PlatformStore struct {
	platform platformtypes.Platform
	dbPath   string
	db       *gorm.DB
}

// OpenPlatformStore opens (creating if needed) the sqlite-backed store file
// at dbPath and migrates its schema. sqlite is the default backend so a
// single process can own many small per-platform files without a running
// Postgres instance; the same gorm models also work against
// gorm.io/driver/postgres for deployments that centralize storage, with
// the schema applied from the postgres migration set (see DESIGN.md).
func OpenPlatformStore(platform platformtypes.Platform, dbPath string) (*PlatformStore, error) {
	if err := migratePlatformStore(dialectSQLite, dbPath); err != nil {
		return nil, fmt.Errorf("migrate platform store %s: %w", dbPath, err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	return &PlatformStore{platform: platform, dbPath: dbPath, db: db}, nil
}

// OpenPlatformStorePostgres opens a platform store backed by a shared
// Postgres connection instead of a per-platform sqlite file, for
// deployments that centralize storage ("db_connection: {
// kind: postgres, ... }" in config.DBConfig).
func OpenPlatformStorePostgres(platform platformtypes.Platform, dsn string) (*PlatformStore, error) {
	if err := migratePlatformStore(dialectPostgres, dsn); err != nil {
		return nil, fmt.Errorf("migrate platform store (postgres): %w", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	return &PlatformStore{platform: platform, dbPath: dsn, db: db}, nil
}

// AddTasks inserts tasks, returning the names of tasks actually inserted.
// A task whose task_name already exists is rejected unless
// it is test&&overwrite, in which case the existing task and its posts are
// deleted first within the same transaction (the Open Question resolved in
// DESIGN.md: overwrite alone, without test, never destroys history).
func (s *PlatformStore) AddTasks(tasks []*platformtypes.Task) ([]string, error) {
	var added []string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, t := range tasks {
			var existing TaskRow
			err := tx.Where("task_name = ?", t.TaskName).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				// fall through to insert
			case err != nil:
				return err
			default:
				if !(t.Test && t.Overwrite) {
					continue
				}
				if err := tx.Where("collection_task_id = ?", existing.ID).Delete(&PostRow{}).Error; err != nil {
					return err
				}
				if err := tx.Delete(&existing).Error; err != nil {
					return err
				}
			}

			row := taskRowFromDomain(t)
			row.ID = 0
			if row.Status == "" {
				row.Status = string(platformtypes.StatusInit)
			}
			if row.TimeAdded.IsZero() {
				row.TimeAdded = time.Now().UTC()
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
			t.ID = row.ID
			added = append(added, t.TaskName)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// PendingTasks returns tasks in {INIT, ACTIVE}, plus PAUSED when
// includePaused is true, ordered by ascending id (FIFO within the store).
func (s *PlatformStore) PendingTasks(includePaused bool) ([]*platformtypes.Task, error) {
	statuses := []string{string(platformtypes.StatusInit), string(platformtypes.StatusActive)}
	if includePaused {
		statuses = append(statuses, string(platformtypes.StatusPaused))
	}

	var rows []TaskRow
	if err := s.db.Where("status IN ?", statuses).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	tasks := make([]*platformtypes.Task, 0, len(rows))
	for i := range rows {
		tasks = append(tasks, rows[i].toDomain())
	}
	return tasks, nil
}

// UpdateTaskStatus unconditionally sets a task's status.
func (s *PlatformStore) UpdateTaskStatus(id int64, status platformtypes.TaskStatus) error {
	return s.db.Model(&TaskRow{}).Where("id = ?", id).Update("status", string(status)).Error
}

// SetExecutionTS records when a task started its current run.
func (s *PlatformStore) SetExecutionTS(id int64, ts time.Time) error {
	return s.db.Model(&TaskRow{}).Where("id = ?", id).Update("execution_ts", ts).Error
}

// SetPlatformConfig attaches the adapter-serialized provider config to an
// existing task row. PlatformManager.AddTasks does not call it: it sets
// Task.PlatformConfig before AddTasks inserts the row.
func (s *PlatformStore) SetPlatformConfig(id int64, cfg map[string]interface{}) error {
	return s.db.Model(&TaskRow{}).Where("id = ?", id).Update("platform_config", JSONMap(cfg)).Error
}

// InsertPosts persists a collection result and updates the owning task row
// atomically ("Key algorithm — InsertPosts"). Duplicate
// platform_id rows are silently dropped ("DuplicateKey").
func (s *PlatformStore) InsertPosts(result *platformtypes.CollectionResult) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		incomingIDs := make([]string, 0, len(result.Posts))
		byID := make(map[string]platformtypes.RawItem, len(result.Posts))
		for _, p := range result.Posts {
			incomingIDs = append(incomingIDs, p.PlatformID)
			byID[p.PlatformID] = p
		}

		var existingIDs []string
		if len(incomingIDs) > 0 {
			if err := tx.Model(&PostRow{}).
				Where("platform_id IN ?", incomingIDs).
				Pluck("platform_id", &existingIDs).Error; err != nil {
				return err
			}
		}
		existing := make(map[string]bool, len(existingIDs))
		for _, id := range existingIDs {
			existing[id] = true
		}

		var inserted []platformtypes.Post
		for i, id := range incomingIDs {
			if existing[id] {
				continue
			}
			raw := byID[id]
			post := platformtypes.Post{
				Platform:         s.platform,
				PlatformID:       raw.PlatformID,
				PostURL:          raw.PostURL,
				DateCreated:      raw.DateCreated,
				DateCollected:    time.Now().UTC(),
				PostType:         raw.PostType,
				Content:          raw.Content,
				MetadataContent:  raw.Metadata,
				CollectionTaskID: &result.Task.ID,
			}
			row := postRowFromDomain(post)
			row.CollectionTaskID = &result.Task.ID
			// Each insert runs under its own savepoint so a rejected row
			// can be rolled back alone: postgres refuses every later
			// statement in a transaction after a failed one.
			savepoint := fmt.Sprintf("post_%d", i)
			if err := tx.SavePoint(savepoint).Error; err != nil {
				return err
			}
			if err := tx.Create(row).Error; err != nil {
				// A concurrent writer may have inserted the same
				// platform_id between our existence check and this
				// insert; treat the uniqueness violation as a silent
				// duplicate drop rather than failing the whole batch.
				if isUniqueViolation(err) {
					if rbErr := tx.RollbackTo(savepoint).Error; rbErr != nil {
						return rbErr
					}
					continue
				}
				return err
			}
			post.ID = row.ID
			inserted = append(inserted, post)
		}

		if result.Task.Transient {
			// Transient tasks delete their own row and keep their posts,
			// with the back-reference nulled ("Post" invariant:
			// "observers see posts without a task row" for transient tasks).
			if err := tx.Model(&PostRow{}).Where("collection_task_id = ?", result.Task.ID).
				Update("collection_task_id", nil).Error; err != nil {
				return err
			}
			if err := tx.Delete(&TaskRow{}, result.Task.ID).Error; err != nil {
				return err
			}
			result.AddedPosts = inserted
			return nil
		}

		update := map[string]interface{}{
			"status":                 string(platformtypes.StatusDone),
			"found_items":            result.CollectedItems,
			"added_items":            len(inserted),
			"collection_duration_ms": result.DurationMs,
		}
		if err := tx.Model(&TaskRow{}).Where("id = ?", result.Task.ID).Updates(update).Error; err != nil {
			return err
		}

		result.AddedPosts = inserted
		return nil
	})
}

// ResetRunningTasks transitions any row in RUNNING to INIT. Called at
// orchestrator startup to recover from an abrupt shutdown.
func (s *PlatformStore) ResetRunningTasks() error {
	return s.db.Model(&TaskRow{}).
		Where("status = ?", string(platformtypes.StatusRunning)).
		Update("status", string(platformtypes.StatusInit)).Error
}

// ResetNonDoneTasks transitions every task not in DONE back to INIT
// invoked by the operator's "reset non-DONE tasks to INIT" CLI op, the broader
// operator-invoked counterpart to ResetRunningTasks's RUNNING recovery (run
// at startup and at the start of every Collect pass), grounded in
// original_source/src/task_manager.py's fix_tasks.
func (s *PlatformStore) ResetNonDoneTasks() (int64, error) {
	result := s.db.Model(&TaskRow{}).
		Where("status != ?", string(platformtypes.StatusDone)).
		Update("status", string(platformtypes.StatusInit))
	return result.RowsAffected, result.Error
}

// CountStates returns the number of tasks in each status.
func (s *PlatformStore) CountStates() (map[platformtypes.TaskStatus]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := s.db.Model(&TaskRow{}).Select("status, count(*) as count").Group("status").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[platformtypes.TaskStatus]int64, len(rows))
	for _, r := range rows {
		out[platformtypes.TaskStatus(r.Status)] = r.Count
	}
	return out, nil
}

// CountPosts returns the total number of posts in the store.
func (s *PlatformStore) CountPosts() (int64, error) {
	var count int64
	err := s.db.Model(&PostRow{}).Count(&count).Error
	return count, err
}

// FileSize returns the size on disk of the store's backing file.
func (s *PlatformStore) FileSize() (int64, error) {
	info, err := os.Stat(s.dbPath)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Close releases the underlying database connection.
func (s *PlatformStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Stats bucket width for PlatformStore.Stats — per-database stats by
// day|month|year, grounded in original_source/src/misc/db_stats.py's
// PlatformStats.year_month_count.
type StatsBucket string

const (
	StatsByDay   StatsBucket = "day"
	StatsByMonth StatsBucket = "month"
	StatsByYear  StatsBucket = "year"
)

// BucketCount is one row of a Stats report: the bucket key (e.g. "2023-01"
// for a month bucket) and the number of posts created in it.
type BucketCount struct {
	Bucket string
	Count  int64
}

// Stats reports post counts for this store grouped by day, month, or year
// of date_created, matching db_stats.py's PlatformStats.year_month_count
// generalized to the three granularities the CLI surface exposes.
func (s *PlatformStore) Stats(bucket StatsBucket) ([]BucketCount, error) {
	var format string
	switch bucket {
	case StatsByDay:
		format = "%Y-%m-%d"
	case StatsByMonth:
		format = "%Y-%m"
	case StatsByYear:
		format = "%Y"
	default:
		return nil, fmt.Errorf("unknown stats bucket %q", bucket)
	}

	var rows []BucketCount
	err := s.db.Model(&PostRow{}).
		Select(fmt.Sprintf("strftime('%s', date_created) as bucket, count(*) as count", format)).
		Group("bucket").
		Order("bucket ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Overlap reports how many platform_id values appear in both this store and
// other, grounded in db_stats.py's DBMerger flow which checks existing post
// ids before merging two per-platform databases.
func (s *PlatformStore) Overlap(other *PlatformStore) (int64, error) {
	var ids []string
	if err := other.db.Model(&PostRow{}).Pluck("platform_id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	if err := s.db.Model(&PostRow{}).Where("platform_id IN ?", ids).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MergeFrom copies every post from other into s that does not already exist
// by platform_id, matching db_stats.py's DBMerger (which filters against
// existing post ids before inserting, batching, and never copying task
// rows). Posts are merged without their originating task reference since the
// two stores' task ids are not comparable.
func (s *PlatformStore) MergeFrom(other *PlatformStore) (int, error) {
	var rows []PostRow
	if err := other.db.Find(&rows).Error; err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.PlatformID
	}

	var existingIDs []string
	if err := s.db.Model(&PostRow{}).Where("platform_id IN ?", ids).Pluck("platform_id", &existingIDs).Error; err != nil {
		return 0, err
	}
	existing := make(map[string]bool, len(existingIDs))
	for _, id := range existingIDs {
		existing[id] = true
	}

	inserted := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, r := range rows {
			if existing[r.PlatformID] {
				continue
			}
			r.ID = 0
			r.CollectionTaskID = nil
			if err := tx.Create(&r).Error; err != nil {
				if isUniqueViolation(err) {
					continue
				}
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return inserted, err
	}
	return inserted, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

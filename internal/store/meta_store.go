package store

import (
	"fmt"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/techappsUT/social-queue/internal/platformtypes"
)

// MetaStore is the single source of truth mapping a platform symbol to the
// filesystem path of its PlatformStore.
type MetaStore struct {
	db *gorm.DB
}

// OpenMetaStore opens (creating if needed) the catalog database at path.
func OpenMetaStore(path string) (*MetaStore, error) {
	if err := migrateMetaStore(dialectSQLite, path); err != nil {
		return nil, fmt.Errorf("migrate meta store %s: %w", path, err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	return &MetaStore{db: db}, nil
}

// OpenMetaStorePostgres opens the catalog database against a shared
// Postgres connection instead of a sqlite file.
func OpenMetaStorePostgres(dsn string) (*MetaStore, error) {
	if err := migrateMetaStore(dialectPostgres, dsn); err != nil {
		return nil, fmt.Errorf("migrate meta store (postgres): %w", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	return &MetaStore{db: db}, nil
}

// ListDatabases returns every registered platform catalog entry.
func (m *MetaStore) ListDatabases() ([]CatalogEntry, error) {
	var rows []CatalogEntry
	if err := m.db.Order("platform ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// AddDatabase registers platform -> path. Adding an existing platform is a
// no-op ("Creation is idempotent").
func (m *MetaStore) AddDatabase(platform platformtypes.Platform, path string, isDefault bool) error {
	var existing CatalogEntry
	err := m.db.Where("platform = ?", string(platform)).First(&existing).Error
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return err
	}
	return m.db.Create(&CatalogEntry{Platform: string(platform), DBPath: path, IsDefault: isDefault}).Error
}

// StatusRow is one line of MetaStore.GeneralStatus: a platform's catalog
// entry joined with its store's aggregate counts, or an Err describing why
// those counts could not be read.
type StatusRow struct {
	Platform    string
	DBPath      string
	IsDefault   bool
	TotalPosts  int64
	FileSizeB   int64
	TaskCounts  map[platformtypes.TaskStatus]int64
	Err         error
}

// GeneralStatus joins catalog entries with per-store counts. A store that
// cannot be opened (missing file, corrupt schema) reports an error row
// instead of failing the whole call.
func (m *MetaStore) GeneralStatus(includeTaskCounts bool) ([]StatusRow, error) {
	entries, err := m.ListDatabases()
	if err != nil {
		return nil, err
	}

	rows := make([]StatusRow, 0, len(entries))
	for _, e := range entries {
		row := StatusRow{Platform: e.Platform, DBPath: e.DBPath, IsDefault: e.IsDefault}

		if _, statErr := os.Stat(e.DBPath); statErr != nil {
			row.Err = fmt.Errorf("store for %s: %w", e.Platform, statErr)
			rows = append(rows, row)
			continue
		}

		ps, openErr := OpenPlatformStore(platformtypes.Platform(e.Platform), e.DBPath)
		if openErr != nil {
			row.Err = fmt.Errorf("open store for %s: %w", e.Platform, openErr)
			rows = append(rows, row)
			continue
		}

		if count, countErr := ps.CountPosts(); countErr == nil {
			row.TotalPosts = count
		} else {
			row.Err = countErr
		}
		if size, sizeErr := ps.FileSize(); sizeErr == nil {
			row.FileSizeB = size
		}
		if includeTaskCounts {
			if counts, countsErr := ps.CountStates(); countsErr == nil {
				row.TaskCounts = counts
			}
		}
		_ = ps.Close()
		rows = append(rows, row)
	}
	return rows, nil
}

func isNotFound(err error) bool {
	return err == gorm.ErrRecordNotFound
}

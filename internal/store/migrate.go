package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed migrations/platform/sqlite/*.sql migrations/platform/postgres/*.sql
var platformMigrationsFS embed.FS

//go:embed migrations/meta/sqlite/*.sql migrations/meta/postgres/*.sql
var metaMigrationsFS embed.FS

// dialect selects which backend a store's schema migrations target,
// mirroring config.DBConfig.Kind ("db_connection: { kind:
// sqlite|postgres, ... }").
type dialect string

const (
	dialectSQLite   dialect = "sqlite"
	dialectPostgres dialect = "postgres"
)

// openMigrateDriver opens a database/sql connection for d and wraps it in
// the matching golang-migrate database.Driver. sqlite goes through
// modernc.org/sqlite's pure-Go driver, so schema setup never requires CGO
// even though gorm's own sqlite connection (opened separately right after
// this returns) uses the mattn/go-sqlite3 dialect; postgres goes through
// jackc/pgx/v5's stdlib adapter, the same driver gorm.io/driver/postgres
// uses internally (see DESIGN.md).
func openMigrateDriver(d dialect, connStr string) (database.Driver, func() error, error) {
	switch d {
	case dialectPostgres:
		conn, err := sql.Open("pgx", connStr)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres migration connection: %w", err)
		}
		drv, err := migratepgx.WithInstance(conn, &migratepgx.Config{})
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("build postgres migrate driver: %w", err)
		}
		return drv, conn.Close, nil
	default:
		conn, err := sql.Open("sqlite", connStr)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite migration connection: %w", err)
		}
		drv, err := migratesqlite.WithInstance(conn, &migratesqlite.Config{})
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("build sqlite migrate driver: %w", err)
		}
		return drv, conn.Close, nil
	}
}

// applyMigrations runs the embedded golang-migrate source rooted at
// "<fsRoot>/<dialect>" against connStr.
func applyMigrations(fsys embed.FS, fsRoot string, d dialect, connStr string) error {
	driver, closeConn, err := openMigrateDriver(d, connStr)
	if err != nil {
		return err
	}
	defer closeConn()

	subdir := fmt.Sprintf("%s/%s", fsRoot, d)
	srcDriver, err := iofs.New(fsys, subdir)
	if err != nil {
		return fmt.Errorf("load embedded migrations %q: %w", subdir, err)
	}

	m, err := migrate.NewWithInstance("iofs", srcDriver, string(d), driver)
	if err != nil {
		return fmt.Errorf("build migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// migratePlatformStore applies the collection_task/post schema migrations.
func migratePlatformStore(d dialect, connStr string) error {
	return applyMigrations(platformMigrationsFS, "migrations/platform", d, connStr)
}

// migrateMetaStore applies the platform_databases catalog migration.
func migrateMetaStore(d dialect, connStr string) error {
	return applyMigrations(metaMigrationsFS, "migrations/meta", d, connStr)
}

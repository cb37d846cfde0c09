package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	authdomain "github.com/smallbiznis/cbam/internal/auth/domain"
	reportdomain "github.com/smallbiznis/cbam/internal/report/domain"
	"gorm.io/gorm"
)

// migratePostgres runs the embedded migrations up and refuses a dirty schema.
// The migrator is not closed because that would close db.
func migratePostgres(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	migrator, err := newPostgresMigrator(db)
	if err != nil {
		return err
	}
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty", version)
	}
	return nil
}

func newPostgresMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "cbam_schema_migrations"})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", source, "postgres", driver)
}

// Models lists the tables created by AutoMigrate on non-postgres dialects.
func Models() []any {
	return []any{&authdomain.User{}, &authdomain.Session{}, &reportdomain.Report{}}
}

// Apply brings the schema up to date for the given dialect.
func Apply(conn *gorm.DB, dialect string) error {
	if dialect != "postgres" {
		if err := conn.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return migratePostgres(sqlDB)
}

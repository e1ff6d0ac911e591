package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/smallbiznis/lawdirectory/internal/authorization"
	coveragedomain "github.com/smallbiznis/lawdirectory/internal/coverage/domain"
	marketdomain "github.com/smallbiznis/lawdirectory/internal/market/domain"
	plandomain "github.com/smallbiznis/lawdirectory/internal/plan/domain"
	plangroupdomain "github.com/smallbiznis/lawdirectory/internal/plangroup/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded postgres schema.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	migrator, err := newMigrator(db)
	if err != nil {
		return err
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// RollbackMigrations reverts the given number of postgres migrations.
func RollbackMigrations(db *sql.DB, steps int) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if steps <= 0 {
		return errors.New("rollback steps must be positive")
	}

	migrator, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := migrator.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback migrations: %w", err)
	}
	return nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return migrator, nil
}

// Models lists every table the directory owns, in dependency order.
func Models() []any {
	return []any{
		&marketdomain.State{},
		&marketdomain.City{},
		&marketdomain.ZipCode{},
		&marketdomain.Market{},
		&marketdomain.ZipCodeMarket{},
		&coveragedomain.LawFirm{},
		&coveragedomain.Lawyer{},
		&coveragedomain.ServiceArea{},
		&coveragedomain.DmaSubscription{},
		&coveragedomain.FallbackLawyer{},
		&coveragedomain.SubscriptionType{},
		&plandomain.Plan{},
		&plandomain.Feature{},
		&plangroupdomain.Group{},
		&plangroupdomain.Membership{},
		&plangroupdomain.Override{},
		&plangroupdomain.OverrideFeature{},
		&plangroupdomain.MarketException{},
		&plangroupdomain.MarketExceptionFeature{},
		&authorization.Profile{},
	}
}

// Apply runs the SQL migrations on postgres and falls back to AutoMigrate
// for the mysql and sqlite development stores.
func Apply(conn *gorm.DB, dbType string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if dbType == "postgres" {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

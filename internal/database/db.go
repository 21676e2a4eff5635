package database

import (
	"portalwarga/internal/model"

	gorm_logrus "github.com/onrik/gorm-logrus"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection opens the connection pool and, when migrate is set, brings the schema up to date.
func NewConnection(dsn string, debugMode bool, migrate bool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gorm_logrus.New(),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if debugMode {
		db = db.Debug()
	}

	if migrate {
		if err := AutoMigrate(db); err != nil {
			return nil, err
		}
	}

	log.Info("database connection established")
	return db, nil
}

// AutoMigrate creates or updates every table owned by this service. Profiles are written by
// the identity system but migrated here so foreign keys resolve in a fresh database.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Profile{},
		&model.Category{},
		&model.PurchaseRequest{},
		&model.RequestSequence{},
		&model.LedgerEntry{},
		&model.BudgetCeiling{},
		&model.AuditLog{},
	)
	return errors.Wrap(err, "failed to auto-migrate models")
}

func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

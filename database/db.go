package database

import (
	"fmt"
	"log/slog"
	"time"

	"chili-cookoff-backend/config"
	"chili-cookoff-backend/migrations"
	"chili-cookoff-backend/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database, applies migrations and, when enabled,
// seeds sample entries into an empty database.
func Open(cfg config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		dialector = mysql.Open(cfg.MySQLDSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewGormLogger(log, cfg.SlowThreshold),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if err := migrations.Apply(db, log); err != nil {
		return nil, err
	}

	if cfg.Seed {
		if err := SeedSampleEntries(db, log); err != nil {
			log.Warn("seed sample entries", "error", err)
		}
	}

	log.Info("database ready", "driver", cfg.Driver)
	return db, nil
}

// NewGormLogger routes GORM output through the application logger.
func NewGormLogger(log *slog.Logger, slowThreshold time.Duration) logger.Interface {
	return logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             slowThreshold,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// SeedSampleEntries inserts a few entries when the entries table is empty.
func SeedSampleEntries(db *gorm.DB, log *slog.Logger) error {
	var count int64
	if err := db.Model(&models.Entry{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count entries: %w", err)
	}
	if count > 0 {
		log.Debug("entries present, skipping sample data")
		return nil
	}

	entries := []models.Entry{
		{Name: "Texas Red", ChefName: "Dolores Ruiz", Description: "No beans, all chuck.", Ingredients: "beef chuck, ancho, guajillo, cumin"},
		{Name: "Green Machine", ChefName: "Sam Ortega", Description: "Hatch chile verde.", Ingredients: "pork shoulder, hatch chiles, tomatillo"},
		{Name: "Three Bean Thunder", ChefName: "Priya Nair", Description: "Vegetarian and smoky.", Ingredients: "kidney, pinto and black beans, chipotle"},
	}
	if err := db.Create(&entries).Error; err != nil {
		return fmt.Errorf("create sample entries: %w", err)
	}

	log.Info("sample entries created", "count", len(entries))
	return nil
}

// Close closes the underlying connection pool.
func Close(db *gorm.DB, log *slog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Error("get database handle", "error", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Error("close database", "error", err)
		return
	}

	log.Info("database connection closed")
}

// Ping reports whether the database answers.
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

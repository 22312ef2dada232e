package migrations

import (
	"fmt"
	"log/slog"

	"chili-cookoff-backend/models"

	"gorm.io/gorm"
)

// Apply migrates the schema. AutoMigrate creates missing tables and columns;
// the named steps below cover changes AutoMigrate does not make on existing tables.
func Apply(db *gorm.DB, log *slog.Logger) error {
	if err := db.AutoMigrate(&models.Entry{}, &models.Vote{}, &models.AdminSession{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	steps := []struct {
		name string
		run  func(*gorm.DB) error
	}{
		{name: "backfill_vote_dedupe_key", run: backfillDedupeKey},
		{name: "vote_dedupe_unique_index", run: ensureDedupeIndex},
	}

	for _, step := range steps {
		if err := step.run(db); err != nil {
			log.Error("migration failed", "step", step.name, "error", err)
			return fmt.Errorf("migration %s: %w", step.name, err)
		}
		log.Debug("migration applied", "step", step.name)
	}

	return nil
}

// backfillDedupeKey fills dedupe_key for rows written before the column existed.
func backfillDedupeKey(db *gorm.DB) error {
	return db.Model(&models.Vote{}).
		Where("dedupe_key = '' OR dedupe_key IS NULL").
		Update("dedupe_key", gorm.Expr("session_id")).Error
}

func ensureDedupeIndex(db *gorm.DB) error {
	const name = "idx_votes_entry_dedupe"
	if db.Migrator().HasIndex(&models.Vote{}, name) {
		return nil
	}
	return db.Migrator().CreateIndex(&models.Vote{}, name)
}

package db

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sykell/metabear/internal/logger"
)

// runMigrations performs database migrations
func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}, &AuditRun{}); err != nil {
		return err
	}

	return migrateOrphanedRuns(db)
}

// migrateOrphanedRuns assigns audit runs recorded without a user to the
// first user, so they show up in someone's history.
func migrateOrphanedRuns(db *gorm.DB) error {
	var count int64
	if err := db.Model(&AuditRun{}).Where("user_id = 0 OR user_id IS NULL").Count(&count).Error; err != nil {
		return err
	}

	if count == 0 {
		return nil
	}

	var owner User
	if err := db.First(&owner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	result := db.Model(&AuditRun{}).Where("user_id = 0 OR user_id IS NULL").Update("user_id", owner.ID)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		logger.Log.Info("Migrated orphaned audit runs",
			zap.Int64("count", result.RowsAffected),
			zap.Uint("user_id", owner.ID),
			zap.String("username", owner.Username),
		)
	}

	return nil
}

package main

import (
	"gorm.io/gorm"

	"github.com/userhub/engine/internal/models"
)

// registerModels returns all models that need migration
func registerModels() []interface{} {
	return []interface{}{
		&models.User{},
	}
}

// runMigrations executes all database migrations
func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(registerModels()...); err != nil {
		return err
	}
	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't express.
// They use Postgres syntax and are skipped on other dialects.
func runCustomMigrations(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	migrations := []func(*gorm.DB) error{
		defaultCreatedAt,
	}

	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}

	return nil
}

// defaultCreatedAt lets rows inserted outside the service get a timestamp too.
func defaultCreatedAt(db *gorm.DB) error {
	return db.Exec(`ALTER TABLE users ALTER COLUMN created_at SET DEFAULT now()`).Error
}

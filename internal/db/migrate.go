package db

import (
	"fmt"

	"github.com/zulandar/atelier/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.ProjectType{},
		&models.LifecyclePhase{},
		&models.ArtifactType{},
		&models.TypeDependency{},
		&models.Project{},
		&models.Artifact{},
		&models.ArtifactVersion{},
		&models.ArtifactState{},
		&models.StateTransition{},
		&models.ChatMessage{},
		&models.InteractionLog{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

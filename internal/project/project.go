// Package project provides project CRUD operations.
package project

import (
	"errors"
	"fmt"

	"github.com/zulandar/atelier/internal/models"
	"gorm.io/gorm"
)

// CreateOpts holds parameters for creating a new project.
type CreateOpts struct {
	Name            string
	ProjectTypeName string
	Owner           string
}

// Create creates a project following the named project type lifecycle.
func Create(db *gorm.DB, opts CreateOpts) (*models.Project, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("project: name is required")
	}

	var pt models.ProjectType
	if err := db.Where("name = ?", opts.ProjectTypeName).First(&pt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project: unknown project type: %s", opts.ProjectTypeName)
		}
		return nil, fmt.Errorf("project: look up type %q: %w", opts.ProjectTypeName, err)
	}

	p := models.Project{
		Name:          opts.Name,
		ProjectTypeID: pt.ID,
		Owner:         opts.Owner,
	}
	if err := db.Create(&p).Error; err != nil {
		return nil, fmt.Errorf("project: create: %w", err)
	}
	return &p, nil
}

// Get retrieves a project by ID, preloading its type.
func Get(db *gorm.DB, id uint) (*models.Project, error) {
	var p models.Project
	if err := db.Preload("ProjectType").Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project: not found: %d", id)
		}
		return nil, fmt.Errorf("project: get %d: %w", id, err)
	}
	return &p, nil
}

// GetByName retrieves a project by its unique name.
func GetByName(db *gorm.DB, name string) (*models.Project, error) {
	var p models.Project
	if err := db.Preload("ProjectType").Where("name = ?", name).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project: not found: %s", name)
		}
		return nil, fmt.Errorf("project: get %s: %w", name, err)
	}
	return &p, nil
}

// List returns all projects, oldest first.
func List(db *gorm.DB) ([]models.Project, error) {
	var projects []models.Project
	if err := db.Preload("ProjectType").Order("created_at ASC, id ASC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("project: list: %w", err)
	}
	return projects, nil
}

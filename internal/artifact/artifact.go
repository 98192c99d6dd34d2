// Package artifact provides artifact lifecycle operations: creation,
// manual edits, AI interactions, and state transitions.
package artifact

import (
	"errors"
	"fmt"

	"github.com/zulandar/atelier/internal/models"
	"gorm.io/gorm"
)

// Operation errors surfaced to callers as client errors.
var (
	ErrUnknownArtifactType   = errors.New("artifact: unknown artifact type")
	ErrInvalidArtifactType   = errors.New("artifact: type not permitted for project type")
	ErrDependencyNotApproved = errors.New("artifact: dependency types not approved")
	ErrNoChanges             = errors.New("artifact: no changes")
)

// ListFilters holds optional filters for listing artifacts.
type ListFilters struct {
	ProjectID uint
	TypeID    uint
	State     string
}

// Get retrieves an artifact by ID, preloading its type, state and project.
func Get(db *gorm.DB, id uint) (*models.Artifact, error) {
	var a models.Artifact
	err := db.
		Preload("Type.Phase").
		Preload("State").
		Preload("Project").
		Where("id = ?", id).
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("artifact: not found: %d", id)
		}
		return nil, fmt.Errorf("artifact: get %d: %w", id, err)
	}
	return &a, nil
}

// List returns artifacts matching the given filters, oldest first.
func List(db *gorm.DB, filters ListFilters) ([]models.Artifact, error) {
	q := db.Model(&models.Artifact{}).Preload("Type").Preload("State")

	if filters.ProjectID != 0 {
		q = q.Where("project_id = ?", filters.ProjectID)
	}
	if filters.TypeID != 0 {
		q = q.Where("type_id = ?", filters.TypeID)
	}
	if filters.State != "" {
		q = q.Joins("JOIN artifact_states s ON s.id = artifacts.state_id").
			Where("s.name = ?", filters.State)
	}

	var artifacts []models.Artifact
	if err := q.Order("artifacts.created_at ASC, artifacts.id ASC").Find(&artifacts).Error; err != nil {
		return nil, fmt.Errorf("artifact: list: %w", err)
	}
	return artifacts, nil
}

// Versions returns all versions of an artifact, oldest first.
func Versions(db *gorm.DB, artifactID uint) ([]models.ArtifactVersion, error) {
	var versions []models.ArtifactVersion
	err := db.
		Where("artifact_id = ?", artifactID).
		Order("number ASC").
		Find(&versions).Error
	if err != nil {
		return nil, fmt.Errorf("artifact: versions of %d: %w", artifactID, err)
	}
	return versions, nil
}

// CurrentContent returns the content of an artifact's current version,
// or "" when no version exists yet.
func CurrentContent(db *gorm.DB, a *models.Artifact) (string, error) {
	if a.CurrentVersionID == nil {
		return "", nil
	}
	var v models.ArtifactVersion
	if err := db.Where("id = ?", *a.CurrentVersionID).First(&v).Error; err != nil {
		return "", fmt.Errorf("artifact: current version of %d: %w", a.ID, err)
	}
	return v.Content, nil
}

// History returns an artifact's conversation, oldest first.
func History(db *gorm.DB, artifactID uint) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := db.
		Where("artifact_id = ?", artifactID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("artifact: history of %d: %w", artifactID, err)
	}
	return messages, nil
}

// addVersion creates the next version row and repoints the artifact's
// current-version pointer. Versions are append-only; the number is always
// one greater than the previous maximum.
func addVersion(tx *gorm.DB, a *models.Artifact, content, createdBy string) (*models.ArtifactVersion, error) {
	var maxNumber int
	err := tx.Model(&models.ArtifactVersion{}).
		Where("artifact_id = ?", a.ID).
		Select("COALESCE(MAX(number), 0)").
		Scan(&maxNumber).Error
	if err != nil {
		return nil, fmt.Errorf("artifact: max version of %d: %w", a.ID, err)
	}

	version := models.ArtifactVersion{
		ArtifactID: a.ID,
		Number:     maxNumber + 1,
		Content:    content,
		CreatedBy:  createdBy,
	}
	if err := tx.Create(&version).Error; err != nil {
		return nil, fmt.Errorf("artifact: create version %d of %d: %w", version.Number, a.ID, err)
	}

	if err := tx.Model(&models.Artifact{}).
		Where("id = ?", a.ID).
		Update("current_version_id", version.ID).Error; err != nil {
		return nil, fmt.Errorf("artifact: advance current version of %d: %w", a.ID, err)
	}
	a.CurrentVersionID = &version.ID
	return &version, nil
}

// appendMessage records one conversation turn.
func appendMessage(tx *gorm.DB, artifactID uint, role, content string) error {
	msg := models.ChatMessage{ArtifactID: artifactID, Role: role, Content: content}
	if err := tx.Create(&msg).Error; err != nil {
		return fmt.Errorf("artifact: append %s message to %d: %w", role, artifactID, err)
	}
	return nil
}

package models

import "time"

// Artifact is one produced document or diagram instance within a project.
// CurrentVersionID always points at the most recently created version; only
// the artifact package advances it.
type Artifact struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	ProjectID        uint   `gorm:"not null;index"`
	TypeID           uint   `gorm:"not null;index"`
	Name             string `gorm:"size:128;not null"`
	StateID          uint   `gorm:"not null;index"`
	CurrentVersionID *uint
	CreatedBy        string `gorm:"size:64"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Project  *Project          `gorm:"foreignKey:ProjectID"`
	Type     *ArtifactType     `gorm:"foreignKey:TypeID"`
	State    *ArtifactState    `gorm:"foreignKey:StateID"`
	Versions []ArtifactVersion `gorm:"foreignKey:ArtifactID"`
	Messages []ChatMessage     `gorm:"foreignKey:ArtifactID"`
}

// ArtifactVersion is an immutable content snapshot. Rows are append-only;
// a save or accepted AI edit always creates a new row with Number one
// greater than the previous maximum for the artifact.
type ArtifactVersion struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	ArtifactID uint   `gorm:"not null;uniqueIndex:idx_version_artifact_number"`
	Number     int    `gorm:"not null;uniqueIndex:idx_version_artifact_number"`
	Content    string `gorm:"type:mediumtext"`
	CreatedBy  string `gorm:"size:64"`
	CreatedAt  time.Time
}

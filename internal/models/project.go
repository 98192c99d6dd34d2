package models

import "time"

// Project is one concrete project following a ProjectType lifecycle.
type Project struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	Name          string `gorm:"size:128;not null;uniqueIndex"`
	ProjectTypeID uint   `gorm:"not null;index"`
	Owner         string `gorm:"size:64"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	ProjectType *ProjectType `gorm:"foreignKey:ProjectTypeID"`
	Artifacts   []Artifact   `gorm:"foreignKey:ProjectID"`
}

package models

import "time"

// InteractionLog captures complete provider I/O for debugging.
type InteractionLog struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	ArtifactID uint   `gorm:"index"`
	Direction  string `gorm:"size:4"`
	Variant    string `gorm:"size:16"`
	Model      string `gorm:"size:64"`
	Content    string `gorm:"type:mediumtext"`
	LatencyMs  int
	CreatedAt  time.Time
}

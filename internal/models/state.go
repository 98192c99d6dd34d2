package models

// ArtifactState is one of the three process-wide artifact states, shared
// across all project types.
type ArtifactState struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:32;not null;uniqueIndex"`
}

// StateTransition is one legal directed transition between states. The
// transition set is fixed data seeded once, not configurable per project
// type.
type StateTransition struct {
	FromID uint `gorm:"primaryKey"`
	ToID   uint `gorm:"primaryKey"`

	From *ArtifactState `gorm:"foreignKey:FromID"`
	To   *ArtifactState `gorm:"foreignKey:ToID"`
}

package models

// ProjectType is a named lifecycle template (e.g. "Software Engineering").
// Created at seed time and treated as immutable once projects reference it.
type ProjectType struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:128;not null;uniqueIndex"`

	Phases []LifecyclePhase `gorm:"foreignKey:ProjectTypeID"`
}

// LifecyclePhase is one ordered step of a ProjectType's lifecycle.
type LifecyclePhase struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	ProjectTypeID uint   `gorm:"not null;uniqueIndex:idx_phase_type_name"`
	Name          string `gorm:"size:128;not null;uniqueIndex:idx_phase_type_name"`
	Sequence      int    `gorm:"not null"`

	ProjectType   *ProjectType   `gorm:"foreignKey:ProjectTypeID"`
	ArtifactTypes []ArtifactType `gorm:"foreignKey:PhaseID"`
}

// ArtifactType describes one kind of artifact within a phase. Slug is the
// stable machine-readable key used to name context bundle fields; Syntax
// selects how model output is interpreted (markdown, mermaid, ...).
type ArtifactType struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	PhaseID    uint   `gorm:"not null;index"`
	Name       string `gorm:"size:128;not null"`
	Slug       string `gorm:"size:64;not null;index"`
	Syntax     string `gorm:"size:32;default:markdown"`
	Repeatable bool   `gorm:"default:false"`

	Phase        *LifecyclePhase  `gorm:"foreignKey:PhaseID"`
	Dependencies []TypeDependency `gorm:"foreignKey:DependentID"`
}

// TypeDependency is a directed edge: the dependent artifact type may not be
// started until the dependency type has an approved instance. Edges form a
// DAG per ProjectType; cycles are rejected at seed time.
type TypeDependency struct {
	DependentID  uint `gorm:"primaryKey"`
	DependencyID uint `gorm:"primaryKey"`

	Dependent  *ArtifactType `gorm:"foreignKey:DependentID"`
	Dependency *ArtifactType `gorm:"foreignKey:DependencyID"`
}

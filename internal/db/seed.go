package db

import (
	"errors"
	"fmt"

	"github.com/zulandar/atelier/internal/config"
	"github.com/zulandar/atelier/internal/depgraph"
	"github.com/zulandar/atelier/internal/lifecycle"
	"github.com/zulandar/atelier/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedStates upserts the three artifact states and the fixed transition
// rows. The transition set is process-wide data, not configuration.
func SeedStates(db *gorm.DB) error {
	for _, name := range lifecycle.States() {
		state := models.ArtifactState{Name: name}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&state)
		if result.Error != nil {
			return fmt.Errorf("db: seed state %q: %w", name, result.Error)
		}
	}

	for from, tos := range lifecycle.ValidTransitions {
		fromID, err := StateID(db, from)
		if err != nil {
			return err
		}
		for _, to := range tos {
			toID, err := StateID(db, to)
			if err != nil {
				return err
			}
			tr := models.StateTransition{FromID: fromID, ToID: toID}
			result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&tr)
			if result.Error != nil {
				return fmt.Errorf("db: seed transition %q → %q: %w", from, to, result.Error)
			}
		}
	}
	return nil
}

// StateID resolves a state name to its row ID.
func StateID(db *gorm.DB, name string) (uint, error) {
	var state models.ArtifactState
	if err := db.Where("name = ?", name).First(&state).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("db: state not found: %s", name)
		}
		return 0, fmt.Errorf("db: get state %s: %w", name, err)
	}
	return state.ID, nil
}

// SeedProjectTypes upserts project type templates from configuration:
// phases in declared order, artifact types, and dependency edges. Dependency
// edges are cycle-checked before any edge is written, so a bad config can
// never leave a cyclic graph behind.
func SeedProjectTypes(db *gorm.DB, types []config.ProjectTypeConfig) error {
	for _, ptc := range types {
		if err := seedProjectType(db, ptc); err != nil {
			return err
		}
	}
	return nil
}

func seedProjectType(db *gorm.DB, ptc config.ProjectTypeConfig) error {
	pt := models.ProjectType{Name: ptc.Name}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&pt)
	if result.Error != nil {
		return fmt.Errorf("db: seed project type %q: %w", ptc.Name, result.Error)
	}
	if pt.ID == 0 {
		if err := db.Where("name = ?", ptc.Name).First(&pt).Error; err != nil {
			return fmt.Errorf("db: get project type %q: %w", ptc.Name, err)
		}
	}

	// Phases and artifact types, resolving slugs to IDs as we go.
	typeIDBySlug := make(map[string]uint)
	for i, phc := range ptc.Phases {
		phase := models.LifecyclePhase{
			ProjectTypeID: pt.ID,
			Name:          phc.Name,
			Sequence:      i + 1,
		}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_type_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"sequence"}),
		}).Create(&phase)
		if result.Error != nil {
			return fmt.Errorf("db: seed phase %q: %w", phc.Name, result.Error)
		}
		if phase.ID == 0 {
			if err := db.Where("project_type_id = ? AND name = ?", pt.ID, phc.Name).First(&phase).Error; err != nil {
				return fmt.Errorf("db: get phase %q: %w", phc.Name, err)
			}
		}

		for _, atc := range phc.ArtifactTypes {
			id, err := seedArtifactType(db, phase.ID, atc)
			if err != nil {
				return err
			}
			typeIDBySlug[atc.Slug] = id
		}
	}

	// Resolve dependency edges and validate before writing.
	var edges []models.TypeDependency
	for _, phc := range ptc.Phases {
		for _, atc := range phc.ArtifactTypes {
			for _, depSlug := range atc.DependsOn {
				depID, ok := typeIDBySlug[depSlug]
				if !ok {
					return fmt.Errorf("db: %q depends on unknown slug %q in project type %q",
						atc.Slug, depSlug, ptc.Name)
				}
				edges = append(edges, models.TypeDependency{
					DependentID:  typeIDBySlug[atc.Slug],
					DependencyID: depID,
				})
			}
		}
	}
	if _, err := depgraph.Build(edges); err != nil {
		return fmt.Errorf("db: seed project type %q: %w", ptc.Name, err)
	}

	for _, e := range edges {
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&e)
		if result.Error != nil {
			return fmt.Errorf("db: seed dependency %d → %d: %w", e.DependentID, e.DependencyID, result.Error)
		}
	}
	return nil
}

func seedArtifactType(db *gorm.DB, phaseID uint, atc config.ArtifactTypeConfig) (uint, error) {
	var at models.ArtifactType
	err := db.Where("phase_id = ? AND slug = ?", phaseID, atc.Slug).First(&at).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		at = models.ArtifactType{
			PhaseID:    phaseID,
			Name:       atc.Name,
			Slug:       atc.Slug,
			Syntax:     atc.Syntax,
			Repeatable: atc.Repeatable,
		}
		if err := db.Create(&at).Error; err != nil {
			return 0, fmt.Errorf("db: seed artifact type %q: %w", atc.Slug, err)
		}
	case err != nil:
		return 0, fmt.Errorf("db: get artifact type %q: %w", atc.Slug, err)
	default:
		updates := map[string]interface{}{
			"name":       atc.Name,
			"syntax":     atc.Syntax,
			"repeatable": atc.Repeatable,
		}
		if err := db.Model(&at).Updates(updates).Error; err != nil {
			return 0, fmt.Errorf("db: update artifact type %q: %w", atc.Slug, err)
		}
	}
	return at.ID, nil
}

// Package assemble gathers project and artifact metadata plus the approved
// content of dependency artifact types into the context bundle consumed by
// prompt templates.
package assemble

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zulandar/atelier/internal/lifecycle"
	"github.com/zulandar/atelier/internal/models"
	"gorm.io/gorm"
)

// Bundle is the context mapping handed to the prompt renderer. Fixed keys:
// "project", "artifact", "is_update", "user_message". Dependency content is
// keyed by the dependency type's slug; repeatable types use the plural slug
// and carry an ordered []string.
type Bundle map[string]interface{}

// Opts holds assembly policy knobs.
type Opts struct {
	// InjectAllRepeatable injects every approved instance of a repeatable
	// dependency type; false injects only the most recently approved one.
	InjectAllRepeatable bool
}

// Assemble builds the context bundle for one artifact. A dependency type
// with no approved instance is omitted from the bundle rather than failing:
// context generation never blocks on a missing optional field.
func Assemble(db *gorm.DB, artifactID uint, isUpdate bool, userMessage string, opts Opts) (Bundle, error) {
	var artifact models.Artifact
	err := db.
		Preload("Type.Phase").
		Preload("Project.ProjectType").
		Where("id = ?", artifactID).
		First(&artifact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("assemble: artifact not found: %d", artifactID)
		}
		return nil, fmt.Errorf("assemble: get artifact %d: %w", artifactID, err)
	}

	bundle := Bundle{
		"project": map[string]interface{}{
			"name": artifact.Project.Name,
			"type": artifact.Project.ProjectType.Name,
		},
		"artifact": map[string]interface{}{
			"name":   artifact.Name,
			"type":   artifact.Type.Name,
			"phase":  artifact.Type.Phase.Name,
			"syntax": artifact.Type.Syntax,
		},
		"is_update":    isUpdate,
		"user_message": userMessage,
	}

	deps, err := dependencyTypes(db, artifact.TypeID)
	if err != nil {
		return nil, err
	}
	for _, dep := range deps {
		contents, err := approvedContent(db, artifact.ProjectID, dep.ID)
		if err != nil {
			return nil, err
		}
		if len(contents) == 0 {
			continue
		}
		if dep.Repeatable {
			if !opts.InjectAllRepeatable {
				contents = contents[len(contents)-1:]
			}
			bundle[pluralize(dep.Slug)] = contents
		} else {
			bundle[dep.Slug] = contents[len(contents)-1]
		}
	}

	return bundle, nil
}

// dependencyTypes loads the direct dependency artifact types of a type.
func dependencyTypes(db *gorm.DB, typeID uint) ([]models.ArtifactType, error) {
	var deps []models.ArtifactType
	err := db.
		Joins("JOIN type_dependencies td ON td.dependency_id = artifact_types.id").
		Where("td.dependent_id = ?", typeID).
		Order("artifact_types.id ASC").
		Find(&deps).Error
	if err != nil {
		return nil, fmt.Errorf("assemble: dependency types of %d: %w", typeID, err)
	}
	return deps, nil
}

// approvedContent returns the current version content of every approved
// artifact of the given type in the project, oldest approval first.
func approvedContent(db *gorm.DB, projectID, typeID uint) ([]string, error) {
	var artifacts []models.Artifact
	err := db.
		Joins("JOIN artifact_states s ON s.id = artifacts.state_id").
		Where("artifacts.project_id = ? AND artifacts.type_id = ? AND s.name = ?",
			projectID, typeID, lifecycle.StateApproved).
		Order("artifacts.updated_at ASC, artifacts.id ASC").
		Find(&artifacts).Error
	if err != nil {
		return nil, fmt.Errorf("assemble: approved artifacts of type %d: %w", typeID, err)
	}

	var contents []string
	for _, a := range artifacts {
		if a.CurrentVersionID == nil {
			continue
		}
		var v models.ArtifactVersion
		if err := db.Where("id = ?", *a.CurrentVersionID).First(&v).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, fmt.Errorf("assemble: version %d: %w", *a.CurrentVersionID, err)
		}
		contents = append(contents, v.Content)
	}
	return contents, nil
}

// pluralize derives the bundle key for a repeatable slug.
func pluralize(slug string) string {
	if strings.HasSuffix(slug, "s") {
		return slug
	}
	return slug + "s"
}

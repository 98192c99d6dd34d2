package dashboard

import (
	"github.com/zulandar/atelier/internal/artifact"
	"github.com/zulandar/atelier/internal/lifecycle"
	"github.com/zulandar/atelier/internal/models"
	"github.com/zulandar/atelier/internal/project"
	"gorm.io/gorm"
)

// ProjectSummary holds per-project artifact counts by state.
type ProjectSummary struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	ProjectType string `json:"project_type"`
	ToDo        int    `json:"to_do"`
	InProgress  int    `json:"in_progress"`
	Approved    int    `json:"approved"`
	Total       int    `json:"total"`
}

// ProjectSummaries returns every project with its artifact state counts.
func ProjectSummaries(db *gorm.DB) ([]ProjectSummary, error) {
	projects, err := project.List(db)
	if err != nil {
		return nil, err
	}

	type row struct {
		ProjectID uint
		State     string
		Count     int
	}
	var rows []row
	err = db.Model(&models.Artifact{}).
		Select("artifacts.project_id, s.name AS state, COUNT(*) AS count").
		Joins("JOIN artifact_states s ON s.id = artifacts.state_id").
		Group("artifacts.project_id, s.name").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]map[string]int)
	for _, r := range rows {
		if counts[r.ProjectID] == nil {
			counts[r.ProjectID] = make(map[string]int)
		}
		counts[r.ProjectID][r.State] = r.Count
	}

	summaries := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		s := ProjectSummary{ID: p.ID, Name: p.Name}
		if p.ProjectType != nil {
			s.ProjectType = p.ProjectType.Name
		}
		s.ToDo = counts[p.ID][lifecycle.StateToDo]
		s.InProgress = counts[p.ID][lifecycle.StateInProgress]
		s.Approved = counts[p.ID][lifecycle.StateApproved]
		s.Total = s.ToDo + s.InProgress + s.Approved
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// PhaseProgress holds artifact progress within one lifecycle phase.
type PhaseProgress struct {
	Phase     string        `json:"phase"`
	Sequence  int           `json:"sequence"`
	Artifacts []ArtifactRow `json:"artifacts"`
}

// ArtifactRow holds one artifact for display.
type ArtifactRow struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	State string `json:"state"`
}

// Detail is the project view: metadata plus artifacts grouped by phase.
type Detail struct {
	Project *models.Project `json:"project"`
	Phases  []PhaseProgress `json:"phases"`
}

// ProjectDetail builds the per-phase artifact breakdown of a project.
func ProjectDetail(db *gorm.DB, projectID uint) (*Detail, error) {
	p, err := project.Get(db, projectID)
	if err != nil {
		return nil, err
	}

	var phases []models.LifecyclePhase
	err = db.Where("project_type_id = ?", p.ProjectTypeID).
		Order("sequence ASC").
		Find(&phases).Error
	if err != nil {
		return nil, err
	}

	artifacts, err := artifact.List(db, artifact.ListFilters{ProjectID: projectID})
	if err != nil {
		return nil, err
	}

	byPhase := make(map[uint][]ArtifactRow)
	for _, a := range artifacts {
		if a.Type == nil {
			continue
		}
		row := ArtifactRow{ID: a.ID, Name: a.Name, Type: a.Type.Name}
		if a.State != nil {
			row.State = a.State.Name
		}
		byPhase[a.Type.PhaseID] = append(byPhase[a.Type.PhaseID], row)
	}

	detail := &Detail{Project: p}
	for _, ph := range phases {
		detail.Phases = append(detail.Phases, PhaseProgress{
			Phase:     ph.Name,
			Sequence:  ph.Sequence,
			Artifacts: byPhase[ph.ID],
		})
	}
	return detail, nil
}

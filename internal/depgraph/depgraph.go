// Package depgraph builds the per-project-type DAG of artifact type
// dependencies and answers startability checks against it.
package depgraph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zulandar/atelier/internal/lifecycle"
	"github.com/zulandar/atelier/internal/models"
	"gorm.io/gorm"
)

// ErrDependencyCycle is returned when the dependency edges of a project type
// do not form a DAG.
var ErrDependencyCycle = errors.New("dependency cycle")

// Graph is the dependency DAG for one project type. It is read-only after
// Build and safe to share across concurrent requests.
type Graph struct {
	deps map[uint][]uint // dependent type ID → dependency type IDs
}

// Build constructs a Graph from dependency edges and fails fast with
// ErrDependencyCycle if the edges contain a cycle.
func Build(edges []models.TypeDependency) (*Graph, error) {
	g := &Graph{deps: make(map[uint][]uint)}
	for _, e := range edges {
		g.deps[e.DependentID] = append(g.deps[e.DependentID], e.DependencyID)
	}
	for id := range g.deps {
		sort.Slice(g.deps[id], func(i, j int) bool { return g.deps[id][i] < g.deps[id][j] })
	}

	if cycle := g.findCycle(); cycle != 0 {
		return nil, fmt.Errorf("depgraph: %w through artifact type %d", ErrDependencyCycle, cycle)
	}
	return g, nil
}

// ForProjectType loads all dependency edges between artifact types of the
// given project type and builds the graph.
func ForProjectType(db *gorm.DB, projectTypeID uint) (*Graph, error) {
	var edges []models.TypeDependency
	err := db.
		Joins("JOIN artifact_types dep ON dep.id = type_dependencies.dependent_id").
		Joins("JOIN lifecycle_phases ph ON ph.id = dep.phase_id").
		Where("ph.project_type_id = ?", projectTypeID).
		Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("depgraph: load edges for project type %d: %w", projectTypeID, err)
	}
	return Build(edges)
}

// Dependencies returns the direct dependency type IDs of a type, in stable
// order. The slice is shared; callers must not modify it.
func (g *Graph) Dependencies(typeID uint) []uint {
	return g.deps[typeID]
}

// IsStartable reports whether an artifact of the given type may be started:
// every direct dependency type must appear in approved. A type counts as
// approved once any one artifact instance of it in the project is Approved.
func (g *Graph) IsStartable(typeID uint, approved map[uint]bool) bool {
	for _, dep := range g.deps[typeID] {
		if !approved[dep] {
			return false
		}
	}
	return true
}

// MissingDependencies returns the dependency type IDs of a type that are not
// yet approved, for error reporting.
func (g *Graph) MissingDependencies(typeID uint, approved map[uint]bool) []uint {
	var missing []uint
	for _, dep := range g.deps[typeID] {
		if !approved[dep] {
			missing = append(missing, dep)
		}
	}
	return missing
}

// ApprovedTypes returns the set of artifact type IDs that have at least one
// Approved artifact instance in the project.
func ApprovedTypes(db *gorm.DB, projectID uint) (map[uint]bool, error) {
	var typeIDs []uint
	err := db.Model(&models.Artifact{}).
		Joins("JOIN artifact_states s ON s.id = artifacts.state_id").
		Where("artifacts.project_id = ? AND s.name = ?", projectID, lifecycle.StateApproved).
		Distinct().
		Pluck("artifacts.type_id", &typeIDs).Error
	if err != nil {
		return nil, fmt.Errorf("depgraph: approved types for project %d: %w", projectID, err)
	}
	approved := make(map[uint]bool, len(typeIDs))
	for _, id := range typeIDs {
		approved[id] = true
	}
	return approved, nil
}

// findCycle runs a DFS over the dependency edges and returns the ID of a
// node on a cycle, or 0 if the graph is acyclic.
func (g *Graph) findCycle() uint {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[uint]int)

	var visit func(id uint) uint
	visit = func(id uint) uint {
		switch state[id] {
		case visiting:
			return id
		case done:
			return 0
		}
		state[id] = visiting
		for _, dep := range g.deps[id] {
			if hit := visit(dep); hit != 0 {
				return hit
			}
		}
		state[id] = done
		return 0
	}

	// Deterministic iteration order for stable error messages.
	ids := make([]uint, 0, len(g.deps))
	for id := range g.deps {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if hit := visit(id); hit != 0 {
			return hit
		}
	}
	return 0
}

package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/atelier/internal/lifecycle"
	"github.com/zulandar/atelier/internal/models"
	"gorm.io/gorm"
)

// Digest holds computed artifact metrics for the period since the last
// digest.
type Digest struct {
	PeriodEnd        time.Time
	ArtifactsCreated int
	VersionsCreated  int
	Approved         int
	ProjectBreakdown []ProjectDigest
}

// ProjectDigest holds per-project state counts.
type ProjectDigest struct {
	Project    string
	ToDo       int
	InProgress int
	Approved   int
}

// BuildDigest queries the last 24 hours of activity and returns a digest
// event. Returns nil when there was no activity.
func (w *Watcher) BuildDigest() (*Event, error) {
	now := time.Now()
	since := now.Add(-24 * time.Hour)

	digest, err := buildDigest(w.db, since, now)
	if err != nil {
		return nil, fmt.Errorf("notify: digest: %w", err)
	}
	if digest.ArtifactsCreated == 0 && digest.VersionsCreated == 0 && digest.Approved == 0 {
		return nil, nil
	}

	return &Event{
		Type:      EventDigest,
		Timestamp: now,
		Digest:    digest,
	}, nil
}

func buildDigest(db *gorm.DB, since, until time.Time) (*Digest, error) {
	digest := &Digest{PeriodEnd: until}

	var created int64
	err := db.Model(&models.Artifact{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Count(&created).Error
	if err != nil {
		return nil, err
	}
	digest.ArtifactsCreated = int(created)

	var versions int64
	err = db.Model(&models.ArtifactVersion{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Count(&versions).Error
	if err != nil {
		return nil, err
	}
	digest.VersionsCreated = int(versions)

	var approved int64
	err = db.Model(&models.Artifact{}).
		Joins("JOIN artifact_states s ON s.id = artifacts.state_id").
		Where("s.name = ? AND artifacts.updated_at >= ? AND artifacts.updated_at < ?",
			lifecycle.StateApproved, since, until).
		Count(&approved).Error
	if err != nil {
		return nil, err
	}
	digest.Approved = int(approved)

	rows, err := projectBreakdown(db)
	if err != nil {
		return nil, err
	}
	digest.ProjectBreakdown = rows
	return digest, nil
}

// breakdownRow is the flattened per-project count query result.
type breakdownRow struct {
	Project string
	State   string
	Count   int
}

func projectBreakdown(db *gorm.DB) ([]ProjectDigest, error) {
	var rows []breakdownRow
	err := db.Model(&models.Artifact{}).
		Select("p.name AS project, s.name AS state, COUNT(*) AS count").
		Joins("JOIN projects p ON p.id = artifacts.project_id").
		Joins("JOIN artifact_states s ON s.id = artifacts.state_id").
		Group("p.name, s.name").
		Order("p.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byProject := make(map[string]*ProjectDigest)
	var order []string
	for _, r := range rows {
		pd, ok := byProject[r.Project]
		if !ok {
			pd = &ProjectDigest{Project: r.Project}
			byProject[r.Project] = pd
			order = append(order, r.Project)
		}
		switch r.State {
		case lifecycle.StateToDo:
			pd.ToDo = r.Count
		case lifecycle.StateInProgress:
			pd.InProgress = r.Count
		case lifecycle.StateApproved:
			pd.Approved = r.Count
		}
	}

	out := make([]ProjectDigest, 0, len(order))
	for _, name := range order {
		out = append(out, *byProject[name])
	}
	return out, nil
}

// FormatDigest renders a digest as a chat event.
func FormatDigest(d *Digest) FormattedEvent {
	if d == nil {
		return FormattedEvent{Title: "Daily digest", Color: ColorInfo}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Artifacts created: %d\n", d.ArtifactsCreated)
	fmt.Fprintf(&b, "Versions written: %d\n", d.VersionsCreated)
	fmt.Fprintf(&b, "Approvals: %d", d.Approved)

	fields := make([]Field, 0, len(d.ProjectBreakdown))
	for _, pd := range d.ProjectBreakdown {
		fields = append(fields, Field{
			Name:  pd.Project,
			Value: fmt.Sprintf("%d to do / %d in progress / %d approved", pd.ToDo, pd.InProgress, pd.Approved),
		})
	}

	return FormattedEvent{
		Title:  "Daily digest",
		Body:   b.String(),
		Color:  ColorInfo,
		Fields: fields,
	}
}

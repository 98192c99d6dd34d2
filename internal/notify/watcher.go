package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zulandar/atelier/internal/models"
	"gorm.io/gorm"
)

// DefaultPollInterval is the state-change polling cadence.
const DefaultPollInterval = 15 * time.Second

// artifactSnapshot holds the last-known state of each artifact for change
// detection.
type artifactSnapshot struct {
	State string
}

// Watcher polls the database for artifact state changes and emits Events.
// The first poll only seeds the baseline; pre-existing artifacts are never
// announced retroactively.
type Watcher struct {
	db           *gorm.DB
	pollInterval time.Duration
	digestCron   string

	mu       sync.Mutex
	snapshot map[uint]artifactSnapshot
	seeded   bool
}

// WatcherOpts holds parameters for creating a Watcher.
type WatcherOpts struct {
	DB           *gorm.DB
	PollInterval time.Duration // defaults to DefaultPollInterval
	DigestCron   string        // 5-field cron expression; empty disables digests
}

// NewWatcher creates a Watcher.
func NewWatcher(opts WatcherOpts) (*Watcher, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("notify: watcher: db is required")
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Watcher{
		db:           opts.DB,
		pollInterval: poll,
		digestCron:   opts.DigestCron,
		snapshot:     make(map[uint]artifactSnapshot),
	}, nil
}

// Poll runs one detection cycle and returns the events found. The first
// call establishes the baseline and returns nothing.
func (w *Watcher) Poll(ctx context.Context) ([]Event, error) {
	rows, err := w.loadStates()
	if err != nil {
		return nil, fmt.Errorf("notify: watcher: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.seeded {
		for _, r := range rows {
			w.snapshot[r.ID] = artifactSnapshot{State: r.State}
		}
		w.seeded = true
		return nil, nil
	}

	now := time.Now()
	var events []Event
	for _, r := range rows {
		prev, known := w.snapshot[r.ID]
		switch {
		case !known:
			events = append(events, Event{
				Type:         EventNewArtifact,
				Timestamp:    now,
				ArtifactID:   r.ID,
				ArtifactName: r.Name,
				TypeName:     r.TypeName,
				ProjectName:  r.ProjectName,
				NewState:     r.State,
			})
		case prev.State != r.State:
			events = append(events, Event{
				Type:         EventStateChange,
				Timestamp:    now,
				ArtifactID:   r.ID,
				ArtifactName: r.Name,
				TypeName:     r.TypeName,
				ProjectName:  r.ProjectName,
				OldState:     prev.State,
				NewState:     r.State,
			})
		}
		w.snapshot[r.ID] = artifactSnapshot{State: r.State}
	}
	return events, nil
}

// stateRow is the flattened poll query result.
type stateRow struct {
	ID          uint
	Name        string
	State       string
	TypeName    string
	ProjectName string
}

func (w *Watcher) loadStates() ([]stateRow, error) {
	var rows []stateRow
	err := w.db.Model(&models.Artifact{}).
		Select("artifacts.id, artifacts.name, s.name AS state, t.name AS type_name, p.name AS project_name").
		Joins("JOIN artifact_states s ON s.id = artifacts.state_id").
		Joins("JOIN artifact_types t ON t.id = artifacts.type_id").
		Joins("JOIN projects p ON p.id = artifacts.project_id").
		Order("artifacts.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Run starts the watcher loop. It polls on the configured interval and
// sends detected events to the returned channel, which is closed when the
// context is cancelled. Digest events fire on the cron schedule.
func (w *Watcher) Run(ctx context.Context) <-chan Event {
	ch := make(chan Event, 64)
	go func() {
		defer close(ch)
		pollTicker := time.NewTicker(w.pollInterval)
		defer pollTicker.Stop()

		digestTimer, digestC := w.digestTimer()
		if digestTimer != nil {
			defer digestTimer.Stop()
		}

		emit := func(events []Event) bool {
			for _, e := range events {
				select {
				case ch <- e:
				case <-ctx.Done():
					return false
				}
			}
			return true
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-pollTicker.C:
				events, err := w.Poll(ctx)
				if err != nil {
					continue
				}
				if !emit(events) {
					return
				}
			case <-digestC:
				if event, err := w.BuildDigest(); err == nil && event != nil {
					if !emit([]Event{*event}) {
						return
					}
				}
				digestTimer.Reset(untilNextDigest(w.digestCron))
			}
		}
	}()
	return ch
}

// digestTimer arms a timer for the next cron fire, or returns a nil channel
// (which never fires) when digests are disabled.
func (w *Watcher) digestTimer() (*time.Timer, <-chan time.Time) {
	if w.digestCron == "" {
		return nil, nil
	}
	d := untilNextDigest(w.digestCron)
	if d <= 0 {
		return nil, nil
	}
	t := time.NewTimer(d)
	return t, t.C
}

package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zulandar/atelier/internal/assemble"
	"github.com/zulandar/atelier/internal/config"
	"github.com/zulandar/atelier/internal/db"
	"github.com/zulandar/atelier/internal/depgraph"
	"github.com/zulandar/atelier/internal/lifecycle"
	"github.com/zulandar/atelier/internal/models"
	"github.com/zulandar/atelier/internal/prompt"
	"github.com/zulandar/atelier/internal/provider"
	"gorm.io/gorm"
)

// Service runs the artifact workflow: it validates types against the
// dependency graph, assembles context, drives the provider, and persists
// versions and conversation turns. The state machine itself stays
// side-effect-free; version cloning on reopen happens here.
type Service struct {
	db       *gorm.DB
	adapter  provider.Adapter
	variant  string
	model    string
	policies config.PolicyConfig
	logger   *slog.Logger
}

// ServiceOpts holds Service construction parameters.
type ServiceOpts struct {
	Adapter  provider.Adapter
	Variant  string
	Model    string
	Policies config.PolicyConfig
	Logger   *slog.Logger
}

// NewService creates a Service.
func NewService(gdb *gorm.DB, opts ServiceOpts) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:       gdb,
		adapter:  opts.Adapter,
		variant:  opts.Variant,
		model:    opts.Model,
		policies: opts.Policies,
		logger:   logger,
	}
}

// CreateOpts holds parameters for creating a new artifact.
type CreateOpts struct {
	ProjectID uint
	TypeName  string
	Name      string // defaults to the type name
	Message   string // optional user guidance for the first draft
	Model     string // overrides the configured model when set
	Requester string
}

// Create validates the artifact type and its dependency gate, generates a
// first draft through the provider, and persists the artifact in To Do with
// version 1 and the opening conversation turns.
func (s *Service) Create(ctx context.Context, opts CreateOpts) (*models.Artifact, error) {
	var project models.Project
	err := s.db.Preload("ProjectType").Where("id = ?", opts.ProjectID).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("artifact: project not found: %d", opts.ProjectID)
		}
		return nil, fmt.Errorf("artifact: get project %d: %w", opts.ProjectID, err)
	}

	atype, err := resolveType(s.db, project.ProjectTypeID, opts.TypeName)
	if err != nil {
		return nil, err
	}

	graph, err := depgraph.ForProjectType(s.db, project.ProjectTypeID)
	if err != nil {
		return nil, err
	}
	approved, err := depgraph.ApprovedTypes(s.db, project.ID)
	if err != nil {
		return nil, err
	}
	if !graph.IsStartable(atype.ID, approved) {
		missing := graph.MissingDependencies(atype.ID, approved)
		return nil, fmt.Errorf("%w: type %q is missing %v", ErrDependencyNotApproved, atype.Name, missing)
	}

	if opts.Name == "" {
		opts.Name = atype.Name
	}

	todoID, err := db.StateID(s.db, lifecycle.Initial())
	if err != nil {
		return nil, err
	}
	artifact := models.Artifact{
		ProjectID: project.ID,
		TypeID:    atype.ID,
		Name:      opts.Name,
		StateID:   todoID,
		CreatedBy: opts.Requester,
	}
	if err := s.db.Create(&artifact).Error; err != nil {
		return nil, fmt.Errorf("artifact: create: %w", err)
	}

	reply, err := s.generate(ctx, &artifact, false, opts.Message, opts.Model, nil, nil)
	if err != nil {
		// Context assembly needs the row, so it exists before generation;
		// roll it back rather than leave a versionless artifact behind.
		if derr := s.db.Delete(&models.Artifact{}, artifact.ID).Error; derr != nil {
			s.logger.Warn("failed to remove artifact after generation error", "artifact", artifact.ID, "error", derr)
		}
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := addVersion(tx, &artifact, reply.Content, opts.Requester); err != nil {
			return err
		}
		if opts.Message != "" {
			if err := appendMessage(tx, artifact.ID, models.RoleUser, opts.Message); err != nil {
				return err
			}
		}
		return appendMessage(tx, artifact.ID, models.RoleAssistant, reply.Commentary)
	})
	if err != nil {
		return nil, err
	}
	return &artifact, nil
}

// UpdateOpts holds parameters for a manual edit.
type UpdateOpts struct {
	Name       string
	Content    string
	HasName    bool
	HasContent bool
	Requester  string
}

// Update applies a manual (non-AI) edit. A change to content always creates
// a new version; a call that changes nothing fails with ErrNoChanges so
// callers get deterministic save semantics.
func (s *Service) Update(artifactID uint, opts UpdateOpts) (*models.Artifact, error) {
	a, err := Get(s.db, artifactID)
	if err != nil {
		return nil, err
	}

	current, err := CurrentContent(s.db, a)
	if err != nil {
		return nil, err
	}

	nameChanged := opts.HasName && opts.Name != a.Name
	contentChanged := opts.HasContent && opts.Content != current
	if !nameChanged && !contentChanged {
		return nil, ErrNoChanges
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if nameChanged {
			if err := tx.Model(&models.Artifact{}).
				Where("id = ?", a.ID).
				Update("name", opts.Name).Error; err != nil {
				return fmt.Errorf("artifact: rename %d: %w", a.ID, err)
			}
			a.Name = opts.Name
		}
		if contentChanged {
			if _, err := addVersion(tx, a, opts.Content, opts.Requester); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Interact runs one AI revision turn: it assembles the update context with
// the prior conversation, invokes the provider, creates a new version when
// content came back, and records both turns in the history.
func (s *Service) Interact(ctx context.Context, artifactID uint, userMessage, model, requester string) (*provider.Reply, error) {
	return s.interact(ctx, artifactID, userMessage, model, requester, nil)
}

// StreamInteract behaves like Interact but forwards text fragments to
// onChunk as they arrive from the provider.
func (s *Service) StreamInteract(ctx context.Context, artifactID uint, userMessage, model, requester string, onChunk func(string)) (*provider.Reply, error) {
	return s.interact(ctx, artifactID, userMessage, model, requester, onChunk)
}

func (s *Service) interact(ctx context.Context, artifactID uint, userMessage, model, requester string, onChunk func(string)) (*provider.Reply, error) {
	a, err := Get(s.db, artifactID)
	if err != nil {
		return nil, err
	}

	history, err := History(s.db, a.ID)
	if err != nil {
		return nil, err
	}

	reply, err := s.generate(ctx, a, true, userMessage, model, history, onChunk)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := appendMessage(tx, a.ID, models.RoleUser, userMessage); err != nil {
			return err
		}
		if reply.Content != "" {
			if _, err := addVersion(tx, a, reply.Content, requester); err != nil {
				return err
			}
		}
		return appendMessage(tx, a.ID, models.RoleAssistant, reply.Commentary)
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// Transition moves an artifact to the target state. Entering In Progress is
// gated on the dependency graph; reopening from Approved clones the current
// version's content into a new version so the approved snapshot survives
// untouched, and optionally resets the conversation per policy.
func (s *Service) Transition(artifactID, targetStateID uint, requester string) (*models.Artifact, error) {
	a, err := Get(s.db, artifactID)
	if err != nil {
		return nil, err
	}

	var target models.ArtifactState
	if err := s.db.Where("id = ?", targetStateID).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("artifact: state not found: %d", targetStateID)
		}
		return nil, fmt.Errorf("artifact: get state %d: %w", targetStateID, err)
	}

	if _, err := lifecycle.Apply(a.State.Name, target.Name); err != nil {
		return nil, err
	}

	if target.Name == lifecycle.StateInProgress {
		graph, err := depgraph.ForProjectType(s.db, a.Project.ProjectTypeID)
		if err != nil {
			return nil, err
		}
		approved, err := depgraph.ApprovedTypes(s.db, a.ProjectID)
		if err != nil {
			return nil, err
		}
		if !graph.IsStartable(a.TypeID, approved) {
			missing := graph.MissingDependencies(a.TypeID, approved)
			return nil, fmt.Errorf("%w: type %q is missing %v", ErrDependencyNotApproved, a.Type.Name, missing)
		}
	}

	reopening := a.State.Name == lifecycle.StateApproved && target.Name == lifecycle.StateInProgress

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if reopening {
			content, err := CurrentContent(tx, a)
			if err != nil {
				return err
			}
			if _, err := addVersion(tx, a, content, requester); err != nil {
				return err
			}
			if s.policies.ResetHistoryOnReopen {
				if err := tx.Where("artifact_id = ?", a.ID).
					Delete(&models.ChatMessage{}).Error; err != nil {
					return fmt.Errorf("artifact: reset history of %d: %w", a.ID, err)
				}
			}
		}
		if err := tx.Model(&models.Artifact{}).
			Where("id = ?", a.ID).
			Update("state_id", target.ID).Error; err != nil {
			return fmt.Errorf("artifact: transition %d: %w", a.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.StateID = target.ID
	a.State = &target
	return a, nil
}

// generate assembles context, renders the prompt, drives the provider, and
// logs both directions of the exchange.
func (s *Service) generate(ctx context.Context, a *models.Artifact, isUpdate bool, userMessage, model string, history []models.ChatMessage, onChunk func(string)) (*provider.Reply, error) {
	bundle, err := assemble.Assemble(s.db, a.ID, isUpdate, userMessage,
		assemble.Opts{InjectAllRepeatable: s.policies.InjectAllRepeatable})
	if err != nil {
		return nil, err
	}

	rendered, err := prompt.Render(bundle)
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = s.model
	}
	req := provider.Request{
		Prompt:   rendered,
		History:  toProviderHistory(history, userMessage),
		IsUpdate: isUpdate,
		Model:    model,
	}

	s.logInteraction(a.ID, "out", model, rendered)

	start := time.Now()
	var reply *provider.Reply
	if onChunk != nil {
		reply, err = s.adapter.GenerateStreaming(ctx, req, onChunk)
	} else {
		reply, err = s.adapter.Generate(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	latency := int(time.Since(start).Milliseconds())
	s.logReply(a.ID, model, reply, latency)
	return reply, nil
}

// toProviderHistory converts stored turns plus the pending user message
// into the provider's message format.
func toProviderHistory(history []models.ChatMessage, userMessage string) []provider.Message {
	out := make([]provider.Message, 0, len(history)+1)
	for _, m := range history {
		out = append(out, provider.Message{Role: m.Role, Content: m.Content})
	}
	if userMessage != "" {
		out = append(out, provider.Message{Role: models.RoleUser, Content: userMessage})
	}
	return out
}

func (s *Service) logInteraction(artifactID uint, direction, model, content string) {
	log := models.InteractionLog{
		ArtifactID: artifactID,
		Direction:  direction,
		Variant:    s.variant,
		Model:      model,
		Content:    content,
	}
	if err := s.db.Create(&log).Error; err != nil {
		s.logger.Warn("failed to record interaction log", "artifact", artifactID, "error", err)
	}
}

func (s *Service) logReply(artifactID uint, model string, reply *provider.Reply, latencyMs int) {
	log := models.InteractionLog{
		ArtifactID: artifactID,
		Direction:  "in",
		Variant:    s.variant,
		Model:      model,
		Content:    reply.Content + "\n\n" + reply.Commentary,
		LatencyMs:  latencyMs,
	}
	if err := s.db.Create(&log).Error; err != nil {
		s.logger.Warn("failed to record interaction log", "artifact", artifactID, "error", err)
	}
}

// resolveType finds the artifact type by name and verifies it belongs to
// the project's lifecycle.
func resolveType(gdb *gorm.DB, projectTypeID uint, name string) (*models.ArtifactType, error) {
	var count int64
	if err := gdb.Model(&models.ArtifactType{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("artifact: look up type %q: %w", name, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArtifactType, name)
	}

	var atype models.ArtifactType
	err := gdb.
		Joins("JOIN lifecycle_phases p ON p.id = artifact_types.phase_id").
		Where("artifact_types.name = ? AND p.project_type_id = ?", name, projectTypeID).
		First(&atype).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidArtifactType, name)
		}
		return nil, fmt.Errorf("artifact: resolve type %q: %w", name, err)
	}
	return &atype, nil
}

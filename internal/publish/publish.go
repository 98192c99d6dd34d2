// Package publish syncs approved artifact content to a GitHub repository,
// docs-as-code style. Each approved artifact lands under the configured
// directory as one file per artifact, named by its type slug.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/google/go-github/v68/github"
	"github.com/zulandar/atelier/internal/artifact"
	"github.com/zulandar/atelier/internal/config"
	"github.com/zulandar/atelier/internal/lifecycle"
	"github.com/zulandar/atelier/internal/models"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// contentsClient abstracts the GitHub contents API, enabling test mocks.
type contentsClient interface {
	GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error)
	CreateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error)
	UpdateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error)
}

// Publisher writes approved artifacts into a GitHub repository.
type Publisher struct {
	client contentsClient
	owner  string
	repo   string
	branch string
	dir    string
	logger *slog.Logger
}

// Opts holds Publisher construction parameters.
type Opts struct {
	Config config.PublishConfig
	Token  string
	Logger *slog.Logger
	// For testing: inject a mock client instead of the real GitHub API.
	Client contentsClient
}

// New creates a Publisher authenticated with the given token.
func New(ctx context.Context, opts Opts) (*Publisher, error) {
	if opts.Config.Owner == "" || opts.Config.Repo == "" {
		return nil, fmt.Errorf("publish: owner and repo are required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Publisher{
		owner:  opts.Config.Owner,
		repo:   opts.Config.Repo,
		branch: opts.Config.Branch,
		dir:    opts.Config.Dir,
		logger: logger,
	}

	if opts.Client != nil {
		p.client = opts.Client
		return p, nil
	}

	if opts.Token == "" {
		return nil, fmt.Errorf("publish: token is required")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
	p.client = github.NewClient(oauth2.NewClient(ctx, ts)).Repositories
	return p, nil
}

// Result summarizes one sync run.
type Result struct {
	Created int
	Updated int
	Skipped int
}

// SyncProject pushes every approved artifact of a project. Files whose
// remote content already matches are skipped.
func (p *Publisher) SyncProject(ctx context.Context, db *gorm.DB, projectID uint) (*Result, error) {
	var project models.Project
	if err := db.Where("id = ?", projectID).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("publish: project not found: %d", projectID)
		}
		return nil, fmt.Errorf("publish: get project %d: %w", projectID, err)
	}

	approved, err := artifact.List(db, artifact.ListFilters{
		ProjectID: projectID,
		State:     lifecycle.StateApproved,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for i := range approved {
		a := &approved[i]
		content, err := artifact.CurrentContent(db, a)
		if err != nil {
			return nil, err
		}

		filePath := FilePath(p.dir, project.Name, a.Type.Slug, a.ID, a.Type.Syntax)
		action, err := p.pushFile(ctx, filePath, a.Name, content)
		if err != nil {
			return nil, err
		}
		switch action {
		case "created":
			result.Created++
		case "updated":
			result.Updated++
		default:
			result.Skipped++
		}
	}
	return result, nil
}

// pushFile creates or updates one file and reports which happened.
func (p *Publisher) pushFile(ctx context.Context, filePath, artifactName, content string) (string, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(CommitMessage(artifactName)),
		Content: []byte(content),
	}
	if p.branch != "" {
		opts.Branch = github.Ptr(p.branch)
	}

	existing, _, resp, err := p.client.GetContents(ctx, p.owner, p.repo, filePath,
		&github.RepositoryContentGetOptions{Ref: p.branch})
	switch {
	case err == nil && existing != nil:
		remote, derr := existing.GetContent()
		if derr == nil && remote == content {
			return "skipped", nil
		}
		opts.SHA = existing.SHA
		if _, _, err := p.client.UpdateFile(ctx, p.owner, p.repo, filePath, opts); err != nil {
			return "", fmt.Errorf("publish: update %s: %w", filePath, err)
		}
		p.logger.Info("updated artifact file", "path", filePath)
		return "updated", nil

	case resp != nil && resp.StatusCode == http.StatusNotFound:
		if _, _, err := p.client.CreateFile(ctx, p.owner, p.repo, filePath, opts); err != nil {
			return "", fmt.Errorf("publish: create %s: %w", filePath, err)
		}
		p.logger.Info("created artifact file", "path", filePath)
		return "created", nil

	default:
		return "", fmt.Errorf("publish: check %s: %w", filePath, err)
	}
}

// FilePath builds the repo path for one artifact. Repeatable types can have
// several instances per project, so the artifact ID disambiguates.
func FilePath(dir, projectName, slug string, artifactID uint, syntax string) string {
	name := fmt.Sprintf("%s-%d%s", slug, artifactID, Extension(syntax))
	return path.Join(dir, slugify(projectName), name)
}

// Extension maps an artifact syntax to a file extension.
func Extension(syntax string) string {
	switch syntax {
	case "mermaid":
		return ".mmd"
	case "plantuml":
		return ".puml"
	default:
		return ".md"
	}
}

// CommitMessage builds the commit message for one artifact push.
func CommitMessage(artifactName string) string {
	return fmt.Sprintf("docs: publish %s", artifactName)
}

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	var b strings.Builder
	for _, r := range s {
		if r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

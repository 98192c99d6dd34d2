package publish

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-github/v68/github"
	"github.com/zulandar/atelier/internal/config"
	"github.com/zulandar/atelier/internal/lifecycle"
	"github.com/zulandar/atelier/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// mockContents simulates a remote tree with in-memory files.
type mockContents struct {
	files   map[string]string // path -> content
	created []string
	updated []string
}

func newMockContents() *mockContents {
	return &mockContents{files: make(map[string]string)}
}

func (m *mockContents) GetContents(_ context.Context, _, _, path string, _ *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error) {
	content, ok := m.files[path]
	if !ok {
		resp := &github.Response{Response: &http.Response{StatusCode: http.StatusNotFound}}
		return nil, nil, resp, &github.ErrorResponse{Response: resp.Response}
	}
	return &github.RepositoryContent{
		Content: github.Ptr(content),
		SHA:     github.Ptr("sha-" + path),
	}, nil, &github.Response{Response: &http.Response{StatusCode: http.StatusOK}}, nil
}

func (m *mockContents) CreateFile(_ context.Context, _, _, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error) {
	m.files[path] = string(opts.Content)
	m.created = append(m.created, path)
	return nil, nil, nil
}

func (m *mockContents) UpdateFile(_ context.Context, _, _, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error) {
	m.files[path] = string(opts.Content)
	m.updated = append(m.updated, path)
	return nil, nil, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = db.AutoMigrate(
		&models.ProjectType{}, &models.LifecyclePhase{}, &models.ArtifactType{},
		&models.Project{}, &models.Artifact{}, &models.ArtifactVersion{},
		&models.ArtifactState{},
	)
	if err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func seedApprovedArtifact(t *testing.T, db *gorm.DB, content string) uint {
	t.Helper()

	states := make(map[string]uint)
	for _, name := range lifecycle.States() {
		s := models.ArtifactState{Name: name}
		if err := db.Create(&s).Error; err != nil {
			t.Fatal(err)
		}
		states[name] = s.ID
	}

	pt := models.ProjectType{Name: "Software Engineering"}
	if err := db.Create(&pt).Error; err != nil {
		t.Fatal(err)
	}
	phase := models.LifecyclePhase{ProjectTypeID: pt.ID, Name: "Inception", Sequence: 1}
	if err := db.Create(&phase).Error; err != nil {
		t.Fatal(err)
	}
	at := models.ArtifactType{PhaseID: phase.ID, Name: "Vision", Slug: "vision", Syntax: "markdown"}
	if err := db.Create(&at).Error; err != nil {
		t.Fatal(err)
	}
	project := models.Project{Name: "My App", ProjectTypeID: pt.ID}
	if err := db.Create(&project).Error; err != nil {
		t.Fatal(err)
	}

	a := models.Artifact{ProjectID: project.ID, TypeID: at.ID, Name: "Vision", StateID: states[lifecycle.StateApproved]}
	if err := db.Create(&a).Error; err != nil {
		t.Fatal(err)
	}
	v := models.ArtifactVersion{ArtifactID: a.ID, Number: 1, Content: content}
	if err := db.Create(&v).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Model(&a).Update("current_version_id", v.ID).Error; err != nil {
		t.Fatal(err)
	}

	// A To Do artifact that must never be published.
	todo := models.Artifact{ProjectID: project.ID, TypeID: at.ID, Name: "Draft", StateID: states[lifecycle.StateToDo]}
	if err := db.Create(&todo).Error; err != nil {
		t.Fatal(err)
	}

	return project.ID
}

func newTestPublisher(t *testing.T, mc *mockContents) *Publisher {
	t.Helper()
	p, err := New(context.Background(), Opts{
		Config: config.PublishConfig{Owner: "zulandar", Repo: "docs", Branch: "main", Dir: "artifacts"},
		Client: mc,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestSyncProject_CreatesNewFiles(t *testing.T) {
	db := openTestDB(t)
	projectID := seedApprovedArtifact(t, db, "# Vision\nShip it.")
	mc := newMockContents()
	p := newTestPublisher(t, mc)

	result, err := p.SyncProject(context.Background(), db, projectID)
	if err != nil {
		t.Fatalf("SyncProject: %v", err)
	}
	if result.Created != 1 || result.Updated != 0 || result.Skipped != 0 {
		t.Errorf("result = %+v", result)
	}
	if len(mc.created) != 1 {
		t.Fatalf("created = %v", mc.created)
	}
	path := mc.created[0]
	if mc.files[path] != "# Vision\nShip it." {
		t.Errorf("pushed content = %q", mc.files[path])
	}
}

func TestSyncProject_UpdatesChangedFiles(t *testing.T) {
	db := openTestDB(t)
	projectID := seedApprovedArtifact(t, db, "new content")
	mc := newMockContents()
	p := newTestPublisher(t, mc)

	// Seed the remote with stale content at the path the sync will use.
	if _, err := p.SyncProject(context.Background(), db, projectID); err != nil {
		t.Fatal(err)
	}
	path := mc.created[0]
	mc.files[path] = "stale content"

	result, err := p.SyncProject(context.Background(), db, projectID)
	if err != nil {
		t.Fatalf("SyncProject: %v", err)
	}
	if result.Updated != 1 {
		t.Errorf("result = %+v", result)
	}
	if mc.files[path] != "new content" {
		t.Errorf("remote content = %q", mc.files[path])
	}
}

func TestSyncProject_SkipsUnchangedFiles(t *testing.T) {
	db := openTestDB(t)
	projectID := seedApprovedArtifact(t, db, "same")
	mc := newMockContents()
	p := newTestPublisher(t, mc)

	if _, err := p.SyncProject(context.Background(), db, projectID); err != nil {
		t.Fatal(err)
	}

	result, err := p.SyncProject(context.Background(), db, projectID)
	if err != nil {
		t.Fatalf("SyncProject: %v", err)
	}
	if result.Skipped != 1 || result.Updated != 0 {
		t.Errorf("result = %+v", result)
	}
	if len(mc.updated) != 0 {
		t.Errorf("updated = %v, want no write for unchanged content", mc.updated)
	}
}

func TestSyncProject_UnknownProject(t *testing.T) {
	db := openTestDB(t)
	p := newTestPublisher(t, newMockContents())
	if _, err := p.SyncProject(context.Background(), db, 999); err == nil {
		t.Fatal("SyncProject on missing project should fail")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(context.Background(), Opts{Config: config.PublishConfig{Repo: "docs"}}); err == nil {
		t.Error("New without owner should fail")
	}
	if _, err := New(context.Background(), Opts{
		Config: config.PublishConfig{Owner: "zulandar", Repo: "docs"},
	}); err == nil {
		t.Error("New without token or client should fail")
	}
}

func TestFilePath(t *testing.T) {
	got := FilePath("artifacts", "My App", "c4_context", 7, "mermaid")
	want := "artifacts/my-app/c4_context-7.mmd"
	if got != want {
		t.Errorf("FilePath = %q, want %q", got, want)
	}
}

func TestExtension(t *testing.T) {
	cases := map[string]string{
		"markdown": ".md",
		"mermaid":  ".mmd",
		"plantuml": ".puml",
		"":         ".md",
	}
	for in, want := range cases {
		if got := Extension(in); got != want {
			t.Errorf("Extension(%q) = %q, want %q", in, got, want)
		}
	}
}

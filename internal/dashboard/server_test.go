package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/atelier/internal/artifact"
	"github.com/zulandar/atelier/internal/config"
	"github.com/zulandar/atelier/internal/lifecycle"
	"github.com/zulandar/atelier/internal/models"
	"github.com/zulandar/atelier/internal/provider"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestStart_NilDB(t *testing.T) {
	err := Start(context.Background(), StartOpts{DB: nil})
	if err == nil {
		t.Fatal("expected error for nil db")
	}
	if !strings.Contains(err.Error(), "db is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db is required")
	}
}

func TestStart_NilService(t *testing.T) {
	gdb := openTestDB(t)
	err := Start(context.Background(), StartOpts{DB: gdb})
	if err == nil {
		t.Fatal("expected error for nil service")
	}
	if !strings.Contains(err.Error(), "artifact service is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "artifact service is required")
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = gdb.AutoMigrate(
		&models.ProjectType{}, &models.LifecyclePhase{}, &models.ArtifactType{},
		&models.TypeDependency{}, &models.Project{}, &models.Artifact{},
		&models.ArtifactVersion{}, &models.ArtifactState{}, &models.ChatMessage{},
		&models.InteractionLog{},
	)
	if err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return gdb
}

// fakeAdapter returns a canned reply for every request.
type fakeAdapter struct {
	reply  provider.Reply
	chunks []string
}

func (f *fakeAdapter) Generate(_ context.Context, _ provider.Request) (*provider.Reply, error) {
	r := f.reply
	return &r, nil
}

func (f *fakeAdapter) GenerateStreaming(_ context.Context, _ provider.Request, onChunk func(string)) (*provider.Reply, error) {
	for _, c := range f.chunks {
		if onChunk != nil {
			onChunk(c)
		}
	}
	r := f.reply
	return &r, nil
}

func (f *fakeAdapter) Parse(raw string, _ bool) (*provider.Reply, error) {
	return &provider.Reply{Commentary: raw}, nil
}

type apiFixture struct {
	db       *gorm.DB
	router   http.Handler
	adapter  *fakeAdapter
	project  models.Project
	stateIDs map[string]uint
}

// newAPIFixture seeds a project type with Vision and C4 Context (C4 Context
// depends on Vision), one project, and a router backed by a fake adapter.
func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gdb := openTestDB(t)
	f := &apiFixture{db: gdb, adapter: &fakeAdapter{}, stateIDs: make(map[string]uint)}

	for _, name := range lifecycle.States() {
		s := models.ArtifactState{Name: name}
		if err := gdb.Create(&s).Error; err != nil {
			t.Fatalf("create state %s: %v", name, err)
		}
		f.stateIDs[name] = s.ID
	}

	pt := models.ProjectType{Name: "Software Engineering"}
	if err := gdb.Create(&pt).Error; err != nil {
		t.Fatalf("create project type: %v", err)
	}
	phase := models.LifecyclePhase{ProjectTypeID: pt.ID, Name: "Inception", Sequence: 1}
	if err := gdb.Create(&phase).Error; err != nil {
		t.Fatalf("create phase: %v", err)
	}
	vision := models.ArtifactType{PhaseID: phase.ID, Name: "Vision", Slug: "vision", Syntax: "markdown"}
	c4 := models.ArtifactType{PhaseID: phase.ID, Name: "C4 Context", Slug: "c4_context", Syntax: "mermaid"}
	for _, at := range []*models.ArtifactType{&vision, &c4} {
		if err := gdb.Create(at).Error; err != nil {
			t.Fatalf("create artifact type: %v", err)
		}
	}
	edge := models.TypeDependency{DependentID: c4.ID, DependencyID: vision.ID}
	if err := gdb.Create(&edge).Error; err != nil {
		t.Fatalf("create edge: %v", err)
	}

	f.project = models.Project{Name: "myapp", ProjectTypeID: pt.ID}
	if err := gdb.Create(&f.project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}

	svc := artifact.NewService(gdb, artifact.ServiceOpts{
		Adapter:  f.adapter,
		Variant:  "toolcall",
		Model:    "test-model",
		Policies: config.PolicyConfig{},
	})
	f.router = NewRouter(gdb, svc)
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestProjectCreateAndList(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/projects", map[string]string{
		"name":         "webshop",
		"project_type": "Software Engineering",
		"owner":        "alice",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodGet, "/api/projects", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var summaries []ProjectSummary
	decodeJSON(t, w, &summaries)
	if len(summaries) != 2 {
		t.Fatalf("got %d projects, want 2", len(summaries))
	}
}

func TestProjectCreate_UnknownType(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/projects", map[string]string{
		"name":         "webshop",
		"project_type": "Basket Weaving",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestProjectCreate_MissingName(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/projects", map[string]string{
		"project_type": "Software Engineering",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestArtifactCreate(t *testing.T) {
	f := newAPIFixture(t)
	f.adapter.reply = provider.Reply{Content: "# Vision\n\nBuild it.", Commentary: "Here is a draft."}

	path := fmt.Sprintf("/api/projects/%d/artifacts", f.project.ID)
	w := f.do(t, http.MethodPost, path, map[string]string{"type": "Vision"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var a models.Artifact
	decodeJSON(t, w, &a)
	if a.ID == 0 {
		t.Error("artifact ID not set")
	}

	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/artifacts/%d", a.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("detail status = %d", w.Code)
	}
	var detail struct {
		Content  string                   `json:"content"`
		Versions []models.ArtifactVersion `json:"versions"`
		History  []models.ChatMessage     `json:"history"`
	}
	decodeJSON(t, w, &detail)
	if detail.Content != "# Vision\n\nBuild it." {
		t.Errorf("content = %q", detail.Content)
	}
	if len(detail.Versions) != 1 {
		t.Errorf("got %d versions, want 1", len(detail.Versions))
	}
}

func TestArtifactCreate_UnknownType(t *testing.T) {
	f := newAPIFixture(t)

	path := fmt.Sprintf("/api/projects/%d/artifacts", f.project.ID)
	w := f.do(t, http.MethodPost, path, map[string]string{"type": "Haiku"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestArtifactCreate_DependencyConflict(t *testing.T) {
	f := newAPIFixture(t)

	// C4 Context depends on Vision, which has no approved instance yet.
	path := fmt.Sprintf("/api/projects/%d/artifacts", f.project.ID)
	w := f.do(t, http.MethodPost, path, map[string]string{"type": "C4 Context"})
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409, body = %s", w.Code, w.Body.String())
	}
}

func TestArtifactUpdate_NoChanges(t *testing.T) {
	f := newAPIFixture(t)
	f.adapter.reply = provider.Reply{Content: "original", Commentary: "ok"}

	path := fmt.Sprintf("/api/projects/%d/artifacts", f.project.ID)
	w := f.do(t, http.MethodPost, path, map[string]string{"type": "Vision"})
	var a models.Artifact
	decodeJSON(t, w, &a)

	w = f.do(t, http.MethodPatch, fmt.Sprintf("/api/artifacts/%d", a.ID), map[string]string{
		"content": "original",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422, body = %s", w.Code, w.Body.String())
	}
}

func TestInteract(t *testing.T) {
	f := newAPIFixture(t)
	f.adapter.reply = provider.Reply{Content: "v1", Commentary: "draft"}

	path := fmt.Sprintf("/api/projects/%d/artifacts", f.project.ID)
	w := f.do(t, http.MethodPost, path, map[string]string{"type": "Vision"})
	var a models.Artifact
	decodeJSON(t, w, &a)

	f.adapter.reply = provider.Reply{Content: "v2", Commentary: "revised"}
	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/artifacts/%d/interact", a.ID), map[string]string{
		"message": "tighten the scope",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var reply struct {
		Content    string `json:"content"`
		Commentary string `json:"commentary"`
	}
	decodeJSON(t, w, &reply)
	if reply.Content != "v2" || reply.Commentary != "revised" {
		t.Errorf("reply = %+v", reply)
	}
}

func TestTransition(t *testing.T) {
	f := newAPIFixture(t)
	f.adapter.reply = provider.Reply{Content: "v1"}

	path := fmt.Sprintf("/api/projects/%d/artifacts", f.project.ID)
	w := f.do(t, http.MethodPost, path, map[string]string{"type": "Vision"})
	var a models.Artifact
	decodeJSON(t, w, &a)

	tr := fmt.Sprintf("/api/artifacts/%d/transition", a.ID)

	// To Do -> Approved is not a legal transition.
	w = f.do(t, http.MethodPost, tr, map[string]any{"state_id": f.stateIDs[lifecycle.StateApproved]})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("illegal transition status = %d, want 422", w.Code)
	}

	w = f.do(t, http.MethodPost, tr, map[string]any{"state_id": f.stateIDs[lifecycle.StateInProgress]})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	w = f.do(t, http.MethodPost, tr, map[string]any{"state_id": f.stateIDs[lifecycle.StateApproved]})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestProjectDetailRoute(t *testing.T) {
	f := newAPIFixture(t)
	f.adapter.reply = provider.Reply{Content: "v1"}

	path := fmt.Sprintf("/api/projects/%d/artifacts", f.project.ID)
	f.do(t, http.MethodPost, path, map[string]string{"type": "Vision"})

	w := f.do(t, http.MethodGet, fmt.Sprintf("/api/projects/%d", f.project.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var detail Detail
	decodeJSON(t, w, &detail)
	if len(detail.Phases) != 1 {
		t.Fatalf("got %d phases, want 1", len(detail.Phases))
	}
	if len(detail.Phases[0].Artifacts) != 1 {
		t.Errorf("got %d artifacts in phase, want 1", len(detail.Phases[0].Artifacts))
	}
	if detail.Phases[0].Artifacts[0].State != lifecycle.StateToDo {
		t.Errorf("state = %q, want %q", detail.Phases[0].Artifacts[0].State, lifecycle.StateToDo)
	}
}

func TestInvalidID(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/artifacts/banana", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestInteractStream(t *testing.T) {
	f := newAPIFixture(t)
	f.adapter.reply = provider.Reply{Content: "v1"}

	path := fmt.Sprintf("/api/projects/%d/artifacts", f.project.ID)
	w := f.do(t, http.MethodPost, path, map[string]string{"type": "Vision"})
	var a models.Artifact
	decodeJSON(t, w, &a)

	f.adapter.reply = provider.Reply{Content: "v2", Commentary: "done"}
	f.adapter.chunks = []string{"[CONTENT]", "v2", "[/CONTENT]"}

	stream := fmt.Sprintf("/api/artifacts/%d/interact/stream?message=revise", a.ID)
	w = f.do(t, http.MethodGet, stream, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, "event: connected") {
		t.Error("missing connected event")
	}
	if !strings.Contains(body, "event: chunk") {
		t.Error("missing chunk events")
	}
	if !strings.Contains(body, "event: done") {
		t.Error("missing done event")
	}
	if !strings.Contains(body, `"content":"v2"`) {
		t.Errorf("done event missing content, body = %s", body)
	}
}

func TestEventsStream_Connects(t *testing.T) {
	f := newAPIFixture(t)

	// The handler polls until the request context ends; give it a short one.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event: connected") {
		t.Errorf("missing connected event, body = %q", body)
	}
	if strings.Contains(body, "event: error") {
		t.Errorf("unexpected error event, body = %q", body)
	}
}

func TestInteractStream_MissingMessage(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/artifacts/1/interact/stream", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

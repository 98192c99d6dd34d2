package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newToolCall(t *testing.T, baseURL string) *ToolCall {
	t.Helper()
	return NewToolCall(NewClient(baseURL, "test-key"), "test-model", nil)
}

func TestToolCallParse_MultiToolCalls(t *testing.T) {
	tc := newToolCall(t, "http://unused")
	raw := `{
		"tool_calls": [
			{"id":"c1","type":"function","function":{"name":"generate_artifact_content","arguments":"{\"content\":\"# Doc\"}"}},
			{"id":"c2","type":"function","function":{"name":"provide_commentary","arguments":"{\"commentary\":\"first draft\"}"}}
		]
	}`
	reply, err := tc.Parse(raw, true)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if reply.Content != "# Doc" {
		t.Errorf("Content = %q, want %q", reply.Content, "# Doc")
	}
	if reply.Commentary != "first draft" {
		t.Errorf("Commentary = %q, want %q", reply.Commentary, "first draft")
	}
}

func TestToolCallParse_LegacyFunctionCall(t *testing.T) {
	tc := newToolCall(t, "http://unused")
	raw := `{"function_call":{"name":"generate_artifact_content","arguments":"{\"content\":\"legacy body\"}"}}`
	reply, err := tc.Parse(raw, true)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if reply.Content != "legacy body" {
		t.Errorf("Content = %q", reply.Content)
	}
}

func TestToolCallParse_MalformedArgumentsDegrade(t *testing.T) {
	tc := newToolCall(t, "http://unused")
	raw := `{
		"tool_calls": [
			{"id":"c1","type":"function","function":{"name":"generate_artifact_content","arguments":"{\"content\": truncated"}},
			{"id":"c2","type":"function","function":{"name":"provide_commentary","arguments":"{\"commentary\":\"still here\"}"}}
		]
	}`
	reply, err := tc.Parse(raw, true)
	if err != nil {
		t.Fatalf("Parse must not fail on one bad call: %v", err)
	}
	if reply.Content != "" {
		t.Errorf("Content = %q, want degraded empty", reply.Content)
	}
	if reply.Commentary != "still here" {
		t.Errorf("Commentary = %q, want intact sibling", reply.Commentary)
	}
}

func TestToolCallParse_AllMalformedOnUpdate(t *testing.T) {
	tc := newToolCall(t, "http://unused")
	raw := `{
		"tool_calls": [
			{"id":"c1","type":"function","function":{"name":"generate_artifact_content","arguments":"nope"}},
			{"id":"c2","type":"function","function":{"name":"provide_commentary","arguments":"also nope"}}
		]
	}`
	_, err := tc.Parse(raw, true)
	if !errors.Is(err, ErrEmptyUpdateResponse) {
		t.Fatalf("Parse = %v, want ErrEmptyUpdateResponse", err)
	}

	// Same degradation on a first-generation turn is tolerated.
	reply, err := tc.Parse(raw, false)
	if err != nil {
		t.Fatalf("Parse(first): %v", err)
	}
	if reply.Content != "" || reply.Commentary != "" {
		t.Errorf("reply = %+v, want both empty", reply)
	}
}

func TestToolCallParse_PlainContentIsCommentary(t *testing.T) {
	tc := newToolCall(t, "http://unused")
	reply, err := tc.Parse(`{"content":"What scope do you want?"}`, false)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if reply.Commentary != "What scope do you want?" || reply.Content != "" {
		t.Errorf("reply = %+v", reply)
	}
}

func TestToolCallParse_NonJSONIsCommentary(t *testing.T) {
	tc := newToolCall(t, "http://unused")
	reply, err := tc.Parse("just text, not a message object", false)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if reply.Commentary != "just text, not a message object" {
		t.Errorf("Commentary = %q", reply.Commentary)
	}
}

func TestToolCallParse_UnknownToolIgnored(t *testing.T) {
	tc := newToolCall(t, "http://unused")
	raw := `{"tool_calls":[{"id":"c1","type":"function","function":{"name":"delete_everything","arguments":"{}"}}]}`
	reply, err := tc.Parse(raw, false)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if reply.Content != "" || reply.Commentary != "" {
		t.Errorf("reply = %+v, want both empty", reply)
	}
}

func TestToolCallParse_EmptyUpdateFails(t *testing.T) {
	tc := newToolCall(t, "http://unused")
	_, err := tc.Parse(`{"content":""}`, true)
	if !errors.Is(err, ErrEmptyUpdateResponse) {
		t.Fatalf("Parse = %v, want ErrEmptyUpdateResponse", err)
	}
}

func TestToolChoice(t *testing.T) {
	if got := toolChoice(false); got != "auto" {
		t.Errorf("toolChoice(false) = %v, want auto", got)
	}

	data, err := json.Marshal(toolChoice(true))
	if err != nil {
		t.Fatalf("marshal forced choice: %v", err)
	}
	want := `{"type":"function","function":{"name":"generate_artifact_content"}}`
	if string(data) != want {
		t.Errorf("forced choice = %s, want %s", data, want)
	}
}

func TestToolSchemas(t *testing.T) {
	schemas := toolSchemas()
	if len(schemas) != 2 {
		t.Fatalf("schemas = %d, want 2", len(schemas))
	}
	names := map[string]bool{}
	for _, s := range schemas {
		if s.Type != "function" {
			t.Errorf("schema type = %q, want function", s.Type)
		}
		names[s.Function.Name] = true
	}
	if !names[toolGenerateContent] || !names[toolProvideCommentary] {
		t.Errorf("schema names = %v", names)
	}
}

func TestToolCallGenerate(t *testing.T) {
	var gotBody chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"tool_calls":[
			{"id":"c1","type":"function","function":{"name":"generate_artifact_content","arguments":"{\"content\":\"# Result\"}"}}
		]}}]}`))
	}))
	defer srv.Close()

	tc := newToolCall(t, srv.URL)
	reply, err := tc.Generate(context.Background(), Request{Prompt: "p", IsUpdate: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply.Content != "# Result" {
		t.Errorf("Content = %q", reply.Content)
	}
	if len(gotBody.Tools) != 2 {
		t.Errorf("request tools = %d, want 2", len(gotBody.Tools))
	}
	// Update turns force the content tool. The decoded tool_choice is a
	// map, so round-trip it into the wire struct before comparing.
	choice, err := json.Marshal(gotBody.ToolChoice)
	if err != nil {
		t.Fatalf("marshal tool_choice: %v", err)
	}
	var forced forcedToolChoice
	if err := json.Unmarshal(choice, &forced); err != nil {
		t.Fatalf("unmarshal tool_choice %s: %v", choice, err)
	}
	if forced.Type != "function" {
		t.Errorf("tool_choice type = %q, want function", forced.Type)
	}
	if forced.Function.Name != toolGenerateContent {
		t.Errorf("tool_choice function = %q, want %q", forced.Function.Name, toolGenerateContent)
	}
}

func TestToolCallGenerate_AutoChoiceOnFirstTurn(t *testing.T) {
	var gotBody chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"choices":[{"message":{"content":"what should it cover?"}}]}`))
	}))
	defer srv.Close()

	tc := newToolCall(t, srv.URL)
	reply, err := tc.Generate(context.Background(), Request{Prompt: "p", IsUpdate: false})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply.Commentary != "what should it cover?" {
		t.Errorf("Commentary = %q", reply.Commentary)
	}
	choice, _ := json.Marshal(gotBody.ToolChoice)
	if string(choice) != `"auto"` {
		t.Errorf("tool_choice = %s, want \"auto\"", choice)
	}
}

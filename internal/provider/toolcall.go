package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Tool names declared to the backend.
const (
	toolGenerateContent   = "generate_artifact_content"
	toolProvideCommentary = "provide_commentary"
)

// ToolCall is the structured tool/function-call adapter variant.
type ToolCall struct {
	client *Client
	model  string
	logger *slog.Logger
}

// NewToolCall creates the tool-call adapter.
func NewToolCall(client *Client, model string, logger *slog.Logger) *ToolCall {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToolCall{client: client, model: model, logger: logger}
}

// Generate executes a blocking request and parses the tool calls of the
// reply message.
func (t *ToolCall) Generate(ctx context.Context, req Request) (*Reply, error) {
	raw, err := t.client.Post(ctx, "/chat/completions", t.request(req, false))
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("provider: decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("provider: response has no choices")
	}
	return t.parseMessage(resp.Choices[0].Message, req.IsUpdate)
}

// GenerateStreaming executes a streaming request. Text deltas are forwarded
// to onChunk as they arrive; tool-call argument fragments are accumulated
// per index and decoded only once the stream completes.
func (t *ToolCall) GenerateStreaming(ctx context.Context, req Request, onChunk func(string)) (*Reply, error) {
	body, err := t.client.PostStream(ctx, "/chat/completions", t.request(req, true))
	if err != nil {
		return nil, err
	}
	asm, err := consumeStream(ctx, body, onChunk, t.logger)
	if err != nil {
		return nil, err
	}

	msg := responseMessage{
		Content:   asm.text.String(),
		ToolCalls: make([]toolCallEntry, 0, len(asm.order)),
	}
	for _, fc := range asm.toolCalls() {
		msg.ToolCalls = append(msg.ToolCalls, toolCallEntry{Type: "function", Function: fc})
	}
	return t.parseMessage(msg, req.IsUpdate)
}

// Parse accepts the serialized-JSON form of a response message. Input that
// is not a JSON message degrades to plain commentary, mirroring the
// tagged-text fallback.
func (t *ToolCall) Parse(raw string, isUpdate bool) (*Reply, error) {
	var msg responseMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		msg = responseMessage{Content: raw}
	}
	return t.parseMessage(msg, isUpdate)
}

// parseMessage locates whichever tool calls are present (the multi
// tool_calls shape or the legacy singular function_call) and decodes each
// call's arguments independently. A decode failure on one call never aborts
// the others: the failing field degrades to empty and is logged. With no
// tool call at all, plain message content is treated as commentary.
func (t *ToolCall) parseMessage(msg responseMessage, isUpdate bool) (*Reply, error) {
	reply := &Reply{}
	found := false

	for _, tc := range msg.ToolCalls {
		t.decodeCall(tc.Function, reply)
		found = true
	}
	if msg.FunctionCall != nil {
		t.decodeCall(*msg.FunctionCall, reply)
		found = true
	}
	if !found {
		reply.Commentary = strings.TrimSpace(msg.Content)
	}

	if isUpdate && reply.Content == "" && reply.Commentary == "" {
		return nil, ErrEmptyUpdateResponse
	}
	return reply, nil
}

// decodeCall decodes one call's JSON arguments into the reply.
func (t *ToolCall) decodeCall(fc functionCallBody, reply *Reply) {
	switch fc.Name {
	case toolGenerateContent:
		var args struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
			t.logger.Warn("bad tool call arguments", "tool", fc.Name, "error", err)
			return
		}
		reply.Content = args.Content
	case toolProvideCommentary:
		var args struct {
			Commentary string `json:"commentary"`
		}
		if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
			t.logger.Warn("bad tool call arguments", "tool", fc.Name, "error", err)
			return
		}
		reply.Commentary = args.Commentary
	default:
		t.logger.Warn("unknown tool call", "tool", fc.Name)
	}
}

func (t *ToolCall) request(req Request, stream bool) chatRequest {
	model := req.Model
	if model == "" {
		model = t.model
	}

	messages := []wireMessage{{Role: "system", Content: req.Prompt}}
	for _, m := range req.History {
		messages = append(messages, wireMessage{Role: m.Role, Content: m.Content})
	}

	return chatRequest{
		Model:      model,
		Messages:   messages,
		Stream:     stream,
		Tools:      toolSchemas(),
		ToolChoice: toolChoice(req.IsUpdate),
	}
}

// toolSchemas declares the two callable tools.
func toolSchemas() []toolSpec {
	return []toolSpec{
		{
			Type: "function",
			Function: functionSpec{
				Name:        toolGenerateContent,
				Description: "Return the full artifact content.",
				Parameters:  json.RawMessage(`{"type":"object","properties":{"content":{"type":"string"}},"required":["content"]}`),
			},
		},
		{
			Type: "function",
			Function: functionSpec{
				Name:        toolProvideCommentary,
				Description: "Return conversational commentary about the artifact.",
				Parameters:  json.RawMessage(`{"type":"object","properties":{"commentary":{"type":"string"}},"required":["commentary"]}`),
			},
		},
	}
}

// toolChoice forces the content tool on update turns; first-generation
// turns leave the choice open so the model may answer with commentary only.
func toolChoice(isUpdate bool) interface{} {
	if !isUpdate {
		return "auto"
	}
	choice := forcedToolChoice{Type: "function"}
	choice.Function.Name = toolGenerateContent
	return choice
}

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Tags holds the delimiter pairs the model is instructed to wrap artifact
// content and commentary in.
type Tags struct {
	Start           string
	End             string
	CommentaryStart string
	CommentaryEnd   string
}

// Tagged is the delimiter-tagged free-text adapter variant.
type Tagged struct {
	client *Client
	tags   Tags
	model  string
	logger *slog.Logger
}

// NewTagged creates the tagged-text adapter.
func NewTagged(client *Client, tags Tags, model string, logger *slog.Logger) *Tagged {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tagged{client: client, tags: tags, model: model, logger: logger}
}

// Generate executes a blocking request and parses the tagged reply.
func (t *Tagged) Generate(ctx context.Context, req Request) (*Reply, error) {
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
	return t.Parse(resp.Choices[0].Message.Content, req.IsUpdate)
}

// GenerateStreaming executes a streaming request, forwarding text fragments
// to onChunk, and parses the accumulated text once the stream completes.
func (t *Tagged) GenerateStreaming(ctx context.Context, req Request, onChunk func(string)) (*Reply, error) {
	body, err := t.client.PostStream(ctx, "/chat/completions", t.request(req, true))
	if err != nil {
		return nil, err
	}
	asm, err := consumeStream(ctx, body, onChunk, t.logger)
	if err != nil {
		return nil, err
	}
	return t.Parse(asm.text.String(), req.IsUpdate)
}

// Parse extracts the delimited artifact content and commentary. When neither
// delimiter pair is present the whole text is treated as commentary: an
// untagged reply is a conversational answer, not artifact content. An update
// turn yielding neither field is a hard failure.
func (t *Tagged) Parse(raw string, isUpdate bool) (*Reply, error) {
	content, contentFound := extractBetween(raw, t.tags.Start, t.tags.End)
	commentary, commentaryFound := extractBetween(raw, t.tags.CommentaryStart, t.tags.CommentaryEnd)

	if !contentFound && !commentaryFound {
		commentary = strings.TrimSpace(raw)
	}
	if isUpdate && content == "" && commentary == "" {
		return nil, ErrEmptyUpdateResponse
	}
	return &Reply{Content: content, Commentary: commentary}, nil
}

// Format wraps content and commentary in the configured delimiters; the
// inverse of Parse for any strings not containing the delimiters themselves.
func (t *Tagged) Format(content, commentary string) string {
	var b strings.Builder
	if commentary != "" {
		b.WriteString(t.tags.CommentaryStart)
		b.WriteString(commentary)
		b.WriteString(t.tags.CommentaryEnd)
		b.WriteString("\n")
	}
	if content != "" {
		b.WriteString(t.tags.Start)
		b.WriteString(content)
		b.WriteString(t.tags.End)
	}
	return b.String()
}

func (t *Tagged) request(req Request, stream bool) chatRequest {
	model := req.Model
	if model == "" {
		model = t.model
	}

	messages := []wireMessage{{Role: "system", Content: req.Prompt + "\n\n" + t.instructions()}}
	for _, m := range req.History {
		messages = append(messages, wireMessage{Role: m.Role, Content: m.Content})
	}

	return chatRequest{Model: model, Messages: messages, Stream: stream}
}

// instructions tells the model how to delimit its two output fields.
func (t *Tagged) instructions() string {
	return fmt.Sprintf(
		"Wrap the artifact content between %s and %s. Wrap any conversational commentary between %s and %s.",
		t.tags.Start, t.tags.End, t.tags.CommentaryStart, t.tags.CommentaryEnd)
}

// extractBetween returns the substring between the first occurrence of
// start and the following end, and whether the pair was found.
func extractBetween(s, start, end string) (string, bool) {
	i := strings.Index(s, start)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

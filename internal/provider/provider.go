// Package provider implements the AI model backend protocol layer: request
// formatting, response parsing for the two supported wire conventions
// (delimiter-tagged free text and structured tool calls), and incremental
// reconstruction of streamed responses.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zulandar/atelier/internal/config"
)

// Message is one turn of conversation history.
type Message struct {
	Role    string
	Content string
}

// Request is one model invocation.
type Request struct {
	Prompt   string    // rendered prompt for this turn
	History  []Message // prior conversation, oldest first
	IsUpdate bool      // update turn vs first generation
	Model    string    // model selector; empty uses the configured default
}

// Reply is the parsed result of a model response: the artifact content and
// the conversational commentary, either of which may be empty.
type Reply struct {
	Content    string
	Commentary string
}

// Adapter is the capability set a model backend variant must provide.
type Adapter interface {
	// Generate executes a blocking request and parses the reply.
	Generate(ctx context.Context, req Request) (*Reply, error)

	// GenerateStreaming executes a streaming request, invoking onChunk with
	// each text fragment as it arrives, and returns the same final reply a
	// blocking call would. onChunk runs on the read loop and must not block.
	GenerateStreaming(ctx context.Context, req Request, onChunk func(string)) (*Reply, error)

	// Parse interprets a raw response body outside of a request cycle.
	Parse(raw string, isUpdate bool) (*Reply, error)
}

// ErrEmptyUpdateResponse is returned when an update turn yields neither
// artifact content nor commentary; a model must say something on an update.
var ErrEmptyUpdateResponse = errors.New("provider: empty update response")

// UpstreamError reports a non-success status from the model backend.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provider: upstream status %d: %s", e.Status, e.Message)
}

// New selects the adapter variant from configuration.
func New(cfg config.ProviderConfig, apiKey string, logger *slog.Logger) (Adapter, error) {
	client := NewClient(cfg.BaseURL, apiKey)
	switch cfg.Variant {
	case "tagged":
		tags := Tags{
			Start:           cfg.Tags.Start,
			End:             cfg.Tags.End,
			CommentaryStart: cfg.Tags.CommentaryStart,
			CommentaryEnd:   cfg.Tags.CommentaryEnd,
		}
		return NewTagged(client, tags, cfg.Model, logger), nil
	case "toolcall":
		return NewToolCall(client, cfg.Model, logger), nil
	default:
		return nil, fmt.Errorf("provider: unknown variant %q", cfg.Variant)
	}
}

package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// streamAssembler reconstructs a response delivered as partial chunks. Text
// deltas accumulate into one buffer; tool-call argument fragments accumulate
// per stream index and are only JSON-decoded once the stream completes,
// since a partial fragment is never a decodable value.
type streamAssembler struct {
	text  strings.Builder
	calls map[int]*callBuffer
	order []int
}

// callBuffer accumulates one tool call's name and argument fragments.
type callBuffer struct {
	name string
	args strings.Builder
}

func newStreamAssembler() *streamAssembler {
	return &streamAssembler{calls: make(map[int]*callBuffer)}
}

// addToolDelta appends one tool-call delta. The name arrives once, on the
// first chunk for the index; argument fragments are append-only per index.
func (a *streamAssembler) addToolDelta(index int, name, args string) {
	buf, ok := a.calls[index]
	if !ok {
		buf = &callBuffer{}
		a.calls[index] = buf
		a.order = append(a.order, index)
	}
	if name != "" {
		buf.name = name
	}
	buf.args.WriteString(args)
}

// toolCalls returns the completed tool calls in stream-index order.
func (a *streamAssembler) toolCalls() []functionCallBody {
	out := make([]functionCallBody, 0, len(a.order))
	for _, idx := range a.order {
		buf := a.calls[idx]
		out = append(out, functionCallBody{Name: buf.name, Arguments: buf.args.String()})
	}
	return out
}

// consumeStream reads `data: <json>` events from body until a literal
// `data: [DONE]`, stream close, or cancellation, forwarding each text delta
// to onChunk and accumulating tool-call fragments. The body is closed on
// every exit path, including mid-stream errors and cancellation.
func consumeStream(ctx context.Context, body io.ReadCloser, onChunk func(string), logger *slog.Logger) (asm *streamAssembler, err error) {
	defer body.Close()

	asm = newStreamAssembler()
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return asm, fmt.Errorf("provider: stream cancelled: %w", ctx.Err())
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return asm, nil
		}

		var evt chunkEvent
		if uerr := json.Unmarshal([]byte(payload), &evt); uerr != nil {
			logger.Warn("skipping malformed stream event", "error", uerr)
			continue
		}
		if len(evt.Choices) == 0 {
			continue
		}

		delta := evt.Choices[0].Delta
		if delta.Content != "" {
			asm.text.WriteString(delta.Content)
			if onChunk != nil {
				onChunk(delta.Content)
			}
		}
		for _, tc := range delta.ToolCalls {
			asm.addToolDelta(tc.Index, tc.Function.Name, tc.Function.Arguments)
		}
	}

	if serr := scanner.Err(); serr != nil {
		return asm, fmt.Errorf("provider: read stream: %w", serr)
	}
	return asm, nil
}

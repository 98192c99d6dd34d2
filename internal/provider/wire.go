package provider

import "encoding/json"

// chatRequest is the JSON body of a chat completion request.
type chatRequest struct {
	Model      string        `json:"model"`
	Messages   []wireMessage `json:"messages"`
	Stream     bool          `json:"stream,omitempty"`
	Tools      []toolSpec    `json:"tools,omitempty"`
	ToolChoice interface{}   `json:"tool_choice,omitempty"`
}

// wireMessage is one message of a chat completion request.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// toolSpec declares one callable tool.
type toolSpec struct {
	Type     string       `json:"type"`
	Function functionSpec `json:"function"`
}

// functionSpec is the schema of one callable function.
type functionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// forcedToolChoice pins tool_choice to a single function.
type forcedToolChoice struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

// chatResponse is the JSON body of a blocking chat completion response.
type chatResponse struct {
	Choices []struct {
		Message responseMessage `json:"message"`
	} `json:"choices"`
}

// responseMessage is the assistant message of a response: plain content,
// the multi-tool-call shape, or the legacy singular function_call.
type responseMessage struct {
	Content      string            `json:"content"`
	ToolCalls    []toolCallEntry   `json:"tool_calls"`
	FunctionCall *functionCallBody `json:"function_call"`
}

// toolCallEntry is one entry of a tool_calls array.
type toolCallEntry struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function functionCallBody `json:"function"`
}

// functionCallBody carries a function name and its JSON-encoded arguments.
type functionCallBody struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// chunkEvent is one `data:` event of the streaming transport.
type chunkEvent struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int `json:"index"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// upstreamErrorBody is the error envelope some backends return on non-2xx.
type upstreamErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

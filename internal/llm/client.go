package llm

import "context"

type Message struct {
	Role       string
	Content    string
	ToolCallID string     // set on tool result messages
	ToolCalls  []ToolCall // set on assistant messages that requested tools
}

type Tool struct {
	Type     string
	Function Function
}

type Function struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

type ToolCall struct {
	ID       string
	Type     string
	Function FunctionCall
}

type FunctionCall struct {
	Name         string
	Arguments    map[string]interface{}
	RawArguments string
}

type Response struct {
	Content          string
	Model            string
	ToolCalls        []ToolCall
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
	GenerateWithTools(ctx context.Context, messages []Message, tools []Tool) (Response, error)
	// StreamWithTools streams the assistant's content fragments through
	// onDelta as they arrive and returns the complete response. The fragment
	// sequence is finite and not restartable.
	StreamWithTools(ctx context.Context, messages []Message, tools []Tool, onDelta func(string)) (Response, error)
}

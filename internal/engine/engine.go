// Package engine drives one conversation turn: it routes the thread's
// messages through the model, invokes tools when the model asks for them,
// and appends the final assistant turn to the durable log.
package engine

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"threadchat/internal/llm"
	"threadchat/internal/store"
	"threadchat/internal/tools"
)

// DefaultSystemPrompt steers the model to answer directly and reach for
// tools only when the question actually needs live data or arithmetic.
const DefaultSystemPrompt = `You are a helpful AI assistant with access to tools.

IMPORTANT RULES:
- Answer general knowledge questions, roadmaps, explanations, advice, and conversational questions DIRECTLY from your own knowledge. Do NOT use tools for these.
- Only use tools when the user explicitly needs:
  - Real-time stock prices -> use the stock tool
  - Live web search for current news/events -> use the search tool
  - Math calculations -> use the calculator tool
- For questions like "give me a roadmap", "explain X", "what is Y", "how does Z work" -> answer DIRECTLY without tools.
- Never ask the user "would you like me to search for that?" for questions you can answer yourself.`

const defaultMaxToolRounds = 8

// Error reports a failed or timed-out model invocation. The thread's durable
// log is left exactly as it was before the failure: the user's turn, once
// accepted, is never lost.
type Error struct {
	Err error
}

func (e *Error) Error() string { return "engine: " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// The engine is a two-state machine per invocation: it awaits the model's
// response, and while the response requests tool calls it invokes them and
// goes around again. Terminal state is a response with no pending tool call.
type state int

const (
	awaitingResponse state = iota
	invokingTool
)

type Engine struct {
	model         llm.Client
	tools         *tools.Registry
	store         store.Storer
	log           *logrus.Entry
	systemPrompt  string
	maxToolRounds int
}

func New(model llm.Client, reg *tools.Registry, st store.Storer, log *logrus.Entry, systemPrompt string) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Engine{
		model:         model,
		tools:         reg,
		store:         st,
		log:           log,
		systemPrompt:  systemPrompt,
		maxToolRounds: defaultMaxToolRounds,
	}
}

// Run submits one user message on a thread and returns the appended
// assistant turn. The user's turn is appended up front; the assistant turn is
// appended only once it is fully formed, so a cancelled or failed model call
// never leaves a partial turn in the log.
func (e *Engine) Run(ctx context.Context, threadID, text string) (store.Turn, error) {
	return e.run(ctx, threadID, text, nil)
}

// Stream behaves like Run but delivers the assistant's content fragments
// through onDelta as they arrive. The fragment sequence is finite and ends
// with the complete assistant turn being appended.
func (e *Engine) Stream(ctx context.Context, threadID, text string, onDelta func(string)) (store.Turn, error) {
	return e.run(ctx, threadID, text, onDelta)
}

func (e *Engine) run(ctx context.Context, threadID, text string, onDelta func(string)) (store.Turn, error) {
	if _, err := e.store.AppendTurn(threadID, store.RoleUser, text); err != nil {
		return store.Turn{}, err
	}

	turns, err := e.store.ReadThread(threadID)
	if err != nil {
		return store.Turn{}, err
	}
	msgs := e.buildMessages(turns)
	defs := e.tools.Definitions()

	st := awaitingResponse
	var resp llm.Response
	var pending []llm.ToolCall
	for rounds := 0; ; {
		switch st {
		case awaitingResponse:
			if rounds > e.maxToolRounds {
				return store.Turn{}, &Error{Err: errors.Errorf("tool invocation limit (%d) exceeded", e.maxToolRounds)}
			}
			rounds++
			if onDelta != nil {
				resp, err = e.model.StreamWithTools(ctx, msgs, defs, onDelta)
			} else {
				resp, err = e.model.GenerateWithTools(ctx, msgs, defs)
			}
			if err != nil {
				return store.Turn{}, &Error{Err: err}
			}
			if len(resp.ToolCalls) == 0 {
				// terminal: no pending tool call
				assistant, err := e.store.AppendTurn(threadID, store.RoleAssistant, resp.Content)
				if err != nil {
					return store.Turn{}, err
				}
				e.log.WithFields(logrus.Fields{
					"thread_id": threadID,
					"rounds":    rounds,
					"tokens":    resp.TotalTokens,
				}).Debug("turn complete")
				return assistant, nil
			}
			pending = resp.ToolCalls
			st = invokingTool

		case invokingTool:
			msgs = append(msgs, llm.Message{
				Role:      "assistant",
				Content:   resp.Content,
				ToolCalls: pending,
			})
			for _, tc := range pending {
				e.log.WithFields(logrus.Fields{
					"thread_id": threadID,
					"tool":      tc.Function.Name,
				}).Debug("invoking tool")
				result := e.tools.Execute(ctx, tc.Function.Name, tc.Function.Arguments)
				msgs = append(msgs, llm.Message{
					Role:       "tool",
					ToolCallID: tc.ID,
					Content:    result,
				})
			}
			pending = nil
			st = awaitingResponse
		}
	}
}

// buildMessages reconstructs the model context from the durable log. Only
// user and assistant turns carry across invocations; tool traffic lives
// within a single invocation.
func (e *Engine) buildMessages(turns []store.Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns)+1)
	msgs = append(msgs, llm.Message{Role: "system", Content: e.systemPrompt})
	for _, t := range turns {
		switch t.Role {
		case store.RoleUser:
			msgs = append(msgs, llm.Message{Role: "user", Content: t.Content})
		case store.RoleAssistant:
			msgs = append(msgs, llm.Message{Role: "assistant", Content: t.Content})
		}
	}
	return msgs
}

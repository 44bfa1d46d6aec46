package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"threadchat/internal/llm"
)

// Registry exposes tool definitions to the model and dispatches calls.
// Every call yields a JSON payload; failures become {"error": ...} payloads
// so the model can report them and the conversation continues.
type Registry struct {
	stock  *StockClient
	search *SearchClient
	log    *logrus.Entry
}

func NewRegistry(stock *StockClient, search *SearchClient, log *logrus.Entry) *Registry {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Registry{stock: stock, search: search, log: log}
}

// Definitions returns the tool list passed to the model.
func (r *Registry) Definitions() []llm.Tool {
	return []llm.Tool{
		{
			Type: "function",
			Function: llm.Function{
				Name:        "calculator",
				Description: "Perform a basic arithmetic operation on two numbers. Supported operations: add, sub, mul, div.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"first_num": map[string]interface{}{
							"type":        "number",
							"description": "The first operand",
						},
						"second_num": map[string]interface{}{
							"type":        "number",
							"description": "The second operand",
						},
						"operator": map[string]interface{}{
							"type": "string",
							"enum": []string{"add", "sub", "mul", "div"},
						},
					},
					"required": []string{"first_num", "second_num", "operator"},
				},
			},
		},
		{
			Type: "function",
			Function: llm.Function{
				Name:        "stock",
				Description: "Fetch the latest stock price for a given symbol (e.g. AAPL, TSLA).",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"symbol": map[string]interface{}{
							"type":        "string",
							"description": "Stock ticker symbol, at most 10 alphanumeric characters",
						},
					},
					"required": []string{"symbol"},
				},
			},
		},
		{
			Type: "function",
			Function: llm.Function{
				Name:        "search",
				Description: "Search the web for current news and events.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"query": map[string]interface{}{
							"type":        "string",
							"description": "Free-text search query",
						},
					},
					"required": []string{"query"},
				},
			},
		},
	}
}

// Execute runs the named tool and returns its JSON payload. Unknown tools,
// validation failures and transport failures all come back as {"error": ...}
// payloads rather than Go errors - the conversation must continue.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) string {
	payload, err := r.execute(ctx, name, args)
	if err != nil {
		r.log.WithFields(logrus.Fields{"tool": name, "error": err}).Warn("tool call failed")
		return errPayload(err)
	}
	return payload
}

func (r *Registry) execute(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	switch name {
	case "calculator":
		res, err := Calculate(argFloat(args, "first_num"), argFloat(args, "second_num"), argString(args, "operator"))
		if err != nil {
			return "", err
		}
		return marshal(res)
	case "stock":
		if r.stock == nil {
			return "", fmt.Errorf("stock tool is not configured")
		}
		q, err := r.stock.Quote(ctx, argString(args, "symbol"))
		if err != nil {
			return "", err
		}
		return marshal(q)
	case "search":
		if r.search == nil {
			return "", fmt.Errorf("search tool is not configured")
		}
		results, err := r.search.Search(ctx, argString(args, "query"))
		if err != nil {
			return "", err
		}
		return marshal(map[string]interface{}{"results": results})
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

func marshal(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(b), nil
}

func errPayload(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(b)
}

func argFloat(args map[string]interface{}, key string) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return 0
}

func argString(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

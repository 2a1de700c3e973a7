package adapter

import "context"

// Request carries one model call: a system prompt, the user message, the
// calling agent's name (for diagnostics), the sampling temperature, and the
// response token cap.
type Request struct {
	System      string
	User        string
	Agent       string
	Temperature float64
	MaxTokens   int
}

// defaultMaxTokens caps responses when the caller sets no limit.
const defaultMaxTokens = 4096

// maxTokens returns the effective response cap for the call.
func (r Request) maxTokens() int64 {
	if r.MaxTokens > 0 {
		return int64(r.MaxTokens)
	}
	return defaultMaxTokens
}

// Adapter defines the interface for LLM provider adapters.
type Adapter interface {
	// Complete sends a request to the model and returns the response text.
	Complete(ctx context.Context, model string, req Request) (string, error)

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}

// AdapterInfo holds metadata about an adapter.
type AdapterInfo struct {
	Name   string
	Models []ModelInfo
}

// ModelInfo holds metadata about a model.
type ModelInfo struct {
	ID          string
	Description string
}

// Package completion abstracts the text-completion backend behind a small
// Provider interface so the conversation pipeline can be exercised with a
// stub in tests and swapped between model vendors without touching the
// orchestration code.
package completion

import "context"

// Message roles understood by Provider implementations.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the prompt transcript sent to the provider.
type Message struct {
	Role    string
	Content string
}

// Options tune a single completion call.
//
// Fields:
//   - Temperature: sampling temperature, derived from the chatbot tone.
//   - MaxTokens: hard cap on the generated reply length.
type Options struct {
	Temperature float64
	MaxTokens   int64
}

// Provider produces one assistant reply for a prompt transcript. It returns
// the reply text and the total token cost of the call (prompt + completion)
// as reported by the backend.
type Provider interface {
	Complete(ctx context.Context, msgs []Message, opts Options) (text string, tokens int, err error)
}

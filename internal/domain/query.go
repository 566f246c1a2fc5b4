package domain

import "strings"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior exchange in the conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Query is one submitted question. Immutable once built; it identifies
// a single orchestration run.
type Query struct {
	ID       string
	RawText  string
	History  []Turn
	SchemaID string
}

// NormalizedText returns the raw text with surrounding whitespace
// stripped and inner runs of whitespace folded, for cache keying.
func (q Query) NormalizedText() string {
	return strings.Join(strings.Fields(q.RawText), " ")
}

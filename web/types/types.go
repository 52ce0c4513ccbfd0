package types

// Message roles shared with the completions API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in the conversation, in the format
// expected by the chat-completions API. The inbound list is caller-supplied
// and passed through verbatim except for the prepended system message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the inbound body of both chat endpoints.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// LastUserContent returns the content of the most recent user message, or the
// empty string when the history has none.
func LastUserContent(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

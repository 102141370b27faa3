package adapters

// Message is one entry of a conversation history
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant", "tool"
	Content string `json:"content"`
}

// Conversation holds the per-call dialogue state handed to LLM adapters
type Conversation struct {
	SystemPrompt string
	Messages     []Message
}

// NewConversation creates a conversation seeded with a system prompt
func NewConversation(systemPrompt string) *Conversation {
	return &Conversation{
		SystemPrompt: systemPrompt,
		Messages:     make([]Message, 0),
	}
}

// AddUserMessage appends a caller utterance
func (c *Conversation) AddUserMessage(content string) {
	c.Messages = append(c.Messages, Message{Role: "user", Content: content})
}

// AddAssistantMessage appends a model reply
func (c *Conversation) AddAssistantMessage(content string) {
	c.Messages = append(c.Messages, Message{Role: "assistant", Content: content})
}

// Clear drops the history, keeping the system prompt
func (c *Conversation) Clear() {
	c.Messages = c.Messages[:0]
}

// Clone returns a copy safe to hand to a provider goroutine
func (c *Conversation) Clone() *Conversation {
	clone := &Conversation{
		SystemPrompt: c.SystemPrompt,
		Messages:     make([]Message, len(c.Messages)),
	}
	copy(clone.Messages, c.Messages)
	return clone
}

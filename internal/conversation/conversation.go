package conversation

// Conversation is the ordered message sequence of one orchestration run.
// It only ever grows: there is no way to edit or remove a message.
type Conversation struct {
	messages []Message
}

// New creates a conversation that starts with the system prompt followed by
// the caller's history. System messages inside history are dropped so a caller
// cannot replace the configured instructions.
func New(systemPrompt string, history []Message) *Conversation {
	msgs := make([]Message, 0, len(history)+1)
	if systemPrompt != "" {
		msgs = append(msgs, System(systemPrompt))
	}
	for _, m := range history {
		if m.Role == RoleSystem {
			continue
		}
		msgs = append(msgs, m)
	}
	return &Conversation{messages: msgs}
}

// Append adds a message at the end of the conversation.
func (c *Conversation) Append(m Message) {
	c.messages = append(c.messages, m)
}

// Messages returns a copy of the messages in order.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Last returns the most recent message and false when the conversation is empty.
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

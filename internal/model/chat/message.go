package chat

import (
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"
)

var (
	ErrMissingSystemPrompt = errors.New("transcript must start with a system message")
	ErrExtraSystemPrompt   = errors.New("system message after transcript start")
	ErrOrphanToolResult    = errors.New("tool result does not answer a pending tool call")
	ErrNilMessage          = errors.New("nil message")
)

// Transcript is the ordered message list of one question/answer exchange.
// Messages are only ever appended; the order is what the model sees.
type Transcript struct {
	messages []*schema.Message
}

// NewTranscript starts a transcript with the given system prompt.
func NewTranscript(system *schema.Message) (*Transcript, error) {
	if system == nil || system.Role != schema.System {
		return nil, ErrMissingSystemPrompt
	}

	t := &Transcript{messages: make([]*schema.Message, 0, 8)}
	t.messages = append(t.messages, system)
	return t, nil
}

// Append adds a message after checking tool-result linkage.
func (t *Transcript) Append(msg *schema.Message) error {
	if msg == nil {
		return ErrNilMessage
	}

	switch msg.Role {
	case schema.System:
		return fmt.Errorf("%w: position %d", ErrExtraSystemPrompt, len(t.messages))
	case schema.Tool:
		if !t.pendingCall(msg.ToolCallID) {
			return fmt.Errorf("%w: %q", ErrOrphanToolResult, msg.ToolCallID)
		}
	}

	t.messages = append(t.messages, msg)
	return nil
}

// pendingCall reports whether id belongs to the most recent assistant message
// and only tool results have been appended since.
func (t *Transcript) pendingCall(id string) bool {
	if id == "" {
		return false
	}

	for i := len(t.messages) - 1; i >= 0; i-- {
		msg := t.messages[i]
		switch msg.Role {
		case schema.Tool:
			if msg.ToolCallID == id {
				return false
			}
			continue
		case schema.Assistant:
			for _, call := range msg.ToolCalls {
				if call.ID == id {
					return true
				}
			}
			return false
		default:
			return false
		}
	}
	return false
}

// Messages returns the transcript in order. The slice is a copy; the messages are shared.
func (t *Transcript) Messages() []*schema.Message {
	out := make([]*schema.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Last returns the most recently appended message.
func (t *Transcript) Last() *schema.Message {
	return t.messages[len(t.messages)-1]
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Truncate drops everything after the first n messages. The system prompt is always kept.
func (t *Transcript) Truncate(n int) {
	if n < 1 {
		n = 1
	}
	if n >= len(t.messages) {
		return
	}
	clear(t.messages[n:])
	t.messages = t.messages[:n]
}

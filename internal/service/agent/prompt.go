package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/personal-finance-assistant/backend/internal/model/chat"
	"github.com/personal-finance-assistant/backend/internal/model/persona"
	"github.com/personal-finance-assistant/backend/internal/service/tools"
)

const systemTemplate = `You are {{.persona_name}}, a {{.persona_title}}. {{.persona_description}}
You have access to the following tools:
{{.tool_list}}

current datetime: {{.current_time}}`

// Prompt renders the fixed system prompt and the user's question into a fresh transcript.
type Prompt struct {
	persona  persona.Persona
	template prompt.ChatTemplate
	now      func() time.Time
}

// NewPrompt builds the prompt for a persona. now defaults to time.Now.
func NewPrompt(p persona.Persona, now func() time.Time) *Prompt {
	if now == nil {
		now = time.Now
	}

	return &Prompt{
		persona: p,
		template: prompt.FromMessages(
			schema.GoTemplate,
			schema.SystemMessage(systemTemplate),
			schema.UserMessage("{{.question}}"),
		),
		now: now,
	}
}

// Transcript returns [system, user] ready for the first completion.
func (p *Prompt) Transcript(ctx context.Context, question string) (*chat.Transcript, error) {
	messages, err := p.template.Format(ctx, map[string]any{
		"persona_name":        p.persona.Name,
		"persona_title":       p.persona.Title,
		"persona_description": p.persona.Description,
		"tool_list":           toolList(tools.Specs()),
		"current_time":        p.now().UTC().Format(time.RFC1123),
		"question":            question,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}
	if len(messages) != 2 {
		return nil, fmt.Errorf("failed to render prompt: expected 2 messages, got %d", len(messages))
	}

	transcript, err := chat.NewTranscript(messages[0])
	if err != nil {
		return nil, err
	}
	if err := transcript.Append(messages[1]); err != nil {
		return nil, err
	}
	return transcript, nil
}

func toolList(specs []tools.Spec) string {
	var builder strings.Builder
	for i, spec := range specs {
		if i > 0 {
			builder.WriteString("\n")
		}
		fmt.Fprintf(&builder, "%d. %s // %s", i+1, spec.Signature, spec.Summary)
	}
	return builder.String()
}

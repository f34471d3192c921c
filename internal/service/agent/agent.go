package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/personal-finance-assistant/backend/internal/model/chat"
	"github.com/personal-finance-assistant/backend/internal/model/persona"
	"github.com/personal-finance-assistant/backend/internal/service/tools"
)

// Apology is the only failure text a user ever sees.
const Apology = "Sorry, I encountered an error while processing your request."

var (
	ErrEmptyQuestion = errors.New("question is required")
	ErrCompletion    = errors.New("chat completion failed")
)

// ReplyMode decides what is returned once tool results are in the transcript.
type ReplyMode string

const (
	// ReplyLastMessage returns the content of the last transcript entry. After a
	// tool round that is the tool's own output, not a model-written answer.
	ReplyLastMessage ReplyMode = "last-message"
	// ReplySynthesize keeps asking the model until it answers without tool calls.
	ReplySynthesize ReplyMode = "synthesize"
)

// Invoker executes one model tool call.
type Invoker interface {
	Invoke(ctx context.Context, call schema.ToolCall) (string, error)
}

// Options tunes the conversation loop.
type Options struct {
	ReplyMode ReplyMode
	MaxRounds int
	Persona   *persona.Persona
	Now       func() time.Time
	Logger    *slog.Logger
}

// Result is the outcome of one question.
type Result struct {
	Reply      string
	Transcript *chat.Transcript
	Rounds     int
	ToolCalls  int
}

// Agent runs the question → completion → tool → answer loop.
type Agent struct {
	model    model.ToolCallingChatModel
	executor Invoker
	prompt   *Prompt
	mode     ReplyMode
	rounds   int
	logger   *slog.Logger
}

// New binds the static tool catalog to chatModel and returns a ready agent.
func New(chatModel model.ToolCallingChatModel, executor Invoker, opts Options) (*Agent, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if executor == nil {
		return nil, errors.New("tool executor is required")
	}

	bound, err := chatModel.WithTools(tools.Catalog())
	if err != nil {
		return nil, fmt.Errorf("failed to bind tools: %w", err)
	}

	mode := opts.ReplyMode
	switch mode {
	case "":
		mode = ReplyLastMessage
	case ReplyLastMessage, ReplySynthesize:
	default:
		return nil, fmt.Errorf("unknown reply mode %q", mode)
	}

	rounds := opts.MaxRounds
	if rounds < 1 {
		rounds = 4
	}

	p := persona.Josh()
	if opts.Persona != nil {
		p = *opts.Persona
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Agent{
		model:    bound,
		executor: executor,
		prompt:   NewPrompt(p, opts.Now),
		mode:     mode,
		rounds:   rounds,
		logger:   logger,
	}, nil
}

// Handle answers a question. Loop failures are logged and replaced by Apology;
// an error is returned only for an empty question or a finished request context.
func (a *Agent) Handle(ctx context.Context, question string) (string, error) {
	result, err := a.Run(ctx, question)
	return a.reply(ctx, result, err)
}

// Run executes the loop and returns the reply together with the full transcript.
func (a *Agent) Run(ctx context.Context, question string) (*Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	transcript, err := a.prompt.Transcript(ctx, question)
	if err != nil {
		return nil, err
	}
	return a.loop(ctx, transcript)
}

// loop sends the transcript until a reply is settled. transcript must end with
// the user's question.
func (a *Agent) loop(ctx context.Context, transcript *chat.Transcript) (*Result, error) {
	result := &Result{Transcript: transcript}
	for {
		result.Rounds++

		reply, err := a.model.Generate(ctx, transcript.Messages())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCompletion, err)
		}
		if reply == nil {
			return nil, fmt.Errorf("%w: empty response", ErrCompletion)
		}
		if reply.Role == "" {
			reply.Role = schema.Assistant
		}
		assignCallIDs(reply)

		if err := transcript.Append(reply); err != nil {
			return nil, err
		}
		if len(reply.ToolCalls) == 0 {
			break
		}

		for _, call := range reply.ToolCalls {
			output, err := a.executor.Invoke(ctx, call)
			if err != nil {
				return nil, fmt.Errorf("tool %s (%s): %w", call.Function.Name, call.ID, err)
			}
			result.ToolCalls++

			if err := transcript.Append(schema.ToolMessage(output, call.ID)); err != nil {
				return nil, err
			}
		}

		if a.mode != ReplySynthesize || result.Rounds >= a.rounds {
			break
		}
	}

	result.Reply = transcript.Last().Content
	a.logger.InfoContext(ctx, "answered question",
		"rounds", result.Rounds,
		"tool_calls", result.ToolCalls,
		"reply_length", len(result.Reply),
	)
	return result, nil
}

func (a *Agent) reply(ctx context.Context, result *Result, err error) (string, error) {
	if err == nil {
		return result.Reply, nil
	}

	if errors.Is(err, ErrEmptyQuestion) {
		return "", err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		a.logger.WarnContext(ctx, "request ended before the assistant answered", "error", err)
		return "", ctxErr
	}

	a.logger.ErrorContext(ctx, "conversation loop failed", "error", err)
	return Apology, nil
}

// Conversation keeps one in-memory transcript across questions, the way an
// interactive terminal session reads. It is not safe for concurrent use.
type Conversation struct {
	agent      *Agent
	transcript *chat.Transcript
}

// NewConversation starts an empty conversation; the system prompt is rendered
// with the first question.
func (a *Agent) NewConversation() *Conversation {
	return &Conversation{agent: a}
}

// Handle answers the next question with all earlier turns as context. A failed
// turn is dropped from the transcript so the next question starts clean.
func (c *Conversation) Handle(ctx context.Context, question string) (string, error) {
	result, err := c.Run(ctx, question)
	return c.agent.reply(ctx, result, err)
}

// Run is Handle without the apology fallback.
func (c *Conversation) Run(ctx context.Context, question string) (*Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	if c.transcript == nil {
		transcript, err := c.agent.prompt.Transcript(ctx, question)
		if err != nil {
			return nil, err
		}
		result, err := c.agent.loop(ctx, transcript)
		if err != nil {
			return nil, err
		}
		c.transcript = transcript
		return result, nil
	}

	mark := c.transcript.Len()
	if err := c.transcript.Append(schema.UserMessage(question)); err != nil {
		return nil, err
	}
	result, err := c.agent.loop(ctx, c.transcript)
	if err != nil {
		c.transcript.Truncate(mark)
		return nil, err
	}
	return result, nil
}

// assignCallIDs gives every tool call a unique id before anything runs. Some
// providers leave ids empty or repeat them; a tool result must link back to
// exactly one call.
func assignCallIDs(msg *schema.Message) {
	seen := make(map[string]struct{}, len(msg.ToolCalls))
	for i := range msg.ToolCalls {
		id := msg.ToolCalls[i].ID
		if _, dup := seen[id]; id == "" || dup {
			id = "call_" + uuid.NewString()
			msg.ToolCalls[i].ID = id
		}
		seen[id] = struct{}{}
	}
}

// Package arkmodel adapts Volcengine Ark chat models to eino's immutable
// tool-calling interface.
package arkmodel

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatModel wraps ark.ChatModel, which only supports in-place BindTools.
// WithTools builds a fresh client per tool set so a bound model is never mutated.
type ChatModel struct {
	cfg   ark.ChatModelConfig
	inner *ark.ChatModel
}

var _ model.ToolCallingChatModel = (*ChatModel)(nil)

// NewChatModel validates cfg and creates an Ark client without tools.
func NewChatModel(ctx context.Context, cfg *ark.ChatModelConfig) (*ChatModel, error) {
	if cfg == nil {
		return nil, errors.New("ark config is required")
	}

	inner, err := ark.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ark chat model: %w", err)
	}
	return &ChatModel{cfg: *cfg, inner: inner}, nil
}

// WithTools returns a new model with tools bound; the receiver is left unchanged.
func (m *ChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	cfg := m.cfg
	inner, err := ark.NewChatModel(context.Background(), &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ark chat model: %w", err)
	}
	if err := inner.BindTools(tools); err != nil {
		return nil, fmt.Errorf("failed to bind tools: %w", err)
	}
	return &ChatModel{cfg: cfg, inner: inner}, nil
}

func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return m.inner.Generate(ctx, input, opts...)
}

func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return m.inner.Stream(ctx, input, opts...)
}

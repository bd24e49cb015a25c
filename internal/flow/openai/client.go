// Package openai 把 flow 映射为 OpenAI 兼容的 chat completions 流式调用：
// Descriptor.System 作为 system 消息，Descriptor.Model 作为模型。
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flowchat/internal/flow"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

type Options struct {
	APIKey  string
	BaseURL string
	// Model 用于未声明 model 的 flow。
	Model string
}

type Client struct {
	api   *openai.Client
	model string
}

var _ flow.Invoker = (*Client)(nil)

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}
	cfg := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
	}
	if base := normalizeBaseURL(opts.BaseURL); base != "" {
		cfg = append(cfg, option.WithBaseURL(base))
	}
	client := openai.NewClient(cfg...)
	return &Client{api: &client, model: strings.TrimSpace(opts.Model)}, nil
}

func (c *Client) resolveModel(d flow.Descriptor) string {
	if m := strings.TrimSpace(d.Model); m != "" {
		return m
	}
	return c.model
}

// Invoke 流式调用 chat completions，逐个 delta 回传。
func (c *Client) Invoke(ctx context.Context, req flow.Request, onEvent func(flow.Event)) error {
	model := c.resolveModel(req.Flow)
	if model == "" {
		return fmt.Errorf("flow %s: no model configured", req.Flow.Identifier)
	}
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: toChatMessages(req),
	}
	stream := c.api.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				onEvent(flow.Event{Type: flow.EventText, Text: choice.Delta.Content})
			}
		}
	}
	if err := stream.Err(); err != nil {
		return wrapHTTPError(err)
	}
	onEvent(flow.Event{Type: flow.EventCompleted})
	return nil
}

func toChatMessages(req flow.Request) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if system := strings.TrimSpace(req.Flow.System); system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, turn := range req.History {
		switch turn.Role {
		case flow.RoleAssistant:
			out = append(out, openai.AssistantMessage(turn.Content))
		default:
			out = append(out, openai.UserMessage(turn.Content))
		}
	}
	return append(out, openai.UserMessage(req.Input))
}

func wrapHTTPError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		if raw := strings.TrimSpace(apiErr.RawJSON()); raw != "" {
			return fmt.Errorf("http_%d: %s", apiErr.StatusCode, raw)
		}
		return fmt.Errorf("http_%d: %v", apiErr.StatusCode, err)
	}
	return err
}

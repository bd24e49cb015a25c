package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flowchat/internal/flow"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 2048

type Options struct {
	Token   string
	BaseURL string
	Model   string
}

type Client struct {
	api   *anthropic.Client
	model string
}

var _ flow.Invoker = (*Client)(nil)

func New(opts Options) (*Client, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, errors.New("missing token")
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(token),
	}
	if base := normalizeBaseURL(opts.BaseURL); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	client := anthropic.NewClient(reqOpts...)
	return &Client{api: &client, model: strings.TrimSpace(opts.Model)}, nil
}

// normalizeBaseURL 去掉结尾的 /v1，SDK 会自行拼接。
func normalizeBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if strings.HasSuffix(base, "/v1") {
		base = strings.TrimRight(strings.TrimSuffix(base, "/v1"), "/")
	}
	return base
}

func (c *Client) resolveModel(d flow.Descriptor) anthropic.Model {
	if m := strings.TrimSpace(d.Model); m != "" {
		return anthropic.Model(m)
	}
	return anthropic.Model(c.model)
}

func (c *Client) Invoke(ctx context.Context, req flow.Request, onEvent func(flow.Event)) error {
	model := c.resolveModel(req.Flow)
	if model == "" {
		return fmt.Errorf("flow %s: no model configured", req.Flow.Identifier)
	}
	stream := c.api.Messages.NewStreaming(ctx, buildMessageParams(req, model))
	defer stream.Close()

	for stream.Next() {
		event := stream.Current()
		switch v := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if d, ok := v.Delta.AsAny().(anthropic.TextDelta); ok && d.Text != "" {
				onEvent(flow.Event{Type: flow.EventText, Text: d.Text})
			}
		case anthropic.MessageStopEvent:
			onEvent(flow.Event{Type: flow.EventCompleted})
			return nil
		}
	}
	if err := stream.Err(); err != nil {
		return err
	}
	onEvent(flow.Event{Type: flow.EventCompleted})
	return nil
}

func buildMessageParams(req flow.Request, model anthropic.Model) anthropic.MessageNewParams {
	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, turn := range req.History {
		text := strings.TrimSpace(turn.Content)
		if text == "" {
			continue
		}
		if turn.Role == flow.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Input)))

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: defaultMaxTokens,
		Messages:  messages,
	}
	if system := strings.TrimSpace(req.Flow.System); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return params
}

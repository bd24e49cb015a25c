// Package bedrock 通过 Amazon Bedrock InvokeFlow 调用 prompt flow。
// 用户输入作为 FlowInputNode 节点的 document 输出发送，flow 输出事件逐个回传。
package bedrock

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"flowchat/internal/flow"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
)

const (
	InputNodeName       = "FlowInputNode"
	InputNodeOutputName = "document"
	// DraftAlias 是 Bedrock 为每个 flow 提供的工作草稿别名。
	DraftAlias = "TSTALIASID"
)

// flowAPI 是 Client 需要的最小 Bedrock Agent Runtime 接口，*bedrockagentruntime.Client 满足它。
type flowAPI interface {
	InvokeFlow(ctx context.Context, in *bedrockagentruntime.InvokeFlowInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.InvokeFlowOutput, error)
}

type Client struct {
	api flowAPI
}

var _ flow.Invoker = (*Client)(nil)

func New(api flowAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("bedrock: api must not be nil")
	}
	return &Client{api: api}, nil
}

func (c *Client) Invoke(ctx context.Context, req flow.Request, onEvent func(flow.Event)) error {
	out, err := c.api.InvokeFlow(ctx, buildInput(req))
	if err != nil {
		return fmt.Errorf("bedrock: invoke flow %s: %w", req.Flow.Identifier, err)
	}
	stream := out.GetStream()
	if stream == nil {
		return errors.New("bedrock: invoke flow returned no stream")
	}
	defer stream.Close()

	if err := drain(stream.Events(), onEvent); err != nil {
		return err
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("bedrock: flow stream: %w", err)
	}
	return nil
}

func buildInput(req flow.Request) *bedrockagentruntime.InvokeFlowInput {
	alias := strings.TrimSpace(req.Flow.AliasIdentifier)
	if alias == "" {
		alias = DraftAlias
	}
	return &bedrockagentruntime.InvokeFlowInput{
		FlowIdentifier:      aws.String(req.Flow.Identifier),
		FlowAliasIdentifier: aws.String(alias),
		Inputs: []types.FlowInput{
			{
				NodeName:       aws.String(InputNodeName),
				NodeOutputName: aws.String(InputNodeOutputName),
				Content:        &types.FlowInputContentMemberDocument{Value: document.NewLazyDocument(req.Input)},
			},
		},
	}
}

// drain 消费事件流直到关闭。非 SUCCESS 的完成原因视为错误。
func drain(events <-chan types.FlowResponseStream, onEvent func(flow.Event)) error {
	for ev := range events {
		switch v := ev.(type) {
		case *types.FlowResponseStreamMemberFlowOutputEvent:
			text, err := outputText(v.Value.Content)
			if err != nil {
				return err
			}
			if text != "" {
				onEvent(flow.Event{Type: flow.EventText, Text: text})
			}
		case *types.FlowResponseStreamMemberFlowCompletionEvent:
			if reason := v.Value.CompletionReason; reason != types.FlowCompletionReasonSuccess {
				return fmt.Errorf("bedrock: flow completed with reason %s", reason)
			}
			onEvent(flow.Event{Type: flow.EventCompleted})
			return nil
		}
	}
	onEvent(flow.Event{Type: flow.EventCompleted})
	return nil
}

func outputText(content types.FlowOutputContent) (string, error) {
	doc, ok := content.(*types.FlowOutputContentMemberDocument)
	if !ok || doc.Value == nil {
		return "", nil
	}
	return documentText(doc.Value)
}

// documentSource 是 document 中用到的部分；本地构造的 document 不能解码到 *any。
type documentSource interface {
	MarshalSmithyDocument() ([]byte, error)
}

// documentText 把字符串 document 原样返回，其它值返回紧凑 JSON。
func documentText(doc documentSource) (string, error) {
	data, err := doc.MarshalSmithyDocument()
	if err != nil {
		return "", fmt.Errorf("bedrock: decode flow output: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("bedrock: decode flow output: %w", err)
	}
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("bedrock: encode flow output: %w", err)
	}
	return string(out), nil
}

package page

import (
	"context"
	"errors"
	"fmt"

	"flowchat/internal/flow"
	"flowchat/internal/i18n"
	"flowchat/internal/logger"
	"flowchat/internal/promptflow"
)

var log = logger.Named("page")

var (
	ErrUnknownFlow   = errors.New("unknown flow")
	ErrInputDisabled = errors.New("input is disabled")
)

// Chat 是页面读取与驱动的对话状态。
type Chat interface {
	Messages() []promptflow.Message
	Loading() bool
	Error() string
	Flow() *flow.Descriptor
	AvailableFlows() []flow.Descriptor
	SendMessage(ctx context.Context, content string) error
	SetFlow(d *flow.Descriptor)
	Clear()
}

// TitleLookup 按 id 查询对话标题，未知时返回空串。
type TitleLookup interface {
	GetChatTitle(ctx context.Context, id string) string
}

// Follower 控制视图是否跟随新输出滚动。
type Follower interface {
	SetFollowing(bool)
}

// FlowOption 是 flow 选择器中的一项。
type FlowOption struct {
	Value string
	Label string
}

type Controller struct {
	chat     Chat
	titles   TitleLookup
	follower Follower
	draft    *Draft
	lang     i18n.Language
	route    Route
}

type Options struct {
	Chat     Chat
	Titles   TitleLookup
	Follower Follower
	Draft    *Draft
	Language i18n.Language
}

func NewController(opts Options) *Controller {
	draft := opts.Draft
	if draft == nil {
		draft = &Draft{}
	}
	return &Controller{
		chat:     opts.Chat,
		titles:   opts.Titles,
		follower: opts.Follower,
		draft:    draft,
		lang:     i18n.Normalize(string(opts.Language)),
	}
}

func (c *Controller) Draft() *Draft { return c.draft }
func (c *Controller) Route() Route  { return c.route }
func (c *Controller) Chat() Chat    { return c.chat }

// Load 绑定路由：有查询串时用 content 参数预填草稿，然后选择第一个可用 flow。
func (c *Controller) Load(r Route) {
	c.route = r
	c.sync()
}

// FlowsChanged 在可用 flow 列表变化后重新执行与 Load 相同的同步：
// 按查询串预填草稿，并选择第一个 flow。
func (c *Controller) FlowsChanged() {
	c.sync()
}

func (c *Controller) sync() {
	if c.route.Search != "" {
		content, _ := c.route.Content()
		c.draft.SetContent(content)
	}
	c.selectFirst()
}

func (c *Controller) selectFirst() {
	flows := c.chat.AvailableFlows()
	if len(flows) == 0 {
		c.chat.SetFlow(nil)
		return
	}
	first := flows[0]
	c.chat.SetFlow(&first)
}

// SelectFlow 按 identifier 选择 flow。
func (c *Controller) SelectFlow(identifier string) error {
	f, ok := flow.Find(c.chat.AvailableFlows(), identifier)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFlow, identifier)
	}
	c.chat.SetFlow(&f)
	return nil
}

// Send 打开跟随滚动，把草稿交给对话发送，然后清空草稿。
// 输入禁用时不做任何改变。
func (c *Controller) Send(ctx context.Context) error {
	if c.InputDisabled() {
		return ErrInputDisabled
	}
	if c.follower != nil {
		c.follower.SetFollowing(true)
	}
	err := c.chat.SendMessage(ctx, c.draft.Content())
	c.draft.SetContent("")
	if err != nil {
		log.Warnf("send failed: %v", err)
	}
	return err
}

// Reset 清空对话与草稿。
func (c *Controller) Reset() {
	c.chat.Clear()
	c.draft.SetContent("")
}

// Title 返回路由中对话的标题，缺失时使用默认标签。
func (c *Controller) Title(ctx context.Context) string {
	if c.route.ChatID != "" && c.titles != nil {
		if title := c.titles.GetChatTitle(ctx, c.route.ChatID); title != "" {
			return title
		}
	}
	return i18n.T(c.lang, i18n.DefaultTitle)
}

func (c *Controller) InputDisabled() bool {
	return c.chat.Loading() || c.chat.Flow() == nil
}

// ResetDisabled 在路由带有对话 id 时为 true。
func (c *Controller) ResetDisabled() bool {
	return c.route.ChatID != ""
}

func (c *Controller) Empty() bool {
	return len(c.chat.Messages()) == 0
}

func (c *Controller) ShowPlaceholder() bool {
	return c.Empty() && !c.chat.Loading()
}

// MessageLoading 报告第 idx 条消息是否仍在生成。
func (c *Controller) MessageLoading(idx int) bool {
	return c.chat.Loading() && idx == len(c.chat.Messages())-1
}

func (c *Controller) FlowOptions() []FlowOption {
	flows := c.chat.AvailableFlows()
	opts := make([]FlowOption, 0, len(flows))
	for _, f := range flows {
		opts = append(opts, FlowOption{Value: f.Identifier, Label: f.Label()})
	}
	return opts
}

// Description 返回当前 flow 的描述，未选择时为空。
func (c *Controller) Description() string {
	if f := c.chat.Flow(); f != nil {
		return f.Description
	}
	return ""
}

// Package promptflow 持有与 flow 对话的会话状态：消息、加载标志、错误、
// 当前 flow 与可选 flow 列表。页面只读取这些状态并调用这里的操作。
package promptflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"flowchat/internal/events"
	"flowchat/internal/flow"
	"flowchat/internal/logger"

	"github.com/google/uuid"
)

var log = logger.Named("promptflow")

var (
	ErrBusy         = errors.New("a message is already being processed")
	ErrNoFlow       = errors.New("no flow selected")
	ErrEmptyContent = errors.New("message is empty")
)

// Message 是会话中的一条消息。
type Message struct {
	ID        string    `json:"id"`
	Role      flow.Role `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type EventKind string

const (
	MessagesChanged EventKind = "messages"
	FlowsChanged    EventKind = "flows"
	StatusChanged   EventKind = "status"
)

// Event 通知订阅者状态发生了变化，订阅者应重新读取。
type Event struct {
	Kind EventKind
}

// Recorder 持久化已完成的对话轮次。
type Recorder interface {
	Record(ctx context.Context, chatID, flowID string, messages []Message) error
}

type Options struct {
	Invoker  flow.Invoker
	Flows    []flow.Descriptor
	Recorder Recorder
	FlowLog  logger.FlowLogger
	// ChatID 与 Messages 用于恢复已有会话。
	ChatID   string
	Messages []Message
	// Timeout 限制单次调用时长，0 表示不限制。
	Timeout time.Duration
}

type Chat struct {
	mu        sync.Mutex
	invoker   flow.Invoker
	recorder  Recorder
	flowLog   logger.FlowLogger
	timeout   time.Duration
	chatID    string
	messages  []Message
	loading   bool
	err       string
	flow      *flow.Descriptor
	available []flow.Descriptor
	cancel    context.CancelFunc
	gen       int
	wg        sync.WaitGroup
	bus       *events.Bus[Event]
	// recordMu 串行化 Recorder 调用，recordedGen 之前的快照不再写入。
	recordMu    sync.Mutex
	recordedGen int
}

func New(opts Options) *Chat {
	flowLog := opts.FlowLog
	if flowLog == nil {
		flowLog = logger.FlowLog()
	}
	return &Chat{
		invoker:   opts.Invoker,
		recorder:  opts.Recorder,
		flowLog:   flowLog,
		timeout:   opts.Timeout,
		chatID:    opts.ChatID,
		messages:  append([]Message(nil), opts.Messages...),
		available: append([]flow.Descriptor(nil), opts.Flows...),
		bus:       newBus(),
	}
}

// newBus 为每个订阅保留空位给 FlowsChanged 与 StatusChanged；
// 流式输出产生的 MessagesChanged 在通道将满时丢弃，订阅者总会重新读取完整消息。
func newBus() *events.Bus[Event] {
	return events.NewBus[Event](64).WithLowPriority(func(e Event) bool {
		return e.Kind == MessagesChanged
	}, 16)
}

// Subscribe 返回状态变化通知。
func (c *Chat) Subscribe() <-chan Event {
	return c.bus.Subscribe()
}

func (c *Chat) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

func (c *Chat) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Error 返回最近一次调用失败的错误文本，无错误时为空。
func (c *Chat) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Flow 返回当前 flow 的副本，未选择时为 nil。
func (c *Chat) Flow() *flow.Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flow == nil {
		return nil
	}
	f := *c.flow
	return &f
}

func (c *Chat) AvailableFlows() []flow.Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]flow.Descriptor(nil), c.available...)
}

func (c *Chat) ChatID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chatID
}

func (c *Chat) SetFlow(d *flow.Descriptor) {
	c.mu.Lock()
	if d == nil {
		c.flow = nil
	} else {
		f := *d
		c.flow = &f
	}
	c.mu.Unlock()
	c.bus.Publish(Event{Kind: StatusChanged})
}

// SetAvailableFlows 替换可选 flow 列表并发布 FlowsChanged。
func (c *Chat) SetAvailableFlows(flows []flow.Descriptor) {
	c.mu.Lock()
	c.available = append([]flow.Descriptor(nil), flows...)
	c.mu.Unlock()
	c.bus.Publish(Event{Kind: FlowsChanged})
}

// SendMessage 追加用户消息与空的助手消息，并在后台调用当前 flow。
// 流式输出逐段追加到助手消息。
func (c *Chat) SendMessage(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.flow == nil {
		c.mu.Unlock()
		return ErrNoFlow
	}
	if c.chatID == "" {
		c.chatID = uuid.NewString()
	}
	req := flow.Request{Flow: *c.flow, Input: content, History: toTurns(c.messages)}
	now := time.Now().UTC()
	c.messages = append(c.messages,
		Message{ID: uuid.NewString(), Role: flow.RoleUser, Content: content, CreatedAt: now},
		Message{ID: uuid.NewString(), Role: flow.RoleAssistant, CreatedAt: now},
	)
	c.loading = true
	c.err = ""
	c.gen++
	gen := c.gen
	chatID := c.chatID

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if c.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	c.cancel = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	log.WithField("flow", req.Flow.Identifier).WithField("chat_id", chatID).Info("send accepted")
	c.bus.Publish(Event{Kind: MessagesChanged})
	c.bus.Publish(Event{Kind: StatusChanged})

	go c.run(runCtx, cancel, gen, chatID, req)
	return nil
}

func (c *Chat) run(ctx context.Context, cancel context.CancelFunc, gen int, chatID string, req flow.Request) {
	defer c.wg.Done()
	defer cancel()

	flowID := req.Flow.Identifier
	c.flowLog.Request(flowID, req.Input, len(req.History))
	chunks := 0
	err := c.invoke(ctx, req, func(ev flow.Event) {
		if ev.Type != flow.EventText || ev.Text == "" {
			return
		}
		c.mu.Lock()
		if gen != c.gen || len(c.messages) == 0 {
			c.mu.Unlock()
			return
		}
		c.messages[len(c.messages)-1].Content += ev.Text
		c.mu.Unlock()
		chunks++
		c.flowLog.Chunk(flowID, ev.Text, chunks)
		c.bus.Publish(Event{Kind: MessagesChanged})
	})

	c.mu.Lock()
	if gen != c.gen {
		// 已被 Clear 取代。
		c.mu.Unlock()
		return
	}
	c.loading = false
	c.cancel = nil
	var snapshot []Message
	if err != nil {
		c.err = err.Error()
		if last := len(c.messages) - 1; last >= 0 && c.messages[last].Role == flow.RoleAssistant && c.messages[last].Content == "" {
			c.messages = c.messages[:last]
		}
	} else {
		snapshot = append([]Message(nil), c.messages...)
	}
	c.mu.Unlock()

	if err != nil {
		c.flowLog.Error(flowID, err)
	} else {
		c.flowLog.Complete(flowID, chunks)
	}
	c.bus.Publish(Event{Kind: MessagesChanged})
	c.bus.Publish(Event{Kind: StatusChanged})

	if snapshot != nil && c.recorder != nil {
		c.record(context.WithoutCancel(ctx), gen, chatID, flowID, snapshot)
	}
}

// record 按轮次顺序写入快照；较早的一轮晚到时直接跳过。
func (c *Chat) record(ctx context.Context, gen int, chatID, flowID string, snapshot []Message) {
	c.recordMu.Lock()
	defer c.recordMu.Unlock()
	if gen < c.recordedGen {
		log.WithField("chat_id", chatID).Debugf("skip stale snapshot of turn %d", gen)
		return
	}
	c.recordedGen = gen
	if err := c.recorder.Record(ctx, chatID, flowID, snapshot); err != nil {
		log.WithField("chat_id", chatID).Warnf("record chat failed: %v", err)
	}
}

func (c *Chat) invoke(ctx context.Context, req flow.Request, onEvent func(flow.Event)) (err error) {
	if c.invoker == nil {
		return errors.New("no flow backend configured")
	}
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("flow backend panic: %v", r)
			err = errors.New("flow backend failed unexpectedly")
		}
	}()
	return c.invoker.Invoke(ctx, req, onEvent)
}

// Clear 取消进行中的调用并清空消息与错误，下一次发送开始新的会话。
func (c *Chat) Clear() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.messages = nil
	c.err = ""
	c.loading = false
	c.chatID = ""
	c.mu.Unlock()
	c.bus.Publish(Event{Kind: MessagesChanged})
	c.bus.Publish(Event{Kind: StatusChanged})
}

// Wait 阻塞到所有后台调用结束。
func (c *Chat) Wait() {
	c.wg.Wait()
}

// Close 取消进行中的调用、等待其退出并关闭订阅。
func (c *Chat) Close() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	c.wg.Wait()
	c.bus.Close()
}

func toTurns(msgs []Message) []flow.Turn {
	turns := make([]flow.Turn, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		turns = append(turns, flow.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

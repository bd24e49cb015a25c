// Package flow 描述可对话的 flow（命名的后端工作流）以及调用它们的后端。
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Backend 名称。
const (
	BackendEcho      = "echo"
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
	BackendBedrock   = "bedrock"
)

// Descriptor 是一个可选择的 flow。Identifier 在同一目录中唯一。
type Descriptor struct {
	Identifier      string `toml:"identifier" yaml:"identifier" json:"identifier"`
	AliasIdentifier string `toml:"alias" yaml:"alias" json:"alias,omitempty"`
	Name            string `toml:"name" yaml:"name" json:"name"`
	Description     string `toml:"description" yaml:"description" json:"description,omitempty"`
	Backend         string `toml:"backend" yaml:"backend" json:"backend,omitempty"`
	Model           string `toml:"model" yaml:"model" json:"model,omitempty"`
	System          string `toml:"system" yaml:"system" json:"system,omitempty"`
}

// Label 返回展示名，Name 为空时回退到 Identifier。
func (d Descriptor) Label() string {
	if name := strings.TrimSpace(d.Name); name != "" {
		return name
	}
	return d.Identifier
}

// Role 是一条对话消息的角色。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn 是传给后端的一条历史消息。
type Turn struct {
	Role    Role
	Content string
}

// Request 描述一次 flow 调用。
type Request struct {
	Flow    Descriptor
	Input   string
	History []Turn
}

type EventType string

const (
	EventText      EventType = "text"
	EventCompleted EventType = "completed"
)

// Event 是流式输出中的一个事件。
type Event struct {
	Type EventType
	Text string
}

// Invoker 调用 flow 并通过 onEvent 回传流式输出。
type Invoker interface {
	Invoke(ctx context.Context, req Request, onEvent func(Event)) error
}

// InvokerFunc 让普通函数满足 Invoker。
type InvokerFunc func(ctx context.Context, req Request, onEvent func(Event)) error

func (f InvokerFunc) Invoke(ctx context.Context, req Request, onEvent func(Event)) error {
	return f(ctx, req, onEvent)
}

// Router 按 Descriptor.Backend 分发到已注册的后端。
type Router struct {
	mu       sync.RWMutex
	backends map[string]Invoker
	fallback string
}

// NewRouter 创建路由；fallback 用于 Backend 为空的 flow。
func NewRouter(fallback string) *Router {
	return &Router{backends: map[string]Invoker{}, fallback: fallback}
}

// Register 注册或替换一个后端。
func (r *Router) Register(name string, inv Invoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[strings.ToLower(strings.TrimSpace(name))] = inv
}

// Has 报告后端是否已注册。
func (r *Router) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.backends[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func (r *Router) Invoke(ctx context.Context, req Request, onEvent func(Event)) error {
	name := strings.ToLower(strings.TrimSpace(req.Flow.Backend))
	if name == "" {
		name = r.fallback
	}
	r.mu.RLock()
	inv, ok := r.backends[name]
	r.mu.RUnlock()
	if !ok || inv == nil {
		return fmt.Errorf("flow %s: backend %q not configured", req.Flow.Identifier, name)
	}
	return inv.Invoke(ctx, req, onEvent)
}

// EchoInvoker 是没有可用后端时的离线回退。
type EchoInvoker struct {
	Prefix string
}

func (e EchoInvoker) Invoke(ctx context.Context, req Request, onEvent func(Event)) error {
	if strings.TrimSpace(req.Input) == "" {
		return errors.New("no input to echo")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	onEvent(Event{Type: EventText, Text: e.Prefix + req.Input})
	onEvent(Event{Type: EventCompleted})
	return nil
}

// Find 返回 identifier 对应的 flow。
func Find(flows []Descriptor, identifier string) (Descriptor, bool) {
	for _, f := range flows {
		if f.Identifier == identifier {
			return f, true
		}
	}
	return Descriptor{}, false
}

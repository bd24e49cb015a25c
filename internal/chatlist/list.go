package chatlist

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"flowchat/internal/flow"
	"flowchat/internal/logger"
	"flowchat/internal/promptflow"
)

var log = logger.Named("chatlist")

const titleLimit = 30

// List 在 Store 之上缓存标题，并作为聊天 hook 的 Recorder 写入完成的轮次。
type List struct {
	store  Store
	mu     sync.Mutex
	titles map[string]string
}

func New(store Store) *List {
	return &List{store: store, titles: map[string]string{}}
}

func (l *List) Store() Store { return l.store }

// GetChatTitle 返回对话标题；未知 id 或读取失败时返回空串。
func (l *List) GetChatTitle(ctx context.Context, id string) string {
	if id == "" {
		return ""
	}
	l.mu.Lock()
	title, ok := l.titles[id]
	l.mu.Unlock()
	if ok {
		return title
	}
	chat, err := l.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// 未知 id 也缓存，Record 写入后会覆盖。
			l.mu.Lock()
			l.titles[id] = ""
			l.mu.Unlock()
		} else {
			log.WithField("chat_id", id).Warnf("title lookup failed: %v", err)
		}
		return ""
	}
	l.mu.Lock()
	l.titles[id] = chat.Title
	l.mu.Unlock()
	return chat.Title
}

// Record 保存一轮完成后的对话快照。已有标题保持不变。
func (l *List) Record(ctx context.Context, chatID, flowID string, messages []promptflow.Message) error {
	if chatID == "" {
		return errors.New("chatlist: record without chat id")
	}
	chat, err := l.store.Get(ctx, chatID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	chat.ID = chatID
	chat.FlowIdentifier = flowID
	chat.Messages = messages
	chat.Updated = time.Now().UTC()
	if chat.Title == "" {
		chat.Title = TitleFrom(messages)
	}
	if err := l.store.Save(ctx, chat); err != nil {
		return err
	}
	l.mu.Lock()
	l.titles[chatID] = chat.Title
	l.mu.Unlock()
	return nil
}

// Chats 返回全部对话，最近更新的在前。
func (l *List) Chats(ctx context.Context) ([]Chat, error) {
	return l.store.List(ctx)
}

// Load 读取一个对话用于恢复。
func (l *List) Load(ctx context.Context, id string) (Chat, error) {
	return l.store.Get(ctx, id)
}

// TitleFrom 取第一条用户消息的首行，截断到 30 个字符。
func TitleFrom(messages []promptflow.Message) string {
	for _, m := range messages {
		if m.Role != flow.RoleUser {
			continue
		}
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = strings.TrimSpace(text[:i])
		}
		runes := []rune(text)
		if len(runes) > titleLimit {
			return string(runes[:titleLimit]) + "…"
		}
		return text
	}
	return ""
}

// Package chatlist 保存已有的对话并提供按 id 查询标题的能力。
package chatlist

import (
	"context"
	"errors"
	"sort"
	"time"

	"flowchat/internal/promptflow"
)

var ErrNotFound = errors.New("chat not found")

// Chat 是一条已保存的对话。
type Chat struct {
	ID             string               `json:"id"`
	Title          string               `json:"title"`
	FlowIdentifier string               `json:"flow_identifier,omitempty"`
	Messages       []promptflow.Message `json:"messages"`
	Updated        time.Time            `json:"updated"`
}

// Store 是对话的持久化后端。Get 在 id 不存在时返回 ErrNotFound。
type Store interface {
	List(ctx context.Context) ([]Chat, error)
	Get(ctx context.Context, id string) (Chat, error)
	Save(ctx context.Context, chat Chat) error
	Delete(ctx context.Context, id string) error
}

func sortByUpdated(chats []Chat) {
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].Updated.After(chats[j].Updated)
	})
}

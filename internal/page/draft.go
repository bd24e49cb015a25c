// Package page 实现 prompt flow 对话页的编排：草稿、路由参数、flow 选择、
// 发送与重置，以及标题与视图派生状态。
package page

import (
	"slices"
	"sync"
)

// Draft 保存正在编辑、尚未发送的文本。
type Draft struct {
	mu      sync.Mutex
	content string
	subs    []func(string)
}

func (d *Draft) Content() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.content
}

// SetContent 替换草稿并通知订阅者。
func (d *Draft) SetContent(s string) {
	d.mu.Lock()
	d.content = s
	subs := slices.Clone(d.subs)
	d.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

func (d *Draft) Subscribe(fn func(string)) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	d.subs = append(d.subs, fn)
	d.mu.Unlock()
}

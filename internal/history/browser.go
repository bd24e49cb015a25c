package history

import "strings"

// Browser 维护输入框的历史浏览位置。
// cursor == len(entries) 表示不在浏览状态，draft 保存进入浏览前的输入。
type Browser struct {
	entries []string
	cursor  int
	draft   string
}

func (b *Browser) Set(entries []string) {
	b.entries = append([]string(nil), entries...)
	b.ResetBrowsing()
}

func (b *Browser) Add(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if n := len(b.entries); n == 0 || b.entries[n-1] != text {
		b.entries = append(b.entries, text)
	}
	b.ResetBrowsing()
}

func (b *Browser) Len() int { return len(b.entries) }

func (b *Browser) Browsing() bool {
	return b.cursor < len(b.entries)
}

func (b *Browser) ResetBrowsing() {
	b.cursor = len(b.entries)
	b.draft = ""
}

// Prev 移到更早的一条；第一次调用时记住 current。
func (b *Browser) Prev(current string) (string, bool) {
	if len(b.entries) == 0 {
		return "", false
	}
	if b.cursor == len(b.entries) {
		b.draft = current
	}
	if b.cursor > 0 {
		b.cursor--
	}
	return b.entries[b.cursor], true
}

// Next 移到更新的一条；越过最新一条时返回进入浏览前的输入。
func (b *Browser) Next() (string, bool) {
	if len(b.entries) == 0 || b.cursor == len(b.entries) {
		return "", false
	}
	if b.cursor < len(b.entries)-1 {
		b.cursor++
		return b.entries[b.cursor], true
	}
	b.cursor = len(b.entries)
	return b.draft, true
}

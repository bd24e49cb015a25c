package render

import (
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

const markdownCacheSize = 256

// Markdown 用 glamour 渲染助手输出，按宽度缓存 renderer 与渲染结果。
type Markdown struct {
	mu        sync.Mutex
	style     string
	renderers map[int]*glamour.TermRenderer
	cache     map[string][]string
}

// NewMarkdown 创建渲染器；style 为空时按终端背景自动选择。
func NewMarkdown(style string) *Markdown {
	return &Markdown{
		style:     style,
		renderers: map[int]*glamour.TermRenderer{},
		cache:     map[string][]string{},
	}
}

func (m *Markdown) renderer(width int) (*glamour.TermRenderer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.renderers[width]; ok {
		return r, nil
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if m.style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(m.style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	m.renderers[width] = r
	return r, nil
}

// Render 返回渲染后的行；失败或 m 为 nil 时回退为纯文本换行。
func (m *Markdown) Render(text string, width int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if m == nil || width < 10 {
		return WrapText(text, width)
	}
	key := strconv.Itoa(width) + "\x00" + text
	m.mu.Lock()
	cached, ok := m.cache[key]
	m.mu.Unlock()
	if ok {
		return cached
	}
	r, err := m.renderer(width)
	if err != nil {
		return WrapText(text, width)
	}
	out, err := r.Render(text)
	if err != nil {
		return WrapText(text, width)
	}
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	m.mu.Lock()
	if len(m.cache) >= markdownCacheSize {
		m.cache = map[string][]string{}
	}
	m.cache[key] = lines
	m.mu.Unlock()
	return lines
}

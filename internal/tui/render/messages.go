package render

import (
	"strings"

	"flowchat/internal/flow"
	"flowchat/internal/promptflow"

	"github.com/charmbracelet/lipgloss"
)

var (
	userPrefixStyle      = lipgloss.NewStyle().Faint(true).Bold(true)
	userIndentStyle      = lipgloss.NewStyle().Faint(true)
	assistantPrefixStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	separatorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B3F4A"))
	loadingStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D7A85")).Italic(true)
)

// MessagesOptions 控制消息列表的排版。
type MessagesOptions struct {
	Width int
	// LoadingIndex 指向仍在生成的消息，-1 表示没有。
	LoadingIndex int
	// Spinner 是加载中消息尾部显示的动画帧。
	Spinner  string
	Thinking string
	Markdown *Markdown
}

// RenderMessages 依次渲染消息，相邻消息之间以分隔线隔开。
func RenderMessages(msgs []promptflow.Message, opts MessagesOptions) []Line {
	width := opts.Width
	if width <= 0 {
		width = 80
	}
	buf := Buffer{}
	for i, msg := range msgs {
		if i > 0 {
			buf.WriteLines(separator(width))
		}
		loading := i == opts.LoadingIndex
		switch msg.Role {
		case flow.RoleUser:
			buf.WriteLines(userLines(msg.Content, width)...)
		default:
			buf.WriteLines(assistantLines(msg.Content, width, opts.Markdown)...)
		}
		if loading {
			text := strings.TrimSpace(opts.Spinner + " " + opts.Thinking)
			buf.WriteLines(Line{Spans: []Span{{Text: "  "}, {Text: text, Style: loadingStyle}}})
		}
	}
	return buf.Lines
}

func separator(width int) Line {
	return Line{Spans: []Span{{Text: strings.Repeat("─", width), Style: separatorStyle}}}
}

func userLines(content string, width int) []Line {
	wrapWidth := width - 2
	if wrapWidth < 1 {
		wrapWidth = width
	}
	body := wrapLines(strings.TrimRight(content, "\n"), wrapWidth)
	return PrefixLines(body, Span{Text: "› ", Style: userPrefixStyle}, Span{Text: "  ", Style: userIndentStyle})
}

func assistantLines(content string, width int, md *Markdown) []Line {
	wrapWidth := width - 2
	if wrapWidth < 1 {
		wrapWidth = width
	}
	rendered := md.Render(content, wrapWidth)
	if len(rendered) == 0 {
		return []Line{{Spans: []Span{{Text: "• ", Style: assistantPrefixStyle}}}}
	}
	body := make([]Line, 0, len(rendered))
	for _, l := range rendered {
		body = append(body, Raw(l))
	}
	return PrefixLines(body, Span{Text: "• ", Style: assistantPrefixStyle}, Span{Text: "  "})
}

func wrapLines(content string, width int) []Line {
	lines := WrapText(content, width)
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, Raw(l))
	}
	return out
}

package slash

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	nameStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C4A1FF"))
	descStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	highlightStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EBCB8B"))
	selectedStyle  = lipgloss.NewStyle().Background(lipgloss.Color("#2F2A3D"))
)

// View 渲染弹窗内容（不含外围边框）。
func (s *State) View(width int) string {
	if !s.Open() {
		return ""
	}
	if width <= 20 {
		width = 20
	}
	if len(s.matches) == 0 {
		return descStyle.Render("no matches")
	}
	nameWidth := 0
	for _, m := range s.matches {
		if w := runewidth.StringWidth(m.item.DisplayName()); w > nameWidth {
			nameWidth = w
		}
	}
	descWidth := width - nameWidth - 2
	if descWidth < 8 {
		descWidth = 8
	}

	start, end := window(len(s.matches), s.selected, s.maxLines)
	lines := make([]string, 0, end-start)
	for idx := start; idx < end; idx++ {
		m := s.matches[idx]
		name := highlight(m.item.DisplayName(), m.highlights)
		pad := strings.Repeat(" ", nameWidth-runewidth.StringWidth(m.item.DisplayName()))
		desc := runewidth.Truncate(m.item.Description, descWidth, "…")
		line := nameStyle.Render(name) + pad + "  " + descStyle.Render(desc)
		if idx == s.selected {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// window 返回包含 selected 的可见区间。
func window(total, selected, limit int) (int, int) {
	if limit <= 0 || total <= limit {
		return 0, total
	}
	start := selected - limit + 1
	if start < 0 {
		start = 0
	}
	return start, start + limit
}

// highlight 标出模糊匹配的字符；indexes 不含前导斜杠。
func highlight(name string, indexes []int) string {
	if len(indexes) == 0 {
		return name
	}
	marked := make(map[int]bool, len(indexes))
	for _, idx := range indexes {
		marked[idx+1] = true
	}
	var b strings.Builder
	for i, r := range []rune(name) {
		if marked[i] {
			b.WriteString(highlightStyle.Render(string(r)))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

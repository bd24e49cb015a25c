package tui

import (
	"strings"

	"flowchat/internal/page"
	"flowchat/internal/tui/render"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

// flowSource 让 fuzzy 直接在 flow 选项上匹配名称与 identifier。
type flowSource []page.FlowOption

func (s flowSource) String(i int) string { return s[i].Label + " " + s[i].Value }
func (s flowSource) Len() int            { return len(s) }

// flowSelector 是 Ctrl+F 打开的 flow 选择弹窗。
type flowSelector struct {
	input    textinput.Model
	options  []page.FlowOption
	matches  []int
	selected int
	open     bool
}

func newFlowSelector() flowSelector {
	in := textinput.New()
	in.Prompt = "filter › "
	in.CharLimit = 64
	return flowSelector{input: in}
}

func (s *flowSelector) Open(options []page.FlowOption, current string) tea.Cmd {
	s.options = append([]page.FlowOption(nil), options...)
	s.input.SetValue("")
	s.open = true
	s.filter()
	for i, idx := range s.matches {
		if s.options[idx].Value == current {
			s.selected = i
		}
	}
	return s.input.Focus()
}

func (s *flowSelector) Close() {
	s.open = false
	s.input.Blur()
}

func (s *flowSelector) filter() {
	s.selected = 0
	query := strings.TrimSpace(s.input.Value())
	if query == "" {
		s.matches = make([]int, len(s.options))
		for i := range s.options {
			s.matches[i] = i
		}
		return
	}
	results := fuzzy.FindFrom(query, flowSource(s.options))
	s.matches = make([]int, 0, len(results))
	for _, r := range results {
		s.matches = append(s.matches, r.Index)
	}
}

// Update 处理按键；选择完成时返回被选中的 identifier。
func (s *flowSelector) Update(msg tea.KeyMsg) (string, bool, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+f":
		s.Close()
		return "", true, nil
	case "enter":
		if len(s.matches) == 0 {
			return "", false, nil
		}
		choice := s.options[s.matches[s.selected]].Value
		s.Close()
		return choice, true, nil
	case "up", "ctrl+p":
		if len(s.matches) > 0 {
			s.selected = (s.selected - 1 + len(s.matches)) % len(s.matches)
		}
		return "", false, nil
	case "down", "ctrl+n":
		if len(s.matches) > 0 {
			s.selected = (s.selected + 1) % len(s.matches)
		}
		return "", false, nil
	}
	before := s.input.Value()
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	if s.input.Value() != before {
		s.filter()
	}
	return "", false, cmd
}

func (s *flowSelector) View(title string, width int) string {
	lines := []string{titleStyle.Render(title), s.input.View()}
	if len(s.matches) == 0 {
		lines = append(lines, hintStyle.Render("no matches"))
	}
	for i, idx := range s.matches {
		opt := s.options[idx]
		text := render.Truncate(opt.Label+"  "+hintStyle.Render(opt.Value), maxInt(10, width-8))
		if i == s.selected {
			lines = append(lines, selectedStyle.Render("› "+text))
			continue
		}
		lines = append(lines, "  "+text)
	}
	return modalStyle.Width(maxInt(30, width-4)).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D7A85"))
	flowStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C4A1FF"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("#2F2A3D"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EBCB8B")).Padding(0, 1)
)

var errorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#FFFFFF")).
	Background(lipgloss.Color("#B42318")).
	Padding(0, 1)

var logoStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#7D56F4")).
	Foreground(lipgloss.Color("#7D56F4")).
	Padding(0, 2)

var modalStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	Padding(0, 1).
	BorderForeground(lipgloss.Color("#FFB454"))

func renderPane(title string, body string, width int) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#5E6472")).
		Padding(0, 1)
	if width > 2 {
		style = style.Width(width - 2)
	}
	content := body
	if title != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), body)
	}
	return style.Render(content)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Package scroll 跟踪会话区的滚动位置与“跟随新内容”开关。
package scroll

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Tracker 包装 bubbles viewport。following 为 true 时每次内容更新都贴底；
// 向上滚动关闭跟随，回到底部重新打开。
type Tracker struct {
	viewport.Model
	following bool
	lastLines []string
}

func New(width, height int) *Tracker {
	return &Tracker{Model: viewport.New(width, height), following: true}
}

// SetFollowing 打开或关闭跟随；打开时立即贴底。
func (t *Tracker) SetFollowing(v bool) {
	t.following = v
	if v {
		t.GotoBottom()
	}
}

func (t *Tracker) Following() bool {
	return t.following
}

// SetLines 更新内容，内容不变时不做任何事。
func (t *Tracker) SetLines(lines []string) {
	if slices.Equal(lines, t.lastLines) {
		return
	}
	t.lastLines = append([]string(nil), lines...)
	t.SetContent(strings.Join(lines, "\n"))
	if t.following {
		t.GotoBottom()
	}
}

// Resize 更新宽高；跟随时保持贴底。
func (t *Tracker) Resize(width, height int) {
	if width > 0 {
		t.Width = width
	}
	if height > 0 {
		t.Height = height
	}
	if t.following {
		t.GotoBottom()
	}
}

func (t *Tracker) LineUp(n int) {
	t.ScrollUp(n)
	t.syncFollowing()
}

func (t *Tracker) LineDown(n int) {
	t.ScrollDown(n)
	t.syncFollowing()
}

func (t *Tracker) PageUpward() {
	t.PageUp()
	t.syncFollowing()
}

func (t *Tracker) PageDownward() {
	t.PageDown()
	t.syncFollowing()
}

func (t *Tracker) Top() {
	t.GotoTop()
	t.syncFollowing()
}

func (t *Tracker) Bottom() {
	t.GotoBottom()
	t.following = true
}

// HandleUpdate 代理鼠标滚轮等消息。
func (t *Tracker) HandleUpdate(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	t.syncFollowing()
	return cmd
}

func (t *Tracker) syncFollowing() {
	t.following = t.AtBottom()
}
